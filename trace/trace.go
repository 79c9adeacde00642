// Package trace reads and writes memory access traces for the cache model.
//
// A trace is a text file with one access per line:
//
//	<core> <pc> <address> <type>
//
// Numbers are decimal or 0x-prefixed hexadecimal. The type is one of LOAD,
// RFO, PREFETCH, WRITE or TRANSLATION, in any case. Blank lines and text
// after a '#' are ignored. Files whose name ends in .gz are gzip-compressed.
package trace

import (
	"bufio"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/sarchlab/shipsim/timing/cache"
	"github.com/sarchlab/shipsim/timing/replacement/ship"
)

// Record is one memory access of a trace.
type Record struct {
	// Core is the id of the core that issued the access.
	Core int
	// PC is the program counter of the issuing instruction.
	PC uint64
	// Addr is the accessed memory address.
	Addr uint64
	// Type is the access type.
	Type ship.AccessType
}

// Access converts the record into a cache access. instrID is the position of
// the record in its trace.
func (r Record) Access(instrID uint64) cache.Access {
	return cache.Access{
		Core:    r.Core,
		InstrID: instrID,
		PC:      r.PC,
		Addr:    r.Addr,
		Type:    r.Type,
	}
}

// Replay runs the records through the cache in trace order.
func Replay(c *cache.Cache, records []Record) {
	for i, rec := range records {
		c.Access(rec.Access(uint64(i)))
	}
}

// Parse reads all records from r.
func Parse(r io.Reader) ([]Record, error) {
	var records []Record

	scanner := bufio.NewScanner(r)
	lineNum := 0
	for scanner.Scan() {
		lineNum++

		line := scanner.Text()
		if i := strings.IndexByte(line, '#'); i >= 0 {
			line = line[:i]
		}

		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}

		rec, err := parseFields(fields)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNum, err)
		}
		records = append(records, rec)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read trace: %w", err)
	}

	return records, nil
}

func parseFields(fields []string) (Record, error) {
	if len(fields) != 4 {
		return Record{}, fmt.Errorf("expected 4 fields, got %d", len(fields))
	}

	core, err := strconv.ParseUint(fields[0], 0, 16)
	if err != nil {
		return Record{}, fmt.Errorf("invalid core %q: %w", fields[0], err)
	}

	pc, err := strconv.ParseUint(fields[1], 0, 64)
	if err != nil {
		return Record{}, fmt.Errorf("invalid pc %q: %w", fields[1], err)
	}

	addr, err := strconv.ParseUint(fields[2], 0, 64)
	if err != nil {
		return Record{}, fmt.Errorf("invalid address %q: %w", fields[2], err)
	}

	accessType, err := ship.ParseAccessType(fields[3])
	if err != nil {
		return Record{}, err
	}

	return Record{
		Core: int(core),
		PC:   pc,
		Addr: addr,
		Type: accessType,
	}, nil
}

// Load reads a trace file.
func Load(path string) ([]Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open trace file: %w", err)
	}
	defer func() { _ = f.Close() }()

	var r io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("failed to open gzip stream: %w", err)
		}
		defer func() { _ = gz.Close() }()
		r = gz
	}

	return Parse(r)
}

// Write writes records in the text trace format.
func Write(w io.Writer, records []Record) error {
	bw := bufio.NewWriter(w)
	for _, rec := range records {
		_, err := fmt.Fprintf(bw, "%d 0x%x 0x%x %s\n", rec.Core, rec.PC, rec.Addr, rec.Type)
		if err != nil {
			return fmt.Errorf("failed to write trace: %w", err)
		}
	}

	if err := bw.Flush(); err != nil {
		return fmt.Errorf("failed to write trace: %w", err)
	}

	return nil
}

// Save writes records to a trace file, gzip-compressed if the name ends in
// .gz.
func Save(path string, records []Record) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create trace file: %w", err)
	}
	defer func() {
		if cerr := f.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("failed to close trace file: %w", cerr)
		}
	}()

	if !strings.HasSuffix(path, ".gz") {
		return Write(f, records)
	}

	gz := gzip.NewWriter(f)
	if err := Write(gz, records); err != nil {
		return err
	}
	if err := gz.Close(); err != nil {
		return fmt.Errorf("failed to finish gzip stream: %w", err)
	}

	return nil
}
