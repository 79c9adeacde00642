// Package main provides the entry point for shipsim.
// shipsim replays a memory access trace through a cache managed by the SHiP
// replacement policy and reports hit rates and policy statistics.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/go-logr/logr"
	"github.com/go-logr/logr/funcr"

	"github.com/sarchlab/shipsim/timing/cache"
	"github.com/sarchlab/shipsim/trace"
)

var (
	configPath = flag.String("config", "", "Path to cache configuration file (JSON or YAML)")
	cores      = flag.Int("cores", 1, "Number of cores sharing the default LLC (ignored with -config)")
	verbosity  = flag.Int("v", 0, "Log verbosity (1: configuration, 2: sampler training)")
	jsonOutput = flag.Bool("json", false, "Print the report as JSON")
)

func main() {
	flag.Parse()

	if flag.NArg() < 1 {
		fmt.Fprintf(os.Stderr, "Usage: shipsim [options] <trace>\n")
		fmt.Fprintf(os.Stderr, "\nOptions:\n")
		flag.PrintDefaults()
		os.Exit(1)
	}

	tracePath := flag.Arg(0)
	logger := newLogger(*verbosity)

	config, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading cache config: %v\n", err)
		os.Exit(1)
	}

	records, err := trace.Load(tracePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading trace: %v\n", err)
		os.Exit(1)
	}

	logger.V(1).Info("loaded trace", "path", tracePath, "records", len(records))

	c, err := cache.New(*config, cache.WithLogger(logger))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating cache: %v\n", err)
		os.Exit(1)
	}

	trace.Replay(c, records)
	c.Finalize()

	r := newReport(tracePath, c)
	if *jsonOutput {
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(r); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing report: %v\n", err)
			os.Exit(1)
		}
		return
	}

	r.print()
}

// loadConfig reads -config or falls back to the default shared LLC.
func loadConfig() (*cache.Config, error) {
	if *configPath == "" {
		config := cache.DefaultLLCConfig(*cores)
		return &config, nil
	}

	config, err := cache.LoadConfig(*configPath)
	if err != nil {
		return nil, err
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// newLogger writes structured log lines to stderr.
func newLogger(verbosity int) logr.Logger {
	return funcr.New(func(prefix, args string) {
		if prefix != "" {
			fmt.Fprintf(os.Stderr, "%s: %s\n", prefix, args)
			return
		}
		fmt.Fprintln(os.Stderr, args)
	}, funcr.Options{Verbosity: verbosity})
}
