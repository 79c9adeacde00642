package trace_test

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/shipsim/timing/cache"
	"github.com/sarchlab/shipsim/timing/replacement/ship"
	"github.com/sarchlab/shipsim/trace"
)

var _ = Describe("Trace", func() {
	records := []trace.Record{
		{Core: 0, PC: 0x400100, Addr: 0x1000, Type: ship.AccessLoad},
		{Core: 1, PC: 0x400104, Addr: 0x2040, Type: ship.AccessRFO},
		{Core: 0, PC: 0, Addr: 0x1000, Type: ship.AccessWrite},
	}

	Describe("Parse", func() {
		It("should parse decimal and hexadecimal fields", func() {
			input := "0 0x400100 4096 LOAD\n1 4194564 0x2040 rfo\n"
			parsed, err := trace.Parse(strings.NewReader(input))
			Expect(err).NotTo(HaveOccurred())
			Expect(parsed).To(Equal(records[:2]))
		})

		It("should skip comments and blank lines", func() {
			input := "# header\n\n0 0x400100 0x1000 LOAD # first\n   \n"
			parsed, err := trace.Parse(strings.NewReader(input))
			Expect(err).NotTo(HaveOccurred())
			Expect(parsed).To(HaveLen(1))
		})

		It("should report the offending line", func() {
			input := "0 0x400100 0x1000 LOAD\n0 0x400100 LOAD\n"
			_, err := trace.Parse(strings.NewReader(input))
			Expect(err).To(MatchError(ContainSubstring("line 2")))
		})

		It("should reject unknown access types", func() {
			_, err := trace.Parse(strings.NewReader("0 0x1 0x2 FLUSH\n"))
			Expect(err).To(MatchError(ContainSubstring("FLUSH")))
		})

		It("should reject malformed numbers", func() {
			_, err := trace.Parse(strings.NewReader("0 0xZZ 0x2 LOAD\n"))
			Expect(err).To(MatchError(ContainSubstring("invalid pc")))
		})
	})

	Describe("Write", func() {
		It("should produce text that parses back", func() {
			var buf bytes.Buffer
			Expect(trace.Write(&buf, records)).To(Succeed())

			parsed, err := trace.Parse(&buf)
			Expect(err).NotTo(HaveOccurred())
			Expect(parsed).To(Equal(records))
		})
	})

	Describe("Load and Save", func() {
		var dir string

		BeforeEach(func() {
			dir = GinkgoT().TempDir()
		})

		It("should round-trip plain files", func() {
			path := filepath.Join(dir, "t.trace")
			Expect(trace.Save(path, records)).To(Succeed())

			loaded, err := trace.Load(path)
			Expect(err).NotTo(HaveOccurred())
			Expect(loaded).To(Equal(records))
		})

		It("should round-trip gzip files", func() {
			path := filepath.Join(dir, "t.trace.gz")
			Expect(trace.Save(path, records)).To(Succeed())

			raw, err := os.ReadFile(path)
			Expect(err).NotTo(HaveOccurred())
			Expect(raw[:2]).To(Equal([]byte{0x1f, 0x8b}))

			loaded, err := trace.Load(path)
			Expect(err).NotTo(HaveOccurred())
			Expect(loaded).To(Equal(records))
		})

		It("should report a missing file", func() {
			_, err := trace.Load(filepath.Join(dir, "missing.trace"))
			Expect(err).To(MatchError(ContainSubstring("failed to open")))
		})
	})

	Describe("Replay", func() {
		It("should run every record through the cache", func() {
			c, err := cache.New(cache.Config{
				Size: 4096, Associativity: 4, BlockSize: 64,
				HitLatency: 1, MissLatency: 10, NumCores: 2,
			})
			Expect(err).NotTo(HaveOccurred())

			trace.Replay(c, records)

			stats := c.Stats()
			Expect(stats.Reads).To(Equal(uint64(2)))
			Expect(stats.Writes).To(Equal(uint64(1)))
			Expect(stats.Hits).To(Equal(uint64(1)))
			Expect(stats.Misses).To(Equal(uint64(2)))
		})
	})
})
