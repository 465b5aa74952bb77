// bench - bencode decode benchmark runner
//
// Decodes every case fully buffered and then streamed through several
// refill chunk sizes, checking that all modes produce the same tree:
//   - Throughput per mode
//   - Refill count per mode
//
// Output: CSV and markdown summary
package main

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/anacrolix/log"
	"github.com/google/go-cmp/cmp"

	"github.com/Neumenon/bencode/bencode"
	"github.com/Neumenon/bencode/stream"
)

var logger = log.Default.WithNames("bench")

// Refill chunk sizes exercised in streaming mode.
var bufferSizes = []int{1, 7, 64, 4096, 65536}

const rounds = 5

type ModeResult struct {
	Buffer   int // 0 for the fully-buffered source
	Duration time.Duration
	Refills  int
	Match    bool
}

type CaseResult struct {
	Name   string
	Bytes  int
	Values int
	Diags  int
	Modes  []ModeResult
}

func main() {
	files := os.Args[1:]
	if len(files) == 0 {
		dir := findTestdata()
		if dir == "" {
			logger.Levelf(log.Error, "cannot find testdata/bench directory and no files given")
			os.Exit(1)
		}
		files, _ = filepath.Glob(filepath.Join(dir, "*.torrent"))
		sort.Strings(files)
	}

	fmt.Fprintf(os.Stderr, "bencode Benchmark Runner\n")
	fmt.Fprintf(os.Stderr, "========================\n")
	fmt.Fprintf(os.Stderr, "Cases: %d\n\n", len(files))

	var results []CaseResult
	mismatches := 0
	for _, path := range files {
		data, err := readCase(path)
		if err != nil {
			logger.Levelf(log.Warning, "skip %s: %v", path, err)
			continue
		}

		r := runCase(filepath.Base(path), data)
		for _, m := range r.Modes {
			if !m.Match {
				mismatches++
			}
		}
		results = append(results, r)
	}

	csvPath := "bench_results.csv"
	if csvFile, err := os.Create(csvPath); err == nil {
		writeCSV(csvFile, results)
		csvFile.Close()
		fmt.Fprintf(os.Stderr, "CSV written to: %s\n", csvPath)
	}

	mdPath := "BENCH.md"
	if mdFile, err := os.Create(mdPath); err == nil {
		writeMarkdown(mdFile, results)
		mdFile.Close()
		fmt.Fprintf(os.Stderr, "Markdown written to: %s\n", mdPath)
	}

	totalBytes := 0
	for _, r := range results {
		totalBytes += r.Bytes
	}
	fmt.Printf("\n=== SUMMARY ===\n")
	fmt.Printf("Cases:       %d\n", len(results))
	fmt.Printf("Input total: %d bytes\n", totalBytes)
	fmt.Printf("Mismatches:  %d\n", mismatches)

	if mismatches > 0 {
		logger.Levelf(log.Error, "streaming decode differs from buffered decode in %d runs", mismatches)
		os.Exit(1)
	}
}

// readCase reads a case file, decompressing it if needed.
func readCase(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	rc, _, err := stream.Decompress(f)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

func runCase(name string, data []byte) CaseResult {
	opts := bencode.DefaultDecodeOptions()
	opts.Digest = stream.SHA1Digest

	var ref *bencode.Result
	start := time.Now()
	for i := 0; i < rounds; i++ {
		ref, _ = bencode.DecodeAll(stream.NewBytesSource(data), opts)
	}
	want := snapshot(ref)

	r := CaseResult{
		Name:   name,
		Bytes:  len(data),
		Values: len(ref.Values),
		Diags:  len(ref.Diagnostics) + ref.Dropped,
		Modes: []ModeResult{{
			Duration: time.Since(start) / rounds,
			Match:    true,
		}},
	}

	for _, size := range bufferSizes {
		var res *bencode.Result
		var src *stream.Source
		start := time.Now()
		for i := 0; i < rounds; i++ {
			src = stream.NewSource(bytes.NewReader(data), stream.WithBufferSize(size))
			var err error
			res, err = bencode.DecodeAll(src, opts)
			if err != nil {
				logger.Levelf(log.Error, "%s at buffer %d: %v", name, size, err)
			}
		}

		m := ModeResult{
			Buffer:   size,
			Duration: time.Since(start) / rounds,
			Refills:  src.Refills(),
			Match:    true,
		}
		if diff := cmp.Diff(want, snapshot(res)); diff != "" {
			logger.Levelf(log.Error, "%s at buffer %d differs (-buffered +streamed):\n%s", name, size, diff)
			m.Match = false
		}
		r.Modes = append(r.Modes, m)
	}
	return r
}

// snapshot flattens a Result into comparable plain values, digests included.
func snapshot(res *bencode.Result) []any {
	out := make([]any, 0, len(res.Values)+1)
	for _, v := range res.Values {
		out = append(out, v.ToAny(), digestOf(v))
	}
	return append(out, res.Diagnostics)
}

func digestOf(v *bencode.Value) string {
	return stream.HashToHex(v.Get(bencode.DefaultDigestKey).Digest())
}

func throughput(n int, d time.Duration) float64 {
	if d <= 0 {
		return 0
	}
	return float64(n) / d.Seconds() / (1 << 20)
}

func modeName(m ModeResult) string {
	if m.Buffer == 0 {
		return "buffered"
	}
	return fmt.Sprintf("stream/%d", m.Buffer)
}

func writeCSV(w io.Writer, results []CaseResult) {
	fmt.Fprintln(w, "name,bytes,values,diagnostics,mode,ns,mb_per_s,refills,match")
	for _, r := range results {
		for _, m := range r.Modes {
			fmt.Fprintf(w, "%s,%d,%d,%d,%s,%d,%.2f,%d,%t\n",
				r.Name, r.Bytes, r.Values, r.Diags, modeName(m),
				m.Duration.Nanoseconds(), throughput(r.Bytes, m.Duration), m.Refills, m.Match)
		}
	}
}

func writeMarkdown(w io.Writer, results []CaseResult) {
	fmt.Fprintf(w, "# bencode Benchmark Results\n\n")
	fmt.Fprintf(w, "**Date:** %s  \n", time.Now().Format("2006-01-02"))
	fmt.Fprintf(w, "**Cases:** %d  \n", len(results))
	fmt.Fprintf(w, "**Rounds:** %d per mode  \n\n", rounds)

	fmt.Fprintf(w, "## Detailed Results\n\n")
	fmt.Fprintf(w, "| Case | Bytes | Mode | MB/s | Refills | Match |\n")
	fmt.Fprintf(w, "|------|-------|------|------|---------|-------|\n")
	for _, r := range results {
		for _, m := range r.Modes {
			match := "yes"
			if !m.Match {
				match = "**NO**"
			}
			fmt.Fprintf(w, "| %s | %d | %s | %.2f | %d | %s |\n",
				truncateName(r.Name, 25), r.Bytes, modeName(m),
				throughput(r.Bytes, m.Duration), m.Refills, match)
		}
	}

	fmt.Fprintf(w, "\n## Methodology\n\n")
	fmt.Fprintf(w, "- **buffered:** whole input in memory via `stream.NewBytesSource`\n")
	fmt.Fprintf(w, "- **stream/N:** `stream.NewSource` over a `bytes.Reader` refilling N bytes at a time\n")
	fmt.Fprintf(w, "- **Match:** decoded values, info digests and diagnostics equal the buffered decode\n")
}

func truncateName(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}

func findTestdata() string {
	paths := []string{
		"testdata/bench",
		"../testdata/bench",
		"../../testdata/bench",
	}

	for _, p := range paths {
		if st, err := os.Stat(p); err == nil && st.IsDir() {
			return p
		}
	}

	return ""
}
