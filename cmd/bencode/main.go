// bencode - bencode decoder CLI tool
//
// Usage:
//
//	bencode dump [options] [file]     Print the decoded tree
//	bencode json [options] [file]     Convert every top-level value to JSON
//	bencode tokens [options] [file]   Print the lexer token stream
//	bencode digest [options] [file]   Print the info-hash of each torrent
//	bencode version                   Print version info
//
// Gzip and zstd input is decompressed transparently.
// If no file is given (or "-"), reads from stdin.
package main

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/anacrolix/log"
	"github.com/bradfitz/iter"
	"github.com/huandu/xstrings"

	"github.com/Neumenon/bencode/bencode"
	"github.com/Neumenon/bencode/stream"
)

const libVersion = "0.1.0"

// Byte strings longer than this are truncated in dump output.
const maxDumpRunes = 72

var logger = log.Default.WithNames("bencode")

type options struct {
	bufSize  int
	timeout  time.Duration
	strict   bool
	maxDepth int
	digest   string
	key      string
	expect   []byte
	verbose  bool
	file     string
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cmd := os.Args[1]
	switch cmd {
	case "version", "-v", "--version":
		fmt.Printf("bencode %s\n", libVersion)
		return
	case "help", "-h", "--help":
		printUsage()
		return
	case "dump", "json", "tokens", "digest":
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", cmd)
		printUsage()
		os.Exit(1)
	}

	opts := parseArgs(os.Args[2:])
	os.Exit(run(cmd, opts))
}

func parseArgs(args []string) options {
	opts := options{
		bufSize:  stream.DefaultBufferSize,
		maxDepth: bencode.DefaultMaxDepth,
		digest:   "sha1",
		key:      bencode.DefaultDigestKey,
	}
	for _, arg := range args {
		switch {
		case arg == "--strict":
			opts.strict = true
		case arg == "--verbose":
			opts.verbose = true
		case strings.HasPrefix(arg, "--buffer="):
			n, err := parseIntArg(arg, "--buffer=")
			if err != nil || n <= 0 {
				fatal("invalid %s", arg)
			}
			opts.bufSize = n
		case strings.HasPrefix(arg, "--max-depth="):
			n, err := parseIntArg(arg, "--max-depth=")
			if err != nil || n <= 0 {
				fatal("invalid %s", arg)
			}
			opts.maxDepth = n
		case strings.HasPrefix(arg, "--timeout="):
			d, err := time.ParseDuration(strings.TrimPrefix(arg, "--timeout="))
			if err != nil {
				fatal("invalid %s: %v", arg, err)
			}
			opts.timeout = d
		case strings.HasPrefix(arg, "--digest="):
			opts.digest = strings.TrimPrefix(arg, "--digest=")
			if _, ok := stream.DigestByName(opts.digest); !ok {
				fatal("unknown digest %q (have %s)", opts.digest, strings.Join(stream.DigestNames(), ", "))
			}
		case strings.HasPrefix(arg, "--key="):
			opts.key = strings.TrimPrefix(arg, "--key=")
		case strings.HasPrefix(arg, "--expect="):
			h, ok := stream.HexToHash(strings.TrimPrefix(arg, "--expect="))
			if !ok || len(h) == 0 {
				fatal("invalid %s: want a hex digest", arg)
			}
			opts.expect = h
		case arg == "-":
			opts.file = ""
		case strings.HasPrefix(arg, "-"):
			fatal("unknown option: %s", arg)
		default:
			opts.file = arg
		}
	}
	return opts
}

func printUsage() {
	fmt.Fprint(os.Stderr, `bencode - bencode decoder CLI tool

Usage:
  bencode dump [options] [file]     Print the decoded tree
  bencode json [options] [file]     Convert every top-level value to JSON
  bencode tokens [options] [file]   Print the lexer token stream
  bencode digest [options] [file]   Print the info-hash of each torrent
  bencode version                   Print version info

Options:
  --buffer=N          Refill chunk size in bytes (default: 4096)
  --timeout=DUR       Bound each read when the input supports deadlines
  --strict            Report non-canonical encodings
  --max-depth=N       Maximum nesting depth (default: 512)
  --digest=NAME       Digest of the --key value: sha1, sha256, crc32 (default: sha1)
  --key=NAME          Top-level key to digest (default: info)
  --expect=HEX        digest: fail unless every digest equals HEX
  --verbose           Log input details

Gzip and zstd input is decompressed transparently.
If no file is given, reads from stdin.

Examples:
  echo -n 'd3:cow3:mooe' | bencode dump
  # Output:
  # DICTIONARY:
  #   key cow
  #   BYTESTRING = moo
  # END_DICTIONARY

  bencode digest ubuntu.torrent
  bencode digest --expect=5a8ce26e8a19a877d8ccc927fcc18e34e1f5ff67 ubuntu.torrent
  bencode json --digest=sha256 ubuntu.torrent.zst
`)
}

// run executes cmd and returns the process exit code.
func run(cmd string, opts options) int {
	src, closeFn, err := openInput(opts)
	if err != nil {
		logger.Levelf(log.Error, "%v", err)
		return 1
	}
	defer closeFn()

	if cmd == "tokens" {
		return cmdTokens(src, opts)
	}

	decOpts := bencode.DefaultDecodeOptions()
	decOpts.Strict = opts.strict
	decOpts.MaxDepth = opts.maxDepth
	decOpts.DigestKey = opts.key
	decOpts.Digest, _ = stream.DigestByName(opts.digest)

	res, err := bencode.DecodeAll(src, decOpts)
	if err != nil {
		logger.Levelf(log.Error, "%v", err)
		return 1
	}
	if opts.verbose {
		logger.Levelf(log.Info, "decoded %d values from %d bytes in %d reads",
			len(res.Values), src.Offset(), src.Refills())
	}
	if res.HasErrors() {
		reportDiagnostics(res)
		return 1
	}

	switch cmd {
	case "dump":
		for _, v := range res.Values {
			printValue(os.Stdout, v, 0)
		}
	case "json":
		return cmdJSON(res)
	case "digest":
		return cmdDigest(os.Stdout, res, opts)
	}
	return 0
}

// openInput returns the byte source for opts.file, or stdin.
func openInput(opts options) (*stream.Source, func(), error) {
	srcOpts := []stream.SourceOption{
		stream.WithBufferSize(opts.bufSize),
		stream.WithReadTimeout(opts.timeout),
	}

	if opts.file != "" {
		f, err := stream.Open(opts.file, srcOpts...)
		if err != nil {
			return nil, nil, err
		}
		if opts.verbose {
			logger.Levelf(log.Info, "opened %s (compression: %s)", f.Name(), f.Compression())
		}
		return f.Source, func() {
			if err := f.Close(); err != nil {
				logger.Levelf(log.Warning, "close %s: %v", f.Name(), err)
			}
		}, nil
	}

	rc, c, err := stream.Decompress(os.Stdin)
	if err != nil {
		return nil, nil, err
	}
	if opts.verbose {
		logger.Levelf(log.Info, "reading stdin (compression: %s)", c)
	}
	return stream.NewSource(rc, srcOpts...), func() { rc.Close() }, nil
}

func reportDiagnostics(res *bencode.Result) {
	logger.Levelf(log.Error, "parser encountered %d errors:", len(res.Diagnostics)+res.Dropped)
	for _, d := range res.Diagnostics {
		logger.Levelf(log.Error, "%v", d)
	}
	if res.Dropped > 0 {
		logger.Levelf(log.Error, "... %d more not shown", res.Dropped)
	}
}

// printValue writes v in the indented dump format.
func printValue(w io.Writer, v *bencode.Value, indent int) {
	writeIndent(w, indent)
	switch v.Kind() {
	case bencode.KindInteger:
		n, _ := v.AsInt()
		fmt.Fprintf(w, "INT = %d\n", n)
	case bencode.KindByteString:
		b, _ := v.AsBytes()
		fmt.Fprintf(w, "BYTESTRING = %s\n", displayBytes(b))
	case bencode.KindList:
		fmt.Fprintln(w, "LIST:")
		elems, _ := v.AsList()
		for _, e := range elems {
			printValue(w, e, indent+2)
		}
		writeIndent(w, indent)
		fmt.Fprintln(w, "END_LIST")
	case bencode.KindDictionary:
		fmt.Fprintln(w, "DICTIONARY:")
		d, _ := v.AsDict()
		d.Range(func(key []byte, e *bencode.Value) bool {
			writeIndent(w, indent+2)
			fmt.Fprintf(w, "key %s\n", displayBytes(key))
			printValue(w, e, indent+2)
			return true
		})
		writeIndent(w, indent)
		fmt.Fprintln(w, "END_DICTIONARY")
	default:
		fmt.Fprintln(w, "ERROR")
	}
	if d := v.Digest(); d != nil {
		writeIndent(w, indent)
		fmt.Fprintf(w, "DIGEST = %s\n", stream.HashToHex(d))
	}
}

func writeIndent(w io.Writer, n int) {
	for range iter.N(n) {
		io.WriteString(w, " ")
	}
}

// displayBytes renders text as-is and binary data as hex, truncated.
func displayBytes(b []byte) string {
	if !utf8.Valid(b) {
		s := hex.EncodeToString(b)
		if len(s) > maxDumpRunes {
			return fmt.Sprintf("0x%s... (%d bytes)", s[:maxDumpRunes], len(b))
		}
		return "0x" + s
	}
	s := string(b)
	if n := xstrings.Len(s); n > maxDumpRunes {
		return fmt.Sprintf("%s... (%d chars)", xstrings.Slice(s, 0, maxDumpRunes), n)
	}
	return s
}

// cmdJSON prints each top-level value as indented JSON.
func cmdJSON(res *bencode.Result) int {
	for _, v := range res.Values {
		out, err := bencode.ToJSONIndent(v, "", "  ")
		if err != nil {
			logger.Levelf(log.Error, "convert to JSON: %v", err)
			return 1
		}
		fmt.Println(string(out))
	}
	return 0
}

// cmdDigest prints the digest of the configured key of each top-level
// dictionary, checking it against opts.expect when set.
func cmdDigest(w io.Writer, res *bencode.Result, opts options) int {
	name := opts.file
	if name == "" {
		name = "-"
	}

	found, mismatches := 0, 0
	for i, v := range res.Values {
		d := v.Get(opts.key).Digest()
		if d == nil {
			logger.Levelf(log.Warning, "value %d: no %q dictionary entry", i, opts.key)
			continue
		}
		fmt.Fprintf(w, "%s  %s\n", stream.HashToHex(d), name)
		found++
		if opts.expect != nil && !bytes.Equal(d, opts.expect) {
			logger.Levelf(log.Error, "value %d: digest %s, expected %s", i, stream.HashToHex(d), stream.HashToHex(opts.expect))
			mismatches++
		}
	}
	if found == 0 || mismatches > 0 {
		return 1
	}
	return 0
}

// cmdTokens prints the raw token stream with offsets.
func cmdTokens(src *stream.Source, opts options) int {
	l := bencode.NewLexer(src, bencode.DefaultLexerOptions())
	illegal := 0
	for {
		tok := l.NextToken()
		fmt.Printf("%8d  %s\n", tok.Pos, tok)
		if tok.Type == bencode.TokenIllegal {
			illegal++
		}
		if tok.Type == bencode.TokenEOF {
			break
		}
	}
	if err := l.Err(); err != nil {
		logger.Levelf(log.Error, "%v", err)
		return 1
	}
	if opts.verbose {
		logger.Levelf(log.Info, "%d bytes, %d illegal tokens", src.Offset(), illegal)
	}
	if illegal > 0 {
		return 1
	}
	return 0
}

func fatal(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "bencode: "+format+"\n", args...)
	os.Exit(1)
}

// parseIntArg extracts an integer from a flag like "--buffer=4096"
func parseIntArg(arg, prefix string) (int, error) {
	return strconv.Atoi(strings.TrimPrefix(arg, prefix))
}
