// Package bencode decodes bencode, the serialization used by BitTorrent
// metainfo files and tracker responses.
//
// Decoding is split in two stages:
//   - Lexer: turns a byte source into typed tokens (framing)
//   - Parser: recursive descent over tokens into a Value tree (structure)
//
// Both fully-buffered input and streamed input are supported through the
// ByteSource interface, implemented by stream.Source.
//
// # Data Model
//
// Integer:     i42e, i-3e
// Byte string: 4:spam, 0:
// List:        l4:spami3ee
// Dictionary:  d3:cow3:mooe
//
// A stream may hold any number of concatenated top-level values.
//
// # Error Tolerance
//
// Malformed input never aborts the decode:
//   - Illegal tokens become LexError diagnostics
//   - Structural mismatches become ParseError diagnostics
//   - Partially built trees are returned next to the diagnostics
//   - A bad dictionary key skips the rest of that dictionary, so
//     sibling and later top-level values still decode
//
// # Example
//
//	res := bencode.DecodeAllBytes(data)
//	if res.HasErrors() {
//		for _, d := range res.Diagnostics {
//			fmt.Println(d)
//		}
//	}
//	for _, v := range res.Values {
//		fmt.Println(v)
//	}
package bencode
