package stream

import (
	"crypto/sha1"
	"crypto/sha256"
	"encoding/hex"
	"sort"
)

// SHA1Digest computes the BitTorrent v1 info-hash: sha1(raw info dict).
func SHA1Digest(raw []byte) []byte {
	h := sha1.Sum(raw)
	return h[:]
}

// SHA256Digest computes the BitTorrent v2 info-hash: sha256(raw info dict).
func SHA256Digest(raw []byte) []byte {
	h := sha256.Sum256(raw)
	return h[:]
}

var digests = map[string]func([]byte) []byte{
	"sha1":   SHA1Digest,
	"sha256": SHA256Digest,
	"crc32":  CRC32Digest,
}

// DigestByName returns the digest registered under name.
func DigestByName(name string) (func(raw []byte) []byte, bool) {
	fn, ok := digests[name]
	return fn, ok
}

// DigestNames returns the registered digest names, sorted.
func DigestNames() []string {
	names := make([]string, 0, len(digests))
	for name := range digests {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// HashToHex converts a digest to a lowercase hex string.
func HashToHex(h []byte) string {
	return hex.EncodeToString(h)
}

// HexToHash parses a hex string of even length into digest bytes.
func HexToHash(s string) ([]byte, bool) {
	h, err := hex.DecodeString(s)
	if err != nil {
		return nil, false
	}
	return h, true
}
