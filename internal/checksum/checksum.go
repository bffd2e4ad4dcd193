// Package checksum fingerprints proposal documents for change detection and
// HTTP optimistic concurrency.
package checksum

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"
)

// Sum returns the hex-encoded SHA-256 digest of data.
func Sum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// ETag formats a digest as a strong entity tag.
func ETag(sum string) string {
	return strconv.Quote(sum)
}

// Normalize strips the quoting and weak prefix a client may send back in
// If-Match, leaving the bare digest.
func Normalize(tag string) string {
	tag = strings.TrimSpace(tag)
	tag = strings.TrimPrefix(tag, "W/")
	return strings.Trim(tag, `"`)
}

// Matches reports whether data still has the digest named by tag. An empty
// tag and "*" match anything.
func Matches(data []byte, tag string) bool {
	tag = Normalize(tag)
	return tag == "" || tag == "*" || Sum(data) == tag
}
