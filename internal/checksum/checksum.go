// Package checksum computes the content digests used for change detection
// and optimistic concurrency.
package checksum

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Sum returns the hex-encoded SHA-256 digest of data.
func Sum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// ETag quotes sum for an HTTP ETag header.
func ETag(sum string) string {
	return `"` + sum + `"`
}

// Matches reports whether an If-Match value names the digest of data. The
// value may be quoted or weak; an empty value or "*" matches anything.
func Matches(ifMatch string, data []byte) bool {
	ifMatch = strings.TrimPrefix(strings.TrimSpace(ifMatch), "W/")
	ifMatch = strings.Trim(ifMatch, `"`)
	if ifMatch == "" || ifMatch == "*" {
		return true
	}
	return ifMatch == Sum(data)
}
