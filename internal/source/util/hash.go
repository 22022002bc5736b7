package util

import (
	"crypto/sha1"
	"encoding/hex"
)

// HashString gives a short stable id for strings we can't otherwise key by
// (listing urls, mostly).
func HashString(s string) string {
	sum := sha1.Sum([]byte(s))
	return hex.EncodeToString(sum[:])[:16]
}
