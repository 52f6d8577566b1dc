package cache

import (
	"crypto/sha256"
	"encoding/hex"
)

// Key returns the cache key for text embedded by model. Vectors from
// different models never share a key.
func Key(model, text string) string {
	h := sha256.New()
	h.Write([]byte(model))
	h.Write([]byte{0})
	h.Write([]byte(text))
	return hex.EncodeToString(h.Sum(nil))
}
