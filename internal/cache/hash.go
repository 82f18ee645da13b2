package cache

import (
	"crypto/sha1"
	"encoding/hex"

	"github.com/cespare/xxhash/v2"
)

// Digest returns the store file name for a key: the hex SHA-1 of the key
// string itself, not of any file content.
func Digest(key string) string {
	sum := sha1.Sum([]byte(key))
	return hex.EncodeToString(sum[:])
}

// Checksum guards an entry payload against partial writes and bit rot.
func Checksum(payload []byte) uint64 {
	return xxhash.Sum64(payload)
}
