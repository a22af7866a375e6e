package registry

import (
	"fmt"
	"hash/crc32"
	"hash/fnv"
	"strings"

	"github.com/cespare/xxhash/v2"

	apperrors "github.com/zzenonn/talentshard/internal/errors"
)

// HashAlgorithm is a stable string hash used for hash-based shard resolution.
// All variants are platform independent and stable across restarts.
type HashAlgorithm int

const (
	HashFNV1a HashAlgorithm = iota
	HashXXHash
	HashCRC32
)

// ParseHashAlgorithm maps a configured algorithm name to a HashAlgorithm.
func ParseHashAlgorithm(name string) (HashAlgorithm, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "fnv1a", "fnv-1a", "fnv":
		return HashFNV1a, nil
	case "xxhash", "xxh64":
		return HashXXHash, nil
	case "crc32":
		return HashCRC32, nil
	default:
		return 0, fmt.Errorf("%w: %q", apperrors.ErrUnsupportedHashAlgorithm, name)
	}
}

func (a HashAlgorithm) String() string {
	switch a {
	case HashFNV1a:
		return "fnv1a"
	case HashXXHash:
		return "xxhash"
	case HashCRC32:
		return "crc32"
	default:
		return fmt.Sprintf("hash(%d)", int(a))
	}
}

// Sum64 hashes key to a non-negative integer.
func (a HashAlgorithm) Sum64(key string) uint64 {
	switch a {
	case HashXXHash:
		return xxhash.Sum64String(key)
	case HashCRC32:
		return uint64(crc32.ChecksumIEEE([]byte(key)))
	default:
		h := fnv.New64a()
		h.Write([]byte(key))
		return h.Sum64()
	}
}
