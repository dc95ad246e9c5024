package eventstore

import "fmt"

// Key encoding for cache filenames. The raw played_at string contains ':'
// and '.', which are replaced with '_' to stay filesystem-safe. Both map to
// the same placeholder, so decoding relies on the fixed positions of the
// separators in the source format:
//
//	2025-01-15T23:30:00.123Z  →  2025-01-15T23_30_00_123Z
//
// Within that format the mapping is a bijection; DecodeKey rejects anything
// that does not fit the layout so a collision cannot pass silently.

const (
	minKeyLen = 20 // 2025-01-15T23_30_00Z
	hmSep     = 13 // first ':' position
	msSep     = 16 // second ':' position
	fracSep   = 19 // '.' position, when fractional seconds are present
)

// EncodeKey converts a raw played_at string into a filesystem-safe cache
// key (without extension).
func EncodeKey(playedAt string) string {
	b := []byte(playedAt)
	for i, c := range b {
		if c == ':' || c == '.' {
			b[i] = '_'
		}
	}
	return string(b)
}

// DecodeKey converts a cache key back into the raw played_at string.
// It fails on keys that do not match the source timestamp layout.
func DecodeKey(key string) (string, error) {
	if len(key) < minKeyLen || key[len(key)-1] != 'Z' {
		return "", fmt.Errorf("malformed cache key %q", key)
	}
	if key[hmSep] != '_' || key[msSep] != '_' {
		return "", fmt.Errorf("malformed cache key %q", key)
	}

	b := []byte(key)
	b[hmSep] = ':'
	b[msSep] = ':'
	if len(key) > minKeyLen {
		if key[fracSep] != '_' {
			return "", fmt.Errorf("malformed cache key %q", key)
		}
		b[fracSep] = '.'
	}

	decoded := string(b)
	if _, err := ParsePlayedAt(decoded); err != nil {
		return "", fmt.Errorf("cache key %q does not decode to a timestamp: %w", key, err)
	}
	return decoded, nil
}
