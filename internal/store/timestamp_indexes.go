package store

import (
	"fmt"
	"time"
)

// timestampLen is the fixed width of sortableTimestamp output:
// 2006-01-02T15:04:05.NNNNNNNNNZ.
const timestampLen = 30

// sortableTimestamp formats t so that lexicographic order matches time order.
// Nanoseconds are always nine digits, unlike time.RFC3339Nano which trims zeros.
func sortableTimestamp(t time.Time) string {
	t = t.UTC()
	return t.Format("2006-01-02T15:04:05") + fmt.Sprintf(".%09dZ", t.Nanosecond())
}

// timestampIndexID extracts the entity id from an index key laid out as
// {prefix}{timestamp}:{id}.
func timestampIndexID(key []byte, prefix string) (string, error) {
	if len(key) < len(prefix)+timestampLen+2 || string(key[:len(prefix)]) != prefix {
		return "", fmt.Errorf("invalid timestamp index key: %q", key)
	}
	rest := key[len(prefix)+timestampLen:]
	if rest[0] != ':' {
		return "", fmt.Errorf("invalid timestamp index key: %q", key)
	}
	return string(rest[1:]), nil
}
