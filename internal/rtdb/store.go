package rtdb

import (
	"context"
	"sort"
	"strconv"
	"strings"
)

// Store is the subset of realtime database operations the dashboard uses.
// Every read decodes the node's JSON into v; callers that need to inspect
// the raw shape pass a *json.RawMessage.
type Store interface {
	// Get reads the node at path. An absent node decodes as JSON null.
	Get(ctx context.Context, path string, v any) error

	// LastByKey reads the last n children of path ordered by key
	// (orderByKey().limitToLast(n)).
	LastByKey(ctx context.Context, path string, n int, v any) error

	// Push appends v under path with a generated, time-ordered key and
	// returns that key.
	Push(ctx context.Context, path string, v any) (string, error)

	// Delete removes the node at path. Deleting an absent node is not an error.
	Delete(ctx context.Context, path string) error
}

// Join builds a store path from segments, dropping empty ones.
func Join(segments ...string) string {
	return "/" + strings.Join(splitPath(strings.Join(segments, "/")), "/")
}

// ValidKey reports whether k can be used as a single path segment.
// Keys must be non-empty, at most 768 bytes, and free of . $ # [ ] / and
// ASCII control characters.
func ValidKey(k string) bool {
	if k == "" || len(k) > 768 {
		return false
	}
	for i := 0; i < len(k); i++ {
		c := k[i]
		if c < 0x20 || c == 0x7f {
			return false
		}
		switch c {
		case '.', '$', '#', '[', ']', '/':
			return false
		}
	}
	return true
}

// splitPath normalizes "/a//b/" into ["a", "b"]. The root is an empty slice.
func splitPath(path string) []string {
	parts := strings.Split(path, "/")
	out := parts[:0]
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// SortKeys sorts keys in the database's key order.
func SortKeys(keys []string) {
	sort.Slice(keys, func(i, j int) bool { return keyLess(keys[i], keys[j]) })
}

// keyLess orders keys the way the realtime database does: keys that parse as
// 32-bit integers come first in numeric order, then all other keys in
// lexicographic order.
func keyLess(a, b string) bool {
	ai, aInt := intKey(a)
	bi, bInt := intKey(b)
	switch {
	case aInt && bInt:
		if ai != bi {
			return ai < bi
		}
		return a < b
	case aInt:
		return true
	case bInt:
		return false
	default:
		return a < b
	}
}

func intKey(k string) (int64, bool) {
	// "01" and "+1" are string keys, not integers.
	if k == "" || (len(k) > 1 && k[0] == '0') || k[0] == '+' || strings.HasPrefix(k, "-0") {
		return 0, false
	}
	n, err := strconv.ParseInt(k, 10, 32)
	if err != nil {
		return 0, false
	}
	return n, true
}
