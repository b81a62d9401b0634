package cache

import "strings"

// matchPattern reports whether key matches pattern. Supported syntax is
// literal text with '*' matching any run of characters, including none.
// An empty pattern matches nothing, which keeps malformed invalidation
// requests from wiping the store.
func matchPattern(pattern, key string) bool {
	if pattern == "" {
		return false
	}
	if !strings.Contains(pattern, "*") {
		return pattern == key
	}

	parts := strings.Split(pattern, "*")

	if !strings.HasPrefix(key, parts[0]) {
		return false
	}
	key = key[len(parts[0]):]

	last := parts[len(parts)-1]
	for _, part := range parts[1 : len(parts)-1] {
		if part == "" {
			continue
		}
		idx := strings.Index(key, part)
		if idx < 0 {
			return false
		}
		key = key[idx+len(part):]
	}

	return strings.HasSuffix(key, last)
}
