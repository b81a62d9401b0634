package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// maxLiteralKeyLen is the longest canonical form used verbatim as a key.
// Anything longer is replaced by its SHA-256 digest.
const maxLiteralKeyLen = 64

// Codec derives stable, collision-resistant cache keys from structured
// values. Equal inputs by deep structural equality produce equal keys
// regardless of map iteration or field declaration order.
type Codec struct{}

// NewCodec constructs a key codec.
func NewCodec() *Codec {
	return &Codec{}
}

// GenerateKey returns a deterministic key for data. The input is
// canonicalized by a JSON round-trip (encoding/json emits object keys in
// sorted order); canonical forms longer than 64 bytes collapse to their
// SHA-256 hex digest.
func (c *Codec) GenerateKey(data any) string {
	canonical, err := canonicalize(data)
	if err != nil {
		// Non-serializable inputs degrade to their Go-syntax representation,
		// which is still deterministic for a given value.
		canonical = fmt.Sprintf("%#v", data)
	}

	if len(canonical) <= maxLiteralKeyLen {
		return canonical
	}

	sum := sha256.Sum256([]byte(canonical))
	return hex.EncodeToString(sum[:])
}

func canonicalize(data any) (string, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return "", fmt.Errorf("marshal key input: %w", err)
	}

	// Round-trip through an untyped value so structs and maps with the same
	// logical content canonicalize identically.
	var norm any
	if err := json.Unmarshal(raw, &norm); err != nil {
		return "", fmt.Errorf("normalize key input: %w", err)
	}

	out, err := json.Marshal(norm)
	if err != nil {
		return "", fmt.Errorf("marshal canonical form: %w", err)
	}
	return string(out), nil
}
