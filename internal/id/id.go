// Package id generates the short prefixed identifiers attached to outbound
// requests and API responses.
package id

import (
	"context"
	"fmt"
	"strings"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

// Prefixes in use.
const (
	PrefixRequest = "req"
	PrefixReload  = "reload"
)

// alphabet avoids characters that read ambiguously in logs (0/O, 1/l/I).
const alphabet = "23456789abcdefghijkmnopqrstuvwxyzABCDEFGHJKLMNPQRSTUVWXYZ"

// Size is the length of the random part.
const Size = 16

// Generate returns prefix-<random>, e.g. "req-8fKq2mWzNcX4hT7b".
func Generate(prefix string) (string, error) {
	id, err := gonanoid.Generate(alphabet, Size)
	if err != nil {
		return "", fmt.Errorf("generate nanoid: %w", err)
	}
	return prefix + "-" + id, nil
}

// MustGenerate is like Generate but panics if ID generation fails.
func MustGenerate(prefix string) string {
	id, err := Generate(prefix)
	if err != nil {
		panic(fmt.Sprintf("failed to generate ID: %v", err))
	}
	return id
}

// Request returns a new request id.
func Request() string {
	return MustGenerate(PrefixRequest)
}

type requestKey struct{}

// WithRequest returns a context carrying request id reqID.
func WithRequest(ctx context.Context, reqID string) context.Context {
	return context.WithValue(ctx, requestKey{}, reqID)
}

// RequestFrom returns the request id carried by ctx, if any.
func RequestFrom(ctx context.Context) (string, bool) {
	reqID, ok := ctx.Value(requestKey{}).(string)
	return reqID, ok && reqID != ""
}

// Prefix returns the prefix of a generated id and reports whether the random
// part is well formed.
func Prefix(id string) (string, bool) {
	i := strings.LastIndexByte(id, '-')
	if i <= 0 {
		return "", false
	}
	random := id[i+1:]
	if len(random) != Size {
		return "", false
	}
	for _, r := range random {
		if !strings.ContainsRune(alphabet, r) {
			return "", false
		}
	}
	return id[:i], true
}
