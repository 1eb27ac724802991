// Package shortid issues the 8-character public codes used for users and
// articles.
package shortid

import (
	"context"
	"fmt"
	"math/rand/v2"
)

const (
	Alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
	Length   = 8
)

// ExistsFunc reports whether id is already taken in its id space.
type ExistsFunc func(ctx context.Context, id string) (bool, error)

// New draws a code without checking it against any store.
func New() string {
	b := make([]byte, Length)
	for i := range b {
		b[i] = Alphabet[rand.IntN(len(Alphabet))]
	}
	return string(b)
}

// Generate draws codes until exists reports one as free. There is no retry
// limit; the loop only stops early on a store error or a done context.
// The returned code is not reserved.
func Generate(ctx context.Context, exists ExistsFunc) (string, error) {
	const op = "lib.shortid.Generate"

	for {
		if err := ctx.Err(); err != nil {
			return "", fmt.Errorf("%s: %w", op, err)
		}

		id := New()

		taken, err := exists(ctx, id)
		if err != nil {
			return "", fmt.Errorf("%s: %w", op, err)
		}
		if !taken {
			return id, nil
		}
	}
}

// Valid reports whether s has the shape of a generated code.
func Valid(s string) bool {
	if len(s) != Length {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if !('A' <= c && c <= 'Z' || 'a' <= c && c <= 'z' || '0' <= c && c <= '9') {
			return false
		}
	}
	return true
}
