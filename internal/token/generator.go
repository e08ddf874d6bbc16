// Package token issues the opaque, URL-safe bearer tokens that authorize a
// single completion of a delayed transfer.
package token

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"io"
	"regexp"
)

const (
	// DefaultLength is the size of approval-link tokens.
	DefaultLength = 32
	// LongLength is available where more entropy is wanted.
	LongLength = 64
	// MinLength is the shortest string IsValidFormat accepts.
	MinLength = 16
)

var tokenPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// EntropyError reports that the secure random source could not be read.
// It is raised as a panic: there is no weaker fallback.
type EntropyError struct {
	Err error
}

func (e *EntropyError) Error() string {
	return fmt.Sprintf("token: secure random source failed: %v", e.Err)
}

func (e *EntropyError) Unwrap() error { return e.Err }

// Generator draws tokens from a random source. The zero value reads from
// crypto/rand.
type Generator struct {
	source io.Reader
}

// NewGenerator returns a generator backed by crypto/rand.
func NewGenerator() *Generator {
	return &Generator{source: rand.Reader}
}

// Generate returns a token of exactly length characters drawn from
// [A-Za-z0-9_-]. A non-positive length yields DefaultLength.
func (g *Generator) Generate(length int) string {
	if length <= 0 {
		length = DefaultLength
	}

	src := g.source
	if src == nil {
		src = rand.Reader
	}

	// length bytes encode to ceil(4*length/3) characters, never fewer than
	// length, so truncation always yields the exact size.
	buf := make([]byte, length)
	if _, err := io.ReadFull(src, buf); err != nil {
		panic(&EntropyError{Err: err})
	}
	return base64.RawURLEncoding.EncodeToString(buf)[:length]
}

// GenerateLong returns a LongLength token.
func (g *Generator) GenerateLong() string {
	return g.Generate(LongLength)
}

// IsValidFormat is a shape check only: at least MinLength characters, all
// from the URL-safe alphabet. It says nothing about whether the token exists.
func IsValidFormat(token string) bool {
	return len(token) >= MinLength && tokenPattern.MatchString(token)
}
