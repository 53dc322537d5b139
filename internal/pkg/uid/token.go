package uid

import (
	"crypto/rand"
	"encoding/base64"
)

// DefaultTokenBytes is the entropy of a session token.
const DefaultTokenBytes = 32

// Token generates unguessable URL-safe strings for bearer credentials.
type Token struct {
	size int
}

// NewToken returns a Token generator drawing size random bytes per token.
func NewToken(size int) *Token {
	if size < 16 {
		size = DefaultTokenBytes
	}
	return &Token{size: size}
}

// Generate returns a base64url (unpadded) token.
// crypto/rand.Read never returns an error on supported platforms.
func (t *Token) Generate() string {
	b := make([]byte, t.size)
	_, _ = rand.Read(b)
	return base64.RawURLEncoding.EncodeToString(b)
}
