// internal/auth/token_test.go
package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHashTokenDeterministic(t *testing.T) {
	a := HashToken([]byte("session-token"))
	b := HashToken([]byte("session-token"))
	assert.Equal(t, a, b)
}

func TestHashTokenDistinguishesTokens(t *testing.T) {
	a := HashToken([]byte("token-one"))
	b := HashToken([]byte("token-two"))
	assert.NotEqual(t, a, b)
}

func TestHashTokenShape(t *testing.T) {
	h := HashToken([]byte("anything"))
	assert.Len(t, h, 64) // 32-byte key, hex encoded
	for _, r := range h {
		assert.Contains(t, "0123456789abcdef", string(r))
	}
}

func TestHashTokenEmptyInput(t *testing.T) {
	h := HashToken(nil)
	assert.Len(t, h, 64)
	assert.NotEqual(t, HashToken([]byte("x")), h)
}
