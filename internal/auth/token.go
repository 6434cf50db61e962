// internal/auth/token.go
package auth

import (
	"encoding/hex"
	"os"

	"golang.org/x/crypto/argon2"
)

// params holds the Argon2id parameters used to digest client tokens. Token
// hashes are registry keys, so the salt is a fixed server-side pepper
// rather than per-hash random bytes: the same token must always map to the
// same key.
type params struct {
	memory      uint32
	iterations  uint32
	parallelism uint8
	keyLength   uint32
}

var tokenParams = &params{
	memory:      16 * 1024,
	iterations:  2,
	parallelism: 1,
	keyLength:   32,
}

const defaultPepper = "blob-token-pepper"

// pepper returns the server-wide salt for token hashing. Configurable so
// deployments can invalidate all stored identities at once.
func pepper() []byte {
	if p := os.Getenv("BLOB_TOKEN_PEPPER"); p != "" {
		return []byte(p)
	}
	return []byte(defaultPepper)
}

// HashToken produces the one-way digest of a client's opaque connection
// token. The raw token is never stored; the digest keys the session
// registry and the persisted identity row.
func HashToken(token []byte) string {
	digest := argon2.IDKey(token, pepper(),
		tokenParams.iterations, tokenParams.memory, tokenParams.parallelism, tokenParams.keyLength)
	return hex.EncodeToString(digest)
}
