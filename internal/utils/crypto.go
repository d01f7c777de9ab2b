package utils

import (
	"crypto/rand"
)

// GenerateRandomKey returns 32 bytes of cryptographically random data,
// suitable as an HMAC signing secret.
func GenerateRandomKey() []byte {
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		panic(err)
	}
	return key
}
