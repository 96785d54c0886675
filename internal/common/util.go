package common

import (
	"crypto/rand"
	"encoding/hex"
	"runtime"
)

// GenerateRandByteArray returns size cryptographically random bytes.
// It panics if the platform RNG is unavailable; callers that need a
// recoverable error should use crypto/rand directly.
func GenerateRandByteArray(size int) []byte {
	buf := make([]byte, size)
	if _, err := rand.Read(buf); err != nil {
		panic(err)
	}
	return buf
}

// MakeRandHexString returns a random hex string encoding size bytes of entropy.
func MakeRandHexString(size int) (string, error) {
	buf := make([]byte, size)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

// WipeByteArray zeroes the buffer in place. Best effort: the noinline hint and
// KeepAlive reduce the chance of the compiler eliding the writes.
//
//go:noinline
func WipeByteArray(b []byte) {
	for i := range b {
		b[i] = 0
	}
	runtime.KeepAlive(&b)
}
