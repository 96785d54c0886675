package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"fmt"

	"cipherchat/internal/common"
)

// GenerateGroupKey returns a fresh random 256-bit symmetric key, independent
// of any member's identity. The same key material is wrapped once per member;
// no plaintext copy is ever persisted.
func GenerateGroupKey() ([]byte, error) {
	key := make([]byte, symmetricKeySize)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrCryptoUnavailable, err)
	}
	return key, nil
}

// EncryptGroupKey wraps raw group-key material under one member's public key.
// One-shot key transport: no IV at this layer.
func EncryptGroupKey(groupKey []byte, memberPublicKey string) (string, error) {
	wrapped, err := wrapKey(groupKey, memberPublicKey)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(wrapped), nil
}

// DecryptGroupKey unwraps a member's copy of the group key with their private
// key. All members' copies decrypt to identical key material.
func DecryptGroupKey(wrapped string, memberPrivateKey []byte) ([]byte, error) {
	raw, err := base64.StdEncoding.DecodeString(wrapped)
	if err != nil {
		return nil, fmt.Errorf("%w: wrapped key is not valid base64", common.ErrInvalidFormat)
	}
	return unwrapKey(raw, memberPrivateKey)
}

// EncryptWithGroupKey seals plaintext under the shared group key with a fresh
// IV. One ciphertext serves all members; there is no per-recipient wrapping.
func EncryptWithGroupKey(plaintext string, groupKey []byte) (*Envelope, error) {
	iv := make([]byte, gcmNonceSize)
	if _, err := rand.Read(iv); err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrCryptoUnavailable, err)
	}

	block, err := aes.NewCipher(groupKey)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrCryptoUnavailable, err)
	}
	aesgcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrCryptoUnavailable, err)
	}
	ciphertext := aesgcm.Seal(nil, iv, []byte(plaintext), nil)

	return &Envelope{
		EncryptedContent: base64.StdEncoding.EncodeToString(ciphertext),
		IV:               base64.StdEncoding.EncodeToString(iv),
	}, nil
}

// DecryptWithGroupKey is the inverse of EncryptWithGroupKey. Failure handling
// matches DecryptMessage: format errors and decryption failures are distinct,
// both degrade to a placeholder at the caller.
func DecryptWithGroupKey(encryptedContent, iv string, groupKey []byte) (string, error) {
	ciphertext, err := base64.StdEncoding.DecodeString(encryptedContent)
	if err != nil {
		return "", fmt.Errorf("%w: content is not valid base64", common.ErrInvalidFormat)
	}
	nonce, err := base64.StdEncoding.DecodeString(iv)
	if err != nil {
		return "", fmt.Errorf("%w: iv is not valid base64", common.ErrInvalidFormat)
	}
	plaintext, err := openSymmetric(ciphertext, nonce, groupKey)
	if err != nil {
		return "", err
	}
	return string(plaintext), nil
}
