package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"strings"

	"cipherchat/internal/common"
)

const (
	symmetricKeySize = 32
	gcmNonceSize     = 12

	// payloadDelimiter joins the content ciphertext and the wrapped one-time
	// key into the single stored string. Both halves are base64, so the
	// delimiter byte cannot occur inside either half. Parsing splits on the
	// first occurrence only.
	payloadDelimiter = "|"
)

// Envelope is the encrypted form of one direct message: the stored payload
// (ciphertext + wrapped key) and the IV, both ready for persistence.
type Envelope struct {
	EncryptedContent string
	IV               string
}

// EncryptMessage seals plaintext for the holder of recipientPublicKey using
// a hybrid envelope: a fresh random AES-256 key encrypts the content
// (AES-GCM, fresh IV), and the key itself is wrapped under the recipient's
// public key. The one-time key is wiped before returning.
func EncryptMessage(plaintext string, recipientPublicKey string) (*Envelope, error) {
	key := make([]byte, symmetricKeySize)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrCryptoUnavailable, err)
	}
	defer common.WipeByteArray(key)

	iv := make([]byte, gcmNonceSize)
	if _, err := rand.Read(iv); err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrCryptoUnavailable, err)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrCryptoUnavailable, err)
	}
	aesgcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrCryptoUnavailable, err)
	}
	ciphertext := aesgcm.Seal(nil, iv, []byte(plaintext), nil)

	wrappedKey, err := wrapKey(key, recipientPublicKey)
	if err != nil {
		return nil, err
	}

	stored := base64.StdEncoding.EncodeToString(ciphertext) +
		payloadDelimiter +
		base64.StdEncoding.EncodeToString(wrappedKey)

	return &Envelope{
		EncryptedContent: stored,
		IV:               base64.StdEncoding.EncodeToString(iv),
	}, nil
}

// splitPayload separates a stored payload into its ciphertext and wrapped-key
// halves. A missing delimiter or an empty half is a format error, not a
// decryption failure: the row was stored wrong, no key will ever open it.
func splitPayload(stored string) (content, wrappedKey []byte, err error) {
	idx := strings.Index(stored, payloadDelimiter)
	if idx < 0 {
		return nil, nil, fmt.Errorf("%w: missing delimiter", common.ErrInvalidFormat)
	}
	ctB64, keyB64 := stored[:idx], stored[idx+1:]
	if ctB64 == "" || keyB64 == "" {
		return nil, nil, fmt.Errorf("%w: empty payload half", common.ErrInvalidFormat)
	}
	content, err = base64.StdEncoding.DecodeString(ctB64)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: content is not valid base64", common.ErrInvalidFormat)
	}
	wrappedKey, err = base64.StdEncoding.DecodeString(keyB64)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: wrapped key is not valid base64", common.ErrInvalidFormat)
	}
	return content, wrappedKey, nil
}

// DecryptMessage reverses EncryptMessage: it unwraps the one-time key with
// privateKey and decrypts the content with it. Malformed stored strings
// return common.ErrInvalidFormat; wrong keys and corrupted ciphertext return
// common.ErrDecryptionFailed. Callers render a placeholder on either, never
// abort a whole conversation load.
func DecryptMessage(encryptedContent, iv string, privateKey []byte) (string, error) {
	ciphertext, wrappedKey, err := splitPayload(encryptedContent)
	if err != nil {
		return "", err
	}

	nonce, err := base64.StdEncoding.DecodeString(iv)
	if err != nil {
		return "", fmt.Errorf("%w: iv is not valid base64", common.ErrInvalidFormat)
	}

	key, err := unwrapKey(wrappedKey, privateKey)
	if err != nil {
		return "", err
	}
	defer common.WipeByteArray(key)

	plaintext, err := openSymmetric(ciphertext, nonce, key)
	if err != nil {
		return "", err
	}
	return string(plaintext), nil
}

func openSymmetric(ciphertext, nonce, key []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrDecryptionFailed, err)
	}
	aesgcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrDecryptionFailed, err)
	}
	if len(nonce) != aesgcm.NonceSize() {
		return nil, fmt.Errorf("%w: bad iv size %d", common.ErrInvalidFormat, len(nonce))
	}
	plaintext, err := aesgcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrDecryptionFailed, err)
	}
	return plaintext, nil
}
