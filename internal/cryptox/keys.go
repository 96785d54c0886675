// Package cryptox implements the cryptographic primitives of cipherchat:
// user key pairs, the hybrid envelope used for direct messages, and the
// symmetric group-key scheme.
//
// Asymmetric encryption (RSA-OAEP) is reserved for wrapping small symmetric
// keys; bulk message content is always AES-GCM under a fresh random key or
// the shared group key.
package cryptox

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"fmt"

	"cipherchat/internal/common"
)

const rsaKeyBits = 2048

// KeyPair holds one user's asymmetric key pair. PublicKey is the base64
// encoding of the PKIX DER form and is safe to publish; PrivateKey is the
// PKCS#8 DER form and must never leave the owning client unsealed.
type KeyPair struct {
	PublicKey  string
	PrivateKey []byte
}

// GenerateKeyPair produces a fresh RSA-2048 key pair suitable for wrapping
// symmetric keys. Returns common.ErrCryptoUnavailable when the platform RNG
// or key generation fails.
func GenerateKeyPair() (*KeyPair, error) {
	priv, err := rsa.GenerateKey(rand.Reader, rsaKeyBits)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrCryptoUnavailable, err)
	}

	pubDER, err := x509.MarshalPKIXPublicKey(&priv.PublicKey)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrCryptoUnavailable, err)
	}
	privDER, err := x509.MarshalPKCS8PrivateKey(priv)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrCryptoUnavailable, err)
	}

	return &KeyPair{
		PublicKey:  base64.StdEncoding.EncodeToString(pubDER),
		PrivateKey: privDER,
	}, nil
}

// parsePublicKey decodes a published base64(PKIX DER) public key.
func parsePublicKey(pub string) (*rsa.PublicKey, error) {
	der, err := base64.StdEncoding.DecodeString(pub)
	if err != nil {
		return nil, fmt.Errorf("%w: public key is not valid base64", common.ErrInvalidFormat)
	}
	key, err := x509.ParsePKIXPublicKey(der)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrInvalidFormat, err)
	}
	rsaKey, ok := key.(*rsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("%w: public key is not RSA", common.ErrInvalidFormat)
	}
	return rsaKey, nil
}

// parsePrivateKey decodes a PKCS#8 DER private key.
func parsePrivateKey(priv []byte) (*rsa.PrivateKey, error) {
	key, err := x509.ParsePKCS8PrivateKey(priv)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrInvalidFormat, err)
	}
	rsaKey, ok := key.(*rsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("%w: private key is not RSA", common.ErrInvalidFormat)
	}
	return rsaKey, nil
}

// wrapKey encrypts small key material under the recipient's public key.
func wrapKey(material []byte, pub string) ([]byte, error) {
	rsaPub, err := parsePublicKey(pub)
	if err != nil {
		return nil, err
	}
	wrapped, err := rsa.EncryptOAEP(sha256.New(), rand.Reader, rsaPub, material, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrCryptoUnavailable, err)
	}
	return wrapped, nil
}

// unwrapKey decrypts wrapped key material with the holder's private key.
func unwrapKey(wrapped []byte, priv []byte) ([]byte, error) {
	rsaPriv, err := parsePrivateKey(priv)
	if err != nil {
		return nil, err
	}
	material, err := rsa.DecryptOAEP(sha256.New(), rand.Reader, rsaPriv, wrapped, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrDecryptionFailed, err)
	}
	return material, nil
}
