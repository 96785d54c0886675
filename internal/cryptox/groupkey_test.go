package cryptox

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cipherchat/internal/common"
)

func TestGenerateGroupKey_SizeAndEntropy(t *testing.T) {
	a, err := GenerateGroupKey()
	require.NoError(t, err)
	b, err := GenerateGroupKey()
	require.NoError(t, err)

	assert.Len(t, a, 32)
	assert.NotEqual(t, a, b)
}

func TestGroupKey_WrapUnwrapRoundTrip(t *testing.T) {
	kp := genKeyPair(t)

	key, err := GenerateGroupKey()
	require.NoError(t, err)

	wrapped, err := EncryptGroupKey(key, kp.PublicKey)
	require.NoError(t, err)

	got, err := DecryptGroupKey(wrapped, kp.PrivateKey)
	require.NoError(t, err)
	assert.Equal(t, key, got)
}

func TestGroupKey_ConsistentAcrossMembers(t *testing.T) {
	// The creator plus two invitees each get their own wrapped copy; every
	// copy must unwrap to bit-identical key material.
	members := []*KeyPair{genKeyPair(t), genKeyPair(t), genKeyPair(t)}

	key, err := GenerateGroupKey()
	require.NoError(t, err)

	wrappedCopies := make([]string, len(members))
	for i, m := range members {
		wrappedCopies[i], err = EncryptGroupKey(key, m.PublicKey)
		require.NoError(t, err)
	}

	// Wrapped copies are not interchangeable between members...
	_, err = DecryptGroupKey(wrappedCopies[0], members[1].PrivateKey)
	assert.ErrorIs(t, err, common.ErrDecryptionFailed)

	// ...but each decrypts to the same underlying key.
	for i, m := range members {
		got, err := DecryptGroupKey(wrappedCopies[i], m.PrivateKey)
		require.NoError(t, err)
		assert.Equal(t, key, got)
	}
}

func TestEncryptWithGroupKey_RoundTrip(t *testing.T) {
	key, err := GenerateGroupKey()
	require.NoError(t, err)

	env, err := EncryptWithGroupKey("Hi team", key)
	require.NoError(t, err)

	got, err := DecryptWithGroupKey(env.EncryptedContent, env.IV, key)
	require.NoError(t, err)
	assert.Equal(t, "Hi team", got)
}

func TestEncryptWithGroupKey_FreshIVPerMessage(t *testing.T) {
	key, err := GenerateGroupKey()
	require.NoError(t, err)

	a, err := EncryptWithGroupKey("repeat", key)
	require.NoError(t, err)
	b, err := EncryptWithGroupKey("repeat", key)
	require.NoError(t, err)

	assert.NotEqual(t, a.IV, b.IV)
	assert.NotEqual(t, a.EncryptedContent, b.EncryptedContent)
}

func TestDecryptWithGroupKey_WrongKeyFails(t *testing.T) {
	key, err := GenerateGroupKey()
	require.NoError(t, err)
	other, err := GenerateGroupKey()
	require.NoError(t, err)

	env, err := EncryptWithGroupKey("secret", key)
	require.NoError(t, err)

	_, err = DecryptWithGroupKey(env.EncryptedContent, env.IV, other)
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrDecryptionFailed)
}

func TestDecryptWithGroupKey_SharedMessageScenario(t *testing.T) {
	// Admin creates "Team" with members B and C. Both unwrap the same key
	// and read the same ciphertext identically.
	b := genKeyPair(t)
	c := genKeyPair(t)

	key, err := GenerateGroupKey()
	require.NoError(t, err)

	wrappedB, err := EncryptGroupKey(key, b.PublicKey)
	require.NoError(t, err)
	wrappedC, err := EncryptGroupKey(key, c.PublicKey)
	require.NoError(t, err)

	keyB, err := DecryptGroupKey(wrappedB, b.PrivateKey)
	require.NoError(t, err)
	keyC, err := DecryptGroupKey(wrappedC, c.PrivateKey)
	require.NoError(t, err)
	assert.Equal(t, keyB, keyC)

	env, err := EncryptWithGroupKey("Hi team", key)
	require.NoError(t, err)

	gotB, err := DecryptWithGroupKey(env.EncryptedContent, env.IV, keyB)
	require.NoError(t, err)
	gotC, err := DecryptWithGroupKey(env.EncryptedContent, env.IV, keyC)
	require.NoError(t, err)

	assert.Equal(t, "Hi team", gotB)
	assert.Equal(t, gotB, gotC)
}
