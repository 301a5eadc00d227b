package wallet

import (
	"encoding/hex"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testKeyHex = "4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318"

func TestEncryptDecryptRoundTrip(t *testing.T) {
	blob, err := EncryptKey(testKeyHex, "passw0rd")
	require.NoError(t, err)

	got, err := DecryptKey(blob, "passw0rd")
	require.NoError(t, err)
	assert.Equal(t, testKeyHex, got)
}

func TestDecryptWrongPassword(t *testing.T) {
	blob, err := EncryptKey(testKeyHex, "passw0rd")
	require.NoError(t, err)

	_, err = DecryptKey(blob, "wrong")
	assert.Error(t, err)
}

func TestEncryptRejectsBadInput(t *testing.T) {
	_, err := EncryptKey(testKeyHex, "")
	assert.Error(t, err)

	_, err = EncryptKey("not-hex", "passw0rd")
	assert.Error(t, err)

	_, err = EncryptKey("abcd", "passw0rd")
	assert.Error(t, err, "short keys must be rejected")
}

func TestLoadKeyPrecedence(t *testing.T) {
	// Raw key wins, 0x prefix stripped.
	got, err := LoadKey(KeyConfig{RawPrivateKey: "0x" + testKeyHex})
	require.NoError(t, err)
	assert.Equal(t, testKeyHex, got)

	// Encrypted file fallback.
	blob, err := EncryptKey(testKeyHex, "passw0rd")
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "operator.key.json")
	require.NoError(t, os.WriteFile(path, blob, 0o600))

	got, err = LoadKey(KeyConfig{EncryptedKeyPath: path, KeyPassword: "passw0rd"})
	require.NoError(t, err)
	assert.Equal(t, testKeyHex, got)

	// Nothing configured.
	_, err = LoadKey(KeyConfig{})
	assert.Error(t, err)
}

func TestDeriveAddress(t *testing.T) {
	// Known vector for the test key.
	addr, err := DeriveAddress(testKeyHex)
	require.NoError(t, err)
	assert.Equal(t, "0x9d8A62f656a8d1615C1294fd71e9CFb3E4855A4F", addr)

	withPrefix, err := DeriveAddress("0x" + testKeyHex)
	require.NoError(t, err)
	assert.Equal(t, addr, withPrefix)
}

func TestGenerate(t *testing.T) {
	priv, addr, err := Generate()
	require.NoError(t, err)

	raw, err := hex.DecodeString(priv)
	require.NoError(t, err)
	assert.Len(t, raw, 32)
	assert.True(t, ValidAddress(addr))

	// The address must derive from the returned key.
	derived, err := DeriveAddress(priv)
	require.NoError(t, err)
	assert.Equal(t, addr, derived)

	// Two calls must not collide.
	_, addr2, err := Generate()
	require.NoError(t, err)
	assert.NotEqual(t, addr, addr2)
}

func TestValidAddress(t *testing.T) {
	assert.True(t, ValidAddress("0x9d8A62f656a8d1615C1294fd71e9CFb3E4855A4F"))
	assert.True(t, ValidAddress("9d8a62f656a8d1615c1294fd71e9cfb3e4855a4f"))
	assert.False(t, ValidAddress("0x1234"))
	assert.False(t, ValidAddress("hello"))
}
