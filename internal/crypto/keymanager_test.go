package crypto

import (
	"encoding/hex"
	"os"
	"path/filepath"
	"testing"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func freshKeyHex(t *testing.T) string {
	t.Helper()
	pk, err := ethcrypto.GenerateKey()
	require.NoError(t, err)
	return hex.EncodeToString(ethcrypto.FromECDSA(pk))
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	keyHex := freshKeyHex(t)

	blob, err := EncryptKey(keyHex, "correct horse")
	require.NoError(t, err)

	got, err := DecryptKey(blob, "correct horse")
	require.NoError(t, err)
	assert.Equal(t, keyHex, got)
}

func TestDecryptKey_WrongPassword(t *testing.T) {
	blob, err := EncryptKey(freshKeyHex(t), "right")
	require.NoError(t, err)

	_, err = DecryptKey(blob, "wrong")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "wrong password")
}

func TestEncryptKey_Validation(t *testing.T) {
	_, err := EncryptKey(freshKeyHex(t), "")
	assert.Error(t, err)

	_, err = EncryptKey("not hex", "pw")
	assert.Error(t, err)

	_, err = EncryptKey("abcd", "pw") // too short
	assert.Error(t, err)
}

func TestLoadKey_RawTakesPrecedence(t *testing.T) {
	keyHex := freshKeyHex(t)

	pk, err := LoadKey(KeyConfig{RawPrivateKey: "0x" + keyHex})
	require.NoError(t, err)
	assert.Equal(t, keyHex, hex.EncodeToString(ethcrypto.FromECDSA(pk)))
}

func TestLoadKey_FromEncryptedFile(t *testing.T) {
	keyHex := freshKeyHex(t)

	blob, err := EncryptKey(keyHex, "pw")
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "key.json")
	require.NoError(t, os.WriteFile(path, blob, 0o600))

	pk, err := LoadKey(KeyConfig{EncryptedKeyPath: path, KeyPassword: "pw"})
	require.NoError(t, err)
	assert.Equal(t, keyHex, hex.EncodeToString(ethcrypto.FromECDSA(pk)))

	// Derived address matches the one go-ethereum computes directly.
	assert.Equal(t, ethcrypto.PubkeyToAddress(pk.PublicKey), Address(pk))
}

func TestLoadKey_NoSource(t *testing.T) {
	_, err := LoadKey(KeyConfig{})
	assert.Error(t, err)
}
