package container

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testFormat = Format{
	Magic:       "CRVDATA1",
	LegacyMagic: "SNRDATA1",
}

func TestSealOpenPlain(t *testing.T) {
	payload := []byte("PK\x03\x04 pretend zip bytes")

	sealed := testFormat.Seal(payload)
	assert.Equal(t, byte(Version), sealed[len(testFormat.Magic)])
	assert.Equal(t, byte(0), sealed[len(testFormat.Magic)+1])

	got, encrypted, err := testFormat.Open(sealed, "")
	require.NoError(t, err)
	assert.False(t, encrypted)
	assert.Equal(t, payload, got)
}

func TestSealOpenEncrypted(t *testing.T) {
	payload := []byte("secret save data")

	sealed, err := testFormat.SealWithPassword(payload, "hunter2")
	require.NoError(t, err)

	got, encrypted, err := testFormat.Open(sealed, "hunter2")
	require.NoError(t, err)
	assert.True(t, encrypted)
	assert.Equal(t, payload, got)
}

func TestSealWithEmptyPassword(t *testing.T) {
	_, err := testFormat.SealWithPassword([]byte("x"), "")
	assert.ErrorIs(t, err, ErrEmptyPassword)
}

func TestOpenWrongPassword(t *testing.T) {
	sealed, err := testFormat.SealWithPassword([]byte("payload"), "correct")
	require.NoError(t, err)

	_, encrypted, err := testFormat.Open(sealed, "wrong")
	assert.True(t, encrypted)
	assert.ErrorIs(t, err, ErrDecrypt)
}

func TestOpenTamperedCiphertext(t *testing.T) {
	sealed, err := testFormat.SealWithPassword([]byte("payload"), "pw")
	require.NoError(t, err)

	// Flip a bit in the final ciphertext byte.
	sealed[len(sealed)-1] ^= 0x01

	_, _, err = testFormat.Open(sealed, "pw")
	assert.ErrorIs(t, err, ErrDecrypt)
}

func TestOpenEncryptedWithoutPassword(t *testing.T) {
	sealed, err := testFormat.SealWithPassword([]byte("payload"), "pw")
	require.NoError(t, err)

	_, encrypted, err := testFormat.Open(sealed, "")
	assert.True(t, encrypted)
	assert.ErrorIs(t, err, ErrPasswordRequired)
}

func TestOpenLegacyMagic(t *testing.T) {
	legacy := Format{Magic: "SNRDATA1"}
	sealed := legacy.Seal([]byte("old payload"))

	got, encrypted, err := testFormat.Open(sealed, "")
	require.NoError(t, err)
	assert.False(t, encrypted)
	assert.Equal(t, []byte("old payload"), got)
}

func TestOpenRawZipPassthrough(t *testing.T) {
	raw := []byte("PK\x03\x04 not a container at all")

	got, encrypted, err := testFormat.Open(raw, "ignored")
	require.NoError(t, err)
	assert.False(t, encrypted)
	assert.Equal(t, raw, got)
}

func TestOpenUnsupportedVersion(t *testing.T) {
	sealed := testFormat.Seal([]byte("x"))
	sealed[len(testFormat.Magic)] = 9

	_, _, err := testFormat.Open(sealed, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "version")
}

func TestOpenUnknownFlags(t *testing.T) {
	sealed := testFormat.Seal([]byte("x"))
	sealed[len(testFormat.Magic)+1] = 0x82

	_, _, err := testFormat.Open(sealed, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "flags")
}

func TestOpenTruncatedHeader(t *testing.T) {
	_, _, err := testFormat.Open([]byte(testFormat.Magic+"\x01"), "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "truncated")
}

func TestOpenShortEncryptedPayload(t *testing.T) {
	raw := append([]byte(testFormat.Magic), Version, 0x01)
	raw = append(raw, make([]byte, 10)...)

	_, _, err := testFormat.Open(raw, "pw")
	assert.ErrorIs(t, err, ErrDecrypt)
}

func TestEncryptionSaltAndNonceAreFresh(t *testing.T) {
	a, err := testFormat.SealWithPassword([]byte("same payload"), "pw")
	require.NoError(t, err)
	b, err := testFormat.SealWithPassword([]byte("same payload"), "pw")
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
}
