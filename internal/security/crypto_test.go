package security_test

import (
	"testing"

	"sunportal/backend/internal/security"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncryptDecryptRoundTrip(t *testing.T) {
	codec := security.NewCodec("test-secret")

	sealed, err := codec.Encrypt("user-1234")
	require.NoError(t, err)
	assert.NotEqual(t, "user-1234", sealed)

	opened, err := codec.Decrypt(sealed)
	require.NoError(t, err)
	assert.Equal(t, "user-1234", opened)
}

func TestEncryptProducesFreshNonces(t *testing.T) {
	codec := security.NewCodec("test-secret")

	a, err := codec.Encrypt("same-plaintext")
	require.NoError(t, err)
	b, err := codec.Encrypt("same-plaintext")
	require.NoError(t, err)

	assert.NotEqual(t, a, b, "each encryption must use a fresh nonce")
}

func TestDecryptRejectsWrongKey(t *testing.T) {
	sealed, err := security.NewCodec("key-one").Encrypt("user-1234")
	require.NoError(t, err)

	_, err = security.NewCodec("key-two").Decrypt(sealed)
	assert.Error(t, err)
}

func TestDecryptRejectsGarbage(t *testing.T) {
	codec := security.NewCodec("test-secret")

	_, err := codec.Decrypt("not base64 at all!!!")
	assert.Error(t, err)

	_, err = codec.Decrypt("c2hvcnQ=") // valid base64, shorter than a nonce
	assert.Error(t, err)
}
