package encryptor

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncryptDecrypt(t *testing.T) {
	enc, err := Encrypt("8b1e1d2c-uuid")
	require.NoError(t, err)
	assert.NotEqual(t, "8b1e1d2c-uuid", enc)

	dec, err := Decrypt(enc)
	require.NoError(t, err)
	assert.Equal(t, "8b1e1d2c-uuid", dec)
}

func TestDecryptBadToken(t *testing.T) {
	for _, tok := range []string{"", "zz", "abcdef"} {
		_, err := Decrypt(tok)
		assert.True(t, errors.Is(err, ErrBadToken), "token %q", tok)
	}
}

func TestDecryptTampered(t *testing.T) {
	enc, err := Encrypt("session")
	require.NoError(t, err)
	b := []byte(enc)
	if b[0] == 'a' {
		b[0] = 'b'
	} else {
		b[0] = 'a'
	}
	_, err = Decrypt(string(b))
	assert.Error(t, err)
}
