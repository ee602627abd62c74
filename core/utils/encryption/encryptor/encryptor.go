package encryptor

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"sync"

	"github.com/cockroachdb/errors"
	"golang.org/x/crypto/scrypt"

	"github.com/kamalshkeir/kadmin/core/settings"
	"github.com/kamalshkeir/kadmin/core/utils"
)

const saltSize = 32

var ErrBadToken = errors.New("bad token")

var keyMu sync.Mutex

// secret return SECRET from config, generating a process-wide one if unset
func secret() []byte {
	keyMu.Lock()
	defer keyMu.Unlock()
	if settings.Secret == "" {
		settings.Secret = settings.Config.Secret
	}
	if settings.Secret == "" {
		settings.Secret = utils.GenerateRandomString(19)
	}
	return []byte(settings.Secret)
}

// Encrypt seal data with AES-GCM, key derived from the secret with scrypt; output is hex
func Encrypt(data string) (string, error) {
	keyByte, salt, err := deriveKey(secret(), nil)
	if err != nil {
		return "", err
	}
	gcm, err := newGCM(keyByte)
	if err != nil {
		return "", err
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err = rand.Read(nonce); err != nil {
		return "", err
	}
	ciphertext := gcm.Seal(nonce, nonce, []byte(data), nil)
	ciphertext = append(ciphertext, salt...)
	return hex.EncodeToString(ciphertext), nil
}

// Decrypt open a value produced by Encrypt
func Decrypt(data string) (string, error) {
	dataByte, err := hex.DecodeString(data)
	if err != nil {
		return "", ErrBadToken
	}
	if len(dataByte) <= saltSize {
		return "", ErrBadToken
	}
	salt, dataByte := dataByte[len(dataByte)-saltSize:], dataByte[:len(dataByte)-saltSize]

	key, _, err := deriveKey(secret(), salt)
	if err != nil {
		return "", err
	}
	gcm, err := newGCM(key)
	if err != nil {
		return "", err
	}
	if len(dataByte) < gcm.NonceSize() {
		return "", ErrBadToken
	}
	nonce, ciphertext := dataByte[:gcm.NonceSize()], dataByte[gcm.NonceSize():]
	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", errors.Wrapf(ErrBadToken, "%v", err)
	}
	return string(plaintext), nil
}

func newGCM(key []byte) (cipher.AEAD, error) {
	blockCipher, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(blockCipher)
}

func deriveKey(password, salt []byte) ([]byte, []byte, error) {
	if salt == nil {
		salt = make([]byte, saltSize)
		if _, err := rand.Read(salt); err != nil {
			return nil, nil, err
		}
	}
	key, err := scrypt.Key(password, salt, 1<<10, 8, 1, 32)
	if err != nil {
		return nil, nil, err
	}
	return key, salt, nil
}
