package hash

import (
	"github.com/cockroachdb/errors"
	"golang.org/x/crypto/bcrypt"
)

// GenerateHash return the bcrypt hash of password
func GenerateHash(password string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", errors.Wrap(err, "hash password")
	}
	return string(b), nil
}

// ComparePasswordToHash report whether password match hash
func ComparePasswordToHash(password, hash string) (bool, error) {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
