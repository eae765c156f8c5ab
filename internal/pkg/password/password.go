package password

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// Cost is the bcrypt work factor applied to every stored credential.
const Cost = 10

// maxLen is the longest input bcrypt accepts without truncating.
const maxLen = 72

var (
	ErrTooLong       = errors.New("password exceeds 72 bytes")
	ErrMalformedHash = errors.New("malformed password hash")
)

func Hash(plain string) (string, error) {
	if len(plain) > maxLen {
		return "", ErrTooLong
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(plain), Cost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// Verify reports whether plain produced hash. A hash that cannot be decoded
// yields false together with ErrMalformedHash.
func Verify(hash, plain string) (bool, error) {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return false, nil
	default:
		return false, ErrMalformedHash
	}
}
