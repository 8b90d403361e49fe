// Package password wraps credential hashing for the account family.
package password

import "golang.org/x/crypto/bcrypt"

// Hash returns the encoded bcrypt hash of plaintext.
func Hash(plaintext string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(plaintext), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// Verify reports whether plaintext matches the encoded hash.
func Verify(encodedHash, plaintext string) bool {
	return bcrypt.CompareHashAndPassword([]byte(encodedHash), []byte(plaintext)) == nil
}
