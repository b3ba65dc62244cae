package auth

import "golang.org/x/crypto/bcrypt"

// HashPassword derives a salted bcrypt digest from a plaintext password.
// Each call uses a fresh random salt, so hashing the same password twice
// yields different digests that both verify.
func HashPassword(plaintext string) (string, error) {
	digest, err := bcrypt.GenerateFromPassword([]byte(plaintext), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(digest), nil
}

// CheckPassword verifies a plaintext candidate against a stored digest.
// Malformed digests report false instead of an error; the caller only needs
// a yes/no answer and must not learn why verification failed.
func CheckPassword(plaintext, digest string) bool {
	return bcrypt.CompareHashAndPassword([]byte(digest), []byte(plaintext)) == nil
}
