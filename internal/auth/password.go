package auth

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"regexp"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// legacyHash matches the unsalted SHA-256 hex digests written by the mobile
// clients. Such rows reach the local store through the remote pull.
var legacyHash = regexp.MustCompile(`^[0-9a-fA-F]{64}$`)

type PasswordHasher struct {
	cost int
}

// NewPasswordHasher returns a bcrypt hasher. A non-positive cost selects
// bcrypt.DefaultCost.
func NewPasswordHasher(cost int) *PasswordHasher {
	if cost <= 0 {
		cost = bcrypt.DefaultCost
	}
	return &PasswordHasher{cost: cost}
}

func (h *PasswordHasher) Hash(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", err
	}
	return string(bytes), nil
}

// Digest returns the unsalted SHA-256 hex form stored in the shared users
// table.
func (h *PasswordHasher) Digest(password string) string {
	sum := sha256.Sum256([]byte(password))
	return hex.EncodeToString(sum[:])
}

// Verify checks password against a bcrypt hash or a legacy SHA-256 digest.
func (h *PasswordHasher) Verify(password, hash string) bool {
	if legacyHash.MatchString(hash) {
		return subtle.ConstantTimeCompare([]byte(h.Digest(password)), []byte(strings.ToLower(hash))) == 1
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
