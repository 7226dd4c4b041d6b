package auth

import "golang.org/x/crypto/bcrypt"

// DefaultBcryptCost is the work factor used when the config leaves it unset.
const DefaultBcryptCost = bcrypt.DefaultCost

// Hasher is the password hashing capability.
type Hasher interface {
	Hash(plaintext string) (string, error)
	Compare(plaintext, digest string) bool
}

// BcryptHasher hashes with a fixed, configured cost.
type BcryptHasher struct {
	cost int
}

// NewBcryptHasher returns a hasher with the given cost. Costs outside
// bcrypt's accepted range fall back to DefaultBcryptCost.
func NewBcryptHasher(cost int) *BcryptHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = DefaultBcryptCost
	}
	return &BcryptHasher{cost: cost}
}

func (h *BcryptHasher) Cost() int { return h.cost }

func (h *BcryptHasher) Hash(plaintext string) (string, error) {
	digest, err := bcrypt.GenerateFromPassword([]byte(plaintext), h.cost)
	if err != nil {
		return "", err
	}
	return string(digest), nil
}

// Compare reports whether plaintext matches digest. A malformed or empty
// digest simply does not match.
func (h *BcryptHasher) Compare(plaintext, digest string) bool {
	return bcrypt.CompareHashAndPassword([]byte(digest), []byte(plaintext)) == nil
}
