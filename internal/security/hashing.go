package security

import "golang.org/x/crypto/bcrypt"

// Hasher wraps bcrypt password hashing with a fixed cost. The cost is set
// once at construction from config; raising it only affects hashes written
// afterwards, existing hashes verify at the cost they were written with.
type Hasher struct {
	Cost int
}

// NewHasher clamps cost into bcrypt's valid range; non-positive means the
// bcrypt default.
func NewHasher(cost int) *Hasher {
	switch {
	case cost <= 0:
		cost = bcrypt.DefaultCost
	case cost < bcrypt.MinCost:
		cost = bcrypt.MinCost
	case cost > bcrypt.MaxCost:
		cost = bcrypt.MaxCost
	}
	return &Hasher{Cost: cost}
}

// Hash returns a bcrypt hash of password, safe to store as-is.
func (h *Hasher) Hash(password []byte) (string, error) {
	b, err := bcrypt.GenerateFromPassword(password, h.Cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Compare reports a nil error only when password matches hash. The mismatch
// error is bcrypt.ErrMismatchedHashAndPassword; callers must not echo either
// input into logs.
func (h *Hasher) Compare(hash string, password []byte) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), password)
}
