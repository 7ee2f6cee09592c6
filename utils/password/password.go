package password

import "golang.org/x/crypto/bcrypt"

// MaxBytes is the longest input bcrypt takes into account.
const MaxBytes = 72

// Hash returns the bcrypt hash of plain, truncated to MaxBytes.
func Hash(plain string, cost int) (string, error) {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	b, err := bcrypt.GenerateFromPassword(truncate(plain), cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Verify compares plain (truncated the same way) against hash.
func Verify(hash, plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), truncate(plain)) == nil
}

func truncate(plain string) []byte {
	b := []byte(plain)
	if len(b) > MaxBytes {
		b = b[:MaxBytes]
	}
	return b
}
