package passhash

import "golang.org/x/crypto/bcrypt"

// cost bounds brute-force attempts without starving login throughput.
const cost = 10

// Hash produces a salted bcrypt digest of the password.
func Hash(password string) ([]byte, error) {
	return bcrypt.GenerateFromPassword([]byte(password), cost)
}

// Verify reports whether the password matches the digest. A malformed digest
// counts as a mismatch; Verify never fails in any other way.
func Verify(password string, hash []byte) bool {
	return bcrypt.CompareHashAndPassword(hash, []byte(password)) == nil
}
