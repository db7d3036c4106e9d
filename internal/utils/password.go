package utils

import (
	"sync"

	"golang.org/x/crypto/bcrypt"
)

// HashPassword returns bcrypt hash using the given cost.
func HashPassword(plain string, cost int) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(plain), cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// VerifyPassword safely compares bcrypt hash and plain password.
func VerifyPassword(hash, plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}

var (
	dummyMu     sync.Mutex
	dummyHashes = map[int][]byte{}
)

// dummyHashFor returns a throwaway hash built with cost, generated once per
// cost value.
func dummyHashFor(cost int) []byte {
	dummyMu.Lock()
	defer dummyMu.Unlock()
	if h, ok := dummyHashes[cost]; ok {
		return h
	}
	h, err := bcrypt.GenerateFromPassword([]byte("not-a-real-password"), cost)
	if err != nil {
		// out-of-range cost; bcrypt falls back to DefaultCost the same way
		h, _ = bcrypt.GenerateFromPassword([]byte("not-a-real-password"), bcrypt.DefaultCost)
	}
	dummyHashes[cost] = h
	return h
}

// DummyVerify spends the time of a real VerifyPassword against a hash of the
// given cost, so a login for an unknown email is not measurably faster than
// a wrong password.  Pass the cost real hashes are stored with.  It always
// returns false.
func DummyVerify(plain string, cost int) bool {
	_ = bcrypt.CompareHashAndPassword(dummyHashFor(cost), []byte(plain))
	return false
}
