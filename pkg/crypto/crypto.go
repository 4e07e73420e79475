package crypto

import (
	"crypto/rand"
	"math/big"
)

// RandIntn returns a uniform random value in [0, n). It panics if got a
// non-positive parameter.
func RandIntn(n int) int {
	return int(RandInt64n(int64(n)))
}

// RandInt64n returns a uniform random value in [0, n) drawn from the operating
// system's CSPRNG. It panics if got a non-positive parameter.
func RandInt64n(n int64) int64 {
	r, err := rand.Int(rand.Reader, big.NewInt(n))
	if err != nil {
		panic(err)
	}

	return r.Int64()
}
