package util

import "math/rand/v2"

// GenerateRandomUints generates n random values in the range 0..m.
func GenerateRandomUints(n, m uint) []uint {
	items := make([]uint, n)

	for i := uint(0); i < n; i++ {
		items[i] = rand.UintN(m)
	}

	return items
}

// NewSeededRand constructs a deterministic random source for the given
// (seed, stream) pair.  Distinct streams over one seed give independent but
// reproducible sequences, which is how concurrent actors each get their own
// replayable randomness.
func NewSeededRand(seed, stream uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, stream))
}
