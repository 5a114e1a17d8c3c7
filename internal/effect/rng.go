package effect

import (
	crand "crypto/rand"
	"encoding/binary"
	"math/rand"
	"time"
)

// RNG is the random source used for damage rolls, random discards and
// deck shuffles. *rand.Rand satisfies it.
type RNG interface {
	Intn(n int) int
}

// NewRNG returns a seeded generator. A zero seed draws a fresh one.
func NewRNG(seed int64) *rand.Rand {
	if seed == 0 {
		seed = RandomSeed()
	}
	return rand.New(rand.NewSource(seed))
}

// RandomSeed returns a non-zero seed from the system entropy source.
func RandomSeed() int64 {
	var b [8]byte
	if _, err := crand.Read(b[:]); err != nil {
		return time.Now().UnixNano()
	}
	seed := int64(binary.LittleEndian.Uint64(b[:]) & (1<<63 - 1))
	if seed == 0 {
		seed = 1
	}
	return seed
}

// Shuffle permutes n elements using swap, Fisher-Yates style.
func Shuffle(rng RNG, n int, swap func(i, j int)) {
	for i := n - 1; i > 0; i-- {
		j := rng.Intn(i + 1)
		swap(i, j)
	}
}
