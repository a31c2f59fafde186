// Package primes decides primality and finds the next prime for bucket sizing.
//
// Numbers below 1373653 are decided deterministically by Miller-Rabin with a
// fixed witness set. Above that bound the test draws random witnesses from the
// oracle's own random source, which is seeded once.
package primes

import (
	"math/bits"
	"math/rand"
	"sync"
	"time"
)

const (
	// Below this bound the single witness {2} is exact.
	smallBound = 2047
	// Below this bound the witnesses {2, 3} are exact.
	mediumBound = 1373653
	// Number of random witnesses used above mediumBound.
	randomRounds = 8
)

var (
	smallWitnesses  = []uint64{2}
	mediumWitnesses = []uint64{2, 3}
)

// Oracle answers primality questions. The zero value is not usable, use NewOracle.
type Oracle struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewOracle creates an oracle whose random witnesses come from seed
func NewOracle(seed int64) *Oracle {
	return &Oracle{rng: rand.New(rand.NewSource(seed))}
}

var defaultOracle = NewOracle(time.Now().UnixNano())

// Default returns the process-wide oracle
func Default() *Oracle {
	return defaultOracle
}

// IsPrime reports whether n is prime using the default oracle
func IsPrime(n uint64) bool {
	return defaultOracle.IsPrime(n)
}

// NextPrime returns the smallest prime >= n using the default oracle
func NextPrime(n uint64) uint64 {
	return defaultOracle.NextPrime(n)
}

// IsPrime reports whether n is prime. Exact for n < 1373653, probabilistic above.
func (o *Oracle) IsPrime(n uint64) bool {
	switch {
	case n < 2:
		return false
	case n == 2:
		return true
	case n%2 == 0:
		return false
	case n == 3:
		return true
	case n < smallBound:
		return millerRabin(n, smallWitnesses)
	case n < mediumBound:
		return millerRabin(n, mediumWitnesses)
	}

	return millerRabin(n, o.randomWitnesses(n))
}

// NextPrime returns the smallest prime >= n
func (o *Oracle) NextPrime(n uint64) uint64 {
	for !o.IsPrime(n) {
		n++
	}
	return n
}

// randomWitnesses draws witnesses uniformly from [2, n-2]
func (o *Oracle) randomWitnesses(n uint64) []uint64 {
	o.mu.Lock()
	defer o.mu.Unlock()

	witnesses := make([]uint64, randomRounds)
	for i := range witnesses {
		witnesses[i] = 2 + o.rng.Uint64()%(n-3)
	}
	return witnesses
}

// millerRabin runs one round per witness. n must be odd and > 3.
func millerRabin(n uint64, witnesses []uint64) bool {
	nm := n - 1
	d := nm
	s := 0
	for d%2 == 0 {
		d /= 2
		s++
	}

	for _, a := range witnesses {
		a %= n
		if a == 0 {
			continue
		}

		x := powMod(a, d, n)
		if x == 1 || x == nm {
			continue
		}

		composite := true
		for r := 1; r < s; r++ {
			x = mulMod(x, x, n)
			if x == nm {
				composite = false
				break
			}
			if x == 1 {
				return false
			}
		}
		if composite {
			return false
		}
	}

	return true
}

func mulMod(a, b, m uint64) uint64 {
	hi, lo := bits.Mul64(a, b)
	return bits.Rem64(hi, lo, m)
}

func powMod(base, exp, m uint64) uint64 {
	result := uint64(1)
	base %= m
	for exp > 0 {
		if exp&1 == 1 {
			result = mulMod(result, base, m)
		}
		base = mulMod(base, base, m)
		exp >>= 1
	}
	return result
}
