// Package hashtable implements a chained hash table keyed by strings whose
// bucket count is always prime.
//
// Entries are pushed to the head of their bucket chain. The table grows once
// it holds LoadFactor entries per bucket on average; the new bucket count is
// the next prime >= 2*old+1 and entries are relinked, never copied.
package hashtable

import (
	"errors"
	"fmt"
	"unsafe"

	"github.com/spamid/spam-identifier/pkg/primes"
)

const (
	// DefaultBuckets is the bucket count of a new store
	DefaultBuckets = 5
	// LoadFactor is the average number of entries per bucket tolerated before growth
	LoadFactor = 5
)

var (
	// ErrZeroValueSize is returned when the value type occupies no storage
	ErrZeroValueSize = errors.New("hashtable: value size must be greater than zero")
	// ErrGrowth is returned when the bucket array cannot grow
	ErrGrowth = errors.New("hashtable: bucket growth failed")
	// ErrDuplicateKey is returned by Add in unique mode when the key is present
	ErrDuplicateKey = errors.New("hashtable: duplicate key")
)

// entry is one key/value binding in a bucket chain
type entry[V any] struct {
	key   string
	value V
	next  *entry[V]
}

// Store maps string keys to values of type V. It is not safe for concurrent mutation.
type Store[V any] struct {
	buckets []*entry[V]
	items   int

	release    func(V)
	unique     bool
	maxBuckets int
	oracle     *primes.Oracle
}

// Option configures a Store
type Option[V any] func(*Store[V])

// WithRelease sets a hook run on every value when the store is closed
func WithRelease[V any](release func(V)) Option[V] {
	return func(s *Store[V]) {
		s.release = release
	}
}

// WithUnique makes Add refuse keys that are already present
func WithUnique[V any]() Option[V] {
	return func(s *Store[V]) {
		s.unique = true
	}
}

// WithMaxBuckets caps the bucket count. Growth past the cap fails with ErrGrowth.
func WithMaxBuckets[V any](n int) Option[V] {
	return func(s *Store[V]) {
		s.maxBuckets = n
	}
}

// WithPrimes sets the oracle used to pick bucket counts
func WithPrimes[V any](oracle *primes.Oracle) Option[V] {
	return func(s *Store[V]) {
		s.oracle = oracle
	}
}

// New creates an empty store with DefaultBuckets buckets
func New[V any](opts ...Option[V]) (*Store[V], error) {
	var zero V
	if unsafe.Sizeof(zero) == 0 {
		return nil, ErrZeroValueSize
	}

	s := &Store[V]{oracle: primes.Default()}
	for _, opt := range opts {
		opt(s)
	}
	s.buckets = make([]*entry[V], DefaultBuckets)

	return s, nil
}

// Len returns the number of entries
func (s *Store[V]) Len() int {
	return s.items
}

// Buckets returns the current bucket count
func (s *Store[V]) Buckets() int {
	return len(s.buckets)
}

// hash is a base-256 polynomial over the key bytes reduced modulo divisor
func hash(key string, divisor int) int {
	d := uint64(divisor)
	var h uint64
	for i := 0; i < len(key); i++ {
		h = (h*256 + uint64(key[i])) % d
	}
	return int(h)
}

// lookup returns the first entry with key in its bucket chain
func (s *Store[V]) lookup(key string) *entry[V] {
	for e := s.buckets[hash(key, len(s.buckets))]; e != nil; e = e.next {
		if e.key == key {
			return e
		}
	}
	return nil
}

// Contains reports whether key is present
func (s *Store[V]) Contains(key string) bool {
	return s.lookup(key) != nil
}

// Get returns a copy of the value stored under key
func (s *Store[V]) Get(key string) (V, bool) {
	if e := s.lookup(key); e != nil {
		return e.value, true
	}
	var zero V
	return zero, false
}

// Add inserts key and value at the head of the key's bucket. Unless the store
// is in unique mode, an existing key is not checked for: the new entry shadows
// the old one for Get and Contains.
func (s *Store[V]) Add(key string, value V) error {
	if s.unique && s.Contains(key) {
		return fmt.Errorf("%w: %q", ErrDuplicateKey, key)
	}
	return s.link(&entry[V]{key: key, value: value})
}

// link pushes e onto its bucket chain, growing first if the table is full
func (s *Store[V]) link(e *entry[V]) error {
	if s.items >= len(s.buckets)*LoadFactor {
		if err := s.grow(); err != nil {
			return err
		}
	}

	b := hash(e.key, len(s.buckets))
	e.next = s.buckets[b]
	s.buckets[b] = e
	s.items++

	return nil
}

// grow relinks every entry into a bucket array of the next prime >= 2*old+1.
// The store is untouched when growth fails.
func (s *Store[V]) grow() error {
	target := s.oracle.NextPrime(uint64(2*len(s.buckets) + 1))
	if s.maxBuckets > 0 && target > uint64(s.maxBuckets) {
		return fmt.Errorf("%w: %d buckets exceeds limit %d", ErrGrowth, target, s.maxBuckets)
	}
	if target > uint64(maxInt) {
		return fmt.Errorf("%w: %d buckets overflows", ErrGrowth, target)
	}

	buckets := make([]*entry[V], int(target))
	for _, e := range s.buckets {
		for e != nil {
			next := e.next
			b := hash(e.key, len(buckets))
			e.next = buckets[b]
			buckets[b] = e
			e = next
		}
	}
	s.buckets = buckets

	return nil
}

const maxInt = int(^uint(0) >> 1)

// Close runs the release hook on every value and empties the store
func (s *Store[V]) Close() {
	for i, e := range s.buckets {
		for e != nil {
			next := e.next
			if s.release != nil {
				s.release(e.value)
			}
			e.next = nil
			e = next
		}
		s.buckets[i] = nil
	}
	s.buckets = make([]*entry[V], DefaultBuckets)
	s.items = 0
}
