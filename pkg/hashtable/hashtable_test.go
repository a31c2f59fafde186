package hashtable

import (
	"errors"
	"fmt"
	"testing"

	"github.com/spamid/spam-identifier/pkg/primes"
)

func newStore[V any](t *testing.T, opts ...Option[V]) *Store[V] {
	t.Helper()
	s, err := New[V](opts...)
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	return s
}

func TestNewRejectsZeroSizedValues(t *testing.T) {
	s, err := New[struct{}]()
	if !errors.Is(err, ErrZeroValueSize) {
		t.Fatalf("Expected ErrZeroValueSize, got %v", err)
	}
	if s != nil {
		t.Error("Store should be nil on failure")
	}

	if _, err := New[[0]int](); !errors.Is(err, ErrZeroValueSize) {
		t.Errorf("Expected ErrZeroValueSize for [0]int, got %v", err)
	}
}

func TestNewStoreIsEmpty(t *testing.T) {
	s := newStore[int](t)

	if s.Len() != 0 {
		t.Errorf("Len() = %d, expected 0", s.Len())
	}
	if s.Buckets() != DefaultBuckets {
		t.Errorf("Buckets() = %d, expected %d", s.Buckets(), DefaultBuckets)
	}
	if s.Contains("missing") {
		t.Error("Empty store should not contain any key")
	}
	if _, ok := s.Get("missing"); ok {
		t.Error("Get on empty store should report absent")
	}
}

func TestAddGetContains(t *testing.T) {
	s := newStore[[]byte](t)

	keys := []string{"buy", "now", "hello", "friend", "", "x\ny", "ünïcode"}
	for i, key := range keys {
		if err := s.Add(key, []byte{byte(i), byte(i * 2)}); err != nil {
			t.Fatalf("Add(%q) failed: %v", key, err)
		}
	}

	for i, key := range keys {
		if !s.Contains(key) {
			t.Errorf("Contains(%q) = false, expected true", key)
		}
		value, ok := s.Get(key)
		if !ok {
			t.Fatalf("Get(%q) reported absent", key)
		}
		if len(value) != 2 || value[0] != byte(i) || value[1] != byte(i*2) {
			t.Errorf("Get(%q) = %v, expected [%d %d]", key, value, i, i*2)
		}
	}

	for _, key := range []string{"buyy", "Buy", "now ", "friends"} {
		if s.Contains(key) {
			t.Errorf("Contains(%q) = true for a key never inserted", key)
		}
		if _, ok := s.Get(key); ok {
			t.Errorf("Get(%q) found a key never inserted", key)
		}
	}
}

func TestGrowthKeepsEveryKey(t *testing.T) {
	s := newStore[int](t)

	const n = 5000
	previous := s.Buckets()
	growths := 0
	for i := 0; i < n; i++ {
		if err := s.Add(fmt.Sprintf("word-%d", i), i); err != nil {
			t.Fatalf("Add failed at %d: %v", i, err)
		}

		if s.Buckets() != previous {
			growths++
			if s.Buckets() < 2*previous+1 {
				t.Errorf("Buckets grew from %d to %d, expected at least %d", previous, s.Buckets(), 2*previous+1)
			}
			if !primes.IsPrime(uint64(s.Buckets())) {
				t.Errorf("Bucket count %d is not prime", s.Buckets())
			}
			if s.Len() != i+1 {
				t.Errorf("Len() = %d after growth, expected %d", s.Len(), i+1)
			}
			previous = s.Buckets()
		}

		if s.Len() > s.Buckets()*LoadFactor {
			t.Fatalf("Load factor exceeded: %d items in %d buckets", s.Len(), s.Buckets())
		}
	}

	if growths == 0 {
		t.Fatal("Expected the store to grow")
	}
	for i := 0; i < n; i++ {
		key := fmt.Sprintf("word-%d", i)
		value, ok := s.Get(key)
		if !ok || value != i {
			t.Fatalf("Get(%q) = %d, %v; expected %d, true", key, value, ok, i)
		}
	}
}

func TestGrowthBoundary(t *testing.T) {
	s := newStore[int](t)

	for i := 0; i < DefaultBuckets*LoadFactor; i++ {
		if err := s.Add(fmt.Sprintf("k%d", i), i); err != nil {
			t.Fatalf("Add failed: %v", err)
		}
	}
	if s.Buckets() != DefaultBuckets {
		t.Fatalf("Store grew early: %d buckets with %d items", s.Buckets(), s.Len())
	}

	if err := s.Add("one-more", 0); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if s.Buckets() != 11 {
		t.Errorf("Buckets() = %d after first growth, expected 11", s.Buckets())
	}
}

func TestFailedGrowthLeavesStoreIntact(t *testing.T) {
	s := newStore(t, WithMaxBuckets[int](DefaultBuckets))

	for i := 0; i < DefaultBuckets*LoadFactor; i++ {
		if err := s.Add(fmt.Sprintf("k%d", i), i); err != nil {
			t.Fatalf("Add failed: %v", err)
		}
	}

	err := s.Add("overflow", 99)
	if !errors.Is(err, ErrGrowth) {
		t.Fatalf("Expected ErrGrowth, got %v", err)
	}
	if s.Len() != DefaultBuckets*LoadFactor {
		t.Errorf("Len() = %d after failed growth, expected %d", s.Len(), DefaultBuckets*LoadFactor)
	}
	if s.Buckets() != DefaultBuckets {
		t.Errorf("Buckets() = %d after failed growth, expected %d", s.Buckets(), DefaultBuckets)
	}
	if s.Contains("overflow") {
		t.Error("Rejected key should not be present")
	}
	for i := 0; i < DefaultBuckets*LoadFactor; i++ {
		if v, ok := s.Get(fmt.Sprintf("k%d", i)); !ok || v != i {
			t.Errorf("Key k%d lost after failed growth", i)
		}
	}
}

func TestDuplicateKeyShadows(t *testing.T) {
	s := newStore[string](t)

	if err := s.Add("word", "first"); err != nil {
		t.Fatal(err)
	}
	if err := s.Add("word", "second"); err != nil {
		t.Fatal(err)
	}

	if s.Len() != 2 {
		t.Errorf("Len() = %d, expected both entries to be counted", s.Len())
	}
	if v, _ := s.Get("word"); v != "second" {
		t.Errorf("Get returned %q, expected the most recent value", v)
	}

	seen := 0
	for key := range s.All() {
		if key == "word" {
			seen++
		}
	}
	if seen != 2 {
		t.Errorf("Iteration saw the key %d times, expected 2", seen)
	}
}

func TestUniqueModeRejectsDuplicates(t *testing.T) {
	s := newStore(t, WithUnique[string]())

	if err := s.Add("word", "first"); err != nil {
		t.Fatal(err)
	}
	if err := s.Add("word", "second"); !errors.Is(err, ErrDuplicateKey) {
		t.Fatalf("Expected ErrDuplicateKey, got %v", err)
	}
	if v, _ := s.Get("word"); v != "first" {
		t.Errorf("Get returned %q, expected the original value", v)
	}
	if s.Len() != 1 {
		t.Errorf("Len() = %d, expected 1", s.Len())
	}
}

func TestValuesAreHandles(t *testing.T) {
	s := newStore[[]uint64](t)

	counts := make([]uint64, 2)
	if err := s.Add("spam", counts); err != nil {
		t.Fatal(err)
	}

	got, _ := s.Get("spam")
	got[1]++

	again, _ := s.Get("spam")
	if again[1] != 1 {
		t.Errorf("Increment through a returned handle was not visible: %v", again)
	}
}

func TestCloseReleasesEveryValue(t *testing.T) {
	released := map[int]int{}
	s := newStore(t, WithRelease(func(v int) { released[v]++ }))

	for i := 0; i < 100; i++ {
		if err := s.Add(fmt.Sprintf("k%d", i), i); err != nil {
			t.Fatal(err)
		}
	}
	s.Close()

	if len(released) != 100 {
		t.Errorf("Released %d distinct values, expected 100", len(released))
	}
	for v, n := range released {
		if n != 1 {
			t.Errorf("Value %d released %d times", v, n)
		}
	}
	if s.Len() != 0 || s.Contains("k1") {
		t.Error("Store should be empty after Close")
	}
}

func TestHashIsPolynomial(t *testing.T) {
	testCases := []struct {
		key      string
		divisor  int
		expected int
	}{
		{"", 5, 0},
		{"a", 5, 97 % 5},
		{"ab", 11, (97*256 + 98) % 11},
		{"abc", 1000003, (97*256*256 + 98*256 + 99) % 1000003},
		{"\xff", 7, 255 % 7},
	}

	for _, tc := range testCases {
		if got := hash(tc.key, tc.divisor); got != tc.expected {
			t.Errorf("hash(%q, %d) = %d, expected %d", tc.key, tc.divisor, got, tc.expected)
		}
	}
}
