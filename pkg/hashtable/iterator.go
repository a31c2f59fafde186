package hashtable

import "iter"

// Iterator walks a store's buckets in ascending order and each chain from its
// head. Mutating the store while an iterator is in use is not supported.
type Iterator[V any] struct {
	store  *Store[V]
	bucket int
	next   *entry[V]
}

// Iterator returns an iterator positioned before the first entry
func (s *Store[V]) Iterator() *Iterator[V] {
	it := &Iterator[V]{store: s}
	it.Reset()
	return it
}

// Reset moves the iterator back before the first entry
func (it *Iterator[V]) Reset() {
	it.bucket = 0
	it.next = nil
	it.advance()
}

// advance finds the next non-empty bucket starting at it.bucket
func (it *Iterator[V]) advance() {
	buckets := it.store.buckets
	for it.next == nil && it.bucket < len(buckets) {
		it.next = buckets[it.bucket]
		it.bucket++
	}
}

// HasNext reports whether Next will return an entry
func (it *Iterator[V]) HasNext() bool {
	return it.next != nil
}

// Next returns the next key and value. ok is false once the store is exhausted.
func (it *Iterator[V]) Next() (key string, value V, ok bool) {
	if it.next == nil {
		return key, value, false
	}

	e := it.next
	it.next = e.next
	it.advance()

	return e.key, e.value, true
}

// All iterates over every entry in iterator order
func (s *Store[V]) All() iter.Seq2[string, V] {
	return func(yield func(string, V) bool) {
		it := s.Iterator()
		for it.HasNext() {
			key, value, _ := it.Next()
			if !yield(key, value) {
				return
			}
		}
	}
}
