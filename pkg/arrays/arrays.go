// Package arrays holds small helpers over fixed-length slices.
package arrays

// Extreme returns the index of the element judged greatest by cmp, where cmp
// returns a positive number when a is greater than b. The leftmost index wins
// ties. Extreme returns -1 for an empty slice.
func Extreme[T any](s []T, cmp func(a, b T) int) int {
	if len(s) == 0 {
		return -1
	}

	best := 0
	for i := 1; i < len(s); i++ {
		if cmp(s[i], s[best]) > 0 {
			best = i
		}
	}
	return best
}
