package match

import "math/bits"

// MaxScore is the score of two identical non-empty bitmasks.
const MaxScore = 100

// Similarity returns the Dice similarity of a and b in [0, MaxScore].
// It returns 0 when either input is empty or neither has any bit set.
func Similarity(a, b []byte) int {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}

	shared := 0
	for i := range min(len(a), len(b)) {
		shared += bits.OnesCount8(a[i] & b[i])
	}

	total := Population(a) + Population(b)
	if total == 0 {
		return 0
	}
	return 2 * MaxScore * shared / total
}

// Population returns the number of set bits in b.
func Population(b []byte) int {
	n := 0
	for _, v := range b {
		n += bits.OnesCount8(v)
	}
	return n
}

// Compatible reports whether a and b score at least threshold.
func Compatible(a, b []byte, threshold int) bool {
	return Similarity(a, b) >= threshold
}
