// Package match scores the compatibility of two interest bitmasks.
//
// The score is the Dice coefficient of the two bit sets expressed as an
// integer percentage:
//
//	score = floor(200 * |A ∩ B| / (|A| + |B|))
//
// Bytes beyond the shorter bitmask count towards the individual
// populations only. The score is symmetric and always within [0, 100].
package match
