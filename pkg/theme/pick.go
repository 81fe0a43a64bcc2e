package theme

import "slices"

// Pick selects one element of candidates deterministically from seed.
//
// A copy of candidates is shuffled with Fisher–Yates using a [Generator]
// seeded with seed, and the first element of the shuffled copy is returned.
// For short candidate lists this spreads low-entropy seeds more evenly than
// scaling a single draw by the list length. Pick panics if candidates is empty.
func Pick[T any](candidates []T, seed uint32) T {
	if len(candidates) == 0 {
		panic("theme: Pick called with no candidates")
	}
	return Shuffle(candidates, seed)[0]
}

// Shuffle returns a shuffled copy of candidates. The input is not modified.
func Shuffle[T any](candidates []T, seed uint32) []T {
	a := slices.Clone(candidates)
	r := NewGenerator(seed)
	for i := len(a) - 1; i > 0; i-- {
		j := int(r.Next() * float64(i+1))
		a[i], a[j] = a[j], a[i]
	}
	return a
}
