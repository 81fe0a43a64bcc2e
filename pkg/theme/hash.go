package theme

import "unicode/utf16"

// FNV-1a parameters for 32-bit hashes.
const (
	fnvOffsetBasis uint32 = 2166136261
	fnvPrime       uint32 = 16777619
)

// HashString folds s into a uint32 using FNV-1a over UTF-16 code units.
// Characters outside the BMP contribute their two surrogate halves.
func HashString(s string) uint32 {
	h := fnvOffsetBasis
	for _, r := range s {
		if r >= 0x10000 {
			hi, lo := utf16.EncodeRune(r)
			h = fnvStep(fnvStep(h, uint32(hi)), uint32(lo))
			continue
		}
		h = fnvStep(h, uint32(r))
	}
	return h
}

func fnvStep(h, unit uint32) uint32 {
	h ^= unit
	return h * fnvPrime
}
