// Package theme derives a reproducible shirt theme from free-text notes.
//
// # Overview
//
// A note is normalized, folded into a 32-bit seed with FNV-1a, and split into
// independent sub-streams (one per selection axis) that drive a small
// mulberry32 generator. Each axis picks one candidate from a fixed palette by
// shuffling a copy of the candidates and taking the first element.
//
//	note → Normalize → HashString → SubSeed(salt) → Pick → Theme
//
// Every step is defined in terms of uint32 arithmetic with explicit
// wraparound, so the same note produces a byte-identical [Theme] on every run
// and platform. There is no dependency on wall-clock time, locale or the
// process-wide random source.
//
// # Usage
//
//	t := theme.Build("The quick brown fox")
//	for layer, color := range t.Fills {
//	    fmt.Println(layer, color)
//	}
//	if id, ok := t.ActivePattern(); ok {
//	    fmt.Println("pattern", id)
//	}
//
// # Axis Isolation
//
// Each axis owns its own salted, remixed seed ([SubSeed]) and a fresh
// [Generator]. Changing the number of candidates on one axis therefore never
// shifts the outcome of another axis, which would happen if all axes drew from
// one sequential stream.
//
// # Pattern Gate
//
// Patterns are only shown when the note carries more than [PatternThreshold]
// non-whitespace characters. Near-empty notes keep every pattern layer hidden.
package theme
