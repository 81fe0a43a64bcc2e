// Package fonts resolves the font faces used by the overlay text.
//
// Two families are used: [FamilyUI] for the header and the printed name,
// [FamilyDisplay] for the large back-print number. Each family is backed by
// a [Source]: a font file on disk, or, when no path is configured, one of
// the Go fonts embedded in golang.org/x/image so rendering never depends on
// files being present.
//
// A [Registry] loads each source exactly once per process, no matter how
// many goroutines ask for it concurrently, and hands out sized
// golang.org/x/image/font faces for measuring and drawing as well as base64
// data URLs for renderers that register fonts themselves.
package fonts
