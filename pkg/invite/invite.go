// Package invite holds the answers a guest submits and derives the
// deterministic artifact name from them.
package invite

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"

	"github.com/matzehuels/trikot/pkg/errors"
)

const (
	// FilePrefix starts every exported artifact name.
	FilePrefix = "invitation-shirt-"
	// FallbackName replaces a name that sanitizes to nothing.
	FallbackName = "export"
	// FileExt is the artifact extension.
	FileExt = ".png"

	// ShareTitle is the message attached to a native share.
	ShareTitle = "2nd May, 8pm"
)

// Answers is the form a guest submits. It is immutable once validated.
type Answers struct {
	Name string `json:"name"`
	Age  string `json:"age"`
	Note string `json:"note"`
}

// Validate requires every field to be non-empty after trimming.
func (a Answers) Validate() error {
	for _, f := range []struct{ field, value string }{
		{"name", a.Name},
		{"number", a.Age},
		{"note", a.Note},
	} {
		if err := errors.ValidateField(f.field, f.value); err != nil {
			return err
		}
	}
	return nil
}

// Normalized trims Name and Age. The note is kept as written; the theme
// derivation canonicalizes it.
func (a Answers) Normalized() Answers {
	return Answers{
		Name: strings.TrimSpace(a.Name),
		Age:  strings.TrimSpace(a.Age),
		Note: a.Note,
	}
}

// FileName returns invitation-shirt-<slug>.png, or the export fallback when
// the name is blank.
func (a Answers) FileName() string {
	slug := Slug(a.Name)
	if slug == "" {
		slug = FallbackName
	}
	return FilePrefix + slug + FileExt
}

// Slug reduces s to a lower-case, filesystem-safe token. Letters and digits
// of any script survive; accents are stripped; everything else collapses
// into single dashes.
func Slug(s string) string {
	var b strings.Builder
	dash := false
	for _, r := range norm.NFKD.String(strings.TrimSpace(s)) {
		switch {
		case unicode.Is(unicode.Mn, r):
			continue
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			if dash && b.Len() > 0 {
				b.WriteByte('-')
			}
			dash = false
			b.WriteRune(unicode.ToLower(r))
		default:
			dash = true
		}
	}
	out := b.String()
	if len(out) > 64 {
		out = strings.TrimRight(truncateRunes(out, 64), "-")
	}
	return out
}

func truncateRunes(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !isRuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

func isRuneStart(b byte) bool { return b&0xC0 != 0x80 }
