package theme

import "strings"

// IsSpace reports whether r is whitespace in the sense of the \s regular
// expression class of web runtimes. It differs from unicode.IsSpace on
// U+FEFF (space here) and U+0085 (not space here), and a note must hash the
// same wherever it is typed.
func IsSpace(r rune) bool {
	switch r {
	case '\t', '\n', '\v', '\f', '\r', ' ',
		0x00A0, 0x1680, 0x2028, 0x2029, 0x202F, 0x205F, 0x3000, 0xFEFF:
		return true
	}
	return r >= 0x2000 && r <= 0x200A
}

// Normalize collapses every run of whitespace into a single space and trims
// leading and trailing whitespace.
func Normalize(note string) string {
	return strings.Join(strings.FieldsFunc(note, IsSpace), " ")
}

// CleanLength counts the UTF-16 code units of note with all whitespace
// removed. It only gates pattern visibility and never feeds the hash.
func CleanLength(note string) int {
	n := 0
	for _, r := range note {
		if IsSpace(r) {
			continue
		}
		if r >= 0x10000 {
			n += 2
			continue
		}
		n++
	}
	return n
}
