package errors

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// MaxFieldLength is the maximum length in characters of a single answer.
const MaxFieldLength = 500

// ValidateField validates a required free-text answer.
//
// The validation rules are intentionally conservative:
//   - No empty or whitespace-only values
//   - No control characters other than tab and newline
//   - Maximum length of MaxFieldLength characters
func ValidateField(field, value string) error {
	if strings.TrimSpace(value) == "" {
		return New(ErrCodeInvalidInput, "%s is required", field)
	}

	if utf8.RuneCountInString(value) > MaxFieldLength {
		return New(ErrCodeInvalidInput, "%s too long (max %d characters)", field, MaxFieldLength)
	}

	for _, r := range value {
		if r == '\n' || r == '\t' || r == '\r' {
			continue
		}
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidInput, "%s contains invalid control characters", field)
		}
	}

	return nil
}

// ValidateFilename validates an output filename for safety.
// It ensures the filename is a simple basename without path components.
func ValidateFilename(filename string) error {
	if filename == "" {
		return New(ErrCodeInvalidInput, "filename cannot be empty")
	}

	// Must be a simple filename, not a path
	if strings.ContainsAny(filename, "/\\") {
		return New(ErrCodeInvalidInput, "filename cannot contain path separators")
	}

	if strings.HasPrefix(filename, ".") {
		return New(ErrCodeInvalidInput, "filename cannot be a hidden file")
	}

	if strings.ContainsRune(filename, 0) {
		return New(ErrCodeInvalidInput, "filename contains a null byte")
	}

	return nil
}
