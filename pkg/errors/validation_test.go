package errors

import (
	"strings"
	"testing"
)

func TestValidateField(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"simple", "Lena", false},
		{"unicode", "Jürgen 😀", false},
		{"multiline note", "line one\nline two", false},
		{"tab", "a\tb", false},

		{"empty", "", true},
		{"whitespace only", "  \n\t ", true},
		{"too long", strings.Repeat("x", MaxFieldLength+1), true},
		{"null byte", "foo\x00bar", true},
		{"control char", "foo\x01bar", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateField("name", tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateField(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if err != nil && !Is(err, ErrCodeInvalidInput) {
				t.Errorf("ValidateField(%q) code = %v, want %v", tt.input, GetCode(err), ErrCodeInvalidInput)
			}
		})
	}
}

func TestValidateFilename(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"png", "invitation-shirt-lena.png", false},
		{"fallback", "invitation-shirt-export.png", false},

		{"empty", "", true},
		{"slash", "../etc/passwd", true},
		{"backslash", "a\\b.png", true},
		{"hidden", ".png", true},
		{"null byte", "a\x00.png", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateFilename(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateFilename(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}
