package templatestore

import (
	"errors"
	"testing"
)

func TestValidateName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		input   string
		wantErr error
	}{
		// Valid names
		{name: "simple name", input: "invoice"},
		{name: "with extension", input: "invoice.html"},
		{name: "hyphen and digits", input: "report-2024"},
		{name: "inner dots", input: "letter.v2.tmpl"},

		// Invalid names
		{name: "empty", input: "", wantErr: ErrInvalidName},
		{name: "forward slash", input: "partials/header", wantErr: ErrInvalidName},
		{name: "backslash", input: "partials\\header", wantErr: ErrInvalidName},
		{name: "parent reference", input: "../secret", wantErr: ErrInvalidName},
		{name: "dot only", input: ".", wantErr: ErrInvalidName},
		{name: "hidden file", input: ".env", wantErr: ErrInvalidName},
		{name: "NUL byte", input: "invoice\x00.html", wantErr: ErrInvalidName},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := ValidateName(tt.input)
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("ValidateName(%q) = %v, want nil", tt.input, err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateName(%q) = %v, want %v", tt.input, err, tt.wantErr)
			}
		})
	}
}
