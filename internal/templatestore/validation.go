package templatestore

import (
	"fmt"
	"strings"
)

// ValidateName checks that a template name is a plain file name.
// Returns ErrInvalidName if the name is empty, hidden, or contains a path
// separator or NUL byte.
func ValidateName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: empty name", ErrInvalidName)
	}
	if strings.ContainsAny(name, "/\\\x00") || strings.HasPrefix(name, ".") {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}
