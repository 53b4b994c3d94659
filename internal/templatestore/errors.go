package templatestore

import "errors"

// Sentinel errors for template lookups.
var (
	// ErrTemplateNotFound indicates no template file exists for the name.
	ErrTemplateNotFound = errors.New("template not found")

	// ErrInvalidName indicates the name is empty or could address another directory.
	ErrInvalidName = errors.New("invalid template name")

	// ErrPathTraversal indicates the resolved file lies outside the templates directory.
	ErrPathTraversal = errors.New("path traversal detected")

	// ErrRead indicates an I/O error other than a missing file.
	ErrRead = errors.New("failed to read template")
)

// IsNotFound reports whether err means the name does not address a usable template.
// Invalid and escaping names count as not found.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrTemplateNotFound) ||
		errors.Is(err, ErrInvalidName) ||
		errors.Is(err, ErrPathTraversal)
}
