package templatestore

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// DefaultExtension is appended to names without one.
const DefaultExtension = ".html"

// Store reads templates from one directory.
type Store struct {
	dir string // absolute, symlinks resolved when possible
	ext string
}

// New creates a Store over dir. The directory is not required to exist yet;
// lookups fail with ErrTemplateNotFound until it does.
// An empty ext means DefaultExtension; a missing leading dot is added.
func New(dir, ext string) *Store {
	if ext == "" {
		ext = DefaultExtension
	}
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}

	abs, err := filepath.Abs(dir)
	if err != nil {
		abs = filepath.Clean(dir)
	}
	if real, err := filepath.EvalSymlinks(abs); err == nil {
		abs = real
	}
	return &Store{dir: abs, ext: ext}
}

// Dir returns the resolved templates directory.
func (s *Store) Dir() string {
	return s.dir
}

// Extension returns the default extension, with its leading dot.
func (s *Store) Extension() string {
	return s.ext
}

// Path resolves name to a file inside the directory without reading it.
func (s *Store) Path(name string) (string, error) {
	if err := ValidateName(name); err != nil {
		return "", err
	}
	if filepath.Ext(name) == "" {
		name += s.ext
	}
	file := filepath.Join(s.dir, name)
	if err := s.verifyContainment(file); err != nil {
		return "", err
	}
	return file, nil
}

// Load returns the source of the named template.
func (s *Store) Load(name string) (string, error) {
	file, err := s.Path(name)
	if err != nil {
		return "", err
	}

	info, err := os.Stat(file)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return "", fmt.Errorf("%w: %q", ErrTemplateNotFound, name)
	case err != nil:
		return "", fmt.Errorf("%w: %v", ErrRead, err)
	case info.IsDir():
		return "", fmt.Errorf("%w: %q is a directory", ErrTemplateNotFound, name)
	}

	content, err := os.ReadFile(file) // #nosec G304 -- path validated above
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("%w: %q", ErrTemplateNotFound, name)
		}
		return "", fmt.Errorf("%w: %v", ErrRead, err)
	}
	return string(content), nil
}

// List returns the names, without extension, of the templates carrying the
// default extension. Hidden files and directories are skipped.
func (s *Store) List() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRead, err)
	}

	var names []string
	for _, e := range entries {
		n := e.Name()
		if e.IsDir() || strings.HasPrefix(n, ".") || !strings.HasSuffix(n, s.ext) {
			continue
		}
		names = append(names, strings.TrimSuffix(n, s.ext))
	}
	sort.Strings(names)
	return names, nil
}

// verifyContainment ensures file, after symlink resolution, is inside the directory.
func (s *Store) verifyContainment(file string) error {
	// A file that does not exist yet keeps its joined path; opening it fails later.
	if real, err := filepath.EvalSymlinks(file); err == nil {
		file = real
	}
	// The separator keeps /base/tpl from matching /base/tpl-evil.
	if !strings.HasPrefix(file, s.dir+string(filepath.Separator)) {
		return fmt.Errorf("%w: %q escapes the templates directory", ErrPathTraversal, filepath.Base(file))
	}
	return nil
}
