package pistonpress

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestDirectories_Validate(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	templates := filepath.Join(root, "templates")
	assets := filepath.Join(root, "assets")
	for _, dir := range []string{templates, assets} {
		if err := os.Mkdir(dir, 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
	}
	file := filepath.Join(root, "file.txt")
	if err := os.WriteFile(file, []byte("x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	tests := []struct {
		name    string
		dirs    Directories
		wantErr error
	}{
		{
			name: "both present",
			dirs: Directories{Templates: templates, Assets: assets},
		},
		{
			name:    "templates missing",
			dirs:    Directories{Assets: assets},
			wantErr: ErrMissingOption,
		},
		{
			name:    "assets missing",
			dirs:    Directories{Templates: templates},
			wantErr: ErrMissingOption,
		},
		{
			name:    "templates not found",
			dirs:    Directories{Templates: filepath.Join(root, "nope"), Assets: assets},
			wantErr: ErrDirectoryNotFound,
		},
		{
			name:    "assets is a file",
			dirs:    Directories{Templates: templates, Assets: file},
			wantErr: ErrDirectoryNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := tt.dirs.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("Validate() = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

// Launch rejects bad input before starting anything, so these run without Chrome.
func TestLaunch_RejectsBeforeStarting(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	dirs := Directories{Templates: root, Assets: root}

	cancelled, cancel := context.WithCancel(context.Background())
	cancel()

	tests := []struct {
		name    string
		ctx     context.Context
		dirs    Directories
		opts    []Option
		wantErr error
	}{
		{
			name:    "missing directories",
			ctx:     context.Background(),
			dirs:    Directories{},
			wantErr: ErrMissingOption,
		},
		{
			name:    "directory not found",
			ctx:     context.Background(),
			dirs:    Directories{Templates: filepath.Join(root, "missing"), Assets: root},
			wantErr: ErrDirectoryNotFound,
		},
		{
			name:    "unsafe template extension",
			ctx:     context.Background(),
			dirs:    dirs,
			opts:    []Option{WithTemplateExtension("../html")},
			wantErr: ErrInvalidInput,
		},
		{
			name:    "context already cancelled",
			ctx:     cancelled,
			dirs:    dirs,
			wantErr: context.Canceled,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			q, err := Launch(tt.ctx, tt.dirs, tt.opts...)
			if q != nil {
				_ = q.Close()
				t.Fatal("Launch() returned a queue, want nil")
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Launch() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}
