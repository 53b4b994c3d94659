package yamlutil_test

// Notes:
// - UnmarshalValues output is compared through encoding/json, the form values
//   take on their way to the render endpoint.
// These are acceptable gaps: we test observable behavior, not implementation details.

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/alnah/go-pistonpress/internal/yamlutil"
)

type pressConfig struct {
	Templates   string `yaml:"templates"`
	Concurrency int    `yaml:"concurrency"`
	NoSandbox   bool   `yaml:"noSandbox"`
}

// ---------------------------------------------------------------------------
// TestDecoders - Lenient and strict decoding share input checks
// ---------------------------------------------------------------------------

func TestDecoders(t *testing.T) {
	t.Parallel()

	decoders := map[string]func([]byte, any) error{
		"Unmarshal":       yamlutil.Unmarshal,
		"UnmarshalStrict": yamlutil.UnmarshalStrict,
	}

	tests := []struct {
		name       string
		input      string
		nilDest    bool
		want       pressConfig
		wantErr    error
		wantPrefix bool
		strictOnly bool // error expected from UnmarshalStrict only
	}{
		{
			name:  "known fields",
			input: "templates: ./t\nconcurrency: 3\nnoSandbox: true\n",
			want:  pressConfig{Templates: "./t", Concurrency: 3, NoSandbox: true},
		},
		{
			name:  "non-ascii text",
			input: "templates: ./modèles/請求書\n",
			want:  pressConfig{Templates: "./modèles/請求書"},
		},
		{
			name:    "empty input",
			input:   "",
			wantErr: yamlutil.ErrNilData,
		},
		{
			name:    "nil destination",
			input:   "concurrency: 1\n",
			nilDest: true,
			wantErr: yamlutil.ErrNilDestination,
		},
		{
			name:       "broken flow sequence",
			input:      "templates: [a, b",
			wantPrefix: true,
		},
		{
			name:       "unknown field",
			input:      "concurrency: 2\nworkers: 9\n",
			want:       pressConfig{Concurrency: 2},
			wantPrefix: true,
			strictOnly: true,
		},
	}

	for decName, decode := range decoders {
		for _, tt := range tests {
			t.Run(decName+"/"+tt.name, func(t *testing.T) {
				t.Parallel()

				var got pressConfig
				var dest any = &got
				if tt.nilDest {
					dest = nil
				}
				err := decode([]byte(tt.input), dest)

				expectErr := tt.wantErr != nil || tt.wantPrefix
				if tt.strictOnly && decName != "UnmarshalStrict" {
					expectErr = false
				}
				if !expectErr {
					if err != nil {
						t.Fatalf("%s() error = %v", decName, err)
					}
					if got != tt.want {
						t.Errorf("%s() = %+v, want %+v", decName, got, tt.want)
					}
					return
				}

				if err == nil {
					t.Fatalf("%s() error = nil, want failure", decName)
				}
				if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
					t.Errorf("%s() error = %v, want %v", decName, err, tt.wantErr)
				}
				if tt.wantPrefix && !strings.HasPrefix(err.Error(), "yamlutil: ") {
					t.Errorf("%s() error = %q, want yamlutil prefix", decName, err)
				}
			})
		}
	}
}

// ---------------------------------------------------------------------------
// TestInputSizeLimit - Verifies MaxInputSize enforcement
// ---------------------------------------------------------------------------

// MaxInputSize is global, so this test is not parallel.

func TestInputSizeLimit(t *testing.T) {
	saved := yamlutil.MaxInputSize
	t.Cleanup(func() { yamlutil.MaxInputSize = saved })
	yamlutil.MaxInputSize = 64

	padded := func(n int) []byte {
		b := []byte(strings.Repeat(" ", n))
		copy(b, "concurrency: 1")
		return b
	}

	var cfg pressConfig
	if err := yamlutil.Unmarshal(padded(64), &cfg); err != nil {
		t.Errorf("input at the limit: error = %v", err)
	}

	err := yamlutil.UnmarshalStrict(padded(65), &cfg)
	if !errors.Is(err, yamlutil.ErrInputTooLarge) {
		t.Fatalf("input over the limit: error = %v, want %v", err, yamlutil.ErrInputTooLarge)
	}
	if !strings.Contains(err.Error(), "65 bytes (max 64)") {
		t.Errorf("error = %q, want sizes reported", err)
	}

	if _, err := yamlutil.UnmarshalValues(padded(200)); !errors.Is(err, yamlutil.ErrInputTooLarge) {
		t.Errorf("UnmarshalValues() error = %v, want %v", err, yamlutil.ErrInputTooLarge)
	}
}

// ---------------------------------------------------------------------------
// TestUnmarshalValues - Template values from YAML or JSON
// ---------------------------------------------------------------------------

func TestUnmarshalValues(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		data     string
		wantJSON string
		wantErr  error
	}{
		{
			name:     "yaml mapping",
			data:     "name: Ada\nitems:\n  - 1\n  - two\n",
			wantJSON: `{"items":[1,"two"],"name":"Ada"}`,
		},
		{
			name:     "json object",
			data:     `{"total": 42.5, "paid": true}`,
			wantJSON: `{"paid":true,"total":42.5}`,
		},
		{
			name:     "nested mapping",
			data:     "customer:\n  name: Bob\n  tags: [a, b]\n",
			wantJSON: `{"customer":{"name":"Bob","tags":["a","b"]}}`,
		},
		{
			name:     "non-string keys become strings",
			data:     "codes:\n  1: one\n  2: two\n",
			wantJSON: `{"codes":{"1":"one","2":"two"}}`,
		},
		{
			name:    "list document",
			data:    "- a\n- b\n",
			wantErr: yamlutil.ErrNotMapping,
		},
		{
			name:    "scalar document",
			data:    "hello",
			wantErr: yamlutil.ErrNotMapping,
		},
		{
			name:    "empty document",
			data:    "",
			wantErr: yamlutil.ErrNilData,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := yamlutil.UnmarshalValues([]byte(tt.data))
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("UnmarshalValues() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("UnmarshalValues() error = %v", err)
			}

			encoded, err := json.Marshal(got)
			if err != nil {
				t.Fatalf("values are not JSON-encodable: %v", err)
			}
			if string(encoded) != tt.wantJSON {
				t.Errorf("UnmarshalValues() = %s, want %s", encoded, tt.wantJSON)
			}
		})
	}
}

func TestReadValuesFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "values.yaml")
	if err := os.WriteFile(path, []byte("name: Ada\n"), 0o600); err != nil {
		t.Fatalf("setup: %v", err)
	}

	got, err := yamlutil.ReadValuesFile(path)
	if err != nil {
		t.Fatalf("ReadValuesFile() error = %v", err)
	}
	if got["name"] != "Ada" {
		t.Errorf("name = %v, want Ada", got["name"])
	}

	if _, err := yamlutil.ReadValuesFile(filepath.Join(dir, "missing.yaml")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("ReadValuesFile(missing) error = %v, want %v", err, os.ErrNotExist)
	}
}
