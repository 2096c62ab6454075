package yamlutil_test

// Notes:
// - Marshal error branch: not tested because yaml.Marshal only fails with
//   unmarshalable types (channels, functions), which config never contains.
// - TestInputSizeLimit mutates MaxInputSize and therefore does not run in parallel.
// These are acceptable gaps: we test observable behavior, not implementation details.

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/alnah/go-doc2pub/internal/yamlutil"
)

type testConfig struct {
	Name    string `yaml:"name"`
	Count   int    `yaml:"count"`
	Enabled bool   `yaml:"enabled"`
}

// ---------------------------------------------------------------------------
// TestUnmarshalStrict - Parses YAML and rejects unknown fields
// ---------------------------------------------------------------------------

func TestUnmarshalStrict(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		data    []byte
		dest    any
		wantErr error
		check   func(t *testing.T, v any)
	}{
		{
			name: "valid YAML",
			data: []byte("name: test\ncount: 42\nenabled: true"),
			dest: &testConfig{},
			check: func(t *testing.T, v any) {
				cfg := v.(*testConfig)
				if cfg.Name != "test" || cfg.Count != 42 || !cfg.Enabled {
					t.Errorf("got %+v", cfg)
				}
			},
		},
		{
			name: "absent fields keep existing values",
			data: []byte("name: override"),
			dest: &testConfig{Count: 7, Enabled: true},
			check: func(t *testing.T, v any) {
				cfg := v.(*testConfig)
				if cfg.Name != "override" || cfg.Count != 7 || !cfg.Enabled {
					t.Errorf("got %+v, want defaults preserved", cfg)
				}
			},
		},
		{
			name:    "unknown field rejected",
			data:    []byte("name: test\nunknown: value"),
			dest:    &testConfig{},
			wantErr: errors.New("yamlutil:"),
		},
		{
			name:    "nil data",
			data:    nil,
			dest:    &testConfig{},
			wantErr: yamlutil.ErrNilData,
		},
		{
			name:    "nil destination",
			data:    []byte("name: test"),
			dest:    nil,
			wantErr: yamlutil.ErrNilDestination,
		},
		{
			name:    "invalid YAML syntax",
			data:    []byte("name: [unclosed"),
			dest:    &testConfig{},
			wantErr: errors.New("yamlutil:"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := yamlutil.UnmarshalStrict(tt.data, tt.dest)
			if tt.wantErr != nil {
				if err == nil {
					t.Fatalf("expected error containing %q, got nil", tt.wantErr)
				}
				if errors.Is(err, tt.wantErr) {
					return
				}
				if !strings.Contains(err.Error(), tt.wantErr.Error()) {
					t.Fatalf("error = %q, want containing %q", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tt.check != nil {
				tt.check(t, tt.dest)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// TestDecodeFile
// ---------------------------------------------------------------------------

func TestDecodeFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "c.yaml")
	if err := os.WriteFile(path, []byte("name: file\ncount: 3\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	var cfg testConfig
	if err := yamlutil.DecodeFile(path, &cfg); err != nil {
		t.Fatalf("DecodeFile() unexpected error: %v", err)
	}
	if cfg.Name != "file" || cfg.Count != 3 {
		t.Errorf("DecodeFile() = %+v", cfg)
	}
}

func TestDecodeFile_Missing(t *testing.T) {
	t.Parallel()

	var cfg testConfig
	err := yamlutil.DecodeFile(filepath.Join(t.TempDir(), "missing.yaml"), &cfg)
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("DecodeFile() error = %v, want os.ErrNotExist", err)
	}
}

// ---------------------------------------------------------------------------
// TestMarshal
// ---------------------------------------------------------------------------

func TestMarshal(t *testing.T) {
	t.Parallel()

	out, err := yamlutil.Marshal(testConfig{Name: "x", Count: 1})
	if err != nil {
		t.Fatalf("Marshal() unexpected error: %v", err)
	}
	if !strings.Contains(string(out), "name: x") {
		t.Errorf("Marshal() = %q, want name: x", out)
	}

	var back testConfig
	if err := yamlutil.UnmarshalStrict(out, &back); err != nil {
		t.Fatalf("UnmarshalStrict(Marshal()) error: %v", err)
	}
	if back.Name != "x" || back.Count != 1 {
		t.Errorf("round trip = %+v", back)
	}
}

// ---------------------------------------------------------------------------
// TestInputSizeLimit
// ---------------------------------------------------------------------------

func TestInputSizeLimit(t *testing.T) {
	orig := yamlutil.MaxInputSize
	defer func() { yamlutil.MaxInputSize = orig }()
	yamlutil.MaxInputSize = 16

	err := yamlutil.UnmarshalStrict([]byte("name: this is far too long"), &testConfig{})
	if !errors.Is(err, yamlutil.ErrInputTooLarge) {
		t.Errorf("error = %v, want ErrInputTooLarge", err)
	}
}
