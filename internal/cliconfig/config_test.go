package cliconfig

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/tbc-tools/fieldstack/internal/domain"
)

func validConfig() Config {
	cfg := DefaultConfig()
	cfg.Inputs = []string{"a", "b", "c"}
	cfg.Output = "out"
	return cfg
}

func TestValidate_DefaultsStartFields(t *testing.T) {
	cfg := validConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	if len(cfg.StartFields) != 3 {
		t.Fatalf("start fields = %v, want one per input", cfg.StartFields)
	}
	for i, sf := range cfg.StartFields {
		if sf != 1 {
			t.Errorf("start field %d = %d, want 1", i, sf)
		}
	}
}

func TestValidate_Errors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   error
	}{
		{
			name:   "too few inputs",
			mutate: func(c *Config) { c.Inputs = []string{"a", "b"} },
			want:   domain.ErrTooFewInputs,
		},
		{
			name: "too many inputs",
			mutate: func(c *Config) {
				c.Inputs = make([]string, 16)
				for i := range c.Inputs {
					c.Inputs[i] = "x"
				}
			},
			want: domain.ErrTooManyInputs,
		},
		{
			name:   "missing output",
			mutate: func(c *Config) { c.Output = "" },
			want:   domain.ErrInvalidConfig,
		},
		{
			name:   "start field count mismatch",
			mutate: func(c *Config) { c.StartFields = []int{1, 1} },
			want:   domain.ErrInvalidConfig,
		},
		{
			name:   "zero start field",
			mutate: func(c *Config) { c.StartFields = []int{1, 0, 1} },
			want:   domain.ErrBadStartField,
		},
		{
			name:   "even primary start field",
			mutate: func(c *Config) { c.StartFields = []int{2, 1, 1} },
			want:   domain.ErrPrimaryFieldOrder,
		},
		{
			name:   "negative max fields",
			mutate: func(c *Config) { c.MaxFields = -1 },
			want:   domain.ErrInvalidConfig,
		},
		{
			name:   "min stack below two",
			mutate: func(c *Config) { c.MinStackSize = 1 },
			want:   domain.ErrInvalidConfig,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			if err := cfg.Validate(); !errors.Is(err, tt.want) {
				t.Errorf("Validate = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestApplyFileConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	body := `
inputs = ["a", "b", "c"]
start_fields = [1, 3, 1]
output = "stacked"
dupes_to_drops = true
high_mse_threshold = 2.5e6
drift_run_length = 10
workers = 4
`
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	fc, err := LoadFileConfig(path)
	if err != nil {
		t.Fatalf("LoadFileConfig failed: %v", err)
	}
	cfg := DefaultConfig()
	if err := ApplyFileConfig(&cfg, fc, map[string]bool{}); err != nil {
		t.Fatalf("ApplyFileConfig failed: %v", err)
	}

	if len(cfg.Inputs) != 3 || cfg.Inputs[1] != "b" {
		t.Errorf("inputs = %v", cfg.Inputs)
	}
	if len(cfg.StartFields) != 3 || cfg.StartFields[1] != 3 {
		t.Errorf("start fields = %v", cfg.StartFields)
	}
	if cfg.Output != "stacked" || !cfg.DupesToDrops {
		t.Errorf("output = %q, dupesToDrops = %t", cfg.Output, cfg.DupesToDrops)
	}
	if cfg.HighMSEThreshold != 2.5e6 || cfg.DriftRunLength != 10 || cfg.Workers != 4 {
		t.Errorf("thresholds = %g, %d, workers = %d", cfg.HighMSEThreshold, cfg.DriftRunLength, cfg.Workers)
	}
	// Keys absent from the file keep their defaults.
	if cfg.StartCheckWindow != DefaultConfig().StartCheckWindow {
		t.Errorf("start check window = %d, want default", cfg.StartCheckWindow)
	}
}

func TestApplyFileConfig_FlagsWin(t *testing.T) {
	fc := FileConfig{Output: "from-file", Workers: 8}
	cfg := DefaultConfig()
	cfg.Output = "from-flag"
	cfg.Workers = 2

	changed := map[string]bool{"output": true, "workers": true}
	if err := ApplyFileConfig(&cfg, fc, changed); err != nil {
		t.Fatalf("ApplyFileConfig failed: %v", err)
	}
	if cfg.Output != "from-flag" || cfg.Workers != 2 {
		t.Errorf("explicit flags were overridden: %q, %d", cfg.Output, cfg.Workers)
	}
}

func TestLoadFileConfig_BadTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("inputs = ["), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := LoadFileConfig(path); err == nil {
		t.Error("LoadFileConfig accepted malformed TOML")
	}
}
