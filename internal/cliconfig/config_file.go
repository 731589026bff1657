package cliconfig

import (
	"os"
	"path/filepath"

	toml "github.com/pelletier/go-toml/v2"
)

// FileConfig mirrors Config for the TOML config file.
type FileConfig struct {
	Inputs      []string `toml:"inputs"`
	StartFields []int    `toml:"start_fields"`
	Output      string   `toml:"output"`

	MaxFields        int   `toml:"max_fields"`
	DupesToDrops     *bool `toml:"dupes_to_drops"`
	DropoutThreshold int   `toml:"dropout_threshold"`

	HighMSEThreshold float64 `toml:"high_mse_threshold"`
	DriftRunLength   int     `toml:"drift_run_length"`
	StartCheckWindow int     `toml:"start_check_window"`
	MinStackSize     int     `toml:"min_stack_size"`

	ReadAhead   int `toml:"read_ahead"`
	WriteBehind int `toml:"write_behind"`
	Workers     int `toml:"workers"`

	MetricsCSV  string `toml:"metrics_csv"`
	FieldmapCSV string `toml:"fieldmap_csv"`

	Verbose *bool `toml:"verbose"`
}

// LoadFileConfig reads and parses a TOML config file from the given path.
func LoadFileConfig(path string) (FileConfig, error) {
	var fc FileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return fc, err
	}
	if err := toml.Unmarshal(b, &fc); err != nil {
		return fc, err
	}
	return fc, nil
}

// DefaultConfigPath returns the default configuration file path.
// Returns ~/.fieldstack/config.toml if the user home directory is accessible.
func DefaultConfigPath() string {
	if h, err := os.UserHomeDir(); err == nil {
		return filepath.Join(h, ".fieldstack", "config.toml")
	}
	return ""
}

// ApplyFileConfig applies configuration from a file to the Config struct.
// It respects flags that have been explicitly set (changed map).
func ApplyFileConfig(cfg *Config, fc FileConfig, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setStrings("input", fc.Inputs, &cfg.Inputs)
	s.setInts("start-field", fc.StartFields, &cfg.StartFields)
	s.setString("output", fc.Output, &cfg.Output)

	s.setInt("max-fields", fc.MaxFields, &cfg.MaxFields)
	s.setBool("dupes-to-drops", fc.DupesToDrops, &cfg.DupesToDrops)
	s.setInt("dropout-threshold", fc.DropoutThreshold, &cfg.DropoutThreshold)

	s.setFloat("high-mse-threshold", fc.HighMSEThreshold, &cfg.HighMSEThreshold)
	s.setInt("drift-run-length", fc.DriftRunLength, &cfg.DriftRunLength)
	s.setInt("start-check-window", fc.StartCheckWindow, &cfg.StartCheckWindow)
	s.setInt("min-stack-size", fc.MinStackSize, &cfg.MinStackSize)

	s.setInt("read-ahead", fc.ReadAhead, &cfg.ReadAhead)
	s.setInt("write-behind", fc.WriteBehind, &cfg.WriteBehind)
	s.setInt("workers", fc.Workers, &cfg.Workers)

	s.setString("metrics-csv", fc.MetricsCSV, &cfg.MetricsCSV)
	s.setString("fieldmap-csv", fc.FieldmapCSV, &cfg.FieldmapCSV)

	s.setBool("verbose", fc.Verbose, &cfg.Verbose)

	return nil
}

// FileExists checks if a file exists at the given path.
func FileExists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}
