// Package cliconfig holds the CLI-facing configuration for fieldstack and
// the precedence machinery: defaults, then config file, then FIELDSTACK_*
// environment variables, then explicitly-set flags.
package cliconfig

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/tbc-tools/fieldstack/internal/domain"
	"github.com/tbc-tools/fieldstack/internal/stacker"
)

// Config holds CLI configuration for fieldstack.
type Config struct {
	// Inputs are capture basenames, primary first.
	Inputs []string

	// StartFields are the 1-based start field indices, one per input.
	// Empty means every input starts at field 1.
	StartFields []int

	Output string

	MaxFields        int
	DupesToDrops     bool
	DropoutThreshold int

	HighMSEThreshold float64
	DriftRunLength   int
	StartCheckWindow int
	MinStackSize     int

	ReadAhead   int
	WriteBehind int
	Workers     int

	MetricsCSV  string
	FieldmapCSV string

	Verbose bool
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	return Config{
		HighMSEThreshold: stacker.DefaultHighMSE,
		DriftRunLength:   stacker.DefaultDriftRun,
		StartCheckWindow: stacker.DefaultStartWindow,
		MinStackSize:     3,
		ReadAhead:        4,
		WriteBehind:      4,
	}
}

// Validate checks the configuration for errors and sets derived defaults.
func (c *Config) Validate() error {
	if len(c.Inputs) < 3 {
		return domain.ErrTooFewInputs
	}
	if len(c.Inputs) > 15 {
		return domain.ErrTooManyInputs
	}
	if c.Output == "" {
		return fmt.Errorf("%w: output is required", domain.ErrInvalidConfig)
	}

	if len(c.StartFields) == 0 {
		c.StartFields = make([]int, len(c.Inputs))
		for i := range c.StartFields {
			c.StartFields[i] = 1
		}
	}
	if len(c.StartFields) != len(c.Inputs) {
		return fmt.Errorf("%w: %d inputs but %d start fields",
			domain.ErrInvalidConfig, len(c.Inputs), len(c.StartFields))
	}
	for i, sf := range c.StartFields {
		if sf < 1 {
			return fmt.Errorf("%w: input %d start field %d", domain.ErrBadStartField, i+1, sf)
		}
	}
	if c.StartFields[0]%2 == 0 {
		return domain.ErrPrimaryFieldOrder
	}

	if c.MaxFields < 0 {
		return fmt.Errorf("%w: max-fields must not be negative", domain.ErrInvalidConfig)
	}
	if c.MinStackSize < 2 {
		return fmt.Errorf("%w: min-stack-size must be at least 2", domain.ErrInvalidConfig)
	}
	return nil
}

// configSetter helps apply configuration values while respecting flag
// precedence. It only applies values if the corresponding flag hasn't been
// explicitly set.
type configSetter struct {
	changed map[string]bool
}

func newConfigSetter(changed map[string]bool) *configSetter {
	return &configSetter{changed: changed}
}

// setString sets a string value if not empty and flag not changed.
func (s *configSetter) setString(flag, value string, dst *string) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value
}

// setStrings sets a string slice if not empty and flag not changed.
func (s *configSetter) setStrings(flag string, value []string, dst *[]string) {
	if len(value) == 0 || s.changed[flag] {
		return
	}
	*dst = value
}

// setInts sets an int slice if not empty and flag not changed.
func (s *configSetter) setInts(flag string, value []int, dst *[]int) {
	if len(value) == 0 || s.changed[flag] {
		return
	}
	*dst = value
}

// setInt sets an int value if positive and flag not changed.
func (s *configSetter) setInt(flag string, value int, dst *int) {
	if value <= 0 || s.changed[flag] {
		return
	}
	*dst = value
}

// setFloat sets a float64 value if positive and flag not changed.
func (s *configSetter) setFloat(flag string, value float64, dst *float64) {
	if value <= 0 || s.changed[flag] {
		return
	}
	*dst = value
}

// setBool sets a bool value if provided and flag not changed.
func (s *configSetter) setBool(flag string, value *bool, dst *bool) {
	if value == nil || s.changed[flag] {
		return
	}
	*dst = *value
}

func (s *configSetter) setIntFromString(flag, value string, dst *int) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	v, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", flag, err)
	}
	*dst = v
	return nil
}

func (s *configSetter) setFloatFromString(flag, value string, dst *float64) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	v, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", flag, err)
	}
	*dst = v
	return nil
}

func (s *configSetter) setBoolFromString(flag, value string, dst *bool) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value == "true" || value == "1"
}

func (s *configSetter) setIntsFromString(flag, value string, dst *[]int) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	parts := strings.Split(value, ",")
	out := make([]int, len(parts))
	for i, p := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return fmt.Errorf("invalid %s: %w", flag, err)
		}
		out[i] = v
	}
	*dst = out
	return nil
}

func (s *configSetter) setStringsFromString(flag, value string, dst *[]string) {
	if value == "" || s.changed[flag] {
		return
	}
	parts := strings.Split(value, ",")
	for i, p := range parts {
		parts[i] = strings.TrimSpace(p)
	}
	*dst = parts
}
