package cliconfig

import "os"

// ApplyEnvConfig applies configuration from environment variables
// (FIELDSTACK_*). It respects flags that have been explicitly set (changed
// map). Returns an error if any environment variable has an invalid format.
func ApplyEnvConfig(cfg *Config, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setStringsFromString("input", os.Getenv("FIELDSTACK_INPUTS"), &cfg.Inputs)
	if err := s.setIntsFromString("start-field", os.Getenv("FIELDSTACK_START_FIELDS"), &cfg.StartFields); err != nil {
		return err
	}
	s.setString("output", os.Getenv("FIELDSTACK_OUTPUT"), &cfg.Output)

	if err := s.setIntFromString("max-fields", os.Getenv("FIELDSTACK_MAX_FIELDS"), &cfg.MaxFields); err != nil {
		return err
	}
	s.setBoolFromString("dupes-to-drops", os.Getenv("FIELDSTACK_DUPES_TO_DROPS"), &cfg.DupesToDrops)
	if err := s.setIntFromString("dropout-threshold", os.Getenv("FIELDSTACK_DROPOUT_THRESHOLD"), &cfg.DropoutThreshold); err != nil {
		return err
	}

	if err := s.setFloatFromString("high-mse-threshold", os.Getenv("FIELDSTACK_HIGH_MSE_THRESHOLD"), &cfg.HighMSEThreshold); err != nil {
		return err
	}
	if err := s.setIntFromString("drift-run-length", os.Getenv("FIELDSTACK_DRIFT_RUN_LENGTH"), &cfg.DriftRunLength); err != nil {
		return err
	}
	if err := s.setIntFromString("start-check-window", os.Getenv("FIELDSTACK_START_CHECK_WINDOW"), &cfg.StartCheckWindow); err != nil {
		return err
	}
	if err := s.setIntFromString("min-stack-size", os.Getenv("FIELDSTACK_MIN_STACK_SIZE"), &cfg.MinStackSize); err != nil {
		return err
	}

	if err := s.setIntFromString("read-ahead", os.Getenv("FIELDSTACK_READ_AHEAD"), &cfg.ReadAhead); err != nil {
		return err
	}
	if err := s.setIntFromString("write-behind", os.Getenv("FIELDSTACK_WRITE_BEHIND"), &cfg.WriteBehind); err != nil {
		return err
	}
	if err := s.setIntFromString("workers", os.Getenv("FIELDSTACK_WORKERS"), &cfg.Workers); err != nil {
		return err
	}

	s.setString("metrics-csv", os.Getenv("FIELDSTACK_METRICS_CSV"), &cfg.MetricsCSV)
	s.setString("fieldmap-csv", os.Getenv("FIELDSTACK_FIELDMAP_CSV"), &cfg.FieldmapCSV)

	s.setBoolFromString("verbose", os.Getenv("FIELDSTACK_VERBOSE"), &cfg.Verbose)

	return nil
}
