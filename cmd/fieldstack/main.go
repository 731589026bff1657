package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"runtime/debug"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	pflag "github.com/spf13/pflag"

	"github.com/tbc-tools/fieldstack/internal/cliconfig"
	"github.com/tbc-tools/fieldstack/pkg/fieldstack"
	pkglog "github.com/tbc-tools/fieldstack/pkg/log"
)

const helpDescription = `
Stack multiple TBC captures of the same tape into one lower-noise capture.

Highlights:
  - Aligns captures field by field, detecting and absorbing duplicated fields.
  - Per-sample median stacking rejects dropouts and single-capture noise.
  - Warns when a capture starts on the wrong field or drifts out of sync.
  - Output carries the primary capture's metadata, corrected for the result.

Give each capture with --input; the first one is the primary. Start fields
are 1-based and pair up with inputs in order.
`

var longHelp = strings.TrimSpace(helpDescription)

var exampleUsage = strings.TrimSpace(`
  fieldstack --input cap1 --input cap2 --input cap3 --output stacked
  fieldstack --input cap1 --input cap2 --input cap3 \
      --start-field 1,3,1 --dupes-to-drops --output stacked
  fieldstack --config $HOME/.fieldstack/config.toml --metrics-csv mse.csv
`)

func getVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}
	return "dev"
}

func main() {
	cfg := cliconfig.DefaultConfig()
	var cfgPath string

	root := &cobra.Command{
		Use:     "fieldstack",
		Short:   "Stack multiple TBC captures of the same tape into one lower-noise capture",
		Long:    longHelp,
		Example: exampleUsage,
		Version: fmt.Sprintf("%s %s/%s", getVersion(), runtime.GOOS, runtime.GOARCH),
		RunE: func(cmd *cobra.Command, args []string) error {
			// Load config file first (default $HOME/.fieldstack/config.toml),
			// then env, then flag overrides.
			cfgFile := cfgPath
			if cfgFile == "" {
				cfgFile = cliconfig.DefaultConfigPath()
			}

			changed := map[string]bool{}
			cmd.Flags().Visit(func(f *pflag.Flag) { changed[f.Name] = true })

			if cfgFile != "" && cliconfig.FileExists(cfgFile) {
				fc, err := cliconfig.LoadFileConfig(cfgFile)
				if err != nil {
					return fmt.Errorf("load config: %w", err)
				}
				if err := cliconfig.ApplyFileConfig(&cfg, fc, changed); err != nil {
					return err
				}
			}

			if err := cliconfig.ApplyEnvConfig(&cfg, changed); err != nil {
				return err
			}

			if err := cfg.Validate(); err != nil {
				return err
			}

			log := cliconfig.Logger(cfg.Verbose)
			log.Info().Interface("config", cfg).Msg("configuration")

			inputs := make([]fieldstack.InputConfig, len(cfg.Inputs))
			for i, p := range cfg.Inputs {
				inputs[i] = fieldstack.InputConfig{Path: p, StartField: cfg.StartFields[i]}
			}
			libCfg := fieldstack.Config{
				Inputs:           inputs,
				Output:           cfg.Output,
				MaxFields:        cfg.MaxFields,
				DupesToDrops:     cfg.DupesToDrops,
				DropoutThreshold: cfg.DropoutThreshold,
				HighMSEThreshold: cfg.HighMSEThreshold,
				DriftRunLength:   cfg.DriftRunLength,
				StartCheckWindow: cfg.StartCheckWindow,
				MinStackSize:     cfg.MinStackSize,
				ReadAhead:        cfg.ReadAhead,
				WriteBehind:      cfg.WriteBehind,
				Workers:          cfg.Workers,
				MetricsCSV:       cfg.MetricsCSV,
				FieldmapCSV:      cfg.FieldmapCSV,
			}
			// Threshold edits in the config file apply to the running session.
			if cfgFile != "" && cliconfig.FileExists(cfgFile) {
				libCfg.ConfigPath = cfgFile
			}

			st, err := fieldstack.New(libCfg,
				fieldstack.WithLogger(pkglog.NewZerologAdapterWithLogger(log)),
			)
			if err != nil {
				return fmt.Errorf("create stacker: %w", err)
			}

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if err := st.Run(ctx); err != nil {
				return fmt.Errorf("stack: %w", err)
			}
			return nil
		},
	}

	root.Flags().StringVar(&cfgPath, "config", "", "path to config file (default: $HOME/.fieldstack/config.toml)")
	root.Flags().StringArrayVar(&cfg.Inputs, "input", nil, "capture basename, primary first (repeatable, 3 to 15)")
	root.Flags().IntSliceVar(&cfg.StartFields, "start-field", nil, "1-based start field per input (default 1 for each)")
	root.Flags().StringVar(&cfg.Output, "output", cfg.Output, "output capture basename")

	root.Flags().IntVar(&cfg.MaxFields, "max-fields", cfg.MaxFields, "stop after this many output fields (0 = all)")
	root.Flags().BoolVar(&cfg.DupesToDrops, "dupes-to-drops", cfg.DupesToDrops, "convert duplicated fields to two-field drops")
	root.Flags().IntVar(&cfg.DropoutThreshold, "dropout-threshold", cfg.DropoutThreshold, "inputs that must agree on a dropout (0 = majority)")

	root.Flags().Float64Var(&cfg.HighMSEThreshold, "high-mse-threshold", cfg.HighMSEThreshold, "per-field MSE above which an input is flagged")
	root.Flags().IntVar(&cfg.DriftRunLength, "drift-run-length", cfg.DriftRunLength, "consecutive flagged fields before an input is excluded")
	root.Flags().IntVar(&cfg.StartCheckWindow, "start-check-window", cfg.StartCheckWindow, "initial fields covered by the wrong-start check")
	root.Flags().IntVar(&cfg.MinStackSize, "min-stack-size", cfg.MinStackSize, "fail when fewer inputs still contribute")

	root.Flags().IntVar(&cfg.ReadAhead, "read-ahead", cfg.ReadAhead, "per-input field prefetch depth")
	root.Flags().IntVar(&cfg.WriteBehind, "write-behind", cfg.WriteBehind, "output field queue depth")
	root.Flags().IntVar(&cfg.Workers, "workers", cfg.Workers, "stacking worker count (0 = all CPUs)")

	root.Flags().StringVar(&cfg.MetricsCSV, "metrics-csv", cfg.MetricsCSV, "write per-input MSE rows to this CSV")
	root.Flags().StringVar(&cfg.FieldmapCSV, "fieldmap-csv", cfg.FieldmapCSV, "write output-to-source field mapping to this CSV")

	root.Flags().BoolVarP(&cfg.Verbose, "verbose", "v", cfg.Verbose, "debug logging")

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
