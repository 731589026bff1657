package fieldstack

import (
	"context"
	"fmt"

	"github.com/tbc-tools/fieldstack/internal/adapters/csvout"
	"github.com/tbc-tools/fieldstack/internal/adapters/tbc"
	"github.com/tbc-tools/fieldstack/internal/domain"
	"github.com/tbc-tools/fieldstack/internal/ports"
	"github.com/tbc-tools/fieldstack/internal/stacker"
	"github.com/tbc-tools/fieldstack/internal/tuning"
)

// Stacker runs one stacking session. Create with New, run once with Run.
type Stacker struct {
	cfg  Config
	opts options
}

// New validates the configuration and creates a Stacker. Nothing is opened
// until Run.
func New(cfg Config, opts ...Option) (*Stacker, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &Stacker{cfg: cfg, opts: o}, nil
}

// Run opens all inputs, validates their geometry against the primary,
// creates the output, and drives the session to completion. On a fatal
// error, partial output already written is left in place.
func (s *Stacker) Run(ctx context.Context) error {
	cfg := s.cfg

	withChroma := tbc.HasChroma(cfg.Inputs[0].Path)

	readers := make([]*tbc.Reader, 0, len(cfg.Inputs))
	defer func() {
		for _, r := range readers {
			r.Close()
		}
	}()
	for i, in := range cfg.Inputs {
		r, err := tbc.Open(in.Path, in.StartField, cfg.ReadAhead, withChroma)
		if err != nil {
			return fmt.Errorf("input %d (%s): %w", i+1, in.Path, err)
		}
		readers = append(readers, r)
	}

	primary := readers[0].Meta()
	width := primary.VideoParameters.FieldWidth
	height := primary.VideoParameters.FieldHeight
	for i, r := range readers[1:] {
		p := r.Meta().VideoParameters
		if p.FieldWidth != width || p.FieldHeight != height {
			return fmt.Errorf("%w: input %d is %dx%d, primary is %dx%d",
				domain.ErrGeometryMismatch, i+2, p.FieldWidth, p.FieldHeight, width, height)
		}
	}

	sink, err := tbc.Create(cfg.Output, primary, withChroma, cfg.WriteBehind)
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}

	var metrics ports.MetricsWriter
	if cfg.MetricsCSV != "" {
		m, err := csvout.CreateMetrics(cfg.MetricsCSV)
		if err != nil {
			sink.Close()
			return fmt.Errorf("create metrics csv: %w", err)
		}
		metrics = m
	}
	var fieldmap ports.FieldmapWriter
	if cfg.FieldmapCSV != "" {
		fm, err := csvout.CreateFieldmap(cfg.FieldmapCSV)
		if err != nil {
			sink.Close()
			return fmt.Errorf("create fieldmap csv: %w", err)
		}
		fieldmap = fm
	}

	sources := make([]ports.FieldSource, len(readers))
	for i, r := range readers {
		sources[i] = r
	}

	var events stacker.EventSink
	if s.opts.handler != nil {
		events = eventBridge{handler: s.opts.handler}
	}

	session, err := stacker.New(
		stacker.Config{
			DupesToDrops:     cfg.DupesToDrops,
			MaxFields:        cfg.MaxFields,
			MinStack:         cfg.MinStackSize,
			DropoutThreshold: cfg.DropoutThreshold,
			HighMSE:          cfg.HighMSEThreshold,
			DriftRun:         cfg.DriftRunLength,
			StartWindow:      cfg.StartCheckWindow,
			Workers:          cfg.Workers,
		},
		stacker.SystemFor(primary.VideoParameters.System),
		width, height,
		stacker.Deps{
			Sources:  sources,
			Sink:     sink,
			Metrics:  metrics,
			Fieldmap: fieldmap,
			Events:   events,
			Logger:   s.opts.logger,
		},
	)
	if err != nil {
		sink.Close()
		return err
	}

	if cfg.ConfigPath != "" {
		watchCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		go tuning.New(cfg.ConfigPath, session.Tunables(), s.opts.logger).Run(watchCtx)
	}

	runErr := session.Run(ctx)

	if err := sink.Close(); err != nil && runErr == nil {
		runErr = fmt.Errorf("finalize output: %w", err)
	}
	if metrics != nil {
		if err := metrics.Close(); err != nil && runErr == nil {
			runErr = fmt.Errorf("finalize metrics csv: %w", err)
		}
	}
	if fieldmap != nil {
		if err := fieldmap.Close(); err != nil && runErr == nil {
			runErr = fmt.Errorf("finalize fieldmap csv: %w", err)
		}
	}
	return runErr
}
