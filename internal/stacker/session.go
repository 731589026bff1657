package stacker

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/tbc-tools/fieldstack/internal/domain"
	"github.com/tbc-tools/fieldstack/internal/ports"
	"github.com/tbc-tools/fieldstack/pkg/log"
)

// Config holds the session tunables. The caller (pkg/fieldstack) is
// responsible for defaults; zero values are normalized defensively here so
// the session never divides by zero or stalls.
type Config struct {
	// DupesToDrops converts duplicate fields to two-field drops instead of
	// writing them through.
	DupesToDrops bool

	// MaxFields stops the session after emitting this many fields (0 = all).
	MaxFields int

	// MinStack is the smallest contributing group the session tolerates
	// before failing.
	MinStack int

	// DropoutThreshold is how many inputs must agree on a dropout for it to
	// be recorded (0 = ceil(contributors/2)).
	DropoutThreshold int

	// HighMSE is the desync disagreement threshold.
	HighMSE float64

	// DriftRun is the number of consecutive over-threshold steps before an
	// input is marked drifted.
	DriftRun int

	// StartWindow is the number of initial steps covered by the
	// wrong-starting-offset check.
	StartWindow int

	// Workers sizes the stacking pool (0 = NumCPU).
	Workers int
}

// Deps are the session's collaborators. Metrics and Fieldmap may be nil.
type Deps struct {
	Sources  []ports.FieldSource
	Sink     ports.FieldSink
	Metrics  ports.MetricsWriter
	Fieldmap ports.FieldmapWriter
	Events   EventSink
	Logger   log.Logger
}

// Session runs one stacking pass: it drives the aligner step by step,
// stacks each StackGroup, scores it, and emits the combined fields in
// order. Construct with New, run once with Run.
type Session struct {
	cfg  Config
	deps Deps

	cursors []*cursor
	aligner *aligner
	tun     *Tunables
	det     *detector
	pool    *Pool

	sys      System
	width    int
	height   int
	fieldLen int

	runID string
}

// New validates the input count and assembles a session.
// sys, width and height come from the primary input's metadata.
func New(cfg Config, sys System, width, height int, deps Deps) (*Session, error) {
	if len(deps.Sources) < 3 {
		return nil, domain.ErrTooFewInputs
	}
	if len(deps.Sources) > maxInputs {
		return nil, domain.ErrTooManyInputs
	}
	if deps.Events == nil {
		deps.Events = NoopEvents{}
	}
	if deps.Logger == nil {
		deps.Logger = log.NewNoopLogger()
	}
	if cfg.MinStack <= 0 {
		cfg.MinStack = 3
	}
	if cfg.HighMSE <= 0 {
		cfg.HighMSE = DefaultHighMSE
	}
	if cfg.DriftRun <= 0 {
		cfg.DriftRun = DefaultDriftRun
	}
	if cfg.StartWindow <= 0 {
		cfg.StartWindow = DefaultStartWindow
	}

	fieldLen := width * height
	cursors := make([]*cursor, len(deps.Sources))
	for i, src := range deps.Sources {
		cursors[i] = &cursor{id: i, src: src}
	}
	tun := NewTunables(cfg.HighMSE, cfg.DriftRun)

	return &Session{
		cfg:      cfg,
		deps:     deps,
		cursors:  cursors,
		aligner:  newAligner(cursors, cfg.DupesToDrops, cfg.MinStack),
		tun:      tun,
		det:      newDetector(tun, cfg.StartWindow, len(cursors)),
		pool:     NewPool(cfg.Workers),
		sys:      sys.Clamp(fieldLen),
		width:    width,
		height:   height,
		fieldLen: fieldLen,
		runID:    uuid.NewString(),
	}, nil
}

// Tunables exposes the live-tunable thresholds (see internal/tuning).
func (s *Session) Tunables() *Tunables { return s.tun }

// Run executes the session until the primary input is exhausted, the field
// budget is reached, or a fatal error occurs. The caller owns closing the
// sink and the diagnostic writers.
func (s *Session) Run(ctx context.Context) error {
	start := time.Now()
	s.deps.Logger.Info("session starting",
		log.String("run_id", s.runID),
		log.Int("inputs", len(s.cursors)),
		log.String("system", s.sys.Name),
		log.Int("field_samples", s.fieldLen))

	usefulLen := s.sys.UsefulEnd - s.sys.UsefulStart
	emitted := 0
	dropNext := false

	for {
		if s.cfg.MaxFields > 0 && emitted >= s.cfg.MaxFields {
			break
		}
		res, err := s.aligner.next(ctx)
		if err != nil {
			return err
		}
		if res.kind == stepDone {
			break
		}

		step := emitted + 1 // 1-based, for events and diagnostics

		switch res.kind {
		case stepDupe:
			s.deps.Logger.Warn("writing out dupe",
				log.Int("input", res.dupeInput+1), log.Int("field", step))
			for _, id := range res.swallowed {
				s.deps.Logger.Warn("swallowing dupe",
					log.Int("input", id+1), log.Int("field", step))
				s.deps.Events.DupeSwallowed(id+1, step)
			}
			out := domain.OutputField{
				Luma:        res.dupeField.Luma,
				Chroma:      res.dupeField.Chroma,
				Dropouts:    res.dupeField.Dropouts,
				BlackPSNR:   BlackPSNR(res.dupeField.Luma, s.sys),
				SourceIndex: res.primaryIndex,
				Duplicate:   true,
			}
			if err := s.deps.Sink.Write(ctx, out); err != nil {
				return err
			}
			emitted++

		case stepSwallow:
			for _, id := range res.swallowed {
				s.deps.Logger.Warn("swallowing dupe",
					log.Int("input", id+1), log.Int("field", step))
				s.deps.Events.DupeSwallowed(id+1, step)
			}

		case stepDropPair:
			for _, id := range res.swallowed {
				s.deps.Logger.Warn("dropping dupe field and the following one",
					log.Int("input", id+1), log.Int("field", step))
				s.deps.Events.DupeConvertedToDrop(id+1, step)
			}
			dropNext = true

		case stepStack:
			if dropNext {
				// The fields following a converted dupe are consumed but
				// never written.
				dropNext = false
				continue
			}
			if err := s.stackAndEmit(ctx, res, step, usefulLen); err != nil {
				return err
			}
			emitted++
		}
	}

	dupes := 0
	for _, c := range s.cursors {
		dupes += c.dupes
	}
	elapsed := time.Since(start)
	fps := 0.0
	if elapsed > 0 {
		fps = float64(emitted/2) / elapsed.Seconds()
	}
	s.deps.Logger.Info("session finished",
		log.String("run_id", s.runID),
		log.Int("fields", emitted),
		log.Int("frames", emitted/2),
		log.Int("dupes", dupes),
		log.Dur("elapsed", elapsed),
		log.Float64("fps", fps))
	return nil
}

func (s *Session) stackAndEmit(ctx context.Context, res stepResult, step, usefulLen int) error {
	group := make([][]uint16, len(res.group))
	for i, f := range res.group {
		group[i] = f.Luma
	}
	luma := make([]uint16, s.fieldLen)
	sse := s.pool.Stack(luma, group, s.sys.UsefulStart, s.sys.UsefulEnd)

	var chroma []uint16
	if res.group[0].Chroma != nil {
		for i, f := range res.group {
			group[i] = f.Chroma
		}
		chroma = make([]uint16, s.fieldLen)
		// Useful-region bounds are zeroed: chroma never feeds the heuristic.
		s.pool.Stack(chroma, group, 0, 0)
	}

	// Desync scoring, ascending input id.
	for i, id := range res.members {
		mse := float64(sse[i]) / float64(usefulLen)
		switch s.det.observe(step-1, id, mse) {
		case verdictHighStart:
			s.deps.Logger.Warn("very high MSE at start of run, wrong starting field?",
				log.Int("input", id+1), log.Int("field", step), log.Float64("mse", mse))
			s.deps.Events.HighInitialMSE(id+1, step, mse)
		case verdictDrift:
			s.deps.Logger.Warn("sustained high MSE, marking input as drifted",
				log.Int("input", id+1), log.Int("field", step), log.Float64("mse", mse))
			s.deps.Events.SustainedDrift(id+1, step, mse)
			s.aligner.markDrifted(id)
		}
		if s.deps.Metrics != nil {
			if err := s.deps.Metrics.WriteSample(step, id+1, mse); err != nil {
				return err
			}
		}
	}

	if s.deps.Fieldmap != nil {
		sources := make([]int, len(s.cursors))
		for i, id := range res.members {
			sources[id] = res.group[i].Index + 1
		}
		if err := s.deps.Fieldmap.WriteRow(step, sources); err != nil {
			return err
		}
	}

	threshold := s.cfg.DropoutThreshold
	if threshold <= 0 {
		threshold = (len(res.group) + 1) / 2
	}
	sets := make([]*domain.Dropouts, 0, len(res.group))
	for _, f := range res.group {
		if f.Dropouts.Len() > 0 {
			sets = append(sets, f.Dropouts)
		}
	}
	dropouts := MergeDropouts(sets, s.width, s.height, threshold)

	out := domain.OutputField{
		Luma:        luma,
		Chroma:      chroma,
		Dropouts:    dropouts,
		BlackPSNR:   BlackPSNR(luma, s.sys),
		SourceIndex: res.primaryIndex,
	}
	return s.deps.Sink.Write(ctx, out)
}
