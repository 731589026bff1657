package stacker

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/tbc-tools/fieldstack/internal/domain"
	"github.com/tbc-tools/fieldstack/internal/ports"
)

type fakeSource struct {
	fields []domain.Field
	pos    int
}

func (s *fakeSource) Next(ctx context.Context) (domain.Field, error) {
	if s.pos >= len(s.fields) {
		return domain.Field{}, io.EOF
	}
	f := s.fields[s.pos]
	s.pos++
	return f, nil
}

func (s *fakeSource) Close() error { return nil }

type fakeSink struct {
	fields []domain.OutputField
}

func (s *fakeSink) Write(ctx context.Context, f domain.OutputField) error {
	s.fields = append(s.fields, f)
	return nil
}

func (s *fakeSink) Close() error { return nil }

type metricsRecorder struct {
	rows [][3]float64 // step, input, mse
}

func (m *metricsRecorder) WriteSample(step, input int, mse float64) error {
	m.rows = append(m.rows, [3]float64{float64(step), float64(input), mse})
	return nil
}

func (m *metricsRecorder) Close() error { return nil }

type fieldmapRecorder struct {
	rows [][]int
}

func (m *fieldmapRecorder) WriteRow(step int, sources []int) error {
	m.rows = append(m.rows, append([]int{step}, sources...))
	return nil
}

func (m *fieldmapRecorder) Close() error { return nil }

type eventRecorder struct {
	highStart []int
	drifted   []int
	swallowed []int
	dropped   []int
}

func (e *eventRecorder) HighInitialMSE(input, step int, mse float64) {
	e.highStart = append(e.highStart, input)
}

func (e *eventRecorder) SustainedDrift(input, step int, mse float64) {
	e.drifted = append(e.drifted, input)
}

func (e *eventRecorder) DupeSwallowed(input, step int) {
	e.swallowed = append(e.swallowed, input)
}

func (e *eventRecorder) DupeConvertedToDrop(input, step int) {
	e.dropped = append(e.dropped, input)
}

const testFieldLen = 16

// makeFields builds n parity-alternating constant fields.
func makeFields(n int, value uint16) []domain.Field {
	out := make([]domain.Field, n)
	for i := range out {
		luma := make([]uint16, testFieldLen)
		for j := range luma {
			luma[j] = value
		}
		parity := domain.ParityFirst
		if i%2 == 1 {
			parity = domain.ParitySecond
		}
		out[i] = domain.Field{Luma: luma, Parity: parity, Index: i, SeqNo: i + 1}
	}
	return out
}

func newTestSession(t *testing.T, cfg Config, sink ports.FieldSink, deps Deps, fields ...[]domain.Field) *Session {
	t.Helper()
	deps.Sources = make([]ports.FieldSource, len(fields))
	for i, f := range fields {
		deps.Sources[i] = &fakeSource{fields: f}
	}
	deps.Sink = sink
	cfg.Workers = 1
	s, err := New(cfg, SystemPAL, 4, 4, deps)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return s
}

func TestSession_MedianOfThreeInputs(t *testing.T) {
	sink := &fakeSink{}
	metrics := &metricsRecorder{}
	s := newTestSession(t, Config{}, sink, Deps{Metrics: metrics},
		makeFields(4, 100), makeFields(4, 110), makeFields(4, 300))

	if err := s.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if len(sink.fields) != 4 {
		t.Fatalf("emitted %d fields, want 4", len(sink.fields))
	}
	for i, f := range sink.fields {
		if f.Duplicate {
			t.Errorf("field %d marked duplicate", i)
		}
		if f.SourceIndex != i {
			t.Errorf("field %d source index = %d, want %d", i, f.SourceIndex, i)
		}
		for j, v := range f.Luma {
			if v != 110 {
				t.Fatalf("field %d sample %d = %d, want median 110", i, j, v)
			}
		}
	}

	// 3 inputs times 4 steps, MSE against the median per input.
	if len(metrics.rows) != 12 {
		t.Fatalf("metrics rows = %d, want 12", len(metrics.rows))
	}
	wantMSE := map[float64]float64{1: 100, 2: 0, 3: 36100}
	for _, row := range metrics.rows {
		if row[2] != wantMSE[row[1]] {
			t.Errorf("input %g MSE = %g, want %g", row[1], row[2], wantMSE[row[1]])
		}
	}
}

func TestSession_IdenticalInputsReproduceInput(t *testing.T) {
	sink := &fakeSink{}
	s := newTestSession(t, Config{}, sink, Deps{},
		makeFields(6, 1234), makeFields(6, 1234), makeFields(6, 1234))

	if err := s.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if len(sink.fields) != 6 {
		t.Fatalf("emitted %d fields, want 6", len(sink.fields))
	}
	for i, f := range sink.fields {
		for _, v := range f.Luma {
			if v != 1234 {
				t.Fatalf("field %d not identical to inputs", i)
			}
		}
	}
}

// dupeAt inserts a duplicate of field at (same parity, next physical index)
// into a parity-alternating run.
func dupeAt(fields []domain.Field, at int, value uint16) []domain.Field {
	luma := make([]uint16, testFieldLen)
	for j := range luma {
		luma[j] = value
	}
	dupe := domain.Field{Luma: luma, Parity: fields[at].Parity}
	out := append(append([]domain.Field{}, fields[:at+1]...), dupe)
	out = append(out, fields[at+1:]...)
	for i := range out {
		out[i].Index = i
		out[i].SeqNo = i + 1
	}
	return out
}

func TestSession_DupeWrittenThrough(t *testing.T) {
	sink := &fakeSink{}
	events := &eventRecorder{}
	s := newTestSession(t, Config{}, sink, Deps{Events: events},
		makeFields(4, 100),
		dupeAt(makeFields(4, 100), 1, 777),
		makeFields(4, 100))

	if err := s.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	// Four stacked fields plus one dupe written through.
	if len(sink.fields) != 5 {
		t.Fatalf("emitted %d fields, want 5", len(sink.fields))
	}
	dupe := sink.fields[2]
	if !dupe.Duplicate {
		t.Fatal("field 3 not marked duplicate")
	}
	if dupe.Luma[0] != 777 {
		t.Errorf("dupe sample = %d, want the duped input's data (777)", dupe.Luma[0])
	}
	for i, f := range sink.fields {
		if i != 2 && f.Duplicate {
			t.Errorf("field %d unexpectedly marked duplicate", i)
		}
	}
	// The dupe was written, not swallowed: no swallow events.
	if len(events.swallowed) != 0 {
		t.Errorf("swallow events for inputs %v, want none", events.swallowed)
	}
}

func TestSession_DupesToDropsShortensOutputByTwo(t *testing.T) {
	sink := &fakeSink{}
	events := &eventRecorder{}
	s := newTestSession(t, Config{DupesToDrops: true}, sink, Deps{Events: events},
		makeFields(4, 100),
		dupeAt(makeFields(4, 100), 1, 777),
		makeFields(4, 100))

	if err := s.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	// The write-through rendition emits 5; converting the dupe to a drop
	// discards both the dupe and the following stacked field.
	if len(sink.fields) != 3 {
		t.Fatalf("emitted %d fields, want 3", len(sink.fields))
	}
	for i, f := range sink.fields {
		if f.Duplicate {
			t.Errorf("field %d marked duplicate", i)
		}
	}
	if len(events.dropped) != 1 || events.dropped[0] != 2 {
		t.Errorf("drop events = %v, want [2]", events.dropped)
	}
}

func TestSession_StackTooSmallFails(t *testing.T) {
	sink := &fakeSink{}
	s := newTestSession(t, Config{}, sink, Deps{},
		makeFields(4, 100), makeFields(4, 100), makeFields(2, 100))

	err := s.Run(context.Background())
	if !errors.Is(err, domain.ErrStackTooSmall) {
		t.Fatalf("Run error = %v, want ErrStackTooSmall", err)
	}
	if len(sink.fields) != 2 {
		t.Errorf("emitted %d fields before failing, want 2", len(sink.fields))
	}
}

func TestSession_MaxFieldsStopsEarly(t *testing.T) {
	sink := &fakeSink{}
	s := newTestSession(t, Config{MaxFields: 2}, sink, Deps{},
		makeFields(10, 100), makeFields(10, 100), makeFields(10, 100))

	if err := s.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if len(sink.fields) != 2 {
		t.Errorf("emitted %d fields, want 2", len(sink.fields))
	}
}

func TestSession_HighInitialMSEFlagsWrongStart(t *testing.T) {
	sink := &fakeSink{}
	events := &eventRecorder{}
	s := newTestSession(t, Config{HighMSE: 1, StartWindow: 10, MinStack: 2}, sink,
		Deps{Events: events},
		makeFields(4, 100), makeFields(4, 100), makeFields(4, 5000))

	if err := s.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if len(events.highStart) != 1 || events.highStart[0] != 3 {
		t.Errorf("high-start events = %v, want [3]", events.highStart)
	}
	if len(events.drifted) != 0 {
		t.Errorf("drift events inside start window: %v", events.drifted)
	}
}

func TestSession_SustainedDriftExcludesInput(t *testing.T) {
	sink := &fakeSink{}
	events := &eventRecorder{}
	fieldmap := &fieldmapRecorder{}
	s := newTestSession(t,
		Config{HighMSE: 1, StartWindow: 1, DriftRun: 2, MinStack: 2}, sink,
		Deps{Events: events, Fieldmap: fieldmap},
		makeFields(8, 100), makeFields(8, 100), makeFields(8, 5000))

	if err := s.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if len(events.drifted) != 1 || events.drifted[0] != 3 {
		t.Fatalf("drift events = %v, want [3]", events.drifted)
	}

	// Step 1 is inside the start window, steps 2 and 3 build the run, so the
	// input drops out of the group from step 4 on.
	if len(fieldmap.rows) != 8 {
		t.Fatalf("fieldmap rows = %d, want 8", len(fieldmap.rows))
	}
	for _, row := range fieldmap.rows[:3] {
		if row[3] == 0 {
			t.Errorf("step %d: input 3 missing before exclusion", row[0])
		}
	}
	for _, row := range fieldmap.rows[3:] {
		if row[3] != 0 {
			t.Errorf("step %d: input 3 still contributing after exclusion", row[0])
		}
	}

	// With the outlier gone the median of the two good inputs is exact.
	last := sink.fields[len(sink.fields)-1]
	if last.Luma[0] != 100 {
		t.Errorf("post-exclusion sample = %d, want 100", last.Luma[0])
	}
}

func TestSession_InputCountValidated(t *testing.T) {
	sink := &fakeSink{}
	sources := []ports.FieldSource{&fakeSource{}, &fakeSource{}}
	_, err := New(Config{}, SystemPAL, 4, 4, Deps{Sources: sources, Sink: sink})
	if !errors.Is(err, domain.ErrTooFewInputs) {
		t.Errorf("New with 2 inputs = %v, want ErrTooFewInputs", err)
	}

	sources = make([]ports.FieldSource, 16)
	for i := range sources {
		sources[i] = &fakeSource{}
	}
	_, err = New(Config{}, SystemPAL, 4, 4, Deps{Sources: sources, Sink: sink})
	if !errors.Is(err, domain.ErrTooManyInputs) {
		t.Errorf("New with 16 inputs = %v, want ErrTooManyInputs", err)
	}
}
