// Package tbc reads and writes time-base-corrected capture streams: raw
// little-endian uint16 sample files (<base>.tbc, optional <base>_chroma.tbc)
// and the JSON metadata sidecar (<base>.tbc.json).
//
// Sidecar parsing preserves unknown keys at every level so that the primary
// input's metadata can be propagated verbatim to the output.
package tbc

import (
	"encoding/json"
	"fmt"
	"os"
)

// Metadata is the parsed .tbc.json sidecar.
type Metadata struct {
	VideoParameters VideoParameters
	Fields          []FieldMeta

	// Extra holds top-level keys this tool does not interpret.
	Extra map[string]json.RawMessage
}

// VideoParameters describes the capture geometry and system.
type VideoParameters struct {
	System                   string
	FieldWidth               int
	FieldHeight              int
	NumberOfSequentialFields int

	Extra map[string]json.RawMessage
}

// FieldMeta is the sidecar entry for one physical field.
type FieldMeta struct {
	IsFirstField bool
	SeqNo        int
	VitsMetrics  *VitsMetrics
	DropOuts     *DropOuts

	Extra map[string]json.RawMessage
}

// VitsMetrics carries per-field signal quality figures.
type VitsMetrics struct {
	BPSNR float64

	Extra map[string]json.RawMessage
}

// DropOuts lists dropout runs as parallel arrays, matching the sidecar schema.
type DropOuts struct {
	FieldLine []int `json:"fieldLine"`
	StartX    []int `json:"startx"`
	EndX      []int `json:"endx"`
}

// LoadMetadata reads and parses a sidecar file.
func LoadMetadata(path string) (*Metadata, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var m Metadata
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return &m, nil
}

// FieldSamples returns the number of samples per field.
func (m *Metadata) FieldSamples() int {
	return m.VideoParameters.FieldWidth * m.VideoParameters.FieldHeight
}

// Clone returns a deep-enough copy of the field entry: struct fields are
// copied and the Extra map is duplicated; raw values are shared (immutable).
func (f FieldMeta) Clone() FieldMeta {
	out := f
	if f.Extra != nil {
		out.Extra = make(map[string]json.RawMessage, len(f.Extra))
		for k, v := range f.Extra {
			out.Extra[k] = v
		}
	}
	return out
}

// takeRaw decodes raw[key] into dst (if present) and removes it from raw.
func takeRaw(raw map[string]json.RawMessage, key string, dst interface{}) error {
	v, ok := raw[key]
	if !ok {
		return nil
	}
	delete(raw, key)
	if err := json.Unmarshal(v, dst); err != nil {
		return fmt.Errorf("field %q: %w", key, err)
	}
	return nil
}

// putRaw encodes v into out[key].
func putRaw(out map[string]json.RawMessage, key string, v interface{}) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	out[key] = b
	return nil
}

func mergeExtra(out, extra map[string]json.RawMessage) {
	for k, v := range extra {
		out[k] = v
	}
}

// UnmarshalJSON captures unknown keys into Extra.
func (m *Metadata) UnmarshalJSON(b []byte) error {
	raw := map[string]json.RawMessage{}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	if err := takeRaw(raw, "videoParameters", &m.VideoParameters); err != nil {
		return err
	}
	if err := takeRaw(raw, "fields", &m.Fields); err != nil {
		return err
	}
	m.Extra = raw
	return nil
}

// MarshalJSON re-emits known keys alongside the preserved unknown ones.
func (m Metadata) MarshalJSON() ([]byte, error) {
	out := make(map[string]json.RawMessage, len(m.Extra)+2)
	mergeExtra(out, m.Extra)
	if err := putRaw(out, "videoParameters", m.VideoParameters); err != nil {
		return nil, err
	}
	if err := putRaw(out, "fields", m.Fields); err != nil {
		return nil, err
	}
	return json.Marshal(out)
}

func (p *VideoParameters) UnmarshalJSON(b []byte) error {
	raw := map[string]json.RawMessage{}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	if err := takeRaw(raw, "system", &p.System); err != nil {
		return err
	}
	if err := takeRaw(raw, "fieldWidth", &p.FieldWidth); err != nil {
		return err
	}
	if err := takeRaw(raw, "fieldHeight", &p.FieldHeight); err != nil {
		return err
	}
	if err := takeRaw(raw, "numberOfSequentialFields", &p.NumberOfSequentialFields); err != nil {
		return err
	}
	p.Extra = raw
	return nil
}

func (p VideoParameters) MarshalJSON() ([]byte, error) {
	out := make(map[string]json.RawMessage, len(p.Extra)+4)
	mergeExtra(out, p.Extra)
	if err := putRaw(out, "system", p.System); err != nil {
		return nil, err
	}
	if err := putRaw(out, "fieldWidth", p.FieldWidth); err != nil {
		return nil, err
	}
	if err := putRaw(out, "fieldHeight", p.FieldHeight); err != nil {
		return nil, err
	}
	if err := putRaw(out, "numberOfSequentialFields", p.NumberOfSequentialFields); err != nil {
		return nil, err
	}
	return json.Marshal(out)
}

func (f *FieldMeta) UnmarshalJSON(b []byte) error {
	raw := map[string]json.RawMessage{}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	if err := takeRaw(raw, "isFirstField", &f.IsFirstField); err != nil {
		return err
	}
	if err := takeRaw(raw, "seqNo", &f.SeqNo); err != nil {
		return err
	}
	if err := takeRaw(raw, "vitsMetrics", &f.VitsMetrics); err != nil {
		return err
	}
	if err := takeRaw(raw, "dropOuts", &f.DropOuts); err != nil {
		return err
	}
	f.Extra = raw
	return nil
}

func (f FieldMeta) MarshalJSON() ([]byte, error) {
	out := make(map[string]json.RawMessage, len(f.Extra)+4)
	mergeExtra(out, f.Extra)
	if err := putRaw(out, "isFirstField", f.IsFirstField); err != nil {
		return nil, err
	}
	if err := putRaw(out, "seqNo", f.SeqNo); err != nil {
		return nil, err
	}
	if f.VitsMetrics != nil {
		if err := putRaw(out, "vitsMetrics", f.VitsMetrics); err != nil {
			return nil, err
		}
	}
	if f.DropOuts != nil {
		if err := putRaw(out, "dropOuts", f.DropOuts); err != nil {
			return nil, err
		}
	}
	return json.Marshal(out)
}

func (v *VitsMetrics) UnmarshalJSON(b []byte) error {
	raw := map[string]json.RawMessage{}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	if err := takeRaw(raw, "bPSNR", &v.BPSNR); err != nil {
		return err
	}
	v.Extra = raw
	return nil
}

func (v VitsMetrics) MarshalJSON() ([]byte, error) {
	out := make(map[string]json.RawMessage, len(v.Extra)+1)
	mergeExtra(out, v.Extra)
	if err := putRaw(out, "bPSNR", v.BPSNR); err != nil {
		return nil, err
	}
	return json.Marshal(out)
}
