package tbc

import (
	"encoding/json"
	"testing"
)

const sampleSidecar = `{
	"pcmAudioParameters": {"bits": 16, "isSigned": false},
	"videoParameters": {
		"system": "PAL",
		"fieldWidth": 1135,
		"fieldHeight": 313,
		"numberOfSequentialFields": 2,
		"sampleRate": 17734375,
		"isSubcarrierLocked": false
	},
	"fields": [
		{
			"isFirstField": true,
			"seqNo": 1,
			"diskLoc": 0,
			"vitsMetrics": {"bPSNR": 38.2, "wSNR": 33.1},
			"dropOuts": {"fieldLine": [12], "startx": [100], "endx": [140]}
		},
		{
			"isFirstField": false,
			"seqNo": 2,
			"diskLoc": 1
		}
	]
}`

func TestMetadata_ParsesKnownKeys(t *testing.T) {
	var m Metadata
	if err := json.Unmarshal([]byte(sampleSidecar), &m); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}

	p := m.VideoParameters
	if p.System != "PAL" || p.FieldWidth != 1135 || p.FieldHeight != 313 {
		t.Errorf("video parameters = %+v", p)
	}
	if p.NumberOfSequentialFields != 2 {
		t.Errorf("numberOfSequentialFields = %d, want 2", p.NumberOfSequentialFields)
	}
	if m.FieldSamples() != 1135*313 {
		t.Errorf("FieldSamples = %d, want %d", m.FieldSamples(), 1135*313)
	}

	if len(m.Fields) != 2 {
		t.Fatalf("fields = %d, want 2", len(m.Fields))
	}
	f := m.Fields[0]
	if !f.IsFirstField || f.SeqNo != 1 {
		t.Errorf("field 0 = %+v", f)
	}
	if f.VitsMetrics == nil || f.VitsMetrics.BPSNR != 38.2 {
		t.Errorf("field 0 vitsMetrics = %+v", f.VitsMetrics)
	}
	if f.DropOuts == nil || len(f.DropOuts.FieldLine) != 1 || f.DropOuts.StartX[0] != 100 {
		t.Errorf("field 0 dropOuts = %+v", f.DropOuts)
	}
	if m.Fields[1].VitsMetrics != nil || m.Fields[1].DropOuts != nil {
		t.Errorf("field 1 grew metrics/dropouts: %+v", m.Fields[1])
	}
}

func TestMetadata_PreservesUnknownKeys(t *testing.T) {
	var m Metadata
	if err := json.Unmarshal([]byte(sampleSidecar), &m); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	b, err := json.Marshal(m)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		t.Fatalf("reparse failed: %v", err)
	}
	if _, ok := raw["pcmAudioParameters"]; !ok {
		t.Error("top-level pcmAudioParameters was dropped")
	}

	var params map[string]json.RawMessage
	if err := json.Unmarshal(raw["videoParameters"], &params); err != nil {
		t.Fatalf("reparse videoParameters: %v", err)
	}
	if string(params["sampleRate"]) != "17734375" {
		t.Errorf("sampleRate = %s, want 17734375", params["sampleRate"])
	}

	var fields []map[string]json.RawMessage
	if err := json.Unmarshal(raw["fields"], &fields); err != nil {
		t.Fatalf("reparse fields: %v", err)
	}
	if string(fields[0]["diskLoc"]) != "0" || string(fields[1]["diskLoc"]) != "1" {
		t.Errorf("per-field diskLoc dropped: %v %v", fields[0]["diskLoc"], fields[1]["diskLoc"])
	}

	var vits map[string]json.RawMessage
	if err := json.Unmarshal(fields[0]["vitsMetrics"], &vits); err != nil {
		t.Fatalf("reparse vitsMetrics: %v", err)
	}
	if string(vits["wSNR"]) != "33.1" {
		t.Errorf("wSNR = %s, want 33.1", vits["wSNR"])
	}
}

func TestFieldMeta_CloneIsolatesExtra(t *testing.T) {
	var m Metadata
	if err := json.Unmarshal([]byte(sampleSidecar), &m); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	clone := m.Fields[0].Clone()
	clone.Extra["diskLoc"] = json.RawMessage("99")

	if string(m.Fields[0].Extra["diskLoc"]) != "0" {
		t.Errorf("clone edit leaked into the original: %s", m.Fields[0].Extra["diskLoc"])
	}
}
