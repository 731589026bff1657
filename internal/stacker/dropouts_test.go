package stacker

import (
	"testing"

	"github.com/tbc-tools/fieldstack/internal/domain"
)

func TestMergeDropouts_MajorityAgreement(t *testing.T) {
	// Three inputs, two agree on a run around samples [10, 30) of line 2.
	sets := []*domain.Dropouts{
		{Line: []int{2}, StartX: []int{10}, EndX: []int{30}},
		{Line: []int{2}, StartX: []int{15}, EndX: []int{35}},
		{Line: []int{7}, StartX: []int{0}, EndX: []int{5}},
	}
	got := MergeDropouts(sets, 100, 10, 2)
	if got.Len() != 1 {
		t.Fatalf("merged runs = %d, want 1", got.Len())
	}
	if got.Line[0] != 2 || got.StartX[0] != 15 || got.EndX[0] != 30 {
		t.Errorf("merged run = line %d [%d, %d), want line 2 [15, 30)",
			got.Line[0], got.StartX[0], got.EndX[0])
	}
}

func TestMergeDropouts_BelowThresholdDiscarded(t *testing.T) {
	sets := []*domain.Dropouts{
		{Line: []int{1}, StartX: []int{10}, EndX: []int{20}},
	}
	if got := MergeDropouts(sets, 100, 10, 2); got != nil {
		t.Errorf("lone dropout survived threshold 2: %+v", got)
	}
}

func TestMergeDropouts_TouchingRunsStayMerged(t *testing.T) {
	sets := []*domain.Dropouts{
		{Line: []int{0, 0}, StartX: []int{10, 20}, EndX: []int{20, 30}},
	}
	got := MergeDropouts(sets, 100, 10, 1)
	if got.Len() != 1 {
		t.Fatalf("merged runs = %d, want 1 (%+v)", got.Len(), got)
	}
	if got.StartX[0] != 10 || got.EndX[0] != 30 {
		t.Errorf("merged run = [%d, %d), want [10, 30)", got.StartX[0], got.EndX[0])
	}
}

func TestMergeDropouts_LinesOutsideFieldDiscarded(t *testing.T) {
	sets := []*domain.Dropouts{
		{Line: []int{12, 3}, StartX: []int{0, 5}, EndX: []int{10, 9}},
		{Line: []int{3}, StartX: []int{5}, EndX: []int{9}},
	}
	got := MergeDropouts(sets, 100, 10, 2)
	if got.Len() != 1 {
		t.Fatalf("merged runs = %d, want 1", got.Len())
	}
	if got.Line[0] != 3 {
		t.Errorf("merged line = %d, want 3", got.Line[0])
	}
}

func TestMergeDropouts_Empty(t *testing.T) {
	if got := MergeDropouts(nil, 100, 10, 1); got != nil {
		t.Errorf("MergeDropouts(nil) = %+v, want nil", got)
	}
}
