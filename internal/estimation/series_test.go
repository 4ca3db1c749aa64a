package estimation

import (
	"testing"

	"glucotune/internal/model"
)

func TestFilterGlucoseOverlap(t *testing.T) {
	// One sample before the window, one touching its start, one inside, one
	// straddling its end, one exactly at its end, one after it.
	samples := []model.GlucoseSample{
		{Start: at(-10), End: at(-10), Value: 90},
		{Start: at(-5), End: at(0), Value: 95},
		{Start: at(10), End: at(10), Value: 100},
		{Start: at(25), End: at(35), Value: 105},
		{Start: at(30), End: at(30), Value: 110},
		{Start: at(45), End: at(45), Value: 115},
	}

	got := FilterGlucose(samples, at(0), at(30))
	if len(got) != 3 {
		t.Fatalf("expected 3 overlapping samples, got %d: %#v", len(got), got)
	}
	if got[0].Value != 95 || got[1].Value != 100 || got[2].Value != 105 {
		t.Fatalf("unexpected samples kept: %#v", got)
	}
}

func TestFilterEffectsEmptyWindow(t *testing.T) {
	samples := []model.EffectSample{
		{Start: at(0), End: at(0), Value: 1},
		{Start: at(5), End: at(5), Value: 2},
	}
	if got := FilterEffects(samples, at(10), at(10)); len(got) != 0 {
		t.Fatalf("zero-width window should keep nothing, got %#v", got)
	}
}

func TestFilterPreservesOrder(t *testing.T) {
	samples := []model.GlucoseSample{
		{Start: at(0), End: at(0), Value: 1},
		{Start: at(5), End: at(5), Value: 2},
		{Start: at(10), End: at(10), Value: 3},
	}
	got := FilterGlucose(samples, at(0), at(15))
	for i := 1; i < len(got); i++ {
		if got[i].Start.Before(got[i-1].Start) {
			t.Fatalf("order not preserved: %#v", got)
		}
	}
}
