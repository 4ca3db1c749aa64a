package estimation

import (
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"glucotune/internal/model"
)

func TestAssembleFastingOnly(t *testing.T) {
	res := assemble(t, 0, 180, nil)

	if len(res.Intervals) != 1 {
		t.Fatalf("expected 1 fasting interval, got %d", len(res.Intervals))
	}
	iv := res.Intervals[0]
	if iv.Type != Fasting || !iv.Start.Equal(at(0)) || !iv.End.Equal(at(180)) {
		t.Fatalf("unexpected interval: %v %s-%s", iv.Type, iv.Start, iv.End)
	}
	verifyInvariants(t, res)
}

func TestAssembleEndToEnd(t *testing.T) {
	res := assemble(t, 0, 180, []model.CarbAbsorptionRecord{
		carbRecord(30, 90, 40, 32, 0),
	})

	if len(res.Intervals) != 3 {
		t.Fatalf("expected 3 intervals, got %d", len(res.Intervals))
	}
	wantTypes := []IntervalType{Fasting, CarbAbsorption, Fasting}
	wantBounds := [][2]int{{0, 30}, {30, 90}, {90, 180}}
	for i, iv := range res.Intervals {
		if iv.Type != wantTypes[i] {
			t.Fatalf("interval %d type = %v, want %v", i, iv.Type, wantTypes[i])
		}
		if !iv.Start.Equal(at(wantBounds[i][0])) || !iv.End.Equal(at(wantBounds[i][1])) {
			t.Fatalf("interval %d bounds = %s-%s", i, iv.Start, iv.End)
		}
		if len(iv.Glucose) < minGlucoseSamples {
			t.Fatalf("interval %d carries only %d glucose samples", i, len(iv.Glucose))
		}
	}
	carb := res.Intervals[1]
	if !carb.EnteredCarbs.Equal(decimal.NewFromInt(40)) || !carb.ObservedCarbs.Equal(decimal.NewFromInt(32)) {
		t.Fatalf("carb totals = %s/%s, want 40/32", carb.EnteredCarbs, carb.ObservedCarbs)
	}
	verifyInvariants(t, res)
}

func TestAssembleMergeOverlappingRecords(t *testing.T) {
	res := assemble(t, 0, 180, []model.CarbAbsorptionRecord{
		carbRecord(30, 90, 40, 32, 0),
		carbRecord(60, 120, 20, 10, 0),
	})

	if len(res.Intervals) != 3 {
		t.Fatalf("expected 3 intervals after merge, got %d", len(res.Intervals))
	}
	carb := res.Intervals[1]
	if carb.Type != CarbAbsorption || !carb.Start.Equal(at(30)) || !carb.End.Equal(at(120)) {
		t.Fatalf("merged interval = %v %s-%s", carb.Type, carb.Start, carb.End)
	}
	if !carb.EnteredCarbs.Equal(decimal.NewFromInt(60)) || !carb.ObservedCarbs.Equal(decimal.NewFromInt(42)) {
		t.Fatalf("merge additivity violated: %s/%s, want 60/42", carb.EnteredCarbs, carb.ObservedCarbs)
	}
	verifyInvariants(t, res)
}

func TestAssembleAdjacentRecordsMerge(t *testing.T) {
	res := assemble(t, 0, 180, []model.CarbAbsorptionRecord{
		carbRecord(30, 60, 25, 20, 0),
		carbRecord(60, 90, 15, 12, 0),
	})

	if len(res.Intervals) != 3 {
		t.Fatalf("adjacent carb records must merge, got %d intervals", len(res.Intervals))
	}
	carb := res.Intervals[1]
	if !carb.Start.Equal(at(30)) || !carb.End.Equal(at(90)) {
		t.Fatalf("merged bounds = %s-%s", carb.Start, carb.End)
	}
	if !carb.EnteredCarbs.Equal(decimal.NewFromInt(40)) {
		t.Fatalf("entered carbs = %s, want 40", carb.EnteredCarbs)
	}
	verifyInvariants(t, res)
}

func TestAssembleGapBetweenRecords(t *testing.T) {
	res := assemble(t, 0, 180, []model.CarbAbsorptionRecord{
		carbRecord(30, 60, 25, 20, 0),
		carbRecord(90, 120, 15, 12, 0),
	})

	wantTypes := []IntervalType{Fasting, CarbAbsorption, Fasting, CarbAbsorption, Fasting}
	if len(res.Intervals) != len(wantTypes) {
		t.Fatalf("expected %d intervals, got %d", len(wantTypes), len(res.Intervals))
	}
	for i, iv := range res.Intervals {
		if iv.Type != wantTypes[i] {
			t.Fatalf("interval %d type = %v, want %v", i, iv.Type, wantTypes[i])
		}
	}
	verifyInvariants(t, res)
}

func TestAssembleActiveAbsorptionBeforeWindow(t *testing.T) {
	res := assemble(t, 0, 180, []model.CarbAbsorptionRecord{
		carbRecord(-20, 40, 30, 10, 45*time.Minute),
	})

	if len(res.Intervals) != 0 {
		t.Fatalf("collapsed window must carry no intervals, got %d", len(res.Intervals))
	}
	if !res.Start.Equal(res.End) {
		t.Fatalf("window should collapse: %s-%s", res.Start, res.End)
	}
	if !strings.Contains(res.Status, "collapsed") {
		t.Fatalf("status should describe the collapse: %q", res.Status)
	}
}

func TestAssembleActiveAbsorptionAfterWindow(t *testing.T) {
	res := assemble(t, 0, 180, []model.CarbAbsorptionRecord{
		carbRecord(30, 90, 40, 32, 0),
		carbRecord(200, 260, 30, 5, 50*time.Minute),
	})

	if len(res.Intervals) != 3 {
		t.Fatalf("expected 3 intervals, got %d", len(res.Intervals))
	}
	if !res.End.Equal(at(180)) {
		t.Fatalf("window end should be untouched, got %s", res.End)
	}
	last := res.Intervals[2]
	if last.Type != Fasting || !last.End.Equal(at(180)) {
		t.Fatalf("trailing interval = %v ending %s", last.Type, last.End)
	}
	verifyInvariants(t, res)
}

func TestAssembleActiveAbsorptionTruncatesWindow(t *testing.T) {
	res := assemble(t, 0, 180, []model.CarbAbsorptionRecord{
		carbRecord(30, 90, 40, 32, 0),
		carbRecord(120, 170, 30, 5, 50*time.Minute),
	})

	if !res.End.Equal(at(120)) {
		t.Fatalf("window should truncate to the active onset, got %s", res.End)
	}
	if len(res.Intervals) != 3 {
		t.Fatalf("expected 3 intervals, got %d", len(res.Intervals))
	}
	last := res.Intervals[2]
	if last.Type != Fasting || !last.Start.Equal(at(90)) || !last.End.Equal(at(120)) {
		t.Fatalf("trailing fasting = %s-%s", last.Start, last.End)
	}
	verifyInvariants(t, res)
}

func TestAssembleActiveAbsorptionRollsBack(t *testing.T) {
	res := assemble(t, 0, 180, []model.CarbAbsorptionRecord{
		carbRecord(30, 90, 40, 32, 0),
		carbRecord(60, 130, 30, 5, 50*time.Minute),
	})

	// The active onset at 60 min lands inside the assembled carb interval,
	// which must be discarded entirely.
	if !res.End.Equal(at(30)) {
		t.Fatalf("window should roll back to 30min, got %s", res.End)
	}
	if len(res.Intervals) != 1 {
		t.Fatalf("expected only the leading fasting interval, got %d", len(res.Intervals))
	}
	iv := res.Intervals[0]
	if iv.Type != Fasting || !iv.End.Equal(at(30)) {
		t.Fatalf("remaining interval = %v ending %s", iv.Type, iv.End)
	}
	verifyInvariants(t, res)
}

func TestAssemblePreWindowRecordAdvancesStart(t *testing.T) {
	res := assemble(t, 0, 180, []model.CarbAbsorptionRecord{
		carbRecord(-30, 20, 35, 30, 0),
		carbRecord(60, 90, 20, 15, 0),
	})

	if !res.Start.Equal(at(20)) {
		t.Fatalf("window start should advance past the pre-window record, got %s", res.Start)
	}
	if len(res.Intervals) != 3 {
		t.Fatalf("expected 3 intervals, got %d", len(res.Intervals))
	}
	if !res.Intervals[0].Start.Equal(at(20)) {
		t.Fatalf("leading fasting starts at %s, want 20min", res.Intervals[0].Start)
	}
	verifyInvariants(t, res)
}

func TestAssemblePreWindowOnlyRecords(t *testing.T) {
	res := assemble(t, 0, 180, []model.CarbAbsorptionRecord{
		carbRecord(-60, 30, 35, 30, 0),
	})

	if len(res.Intervals) != 1 {
		t.Fatalf("expected one fasting interval, got %d", len(res.Intervals))
	}
	iv := res.Intervals[0]
	if !iv.Start.Equal(at(30)) || !iv.End.Equal(at(180)) {
		t.Fatalf("fasting bounds = %s-%s, want 30-180min", iv.Start, iv.End)
	}
	verifyInvariants(t, res)
}

func TestAssembleRecordAtSessionStart(t *testing.T) {
	res := assemble(t, 0, 180, []model.CarbAbsorptionRecord{
		carbRecord(0, 60, 40, 32, 0),
	})

	// No zero-width leading fasting interval is emitted.
	if len(res.Intervals) != 2 {
		t.Fatalf("expected 2 intervals, got %d", len(res.Intervals))
	}
	if res.Intervals[0].Type != CarbAbsorption {
		t.Fatalf("first interval should be carb absorption, got %v", res.Intervals[0].Type)
	}
	verifyInvariants(t, res)
}

func TestAssembleIncompleteRecordSkipped(t *testing.T) {
	broken := carbRecord(30, 60, 20, 15, 0)
	broken.ObservedCarbs = nil

	res := assemble(t, 0, 180, []model.CarbAbsorptionRecord{
		broken,
		carbRecord(90, 120, 25, 20, 0),
	})

	if !strings.Contains(res.Status, "missing absorption fields") {
		t.Fatalf("status should record the extraction fault: %q", res.Status)
	}
	// The broken record contributes nothing; the good one still segments.
	if len(res.Intervals) != 3 {
		t.Fatalf("expected 3 intervals, got %d", len(res.Intervals))
	}
	if res.Intervals[1].Type != CarbAbsorption || !res.Intervals[1].Start.Equal(at(90)) {
		t.Fatalf("carb interval = %v starting %s", res.Intervals[1].Type, res.Intervals[1].Start)
	}
	verifyInvariants(t, res)
}

// verifyInvariants checks the tiling and type-alternation invariants.
func verifyInvariants(t *testing.T, res AssemblyResult) {
	t.Helper()
	if len(res.Intervals) == 0 {
		return
	}
	if !res.Intervals[0].Start.Equal(res.Start) {
		t.Fatalf("first interval starts at %s, window starts at %s", res.Intervals[0].Start, res.Start)
	}
	if !res.Intervals[len(res.Intervals)-1].End.Equal(res.End) {
		t.Fatalf("last interval ends at %s, window ends at %s", res.Intervals[len(res.Intervals)-1].End, res.End)
	}
	for i := 1; i < len(res.Intervals); i++ {
		prev, cur := res.Intervals[i-1], res.Intervals[i]
		if !cur.Start.Equal(prev.End) {
			t.Fatalf("gap or overlap between interval %d and %d: %s vs %s", i-1, i, prev.End, cur.Start)
		}
		if prev.Type == CarbAbsorption && cur.Type == CarbAbsorption {
			t.Fatalf("adjacent carb-absorption intervals at %d", i)
		}
	}
	for i, iv := range res.Intervals {
		if !iv.Start.Before(iv.End) {
			t.Fatalf("interval %d is empty or inverted: %s-%s", i, iv.Start, iv.End)
		}
	}
}

func assemble(t *testing.T, startMin, endMin int, records []model.CarbAbsorptionRecord) AssemblyResult {
	t.Helper()
	glucose := glucoseRamp(startMin-30, endMin+30, 120, -0.1)
	insulin := effectRamp(startMin-30, endMin+30, 60, -0.2)
	basal := effectRamp(startMin-30, endMin+30, 0, 0.05)
	return NewAssembler(testLogger()).Assemble(at(startMin), at(endMin), glucose, insulin, basal, records)
}

var testBase = time.Date(2026, 8, 25, 6, 0, 0, 0, time.UTC)

func at(min int) time.Time {
	return testBase.Add(time.Duration(min) * time.Minute)
}

// glucoseRamp emits a point sample every 5 minutes with a linear value ramp.
func glucoseRamp(fromMin, toMin int, start, perMinute float64) []model.GlucoseSample {
	var out []model.GlucoseSample
	for m := fromMin; m < toMin; m += 5 {
		v := start + perMinute*float64(m-fromMin)
		out = append(out, model.GlucoseSample{Start: at(m), End: at(m), Value: v})
	}
	return out
}

func effectRamp(fromMin, toMin int, start, perMinute float64) []model.EffectSample {
	var out []model.EffectSample
	for m := fromMin; m < toMin; m += 5 {
		v := start + perMinute*float64(m-fromMin)
		out = append(out, model.EffectSample{Start: at(m), End: at(m), Value: v})
	}
	return out
}

func carbRecord(startMin, endMin int, entered, observed float64, remaining time.Duration) model.CarbAbsorptionRecord {
	s, e := at(startMin), at(endMin)
	en := decimal.NewFromFloat(entered)
	ob := decimal.NewFromFloat(observed)
	return model.CarbAbsorptionRecord{
		Start:         &s,
		End:           &e,
		EnteredCarbs:  &en,
		ObservedCarbs: &ob,
		TimeRemaining: &remaining,
	}
}

func testLogger() zerolog.Logger {
	return zerolog.Nop()
}
