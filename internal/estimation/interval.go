package estimation

import (
	"time"

	"github.com/shopspring/decimal"

	"glucotune/internal/model"
)

// IntervalType classifies an interval as fasting or carb absorption.
type IntervalType int

const (
	Fasting IntervalType = iota
	CarbAbsorption
)

func (t IntervalType) String() string {
	switch t {
	case Fasting:
		return "fasting"
	case CarbAbsorption:
		return "carb-absorption"
	default:
		return "unknown"
	}
}

// EstimatedMultipliers holds the correction factors estimated for one
// interval. Each multiplies the corresponding current dosing setting;
// 1.0 means no correction.
type EstimatedMultipliers struct {
	Start time.Time
	End   time.Time

	Basal              float64
	InsulinSensitivity float64
	CarbSensitivity    float64
	CarbRatio          float64
}

// Interval is one contiguous sub-window of a session, tagged fasting or
// carb absorption, carrying the input series sliced to its bounds. Bounds
// are mutable during assembly and fixed afterwards.
type Interval struct {
	Start time.Time
	End   time.Time
	Type  IntervalType

	Glucose       []model.GlucoseSample
	InsulinEffect []model.EffectSample
	BasalEffect   []model.EffectSample

	// Carb totals, in grams, summed across merged records. Meaningful only
	// when Type is CarbAbsorption.
	EnteredCarbs  decimal.Decimal
	ObservedCarbs decimal.Decimal

	// Populated by Estimator when the interval carries enough data.
	Estimated           bool
	DeltaGlucose        float64
	DeltaGlucoseInsulin float64
	DeltaGlucoseBasal   float64
	Multipliers         *EstimatedMultipliers
}

// reslice refreshes the interval's series slices from the full session
// series after a bounds change.
func (iv *Interval) reslice(glucose []model.GlucoseSample, insulin, basal []model.EffectSample) {
	iv.Glucose = FilterGlucose(glucose, iv.Start, iv.End)
	iv.InsulinEffect = FilterEffects(insulin, iv.Start, iv.End)
	iv.BasalEffect = FilterEffects(basal, iv.Start, iv.End)
}

// addCarbs accumulates a merged record's gram totals.
func (iv *Interval) addCarbs(entered, observed decimal.Decimal) {
	iv.EnteredCarbs = iv.EnteredCarbs.Add(entered)
	iv.ObservedCarbs = iv.ObservedCarbs.Add(observed)
}
