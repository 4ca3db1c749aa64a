package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// GlucoseSample is one blood-glucose observation in mg/dL. Point readings
// carry Start == End; calibration-averaged readings may span a range.
type GlucoseSample struct {
	Start time.Time
	End   time.Time
	Value float64
}

// EffectSample is one point of a modeled glucose-effect curve (insulin action
// or basal delivery), expressed as the cumulative predicted contribution to
// blood glucose in mg/dL.
type EffectSample struct {
	Start time.Time
	End   time.Time
	Value float64
}

// CarbAbsorptionRecord tracks the observed absorption of one logged meal.
// Fields are pointers because upstream absorption tracking may not have
// resolved all of them yet; a record with any missing field cannot be
// segmented and is skipped during assembly.
type CarbAbsorptionRecord struct {
	// Start and End bound the observed absorption. End is never before Start.
	Start *time.Time
	End   *time.Time
	// EnteredCarbs is what the user logged, ObservedCarbs is what the model
	// estimates was actually absorbed, both in grams.
	EnteredCarbs  *decimal.Decimal
	ObservedCarbs *decimal.Decimal
	// TimeRemaining > 0 means absorption was still in progress at
	// evaluation time.
	TimeRemaining *time.Duration
}

// Complete reports whether every absorption field is populated.
func (r CarbAbsorptionRecord) Complete() bool {
	return r.Start != nil && r.End != nil && r.EnteredCarbs != nil && r.ObservedCarbs != nil && r.TimeRemaining != nil
}
