package estimation

import (
	"time"

	"glucotune/internal/model"
)

// FilterGlucose returns the samples whose own span overlaps the half-open
// interval [start, end). Input must be ordered by start time; the result
// preserves that order.
func FilterGlucose(samples []model.GlucoseSample, start, end time.Time) []model.GlucoseSample {
	out := make([]model.GlucoseSample, 0, len(samples))
	for _, s := range samples {
		if !s.End.Before(start) && s.Start.Before(end) {
			out = append(out, s)
		}
	}
	return out
}

// FilterEffects is FilterGlucose for effect series.
func FilterEffects(samples []model.EffectSample, start, end time.Time) []model.EffectSample {
	out := make([]model.EffectSample, 0, len(samples))
	for _, s := range samples {
		if !s.End.Before(start) && s.Start.Before(end) {
			out = append(out, s)
		}
	}
	return out
}
