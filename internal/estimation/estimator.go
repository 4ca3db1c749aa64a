package estimation

import (
	"fmt"
	"math"
	"strings"

	"github.com/rs/zerolog"
)

// Strategy selects how an interval's constraint is reduced to multipliers.
type Strategy int

const (
	// StrategyGeneral projects onto the full three-unknown plane and is used
	// for every interval type in the standard pipeline.
	StrategyGeneral Strategy = iota
	// StrategyFasting holds the carb term at nominal and solves the
	// insulin/basal line.
	StrategyFasting
	// StrategyCarbAbsorption holds the basal multiplier at nominal and
	// solves the insulin/carb line.
	StrategyCarbAbsorption
)

func (s Strategy) String() string {
	switch s {
	case StrategyGeneral:
		return "general"
	case StrategyFasting:
		return "fasting"
	case StrategyCarbAbsorption:
		return "carb-absorption"
	default:
		return "unknown"
	}
}

// ParseStrategy maps a configuration value to a Strategy.
func ParseStrategy(v string) (Strategy, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "", "general":
		return StrategyGeneral, nil
	case "fasting":
		return StrategyFasting, nil
	case "carb-absorption", "carbs":
		return StrategyCarbAbsorption, nil
	default:
		return StrategyGeneral, fmt.Errorf("unknown estimation strategy %q", v)
	}
}

// minGlucoseSamples is the smallest glucose slice an interval may carry and
// still produce an estimate.
const minGlucoseSamples = 6

// Estimator turns an assembled interval's glucose and effect slices into a
// multiplier set.
type Estimator struct {
	strategy Strategy
	logger   zerolog.Logger
}

// NewEstimator constructs an estimator using the given strategy.
func NewEstimator(strategy Strategy, logger zerolog.Logger) *Estimator {
	return &Estimator{
		strategy: strategy,
		logger:   logger.With().Str("component", "estimator").Logger(),
	}
}

// Estimate computes the interval's deltas and multiplier set in place and
// returns the multipliers, or nil when the interval carries too little data.
// An interval left without multipliers is an expected outcome for short
// intervals, not an error. The caller must hold exclusive access to the
// interval for the duration of the call.
func (e *Estimator) Estimate(iv *Interval) *EstimatedMultipliers {
	if len(iv.Glucose) < minGlucoseSamples || len(iv.InsulinEffect) == 0 || len(iv.BasalEffect) == 0 {
		e.logger.Debug().
			Time("start", iv.Start).
			Int("glucose_samples", len(iv.Glucose)).
			Msg("interval skipped, insufficient data")
		return nil
	}

	iv.DeltaGlucose = iv.Glucose[len(iv.Glucose)-1].Value - iv.Glucose[0].Value
	// Positive insulin effect lowers glucose, so the contribution over the
	// interval is first minus last.
	iv.DeltaGlucoseInsulin = iv.InsulinEffect[0].Value - iv.InsulinEffect[len(iv.InsulinEffect)-1].Value
	iv.DeltaGlucoseBasal = iv.BasalEffect[len(iv.BasalEffect)-1].Value - iv.BasalEffect[0].Value
	iv.Estimated = true

	// The entered/observed mismatch is attributed in equal geometric
	// proportion to a carb-estimation error and a parameter-mismatch error,
	// hence the square root.
	ratio := 0.0
	if iv.Type == CarbAbsorption && iv.EnteredCarbs.IsPositive() && iv.ObservedCarbs.IsPositive() {
		observedOverEntered := iv.ObservedCarbs.InexactFloat64() / iv.EnteredCarbs.InexactFloat64()
		ratio = math.Sqrt(1 / observedOverEntered)
	}

	insulinWeight := -iv.DeltaGlucose
	carbWeight := ratio * (iv.DeltaGlucose + iv.DeltaGlucoseInsulin)
	basalWeight := iv.DeltaGlucoseBasal
	insulinBasalWeight := iv.DeltaGlucoseInsulin + iv.DeltaGlucoseBasal

	var isfInverse, crInverse, basalMultiplier float64
	switch e.strategy {
	case StrategyFasting:
		isfInverse, basalMultiplier = ProjectToLine(insulinWeight, basalWeight, insulinBasalWeight)
		crInverse = 1
	case StrategyCarbAbsorption:
		isfInverse, crInverse = ProjectToLine(insulinWeight, carbWeight, insulinBasalWeight-basalWeight)
		basalMultiplier = 1
	default:
		isfInverse, crInverse, basalMultiplier = ProjectToPlane(insulinWeight, carbWeight, basalWeight, insulinBasalWeight)
	}

	if isfInverse == 0 || crInverse == 0 {
		e.logger.Debug().Time("start", iv.Start).Msg("interval skipped, degenerate multiplier inverse")
		return nil
	}

	m := &EstimatedMultipliers{
		Start:              iv.Start,
		End:                iv.End,
		Basal:              basalMultiplier,
		InsulinSensitivity: 1 / isfInverse,
		CarbRatio:          1 / crInverse,
	}
	// The general estimator does not distinguish carb sensitivity from
	// insulin sensitivity.
	m.CarbSensitivity = m.InsulinSensitivity
	iv.Multipliers = m
	return m
}
