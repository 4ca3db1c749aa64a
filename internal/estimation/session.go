package estimation

import (
	"time"

	"github.com/rs/zerolog"

	"glucotune/internal/model"
)

// Session owns one estimation window, its input snapshots, and everything
// derived from them. All operations are synchronous and single-threaded: the
// caller must hold exclusive access to the session for the duration of
// Assemble and Estimate, and the input series must not change during a pass.
type Session struct {
	Start time.Time
	End   time.Time

	Glucose       []model.GlucoseSample
	InsulinEffect []model.EffectSample
	BasalEffect   []model.EffectSample
	CarbRecords   []model.CarbAbsorptionRecord

	// Intervals and Status are produced by Assemble.
	Intervals []*Interval
	Status    string

	logger zerolog.Logger
}

// NewSession constructs a session over [start, end). The carb records must
// be ordered by observed start time.
func NewSession(
	start, end time.Time,
	glucose []model.GlucoseSample,
	insulin, basal []model.EffectSample,
	records []model.CarbAbsorptionRecord,
	logger zerolog.Logger,
) *Session {
	return &Session{
		Start:         start,
		End:           end,
		Glucose:       glucose,
		InsulinEffect: insulin,
		BasalEffect:   basal,
		CarbRecords:   records,
		logger:        logger.With().Str("component", "session").Logger(),
	}
}

// Assemble partitions the window into intervals, possibly narrowing the
// window, and records the outcome in Status. A collapsed window
// (Start == End) means no usable intervals exist.
func (s *Session) Assemble() {
	res := NewAssembler(s.logger).Assemble(s.Start, s.End, s.Glucose, s.InsulinEffect, s.BasalEffect, s.CarbRecords)
	s.Intervals = res.Intervals
	s.Start = res.Start
	s.End = res.End
	s.Status = res.Status
}

// Estimate runs the estimator over every assembled interval, attaching a
// multiplier set to each interval that carries enough data.
func (s *Session) Estimate(strategy Strategy) {
	est := NewEstimator(strategy, s.logger)
	estimated := 0
	for _, iv := range s.Intervals {
		if est.Estimate(iv) != nil {
			estimated++
		}
	}
	s.logger.Info().
		Int("intervals", len(s.Intervals)).
		Int("estimated", estimated).
		Str("strategy", strategy.String()).
		Msg("estimation complete")
}
