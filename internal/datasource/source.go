// Package datasource loads session input bundles from files or databases.
// It only ever reads: estimation results are not persisted.
package datasource

import (
	"context"
	"errors"
	"time"

	"glucotune/internal/model"
)

// ErrNotConfigured indicates the selected source is missing its path or DSN.
var ErrNotConfigured = errors.New("datasource: not configured")

// Input bundles everything one estimation session consumes: the window, the
// three ordered series, and the start-ordered carb absorption records.
type Input struct {
	Start time.Time
	End   time.Time

	Glucose       []model.GlucoseSample
	InsulinEffect []model.EffectSample
	BasalEffect   []model.EffectSample
	CarbRecords   []model.CarbAbsorptionRecord
}

// Source loads session input for a window. A zero from/to pair means "use
// the source's own window" where the source has one.
type Source interface {
	Load(ctx context.Context, from, to time.Time) (*Input, error)
	Close() error
}
