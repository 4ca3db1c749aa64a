package datasource

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"

	"glucotune/internal/model"
)

// SQLiteSource reads session input from a local SQLite snapshot database.
// Timestamps are stored as unix seconds, gram quantities as text.
type SQLiteSource struct {
	db     *sql.DB
	logger zerolog.Logger
}

// NewSQLiteSource opens the snapshot database read-only.
func NewSQLiteSource(path string, logger zerolog.Logger) (*SQLiteSource, error) {
	if path == "" {
		return nil, ErrNotConfigured
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	return &SQLiteSource{
		db:     db,
		logger: logger.With().Str("component", "sqlitesource").Logger(),
	}, nil
}

// Load reads the three series and the carb records overlapping [from, to).
func (s *SQLiteSource) Load(ctx context.Context, from, to time.Time) (*Input, error) {
	if from.IsZero() || to.IsZero() || !from.Before(to) {
		return nil, fmt.Errorf("sqlite source requires an explicit window, got %s - %s", from, to)
	}

	glucose, err := s.loadGlucose(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("load glucose samples: %w", err)
	}
	insulin, err := s.loadEffects(ctx, "insulin", from, to)
	if err != nil {
		return nil, fmt.Errorf("load insulin effects: %w", err)
	}
	basal, err := s.loadEffects(ctx, "basal", from, to)
	if err != nil {
		return nil, fmt.Errorf("load basal effects: %w", err)
	}
	records, err := s.loadCarbRecords(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("load carb records: %w", err)
	}

	s.logger.Debug().
		Int("glucose", len(glucose)).
		Int("carb_records", len(records)).
		Msg("session input loaded")

	return &Input{
		Start:         from,
		End:           to,
		Glucose:       glucose,
		InsulinEffect: insulin,
		BasalEffect:   basal,
		CarbRecords:   records,
	}, nil
}

func (s *SQLiteSource) loadGlucose(ctx context.Context, from, to time.Time) ([]model.GlucoseSample, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT start_ts, end_ts, value_mgdl FROM glucose_samples
		 WHERE end_ts >= ? AND start_ts < ? ORDER BY start_ts`,
		from.Unix(), to.Unix())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.GlucoseSample
	for rows.Next() {
		var startUnix, endUnix int64
		var value float64
		if err := rows.Scan(&startUnix, &endUnix, &value); err != nil {
			return nil, err
		}
		out = append(out, model.GlucoseSample{
			Start: time.Unix(startUnix, 0).UTC(),
			End:   time.Unix(endUnix, 0).UTC(),
			Value: value,
		})
	}
	return out, rows.Err()
}

func (s *SQLiteSource) loadEffects(ctx context.Context, kind string, from, to time.Time) ([]model.EffectSample, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT start_ts, end_ts, value_mgdl FROM effect_samples
		 WHERE kind = ? AND end_ts >= ? AND start_ts < ? ORDER BY start_ts`,
		kind, from.Unix(), to.Unix())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.EffectSample
	for rows.Next() {
		var startUnix, endUnix int64
		var value float64
		if err := rows.Scan(&startUnix, &endUnix, &value); err != nil {
			return nil, err
		}
		out = append(out, model.EffectSample{
			Start: time.Unix(startUnix, 0).UTC(),
			End:   time.Unix(endUnix, 0).UTC(),
			Value: value,
		})
	}
	return out, rows.Err()
}

func (s *SQLiteSource) loadCarbRecords(ctx context.Context, from, to time.Time) ([]model.CarbAbsorptionRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT observed_start, observed_end, entered_grams, observed_grams, time_remaining_seconds
		 FROM carb_records
		 WHERE observed_end >= ? AND observed_start < ? ORDER BY observed_start`,
		from.Unix(), to.Unix())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.CarbAbsorptionRecord
	for rows.Next() {
		var (
			startUnix        sql.NullInt64
			endUnix          sql.NullInt64
			enteredStr       sql.NullString
			observedStr      sql.NullString
			remainingSeconds sql.NullFloat64
		)
		if err := rows.Scan(&startUnix, &endUnix, &enteredStr, &observedStr, &remainingSeconds); err != nil {
			return nil, err
		}

		var rec model.CarbAbsorptionRecord
		if startUnix.Valid {
			start := time.Unix(startUnix.Int64, 0).UTC()
			rec.Start = &start
		}
		if endUnix.Valid {
			end := time.Unix(endUnix.Int64, 0).UTC()
			rec.End = &end
		}
		if enteredStr.Valid {
			entered, err := decimal.NewFromString(enteredStr.String)
			if err != nil {
				return nil, fmt.Errorf("parse entered grams: %w", err)
			}
			rec.EnteredCarbs = &entered
		}
		if observedStr.Valid {
			observed, err := decimal.NewFromString(observedStr.String)
			if err != nil {
				return nil, fmt.Errorf("parse observed grams: %w", err)
			}
			rec.ObservedCarbs = &observed
		}
		if remainingSeconds.Valid {
			remaining := time.Duration(remainingSeconds.Float64 * float64(time.Second))
			rec.TimeRemaining = &remaining
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Close releases the database handle.
func (s *SQLiteSource) Close() error {
	return s.db.Close()
}
