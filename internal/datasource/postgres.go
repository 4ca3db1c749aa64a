package datasource

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"glucotune/internal/config"
	"glucotune/internal/model"
)

const (
	selectGlucoseSQL = `SELECT
        start_ts,
        end_ts,
        value_mgdl
    FROM glucose_samples
    WHERE end_ts >= $1
      AND start_ts < $2
    ORDER BY start_ts;`

	selectEffectsSQL = `SELECT
        start_ts,
        end_ts,
        value_mgdl
    FROM effect_samples
    WHERE kind = $1
      AND end_ts >= $2
      AND start_ts < $3
    ORDER BY start_ts;`

	selectCarbRecordsSQL = `SELECT
        observed_start,
        observed_end,
        entered_grams,
        observed_grams,
        time_remaining_seconds
    FROM carb_records
    WHERE observed_end >= $1
      AND observed_start < $2
    ORDER BY observed_start;`
)

// PostgresSource reads session input from a PostgreSQL health-data store.
type PostgresSource struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewPostgresSource configures a connection pool from runtime settings.
func NewPostgresSource(ctx context.Context, cfg config.DatabaseConfig, logger zerolog.Logger) (*PostgresSource, error) {
	if cfg.DSN == "" {
		return nil, ErrNotConfigured
	}

	poolConfig, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse database dsn: %w", err)
	}
	if cfg.MaxOpenConns > 0 {
		poolConfig.MaxConns = int32(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		poolConfig.MinConns = int32(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		poolConfig.MaxConnLifetime = cfg.ConnMaxLifetime
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("create pgx pool: %w", err)
	}

	return &PostgresSource{
		pool:   pool,
		logger: logger.With().Str("component", "pgsource").Logger(),
	}, nil
}

// Load reads the three series and the carb records overlapping [from, to).
func (p *PostgresSource) Load(ctx context.Context, from, to time.Time) (*Input, error) {
	if from.IsZero() || to.IsZero() || !from.Before(to) {
		return nil, fmt.Errorf("postgres source requires an explicit window, got %s - %s", from, to)
	}

	glucose, err := p.loadGlucose(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("load glucose samples: %w", err)
	}
	insulin, err := p.loadEffects(ctx, "insulin", from, to)
	if err != nil {
		return nil, fmt.Errorf("load insulin effects: %w", err)
	}
	basal, err := p.loadEffects(ctx, "basal", from, to)
	if err != nil {
		return nil, fmt.Errorf("load basal effects: %w", err)
	}
	records, err := p.loadCarbRecords(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("load carb records: %w", err)
	}

	p.logger.Debug().
		Int("glucose", len(glucose)).
		Int("carb_records", len(records)).
		Time("from", from).
		Time("to", to).
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

func (p *PostgresSource) loadGlucose(ctx context.Context, from, to time.Time) ([]model.GlucoseSample, error) {
	rows, err := p.pool.Query(ctx, selectGlucoseSQL, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.GlucoseSample
	for rows.Next() {
		var s model.GlucoseSample
		if err := rows.Scan(&s.Start, &s.End, &s.Value); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (p *PostgresSource) loadEffects(ctx context.Context, kind string, from, to time.Time) ([]model.EffectSample, error) {
	rows, err := p.pool.Query(ctx, selectEffectsSQL, kind, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.EffectSample
	for rows.Next() {
		var s model.EffectSample
		if err := rows.Scan(&s.Start, &s.End, &s.Value); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (p *PostgresSource) loadCarbRecords(ctx context.Context, from, to time.Time) ([]model.CarbAbsorptionRecord, error) {
	rows, err := p.pool.Query(ctx, selectCarbRecordsSQL, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.CarbAbsorptionRecord
	for rows.Next() {
		var (
			rec              model.CarbAbsorptionRecord
			enteredStr       sql.NullString
			observedStr      sql.NullString
			remainingSeconds sql.NullFloat64
		)
		if err := rows.Scan(&rec.Start, &rec.End, &enteredStr, &observedStr, &remainingSeconds); err != nil {
			return nil, err
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

// Close releases the connection pool.
func (p *PostgresSource) Close() error {
	p.pool.Close()
	return nil
}
