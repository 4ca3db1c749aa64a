package app

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"glucotune/internal/config"
	"glucotune/internal/datasource"
)

// App aggregates configuration and shared dependencies for the CLI commands.
type App struct {
	Config *config.Config
	Logger zerolog.Logger
}

// NewApp constructs a new application handle.
func NewApp(cfg *config.Config, logger zerolog.Logger) *App {
	return &App{Config: cfg, Logger: logger.With().Str("component", "app").Logger()}
}

func (a *App) openSource(ctx context.Context) (datasource.Source, func(), error) {
	var (
		src datasource.Source
		err error
	)
	switch a.Config.Input.Source {
	case "file":
		src = datasource.NewFileSource(a.Config.Input.Path, a.Logger)
	case "postgres":
		src, err = datasource.NewPostgresSource(ctx, a.Config.Database, a.Logger)
	case "sqlite":
		src, err = datasource.NewSQLiteSource(a.Config.Input.Path, a.Logger)
	default:
		err = fmt.Errorf("unknown input source %q", a.Config.Input.Source)
	}
	if err != nil {
		return nil, nil, err
	}

	closer := func() {
		if closeErr := src.Close(); closeErr != nil {
			a.Logger.Warn().Err(closeErr).Msg("failed to close input source")
		}
	}
	return src, closer, nil
}

// resolveWindow fills in missing window bounds from the configured default
// length. File sources tolerate a fully open window; database sources do not.
func (a *App) resolveWindow(from, to *time.Time) (time.Time, time.Time) {
	if from == nil && to == nil && a.Config.Input.Source == "file" {
		return time.Time{}, time.Time{}
	}

	end := time.Now().UTC()
	if to != nil {
		end = to.UTC()
	}
	start := end.Add(-time.Duration(a.Config.Estimation.WindowHours) * time.Hour)
	if from != nil {
		start = from.UTC()
	}
	return start, end
}

// AnalyzeOptions hold parameters for the analyze command.
type AnalyzeOptions struct {
	From *time.Time
	To   *time.Time
}

// ExportOptions hold parameters for exporting session results.
type ExportOptions struct {
	From      *time.Time
	To        *time.Time
	PNGPath   string
	CSVPath   string
	MaxPoints int
}
