package app

import (
	"context"
	"fmt"
	"os"
	"time"

	"glucotune/internal/datasource"
	"glucotune/internal/estimation"
)

// Analyze loads a session input bundle, runs the assembly and estimation
// pipeline, and prints the diagnostic report to stdout.
func (a *App) Analyze(ctx context.Context, opts AnalyzeOptions) error {
	session, err := a.runPipeline(ctx, opts.From, opts.To)
	if err != nil {
		return err
	}

	fmt.Fprint(os.Stdout, estimation.Render(session))
	return nil
}

// runPipeline is the shared load → assemble → estimate path.
func (a *App) runPipeline(ctx context.Context, from, to *time.Time) (*estimation.Session, error) {
	src, closeSource, err := a.openSource(ctx)
	if err != nil {
		return nil, err
	}
	defer closeSource()

	start, end := a.resolveWindow(from, to)
	input, err := src.Load(ctx, start, end)
	if err != nil {
		return nil, fmt.Errorf("load session input: %w", err)
	}

	return a.runSession(input), nil
}

// runSession executes assembly and estimation over one input bundle.
func (a *App) runSession(input *datasource.Input) *estimation.Session {
	session := estimation.NewSession(
		input.Start, input.End,
		input.Glucose, input.InsulinEffect, input.BasalEffect,
		input.CarbRecords,
		a.Logger,
	)
	session.Assemble()
	if session.Start.Equal(session.End) {
		a.Logger.Warn().Str("status", session.Status).Msg("session window collapsed, no usable intervals")
		return session
	}
	session.Estimate(a.Config.ResolveStrategy())
	return session
}
