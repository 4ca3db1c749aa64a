package app

import (
	"context"
	"fmt"
	"math"
	"os"
	"time"

	"github.com/shopspring/decimal"

	"glucotune/internal/datasource"
	"glucotune/internal/estimation"
	"glucotune/internal/model"
)

// Simulate runs the pipeline over a generated three-hour session — a leading
// fast, one partially absorbed 40 g meal, and a trailing fast — and prints
// the diagnostic report. Useful for exercising the estimator without any
// configured input source.
func (a *App) Simulate(ctx context.Context) error {
	input := syntheticInput(time.Now().UTC().Truncate(time.Minute).Add(-3 * time.Hour))
	session := a.runSession(input)

	fmt.Fprint(os.Stdout, estimation.Render(session))

	for _, iv := range session.Intervals {
		if iv.Multipliers == nil {
			return fmt.Errorf("simulated interval %s-%s received no estimate", iv.Start, iv.End)
		}
	}
	return nil
}

// syntheticInput builds a deterministic session: glucose dips through the
// fasting phases and rises through the meal, with smooth insulin and basal
// effect curves sampled every five minutes.
func syntheticInput(start time.Time) *datasource.Input {
	const minutes = 180
	end := start.Add(minutes * time.Minute)

	var (
		glucose []model.GlucoseSample
		insulin []model.EffectSample
		basal   []model.EffectSample
	)
	for m := 0; m < minutes; m += 5 {
		ts := start.Add(time.Duration(m) * time.Minute)
		frac := float64(m) / minutes

		g := 115 - 10*frac
		if m >= 30 && m < 90 {
			g += 35 * math.Sin(math.Pi*float64(m-30)/60)
		}
		glucose = append(glucose, model.GlucoseSample{Start: ts, End: ts, Value: g})

		insulin = append(insulin, model.EffectSample{Start: ts, End: ts, Value: 60 * (1 - frac)})
		basal = append(basal, model.EffectSample{Start: ts, End: ts, Value: 8 * frac})
	}

	mealStart := start.Add(30 * time.Minute)
	mealEnd := start.Add(90 * time.Minute)
	entered := decimal.NewFromInt(40)
	observed := decimal.NewFromInt(32)
	remaining := time.Duration(0)

	return &datasource.Input{
		Start:         start,
		End:           end,
		Glucose:       glucose,
		InsulinEffect: insulin,
		BasalEffect:   basal,
		CarbRecords: []model.CarbAbsorptionRecord{{
			Start:         &mealStart,
			End:           &mealEnd,
			EnteredCarbs:  &entered,
			ObservedCarbs: &observed,
			TimeRemaining: &remaining,
		}},
	}
}
