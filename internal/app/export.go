package app

import (
	"context"
	"encoding/csv"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"time"

	chart "github.com/wcharczuk/go-chart/v2"

	"glucotune/internal/estimation"
	"glucotune/internal/model"
)

// Export runs the pipeline and renders the session as CSV and/or PNG.
func (a *App) Export(ctx context.Context, opts ExportOptions) error {
	if opts.CSVPath == "" && opts.PNGPath == "" {
		return errors.New("at least one of --csv or --png must be provided")
	}

	opts.MaxPoints = a.Config.ResolveMaxPoints(opts.MaxPoints)

	session, err := a.runPipeline(ctx, opts.From, opts.To)
	if err != nil {
		return err
	}
	if len(session.Intervals) == 0 {
		a.Logger.Info().Str("status", session.Status).Msg("no intervals to export")
		return nil
	}

	if opts.CSVPath != "" {
		if err := writeIntervalsCSV(opts.CSVPath, session); err != nil {
			return err
		}
		a.Logger.Info().Str("path", opts.CSVPath).Msg("interval results written")
	}

	if opts.PNGPath != "" {
		if err := writeSessionPNG(opts.PNGPath, session, opts.MaxPoints); err != nil {
			return err
		}
		a.Logger.Info().Str("path", opts.PNGPath).Msg("session chart written")
	}

	return nil
}

func writeIntervalsCSV(path string, session *estimation.Session) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	header := []string{
		"start", "end", "type",
		"entered_grams", "observed_grams",
		"delta_glucose", "delta_glucose_insulin", "delta_glucose_basal",
		"basal_multiplier", "isf_multiplier", "csf_multiplier", "cr_multiplier",
	}
	if err := writer.Write(header); err != nil {
		return err
	}

	for _, iv := range session.Intervals {
		record := []string{
			iv.Start.UTC().Format(time.RFC3339),
			iv.End.UTC().Format(time.RFC3339),
			iv.Type.String(),
		}
		if iv.Type == estimation.CarbAbsorption {
			record = append(record, iv.EnteredCarbs.String(), iv.ObservedCarbs.String())
		} else {
			record = append(record, "", "")
		}
		if iv.Estimated {
			record = append(record,
				formatFloat(iv.DeltaGlucose),
				formatFloat(iv.DeltaGlucoseInsulin),
				formatFloat(iv.DeltaGlucoseBasal),
			)
		} else {
			record = append(record, "", "", "")
		}
		if m := iv.Multipliers; m != nil {
			record = append(record,
				formatFloat(m.Basal),
				formatFloat(m.InsulinSensitivity),
				formatFloat(m.CarbSensitivity),
				formatFloat(m.CarbRatio),
			)
		} else {
			record = append(record, "", "", "", "")
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}

	return writer.Error()
}

func writeSessionPNG(path string, session *estimation.Session, maxPoints int) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	glucose := downsampleGlucose(session.Glucose, maxPoints)
	insulin := downsampleEffects(session.InsulinEffect, maxPoints)
	basal := downsampleEffects(session.BasalEffect, maxPoints)
	if len(glucose) == 0 {
		return errors.New("no glucose samples to chart")
	}

	valueFormatter := func(v interface{}) string {
		return chart.FloatValueFormatterWithFormat(v, "%.0f")
	}
	graph := chart.Chart{
		Width:  1280,
		Height: 720,
		XAxis: chart.XAxis{
			ValueFormatter: chart.TimeValueFormatter,
		},
		YAxis: chart.YAxis{
			Name:           "Glucose (mg/dL)",
			ValueFormatter: valueFormatter,
		},
		YAxisSecondary: chart.YAxis{
			Name:           "Modeled effect (mg/dL)",
			ValueFormatter: valueFormatter,
		},
		Series: []chart.Series{
			chart.TimeSeries{
				Name:    "Glucose",
				XValues: glucoseTimes(glucose),
				YValues: glucoseValues(glucose),
			},
			chart.TimeSeries{
				Name:    "Insulin effect",
				XValues: effectTimes(insulin),
				YValues: effectValues(insulin),
				YAxis:   chart.YAxisSecondary,
			},
			chart.TimeSeries{
				Name:    "Basal effect",
				XValues: effectTimes(basal),
				YValues: effectValues(basal),
				YAxis:   chart.YAxisSecondary,
			},
		},
	}
	graph.Elements = []chart.Renderable{chart.Legend(&graph)}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	return graph.Render(chart.PNG, file)
}

func downsampleGlucose(samples []model.GlucoseSample, max int) []model.GlucoseSample {
	if max <= 0 || len(samples) <= max {
		return samples
	}
	result := make([]model.GlucoseSample, 0, max)
	step := float64(len(samples)-1) / float64(max-1)
	for i := 0; i < max; i++ {
		idx := int(math.Round(step * float64(i)))
		if idx >= len(samples) {
			idx = len(samples) - 1
		}
		result = append(result, samples[idx])
	}
	return result
}

func downsampleEffects(samples []model.EffectSample, max int) []model.EffectSample {
	if max <= 0 || len(samples) <= max {
		return samples
	}
	result := make([]model.EffectSample, 0, max)
	step := float64(len(samples)-1) / float64(max-1)
	for i := 0; i < max; i++ {
		idx := int(math.Round(step * float64(i)))
		if idx >= len(samples) {
			idx = len(samples) - 1
		}
		result = append(result, samples[idx])
	}
	return result
}

func glucoseTimes(samples []model.GlucoseSample) []time.Time {
	out := make([]time.Time, len(samples))
	for i, s := range samples {
		out[i] = s.Start
	}
	return out
}

func glucoseValues(samples []model.GlucoseSample) []float64 {
	out := make([]float64, len(samples))
	for i, s := range samples {
		out[i] = s.Value
	}
	return out
}

func effectTimes(samples []model.EffectSample) []time.Time {
	out := make([]time.Time, len(samples))
	for i, s := range samples {
		out[i] = s.Start
	}
	return out
}

func effectValues(samples []model.EffectSample) []float64 {
	out := make([]float64, len(samples))
	for i, s := range samples {
		out[i] = s.Value
	}
	return out
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 4, 64)
}
