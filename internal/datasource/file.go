package datasource

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"glucotune/internal/model"
)

// FileSource reads a session input bundle from a JSON snapshot file.
type FileSource struct {
	path   string
	logger zerolog.Logger
}

// NewFileSource constructs a file-backed source.
func NewFileSource(path string, logger zerolog.Logger) *FileSource {
	return &FileSource{path: path, logger: logger.With().Str("component", "filesource").Logger()}
}

type bundleDoc struct {
	Start         time.Time      `json:"start"`
	End           time.Time      `json:"end"`
	Glucose       []sampleDoc    `json:"glucose"`
	InsulinEffect []sampleDoc    `json:"insulinEffect"`
	BasalEffect   []sampleDoc    `json:"basalEffect"`
	CarbRecords   []carbEntryDoc `json:"carbRecords"`
}

type sampleDoc struct {
	Start time.Time  `json:"start"`
	End   *time.Time `json:"end,omitempty"`
	Value float64    `json:"value"`
}

type carbEntryDoc struct {
	Start                *time.Time       `json:"start,omitempty"`
	End                  *time.Time       `json:"end,omitempty"`
	EnteredGrams         *decimal.Decimal `json:"enteredGrams,omitempty"`
	ObservedGrams        *decimal.Decimal `json:"observedGrams,omitempty"`
	TimeRemainingSeconds *float64         `json:"timeRemainingSeconds,omitempty"`
}

// Load reads and decodes the bundle. When from/to are non-zero they narrow
// the bundle's own window.
func (f *FileSource) Load(ctx context.Context, from, to time.Time) (*Input, error) {
	if f.path == "" {
		return nil, ErrNotConfigured
	}

	raw, err := os.ReadFile(f.path)
	if err != nil {
		return nil, fmt.Errorf("read input bundle: %w", err)
	}

	var doc bundleDoc
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decode input bundle: %w", err)
	}

	in := &Input{
		Start:         doc.Start,
		End:           doc.End,
		Glucose:       glucoseFromDocs(doc.Glucose),
		InsulinEffect: effectsFromDocs(doc.InsulinEffect),
		BasalEffect:   effectsFromDocs(doc.BasalEffect),
		CarbRecords:   carbsFromDocs(doc.CarbRecords),
	}
	if !from.IsZero() && from.After(in.Start) {
		in.Start = from
	}
	if !to.IsZero() && to.Before(in.End) {
		in.End = to
	}
	if in.Start.IsZero() || in.End.IsZero() || in.End.Before(in.Start) {
		return nil, fmt.Errorf("input bundle window is invalid: %s - %s", in.Start, in.End)
	}

	f.logger.Debug().
		Int("glucose", len(in.Glucose)).
		Int("carb_records", len(in.CarbRecords)).
		Msg("input bundle loaded")
	return in, nil
}

// Close is a no-op for file sources.
func (f *FileSource) Close() error { return nil }

func glucoseFromDocs(docs []sampleDoc) []model.GlucoseSample {
	out := make([]model.GlucoseSample, 0, len(docs))
	for _, d := range docs {
		end := d.Start
		if d.End != nil {
			end = *d.End
		}
		out = append(out, model.GlucoseSample{Start: d.Start, End: end, Value: d.Value})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	return out
}

func effectsFromDocs(docs []sampleDoc) []model.EffectSample {
	out := make([]model.EffectSample, 0, len(docs))
	for _, d := range docs {
		end := d.Start
		if d.End != nil {
			end = *d.End
		}
		out = append(out, model.EffectSample{Start: d.Start, End: end, Value: d.Value})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	return out
}

func carbsFromDocs(docs []carbEntryDoc) []model.CarbAbsorptionRecord {
	out := make([]model.CarbAbsorptionRecord, 0, len(docs))
	for _, d := range docs {
		rec := model.CarbAbsorptionRecord{
			Start:         d.Start,
			End:           d.End,
			EnteredCarbs:  d.EnteredGrams,
			ObservedCarbs: d.ObservedGrams,
		}
		if d.TimeRemainingSeconds != nil {
			remaining := time.Duration(*d.TimeRemainingSeconds * float64(time.Second))
			rec.TimeRemaining = &remaining
		}
		out = append(out, rec)
	}
	// The assembler requires records ordered by observed start; records
	// without a start sort first and are skipped during assembly anyway.
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Start == nil || out[j].Start == nil {
			return out[j].Start != nil
		}
		return out[i].Start.Before(*out[j].Start)
	})
	return out
}
