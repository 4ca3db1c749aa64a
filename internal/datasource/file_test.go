package datasource

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

const bundleJSON = `{
  "start": "2026-08-25T06:00:00Z",
  "end": "2026-08-25T09:00:00Z",
  "glucose": [
    {"start": "2026-08-25T06:05:00Z", "value": 112.5},
    {"start": "2026-08-25T06:00:00Z", "value": 110}
  ],
  "insulinEffect": [
    {"start": "2026-08-25T06:00:00Z", "value": 80},
    {"start": "2026-08-25T06:05:00Z", "value": 78.5}
  ],
  "basalEffect": [
    {"start": "2026-08-25T06:00:00Z", "value": 0}
  ],
  "carbRecords": [
    {
      "start": "2026-08-25T06:30:00Z",
      "end": "2026-08-25T07:30:00Z",
      "enteredGrams": "40",
      "observedGrams": "32.5",
      "timeRemainingSeconds": 0
    },
    {
      "start": "2026-08-25T08:00:00Z",
      "enteredGrams": "15"
    }
  ]
}`

func TestFileSourceLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bundle.json")
	if err := os.WriteFile(path, []byte(bundleJSON), 0o600); err != nil {
		t.Fatalf("write bundle: %v", err)
	}

	in, err := NewFileSource(path, zerolog.Nop()).Load(context.Background(), time.Time{}, time.Time{})
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if !in.Start.Equal(time.Date(2026, 8, 25, 6, 0, 0, 0, time.UTC)) {
		t.Fatalf("start = %s", in.Start)
	}
	if len(in.Glucose) != 2 || in.Glucose[0].Value != 110 {
		t.Fatalf("glucose not sorted by start: %#v", in.Glucose)
	}
	if in.Glucose[0].End != in.Glucose[0].Start {
		t.Fatalf("point sample should get end = start: %#v", in.Glucose[0])
	}

	if len(in.CarbRecords) != 2 {
		t.Fatalf("expected 2 carb records, got %d", len(in.CarbRecords))
	}
	full := in.CarbRecords[0]
	if !full.Complete() {
		t.Fatalf("first record should be complete: %#v", full)
	}
	if !full.EnteredCarbs.Equal(decimal.RequireFromString("40")) || !full.ObservedCarbs.Equal(decimal.RequireFromString("32.5")) {
		t.Fatalf("carb grams = %s/%s", full.EnteredCarbs, full.ObservedCarbs)
	}
	if *full.TimeRemaining != 0 {
		t.Fatalf("time remaining = %v", *full.TimeRemaining)
	}

	partial := in.CarbRecords[1]
	if partial.Complete() {
		t.Fatal("second record is missing fields and must not be complete")
	}
	if partial.End != nil || partial.ObservedCarbs != nil || partial.TimeRemaining != nil {
		t.Fatalf("absent fields should stay nil: %#v", partial)
	}
}

func TestFileSourceWindowOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bundle.json")
	if err := os.WriteFile(path, []byte(bundleJSON), 0o600); err != nil {
		t.Fatalf("write bundle: %v", err)
	}

	from := time.Date(2026, 8, 25, 7, 0, 0, 0, time.UTC)
	in, err := NewFileSource(path, zerolog.Nop()).Load(context.Background(), from, time.Time{})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !in.Start.Equal(from) {
		t.Fatalf("window start not narrowed: %s", in.Start)
	}
}

func TestFileSourceMissingFile(t *testing.T) {
	if _, err := NewFileSource(filepath.Join(t.TempDir(), "absent.json"), zerolog.Nop()).Load(context.Background(), time.Time{}, time.Time{}); err == nil {
		t.Fatal("expected an error for a missing bundle")
	}
}

func TestFileSourceNoPath(t *testing.T) {
	if _, err := NewFileSource("", zerolog.Nop()).Load(context.Background(), time.Time{}, time.Time{}); err != ErrNotConfigured {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
}
