package estimation

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"glucotune/internal/model"
)

// Assembler partitions a session window into an ordered, gap-free sequence
// of fasting and carb-absorption intervals from a start-ordered list of carb
// absorption records. Records may overlap (merged into one interval), start
// before the window (they advance the window start), or still be absorbing
// (they truncate the window and end the pass).
type Assembler struct {
	logger zerolog.Logger
}

// NewAssembler constructs an assembler.
func NewAssembler(logger zerolog.Logger) *Assembler {
	return &Assembler{logger: logger.With().Str("component", "assembler").Logger()}
}

// AssemblyResult carries the outcome of one assembly pass. Start == End
// means the window collapsed and no usable intervals exist.
type AssemblyResult struct {
	Intervals []*Interval
	Start     time.Time
	End       time.Time
	Status    string
}

// Assemble runs a single segmentation pass. The carb records must be ordered
// by observed start time. The input series are read-only snapshots for the
// duration of the call.
func (a *Assembler) Assemble(
	start, end time.Time,
	glucose []model.GlucoseSample,
	insulin, basal []model.EffectSample,
	records []model.CarbAbsorptionRecord,
) AssemblyResult {
	var intervals []*Interval
	status := ""
	// runningEnd tracks the end of assembled territory.
	runningEnd := start

	appendStatus := func(msg string) {
		if status == "" {
			status = msg
			return
		}
		status += "; " + msg
	}

	newInterval := func(ivType IntervalType, ivStart, ivEnd time.Time) *Interval {
		iv := &Interval{Start: ivStart, End: ivEnd, Type: ivType}
		iv.reslice(glucose, insulin, basal)
		return iv
	}

	for i, rec := range records {
		if !rec.Complete() {
			appendStatus(fmt.Sprintf("carb record %d missing absorption fields, skipped", i))
			a.logger.Warn().Int("record", i).Msg("carb record missing absorption fields")
			continue
		}
		entryStart := *rec.Start
		entryEnd := *rec.End
		entered := *rec.EnteredCarbs
		observed := *rec.ObservedCarbs
		remaining := *rec.TimeRemaining

		if remaining > 0 {
			// An active absorption always ends the pass: everything after its
			// onset is contaminated by an unfinished meal response.
			switch {
			case entryStart.Before(start):
				end = start
				appendStatus("active carb absorption began before session start, window collapsed")
				a.logger.Warn().Time("entry_start", entryStart).Msg("active absorption predates session window")
				return AssemblyResult{Intervals: nil, Start: start, End: end, Status: status}

			case entryStart.After(end):
				if runningEnd.Before(end) {
					intervals = append(intervals, newInterval(Fasting, runningEnd, end))
				}
				appendStatus(fmt.Sprintf("assembly complete, active absorption at %s starts after window end", entryStart.UTC().Format(time.RFC3339)))
				return AssemblyResult{Intervals: intervals, Start: start, End: end, Status: status}

			case entryStart.After(runningEnd):
				end = entryStart
				intervals = append(intervals, newInterval(Fasting, runningEnd, end))
				appendStatus(fmt.Sprintf("window truncated at active absorption starting %s", entryStart.UTC().Format(time.RFC3339)))
				return AssemblyResult{Intervals: intervals, Start: start, End: end, Status: status}

			default:
				// Onset falls inside assembled territory: roll back every
				// carb interval the active absorption overlaps.
				runningEnd = entryStart
				for j := len(intervals) - 1; j >= 0; j-- {
					iv := intervals[j]
					if iv.Type == CarbAbsorption && iv.End.After(runningEnd) {
						if iv.Start.Before(runningEnd) {
							runningEnd = iv.Start
						}
						intervals = append(intervals[:j], intervals[j+1:]...)
					}
				}
				end = runningEnd
				appendStatus(fmt.Sprintf("window rolled back to %s at active absorption", runningEnd.UTC().Format(time.RFC3339)))
				return AssemblyResult{Intervals: intervals, Start: start, End: end, Status: status}
			}
		}

		if entryStart.Before(start) {
			// The record predates the window; its tail would pollute the
			// leading fasting interval, so the window start moves past it.
			if entryEnd.After(start) {
				start = entryEnd
				if len(intervals) == 0 {
					runningEnd = start
				}
			}
			continue
		}

		switch {
		case len(intervals) == 0:
			if entryStart.After(start) {
				intervals = append(intervals, newInterval(Fasting, start, entryStart))
			}
			carb := newInterval(CarbAbsorption, entryStart, entryEnd)
			carb.addCarbs(entered, observed)
			intervals = append(intervals, carb)
			runningEnd = entryEnd

		case intervals[len(intervals)-1].Type == Fasting:
			last := intervals[len(intervals)-1]
			last.End = entryStart
			last.reslice(glucose, insulin, basal)
			carb := newInterval(CarbAbsorption, entryStart, entryEnd)
			carb.addCarbs(entered, observed)
			intervals = append(intervals, carb)
			runningEnd = entryEnd

		default:
			last := intervals[len(intervals)-1]
			if entryStart.After(last.End) {
				intervals = append(intervals, newInterval(Fasting, last.End, entryStart))
				carb := newInterval(CarbAbsorption, entryStart, entryEnd)
				carb.addCarbs(entered, observed)
				intervals = append(intervals, carb)
				runningEnd = entryEnd
			} else {
				// Overlapping or adjacent absorption merges into the previous
				// carb interval.
				if entryEnd.After(last.End) {
					last.End = entryEnd
				}
				if entryStart.Before(last.Start) {
					last.Start = entryStart
				}
				last.addCarbs(entered, observed)
				last.reslice(glucose, insulin, basal)
				runningEnd = last.End
			}
		}
	}

	// A pre-window record whose tail reaches past the window end leaves
	// nothing to analyze.
	if start.After(end) {
		start = end
		runningEnd = start
	}
	if runningEnd.Before(end) {
		intervals = append(intervals, newInterval(Fasting, runningEnd, end))
	}
	appendStatus(fmt.Sprintf("assembled %d intervals spanning %s to %s",
		len(intervals), start.UTC().Format(time.RFC3339), end.UTC().Format(time.RFC3339)))
	a.logger.Debug().Int("intervals", len(intervals)).Time("start", start).Time("end", end).Msg("assembly complete")
	return AssemblyResult{Intervals: intervals, Start: start, End: end, Status: status}
}
