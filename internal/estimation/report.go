package estimation

import (
	"fmt"
	"strings"
	"time"
)

// Render produces the human-readable diagnostic report for a session: one
// status header line followed by one block per interval. Pure formatting.
func Render(s *Session) string {
	var b strings.Builder

	fmt.Fprintf(&b, "status: %s\n", s.Status)
	fmt.Fprintf(&b, "window: %s - %s\n", formatTime(s.Start), formatTime(s.End))

	for i, iv := range s.Intervals {
		fmt.Fprintf(&b, "\ninterval %d: %s - %s (%s)\n", i+1, formatTime(iv.Start), formatTime(iv.End), iv.Type)

		if iv.Type == CarbAbsorption {
			fmt.Fprintf(&b, "  carbs: entered %s g, observed %s g\n", iv.EnteredCarbs.String(), iv.ObservedCarbs.String())
		} else {
			b.WriteString("  carbs: none\n")
		}

		if iv.Estimated {
			fmt.Fprintf(&b, "  delta glucose: %.1f  delta insulin: %.1f  delta basal: %.1f\n",
				iv.DeltaGlucose, iv.DeltaGlucoseInsulin, iv.DeltaGlucoseBasal)
		} else {
			b.WriteString("  deltas: unavailable\n")
		}

		if m := iv.Multipliers; m != nil {
			fmt.Fprintf(&b, "  multipliers: basal %.3f  isf %.3f  csf %.3f  cr %.3f\n",
				m.Basal, m.InsulinSensitivity, m.CarbSensitivity, m.CarbRatio)
		} else {
			b.WriteString("  multipliers: unavailable\n")
		}
	}

	return b.String()
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
