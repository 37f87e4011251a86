package pipeline

import (
	"time"

	"github.com/hgcal-tools/simchain/driver"
)

// Summary aggregates the records of one run.
type Summary struct {
	Total    int
	Ran      int
	Skipped  int
	Dry      int
	Failed   int
	Duration time.Duration
	ByReason map[driver.Reason]int
}

// Summarize computes aggregate counts over records.
// Safe for nil or empty input (returns zero-value fields).
func Summarize(records []StageRecord) *Summary {
	s := &Summary{ByReason: make(map[driver.Reason]int)}
	s.Total = len(records)
	for _, r := range records {
		s.Duration += r.Duration
		if r.Reason != "" {
			s.ByReason[r.Reason]++
		}
		switch {
		case r.Skipped:
			s.Skipped++
		case r.Dry:
			s.Dry++
		default:
			s.Ran++
			if r.Failed() {
				s.Failed++
			}
		}
	}
	return s
}
