package harness

import (
	"fmt"
	"math"
	"time"
)

// Summary aggregates a result log.
type Summary struct {
	Total       int           `json:"total"`
	Passed      int           `json:"passed"`
	Failed      int           `json:"failed"`
	SuccessRate float64       `json:"success_rate"`
	Elapsed     time.Duration `json:"elapsed"`
	Failures    []Result      `json:"failures"`
}

// Summarize computes a Summary from results. SuccessRate is a percentage
// rounded to one decimal place, and 0 for an empty log.
func Summarize(results []Result, elapsed time.Duration) Summary {
	s := Summary{
		Total:    len(results),
		Elapsed:  elapsed,
		Failures: []Result{},
	}
	for _, r := range results {
		if r.Passed() {
			s.Passed++
			continue
		}
		s.Failed++
		s.Failures = append(s.Failures, r)
	}
	s.SuccessRate = successRate(s.Passed, s.Total)
	return s
}

// SuccessRateText renders SuccessRate with exactly one decimal, e.g. "100.0".
func (s Summary) SuccessRateText() string {
	return fmt.Sprintf("%.1f", s.SuccessRate)
}

func successRate(passed, total int) float64 {
	if total == 0 {
		return 0
	}
	return math.Round(float64(passed)/float64(total)*1000) / 10
}
