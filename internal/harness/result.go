package harness

import (
	"time"

	"gopkg.in/launchdarkly/go-sdk-common.v2/ldvalue"
)

// Status is the outcome of a single recorded assertion.
type Status string

const (
	StatusPass Status = "PASS"
	StatusFail Status = "FAIL"
)

// Result is one entry of the result log. Data is ldvalue.Null() when absent.
type Result struct {
	Name      string        `json:"name"`
	Status    Status        `json:"status"`
	Message   string        `json:"message"`
	Timestamp time.Time     `json:"timestamp"`
	Data      ldvalue.Value `json:"data"`
}

// Passed reports whether the result has StatusPass.
func (r Result) Passed() bool {
	return r.Status == StatusPass
}

// Report is a snapshot of a finished (or in-progress) run.
type Report struct {
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Results    []Result  `json:"results"`
	Summary    Summary   `json:"summary"`
}

// OK reports whether no check failed.
func (r Report) OK() bool {
	return r.Summary.Failed == 0
}

func statusOf(passed bool) Status {
	if passed {
		return StatusPass
	}
	return StatusFail
}
