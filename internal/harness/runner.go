// Package harness holds the smoke-test runner: an append-only result log,
// the sequential orchestration of check groups, and the summary report.
package harness

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/fatih/color"
	"gopkg.in/launchdarkly/go-sdk-common.v2/ldvalue"
)

var (
	passColor    = color.New(color.FgGreen, color.Bold)
	failColor    = color.New(color.FgRed, color.Bold)
	skipColor    = color.New(color.FgYellow)
	sectionColor = color.New(color.FgCyan, color.Bold)
)

// Recorder accepts assertion outcomes from check routines.
type Recorder interface {
	Record(name string, passed bool, message string, data ldvalue.Value)
}

// Check is one self-contained check routine. Run calls rec.Record zero or
// more times and must not panic on network or parse errors.
type Check interface {
	Name() string
	Run(ctx context.Context, rec Recorder)
}

// Group is an ordered set of checks run under a common heading.
type Group struct {
	Title  string
	Checks []Check
}

// Option configures a Runner.
type Option func(*Runner)

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(r *Runner) { r.now = now }
}

// WithFilter skips checks whose name the filter rejects.
func WithFilter(f Filter) Option {
	return func(r *Runner) { r.filter = f }
}

// Runner owns the result log of a single run. It is not safe for concurrent
// use; checks are executed one at a time.
type Runner struct {
	out     io.Writer
	now     func() time.Time
	filter  Filter
	started time.Time
	results []Result
}

// NewRunner creates a Runner writing human-readable output to out.
// Pass nil out to discard output.
func NewRunner(out io.Writer, opts ...Option) *Runner {
	if out == nil {
		out = io.Discard
	}
	r := &Runner{
		out: out,
		now: time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.started = r.now()
	return r
}

// Record appends a result stamped with the current time and prints it.
func (r *Runner) Record(name string, passed bool, message string, data ldvalue.Value) {
	res := Result{
		Name:      name,
		Status:    statusOf(passed),
		Message:   message,
		Timestamp: r.now(),
		Data:      data,
	}
	r.results = append(r.results, res)
	r.printResult(res)
}

// Results returns a copy of the log in insertion order.
func (r *Runner) Results() []Result {
	return append([]Result(nil), r.results...)
}

// StartedAt returns the construction time of the runner.
func (r *Runner) StartedAt() time.Time {
	return r.started
}

// Summary aggregates the log without printing anything.
func (r *Runner) Summary() Summary {
	return Summarize(r.results, r.now().Sub(r.started))
}

// GenerateSummary prints the summary block and returns it. It only reads
// state and may be called more than once.
func (r *Runner) GenerateSummary() Summary {
	s := r.Summary()

	fmt.Fprintln(r.out)
	fmt.Fprintln(r.out, sectionColor.Sprint("== Summary =="))
	fmt.Fprintf(r.out, "Total:        %d\n", s.Total)
	fmt.Fprintf(r.out, "Passed:       %d\n", s.Passed)
	fmt.Fprintf(r.out, "Failed:       %d\n", s.Failed)
	fmt.Fprintf(r.out, "Success rate: %s%%\n", s.SuccessRateText())
	fmt.Fprintf(r.out, "Elapsed:      %s\n", s.Elapsed.Round(time.Millisecond))

	if len(s.Failures) > 0 {
		fmt.Fprintln(r.out)
		fmt.Fprintln(r.out, "Failed checks:")
		for _, f := range s.Failures {
			fmt.Fprintf(r.out, "  %s %s: %s\n", failColor.Sprint("✗"), f.Name, f.Message)
		}
	}
	return s
}

// RunAll executes groups in order, each check to completion before the next,
// then prints and returns the summary. A cancelled ctx stops the run between
// checks; results recorded so far are kept.
func (r *Runner) RunAll(ctx context.Context, groups []Group) Summary {
run:
	for _, g := range groups {
		fmt.Fprintln(r.out)
		fmt.Fprintln(r.out, sectionColor.Sprintf("== %s ==", g.Title))
		for _, c := range g.Checks {
			if err := ctx.Err(); err != nil {
				fmt.Fprintf(r.out, "run interrupted: %v\n", err)
				break run
			}
			if r.filter != nil && !r.filter(c.Name()) {
				fmt.Fprintf(r.out, "%s %s (excluded by filter)\n", skipColor.Sprint("SKIP"), c.Name())
				continue
			}
			c.Run(ctx, r)
		}
	}
	return r.GenerateSummary()
}

// Report snapshots the run.
func (r *Runner) Report() Report {
	finished := r.now()
	return Report{
		StartedAt:  r.started,
		FinishedAt: finished,
		Results:    r.Results(),
		Summary:    Summarize(r.results, finished.Sub(r.started)),
	}
}

func (r *Runner) printResult(res Result) {
	icon := passColor.Sprint("✓ PASS")
	if !res.Passed() {
		icon = failColor.Sprint("✗ FAIL")
	}
	fmt.Fprintf(r.out, "%s %s: %s\n", icon, res.Name, res.Message)
	if res.Data.IsNull() {
		return
	}
	data, err := json.MarshalIndent(res.Data, "    ", "  ")
	if err != nil {
		return
	}
	fmt.Fprintf(r.out, "    %s\n", data)
}
