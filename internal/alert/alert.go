package alert

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/hazz-dev/smokeprobe/internal/harness"
)

// Alerter sends webhook notifications when a run flips between passing and failing.
type Alerter struct {
	webhookURL string
	cooldown   time.Duration
	client     *http.Client
	lastAlert  time.Time
	mu         sync.Mutex
	wg         sync.WaitGroup
	logger     *slog.Logger
}

// New creates a new Alerter. Pass nil logger to use the default logger.
func New(webhookURL string, cooldown time.Duration, logger *slog.Logger) *Alerter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Alerter{
		webhookURL: webhookURL,
		cooldown:   cooldown,
		client:     &http.Client{Timeout: 10 * time.Second},
		logger:     logger,
	}
}

type webhookPayload struct {
	Status         string   `json:"status"`
	PreviousStatus string   `json:"previous_status"`
	Total          int      `json:"total"`
	Passed         int      `json:"passed"`
	Failed         int      `json:"failed"`
	SuccessRate    float64  `json:"success_rate"`
	FailedChecks   []string `json:"failed_checks"`
	FinishedAt     string   `json:"finished_at"`
	Source         string   `json:"source"`
}

// Notify sends a webhook if the run outcome changed and the cooldown has elapsed.
func (a *Alerter) Notify(rep harness.Report, prevOK *bool) {
	// First run: nothing to compare against.
	if prevOK == nil {
		return
	}
	// Outcome unchanged.
	if rep.OK() == *prevOK {
		return
	}

	a.mu.Lock()
	if !a.lastAlert.IsZero() && time.Since(a.lastAlert) < a.cooldown {
		a.mu.Unlock()
		a.logger.Info("alert suppressed by cooldown", "status", outcome(rep.OK()))
		return
	}
	a.lastAlert = time.Now()
	a.mu.Unlock()

	// Send asynchronously so Notify doesn't block the scheduler.
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		a.send(rep, outcome(*prevOK))
	}()
}

// Wait blocks until in-flight webhooks have been delivered or have failed.
func (a *Alerter) Wait() {
	a.wg.Wait()
}

func (a *Alerter) send(rep harness.Report, prevStatus string) {
	s := rep.Summary
	payload := webhookPayload{
		Status:         outcome(rep.OK()),
		PreviousStatus: prevStatus,
		Total:          s.Total,
		Passed:         s.Passed,
		Failed:         s.Failed,
		SuccessRate:    s.SuccessRate,
		FailedChecks:   make([]string, 0, len(s.Failures)),
		FinishedAt:     rep.FinishedAt.UTC().Format(time.RFC3339),
		Source:         "smokeprobe",
	}
	for _, f := range s.Failures {
		payload.FailedChecks = append(payload.FailedChecks, f.Name)
	}

	body, err := json.Marshal(payload)
	if err != nil {
		a.logger.Error("marshaling webhook payload", "error", err)
		return
	}

	resp, err := a.client.Post(a.webhookURL, "application/json", bytes.NewReader(body))
	if err != nil {
		a.logger.Error("sending webhook", "url", a.webhookURL, "error", err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		a.logger.Warn("webhook returned non-2xx status", "status", resp.StatusCode)
	}
}

func outcome(ok bool) string {
	if ok {
		return string(harness.StatusPass)
	}
	return string(harness.StatusFail)
}
