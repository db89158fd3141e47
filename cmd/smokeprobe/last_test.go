package main

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"

	"github.com/hazz-dev/smokeprobe/internal/storage"
)

type mockLastStore struct {
	run *storage.Run
	err error
}

func (m *mockLastStore) LatestRun(_ context.Context) (*storage.Run, error) {
	return m.run, m.err
}

func TestExecuteLast_EmptyDB(t *testing.T) {
	cmd := &cobra.Command{}
	var buf bytes.Buffer
	cmd.SetOut(&buf)

	if err := executeLast(cmd, &mockLastStore{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !strings.Contains(buf.String(), "No archived runs") {
		t.Errorf("expected 'No archived runs' message, got:\n%s", buf.String())
	}
}

func TestExecuteLast_WithRun(t *testing.T) {
	run := &storage.Run{
		ID:          7,
		FinishedAt:  time.Now(),
		Total:       2,
		Passed:      1,
		Failed:      1,
		SuccessRate: 50,
		Results: []storage.Result{
			{Seq: 0, Name: "GetBritEdgeInfo API", Status: "PASS", Message: "250 employees, 2 locations"},
			{Seq: 1, Name: "Security Headers", Status: "FAIL", Message: "2/4 security headers present"},
		},
	}

	cmd := &cobra.Command{}
	var buf bytes.Buffer
	cmd.SetOut(&buf)

	if err := executeLast(cmd, &mockLastStore{run: run}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	output := buf.String()
	for _, want := range []string{"Run #7", "FAIL", "1/2 passed (50.0%)", "STATUS", "Security Headers", "2/4 security headers present"} {
		if !strings.Contains(output, want) {
			t.Errorf("expected %q in output, got:\n%s", want, output)
		}
	}
}

func TestExecuteLast_StoreError(t *testing.T) {
	cmd := &cobra.Command{}
	cmd.SetOut(&bytes.Buffer{})

	err := executeLast(cmd, &mockLastStore{err: errors.New("locked")})
	if err == nil {
		t.Fatal("expected error")
	}
}

func TestVersionCmd(t *testing.T) {
	cmd := versionCmd()
	var buf bytes.Buffer
	cmd.SetOut(&buf)
	cmd.Run(cmd, nil)

	if !strings.HasPrefix(buf.String(), "smokeprobe dev") {
		t.Errorf("unexpected version output %q", buf.String())
	}
}
