package commands

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"hotseat/internal/domain"
	"hotseat/internal/metrics"
	"hotseat/internal/usecase"
)

func TestVerifyCommand(t *testing.T) {
	dir := t.TempDir()
	events := []domain.ServerEvent{
		domain.SessionOpened(),
		domain.ModelText("Why this role?"),
		domain.TurnComplete(),
		domain.InputTranscription("Because of the team."),
		domain.TurnComplete(),
	}
	for i := range events {
		events[i].Seq = i
	}
	good := domain.Recording{SessionID: "s-1", Events: events, Turns: usecase.Replay("s-1", events)}
	goodPath := filepath.Join(dir, "good.json")
	if err := saveRecording(goodPath, good); err != nil {
		t.Fatalf("save: %v", err)
	}

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
	})

	rootCmd.SetArgs([]string{"verify", goodPath})
	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("verify failed: %v", err)
	}
	if !strings.Contains(out.String(), "5 events, 2 turns") {
		t.Fatalf("unexpected output: %q", out.String())
	}

	tampered := good
	tampered.Turns = []domain.TranscriptTurn{{ID: "x", Role: domain.RoleModel, Text: "Why this role?"}}
	badPath := filepath.Join(dir, "bad.json")
	if err := saveRecording(badPath, tampered); err != nil {
		t.Fatalf("save: %v", err)
	}
	rootCmd.SetArgs([]string{"verify", badPath})
	if err := rootCmd.Execute(); err == nil {
		t.Fatalf("expected tampered recording to fail verification")
	}
}

func TestLoadRecordingErrors(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	if _, err := loadRecording(filepath.Join(dir, "missing.json")); err == nil {
		t.Fatalf("expected read error")
	}
	path := filepath.Join(dir, "broken.json")
	if err := os.WriteFile(path, []byte("{"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := loadRecording(path); err == nil || !strings.Contains(err.Error(), "failed to parse recording") {
		t.Fatalf("expected parse error, got %v", err)
	}
}

func TestLoadBrief(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	resume := filepath.Join(dir, "resume.txt")
	if err := os.WriteFile(resume, []byte("Ten years of Go."), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	brief, err := loadBrief(resume, "")
	if err != nil {
		t.Fatalf("load brief: %v", err)
	}
	if brief.ResumeText != "Ten years of Go." || brief.JobDescription != "" {
		t.Fatalf("unexpected brief: %+v", brief)
	}
	if _, err := loadBrief(resume, filepath.Join(dir, "missing.txt")); err == nil {
		t.Fatalf("expected missing job description error")
	}
}

func TestMetricsServerServesRegistry(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	m.SessionsStarted.Inc()

	srv := httptest.NewServer(newMetricsServer(":0", reg).Handler)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/metrics")
	if err != nil {
		t.Fatalf("get metrics: %v", err)
	}
	defer resp.Body.Close()
	var body bytes.Buffer
	if _, err := body.ReadFrom(resp.Body); err != nil {
		t.Fatalf("read body: %v", err)
	}
	if !strings.Contains(body.String(), "hotseat_sessions_started_total 1") {
		t.Fatalf("expected session counter in output: %q", body.String())
	}

	health, err := http.Get(srv.URL + "/health")
	if err != nil {
		t.Fatalf("get health: %v", err)
	}
	health.Body.Close()
	if health.StatusCode != http.StatusOK {
		t.Fatalf("unexpected health status: %d", health.StatusCode)
	}
}
