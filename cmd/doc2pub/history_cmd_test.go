package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	doc2pub "github.com/alnah/go-doc2pub"
	"github.com/alnah/go-doc2pub/internal/history"
)

// seedHistory writes records into the ledger the test environment uses.
func seedHistory(t *testing.T, te *testEnv, records ...doc2pub.JobRecord) {
	t.Helper()

	store, err := history.Open(te.vars["DOC2PUB_HISTORY_PATH"])
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = store.Close() }()
	for _, rec := range records {
		if err := store.RecordJob(context.Background(), rec); err != nil {
			t.Fatal(err)
		}
	}
}

func failedRecord(id, retained string, started time.Time) doc2pub.JobRecord {
	return doc2pub.JobRecord{
		ID:          id,
		Input:       "input/" + id + ".md",
		Format:      "md",
		State:       doc2pub.JobFailed.String(),
		FailedStage: doc2pub.StagePackage.String(),
		Retained:    retained,
		Error:       "device packaging failed\nConversion error: bad profile",
		StartedAt:   started,
		FinishedAt:  started.Add(time.Second),
	}
}

func TestHistory_List(t *testing.T) {
	t.Parallel()

	te := newTestEnv(t)
	start := time.Date(2026, 1, 15, 14, 0, 0, 0, time.UTC)
	seedHistory(t, te,
		doc2pub.JobRecord{ID: "ok", Input: "input/ok.md", Output: "output/ok.pub", State: doc2pub.JobDone.String(), StartedAt: start},
		failedRecord("bad", "", start.Add(time.Minute)),
	)

	if code := te.run("history"); code != ExitSuccess {
		t.Fatalf("exit code = %d, stderr: %s", code, te.stderr)
	}
	out := te.stdout.String()
	if !strings.HasPrefix(out, "STARTED") {
		t.Errorf("missing header:\n%s", out)
	}
	if !strings.Contains(out, "failed ("+doc2pub.StagePackage.String()+")") {
		t.Errorf("missing failed stage:\n%s", out)
	}
	if strings.Index(out, "input/bad.md") > strings.Index(out, "input/ok.md") {
		t.Errorf("newest job not first:\n%s", out)
	}
}

func TestHistory_Empty(t *testing.T) {
	t.Parallel()

	te := newTestEnv(t)
	if code := te.run("history"); code != ExitSuccess {
		t.Fatalf("exit code = %d, stderr: %s", code, te.stderr)
	}
	if !strings.Contains(te.stdout.String(), "No jobs recorded") {
		t.Errorf("stdout = %q", te.stdout)
	}
}

func TestHistory_RetainedAndClean(t *testing.T) {
	t.Parallel()

	te := newTestEnv(t)
	kept := filepath.Join(t.TempDir(), "report.epub")
	if err := os.WriteFile(kept, []byte("epub"), 0o644); err != nil {
		t.Fatal(err)
	}
	start := time.Date(2026, 1, 15, 14, 0, 0, 0, time.UTC)
	seedHistory(t, te,
		failedRecord("kept", kept, start),
		failedRecord("gone", filepath.Join(t.TempDir(), "gone.epub"), start),
	)

	if code := te.run("history", "--retained"); code != ExitSuccess {
		t.Fatalf("exit code = %d, stderr: %s", code, te.stderr)
	}
	out := te.stdout.String()
	if !strings.Contains(out, kept) || strings.Contains(out, "gone.epub") {
		t.Errorf("retained listing:\n%s", out)
	}
	if !strings.Contains(out, "error: device packaging failed") {
		t.Errorf("missing error line:\n%s", out)
	}

	te.stdout.Reset()
	if code := te.run("history", "--clean"); code != ExitSuccess {
		t.Fatalf("clean exit code = %d, stderr: %s", code, te.stderr)
	}
	if !strings.Contains(te.stdout.String(), "Removed "+kept) {
		t.Errorf("clean output = %q", te.stdout)
	}
	if _, err := os.Stat(kept); !os.IsNotExist(err) {
		t.Errorf("retained file still present: %v", err)
	}

	te.stdout.Reset()
	te.run("history", "-r")
	if !strings.Contains(te.stdout.String(), "No retained interchange artifacts") {
		t.Errorf("after clean = %q", te.stdout)
	}
}

func TestHistory_Disabled(t *testing.T) {
	t.Parallel()

	te := newTestEnv(t)
	cfgPath := filepath.Join(t.TempDir(), "c.yaml")
	if err := os.WriteFile(cfgPath, []byte("history:\n  enabled: false\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	if code := te.run("history", "-c", cfgPath); code != ExitFailure {
		t.Fatalf("exit code = %d", code)
	}
	if !strings.Contains(te.stderr.String(), "job history is disabled") {
		t.Errorf("stderr = %q", te.stderr)
	}
}

func TestHistory_TooManyArgs(t *testing.T) {
	t.Parallel()

	te := newTestEnv(t)
	if code := te.run("history", "extra"); code != ExitFailure {
		t.Errorf("exit code = %d", code)
	}
}
