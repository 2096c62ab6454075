//go:build unix

package doc2pub

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// writeScript creates an executable shell script in a temp directory.
func writeScript(t *testing.T, body string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "tool.sh")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o755); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestExecRunner_Run(t *testing.T) {
	t.Parallel()

	r := &ExecRunner{}
	ctx := context.Background()

	t.Run("success captures output", func(t *testing.T) {
		t.Parallel()

		script := writeScript(t, `echo "out:$1"; echo "warn" >&2`)
		res, err := r.Run(ctx, script, "arg")
		if err != nil {
			t.Fatalf("Run() error = %v", err)
		}
		if res.Stdout != "out:arg\n" || res.Stderr != "warn\n" || res.ExitCode != 0 {
			t.Errorf("Run() = %+v", res)
		}
	})

	t.Run("non-zero exit keeps stderr verbatim", func(t *testing.T) {
		t.Parallel()

		script := writeScript(t, `printf 'line one\n  line two\n' >&2; exit 3`)
		res, err := r.Run(ctx, script)
		var te *ToolError
		if !errors.As(err, &te) {
			t.Fatalf("Run() error = %T %v, want *ToolError", err, err)
		}
		if te.ExitCode != 3 || res.ExitCode != 3 {
			t.Errorf("exit code = %d/%d, want 3", te.ExitCode, res.ExitCode)
		}
		if te.Stderr != "line one\n  line two\n" {
			t.Errorf("Stderr = %q", te.Stderr)
		}
		if !strings.Contains(te.Error(), "status 3") {
			t.Errorf("Error() = %q", te.Error())
		}
		if got := toolDetail(err); got != "line one\n  line two" {
			t.Errorf("toolDetail() = %q", got)
		}
	})

	t.Run("missing executable", func(t *testing.T) {
		t.Parallel()

		_, err := r.Run(ctx, filepath.Join(t.TempDir(), "absent"))
		var te *ToolError
		if !errors.As(err, &te) || te.ExitCode != -1 {
			t.Errorf("Run() error = %v, want ToolError with exit -1", err)
		}
	})

	t.Run("timeout kills the process group", func(t *testing.T) {
		t.Parallel()

		marker := filepath.Join(t.TempDir(), "survived")
		// The child sleeps then writes a marker; killing only the shell
		// would leave it running.
		script := writeScript(t, `(sleep 2; touch "`+marker+`") & sleep 30`)

		tctx, cancel := context.WithTimeout(ctx, 200*time.Millisecond)
		defer cancel()

		start := time.Now()
		_, err := r.Run(tctx, script)
		if !errors.Is(err, context.DeadlineExceeded) {
			t.Fatalf("Run() error = %v, want DeadlineExceeded", err)
		}
		if elapsed := time.Since(start); elapsed > 10*time.Second {
			t.Errorf("Run() took %v after timeout", elapsed)
		}

		time.Sleep(2500 * time.Millisecond)
		if _, statErr := os.Stat(marker); statErr == nil {
			t.Error("child process survived the group kill")
		}
	})
}
