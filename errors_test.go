package doc2pub

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestStageError(t *testing.T) {
	t.Parallel()

	cause := &ToolError{Tool: "ebook-convert", ExitCode: 1, Stderr: "bad\n", Err: context.DeadlineExceeded}
	err := error(&StageError{
		Kind:   ErrStage2Failed,
		Stage:  StagePackage,
		Detail: "bad\n",
		Err:    cause,
	})

	if !errors.Is(err, ErrStage2Failed) {
		t.Error("errors.Is(err, ErrStage2Failed) = false")
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Error("errors.Is should reach the cause")
	}
	if errors.Is(err, ErrStage1Failed) {
		t.Error("errors.Is(err, ErrStage1Failed) = true")
	}
	var te *ToolError
	if !errors.As(err, &te) || te.ExitCode != 1 {
		t.Error("errors.As should find the ToolError")
	}

	msg := err.Error()
	if !strings.HasPrefix(msg, "device packaging failed: ebook-convert exited with status 1") {
		t.Errorf("Error() = %q", msg)
	}
	if !strings.HasSuffix(msg, "\nbad\n") {
		t.Errorf("Error() should end with the detail: %q", msg)
	}
}

func TestStageError_NoCause(t *testing.T) {
	t.Parallel()

	err := &StageError{Kind: ErrRenameFailed, Stage: StageFinalize}
	if err.Error() != ErrRenameFailed.Error() {
		t.Errorf("Error() = %q", err.Error())
	}
	if len(err.Unwrap()) != 1 {
		t.Errorf("Unwrap() = %v, want only the kind", err.Unwrap())
	}
}

func TestStage_String(t *testing.T) {
	t.Parallel()

	want := map[Stage]string{
		StageNone:        "none",
		StageDetect:      "detect",
		StageInterchange: "interchange",
		StagePackage:     "package",
		StageFinalize:    "finalize",
		StageCleanup:     "cleanup",
	}
	for s, w := range want {
		if s.String() != w {
			t.Errorf("Stage(%d).String() = %q, want %q", int(s), s.String(), w)
		}
	}
}
