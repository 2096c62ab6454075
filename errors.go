package doc2pub

import (
	"errors"
	"fmt"
)

// Sentinel errors for library operations.
var (
	ErrUnsupportedFormat = errors.New("unsupported input format")
	ErrToolNotFound      = errors.New("packaging tool not found")
	ErrInputNotFound     = errors.New("input file not found")
	ErrStage1Failed      = errors.New("interchange conversion failed")
	ErrStage2Failed      = errors.New("device packaging failed")
	ErrRenameFailed      = errors.New("renaming packaged output failed")

	// Construction errors.
	ErrInvalidConfig  = errors.New("invalid converter configuration")
	ErrEngineNotFound = errors.New("no interchange engine available")
)

// Stage identifies one of the two conversion stages.
type Stage int

const (
	StageNone Stage = iota
	StageDetect
	StageInterchange
	StagePackage
	StageFinalize
	StageCleanup
)

func (s Stage) String() string {
	switch s {
	case StageDetect:
		return "detect"
	case StageInterchange:
		return "interchange"
	case StagePackage:
		return "package"
	case StageFinalize:
		return "finalize"
	case StageCleanup:
		return "cleanup"
	default:
		return "none"
	}
}

// StageError reports a failure inside a conversion stage.
// It matches both its Kind sentinel (ErrStage1Failed, ErrStage2Failed or
// ErrRenameFailed) and the underlying cause with errors.Is.
type StageError struct {
	Kind  error
	Stage Stage

	// Detail is the external tool's diagnostic output, unmodified.
	Detail string

	// Interchange is the path of a retained interchange artifact, if any.
	Interchange string

	Err error
}

func (e *StageError) Error() string {
	msg := e.Kind.Error()
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	if e.Detail != "" {
		msg += "\n" + e.Detail
	}
	return msg
}

func (e *StageError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}
