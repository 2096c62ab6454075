package doc2pub

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// JobState is the lifecycle position of a conversion job.
// States only move forward.
type JobState int

const (
	JobCreated JobState = iota
	JobDetected
	JobStage1Done
	JobStage2Done
	JobCleaned
	JobDone
	JobFailed
)

func (s JobState) String() string {
	switch s {
	case JobCreated:
		return "created"
	case JobDetected:
		return "detected"
	case JobStage1Done:
		return "stage1-done"
	case JobStage2Done:
		return "stage2-done"
	case JobCleaned:
		return "cleaned"
	case JobDone:
		return "done"
	case JobFailed:
		return "failed"
	default:
		return fmt.Sprintf("JobState(%d)", int(s))
	}
}

// Terminal reports whether no further transition is allowed.
func (s JobState) Terminal() bool {
	return s == JobDone || s == JobFailed
}

var errInvalidTransition = errors.New("invalid job state transition")

// Job tracks one Convert call.
type Job struct {
	ID            string
	Input         InputDocument
	Output        string
	State         JobState
	FailedStage   Stage
	Intermediates []string
	Retained      string // Interchange kept after a failure
	Err           error
	StartedAt     time.Time
	FinishedAt    time.Time

	trail []JobState
}

func newJob(now time.Time) *Job {
	return &Job{
		ID:        uuid.NewString(),
		State:     JobCreated,
		StartedAt: now,
		trail:     []JobState{JobCreated},
	}
}

// advance moves the job to a later state.
func (j *Job) advance(to JobState) error {
	if j.State.Terminal() || to <= j.State || to == JobFailed {
		return fmt.Errorf("%w: %s -> %s", errInvalidTransition, j.State, to)
	}
	j.State = to
	j.trail = append(j.trail, to)
	return nil
}

// fail marks the job failed at stage. Failing a terminal job is an error.
func (j *Job) fail(stage Stage, err error) error {
	if j.State.Terminal() {
		return fmt.Errorf("%w: %s -> %s", errInvalidTransition, j.State, JobFailed)
	}
	j.State = JobFailed
	j.FailedStage = stage
	j.Err = err
	j.trail = append(j.trail, JobFailed)
	return nil
}

// Trail returns the states the job passed through, in order.
func (j *Job) Trail() []JobState {
	return append([]JobState(nil), j.trail...)
}

// JobRecord is the ledger entry written for every finished job.
type JobRecord struct {
	ID          string
	Input       string
	Format      string
	Output      string
	State       string
	FailedStage string
	Retained    string
	Error       string
	StartedAt   time.Time
	FinishedAt  time.Time
	Trail       []JobState
}

// Record returns the ledger view of j.
func (j *Job) Record() JobRecord {
	rec := JobRecord{
		ID:         j.ID,
		Input:      j.Input.Path,
		Format:     string(j.Input.Format),
		Output:     j.Output,
		State:      j.State.String(),
		Retained:   j.Retained,
		StartedAt:  j.StartedAt,
		FinishedAt: j.FinishedAt,
		Trail:      j.Trail(),
	}
	if j.State == JobFailed {
		rec.FailedStage = j.FailedStage.String()
	}
	if j.Err != nil {
		rec.Error = j.Err.Error()
	}
	return rec
}

// Recorder receives a record of every finished job.
type Recorder interface {
	RecordJob(ctx context.Context, rec JobRecord) error
}
