// Package ledger owns the lifecycle of lecture jobs:
// PROCESSING -> COMPLETED | FAILED, with both outcomes terminal.
package ledger

import (
	"errors"
	"fmt"
	"time"
)

// Status is the lifecycle state of a Job.
type Status string

const (
	StatusProcessing Status = "PROCESSING"
	StatusCompleted  Status = "COMPLETED"
	StatusFailed     Status = "FAILED"
)

// IsTerminal reports whether no further transition is allowed.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

var (
	// ErrDuplicateJob is returned by Create when the id is already taken.
	ErrDuplicateJob = errors.New("job already exists")
	// ErrJobNotFound is returned for unknown job ids.
	ErrJobNotFound = errors.New("job not found")
	// ErrJobFinalized is returned when recording an outcome for a job that
	// already reached a terminal state.
	ErrJobFinalized = errors.New("job already finalized")
)

// Job is one tracked unit of transcription and summarization work.
type Job struct {
	ID             string    `json:"id"`
	Title          string    `json:"title"`
	AudioLocation  string    `json:"audio_location"`
	Status         Status    `json:"status"`
	TranscriptText string    `json:"transcript_text"`
	SummaryText    string    `json:"summary_text"`
	CreatedAt      time.Time `json:"created_at"`
}

func newJob(id, title, audioLocation string, now time.Time) Job {
	return Job{
		ID:            id,
		Title:         title,
		AudioLocation: audioLocation,
		Status:        StatusProcessing,
		CreatedAt:     now.UTC(),
	}
}

// complete applies a success outcome to j.
func (j *Job) complete(transcript, summary string) error {
	if j.Status.IsTerminal() {
		return fmt.Errorf("%w: %s is %s", ErrJobFinalized, j.ID, j.Status)
	}
	j.Status = StatusCompleted
	j.TranscriptText = transcript
	j.SummaryText = summary
	return nil
}

// fail applies a failure outcome to j. The transcript is left as it is.
func (j *Job) fail(description string) error {
	if j.Status.IsTerminal() {
		return fmt.Errorf("%w: %s is %s", ErrJobFinalized, j.ID, j.Status)
	}
	j.Status = StatusFailed
	j.SummaryText = description
	return nil
}

func notFound(id string) error {
	return fmt.Errorf("%w: %s", ErrJobNotFound, id)
}

func duplicate(id string) error {
	return fmt.Errorf("%w: %s", ErrDuplicateJob, id)
}
