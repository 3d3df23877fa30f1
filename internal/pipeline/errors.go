package pipeline

import "fmt"

// Stage names the capability that failed.
type Stage string

const (
	StageTranscription Stage = "transcription"
	StageSummarization Stage = "summarization"
)

// StageError tags an upstream capability failure with the stage it came from.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}
