package transcriber

import "context"

// Transcriber is the speech-to-text capability. audioLocation is whatever
// the audio store handed out for the upload (a local path today).
type Transcriber interface {
	Transcribe(ctx context.Context, audioLocation string) (string, error)
}

// Func adapts a function to Transcriber.
type Func func(ctx context.Context, audioLocation string) (string, error)

func (f Func) Transcribe(ctx context.Context, audioLocation string) (string, error) {
	return f(ctx, audioLocation)
}
