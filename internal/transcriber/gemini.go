package transcriber

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"google.golang.org/genai"
)

// MaxInlineAudioBytes is the largest audio file sent inline to Gemini.
// Requests above about 20 MB are rejected by the API.
const MaxInlineAudioBytes = 20 << 20

// ErrAudioTooLarge is returned when a file exceeds the inline request limit.
var ErrAudioTooLarge = errors.New("audio too large for inline Gemini request")

const transcribePrompt = `Transcribe this lecture recording verbatim.
Return only the spoken words as plain text. No timestamps, no speaker labels, no commentary.`

var audioMIMETypes = map[string]string{
	".wav":  "audio/wav",
	".mp3":  "audio/mp3",
	".m4a":  "audio/aac",
	".ogg":  "audio/ogg",
	".flac": "audio/flac",
}

func audioMIMEType(path string) (string, error) {
	ext := strings.ToLower(filepath.Ext(path))
	mime, ok := audioMIMETypes[ext]
	if !ok {
		return "", fmt.Errorf("unsupported audio format %q", ext)
	}
	return mime, nil
}

// Transcribe sends the audio inline with a transcription prompt.
func (g *implGemini) Transcribe(ctx context.Context, audioLocation string) (string, error) {
	mime, err := audioMIMEType(audioLocation)
	if err != nil {
		return "", err
	}

	info, err := g.stat(audioLocation)
	if err != nil {
		return "", fmt.Errorf("read audio: %w", err)
	}
	if info.Size() > g.maxInline {
		return "", fmt.Errorf("%w: %d bytes, limit %d (use the whisper backend for long recordings)",
			ErrAudioTooLarge, info.Size(), g.maxInline)
	}

	data, err := g.readFile(audioLocation)
	if err != nil {
		return "", fmt.Errorf("read audio: %w", err)
	}

	g.logger.Info(ctx, "Transcribing with Gemini (%s, %d bytes): %s", mime, len(data), audioLocation)

	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromText(transcribePrompt),
			genai.NewPartFromBytes(data, mime),
		}, genai.RoleUser),
	}

	text, err := g.client.Generate(ctx, contents)
	if err != nil {
		return "", fmt.Errorf("gemini transcribe: %w", err)
	}
	return text, nil
}
