package session

import (
	"context"
	"errors"

	"github.com/rbright/tellyspelly/internal/audio"
	"github.com/rbright/tellyspelly/internal/transcribe"
)

// Summary maps a pipeline failure to the short text shown in notifications.
func Summary(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, audio.ErrNoAudio):
		return "No audio was recorded"
	case errors.Is(err, transcribe.ErrMissingAPIKey):
		return "OpenAI API key not configured"
	case errors.Is(err, transcribe.ErrEmptyTranscription):
		return "No text was transcribed"
	case errors.Is(err, transcribe.ErrBusy):
		return "Transcription already in progress"
	case errors.Is(err, context.DeadlineExceeded):
		return "Transcription timed out"
	case errors.Is(err, context.Canceled):
		return "Cancelled"
	default:
		return "Transcription failed"
	}
}
