package session

import (
	"context"
	"errors"
	"time"
)

// ErrNotRecording is returned by a pipeline asked to stop before it started.
var ErrNotRecording = errors.New("recording has not started")

// StopResult describes one finished capture and transcription.
type StopResult struct {
	Transcript        string
	AudioDevice       string
	Backend           string
	SamplesCaptured   int64
	AudioDuration     time.Duration
	TranscribeLatency time.Duration
}

// Transcriber is the capture and speech-to-text pipeline driven by the controller.
type Transcriber interface {
	Start(context.Context) error
	StopAndTranscribe(context.Context) (StopResult, error)
	Cancel(context.Context) error
}

// Committer delivers a finished transcript.
type Committer interface {
	Commit(context.Context, string) error
}

// CommitFunc adapts a function to the Committer interface.
type CommitFunc func(context.Context, string) error

func (f CommitFunc) Commit(ctx context.Context, transcript string) error {
	return f(ctx, transcript)
}
