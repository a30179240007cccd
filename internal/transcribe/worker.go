package transcribe

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Progress messages emitted by every job, in order.
const (
	MessageStarting   = "Starting transcription..."
	MessageProcessing = "Processing audio..."
	MessageCompleted  = "Transcription completed!"
)

// EventKind identifies a job event.
type EventKind int

const (
	EventProgress EventKind = iota
	EventFinished
	EventFailed
)

func (k EventKind) String() string {
	switch k {
	case EventProgress:
		return "progress"
	case EventFinished:
		return "finished"
	case EventFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Event is published on a job's channel. Finished carries Text, Failed carries Err.
type Event struct {
	Kind    EventKind
	JobID   string
	Message string
	Text    string
	Err     error
}

// at most three progress events plus one terminal event
const jobEventBuffer = 4

// Job is one submitted transcription.
type Job struct {
	ID     string
	events chan Event
	done   chan struct{}
	text   string
	err    error
}

// Events yields progress and the terminal event, then closes.
func (j *Job) Events() <-chan Event { return j.events }

// Done is closed when the job has finished.
func (j *Job) Done() <-chan struct{} { return j.done }

// Wait blocks until the job ends or ctx is done.
func (j *Job) Wait(ctx context.Context) (string, error) {
	select {
	case <-j.done:
		return j.text, j.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// Worker runs transcription jobs on a background goroutine, one at a time.
type Worker struct {
	backend Backend
	timeout time.Duration
	logger  *slog.Logger

	mu   sync.Mutex
	busy bool
}

// NewWorker wraps backend. A zero timeout leaves calls bounded only by the caller's context.
func NewWorker(backend Backend, timeout time.Duration, logger *slog.Logger) *Worker {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Worker{backend: backend, timeout: timeout, logger: logger}
}

// Busy reports whether a job is in flight.
func (w *Worker) Busy() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.busy
}

// Submit starts req on a new goroutine. It returns ErrBusy while another job runs.
func (w *Worker) Submit(ctx context.Context, req Request) (*Job, error) {
	if w.backend == nil {
		return nil, errors.New("transcription backend is not configured")
	}

	w.mu.Lock()
	if w.busy {
		w.mu.Unlock()
		return nil, ErrBusy
	}
	w.busy = true
	w.mu.Unlock()

	job := &Job{
		ID:     uuid.NewString(),
		events: make(chan Event, jobEventBuffer),
		done:   make(chan struct{}),
	}
	go w.run(ctx, job, req)
	return job, nil
}

func (w *Worker) run(ctx context.Context, job *Job, req Request) {
	// busy clears before done closes so a caller woken by Wait can resubmit.
	defer func() {
		w.cleanup(req)
		w.mu.Lock()
		w.busy = false
		w.mu.Unlock()
		close(job.events)
		close(job.done)
	}()

	job.events <- Event{Kind: EventProgress, JobID: job.ID, Message: MessageStarting}

	callCtx := ctx
	if w.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, w.timeout)
		defer cancel()
	}

	job.events <- Event{Kind: EventProgress, JobID: job.ID, Message: MessageProcessing}

	started := time.Now()
	text, err := w.backend.Transcribe(callCtx, req)
	if err == nil {
		text = strings.TrimSpace(text)
		if text == "" {
			err = ErrEmptyTranscription
		}
	}

	if err != nil {
		w.logger.Error("transcription failed",
			"job", job.ID,
			"backend", w.backend.Name(),
			"duration_ms", time.Since(started).Milliseconds(),
			"error", err.Error(),
		)
		job.err = err
		job.events <- Event{Kind: EventFailed, JobID: job.ID, Err: err}
		return
	}

	w.logger.Info("transcription finished",
		"job", job.ID,
		"backend", w.backend.Name(),
		"duration_ms", time.Since(started).Milliseconds(),
		"chars", len(text),
	)
	job.text = text
	job.events <- Event{Kind: EventProgress, JobID: job.ID, Message: MessageCompleted}
	job.events <- Event{Kind: EventFinished, JobID: job.ID, Text: text}
}

func (w *Worker) cleanup(req Request) {
	if !req.Temporary || req.AudioPath == "" {
		return
	}
	if err := os.Remove(req.AudioPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		w.logger.Warn("remove temp audio failed", "path", req.AudioPath, "error", err.Error())
	}
}
