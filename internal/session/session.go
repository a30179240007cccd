// Package session runs one dictation from recording to delivered transcript.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rbright/tellyspelly/internal/fsm"
	"github.com/rbright/tellyspelly/internal/ipc"
	"github.com/rbright/tellyspelly/internal/transcribe"
)

type action int

const (
	actionStop action = iota + 1
	actionCancel
)

// Result is the outcome of one Run.
type Result struct {
	ID                string
	State             fsm.State
	Transcript        string
	Cancelled         bool
	Err               error
	AudioDevice       string
	Backend           string
	SamplesCaptured   int64
	AudioDuration     time.Duration
	TranscribeLatency time.Duration
	StartedAt         time.Time
	FinishedAt        time.Time
}

func (r *Result) absorb(stop StopResult) {
	r.Transcript = stop.Transcript
	r.AudioDevice = stop.AudioDevice
	r.Backend = stop.Backend
	r.SamplesCaptured = stop.SamplesCaptured
	r.AudioDuration = stop.AudioDuration
	r.TranscribeLatency = stop.TranscribeLatency
}

// Indicator is the user feedback surface.
type Indicator interface {
	ShowRecording(context.Context)
	ShowTranscribing(context.Context)
	ShowComplete(context.Context)
	ShowError(context.Context, string)
	CueStop(context.Context)
	CueComplete(context.Context)
	CueCancel(context.Context)
	Hide(context.Context)
}

type noopIndicator struct{}

func (noopIndicator) ShowRecording(context.Context)     {}
func (noopIndicator) ShowTranscribing(context.Context)  {}
func (noopIndicator) ShowComplete(context.Context)      {}
func (noopIndicator) ShowError(context.Context, string) {}
func (noopIndicator) CueStop(context.Context)           {}
func (noopIndicator) CueComplete(context.Context)       {}
func (noopIndicator) CueCancel(context.Context)         {}
func (noopIndicator) Hide(context.Context)              {}

// Controller owns the FSM for a single dictation and answers IPC requests for it.
type Controller struct {
	id         string
	logger     *slog.Logger
	transcribe Transcriber
	commit     Committer
	indicator  Indicator

	mu    sync.RWMutex
	state fsm.State

	actions chan action
}

// NewController wires a controller. A nil committer discards transcripts and a
// nil indicator shows nothing.
func NewController(
	logger *slog.Logger,
	transcriber Transcriber,
	committer Committer,
	indicator Indicator,
) *Controller {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if committer == nil {
		committer = CommitFunc(func(context.Context, string) error { return nil })
	}
	if indicator == nil {
		indicator = noopIndicator{}
	}

	return &Controller{
		id:         uuid.NewString(),
		logger:     logger,
		transcribe: transcriber,
		commit:     committer,
		indicator:  indicator,
		state:      fsm.StateIdle,
		actions:    make(chan action, 1),
	}
}

// ID identifies this dictation in logs.
func (c *Controller) ID() string { return c.id }

// State returns the current FSM state.
func (c *Controller) State() fsm.State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

func (c *Controller) transition(event fsm.Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	next, err := fsm.Transition(c.state, event)
	if err != nil {
		return err
	}
	c.logger.Debug("session transition", "session", c.id, "from", string(c.state), "event", string(event), "to", string(next))
	c.state = next
	return nil
}

// Run records until a stop, cancel, or ctx cancellation arrives, then
// transcribes and commits. Failures land in Result.Err; the FSM always ends idle.
func (c *Controller) Run(ctx context.Context) Result {
	result := Result{ID: c.id, StartedAt: time.Now()}
	finish := func(err error) Result {
		result.State = c.State()
		result.Err = err
		result.FinishedAt = time.Now()
		return result
	}

	if c.transcribe == nil {
		return finish(ErrNotRecording)
	}
	if err := c.transition(fsm.EventStart); err != nil {
		return finish(err)
	}

	c.indicator.ShowRecording(ctx)

	if err := c.transcribe.Start(ctx); err != nil {
		c.fail(err)
		return finish(err)
	}

	select {
	case <-ctx.Done():
		_ = c.transcribe.Cancel(context.Background())
		c.indicator.CueCancel(context.Background())
		c.fail(ctx.Err())
		return finish(ctx.Err())
	case a := <-c.actions:
		switch a {
		case actionCancel:
			_ = c.transcribe.Cancel(context.Background())
			c.indicator.CueCancel(context.Background())
			c.hide()
			_ = c.transition(fsm.EventCancel)
			result.Cancelled = true
			return finish(nil)
		case actionStop:
			return c.stop(ctx, &result, finish)
		default:
			err := fmt.Errorf("unknown action %d", a)
			_ = c.transcribe.Cancel(context.Background())
			c.fail(err)
			return finish(err)
		}
	}
}

func (c *Controller) stop(ctx context.Context, result *Result, finish func(error) Result) Result {
	if err := c.transition(fsm.EventStop); err != nil {
		c.fail(err)
		return finish(err)
	}
	c.indicator.CueStop(context.Background())
	c.indicator.ShowTranscribing(ctx)

	stopResult, err := c.transcribe.StopAndTranscribe(ctx)
	result.absorb(stopResult)
	if err == nil && strings.TrimSpace(stopResult.Transcript) == "" {
		err = transcribe.ErrEmptyTranscription
	}
	if err != nil {
		c.fail(err)
		return finish(err)
	}

	if err := c.commit.Commit(ctx, stopResult.Transcript); err != nil {
		err = fmt.Errorf("deliver transcript: %w", err)
		c.indicator.ShowError(context.Background(), "Could not copy to clipboard")
		c.reset()
		return finish(err)
	}

	c.indicator.CueComplete(context.Background())
	c.indicator.ShowComplete(context.Background())
	if err := c.transition(fsm.EventTranscribed); err != nil {
		return finish(err)
	}
	return finish(nil)
}

// Handle answers IPC requests from later invocations while this session owns the socket.
func (c *Controller) Handle(_ context.Context, req ipc.Request) ipc.Response {
	switch req.Command {
	case "status":
		return c.accept("status")
	case "start":
		if state := c.State(); state != fsm.StateRecording {
			return c.reject(fmt.Sprintf("cannot start from state %s", state))
		}
		return c.accept("already recording")
	case "toggle", "stop":
		return c.request(actionStop, req.Command)
	case "cancel":
		return c.request(actionCancel, req.Command)
	default:
		return c.reject(fmt.Sprintf("unknown command: %s", req.Command))
	}
}

func (c *Controller) accept(message string) ipc.Response {
	return ipc.Response{OK: true, State: string(c.State()), Session: c.id, Message: message}
}

func (c *Controller) reject(reason string) ipc.Response {
	return ipc.Response{State: string(c.State()), Session: c.id, Error: reason}
}

// request queues a for Run. Only a recording session accepts actions; a second
// request before Run picks up the first is acknowledged but dropped.
func (c *Controller) request(a action, command string) ipc.Response {
	switch state := c.State(); {
	case state == fsm.StateTranscribing && a == actionCancel:
		return c.reject("cannot cancel while transcribing")
	case state == fsm.StateTranscribing:
		return c.reject("already transcribing")
	case state != fsm.StateRecording:
		return c.reject(fmt.Sprintf("cannot %s from state %s", command, state))
	}

	verb := "stop"
	if a == actionCancel {
		verb = "cancel"
	}
	select {
	case c.actions <- a:
		return c.accept(verb + " requested")
	default:
		return c.accept(verb + " already requested")
	}
}

// fail surfaces err to the user and walks the FSM through error back to idle.
func (c *Controller) fail(err error) {
	c.logger.Error("session failed", "session", c.id, "state", string(c.State()), "error", err.Error())
	c.indicator.ShowError(context.Background(), Summary(err))
	c.reset()
}

func (c *Controller) reset() {
	_ = c.transition(fsm.EventFail)
	_ = c.transition(fsm.EventReset)
}

func (c *Controller) hide() {
	ctx, cancel := context.WithTimeout(context.Background(), 800*time.Millisecond)
	defer cancel()
	c.indicator.Hide(ctx)
}
