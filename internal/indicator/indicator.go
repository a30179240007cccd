// Package indicator shows dictation state through notifications and short audio cues.
package indicator

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/gen2brain/beeep"
	"github.com/rbright/tellyspelly/internal/config"
	"github.com/rbright/tellyspelly/internal/hypr"
)

// Notification backends.
const (
	BackendHypr    = "hypr"
	BackendDesktop = "desktop"
	BackendNotify  = "notify"
)

// long enough to outlast any dictation; replaced or dismissed on the next state
const stickyTimeoutMS = 300000

// Notifier implements session.Indicator over the configured backend.
type Notifier struct {
	cfg      config.IndicatorConfig
	logger   *slog.Logger
	messages messages

	// swapped in tests
	beeepNotify func(title, message, icon string) error
	cue         func(context.Context, cueKind) error
	bus         desktopBus

	mu                    sync.Mutex
	desktopNotificationID uint32
	soundMu               sync.Mutex
}

// New builds a notifier from config.
func New(cfg config.IndicatorConfig, logger *slog.Logger) *Notifier {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Notifier{
		cfg:         cfg,
		logger:      logger,
		messages:    defaultMessages,
		beeepNotify: beeep.Notify,
		cue:         emitCue,
		bus:         sessionBus{},
	}
}

func (n *Notifier) ShowRecording(ctx context.Context) {
	n.playCue(cueStart)
	n.show(ctx, 1, stickyTimeoutMS, "rgb(89b4fa)", n.messages.recording)
}

func (n *Notifier) ShowTranscribing(ctx context.Context) {
	n.show(ctx, 1, stickyTimeoutMS, "rgb(cba6f7)", n.messages.processing)
}

func (n *Notifier) ShowComplete(ctx context.Context) {
	n.show(ctx, 5, n.errorTimeout(), "rgb(a6e3a1)", n.messages.complete)
}

// ShowError shows text, or a generic failure message when text is empty.
func (n *Notifier) ShowError(ctx context.Context, text string) {
	if text == "" {
		text = n.messages.errorText
	}
	n.show(ctx, 3, n.errorTimeout(), "rgb(f38ba8)", text)
}

func (n *Notifier) CueStop(context.Context)     { n.playCue(cueStop) }
func (n *Notifier) CueComplete(context.Context) { n.playCue(cueComplete) }
func (n *Notifier) CueCancel(context.Context)   { n.playCue(cueCancel) }

// Hide dismisses the current notification. The notify backend cannot retract
// notifications and leaves them to expire.
func (n *Notifier) Hide(ctx context.Context) {
	if !n.cfg.Enable {
		return
	}
	n.run(ctx, n.dismiss)
}

func (n *Notifier) errorTimeout() int {
	if n.cfg.ErrorTimeoutMS <= 0 {
		return 1200
	}
	return n.cfg.ErrorTimeoutMS
}

func (n *Notifier) show(ctx context.Context, icon int, timeoutMS int, color string, text string) {
	if !n.cfg.Enable {
		return
	}
	n.run(ctx, func(ctx context.Context) error {
		return n.notify(ctx, icon, timeoutMS, color, text)
	})
}

func (n *Notifier) notify(ctx context.Context, icon int, timeoutMS int, color string, text string) error {
	switch n.backend() {
	case BackendHypr:
		return hypr.Notify(ctx, icon, timeoutMS, color, text)
	case BackendDesktop:
		return n.notifyDesktop(ctx, timeoutMS, text)
	default:
		return n.beeepNotify(n.appName(), text, "")
	}
}

func (n *Notifier) dismiss(ctx context.Context) error {
	switch n.backend() {
	case BackendHypr:
		return hypr.DismissNotify(ctx)
	case BackendDesktop:
		return n.dismissDesktop(ctx)
	default:
		return nil
	}
}

func (n *Notifier) backend() string {
	return strings.ToLower(strings.TrimSpace(n.cfg.Backend))
}

func (n *Notifier) appName() string {
	if name := strings.TrimSpace(n.cfg.DesktopAppName); name != "" {
		return name
	}
	return "tellyspelly"
}

// notifyDesktop replaces the previous desktop notification so states do not stack.
func (n *Notifier) notifyDesktop(ctx context.Context, timeoutMS int, text string) error {
	n.mu.Lock()
	replaceID := n.desktopNotificationID
	n.mu.Unlock()

	id, err := n.bus.Notify(ctx, n.appName(), replaceID, text, int32(timeoutMS))
	if err != nil {
		return err
	}

	n.mu.Lock()
	n.desktopNotificationID = id
	n.mu.Unlock()
	return nil
}

func (n *Notifier) dismissDesktop(ctx context.Context) error {
	n.mu.Lock()
	id := n.desktopNotificationID
	n.desktopNotificationID = 0
	n.mu.Unlock()

	if id == 0 {
		return nil
	}
	return n.bus.CloseNotification(ctx, id)
}

func (n *Notifier) run(ctx context.Context, fn func(context.Context) error) {
	runCtx, cancel := context.WithTimeout(ctx, 400*time.Millisecond)
	defer cancel()
	if err := fn(runCtx); err != nil {
		n.logger.Debug("indicator dispatch failed", "backend", n.backend(), "error", err.Error())
	}
}

// playCue plays asynchronously; cues never overlap.
func (n *Notifier) playCue(kind cueKind) {
	if !n.cfg.SoundEnable {
		return
	}
	go func() {
		n.soundMu.Lock()
		defer n.soundMu.Unlock()
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := n.cue(ctx, kind); err != nil {
			n.logger.Debug("indicator audio cue failed", "cue", int(kind), "error", err.Error())
		}
	}()
}
