// Package signals turns OS interrupt and terminate notifications into the
// session's cancellation signal.
package signals

import (
	"os"
	"os/signal"
	"sync"

	"termshell/internal/cancel"
	"termshell/internal/logger"
)

// State is the handler lifecycle state.
type State int

const (
	// Idle means Start has not been called.
	Idle State = iota
	// Armed means the handler is subscribed and waiting.
	Armed
	// Triggered means a notification has fired the cancellation signal.
	Triggered
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Armed:
		return "armed"
	case Triggered:
		return "triggered"
	default:
		return "unknown"
	}
}

// Handler subscribes to OS signals and triggers a cancel.Signal on the first
// one. Later notifications are logged and otherwise ignored; the shell keeps
// shutting down at its own pace.
type Handler struct {
	target *cancel.Signal

	notify func(c chan<- os.Signal, sig ...os.Signal)
	stop   func(c chan<- os.Signal)

	mu      sync.Mutex
	state   State
	ch      chan os.Signal
	quit    chan struct{}
	wg      sync.WaitGroup
	ignored int
}

// Option configures a Handler.
type Option func(*Handler)

// WithNotifier replaces signal.Notify and signal.Stop. Tests use it to
// deliver signals without touching the process.
func WithNotifier(notify func(c chan<- os.Signal, sig ...os.Signal), stop func(c chan<- os.Signal)) Option {
	return func(h *Handler) {
		h.notify = notify
		h.stop = stop
	}
}

// NewHandler creates an idle handler that will trigger target.
func NewHandler(target *cancel.Signal, opts ...Option) *Handler {
	h := &Handler{
		target: target,
		notify: signal.Notify,
		stop:   signal.Stop,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Start subscribes to the captured signals. Calling Start on a handler that
// is not idle does nothing.
func (h *Handler) Start() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.state != Idle {
		return
	}

	h.ch = make(chan os.Signal, 1)
	h.quit = make(chan struct{})
	h.notify(h.ch, signalsToCapture()...)
	h.setState(Armed)

	h.wg.Add(1)
	go h.loop(h.ch, h.quit)
}

func (h *Handler) loop(ch <-chan os.Signal, quit <-chan struct{}) {
	defer h.wg.Done()
	for {
		select {
		case sig := <-ch:
			h.deliver(sig)
		case <-quit:
			return
		}
	}
}

// deliver handles one notification. It never blocks.
func (h *Handler) deliver(sig os.Signal) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.state == Triggered {
		h.ignored++
		logger.Debug("Signal ignored, shutdown already in progress", "signal", sig, "ignored", h.ignored)
		return
	}
	if h.state != Armed {
		return
	}

	h.setState(Triggered)
	logger.Debug("Signal received", "signal", sig)
	h.target.Trigger(reasonFor(sig))
}

// Stop unsubscribes and waits for the notification goroutine to exit. It is
// safe to call on a handler that was never started and to call repeatedly.
func (h *Handler) Stop() {
	h.mu.Lock()
	ch, quit := h.ch, h.quit
	h.ch, h.quit = nil, nil
	h.mu.Unlock()

	if ch == nil {
		return
	}
	h.stop(ch)
	close(quit)
	h.wg.Wait()
}

// State returns the current lifecycle state. Stop does not change it.
func (h *Handler) State() State {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state
}

// Ignored returns how many notifications arrived after the first.
func (h *Handler) Ignored() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.ignored
}

func (h *Handler) setState(to State) {
	logger.StateTransition("signals", h.state.String(), to.String())
	h.state = to
}
