package client

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"umbra.legal/relay/internal/model"
)

// ConnectionState tracks whether the poller is reaching the relay server.
type ConnectionState string

const (
	StateDisconnected ConnectionState = "disconnected"
	StateConnected    ConnectionState = "connected"
	StateError        ConnectionState = "error"
)

// ResponseSource is the slice of the Gateway the poller needs.
type ResponseSource interface {
	PollResponses(ctx context.Context) ([]model.BufferedResponse, error)
}

// ResponseHandler receives each batch of drained responses.
type ResponseHandler func(responses []model.BufferedResponse)

// Poller periodically drains buffered responses from the relay server and
// fans them out to the handler. Polls are single-flight: a tick that arrives
// while the previous poll is still running is skipped. Transport failures
// flip the connection state to error but never stop the timer; the next tick
// may succeed.
type Poller struct {
	source   ResponseSource
	handler  ResponseHandler
	interval time.Duration
	logger   *slog.Logger

	inFlight atomic.Bool

	mu    sync.Mutex
	state ConnectionState

	cancel context.CancelFunc
	done   chan struct{}
}

func NewPoller(source ResponseSource, interval time.Duration, handler ResponseHandler, logger *slog.Logger) *Poller {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Poller{
		source:   source,
		handler:  handler,
		interval: interval,
		logger:   logger,
		state:    StateDisconnected,
	}
}

// Start launches the polling loop: one immediate poll, then one per interval.
// Call Stop to shut it down; cancelling ctx works too.
func (p *Poller) Start(ctx context.Context) {
	ctx, p.cancel = context.WithCancel(ctx)
	p.done = make(chan struct{})

	go func() {
		defer close(p.done)

		p.Poll(ctx)

		ticker := time.NewTicker(p.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				p.Poll(ctx)
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop cancels the polling loop and waits for it to exit.
func (p *Poller) Stop() {
	if p.cancel == nil {
		return
	}
	p.cancel()
	<-p.done
}

// Poll performs a single drain. Returns false if it was skipped because a
// previous poll is still in flight.
func (p *Poller) Poll(ctx context.Context) bool {
	if !p.inFlight.CompareAndSwap(false, true) {
		return false
	}
	defer p.inFlight.Store(false)

	responses, err := p.source.PollResponses(ctx)
	if err != nil {
		if ctx.Err() == nil {
			p.logger.WarnContext(ctx, "poll failed", "error", err)
			p.setState(StateError)
		}
		return true
	}

	if len(responses) > 0 {
		p.setState(StateConnected)
		if p.handler != nil {
			p.handler(responses)
		}
	}
	return true
}

// State reports the current connection state.
func (p *Poller) State() ConnectionState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

func (p *Poller) setState(state ConnectionState) {
	p.mu.Lock()
	p.state = state
	p.mu.Unlock()
}
