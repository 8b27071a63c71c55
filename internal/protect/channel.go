package protect

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// channelState tracks one subscription's lifecycle.
type channelState int

const (
	channelConnecting channelState = iota
	channelOpen
	channelClosedRetry
	channelClosedFinal
)

func (s channelState) String() string {
	switch s {
	case channelConnecting:
		return "connecting"
	case channelOpen:
		return "open"
	case channelClosedRetry:
		return "closed(will-reconnect)"
	case channelClosedFinal:
		return "closed(final)"
	default:
		return "unknown"
	}
}

// channel maintains one persistent WebSocket subscription. The lifecycle
// is Connecting → Open → Closed(will-reconnect) → Connecting and so on
// forever; the only terminal transition is cancellation, which lands in
// Closed(final) without scheduling a reconnect.
type channel struct {
	name       string
	url        string
	dialer     *websocket.Dialer
	header     http.Header
	handle     func([]byte)
	logger     *zap.Logger
	retryDelay time.Duration

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}

	mu    sync.Mutex
	conn  *websocket.Conn
	state channelState
}

func newChannel(name, url string, dialer *websocket.Dialer, header http.Header, handle func([]byte), logger *zap.Logger) *channel {
	ctx, cancel := context.WithCancel(context.Background())
	return &channel{
		name:       name,
		url:        url,
		dialer:     dialer,
		header:     header,
		handle:     handle,
		logger:     logger.Named(name),
		retryDelay: 10 * time.Second,
		ctx:        ctx,
		cancel:     cancel,
		done:       make(chan struct{}),
	}
}

func (ch *channel) run() {
	defer close(ch.done)
	for {
		ch.setState(channelConnecting)
		conn, resp, err := ch.dialer.DialContext(ch.ctx, ch.url, ch.header)
		if resp != nil && resp.Body != nil {
			resp.Body.Close()
		}
		if err != nil {
			if ch.ctx.Err() != nil {
				ch.setState(channelClosedFinal)
				return
			}
			ch.logger.Warn("Channel dial failed", zap.Error(err))
			if !ch.waitRetry() {
				return
			}
			continue
		}

		ch.setConn(conn)
		ch.setState(channelOpen)
		ch.logger.Info("Channel connected", zap.String("url", ch.url))

		ch.readLoop(conn)

		conn.Close()
		ch.setConn(nil)
		if ch.ctx.Err() != nil {
			ch.setState(channelClosedFinal)
			return
		}
		if !ch.waitRetry() {
			return
		}
	}
}

func (ch *channel) readLoop(conn *websocket.Conn) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			// Cancellation closes the socket out from under us; that is
			// an expected exit, not a failure.
			if ch.ctx.Err() == nil {
				ch.logger.Warn("Channel read failed", zap.Error(err))
			}
			return
		}
		ch.handle(data)
	}
}

// waitRetry parks between reconnect attempts. Returns false when the
// channel was cancelled while waiting.
func (ch *channel) waitRetry() bool {
	ch.setState(channelClosedRetry)
	ch.logger.Info("Channel reconnecting", zap.Duration("delay", ch.retryDelay))
	select {
	case <-ch.ctx.Done():
		ch.setState(channelClosedFinal)
		return false
	case <-time.After(ch.retryDelay):
		return true
	}
}

// close cancels the channel and waits for the run loop to acknowledge.
func (ch *channel) close() {
	ch.cancel()
	ch.mu.Lock()
	if ch.conn != nil {
		ch.conn.Close()
	}
	ch.mu.Unlock()
	<-ch.done
	ch.logger.Info("Channel closed")
}

func (ch *channel) setConn(conn *websocket.Conn) {
	ch.mu.Lock()
	ch.conn = conn
	ch.mu.Unlock()
}

func (ch *channel) setState(s channelState) {
	ch.mu.Lock()
	ch.state = s
	ch.mu.Unlock()
}

func (ch *channel) currentState() channelState {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	return ch.state
}
