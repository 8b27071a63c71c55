// Package protect wraps the UniFi Protect integration API: authenticated
// HTTP requests, camera snapshot and stream-URL caching, and the two
// long-lived WebSocket subscriptions (device state, events) with
// automatic reconnect.
package protect

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/gorilla/websocket"
	gocache "github.com/patrickmn/go-cache"
	"go.uber.org/zap"

	"protectsync/internal/clock"
)

const (
	defaultSnapshotTTL  = 2 * time.Second
	defaultStreamURLTTL = 30 * time.Minute
)

// ClientConfig carries the connection settings for one Protect console.
type ClientConfig struct {
	// Host is the console address; a bare host gets https:// prepended.
	Host string

	// APIKey is the token generated in the Protect UI, sent as X-API-KEY.
	APIKey string

	// VerifyTLS controls certificate verification. Consoles commonly run
	// self-signed certificates, so false is a supported configuration.
	VerifyTLS bool
}

// Client wraps the Protect HTTP API and its two WebSocket channels.
type Client struct {
	host      string
	apiKey    string
	verifyTLS bool
	http      *resty.Client
	logger    *zap.Logger
	clock     clock.Clock

	snapshots   *gocache.Cache
	snapshotTTL time.Duration
	streamURLs  *gocache.Cache
	streamTTL   time.Duration

	cbMu      sync.RWMutex
	deviceCbs []DeviceCallback
	eventCbs  []EventCallback

	chMu          sync.Mutex
	deviceChannel *channel
	eventChannel  *channel
}

// NewClient creates a Protect API client. It performs no I/O; the first
// request or channel open does.
func NewClient(cfg ClientConfig, logger *zap.Logger) *Client {
	host := strings.TrimRight(cfg.Host, "/")
	if !strings.HasPrefix(host, "http://") && !strings.HasPrefix(host, "https://") {
		host = "https://" + host
	}

	r := resty.New()
	r.SetBaseURL(host)
	r.SetHeader("X-API-KEY", cfg.APIKey)
	r.SetHeader("Accept", "application/json")
	r.SetHeader("Content-Type", "application/json")
	if !cfg.VerifyTLS {
		r.SetTLSClientConfig(&tls.Config{InsecureSkipVerify: true})
	}

	return &Client{
		host:        host,
		apiKey:      cfg.APIKey,
		verifyTLS:   cfg.VerifyTLS,
		http:        r,
		logger:      logger.Named("protect"),
		clock:       clock.NewRealClock(),
		snapshots:   gocache.New(defaultSnapshotTTL, time.Minute),
		snapshotTTL: defaultSnapshotTTL,
		streamURLs:  gocache.New(defaultStreamURLTTL, time.Hour),
		streamTTL:   defaultStreamURLTTL,
	}
}

// Host returns the normalized console base URL.
func (c *Client) Host() string { return c.host }

// do issues one authenticated request and maps the outcome to the typed
// error taxonomy. A 204 (or an otherwise empty body) returns nil, nil.
func (c *Client) do(ctx context.Context, method, path string, body any) (json.RawMessage, error) {
	req := c.http.R().SetContext(ctx)
	if body != nil {
		req.SetBody(body)
	}
	resp, err := req.Execute(method, path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s %s: %v", ErrConn, method, path, err)
	}
	if err := classifyStatus(resp.StatusCode(), method, path); err != nil {
		return nil, err
	}
	if resp.StatusCode() == http.StatusNoContent || len(resp.Body()) == 0 {
		return nil, nil
	}
	return json.RawMessage(resp.Body()), nil
}

func (c *Client) get(ctx context.Context, path string) (json.RawMessage, error) {
	return c.do(ctx, http.MethodGet, path, nil)
}

func (c *Client) patch(ctx context.Context, path string, body any) (json.RawMessage, error) {
	return c.do(ctx, http.MethodPatch, path, body)
}

func (c *Client) post(ctx context.Context, path string, body any) (json.RawMessage, error) {
	return c.do(ctx, http.MethodPost, path, body)
}

// RegisterDeviceCallback adds a listener for device-channel messages.
// Listeners run in registration order; a panicking listener never stops
// the rest or the channel loop.
func (c *Client) RegisterDeviceCallback(cb DeviceCallback) {
	c.cbMu.Lock()
	c.deviceCbs = append(c.deviceCbs, cb)
	c.cbMu.Unlock()
}

// RegisterEventCallback adds a listener for event-channel messages.
func (c *Client) RegisterEventCallback(cb EventCallback) {
	c.cbMu.Lock()
	c.eventCbs = append(c.eventCbs, cb)
	c.cbMu.Unlock()
}

// OpenDeviceChannel starts the device-state subscription. Idempotent.
func (c *Client) OpenDeviceChannel() {
	c.chMu.Lock()
	defer c.chMu.Unlock()
	if c.deviceChannel != nil {
		return
	}
	c.deviceChannel = newChannel("devices", c.wsURL(devicesSubscribePath), c.wsDialer(), c.wsHeader(), c.handleDeviceFrame, c.logger)
	go c.deviceChannel.run()
}

// OpenEventChannel starts the event subscription. Idempotent.
func (c *Client) OpenEventChannel() {
	c.chMu.Lock()
	defer c.chMu.Unlock()
	if c.eventChannel != nil {
		return
	}
	c.eventChannel = newChannel("events", c.wsURL(eventsSubscribePath), c.wsDialer(), c.wsHeader(), c.handleEventFrame, c.logger)
	go c.eventChannel.run()
}

// Close cancels both channels, waits for their loops to exit, then closes
// the pooled connections. Safe to call more than once.
func (c *Client) Close() error {
	c.chMu.Lock()
	dch, ech := c.deviceChannel, c.eventChannel
	c.deviceChannel, c.eventChannel = nil, nil
	c.chMu.Unlock()

	if dch != nil {
		dch.close()
	}
	if ech != nil {
		ech.close()
	}
	c.http.GetClient().CloseIdleConnections()
	return nil
}

func (c *Client) wsDialer() *websocket.Dialer {
	d := &websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	if !c.verifyTLS {
		d.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}
	return d
}

func (c *Client) wsHeader() http.Header {
	h := http.Header{}
	h.Set("X-API-KEY", c.apiKey)
	return h
}

func (c *Client) wsURL(path string) string {
	ws := strings.Replace(c.host, "https://", "wss://", 1)
	ws = strings.Replace(ws, "http://", "ws://", 1)
	return ws + path
}

// handleDeviceFrame normalizes one raw device-channel frame into a
// DeviceUpdate and fans it out. Malformed or empty-item frames are
// dropped silently.
func (c *Client) handleDeviceFrame(data []byte) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		c.logger.Debug("Dropping malformed device frame", zap.Error(err))
		return
	}
	if len(env.Item) == 0 || string(env.Item) == "null" {
		return
	}

	var header struct {
		ModelKey string `json:"modelKey"`
	}
	if err := json.Unmarshal(env.Item, &header); err != nil || header.ModelKey == "" {
		c.logger.Debug("Dropping device frame without modelKey")
		return
	}

	action := ActionUpdate
	if env.Type == "remove" {
		action = ActionRemove
	}

	msg := DeviceUpdate{Action: action, ModelKey: header.ModelKey, Data: env.Item}

	c.cbMu.RLock()
	cbs := append([]DeviceCallback(nil), c.deviceCbs...)
	c.cbMu.RUnlock()
	for _, cb := range cbs {
		c.dispatch(func() { cb(msg) })
	}
}

// handleEventFrame parses one raw event-channel frame and fans it out.
func (c *Client) handleEventFrame(data []byte) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		c.logger.Debug("Dropping malformed event frame", zap.Error(err))
		return
	}
	if len(env.Item) == 0 || string(env.Item) == "null" {
		return
	}

	var ev Event
	if err := json.Unmarshal(env.Item, &ev); err != nil {
		c.logger.Debug("Dropping malformed event item", zap.Error(err))
		return
	}

	c.cbMu.RLock()
	cbs := append([]EventCallback(nil), c.eventCbs...)
	c.cbMu.RUnlock()
	for _, cb := range cbs {
		c.dispatch(func() { cb(ev) })
	}
}

// dispatch runs one listener, containing any panic so the remaining
// listeners and the channel loop keep running.
func (c *Client) dispatch(f func()) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("Callback panicked", zap.Any("panic", r))
		}
	}()
	f()
}
