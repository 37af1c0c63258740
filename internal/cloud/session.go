// internal/cloud/session.go
package cloud

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/tamzrod/bms-monitor/internal/telemetry"
)

// State is the connection state machine. Transitions happen only inside
// this package.
type State int

const (
	Disconnected State = iota
	Connecting
	Connected
)

func (s State) String() string {
	switch s {
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	default:
		return "disconnected"
	}
}

// Conn is the subset of a websocket connection the session uses. The
// underlying transport supports one concurrent reader and one concurrent
// writer, which is exactly how the session drives it: Report writes,
// ListenInbound reads.
type Conn interface {
	WriteMessage(messageType int, data []byte) error
	ReadMessage() (messageType int, p []byte, err error)
	Close() error
}

// Dialer performs one connection handshake per call.
type Dialer interface {
	Dial(uri string) (Conn, error)
}

type wsDialer struct {
	d *websocket.Dialer
}

func (w wsDialer) Dial(uri string) (Conn, error) {
	c, _, err := w.d.Dial(uri, nil)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// Config is the cloud endpoint configuration.
type Config struct {
	URL              string // base endpoint, empty disables reporting
	DeviceID         string
	HandshakeTimeout time.Duration
	ReconnectBackoff time.Duration // listener wait after a lost connection
	IdlePoll         time.Duration // listener wait while disconnected
}

// Session maintains one persistent duplex connection to the cloud
// endpoint. Consecutive failures of the same kind produce a single
// diagnostic; the warned flag resets on any state-improving transition.
type Session struct {
	cfg  Config
	dial Dialer
	log  *zap.Logger

	mu     sync.Mutex
	state  State
	conn   Conn
	warned bool
}

// New builds a session using the gorilla websocket dialer.
func New(cfg Config, log *zap.Logger) *Session {
	d := &websocket.Dialer{HandshakeTimeout: cfg.HandshakeTimeout}
	return NewWithDialer(cfg, wsDialer{d: d}, log)
}

// NewWithDialer builds a session with an explicit dialer. Used by tests.
func NewWithDialer(cfg Config, dial Dialer, log *zap.Logger) *Session {
	if cfg.ReconnectBackoff <= 0 {
		cfg.ReconnectBackoff = 5 * time.Second
	}
	if cfg.IdlePoll <= 0 {
		cfg.IdlePoll = time.Second
	}
	return &Session{cfg: cfg, dial: dial, log: log}
}

// State returns the current connection state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// uri composes the endpoint address with the fixed identity parameters.
func (s *Session) uri() string {
	sep := "?"
	if strings.Contains(s.cfg.URL, "?") {
		sep = "&"
	}
	return s.cfg.URL + sep + "type=device&uuid=" + s.cfg.DeviceID
}

// EnsureConnected attempts one handshake unless already connected.
func (s *Session) EnsureConnected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ensureConnectedLocked()
}

func (s *Session) ensureConnectedLocked() bool {
	if s.state == Connected && s.conn != nil {
		return true
	}

	if s.cfg.URL == "" {
		s.warnOnce("cloud endpoint not configured", nil)
		return false
	}

	s.state = Connecting
	conn, err := s.dial.Dial(s.uri())
	if err != nil {
		s.state = Disconnected
		s.warnOnce("cloud connect failed, will retry", err)
		return false
	}

	s.conn = conn
	s.state = Connected
	s.warned = false
	s.log.Info("cloud connected",
		zap.String("url", s.cfg.URL),
		zap.String("uuid", s.cfg.DeviceID))
	return true
}

// Report serializes one snapshot and sends it. Not connected is not an
// error: the next tick retries via EnsureConnected.
func (s *Session) Report(snap *telemetry.Snapshot) {
	s.mu.Lock()
	if !s.ensureConnectedLocked() {
		s.mu.Unlock()
		return
	}
	conn := s.conn
	s.mu.Unlock()

	data, err := json.Marshal(buildPayload(s.cfg.DeviceID, snap))
	if err != nil {
		s.log.Error("payload marshal failed", zap.Error(err))
		return
	}

	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		s.dropConn(conn, "cloud send failed, will reconnect", err)
		return
	}

	s.mu.Lock()
	if !s.warned {
		s.log.Debug("report delivered", zap.Uint64("seq", snap.Seq))
	}
	s.warned = false
	s.mu.Unlock()
}

// ListenInbound consumes inbound messages for the life of ctx. A message
// carrying a recognized state field is a mode-change notification; it is
// logged and nothing more. Must run in its own goroutine.
func (s *Session) ListenInbound(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}

		s.mu.Lock()
		conn := s.conn
		connected := s.state == Connected && conn != nil
		s.mu.Unlock()

		if !connected {
			if !sleepCtx(ctx, s.cfg.IdlePoll) {
				return
			}
			continue
		}

		_, msg, err := conn.ReadMessage()
		if err != nil {
			s.dropConn(conn, "cloud connection lost, will reconnect", err)
			if !sleepCtx(ctx, s.cfg.ReconnectBackoff) {
				return
			}
			continue
		}

		s.handleInbound(msg)
	}
}

// handleInbound interprets one inbound message. Unrecognized shapes are
// ignored.
func (s *Session) handleInbound(msg []byte) {
	var ctl struct {
		State *string `json:"state"`
	}
	if err := json.Unmarshal(msg, &ctl); err != nil {
		return
	}
	if ctl.State == nil {
		s.log.Debug("inbound message ignored", zap.ByteString("body", msg))
		return
	}
	s.log.Info("display mode change requested", zap.String("state", *ctl.State))
}

// dropConn transitions to Disconnected if conn is still the live
// connection. A stale handle (already replaced) is only closed.
func (s *Session) dropConn(conn Conn, msg string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_ = conn.Close()
	if s.conn != conn {
		return
	}
	s.conn = nil
	s.state = Disconnected
	s.warnOnce(msg, err)
}

// warnOnce emits a single diagnostic per failure streak. Callers hold mu.
func (s *Session) warnOnce(msg string, err error) {
	if s.warned {
		return
	}
	s.warned = true
	if err != nil {
		s.log.Warn(msg, zap.Error(err))
		return
	}
	s.log.Warn(msg)
}

// Close tears down any live connection. Best effort.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conn == nil {
		return nil
	}
	err := s.conn.Close()
	s.conn = nil
	s.state = Disconnected
	return err
}

// sleepCtx waits d or until ctx is done; false means ctx ended first.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
