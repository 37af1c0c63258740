// internal/cloud/session_test.go
package cloud

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/tamzrod/bms-monitor/internal/telemetry"
)

type fakeConn struct {
	sent     [][]byte
	writeErr error
	inbound  chan []byte
	closed   bool
}

func newFakeConn() *fakeConn {
	return &fakeConn{inbound: make(chan []byte, 4)}
}

func (c *fakeConn) WriteMessage(mt int, data []byte) error {
	if c.writeErr != nil {
		return c.writeErr
	}
	c.sent = append(c.sent, append([]byte(nil), data...))
	return nil
}

func (c *fakeConn) ReadMessage() (int, []byte, error) {
	msg, ok := <-c.inbound
	if !ok {
		return 0, nil, errors.New("connection closed")
	}
	return 1, msg, nil
}

func (c *fakeConn) Close() error { c.closed = true; return nil }

type fakeDialer struct {
	conn    *fakeConn
	err     error
	dials   int
	lastURI string
}

func (d *fakeDialer) Dial(uri string) (Conn, error) {
	d.dials++
	d.lastURI = uri
	if d.err != nil {
		return nil, d.err
	}
	return d.conn, nil
}

func newTestSession(d Dialer) (*Session, *observer.ObservedLogs) {
	core, logs := observer.New(zap.DebugLevel)
	cfg := Config{
		URL:              "ws://cloud.example:3000/ws",
		DeviceID:         "c1012",
		ReconnectBackoff: time.Millisecond,
		IdlePoll:         time.Millisecond,
	}
	return NewWithDialer(cfg, d, zap.New(core)), logs
}

func sampleSnapshot() *telemetry.Snapshot {
	return &telemetry.Snapshot{
		At:          time.Now(),
		Seq:         7,
		Current:     -0.5,
		PackVoltage: 51.2,
		SOC:         45,
		Temps:       telemetry.TempBlock{Valid: true, Max: 30.0},
	}
}

func TestEnsureConnected_URIComposition(t *testing.T) {
	d := &fakeDialer{conn: newFakeConn()}
	s, _ := newTestSession(d)

	if !s.EnsureConnected() {
		t.Fatal("expected connect to succeed")
	}
	want := "ws://cloud.example:3000/ws?type=device&uuid=c1012"
	if d.lastURI != want {
		t.Fatalf("uri = %q, want %q", d.lastURI, want)
	}
	if s.State() != Connected {
		t.Fatalf("state = %v, want connected", s.State())
	}
}

func TestEnsureConnected_QuerySeparator(t *testing.T) {
	d := &fakeDialer{conn: newFakeConn()}
	core, _ := observer.New(zap.DebugLevel)
	s := NewWithDialer(Config{URL: "ws://h/ws?x=1", DeviceID: "c1"}, d, zap.New(core))

	s.EnsureConnected()
	if !strings.HasPrefix(d.lastURI, "ws://h/ws?x=1&type=device&uuid=c1") {
		t.Fatalf("uri = %q", d.lastURI)
	}
}

func TestEnsureConnected_SuppressesRepeatedFailures(t *testing.T) {
	d := &fakeDialer{err: errors.New("refused")}
	s, logs := newTestSession(d)

	if s.EnsureConnected() || s.EnsureConnected() {
		t.Fatal("expected both attempts to fail")
	}
	if d.dials != 2 {
		t.Fatalf("dials = %d, want 2", d.dials)
	}
	if got := logs.FilterLevelExact(zap.WarnLevel).Len(); got != 1 {
		t.Fatalf("warn count = %d, want exactly 1", got)
	}
}

func TestEnsureConnected_WarnedResetsOnConnect(t *testing.T) {
	d := &fakeDialer{err: errors.New("refused")}
	s, logs := newTestSession(d)

	s.EnsureConnected()

	// Endpoint comes back, then dies again: a fresh diagnostic is due.
	d.err = nil
	d.conn = newFakeConn()
	if !s.EnsureConnected() {
		t.Fatal("expected reconnect to succeed")
	}

	s.dropConn(d.conn, "cloud connection lost, will reconnect", errors.New("reset"))
	if got := logs.FilterLevelExact(zap.WarnLevel).Len(); got != 2 {
		t.Fatalf("warn count = %d, want 2", got)
	}
}

func TestReport_PayloadShape(t *testing.T) {
	conn := newFakeConn()
	d := &fakeDialer{conn: conn}
	s, _ := newTestSession(d)

	s.Report(sampleSnapshot())

	if len(conn.sent) != 1 {
		t.Fatalf("sent %d messages, want 1", len(conn.sent))
	}

	var got map[string]any
	if err := json.Unmarshal(conn.sent[0], &got); err != nil {
		t.Fatalf("payload not json: %v", err)
	}
	if got["uuid"] != "c1012" || got["type"] != "telemetry" || got["kind"] != "temperature" {
		t.Fatalf("identity fields wrong: %v", got)
	}
	if got["value"] != 30.0 || got["batteryMaxTemp"] != 30.0 {
		t.Fatalf("temperature fields wrong: %v", got)
	}
	if got["current"] != -0.5 || got["batteryVoltage"] != 51.2 {
		t.Fatalf("electrical fields wrong: %v", got)
	}
	if got["batteryPercent"] != float64(45) || got["seq"] != float64(7) {
		t.Fatalf("counter fields wrong: %v", got)
	}
	if !strings.Contains(got["message"].(string), "report 7") {
		t.Fatalf("message = %v", got["message"])
	}
}

func TestReport_SendFailureDisconnects(t *testing.T) {
	conn := newFakeConn()
	conn.writeErr = errors.New("broken pipe")
	d := &fakeDialer{conn: conn}
	s, logs := newTestSession(d)

	s.Report(sampleSnapshot())

	if s.State() != Disconnected {
		t.Fatalf("state = %v, want disconnected", s.State())
	}
	if !conn.closed {
		t.Fatal("broken connection handle not discarded")
	}
	if got := logs.FilterLevelExact(zap.WarnLevel).Len(); got != 1 {
		t.Fatalf("warn count = %d, want 1", got)
	}
}

func TestReport_NotConnectedSkipsSend(t *testing.T) {
	d := &fakeDialer{err: errors.New("refused")}
	s, _ := newTestSession(d)

	s.Report(sampleSnapshot()) // must not panic, nothing to assert beyond state
	if s.State() != Disconnected {
		t.Fatalf("state = %v, want disconnected", s.State())
	}
}

func TestListenInbound_StateMessage(t *testing.T) {
	conn := newFakeConn()
	d := &fakeDialer{conn: conn}
	s, logs := newTestSession(d)
	s.EnsureConnected()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.ListenInbound(ctx)
		close(done)
	}()

	conn.inbound <- []byte(`{"state":"maintenance"}`)
	conn.inbound <- []byte(`{"noise":true}`)

	deadline := time.After(time.Second)
	for logs.FilterMessage("display mode change requested").Len() == 0 {
		select {
		case <-deadline:
			t.Fatal("state message never logged")
		case <-time.After(5 * time.Millisecond):
		}
	}

	entry := logs.FilterMessage("display mode change requested").All()[0]
	if entry.ContextMap()["state"] != "maintenance" {
		t.Fatalf("state field = %v", entry.ContextMap()["state"])
	}

	cancel()
	close(conn.inbound)
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("listener did not stop on cancel")
	}
}

func TestListenInbound_LossDisconnects(t *testing.T) {
	conn := newFakeConn()
	d := &fakeDialer{conn: conn}
	s, logs := newTestSession(d)
	s.EnsureConnected()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.ListenInbound(ctx)

	close(conn.inbound) // connection dies

	deadline := time.After(time.Second)
	for s.State() != Disconnected {
		select {
		case <-deadline:
			t.Fatal("listener never observed the loss")
		case <-time.After(5 * time.Millisecond):
		}
	}
	if got := logs.FilterLevelExact(zap.WarnLevel).Len(); got != 1 {
		t.Fatalf("warn count = %d, want 1", got)
	}
}
