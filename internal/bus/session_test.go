// internal/bus/session_test.go
package bus

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"testing"

	"github.com/tamzrod/bms-monitor/internal/frame"
)

// fakeTransport scripts one inbound byte stream and records writes.
type fakeTransport struct {
	inbound  *bytes.Reader
	written  [][]byte
	discards int

	writeErr error
	readErr  error
	closed   bool
}

func newFakeTransport(inbound []byte) *fakeTransport {
	return &fakeTransport{inbound: bytes.NewReader(inbound)}
}

func (f *fakeTransport) Read(p []byte) (int, error) {
	if f.readErr != nil {
		return 0, f.readErr
	}
	n, err := f.inbound.Read(p)
	if err == io.EOF {
		// An exhausted script behaves like a bus read timeout, not a
		// closed port.
		return n, io.ErrUnexpectedEOF
	}
	return n, err
}

func (f *fakeTransport) Write(p []byte) (int, error) {
	if f.writeErr != nil {
		return 0, f.writeErr
	}
	f.written = append(f.written, append([]byte(nil), p...))
	return len(p), nil
}

func (f *fakeTransport) Close() error        { f.closed = true; return nil }
func (f *fakeTransport) DiscardInput() error { f.discards++; return nil }

func makeResponse(addr, fn byte, regs []uint16) []byte {
	resp := make([]byte, 3+2*len(regs)+2)
	resp[0] = addr
	resp[1] = fn
	resp[2] = byte(2 * len(regs))
	for i, r := range regs {
		binary.BigEndian.PutUint16(resp[3+2*i:], r)
	}
	binary.LittleEndian.PutUint16(resp[len(resp)-2:], frame.Checksum(resp[:len(resp)-2]))
	return resp
}

func TestReadRegisters_Success(t *testing.T) {
	regs := []uint16{0x1234, 0x5678}
	tr := newFakeTransport(makeResponse(0x0B, 0x03, regs))
	s := NewSession(tr, 0x0B, 0x03)

	got, err := s.ReadRegisters(0x0400, 2)
	if err != nil {
		t.Fatalf("ReadRegisters err=%v", err)
	}
	if got[0] != 0x1234 || got[1] != 0x5678 {
		t.Fatalf("registers = %v", got)
	}

	if len(tr.written) != 1 {
		t.Fatalf("expected 1 write, got %d", len(tr.written))
	}
	want, _ := frame.BuildRequest(0x0B, 0x03, 0x0400, 2)
	if !bytes.Equal(tr.written[0], want) {
		t.Fatalf("request = %X, want %X", tr.written[0], want)
	}

	// First use drains the line once.
	if tr.discards != 1 {
		t.Fatalf("discards = %d, want 1", tr.discards)
	}
}

func TestReadRegisters_ShortResponseIsSoft(t *testing.T) {
	tr := newFakeTransport([]byte{0x0B, 0x03})
	s := NewSession(tr, 0x0B, 0x03)

	_, err := s.ReadRegisters(0x0C00, 1)
	if err == nil {
		t.Fatal("expected error")
	}
	if !IsFrameError(err) {
		t.Fatalf("short read should be a frame error, got %v", err)
	}
}

func TestReadRegisters_ChecksumFailureIsSoft(t *testing.T) {
	resp := makeResponse(0x0B, 0x03, []uint16{42})
	resp[3] ^= 0xFF
	tr := newFakeTransport(resp)
	s := NewSession(tr, 0x0B, 0x03)

	_, err := s.ReadRegisters(0x0C00, 1)
	if !IsFrameError(err) {
		t.Fatalf("corrupt response should be a frame error, got %v", err)
	}
}

func TestReadRegisters_WriteFailureIsFatal(t *testing.T) {
	tr := newFakeTransport(nil)
	tr.writeErr = errors.New("port gone")
	s := NewSession(tr, 0x0B, 0x03)

	_, err := s.ReadRegisters(0x0400, 1)
	if !errors.Is(err, ErrTransport) {
		t.Fatalf("write failure should be fatal, got %v", err)
	}
	if IsFrameError(err) {
		t.Fatal("transport failure misclassified as frame error")
	}
}

func TestReadRegisters_DrainsAfterDirtyExchange(t *testing.T) {
	good := makeResponse(0x0B, 0x03, []uint16{42})
	bad := makeResponse(0x0B, 0x03, []uint16{42})
	bad[len(bad)-1] ^= 0xFF

	tr := newFakeTransport(append(bad, good...))
	s := NewSession(tr, 0x0B, 0x03)

	if _, err := s.ReadRegisters(0x0C00, 1); !IsFrameError(err) {
		t.Fatalf("expected soft failure, got %v", err)
	}
	discardsAfterFail := tr.discards

	if _, err := s.ReadRegisters(0x0C00, 1); err != nil {
		t.Fatalf("second read err=%v", err)
	}
	if tr.discards != discardsAfterFail+1 {
		t.Fatal("session did not drain the line after a dirty exchange")
	}
}

func TestSessionClose(t *testing.T) {
	tr := newFakeTransport(nil)
	s := NewSession(tr, 0x0B, 0x03)
	if err := s.Close(); err != nil || !tr.closed {
		t.Fatalf("close: err=%v closed=%v", err, tr.closed)
	}
}
