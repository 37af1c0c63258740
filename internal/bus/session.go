// internal/bus/session.go
package bus

import (
	"errors"
	"fmt"
	"io"

	"github.com/goburrow/serial"

	"github.com/tamzrod/bms-monitor/internal/frame"
)

// ErrTransport marks a fatal transport failure (port closed, write
// refused). Everything under frame.ErrInvalid is a soft failure instead:
// an expected transient on a shared bus.
var ErrTransport = errors.New("bus: transport failure")

// IsFrameError reports whether err is a soft response-validation failure
// rather than a dead transport.
func IsFrameError(err error) bool {
	return errors.Is(err, frame.ErrInvalid)
}

// Session drives one request/response exchange per read against a single
// device. The bus is single-outstanding-request; a Session must not be
// used concurrently.
type Session struct {
	tr   Transport
	addr byte
	fn   byte

	// dirty is set whenever an exchange may have left unread bytes on
	// the wire. The next read drains the inbound side first so a stale
	// tail is never accumulated into a fresh response.
	dirty bool
}

// NewSession wraps a transport for one device address. fn is the register
// read function code.
func NewSession(tr Transport, deviceAddr, fn byte) *Session {
	return &Session{tr: tr, addr: deviceAddr, fn: fn, dirty: true}
}

// ReadRegisters performs one exchange and returns the decoded register
// array. Validation failures come back wrapped in frame.ErrInvalid;
// transport failures in ErrTransport.
func (s *Session) ReadRegisters(start, count uint16) ([]uint16, error) {
	req, err := frame.BuildRequest(s.addr, s.fn, start, count)
	if err != nil {
		return nil, err
	}

	if s.dirty {
		if err := s.tr.DiscardInput(); err != nil {
			return nil, fmt.Errorf("%w: discard: %w", ErrTransport, err)
		}
		s.dirty = false
	}

	if _, err := s.tr.Write(req); err != nil {
		s.dirty = true
		return nil, fmt.Errorf("%w: write: %w", ErrTransport, err)
	}

	resp := make([]byte, frame.ResponseLen(count))
	n, err := io.ReadFull(s.tr, resp)
	if err != nil {
		s.dirty = true
		if errors.Is(err, serial.ErrTimeout) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, fmt.Errorf("%w after %d bytes", frame.ErrShort, n)
		}
		return nil, fmt.Errorf("%w: read: %w", ErrTransport, err)
	}

	regs, err := frame.ValidateResponse(resp, s.addr, s.fn, count)
	if err != nil {
		s.dirty = true
		return nil, err
	}
	return regs, nil
}

// Close closes the underlying transport.
func (s *Session) Close() error {
	return s.tr.Close()
}
