// internal/bus/transport.go
package bus

import (
	"io"
	"time"

	"github.com/goburrow/serial"
)

// Transport is the physical link the session drives. Reads are expected
// to block no longer than the transport's configured timeout.
type Transport interface {
	io.ReadWriteCloser

	// DiscardInput drains any pending inbound bytes.
	DiscardInput() error
}

// SerialConfig is the minimal serial transport config.
type SerialConfig struct {
	Address  string // e.g. /dev/ttyCH341USB1
	BaudRate int
	Timeout  time.Duration
}

type serialTransport struct {
	port serial.Port
}

// OpenSerial opens an 8N1 serial port as the bus transport.
func OpenSerial(cfg SerialConfig) (Transport, error) {
	port, err := serial.Open(&serial.Config{
		Address:  cfg.Address,
		BaudRate: cfg.BaudRate,
		DataBits: 8,
		Parity:   "N",
		StopBits: 1,
		Timeout:  cfg.Timeout,
	})
	if err != nil {
		return nil, err
	}
	return &serialTransport{port: port}, nil
}

func (t *serialTransport) Read(p []byte) (int, error)  { return t.port.Read(p) }
func (t *serialTransport) Write(p []byte) (int, error) { return t.port.Write(p) }
func (t *serialTransport) Close() error                { return t.port.Close() }

// DiscardInput reads until the port runs dry. The port cannot peek, so
// an empty line costs one read timeout; the session only calls this when
// the stream may actually be dirty.
func (t *serialTransport) DiscardInput() error {
	buf := make([]byte, 64)
	for {
		n, err := t.port.Read(buf)
		if err != nil {
			if err == serial.ErrTimeout {
				return nil
			}
			return err
		}
		if n == 0 {
			return nil
		}
	}
}
