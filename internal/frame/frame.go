// internal/frame/frame.go
package frame

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// Frame layout (RTU, read holding registers):
//
//   request:  addr(1) fc(1) start(2 BE) count(2 BE) crc(2 LE)
//   response: addr(1) fc(1) byteCount(1) data(byteCount) crc(2 LE)
//
// The CRC trailer is computed over every preceding byte.

// ErrInvalid is the category for every soft response-validation failure.
// Callers classify with errors.Is; a frame failure is never a transport
// failure.
var ErrInvalid = errors.New("frame: invalid response")

var (
	ErrShort            = fmt.Errorf("%w: short frame", ErrInvalid)
	ErrAddressMismatch  = fmt.Errorf("%w: address mismatch", ErrInvalid)
	ErrFunctionMismatch = fmt.Errorf("%w: function mismatch", ErrInvalid)
	ErrChecksumMismatch = fmt.Errorf("%w: checksum mismatch", ErrInvalid)
)

// requestLen is the fixed wire size of a read request.
const requestLen = 8

// responseOverhead is header (addr+fc+byteCount) plus the CRC trailer.
const responseOverhead = 5

// Checksum computes CRC-16 with polynomial 0xA001, initial value 0xFFFF,
// no final XOR. This is the correctness contract of the whole protocol;
// do not touch it.
func Checksum(data []byte) uint16 {
	crc := uint16(0xFFFF)
	for _, b := range data {
		crc ^= uint16(b)
		for i := 0; i < 8; i++ {
			if crc&1 != 0 {
				crc = (crc >> 1) ^ 0xA001
			} else {
				crc >>= 1
			}
		}
	}
	return crc
}

// ResponseLen returns the exact wire size of a response carrying count
// registers.
func ResponseLen(count uint16) int {
	return responseOverhead + 2*int(count)
}

// BuildRequest serializes one read request with its CRC trailer.
func BuildRequest(addr, fc byte, start, count uint16) ([]byte, error) {
	if count == 0 {
		return nil, errors.New("frame: word count must be >= 1")
	}

	req := make([]byte, requestLen)
	req[0] = addr
	req[1] = fc
	binary.BigEndian.PutUint16(req[2:4], start)
	binary.BigEndian.PutUint16(req[4:6], count)
	binary.LittleEndian.PutUint16(req[6:8], Checksum(req[:6]))
	return req, nil
}

// ValidateResponse checks one raw response against the request that
// produced it and extracts the register payload.
//
// An invalid frame is discarded whole; no field of it is trusted.
func ValidateResponse(resp []byte, addr, fc byte, count uint16) ([]uint16, error) {
	want := ResponseLen(count)
	if len(resp) < want {
		return nil, fmt.Errorf("%w: got %d bytes, want %d", ErrShort, len(resp), want)
	}
	if resp[0] != addr {
		return nil, fmt.Errorf("%w: got 0x%02X, want 0x%02X", ErrAddressMismatch, resp[0], addr)
	}
	if resp[1] != fc {
		return nil, fmt.Errorf("%w: got 0x%02X, want 0x%02X", ErrFunctionMismatch, resp[1], fc)
	}

	got := binary.LittleEndian.Uint16(resp[len(resp)-2:])
	if sum := Checksum(resp[:len(resp)-2]); got != sum {
		return nil, fmt.Errorf("%w: got 0x%04X, want 0x%04X", ErrChecksumMismatch, got, sum)
	}
	if int(resp[2]) != len(resp)-responseOverhead {
		return nil, fmt.Errorf("%w: byte count %d disagrees with frame length %d", ErrShort, resp[2], len(resp))
	}

	data := resp[3 : len(resp)-2]
	regs := make([]uint16, len(data)/2)
	for i := range regs {
		regs[i] = binary.BigEndian.Uint16(data[2*i:])
	}
	return regs, nil
}
