// Package helperproto implements the client side of the kernel-helper
// proc-file protocol (spec.md §6): a single read/write endpoint exposing a
// timer-driven copy of the control loop inside a privileged kernel helper,
// used instead of (or alongside) the user-space sampler/MSR path.
package helperproto

import (
	"encoding/binary"
	"fmt"
	"io"
)

// MessageType identifies the payload shape on both request and response.
type MessageType uint32

const (
	Init MessageType = iota
	CoreRange
	CoreWeight
	Tuning
	DDRBWSet
	PMURead
	MSRRead
)

// errorFlag is set on MessageType in a response header to signal that the
// payload is a single errorCode uint32 rather than the normal response
// shape for that message type. The protocol table in spec.md §6 lists
// error codes but not their wire encoding; this is the one concrete choice
// made for it (see the project's design notes).
const errorFlag MessageType = 1 << 31

// header is the fixed 8-byte frame prefix shared by every request and
// response.
type header struct {
	Type        uint32
	PayloadSize uint32
}

const headerSize = 8

// ErrorCode enumerates the protocol's error taxonomy (spec.md §6).
type ErrorCode uint32

const (
	ErrCodeInvalidArgument ErrorCode = 1
	ErrCodeOutOfMemory     ErrorCode = 2
	ErrCodeNotSupported    ErrorCode = 3
)

func (e ErrorCode) Error() string {
	switch e {
	case ErrCodeInvalidArgument:
		return "helperproto: invalid argument"
	case ErrCodeOutOfMemory:
		return "helperproto: out of memory"
	case ErrCodeNotSupported:
		return "helperproto: not supported"
	default:
		return fmt.Sprintf("helperproto: unknown error code %d", uint32(e))
	}
}

func writeFrame(w io.Writer, typ MessageType, payload []byte) error {
	var buf [headerSize]byte
	binary.LittleEndian.PutUint32(buf[0:4], uint32(typ))
	binary.LittleEndian.PutUint32(buf[4:8], uint32(len(payload)))
	if _, err := w.Write(buf[:]); err != nil {
		return fmt.Errorf("helperproto: write header: %w", err)
	}
	if len(payload) > 0 {
		if _, err := w.Write(payload); err != nil {
			return fmt.Errorf("helperproto: write payload: %w", err)
		}
	}
	return nil
}

// readFrame reads one response frame. If the response's type carries
// errorFlag, the payload is decoded as a 4-byte ErrorCode and returned as
// the error.
func readFrame(r io.Reader) (MessageType, []byte, error) {
	var hb [headerSize]byte
	if _, err := io.ReadFull(r, hb[:]); err != nil {
		return 0, nil, fmt.Errorf("helperproto: read header: %w", err)
	}
	typ := MessageType(binary.LittleEndian.Uint32(hb[0:4]))
	size := binary.LittleEndian.Uint32(hb[4:8])

	payload := make([]byte, size)
	if size > 0 {
		if _, err := io.ReadFull(r, payload); err != nil {
			return 0, nil, fmt.Errorf("helperproto: read payload: %w", err)
		}
	}

	if typ&errorFlag != 0 {
		if len(payload) < 4 {
			return 0, nil, fmt.Errorf("helperproto: short error payload")
		}
		code := ErrorCode(binary.LittleEndian.Uint32(payload[0:4]))
		return typ &^ errorFlag, nil, code
	}
	return typ, payload, nil
}
