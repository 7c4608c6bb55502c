// Package wire implements the Discord local IPC binary frame format:
// a 4-byte little-endian opcode, a 4-byte little-endian payload length,
// and the payload itself (a UTF-8 JSON document).
package wire

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// ///////////////////////////////////////////////
// Opcode
// ///////////////////////////////////////////////

// Opcode identifies the kind of a Discord IPC frame.
type Opcode uint32

const (
	// OpHandshake is the opcode for the initial IPC handshake.
	OpHandshake Opcode = 0
	// OpFrame is the opcode for a standard request/response/event frame.
	OpFrame Opcode = 1
	// OpClose is the opcode for closing the IPC connection.
	OpClose Opcode = 2
	// OpHello is the opcode Discord may use for an initial server hello.
	OpHello Opcode = 3
)

// String returns a human-readable name for the opcode, or "UNKNOWN(n)"
// for any value outside the enumerated set.
func (o Opcode) String() string {
	switch o {
	case OpHandshake:
		return "HANDSHAKE"
	case OpFrame:
		return "FRAME"
	case OpClose:
		return "CLOSE"
	case OpHello:
		return "HELLO"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", uint32(o))
	}
}

// Valid reports whether o is one of the four enumerated opcodes. Unknown
// opcodes on decode are a protocol error.
func (o Opcode) Valid() bool {
	switch o {
	case OpHandshake, OpFrame, OpClose, OpHello:
		return true
	default:
		return false
	}
}

// ///////////////////////////////////////////////
// Constants
// ///////////////////////////////////////////////

const (
	// headerSize is the byte length of the frame header: a 4-byte
	// little-endian opcode followed by a 4-byte little-endian length.
	headerSize = 8

	// MaxPayloadSize is the wire size limit. Encode rejects a frame
	// whose header plus payload would exceed it; Decode rejects a
	// frame whose declared payload length exceeds it.
	MaxPayloadSize = 1_000_000_000
)

// ///////////////////////////////////////////////
// Sentinel Errors
// ///////////////////////////////////////////////

var (
	// ErrPayloadTooLarge is returned when a frame exceeds MaxPayloadSize:
	// header plus payload on encode, declared payload length on decode.
	ErrPayloadTooLarge = errors.New("wire: payload too large")
	// ErrInvalidOpcode is returned when a decoded frame carries an
	// opcode outside the enumerated set.
	ErrInvalidOpcode = errors.New("wire: invalid opcode")
)

// ///////////////////////////////////////////////
// Frame
// ///////////////////////////////////////////////

// Frame is one length-prefixed record on the wire.
type Frame struct {
	Opcode  Opcode
	Payload []byte
}

// Encode serializes f as [4-byte LE opcode][4-byte LE length][payload].
// Fails with ErrPayloadTooLarge if length+headerSize would exceed the
// wire limit.
func Encode(f Frame) ([]byte, error) {
	if len(f.Payload) > MaxPayloadSize-headerSize {
		return nil, fmt.Errorf("%w: %d bytes (max %d)", ErrPayloadTooLarge, len(f.Payload), MaxPayloadSize-headerSize)
	}
	buf := make([]byte, headerSize+len(f.Payload))
	binary.LittleEndian.PutUint32(buf[0:4], uint32(f.Opcode))
	binary.LittleEndian.PutUint32(buf[4:8], uint32(len(f.Payload)))
	copy(buf[8:], f.Payload)
	return buf, nil
}
