package tunping

import (
	"encoding/binary"
	"errors"
	"fmt"
)

type ICMPType uint8

const (
	ICMPTypeEchoReply ICMPType = 0
	ICMPTypeEcho      ICMPType = 8
)

func (t ICMPType) String() string {
	switch t {
	case ICMPTypeEchoReply:
		return "echo reply"
	case ICMPTypeEcho:
		return "echo request"
	}
	return fmt.Sprintf("type(%d)", uint8(t))
}

const (
	// ICMPEchoHeaderLen covers type, code, checksum, identifier and sequence.
	ICMPEchoHeaderLen = 8
	// ICMPEchoMessageLen is the fixed size of every echo reply we emit.
	ICMPEchoMessageLen = 64
)

var ErrTruncated = errors.New("icmp message truncated")

// TruncatedError reports an ICMP message too short to read Field from.
type TruncatedError struct {
	Field string
	Need  int
	Have  int
}

func (e *TruncatedError) Error() string {
	return fmt.Sprintf("icmp message truncated: %s needs %d bytes, have %d", e.Field, e.Need, e.Have)
}

func (e *TruncatedError) Is(target error) bool {
	return target == ErrTruncated
}

// EchoFields holds the fixed part of an ICMP echo message.
type EchoFields struct {
	Type       ICMPType
	Code       uint8
	Checksum   uint16
	Identifier uint16
	Sequence   uint16
}

// ParseEchoFields reads the 8-byte echo header from the start of b.
func ParseEchoFields(b []byte) (EchoFields, error) {
	var f EchoFields
	var err error

	if len(b) < 2 {
		return f, &TruncatedError{Field: "type", Need: 2, Have: len(b)}
	}
	f.Type = ICMPType(b[0])
	f.Code = b[1]

	if f.Checksum, err = uint16At(b, 2, "checksum"); err != nil {
		return f, err
	}
	if f.Identifier, err = uint16At(b, 4, "identifier"); err != nil {
		return f, err
	}
	if f.Sequence, err = uint16At(b, 6, "sequence"); err != nil {
		return f, err
	}

	return f, nil
}

func uint16At(b []byte, off int, field string) (uint16, error) {
	if len(b) < off+2 {
		return 0, &TruncatedError{Field: field, Need: off + 2, Have: len(b)}
	}
	return binary.BigEndian.Uint16(b[off : off+2]), nil
}
