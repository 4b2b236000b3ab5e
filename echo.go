package tunping

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"net"
)

// EchoReplyLen is the length of every synthesized reply: a bare IPv4 header
// followed by a fixed 64-byte ICMP message.
const EchoReplyLen = IPv4HeaderLen + ICMPEchoMessageLen

var (
	ErrNotICMP        = errors.New("not an icmp packet")
	ErrNotEchoRequest = errors.New("icmp message is not an echo request")
	ErrShortWrite     = errors.New("short write")
	ErrContextSpent   = errors.New("echo context already responded")
)

// EchoContext carries what is needed to answer a single echo request. It is
// built per packet and must not outlive the buffer payload points into.
type EchoContext struct {
	ReplyTTL      uint8
	ReplyProtocol IPv4Protocol
	Source        net.IP // request destination
	Destination   net.IP // request source
	Identifier    uint16
	Sequence      uint16

	payload []byte
}

// StartEcho builds an EchoContext from a parsed header and the ICMP message
// that followed it. Only echo requests with a full 64-byte message are
// accepted; everything else is reported as an error and should be dropped.
func StartEcho(header *IPv4Header, payload []byte) (*EchoContext, error) {
	if header.Protocol != IPv4ProtocolICMP {
		return nil, fmt.Errorf("%w: protocol %s", ErrNotICMP, header.Protocol)
	}

	fields, err := ParseEchoFields(payload)
	if err != nil {
		return nil, err
	}

	if fields.Type != ICMPTypeEcho {
		return nil, fmt.Errorf("%w: %s", ErrNotEchoRequest, fields.Type)
	}

	if len(payload) < ICMPEchoMessageLen {
		return nil, &TruncatedError{Field: "data", Need: ICMPEchoMessageLen, Have: len(payload)}
	}

	src, dst := header.DestinationIP.To4(), header.SourceIP.To4()
	if src == nil || dst == nil {
		return nil, ErrNotIPv4
	}

	return &EchoContext{
		ReplyTTL:      header.TTL,
		ReplyProtocol: IPv4ProtocolICMP,
		Source:        src,
		Destination:   dst,
		Identifier:    fields.Identifier,
		Sequence:      fields.Sequence,
		payload:       payload[:ICMPEchoMessageLen:ICMPEchoMessageLen],
	}, nil
}

// AppendReply appends the complete 84-byte reply frame to dst. On error dst
// is returned unchanged.
func (c *EchoContext) AppendReply(dst []byte) ([]byte, error) {
	if len(c.payload) < ICMPEchoMessageLen {
		return dst, ErrContextSpent
	}

	n := len(dst)
	out := append(dst, make([]byte, EchoReplyLen)...)
	frame := out[n : n+EchoReplyLen]

	ip := frame[:IPv4HeaderLen]
	header := IPv4Header{
		Version:       IPv4Version,
		IHL:           IPv4HeaderLen / 4,
		TotalLength:   EchoReplyLen,
		FlagsFragment: IPv4FlagDontFragment,
		TTL:           c.ReplyTTL,
		Protocol:      c.ReplyProtocol,
		SourceIP:      c.Source,
		DestinationIP: c.Destination,
	}
	if err := header.marshalTo(ip); err != nil {
		return dst, fmt.Errorf("build echo reply header: %w", err)
	}
	if err := PutChecksum(ip, 10); err != nil {
		return dst, err
	}

	msg := frame[IPv4HeaderLen:]
	msg[0] = byte(ICMPTypeEchoReply)
	msg[1] = 0
	binary.BigEndian.PutUint16(msg[4:6], c.Identifier)
	binary.BigEndian.PutUint16(msg[6:8], c.Sequence)
	copy(msg[ICMPEchoHeaderLen:], c.payload[ICMPEchoHeaderLen:])
	if err := PutChecksum(msg, 2); err != nil {
		return dst, err
	}

	return out, nil
}

// Respond writes exactly one reply frame to w. The payload view is released
// once the frame has been assembled, whether or not that succeeded.
func (c *EchoContext) Respond(w io.Writer) error {
	var buf [EchoReplyLen]byte
	frame, err := c.AppendReply(buf[:0])
	c.payload = nil
	if err != nil {
		return err
	}

	n, err := w.Write(frame)
	if err != nil {
		return fmt.Errorf("write echo reply: %w", err)
	}
	if n != len(frame) {
		return fmt.Errorf("write echo reply: %w: %d of %d bytes", ErrShortWrite, n, len(frame))
	}

	return nil
}
