package tunping

import (
	"encoding/binary"
	"errors"
	"fmt"
	"net"

	"golang.org/x/net/ipv4"
)

const (
	IPv4HeaderLen = ipv4.HeaderLen
	IPv4Version   = ipv4.Version

	// IPv4FlagDontFragment is the DF bit as it sits in the flags/fragment word.
	IPv4FlagDontFragment uint16 = 0x4000
)

var (
	ErrNotIPv4     = errors.New("not an ipv4 packet")
	ErrShortHeader = errors.New("ipv4 header truncated")
)

// IPv4Packet is a parsed IPv4 datagram. Payload references the buffer the
// packet was parsed from.
type IPv4Packet struct {
	Header  IPv4Header // IPv4 header
	Payload []byte     // Payload data
}

// ParseIPv4Packet parses b as an IPv4 datagram. The returned payload is a
// view into b and is only valid as long as b is.
func ParseIPv4Packet(b []byte) (*IPv4Packet, error) {
	h, err := ipv4.ParseHeader(b)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrShortHeader, err)
	}

	if h.Version != IPv4Version {
		return nil, fmt.Errorf("%w: version %d", ErrNotIPv4, h.Version)
	}

	if h.Len < IPv4HeaderLen || h.Len > len(b) {
		return nil, fmt.Errorf("%w: header length %d", ErrShortHeader, h.Len)
	}

	// read from the wire, ParseHeader assumes the host's raw socket layout
	totalLen := binary.BigEndian.Uint16(b[2:4])

	// trust the total length only when it describes a subset of what we read
	end := len(b)
	if int(totalLen) >= h.Len && int(totalLen) < end {
		end = int(totalLen)
	}

	p := &IPv4Packet{
		Header: IPv4Header{
			Version:        uint8(h.Version),
			IHL:            uint8(h.Len / 4),
			TOS:            uint8(h.TOS),
			TotalLength:    totalLen,
			ID:             uint16(h.ID),
			FlagsFragment:  binary.BigEndian.Uint16(b[6:8]),
			TTL:            uint8(h.TTL),
			Protocol:       IPv4Protocol(h.Protocol),
			HeaderChecksum: uint16(h.Checksum),
			SourceIP:       h.Src.To4(),
			DestinationIP:  h.Dst.To4(),
		},
		Payload: b[h.Len:end:end],
	}

	return p, nil
}

type IPv4Protocol uint8

const (
	IPv4ProtocolICMP IPv4Protocol = 1
	IPv4ProtocolTCP  IPv4Protocol = 6
	IPv4ProtocolUDP  IPv4Protocol = 17
)

func (p IPv4Protocol) String() string {
	switch p {
	case IPv4ProtocolICMP:
		return "icmp"
	case IPv4ProtocolTCP:
		return "tcp"
	case IPv4ProtocolUDP:
		return "udp"
	}
	return fmt.Sprintf("proto(%d)", uint8(p))
}

// IPv4Header represents the structure of an IPv4 header
type IPv4Header struct {
	Version        uint8        // 4-bit IP version
	IHL            uint8        // 4-bit Internet Header Length (IHL)
	TOS            uint8        // 8-bit Type of Service (TOS)
	TotalLength    uint16       // 16-bit Total Length
	ID             uint16       // 16-bit Identification
	FlagsFragment  uint16       // 3-bit Flags and 13-bit Fragment Offset
	TTL            uint8        // 8-bit Time to Live (TTL)
	Protocol       IPv4Protocol // 8-bit Protocol
	HeaderChecksum uint16       // 16-bit Header Checksum
	SourceIP       net.IP       // 32-bit Source IP Address
	DestinationIP  net.IP       // 32-bit Destination IP Address
}

// MarshalBinary converts the IPv4Header struct to its 20-byte binary
// representation. Options are never emitted.
func (header *IPv4Header) MarshalBinary() ([]byte, error) {
	b := make([]byte, IPv4HeaderLen)
	if err := header.marshalTo(b); err != nil {
		return nil, err
	}
	return b, nil
}

func (header *IPv4Header) marshalTo(b []byte) error {
	src, dst := header.SourceIP.To4(), header.DestinationIP.To4()
	if src == nil || dst == nil {
		return ErrNotIPv4
	}

	// Version and IHL (Internet Header Length)
	b[0] = (header.Version << 4) | (header.IHL & 0x0F)

	// Type of Service (TOS)
	b[1] = header.TOS

	binary.BigEndian.PutUint16(b[2:4], header.TotalLength)
	binary.BigEndian.PutUint16(b[4:6], header.ID)
	binary.BigEndian.PutUint16(b[6:8], header.FlagsFragment)

	b[8] = header.TTL
	b[9] = byte(header.Protocol)

	binary.BigEndian.PutUint16(b[10:12], header.HeaderChecksum)

	copy(b[12:16], src)
	copy(b[16:20], dst)

	return nil
}

// CalculateChecksum calculates the header checksum for an IPv4 header
// without modifying it.
func (header *IPv4Header) CalculateChecksum() uint16 {
	h := *header
	h.HeaderChecksum = 0

	b, err := h.MarshalBinary()
	if err != nil {
		return 0
	}

	return Checksum(b)
}
