package tunping_test

import (
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tunping"
)

func TestParseIPv4Packet(t *testing.T) {
	frame := buildIPv4(t, peerIP, localIP, 33, tunping.IPv4ProtocolUDP, []byte("hello"))

	packet, err := tunping.ParseIPv4Packet(frame)
	require.NoError(t, err)

	assert.Equal(t, uint8(4), packet.Header.Version)
	assert.Equal(t, uint8(5), packet.Header.IHL)
	assert.Equal(t, uint16(25), packet.Header.TotalLength)
	assert.Equal(t, uint16(0xbeef), packet.Header.ID)
	assert.Equal(t, tunping.IPv4FlagDontFragment, packet.Header.FlagsFragment)
	assert.Equal(t, uint8(33), packet.Header.TTL)
	assert.Equal(t, tunping.IPv4ProtocolUDP, packet.Header.Protocol)
	assert.True(t, packet.Header.SourceIP.Equal(peerIP))
	assert.True(t, packet.Header.DestinationIP.Equal(localIP))
	assert.Equal(t, []byte("hello"), packet.Payload)
	assert.Equal(t, packet.Header.HeaderChecksum, packet.Header.CalculateChecksum())
}

func TestParseIPv4PacketWithOptions(t *testing.T) {
	frame := buildIPv4(t, peerIP, localIP, 64, tunping.IPv4ProtocolICMP, nil)
	frame[0] = 0x46
	frame = append(frame, 0x01, 0x01, 0x01, 0x00) // NOP NOP NOP EOL
	frame = append(frame, []byte("payload")...)

	packet, err := tunping.ParseIPv4Packet(frame)
	require.NoError(t, err)

	assert.Equal(t, uint8(6), packet.Header.IHL)
	assert.Equal(t, []byte("payload"), packet.Payload)
}

func TestParseIPv4PacketHonoursTotalLength(t *testing.T) {
	frame := buildIPv4(t, peerIP, localIP, 64, tunping.IPv4ProtocolUDP, []byte("abc"))
	frame = append(frame, 0xff, 0xff, 0xff)

	packet, err := tunping.ParseIPv4Packet(frame)
	require.NoError(t, err)
	assert.Equal(t, []byte("abc"), packet.Payload)
}

func TestParseIPv4PacketTotalLengthIsWireOrder(t *testing.T) {
	// 256 bytes total: 0x01 0x00 on the wire, 1 if read in little endian
	frame := buildIPv4(t, peerIP, localIP, 64, tunping.IPv4ProtocolUDP, incrementing(256-tunping.IPv4HeaderLen))
	require.Equal(t, []byte{0x01, 0x00}, frame[2:4])
	frame = append(frame, 0xee, 0xee)

	packet, err := tunping.ParseIPv4Packet(frame)
	require.NoError(t, err)

	assert.Equal(t, uint16(256), packet.Header.TotalLength)
	assert.Len(t, packet.Payload, 256-tunping.IPv4HeaderLen)
}

func TestParseIPv4PacketIgnoresOversizedTotalLength(t *testing.T) {
	frame := buildIPv4(t, peerIP, localIP, 64, tunping.IPv4ProtocolUDP, []byte("abc"))
	frame[2], frame[3] = 0x05, 0xdc

	packet, err := tunping.ParseIPv4Packet(frame)
	require.NoError(t, err)
	assert.Equal(t, []byte("abc"), packet.Payload)
}

func TestParseIPv4PacketMalformed(t *testing.T) {
	ipv6 := make([]byte, 40)
	ipv6[0] = 0x60

	badIHL := buildIPv4(t, peerIP, localIP, 64, tunping.IPv4ProtocolUDP, nil)
	badIHL[0] = 0x44

	longIHL := buildIPv4(t, peerIP, localIP, 64, tunping.IPv4ProtocolUDP, nil)
	longIHL[0] = 0x4f

	tests := []struct {
		name  string
		frame []byte
		want  error
	}{
		{"empty", nil, tunping.ErrShortHeader},
		{"short", []byte{0x45, 0x00, 0x00}, tunping.ErrShortHeader},
		{"ipv6", ipv6, tunping.ErrNotIPv4},
		{"ihl too small", badIHL, tunping.ErrShortHeader},
		{"ihl beyond frame", longIHL, tunping.ErrShortHeader},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			packet, err := tunping.ParseIPv4Packet(tt.frame)
			assert.Nil(t, packet)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestIPv4HeaderMarshalRejectsIPv6Addresses(t *testing.T) {
	header := tunping.IPv4Header{
		Version:       4,
		IHL:           5,
		SourceIP:      net.ParseIP("::1"),
		DestinationIP: localIP,
	}

	_, err := header.MarshalBinary()
	assert.ErrorIs(t, err, tunping.ErrNotIPv4)
}
