package tunping_test

import (
	"errors"
	"io"
	"net"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/net/icmp"
	"golang.org/x/net/ipv4"

	"tunping"
)

// incrementing returns n bytes counting up from zero.
func incrementing(n int) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = byte(i)
	}
	return b
}

func buildIPv4(t *testing.T, src, dst net.IP, ttl uint8, protocol tunping.IPv4Protocol, payload []byte) []byte {
	t.Helper()

	header := tunping.IPv4Header{
		Version:       4,
		IHL:           5,
		TotalLength:   uint16(tunping.IPv4HeaderLen + len(payload)),
		ID:            0xbeef,
		FlagsFragment: tunping.IPv4FlagDontFragment,
		TTL:           ttl,
		Protocol:      protocol,
		SourceIP:      src,
		DestinationIP: dst,
	}
	header.HeaderChecksum = header.CalculateChecksum()

	b, err := header.MarshalBinary()
	require.NoError(t, err)

	return append(b, payload...)
}

func buildEchoMessage(t *testing.T, typ icmp.Type, id, seq uint16, data []byte) []byte {
	t.Helper()

	msg := icmp.Message{
		Type: typ,
		Code: 0,
		Body: &icmp.Echo{
			ID:   int(id),
			Seq:  int(seq),
			Data: data,
		},
	}

	b, err := msg.Marshal(nil)
	require.NoError(t, err)

	return b
}

func buildEchoRequest(t *testing.T, src, dst net.IP, id, seq uint16, data []byte) []byte {
	t.Helper()

	msg := buildEchoMessage(t, ipv4.ICMPTypeEcho, id, seq, data)
	return buildIPv4(t, src, dst, 64, tunping.IPv4ProtocolICMP, msg)
}

// fakeInterface replays reads and records writes.
type fakeInterface struct {
	reads    [][]byte
	writes   [][]byte
	writeErr error
	short    bool
}

func (f *fakeInterface) Read(p []byte) (int, error) {
	if len(f.reads) == 0 {
		return 0, io.EOF
	}

	n := copy(p, f.reads[0])
	f.reads = f.reads[1:]

	return n, nil
}

func (f *fakeInterface) Write(p []byte) (int, error) {
	if f.writeErr != nil {
		return 0, f.writeErr
	}
	if f.short {
		return len(p) / 2, nil
	}

	f.writes = append(f.writes, append([]byte(nil), p...))

	return len(p), nil
}

var errInterfaceGone = errors.New("interface gone")
