package tunping

import (
	"fmt"
	"io"
	"net"

	log "github.com/sirupsen/logrus"
	"github.com/songgao/packets/ethernet"
)

// EthernetHeaderLen is the size of an untagged ethernet header.
const EthernetHeaderLen = 6 + 6 + 2

// PacketHandler handles one IPv4 datagram, writing replies to w.
type PacketHandler func(w io.Writer, datagram []byte) error

// Link describes the framing of an interface: how datagrams are found in a
// frame and how replies are framed on the way out.
type Link interface {
	Name() string
	Handle(frame []byte, w io.Writer, metrics *Metrics, next PacketHandler) error
}

// LinkTun is a point-to-point link without packet information. Every frame is
// a bare IPv4 datagram.
type LinkTun struct{}

func (LinkTun) Name() string {
	return "tun"
}

func (LinkTun) Handle(frame []byte, w io.Writer, _ *Metrics, next PacketHandler) error {
	return next(w, frame)
}

// LinkTap is an ethernet link. IPv4 payloads are passed on and replies are
// addressed back to the sender's MAC; ARP is answered by Arp when set.
type LinkTap struct {
	Arp *CapabilityArp
}

func (LinkTap) Name() string {
	return "tap"
}

func (l LinkTap) Handle(data []byte, w io.Writer, metrics *Metrics, next PacketHandler) error {
	if len(data) < EthernetHeaderLen {
		metrics.dropped(DropReasonMalformed)
		return nil
	}

	frame := ethernet.Frame(data)
	if len(frame) < EthernetHeaderLen+int(frame.Tagging()) {
		metrics.dropped(DropReasonMalformed)
		return nil
	}

	switch frame.Ethertype() {
	case ethernet.IPv4:
		return next(&ethernetWriter{
			w:   w,
			dst: frame.Source(),
			src: frame.Destination(),
		}, frame.Payload())
	case ethernet.ARP:
		if l.Arp != nil {
			_, err := l.Arp.HandleFrame(w, frame, metrics)
			return err
		}
	}

	metrics.dropped(DropReasonEthertype)
	log.WithField("ethertype", fmt.Sprintf("%x", frame.Ethertype())).Trace("discarding frame")

	return nil
}

// ethernetWriter frames every write as a single untagged IPv4 ethernet frame.
type ethernetWriter struct {
	w   io.Writer
	dst net.HardwareAddr
	src net.HardwareAddr
}

func (e *ethernetWriter) Write(p []byte) (int, error) {
	var frame ethernet.Frame
	frame.Prepare(e.dst, e.src, ethernet.NotTagged, ethernet.IPv4, len(p))
	copy(frame.Payload(), p)

	n, err := e.w.Write(frame)
	n -= EthernetHeaderLen
	if n < 0 {
		n = 0
	}

	return n, err
}
