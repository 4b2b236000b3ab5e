package tunping

import (
	"io"
	"net"

	log "github.com/sirupsen/logrus"
	"github.com/songgao/packets/ethernet"
)

// CapabilityArp answers ARP requests for a single address on a TAP link so
// the peer can address echo requests to us.
type CapabilityArp struct {
	ip  net.IP
	mac net.HardwareAddr
}

func NewCapabilityArp(ip net.IP, mac net.HardwareAddr) *CapabilityArp {
	return &CapabilityArp{
		ip:  ip.To4(),
		mac: mac,
	}
}

func (c *CapabilityArp) HandleFrame(w io.Writer, frame ethernet.Frame, metrics *Metrics) (CapabilityStatus, error) {
	request := &ArpPayload{}
	if err := request.UnmarshalBinary(frame.Payload()); err != nil {
		metrics.dropped(DropReasonMalformed)
		return CapabilityStatusFail, nil
	}

	if request.Opcode != ArpOpcodeRequest ||
		request.ProtocolType != ArpProtocolTypeIPv4 ||
		!request.TargetIP.Equal(c.ip) {
		return CapabilityStatusPass, nil
	}

	reply := &ArpPayload{
		HardwareType: request.HardwareType,
		ProtocolType: request.ProtocolType,
		Opcode:       ArpOpcodeReply,
		SenderIP:     request.TargetIP,
		TargetIP:     request.SenderIP,
		SenderMac:    c.mac,
		TargetMac:    request.SenderMac,
	}

	payload, err := reply.MarshalBinary()
	if err != nil {
		return CapabilityStatusFail, nil
	}

	var out ethernet.Frame
	out.Prepare(request.SenderMac, c.mac, ethernet.NotTagged, ethernet.ARP, len(payload))
	copy(out.Payload(), payload)

	if _, err := w.Write(out); err != nil {
		return CapabilityStatusFail, err
	}

	metrics.arpReplied()
	log.WithFields(log.Fields{
		"ip":         request.SenderIP,
		"mac":        request.SenderMac,
		"capability": "arp",
	}).Debug("sent ARP response")

	return CapabilityStatusDone, nil
}
