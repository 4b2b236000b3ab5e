package tunping

import (
	"errors"
	"io"

	log "github.com/sirupsen/logrus"
)

// CapabilityIcmp answers ICMP echo requests with echo replies.
type CapabilityIcmp struct {
	metrics *Metrics
}

func NewCapabilityIcmp(metrics *Metrics) *CapabilityIcmp {
	return &CapabilityIcmp{metrics: metrics}
}

func (c *CapabilityIcmp) HandleRequest(w io.Writer, packet *IPv4Packet) (CapabilityStatus, error) {
	fields := log.Fields{
		"source_ip":      packet.Header.SourceIP,
		"destination_ip": packet.Header.DestinationIP,
		"capability":     "icmp",
	}

	echo, err := StartEcho(&packet.Header, packet.Payload)
	switch {
	case errors.Is(err, ErrNotEchoRequest):
		c.metrics.dropped(DropReasonNotEcho)
		log.WithFields(fields).Trace("ignoring non echo ICMP message")
		return CapabilityStatusFail, nil
	case errors.Is(err, ErrTruncated):
		c.metrics.dropped(DropReasonTruncated)
		log.WithFields(fields).WithError(err).Debug("dropping truncated ICMP message")
		return CapabilityStatusFail, nil
	case err != nil:
		c.metrics.dropped(DropReasonMalformed)
		log.WithFields(fields).WithError(err).Debug("dropping malformed ICMP packet")
		return CapabilityStatusFail, nil
	}

	fields["icmp_id"] = echo.Identifier
	fields["icmp_seq"] = echo.Sequence
	log.WithFields(fields).Debug("received ICMP echo request")

	if err := echo.Respond(w); err != nil {
		return CapabilityStatusFail, err
	}

	c.metrics.replied()
	log.WithFields(fields).Debug("sent ICMP echo reply")

	return CapabilityStatusDone, nil
}

func (c *CapabilityIcmp) Match(packet *IPv4Packet) bool {
	return packet.Header.Protocol == IPv4ProtocolICMP
}
