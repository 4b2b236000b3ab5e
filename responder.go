package tunping

import (
	"fmt"
	"io"

	log "github.com/sirupsen/logrus"
)

// MTU is the largest frame read from the interface in one call.
const MTU = 1500

// Responder reads frames from a virtual interface and answers the ones a
// capability knows how to handle. Frames are processed one at a time; there
// is no state shared between frames.
type Responder struct {
	ifce         io.ReadWriter
	name         string
	link         Link
	capabilities []Capability
	metrics      *Metrics
	buf          []byte
}

type ResponderOption func(r *Responder)

// WithLink selects the framing used on the interface. The default is
// LinkTun.
func WithLink(link Link) ResponderOption {
	return func(r *Responder) {
		r.link = link
	}
}

func WithMetrics(metrics *Metrics) ResponderOption {
	return func(r *Responder) {
		r.metrics = metrics
	}
}

// WithCapabilities replaces the default capability chain.
func WithCapabilities(capabilities ...Capability) ResponderOption {
	return func(r *Responder) {
		r.capabilities = capabilities
	}
}

func WithName(name string) ResponderOption {
	return func(r *Responder) {
		r.name = name
	}
}

func NewResponder(ifce io.ReadWriter, opts ...ResponderOption) *Responder {
	r := &Responder{
		ifce: ifce,
		link: LinkTun{},
		buf:  make([]byte, MTU+EthernetHeaderLen),
	}

	for _, opt := range opts {
		opt(r)
	}

	if r.capabilities == nil {
		r.capabilities = []Capability{NewCapabilityIcmp(r.metrics)}
	}

	return r
}

// Serve reads and handles frames until reading from or writing to the
// interface fails.
func (r *Responder) Serve() error {
	log.WithFields(log.Fields{
		"device": r.name,
		"link":   r.link.Name(),
	}).Info("responder started")

	for {
		n, err := r.ifce.Read(r.buf)
		if err != nil {
			return fmt.Errorf("read from interface: %w", err)
		}

		if err := r.HandleFrame(r.buf[:n]); err != nil {
			return err
		}
	}
}

// HandleFrame processes a single frame. Frames that cannot be parsed or
// that no capability matches are dropped silently. The returned error is
// always a transmission failure.
func (r *Responder) HandleFrame(frame []byte) error {
	r.metrics.received()

	return r.link.Handle(frame, r.ifce, r.metrics, r.handlePacket)
}

func (r *Responder) handlePacket(w io.Writer, datagram []byte) error {
	packet, err := ParseIPv4Packet(datagram)
	if err != nil {
		r.metrics.dropped(DropReasonMalformed)
		log.WithField("device", r.name).WithError(err).Trace("discarding non IPv4 frame")
		return nil
	}

	for _, c := range r.capabilities {
		if !c.Match(packet) {
			continue
		}

		status, err := c.HandleRequest(w, packet)
		if err != nil {
			return err
		}
		if status != CapabilityStatusPass {
			return nil
		}
	}

	r.metrics.dropped(DropReasonNotICMP)
	log.WithFields(log.Fields{
		"device":   r.name,
		"protocol": packet.Header.Protocol,
	}).Trace("discarding unhandled packet")

	return nil
}
