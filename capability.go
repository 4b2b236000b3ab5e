package tunping

import "io"

type CapabilityStatus int

const (
	// CapabilityStatusPass means the request was not handled by the capability
	// and should be passed to the next capability
	CapabilityStatusPass CapabilityStatus = iota
	// CapabilityStatusFail means the request was dropped by the capability
	CapabilityStatusFail
	// CapabilityStatusDone means the request was handled by the capability
	CapabilityStatusDone
)

func (s CapabilityStatus) String() string {
	switch s {
	case CapabilityStatusPass:
		return "pass"
	case CapabilityStatusFail:
		return "fail"
	case CapabilityStatusDone:
		return "done"
	}
	return "unknown"
}

type Capability interface {
	// HandleRequest handles a packet, writing any reply to w. A non-nil error
	// means the reply could not be transmitted and is fatal for the interface.
	HandleRequest(w io.Writer, packet *IPv4Packet) (CapabilityStatus, error)

	// Match returns true if the capability can handle the packet
	Match(packet *IPv4Packet) bool
}
