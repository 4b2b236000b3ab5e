package tunping

import (
	"encoding/binary"
	"errors"
	"net"
)

// ArpPayloadLen is the size of an ethernet/IPv4 ARP payload.
const ArpPayloadLen = 28

var ArpMacUnknown = net.HardwareAddr{0x00, 0x00, 0x00, 0x00, 0x00, 0x00}

var ErrArpPayload = errors.New("unsupported arp payload")

type ArpHardwareType uint16

const ArpHardwareTypeEthernet ArpHardwareType = 1

type ArpProtocolType uint16

const ArpProtocolTypeIPv4 ArpProtocolType = 0x0800

type ArpOpcode uint16

const (
	ArpOpcodeRequest ArpOpcode = 1
	ArpOpcodeReply   ArpOpcode = 2
)

type ArpPayload struct {
	HardwareType ArpHardwareType
	ProtocolType ArpProtocolType
	Opcode       ArpOpcode
	SenderMac    net.HardwareAddr
	SenderIP     net.IP
	TargetMac    net.HardwareAddr
	TargetIP     net.IP
}

func (a *ArpPayload) MarshalBinary() ([]byte, error) {
	senderIP, targetIP := a.SenderIP.To4(), a.TargetIP.To4()
	if senderIP == nil || targetIP == nil || len(a.SenderMac) != 6 || len(a.TargetMac) != 6 {
		return nil, ErrArpPayload
	}

	b := make([]byte, ArpPayloadLen)
	binary.BigEndian.PutUint16(b[0:2], uint16(a.HardwareType))
	binary.BigEndian.PutUint16(b[2:4], uint16(a.ProtocolType))
	b[4], b[5] = 6, 4 // ethernet and ipv4 only
	binary.BigEndian.PutUint16(b[6:8], uint16(a.Opcode))
	copy(b[8:14], a.SenderMac)
	copy(b[14:18], senderIP)
	copy(b[18:24], a.TargetMac)
	copy(b[24:28], targetIP)

	return b, nil
}

// UnmarshalBinary parses an ethernet/IPv4 ARP payload. The addresses are
// copied out of data.
func (a *ArpPayload) UnmarshalBinary(data []byte) error {
	if len(data) < ArpPayloadLen || data[4] != 6 || data[5] != 4 {
		return ErrArpPayload
	}

	a.HardwareType = ArpHardwareType(binary.BigEndian.Uint16(data[0:2]))
	a.ProtocolType = ArpProtocolType(binary.BigEndian.Uint16(data[2:4]))
	a.Opcode = ArpOpcode(binary.BigEndian.Uint16(data[6:8]))
	a.SenderMac = append(net.HardwareAddr(nil), data[8:14]...)
	a.SenderIP = net.IPv4(data[14], data[15], data[16], data[17]).To4()
	a.TargetMac = append(net.HardwareAddr(nil), data[18:24]...)
	a.TargetIP = net.IPv4(data[24], data[25], data[26], data[27]).To4()

	return nil
}
