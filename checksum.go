package tunping

import (
	"encoding/binary"
	"errors"
)

var ErrChecksumField = errors.New("checksum field out of range")

// Checksum computes the Internet checksum (RFC 1071) of b. An odd trailing
// byte is treated as the high byte of a word whose low byte is zero.
//
// Running Checksum over a buffer that already carries a valid checksum
// yields 0.
func Checksum(b []byte) uint16 {
	var sum uint32

	for len(b) >= 2 {
		sum += uint32(b[0])<<8 | uint32(b[1])
		b = b[2:]
	}

	if len(b) == 1 {
		sum += uint32(b[0]) << 8
	}

	// fold the carries back into the low 16 bits
	for sum>>16 != 0 {
		sum = (sum & 0xffff) + (sum >> 16)
	}

	return ^uint16(sum)
}

// PutChecksum zeroes the 2-byte field at off, computes the checksum over all
// of b and writes it back into that field.
func PutChecksum(b []byte, off int) error {
	if off < 0 || off+2 > len(b) {
		return ErrChecksumField
	}

	b[off] = 0
	b[off+1] = 0
	binary.BigEndian.PutUint16(b[off:off+2], Checksum(b))

	return nil
}
