// Package artnet provides Art-Net protocol packet encoding and decoding.
package artnet

import (
	"encoding/binary"
	"errors"
)

const (
	// OpCodeDMX is the Art-Net operation code for DMX data.
	OpCodeDMX uint16 = 0x5000
	// ProtocolVersion is the Art-Net protocol version.
	ProtocolVersion uint16 = 14
	// DMXDataLength is the number of DMX channels per universe.
	DMXDataLength = 512
	// HeaderSize is the size of the Art-Net packet header preceding DMX data.
	HeaderSize = 18
	// PacketSize is the total size of an Art-Net DMX packet.
	PacketSize = HeaderSize + DMXDataLength
	// DefaultPort is the standard Art-Net UDP port.
	DefaultPort = 6454
)

// ArtNetID is the Art-Net packet identifier: "Art-Net" followed by a NUL byte.
var ArtNetID = []byte{'A', 'r', 't', '-', 'N', 'e', 't', 0x00}

// ErrShortPacket is returned when a datagram is too small to be a DMX packet.
var ErrShortPacket = errors.New("artnet: packet shorter than header")

// ErrBadHeader is returned when the packet ID does not match "Art-Net\x00".
var ErrBadHeader = errors.New("artnet: bad packet header")

// ErrNotDMX is returned when the opcode is not the DMX data opcode.
var ErrNotDMX = errors.New("artnet: opcode is not DMX data")

// EncodeDMXPacket builds an Art-Net DMX data packet for the given universe.
// Universe is the wire-level (0-based) universe number. channels is copied
// into the 512-byte data field; a shorter slice is zero-padded, a longer one
// is truncated. sequence should increment per packet (wrapping at 256) so
// receivers can detect out-of-order delivery.
func EncodeDMXPacket(universe uint16, channels []byte, sequence byte) []byte {
	packet := make([]byte, PacketSize)

	copy(packet[0:8], ArtNetID)
	binary.LittleEndian.PutUint16(packet[8:10], OpCodeDMX)
	binary.BigEndian.PutUint16(packet[10:12], ProtocolVersion)
	packet[12] = sequence
	packet[13] = 0 // physical input port, unused
	binary.LittleEndian.PutUint16(packet[14:16], universe)
	binary.BigEndian.PutUint16(packet[16:18], DMXDataLength)

	n := len(channels)
	if n > DMXDataLength {
		n = DMXDataLength
	}
	copy(packet[HeaderSize:HeaderSize+n], channels[:n])

	return packet
}

// DecodedDMXPacket is the result of decoding an inbound Art-Net DMX datagram.
type DecodedDMXPacket struct {
	Universe uint16
	Sequence byte
	Data     [DMXDataLength]byte
}

// DecodeDMXPacket parses an inbound UDP datagram as an Art-Net DMX data
// packet. It rejects anything shorter than the header, anything whose ID
// does not match "Art-Net\x00", and anything whose opcode is not the DMX
// data opcode. The data field is zero-padded to 512 bytes if the declared
// length is shorter, and truncated if longer.
func DecodeDMXPacket(datagram []byte) (DecodedDMXPacket, error) {
	var out DecodedDMXPacket

	if len(datagram) < HeaderSize {
		return out, ErrShortPacket
	}
	for i, b := range ArtNetID {
		if datagram[i] != b {
			return out, ErrBadHeader
		}
	}

	opcode := binary.LittleEndian.Uint16(datagram[8:10])
	if opcode != OpCodeDMX {
		return out, ErrNotDMX
	}

	out.Universe = binary.LittleEndian.Uint16(datagram[14:16])
	out.Sequence = datagram[12]

	length := int(binary.BigEndian.Uint16(datagram[16:18]))
	if length > DMXDataLength {
		length = DMXDataLength
	}
	end := HeaderSize + length
	if end > len(datagram) {
		end = len(datagram)
	}
	copy(out.Data[:], datagram[HeaderSize:end])

	return out, nil
}
