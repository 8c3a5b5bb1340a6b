// Package sacn provides E1.31 (sACN) DMX data packet encoding.
package sacn

import (
	"encoding/binary"
)

const (
	// DMXDataLength is the number of DMX channels per universe.
	DMXDataLength = 512

	vectorRootE131Data    = 0x00000004
	vectorE131DataPacket  = 0x00000002
	vectorDMPSetProperty  = 0x02
	dmpAddressIncrement   = 0x0001
	acnSourceNameLength   = 64
	acnPacketIdentifierSz = 12

	rootLayerLength    = 38
	framingLayerLength = 77
	dmpLayerLength     = 523 // 1 (start code) + 512 data + 10 header bytes

	// PacketSize is the size of an E1.31 DMX data packet's root and framing
	// layers, which precede the DMP layer (start code + 512 data bytes).
	PacketSize = rootLayerLength + framingLayerLength
)

// acnPacketIdentifier is the fixed 12-byte ACN packet identifier every E1.31
// root layer begins with.
var acnPacketIdentifier = []byte{0x41, 0x53, 0x43, 0x2d, 0x45, 0x31, 0x2e, 0x31, 0x37, 0x00, 0x00, 0x00}

// MulticastGroup derives the standard E1.31 multicast address for a universe:
// 239.255.<universe_hi>.<universe_lo>.
func MulticastGroup(universe uint16) string {
	hi := byte(universe >> 8)
	lo := byte(universe)
	return "239.255." + itoa(hi) + "." + itoa(lo)
}

func itoa(b byte) string {
	if b == 0 {
		return "0"
	}
	var buf [3]byte
	i := len(buf)
	for b > 0 {
		i--
		buf[i] = byte('0' + b%10)
		b /= 10
	}
	return string(buf[i:])
}

// flagsAndLength packs the 4-bit 0x7 flag nibble with a 12-bit length into
// the two-byte field E1.31 uses throughout its layers.
func flagsAndLength(length int) uint16 {
	return uint16(0x7000) | uint16(length&0x0FFF)
}

// EncodeDMXPacket builds a minimal, standards-shaped E1.31 "DMX Data" packet
// for the given universe, source CID, source name, priority, and sequence
// number. channels is copied into the 512-byte DMP property values; a
// shorter slice is zero-padded, a longer one truncated.
func EncodeDMXPacket(universe uint16, channels []byte, cid [16]byte, sourceName string, priority byte, sequence byte) []byte {
	packet := make([]byte, rootLayerLength+framingLayerLength)

	// Root Layer
	binary.BigEndian.PutUint16(packet[0:2], 0x0010) // preamble size
	binary.BigEndian.PutUint16(packet[2:4], 0x0000) // postamble size
	copy(packet[4:16], acnPacketIdentifier)
	binary.BigEndian.PutUint16(packet[16:18], flagsAndLength(len(packet)+dmpLayerLength-16))
	binary.BigEndian.PutUint32(packet[18:22], vectorRootE131Data)
	copy(packet[22:38], cid[:])

	// Framing Layer
	binary.BigEndian.PutUint16(packet[38:40], flagsAndLength(len(packet)+dmpLayerLength-38))
	binary.BigEndian.PutUint32(packet[40:44], vectorE131DataPacket)
	nameBytes := []byte(sourceName)
	if len(nameBytes) > acnSourceNameLength {
		nameBytes = nameBytes[:acnSourceNameLength]
	}
	copy(packet[44:44+len(nameBytes)], nameBytes)
	packet[108] = priority
	binary.BigEndian.PutUint16(packet[109:111], 0) // sync address: unused
	packet[111] = sequence
	packet[112] = 0 // options
	binary.BigEndian.PutUint16(packet[113:115], universe)

	// DMP Layer + data appended separately to keep this function's buffer a
	// fixed header; appendDMPLayer below adds them.
	_ = dmpLayerLength
	return appendDMPLayer(packet, channels)
}

func appendDMPLayer(header []byte, channels []byte) []byte {
	out := make([]byte, 0, len(header)+dmpLayerLength)
	out = append(out, header...)

	dmp := make([]byte, 10)
	binary.BigEndian.PutUint16(dmp[0:2], flagsAndLength(dmpLayerLength))
	dmp[2] = vectorDMPSetProperty
	dmp[3] = 0xa1 // address type & data type
	binary.BigEndian.PutUint16(dmp[4:6], 0x0000) // first property address
	binary.BigEndian.PutUint16(dmp[6:8], dmpAddressIncrement)
	binary.BigEndian.PutUint16(dmp[8:10], uint16(1+DMXDataLength))
	out = append(out, dmp...)

	out = append(out, 0x00) // DMX start code
	data := make([]byte, DMXDataLength)
	n := len(channels)
	if n > DMXDataLength {
		n = DMXDataLength
	}
	copy(data, channels[:n])
	out = append(out, data...)

	return out
}
