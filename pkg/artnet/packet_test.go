package artnet

import (
	"encoding/binary"
	"testing"
)

func TestEncodeDMXPacket(t *testing.T) {
	tests := []struct {
		name         string
		universe     uint16
		channels     []byte
		wantUniverse uint16
	}{
		{name: "Universe 0", universe: 0, channels: make([]byte, 512), wantUniverse: 0},
		{name: "Universe 3", universe: 3, channels: make([]byte, 512), wantUniverse: 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			packet := EncodeDMXPacket(tt.universe, tt.channels, 123)

			if len(packet) != PacketSize {
				t.Errorf("EncodeDMXPacket() packet size = %d, want %d", len(packet), PacketSize)
			}

			gotID := string(packet[0:8])
			if gotID != "Art-Net\x00" {
				t.Errorf("EncodeDMXPacket() ID = %q, want %q", gotID, "Art-Net\x00")
			}

			gotOpCode := binary.LittleEndian.Uint16(packet[8:10])
			if gotOpCode != OpCodeDMX {
				t.Errorf("EncodeDMXPacket() OpCode = 0x%04x, want 0x%04x", gotOpCode, OpCodeDMX)
			}

			gotVersion := binary.BigEndian.Uint16(packet[10:12])
			if gotVersion != ProtocolVersion {
				t.Errorf("EncodeDMXPacket() Protocol Version = %d, want %d", gotVersion, ProtocolVersion)
			}

			if packet[12] != 123 {
				t.Errorf("EncodeDMXPacket() Sequence = %d, want 123", packet[12])
			}
			if packet[13] != 0 {
				t.Errorf("EncodeDMXPacket() Physical = %d, want 0", packet[13])
			}

			gotUniverse := binary.LittleEndian.Uint16(packet[14:16])
			if gotUniverse != tt.wantUniverse {
				t.Errorf("EncodeDMXPacket() Universe = %d, want %d", gotUniverse, tt.wantUniverse)
			}

			gotLength := binary.BigEndian.Uint16(packet[16:18])
			if gotLength != DMXDataLength {
				t.Errorf("EncodeDMXPacket() Length = %d, want %d", gotLength, DMXDataLength)
			}
		})
	}
}

func TestEncodeDMXPacket_ChannelData(t *testing.T) {
	channels := make([]byte, 512)
	channels[0] = 255
	channels[100] = 128
	channels[511] = 64

	packet := EncodeDMXPacket(0, channels, 0)

	if packet[18] != 255 {
		t.Errorf("channel 1 = %d, want 255", packet[18])
	}
	if packet[18+100] != 128 {
		t.Errorf("channel 101 = %d, want 128", packet[18+100])
	}
	if packet[18+511] != 64 {
		t.Errorf("channel 512 = %d, want 64", packet[18+511])
	}
}

func TestEncodeDMXPacket_ShortChannelArray(t *testing.T) {
	channels := []byte{100, 200}
	packet := EncodeDMXPacket(0, channels, 0)

	if packet[18] != 100 {
		t.Errorf("channel 1 = %d, want 100", packet[18])
	}
	if packet[19] != 200 {
		t.Errorf("channel 2 = %d, want 200", packet[19])
	}
	if packet[20] != 0 {
		t.Errorf("channel 3 = %d, want 0", packet[20])
	}
}

func TestEncodeDMXPacket_EmptyChannels(t *testing.T) {
	packet := EncodeDMXPacket(0, nil, 0)

	if len(packet) != PacketSize {
		t.Errorf("EncodeDMXPacket() with nil channels size = %d, want %d", len(packet), PacketSize)
	}
	for i := 18; i < PacketSize; i++ {
		if packet[i] != 0 {
			t.Errorf("channel at offset %d = %d, want 0", i-18, packet[i])
			break
		}
	}
}

func TestDecodeDMXPacket_RoundTrip(t *testing.T) {
	channels := make([]byte, 512)
	for i := range channels {
		channels[i] = byte(i % 256)
	}

	packet := EncodeDMXPacket(7, channels, 42)
	decoded, err := DecodeDMXPacket(packet)
	if err != nil {
		t.Fatalf("DecodeDMXPacket() error = %v", err)
	}

	if decoded.Universe != 7 {
		t.Errorf("Universe = %d, want 7", decoded.Universe)
	}
	if decoded.Sequence != 42 {
		t.Errorf("Sequence = %d, want 42", decoded.Sequence)
	}
	for i := range channels {
		if decoded.Data[i] != channels[i] {
			t.Fatalf("Data[%d] = %d, want %d", i, decoded.Data[i], channels[i])
		}
	}
}

// TestDecodeDMXPacket_ArtNetIngressScenario mirrors the literal end-to-end
// scenario: universe 3, all 512 channels 0x42, arriving 1234ms after arming.
func TestDecodeDMXPacket_ArtNetIngressScenario(t *testing.T) {
	data := make([]byte, 512)
	for i := range data {
		data[i] = 0x42
	}

	packet := EncodeDMXPacket(3, data, 0)
	decoded, err := DecodeDMXPacket(packet)
	if err != nil {
		t.Fatalf("DecodeDMXPacket() error = %v", err)
	}

	if decoded.Universe != 3 {
		t.Errorf("Universe = %d, want 3", decoded.Universe)
	}
	for i, b := range decoded.Data {
		if b != 0x42 {
			t.Fatalf("Data[%d] = 0x%02x, want 0x42", i, b)
		}
	}
}

func TestDecodeDMXPacket_ShortPacket(t *testing.T) {
	_, err := DecodeDMXPacket(make([]byte, 10))
	if err != ErrShortPacket {
		t.Errorf("err = %v, want ErrShortPacket", err)
	}
}

func TestDecodeDMXPacket_BadHeader(t *testing.T) {
	packet := EncodeDMXPacket(0, make([]byte, 512), 0)
	packet[0] = 'X'
	_, err := DecodeDMXPacket(packet)
	if err != ErrBadHeader {
		t.Errorf("err = %v, want ErrBadHeader", err)
	}
}

func TestDecodeDMXPacket_WrongOpcode(t *testing.T) {
	packet := EncodeDMXPacket(0, make([]byte, 512), 0)
	binary.LittleEndian.PutUint16(packet[8:10], 0x2000)
	_, err := DecodeDMXPacket(packet)
	if err != ErrNotDMX {
		t.Errorf("err = %v, want ErrNotDMX", err)
	}
}

func TestDecodeDMXPacket_ShortDataZeroPadded(t *testing.T) {
	full := EncodeDMXPacket(0, []byte{1, 2, 3}, 0)
	// Truncate the declared-length field's backing datagram to simulate a
	// short, legitimately variable-length Art-Net DMX frame.
	short := full[:HeaderSize+3]
	binary.BigEndian.PutUint16(short[16:18], 3)

	decoded, err := DecodeDMXPacket(short)
	if err != nil {
		t.Fatalf("DecodeDMXPacket() error = %v", err)
	}
	if decoded.Data[0] != 1 || decoded.Data[1] != 2 || decoded.Data[2] != 3 {
		t.Fatalf("Data[0:3] = %v, want [1 2 3]", decoded.Data[:3])
	}
	if decoded.Data[3] != 0 {
		t.Errorf("Data[3] = %d, want 0 (zero-padded)", decoded.Data[3])
	}
}
