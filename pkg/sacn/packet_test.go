package sacn

import (
	"encoding/binary"
	"testing"
)

func TestMulticastGroup(t *testing.T) {
	tests := []struct {
		universe uint16
		want     string
	}{
		{universe: 1, want: "239.255.0.1"},
		{universe: 0, want: "239.255.0.0"},
		{universe: 300, want: "239.255.1.44"},
	}

	for _, tt := range tests {
		got := MulticastGroup(tt.universe)
		if got != tt.want {
			t.Errorf("MulticastGroup(%d) = %q, want %q", tt.universe, got, tt.want)
		}
	}
}

func TestEncodeDMXPacket(t *testing.T) {
	var cid [16]byte
	for i := range cid {
		cid[i] = byte(i)
	}
	channels := make([]byte, 512)
	channels[0] = 200

	packet := EncodeDMXPacket(5, channels, cid, "flow-player", 100, 7)

	wantSize := rootLayerLength + framingLayerLength + dmpLayerLength
	if len(packet) != wantSize {
		t.Fatalf("packet size = %d, want %d", len(packet), wantSize)
	}

	if string(packet[4:16]) != string(acnPacketIdentifier) {
		t.Errorf("ACN packet identifier mismatch")
	}

	vector := binary.BigEndian.Uint32(packet[18:22])
	if vector != vectorRootE131Data {
		t.Errorf("root vector = 0x%08x, want 0x%08x", vector, vectorRootE131Data)
	}

	gotCID := packet[22:38]
	for i, b := range cid {
		if gotCID[i] != b {
			t.Fatalf("CID[%d] = %d, want %d", i, gotCID[i], b)
		}
	}

	gotUniverse := binary.BigEndian.Uint16(packet[113:115])
	if gotUniverse != 5 {
		t.Errorf("universe = %d, want 5", gotUniverse)
	}

	if packet[111] != 7 {
		t.Errorf("sequence = %d, want 7", packet[111])
	}
	if packet[108] != 100 {
		t.Errorf("priority = %d, want 100", packet[108])
	}

	startCodeOffset := rootLayerLength + framingLayerLength + 10
	if packet[startCodeOffset] != 0x00 {
		t.Errorf("DMX start code = %d, want 0", packet[startCodeOffset])
	}
	if packet[startCodeOffset+1] != 200 {
		t.Errorf("first DMX data byte = %d, want 200", packet[startCodeOffset+1])
	}
}

func TestEncodeDMXPacket_ShortChannelsZeroPadded(t *testing.T) {
	var cid [16]byte
	packet := EncodeDMXPacket(1, []byte{9, 9}, cid, "src", 100, 0)

	startCodeOffset := rootLayerLength + framingLayerLength + 10
	if packet[startCodeOffset+1] != 9 || packet[startCodeOffset+2] != 9 {
		t.Fatalf("expected first two data bytes to be 9, 9")
	}
	if packet[startCodeOffset+3] != 0 {
		t.Errorf("expected zero padding past short input")
	}
}
