package transport

import (
	"encoding/binary"
	"fmt"
	"sync"
	"sync/atomic"

	"go.bug.st/serial"
)

const (
	enttecProStartByte = 0x7E
	enttecProEndByte   = 0xE7
	enttecProSendDMXRQ = 6
	enttecProDefaultBaud = 250000
)

// SerialProConfig configures an ENTTEC Pro or DMXKing USB DMX transport
// (both share the same host-to-widget framing).
type SerialProConfig struct {
	Port string // device path
	Baud int    // defaults to 250000
}

// SerialProTransport drives an ENTTEC Pro / DMXKing USB interface: the host
// wraps each DMX frame in a fixed envelope
// [0x7E, 0x06, lenLo, lenHi, 0x00, <512 bytes>, 0xE7] rather than using
// break/MAB timing directly.
type SerialProTransport struct {
	cfg  SerialProConfig
	port serial.Port

	mu        sync.Mutex
	connected atomic.Bool
}

// NewSerialProTransport constructs an unconnected ENTTEC Pro/DMXKing
// transport.
func NewSerialProTransport(cfg SerialProConfig) *SerialProTransport {
	if cfg.Baud == 0 {
		cfg.Baud = enttecProDefaultBaud
	}
	return &SerialProTransport{cfg: cfg}
}

// Connect opens the serial port at the configured baud, 8N1.
func (t *SerialProTransport) Connect() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	mode := &serial.Mode{
		BaudRate: t.cfg.Baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}

	port, err := serial.Open(t.cfg.Port, mode)
	if err != nil {
		return fmt.Errorf("%w: open %s: %v", ErrTransportOpen, t.cfg.Port, err)
	}

	t.port = port
	t.connected.Store(true)
	return nil
}

// Disconnect sends one blackout frame, then closes the port.
func (t *SerialProTransport) Disconnect() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.connected.Load() {
		return nil
	}

	blackout := make([]byte, DMXDataLength)
	t.sendLocked(blackout)

	err := t.port.Close()
	t.connected.Store(false)
	t.port = nil
	return err
}

// Send wraps frame in the ENTTEC Pro "Send DMX Packet" envelope and writes
// it. Silently drops if not connected.
func (t *SerialProTransport) Send(frame []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.sendLocked(frame)
}

func (t *SerialProTransport) sendLocked(frame []byte) error {
	if !t.connected.Load() {
		return nil
	}

	_, err := t.port.Write(buildProFramePacket(frame))
	return err
}

// buildProFramePacket builds the ENTTEC Pro "Send DMX Packet" host-to-widget
// envelope for frame: [0x7E, 0x06, lenLo, lenHi, 0x00, <512 bytes>, 0xE7].
// Pulled out as a pure function so the framing can be tested without a real
// serial port.
func buildProFramePacket(frame []byte) []byte {
	data := normalizeFrame(frame)

	payload := make([]byte, 0, 1+DMXDataLength)
	payload = append(payload, 0x00) // DMX start code
	payload = append(payload, data[:]...)

	length := make([]byte, 2)
	binary.LittleEndian.PutUint16(length, uint16(len(payload)))

	packet := make([]byte, 0, 5+len(payload)+1)
	packet = append(packet, enttecProStartByte, enttecProSendDMXRQ, length[0], length[1])
	packet = append(packet, payload...)
	packet = append(packet, enttecProEndByte)

	return packet
}

// IsConnected reports whether the serial port is open.
func (t *SerialProTransport) IsConnected() bool {
	return t.connected.Load()
}
