package transport

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.bug.st/serial"
)

const (
	openBreakDuration = 92 * time.Microsecond
	openMABDuration    = 12 * time.Microsecond
	enttecOpenBaud     = 250000
)

// SerialOpenConfig configures an ENTTEC Open DMX USB transport.
type SerialOpenConfig struct {
	Port string // device path, e.g. "/dev/ttyUSB0"
}

// SerialOpenTransport drives an ENTTEC Open DMX USB interface: 250000 baud,
// 8 data bits, 2 stop bits, framed with a timed break + mark-after-break
// rather than any software protocol wrapper.
type SerialOpenTransport struct {
	cfg  SerialOpenConfig
	port serial.Port

	mu        sync.Mutex
	connected atomic.Bool
}

// NewSerialOpenTransport constructs an unconnected ENTTEC Open transport.
func NewSerialOpenTransport(cfg SerialOpenConfig) *SerialOpenTransport {
	return &SerialOpenTransport{cfg: cfg}
}

// Connect opens the serial port at 250000 8N2.
func (t *SerialOpenTransport) Connect() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	mode := &serial.Mode{
		BaudRate: enttecOpenBaud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.TwoStopBits,
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
func (t *SerialOpenTransport) Disconnect() error {
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

// Send frames frame as a break + mark-after-break + start-code-0 + 512 bytes
// DMX packet. Silently drops if not connected.
func (t *SerialOpenTransport) Send(frame []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.sendLocked(frame)
}

func (t *SerialOpenTransport) sendLocked(frame []byte) error {
	if !t.connected.Load() {
		return nil
	}

	// Break condition + mark-after-break precede every DMX packet on the
	// wire; go.bug.st/serial's Break asserts the line low for the given
	// duration and returns. If the installed driver cannot honor a break
	// shorter than its minimum, it will simply hold it slightly longer,
	// which DMX receivers tolerate.
	if err := t.port.Break(openBreakDuration); err != nil {
		return err
	}
	time.Sleep(openMABDuration)

	_, err := t.port.Write(buildOpenFramePayload(frame))
	return err
}

// buildOpenFramePayload builds the raw start-code + 512-byte DMX payload an
// ENTTEC Open interface writes after the break/MAB pair. Pulled out as a
// pure function so the framing can be tested without a real serial port.
func buildOpenFramePayload(frame []byte) []byte {
	data := normalizeFrame(frame)
	packet := make([]byte, 0, 1+DMXDataLength)
	packet = append(packet, 0x00) // start code
	packet = append(packet, data[:]...)
	return packet
}

// IsConnected reports whether the serial port is open.
func (t *SerialOpenTransport) IsConnected() bool {
	return t.connected.Load()
}
