package transport

import (
	"fmt"
	"net"
	"sync"
	"sync/atomic"

	"github.com/flowshow/playback-engine/pkg/sacn"
)

// SacnConfig configures an sACN/E1.31 transport instance.
type SacnConfig struct {
	Universe  uint16
	Multicast bool   // when true, send to the standard 239.255.x.y group
	Host      string // unicast destination; ignored when Multicast is true
	Port      int    // defaults to 5568 (the E1.31 standard port) when zero
	CID       [16]byte
	SourceName string
	Priority   byte // 0-200, default 100
}

const defaultSacnPort = 5568

// SacnTransport sends E1.31 DMX data packets over UDP: to the universe's
// multicast group when Multicast is set, otherwise unicast to Host.
type SacnTransport struct {
	cfg  SacnConfig
	conn *net.UDPConn

	mu        sync.Mutex
	connected atomic.Bool
	sequence  byte
}

// NewSacnTransport constructs an unconnected sACN transport.
func NewSacnTransport(cfg SacnConfig) *SacnTransport {
	if cfg.Port == 0 {
		cfg.Port = defaultSacnPort
	}
	if cfg.Priority == 0 {
		cfg.Priority = 100
	}
	if cfg.SourceName == "" {
		cfg.SourceName = "flow-player"
	}
	return &SacnTransport{cfg: cfg}
}

func (t *SacnTransport) destination() string {
	if t.cfg.Multicast {
		return sacn.MulticastGroup(t.cfg.Universe)
	}
	return t.cfg.Host
}

// Connect opens a UDP socket to the multicast group or unicast destination.
func (t *SacnTransport) Connect() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	addr := fmt.Sprintf("%s:%d", t.destination(), t.cfg.Port)
	raddr, err := net.ResolveUDPAddr("udp4", addr)
	if err != nil {
		return fmt.Errorf("%w: resolve %s: %v", ErrTransportOpen, addr, err)
	}

	conn, err := net.DialUDP("udp4", nil, raddr)
	if err != nil {
		return fmt.Errorf("%w: dial %s: %v", ErrTransportOpen, addr, err)
	}

	t.conn = conn
	t.connected.Store(true)
	return nil
}

// Disconnect sends one blackout frame, then closes the socket.
func (t *SacnTransport) Disconnect() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.connected.Load() {
		return nil
	}

	blackout := make([]byte, DMXDataLength)
	t.sendLocked(blackout)

	err := t.conn.Close()
	t.connected.Store(false)
	t.conn = nil
	return err
}

// Send transmits frame as an E1.31 DMX data packet. Silently drops if not
// connected.
func (t *SacnTransport) Send(frame []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.sendLocked(frame)
}

func (t *SacnTransport) sendLocked(frame []byte) error {
	if !t.connected.Load() {
		return nil
	}
	packet := sacn.EncodeDMXPacket(t.cfg.Universe, frame, t.cfg.CID, t.cfg.SourceName, t.cfg.Priority, t.sequence)
	t.sequence++
	_, err := t.conn.Write(packet)
	return err
}

// IsConnected reports whether the socket is open.
func (t *SacnTransport) IsConnected() bool {
	return t.connected.Load()
}
