package transport

import (
	"fmt"
	"net"
	"strings"
	"sync"
	"sync/atomic"
	"syscall"

	"github.com/flowshow/playback-engine/pkg/artnet"
)

// ArtNetConfig configures an Art-Net transport instance.
type ArtNetConfig struct {
	// Host is the destination address, e.g. "10.0.0.255" or "255.255.255.255"
	// for a subnet/global broadcast. If Port is zero, artnet.DefaultPort is used.
	Host     string
	Port     int
	Universe uint16
}

// ArtNetTransport sends Art-Net DMX data packets over UDP.
type ArtNetTransport struct {
	cfg  ArtNetConfig
	conn *net.UDPConn

	mu        sync.Mutex
	connected atomic.Bool
	sequence  byte
}

// NewArtNetTransport constructs an unconnected Art-Net transport.
func NewArtNetTransport(cfg ArtNetConfig) *ArtNetTransport {
	if cfg.Port == 0 {
		cfg.Port = artnet.DefaultPort
	}
	return &ArtNetTransport{cfg: cfg}
}

func (t *ArtNetTransport) isBroadcast() bool {
	return strings.HasSuffix(t.cfg.Host, ".255") || t.cfg.Host == "255.255.255.255"
}

// Connect opens a UDP socket to the configured destination.
func (t *ArtNetTransport) Connect() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	addr := fmt.Sprintf("%s:%d", t.cfg.Host, t.cfg.Port)
	raddr, err := net.ResolveUDPAddr("udp4", addr)
	if err != nil {
		return fmt.Errorf("%w: resolve %s: %v", ErrTransportOpen, addr, err)
	}

	conn, err := net.DialUDP("udp4", nil, raddr)
	if err != nil {
		return fmt.Errorf("%w: dial %s: %v", ErrTransportOpen, addr, err)
	}

	if t.isBroadcast() {
		if err := enableBroadcast(conn); err != nil {
			_ = conn.Close()
			return fmt.Errorf("%w: enable broadcast on %s: %v", ErrTransportOpen, addr, err)
		}
	}

	t.conn = conn
	t.connected.Store(true)
	return nil
}

// enableBroadcast sets SO_BROADCAST on conn's underlying socket. Without
// it, the kernel refuses (EACCES) a UDP send to a broadcast destination
// such as 255.255.255.255 or a subnet's .255 address.
func enableBroadcast(conn *net.UDPConn) error {
	raw, err := conn.SyscallConn()
	if err != nil {
		return err
	}
	var sockErr error
	if err := raw.Control(func(fd uintptr) {
		sockErr = syscall.SetsockoptInt(int(fd), syscall.SOL_SOCKET, syscall.SO_BROADCAST, 1)
	}); err != nil {
		return err
	}
	return sockErr
}

// Disconnect sends one blackout frame, then closes the socket.
func (t *ArtNetTransport) Disconnect() error {
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

// Send transmits frame as an Art-Net DMX data packet. Silently drops if not
// connected.
func (t *ArtNetTransport) Send(frame []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.sendLocked(frame)
}

func (t *ArtNetTransport) sendLocked(frame []byte) error {
	if !t.connected.Load() {
		return nil
	}
	packet := artnet.EncodeDMXPacket(t.cfg.Universe, frame, t.sequence)
	t.sequence++
	_, err := t.conn.Write(packet)
	return err
}

// IsConnected reports whether the socket is open.
func (t *ArtNetTransport) IsConnected() bool {
	return t.connected.Load()
}
