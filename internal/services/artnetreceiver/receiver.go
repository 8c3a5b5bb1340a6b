// Package artnetreceiver listens for inbound Art-Net DMX packets and feeds
// an armed recording, independent of the engine's own Art-Net transport
// (which only sends).
package artnetreceiver

import (
	"fmt"
	"log"
	"net"
	"sync"
	"time"

	"github.com/flowshow/playback-engine/internal/services/recording"
	"github.com/flowshow/playback-engine/pkg/artnet"
)

// readTimeout bounds each blocking receive so StopListening can observe
// the stop flag promptly without an OS-level socket interrupt.
const readTimeout = 500 * time.Millisecond

// packetConn is the slice of net.PacketConn the receiver needs; it lets
// tests substitute a fake without opening a real socket.
type packetConn interface {
	ReadFrom(p []byte) (n int, addr net.Addr, err error)
	SetReadDeadline(t time.Time) error
	Close() error
}

// Receiver binds a UDP socket and decodes inbound Art-Net DMX datagrams.
// While armed (StartRecording), frames matching the armed universe are
// appended to the in-progress recording; every decoded frame, armed or
// not, is also offered to an optional live-preview callback.
type Receiver struct {
	mu sync.Mutex

	conn    packetConn
	running bool
	done    chan struct{}

	recordingActive bool
	current         *recording.Recording
	recordUniverse  int
	recordStart     time.Time

	onFrame             func(recording.Frame)
	onRecordingComplete func(*recording.Recording)

	framesReceived int
	lastFrameAt    time.Time
}

// New constructs an unarmed, unbound Receiver.
func New() *Receiver {
	return &Receiver{}
}

// SetOnFrame registers a callback invoked with every decoded frame
// (recording or not), for live preview.
func (r *Receiver) SetOnFrame(fn func(recording.Frame)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onFrame = fn
}

// SetOnRecordingComplete registers a callback invoked when StopRecording
// (or StopListening while recording) finalizes a recording.
func (r *Receiver) SetOnRecordingComplete(fn func(*recording.Recording)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onRecordingComplete = fn
}

// StartListening binds a UDP socket on bindIP:port and starts the receive
// loop in a background goroutine. Calling it while already listening is a
// no-op.
func (r *Receiver) StartListening(bindIP string, port int) error {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return nil
	}

	addr := &net.UDPAddr{IP: net.ParseIP(bindIP), Port: port}
	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		r.mu.Unlock()
		return fmt.Errorf("artnetreceiver: bind %s:%d: %w", bindIP, port, err)
	}

	r.conn = conn
	r.running = true
	r.done = make(chan struct{})
	done := r.done
	r.mu.Unlock()

	go r.listenLoop(done)
	log.Printf("artnetreceiver: listening on %s:%d", bindIP, port)
	return nil
}

// StopListening stops the receive loop and closes the socket, finalizing
// any in-progress recording first. It blocks up to roughly 2x the read
// timeout for the loop goroutine to observe the stop and exit.
func (r *Receiver) StopListening() {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return
	}
	r.running = false
	conn := r.conn
	done := r.done
	r.mu.Unlock()

	if r.IsRecording() {
		r.StopRecording()
	}

	select {
	case <-done:
	case <-time.After(2 * readTimeout):
		log.Printf("artnetreceiver: stop timed out waiting for receive loop to exit")
	}

	if conn != nil {
		conn.Close()
	}
	log.Printf("artnetreceiver: stopped listening")
}

// StartRecording arms the receiver on universe: matching frames are
// appended to a new in-progress recording until StopRecording. Returns
// false if already recording or not listening.
func (r *Receiver) StartRecording(name string, universe int) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.recordingActive {
		return false
	}
	if !r.running {
		return false
	}

	r.current = recording.New(name, universe, 40)
	r.recordUniverse = universe
	r.recordStart = time.Now()
	r.recordingActive = true
	r.framesReceived = 0
	return true
}

// StopRecording disarms the receiver and returns the finished recording,
// or nil if nothing was recording.
func (r *Receiver) StopRecording() *recording.Recording {
	r.mu.Lock()
	if !r.recordingActive {
		r.mu.Unlock()
		return nil
	}
	r.recordingActive = false
	rec := r.current
	r.current = nil
	callback := r.onRecordingComplete
	r.mu.Unlock()

	if rec != nil {
		rec.TrimEndMs = rec.DurationMs
		if callback != nil {
			callback(rec)
		}
	}
	return rec
}

// IsListening reports whether the receive loop is running.
func (r *Receiver) IsListening() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}

// IsRecording reports whether the receiver is currently armed.
func (r *Receiver) IsRecording() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.recordingActive
}

func (r *Receiver) listenLoop(done chan struct{}) {
	defer close(done)

	buf := make([]byte, 1024)
	for {
		r.mu.Lock()
		running := r.running
		conn := r.conn
		r.mu.Unlock()
		if !running || conn == nil {
			return
		}

		_ = conn.SetReadDeadline(time.Now().Add(readTimeout))
		n, addr, err := conn.ReadFrom(buf)
		if err != nil {
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				continue
			}
			r.mu.Lock()
			stillRunning := r.running
			r.mu.Unlock()
			if stillRunning {
				log.Printf("artnetreceiver: receive error: %v", err)
			}
			continue
		}

		r.processPacket(buf[:n], addr)
	}
}

func (r *Receiver) processPacket(data []byte, addr net.Addr) {
	decoded, err := artnet.DecodeDMXPacket(data)
	if err != nil {
		return
	}

	channels := decoded.Data[:]

	r.mu.Lock()
	r.framesReceived++
	r.lastFrameAt = time.Now()

	if r.recordingActive && int(decoded.Universe) == r.recordUniverse {
		tsMs := time.Since(r.recordStart).Milliseconds()
		r.current.AddFrame(tsMs, bytesToInts(channels))
		if r.current.SourceIP == "" {
			r.current.SourceIP = hostOf(addr)
		}
	}
	onFrame := r.onFrame
	r.mu.Unlock()

	if onFrame != nil {
		onFrame(recording.Frame{
			TimestampMs: time.Now().UnixMilli(),
			Channels:    bytesToInts(channels),
		})
	}
}

func bytesToInts(b []byte) []int {
	out := make([]int, len(b))
	for i, v := range b {
		out[i] = int(v)
	}
	return out
}

func hostOf(addr net.Addr) string {
	if addr == nil {
		return ""
	}
	host, _, err := net.SplitHostPort(addr.String())
	if err != nil {
		return addr.String()
	}
	return host
}
