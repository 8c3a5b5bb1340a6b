// Package dmxengine owns the 512-channel DMX frame buffer and drives a
// transport at a fixed rate.
package dmxengine

import (
	"fmt"
	"log"
	"sync"
	"time"
)

// UniverseSize is the number of channels in one DMX universe.
const UniverseSize = 512

const (
	// DefaultFPS is the flusher's default transmission rate.
	DefaultFPS = 40
	// MinFPS and MaxFPS bound the configurable flush rate.
	MinFPS = 1
	MaxFPS = 60
)

// Transport is the minimal contract the engine needs from a DMX transport
// variant (Art-Net, sACN, or a serial framing).
type Transport interface {
	Connect() error
	Disconnect() error
	Send(frame []byte) error
	IsConnected() bool
}

// Engine owns a single 512-byte DMX frame buffer and flushes it to a
// Transport at a fixed rate. Unlike a UI-responsiveness-oriented output
// service, the rate never adapts to activity: a DMX receiver may blackout
// its own outputs if frames stop arriving, so the flusher always runs.
type Engine struct {
	mu    sync.Mutex
	frame [UniverseSize]byte

	transport Transport
	fps       int

	stopChan  chan struct{}
	resetChan chan struct{}
	running   bool
}

// New constructs an Engine bound to transport, flushing at fps (clamped to
// [MinFPS, MaxFPS]; DefaultFPS if zero).
func New(transport Transport, fps int) *Engine {
	if fps <= 0 {
		fps = DefaultFPS
	}
	if fps < MinFPS {
		fps = MinFPS
	}
	if fps > MaxFPS {
		fps = MaxFPS
	}

	return &Engine{
		transport: transport,
		fps:       fps,
		stopChan:  make(chan struct{}),
		resetChan: make(chan struct{}, 1),
	}
}

// Initialize connects the transport and starts the flusher. Initialize is
// the engine's only fallible operation; the flusher itself never propagates
// transport errors once started.
func (e *Engine) Initialize() error {
	e.mu.Lock()
	if e.running {
		e.mu.Unlock()
		return nil
	}
	e.mu.Unlock()

	if err := e.transport.Connect(); err != nil {
		return fmt.Errorf("dmxengine: initialize: %w", err)
	}

	e.mu.Lock()
	e.running = true
	e.mu.Unlock()

	go e.flushLoop()
	return nil
}

// flushLoop snapshots the frame buffer and hands it to the transport every
// 1/fps seconds. It never busy-waits: the ticker is the only wait point, and
// a rate change takes effect on the very next tick via resetChan rather than
// waiting for the old ticker to naturally fire.
func (e *Engine) flushLoop() {
	e.mu.Lock()
	interval := time.Second / time.Duration(e.fps)
	e.mu.Unlock()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-e.stopChan:
			return
		case <-e.resetChan:
			e.mu.Lock()
			newInterval := time.Second / time.Duration(e.fps)
			e.mu.Unlock()
			ticker.Stop()
			ticker = time.NewTicker(newInterval)
		case <-ticker.C:
			e.flushOnce()
		}
	}
}

// flushOnce copies the frame under a short lock, then sends without holding
// it — readers (and writers) of the buffer never block for longer than one
// memcpy.
func (e *Engine) flushOnce() {
	e.mu.Lock()
	snapshot := e.frame
	e.mu.Unlock()

	if err := e.transport.Send(snapshot[:]); err != nil {
		log.Printf("dmxengine: transport send error: %v", err)
	}
}

// SetFPS changes the flush rate, taking effect on the next tick.
func (e *Engine) SetFPS(fps int) {
	if fps < MinFPS {
		fps = MinFPS
	}
	if fps > MaxFPS {
		fps = MaxFPS
	}

	e.mu.Lock()
	e.fps = fps
	running := e.running
	e.mu.Unlock()

	if running {
		select {
		case e.resetChan <- struct{}{}:
		default:
		}
	}
}

// SetChannel writes one channel, 1-based at this API (channel 1 is buffer
// index 0). Out-of-range channels are ignored. Values are clamped to
// [0,255] implicitly by the byte type.
func (e *Engine) SetChannel(channel int, value byte) {
	if channel < 1 || channel > UniverseSize {
		return
	}
	e.mu.Lock()
	e.frame[channel-1] = value
	e.mu.Unlock()
}

// SetChannels writes values starting at DMX channel start (1-based).
// Writes overflowing channel 512 are silently truncated.
func (e *Engine) SetChannels(start int, values []byte) {
	if start < 1 {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	for i, v := range values {
		idx := start - 1 + i
		if idx >= UniverseSize {
			break
		}
		e.frame[idx] = v
	}
}

// Blackout zeroes the entire frame buffer.
func (e *Engine) Blackout() {
	e.mu.Lock()
	e.frame = [UniverseSize]byte{}
	e.mu.Unlock()
}

// GetFrame returns a copy of the current frame buffer.
func (e *Engine) GetFrame() [UniverseSize]byte {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.frame
}

// Shutdown sends one blackout frame, gives it a moment to egress, stops the
// flusher, and disconnects the transport.
func (e *Engine) Shutdown() {
	e.mu.Lock()
	if !e.running {
		e.mu.Unlock()
		return
	}
	e.running = false
	e.mu.Unlock()

	e.Blackout()
	e.flushOnce()
	time.Sleep(20 * time.Millisecond)

	close(e.stopChan)

	if err := e.transport.Disconnect(); err != nil {
		log.Printf("dmxengine: disconnect error: %v", err)
	}
}
