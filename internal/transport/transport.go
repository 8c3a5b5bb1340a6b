// Package transport implements the DMX transport variants: Art-Net UDP,
// sACN/E1.31 multicast UDP, and serial (ENTTEC Open / ENTTEC Pro / DMXKing).
package transport

import "errors"

// ErrTransportOpen is returned by Connect when the underlying OS I/O
// resource (socket, serial port) could not be opened.
var ErrTransportOpen = errors.New("transport: failed to open")

// Transport is the contract shared by every DMX output variant: Art-Net,
// sACN, and the two serial framings. Send must not block the caller for
// longer than the underlying medium's own write timeout; a transport that
// is not connected drops the frame rather than blocking or erroring.
type Transport interface {
	// Connect opens the underlying resource. Returns ErrTransportOpen
	// (wrapped with the underlying cause) on failure.
	Connect() error
	// Disconnect flushes one all-zero (blackout) frame, then releases the
	// underlying resource. Safe to call on an already-disconnected
	// transport.
	Disconnect() error
	// Send transmits a 512-byte DMX frame. A frame shorter than 512 bytes
	// is zero-padded; longer is truncated. Send on a disconnected
	// transport is a silent no-op.
	Send(frame []byte) error
	// IsConnected reports whether Connect has succeeded and Disconnect has
	// not since been called.
	IsConnected() bool
}

// DMXDataLength is the number of channels in one DMX universe.
const DMXDataLength = 512

// normalizeFrame returns a 512-byte copy of frame, zero-padded or truncated
// as needed so every transport sends a fixed-size payload regardless of
// what the caller handed it.
func normalizeFrame(frame []byte) [DMXDataLength]byte {
	var out [DMXDataLength]byte
	n := len(frame)
	if n > DMXDataLength {
		n = DMXDataLength
	}
	copy(out[:n], frame[:n])
	return out
}
