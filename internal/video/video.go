// Package video declares the narrow interface the playback core needs
// from a video decoder. The decoder itself (hardware-accelerated
// playback, shader-based warping) is out of scope: the core only drives
// playback transport and consumes an end-of-file signal.
package video

import "github.com/flowshow/playback-engine/internal/mapping"

// Collaborator is the playback core's only view of a video output. An
// implementation owns the real decoder/renderer; the core never reaches
// past this interface into its internals.
type Collaborator interface {
	// Load prepares path for playback and applies the resolved mapping
	// descriptor (nil if no mapping applies). The descriptor's geometry
	// is opaque to the core; it is handed through verbatim.
	Load(path string, mapping *mapping.Descriptor) error

	Play(loop bool) error
	Pause() error
	Resume() error
	Stop() error

	// Seek moves playback to positionSec, best-effort.
	Seek(positionSec float64) error

	// DurationSec returns the asset's natural duration, if known. Used
	// only when a scene does not declare its own duration.
	DurationSec() (float64, bool)

	// SetOnEndOfFile registers the callback fired once when playback
	// reaches the end of the asset. Only one callback is kept; a later
	// call replaces the former.
	SetOnEndOfFile(func())
}
