// Package recording holds captured DMX frame sequences: the in-memory
// document shape, its .dmxr JSON encoding, and the time-lookup used both
// during capture and during playback.
package recording

import (
	"encoding/json"
	"time"
)

// UniverseSize is the number of channels in one DMX universe.
const UniverseSize = 512

// Frame is one timestamped sample of a universe's channel values.
// Frames need not be evenly spaced.
type Frame struct {
	TimestampMs int64 `json:"t"`
	Channels    []int `json:"d"`
}

// Recording is a captured DMX sequence, loadable from and savable to a
// .dmxr document. Unknown top-level fields in a loaded document are kept
// in Extra so a round trip through Save does not drop them.
type Recording struct {
	Name         string          `json:"name"`
	Version      string          `json:"version"`
	RecordedAt   string          `json:"recorded_at"`
	DurationMs   int64           `json:"duration_ms"`
	FPS          int             `json:"fps"`
	Universe     int             `json:"universe"`
	SourceIP     string          `json:"source_ip"`
	TrimStartMs  int64           `json:"trim_start_ms"`
	TrimEndMs    int64           `json:"trim_end_ms"`
	Frames       []Frame         `json:"frames"`
	Extra        map[string]any  `json:"-"`

	// FilePath is set once the recording has been saved or loaded.
	FilePath string `json:"-"`
}

// New creates an empty recording ready to receive frames via AddFrame.
func New(name string, universe int, fps int) *Recording {
	return &Recording{
		Name:       name,
		Version:    "1.0",
		RecordedAt: time.Now().UTC().Format("2006-01-02T15:04:05.000000") + "Z",
		FPS:        fps,
		Universe:   universe,
		Frames:     nil,
	}
}

// AddFrame appends a frame captured timestampMs after the start of
// recording and extends the recording's duration/trim-end to match. A
// trim-end that no longer equals the duration (set by hand) is kept.
func (r *Recording) AddFrame(timestampMs int64, channels []int) {
	r.Frames = append(r.Frames, Frame{TimestampMs: timestampMs, Channels: channels})
	prevDurationMs := r.DurationMs
	if timestampMs > r.DurationMs {
		r.DurationMs = timestampMs
	}
	if r.TrimEndMs == 0 || r.TrimEndMs == prevDurationMs {
		r.TrimEndMs = r.DurationMs
	}
}

// TrimmedDuration is the recording's duration considering trim points.
func (r *Recording) TrimmedDuration() int64 {
	return r.TrimEndMs - r.TrimStartMs
}

// FrameAt returns the latest frame whose timestamp is at or before
// timeMs, adjusted by the recording's trim-start offset. Returns false if
// the recording has no frame at or before that time.
func (r *Recording) FrameAt(timeMs int64) (Frame, bool) {
	adjusted := timeMs + r.TrimStartMs

	var result Frame
	found := false
	for _, f := range r.Frames {
		if f.TimestampMs <= adjusted {
			result = f
			found = true
		} else {
			break
		}
	}
	return result, found
}

// ChannelsAt returns the channel vector at timeMs, respecting trim. Past
// the trimmed duration it holds the last recorded frame. Returns nil if
// the recording has no frames at all.
func (r *Recording) ChannelsAt(timeMs int64) []int {
	if timeMs > r.TrimmedDuration() {
		if len(r.Frames) == 0 {
			return nil
		}
		return r.Frames[len(r.Frames)-1].Channels
	}

	if f, ok := r.FrameAt(timeMs); ok {
		return f.Channels
	}
	return nil
}

// dmxrDocument is the on-disk shape of a .dmxr file.
type dmxrDocument struct {
	Name        string  `json:"name"`
	Version     string  `json:"version"`
	RecordedAt  string  `json:"recorded_at"`
	DurationMs  int64   `json:"duration_ms"`
	FPS         int     `json:"fps"`
	Universe    int     `json:"universe"`
	SourceIP    string  `json:"source_ip"`
	TrimStartMs int64   `json:"trim_start_ms"`
	TrimEndMs   int64   `json:"trim_end_ms"`
	Frames      []Frame `json:"frames"`
}

// MarshalJSON writes the recording's .dmxr document, re-merging any
// unknown fields preserved from a prior Unmarshal.
func (r *Recording) MarshalJSON() ([]byte, error) {
	base, err := json.Marshal(dmxrDocument{
		Name:        r.Name,
		Version:     r.Version,
		RecordedAt:  r.RecordedAt,
		DurationMs:  r.DurationMs,
		FPS:         r.FPS,
		Universe:    r.Universe,
		SourceIP:    r.SourceIP,
		TrimStartMs: r.TrimStartMs,
		TrimEndMs:   r.TrimEndMs,
		Frames:      r.Frames,
	})
	if err != nil {
		return nil, err
	}
	if len(r.Extra) == 0 {
		return base, nil
	}

	merged := map[string]json.RawMessage{}
	if err := json.Unmarshal(base, &merged); err != nil {
		return nil, err
	}
	for k, v := range r.Extra {
		if _, known := merged[k]; known {
			continue
		}
		raw, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		merged[k] = raw
	}
	return json.Marshal(merged)
}

var knownDMXRFields = map[string]bool{
	"name": true, "version": true, "recorded_at": true, "duration_ms": true,
	"fps": true, "universe": true, "source_ip": true, "trim_start_ms": true,
	"trim_end_ms": true, "frames": true,
}

// UnmarshalJSON reads a .dmxr document, defaulting absent fields the way
// a hand-edited or older-version file would be tolerated, and stashing
// any field this version doesn't know about in Extra.
func (r *Recording) UnmarshalJSON(data []byte) error {
	var doc dmxrDocument
	doc.Version = "1.0"
	doc.FPS = 40
	if err := json.Unmarshal(data, &doc); err != nil {
		return err
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	extra := map[string]any{}
	for k, v := range raw {
		if knownDMXRFields[k] {
			continue
		}
		var val any
		if err := json.Unmarshal(v, &val); err != nil {
			continue
		}
		extra[k] = val
	}

	r.Name = doc.Name
	r.Version = doc.Version
	r.RecordedAt = doc.RecordedAt
	r.DurationMs = doc.DurationMs
	r.FPS = doc.FPS
	r.Universe = doc.Universe
	r.SourceIP = doc.SourceIP
	r.TrimStartMs = doc.TrimStartMs
	r.TrimEndMs = doc.TrimEndMs
	r.Frames = doc.Frames
	r.Extra = extra
	return nil
}
