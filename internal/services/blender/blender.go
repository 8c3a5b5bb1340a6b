// Package blender combines a project sequence's DMX output with a linked
// recording's DMX output per a scene-recording link's mode. Blend is a
// pure function: either operand may be nil (treated as all-zero).
package blender

// Mode selects how a project-evaluated frame and a recording frame combine.
type Mode string

const (
	ModeProjectOnly       Mode = "project_only"
	ModeRecordingOnly     Mode = "recording_only"
	ModeRecordingPriority Mode = "recording_priority"
	ModeBlend             Mode = "blend"
)

// UniverseSize is the number of channels in one DMX universe.
const UniverseSize = 512

// Blend combines project and recording (either may be nil) per mode and
// always returns exactly 512 bytes.
func Blend(project, recording *[UniverseSize]byte, mode Mode) [UniverseSize]byte {
	var out [UniverseSize]byte
	var p, r [UniverseSize]byte
	if project != nil {
		p = *project
	}
	if recording != nil {
		r = *recording
	}

	switch mode {
	case ModeRecordingOnly:
		return r
	case ModeRecordingPriority:
		for i := range out {
			if r[i] > 0 {
				out[i] = r[i]
			} else {
				out[i] = p[i]
			}
		}
		return out
	case ModeBlend:
		for i := range out {
			out[i] = htp(p[i], r[i])
		}
		return out
	case ModeProjectOnly:
		fallthrough
	default:
		return p
	}
}

func htp(a, b byte) byte {
	if a > b {
		return a
	}
	return b
}
