// Package keyframe evaluates a project's DMX sequences at a point in time.
// Evaluate is a pure, deterministic function: the same sequence and time
// always produce the same 512-channel output.
package keyframe

import (
	"math"
	"sort"

	"github.com/flowshow/playback-engine/internal/project"
)

// UniverseSize is the number of channels in one DMX universe.
const UniverseSize = 512

// Evaluate interpolates sequence at tSeconds and returns a 512-channel
// vector aggregated across all of the sequence's fixtures by
// highest-takes-precedence.
func Evaluate(seq project.DMXSequence, tSeconds float64) [UniverseSize]byte {
	var out [UniverseSize]byte

	speed := seq.Speed
	if speed == 0 {
		speed = 1.0
	}
	t := tSeconds * speed

	if seq.Loop && seq.DurationSec > 0 && t > seq.DurationSec {
		t = math.Mod(t, seq.DurationSec)
	}

	groups := groupByFixture(seq.Keyframes)
	for _, kfs := range groups {
		fixtureOut := evaluateFixture(kfs, t, seq.Interpolation)
		for i, v := range fixtureOut {
			if v > out[i] {
				out[i] = v
			}
		}
	}

	return out
}

func groupByFixture(keyframes []project.Keyframe) map[string][]project.Keyframe {
	groups := make(map[string][]project.Keyframe)
	for _, kf := range keyframes {
		groups[kf.FixtureID] = append(groups[kf.FixtureID], kf)
	}
	for fixture, kfs := range groups {
		sorted := append([]project.Keyframe(nil), kfs...)
		sort.Slice(sorted, func(i, j int) bool {
			return sorted[i].TimeSeconds < sorted[j].TimeSeconds
		})
		groups[fixture] = sorted
	}
	return groups
}

// evaluateFixture interpolates one fixture's keyframes at t.
func evaluateFixture(kfs []project.Keyframe, t float64, interp project.Interpolation) [UniverseSize]byte {
	var out [UniverseSize]byte
	if len(kfs) == 0 {
		return out
	}

	if t <= kfs[0].TimeSeconds {
		writeValues(&out, kfs[0].Values)
		return out
	}
	last := kfs[len(kfs)-1]
	if t >= last.TimeSeconds {
		writeValues(&out, last.Values)
		return out
	}

	var prev, next project.Keyframe
	for i := 0; i < len(kfs)-1; i++ {
		if kfs[i].TimeSeconds <= t && t < kfs[i+1].TimeSeconds {
			prev, next = kfs[i], kfs[i+1]
			break
		}
	}

	if prev.TimeSeconds == next.TimeSeconds {
		writeValues(&out, prev.Values)
		return out
	}

	p := (t - prev.TimeSeconds) / (next.TimeSeconds - prev.TimeSeconds)
	p = clampProgress(p)
	p = applyEasing(p, interp)

	n := len(prev.Values)
	if len(next.Values) > n {
		n = len(next.Values)
	}
	if n > UniverseSize {
		n = UniverseSize
	}

	for i := 0; i < n; i++ {
		pv := valueAt(prev.Values, i)
		nv := valueAt(next.Values, i)
		interpolated := float64(pv) + (float64(nv)-float64(pv))*p
		out[i] = clampChannel(math.Round(interpolated))
	}

	return out
}

func valueAt(values []byte, i int) byte {
	if i < 0 || i >= len(values) {
		return 0
	}
	return values[i]
}

func writeValues(out *[UniverseSize]byte, values []byte) {
	n := len(values)
	if n > UniverseSize {
		n = UniverseSize
	}
	copy(out[:n], values[:n])
}

func clampProgress(p float64) float64 {
	if p < 0 {
		return 0
	}
	if p > 1 {
		return 1
	}
	return p
}

func clampChannel(v float64) byte {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return byte(v)
}

// applyEasing applies the four curves this sequence's interpolation field
// can name. Unknown/empty values fall back to linear.
func applyEasing(p float64, interp project.Interpolation) float64 {
	switch interp {
	case project.InterpolationEaseIn:
		return p * p
	case project.InterpolationEaseOut:
		return 1 - (1-p)*(1-p)
	case project.InterpolationEaseInOut:
		if p < 0.5 {
			return 2 * p * p
		}
		d := -2*p + 2
		return 1 - (d*d)/2
	default:
		return p
	}
}
