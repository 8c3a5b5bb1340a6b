// Package sceneplayer implements the per-active-scene state machine: it
// owns the master clock, runs the 40Hz DMX sync loop, and coordinates the
// keyframe evaluator, recording, and blender with a video collaborator.
package sceneplayer

import (
	"fmt"
	"sync"
	"time"

	"github.com/flowshow/playback-engine/internal/mapping"
	"github.com/flowshow/playback-engine/internal/project"
	"github.com/flowshow/playback-engine/internal/services/blender"
	"github.com/flowshow/playback-engine/internal/services/keyframe"
	"github.com/flowshow/playback-engine/internal/services/pubsub"
	"github.com/flowshow/playback-engine/internal/services/recording"
	"github.com/flowshow/playback-engine/internal/video"
)

// State is one of the scene player's state machine states.
type State string

const (
	StateIdle    State = "idle"
	StateLoading State = "loading"
	StatePlaying State = "playing"
	StatePaused  State = "paused"
	StateStopped State = "stopped"
	StateError   State = "error"
)

// SyncFPS is the fixed rate of the DMX sync loop.
const SyncFPS = 40

// DMXSink receives the blended per-tick frame. *dmxengine.Engine
// satisfies this.
type DMXSink interface {
	SetChannels(start int, values []byte)
}

// Player drives synchronized playback of a single scene: video transport,
// DMX keyframe evaluation, an optional linked recording, and blending
// between the two, all paced by one monotonic master clock.
type Player struct {
	mu sync.Mutex

	proj  *project.Project
	scene project.Scene

	videoCollab video.Collaborator
	dmxSink     DMXSink
	bus         *pubsub.PubSub

	sequence   *project.DMXSequence
	link       blender.Link
	hasLink    bool
	recording  *recording.Recording

	loopOverride *bool

	state     State
	loopCount int

	startedAt   time.Time
	pausedAt    time.Time
	pausedAccum time.Duration

	durationMs int64
	cursor     *eventCursor

	running  bool
	stopChan chan struct{}
	doneChan chan struct{}
}

// New constructs a player for scene within proj, writing video transport
// calls to videoCollab and blended DMX frames to dmxSink. bus may be nil
// (events are simply not published).
func New(proj *project.Project, scene project.Scene, videoCollab video.Collaborator, dmxSink DMXSink, bus *pubsub.PubSub) *Player {
	return &Player{
		proj:        proj,
		scene:       scene,
		videoCollab: videoCollab,
		dmxSink:     dmxSink,
		bus:         bus,
		state:       StateIdle,
	}
}

// SetRecordingLink attaches a scene/recording link and its already-loaded
// recording (nil clears it). Call before Play; changing it mid-playback
// takes effect on the next sync tick.
func (p *Player) SetRecordingLink(link blender.Link, rec *recording.Recording) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.link = link
	p.hasLink = link.Enabled && rec != nil
	p.recording = rec
}

// SetLoopOverride overrides the scene's own declared Loop setting for
// subsequent plays, e.g. a scheduler-triggered fire that must not loop
// even if the scene was authored with loop: true. Call before Play.
func (p *Player) SetLoopOverride(loop bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.loopOverride = &loop
}

// Load resolves the scene's primary video element and mapping descriptor
// and hands them to the video collaborator. It does not start playback.
func (p *Player) Load() error {
	p.setState(StateLoading)

	if seq, ok := p.proj.Sequences[p.scene.LinkedLightingSequenceID]; ok {
		p.mu.Lock()
		p.sequence = &seq
		p.mu.Unlock()
	}

	el, ok := p.scene.PrimaryVideoElement(p.proj.Media)
	if !ok {
		p.setState(StateIdle)
		return nil
	}
	media, ok := p.proj.Media[el.MediaID]
	if !ok {
		p.setState(StateError)
		return fmt.Errorf("sceneplayer: scene %q references unknown media %q", p.scene.ID, el.MediaID)
	}

	resolvedMapping := mapping.Resolve(p.proj.Mapping, p.scene.Mapping)

	if p.videoCollab != nil {
		if err := p.videoCollab.Load(media.Path, resolvedMapping); err != nil {
			p.setState(StateError)
			return fmt.Errorf("sceneplayer: load video: %w", err)
		}
		p.videoCollab.SetOnEndOfFile(p.onVideoEndOfFile)
	}

	p.mu.Lock()
	p.durationMs = p.scene.DurationMs
	if p.durationMs <= 0 && p.videoCollab != nil {
		if sec, ok := p.videoCollab.DurationSec(); ok {
			p.durationMs = int64(sec * 1000)
		}
	}
	p.mu.Unlock()

	p.setState(StateIdle)
	return nil
}

// Play starts playback from the top, or resumes if currently paused.
func (p *Player) Play() {
	p.mu.Lock()
	state := p.state
	p.mu.Unlock()

	if state == StatePlaying {
		return
	}
	if state == StatePaused {
		p.Resume()
		return
	}

	p.mu.Lock()
	p.loopCount = 0
	p.startedAt = time.Now()
	p.pausedAccum = 0
	p.cursor = newEventCursor(p.marksLocked())
	p.running = true
	p.stopChan = make(chan struct{})
	p.doneChan = make(chan struct{})
	stopChan := p.stopChan
	doneChan := p.doneChan
	loop := p.scene.Loop
	if p.loopOverride != nil {
		loop = *p.loopOverride
	}
	p.mu.Unlock()

	if p.videoCollab != nil {
		_ = p.videoCollab.Play(loop)
	}

	p.setState(StatePlaying)
	go p.syncLoop(stopChan, doneChan)
}

// marksLocked builds the event marks for this play session. Caller must
// hold p.mu.
func (p *Player) marksLocked() []mark {
	if p.durationMs <= 0 {
		return nil
	}
	return []mark{{atMs: p.durationMs, fire: func() { p.handleDurationReached(true) }}}
}

// Pause freezes the master clock and pauses the video collaborator.
func (p *Player) Pause() {
	p.mu.Lock()
	if p.state != StatePlaying {
		p.mu.Unlock()
		return
	}
	p.pausedAt = time.Now()
	p.mu.Unlock()

	if p.videoCollab != nil {
		_ = p.videoCollab.Pause()
	}
	p.setState(StatePaused)
}

// Resume continues playback from the paused position.
func (p *Player) Resume() {
	p.mu.Lock()
	if p.state != StatePaused {
		p.mu.Unlock()
		return
	}
	p.pausedAccum += time.Since(p.pausedAt)
	p.mu.Unlock()

	if p.videoCollab != nil {
		_ = p.videoCollab.Resume()
	}
	p.setState(StatePlaying)
}

// Stop halts playback, blacks out nothing itself (the DMX Engine owns
// blackout), clears the master clock's pause offset (the next Play
// restarts the clock from zero), and blocks until the sync loop
// goroutine has fully exited.
func (p *Player) Stop() {
	p.doStop(true)
}

func (p *Player) doStop(wait bool) {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	p.running = false
	stopChan := p.stopChan
	doneChan := p.doneChan
	p.mu.Unlock()

	if stopChan != nil {
		close(stopChan)
	}

	if p.videoCollab != nil {
		_ = p.videoCollab.Stop()
	}

	p.mu.Lock()
	p.pausedAccum = 0
	p.mu.Unlock()

	p.setState(StateStopped)

	if wait && doneChan != nil {
		<-doneChan
	}
}

// Seek moves the master clock to positionMs and re-arms the event cursor
// so marks before the new position are treated as already fired and
// marks after it become eligible again.
func (p *Player) Seek(positionMs int64) {
	p.mu.Lock()
	p.startedAt = time.Now().Add(-time.Duration(positionMs) * time.Millisecond)
	p.pausedAccum = 0
	if p.state == StatePaused {
		p.pausedAt = time.Now()
	}
	if p.cursor != nil {
		p.cursor.rearm(positionMs)
	}
	p.mu.Unlock()

	if p.videoCollab != nil {
		_ = p.videoCollab.Seek(float64(positionMs) / 1000.0)
	}
}

// ElapsedMs returns the master clock's current position.
func (p *Player) ElapsedMs() int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.elapsedMsLocked()
}

func (p *Player) elapsedMsLocked() int64 {
	if p.startedAt.IsZero() {
		return 0
	}
	if p.state == StatePaused {
		return (p.pausedAt.Sub(p.startedAt) - p.pausedAccum).Milliseconds()
	}
	return (time.Since(p.startedAt) - p.pausedAccum).Milliseconds()
}

// State returns the player's current state.
func (p *Player) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// LoopCount returns how many times the scene has looped this playback.
func (p *Player) LoopCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.loopCount
}

func (p *Player) setState(s State) {
	p.mu.Lock()
	changed := p.state != s
	p.state = s
	p.mu.Unlock()

	if changed && p.bus != nil {
		p.bus.Publish(pubsub.TopicSceneState, p.scene.ID, s)
	}
}

// onVideoEndOfFile is the video collaborator's upward signal for
// scenes that have no explicit duration and instead ride the video's own
// natural length.
func (p *Player) onVideoEndOfFile() {
	p.mu.Lock()
	declared := p.scene.DurationMs > 0
	p.mu.Unlock()
	if !declared {
		p.handleDurationReached(false)
	}
}

// handleDurationReached runs when the scene's declared duration (or the
// video's own end-of-file) is reached. fromLoop is true when this fires
// from within the sync loop goroutine's own tick (via the event cursor),
// which must not block waiting for that same goroutine to exit.
func (p *Player) handleDurationReached(fromLoop bool) {
	p.mu.Lock()
	loop := p.scene.Loop
	if p.loopOverride != nil {
		loop = *p.loopOverride
	}
	p.mu.Unlock()

	if loop {
		p.mu.Lock()
		p.loopCount++
		count := p.loopCount
		p.startedAt = time.Now()
		p.pausedAccum = 0
		p.cursor = newEventCursor(p.marksLocked())
		p.mu.Unlock()

		if p.videoCollab != nil {
			_ = p.videoCollab.Seek(0)
		}
		if p.bus != nil {
			p.bus.Publish(pubsub.TopicSceneLoop, p.scene.ID, count)
		}
		return
	}

	p.doStop(!fromLoop)
	if p.bus != nil {
		p.bus.Publish(pubsub.TopicSceneComplete, p.scene.ID, nil)
	}
}

func (p *Player) syncLoop(stopChan, doneChan chan struct{}) {
	interval := time.Second / SyncFPS
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	defer close(doneChan)

	for {
		select {
		case <-stopChan:
			return
		case <-ticker.C:
			p.tick()
		}
	}
}

func (p *Player) tick() {
	p.mu.Lock()
	if p.state != StatePlaying {
		p.mu.Unlock()
		return
	}
	elapsed := p.elapsedMsLocked()
	sequence := p.sequence
	hasLink := p.hasLink
	link := p.link
	rec := p.recording
	cursor := p.cursor
	p.mu.Unlock()

	p.commitDMX(elapsed, sequence, hasLink, link, rec)

	if p.bus != nil {
		p.bus.Publish(pubsub.TopicScenePosition, p.scene.ID, elapsed)
	}

	if cursor != nil {
		cursor.advance(elapsed)
	}
}

func (p *Player) commitDMX(elapsedMs int64, sequence *project.DMXSequence, hasLink bool, link blender.Link, rec *recording.Recording) {
	if p.dmxSink == nil {
		return
	}

	mode := blender.ModeProjectOnly
	if hasLink {
		mode = link.Mode
	}

	var projectFrame, recordingFrame *[keyframe.UniverseSize]byte
	if sequence != nil {
		f := keyframe.Evaluate(*sequence, float64(elapsedMs)/1000.0)
		projectFrame = &f
	}
	if hasLink && rec != nil {
		at := elapsedMs + link.OffsetMs
		if channels := rec.ChannelsAt(at); channels != nil {
			var f [keyframe.UniverseSize]byte
			for i, v := range channels {
				if i >= len(f) {
					break
				}
				f[i] = clampChannel(v)
			}
			recordingFrame = &f
		}
	}

	out := blender.Blend(projectFrame, recordingFrame, mode)
	p.dmxSink.SetChannels(1, out[:])
}

func clampChannel(v int) byte {
	switch {
	case v < 0:
		return 0
	case v > 255:
		return 255
	default:
		return byte(v)
	}
}
