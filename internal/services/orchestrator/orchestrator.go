// Package orchestrator owns the single active Scene Player, resolving a
// project's scenes, wiring in any linked recording, and fronting the
// scheduler and autoplay policy.
package orchestrator

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/flowshow/playback-engine/internal/project"
	"github.com/flowshow/playback-engine/internal/services/blender"
	"github.com/flowshow/playback-engine/internal/services/pubsub"
	"github.com/flowshow/playback-engine/internal/services/recording"
	"github.com/flowshow/playback-engine/internal/services/sceneplayer"
	"github.com/flowshow/playback-engine/internal/video"
)

// VideoFactory builds a fresh video collaborator for a Scene Player. The
// orchestrator owns no video implementation itself (an external
// collaborator's responsibility); it just asks for one per load.
type VideoFactory func() video.Collaborator

// Orchestrator owns at most one active Scene Player at a time. Swapping
// the active scene is synchronous: the old player is fully stopped and
// joined before the new one loads.
type Orchestrator struct {
	mu sync.Mutex

	dmxSink       sceneplayer.DMXSink
	bus           *pubsub.PubSub
	videoFactory  VideoFactory
	links         *blender.LinkManager
	catalog       *recording.Catalog
	recordingsDir string
	autoplay      bool

	proj   *project.Project
	active *sceneplayer.Player
}

// Option configures optional Orchestrator collaborators.
type Option func(*Orchestrator)

// WithRecordingLinks wires in the scene/recording link store and catalog
// so loaded scenes pick up any linked recording automatically. Without
// this option every scene plays its project sequence alone.
func WithRecordingLinks(links *blender.LinkManager, catalog *recording.Catalog, recordingsDir string) Option {
	return func(o *Orchestrator) {
		o.links = links
		o.catalog = catalog
		o.recordingsDir = recordingsDir
	}
}

// WithAutoplay makes the orchestrator start playback immediately after a
// show is loaded, matching the configured default loop policy.
func WithAutoplay(enabled bool) Option {
	return func(o *Orchestrator) { o.autoplay = enabled }
}

// New constructs an Orchestrator. dmxSink receives blended DMX frames for
// the active scene; bus (may be nil) receives scene lifecycle events;
// videoFactory builds a video collaborator per loaded scene.
func New(dmxSink sceneplayer.DMXSink, bus *pubsub.PubSub, videoFactory VideoFactory, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		dmxSink:      dmxSink,
		bus:          bus,
		videoFactory: videoFactory,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// LoadShow stops any running scene, resolves proj's scene to play
// (preferring sceneID, else the project's declared start scene, else the
// first scene), instantiates a Scene Player for it, and loads it without
// starting playback. If autoplay is enabled it then starts playback
// (looping according to the scene's own loop setting).
func (o *Orchestrator) LoadShow(proj *project.Project, sceneID string) error {
	o.mu.Lock()
	prevActive := o.active
	o.mu.Unlock()

	if prevActive != nil {
		prevActive.Stop()
	}

	scene, ok := proj.FindScene(sceneID)
	if !ok {
		return fmt.Errorf("orchestrator: project %q has no scene to play", proj.ID)
	}

	player, err := o.newPlayerForScene(proj, scene)
	if err != nil {
		return err
	}
	if err := player.Load(); err != nil {
		return fmt.Errorf("orchestrator: load scene %q: %w", scene.ID, err)
	}

	o.mu.Lock()
	o.proj = proj
	o.active = player
	autoplay := o.autoplay
	o.mu.Unlock()

	if autoplay {
		o.Play(scene.Loop)
	}
	return nil
}

// PlayScene switches the active show to a different scene within the
// current project, loading and then immediately playing it (non-looping,
// matching a manual scene switch rather than a fresh show load).
func (o *Orchestrator) PlayScene(ctx context.Context, sceneID string) error {
	o.mu.Lock()
	proj := o.proj
	o.mu.Unlock()
	if proj == nil {
		return fmt.Errorf("orchestrator: no show loaded")
	}

	if err := o.LoadShow(proj, sceneID); err != nil {
		return err
	}
	o.Play(false)
	return nil
}

func (o *Orchestrator) newPlayerForScene(proj *project.Project, scene project.Scene) (*sceneplayer.Player, error) {
	var collab video.Collaborator
	if o.videoFactory != nil {
		collab = o.videoFactory()
	}

	player := sceneplayer.New(proj, scene, collab, o.dmxSink, o.bus)

	if o.links == nil || o.catalog == nil {
		return player, nil
	}

	link, ok := o.links.Get(scene.ID)
	if !ok || !link.Enabled || link.RecordingName == "" {
		return player, nil
	}

	entries, err := o.catalog.FindByName(context.Background(), link.RecordingName)
	if err != nil {
		return nil, fmt.Errorf("orchestrator: look up recording %q: %w", link.RecordingName, err)
	}
	if len(entries) == 0 {
		return player, nil
	}

	path := entries[0].FilePath
	if !filepath.IsAbs(path) && o.recordingsDir != "" {
		path = filepath.Join(o.recordingsDir, path)
	}
	rec, err := recording.Load(path)
	if err != nil {
		return nil, fmt.Errorf("orchestrator: load recording %q: %w", link.RecordingName, err)
	}

	player.SetRecordingLink(link, rec)
	return player, nil
}

// Play starts (or resumes) playback of the active scene, overriding its
// own declared Loop setting with loop for this play session. A scheduler
// or trigger-initiated play passes loop=false so the scene stops at its
// natural end regardless of how it was authored.
func (o *Orchestrator) Play(loop bool) {
	o.withActive(func(p *sceneplayer.Player) {
		p.SetLoopOverride(loop)
		p.Play()
	})
}

// Pause pauses the active scene.
func (o *Orchestrator) Pause() {
	o.withActive(func(p *sceneplayer.Player) { p.Pause() })
}

// Resume resumes the active scene from a pause.
func (o *Orchestrator) Resume() {
	o.withActive(func(p *sceneplayer.Player) { p.Resume() })
}

// Stop halts the active scene.
func (o *Orchestrator) Stop() {
	o.withActive(func(p *sceneplayer.Player) { p.Stop() })
}

// Seek moves the active scene's master clock to positionMs.
func (o *Orchestrator) Seek(positionMs int64) {
	o.withActive(func(p *sceneplayer.Player) { p.Seek(positionMs) })
}

// OnSchedulerTrigger is wired as the scheduler's trigger callback:
// scheduled and continuous-mode fires play the active show without
// looping.
func (o *Orchestrator) OnSchedulerTrigger() {
	o.Play(false)
}

// ActiveState returns the active Scene Player's state, or "" if no show
// is loaded.
func (o *Orchestrator) ActiveState() sceneplayer.State {
	o.mu.Lock()
	p := o.active
	o.mu.Unlock()
	if p == nil {
		return ""
	}
	return p.State()
}

func (o *Orchestrator) withActive(fn func(*sceneplayer.Player)) {
	o.mu.Lock()
	p := o.active
	o.mu.Unlock()
	if p != nil {
		fn(p)
	}
}
