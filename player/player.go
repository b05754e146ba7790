// Package player holds the playback UI state machine shared by the embed
// page script and the terminal preview. A Player subscribes to the events
// of an Engine when it is created and unsubscribes from all of them on
// Close.
//
// States:
//
//	Idle    -> Ready    on loadedmetadata (duration becomes known)
//	Ready   -> Playing  on play
//	Paused  -> Playing  on play
//	Playing -> Paused   on pause
//
// timeupdate refreshes the position and progress without changing state.
package player

import (
	"fmt"
	"math"
	"sync"
)

// Event names an engine notification. The names match the HTML media events.
type Event string

const (
	EventLoadedMetadata Event = "loadedmetadata"
	EventTimeUpdate     Event = "timeupdate"
	EventPlay           Event = "play"
	EventPause          Event = "pause"
)

// Events lists every event a Player subscribes to.
var Events = []Event{EventLoadedMetadata, EventTimeUpdate, EventPlay, EventPause}

// Engine is the audio element a Player drives. Times are in seconds;
// Duration reports NaN until metadata is loaded.
type Engine interface {
	Play() error
	Pause()
	Paused() bool
	Duration() float64
	CurrentTime() float64
	SetCurrentTime(t float64)
	SetVolume(v float64)
	// AddListener registers fn for ev and returns a function removing it.
	AddListener(ev Event, fn func()) (remove func())
}

// State is the playback state shown by the UI.
type State int

const (
	StateIdle State = iota
	StateReady
	StatePlaying
	StatePaused
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateReady:
		return "ready"
	case StatePlaying:
		return "playing"
	case StatePaused:
		return "paused"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Rect is the horizontal extent of the progress bar.
type Rect struct {
	Left  float64
	Width float64
}

// Snapshot is what the UI renders.
type Snapshot struct {
	State    State
	Current  string  // M:SS
	Duration string  // M:SS
	Progress float64 // percent, 0..100
	Volume   float64 // 0..1
}

// Player tracks playback state for one loaded source.
type Player struct {
	engine Engine

	mu       sync.Mutex
	state    State
	current  float64
	duration float64
	progress float64
	volume   float64
	removers []func()
	closed   bool
}

// New attaches a Player to e. Call Close to detach it.
func New(e Engine) *Player {
	p := &Player{
		engine:   e,
		duration: math.NaN(),
		volume:   1,
	}

	handlers := map[Event]func(){
		EventLoadedMetadata: p.onLoadedMetadata,
		EventTimeUpdate:     p.onTimeUpdate,
		EventPlay:           p.onPlay,
		EventPause:          p.onPause,
	}
	for _, ev := range Events {
		p.removers = append(p.removers, e.AddListener(ev, handlers[ev]))
	}

	return p
}

// Close removes every listener registered by New. It is safe to call more
// than once.
func (p *Player) Close() {
	p.mu.Lock()
	removers := p.removers
	p.removers = nil
	p.closed = true
	p.mu.Unlock()

	for _, remove := range removers {
		remove()
	}
}

// TogglePlay starts playback when paused and pauses it otherwise. A refused
// start is ignored and leaves the state untouched.
func (p *Player) TogglePlay() {
	if p.engine.Paused() {
		_ = p.engine.Play()
		return
	}
	p.engine.Pause()
}

// Seek moves playback to the fraction of the bar under pointerX, clamped to
// the bar. It does nothing while the duration is unknown.
func (p *Player) Seek(pointerX float64, bar Rect) {
	d := p.engine.Duration()
	if math.IsNaN(d) || math.IsInf(d, 0) || bar.Width <= 0 {
		return
	}

	x := math.Min(math.Max(0, pointerX-bar.Left), bar.Width)
	p.engine.SetCurrentTime(x / bar.Width * d)
}

// SetVolume clamps v to [0, 1] and applies it immediately.
func (p *Player) SetVolume(v float64) {
	if math.IsNaN(v) {
		return
	}
	v = math.Min(math.Max(0, v), 1)

	p.mu.Lock()
	p.volume = v
	p.mu.Unlock()

	p.engine.SetVolume(v)
}

// Snapshot returns the current display state.
func (p *Player) Snapshot() Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()

	return Snapshot{
		State:    p.state,
		Current:  FormatTime(p.current),
		Duration: FormatTime(p.duration),
		Progress: p.progress,
		Volume:   p.volume,
	}
}

func (p *Player) onLoadedMetadata() {
	d := p.engine.Duration()

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.duration = d
	if p.state == StateIdle {
		p.state = StateReady
	}
	v := p.volume
	p.mu.Unlock()

	// A new source starts at the engine default; carry the chosen level over.
	p.engine.SetVolume(v)
}

func (p *Player) onTimeUpdate() {
	cur, d := p.engine.CurrentTime(), p.engine.Duration()

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}

	p.current = cur
	p.progress = 0
	if pct := cur / d * 100; !math.IsNaN(pct) && !math.IsInf(pct, 0) {
		p.progress = math.Min(math.Max(0, pct), 100)
	}
}

func (p *Player) onPlay() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.closed {
		p.state = StatePlaying
	}
}

func (p *Player) onPause() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.closed && p.state == StatePlaying {
		p.state = StatePaused
	}
}
