package playback

import (
	"errors"
	"math"
	"sync"
	"time"

	"pixelplay/player"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/effects"
)

// ErrNoSource is returned by Play before a stream has been loaded.
var ErrNoSource = errors.New("no source loaded")

const defaultTick = 250 * time.Millisecond

// Engine plays one beep stream through a Sink and reports progress with
// the same events an HTML audio element dispatches. It implements
// player.Engine.
type Engine struct {
	sink Sink
	tick time.Duration

	mu        sync.Mutex
	stream    beep.StreamSeekCloser
	format    beep.Format
	ctrl      *beep.Ctrl
	volume    *effects.Volume
	listeners map[player.Event]map[int]func()
	nextID    int
	stopTick  chan struct{}
	closed    bool
}

var _ player.Engine = (*Engine)(nil)

// New creates an Engine writing to sink. tick sets the timeupdate period;
// zero selects 250ms.
func New(sink Sink, tick time.Duration) *Engine {
	if tick <= 0 {
		tick = defaultTick
	}
	return &Engine{
		sink:      sink,
		tick:      tick,
		listeners: make(map[player.Event]map[int]func()),
	}
}

// Load replaces the current source, paused at the start, and dispatches
// loadedmetadata. The engine takes ownership of s.
func (e *Engine) Load(s beep.StreamSeekCloser, format beep.Format) {
	e.mu.Lock()
	e.stopTickerLocked()
	old := e.stream

	e.stream = s
	e.format = format
	e.volume = &effects.Volume{Streamer: &tail{s: s, onEnd: e.ended}, Base: 2}
	e.ctrl = &beep.Ctrl{Streamer: e.volume, Paused: true}
	ctrl := e.ctrl
	e.mu.Unlock()

	e.sink.Lock()
	e.sink.Clear()
	e.sink.Unlock()
	if old != nil {
		old.Close()
	}
	e.sink.Play(ctrl)

	e.emit(player.EventLoadedMetadata)
}

// Play resumes playback, rewinding first when the stream has ended.
func (e *Engine) Play() error {
	e.mu.Lock()
	if e.closed || e.ctrl == nil {
		e.mu.Unlock()
		return ErrNoSource
	}

	e.sink.Lock()
	if !e.ctrl.Paused {
		e.sink.Unlock()
		e.mu.Unlock()
		return nil
	}
	if e.stream.Len() > 0 && e.stream.Position() >= e.stream.Len() {
		e.stream.Seek(0)
	}
	e.ctrl.Paused = false
	e.sink.Unlock()

	e.startTickerLocked()
	e.mu.Unlock()

	e.emit(player.EventPlay)
	return nil
}

// Pause halts playback. Pausing a paused engine dispatches nothing.
func (e *Engine) Pause() {
	e.mu.Lock()
	if e.ctrl == nil {
		e.mu.Unlock()
		return
	}

	e.sink.Lock()
	wasPlaying := !e.ctrl.Paused
	e.ctrl.Paused = true
	e.sink.Unlock()

	e.stopTickerLocked()
	e.mu.Unlock()

	if wasPlaying {
		e.emit(player.EventPause)
	}
}

// Paused reports whether output is halted. With no source it is true.
func (e *Engine) Paused() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.ctrl == nil {
		return true
	}

	e.sink.Lock()
	defer e.sink.Unlock()
	return e.ctrl.Paused
}

// Duration is the stream length in seconds, NaN before Load and +Inf when
// the stream cannot report its length.
func (e *Engine) Duration() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.stream == nil {
		return math.NaN()
	}
	n := e.stream.Len()
	if n < 0 {
		return math.Inf(1)
	}
	return e.format.SampleRate.D(n).Seconds()
}

// CurrentTime is the playback position in seconds.
func (e *Engine) CurrentTime() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.stream == nil {
		return 0
	}

	e.sink.Lock()
	pos := e.stream.Position()
	e.sink.Unlock()
	return e.format.SampleRate.D(pos).Seconds()
}

// SetCurrentTime seeks to t seconds, clamped to the stream, and dispatches
// timeupdate.
func (e *Engine) SetCurrentTime(t float64) {
	e.mu.Lock()
	if e.stream == nil || math.IsNaN(t) {
		e.mu.Unlock()
		return
	}

	pos := e.format.SampleRate.N(time.Duration(t * float64(time.Second)))
	if n := e.stream.Len(); n >= 0 && pos > n {
		pos = n
	}
	if pos < 0 {
		pos = 0
	}

	e.sink.Lock()
	e.stream.Seek(pos)
	e.sink.Unlock()
	e.mu.Unlock()

	e.emit(player.EventTimeUpdate)
}

// SetVolume sets linear gain in [0, 1]. It lasts until the next Load.
func (e *Engine) SetVolume(v float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.volume == nil {
		return
	}

	v = math.Min(math.Max(0, v), 1)
	e.sink.Lock()
	e.volume.Silent = v == 0
	if v > 0 {
		e.volume.Volume = math.Log2(v)
	}
	e.sink.Unlock()
}

// AddListener registers fn for ev. The returned function removes it.
func (e *Engine) AddListener(ev player.Event, fn func()) func() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.listeners[ev] == nil {
		e.listeners[ev] = make(map[int]func())
	}
	id := e.nextID
	e.nextID++
	e.listeners[ev][id] = fn

	return func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		delete(e.listeners[ev], id)
	}
}

// Listeners reports how many callbacks are registered across all events.
func (e *Engine) Listeners() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	n := 0
	for _, m := range e.listeners {
		n += len(m)
	}
	return n
}

// Close stops output and releases the stream.
func (e *Engine) Close() error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil
	}
	e.closed = true
	e.stopTickerLocked()
	s := e.stream
	e.mu.Unlock()

	e.sink.Lock()
	e.sink.Clear()
	e.sink.Unlock()

	if s != nil {
		return s.Close()
	}
	return nil
}

// ended runs on its own goroutine once the stream is drained.
func (e *Engine) ended() {
	e.emit(player.EventTimeUpdate)
	e.Pause()
}

// emit calls listeners without holding the engine lock so they may call
// back into the engine.
func (e *Engine) emit(ev player.Event) {
	e.mu.Lock()
	fns := make([]func(), 0, len(e.listeners[ev]))
	for _, fn := range e.listeners[ev] {
		fns = append(fns, fn)
	}
	e.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
}

func (e *Engine) startTickerLocked() {
	if e.stopTick != nil {
		return
	}
	stop := make(chan struct{})
	e.stopTick = stop

	go func() {
		ticker := time.NewTicker(e.tick)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				e.emit(player.EventTimeUpdate)
			case <-stop:
				return
			}
		}
	}()
}

func (e *Engine) stopTickerLocked() {
	if e.stopTick != nil {
		close(e.stopTick)
		e.stopTick = nil
	}
}

// tail pads a drained stream with silence so the sink keeps it, and reports
// the end once per drain.
type tail struct {
	s     beep.Streamer
	onEnd func()
	fired bool
}

func (t *tail) Stream(samples [][2]float64) (int, bool) {
	n, ok := t.s.Stream(samples)
	if !ok {
		n = 0
	}
	for i := n; i < len(samples); i++ {
		samples[i] = [2]float64{}
	}

	switch {
	case n < len(samples) && !t.fired:
		t.fired = true
		// The sink lock is held here; the handler takes it again.
		go t.onEnd()
	case n == len(samples):
		t.fired = false
	}
	return len(samples), true
}

func (t *tail) Err() error {
	return t.s.Err()
}
