package playback

import (
	"fmt"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/speaker"
)

// Sink is the audio output an Engine feeds. Lock must be held while
// mutating anything the sink is currently streaming.
type Sink interface {
	Play(s beep.Streamer)
	Lock()
	Unlock()
	Clear()
	Close()
}

type speakerSink struct{}

// NewSpeaker initializes the system speaker at the given sample rate.
// The speaker is process-global; only one may be open at a time.
func NewSpeaker(sampleRate beep.SampleRate) (Sink, error) {
	if err := speaker.Init(sampleRate, sampleRate.N(100*time.Millisecond)); err != nil {
		return nil, fmt.Errorf("failed to initialize speaker: %w", err)
	}
	return speakerSink{}, nil
}

func (speakerSink) Play(s beep.Streamer) { speaker.Play(s) }
func (speakerSink) Lock()                { speaker.Lock() }
func (speakerSink) Unlock()              { speaker.Unlock() }
func (speakerSink) Clear()               { speaker.Clear() }
func (speakerSink) Close()               { speaker.Close() }
