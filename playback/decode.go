package playback

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"pixelplay/upstream"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/mp3"
	"github.com/gopxl/beep/v2/wav"
)

// DefaultMaxFetch bounds Fetch when no upstream size limit is configured.
const DefaultMaxFetch = 256 << 20

// ErrTrackTooLarge is returned by Fetch when the body exceeds the limit.
var ErrTrackTooLarge = errors.New("track exceeds fetch limit")

// Opener fetches an upstream file by identifier.
type Opener interface {
	Open(ctx context.Context, id string) (*upstream.File, error)
}

// Track is an upstream file held in memory so it can be seeked.
type Track struct {
	ID          string
	ContentType string
	Data        []byte
}

// Fetch reads the file named by id into memory, failing past limit bytes.
func Fetch(ctx context.Context, opener Opener, id string, limit int64) (*Track, error) {
	if limit <= 0 {
		limit = DefaultMaxFetch
	}

	f, err := opener.Open(ctx, id)
	if err != nil {
		return nil, err
	}
	defer f.Body.Close()

	data, err := io.ReadAll(io.LimitReader(f.Body, limit+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read track %s: %w", id, err)
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("%w: more than %d bytes", ErrTrackTooLarge, limit)
	}

	return &Track{ID: id, ContentType: f.ContentType, Data: data}, nil
}

// IsWAV reports whether the track is RIFF/WAVE audio, by content type or
// by magic bytes.
func (t *Track) IsWAV() bool {
	ct := strings.ToLower(t.ContentType)
	if strings.Contains(ct, "wav") {
		return true
	}
	return len(t.Data) >= 12 && string(t.Data[0:4]) == "RIFF" && string(t.Data[8:12]) == "WAVE"
}

// Decode returns a seekable stream over the track. Anything that is not
// WAV is decoded as MP3.
func (t *Track) Decode() (beep.StreamSeekCloser, beep.Format, error) {
	if t.IsWAV() {
		s, format, err := wav.Decode(bytes.NewReader(t.Data))
		if err != nil {
			return nil, beep.Format{}, fmt.Errorf("failed to decode WAV %s: %w", t.ID, err)
		}
		return s, format, nil
	}

	// go-mp3 only reports a length when its reader can seek.
	s, format, err := mp3.Decode(seekCloser{bytes.NewReader(t.Data)})
	if err != nil {
		return nil, beep.Format{}, fmt.Errorf("failed to decode MP3 %s: %w", t.ID, err)
	}
	return s, format, nil
}

type seekCloser struct {
	*bytes.Reader
}

func (seekCloser) Close() error { return nil }
