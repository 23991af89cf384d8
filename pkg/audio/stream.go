package audio

import (
	"io"
	"time"
)

// Stream is a live source of mono samples. Read blocks until n samples
// are available (or the source ends) and returns them; io.EOF signals a
// finished source.
type Stream interface {
	Read(n int) ([]float64, error)
	SampleRate() int
}

// ClipStream replays a clip as a real-time stream: each Read returns the
// next n samples no sooner than their wall-clock position in the clip.
// It stands in for a microphone in tests and simulated runs.
type ClipStream struct {
	clip  *Clip
	pos   int
	start time.Time
}

// NewClipStream creates a real-time stream over a clip.
func NewClipStream(clip *Clip) *ClipStream {
	return &ClipStream{clip: clip}
}

// SampleRate returns the clip's sample rate.
func (s *ClipStream) SampleRate() int { return s.clip.SampleRate }

// Read returns the next n samples, pacing to real time.
func (s *ClipStream) Read(n int) ([]float64, error) {
	if s.pos >= len(s.clip.Samples) {
		return nil, io.EOF
	}
	if s.start.IsZero() {
		s.start = time.Now()
	}

	end := s.pos + n
	if end > len(s.clip.Samples) {
		end = len(s.clip.Samples)
	}
	chunk := s.clip.Samples[s.pos:end]
	s.pos = end

	// Pace: do not hand out samples ahead of their clip position.
	due := s.start.Add(time.Duration(float64(s.pos) / float64(s.clip.SampleRate) * float64(time.Second)))
	if wait := time.Until(due); wait > 0 {
		time.Sleep(wait)
	}
	return chunk, nil
}
