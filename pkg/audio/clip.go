// Package audio provides clip loading, live sample streams, and playback
// for the beat scheduler. It is the collaborator edge: the scheduler and
// tracker only ever see normalized mono float64 samples.
package audio

import (
	"fmt"
	"os"

	"github.com/go-audio/wav"
)

// Clip is a decoded, fixed-length mono recording.
type Clip struct {
	Samples    []float64 // normalized to [-1, 1]
	SampleRate int
}

// Duration returns the clip length in seconds.
func (c *Clip) Duration() float64 {
	if c.SampleRate == 0 {
		return 0
	}
	return float64(len(c.Samples)) / float64(c.SampleRate)
}

// LoadWAV decodes a WAV file into a mono clip. Multi-channel files are
// mixed down by averaging.
func LoadWAV(path string) (*Clip, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("audio: open %s: %w", path, err)
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("audio: decode %s: %w", path, err)
	}
	if buf.Format == nil || buf.Format.NumChannels == 0 {
		return nil, fmt.Errorf("audio: %s: missing format", path)
	}

	channels := buf.Format.NumChannels
	scale := float64(int64(1) << (dec.BitDepth - 1))
	frames := len(buf.Data) / channels

	samples := make([]float64, frames)
	for i := 0; i < frames; i++ {
		var sum float64
		for ch := 0; ch < channels; ch++ {
			sum += float64(buf.Data[i*channels+ch]) / scale
		}
		samples[i] = sum / float64(channels)
	}

	return &Clip{Samples: samples, SampleRate: buf.Format.SampleRate}, nil
}

// Resample converts the clip to the target rate by linear interpolation.
// Good enough for onset analysis; this is not a playback-quality
// resampler.
func (c *Clip) Resample(rate int) *Clip {
	if rate == c.SampleRate || len(c.Samples) == 0 {
		return c
	}
	ratio := float64(c.SampleRate) / float64(rate)
	n := int(float64(len(c.Samples)) / ratio)
	out := make([]float64, n)
	for i := range out {
		pos := float64(i) * ratio
		j := int(pos)
		if j+1 >= len(c.Samples) {
			out[i] = c.Samples[len(c.Samples)-1]
			continue
		}
		frac := pos - float64(j)
		out[i] = c.Samples[j]*(1-frac) + c.Samples[j+1]*frac
	}
	return &Clip{Samples: out, SampleRate: rate}
}
