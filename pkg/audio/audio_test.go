package audio

import (
	"errors"
	"io"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// writeTestWAV writes a 16-bit PCM file with a 440Hz tone.
func writeTestWAV(t *testing.T, path string, rate, channels int, seconds float64) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	enc := wav.NewEncoder(f, rate, 16, channels, 1)
	frames := int(float64(rate) * seconds)
	data := make([]int, frames*channels)
	for i := 0; i < frames; i++ {
		v := int(0.5 * 32767 * math.Sin(2*math.Pi*440*float64(i)/float64(rate)))
		for ch := 0; ch < channels; ch++ {
			data[i*channels+ch] = v
		}
	}
	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: channels, SampleRate: rate},
		Data:           data,
		SourceBitDepth: 16,
	}
	if err := enc.Write(buf); err != nil {
		t.Fatal(err)
	}
	if err := enc.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestLoadWAV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tone.wav")
	writeTestWAV(t, path, 22050, 1, 0.5)

	clip, err := LoadWAV(path)
	if err != nil {
		t.Fatal(err)
	}
	if clip.SampleRate != 22050 {
		t.Errorf("sample rate: got %d, want 22050", clip.SampleRate)
	}
	if math.Abs(clip.Duration()-0.5) > 0.01 {
		t.Errorf("duration: got %v, want ~0.5", clip.Duration())
	}
	var peak float64
	for _, s := range clip.Samples {
		if a := math.Abs(s); a > peak {
			peak = a
		}
		if math.Abs(s) > 1 {
			t.Fatalf("sample %v outside [-1, 1]", s)
		}
	}
	if peak < 0.4 || peak > 0.6 {
		t.Errorf("peak: got %v, want ~0.5", peak)
	}
}

func TestLoadWAV_StereoMixdown(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stereo.wav")
	writeTestWAV(t, path, 22050, 2, 0.2)

	clip, err := LoadWAV(path)
	if err != nil {
		t.Fatal(err)
	}
	// Identical channels average to the mono signal.
	wantFrames := int(22050 * 0.2)
	if math.Abs(float64(len(clip.Samples)-wantFrames)) > 2 {
		t.Errorf("frames: got %d, want ~%d", len(clip.Samples), wantFrames)
	}
}

func TestLoadWAV_MissingFile(t *testing.T) {
	if _, err := LoadWAV(filepath.Join(t.TempDir(), "nope.wav")); err == nil {
		t.Error("missing file accepted")
	}
}

func TestResample(t *testing.T) {
	clip := &Clip{SampleRate: 44100, Samples: make([]float64, 44100)}
	for i := range clip.Samples {
		clip.Samples[i] = math.Sin(2 * math.Pi * 100 * float64(i) / 44100)
	}

	down := clip.Resample(22050)
	if down.SampleRate != 22050 {
		t.Errorf("rate: got %d, want 22050", down.SampleRate)
	}
	if math.Abs(down.Duration()-clip.Duration()) > 0.01 {
		t.Errorf("duration changed: %v -> %v", clip.Duration(), down.Duration())
	}
	for _, s := range down.Samples {
		if math.Abs(s) > 1.0001 {
			t.Fatalf("sample %v outside range after resample", s)
		}
	}
}

func TestResample_SameRateIsIdentity(t *testing.T) {
	clip := &Clip{SampleRate: 22050, Samples: []float64{0.1, 0.2, 0.3}}
	if got := clip.Resample(22050); got != clip {
		t.Error("same-rate resample should return the clip unchanged")
	}
}

func TestClipStream_PacesRealTime(t *testing.T) {
	const rate = 8000
	clip := &Clip{SampleRate: rate, Samples: make([]float64, rate/5)} // 200ms
	stream := NewClipStream(clip)

	start := time.Now()
	var total int
	for {
		chunk, err := stream.Read(rate / 10) // 100ms chunks
		total += len(chunk)
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			t.Fatal(err)
		}
	}
	elapsed := time.Since(start)

	if total != len(clip.Samples) {
		t.Errorf("samples: got %d, want %d", total, len(clip.Samples))
	}
	if elapsed < 150*time.Millisecond {
		t.Errorf("replay took %v, want at least ~200ms of pacing", elapsed)
	}
}

func TestClipStream_EOF(t *testing.T) {
	stream := NewClipStream(&Clip{SampleRate: 8000, Samples: []float64{0.1}})
	if _, err := stream.Read(4); err != nil {
		t.Fatalf("first read: %v", err)
	}
	if _, err := stream.Read(4); !errors.Is(err, io.EOF) {
		t.Errorf("got %v, want io.EOF", err)
	}
}
