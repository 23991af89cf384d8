// BPM - tempo monitor
//
// Runs the beat tracker over a WAV clip at real-time pace and prints
// each beat as it lands, with a tempo estimate every couple of seconds.
// Useful for tuning detection against a new track before pointing the
// agent at it.
package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/pflag"

	"github.com/teslashibe/go-groove/internal/config"
	"github.com/teslashibe/go-groove/internal/log"
	"github.com/teslashibe/go-groove/pkg/audio"
	"github.com/teslashibe/go-groove/pkg/beat"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		clipPath string
		startBPM float64
	)
	flags := pflag.NewFlagSet("bpm", pflag.ContinueOnError)
	flags.StringVar(&clipPath, "clip", "", "WAV file to track (required)")
	flags.Float64Var(&startBPM, "start-bpm", 120, "tempo seed before the tracker locks on")
	if err := flags.Parse(os.Args[1:]); err != nil {
		return err
	}
	if clipPath == "" {
		flags.Usage()
		return fmt.Errorf("--clip is required")
	}

	log.Init(config.LogLevel())

	clip, err := audio.LoadWAV(clipPath)
	if err != nil {
		return err
	}
	clip = clip.Resample(config.SampleRate())
	fmt.Printf("Tracking %s (%.1fs at %d Hz)\n", clipPath, clip.Duration(), clip.SampleRate)

	tracker := beat.NewTracker(beat.TrackerOptions{
		SampleRate: clip.SampleRate,
		StartBPM:   startBPM,
	})
	stream := audio.NewClipStream(clip)
	chunkSize := int(float64(clip.SampleRate) * config.DefaultChunkDuration)

	elapsed := 0.0
	chunks := 0
	for {
		chunk, err := stream.Read(chunkSize)
		if len(chunk) > 0 {
			if fired, kind := tracker.Process(chunk); fired {
				marker := "●"
				if kind == beat.Predicted {
					marker = "○"
				}
				fmt.Printf("%6.2fs  %s beat %-3d  period %.3fs\n",
					elapsed, marker, tracker.BeatCount(), tracker.BeatPeriod())
			}
			elapsed += config.DefaultChunkDuration
			chunks++
			if chunks%20 == 0 {
				if bpm := tracker.EstimateBPM(); bpm > 0 {
					fmt.Printf("%6.2fs  ~ %.1f BPM\n", elapsed, bpm)
				}
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return err
		}
	}

	tempo := tracker.Tempo()
	fmt.Printf("\nFinal: %.1f BPM, %d beats detected\n", tempo.BPM, tracker.BeatCount())
	return nil
}
