// Groove - live beat-reactive performance
//
// Feeds an audio stream through the beat tracker and dispatches a move
// on every second beat while the agent keeps up. The stream is a WAV
// clip replayed at real-time pace, standing in for a microphone until
// one is wired up. With --port a monitoring server exposes run status,
// history, and a websocket beat feed.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/teslashibe/go-groove/internal/config"
	"github.com/teslashibe/go-groove/internal/history"
	"github.com/teslashibe/go-groove/internal/log"
	"github.com/teslashibe/go-groove/pkg/actuator"
	"github.com/teslashibe/go-groove/pkg/audio"
	"github.com/teslashibe/go-groove/pkg/beat"
	"github.com/teslashibe/go-groove/pkg/choreo"
	"github.com/teslashibe/go-groove/pkg/scheduler"
	"github.com/teslashibe/go-groove/pkg/web"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		robotIP      = config.RobotIP("192.168.68.80")
		clipPath     string
		planPath     string
		historyPath  = config.HistoryPath()
		port         string
		startBPM     float64
		beatsPerMove int
		dryRun       bool
		play         bool
		balance      bool
	)

	flags := pflag.NewFlagSet("groove", pflag.ContinueOnError)
	flags.StringVar(&robotIP, "robot", robotIP, "agent IP address")
	flags.StringVar(&clipPath, "clip", "", "WAV file replayed as the live input (required)")
	flags.StringVar(&planPath, "plan", "", "YAML routine plan (default: built-in live pattern)")
	flags.StringVar(&historyPath, "history", historyPath, "sqlite run history path (empty disables)")
	flags.StringVar(&port, "port", "", "monitoring server port (empty disables)")
	flags.Float64Var(&startBPM, "start-bpm", 120, "tempo seed before the tracker locks on")
	flags.IntVar(&beatsPerMove, "beats-per-move", 2, "beat stride between dispatched moves")
	flags.BoolVar(&dryRun, "dry-run", false, "log commands instead of sending them")
	flags.BoolVar(&play, "play", false, "play the clip through the speakers during the run")
	flags.BoolVar(&balance, "balance", true, "correct accumulated turn drift")
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
	log.Info("live input", "path", clipPath, "duration_s", clip.Duration(), "sample_rate", clip.SampleRate)

	plan := scheduler.DefaultLivePlan(beatsPerMove)
	if planPath != "" {
		if plan, err = scheduler.LoadPlan(planPath); err != nil {
			return err
		}
	}

	var act actuator.Actuator
	if dryRun {
		d := actuator.NewDryRun()
		d.Realtime = true
		act = d
	} else {
		act = actuator.NewHTTPActuator(config.RobotAPIURL(robotIP))
	}

	var store *history.Store
	if historyPath != "" {
		if store, err = history.Open(historyPath); err != nil {
			return err
		}
		defer store.Close()
	}

	catalog := choreo.DefaultCatalog()
	sched := scheduler.New(act, catalog, scheduler.Options{
		BeatsPerMove: beatsPerMove,
		AutoBalance:  balance,
	})
	sched.History = store

	if port != "" {
		server := web.NewServer(port, func() web.Snapshot {
			return web.Snapshot{State: string(sched.State()), RunID: sched.RunID()}
		}, store, catalog.Names())
		server.StartAsync()
		defer server.Shutdown()
		sched.Events = server.Feed()
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if play {
		player, err := audio.NewPlayer(clip)
		if err != nil {
			return fmt.Errorf("audio playback: %w", err)
		}
		player.Play()
		defer player.Stop()
	}

	tracker := beat.NewTracker(beat.TrackerOptions{
		SampleRate: clip.SampleRate,
		StartBPM:   startBPM,
	})
	status := sched.RunLive(ctx, audio.NewClipStream(clip), tracker, plan)
	log.Info("run finished", "status", status.String(), "beats", tracker.BeatCount())
	if status.Outcome == scheduler.Faulted {
		return status.Reason
	}
	return nil
}
