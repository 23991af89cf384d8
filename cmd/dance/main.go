// Dance - pre-analyzed groove routine
//
// Analyzes a WAV clip for tempo and beat positions, then performs a
// sectioned routine against the agent: four labeled blocks at rising
// intensity by default, or whatever a plan file describes. With --timed
// the moves land on the clip's beat times instead, which pairs with
// --play for a synchronized performance.
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
		timed        bool
		dryRun       bool
		play         bool
		balance      bool
		beatsPerMove int
	)

	flags := pflag.NewFlagSet("dance", pflag.ContinueOnError)
	flags.StringVar(&robotIP, "robot", robotIP, "agent IP address")
	flags.StringVar(&clipPath, "clip", "", "WAV file to analyze (required)")
	flags.StringVar(&planPath, "plan", "", "YAML routine plan (default: built-in four sections)")
	flags.StringVar(&historyPath, "history", historyPath, "sqlite run history path (empty disables)")
	flags.BoolVar(&timed, "timed", false, "dispatch moves on the clip's beat times instead of sectioned blocks")
	flags.BoolVar(&dryRun, "dry-run", false, "log commands instead of sending them")
	flags.BoolVar(&play, "play", false, "play the clip through the speakers during the run")
	flags.BoolVar(&balance, "balance", true, "correct accumulated turn drift")
	flags.IntVar(&beatsPerMove, "beats-per-move", 2, "beat stride between moves in --timed mode")
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
	log.Info("clip loaded", "path", clipPath, "duration_s", clip.Duration(), "sample_rate", clip.SampleRate)

	tempo, timeline := beat.AnalyzeClip(clip.Samples, clip.SampleRate)
	log.Info("analysis", "bpm", tempo.BPM, "beat_period_s", tempo.BeatPeriod, "beats", timeline.Len())

	plan := scheduler.DefaultOfflinePlan()
	if planPath != "" {
		if plan, err = scheduler.LoadPlan(planPath); err != nil {
			return err
		}
	}
	if timed && len(plan.Pattern) == 0 {
		plan.Pattern = scheduler.DefaultLivePlan(beatsPerMove).Pattern
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

	sched := scheduler.New(act, choreo.DefaultCatalog(), scheduler.Options{
		BeatsPerMove: beatsPerMove,
		AutoBalance:  balance,
	})
	sched.History = store

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

	var status scheduler.Status
	if timed {
		status = sched.RunTimed(ctx, timeline, tempo, plan)
	} else {
		status = sched.RunOffline(ctx, timeline, tempo, plan)
	}
	log.Info("run finished", "status", status.String())
	if status.Outcome == scheduler.Faulted {
		return status.Reason
	}
	return nil
}
