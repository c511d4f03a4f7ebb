package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"gonum.org/v1/plot/vg"

	"github.com/RyanBlaney/sonido-follow/audio"
	"github.com/RyanBlaney/sonido-follow/engine"
	"github.com/RyanBlaney/sonido-follow/report"
	"github.com/RyanBlaney/sonido-follow/score"
)

const simulationBlockSize = 1024

var (
	followPlot       string
	followChromaPlot string
	followRealtime   bool
	followQuiet      bool
)

func init() {
	followCmd.Flags().StringVar(&followPlot, "plot", "", "write an alignment PNG to this path")
	followCmd.Flags().StringVar(&followChromaPlot, "chroma-plot", "", "write a chromagram PNG to this path")
	followCmd.Flags().BoolVar(&followRealtime, "realtime", false, "play the file at its real-time rate")
	followCmd.Flags().BoolVarP(&followQuiet, "quiet", "q", false, "only print the summary")
	rootCmd.AddCommand(followCmd)
}

var followCmd = &cobra.Command{
	Use:   "follow <audio> <score>",
	Short: "Follows a recording against a score",
	Long: `Streams an audio file through the score follower as if it were live input
and prints the aligned timeline with every hit and miss. WAV files are read
natively; other formats need ffmpeg. Scores may be MIDI or JSON.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()
		return follow(ctx, args[0], args[1])
	},
}

func follow(ctx context.Context, audioPath, scorePath string) error {
	decoder := audio.NewDecoder(cfg.Decoder)
	if !strings.EqualFold(filepath.Ext(audioPath), ".wav") {
		if err := decoder.Available(); err != nil {
			return fmt.Errorf("%s needs ffmpeg: %w", audioPath, err)
		}
	}

	clip, err := audio.Load(ctx, audioPath, cfg.Audio.SampleRate, decoder)
	if err != nil {
		return fmt.Errorf("failed to load audio: %w", err)
	}
	s, err := score.Load(ctx, scorePath)
	if err != nil {
		return fmt.Errorf("failed to load score: %w", err)
	}

	player := audio.NewPlayer(clip, simulationBlockSize, cfg.Audio.BufferSeconds)
	eng := engine.New(cfg, player, engine.WithClock(player.Position), engine.WithHistoryLimit(0))
	defer eng.Close()

	if err := eng.LoadScore(s); err != nil {
		return err
	}

	fmt.Printf("Following %s (%.1fs) against %s (%d notes)\n",
		audioPath, clip.Duration.Seconds(), scorePath, len(s.Notes))

	if followRealtime {
		err = followLive(ctx, player, eng)
	} else {
		err = followOffline(ctx, player, eng)
	}
	if err != nil {
		return err
	}

	summary := eng.Finish()
	printSummary(summary)

	return writePlots(eng.History(), audioPath, followPlot, followChromaPlot)
}

// followOffline ticks the engine every 1/AnalysisHz seconds of audio
// without waiting on the wall clock
func followOffline(ctx context.Context, player *audio.Player, eng *engine.Engine) error {
	samplesPerTick := float64(cfg.Audio.SampleRate) / cfg.Audio.AnalysisHz
	var fed, nextTick float64

	for player.Step() {
		if err := ctx.Err(); err != nil {
			return err
		}
		fed += simulationBlockSize
		for fed >= nextTick {
			printTick(eng.Tick())
			nextTick += samplesPerTick
		}
	}
	return nil
}

func followLive(ctx context.Context, player *audio.Player, eng *engine.Engine) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- eng.Run(ctx)
	}()

	err := player.Run(ctx)
	cancel()
	if runErr := <-done; runErr != nil {
		return runErr
	}
	if err != nil && ctx.Err() == nil {
		return err
	}

	if !followQuiet {
		for _, r := range eng.History() {
			printTick(r)
		}
	}
	return nil
}

func printTick(r engine.TickResult) {
	if followQuiet {
		return
	}
	for _, out := range r.Outcomes {
		fmt.Printf("%7.2fs  score %6.2fs  %-4s %-5s note=%s combo=%d score=%d\n",
			r.Time, r.ScoreTime, r.Note, out.Type, out.NoteID, out.Combo, out.Score)
	}
}

func writePlots(history []engine.TickResult, title, alignmentPath, chromaPath string) error {
	if alignmentPath != "" {
		p, err := report.PlotAlignment(history, "Alignment "+title)
		if err != nil {
			return err
		}
		if err := report.SavePNG(p, alignmentPath, 8*vg.Inch, 5*vg.Inch); err != nil {
			return err
		}
		fmt.Printf("Wrote %s\n", alignmentPath)
	}
	if chromaPath != "" {
		p, err := report.PlotChromagram(history, "Chromagram "+title)
		if err != nil {
			return err
		}
		if err := report.SavePNG(p, chromaPath, 8*vg.Inch, 4*vg.Inch); err != nil {
			return err
		}
		fmt.Printf("Wrote %s\n", chromaPath)
	}
	return nil
}
