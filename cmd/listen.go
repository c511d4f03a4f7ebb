package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"github.com/RyanBlaney/sonido-follow/audio"
	"github.com/RyanBlaney/sonido-follow/engine"
	"github.com/RyanBlaney/sonido-follow/logging"
	"github.com/RyanBlaney/sonido-follow/score"
)

var (
	listenDevice       string
	listenNoiseSeconds float64
	listenPlot         string
)

func init() {
	listenCmd.Flags().StringVarP(&listenDevice, "device", "d", "", "input device name (see 'devices')")
	listenCmd.Flags().Float64Var(&listenNoiseSeconds, "noise", 0, "seconds of room noise to learn before starting")
	listenCmd.Flags().StringVar(&listenPlot, "plot", "", "write an alignment PNG to this path on exit")
	rootCmd.AddCommand(listenCmd)
}

var listenCmd = &cobra.Command{
	Use:   "listen <score>",
	Short: "Follows live input against a score",
	Long: `Captures from an input device and follows the score until interrupted,
then prints the session summary.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()
		return listen(ctx, args[0])
	},
}

func listen(ctx context.Context, scorePath string) error {
	s, err := score.Load(ctx, scorePath)
	if err != nil {
		return fmt.Errorf("failed to load score: %w", err)
	}

	captureCfg := cfg.Audio.CaptureConfig
	if listenDevice != "" {
		captureCfg.Device = listenDevice
	}
	capture, err := audio.NewCapture(captureCfg)
	if err != nil {
		return err
	}
	defer capture.Close()

	eng := engine.New(cfg, capture, engine.WithRenderer(score.NewLogRenderer(0.5)))
	defer eng.Close()

	if err := eng.LoadScore(s); err != nil {
		return err
	}
	if err := capture.Start(); err != nil {
		return err
	}

	if listenNoiseSeconds > 0 {
		fmt.Printf("Learning room noise for %.1fs, stay quiet...\n", listenNoiseSeconds)
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(time.Duration(listenNoiseSeconds * float64(time.Second))):
		}
		if err := eng.SetNoiseProfile(); err != nil {
			logging.Warn("Continuing without a noise profile", logging.Fields{
				"error": err.Error(),
			})
		}
	}

	eng.Reset()
	fmt.Printf("Listening, %d notes. Press Ctrl+C to stop.\n", len(s.Notes))

	if err := eng.Run(ctx); err != nil {
		return err
	}

	if capture.Frames() == 0 {
		logging.Warn("No audio was received from the input device", logging.Fields{
			"device": captureCfg.Device,
		})
	}
	logging.Debug("Input level at stop", logging.Fields{
		"level_db": audio.LevelDB(capture.RMS()),
		"frames":   capture.Frames(),
	})

	printSummary(eng.Finish())
	return writePlots(eng.History(), "live", listenPlot, "")
}
