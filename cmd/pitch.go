package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/RyanBlaney/sonido-follow/algorithms/filters"
	"github.com/RyanBlaney/sonido-follow/algorithms/pitch"
	"github.com/RyanBlaney/sonido-follow/audio"
)

var pitchHopMillis float64

func init() {
	pitchCmd.Flags().Float64Var(&pitchHopMillis, "hop", 100, "milliseconds between estimates")
	rootCmd.AddCommand(pitchCmd)
}

var pitchCmd = &cobra.Command{
	Use:   "pitch <audio>",
	Short: "Prints the pitch track of a file",
	Long: `Runs the pitch estimator chain over an audio file and prints one estimate
per hop with the tier that produced it.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return pitchTrack(cmd.Context(), args[0])
	},
}

func pitchTrack(ctx context.Context, path string) error {
	clip, err := audio.Load(ctx, path, cfg.Audio.SampleRate, audio.NewDecoder(cfg.Decoder))
	if err != nil {
		return err
	}

	pre := filters.NewPreprocessor(cfg.Preprocess)
	chain := pitch.NewDefaultChain(cfg.Pitch)
	defer chain.Close()

	fmt.Printf("Estimators: %s\n", chain.Capabilities())

	frame := cfg.Audio.FrameSamples()
	hop := int(float64(clip.SampleRate) * pitchHopMillis / 1000)
	if hop <= 0 {
		hop = frame
	}

	for start := 0; start+frame <= len(clip.Samples); start += hop {
		if err := ctx.Err(); err != nil {
			return err
		}

		block := clip.Samples[start : start+frame]
		t := float64(start) / float64(clip.SampleRate)
		if pre.IsSilence(block) {
			fmt.Printf("%7.2fs  -\n", t)
			continue
		}

		res := chain.Predict(pre.ProcessWith(block, filters.ProcessOptions{}))
		name, cents := pitch.NoteName(res.Frequency)
		if name == "" {
			fmt.Printf("%7.2fs  unvoiced  conf=%.2f  %s\n", t, res.Confidence, res.Source)
			continue
		}
		fmt.Printf("%7.2fs  %8.2f Hz  %-4s %+5.1f cents  conf=%.2f  %s\n",
			t, res.Frequency, name, cents, res.Confidence, res.Source)
	}
	return nil
}
