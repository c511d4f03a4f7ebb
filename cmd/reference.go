package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/RyanBlaney/sonido-follow/algorithms/chroma"
	"github.com/RyanBlaney/sonido-follow/follower"
	"github.com/RyanBlaney/sonido-follow/score"
)

func init() {
	rootCmd.AddCommand(referenceCmd)
}

var referenceCmd = &cobra.Command{
	Use:   "reference <score>",
	Short: "Prints the reference chroma built from a score",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := score.Load(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		ref, err := follower.BuildReference(s.Notes, cfg.Alignment.ReferenceRate, cfg.Alignment.SafetyMargin)
		if err != nil {
			return err
		}

		fmt.Printf("%d notes (%d dropped), %.2fs, %d rows at %g Hz\n",
			len(s.Notes), s.Dropped, ref.Total, ref.Len(), ref.Rate)

		labels := chroma.Labels()
		for i, row := range ref.Frames {
			var active []string
			for pc, v := range row {
				if v > 0 {
					active = append(active, labels[pc])
				}
			}
			fmt.Printf("%5d  %6.2fs  %s\n", i, ref.FrameTime(i), strings.Join(active, " "))
		}
		return nil
	},
}
