package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/RyanBlaney/sonido-follow/audio"
)

func init() {
	rootCmd.AddCommand(devicesCmd)
}

var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "Lists audio input devices",
	RunE: func(cmd *cobra.Command, args []string) error {
		names, err := audio.InputDevices()
		if err != nil {
			return err
		}
		if len(names) == 0 {
			fmt.Println("No input devices found")
			return nil
		}
		for i, name := range names {
			fmt.Printf("%2d  %s\n", i, name)
		}
		return nil
	},
}
