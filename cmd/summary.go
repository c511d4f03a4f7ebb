package cmd

import (
	"fmt"
	"time"

	"github.com/RyanBlaney/sonido-follow/practice"
)

func printSummary(s practice.Summary) {
	fmt.Println()
	fmt.Printf("Session   %s\n", s.SessionID)
	fmt.Printf("Score     %d\n", s.Score)
	fmt.Printf("Hits      %d / %d\n", s.Hits, s.Total)
	fmt.Printf("Misses    %d\n", s.Misses)
	fmt.Printf("Max combo %d\n", s.MaxCombo)
	fmt.Printf("Accuracy  %.1f%%\n", s.Accuracy)
	fmt.Printf("Elapsed   %s\n", s.Elapsed.Round(100*time.Millisecond))
}
