// Package score loads note lists from MIDI and JSON files and defines the
// rendering collaborator the practice loop reports to.
package score

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/RyanBlaney/sonido-follow/follower"
)

// ErrNoNotes is returned when a file parses but contains no usable notes
var ErrNoNotes = errors.New("score: no notes")

// Score is a parsed note list
type Score struct {
	Source  string               `json:"source"`
	Notes   []follower.NoteEvent `json:"notes"`
	Dropped int                  `json:"dropped"` // rows rejected during validation
}

// Rows returns the notes as (start, duration, pitch, id) rows
func (s *Score) Rows() [][]any {
	rows := make([][]any, len(s.Notes))
	for i, n := range s.Notes {
		rows[i] = []any{n.Start, n.Duration, n.Pitch, n.ID}
	}
	return rows
}

// Duration returns the end time of the last note
func (s *Score) Duration() float64 {
	return follower.TotalDuration(s.Notes)
}

// Load reads a score, choosing the parser by file extension
func Load(ctx context.Context, path string) (*Score, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".mid", ".midi", ".smf":
		return LoadMIDI(path)
	case ".json":
		return LoadJSON(path)
	default:
		return nil, fmt.Errorf("unsupported score format %q", filepath.Ext(path))
	}
}

func newScore(source string, rows [][]any) (*Score, error) {
	notes, dropped := follower.ValidateEvents(rows)
	if len(notes) == 0 {
		return nil, fmt.Errorf("%s: %w", source, ErrNoNotes)
	}
	return &Score{Source: source, Notes: notes, Dropped: dropped}, nil
}
