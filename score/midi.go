package score

import (
	"bytes"
	"cmp"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"

	"gitlab.com/gomidi/midi/v2/smf"
)

// DrumChannel is the General MIDI percussion channel, skipped by default
const DrumChannel = 9

// MIDIOptions filters which notes are read
type MIDIOptions struct {
	Tracks        []int // empty reads every track
	IncludeDrums  bool
	MinDurationMs float64
}

type noteKey struct {
	track   int
	channel uint8
	key     uint8
}

// LoadMIDI reads a standard MIDI file with default options
func LoadMIDI(path string) (*Score, error) {
	return LoadMIDIWithOptions(path, MIDIOptions{})
}

// LoadMIDIWithOptions reads a standard MIDI file into a score. Note times
// follow the file's tempo map. Overlapping notes on the same key are paired
// first-in first-out.
func LoadMIDIWithOptions(path string, opts MIDIOptions) (*Score, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading midi file: %w", err)
	}

	rows, err := ReadMIDI(bytes.NewReader(data), opts)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return newScore(path, rows)
}

// ReadMIDI parses MIDI data into (start, duration, pitch, id) rows sorted
// by start time then pitch. IDs are n1, n2, ... in that order.
func ReadMIDI(r io.Reader, opts MIDIOptions) (rows [][]any, err error) {
	// the smf reader panics on some malformed files
	defer func() {
		if p := recover(); p != nil {
			rows = nil
			err = fmt.Errorf("malformed midi data: %v", p)
		}
	}()

	type note struct {
		start, end float64
		pitch      int
	}

	var (
		notes []note
		open  = map[noteKey][]float64{}
	)

	reader := smf.ReadTracksFrom(r, opts.Tracks...)
	reader.Do(func(ev smf.TrackEvent) {
		seconds := float64(ev.AbsMicroSeconds) / 1_000_000

		var ch, key, vel uint8
		if ev.Message.GetNoteStart(&ch, &key, &vel) {
			if ch == DrumChannel && !opts.IncludeDrums {
				return
			}
			k := noteKey{track: ev.TrackNo, channel: ch, key: key}
			open[k] = append(open[k], seconds)
			return
		}

		if ev.Message.GetNoteEnd(&ch, &key) {
			k := noteKey{track: ev.TrackNo, channel: ch, key: key}
			starts := open[k]
			if len(starts) == 0 {
				return
			}
			start := starts[0]
			open[k] = starts[1:]
			if (seconds-start)*1000 < opts.MinDurationMs {
				return
			}
			notes = append(notes, note{start: start, end: seconds, pitch: int(key)})
		}
	})

	if err := reader.Error(); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("error parsing midi file: %w", err)
	}
	if len(notes) == 0 {
		return nil, ErrNoNotes
	}

	slices.SortStableFunc(notes, func(a, b note) int {
		if c := cmp.Compare(a.start, b.start); c != 0 {
			return c
		}
		return cmp.Compare(a.pitch, b.pitch)
	})

	rows = make([][]any, len(notes))
	for i, n := range notes {
		rows[i] = []any{n.start, n.end - n.start, n.pitch, fmt.Sprintf("n%d", i+1)}
	}
	return rows, nil
}
