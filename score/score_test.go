package score

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"

	"github.com/RyanBlaney/sonido-follow/logging"
)

// writeTestMIDI builds a 120 bpm file: C4 then E4 as quarter notes on
// channel 0, and an eighth-note kick on the drum channel
func writeTestMIDI(t *testing.T) []byte {
	t.Helper()

	clock := smf.MetricTicks(96)
	var tr smf.Track
	tr.Add(0, smf.MetaTempo(120))
	tr.Add(0, midi.NoteOn(0, 60, 100))
	tr.Add(0, midi.NoteOn(DrumChannel, 36, 100))
	tr.Add(clock.Ticks8th(), midi.NoteOff(DrumChannel, 36))
	tr.Add(clock.Ticks8th(), midi.NoteOff(0, 60))
	tr.Add(0, midi.NoteOn(0, 64, 100))
	tr.Add(clock.Ticks4th(), midi.NoteOff(0, 64))
	tr.Close(0)

	s := smf.New()
	s.TimeFormat = clock
	require.NoError(t, s.Add(tr))

	var buf bytes.Buffer
	_, err := s.WriteTo(&buf)
	require.NoError(t, err)
	return buf.Bytes()
}

func TestReadMIDI(t *testing.T) {
	data := writeTestMIDI(t)

	rows, err := ReadMIDI(bytes.NewReader(data), MIDIOptions{})
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.InDelta(t, 0.0, rows[0][0], 1e-6)
	assert.InDelta(t, 0.5, rows[0][1], 1e-6)
	assert.Equal(t, 60, rows[0][2])
	assert.Equal(t, "n1", rows[0][3])

	assert.InDelta(t, 0.5, rows[1][0], 1e-6)
	assert.InDelta(t, 0.5, rows[1][1], 1e-6)
	assert.Equal(t, 64, rows[1][2])
	assert.Equal(t, "n2", rows[1][3])
}

func TestReadMIDIOptions(t *testing.T) {
	data := writeTestMIDI(t)

	rows, err := ReadMIDI(bytes.NewReader(data), MIDIOptions{IncludeDrums: true})
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, 36, rows[0][2])
	assert.InDelta(t, 0.25, rows[0][1], 1e-6)
	assert.Equal(t, 60, rows[1][2])

	rows, err = ReadMIDI(bytes.NewReader(data), MIDIOptions{IncludeDrums: true, MinDurationMs: 300})
	require.NoError(t, err)
	assert.Len(t, rows, 2)
}

func TestReadMIDIRejectsGarbage(t *testing.T) {
	_, err := ReadMIDI(strings.NewReader("not a midi file"), MIDIOptions{})
	assert.Error(t, err)
}

func TestReadJSON(t *testing.T) {
	tests := []struct {
		name string
		data string
		rows int
	}{
		{"rows", `[[0, 0.5, 60, "a"], [0.5, 0.5, 62]]`, 2},
		{"objects", `[{"start": 0, "duration": 0.5, "pitch": 60, "id": "a"}, {"start": 0.5, "duration": 1, "pitch": 64}]`, 2},
		{"wrapper", `{"notes": [[0, 1, 60]]}`, 1},
		{"malformed entry kept for counting", `[[0, 1, 60], 42]`, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rows, err := ReadJSON(strings.NewReader(tt.data))
			require.NoError(t, err)
			assert.Len(t, rows, tt.rows)
		})
	}

	_, err := ReadJSON(strings.NewReader(`[]`))
	assert.ErrorIs(t, err, ErrNoNotes)

	_, err = ReadJSON(strings.NewReader(`[[0, 1`))
	assert.Error(t, err)
}

func writeFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func TestLoad(t *testing.T) {
	ctx := context.Background()

	path := writeFile(t, "riff.json", []byte(`[
		{"start": 0, "duration": 1, "pitch": 62, "id": "n1"},
		{"start": 1, "duration": 1, "pitch": 69, "id": "n2"},
		["oops"]
	]`))
	s, err := Load(ctx, path)
	require.NoError(t, err)
	assert.Len(t, s.Notes, 2)
	assert.Equal(t, 1, s.Dropped)
	assert.Equal(t, 2.0, s.Duration())
	assert.Equal(t, []any{1.0, 1.0, 69, "n2"}, s.Rows()[1])

	path = writeFile(t, "riff.MID", writeTestMIDI(t))
	s, err = Load(ctx, path)
	require.NoError(t, err)
	assert.Len(t, s.Notes, 2)
	assert.Equal(t, "n1", s.Notes[0].ID)

	path = writeFile(t, "empty.json", []byte(`[["x", 1, 60]]`))
	_, err = Load(ctx, path)
	assert.ErrorIs(t, err, ErrNoNotes)

	_, err = Load(ctx, "score.txt")
	assert.Error(t, err)

	canceled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = Load(canceled, path)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestLogRenderer(t *testing.T) {
	prev := logging.GetGlobalLogger()
	mem := logging.NewMemoryLogger()
	logging.SetGlobalLogger(mem)
	defer logging.SetGlobalLogger(prev)

	r := NewLogRenderer(0.1)
	r.SetCursor(0)
	r.SetCursor(0.05)
	r.SetCursor(0.2)
	r.SetCursor(0.15)
	assert.Equal(t, 2, mem.Count("Cursor"))

	r.MarkNote("n1", ColorHit)
	r.MarkNote("n2", ColorMiss)
	r.MarkNote("n1", ColorMiss)
	assert.Equal(t, map[string]Color{"n1": ColorMiss, "n2": ColorMiss}, r.Marks())
}
