package follower

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// NoID marks an event that arrived without an identifier
const NoID = ""

// NoteEvent is one note of the score, in seconds
type NoteEvent struct {
	Start    float64 `json:"start"`
	Duration float64 `json:"duration"`
	Pitch    int     `json:"pitch"` // MIDI note number
	ID       string  `json:"id,omitempty"`
	Index    int     `json:"index"` // position among the validated events
}

// End returns Start + Duration
func (e NoteEvent) End() float64 {
	return e.Start + e.Duration
}

// PitchClass returns the pitch modulo 12, always in 0..11
func (e NoteEvent) PitchClass() int {
	return ((e.Pitch % 12) + 12) % 12
}

// Contains reports whether t lies in [Start-tolerance, End+tolerance]
func (e NoteEvent) Contains(t, tolerance float64) bool {
	return e.Start-tolerance <= t && t <= e.End()+tolerance
}

func (e NoteEvent) String() string {
	return fmt.Sprintf("note(%s pitch=%d start=%.3f dur=%.3f)", e.ID, e.Pitch, e.Start, e.Duration)
}

// ValidateEvents converts loosely typed rows (start, duration, pitch[, id])
// into note events. Rows with fewer than three fields, values that cannot be
// coerced, or a non-finite start or duration are dropped; the number dropped
// is returned alongside the valid events.
func ValidateEvents(rows [][]any) (events []NoteEvent, dropped int) {
	for _, row := range rows {
		ev, ok := parseEvent(row)
		if !ok {
			dropped++
			continue
		}
		ev.Index = len(events)
		events = append(events, ev)
	}
	return events, dropped
}

// validNotes re-indexes typed events and drops non-finite ones
func validNotes(in []NoteEvent) (events []NoteEvent, dropped int) {
	for _, ev := range in {
		if !finite(ev.Start) || !finite(ev.Duration) {
			dropped++
			continue
		}
		ev.Index = len(events)
		events = append(events, ev)
	}
	return events, dropped
}

func parseEvent(row []any) (NoteEvent, bool) {
	if len(row) < 3 {
		return NoteEvent{}, false
	}

	start, ok := coerceFloat(row[0])
	if !ok || !finite(start) {
		return NoteEvent{}, false
	}
	dur, ok := coerceFloat(row[1])
	if !ok || !finite(dur) {
		return NoteEvent{}, false
	}
	pitch, ok := coerceInt(row[2])
	if !ok {
		return NoteEvent{}, false
	}

	id := NoID
	if len(row) > 3 && row[3] != nil {
		id = strings.TrimSpace(fmt.Sprint(row[3]))
	}

	return NoteEvent{Start: start, Duration: dur, Pitch: pitch, ID: id}, true
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func coerceFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case int:
		return float64(x), true
	case int32:
		return float64(x), true
	case int64:
		return float64(x), true
	case uint8:
		return float64(x), true
	case uint32:
		return float64(x), true
	case json.Number:
		f, err := x.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

// coerceInt truncates floats toward zero and parses integer strings
func coerceInt(v any) (int, bool) {
	switch x := v.(type) {
	case int:
		return x, true
	case int32:
		return int(x), true
	case int64:
		return int(x), true
	case uint8:
		return int(x), true
	case uint32:
		return int(x), true
	case float64:
		if !finite(x) {
			return 0, false
		}
		return int(x), true
	case float32:
		return coerceInt(float64(x))
	case json.Number:
		if i, err := x.Int64(); err == nil {
			return int(i), true
		}
		f, err := x.Float64()
		if err != nil {
			return 0, false
		}
		return coerceInt(f)
	case string:
		i, err := strconv.Atoi(strings.TrimSpace(x))
		return i, err == nil
	default:
		return 0, false
	}
}
