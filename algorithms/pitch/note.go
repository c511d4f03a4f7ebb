package pitch

import (
	"fmt"
	"math"
)

var noteNames = [12]string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}

// Note is a frequency expressed as the nearest equal-tempered note
type Note struct {
	Name   string  `json:"name"`   // e.g. "A4"
	MIDI   int     `json:"midi"`   // nearest MIDI note
	Cents  float64 `json:"cents"`  // deviation from MIDI, -50..50
	Octave int     `json:"octave"` // scientific octave, C4 = 60
}

// NoteFromFrequency names a frequency relative to A4 = 440 Hz. It returns
// false for non-positive input.
func NoteFromFrequency(freq float64) (Note, bool) {
	if !(freq > 0) || math.IsInf(freq, 0) {
		return Note{}, false
	}

	midi := 69.0 + 12.0*math.Log2(freq/440.0)
	nearest := int(math.RoundToEven(midi))
	pc := ((nearest % 12) + 12) % 12
	octave := floorDiv(nearest, 12) - 1

	return Note{
		Name:   fmt.Sprintf("%s%d", noteNames[pc], octave),
		MIDI:   nearest,
		Cents:  (midi - float64(nearest)) * 100,
		Octave: octave,
	}, true
}

// MIDIToFrequency converts a MIDI note number to Hz
func MIDIToFrequency(midi int) float64 {
	return 440.0 * math.Pow(2, float64(midi-69)/12.0)
}

// SemitoneError returns |12*log2(freq/target)|, or +Inf when either is not positive
func SemitoneError(freq, target float64) float64 {
	if !(freq > 0) || !(target > 0) {
		return math.Inf(1)
	}
	return math.Abs(12 * math.Log2(freq/target))
}

func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

// NoteName returns the note name of freq and its deviation in cents, or
// ("", 0) for non-positive input
func NoteName(freq float64) (string, float64) {
	n, ok := NoteFromFrequency(freq)
	if !ok {
		return "", 0
	}
	return n.Name, n.Cents
}
