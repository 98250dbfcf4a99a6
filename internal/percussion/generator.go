// Package percussion holds the drum generators. A generator synthesizes or
// replays one drum note per call, one output tick at a time, and keeps all
// per-note state in the caller-owned Scratch words.
package percussion

import "github.com/juju/loggo"

var logger = loggo.GetLogger("midisynth.percussion")

// Scratch is the per-voice state a generator may persist between calls.
// The player zeroes it on every note-on.
type Scratch [4]uint32

// Reset zeroes every word.
func (s *Scratch) Reset() { *s = Scratch{} }

// Generator produces the sample for drum at idx, counted from 0 at note
// start. It sets *done on the last sample of the sound; the caller must not
// call it again for that note.
type Generator func(drum uint8, idx uint32, done *bool, s *Scratch, data any) int8

// Kit is a generator together with the data it expects.
type Kit interface {
	Generator() Generator
	Data() any
	Name() string
}

// FirstDrum and LastDrum bound the General MIDI percussion key map.
const (
	FirstDrum = 35
	LastDrum  = 81
)

func clamp8(v int32) int8 {
	if v > 127 {
		return 127
	}
	if v < -128 {
		return -128
	}
	return int8(v)
}
