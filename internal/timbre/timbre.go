// Package timbre describes instruments: where a voice's samples come from
// and which envelope shapes them. Timbres are immutable once built and are
// shared by every voice that plays them.
package timbre

import (
	"github.com/cbegin/midisynth-go/internal/envelope"
	"github.com/cbegin/midisynth-go/internal/fixed"
	"github.com/cbegin/midisynth-go/internal/osc"
	"github.com/cbegin/midisynth-go/internal/percussion"
)

// Kind enumerates the source variants.
type Kind uint8

const (
	Wavetable Kind = iota
	FixedShape
	Sampled
	Percussion
)

var kindNames = [...]string{"wavetable", "shape", "sample", "percussion"}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// Flags qualify a Timbre.
type Flags uint8

const (
	// FlagPercussion marks drum-kit semantics: the source is a percussion
	// generator and the envelope is bypassed.
	FlagPercussion Flags = 1 << iota
)

// Source is the closed set of sample sources. Only the types in this
// package implement it.
type Source interface {
	Kind() Kind
	start(st *State)
	retune(st *State)
	next(st *State) int8
}

// Timbre is an instrument definition.
type Timbre struct {
	Name   string
	Source Source
	Flags  Flags
	Env    envelope.Template
}

// IsPercussion reports whether t is a drum kit.
func (t *Timbre) IsPercussion() bool { return t.Flags&FlagPercussion != 0 }

// State is the per-voice playback state a Source works on.
type State struct {
	Key     uint8
	Freq    fixed.UQ16x16 // current frequency, bend included
	Tick    uint32        // output ticks since note start; never reset mid-note
	Rate    uint32
	Done    bool // set when a one-shot source has nothing more to play
	Osc     [2]osc.Oscillator
	Pos     fixed.UQ24x8
	Scratch percussion.Scratch
	step    uint32
}

// Start prepares st for a new note of t.
func (t *Timbre) Start(st *State, key uint8, freq fixed.UQ16x16, rate uint32) {
	*st = State{Key: key, Freq: freq, Rate: rate}
	if t.Source != nil {
		t.Source.start(st)
	}
}

// Retune changes the frequency of a sounding note without restarting it.
func (t *Timbre) Retune(st *State, freq fixed.UQ16x16) {
	if st.Freq == freq {
		return
	}
	st.Freq = freq
	if t.Source != nil {
		t.Source.retune(st)
	}
}

// Next returns the sample for the current tick and advances st by one tick.
// Once st.Done is set Next returns silence.
func (t *Timbre) Next(st *State) int8 {
	if st.Done || t.Source == nil {
		return 0
	}
	s := t.Source.next(st)
	st.Tick++
	return s
}

// WavetableSource plays a single-cycle table of any length.
type WavetableSource struct {
	Index int
	Table []int8
}

func (WavetableSource) Kind() Kind { return Wavetable }

func (w WavetableSource) start(st *State) { w.retune(st) }

func (w WavetableSource) retune(st *State) { st.Osc[0].SetFreq(st.Freq, st.Rate) }

func (w WavetableSource) next(st *State) int8 { return st.Osc[0].NextLookup(w.Table) }

// ShapeSource plays a built-in waveform. A non-zero Detune (cents) adds a
// second oscillator offset by that amount and averages the two.
type ShapeSource struct {
	Shape  osc.Shape
	Detune int32
}

func (ShapeSource) Kind() Kind { return FixedShape }

func (s ShapeSource) start(st *State) {
	st.Osc[0].Shape = s.Shape
	st.Osc[1].Shape = s.Shape
	s.retune(st)
}

func (s ShapeSource) retune(st *State) {
	st.Osc[0].SetFreq(st.Freq, st.Rate)
	if s.Detune != 0 {
		st.Osc[1].SetFreq(fixed.BendPitchFreq(st.Freq, s.Detune), st.Rate)
	}
}

func (s ShapeSource) next(st *State) int8 {
	a := st.Osc[0].Next()
	if s.Detune == 0 {
		return a
	}
	b := st.Osc[1].Next()
	return int8((int16(a) + int16(b)) >> 1)
}

// SampleSource plays a recording pitched relative to RootKey. When
// LoopEnd > LoopStart the region between them repeats while the note lasts;
// otherwise the sample plays once.
type SampleSource struct {
	Data      []int8
	Rate      uint32
	RootKey   uint8
	LoopStart uint32
	LoopEnd   uint32
}

func (SampleSource) Kind() Kind { return Sampled }

func (s SampleSource) start(st *State) {
	st.Pos = 0
	s.retune(st)
}

func (s SampleSource) retune(st *State) {
	root := uint64(fixed.NoteFreq(s.RootKey))
	if root == 0 || st.Rate == 0 {
		st.step = 0
		return
	}
	st.step = uint32((uint64(s.Rate) << 8) * uint64(st.Freq) / root / uint64(st.Rate))
}

func (s SampleSource) next(st *State) int8 {
	i := st.Pos.Int()
	if s.LoopEnd > s.LoopStart && s.LoopEnd <= uint32(len(s.Data)) {
		for i >= s.LoopEnd {
			st.Pos -= fixed.UQ24x8((s.LoopEnd - s.LoopStart) << 8)
			i = st.Pos.Int()
		}
	}
	if i >= uint32(len(s.Data)) {
		st.Done = true
		return 0
	}
	st.Pos += fixed.UQ24x8(st.step)
	return s.Data[i]
}

// PercussionSource dispatches to a drum generator. The note number selects
// the drum; State.Scratch is the generator's only persistent state.
type PercussionSource struct {
	Generator percussion.Generator
	Data      any
}

func (PercussionSource) Kind() Kind { return Percussion }

func (p PercussionSource) start(st *State) { st.Scratch.Reset() }

func (p PercussionSource) retune(*State) {}

func (p PercussionSource) next(st *State) int8 {
	if p.Generator == nil {
		st.Done = true
		return 0
	}
	return p.Generator(st.Key, st.Tick, &st.Done, &st.Scratch, p.Data)
}
