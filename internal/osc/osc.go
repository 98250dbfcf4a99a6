// Package osc produces signed 8-bit waveform samples from Q16.16 frequencies.
//
// Phase is measured in table positions as Q16.16: one waveform cycle spans
// 256 positions, i.e. 1<<24 phase units, and a uint32 phase wraps cleanly
// every 256 cycles.
package osc

import (
	"math"

	"github.com/cbegin/midisynth-go/internal/fixed"
)

// Shape selects a built-in waveform.
type Shape uint8

const (
	Sine Shape = iota
	Square
	Triangle
	Sawtooth
	Noise
)

var shapeNames = [...]string{"sine", "square", "triangle", "sawtooth", "noise"}

func (s Shape) String() string {
	if int(s) < len(shapeNames) {
		return shapeNames[s]
	}
	return "unknown"
}

// TableLen is the length of the built-in waveform tables.
const TableLen = 256

var tables [Noise][TableLen]int8

func init() {
	for i := 0; i < TableLen; i++ {
		tables[Sine][i] = int8(math.Round(127 * math.Sin(2*math.Pi*float64(i)/TableLen)))
		if i < TableLen/2 {
			tables[Square][i] = 127
		} else {
			tables[Square][i] = -127
		}
		// Triangle starts at zero and peaks a quarter cycle in, like the sine.
		var tri int
		switch {
		case i < 64:
			tri = i * 2
		case i < 192:
			tri = 256 - i*2
		default:
			tri = i*2 - 512
		}
		tables[Triangle][i] = int8(max(-127, min(127, tri)))
		tables[Sawtooth][i] = int8(i - 128)
	}
}

// Step returns the per-sample phase increment for freq at sampleRate.
func Step(freq fixed.UQ16x16, sampleRate uint32) uint32 {
	div := sampleRate >> 8
	if div == 0 {
		div = 1
	}
	return uint32(freq) / div
}

// Sample returns the value of shape at the given phase.
func Sample(shape Shape, phase uint32) int8 {
	pos := phase >> 16
	if shape >= Noise {
		return NoiseAt(pos)
	}
	return tables[shape][pos&0xFF]
}

// At returns the sample of shape at output tick idx for a constant freq.
func At(shape Shape, freq fixed.UQ16x16, idx uint32, sampleRate uint32) int8 {
	return Sample(shape, idx*Step(freq, sampleRate))
}

// Lookup reads a caller-supplied single-cycle table of any length at phase.
// The table position wraps modulo len(table).
func Lookup(table []int8, phase uint32) int8 {
	n := uint64(len(table))
	if n == 0 {
		return 0
	}
	i := (uint64(phase&0xFFFFFF) * n) >> 24
	return table[i%n]
}

// NoiseAt is a pseudo-random sample that depends only on idx.
func NoiseAt(idx uint32) int8 {
	x := idx * 0x9E3779B1
	x ^= x >> 15
	x *= 0x85EBCA77
	x ^= x >> 13
	x *= 0xC2B2AE3D
	x ^= x >> 16
	return int8(x >> 24)
}

// Oscillator is a phase accumulator. Unlike At it keeps its phase across
// frequency changes, so pitch bends do not click.
type Oscillator struct {
	Shape Shape
	phase uint32
	step  uint32
}

// SetFreq changes the oscillator frequency without resetting its phase.
func (o *Oscillator) SetFreq(freq fixed.UQ16x16, sampleRate uint32) {
	o.step = Step(freq, sampleRate)
}

// Phase returns the current phase.
func (o *Oscillator) Phase() uint32 { return o.phase }

// Next returns the current sample and advances one tick.
func (o *Oscillator) Next() int8 {
	s := Sample(o.Shape, o.phase)
	o.phase += o.step
	return s
}

// NextLookup is Next reading from table instead of the built-in shape.
func (o *Oscillator) NextLookup(table []int8) int8 {
	s := Lookup(table, o.phase)
	o.phase += o.step
	return s
}
