// Package lfo is a fixed-point low-frequency oscillator used for vibrato.
package lfo

import (
	"github.com/juju/errors"

	"github.com/cbegin/midisynth-go/internal/fixed"
	"github.com/cbegin/midisynth-go/internal/osc"
)

// Waveform selects the LFO shape. The zero value is triangle.
type Waveform int

const (
	WaveTriangle Waveform = iota
	WaveSaw
	WaveSquare
	WaveRandom
)

var waveNames = [...]string{"triangle", "saw", "square", "random"}

func (w Waveform) String() string {
	if w >= 0 && int(w) < len(waveNames) {
		return waveNames[w]
	}
	return "unknown"
}

// ParseWaveform maps a name to a Waveform. An empty name is triangle.
func ParseWaveform(name string) (Waveform, error) {
	if name == "" {
		return WaveTriangle, nil
	}
	for i, n := range waveNames {
		if n == name {
			return Waveform(i), nil
		}
	}
	return 0, errors.NotValidf("lfo waveform %q", name)
}

// unit is full scale for the internal waveform value (Q15).
const unit = 1 << 15

// LFO produces a modulation value in [-depth, +depth]. Depth is in caller
// units (cents for vibrato); phase is a uint32 where 1<<32 is one cycle.
type LFO struct {
	depth    int32
	rate     fixed.UQ16x16
	waveform Waveform
	phase    uint32
	held     int32 // sample-and-hold value for WaveRandom
	cycles   uint32
}

// Set configures the LFO parameters. An unknown waveform selects triangle.
func (l *LFO) Set(depth int32, rate fixed.UQ16x16, waveform Waveform) {
	l.depth = depth
	l.rate = rate
	if waveform < WaveTriangle || waveform > WaveRandom {
		waveform = WaveTriangle
	}
	l.waveform = waveform
}

// Shape returns the waveform.
func (l *LFO) Shape() Waveform { return l.waveform }

// SetDepth changes the depth only.
func (l *LFO) SetDepth(depth int32) { l.depth = depth }

// Depth returns the configured depth.
func (l *LFO) Depth() int32 { return l.depth }

// Sample returns the current value and advances one tick.
func (l *LFO) Sample(sampleRate uint32) int32 {
	return l.Advance(1, sampleRate)
}

// Advance returns the current value and advances the phase by ticks output
// samples. It is meant to be called at control rate.
func (l *LFO) Advance(ticks, sampleRate uint32) int32 {
	if !l.Active() || sampleRate == 0 {
		return 0
	}
	v := l.wave()

	// Phase increment per tick is rate/sampleRate cycles, in 1/2^32 units.
	inc := (uint64(l.rate) << 16) / uint64(sampleRate)
	old := l.phase
	l.phase += uint32(inc * uint64(ticks))
	if l.waveform == WaveRandom && l.phase < old {
		l.cycles++
		l.held = int32(osc.NoiseAt(l.cycles)) << 8
	}
	return int32((int64(v) * int64(l.depth)) >> 15)
}

func (l *LFO) wave() int32 {
	x := int32(l.phase >> 16) // 0..65535
	switch l.waveform {
	case WaveSaw:
		return unit - x
	case WaveSquare:
		if x < unit {
			return unit
		}
		return -unit
	case WaveRandom:
		return l.held
	default:
		if x < unit {
			return 2*x - unit
		}
		return 3*unit - 2*x
	}
}

// Active reports whether the LFO has non-zero depth and rate.
func (l *LFO) Active() bool {
	return l.depth != 0 && l.rate != 0
}

// Reset zeros the LFO phase.
func (l *LFO) Reset() {
	l.phase = 0
	l.held = 0
	l.cycles = 0
}
