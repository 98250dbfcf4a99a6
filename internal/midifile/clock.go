package midifile

import "github.com/cbegin/midisynth-go/internal/fixed"

// DefaultTempo is 120 beats per minute, the tempo of a file that never sets
// one.
const DefaultTempo = 500000

// Clock converts file ticks to output samples at the current tempo. The
// fractional remainder of every conversion is carried into the next, so a
// long run of small deltas does not drift.
type Clock struct {
	rate     uint32
	division uint16
	tempo    uint32
	rem      uint64
}

// NewClock returns a clock at DefaultTempo.
func NewClock(sampleRate uint32, division uint16) Clock {
	if division == 0 {
		division = 1
	}
	return Clock{rate: sampleRate, division: division, tempo: DefaultTempo}
}

// SetTempo changes the tempo in microseconds per quarter note. Zero is
// ignored.
func (c *Clock) SetTempo(us uint32) {
	if us != 0 {
		c.tempo = us
	}
}

// Tempo returns the current tempo.
func (c *Clock) Tempo() uint32 { return c.tempo }

// Samples returns how many output samples delta ticks last.
func (c *Clock) Samples(delta uint32) uint64 {
	if delta == 0 {
		return 0
	}
	d := uint64(c.division) * 1000000
	q, r := fixed.MulDiv64(uint64(delta)*uint64(c.tempo), uint64(c.rate), d)
	r += c.rem
	if r >= d {
		q++
		r -= d
	}
	c.rem = r
	return q
}
