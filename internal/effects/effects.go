// Package effects holds mono float effects applied after the 8-bit output
// has been converted for a desktop sound card. Nothing here runs inside the
// synthesizer itself.
package effects

import (
	"strconv"
	"strings"

	"github.com/juju/errors"
)

// Effector processes one mono sample at a time.
type Effector interface {
	Process(x float32) float32
	Reset()
}

// Chain applies a sequence of effects in order.
type Chain struct {
	effects []Effector
}

func NewChain(effects ...Effector) *Chain {
	return &Chain{effects: effects}
}

func (c *Chain) Process(x float32) float32 {
	for _, e := range c.effects {
		x = e.Process(x)
	}
	return x
}

func (c *Chain) Reset() {
	for _, e := range c.effects {
		e.Reset()
	}
}

func (c *Chain) Add(e Effector) {
	c.effects = append(c.effects, e)
}

// Len returns the number of effects in the chain.
func (c *Chain) Len() int { return len(c.effects) }

// Parse builds one effect from a description of the form
// "type p1,p2,...". Missing parameters take their defaults.
//
//	lowpass  cutoffHz
//	dcblock
//	eq       low,mid,high gain, low,high crossover Hz
//	delay    ms, feedback, wet
//	reverb   room, feedback, wet
//	drive    pre gain, post gain, cutoff Hz
//	comp     threshold dB, ratio, attack ms, release ms, makeup dB
func Parse(desc string, sampleRate int) (Effector, error) {
	desc = strings.TrimSpace(desc)
	parts := strings.SplitN(desc, " ", 2)
	kind := strings.ToLower(strings.TrimSpace(parts[0]))
	var params []float64
	if len(parts) > 1 {
		for _, s := range strings.Split(parts[1], ",") {
			s = strings.TrimSpace(s)
			if s == "" {
				continue
			}
			v, err := strconv.ParseFloat(s, 64)
			if err != nil {
				return nil, errors.NotValidf("effect %q parameter %q", kind, s)
			}
			params = append(params, v)
		}
	}
	param := func(i int, def float64) float32 {
		if i < len(params) {
			return float32(params[i])
		}
		return float32(def)
	}

	switch kind {
	case "lowpass", "lpf":
		return NewLowPass(sampleRate, param(0, 4000)), nil
	case "dcblock":
		return NewDCBlock(), nil
	case "eq":
		return NewEQ3Band(sampleRate, param(0, 1), param(1, 1), param(2, 1), param(3, 300), param(4, 3000)), nil
	case "delay":
		return NewDelay(sampleRate, float64(param(0, 250)), param(1, 0.4), param(2, 0.3)), nil
	case "reverb":
		return NewReverb(sampleRate, param(0, 0.5), param(1, 0.7), param(2, 0.25)), nil
	case "drive", "dist", "distortion":
		return NewDistortion(sampleRate, param(0, 4), param(1, 0.5), param(2, 8000)), nil
	case "comp", "compressor":
		return NewCompressor(sampleRate, param(0, -20), param(1, 4), param(2, 5), param(3, 100), param(4, 6)), nil
	case "":
		return nil, errors.NotValidf("empty effect")
	}
	return nil, errors.NotSupportedf("effect %q", kind)
}

// ParseChain builds a chain from descriptions in order.
func ParseChain(descs []string, sampleRate int) (*Chain, error) {
	c := NewChain()
	for _, d := range descs {
		e, err := Parse(d, sampleRate)
		if err != nil {
			return nil, errors.Trace(err)
		}
		c.Add(e)
	}
	return c, nil
}

func clamp(v, lo, hi float32) float32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
