package effects

import "math"

// Compressor is a feed-forward peak compressor.
type Compressor struct {
	threshold float32
	ratio     float32
	attack    float32 // coefficient
	release   float32 // coefficient
	makeup    float32
	env       float32
}

// NewCompressor creates a compressor. thresholdDB and makeupDB are in
// decibels, ratio is n:1.
func NewCompressor(sampleRate int, thresholdDB, ratio, attackMs, releaseMs, makeupDB float32) *Compressor {
	sr := float64(sampleRate)
	coeff := func(ms float32) float32 {
		if ms <= 0 {
			return 1
		}
		return float32(1.0 - math.Exp(-1.0/(float64(ms)*sr/1000.0)))
	}
	return &Compressor{
		threshold: float32(math.Pow(10, float64(thresholdDB)/20)),
		ratio:     max(ratio, 1),
		attack:    coeff(attackMs),
		release:   coeff(releaseMs),
		makeup:    float32(math.Pow(10, float64(makeupDB)/20)),
	}
}

func (c *Compressor) Process(x float32) float32 {
	a := float32(math.Abs(float64(x)))
	if a > c.env {
		c.env += c.attack * (a - c.env)
	} else {
		c.env += c.release * (a - c.env)
	}
	return x * c.gain() * c.makeup
}

func (c *Compressor) gain() float32 {
	if c.env <= c.threshold || c.threshold <= 0 {
		return 1
	}
	over := c.env / c.threshold
	return float32(math.Pow(float64(over), float64(1/c.ratio-1)))
}

func (c *Compressor) Reset() { c.env = 0 }
