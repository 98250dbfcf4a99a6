package effects

import "math"

// Distortion is a tanh overdrive followed by an optional low-pass.
type Distortion struct {
	preGain  float32
	postGain float32
	lpf      *LowPass
}

// NewDistortion creates an overdrive. A cutoff of 0 disables the filter.
func NewDistortion(sampleRate int, preGain, postGain, cutoff float32) *Distortion {
	d := &Distortion{preGain: preGain, postGain: postGain}
	if cutoff > 0 {
		d.lpf = NewLowPass(sampleRate, cutoff)
	}
	return d
}

func (d *Distortion) Process(x float32) float32 {
	y := float32(math.Tanh(float64(x*d.preGain))) * d.postGain
	if d.lpf != nil {
		y = d.lpf.Process(y)
	}
	return y
}

func (d *Distortion) Reset() {
	if d.lpf != nil {
		d.lpf.Reset()
	}
}
