package effects

import "math"

// onePoleAlpha is the smoothing coefficient of an RC low-pass at cutoff.
func onePoleAlpha(sampleRate int, cutoff float32) float32 {
	rc := 1.0 / (2.0 * math.Pi * float64(cutoff))
	dt := 1.0 / float64(sampleRate)
	return float32(dt / (rc + dt))
}

// LowPass is a one-pole reconstruction filter. It takes the edge off the
// stair-stepped 8-bit output the way a DAC's analogue stage would.
type LowPass struct {
	alpha float32
	y     float32
}

// NewLowPass creates a low-pass at cutoff Hz. A cutoff at or above Nyquist
// passes the signal through untouched.
func NewLowPass(sampleRate int, cutoff float32) *LowPass {
	if cutoff <= 0 || cutoff >= float32(sampleRate)/2 {
		return &LowPass{alpha: 1}
	}
	return &LowPass{alpha: onePoleAlpha(sampleRate, cutoff)}
}

func (f *LowPass) Process(x float32) float32 {
	f.y += f.alpha * (x - f.y)
	return f.y
}

func (f *LowPass) Reset() { f.y = 0 }

// DCBlock removes any constant offset from the signal.
type DCBlock struct {
	prevIn, prevOut float32
}

func NewDCBlock() *DCBlock { return &DCBlock{} }

func (d *DCBlock) Process(x float32) float32 {
	const r = 0.995
	y := x - d.prevIn + r*d.prevOut
	d.prevIn, d.prevOut = x, y
	return y
}

func (d *DCBlock) Reset() { d.prevIn, d.prevOut = 0, 0 }

// EQ3Band splits the signal into low, mid and high bands with two one-pole
// crossovers and recombines them with per-band gains.
type EQ3Band struct {
	lowGain, midGain, highGain float32
	lpAlpha, hpAlpha           float32
	lp, hp                     float32
}

// NewEQ3Band creates a 3-band EQ. Gains are linear (1 = unity).
func NewEQ3Band(sampleRate int, lowGain, midGain, highGain, lowFreq, highFreq float32) *EQ3Band {
	return &EQ3Band{
		lowGain:  lowGain,
		midGain:  midGain,
		highGain: highGain,
		lpAlpha:  onePoleAlpha(sampleRate, lowFreq),
		hpAlpha:  onePoleAlpha(sampleRate, highFreq),
	}
}

func (eq *EQ3Band) Process(x float32) float32 {
	eq.lp += eq.lpAlpha * (x - eq.lp)
	eq.hp += eq.hpAlpha * (x - eq.hp)
	low := eq.lp
	high := x - eq.hp
	mid := x - low - high
	return low*eq.lowGain + mid*eq.midGain + high*eq.highGain
}

func (eq *EQ3Band) Reset() { eq.lp, eq.hp = 0, 0 }
