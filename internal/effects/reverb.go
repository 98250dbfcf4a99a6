package effects

// Reverb is a small Schroeder reverb: four parallel combs into two allpass
// stages.
type Reverb struct {
	combs   [4]ringFilter
	allpass [2]ringFilter
	wet     float32
}

// ringFilter is a delay line with feedback, used both as a comb and as an
// allpass.
type ringFilter struct {
	buf []float32
	pos int
	fb  float32
}

func newRing(n int, fb float32) ringFilter {
	return ringFilter{buf: make([]float32, max(n, 1)), fb: fb}
}

func (f *ringFilter) advance(in float32) float32 {
	out := f.buf[f.pos]
	f.buf[f.pos] = in + out*f.fb
	f.pos++
	if f.pos == len(f.buf) {
		f.pos = 0
	}
	return out
}

func (f *ringFilter) comb(in float32) float32 { return f.advance(in) }

func (f *ringFilter) allpass(in float32) float32 { return f.advance(in) - in }

func (f *ringFilter) reset() {
	clear(f.buf)
	f.pos = 0
}

// NewReverb creates a reverb. roomSize scales the delay lengths, feedback
// sets the decay and wet the mix, all in 0..1.
func NewReverb(sampleRate int, roomSize, feedback, wet float32) *Reverb {
	base := max(int(float32(sampleRate)*roomSize*0.05), 10)
	fb := clamp(feedback, 0, 0.95)
	r := &Reverb{wet: clamp(wet, 0, 1)}
	for i, ratio := range [4]int{1000, 1117, 1271, 1437} {
		r.combs[i] = newRing(base*ratio/1000, fb)
	}
	for i, ratio := range [2]int{347, 213} {
		r.allpass[i] = newRing(base*ratio/1000, 0.5)
	}
	return r
}

func (r *Reverb) Process(x float32) float32 {
	var out float32
	for i := range r.combs {
		out += r.combs[i].comb(x)
	}
	out *= 0.25
	for i := range r.allpass {
		out = r.allpass[i].allpass(out)
	}
	return x*(1-r.wet) + out*r.wet
}

func (r *Reverb) Reset() {
	for i := range r.combs {
		r.combs[i].reset()
	}
	for i := range r.allpass {
		r.allpass[i].reset()
	}
}
