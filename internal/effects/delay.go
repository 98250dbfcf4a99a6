package effects

// Delay is a feedback echo.
type Delay struct {
	buf      []float32
	pos      int
	feedback float32
	wet      float32
}

// NewDelay creates an echo delayMs long. feedback is clamped below 0.95 so
// the tail always dies away.
func NewDelay(sampleRate int, delayMs float64, feedback, wet float32) *Delay {
	n := max(int(delayMs*float64(sampleRate)/1000.0), 1)
	return &Delay{
		buf:      make([]float32, n),
		feedback: clamp(feedback, 0, 0.95),
		wet:      clamp(wet, 0, 1),
	}
}

func (d *Delay) Process(x float32) float32 {
	out := d.buf[d.pos]
	d.buf[d.pos] = x + out*d.feedback
	d.pos++
	if d.pos == len(d.buf) {
		d.pos = 0
	}
	return x*(1-d.wet) + out*d.wet
}

func (d *Delay) Reset() {
	clear(d.buf)
	d.pos = 0
}
