package percussion

import (
	"github.com/cbegin/midisynth-go/internal/fixed"
	"github.com/cbegin/midisynth-go/internal/osc"
)

// Recipe describes one synthesized drum: a pitched body that sweeps from
// FreqStart to FreqEnd, mixed with held noise, under a linear-attack
// exponential-decay amplitude curve. Times are milliseconds; levels are
// out of 256.
type Recipe struct {
	Name       string
	Tone       osc.Shape
	FreqStart  uint16
	FreqEnd    uint16
	SweepMs    uint32
	ToneLevel  int32
	NoiseLevel int32
	NoiseHold  uint32 // ticks per noise value; lower values sound brighter
	AttackMs   uint32
	HalfLifeMs uint32
	LengthMs   uint32
}

func kick(name string, start, end uint16, sweep, half, length uint32) Recipe {
	return Recipe{Name: name, Tone: osc.Sine, FreqStart: start, FreqEnd: end, SweepMs: sweep,
		ToneLevel: 240, NoiseLevel: 16, NoiseHold: 8, HalfLifeMs: half, LengthMs: length}
}

func tom(name string, freq uint16) Recipe {
	return Recipe{Name: name, Tone: osc.Sine, FreqStart: freq * 3 / 2, FreqEnd: freq, SweepMs: 60,
		ToneLevel: 224, NoiseLevel: 32, NoiseHold: 4, AttackMs: 1, HalfLifeMs: 55, LengthMs: 450}
}

func snare(name string, freq uint16, half, length uint32) Recipe {
	return Recipe{Name: name, Tone: osc.Triangle, FreqStart: freq, FreqEnd: freq * 3 / 4, SweepMs: 30,
		ToneLevel: 110, NoiseLevel: 146, NoiseHold: 1, HalfLifeMs: half, LengthMs: length}
}

func hat(name string, half, length uint32) Recipe {
	return Recipe{Name: name, NoiseLevel: 256, NoiseHold: 1, HalfLifeMs: half, LengthMs: length}
}

func cymbal(name string, hold, half, length uint32) Recipe {
	return Recipe{Name: name, Tone: osc.Square, FreqStart: 5200, FreqEnd: 4800, SweepMs: length,
		ToneLevel: 40, NoiseLevel: 216, NoiseHold: hold, AttackMs: 2, HalfLifeMs: half, LengthMs: length}
}

func bell(name string, shape osc.Shape, freq uint16, half, length uint32) Recipe {
	return Recipe{Name: name, Tone: shape, FreqStart: freq, FreqEnd: freq,
		ToneLevel: 220, NoiseLevel: 36, NoiseHold: 2, AttackMs: 1, HalfLifeMs: half, LengthMs: length}
}

func hand(name string, shape osc.Shape, freq uint16, half, length uint32) Recipe {
	return Recipe{Name: name, Tone: shape, FreqStart: freq + freq/4, FreqEnd: freq, SweepMs: 20,
		ToneLevel: 200, NoiseLevel: 56, NoiseHold: 3, AttackMs: 1, HalfLifeMs: half, LengthMs: length}
}

func block(name string, freq uint16, half, length uint32) Recipe {
	return Recipe{Name: name, Tone: osc.Square, FreqStart: freq, FreqEnd: freq,
		ToneLevel: 200, NoiseLevel: 40, NoiseHold: 1, HalfLifeMs: half, LengthMs: length}
}

func shaker(name string, attack, half, length uint32) Recipe {
	return Recipe{Name: name, NoiseLevel: 200, NoiseHold: 1, AttackMs: attack, HalfLifeMs: half, LengthMs: length}
}

func whistle(name string, freq uint16, length uint32) Recipe {
	return Recipe{Name: name, Tone: osc.Sine, FreqStart: freq, FreqEnd: freq,
		ToneLevel: 230, NoiseLevel: 20, NoiseHold: 1, AttackMs: 10, HalfLifeMs: 4000, LengthMs: length}
}

func rasp(name string, length uint32) Recipe {
	return Recipe{Name: name, Tone: osc.Sawtooth, FreqStart: 40, FreqEnd: 30, SweepMs: length,
		ToneLevel: 120, NoiseLevel: 120, NoiseHold: 12, AttackMs: 5, HalfLifeMs: 2000, LengthMs: length}
}

func cuica(name string, start, end uint16, length uint32) Recipe {
	return Recipe{Name: name, Tone: osc.Triangle, FreqStart: start, FreqEnd: end, SweepMs: length,
		ToneLevel: 236, NoiseLevel: 20, NoiseHold: 2, AttackMs: 5, HalfLifeMs: length / 2, LengthMs: length}
}

// GMRecipes is the General MIDI percussion key map, notes 35 to 81.
var GMRecipes = [128]Recipe{
	35: kick("Acoustic Bass Drum", 120, 45, 40, 60, 400),
	36: kick("Bass Drum 1", 150, 50, 30, 50, 350),
	37: block("Side Stick", 1200, 8, 40),
	38: snare("Acoustic Snare", 220, 40, 250),
	39: {Name: "Hand Clap", NoiseLevel: 240, NoiseHold: 2, AttackMs: 2, HalfLifeMs: 25, LengthMs: 180},
	40: snare("Electric Snare", 260, 30, 200),
	41: tom("Low Floor Tom", 87),
	42: hat("Closed Hi-Hat", 12, 80),
	43: tom("High Floor Tom", 98),
	44: hat("Pedal Hi-Hat", 18, 110),
	45: tom("Low Tom", 110),
	46: hat("Open Hi-Hat", 90, 500),
	47: tom("Low-Mid Tom", 131),
	48: tom("Hi-Mid Tom", 147),
	49: cymbal("Crash Cymbal 1", 1, 250, 1500),
	50: tom("High Tom", 165),
	51: cymbal("Ride Cymbal 1", 2, 200, 1200),
	52: cymbal("Chinese Cymbal", 3, 180, 1000),
	53: bell("Ride Bell", osc.Square, 900, 150, 900),
	54: shaker("Tambourine", 3, 50, 250),
	55: cymbal("Splash Cymbal", 1, 120, 700),
	56: bell("Cowbell", osc.Square, 800, 60, 300),
	57: cymbal("Crash Cymbal 2", 1, 280, 1600),
	58: {Name: "Vibraslap", Tone: osc.Square, FreqStart: 180, FreqEnd: 140, SweepMs: 300,
		ToneLevel: 100, NoiseLevel: 120, NoiseHold: 6, AttackMs: 5, HalfLifeMs: 150, LengthMs: 800},
	59: cymbal("Ride Cymbal 2", 2, 220, 1300),
	60: hand("Hi Bongo", osc.Sine, 400, 40, 200),
	61: hand("Low Bongo", osc.Sine, 300, 45, 220),
	62: hand("Mute Hi Conga", osc.Sine, 350, 20, 120),
	63: hand("Open Hi Conga", osc.Sine, 330, 60, 300),
	64: hand("Low Conga", osc.Sine, 250, 70, 350),
	65: hand("High Timbale", osc.Triangle, 500, 60, 300),
	66: hand("Low Timbale", osc.Triangle, 380, 70, 350),
	67: bell("High Agogo", osc.Triangle, 1200, 80, 400),
	68: bell("Low Agogo", osc.Triangle, 850, 90, 450),
	69: shaker("Cabasa", 2, 30, 150),
	70: shaker("Maracas", 1, 20, 100),
	71: whistle("Short Whistle", 2500, 150),
	72: whistle("Long Whistle", 2300, 500),
	73: rasp("Short Guiro", 150),
	74: rasp("Long Guiro", 400),
	75: block("Claves", 2500, 15, 100),
	76: block("Hi Wood Block", 1800, 20, 120),
	77: block("Low Wood Block", 1300, 22, 140),
	78: cuica("Mute Cuica", 600, 400, 150),
	79: cuica("Open Cuica", 500, 700, 350),
	80: bell("Mute Triangle", osc.Sine, 4200, 40, 200),
	81: bell("Open Triangle", osc.Sine, 4200, 400, 1500),
}

// drum is a Recipe converted to output ticks.
type drum struct {
	tone                  osc.Shape
	freqStart, freqEnd    fixed.UQ16x16
	sweep                 uint32
	toneLevel, noiseLevel int32
	noiseHold             uint32
	attack, halfLife      uint32
	length                uint32
}

// SynthKit is the canonical General MIDI drum kit, synthesized from
// GMRecipes at a fixed output rate.
type SynthKit struct {
	rate  uint32
	drums [128]drum
}

// NewSynthKit builds the kit for sampleRate.
func NewSynthKit(sampleRate uint32) *SynthKit {
	k := &SynthKit{rate: sampleRate}
	ms := func(v uint32) uint32 { return uint32(uint64(v) * uint64(sampleRate) / 1000) }
	for note, r := range GMRecipes {
		if r.LengthMs == 0 {
			continue
		}
		hold := r.NoiseHold
		if hold == 0 {
			hold = 1
		}
		k.drums[note] = drum{
			tone:       r.Tone,
			freqStart:  fixed.Hz(r.FreqStart),
			freqEnd:    fixed.Hz(r.FreqEnd),
			sweep:      ms(r.SweepMs),
			toneLevel:  r.ToneLevel,
			noiseLevel: r.NoiseLevel,
			noiseHold:  hold,
			attack:     ms(r.AttackMs),
			halfLife:   max(ms(r.HalfLifeMs), 1),
			length:     max(ms(r.LengthMs), 1),
		}
	}
	return k
}

func (k *SynthKit) Generator() Generator { return Synth }
func (k *SynthKit) Data() any            { return k }
func (k *SynthKit) Name() string         { return "synth" }

// Has reports whether the kit sounds drum.
func (k *SynthKit) Has(note uint8) bool { return k.drums[note&0x7F].length != 0 }

// Length returns the maximum length of drum in ticks.
func (k *SynthKit) Length(note uint8) uint32 { return k.drums[note&0x7F].length }

// synthScratch is the SynthKit view of a voice's scratch words.
type synthScratch struct{ s *Scratch }

func (v synthScratch) phase() uint32        { return v.s[0] }
func (v synthScratch) setPhase(p uint32)    { v.s[0] = p }
func (v synthScratch) noise() int8          { return int8(v.s[1]) }
func (v synthScratch) setNoise(n int8)      { v.s[1] = uint32(uint8(n)) }
func (v synthScratch) holdLeft() uint32     { return v.s[2] }
func (v synthScratch) setHoldLeft(n uint32) { v.s[2] = n }

// Synth is the SynthKit generator. data must be the *SynthKit.
func Synth(note uint8, idx uint32, done *bool, s *Scratch, data any) int8 {
	k, _ := data.(*SynthKit)
	if k == nil {
		*done = true
		return 0
	}
	d := &k.drums[note&0x7F]
	if d.length == 0 {
		*done = true
		return 0
	}
	st := synthScratch{s}

	var tone int32
	if d.toneLevel != 0 {
		ph := st.phase()
		tone = int32(osc.Sample(d.tone, ph))
		freq := fixed.FreqLerp(d.freqStart, d.freqEnd, idx, d.sweep)
		st.setPhase(ph + osc.Step(freq, k.rate))
	}
	var noise int32
	if d.noiseLevel != 0 {
		if st.holdLeft() == 0 {
			st.setNoise(osc.NoiseAt(idx + uint32(note)<<24))
			st.setHoldLeft(d.noiseHold)
		}
		st.setHoldLeft(st.holdLeft() - 1)
		noise = int32(st.noise())
	}

	amp := fixed.LinearAttackExpDecay(idx, d.attack, d.halfLife, 256)
	if idx+1 >= d.length || (idx >= d.attack && amp == 0) {
		*done = true
	}
	mix := (tone*d.toneLevel + noise*d.noiseLevel) >> 8
	return clamp8((mix * amp) >> 8)
}
