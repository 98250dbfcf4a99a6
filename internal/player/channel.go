package player

import (
	"github.com/cbegin/midisynth-go/internal/fixed"
	"github.com/cbegin/midisynth-go/internal/lfo"
	"github.com/cbegin/midisynth-go/internal/timbre"
)

// NumChannels is the number of MIDI channels.
const NumChannels = 16

// PercussionChannel is the General MIDI drum channel (10, zero-based 9).
const PercussionChannel = 9

// Controller numbers.
const (
	CCModulation     = 1
	CCDataEntry      = 6
	CCVolume         = 7
	CCExpression     = 11
	CCDataEntryLSB   = 38
	CCVolumeLSB      = 39
	CCSustain        = 64
	CCNRPNLSB        = 98
	CCNRPNMSB        = 99
	CCRPNLSB         = 100
	CCRPNMSB         = 101
	CCAllSoundOff    = 120
	CCResetAll       = 121
	CCAllNotesOff    = 123
	rpnBendRange     = 0x0000
	rpnNull          = 0x3FFF
	maxVolume        = 0x3FFF
	bendCentre       = 0x2000
	defaultBendRange = 200 // cents
	maxVibrato       = 50  // cents at full modulation
)

var vibratoRate = fixed.Hz(5) + fixed.One16/2

// Channel is one addressable MIDI channel.
type Channel struct {
	program    int
	timbre     *timbre.Timbre
	voices     []Voice
	on         VoiceSet // key still down
	held       VoiceSet // key up, kept sounding by the sustain pedal
	volume     int      // 14-bit
	expression int
	bend       int // 14-bit, centre 0x2000
	bendRange  int32
	sustain    bool
	percussion bool
	modulation int
	rpn        int
	vibrato    lfo.LFO
	vibWave    lfo.Waveform
	vibCents   int32
	gain       int32 // volume scaled by expression, 14-bit
}

func (c *Channel) resetControllers() {
	c.expression = 127
	c.bend = bendCentre
	c.sustain = false
	c.modulation = 0
	c.rpn = rpnNull
	c.vibrato.Set(0, vibratoRate, c.vibWave)
	c.vibrato.Reset()
	c.updateGain()
}

func (c *Channel) updateGain() {
	c.gain = int32(c.volume * c.expression / 127)
}

// bendCents is the pitch offset of the wheel plus vibrato.
func (c *Channel) bendCents() int32 {
	return int32(c.bend-bendCentre)*c.bendRange/bendCentre + c.vibCents
}

// Program returns the selected program.
func (c *Channel) Program() int { return c.program }

// Timbre returns the bound timbre.
func (c *Channel) Timbre() *timbre.Timbre { return c.timbre }

// Volume returns the 14-bit channel volume.
func (c *Channel) Volume() int { return c.volume }

// Bend returns the 14-bit pitch wheel position.
func (c *Channel) Bend() int { return c.bend }

// BendRange returns the pitch wheel range in cents.
func (c *Channel) BendRange() int32 { return c.bendRange }

// Sustain reports whether the hold pedal is down.
func (c *Channel) Sustain() bool { return c.sustain }

// Percussion reports whether the channel plays the drum kit.
func (c *Channel) Percussion() bool { return c.percussion }

// On returns the voices whose key is down.
func (c *Channel) On() VoiceSet { return c.on }

// Held returns the voices kept by the sustain pedal.
func (c *Channel) Held() VoiceSet { return c.held }

// Vibrato returns the modulation wheel LFO.
func (c *Channel) Vibrato() *lfo.LFO { return &c.vibrato }

// Voices returns the channel's voice pool.
func (c *Channel) Voices() []Voice { return c.voices }
