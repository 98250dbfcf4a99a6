// Package player is the synthesizer core: sixteen MIDI channels, their voice
// pools, the percussion pool and FillBuffer, the only function the audio
// driver calls.
//
// A Player is single-threaded. Every method must run on the goroutine that
// calls FillBuffer; other goroutines hand work over through Enqueue.
package player

import (
	"sync/atomic"

	"github.com/juju/errors"
	"github.com/juju/loggo"

	"github.com/cbegin/midisynth-go/internal/envelope"
	"github.com/cbegin/midisynth-go/internal/fixed"
	"github.com/cbegin/midisynth-go/internal/lfo"
	"github.com/cbegin/midisynth-go/internal/midifile"
	"github.com/cbegin/midisynth-go/internal/timbre"
)

var logger = loggo.GetLogger("midisynth.player")

// Mode is the player's input source.
type Mode uint8

const (
	Streaming Mode = iota
	File
)

func (m Mode) String() string {
	if m == File {
		return "file"
	}
	return "streaming"
}

// EventKind identifies song lifecycle events.
type EventKind int

const (
	EventSongEnded EventKind = iota
	EventSongLooped
)

// controlPeriod is how often, in ticks, vibrato is recomputed.
const controlPeriod = 32

// Config controls a Player.
type Config struct {
	SampleRate       uint32
	VoicesPerChannel int
	PercussionVoices int
	Volume           int // master volume, Q8.8 (256 = unity)
	Loop             bool
	// ReleaseTail is how many silent ticks follow the last voice before a
	// song counts as ended (0 = SampleRate/10).
	ReleaseTail uint32
	QueueSize   int
	// VibratoWave shapes the modulation wheel vibrato.
	VibratoWave lfo.Waveform
	// OnEvent is called from FillBuffer; keep it brief and non-blocking.
	OnEvent func(EventKind)
	Bank    *timbre.Bank
}

// DefaultConfig returns the defaults for a 22050 Hz DAC.
func DefaultConfig() Config {
	return Config{
		SampleRate:       22050,
		VoicesPerChannel: 4,
		PercussionVoices: 8,
		Volume:           envelope.Unity,
		QueueSize:        256,
	}
}

// Stats are diagnostic counters. They are safe to read from any goroutine.
type Stats struct {
	Clipped uint64 // output samples clamped to the 8-bit range
	Stolen  uint64 // notes that took a voice from another note
	Dropped uint64 // commands rejected by a full queue or the wrong mode
}

// Player is the synthesizer.
type Player struct {
	cfg      Config
	bank     *timbre.Bank
	channels [NumChannels]Channel
	drums    []Voice
	drumOn   VoiceSet
	voices   []*Voice // every voice of every pool
	volume   int32
	serial   uint64
	tick     uint64 // output samples since Reset

	mode       Mode
	file       *midifile.Reader
	clock      midifile.Clock
	pending    midifile.Event
	hasPending bool
	due        uint64
	tail       uint32
	ended      bool

	queue   *queue
	clipped atomic.Uint64
	stolen  atomic.Uint64
	dropped atomic.Uint64
}

// New creates a Player. Only configuration errors are reported; nothing the
// player does afterwards can fail.
func New(cfg Config) (*Player, error) {
	if cfg.SampleRate < 256 {
		return nil, errors.NotValidf("sample rate %d", cfg.SampleRate)
	}
	if cfg.VoicesPerChannel < 1 || cfg.VoicesPerChannel > MaxVoices {
		return nil, errors.NotValidf("%d voices per channel", cfg.VoicesPerChannel)
	}
	if cfg.PercussionVoices < 1 || cfg.PercussionVoices > MaxVoices {
		return nil, errors.NotValidf("%d percussion voices", cfg.PercussionVoices)
	}
	if cfg.ReleaseTail == 0 {
		cfg.ReleaseTail = cfg.SampleRate / 10
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = DefaultConfig().QueueSize
	}
	bank := cfg.Bank
	if bank == nil {
		bank = timbre.NewBank(cfg.SampleRate, nil)
	}

	p := &Player{
		cfg:   cfg,
		bank:  bank,
		drums: make([]Voice, cfg.PercussionVoices),
		queue: newQueue(cfg.QueueSize),
	}
	for ch := range p.channels {
		c := &p.channels[ch]
		c.vibWave = cfg.VibratoWave
		c.voices = make([]Voice, cfg.VoicesPerChannel)
		for i := range c.voices {
			p.voices = append(p.voices, &c.voices[i])
		}
	}
	for i := range p.drums {
		p.voices = append(p.voices, &p.drums[i])
	}
	p.Reset()
	p.SetVolume(cfg.Volume)
	logger.Debugf("player: %d Hz, %d voices per channel, %d percussion voices",
		cfg.SampleRate, cfg.VoicesPerChannel, cfg.PercussionVoices)
	return p, nil
}

// Config returns the configuration the player was built with.
func (p *Player) Config() Config { return p.cfg }

// SampleRate returns the output rate.
func (p *Player) SampleRate() uint32 { return p.cfg.SampleRate }

// Reset silences everything, restores every channel to its power-on state
// and returns to streaming mode.
func (p *Player) Reset() {
	for ch := range p.channels {
		c := &p.channels[ch]
		c.volume = maxVolume
		c.bendRange = defaultBendRange
		c.vibCents = 0
		c.percussion = ch == PercussionChannel
		c.resetControllers()
		p.setProgram(ch, 0)
	}
	p.resetVoices()
	p.clock = midifile.NewClock(p.cfg.SampleRate, 1)
	p.mode = Streaming
	p.file = nil
	p.hasPending = false
	p.ended = false
	p.tick = 0
	p.serial = 0
}

func (p *Player) resetVoices() {
	for ch := range p.channels {
		c := &p.channels[ch]
		for i := range c.voices {
			c.voices[i].channel = ch
			c.voices[i].slot = i
			c.voices[i].free()
		}
		c.on, c.held = 0, 0
	}
	for i := range p.drums {
		p.drums[i].channel = PercussionChannel
		p.drums[i].slot = i
		p.drums[i].free()
	}
	p.drumOn = 0
}

// Channel returns channel ch for inspection, or nil.
func (p *Player) Channel(ch int) *Channel {
	if ch < 0 || ch >= NumChannels {
		return nil
	}
	return &p.channels[ch]
}

// Mode returns the current input mode.
func (p *Player) Mode() Mode { return p.mode }

// Tempo returns the file tempo in microseconds per quarter note.
func (p *Player) Tempo() uint32 { return p.clock.Tempo() }

// Volume returns the master volume.
func (p *Player) Volume() int { return int(p.volume) }

// ActiveVoices counts voices that are sounding.
func (p *Player) ActiveVoices() int {
	n := 0
	for _, v := range p.voices {
		if !v.Idle() {
			n++
		}
	}
	return n
}

// Stats returns the diagnostic counters.
func (p *Player) Stats() Stats {
	return Stats{
		Clipped: p.clipped.Load(),
		Stolen:  p.stolen.Load(),
		Dropped: p.dropped.Load(),
	}
}

// Enqueue records cmd for execution at the start of the next FillBuffer.
// It may be called from one goroutine other than the audio goroutine at a
// time. A full queue drops the command and reports false.
func (p *Player) Enqueue(cmd Command) bool {
	if !p.queue.push(cmd) {
		p.dropped.Add(1)
		return false
	}
	return true
}

// Pending returns the number of queued commands.
func (p *Player) Pending() int { return p.queue.len() }

func (p *Player) drain() {
	for {
		cmd, ok := p.queue.pop()
		if !ok {
			return
		}
		p.Apply(cmd)
	}
}

// Apply runs cmd immediately.
func (p *Player) Apply(cmd Command) {
	switch cmd.Op {
	case OpNoteOn:
		p.NoteOn(cmd.Channel, cmd.A, cmd.B)
	case OpNoteOff:
		p.NoteOff(cmd.Channel, cmd.A, cmd.B)
	case OpProgram:
		p.SetProgram(cmd.Channel, cmd.A)
	case OpControl:
		p.ControlChange(cmd.Channel, cmd.A, cmd.B)
	case OpPitchWheel:
		p.PitchWheel(cmd.Channel, cmd.A)
	case OpAllSoundOff:
		p.AllSoundOff()
	case OpAllNotesOff:
		p.AllNotesOff(cmd.Channel)
	case OpVolume:
		p.SetVolume(cmd.A)
	case OpPercussion:
		p.SetPercussion(cmd.Channel, cmd.A != 0)
	case OpSetFile:
		p.SetFile(cmd.File)
	case OpStream:
		p.SetFile(nil)
	case OpReset:
		p.Reset()
	}
}

// live reports whether streaming calls are accepted. In file mode the file
// owns the channels and live input is dropped.
func (p *Player) live() bool {
	if p.mode == File {
		p.dropped.Add(1)
		return false
	}
	return true
}

func validChannel(ch int) bool { return ch >= 0 && ch < NumChannels }

func clamp7(v int) int { return min(max(v, 0), 127) }

// NoteOn starts note on ch. Velocity 0 is a note-off.
func (p *Player) NoteOn(ch, note, velocity int) {
	if p.live() {
		p.noteOn(ch, note, velocity)
	}
}

// NoteOff releases note on ch, or defers the release while the sustain
// pedal is down.
func (p *Player) NoteOff(ch, note, velocity int) {
	if p.live() {
		p.noteOff(ch, note)
	}
}

// SetProgram rebinds ch to program.
func (p *Player) SetProgram(ch, program int) {
	if p.live() {
		p.setProgram(ch, program)
	}
}

// ControlChange applies a controller. Unknown controllers are ignored.
func (p *Player) ControlChange(ch, control, value int) {
	if p.live() {
		p.controlChange(ch, control, value)
	}
}

// PitchWheel sets the 14-bit wheel position of ch (centre 0x2000).
func (p *Player) PitchWheel(ch, value int) {
	if p.live() {
		p.pitchWheel(ch, value)
	}
}

// SetPercussion marks ch as a drum channel or a melodic one.
func (p *Player) SetPercussion(ch int, on bool) {
	if !validChannel(ch) || !p.live() {
		return
	}
	c := &p.channels[ch]
	if c.percussion == on {
		return
	}
	p.channelSoundOff(ch)
	c.percussion = on
	p.setProgram(ch, c.program)
}

// SetVolume sets the master volume, Q8.8 with 256 as unity. Negative values
// clamp to silence.
func (p *Player) SetVolume(v int) {
	p.volume = int32(min(max(v, 0), 4*envelope.Unity))
}

// AllSoundOff silences every voice at once, ignoring the sustain pedal.
func (p *Player) AllSoundOff() {
	for ch := range p.channels {
		p.channelSoundOff(ch)
	}
}

// AllNotesOff releases every key that is down on ch, respecting sustain.
func (p *Player) AllNotesOff(ch int) {
	if !validChannel(ch) {
		return
	}
	c := &p.channels[ch]
	for on := c.on; !on.Empty(); {
		p.releaseSlot(c, on.Pop())
	}
}

func (p *Player) channelSoundOff(ch int) {
	c := &p.channels[ch]
	for i := range c.voices {
		c.voices[i].free()
	}
	c.on, c.held = 0, 0
	for i := range p.drums {
		if p.drums[i].channel == ch {
			p.drums[i].free()
			p.drumOn.Remove(i)
		}
	}
}

func (p *Player) noteOn(ch, note, velocity int) {
	if !validChannel(ch) || note < 0 || note > 127 {
		return
	}
	velocity = clamp7(velocity)
	if velocity == 0 {
		p.noteOff(ch, note)
		return
	}
	c := &p.channels[ch]
	p.serial++

	if c.percussion {
		slot, stolen := pickVoice(p.drums, 0, ch, note)
		if stolen {
			p.stolen.Add(1)
		}
		v := &p.drums[slot]
		p.bind(v, c.timbre, note, velocity, true)
		v.channel = ch
		c.timbre.Start(&v.st, uint8(note), 0, p.cfg.SampleRate)
		p.drumOn.Add(slot)
		return
	}

	slot, stolen := pickVoice(c.voices, c.held, ch, note)
	if stolen {
		p.stolen.Add(1)
	}
	v := &c.voices[slot]
	p.bind(v, c.timbre, note, velocity, false)
	c.timbre.Start(&v.st, uint8(note), p.voiceFreq(c, note), p.cfg.SampleRate)
	v.env.Start(&c.timbre.Env, uint8(velocity))
	c.held.Remove(slot)
	c.on.Add(slot)
}

func (p *Player) bind(v *Voice, t *timbre.Timbre, note, velocity int, perc bool) {
	v.note = note
	v.velocity = uint8(velocity)
	v.perc = perc
	v.serial = p.serial
	v.timbre = t
}

func (p *Player) voiceFreq(c *Channel, note int) fixed.UQ16x16 {
	return fixed.BendPitchFreq(fixed.NoteFreq(uint8(note)), c.bendCents())
}

func (p *Player) noteOff(ch, note int) {
	if !validChannel(ch) || note < 0 || note > 127 {
		return
	}
	c := &p.channels[ch]
	if c.percussion {
		return
	}
	for on := c.on; !on.Empty(); {
		i := on.Pop()
		if c.voices[i].note == note {
			p.releaseSlot(c, i)
		}
	}
}

func (p *Player) releaseSlot(c *Channel, i int) {
	c.on.Remove(i)
	if c.sustain {
		c.held.Add(i)
		return
	}
	c.voices[i].env.Release()
}

func (p *Player) setProgram(ch, program int) {
	if !validChannel(ch) {
		return
	}
	c := &p.channels[ch]
	c.program = clamp7(program)
	if c.percussion {
		c.timbre = p.bank.Drumkit(c.program)
	} else {
		c.timbre = p.bank.Program(c.program)
	}
}

func (p *Player) pitchWheel(ch, value int) {
	if !validChannel(ch) {
		return
	}
	c := &p.channels[ch]
	c.bend = min(max(value, 0), 0x3FFF)
	p.retune(c)
}

// retune reapplies the channel's bend to every sounding melodic voice.
func (p *Player) retune(c *Channel) {
	if c.percussion {
		return
	}
	cents := c.bendCents()
	for i := range c.voices {
		v := &c.voices[i]
		if v.Idle() {
			continue
		}
		v.timbre.Retune(&v.st, fixed.BendPitchFreq(fixed.NoteFreq(uint8(v.note)), cents))
	}
}

func (p *Player) controlChange(ch, control, value int) {
	if !validChannel(ch) || control < 0 || control > 127 {
		return
	}
	c := &p.channels[ch]
	value = clamp7(value)
	switch control {
	case CCModulation:
		c.modulation = value
		c.vibrato.SetDepth(int32(value * maxVibrato / 127))
	case CCVolume:
		c.volume = value<<7 | c.volume&0x7F
		c.updateGain()
	case CCVolumeLSB:
		c.volume = c.volume&^0x7F | value
		c.updateGain()
	case CCExpression:
		c.expression = value
		c.updateGain()
	case CCSustain:
		down := value >= 64
		if c.sustain && !down {
			for held := c.held; !held.Empty(); {
				c.voices[held.Pop()].env.Release()
			}
			c.held = 0
		}
		c.sustain = down
	case CCRPNMSB:
		c.rpn = value<<7 | c.rpn&0x7F
	case CCRPNLSB:
		c.rpn = c.rpn&^0x7F | value
	case CCNRPNMSB, CCNRPNLSB:
		c.rpn = rpnNull
	case CCDataEntry:
		if c.rpn == rpnBendRange {
			c.bendRange = int32(value)*100 + c.bendRange%100
			p.retune(c)
		}
	case CCDataEntryLSB:
		if c.rpn == rpnBendRange {
			c.bendRange = c.bendRange/100*100 + int32(min(value, 99))
			p.retune(c)
		}
	case CCAllSoundOff:
		p.channelSoundOff(ch)
	case CCResetAll:
		if c.sustain {
			p.controlChange(ch, CCSustain, 0)
		}
		c.resetControllers()
		c.vibCents = 0
		p.retune(c)
	case CCAllNotesOff:
		p.AllNotesOff(ch)
	}
}

// controlTick advances every channel's vibrato by one control period.
func (p *Player) controlTick() {
	for ch := range p.channels {
		c := &p.channels[ch]
		cents := c.vibrato.Advance(controlPeriod, p.cfg.SampleRate)
		if cents != c.vibCents {
			c.vibCents = cents
			p.retune(c)
		}
	}
}

// FillBuffer renders len(buf) output ticks. It never blocks, allocates or
// fails.
func (p *Player) FillBuffer(buf []int8) {
	p.drain()
	for i := range buf {
		if p.mode == File {
			p.advanceFile()
		}
		if p.tick%controlPeriod == 0 {
			p.controlTick()
		}
		var sum int32
		for _, v := range p.voices {
			if !v.Idle() {
				sum += p.render(v)
			}
		}
		out, clipped := fixed.ClampInt8(sum * p.volume >> 8)
		if clipped {
			p.clipped.Add(1)
		}
		buf[i] = out
		p.tick++
	}
}

// render produces one tick of v, scaled by its envelope and channel gain,
// and frees v when it has finished.
func (p *Player) render(v *Voice) int32 {
	c := &p.channels[v.channel]
	if v.perc {
		s := int32(v.timbre.Next(&v.st)) * int32(v.velocity) / 127
		if v.st.Done {
			v.free()
			p.drumOn.Remove(v.slot)
		}
		return s * c.gain >> 14
	}
	level := v.env.Tick()
	s := int32(v.timbre.Next(&v.st)) * level >> 8
	if !v.env.Active() || v.st.Done {
		v.free()
		c.on.Remove(v.slot)
		c.held.Remove(v.slot)
	}
	return s * c.gain >> 14
}
