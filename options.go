package midisynth

import (
	"github.com/juju/errors"

	"github.com/cbegin/midisynth-go/internal/lfo"
	"github.com/cbegin/midisynth-go/internal/percussion"
	"github.com/cbegin/midisynth-go/internal/player"
	"github.com/cbegin/midisynth-go/internal/timbre"
)

// Option configures a Synth or an offline render.
type Option func(*options)

type options struct {
	sampleRate       uint32
	voicesPerChannel int
	percussionVoices int
	volume           int
	loop             bool
	kitPaths         map[int]string
	samples          map[int]SampleProgram
	wavetables       map[int][]int8
	tap              func([]int8)
	backend          string
	effects          []string
	queueSize        int
	vibratoWave      string
}

func defaultOptions() options {
	d := player.DefaultConfig()
	return options{
		sampleRate:       d.SampleRate,
		voicesPerChannel: d.VoicesPerChannel,
		percussionVoices: d.PercussionVoices,
		volume:           d.Volume,
		queueSize:        d.QueueSize,
	}
}

// WithSampleRate sets the output rate in Hz.
func WithSampleRate(hz uint32) Option {
	return func(o *options) { o.sampleRate = hz }
}

// WithVoicesPerChannel sets the size of each melodic channel's voice pool.
func WithVoicesPerChannel(n int) Option {
	return func(o *options) { o.voicesPerChannel = n }
}

// WithPercussionVoices sets the size of the shared drum voice pool.
func WithPercussionVoices(n int) Option {
	return func(o *options) { o.percussionVoices = n }
}

// WithLoop restarts a file when it ends instead of stopping.
func WithLoop(enabled bool) Option {
	return func(o *options) { o.loop = enabled }
}

// WithVolume sets the master volume, Q8.8 with 256 as unity.
func WithVolume(q8 int) Option {
	return func(o *options) { o.volume = q8 }
}

// WithSampleKit plays the given drum notes from WAV files. Notes without a
// file keep their synthesized sound.
func WithSampleKit(paths map[int]string) Option {
	return func(o *options) { o.kitPaths = paths }
}

// WithWavetable replaces a program's waveform with a single-cycle table.
func WithWavetable(program int, table []int8) Option {
	return func(o *options) {
		if o.wavetables == nil {
			o.wavetables = map[int][]int8{}
		}
		o.wavetables[program] = table
	}
}

// SampleProgram is a recorded instrument: a WAV file played at RootKey's
// pitch and resampled for other keys. Loop points are in samples; a zero
// LoopEnd plays the recording once.
type SampleProgram struct {
	Path      string `yaml:"file"`
	RootKey   int    `yaml:"root_key"`
	LoopStart uint32 `yaml:"loop_start"`
	LoopEnd   uint32 `yaml:"loop_end"`
}

// WithSampleProgram replaces a melodic program with a recorded instrument.
func WithSampleProgram(program int, sp SampleProgram) Option {
	return func(o *options) {
		if o.samples == nil {
			o.samples = map[int]SampleProgram{}
		}
		o.samples[program] = sp
	}
}

// WithSampleTap installs a callback invoked with each generated 8-bit buffer.
// The callback runs on the audio thread; keep work brief and non-blocking.
func WithSampleTap(tap func([]int8)) Option {
	return func(o *options) { o.tap = tap }
}

// WithBackend selects the live audio backend ("ebiten" or "oto").
func WithBackend(name string) Option {
	return func(o *options) { o.backend = name }
}

// WithEffects adds post-DAC effects to live playback, in order. Each entry
// has the form "type p1,p2,..." (for example "lowpass 4000").
func WithEffects(descs ...string) Option {
	return func(o *options) { o.effects = append(o.effects, descs...) }
}

// WithVibratoWave selects the modulation wheel vibrato shape: "triangle"
// (the default), "saw", "square" or "random".
func WithVibratoWave(name string) Option {
	return func(o *options) { o.vibratoWave = name }
}

// WithQueueSize sets how many live commands may wait for the audio thread.
func WithQueueSize(n int) Option {
	return func(o *options) { o.queueSize = n }
}

func buildOptions(opts []Option) options {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// bank loads the drum kit, custom wavetables and sampled programs.
func (o *options) bank() (*timbre.Bank, error) {
	var kit percussion.Kit
	if len(o.kitPaths) > 0 {
		sk, err := percussion.LoadSampleKit(o.kitPaths, percussion.NewSynthKit(o.sampleRate), o.sampleRate)
		if err != nil {
			return nil, errors.Annotate(err, "sample kit")
		}
		kit = sk
	}
	b := timbre.NewBank(o.sampleRate, kit)
	for p, table := range o.wavetables {
		if err := b.SetWavetable(p, table); err != nil {
			return nil, errors.Trace(err)
		}
	}
	for p, sp := range o.samples {
		smp, err := percussion.LoadSample(sp.Path)
		if err != nil {
			return nil, errors.Annotatef(err, "program %d sample", p)
		}
		if err := b.SetSample(p, smp.Data, smp.Rate, sp.RootKey, sp.LoopStart, sp.LoopEnd); err != nil {
			return nil, errors.Annotatef(err, "program %d sample %s", p, sp.Path)
		}
	}
	return b, nil
}

func (o *options) playerConfig(onEvent func(player.EventKind)) (player.Config, error) {
	wave, err := lfo.ParseWaveform(o.vibratoWave)
	if err != nil {
		return player.Config{}, err
	}
	b, err := o.bank()
	if err != nil {
		return player.Config{}, err
	}
	return player.Config{
		SampleRate:       o.sampleRate,
		VoicesPerChannel: o.voicesPerChannel,
		PercussionVoices: o.percussionVoices,
		Volume:           o.volume,
		Loop:             o.loop,
		QueueSize:        o.queueSize,
		VibratoWave:      wave,
		OnEvent:          onEvent,
		Bank:             b,
	}, nil
}
