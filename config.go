package midisynth

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/juju/errors"
	"gopkg.in/yaml.v2"

	"github.com/cbegin/midisynth-go/internal/lfo"
	"github.com/cbegin/midisynth-go/internal/timbre"
)

// Config is the YAML file form of the synthesizer options. Zero fields keep
// their defaults.
type Config struct {
	SampleRate       uint32                `yaml:"sample_rate"`
	VoicesPerChannel int                   `yaml:"voices_per_channel"`
	PercussionVoices int                   `yaml:"percussion_voices"`
	Volume           *int                  `yaml:"volume"`
	Loop             bool                  `yaml:"loop"`
	Backend          string                `yaml:"backend"`
	SampleKit        map[int]string        `yaml:"sample_kit"` // drum note -> WAV path
	LowpassHz        float64               `yaml:"lowpass_hz"`
	DelayMs          float64               `yaml:"delay_ms"`
	Effects          []string              `yaml:"effects"`
	Wavetables       map[int]string        `yaml:"wavetables"` // program -> hex table
	Samples          map[int]SampleProgram `yaml:"samples"`    // program -> recording
	VibratoWave      string                `yaml:"vibrato_wave"`
}

// LoadConfig reads a YAML config. Relative sample paths are resolved against
// the file's directory.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Trace(err)
	}
	cfg, err := ParseConfig(data)
	if err != nil {
		return nil, errors.Annotatef(err, "config %s", path)
	}
	dir := filepath.Dir(path)
	for note, p := range cfg.SampleKit {
		if !filepath.IsAbs(p) {
			cfg.SampleKit[note] = filepath.Join(dir, p)
		}
	}
	for program, sp := range cfg.Samples {
		if !filepath.IsAbs(sp.Path) {
			sp.Path = filepath.Join(dir, sp.Path)
			cfg.Samples[program] = sp
		}
	}
	logger.Debugf("loaded config %s", path)
	return cfg, nil
}

// ParseConfig decodes and validates a YAML config.
func ParseConfig(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.UnmarshalStrict(data, &cfg); err != nil {
		return nil, errors.NewNotValid(err, "yaml")
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch {
	case c.VoicesPerChannel < 0:
		return errors.NotValidf("voices_per_channel %d", c.VoicesPerChannel)
	case c.PercussionVoices < 0:
		return errors.NotValidf("percussion_voices %d", c.PercussionVoices)
	case c.Volume != nil && *c.Volume < 0:
		return errors.NotValidf("volume %d", *c.Volume)
	case c.LowpassHz < 0:
		return errors.NotValidf("lowpass_hz %v", c.LowpassHz)
	case c.DelayMs < 0:
		return errors.NotValidf("delay_ms %v", c.DelayMs)
	}
	for note := range c.SampleKit {
		if note < 0 || note > 127 {
			return errors.NotValidf("sample_kit note %d", note)
		}
	}
	if _, err := lfo.ParseWaveform(c.VibratoWave); err != nil {
		return err
	}
	if _, err := c.wavetables(); err != nil {
		return err
	}
	for p, sp := range c.Samples {
		switch {
		case p < 0 || p > 127:
			return errors.NotValidf("sample program %d", p)
		case sp.Path == "":
			return errors.NotValidf("sample program %d without file", p)
		case sp.RootKey < 0 || sp.RootKey > 127:
			return errors.NotValidf("sample program %d root key %d", p, sp.RootKey)
		case sp.LoopStart > sp.LoopEnd:
			return errors.NotValidf("sample program %d loop %d..%d", p, sp.LoopStart, sp.LoopEnd)
		}
	}
	return nil
}

func (c *Config) wavetables() (map[int][]int8, error) {
	tables := make(map[int][]int8, len(c.Wavetables))
	for p, h := range c.Wavetables {
		if p < 0 || p > 127 {
			return nil, errors.NotValidf("wavetable program %d", p)
		}
		t, err := timbre.ParseWavetable(h)
		if err != nil {
			return nil, errors.Annotatef(err, "wavetable %d", p)
		}
		tables[p] = t
	}
	return tables, nil
}

// Options converts the config into Synth options. It fails only on a
// wavetable that does not parse, which ParseConfig would have rejected.
func (c *Config) Options() ([]Option, error) {
	tables, err := c.wavetables()
	if err != nil {
		return nil, err
	}
	var opts []Option
	if c.SampleRate > 0 {
		opts = append(opts, WithSampleRate(c.SampleRate))
	}
	if c.VoicesPerChannel > 0 {
		opts = append(opts, WithVoicesPerChannel(c.VoicesPerChannel))
	}
	if c.PercussionVoices > 0 {
		opts = append(opts, WithPercussionVoices(c.PercussionVoices))
	}
	if c.Volume != nil {
		opts = append(opts, WithVolume(*c.Volume))
	}
	if c.Loop {
		opts = append(opts, WithLoop(true))
	}
	if c.Backend != "" {
		opts = append(opts, WithBackend(c.Backend))
	}
	if len(c.SampleKit) > 0 {
		opts = append(opts, WithSampleKit(c.SampleKit))
	}
	for p, t := range tables {
		opts = append(opts, WithWavetable(p, t))
	}
	for p, sp := range c.Samples {
		opts = append(opts, WithSampleProgram(p, sp))
	}
	if c.VibratoWave != "" {
		opts = append(opts, WithVibratoWave(c.VibratoWave))
	}
	if c.LowpassHz > 0 {
		opts = append(opts, WithEffects(fmt.Sprintf("lowpass %g", c.LowpassHz)))
	}
	if c.DelayMs > 0 {
		opts = append(opts, WithEffects(fmt.Sprintf("delay %g", c.DelayMs)))
	}
	if len(c.Effects) > 0 {
		opts = append(opts, WithEffects(c.Effects...))
	}
	return opts, nil
}
