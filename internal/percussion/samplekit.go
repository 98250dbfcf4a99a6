package percussion

import (
	"io"
	"os"
	"sort"

	"github.com/go-audio/wav"
	"github.com/juju/errors"
)

// Sample is a mono signed 8-bit recording.
type Sample struct {
	Data []int8
	Rate uint32
}

// AssetCache holds decoded drum samples keyed by note. It is filled before
// playback starts and only read afterwards, so lookups take no lock.
type AssetCache struct {
	samples [128]*Sample
}

// Put stores s for note, replacing any previous sample.
func (c *AssetCache) Put(note uint8, s *Sample) { c.samples[note&0x7F] = s }

// Get returns the sample for note, or nil.
func (c *AssetCache) Get(note uint8) *Sample { return c.samples[note&0x7F] }

// Len returns the number of cached samples.
func (c *AssetCache) Len() int {
	n := 0
	for _, s := range c.samples {
		if s != nil {
			n++
		}
	}
	return n
}

// SampleKit replays recorded drums from its cache. Notes without a sample
// are delegated to Fallback.
type SampleKit struct {
	Cache    *AssetCache
	Fallback *SynthKit
	rate     uint32
}

// NewSampleKit wraps cache for playback at sampleRate.
func NewSampleKit(cache *AssetCache, fallback *SynthKit, sampleRate uint32) *SampleKit {
	if cache == nil {
		cache = &AssetCache{}
	}
	return &SampleKit{Cache: cache, Fallback: fallback, rate: sampleRate}
}

// step is the Q24.8 count of source samples per output tick.
func (k *SampleKit) step(smp *Sample) uint32 {
	if k.rate == 0 || smp.Rate == 0 {
		return 1 << 8
	}
	return max(uint32((uint64(smp.Rate)<<8)/uint64(k.rate)), 1)
}

// LoadSampleKit decodes one WAV file per drum note. Any unreadable file fails
// the whole load.
func LoadSampleKit(paths map[int]string, fallback *SynthKit, sampleRate uint32) (*SampleKit, error) {
	notes := make([]int, 0, len(paths))
	for n := range paths {
		notes = append(notes, n)
	}
	sort.Ints(notes)

	cache := &AssetCache{}
	for _, n := range notes {
		if n < 0 || n > 127 {
			return nil, errors.NotValidf("drum note %d", n)
		}
		s, err := LoadSample(paths[n])
		if err != nil {
			return nil, errors.Annotatef(err, "drum note %d", n)
		}
		cache.Put(uint8(n), s)
		logger.Debugf("loaded drum %d from %s (%d samples at %d Hz)", n, paths[n], len(s.Data), s.Rate)
	}
	logger.Infof("sample kit: %d drums loaded", cache.Len())
	return NewSampleKit(cache, fallback, sampleRate), nil
}

// LoadSample decodes the WAV file at path.
func LoadSample(path string) (*Sample, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Trace(err)
	}
	defer f.Close()
	return DecodeWAV(f)
}

// DecodeWAV reads a PCM WAV stream and mixes it down to mono signed 8-bit.
func DecodeWAV(r io.ReadSeeker) (*Sample, error) {
	d := wav.NewDecoder(r)
	if !d.IsValidFile() {
		return nil, errors.NotValidf("wav stream")
	}
	buf, err := d.FullPCMBuffer()
	if err != nil {
		return nil, errors.Annotatef(err, "cannot decode wav")
	}
	chans := buf.Format.NumChannels
	if chans <= 0 || buf.Format.SampleRate <= 0 {
		return nil, errors.NotValidf("wav format %d channels at %d Hz", chans, buf.Format.SampleRate)
	}

	var shift uint
	var offset int
	switch buf.SourceBitDepth {
	case 8:
		offset = 128 // 8-bit WAV is unsigned
	case 16:
		shift = 8
	case 24:
		shift = 16
	case 32:
		shift = 24
	default:
		return nil, errors.NotSupportedf("%d-bit wav", buf.SourceBitDepth)
	}

	frames := len(buf.Data) / chans
	out := make([]int8, frames)
	for i := range out {
		sum := 0
		for c := 0; c < chans; c++ {
			sum += (buf.Data[i*chans+c] - offset) >> shift
		}
		out[i] = clamp8(int32(sum / chans))
	}
	return &Sample{Data: out, Rate: uint32(buf.Format.SampleRate)}, nil
}

func (k *SampleKit) Generator() Generator { return Sampled }
func (k *SampleKit) Data() any            { return k }
func (k *SampleKit) Name() string         { return "sample" }

// sampleScratch is the SampleKit view of a voice's scratch words.
type sampleScratch struct{ s *Scratch }

func (v sampleScratch) pos() uint32     { return v.s[0] }
func (v sampleScratch) setPos(p uint32) { v.s[0] = p }

// Sampled is the SampleKit generator. data must be the *SampleKit.
func Sampled(note uint8, idx uint32, done *bool, s *Scratch, data any) int8 {
	k, _ := data.(*SampleKit)
	if k == nil {
		*done = true
		return 0
	}
	smp := k.Cache.Get(note)
	if smp == nil || len(smp.Data) == 0 {
		if k.Fallback == nil {
			*done = true
			return 0
		}
		return Synth(note, idx, done, s, k.Fallback)
	}
	st := sampleScratch{s}
	p := st.pos()
	i := p >> 8
	if i >= uint32(len(smp.Data)) {
		*done = true
		return 0
	}
	step := k.step(smp)
	st.setPos(p + step)
	if (p+step)>>8 >= uint32(len(smp.Data)) {
		*done = true
	}
	return smp.Data[i]
}
