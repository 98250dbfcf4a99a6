// Package audio is the driver side of the synthesizer: it pulls signed 8-bit
// samples from a Source whenever a desktop sound backend asks for more and
// hands them on as float32 PCM.
package audio

import (
	"encoding/binary"
	"io"
	"math"
	"sync"

	"github.com/juju/errors"
	"github.com/juju/loggo"

	"github.com/cbegin/midisynth-go/internal/effects"
)

var logger = loggo.GetLogger("midisynth.audio")

// Source produces the next len(buf) output samples.
type Source interface {
	FillBuffer(buf []int8)
}

// FinishingSource is a Source that can signal when playback has ended.
// When Finished returns true, the stream will return io.EOF on the next Read.
type FinishingSource interface {
	Source
	Finished() bool
}

// StreamConfig shapes the float stream.
type StreamConfig struct {
	Channels int            // output channels; the mono signal is copied to each
	Effects  *effects.Chain // optional post-conversion effects
	Tap      func([]int8)   // optional observer of the raw 8-bit samples
}

// StreamReader is an io.Reader of little-endian float32 frames.
type StreamReader struct {
	mu     sync.Mutex
	source Source
	cfg    StreamConfig
	buf    []int8
}

func NewStreamReader(source Source, cfg StreamConfig) *StreamReader {
	if cfg.Channels < 1 {
		cfg.Channels = 1
	}
	return &StreamReader{source: source, cfg: cfg}
}

func (r *StreamReader) Read(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	frameBytes := 4 * r.cfg.Channels
	frames := len(p) / frameBytes
	if frames == 0 {
		return 0, nil
	}
	if cap(r.buf) < frames {
		r.buf = make([]int8, frames)
	}
	r.buf = r.buf[:frames]
	r.source.FillBuffer(r.buf)
	if r.cfg.Tap != nil {
		r.cfg.Tap(r.buf)
	}
	for i, s := range r.buf {
		f := float32(s) / 128
		if r.cfg.Effects != nil {
			f = r.cfg.Effects.Process(f)
		}
		bits := math.Float32bits(f)
		for ch := 0; ch < r.cfg.Channels; ch++ {
			binary.LittleEndian.PutUint32(p[i*frameBytes+ch*4:], bits)
		}
	}
	n := frames * frameBytes
	if fs, ok := r.source.(FinishingSource); ok && fs.Finished() {
		return n, io.EOF
	}
	return n, nil
}

func (r *StreamReader) Close() error { return nil }

// Output is a running sound backend.
type Output interface {
	Play()
	Pause()
	IsPlaying() bool
	Stop() error
}

// Backend names.
const (
	BackendEbiten = "ebiten"
	BackendOto    = "oto"
)

// Open starts a backend pulling from source. An empty backend selects ebiten.
func Open(backend string, sampleRate int, source Source, cfg StreamConfig) (Output, error) {
	switch backend {
	case "", BackendEbiten:
		cfg.Channels = 2
		return newEbitenOutput(sampleRate, NewStreamReader(source, cfg))
	case BackendOto:
		cfg.Channels = 1
		return newOtoOutput(sampleRate, NewStreamReader(source, cfg))
	}
	return nil, errors.NotSupportedf("audio backend %q", backend)
}
