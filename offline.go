package midisynth

import (
	"io"
	"os"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/juju/errors"

	"github.com/cbegin/midisynth-go/internal/midifile"
	"github.com/cbegin/midisynth-go/internal/player"
)

const renderChunk = 512

// renderReader plays r through a fresh player and returns the output, at
// most maxSeconds long. Without looping the render stops once the song and
// its release tail are over. Effects are not applied.
func renderReader(r *midifile.Reader, maxSeconds float64, opts ...Option) ([]int8, error) {
	o := buildOptions(opts)
	ended := false
	cfg, err := o.playerConfig(func(k player.EventKind) {
		if k == player.EventSongEnded {
			ended = true
		}
	})
	if err != nil {
		return nil, err
	}
	p, err := player.New(cfg)
	if err != nil {
		return nil, errors.Trace(err)
	}
	p.SetFile(r)

	limit := int(maxSeconds * float64(o.sampleRate))
	out := make([]int8, 0, min(limit, int(r.Samples(o.sampleRate))+int(o.sampleRate)))
	buf := make([]int8, renderChunk)
	for len(out) < limit && !ended {
		n := min(renderChunk, limit-len(out))
		p.FillBuffer(buf[:n])
		out = append(out, buf[:n]...)
	}
	logger.Debugf("rendered %d samples (%d clipped)", len(out), p.Stats().Clipped)
	return out, nil
}

// OutputRate returns the sample rate a render with opts produces.
func OutputRate(opts ...Option) uint32 { return buildOptions(opts).sampleRate }

// Render reads a Standard MIDI File from rd and renders it offline.
func Render(rd io.Reader, maxSeconds float64, opts ...Option) ([]int8, error) {
	r, err := midifile.Open(rd)
	if err != nil {
		return nil, err
	}
	return renderReader(r, maxSeconds, opts...)
}

// RenderFile renders the MIDI file at path offline.
func RenderFile(path string, maxSeconds float64, opts ...Option) ([]int8, error) {
	r, err := midifile.LoadFile(path)
	if err != nil {
		return nil, err
	}
	return renderReader(r, maxSeconds, opts...)
}

// WriteWAV encodes samples as an unsigned 8-bit mono WAV, the format an
// 8-bit DAC consumes: silence is 128.
func WriteWAV(w io.WriteSeeker, samples []int8, sampleRate int) error {
	enc := wav.NewEncoder(w, sampleRate, 8, 1, 1)
	data := make([]int, len(samples))
	for i, s := range samples {
		data[i] = int(s) + 128
	}
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 1, SampleRate: sampleRate},
		Data:           data,
		SourceBitDepth: 8,
	}
	if err := enc.Write(buf); err != nil {
		return errors.Annotate(err, "encode wav")
	}
	return errors.Annotate(enc.Close(), "finish wav")
}

// WriteWAVFile writes samples to a new WAV file at path.
func WriteWAVFile(path string, samples []int8, sampleRate int) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Trace(err)
	}
	if err := WriteWAV(f, samples, sampleRate); err != nil {
		f.Close()
		return err
	}
	return errors.Trace(f.Close())
}
