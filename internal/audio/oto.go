package audio

import (
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"
	"github.com/juju/errors"
)

var (
	otoMu   sync.Mutex
	otoCtx  *oto.Context
	otoRate int
)

func sharedOtoContext(sampleRate int) (*oto.Context, error) {
	otoMu.Lock()
	defer otoMu.Unlock()
	if otoCtx != nil {
		if otoRate != sampleRate {
			return nil, errors.NotValidf("oto context already initialized at %d Hz (requested %d Hz)", otoRate, sampleRate)
		}
		return otoCtx, nil
	}
	ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   sampleRate,
		ChannelCount: 1,
		Format:       oto.FormatFloat32LE,
		BufferSize:   40 * time.Millisecond,
	})
	if err != nil {
		return nil, errors.Annotate(err, "oto context")
	}
	<-ready
	otoCtx, otoRate = ctx, sampleRate
	return ctx, nil
}

type otoOutput struct {
	player *oto.Player
	reader *StreamReader
}

func newOtoOutput(sampleRate int, reader *StreamReader) (*otoOutput, error) {
	ctx, err := sharedOtoContext(sampleRate)
	if err != nil {
		return nil, err
	}
	logger.Debugf("oto output at %d Hz", sampleRate)
	return &otoOutput{player: ctx.NewPlayer(reader), reader: reader}, nil
}

func (o *otoOutput) Play()           { o.player.Play() }
func (o *otoOutput) Pause()          { o.player.Pause() }
func (o *otoOutput) IsPlaying() bool { return o.player.IsPlaying() }

func (o *otoOutput) Stop() error {
	o.player.Pause()
	if err := o.player.Close(); err != nil {
		return errors.Trace(err)
	}
	return o.reader.Close()
}
