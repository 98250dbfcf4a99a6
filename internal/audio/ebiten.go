package audio

import (
	"sync"

	"github.com/juju/errors"

	ebitaudio "github.com/hajimehoshi/ebiten/v2/audio"
)

var (
	ebitenOnce sync.Once
	ebitenCtx  *ebitaudio.Context
	ebitenRate int
)

// sharedEbitenContext returns the process-wide ebiten context. ebiten allows
// only one, so every later caller must ask for the same rate.
func sharedEbitenContext(sampleRate int) (*ebitaudio.Context, error) {
	ebitenOnce.Do(func() {
		ebitenRate = sampleRate
		ebitenCtx = ebitaudio.NewContext(sampleRate)
	})
	if ebitenRate != sampleRate {
		return nil, errors.NotValidf("audio context already initialized at %d Hz (requested %d Hz)", ebitenRate, sampleRate)
	}
	return ebitenCtx, nil
}

type ebitenOutput struct {
	player *ebitaudio.Player
	reader *StreamReader
}

func newEbitenOutput(sampleRate int, reader *StreamReader) (*ebitenOutput, error) {
	ctx, err := sharedEbitenContext(sampleRate)
	if err != nil {
		return nil, err
	}
	pl, err := ctx.NewPlayerF32(reader)
	if err != nil {
		return nil, errors.Annotate(err, "ebiten player")
	}
	logger.Debugf("ebiten output at %d Hz", sampleRate)
	return &ebitenOutput{player: pl, reader: reader}, nil
}

func (o *ebitenOutput) Play()           { o.player.Play() }
func (o *ebitenOutput) Pause()          { o.player.Pause() }
func (o *ebitenOutput) IsPlaying() bool { return o.player.IsPlaying() }

func (o *ebitenOutput) Stop() error {
	o.player.Pause()
	if err := o.player.Close(); err != nil {
		return errors.Trace(err)
	}
	return o.reader.Close()
}
