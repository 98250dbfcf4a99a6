package midisynth

import (
	"bytes"
	"io"
	"testing"
	"time"

	"github.com/juju/errors"

	"github.com/cbegin/midisynth-go/internal/audio"
	"github.com/cbegin/midisynth-go/internal/midifile"
	"github.com/cbegin/midisynth-go/internal/player"
)

func newTestSynth(t *testing.T, opts ...Option) *Synth {
	t.Helper()
	s, err := New(opts...)
	if err != nil {
		t.Fatalf("new synth: %v", err)
	}
	return s
}

func TestNewRejectsBadOptions(t *testing.T) {
	if _, err := New(WithVoicesPerChannel(0)); !errors.Is(err, errors.NotValid) {
		t.Fatalf("expected not valid, got %v", err)
	}
	if _, err := New(WithEffects("wah 3")); !errors.Is(err, errors.NotSupported) {
		t.Fatalf("expected not supported effect, got %v", err)
	}
	if _, err := New(WithWavetable(200, []int8{1})); !errors.Is(err, errors.NotValid) {
		t.Fatalf("expected bad program rejected, got %v", err)
	}
}

func TestSendDecodesMessages(t *testing.T) {
	s := newTestSynth(t)
	buf := make([]int8, 256)

	if err := s.Send([]byte{0x90, 60, 100}); err != nil {
		t.Fatalf("note on: %v", err)
	}
	if s.player.ActiveVoices() != 0 {
		t.Fatalf("commands must wait for the audio thread")
	}
	s.FillBuffer(buf)
	if s.player.ActiveVoices() != 1 || silent(buf) {
		t.Fatalf("expected one sounding voice")
	}

	for _, msg := range [][]byte{
		{0xC0, 40},
		{0xB0, 7, 100},
		{0xE0, 0x00, 0x60},
		{0x80, 60, 0},
	} {
		if err := s.Send(msg); err != nil {
			t.Fatalf("send % X: %v", msg, err)
		}
	}
	s.FillBuffer(buf)
	c := s.player.Channel(0)
	if c.Program() != 40 || c.Volume()>>7 != 100 || c.Bend() != 0x3000 {
		t.Fatalf("unexpected channel state: program %d volume %d bend %#x", c.Program(), c.Volume(), c.Bend())
	}
	if !c.On().Empty() {
		t.Fatalf("expected the key released")
	}
}

func TestSendRejectsNonChannelMessages(t *testing.T) {
	s := newTestSynth(t)
	if err := s.Send([]byte{0xF8}); !errors.Is(err, errors.NotSupported) {
		t.Fatalf("expected not supported, got %v", err)
	}
}

func TestLiveCommandsAreQueued(t *testing.T) {
	s := newTestSynth(t, WithQueueSize(4))
	for i := 0; i < 6; i++ {
		s.NoteOn(0, 60+i, 100)
	}
	if got := s.Stats().Dropped; got != 2 {
		t.Fatalf("expected 2 dropped commands, got %d", got)
	}
	s.FillBuffer(make([]int8, 1))
	if s.player.ActiveVoices() != 4 {
		t.Fatalf("expected the queued notes to sound, got %d", s.player.ActiveVoices())
	}
	s.SetPercussion(3, true)
	s.FillBuffer(make([]int8, 1))
	if !s.player.Channel(3).Percussion() {
		t.Fatalf("expected queued percussion switch applied")
	}
	s.AllSoundOff()
	s.FillBuffer(make([]int8, 1))
	if s.player.ActiveVoices() != 0 {
		t.Fatalf("expected silence after all sound off")
	}
}

func TestFileEndSignalsWatchersAndWait(t *testing.T) {
	s := newTestSynth(t, WithSampleRate(8000))
	events := s.Watch()
	r, err := midifile.Load(phrase)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	done := make(chan struct{})
	s.done.Store(&done)
	s.enqueue(player.Command{Op: player.OpSetFile, File: r})

	buf := make([]int8, 400)
	for i := 0; i < 100 && !s.Finished(); i++ {
		s.FillBuffer(buf)
	}
	if !s.Finished() {
		t.Fatalf("expected the song to finish")
	}
	select {
	case ev := <-events:
		if ev != EventPlaybackEnded {
			t.Fatalf("expected playback ended, got %s", ev)
		}
	default:
		t.Fatalf("expected an event")
	}
	s.Wait()
}

func TestLoopEventsReachWatchers(t *testing.T) {
	s := newTestSynth(t, WithSampleRate(8000), WithLoop(true))
	events := s.Watch()
	r, err := midifile.Open(bytes.NewReader(phrase))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	s.enqueue(player.Command{Op: player.OpSetFile, File: r})
	s.FillBuffer(make([]int8, 8000*3))
	if ev := <-events; ev != EventLoopCompleted {
		t.Fatalf("expected a loop event, got %s", ev)
	}
	if s.Finished() {
		t.Fatalf("a looping song never finishes")
	}
}

func TestStopWithoutBackend(t *testing.T) {
	s := newTestSynth(t)
	if err := s.Stop(); err != nil {
		t.Fatalf("stop: %v", err)
	}
	s.Pause()
	s.Resume()
	s.Wait()
}

// pullOutput drains its stream inside Play, the way a backend that primes
// its buffer synchronously does.
type pullOutput struct {
	r       io.Reader
	playing bool
}

func (o *pullOutput) Play() {
	o.playing = true
	buf := make([]byte, 4096)
	for i := 0; i < 1000; i++ {
		if _, err := o.r.Read(buf); err != nil {
			return
		}
	}
}

func (o *pullOutput) Pause()          { o.playing = false }
func (o *pullOutput) IsPlaying() bool { return o.playing }
func (o *pullOutput) Stop() error     { return nil }

func TestSynchronousBackendPlaysToTheEnd(t *testing.T) {
	s := newTestSynth(t, WithSampleRate(8000))
	s.open = func(_ string, _ int, src audio.Source, cfg audio.StreamConfig) (audio.Output, error) {
		return &pullOutput{r: audio.NewStreamReader(src, cfg)}, nil
	}

	finished := make(chan error, 1)
	go func() {
		err := s.Play(bytes.NewReader(phrase))
		if err == nil {
			s.Resume()
			s.Wait()
		}
		finished <- err
	}()
	select {
	case err := <-finished:
		if err != nil {
			t.Fatalf("play: %v", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatalf("play did not return while the backend pulled the whole song")
	}
	if !s.Finished() {
		t.Fatalf("expected the song to finish inside Play")
	}
	if err := s.Stop(); err != nil {
		t.Fatalf("stop: %v", err)
	}
}
