// Package midisynth is a small polyphonic General MIDI synthesizer with an
// 8-bit fixed-point core. A Synth plays live MIDI input or MIDI files through
// the desktop sound card; Render produces the same output offline.
package midisynth

import (
	"io"
	"sync"
	"sync/atomic"

	"github.com/juju/errors"
	"github.com/juju/loggo"
	"gitlab.com/gomidi/midi/v2"

	"github.com/cbegin/midisynth-go/internal/audio"
	"github.com/cbegin/midisynth-go/internal/effects"
	"github.com/cbegin/midisynth-go/internal/midifile"
	"github.com/cbegin/midisynth-go/internal/player"
)

var logger = loggo.GetLogger("midisynth")

// Event is a playback event delivered through Watch.
type Event int

const (
	EventLoopCompleted Event = iota
	EventPlaybackEnded
)

func (e Event) String() string {
	if e == EventLoopCompleted {
		return "loop-completed"
	}
	return "playback-ended"
}

// Stats are the synthesizer's diagnostic counters.
type Stats = player.Stats

// Synth owns a player and, once started, the audio backend that pulls from
// it. All methods are safe for concurrent use; commands reach the audio
// thread through a lock-free queue and take effect at the next buffer.
type Synth struct {
	opts   options
	player *player.Player
	chain  *effects.Chain

	open func(backend string, sampleRate int, src audio.Source, cfg audio.StreamConfig) (audio.Output, error)

	sendMu sync.Mutex // the queue accepts one producer at a time

	mu  sync.Mutex // guards out; never taken on the audio thread
	out audio.Output

	// Fields below are touched by FillBuffer and stay lock-free.
	done       atomic.Pointer[chan struct{}]
	finished   atomic.Bool
	resetChain atomic.Bool
	eventCh    atomic.Pointer[chan Event]
}

// New creates a Synth. Nothing is played until Start, Play or PlayFile.
func New(opts ...Option) (*Synth, error) {
	s := &Synth{opts: buildOptions(opts), open: audio.Open}
	cfg, err := s.opts.playerConfig(s.onPlayerEvent)
	if err != nil {
		return nil, err
	}
	if s.player, err = player.New(cfg); err != nil {
		return nil, errors.Trace(err)
	}
	if len(s.opts.effects) > 0 {
		if s.chain, err = effects.ParseChain(s.opts.effects, int(s.opts.sampleRate)); err != nil {
			return nil, errors.Trace(err)
		}
	}
	return s, nil
}

// SampleRate returns the output rate.
func (s *Synth) SampleRate() uint32 { return s.opts.sampleRate }

// FillBuffer renders the next len(buf) samples. The audio backend calls it;
// offline callers may call it directly when no backend is running.
func (s *Synth) FillBuffer(buf []int8) {
	if s.chain != nil && s.resetChain.Swap(false) {
		s.chain.Reset()
	}
	s.player.FillBuffer(buf)
}

// Finished reports whether a non-looping file has played to its end.
func (s *Synth) Finished() bool { return s.finished.Load() }

// Stats returns the diagnostic counters.
func (s *Synth) Stats() Stats { return s.player.Stats() }

func (s *Synth) enqueue(cmd player.Command) bool {
	s.sendMu.Lock()
	defer s.sendMu.Unlock()
	return s.player.Enqueue(cmd)
}

// NoteOn starts a note. It reports false when the command queue is full.
func (s *Synth) NoteOn(ch, note, velocity int) bool {
	return s.enqueue(player.Command{Op: player.OpNoteOn, Channel: ch, A: note, B: velocity})
}

// NoteOff releases a note.
func (s *Synth) NoteOff(ch, note int) bool {
	return s.enqueue(player.Command{Op: player.OpNoteOff, Channel: ch, A: note})
}

// ProgramChange selects the instrument of a channel.
func (s *Synth) ProgramChange(ch, program int) bool {
	return s.enqueue(player.Command{Op: player.OpProgram, Channel: ch, A: program})
}

// ControlChange applies a controller value.
func (s *Synth) ControlChange(ch, control, value int) bool {
	return s.enqueue(player.Command{Op: player.OpControl, Channel: ch, A: control, B: value})
}

// PitchBend sets the 14-bit wheel position (centre 0x2000).
func (s *Synth) PitchBend(ch, value int) bool {
	return s.enqueue(player.Command{Op: player.OpPitchWheel, Channel: ch, A: value})
}

// SetPercussion marks a channel as a drum channel.
func (s *Synth) SetPercussion(ch int, on bool) bool {
	a := 0
	if on {
		a = 1
	}
	return s.enqueue(player.Command{Op: player.OpPercussion, Channel: ch, A: a})
}

// AllSoundOff silences every voice immediately.
func (s *Synth) AllSoundOff() bool {
	return s.enqueue(player.Command{Op: player.OpAllSoundOff})
}

// AllNotesOff releases every held key on a channel.
func (s *Synth) AllNotesOff(ch int) bool {
	return s.enqueue(player.Command{Op: player.OpAllNotesOff, Channel: ch})
}

// SetVolume sets the master volume, Q8.8 with 256 as unity.
func (s *Synth) SetVolume(q8 int) bool {
	return s.enqueue(player.Command{Op: player.OpVolume, A: q8})
}

// Send decodes one raw MIDI channel message and queues it.
func (s *Synth) Send(msg []byte) error {
	m := midi.Message(msg)
	var ch, a, b uint8
	var rel int16
	var abs uint16
	switch {
	case m.GetNoteStart(&ch, &a, &b):
		s.NoteOn(int(ch), int(a), int(b))
	case m.GetNoteEnd(&ch, &a):
		s.NoteOff(int(ch), int(a))
	case m.GetControlChange(&ch, &a, &b):
		s.ControlChange(int(ch), int(a), int(b))
	case m.GetProgramChange(&ch, &a):
		s.ProgramChange(int(ch), int(a))
	case m.GetPitchBend(&ch, &rel, &abs):
		s.PitchBend(int(ch), int(abs))
	default:
		return errors.NotSupportedf("midi message % X", msg)
	}
	return nil
}

// Start opens the audio backend, if it is not already running, and starts
// pulling samples. Live input plays as soon as Start returns.
func (s *Synth) Start() error {
	out, err := s.output()
	if err != nil {
		return err
	}
	// Play may pull the first buffers synchronously, so it runs unlocked.
	out.Play()
	return nil
}

// output returns the running backend, opening it on first use.
func (s *Synth) output() (audio.Output, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.out == nil {
		out, err := s.open(s.opts.backend, int(s.opts.sampleRate), s, audio.StreamConfig{
			Effects: s.chain,
			Tap:     s.opts.tap,
		})
		if err != nil {
			return nil, errors.Trace(err)
		}
		s.out = out
		logger.Infof("audio started: %d Hz", s.opts.sampleRate)
	}
	return s.out, nil
}

func (s *Synth) current() audio.Output {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.out
}

// PlayFile loads a Standard MIDI File (optionally gzip-compressed) and plays
// it. A load failure leaves the current playback untouched.
func (s *Synth) PlayFile(path string) error {
	r, err := midifile.LoadFile(path)
	if err != nil {
		return err
	}
	return s.play(r)
}

// Play reads a Standard MIDI File from rd and plays it.
func (s *Synth) Play(rd io.Reader) error {
	r, err := midifile.Open(rd)
	if err != nil {
		return err
	}
	return s.play(r)
}

func (s *Synth) play(r *midifile.Reader) error {
	// Release any Wait on the playback being replaced.
	done := make(chan struct{})
	if old := s.done.Swap(&done); old != nil {
		close(*old)
	}
	s.finished.Store(false)
	s.resetChain.Store(true)
	if !s.enqueue(player.Command{Op: player.OpSetFile, File: r}) {
		return errors.New("command queue full")
	}
	return s.Start()
}

// StopFile ends file playback and returns to live input.
func (s *Synth) StopFile() bool {
	return s.enqueue(player.Command{Op: player.OpStream})
}

func (s *Synth) onPlayerEvent(kind player.EventKind) {
	switch kind {
	case player.EventSongLooped:
		s.sendEvent(EventLoopCompleted)
	case player.EventSongEnded:
		s.finished.Store(true)
		s.sendEvent(EventPlaybackEnded)
		s.signalDone()
	}
}

func (s *Synth) sendEvent(ev Event) {
	if ch := s.eventCh.Load(); ch != nil {
		select {
		case *ch <- ev:
		default:
			// Channel full; drop event
		}
	}
}

// signalDone runs on the audio thread and must not block.
func (s *Synth) signalDone() {
	if done := s.done.Load(); done != nil && s.done.CompareAndSwap(done, nil) {
		close(*done)
	}
}

// Pause suspends the audio backend.
func (s *Synth) Pause() {
	if out := s.current(); out != nil {
		out.Pause()
	}
}

// Resume restarts a paused backend.
func (s *Synth) Resume() {
	if out := s.current(); out != nil {
		out.Play()
	}
}

// Stop closes the audio backend and releases any Wait.
func (s *Synth) Stop() error {
	s.mu.Lock()
	out := s.out
	s.out = nil
	s.mu.Unlock()
	if out == nil {
		return nil
	}
	err := out.Stop()
	s.sendEvent(EventPlaybackEnded)
	if done := s.done.Swap(nil); done != nil {
		close(*done)
	}
	return errors.Trace(err)
}

// Wait blocks until the current file ends. When looping, Wait blocks until
// Stop or the next Play (use Watch to count loops instead).
func (s *Synth) Wait() {
	if done := s.done.Load(); done != nil {
		<-*done
	}
}

// Watch returns a channel that receives playback events. The channel is
// buffered (cap 8) and events are dropped when it is full. Only the most
// recent Watch channel receives events.
func (s *Synth) Watch() <-chan Event {
	ch := make(chan Event, 8)
	s.eventCh.Store(&ch)
	return ch
}
