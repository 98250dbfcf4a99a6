package player

import "github.com/cbegin/midisynth-go/internal/midifile"

// SetFile switches to file mode playing r from its first event. A nil r
// returns to streaming mode. Either way every voice is silenced and the
// channels are reset.
func (p *Player) SetFile(r *midifile.Reader) {
	p.Reset()
	if r == nil {
		return
	}
	p.mode = File
	p.file = r
	p.startFile()
	logger.Debugf("file mode: %d events, division %d", r.Len(), r.Division())
}

func (p *Player) startFile() {
	p.file.Rewind()
	p.clock = midifile.NewClock(p.cfg.SampleRate, p.file.Division())
	p.due = p.tick
	p.tail = p.cfg.ReleaseTail
	p.ended = false
	p.loadPending()
}

// loadPending fetches the next event and schedules it relative to the
// previous one at the tempo now in force.
func (p *Player) loadPending() {
	ev, ok := p.file.Next()
	p.hasPending = ok
	if ok {
		p.pending = ev
		p.due += p.clock.Samples(ev.Delta)
	}
}

// Playing reports whether a file is loaded and has not yet ended.
func (p *Player) Playing() bool { return p.mode == File && !p.ended }

// Drums returns the occupied percussion slots.
func (p *Player) Drums() VoiceSet { return p.drumOn }

// advanceFile dispatches every event due at the current tick and handles the
// end of the stream.
func (p *Player) advanceFile() {
	for p.hasPending && p.due <= p.tick {
		p.dispatch(p.pending)
		p.loadPending()
	}
	if p.hasPending || p.ended {
		return
	}
	if p.ActiveVoices() > 0 {
		return
	}
	if p.tail > 0 {
		p.tail--
		return
	}
	if p.cfg.Loop {
		p.loopFile()
		p.emit(EventSongLooped)
		return
	}
	p.ended = true
	p.emit(EventSongEnded)
}

func (p *Player) loopFile() {
	r := p.file
	tick := p.tick
	p.Reset()
	p.mode = File
	p.file = r
	p.tick = tick
	p.startFile()
}

func (p *Player) emit(kind EventKind) {
	if p.cfg.OnEvent != nil {
		p.cfg.OnEvent(kind)
	}
}

func (p *Player) dispatch(ev midifile.Event) {
	ch, a, b := int(ev.Channel), int(ev.Data1), int(ev.Data2)
	switch ev.Kind {
	case midifile.NoteOn:
		p.noteOn(ch, a, b)
	case midifile.NoteOff:
		p.noteOff(ch, a)
	case midifile.ControlChange:
		p.controlChange(ch, a, b)
	case midifile.ProgramChange:
		p.setProgram(ch, a)
	case midifile.PitchBend:
		p.pitchWheel(ch, int(ev.Bend))
	case midifile.Tempo:
		p.clock.SetTempo(ev.Tempo)
	}
}
