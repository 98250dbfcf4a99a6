// Package midifile turns Standard MIDI Files into the flat, time-ordered
// event stream the player consumes in file mode.
package midifile

import (
	"bufio"
	"bytes"
	"compress/gzip"
	"encoding/binary"
	"io"
	"math"
	"os"
	"sort"

	"github.com/juju/errors"
	"github.com/juju/loggo"
	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"
)

var logger = loggo.GetLogger("midisynth.midifile")

// Kind is the type of a decoded event.
type Kind uint8

const (
	NoteOn Kind = iota
	NoteOff
	ControlChange
	ProgramChange
	PitchBend
	Tempo
)

var kindNames = [...]string{"note-on", "note-off", "control", "program", "pitch-bend", "tempo"}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// Event is one decoded event. Delta is in file ticks since the previous
// event of the merged stream.
type Event struct {
	Delta   uint32
	Kind    Kind
	Channel uint8
	Data1   uint8  // key, controller or program
	Data2   uint8  // velocity or controller value
	Bend    uint16 // 14-bit pitch wheel, centre 0x2000
	Tempo   uint32 // microseconds per quarter note
}

// Reader is a loaded file. All decoding happens up front, so Next never
// allocates and cannot fail.
type Reader struct {
	division uint16
	events   []Event
	pos      int
}

// Division returns the file's ticks per quarter note.
func (r *Reader) Division() uint16 { return r.division }

// Len returns the number of events.
func (r *Reader) Len() int { return len(r.events) }

// Events returns the decoded stream. Callers must not modify it.
func (r *Reader) Events() []Event { return r.events }

// Next returns the next event, or false at the end of the stream.
func (r *Reader) Next() (Event, bool) {
	if r.pos >= len(r.events) {
		return Event{}, false
	}
	ev := r.events[r.pos]
	r.pos++
	return ev, true
}

// Rewind restarts the stream from the first event.
func (r *Reader) Rewind() { r.pos = 0 }

// Samples returns the length of the whole stream at sampleRate, following
// every tempo change.
func (r *Reader) Samples(sampleRate uint32) uint64 {
	c := NewClock(sampleRate, r.division)
	var total uint64
	for _, ev := range r.events {
		total += c.Samples(ev.Delta)
		if ev.Kind == Tempo {
			c.SetTempo(ev.Tempo)
		}
	}
	return total
}

// LoadFile reads and decodes the file at path.
func LoadFile(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Trace(err)
	}
	defer f.Close()
	r, err := Open(f)
	if err != nil {
		return nil, errors.Annotatef(err, "cannot load %s", path)
	}
	return r, nil
}

// Open decodes a file from rd, inflating it first when it is gzip
// compressed.
func Open(rd io.Reader) (*Reader, error) {
	br := bufio.NewReader(rd)
	magic, _ := br.Peek(2)
	var src io.Reader = br
	if len(magic) == 2 && magic[0] == 0x1f && magic[1] == 0x8b {
		zr, err := gzip.NewReader(br)
		if err != nil {
			return nil, errors.NewNotValid(err, "gzip stream")
		}
		defer zr.Close()
		src = zr
	}
	data, err := io.ReadAll(src)
	if err != nil {
		return nil, errors.NewNotValid(err, "cannot read midi data")
	}
	return Load(data)
}

type timed struct {
	tick uint64
	ev   Event
}

// Load decodes a complete SMF image. A malformed or truncated file is
// reported as a NotValid error.
func Load(data []byte) (*Reader, error) {
	end, err := checkChunks(data)
	if err != nil {
		return nil, err
	}
	s, err := smf.ReadFrom(bytes.NewReader(data[:end]))
	if err != nil {
		return nil, errors.NewNotValid(err, "malformed midi file")
	}
	mt, ok := s.TimeFormat.(smf.MetricTicks)
	if !ok {
		return nil, errors.NotSupportedf("time format %v", s.TimeFormat)
	}
	if mt == 0 {
		return nil, errors.NotValidf("zero time division")
	}

	var all []timed
	for _, track := range s.Tracks {
		var tick uint64
		for _, e := range track {
			tick += uint64(e.Delta)
			if ev, ok := decode(e.Message); ok {
				all = append(all, timed{tick: tick, ev: ev})
			}
		}
	}
	sort.SliceStable(all, func(i, j int) bool { return all[i].tick < all[j].tick })

	r := &Reader{division: uint16(mt), events: make([]Event, len(all))}
	var last uint64
	for i, t := range all {
		d := t.tick - last
		if d > math.MaxUint32 {
			d = math.MaxUint32
		}
		t.ev.Delta = uint32(d)
		r.events[i] = t.ev
		last = t.tick
	}
	logger.Debugf("loaded %d tracks, %d events, division %d", len(s.Tracks), len(r.events), r.division)
	return r, nil
}

// checkChunks walks the chunk headers and fails when the header or any of
// the declared tracks is cut short. smf.ReadFrom stops quietly at the end of
// a short track, which would load a partial song. It returns the offset
// just past the last declared track; anything after it is ignored.
func checkChunks(data []byte) (int, error) {
	if len(data) < 14 || string(data[:4]) != "MThd" {
		return 0, errors.NotValidf("truncated header")
	}
	hlen := uint64(binary.BigEndian.Uint32(data[4:8]))
	if hlen < 6 || hlen > uint64(len(data)-8) {
		return 0, errors.NotValidf("header length %d", hlen)
	}
	tracks := int(binary.BigEndian.Uint16(data[10:12]))
	rest := data[8+hlen:]
	for n := 0; n < tracks; {
		if len(rest) < 8 {
			return 0, errors.NotValidf("truncated track %d", n)
		}
		size := uint64(binary.BigEndian.Uint32(rest[4:8]))
		if size > uint64(len(rest)-8) {
			return 0, errors.NotValidf("truncated track %d", n)
		}
		if string(rest[:4]) == "MTrk" {
			n++
		}
		rest = rest[8+size:]
	}
	return len(data) - len(rest), nil
}

// decode keeps only the messages the player acts on.
func decode(msg smf.Message) (Event, bool) {
	if us, ok := tempoOf(msg); ok {
		return Event{Kind: Tempo, Tempo: us}, true
	}
	if msg.IsMeta() {
		return Event{}, false
	}

	m := midi.Message(msg)
	var ch, a, b uint8
	var rel int16
	var abs uint16
	switch {
	case m.GetNoteStart(&ch, &a, &b):
		return Event{Kind: NoteOn, Channel: ch, Data1: a, Data2: b}, true
	case m.GetNoteEnd(&ch, &a):
		return Event{Kind: NoteOff, Channel: ch, Data1: a}, true
	case m.GetControlChange(&ch, &a, &b):
		return Event{Kind: ControlChange, Channel: ch, Data1: a, Data2: b}, true
	case m.GetProgramChange(&ch, &a):
		return Event{Kind: ProgramChange, Channel: ch, Data1: a}, true
	case m.GetPitchBend(&ch, &rel, &abs):
		return Event{Kind: PitchBend, Channel: ch, Bend: abs}, true
	}
	return Event{}, false
}

// tempoOf extracts a set-tempo meta event (FF 51 03 tt tt tt).
func tempoOf(msg smf.Message) (uint32, bool) {
	b := []byte(msg)
	if len(b) == 6 && b[0] == 0xFF && b[1] == 0x51 && b[2] == 0x03 {
		return uint32(b[3])<<16 | uint32(b[4])<<8 | uint32(b[5]), true
	}
	var bpm float64
	if msg.GetMetaTempo(&bpm) && bpm > 0 {
		return uint32(math.Round(60e6 / bpm)), true
	}
	return 0, false
}
