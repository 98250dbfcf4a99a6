package player

import (
	"sync/atomic"

	"github.com/cbegin/midisynth-go/internal/midifile"
)

// Op identifies a queued command.
type Op uint8

const (
	OpNoteOn Op = iota
	OpNoteOff
	OpProgram
	OpControl
	OpPitchWheel
	OpAllSoundOff
	OpAllNotesOff
	OpVolume
	OpPercussion
	OpSetFile
	OpStream
	OpReset
)

// Command is a player call recorded for later execution on the audio
// goroutine. A and B carry the operation's arguments in call order.
type Command struct {
	Op      Op
	Channel int
	A, B    int
	File    *midifile.Reader
}

// queue is a single-producer single-consumer ring. Producers outside the
// audio goroutine must serialize their pushes.
type queue struct {
	buf  []Command
	mask uint64
	head atomic.Uint64 // next slot to read
	tail atomic.Uint64 // next slot to write
}

func newQueue(size int) *queue {
	n := 1
	for n < size {
		n <<= 1
	}
	return &queue{buf: make([]Command, n), mask: uint64(n - 1)}
}

func (q *queue) push(c Command) bool {
	t := q.tail.Load()
	if t-q.head.Load() >= uint64(len(q.buf)) {
		return false
	}
	q.buf[t&q.mask] = c
	q.tail.Store(t + 1)
	return true
}

func (q *queue) pop() (Command, bool) {
	h := q.head.Load()
	if h == q.tail.Load() {
		return Command{}, false
	}
	i := h & q.mask
	c := q.buf[i]
	q.buf[i] = Command{}
	q.head.Store(h + 1)
	return c, true
}

func (q *queue) len() int { return int(q.tail.Load() - q.head.Load()) }
