package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"golang.org/x/term"
)

// pianoKeys maps the home and top rows onto one octave, piano style.
const pianoKeys = "awsedftgyhujk"

const (
	holdTime     = 400 * time.Millisecond
	drumChannel  = 9
	liveVelocity = 100
)

var drumKeys = map[byte]int{' ': 36, 'n': 38, 'm': 42, ',': 46, '.': 49}

// live is the part of the synth the keyboard drives.
type live interface {
	NoteOn(ch, note, velocity int) bool
	NoteOff(ch, note int) bool
	ProgramChange(ch, program int) bool
}

// keyboard turns key presses into notes. A terminal reports no key
// releases, so each note is released holdTime after it starts.
type keyboard struct {
	synth   live
	octave  int
	program int
	after   func(time.Duration, func())
}

func newKeyboard(s live) *keyboard {
	return &keyboard{
		synth:  s,
		octave: 5,
		after:  func(d time.Duration, f func()) { time.AfterFunc(d, f) },
	}
}

// press handles one byte of input and reports whether to quit.
func (k *keyboard) press(b byte) bool {
	switch {
	case b == 'q' || b == 0x03 || b == 0x1B:
		return true
	case b == 'z':
		k.octave = max(k.octave-1, 0)
	case b == 'x':
		k.octave = min(k.octave+1, 9)
	case b >= '1' && b <= '8':
		k.program = int(b-'1') * 16
		k.synth.ProgramChange(0, k.program)
	default:
		if i := strings.IndexByte(pianoKeys, b); i >= 0 {
			k.play(0, k.octave*12+i)
		} else if note, ok := drumKeys[b]; ok {
			k.synth.NoteOn(drumChannel, note, liveVelocity)
		}
	}
	return false
}

func (k *keyboard) play(ch, note int) {
	k.synth.NoteOn(ch, note, liveVelocity)
	k.after(holdTime, func() { k.synth.NoteOff(ch, note) })
}

const keyboardHelp = "keys a..k play notes, z/x change octave, 1-8 pick an instrument family,\r\n" +
	"space n m , . play drums, q quits\r\n"

// runKeyboard reads in raw mode until the quit key or end of input.
func runKeyboard(s live, in *os.File, out io.Writer) error {
	fd := int(in.Fd())
	if term.IsTerminal(fd) {
		old, err := term.MakeRaw(fd)
		if err != nil {
			return err
		}
		defer term.Restore(fd, old)
	}
	fmt.Fprint(out, keyboardHelp)

	k := newKeyboard(s)
	buf := make([]byte, 1)
	for {
		n, err := in.Read(buf)
		if n > 0 && k.press(buf[0]) {
			return nil
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
	}
}
