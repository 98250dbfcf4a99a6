package midisynth

import (
	"bytes"
	"encoding/binary"
)

// smfTrack wraps one track chunk in a format-0 file.
func smfTrack(division uint16, track []byte) []byte {
	var b bytes.Buffer
	b.WriteString("MThd")
	binary.Write(&b, binary.BigEndian, uint32(6))
	binary.Write(&b, binary.BigEndian, [3]uint16{0, 1, division})
	b.WriteString("MTrk")
	binary.Write(&b, binary.BigEndian, uint32(len(track)))
	b.Write(track)
	return b.Bytes()
}

// phrase is C-E-G at 120 bpm over a kick, then a held chord: 1.75 seconds
// of music.
var phrase = smfTrack(96, []byte{
	0x00, 0xFF, 0x51, 0x03, 0x07, 0xA1, 0x20,
	0x00, 0xC0, 0x00,
	0x00, 0x90, 0x3C, 0x64,
	0x00, 0x99, 0x24, 0x7F,
	0x30, 0x80, 0x3C, 0x00,
	0x00, 0x90, 0x40, 0x64,
	0x30, 0x80, 0x40, 0x00,
	0x00, 0x90, 0x43, 0x64,
	0x30, 0x80, 0x43, 0x00,
	0x00, 0x90, 0x3C, 0x50,
	0x00, 0x90, 0x40, 0x50,
	0x00, 0x90, 0x43, 0x50,
	0x81, 0x40, 0x80, 0x3C, 0x00,
	0x00, 0x80, 0x40, 0x00,
	0x00, 0x80, 0x43, 0x00,
	0x00, 0xFF, 0x2F, 0x00,
})

func silent(buf []int8) bool {
	for _, s := range buf {
		if s != 0 {
			return false
		}
	}
	return true
}
