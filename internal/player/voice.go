package player

import (
	"math/bits"

	"github.com/cbegin/midisynth-go/internal/envelope"
	"github.com/cbegin/midisynth-go/internal/timbre"
)

// MaxVoices bounds a channel's voice pool and the percussion pool.
const MaxVoices = 32

// VoiceSet is a set of voice slots within one pool.
type VoiceSet uint32

func (s VoiceSet) Has(i int) bool { return i >= 0 && i < MaxVoices && s&(1<<uint(i)) != 0 }

func (s *VoiceSet) Add(i int) {
	if i >= 0 && i < MaxVoices {
		*s |= 1 << uint(i)
	}
}

func (s *VoiceSet) Remove(i int) {
	if i >= 0 && i < MaxVoices {
		*s &^= 1 << uint(i)
	}
}

func (s VoiceSet) Empty() bool { return s == 0 }

func (s VoiceSet) Len() int { return bits.OnesCount32(uint32(s)) }

// Lowest returns the smallest slot in the set, or -1 when empty.
func (s VoiceSet) Lowest() int {
	if s == 0 {
		return -1
	}
	return bits.TrailingZeros32(uint32(s))
}

// Pop removes and returns the lowest slot, or -1 when empty.
func (s *VoiceSet) Pop() int {
	i := s.Lowest()
	s.Remove(i)
	return i
}

// Voice is one sounding note. A voice with note < 0 is free.
type Voice struct {
	note     int
	channel  int
	slot     int
	velocity uint8
	perc     bool
	serial   uint64 // allocation order; lower is older
	timbre   *timbre.Timbre
	env      envelope.Envelope
	st       timbre.State
}

// Idle reports whether the voice is free.
func (v *Voice) Idle() bool { return v.note < 0 }

// Note returns the key the voice plays, or -1.
func (v *Voice) Note() int { return v.note }

// Channel returns the owning channel.
func (v *Voice) Channel() int { return v.channel }

// Timbre returns the bound timbre, nil when free.
func (v *Voice) Timbre() *timbre.Timbre { return v.timbre }

// State returns the envelope stage. Percussion voices bypass the envelope
// and report Sustain while they sound.
func (v *Voice) State() envelope.State {
	switch {
	case v.Idle():
		return envelope.Stopped
	case v.perc:
		return envelope.Sustain
	}
	return v.env.State()
}

// Tick returns the samples the note has produced since it started.
func (v *Voice) Tick() uint32 { return v.st.Tick }

func (v *Voice) free() {
	v.note = -1
	v.timbre = nil
	v.perc = false
	v.env.Stop()
}

// stealRank orders voices for stealing: releasing voices go first, then
// sustaining (including pedal-held), then everything else.
func stealRank(v *Voice, held bool) int {
	switch s := v.env.State(); {
	case v.perc:
		return 1
	case s == envelope.Release:
		return 0
	case s == envelope.Sustain || held:
		return 1
	}
	return 2
}

// pickVoice chooses a slot in pool for key on ch. It prefers a voice already
// playing key for ch, then a free voice, then the best steal candidate. stolen
// reports whether a sounding voice was taken from another note.
func pickVoice(pool []Voice, held VoiceSet, ch, key int) (slot int, stolen bool) {
	free := -1
	for i := range pool {
		v := &pool[i]
		if v.note == key && v.channel == ch {
			return i, false
		}
		if free < 0 && v.Idle() {
			free = i
		}
	}
	if free >= 0 {
		return free, false
	}
	best, bestRank := 0, 3
	for i := range pool {
		r := stealRank(&pool[i], held.Has(i))
		if r < bestRank || (r == bestRank && pool[i].serial < pool[best].serial) {
			best, bestRank = i, r
		}
	}
	return best, true
}
