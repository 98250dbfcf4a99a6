// Package envelope implements the per-voice attack/decay/sustain/release
// state machine. Levels are Q8.8 (Unity = 256); times are output ticks.
package envelope

import (
	"math"

	"github.com/cbegin/midisynth-go/internal/fixed"
)

// State is the envelope stage.
type State uint8

const (
	Stopped State = iota
	Attack
	Decay
	Sustain
	Release
)

var stateNames = [...]string{"stopped", "attack", "decay", "sustain", "release"}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return "unknown"
}

const (
	// Unity is full level.
	Unity = 256
	// MaxLevel caps velocity-boosted levels.
	MaxLevel = 4 * Unity
)

// Template is the immutable envelope description carried by a timbre.
//
// Times are ticks, with a per-velocity-step adjustment (*Vel) that may be
// negative. Volumes are whole units (1 = Unity) with a per-velocity-step
// adjustment in 1/256 units.
type Template struct {
	AttackTime     int32
	AttackTimeVel  int32
	DecayTime      int32
	DecayTimeVel   int32
	ReleaseTime    int32
	ReleaseTimeVel int32
	AttackVol      int32
	AttackVolVel   int32
	SustainVol     int32
	SustainVolVel  int32
}

func ticks(base, perVel int32, vel uint8) uint32 {
	v := int64(base) + int64(perVel)*int64(vel)
	switch {
	case v < 0:
		return 0
	case v > math.MaxUint32:
		return math.MaxUint32
	}
	return uint32(v)
}

func level(vol, perVel int32, vel uint8) int32 {
	v := int64(vol)*Unity + int64(perVel)*int64(vel)
	switch {
	case v < 0:
		return 0
	case v > MaxLevel:
		return MaxLevel
	}
	return int32(v)
}

// AttackTicks is the attack duration for vel.
func (t *Template) AttackTicks(vel uint8) uint32 { return ticks(t.AttackTime, t.AttackTimeVel, vel) }

// DecayTicks is the decay duration for vel.
func (t *Template) DecayTicks(vel uint8) uint32 { return ticks(t.DecayTime, t.DecayTimeVel, vel) }

// ReleaseTicks is the release duration for vel.
func (t *Template) ReleaseTicks(vel uint8) uint32 {
	return ticks(t.ReleaseTime, t.ReleaseTimeVel, vel)
}

// PeakLevel is the level reached at the end of the attack for vel.
func (t *Template) PeakLevel(vel uint8) int32 { return level(t.AttackVol, t.AttackVolVel, vel) }

// SustainLevel is the level held after the decay for vel.
func (t *Template) SustainLevel(vel uint8) int32 {
	return level(t.SustainVol, t.SustainVolVel, vel)
}

// Envelope is the running state for one voice. The zero value is Stopped.
type Envelope struct {
	tmpl     *Template
	state    State
	velocity uint8
	level    int32
	from, to int32
	length   uint32
	left     uint32 // ticks until the next transition
}

// Start enters Attack for a new note.
func (e *Envelope) Start(t *Template, vel uint8) {
	e.tmpl = t
	e.velocity = vel
	e.level = 0
	e.enter(Attack, 0, t.PeakLevel(vel), t.AttackTicks(vel))
}

// Release enters Release from the current level. It is a no-op when the
// envelope is already stopped or releasing.
func (e *Envelope) Release() {
	if e.state == Stopped || e.state == Release {
		return
	}
	e.enter(Release, e.level, 0, e.tmpl.ReleaseTicks(e.velocity))
}

// Stop silences the envelope immediately.
func (e *Envelope) Stop() {
	e.state = Stopped
	e.level = 0
	e.left = 0
}

// State returns the current stage.
func (e *Envelope) State() State { return e.state }

// Level returns the level produced by the last Tick.
func (e *Envelope) Level() int32 { return e.level }

// Active reports whether the envelope is anywhere but Stopped.
func (e *Envelope) Active() bool { return e.state != Stopped }

// Remaining returns the ticks left in the current ramp.
func (e *Envelope) Remaining() uint32 { return e.left }

func (e *Envelope) enter(s State, from, to int32, length uint32) {
	e.state = s
	e.from = from
	e.to = to
	e.length = length
	e.left = length
}

// Tick advances one output tick and returns the level for it. Zero-length
// stages complete within the same tick.
func (e *Envelope) Tick() int32 {
	for {
		switch e.state {
		case Attack, Decay, Release:
			if e.left == 0 {
				e.level = e.to
				e.advance()
				continue
			}
			e.level = fixed.ADRLerp(e.length-e.left, e.length, e.from, e.to)
			e.left--
			return e.level
		case Sustain:
			return e.level
		default:
			e.level = 0
			return 0
		}
	}
}

func (e *Envelope) advance() {
	switch e.state {
	case Attack:
		e.enter(Decay, e.level, e.tmpl.SustainLevel(e.velocity), e.tmpl.DecayTicks(e.velocity))
	case Decay:
		e.state = Sustain
	case Release:
		e.Stop()
	}
}
