// Package fixed implements the integer-only arithmetic used on the audio path:
// Q16.16 frequencies, Q24.8 sample positions, Q8.24 ratios and the linear and
// exponential shaping functions shared by envelopes and drum generators.
package fixed

import (
	"math"
	"math/bits"
)

// UQ16x16 is an unsigned Q16.16 value. Frequencies use it: integer Hz in the
// high 16 bits, fractional Hz in the low 16.
type UQ16x16 uint32

// UQ24x8 is an unsigned Q24.8 value, used for sample read positions.
type UQ24x8 uint32

// UQ8x24 is an unsigned Q8.24 value, used for pitch ratios.
type UQ8x24 uint32

const (
	// One16 is 1.0 in Q16.16.
	One16 UQ16x16 = 1 << 16
	// One24 is 1.0 in Q8.24.
	One24 UQ8x24 = 1 << 24
)

// Hz returns an integer frequency as Q16.16.
func Hz(hz uint16) UQ16x16 { return UQ16x16(hz) << 16 }

// Int returns the integer part.
func (f UQ16x16) Int() uint32 { return uint32(f) >> 16 }

// Frac returns the fractional part in 1/65536 units.
func (f UQ16x16) Frac() uint32 { return uint32(f) & 0xFFFF }

// Int returns the integer part.
func (p UQ24x8) Int() uint32 { return uint32(p) >> 8 }

var (
	// semitoneRatio[i] = 2^(i/12) in Q8.24.
	semitoneRatio [12]UQ8x24
	// centRatio[i] = 2^(i/1200) in Q8.24.
	centRatio [100]UQ8x24
	// noteFreq[n] is the equal-tempered frequency of MIDI note n (A4 = 440 Hz).
	noteFreq [128]UQ16x16
)

func init() {
	for i := range semitoneRatio {
		semitoneRatio[i] = UQ8x24(math.Round(math.Exp2(float64(i)/12) * float64(One24)))
	}
	for i := range centRatio {
		centRatio[i] = UQ8x24(math.Round(math.Exp2(float64(i)/1200) * float64(One24)))
	}
	for n := range noteFreq {
		noteFreq[n] = UQ16x16(math.Round(440 * math.Exp2(float64(n-69)/12) * float64(One16)))
	}
}

// NoteFreq returns the frequency of a MIDI note. Notes above 127 clamp to 127.
func NoteFreq(note uint8) UQ16x16 {
	if note > 127 {
		note = 127
	}
	return noteFreq[note]
}

// CentsRatio returns 2^(cents/1200) in Q8.24, saturating at the type's range.
func CentsRatio(cents int32) UQ8x24 {
	oct := cents / 1200
	rem := cents % 1200
	if rem < 0 {
		rem += 1200
		oct--
	}
	r := uint64(semitoneRatio[rem/100]) * uint64(centRatio[rem%100]) >> 24
	return UQ8x24(shiftSaturate(r, oct))
}

// BendPitchFreq scales freq by 2^(cents/1200). A zero offset returns freq
// unchanged, so a centred pitch wheel reproduces the unbent frequency exactly.
func BendPitchFreq(freq UQ16x16, cents int32) UQ16x16 {
	if cents == 0 || freq == 0 {
		return freq
	}
	oct := cents / 1200
	rem := cents % 1200
	if rem < 0 {
		rem += 1200
		oct--
	}
	ratio := uint64(semitoneRatio[rem/100]) * uint64(centRatio[rem%100]) >> 24
	v := uint64(freq) * ratio >> 24
	return UQ16x16(shiftSaturate(v, oct))
}

// shiftSaturate shifts v left by n (right when negative) and clamps the result
// to 32 bits.
func shiftSaturate(v uint64, n int32) uint32 {
	switch {
	case n > 0:
		if n >= 32 || v > math.MaxUint32>>uint(n) {
			return math.MaxUint32
		}
		v <<= uint(n)
	case n < 0:
		if n <= -64 {
			return 0
		}
		v >>= uint(-n)
	}
	if v > math.MaxUint32 {
		return math.MaxUint32
	}
	return uint32(v)
}

// FreqLerp interpolates linearly from a to b over length ticks. At or past
// length it returns b; a zero length is already at b.
func FreqLerp(a, b UQ16x16, t, length uint32) UQ16x16 {
	if length == 0 || t >= length {
		return b
	}
	d := int64(b) - int64(a)
	return UQ16x16(int64(a) + d*int64(t)/int64(length))
}

// ADRLerp interpolates an envelope level linearly from `from` to `to` over
// length ticks. At or past length (or for a zero length) it returns `to`.
func ADRLerp(t, length uint32, from, to int32) int32 {
	if length == 0 || t >= length {
		return to
	}
	d := int64(to) - int64(from)
	return int32(int64(from) + d*int64(t)/int64(length))
}

// LinearAttackExpDecay ramps linearly from 0 to peak over attack ticks, then
// halves every halfLife ticks, interpolating linearly inside each half-life.
// A decay of 32 or more half-lives, or a zero halfLife, yields 0.
func LinearAttackExpDecay(t, attack, halfLife uint32, peak int32) int32 {
	if t < attack {
		return int32(int64(peak) * int64(t) / int64(attack))
	}
	if halfLife == 0 {
		return 0
	}
	d := t - attack
	n := d / halfLife
	if n >= 32 {
		return 0
	}
	hi := peak >> n
	lo := hi >> 1
	frac := d % halfLife
	return hi - int32(int64(hi-lo)*int64(frac)/int64(halfLife))
}

// MulDiv64 returns a*b/c using a 128-bit intermediate. The remainder is
// returned so callers can carry it into the next conversion. A zero divisor
// or an overflowing quotient saturates.
func MulDiv64(a, b, c uint64) (q, rem uint64) {
	if c == 0 {
		return math.MaxUint64, 0
	}
	hi, lo := bits.Mul64(a, b)
	if hi >= c {
		return math.MaxUint64, 0
	}
	return bits.Div64(hi, lo, c)
}

// ClampInt8 clamps v to the signed 8-bit range and reports whether it clipped.
func ClampInt8(v int32) (int8, bool) {
	switch {
	case v > math.MaxInt8:
		return math.MaxInt8, true
	case v < math.MinInt8:
		return math.MinInt8, true
	}
	return int8(v), false
}
