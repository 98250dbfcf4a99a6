package lfo

import (
	"testing"

	"github.com/juju/errors"

	"github.com/cbegin/midisynth-go/internal/fixed"
)

func abs(v int32) int32 {
	if v < 0 {
		return -v
	}
	return v
}

func TestLFOTriangleBasicShape(t *testing.T) {
	l := &LFO{}
	l.Set(100, fixed.Hz(1), WaveTriangle)

	const sr = 100 // 100 samples per cycle
	samples := make([]int32, 100)
	for i := range samples {
		samples[i] = l.Sample(sr)
	}

	if samples[0] != -100 {
		t.Errorf("triangle at phase 0: got %d, want -100", samples[0])
	}
	if abs(samples[25]) > 1 {
		t.Errorf("triangle at phase 0.25: got %d, want ~0", samples[25])
	}
	if abs(samples[50]-100) > 1 {
		t.Errorf("triangle at phase 0.5: got %d, want ~100", samples[50])
	}
}

func TestLFOSquareShape(t *testing.T) {
	l := &LFO{}
	l.Set(2, fixed.Hz(1), WaveSquare)

	if v := l.Sample(100); v != 2 {
		t.Errorf("square first half: got %d, want 2", v)
	}
	for i := 1; i < 51; i++ {
		l.Sample(100)
	}
	if v := l.Sample(100); v != -2 {
		t.Errorf("square second half: got %d, want -2", v)
	}
}

func TestLFOSawShape(t *testing.T) {
	l := &LFO{}
	l.Set(50, fixed.Hz(1), WaveSaw)
	if v := l.Sample(100); v != 50 {
		t.Errorf("saw at phase 0: got %d, want 50", v)
	}
}

func TestLFOAdvanceMatchesRepeatedSample(t *testing.T) {
	a, b := &LFO{}, &LFO{}
	a.Set(40, fixed.Hz(5), WaveTriangle)
	b.Set(40, fixed.Hz(5), WaveTriangle)
	for i := 0; i < 32; i++ {
		a.Sample(22050)
	}
	b.Advance(32, 22050)
	if a.phase != b.phase {
		t.Fatalf("Advance(32) phase %d, 32x Sample phase %d", b.phase, a.phase)
	}
}

func TestLFOZeroDepthOrRateReturnsZero(t *testing.T) {
	l := &LFO{}
	l.Set(0, fixed.Hz(5), WaveTriangle)
	if v := l.Sample(44100); v != 0 {
		t.Errorf("zero depth should return 0, got %d", v)
	}
	l.Set(10, 0, WaveTriangle)
	if v := l.Sample(44100); v != 0 {
		t.Errorf("zero rate should return 0, got %d", v)
	}
}

func TestLFOActive(t *testing.T) {
	l := &LFO{}
	if l.Active() {
		t.Error("default LFO should not be active")
	}
	l.Set(10, fixed.Hz(5), WaveTriangle)
	if !l.Active() {
		t.Error("configured LFO should be active")
	}
	l.SetDepth(0)
	if l.Active() {
		t.Error("zero-depth LFO should not be active")
	}
}

func TestLFOUnknownWaveformIsTriangle(t *testing.T) {
	l := &LFO{}
	l.Set(10, fixed.Hz(1), 42)
	if l.waveform != WaveTriangle {
		t.Fatalf("waveform = %d, want triangle", l.waveform)
	}
}

func TestParseWaveform(t *testing.T) {
	for name, want := range map[string]Waveform{
		"":         WaveTriangle,
		"triangle": WaveTriangle,
		"saw":      WaveSaw,
		"square":   WaveSquare,
		"random":   WaveRandom,
	} {
		got, err := ParseWaveform(name)
		if err != nil || got != want {
			t.Errorf("ParseWaveform(%q) = %s, %v; want %s", name, got, err, want)
		}
	}
	if _, err := ParseWaveform("sine"); !errors.Is(err, errors.NotValid) {
		t.Fatalf("expected not valid, got %v", err)
	}
}

func TestLFORandomStaysInRange(t *testing.T) {
	l := &LFO{}
	l.Set(100, fixed.Hz(10), WaveRandom)

	var nonZero int
	for i := 0; i < 2000; i++ {
		v := l.Sample(1000)
		if v != 0 {
			nonZero++
		}
		if abs(v) > 100 {
			t.Fatalf("random sample exceeds depth: %d", v)
		}
	}
	if nonZero == 0 {
		t.Fatalf("random LFO never changed its held value")
	}
}
