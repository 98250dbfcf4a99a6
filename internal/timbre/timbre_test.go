package timbre

import (
	"testing"

	"github.com/cbegin/midisynth-go/internal/fixed"
	"github.com/cbegin/midisynth-go/internal/osc"
	"github.com/cbegin/midisynth-go/internal/percussion"
)

const rate = 22050

func TestKindString(t *testing.T) {
	for k, want := range map[Kind]string{Wavetable: "wavetable", FixedShape: "shape", Sampled: "sample", Percussion: "percussion", Kind(9): "unknown"} {
		if got := k.String(); got != want {
			t.Errorf("Kind(%d).String() = %q, want %q", k, got, want)
		}
	}
}

func TestShapeSourceMatchesOscillator(t *testing.T) {
	tb := &Timbre{Source: ShapeSource{Shape: osc.Sawtooth}}
	var st State
	freq := fixed.NoteFreq(60)
	tb.Start(&st, 60, freq, rate)
	for i := uint32(0); i < 500; i++ {
		if got, want := tb.Next(&st), osc.At(osc.Sawtooth, freq, i, rate); got != want {
			t.Fatalf("tick %d: got %d, want %d", i, got, want)
		}
	}
	if st.Tick != 500 {
		t.Fatalf("Tick = %d, want 500", st.Tick)
	}
}

func TestShapeSourceDetuneAverages(t *testing.T) {
	tb := &Timbre{Source: ShapeSource{Shape: osc.Square, Detune: 1200}}
	var st State
	tb.Start(&st, 60, fixed.Hz(100), rate)
	if got := tb.Next(&st); got != 127 {
		t.Fatalf("both oscillators high: got %d, want 127", got)
	}
	if d := int64(st.Osc[1].Phase()) - 2*int64(st.Osc[0].Phase()); d < -2 || d > 2 {
		t.Fatalf("detuned oscillator should run an octave up: %d vs %d", st.Osc[1].Phase(), st.Osc[0].Phase())
	}
}

func TestRetuneKeepsPhase(t *testing.T) {
	tb := &Timbre{Source: ShapeSource{Shape: osc.Sine}}
	var st State
	tb.Start(&st, 69, fixed.Hz(440), rate)
	for i := 0; i < 37; i++ {
		tb.Next(&st)
	}
	ph := st.Osc[0].Phase()
	tb.Retune(&st, fixed.BendPitchFreq(fixed.Hz(440), 100))
	if st.Osc[0].Phase() != ph || st.Tick != 37 {
		t.Fatalf("retune restarted the note")
	}
}

func TestSampleSourcePlaysOnceAtRootKey(t *testing.T) {
	data := []int8{5, -5, 10, -10}
	tb := &Timbre{Source: SampleSource{Data: data, Rate: rate, RootKey: 69}}
	var st State
	tb.Start(&st, 69, fixed.NoteFreq(69), rate)
	for i, want := range data {
		if got := tb.Next(&st); got != want {
			t.Fatalf("tick %d: got %d, want %d", i, got, want)
		}
	}
	tb.Next(&st)
	if !st.Done {
		t.Fatalf("one-shot sample should finish")
	}
	if got := tb.Next(&st); got != 0 {
		t.Fatalf("finished sample produced %d", got)
	}
}

func TestSampleSourceOctaveUpSkips(t *testing.T) {
	tb := &Timbre{Source: SampleSource{Data: []int8{1, 2, 3, 4, 5, 6}, Rate: rate, RootKey: 69}}
	var st State
	tb.Start(&st, 81, fixed.NoteFreq(81), rate)
	for _, want := range []int8{1, 3, 5} {
		if got := tb.Next(&st); got != want {
			t.Fatalf("got %d, want %d", got, want)
		}
	}
}

func TestSampleSourceLoops(t *testing.T) {
	tb := &Timbre{Source: SampleSource{Data: []int8{0, 1, 2, 3}, Rate: rate, RootKey: 60, LoopStart: 1, LoopEnd: 3}}
	var st State
	tb.Start(&st, 60, fixed.NoteFreq(60), rate)
	want := []int8{0, 1, 2, 1, 2, 1, 2}
	for i, w := range want {
		if got := tb.Next(&st); got != w {
			t.Fatalf("tick %d: got %d, want %d", i, got, w)
		}
	}
	if st.Done {
		t.Fatalf("looping sample should not finish")
	}
}

func TestPercussionSourceStopsPollingWhenDone(t *testing.T) {
	const last = 5
	calls := 0
	gen := func(drum uint8, idx uint32, done *bool, s *percussion.Scratch, data any) int8 {
		calls++
		if idx != uint32(calls-1) {
			t.Fatalf("idx %d on call %d", idx, calls)
		}
		s[0]++
		if idx == last {
			*done = true
		}
		return int8(data.(int))
	}
	tb := &Timbre{Source: PercussionSource{Generator: gen, Data: 7}, Flags: FlagPercussion}
	var st State
	st.Scratch[0] = 99
	tb.Start(&st, 38, 0, rate)
	if st.Scratch[0] != 0 {
		t.Fatalf("scratch not zeroed on start")
	}
	for i := 0; i < 20; i++ {
		tb.Next(&st)
	}
	if calls != last+1 {
		t.Fatalf("generator called %d times, want %d", calls, last+1)
	}
	if st.Scratch[0] != last+1 {
		t.Fatalf("scratch did not persist between calls: %d", st.Scratch[0])
	}
	if !tb.IsPercussion() {
		t.Fatalf("percussion flag lost")
	}
}

func TestDefaultBank(t *testing.T) {
	b := NewBank(rate, nil)
	for p := 0; p < 128; p++ {
		tb := b.Program(p)
		if tb == nil || tb.Source == nil {
			t.Fatalf("program %d missing", p)
		}
		if tb.Name != GMNames[p] {
			t.Fatalf("program %d name %q", p, tb.Name)
		}
		if tb.IsPercussion() {
			t.Fatalf("melodic program %d flagged percussion", p)
		}
	}
	if b.Program(-3) != b.Programs[0] || b.Program(500) != b.Programs[127] {
		t.Fatalf("program index should clamp")
	}
	if !b.Drumkit(0).IsPercussion() || b.Drumkit(0).Source.Kind() != Percussion {
		t.Fatalf("drum kit should be a percussion timbre")
	}
	if b.Program(0).Source.Kind() != Wavetable || b.Program(80).Source.Kind() != FixedShape {
		t.Fatalf("unexpected source kinds")
	}
}

func TestBuildWavetableNormalizes(t *testing.T) {
	tbl := BuildWavetable([]float64{1}, 64)
	if len(tbl) != 64 || tbl[0] != 0 || tbl[16] != 127 || tbl[48] != -127 {
		t.Fatalf("unexpected sine table: len %d, [0]=%d [16]=%d [48]=%d", len(tbl), tbl[0], tbl[16], tbl[48])
	}
	if z := BuildWavetable(nil, 8); z[3] != 0 {
		t.Fatalf("empty partials should be silent")
	}
}

func TestSetWavetable(t *testing.T) {
	b := NewBank(rate, nil)
	tbl, err := ParseWavetable("007f0081")
	if err != nil {
		t.Fatalf("ParseWavetable: %v", err)
	}
	if tbl[1] != 127 || tbl[3] != -127 {
		t.Fatalf("decoded %v", tbl)
	}
	if err := b.SetWavetable(5, tbl); err != nil {
		t.Fatalf("SetWavetable: %v", err)
	}
	src, ok := b.Program(5).Source.(WavetableSource)
	if !ok || len(src.Table) != 4 || b.Program(5).Name != GMNames[5] {
		t.Fatalf("program 5 not replaced: %#v", b.Program(5))
	}
	if err := b.SetWavetable(200, tbl); err == nil {
		t.Fatalf("expected error for bad program")
	}
	if _, err := ParseWavetable("zz"); err == nil {
		t.Fatalf("expected error for bad hex")
	}
	if _, err := ParseWavetable(""); err == nil {
		t.Fatalf("expected error for empty table")
	}
}

func TestSetSample(t *testing.T) {
	b := NewBank(rate, nil)
	data := []int8{10, 20, 30, 40}
	if err := b.SetSample(24, data, rate, 60, 1, 4); err != nil {
		t.Fatalf("SetSample: %v", err)
	}
	tb := b.Program(24)
	src, ok := tb.Source.(SampleSource)
	if !ok || src.RootKey != 60 || src.LoopEnd != 4 || tb.Name != GMNames[24] {
		t.Fatalf("program 24 not replaced: %#v", tb)
	}
	if tb.Env != NewBank(rate, nil).Program(24).Env {
		t.Fatalf("envelope not kept")
	}

	for name, err := range map[string]error{
		"program":  b.SetSample(128, data, rate, 60, 0, 0),
		"empty":    b.SetSample(1, nil, rate, 60, 0, 0),
		"rate":     b.SetSample(1, data, 0, 60, 0, 0),
		"root key": b.SetSample(1, data, rate, 128, 0, 0),
		"loop end": b.SetSample(1, data, rate, 60, 0, 5),
		"loop":     b.SetSample(1, data, rate, 60, 3, 2),
	} {
		if err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
}
