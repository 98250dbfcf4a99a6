package percussion

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

const testRate = 22050

// run drives g until done and returns the samples it produced.
func run(t *testing.T, g Generator, data any, note uint8, limit uint32) []int8 {
	t.Helper()
	var s Scratch
	var out []int8
	for idx := uint32(0); idx < limit; idx++ {
		done := false
		out = append(out, g(note, idx, &done, &s, data))
		if done {
			return out
		}
	}
	t.Fatalf("note %d did not finish within %d ticks", note, limit)
	return nil
}

func TestSynthKitEveryDrumTerminates(t *testing.T) {
	k := NewSynthKit(testRate)
	for note := uint8(FirstDrum); note <= LastDrum; note++ {
		if !k.Has(note) {
			t.Fatalf("note %d (%s) missing from kit", note, GMRecipes[note].Name)
		}
		out := run(t, k.Generator(), k.Data(), note, k.Length(note))
		var loud bool
		for _, v := range out {
			if v != 0 {
				loud = true
				break
			}
		}
		if !loud {
			t.Errorf("note %d (%s) is silent", note, GMRecipes[note].Name)
		}
	}
}

func TestSynthKitIsDeterministic(t *testing.T) {
	k := NewSynthKit(testRate)
	for _, note := range []uint8{36, 38, 42, 49} {
		a := run(t, Synth, k, note, k.Length(note))
		b := run(t, Synth, k, note, k.Length(note))
		if len(a) != len(b) {
			t.Fatalf("note %d: lengths differ %d vs %d", note, len(a), len(b))
		}
		for i := range a {
			if a[i] != b[i] {
				t.Fatalf("note %d tick %d: %d vs %d", note, i, a[i], b[i])
			}
		}
	}
}

func TestSynthKitUnknownNoteFinishesImmediately(t *testing.T) {
	k := NewSynthKit(testRate)
	var s Scratch
	done := false
	if v := Synth(20, 0, &done, &s, k); v != 0 || !done {
		t.Fatalf("unmapped note: sample %d done %v", v, done)
	}
	done = false
	Synth(36, 0, &done, &s, nil)
	if !done {
		t.Fatalf("missing kit data should finish the note")
	}
}

func TestScratchReset(t *testing.T) {
	s := Scratch{1, 2, 3, 4}
	s.Reset()
	if s != (Scratch{}) {
		t.Fatalf("Reset left %v", s)
	}
}

func writeWAV(t *testing.T, path string, rate, depth int, data []int) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	enc := wav.NewEncoder(f, rate, depth, 1, 1)
	buf := &audio.IntBuffer{Data: data, Format: &audio.Format{SampleRate: rate, NumChannels: 1}, SourceBitDepth: depth}
	if err := enc.Write(buf); err != nil {
		t.Fatal(err)
	}
	if err := enc.Close(); err != nil {
		t.Fatal(err)
	}
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestSampleKitPlaysCachedSample(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "kick.wav")
	writeWAV(t, path, 8000, 16, []int{0, 100 << 8, -50 << 8})

	k, err := LoadSampleKit(map[int]string{36: path}, NewSynthKit(8000), 8000)
	if err != nil {
		t.Fatalf("LoadSampleKit: %v", err)
	}
	if k.Cache.Len() != 1 {
		t.Fatalf("cache holds %d samples, want 1", k.Cache.Len())
	}
	out := run(t, Sampled, k, 36, 10)
	want := []int8{0, 100, -50}
	if len(out) != len(want) {
		t.Fatalf("got %v, want %v", out, want)
	}
	for i := range want {
		if out[i] != want[i] {
			t.Fatalf("got %v, want %v", out, want)
		}
	}
}

func TestSampleKitResamples(t *testing.T) {
	cache := &AssetCache{}
	cache.Put(40, &Sample{Data: []int8{1, 2, 3, 4}, Rate: 16000})
	k := NewSampleKit(cache, nil, 8000)
	out := run(t, Sampled, k, 40, 10)
	if len(out) != 2 || out[0] != 1 || out[1] != 3 {
		t.Fatalf("half-rate playback = %v, want [1 3]", out)
	}
}

func TestSampleKitResamplesLateAdditions(t *testing.T) {
	k := NewSampleKit(nil, nil, 8000)
	k.Cache.Put(41, &Sample{Data: []int8{1, 2, 3, 4}, Rate: 16000})
	out := run(t, Sampled, k, 41, 10)
	if len(out) != 2 || out[0] != 1 || out[1] != 3 {
		t.Fatalf("sample put after construction = %v, want [1 3]", out)
	}
}

func TestLoadSample(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tone.wav")
	writeWAV(t, path, 11025, 8, []int{128, 228, 28})
	smp, err := LoadSample(path)
	if err != nil {
		t.Fatalf("LoadSample: %v", err)
	}
	if smp.Rate != 11025 || len(smp.Data) != 3 || smp.Data[1] != 100 || smp.Data[2] != -100 {
		t.Fatalf("got %d Hz %v", smp.Rate, smp.Data)
	}
}

func TestSampleKitFallsBackToSynth(t *testing.T) {
	synth := NewSynthKit(testRate)
	k := NewSampleKit(nil, synth, testRate)
	a := run(t, Sampled, k, 38, synth.Length(38))
	b := run(t, Synth, synth, 38, synth.Length(38))
	if len(a) != len(b) {
		t.Fatalf("fallback length %d, synth length %d", len(a), len(b))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("tick %d: fallback %d, synth %d", i, a[i], b[i])
		}
	}

	bare := NewSampleKit(nil, nil, testRate)
	var s Scratch
	done := false
	Sampled(38, 0, &done, &s, bare)
	if !done {
		t.Fatalf("no sample and no fallback should finish immediately")
	}
}

func TestLoadSampleKitErrors(t *testing.T) {
	if _, err := LoadSampleKit(map[int]string{200: "x.wav"}, nil, testRate); err == nil {
		t.Fatalf("expected error for out-of-range note")
	}
	if _, err := LoadSampleKit(map[int]string{36: filepath.Join(t.TempDir(), "missing.wav")}, nil, testRate); err == nil {
		t.Fatalf("expected error for missing file")
	}
	bad := filepath.Join(t.TempDir(), "bad.wav")
	if err := os.WriteFile(bad, []byte("not a wav file at all"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadSampleKit(map[int]string{36: bad}, nil, testRate); err == nil {
		t.Fatalf("expected error for invalid wav")
	}
}
