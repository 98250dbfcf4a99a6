package midisynth

import (
	"bytes"
	"crypto/sha256"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-audio/wav"
	"github.com/juju/errors"

	"github.com/cbegin/midisynth-go/internal/percussion"
)

func TestRenderIsDeterministic(t *testing.T) {
	a, err := Render(bytes.NewReader(phrase), 10)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	b, err := Render(bytes.NewReader(phrase), 10)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if silent(a) {
		t.Fatalf("expected audible output")
	}
	ha, hb := sha256.Sum256(int8Bytes(a)), sha256.Sum256(int8Bytes(b))
	if ha != hb {
		t.Fatalf("renders differ: %x vs %x", ha, hb)
	}
}

func int8Bytes(s []int8) []byte {
	out := make([]byte, len(s))
	for i, v := range s {
		out[i] = byte(v)
	}
	return out
}

func TestRenderStopsAfterSong(t *testing.T) {
	const rate = 22050
	out, err := Render(bytes.NewReader(phrase), 10, WithSampleRate(rate))
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	// 336 ticks at 120 bpm is 1.75 s, plus release and tail.
	if len(out) < rate*7/4 || len(out) >= rate*3 {
		t.Fatalf("unexpected render length %d", len(out))
	}
	if !silent(out[len(out)-rate/20:]) {
		t.Fatalf("expected the render to end in silence")
	}
}

func TestRenderLoopFillsLimit(t *testing.T) {
	out, err := Render(bytes.NewReader(phrase), 4, WithSampleRate(8000), WithLoop(true))
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if len(out) != 32000 {
		t.Fatalf("expected 32000 samples, got %d", len(out))
	}
	if silent(out[len(out)-8000:]) {
		t.Fatalf("expected the song to play again")
	}
}

func TestRenderRejectsGarbage(t *testing.T) {
	if _, err := Render(bytes.NewReader([]byte("not midi")), 1); !errors.Is(err, errors.NotValid) {
		t.Fatalf("expected not valid, got %v", err)
	}
	if _, err := RenderFile(filepath.Join(t.TempDir(), "missing.mid"), 1); err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func TestRenderFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "phrase.mid")
	if err := os.WriteFile(path, phrase, 0o644); err != nil {
		t.Fatal(err)
	}
	out, err := RenderFile(path, 1)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if len(out) != 22050 {
		t.Fatalf("expected one second, got %d", len(out))
	}
}

func TestWriteWAVIsUnsigned8Bit(t *testing.T) {
	samples := []int8{0, 127, -128, 64, -1}
	path := filepath.Join(t.TempDir(), "out.wav")
	if err := WriteWAVFile(path, samples, 22050); err != nil {
		t.Fatalf("write: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	d := wav.NewDecoder(f)
	buf, err := d.FullPCMBuffer()
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if d.BitDepth != 8 || d.NumChans != 1 || d.SampleRate != 22050 {
		t.Fatalf("unexpected format: %d bits, %d channels, %d Hz", d.BitDepth, d.NumChans, d.SampleRate)
	}
	want := []int{128, 255, 0, 192, 127}
	for i, w := range want {
		if buf.Data[i] != w {
			t.Fatalf("sample %d: got %d, want %d", i, buf.Data[i], w)
		}
	}

	f.Seek(0, 0)
	s, err := percussion.DecodeWAV(f)
	if err != nil {
		t.Fatalf("decode as drum sample: %v", err)
	}
	for i, v := range samples {
		if s.Data[i] != v {
			t.Fatalf("round trip %d: got %d, want %d", i, s.Data[i], v)
		}
	}
}
