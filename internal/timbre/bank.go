package timbre

import (
	"encoding/hex"
	"math"

	"github.com/juju/errors"

	"github.com/cbegin/midisynth-go/internal/envelope"
	"github.com/cbegin/midisynth-go/internal/osc"
	"github.com/cbegin/midisynth-go/internal/percussion"
)

// GMNames are the General MIDI program names.
var GMNames = [128]string{
	"Acoustic Grand Piano", "Bright Acoustic Piano", "Electric Grand Piano", "Honky-tonk Piano",
	"Electric Piano 1", "Electric Piano 2", "Harpsichord", "Clavinet",
	"Celesta", "Glockenspiel", "Music Box", "Vibraphone",
	"Marimba", "Xylophone", "Tubular Bells", "Dulcimer",
	"Drawbar Organ", "Percussive Organ", "Rock Organ", "Church Organ",
	"Reed Organ", "Accordion", "Harmonica", "Tango Accordion",
	"Acoustic Guitar (nylon)", "Acoustic Guitar (steel)", "Electric Guitar (jazz)", "Electric Guitar (clean)",
	"Electric Guitar (muted)", "Overdriven Guitar", "Distortion Guitar", "Guitar Harmonics",
	"Acoustic Bass", "Electric Bass (finger)", "Electric Bass (pick)", "Fretless Bass",
	"Slap Bass 1", "Slap Bass 2", "Synth Bass 1", "Synth Bass 2",
	"Violin", "Viola", "Cello", "Contrabass",
	"Tremolo Strings", "Pizzicato Strings", "Orchestral Harp", "Timpani",
	"String Ensemble 1", "String Ensemble 2", "Synth Strings 1", "Synth Strings 2",
	"Choir Aahs", "Voice Oohs", "Synth Voice", "Orchestra Hit",
	"Trumpet", "Trombone", "Tuba", "Muted Trumpet",
	"French Horn", "Brass Section", "Synth Brass 1", "Synth Brass 2",
	"Soprano Sax", "Alto Sax", "Tenor Sax", "Baritone Sax",
	"Oboe", "English Horn", "Bassoon", "Clarinet",
	"Piccolo", "Flute", "Recorder", "Pan Flute",
	"Blown Bottle", "Shakuhachi", "Whistle", "Ocarina",
	"Lead 1 (square)", "Lead 2 (sawtooth)", "Lead 3 (calliope)", "Lead 4 (chiff)",
	"Lead 5 (charang)", "Lead 6 (voice)", "Lead 7 (fifths)", "Lead 8 (bass + lead)",
	"Pad 1 (new age)", "Pad 2 (warm)", "Pad 3 (polysynth)", "Pad 4 (choir)",
	"Pad 5 (bowed)", "Pad 6 (metallic)", "Pad 7 (halo)", "Pad 8 (sweep)",
	"FX 1 (rain)", "FX 2 (soundtrack)", "FX 3 (crystal)", "FX 4 (atmosphere)",
	"FX 5 (brightness)", "FX 6 (goblins)", "FX 7 (echoes)", "FX 8 (sci-fi)",
	"Sitar", "Banjo", "Shamisen", "Koto",
	"Kalimba", "Bagpipe", "Fiddle", "Shanai",
	"Tinkle Bell", "Agogo", "Steel Drums", "Woodblock",
	"Taiko Drum", "Melodic Tom", "Synth Drum", "Reverse Cymbal",
	"Guitar Fret Noise", "Breath Noise", "Seashore", "Bird Tweet",
	"Telephone Ring", "Helicopter", "Applause", "Gunshot",
}

// Built-in wavetable indices.
const (
	TablePiano = iota
	TableBell
	TableOrgan
	TableGuitar
	TableFlute
	TablePluck
	TableMallet
	numTables
)

var harmonics = [numTables][]float64{
	TablePiano:  {1, 0.5, 0.3, 0.2, 0.1, 0.05},
	TableBell:   {1, 0, 0, 0.5, 0, 0, 0.25, 0, 0.15},
	TableOrgan:  {1, 1, 0.5, 0, 0.3, 0, 0, 0.2},
	TableGuitar: {1, 0.6, 0.4, 0.3, 0.2, 0.1},
	TableFlute:  {1, 0.1, 0.05},
	TablePluck:  {1, 0.8, 0.2, 0.4, 0.1},
	TableMallet: {1, 0, 0.6, 0, 0.3},
}

// BuildWavetable sums sine harmonics (amplitude per partial, fundamental
// first) into a normalized single-cycle table.
func BuildWavetable(partials []float64, length int) []int8 {
	if length <= 0 {
		length = osc.TableLen
	}
	acc := make([]float64, length)
	peak := 0.0
	for i := range acc {
		for h, a := range partials {
			acc[i] += a * math.Sin(2*math.Pi*float64((h+1)*i)/float64(length))
		}
		peak = math.Max(peak, math.Abs(acc[i]))
	}
	out := make([]int8, length)
	if peak == 0 {
		return out
	}
	for i, v := range acc {
		out[i] = int8(math.Round(127 * v / peak))
	}
	return out
}

// ParseWavetable decodes a hex string of signed bytes into a table.
func ParseWavetable(h string) ([]int8, error) {
	data, err := hex.DecodeString(h)
	if err != nil {
		return nil, errors.NotValidf("wavetable hex: %v", err)
	}
	if len(data) == 0 {
		return nil, errors.NotValidf("empty wavetable")
	}
	out := make([]int8, len(data))
	for i, b := range data {
		out[i] = int8(b)
	}
	return out, nil
}

// family is the shared voicing of eight consecutive GM programs.
type family struct {
	table      int       // wavetable index, or -1 for shape
	shape      osc.Shape // used when table < 0
	detune     int32
	attack     uint32 // ms
	decay      uint32
	release    uint32
	sustainVel int32 // sustain level per velocity step, 1/256
}

var families = [16]family{
	{table: TablePiano, attack: 2, decay: 1200, release: 300, sustainVel: 1},
	{table: TableBell, attack: 1, decay: 600, release: 400},
	{table: TableOrgan, attack: 5, decay: 50, release: 80, sustainVel: 2},
	{table: TableGuitar, attack: 2, decay: 1500, release: 200},
	{table: -1, shape: osc.Triangle, attack: 2, decay: 400, release: 100, sustainVel: 1},
	{table: -1, shape: osc.Sawtooth, detune: 8, attack: 80, decay: 200, release: 300, sustainVel: 2},
	{table: -1, shape: osc.Sawtooth, detune: 12, attack: 120, decay: 200, release: 400, sustainVel: 2},
	{table: -1, shape: osc.Sawtooth, attack: 30, decay: 150, release: 150, sustainVel: 1},
	{table: -1, shape: osc.Square, attack: 20, decay: 100, release: 120, sustainVel: 2},
	{table: TableFlute, attack: 40, decay: 100, release: 150, sustainVel: 2},
	{table: -1, shape: osc.Square, detune: 10, attack: 2, decay: 100, release: 100, sustainVel: 2},
	{table: -1, shape: osc.Triangle, detune: 15, attack: 300, decay: 500, release: 600, sustainVel: 1},
	{table: -1, shape: osc.Sawtooth, detune: 25, attack: 200, decay: 800, release: 800, sustainVel: 1},
	{table: TablePluck, attack: 2, decay: 700, release: 200},
	{table: TableMallet, attack: 1, decay: 300, release: 150},
	{table: -1, shape: osc.Noise, attack: 10, decay: 500, release: 300},
}

// Bank maps programs to timbres. Melodic programs come from the General
// MIDI families; every drum-channel program plays Drums.
type Bank struct {
	Programs [128]*Timbre
	Drums    *Timbre
	Tables   [][]int8
}

// NewBank builds the default General MIDI bank at sampleRate with kit as the
// drum kit. A nil kit selects the synthesized kit.
func NewBank(sampleRate uint32, kit percussion.Kit) *Bank {
	if kit == nil {
		kit = percussion.NewSynthKit(sampleRate)
	}
	b := &Bank{Tables: make([][]int8, numTables)}
	for i, h := range harmonics {
		b.Tables[i] = BuildWavetable(h, osc.TableLen)
	}
	ms := func(v uint32) int32 { return int32(uint64(v) * uint64(sampleRate) / 1000) }
	for p := range b.Programs {
		f := families[p/8]
		var src Source = ShapeSource{Shape: f.shape, Detune: f.detune}
		if f.table >= 0 {
			src = WavetableSource{Index: f.table, Table: b.Tables[f.table]}
		}
		b.Programs[p] = &Timbre{
			Name:   GMNames[p],
			Source: src,
			Env: envelope.Template{
				AttackTime:    ms(f.attack),
				DecayTime:     ms(f.decay),
				ReleaseTime:   ms(f.release),
				AttackVolVel:  2,
				SustainVolVel: f.sustainVel,
			},
		}
	}
	b.Drums = &Timbre{
		Name:   "Standard Kit (" + kit.Name() + ")",
		Source: PercussionSource{Generator: kit.Generator(), Data: kit.Data()},
		Flags:  FlagPercussion,
	}
	return b
}

// Program returns the melodic timbre for program p (clamped to 0..127).
func (b *Bank) Program(p int) *Timbre {
	return b.Programs[min(max(p, 0), 127)]
}

// Drumkit returns the timbre for program p on a percussion channel.
func (b *Bank) Drumkit(int) *Timbre { return b.Drums }

// SetWavetable replaces program p with a wavetable voice playing table,
// keeping the program's name and envelope.
func (b *Bank) SetWavetable(p int, table []int8) error {
	if p < 0 || p > 127 {
		return errors.NotValidf("program %d", p)
	}
	if len(table) == 0 {
		return errors.NotValidf("empty wavetable")
	}
	cp := make([]int8, len(table))
	copy(cp, table)
	b.Tables = append(b.Tables, cp)
	old := b.Programs[p]
	b.Programs[p] = &Timbre{
		Name:   old.Name,
		Source: WavetableSource{Index: len(b.Tables) - 1, Table: cp},
		Env:    old.Env,
	}
	return nil
}

// SetSample replaces program p with a recording pitched from rootKey. A loop
// is used when loopEnd > loopStart; otherwise the sample plays once.
func (b *Bank) SetSample(p int, data []int8, rate uint32, rootKey int, loopStart, loopEnd uint32) error {
	switch {
	case p < 0 || p > 127:
		return errors.NotValidf("program %d", p)
	case len(data) == 0:
		return errors.NotValidf("empty sample")
	case rate == 0:
		return errors.NotValidf("sample rate 0")
	case rootKey < 0 || rootKey > 127:
		return errors.NotValidf("root key %d", rootKey)
	case loopEnd > uint32(len(data)) || loopStart > loopEnd:
		return errors.NotValidf("loop %d..%d of %d samples", loopStart, loopEnd, len(data))
	}
	old := b.Programs[p]
	b.Programs[p] = &Timbre{
		Name: old.Name,
		Source: SampleSource{
			Data:      data,
			Rate:      rate,
			RootKey:   uint8(rootKey),
			LoopStart: loopStart,
			LoopEnd:   loopEnd,
		},
		Env: old.Env,
	}
	return nil
}
