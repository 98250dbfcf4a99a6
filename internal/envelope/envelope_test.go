package envelope

import "testing"

func TestZeroTimesReachSustainInOneTick(t *testing.T) {
	tmpl := &Template{AttackVol: 1, SustainVol: 1, ReleaseTime: 4}
	var e Envelope
	e.Start(tmpl, 127)
	if got := e.Tick(); got != Unity {
		t.Fatalf("first tick level = %d, want %d", got, Unity)
	}
	if e.State() != Sustain {
		t.Fatalf("state = %v, want sustain", e.State())
	}
}

func TestFullCycle(t *testing.T) {
	tmpl := &Template{AttackTime: 4, DecayTime: 4, ReleaseTime: 4, AttackVol: 2, SustainVol: 1}
	var e Envelope
	e.Start(tmpl, 0)

	want := []int32{0, 128, 256, 384}
	for i, w := range want {
		if got := e.Tick(); got != w {
			t.Fatalf("attack tick %d = %d, want %d", i, got, w)
		}
		if e.State() != Attack {
			t.Fatalf("attack tick %d state = %v", i, e.State())
		}
	}
	// Attack completes and decay starts from the peak on the same tick.
	if got := e.Tick(); got != 512 || e.State() != Decay {
		t.Fatalf("decay start = %d (%v), want 512 (decay)", got, e.State())
	}
	for i := 0; i < 3; i++ {
		e.Tick()
	}
	if got := e.Tick(); got != Unity || e.State() != Sustain {
		t.Fatalf("sustain = %d (%v), want %d (sustain)", got, e.State(), Unity)
	}
	for i := 0; i < 100; i++ {
		if got := e.Tick(); got != Unity {
			t.Fatalf("sustain should hold, got %d", got)
		}
	}

	e.Release()
	levels := []int32{256, 192, 128, 64}
	for i, w := range levels {
		if got := e.Tick(); got != w {
			t.Fatalf("release tick %d = %d, want %d", i, got, w)
		}
	}
	if got := e.Tick(); got != 0 || e.Active() {
		t.Fatalf("after release: level %d active %v", got, e.Active())
	}
}

func TestVelocityAdjustsTimesAndLevels(t *testing.T) {
	tmpl := &Template{
		AttackTime: 100, AttackTimeVel: -1,
		DecayTime: 10, DecayTimeVel: 2,
		ReleaseTime: 0, ReleaseTimeVel: 1,
		AttackVol: 1, AttackVolVel: 1,
		SustainVol: 0, SustainVolVel: 2,
	}
	if got := tmpl.AttackTicks(127); got != 0 {
		t.Fatalf("attack ticks should clamp at zero, got %d", got)
	}
	if got := tmpl.AttackTicks(50); got != 50 {
		t.Fatalf("attack ticks = %d, want 50", got)
	}
	if got := tmpl.DecayTicks(5); got != 20 {
		t.Fatalf("decay ticks = %d, want 20", got)
	}
	if got := tmpl.ReleaseTicks(64); got != 64 {
		t.Fatalf("release ticks = %d, want 64", got)
	}
	if got := tmpl.PeakLevel(127); got != Unity+127 {
		t.Fatalf("peak = %d, want %d", got, Unity+127)
	}
	if got := tmpl.SustainLevel(127); got != 254 {
		t.Fatalf("sustain = %d, want 254", got)
	}
	loud := &Template{AttackVol: 100}
	if got := loud.PeakLevel(0); got != MaxLevel {
		t.Fatalf("peak should clamp to MaxLevel, got %d", got)
	}
}

func TestReleaseDuringAttackStartsFromCurrentLevel(t *testing.T) {
	tmpl := &Template{AttackTime: 10, ReleaseTime: 2, AttackVol: 1, SustainVol: 1}
	var e Envelope
	e.Start(tmpl, 0)
	for i := 0; i < 6; i++ {
		e.Tick()
	}
	from := e.Level()
	e.Release()
	if got := e.Tick(); got != from {
		t.Fatalf("release start = %d, want %d", got, from)
	}
	e.Tick()
	e.Tick()
	if e.Active() {
		t.Fatalf("envelope should be stopped after its release")
	}
}

func TestReleaseAndStopOnStoppedAreNoops(t *testing.T) {
	var e Envelope
	e.Release()
	e.Stop()
	if e.Active() || e.Tick() != 0 {
		t.Fatalf("zero envelope should stay silent")
	}
}
