package timer

import "testing"

type fakeSysTimer struct {
	clo     uint32
	cmp1    uint32
	cleared int
}

func (f *fakeSysTimer) counterLow() uint32   { return f.clo }
func (f *fakeSysTimer) compare1() uint32     { return f.cmp1 }
func (f *fakeSysTimer) setCompare1(v uint32) { f.cmp1 = v }
func (f *fakeSysTimer) clearMatch1()         { f.cleared++ }

func TestNextCompareAdvancesByInterval(t *testing.T) {
	if got := nextCompare(1000, 200_000); got != 201_000 {
		t.Fatalf("nextCompare(1000, 200000) = %d, want 201000", got)
	}
}

func TestNextCompareWrapsAt32Bits(t *testing.T) {
	got := nextCompare(^uint32(0)-10, 20)
	want := uint32(9) // wraps around past 0xFFFFFFFF
	if got != want {
		t.Fatalf("nextCompare wraparound = %d, want %d", got, want)
	}
}

func TestArmProgramsCompareFromCurrentCounter(t *testing.T) {
	hw := &fakeSysTimer{clo: 5000}
	tm := New(hw, 200_000, nil)
	tm.Arm()
	if hw.cmp1 != 205_000 {
		t.Fatalf("Arm: compare1 = %d, want 205000", hw.cmp1)
	}
}

func TestHandleIRQReArmsClearsMatchAndTicks(t *testing.T) {
	hw := &fakeSysTimer{cmp1: 1000}
	ticked := false
	tm := New(hw, 200_000, func() { ticked = true })

	tm.HandleIRQ()

	if hw.cmp1 != 201_000 {
		t.Fatalf("HandleIRQ: compare1 = %d, want 201000 (re-armed from previous compare)", hw.cmp1)
	}
	if hw.cleared != 1 {
		t.Fatalf("HandleIRQ: expected clearMatch1 called once, got %d", hw.cleared)
	}
	if !ticked {
		t.Fatalf("HandleIRQ: expected onTick to be invoked")
	}
}

func TestHandleIRQToleratesNilCallback(t *testing.T) {
	hw := &fakeSysTimer{}
	tm := New(hw, 200_000, nil)
	tm.HandleIRQ() // must not panic
}
