package cpu

import (
	"testing"

	"github.com/davecgh/go-spew/spew"
	"github.com/go-test/deep"

	"mos6502/disassemble"
	"mos6502/irq"
	"mos6502/memory"
)

// testRam is a Flat RAM pre-seeded with a fixed reset vector so tests can
// drop a short program in at a known address and single-step it.
type testRam struct {
	*memory.Flat
}

const testStart = 0x0200

func newTestRam(program ...uint8) *testRam {
	r := &testRam{memory.NewFlat()}
	r.Write(RESET_VECTOR, uint8(testStart&0xFF))
	r.Write(RESET_VECTOR+1, uint8(testStart>>8))
	for i, b := range program {
		r.Write(uint16(testStart+i), b)
	}
	return r
}

func newChip(t *testing.T, variant CPUType, program ...uint8) (*Chip, *testRam) {
	t.Helper()
	ram := newTestRam(program...)
	p, err := Init(&ChipDef{Cpu: variant, Ram: ram})
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	return p, ram
}

// run steps the chip until the in-flight instruction completes. On
// failure it reports both the disassembly of the instruction that was
// about to run and a full state dump, so a failing test names the
// opcode involved rather than just its byte value.
func run(t *testing.T, p *Chip, ram memory.Ram) {
	t.Helper()
	mnemonic, _ := disassemble.Step(p.PC, ram)
	if err := p.Step(); err != nil {
		t.Fatalf("Step %s: %v\n%s", mnemonic, err, spew.Sdump(p))
	}
}

func TestResetSequence(t *testing.T) {
	p, _ := newChip(t, CPU_NMOS)
	if p.PC != testStart {
		t.Errorf("PC = %#04x, want %#04x", p.PC, testStart)
	}
	if p.Cycles != 7 {
		t.Errorf("Cycles after reset = %d, want 7", p.Cycles)
	}
	if p.P&P_INTERRUPT == 0 {
		t.Errorf("P_INTERRUPT not set after reset: %#02x", p.P)
	}
}

// TestResetForcesArchitecturalState pins down spec property 5: reset always
// zeroes A, X, and Y, lands S at 0xFD, and clears Decimal, regardless of
// whatever state the chip was in beforehand.
func TestResetForcesArchitecturalState(t *testing.T) {
	ram := newTestRam()
	p, err := Init(&ChipDef{Cpu: CPU_NMOS, Ram: ram})
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	// Dirty every register and set Decimal before resetting again, so a
	// reset that merely left things alone would be caught.
	p.A, p.X, p.Y, p.S = 0x11, 0x22, 0x33, 0x44
	p.P |= P_DECIMAL

	if err := p.Reset(); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	if diff := deep.Equal([4]uint8{p.A, p.X, p.Y, p.S}, [4]uint8{0, 0, 0, 0xFD}); diff != nil {
		t.Errorf("register state after reset: %v", diff)
	}
	if p.P&P_DECIMAL != 0 {
		t.Errorf("P_DECIMAL still set after reset: %#02x", p.P)
	}
}

func TestLoadImmediate(t *testing.T) {
	p, ram := newChip(t, CPU_NMOS, 0xA9, 0x42) // LDA #$42
	before := p.Cycles
	run(t, p, ram)
	if p.A != 0x42 {
		t.Errorf("A = %#02x, want 0x42", p.A)
	}
	if got := p.Cycles - before; got != 2 {
		t.Errorf("LDA immediate cost %d cycles, want 2", got)
	}
	if p.P&P_ZERO != 0 || p.P&P_NEGATIVE != 0 {
		t.Errorf("unexpected flags after LDA #$42: %#02x", p.P)
	}
}

func TestLoadImmediateZeroFlag(t *testing.T) {
	p, ram := newChip(t, CPU_NMOS, 0xA9, 0x00)
	run(t, p, ram)
	if p.P&P_ZERO == 0 {
		t.Errorf("Z not set after LDA #$00: %#02x", p.P)
	}
}

func TestZeroPageStoreThenLoad(t *testing.T) {
	p, ram := newChip(t, CPU_NMOS,
		0xA9, 0x99, // LDA #$99
		0x85, 0x10, // STA $10
		0xA9, 0x00, // LDA #$00
		0xA5, 0x10, // LDA $10
	)
	for i := 0; i < 4; i++ {
		run(t, p, ram)
	}
	if p.A != 0x99 {
		t.Errorf("A = %#02x, want 0x99", p.A)
	}
	if v := ram.Read(0x10); v != 0x99 {
		t.Errorf("mem[0x10] = %#02x, want 0x99", v)
	}
}

func TestAbsoluteXPageCrossingExtraCycle(t *testing.T) {
	// LDA $2010,X with X=0x20 stays on the same page (effective $2030).
	pSame, ramSame := newChip(t, CPU_NMOS, 0xA2, 0x20, 0xBD, 0x10, 0x20) // LDX #$20; LDA $2010,X
	run(t, pSame, ramSame)
	before := pSame.Cycles
	run(t, pSame, ramSame)
	if got := pSame.Cycles - before; got != 4 {
		t.Errorf("LDA abs,X same-page cost %d cycles, want 4", got)
	}

	// LDA $20FF,X with X=0x02 crosses from page $20 into $21 (effective $2101).
	pCross, ramCross := newChip(t, CPU_NMOS, 0xA2, 0x02, 0xBD, 0xFF, 0x20) // LDX #$02; LDA $20FF,X
	run(t, pCross, ramCross)
	before = pCross.Cycles
	run(t, pCross, ramCross)
	if got := pCross.Cycles - before; got != 5 {
		t.Errorf("LDA abs,X page-crossing cost %d cycles, want 5", got)
	}
}

func TestAbsoluteXStoreAlwaysPaysCrossingCycle(t *testing.T) {
	p, ram := newChip(t, CPU_NMOS, 0xA2, 0x01, 0xA9, 0x55, 0x9D, 0x00, 0x20) // LDX #1; LDA #$55; STA $2000,X
	run(t, p, ram)
	run(t, p, ram)
	before := p.Cycles
	run(t, p, ram)
	if got := p.Cycles - before; got != 5 {
		t.Errorf("STA abs,X cost %d cycles, want 5 regardless of crossing", got)
	}
	if v := ram.Read(0x2001); v != 0x55 {
		t.Errorf("mem[0x2001] = %#02x, want 0x55", v)
	}
}

func TestBranchTimingAllThreeCases(t *testing.T) {
	// BEQ with Z clear: not taken, 2 cycles.
	pNotTaken, ramNotTaken := newChip(t, CPU_NMOS, 0xF0, 0x10) // BEQ +16
	before := pNotTaken.Cycles
	run(t, pNotTaken, ramNotTaken)
	if got := pNotTaken.Cycles - before; got != 2 {
		t.Errorf("BEQ not-taken cost %d cycles, want 2", got)
	}

	// BEQ with Z set via a prior LDA #0: taken, same page, 3 cycles.
	pTaken, ramTaken := newChip(t, CPU_NMOS, 0xA9, 0x00, 0xF0, 0x10)
	run(t, pTaken, ramTaken)
	before = pTaken.Cycles
	run(t, pTaken, ramTaken)
	if got := pTaken.Cycles - before; got != 3 {
		t.Errorf("BEQ taken (no crossing) cost %d cycles, want 3", got)
	}

	// Taken branch whose target crosses a page boundary costs a 4th cycle.
	// Program starts at $02F0, so the BEQ at $02F2 leaves PC at $02F4 after
	// its operand and a +12 offset lands at $0300, a different page.
	ram := memory.NewFlat()
	ram.Write(RESET_VECTOR, 0xF0)
	ram.Write(RESET_VECTOR+1, 0x02)
	ram.Write(0x02F0, 0xA9)
	ram.Write(0x02F1, 0x00)
	ram.Write(0x02F2, 0xF0)
	ram.Write(0x02F3, 0x0C)
	p, err := Init(&ChipDef{Cpu: CPU_NMOS, Ram: ram})
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	run(t, p, ram)
	before = p.Cycles
	run(t, p, ram)
	if got := p.Cycles - before; got != 4 {
		t.Errorf("BEQ taken across a page boundary cost %d cycles, want 4", got)
	}
}

func TestBranchTakenDelaysInterruptRecognition(t *testing.T) {
	ram := memory.NewFlat()
	ram.Write(RESET_VECTOR, uint8(testStart&0xFF))
	ram.Write(RESET_VECTOR+1, uint8(testStart>>8))
	ram.Write(testStart, 0xA9)   // LDA #$00 (sets Z)
	ram.Write(testStart+1, 0x00)
	ram.Write(testStart+2, 0xF0) // BEQ +0, taken (target is the NOP right after it)
	ram.Write(testStart+3, 0x00)
	ram.Write(testStart+4, 0xEA) // NOP, must still run before the IRQ fires
	ram.Write(IRQ_VECTOR, 0x00)
	ram.Write(IRQ_VECTOR+1, 0x09)

	calls := 0
	// Raised starting from the NOP's own dispatch check onward, so without
	// the skip quirk the IRQ would preempt the NOP immediately after the
	// taken branch.
	p, err := Init(&ChipDef{Cpu: CPU_NMOS, Ram: ram, Irq: countingSender{calls: &calls, after: 2}})
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	// Reset leaves P_INTERRUPT set; clear it so the IRQ is not simply masked.
	p.P &^= P_INTERRUPT
	run(t, p, ram) // LDA #$00
	run(t, p, ram) // BEQ, taken - sets skipInterrupt
	run(t, p, ram) // NOP must still run, not the IRQ handler
	if p.PC != testStart+5 {
		t.Errorf("PC = %#04x, want %#04x: IRQ preempted the instruction after a taken branch", p.PC, testStart+5)
	}
}

func TestADCDecimalModeNMOS(t *testing.T) {
	p, ram := newChip(t, CPU_NMOS,
		0xF8,       // SED
		0xA9, 0x09, // LDA #$09
		0x69, 0x01, // ADC #$01 -> 0x10 in BCD
	)
	run(t, p, ram)
	run(t, p, ram)
	run(t, p, ram)
	if p.A != 0x10 {
		t.Errorf("BCD 09+01 = %#02x, want 0x10", p.A)
	}
}

func TestADCDecimalModeNeverEngagesOnRicoh(t *testing.T) {
	p, ram := newChip(t, CPU_NMOS_RICOH,
		0xF8,
		0xA9, 0x09,
		0x69, 0x01,
	)
	run(t, p, ram)
	run(t, p, ram)
	run(t, p, ram)
	if p.A != 0x0A {
		t.Errorf("Ricoh 09+01 with D set = %#02x, want 0x0A (binary, decimal ignored)", p.A)
	}
}

func TestADCDecimalModeCMOSExtraCycle(t *testing.T) {
	p, ram := newChip(t, CPU_CMOS,
		0xF8,       // SED
		0xA9, 0x09, // LDA #$09
		0x69, 0x01, // ADC #$01
	)
	run(t, p, ram)
	run(t, p, ram)
	before := p.Cycles
	run(t, p, ram)
	if p.A != 0x10 {
		t.Errorf("BCD 09+01 = %#02x, want 0x10", p.A)
	}
	if got := p.Cycles - before; got != 3 {
		t.Errorf("CMOS ADC #imm in decimal mode cost %d cycles, want 3 (2 + 1 BCD fixup)", got)
	}
}

func TestStackPushPullRoundTrip(t *testing.T) {
	p, ram := newChip(t, CPU_NMOS,
		0xA9, 0x77, // LDA #$77
		0x48,       // PHA
		0xA9, 0x00, // LDA #$00
		0x68, // PLA
	)
	for i := 0; i < 4; i++ {
		run(t, p, ram)
	}
	if p.A != 0x77 {
		t.Errorf("A after PLA = %#02x, want 0x77", p.A)
	}
}

func TestJSRRTSRoundTrip(t *testing.T) {
	p, ram := newChip(t, CPU_NMOS,
		0x20, 0x00, 0x03, // JSR $0300
	)
	ram.Write(0x0300, 0x60) // RTS
	beforeJSR := p.Cycles
	run(t, p, ram)
	if got := p.Cycles - beforeJSR; got != 6 {
		t.Errorf("JSR cost %d cycles, want 6", got)
	}
	if p.PC != 0x0300 {
		t.Errorf("PC after JSR = %#04x, want 0x0300", p.PC)
	}
	beforeRTS := p.Cycles
	run(t, p, ram)
	if got := p.Cycles - beforeRTS; got != 6 {
		t.Errorf("RTS cost %d cycles, want 6", got)
	}
	if p.PC != testStart+3 {
		t.Errorf("PC after RTS = %#04x, want %#04x", p.PC, testStart+3)
	}
}

func TestBRKAndRTIRoundTrip(t *testing.T) {
	ram := memory.NewFlat()
	ram.Write(RESET_VECTOR, uint8(testStart&0xFF))
	ram.Write(RESET_VECTOR+1, uint8(testStart>>8))
	ram.Write(testStart, 0x00) // BRK
	ram.Write(testStart+1, 0x00)
	ram.Write(IRQ_VECTOR, 0x00)
	ram.Write(IRQ_VECTOR+1, 0x04) // handler at $0400
	ram.Write(0x0400, 0x40)       // RTI

	p, err := Init(&ChipDef{Cpu: CPU_NMOS, Ram: ram})
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	savedP := p.P
	run(t, p, ram)
	if p.PC != 0x0400 {
		t.Errorf("PC after BRK = %#04x, want 0x0400", p.PC)
	}
	if p.P&P_INTERRUPT == 0 {
		t.Errorf("P_INTERRUPT not set after BRK dispatch")
	}
	run(t, p, ram)
	if p.PC != testStart+2 {
		t.Errorf("PC after RTI = %#04x, want %#04x", p.PC, testStart+2)
	}
	if diff := deep.Equal(p.P|P_BREAK, savedP|P_BREAK); diff != nil {
		t.Errorf("status not restored by RTI: %v", diff)
	}
}

func TestCMOSInterruptEntryClearsDecimal(t *testing.T) {
	ram := memory.NewFlat()
	ram.Write(RESET_VECTOR, uint8(testStart&0xFF))
	ram.Write(RESET_VECTOR+1, uint8(testStart>>8))
	ram.Write(testStart, 0x00) // BRK
	ram.Write(testStart+1, 0x00)
	ram.Write(IRQ_VECTOR, 0x00)
	ram.Write(IRQ_VECTOR+1, 0x04)

	p, err := Init(&ChipDef{Cpu: CPU_CMOS, Ram: ram})
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	p.P |= P_DECIMAL
	run(t, p, ram)
	if p.P&P_DECIMAL != 0 {
		t.Errorf("P_DECIMAL still set after CMOS interrupt entry: %#02x", p.P)
	}
}

func TestNMIHigherPriorityThanIRQ(t *testing.T) {
	ram := memory.NewFlat()
	ram.Write(RESET_VECTOR, uint8(testStart&0xFF))
	ram.Write(RESET_VECTOR+1, uint8(testStart>>8))
	ram.Write(testStart, 0xEA) // NOP
	ram.Write(NMI_VECTOR, 0x00)
	ram.Write(NMI_VECTOR+1, 0x05)
	ram.Write(IRQ_VECTOR, 0x00)
	ram.Write(IRQ_VECTOR+1, 0x06)

	always := alwaysRaised{}
	p, err := Init(&ChipDef{Cpu: CPU_NMOS, Ram: ram, Irq: always, Nmi: always})
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	// Both lines are already raised before the first post-reset dispatch,
	// so the interrupt preempts the NOP fetch entirely.
	run(t, p, ram)
	if p.PC != 0x0500 {
		t.Errorf("PC after simultaneous IRQ+NMI = %#04x, want NMI vector target 0x0500", p.PC)
	}
}

type alwaysRaised struct{}

func (alwaysRaised) Raised() bool { return true }

var _ irq.Sender = alwaysRaised{}

// countingSender raises its line only once it has been polled more than
// after times, letting a test arrange for an interrupt line to come up
// only after a known earlier instruction has already been dispatched.
type countingSender struct {
	calls *int
	after int
}

func (c countingSender) Raised() bool {
	*c.calls++
	return *c.calls > c.after
}

var _ irq.Sender = countingSender{}

func TestIRQMaskedByInterruptDisable(t *testing.T) {
	ram := memory.NewFlat()
	ram.Write(RESET_VECTOR, uint8(testStart&0xFF))
	ram.Write(RESET_VECTOR+1, uint8(testStart>>8))
	ram.Write(testStart, 0x78) // SEI
	ram.Write(testStart+1, 0xEA)
	ram.Write(IRQ_VECTOR, 0x00)
	ram.Write(IRQ_VECTOR+1, 0x09)

	calls := 0
	// The line only comes up starting with the NOP's dispatch check, so SEI
	// itself always runs first and sets P_INTERRUPT before the line could
	// otherwise preempt anything.
	p, err := Init(&ChipDef{Cpu: CPU_NMOS, Ram: ram, Irq: countingSender{calls: &calls, after: 1}})
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	run(t, p, ram) // SEI: sets P_INTERRUPT before the line is ever read as raised
	run(t, p, ram) // NOP should execute normally now, IRQ masked by P_INTERRUPT
	if p.PC != testStart+2 {
		t.Errorf("PC = %#04x, want %#04x: masked IRQ was dispatched instead of NOP", p.PC, testStart+2)
	}
}

func TestUndocumentedLAX(t *testing.T) {
	ram := newTestRam(0xA7, 0x20) // LAX $20
	ram.Write(0x20, 0x88)
	// The zero-value policy is Trap, so LAX needs NMOSUndocumented to run.
	p, err := Init(&ChipDef{Cpu: CPU_NMOS, Ram: ram, Policy: NMOSUndocumented})
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	run(t, p, ram)
	if p.A != 0x88 || p.X != 0x88 {
		t.Errorf("LAX: A=%#02x X=%#02x, want both 0x88", p.A, p.X)
	}
}

func TestHaltOpcode(t *testing.T) {
	p, _ := newChip(t, CPU_NMOS, 0x02) // HLT
	err := p.Step()
	if err == nil {
		t.Fatal("expected HaltOpcode, got nil")
	}
	if _, ok := err.(HaltOpcode); !ok {
		t.Errorf("err = %T, want HaltOpcode", err)
	}
	if !p.Halted() {
		t.Error("Halted() false after HLT")
	}
	if _, err2 := p.Tick(); err2 == nil {
		t.Error("expected Tick to keep returning the halt error")
	}
}

func TestDecodeTrapPolicy(t *testing.T) {
	ram := memory.NewFlat()
	ram.Write(RESET_VECTOR, uint8(testStart&0xFF))
	ram.Write(RESET_VECTOR+1, uint8(testStart>>8))
	ram.Write(testStart, 0xA7) // LAX $20 - undocumented
	ram.Write(testStart+1, 0x20)

	p, err := Init(&ChipDef{Cpu: CPU_NMOS, Ram: ram, Policy: Trap})
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	if err := p.Step(); err == nil {
		t.Fatal("expected DecodeTrap under Trap policy")
	} else if _, ok := err.(DecodeTrap); !ok {
		t.Errorf("err = %T, want DecodeTrap", err)
	}
}

func TestHLTNotSubjectToDecodePolicy(t *testing.T) {
	// HLT must halt the chip even under the Trap policy - bus lockup is a
	// hardware fact of the opcode, not an optional undocumented-opcode
	// emulation a host can opt out of.
	ram := memory.NewFlat()
	ram.Write(RESET_VECTOR, uint8(testStart&0xFF))
	ram.Write(RESET_VECTOR+1, uint8(testStart>>8))
	ram.Write(testStart, 0x02) // HLT

	p, err := Init(&ChipDef{Cpu: CPU_NMOS, Ram: ram, Policy: Trap})
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	if err := p.Step(); err == nil {
		t.Fatal("expected HaltOpcode, got nil")
	} else if _, ok := err.(HaltOpcode); !ok {
		t.Errorf("err = %T, want HaltOpcode even under Trap policy", err)
	}
}

func TestJMPIndirectPageWrapBug(t *testing.T) {
	ram := memory.NewFlat()
	ram.Write(RESET_VECTOR, uint8(testStart&0xFF))
	ram.Write(RESET_VECTOR+1, uint8(testStart>>8))
	ram.Write(testStart, 0x6C)   // JMP ($20FF)
	ram.Write(testStart+1, 0xFF)
	ram.Write(testStart+2, 0x20)
	ram.Write(0x20FF, 0x00)
	ram.Write(0x2100, 0x40) // correct hi byte, never read on NMOS
	ram.Write(0x2000, 0x30) // buggy wrap: NMOS reads the hi byte from $2000

	p, err := Init(&ChipDef{Cpu: CPU_NMOS, Ram: ram})
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	before := p.Cycles
	run(t, p, ram)
	if p.PC != 0x3000 {
		t.Errorf("NMOS JMP indirect PC = %#04x, want 0x3000 (page-wrap bug)", p.PC)
	}
	if got := p.Cycles - before; got != 5 {
		t.Errorf("NMOS JMP indirect cost %d cycles, want 5", got)
	}
}

func TestJMPIndirectFixedOnCMOS(t *testing.T) {
	ram := memory.NewFlat()
	ram.Write(RESET_VECTOR, uint8(testStart&0xFF))
	ram.Write(RESET_VECTOR+1, uint8(testStart>>8))
	ram.Write(testStart, 0x6C)
	ram.Write(testStart+1, 0xFF)
	ram.Write(testStart+2, 0x20)
	ram.Write(0x20FF, 0x00)
	ram.Write(0x2100, 0x40)
	ram.Write(0x2000, 0x30)

	p, err := Init(&ChipDef{Cpu: CPU_CMOS, Ram: ram})
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	before := p.Cycles
	run(t, p, ram)
	if p.PC != 0x4000 {
		t.Errorf("CMOS JMP indirect PC = %#04x, want 0x4000 (bug fixed)", p.PC)
	}
	if got := p.Cycles - before; got != 6 {
		t.Errorf("CMOS JMP indirect cost %d cycles, want 6 (5 + 1 pointer-recompute cycle)", got)
	}
}
