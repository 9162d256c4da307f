// Package cpu implements a cycle-accurate MOS 6502 core, including the
// NMOS, NMOS/Ricoh (BCD-less), and CMOS (65C02) variants, for
// emulation use. Every externally visible method call that causes a
// bus access increments the processor's cycle counter by exactly one
// so that a host can observe the exact per-cycle timing real hardware
// exhibits.
package cpu

import (
	"fmt"

	"mos6502/irq"
	"mos6502/memory"
)

// CPUType enumerates the 65xx variants this core understands.
type CPUType int

const (
	CPU_UNIMPLEMENTED CPUType = iota // Start of valid cpu enumerations.
	CPU_NMOS                         // Base NMOS 6502, undocumented opcodes active.
	CPU_NMOS_RICOH                   // Ricoh variant (NES): identical to NMOS except decimal mode never engages.
	CPU_CMOS                         // 65C02: undocumented opcodes are documented NOPs, indirect JMP bug fixed, INC/DEC A added.
	CPU_MAX                          // End of cpu enumerations.
)

func (c CPUType) String() string {
	switch c {
	case CPU_NMOS:
		return "NMOS"
	case CPU_NMOS_RICOH:
		return "NMOS_RICOH"
	case CPU_CMOS:
		return "CMOS"
	default:
		return "UNIMPLEMENTED"
	}
}

// irqType enumerates which interrupt (if any) is currently latched for dispatch.
type irqType int

const (
	kIRQ_NONE irqType = iota
	kIRQ_IRQ
	kIRQ_NMI
)

// Vectors and status bit masks, fixed by the 6502 architecture.
const (
	NMI_VECTOR   = uint16(0xFFFA)
	RESET_VECTOR = uint16(0xFFFC)
	IRQ_VECTOR   = uint16(0xFFFE)

	P_CARRY     = uint8(0x01)
	P_ZERO      = uint8(0x02)
	P_INTERRUPT = uint8(0x04)
	P_DECIMAL   = uint8(0x08)
	P_BREAK     = uint8(0x10)
	P_S1        = uint8(0x20) // Always 1 in the live register.
	P_OVERFLOW  = uint8(0x40)
	P_NEGATIVE  = uint8(0x80)
)

// InvalidCPUState signals an internal invariant violation - a bug in this
// emulator, not an architectural condition. Fatal: once raised, the chip halts.
type InvalidCPUState struct {
	Reason string
}

func (e InvalidCPUState) Error() string {
	return fmt.Sprintf("invalid cpu state: %s", e.Reason)
}

// HaltOpcode is raised when a documented bus-lockup opcode (HLT/JAM/KIL) executes.
// Fatal: real hardware never recovers from this without an external reset.
type HaltOpcode struct {
	Opcode uint8
}

func (e HaltOpcode) Error() string {
	return fmt.Sprintf("HALT(0x%.2X) executed", e.Opcode)
}

// DecodeTrap is raised by the Trap decode policy when an undocumented opcode executes.
type DecodeTrap struct {
	Opcode uint8
}

func (e DecodeTrap) Error() string {
	return fmt.Sprintf("decode trap: unimplemented opcode 0x%.2X", e.Opcode)
}

// DecodePolicy selects how undocumented opcodes are handled by the decode table.
type DecodePolicy int

const (
	Trap             DecodePolicy = iota // Raise DecodeTrap.
	NMOSUndocumented                     // Execute the historical NMOS undocumented behavior.
	NOP                                  // Undocumented NOP forms keep their historical cycle count; every other undocumented opcode becomes a side-effect-free NOP of the same byte length taking 2 (two-byte) or 3 (three-byte) cycles, not its historical count.
)

// Chip holds the full architectural and scheduling state of one 65xx processor.
type Chip struct {
	A  uint8  // Accumulator.
	X  uint8  // X index register.
	Y  uint8  // Y index register.
	S  uint8  // Stack pointer; stack lives at 0x0100-0x01FF.
	P  uint8  // Processor status.
	PC uint16 // Program counter.

	Cycles uint64 // Monotonic count of bus/internal cycles charged so far.

	variant CPUType
	policy  DecodePolicy
	decode  *[256]opcodeEntry

	ram memory.Ram
	irq irq.Sender
	nmi irq.Sender
	rdy irq.Sender

	queue []cycleTask // Tasks belonging to the instruction currently in flight.

	opVal  uint8  // Operand byte / low byte of instruction context.
	opAddr uint16 // Effective address being built or already resolved.
	// ctxLo and ctxHi are scratch storage shared across a single in-flight
	// instruction's cycleTasks: a branch's computed target low byte, an
	// RMW operand awaiting write-back, or a pointer byte mid-resolution in
	// an indirect addressing mode. Never meaningful across instructions.
	ctxLo uint8
	ctxHi uint8

	op               uint8   // Opcode of the instruction currently executing.
	irqRaised        irqType // Interrupt latched for dispatch once the in-flight instruction finishes.
	runningInterrupt bool    // True while dispatching an interrupt sequence rather than an opcode.

	skipInterrupt     bool // Skip interrupt processing for the next instruction dispatch.
	prevSkipInterrupt bool // Previous instruction skipped interrupt processing.

	halted     bool  // True once a HaltOpcode or InvalidCPUState has fired.
	haltErr    error // The error that halted the chip, re-returned on every subsequent Tick.
	haltOpcode uint8
}

// ChipDef describes how to construct a Chip.
type ChipDef struct {
	// Cpu selects the 65xx variant.
	Cpu CPUType
	// Ram is the memory this chip reads and writes through.
	Ram memory.Ram
	// Policy controls undocumented-opcode handling. Zero value is Trap.
	Policy DecodePolicy
	// Irq, Nmi, and Rdy are optional interrupt/halt line sources.
	Irq irq.Sender
	Nmi irq.Sender
	Rdy irq.Sender
}

// Init constructs a Chip of the requested variant in power-on state.
func Init(def *ChipDef) (*Chip, error) {
	if def.Cpu <= CPU_UNIMPLEMENTED || def.Cpu >= CPU_MAX {
		return nil, InvalidCPUState{fmt.Sprintf("invalid CPU type: %d", def.Cpu)}
	}
	if def.Ram == nil {
		return nil, InvalidCPUState{"Ram must be non-nil"}
	}
	p := &Chip{
		variant: def.Cpu,
		policy:  def.Policy,
		ram:     def.Ram,
		irq:     def.Irq,
		nmi:     def.Nmi,
		rdy:     def.Rdy,
		decode:  decodeTableFor(def.Cpu, def.Policy),
	}
	if err := p.PowerOn(); err != nil {
		return nil, err
	}
	return p, nil
}

// PowerOn brings the chip up in the architecturally defined reset state
// and then runs the reset sequence to load PC from the reset vector.
// Real silicon's registers are genuinely indeterminate at power-up, but
// a reset unconditionally overwrites A, X, Y, S, and D before the vector
// is even read, so starting from zero rather than noise changes nothing
// observable and keeps PowerOn deterministic for callers that never
// raise RDY low across a reset.
func (p *Chip) PowerOn() error {
	p.halted = false
	p.haltErr = nil
	p.irqRaised = kIRQ_NONE
	p.queue = nil
	return p.Reset()
}

// Reset reproduces the 6502's 7-cycle reset sequence: a throwaway opcode
// fetch and operand read, three dummy stack decrements (as if P and PC were being pushed,
// though nothing is written), and two vector reads that load PC from
// RESET_VECTOR. A, X, and Y are forced to zero, S lands at 0xFD (three
// below its power-on-reset convention of 0x00), and Decimal is cleared
// alongside Interrupt-Disable being forced on - all four are real reset
// side effects, not just stale power-on noise. Reset runs synchronously
// rather than through the cycleTask queue - nothing can observe a chip
// mid-reset - but still charges all 7 cycles so Cycles stays a faithful
// count of elapsed bus activity.
func (p *Chip) Reset() error {
	_ = p.ram.Read(p.PC)     // Throwaway opcode fetch; real hardware starts reset mid-instruction-decode.
	_ = p.ram.Read(p.PC + 1) // Throwaway operand read, as if the fetched opcode were being decoded.
	p.Cycles += 2
	p.A, p.X, p.Y = 0, 0, 0
	p.S = 0
	p.S -= 3
	p.Cycles += 3 // Three dummy stack-pointer decrements, each a bus cycle that writes nothing.
	p.P = (p.P | P_S1 | P_INTERRUPT) &^ P_DECIMAL
	lo := p.ram.Read(RESET_VECTOR)
	hi := p.ram.Read(RESET_VECTOR + 1)
	p.Cycles += 2
	p.PC = (uint16(hi) << 8) | uint16(lo)
	p.halted = false
	p.haltErr = nil
	p.irqRaised = kIRQ_NONE
	p.runningInterrupt = false
	p.skipInterrupt = false
	p.prevSkipInterrupt = false
	p.queue = nil
	return nil
}

// Variant returns the CPU variant this chip was constructed with.
func (p *Chip) Variant() CPUType {
	return p.variant
}

// Halted reports whether the chip has permanently stopped (HLT opcode or an
// internal assertion failure).
func (p *Chip) Halted() bool {
	return p.halted
}
