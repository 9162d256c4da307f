package cpu

// dispatch runs the one cycle that begins whatever comes next once the
// queue has drained: either the opcode fetch that starts a new
// instruction, or the first cycle of an interrupt sequence if one is
// latched and not masked. It charges one cycle itself for an opcode fetch
// (two for the start of an IRQ/NMI sequence, see beginInterrupt) and leaves
// everything after that scheduled in p.queue for subsequent Tick calls to
// drain.
func (p *Chip) dispatch() error {
	p.latchInterrupts()

	skip := p.skipInterrupt
	p.prevSkipInterrupt = skip
	p.skipInterrupt = false

	if p.irqRaised != kIRQ_NONE && !skip {
		masked := p.irqRaised == kIRQ_IRQ && p.P&P_INTERRUPT != 0
		if !masked {
			return p.beginInterrupt(p.irqRaised == kIRQ_NMI, false)
		}
	}

	p.runningInterrupt = false
	p.op = p.ram.Read(p.PC)
	p.PC++
	p.Cycles++

	entry := p.decode[p.op]
	if entry.schedule == nil {
		return InvalidCPUState{"opcode has no scheduler entry"}
	}
	tasks, err := entry.schedule(p)
	if err != nil {
		return err
	}
	if len(tasks) == 0 {
		return InvalidCPUState{"instruction scheduled zero tasks"}
	}
	p.schedule(tasks...)
	return nil
}

// latchInterrupts samples the IRQ and NMI lines and updates the latched
// irqType. The NMI line is sampled as a level here (edge detection is left
// to the Sender) and, once observed, always wins priority over IRQ for the
// instruction boundary it is latched at; IRQ is level-driven and
// re-observed every dispatch until serviced or masked.
func (p *Chip) latchInterrupts() {
	nmiLine := p.nmi != nil && p.nmi.Raised()
	irqLine := p.irq != nil && p.irq.Raised()

	if nmiLine {
		p.irqRaised = kIRQ_NMI
		return
	}
	if p.irqRaised == kIRQ_NMI {
		// An already-latched NMI is serviced even if the line has since dropped.
		return
	}
	if irqLine {
		p.irqRaised = kIRQ_IRQ
	} else {
		p.irqRaised = kIRQ_NONE
	}
}

// beginInterrupt charges the first two cycles of the shared IRQ/NMI
// dispatch sequence - a throwaway fetch of the opcode at PC, which is
// what real hardware does before it notices the interrupt pending line,
// and a throwaway operand read - and schedules the remaining five cycles:
// three pushes (PCH, PCL, P) and two vector reads, with PC loaded from the
// vector on the very last one. For BRK those first two cycles are the
// opcode fetch and signature-byte read already charged by the caller.
// brk is true only when BRK's own opcode fetch (already charged by the
// calling instruction scheduler) is what triggered this sequence; in that
// case PC has already moved past the BRK opcode and a one-byte signature
// byte, and the pushed P has the B flag set.
func (p *Chip) beginInterrupt(nmi, brk bool) error {
	p.runningInterrupt = true
	if !brk {
		_ = p.ram.Read(p.PC)     // Throwaway opcode fetch; the in-flight instruction is abandoned.
		_ = p.ram.Read(p.PC + 1) // Throwaway operand read, as if the discarded opcode were being decoded.
		p.Cycles += 2
	}

	vector := IRQ_VECTOR
	if nmi {
		vector = NMI_VECTOR
	}
	pushed := p.P
	if brk {
		pushed |= P_BREAK
	} else {
		pushed &^= P_BREAK
	}

	p.schedule(
		func(p *Chip) (cycleResult, error) {
			p.ram.Write(0x0100+uint16(p.S), uint8(p.PC>>8))
			p.S--
			return cycleFull, nil
		},
		func(p *Chip) (cycleResult, error) {
			p.ram.Write(0x0100+uint16(p.S), uint8(p.PC))
			p.S--
			return cycleFull, nil
		},
		func(p *Chip) (cycleResult, error) {
			p.ram.Write(0x0100+uint16(p.S), pushed)
			p.S--
			p.P |= P_INTERRUPT
			if p.variant == CPU_CMOS {
				p.P &^= P_DECIMAL
			}
			return cycleFull, nil
		},
		func(p *Chip) (cycleResult, error) {
			p.opVal = p.ram.Read(vector)
			return cycleFull, nil
		},
		func(p *Chip) (cycleResult, error) {
			hi := p.ram.Read(vector + 1)
			p.PC = (uint16(hi) << 8) | uint16(p.opVal)
			// Servicing an interrupt delays recognition of the next one by
			// one instruction, the same quirk a taken branch causes.
			p.skipInterrupt = true
			return cycleFull, nil
		},
	)
	return nil
}
