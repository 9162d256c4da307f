package cpu

// loadFn consumes a byte read from an effective address (or from the
// instruction stream for Immediate) and updates chip state - registers
// and flags - from it.
type loadFn func(p *Chip, val uint8)

// storeFn returns the byte a store instruction writes to its effective
// address; it reads chip state (a register) but touches no memory itself.
type storeFn func(p *Chip) uint8

// rmwFn transforms a byte read from an effective address into the value
// written back, updating flags as a side effect.
type rmwFn func(p *Chip, val uint8) uint8

// regX and regY select an index register for the indexed addressing-mode
// builders below, so one builder serves both ,X and ,Y variants.
func regX(p *Chip) uint8 { return p.X }
func regY(p *Chip) uint8 { return p.Y }

// immediate reads the byte following the opcode and applies op to it in
// the same cycle - Immediate never has a separate effective address.
func immediate(op loadFn) []cycleTask {
	return []cycleTask{
		func(p *Chip) (cycleResult, error) {
			op(p, p.fetchByte())
			return cycleFull, nil
		},
	}
}

// zeroPageAddr fetches the one-byte zero-page address into p.opAddr.
func zeroPageAddr() cycleTask {
	return func(p *Chip) (cycleResult, error) {
		p.opAddr = uint16(p.fetchByte())
		return cycleFull, nil
	}
}

// zeroPageIndexedAddr fetches the base zero-page address, then spends a
// cycle adding the selected index register with zero-page wraparound,
// during which the unindexed address is dummy-read as on real hardware.
func zeroPageIndexedAddr(reg func(p *Chip) uint8) []cycleTask {
	return []cycleTask{
		func(p *Chip) (cycleResult, error) {
			p.opVal = p.fetchByte()
			return cycleFull, nil
		},
		func(p *Chip) (cycleResult, error) {
			_ = p.ram.Read(uint16(p.opVal)) // Dummy read at the unindexed address.
			p.opAddr = uint16(uint8(p.opVal + reg(p)))
			return cycleFull, nil
		},
	}
}

// absoluteAddr fetches the two-byte address into p.opAddr.
func absoluteAddr() []cycleTask {
	return []cycleTask{
		func(p *Chip) (cycleResult, error) {
			p.opVal = p.fetchByte()
			return cycleFull, nil
		},
		func(p *Chip) (cycleResult, error) {
			hi := p.fetchByte()
			p.opAddr = (uint16(hi) << 8) | uint16(p.opVal)
			return cycleFull, nil
		},
	}
}

// absIndexedGuess computes the page-guess address (correct low byte,
// unindexed high byte) used for the speculative read/dummy-read cycle
// indexed addressing always performs, and the true effective address.
// Returns (guess, effective, crossed).
func absIndexedGuess(lo, hi, reg uint8) (uint16, uint16, bool) {
	lowSum := uint16(lo) + uint16(reg)
	guess := (uint16(hi) << 8) | (lowSum & 0xFF)
	effective := ((uint16(hi) << 8) | uint16(lo)) + uint16(reg)
	return guess, effective, lowSum > 0xFF
}

// absoluteIndexedLoadTasks implements Absolute,X and Absolute,Y for
// read instructions (LDA, ADC, CMP, ...).
func absoluteIndexedLoadTasks(reg func(p *Chip) uint8, op loadFn) []cycleTask {
	return []cycleTask{
		func(p *Chip) (cycleResult, error) {
			p.opVal = p.fetchByte() // lo
			return cycleFull, nil
		},
		func(p *Chip) (cycleResult, error) {
			hi := p.fetchByte()
			guess, effective, crossed := absIndexedGuess(p.opVal, hi, reg(p))
			if crossed {
				p.schedule(
					func(p *Chip) (cycleResult, error) {
						_ = p.ram.Read(guess)
						return cycleFull, nil
					},
					func(p *Chip) (cycleResult, error) {
						op(p, p.ram.Read(effective))
						return cycleFull, nil
					},
				)
			} else {
				p.schedule(func(p *Chip) (cycleResult, error) {
					op(p, p.ram.Read(guess))
					return cycleFull, nil
				})
			}
			return cycleFull, nil
		},
	}
}

// absoluteIndexedStoreTasks implements Absolute,X and Absolute,Y for
// STA/STX/STY. Stores always pay the crossing cycle: the CPU commits to
// the dummy read before it knows whether the page actually changed.
func absoluteIndexedStoreTasks(reg func(p *Chip) uint8, op storeFn) []cycleTask {
	return []cycleTask{
		func(p *Chip) (cycleResult, error) {
			p.opVal = p.fetchByte()
			return cycleFull, nil
		},
		func(p *Chip) (cycleResult, error) {
			hi := p.fetchByte()
			guess, effective, _ := absIndexedGuess(p.opVal, hi, reg(p))
			p.schedule(
				func(p *Chip) (cycleResult, error) {
					_ = p.ram.Read(guess)
					return cycleFull, nil
				},
				func(p *Chip) (cycleResult, error) {
					p.ram.Write(effective, op(p))
					return cycleFull, nil
				},
			)
			return cycleFull, nil
		},
	}
}

// absoluteIndexedRMWTasks implements Absolute,X read-modify-write
// instructions, and the Absolute,Y form some undocumented RMW opcodes
// use. Always 7 cycles: fetch lo, fetch hi, dummy read at the guess
// address, read the operand, write it back unchanged, then write the
// transformed value.
func absoluteIndexedRMWTasks(reg func(p *Chip) uint8, op rmwFn) []cycleTask {
	return []cycleTask{
		func(p *Chip) (cycleResult, error) {
			p.opVal = p.fetchByte()
			return cycleFull, nil
		},
		func(p *Chip) (cycleResult, error) {
			hi := p.fetchByte()
			guess, effective, _ := absIndexedGuess(p.opVal, hi, reg(p))
			p.opAddr = effective
			p.schedule(
				func(p *Chip) (cycleResult, error) {
					_ = p.ram.Read(guess)
					return cycleFull, nil
				},
				func(p *Chip) (cycleResult, error) {
					p.ctxLo = p.ram.Read(p.opAddr)
					return cycleFull, nil
				},
				func(p *Chip) (cycleResult, error) {
					p.ram.Write(p.opAddr, p.ctxLo) // Dummy write-back of the unmodified value.
					return cycleFull, nil
				},
				func(p *Chip) (cycleResult, error) {
					p.ram.Write(p.opAddr, op(p, p.ctxLo))
					return cycleFull, nil
				},
			)
			return cycleFull, nil
		},
	}
}

// loadInstruction builds the full task list for a load (read-only)
// instruction in addr, the addressing mode's address-resolution tasks
// for a fixed-cycle mode (no page-crossing penalty). The final cycle both reads
// memory and applies op in the same charged cycle, since real hardware's
// register update happens on the same clock edge as the data-read latch.
func loadInstruction(addr []cycleTask, op loadFn) []cycleTask {
	return append(addr, func(p *Chip) (cycleResult, error) {
		op(p, p.ram.Read(p.opAddr))
		return cycleFull, nil
	})
}

// storeInstruction builds the full task list for a store instruction
// over a fixed-cycle addressing mode. The write is always a separate,
// distinct cycle from address resolution.
func storeInstruction(addr []cycleTask, op storeFn) []cycleTask {
	return append(addr, func(p *Chip) (cycleResult, error) {
		p.ram.Write(p.opAddr, op(p))
		return cycleFull, nil
	})
}

// rmwInstruction builds the full task list for a read-modify-write
// instruction over a fixed-cycle addressing mode: read the operand,
// write it back unchanged (the dummy write-back real 6502s always
// perform), then write the transformed value. Never fused with address
// resolution - always three genuinely separate cycles.
func rmwInstruction(addr []cycleTask, op rmwFn) []cycleTask {
	return append(addr,
		func(p *Chip) (cycleResult, error) {
			p.ctxLo = p.ram.Read(p.opAddr)
			return cycleFull, nil
		},
		func(p *Chip) (cycleResult, error) {
			p.ram.Write(p.opAddr, p.ctxLo)
			return cycleFull, nil
		},
		func(p *Chip) (cycleResult, error) {
			p.ram.Write(p.opAddr, op(p, p.ctxLo))
			return cycleFull, nil
		},
	)
}

// indirectXAddr implements Indirect,X ((zp,X)): fetch the zero-page
// pointer, add X with zero-page wraparound, then read the two-byte
// target address out of zero page.
func indirectXAddr() []cycleTask {
	return []cycleTask{
		func(p *Chip) (cycleResult, error) {
			p.opVal = p.fetchByte()
			return cycleFull, nil
		},
		func(p *Chip) (cycleResult, error) {
			_ = p.ram.Read(uint16(p.opVal))
			p.opVal += p.X
			return cycleFull, nil
		},
		func(p *Chip) (cycleResult, error) {
			p.ctxLo = p.ram.Read(uint16(p.opVal))
			return cycleFull, nil
		},
		func(p *Chip) (cycleResult, error) {
			hi := p.ram.Read(uint16(uint8(p.opVal + 1)))
			p.opAddr = (uint16(hi) << 8) | uint16(p.ctxLo)
			return cycleFull, nil
		},
	}
}

// indirectYLoadTasks implements Indirect,Y ((zp),Y) for read
// instructions, with the same dynamic page-crossing insertion as
// Absolute,Y.
func indirectYLoadTasks(op loadFn) []cycleTask {
	return []cycleTask{
		func(p *Chip) (cycleResult, error) {
			p.opVal = p.fetchByte() // zero-page pointer
			return cycleFull, nil
		},
		func(p *Chip) (cycleResult, error) {
			p.ctxLo = p.ram.Read(uint16(p.opVal))
			return cycleFull, nil
		},
		func(p *Chip) (cycleResult, error) {
			hi := p.ram.Read(uint16(uint8(p.opVal + 1)))
			guess, effective, crossed := absIndexedGuess(p.ctxLo, hi, p.Y)
			if crossed {
				p.schedule(
					func(p *Chip) (cycleResult, error) {
						_ = p.ram.Read(guess)
						return cycleFull, nil
					},
					func(p *Chip) (cycleResult, error) {
						op(p, p.ram.Read(effective))
						return cycleFull, nil
					},
				)
			} else {
				p.schedule(func(p *Chip) (cycleResult, error) {
					op(p, p.ram.Read(guess))
					return cycleFull, nil
				})
			}
			return cycleFull, nil
		},
	}
}

// indirectYStoreTasks implements Indirect,Y for STA - always 6 cycles,
// the crossing cycle unconditionally paid just as Absolute,X/Y stores do.
func indirectYStoreTasks(op storeFn) []cycleTask {
	return []cycleTask{
		func(p *Chip) (cycleResult, error) {
			p.opVal = p.fetchByte()
			return cycleFull, nil
		},
		func(p *Chip) (cycleResult, error) {
			p.ctxLo = p.ram.Read(uint16(p.opVal))
			return cycleFull, nil
		},
		func(p *Chip) (cycleResult, error) {
			hi := p.ram.Read(uint16(uint8(p.opVal + 1)))
			guess, effective, _ := absIndexedGuess(p.ctxLo, hi, p.Y)
			p.schedule(
				func(p *Chip) (cycleResult, error) {
					_ = p.ram.Read(guess)
					return cycleFull, nil
				},
				func(p *Chip) (cycleResult, error) {
					p.ram.Write(effective, op(p))
					return cycleFull, nil
				},
			)
			return cycleFull, nil
		},
	}
}

// accumulatorTask implements the Accumulator addressing mode (ASL A,
// ROL A, ...): one dummy operand-stream read, transform done in the
// same cycle since there is no memory access to separate it from.
func accumulatorTask(op rmwFn) []cycleTask {
	return []cycleTask{
		func(p *Chip) (cycleResult, error) {
			_ = p.ram.Read(p.PC) // Dummy read; real hardware fetches and discards the next byte.
			p.A = op(p, p.A)
			return cycleFull, nil
		},
	}
}

// impliedTask implements the Implied addressing mode (CLC, TAX, NOP, ...):
// a single dummy bus read alongside whatever register-only side effect fn
// performs.
func impliedTask(fn func(p *Chip)) []cycleTask {
	return []cycleTask{
		func(p *Chip) (cycleResult, error) {
			_ = p.ram.Read(p.PC)
			fn(p)
			return cycleFull, nil
		},
	}
}

// absoluteIndirectAddr implements the Absolute Indirect mode JMP alone
// uses: read a pointer address, then read the two-byte target out of
// memory through it. On NMOS, a pointer whose low byte is 0xFF wraps
// within the same page instead of crossing into the next one - a
// hardware bug the CMOS variant fixes by spending one extra internal
// cycle recomputing the pointer correctly, so CMOS JMP (IND) costs 6
// cycles against NMOS's 5.
func absoluteIndirectAddr(extraCycle bool) []cycleTask {
	tasks := []cycleTask{
		func(p *Chip) (cycleResult, error) {
			p.opVal = p.fetchByte()
			return cycleFull, nil
		},
		func(p *Chip) (cycleResult, error) {
			hi := p.fetchByte()
			p.opAddr = (uint16(hi) << 8) | uint16(p.opVal)
			return cycleFull, nil
		},
	}
	if extraCycle {
		tasks = append(tasks, func(p *Chip) (cycleResult, error) {
			_ = p.ram.Read(p.opAddr) // CMOS's extra internal cycle that lets it recompute the pointer correctly.
			return cycleFull, nil
		})
	}
	return append(tasks,
		func(p *Chip) (cycleResult, error) {
			p.ctxLo = p.ram.Read(p.opAddr)
			return cycleFull, nil
		},
		func(p *Chip) (cycleResult, error) {
			hiAddr := p.opAddr + 1
			if p.variant != CPU_CMOS && uint8(p.opAddr) == 0xFF {
				hiAddr = p.opAddr & 0xFF00 // NMOS page-wrap bug: high byte comes from the start of the same page.
			}
			hi := p.ram.Read(hiAddr)
			p.PC = (uint16(hi) << 8) | uint16(p.ctxLo)
			return cycleFull, nil
		},
	)
}
