package cpu

// Register accessors used as loadFn/storeFn targets by the decode table,
// so LDA/LDX/LDY and STA/STX/STY share the same addressing-mode builders.

func setA(p *Chip, v uint8) { p.A = v; p.setZN(v) }
func setX(p *Chip, v uint8) { p.X = v; p.setZN(v) }
func setY(p *Chip, v uint8) { p.Y = v; p.setZN(v) }

func getA(p *Chip) uint8 { return p.A }
func getX(p *Chip) uint8 { return p.X }
func getY(p *Chip) uint8 { return p.Y }

// transferTasks implements the register-to-register Implied-mode moves
// (TAX, TAY, TXA, TYA, TSX, TXS). TXS alone leaves flags untouched.
func transferTasks(from func(p *Chip) uint8, to func(p *Chip, v uint8), touchFlags bool) []cycleTask {
	return impliedTask(func(p *Chip) {
		v := from(p)
		if touchFlags {
			p.setZN(v)
		}
		to(p, v)
	})
}

func flagSetTask(mask uint8, on bool) []cycleTask {
	return impliedTask(func(p *Chip) {
		if on {
			p.P |= mask
		} else {
			p.P &^= mask
		}
	})
}

func incRegTask(reg func(p *Chip) *uint8) []cycleTask {
	return impliedTask(func(p *Chip) {
		r := reg(p)
		*r++
		p.setZN(*r)
	})
}

func decRegTask(reg func(p *Chip) *uint8) []cycleTask {
	return impliedTask(func(p *Chip) {
		r := reg(p)
		*r--
		p.setZN(*r)
	})
}

// nopImpliedTask handles single-byte NOP forms, documented (0xEA) or
// historical NMOS undocumented ones, which simply waste a cycle.
func nopImpliedTask() []cycleTask {
	return impliedTask(func(p *Chip) {})
}

// nopReadTasks handles the multi-byte undocumented NOPs that read an
// operand (and, on indexed forms, pay the usual page-crossing cycle)
// purely for the side effect of the bus access, discarding the value.
func nopReadTasks(addr []cycleTask) []cycleTask {
	return loadInstruction(addr, func(p *Chip, v uint8) {})
}

// phaTasks / phpTasks implement PHA/PHP: a dummy operand-stream read
// followed by the actual push, two genuinely separate cycles.
func phaTasks() []cycleTask {
	return []cycleTask{
		func(p *Chip) (cycleResult, error) {
			_ = p.ram.Read(p.PC)
			return cycleFull, nil
		},
		func(p *Chip) (cycleResult, error) {
			p.pushByte(p.A)
			return cycleFull, nil
		},
	}
}

func phpTasks() []cycleTask {
	return []cycleTask{
		func(p *Chip) (cycleResult, error) {
			_ = p.ram.Read(p.PC)
			return cycleFull, nil
		},
		func(p *Chip) (cycleResult, error) {
			p.pushByte(p.P | P_BREAK)
			return cycleFull, nil
		},
	}
}

// plaTasks / plpTasks implement PLA/PLP: dummy read, dummy stack-pointer
// increment, then the actual pull, fused with the register/flag update.
func plaTasks() []cycleTask {
	return []cycleTask{
		func(p *Chip) (cycleResult, error) {
			_ = p.ram.Read(p.PC)
			return cycleFull, nil
		},
		func(p *Chip) (cycleResult, error) {
			_ = p.ram.Read(0x0100 + uint16(p.S))
			return cycleFull, nil
		},
		func(p *Chip) (cycleResult, error) {
			setA(p, p.popByte())
			return cycleFull, nil
		},
	}
}

func plpTasks() []cycleTask {
	return []cycleTask{
		func(p *Chip) (cycleResult, error) {
			_ = p.ram.Read(p.PC)
			return cycleFull, nil
		},
		func(p *Chip) (cycleResult, error) {
			_ = p.ram.Read(0x0100 + uint16(p.S))
			return cycleFull, nil
		},
		func(p *Chip) (cycleResult, error) {
			p.P = (p.popByte() &^ P_BREAK) | P_S1
			return cycleFull, nil
		},
	}
}

func phxTasks() []cycleTask {
	return []cycleTask{
		func(p *Chip) (cycleResult, error) { _ = p.ram.Read(p.PC); return cycleFull, nil },
		func(p *Chip) (cycleResult, error) { p.pushByte(p.X); return cycleFull, nil },
	}
}

func phyTasks() []cycleTask {
	return []cycleTask{
		func(p *Chip) (cycleResult, error) { _ = p.ram.Read(p.PC); return cycleFull, nil },
		func(p *Chip) (cycleResult, error) { p.pushByte(p.Y); return cycleFull, nil },
	}
}

func plxTasks() []cycleTask {
	return []cycleTask{
		func(p *Chip) (cycleResult, error) { _ = p.ram.Read(p.PC); return cycleFull, nil },
		func(p *Chip) (cycleResult, error) { _ = p.ram.Read(0x0100 + uint16(p.S)); return cycleFull, nil },
		func(p *Chip) (cycleResult, error) { setX(p, p.popByte()); return cycleFull, nil },
	}
}

func plyTasks() []cycleTask {
	return []cycleTask{
		func(p *Chip) (cycleResult, error) { _ = p.ram.Read(p.PC); return cycleFull, nil },
		func(p *Chip) (cycleResult, error) { _ = p.ram.Read(0x0100 + uint16(p.S)); return cycleFull, nil },
		func(p *Chip) (cycleResult, error) { setY(p, p.popByte()); return cycleFull, nil },
	}
}

// jsrTasks implements JSR: fetch the low byte of the target, an internal
// cycle that peeks the stack without changing it, push PCH then PCL,
// then fetch the high byte and jump.
func jsrTasks() []cycleTask {
	return []cycleTask{
		func(p *Chip) (cycleResult, error) {
			p.opVal = p.fetchByte()
			return cycleFull, nil
		},
		func(p *Chip) (cycleResult, error) {
			_ = p.ram.Read(0x0100 + uint16(p.S))
			return cycleFull, nil
		},
		func(p *Chip) (cycleResult, error) {
			p.pushByte(uint8(p.PC >> 8))
			return cycleFull, nil
		},
		func(p *Chip) (cycleResult, error) {
			p.pushByte(uint8(p.PC))
			return cycleFull, nil
		},
		func(p *Chip) (cycleResult, error) {
			hi := p.fetchByte()
			p.PC = (uint16(hi) << 8) | uint16(p.opVal)
			return cycleFull, nil
		},
	}
}

// rtsTasks implements RTS: dummy read, dummy stack-pointer increment,
// pull PCL, pull PCH, then an internal cycle that advances past the
// JSR's own operand bytes.
func rtsTasks() []cycleTask {
	return []cycleTask{
		func(p *Chip) (cycleResult, error) { _ = p.ram.Read(p.PC); return cycleFull, nil },
		func(p *Chip) (cycleResult, error) { _ = p.ram.Read(0x0100 + uint16(p.S)); return cycleFull, nil },
		func(p *Chip) (cycleResult, error) { p.opVal = p.popByte(); return cycleFull, nil },
		func(p *Chip) (cycleResult, error) {
			hi := p.popByte()
			p.PC = (uint16(hi) << 8) | uint16(p.opVal)
			return cycleFull, nil
		},
		func(p *Chip) (cycleResult, error) { p.PC++; return cycleFull, nil },
	}
}

// rtiTasks implements RTI: dummy read, dummy stack-pointer increment,
// pull P, pull PCL, pull PCH.
func rtiTasks() []cycleTask {
	return []cycleTask{
		func(p *Chip) (cycleResult, error) { _ = p.ram.Read(p.PC); return cycleFull, nil },
		func(p *Chip) (cycleResult, error) { _ = p.ram.Read(0x0100 + uint16(p.S)); return cycleFull, nil },
		func(p *Chip) (cycleResult, error) {
			p.P = (p.popByte() &^ P_BREAK) | P_S1
			return cycleFull, nil
		},
		func(p *Chip) (cycleResult, error) { p.opVal = p.popByte(); return cycleFull, nil },
		func(p *Chip) (cycleResult, error) {
			hi := p.popByte()
			p.PC = (uint16(hi) << 8) | uint16(p.opVal)
			return cycleFull, nil
		},
	}
}

// brkTasks implements BRK: the signature byte following the opcode is
// read and discarded (BRK is architecturally a 2-byte instruction even
// though the second byte carries no meaning), then the shared interrupt
// dispatch sequence runs with the B flag set in the pushed status byte.
func brkTasks() []cycleTask {
	return []cycleTask{
		func(p *Chip) (cycleResult, error) {
			p.PC++ // Skip the signature byte without reading through fetchByte (already counted).
			_ = p.ram.Read(p.PC - 1)
			return cycleFull, p.beginInterrupt(false, true)
		},
	}
}

// jmpAbsoluteTasks implements JMP Absolute: the effective address IS the
// new PC, so there is no separate memory access beyond the two operand
// fetches.
func jmpAbsoluteTasks() []cycleTask {
	return []cycleTask{
		func(p *Chip) (cycleResult, error) {
			p.opVal = p.fetchByte()
			return cycleFull, nil
		},
		func(p *Chip) (cycleResult, error) {
			hi := p.fetchByte()
			p.PC = (uint16(hi) << 8) | uint16(p.opVal)
			return cycleFull, nil
		},
	}
}

// braTasks implements the CMOS-only unconditional branch BRA, reusing
// the conditional-branch cycle shape with a condition that is always true.
func braTasks() []cycleTask {
	return branchTasks(braCond)
}

// stzStore always writes zero, regardless of any register.
func stzStore(p *Chip) uint8 { return 0 }

// Undocumented NMOS combined read-modify-write operations: each performs
// the named shift/inc/dec on memory and then folds the result into A (or
// compares it), all in the cycle budget of the plain RMW instruction.

func sloOp(p *Chip, val uint8) uint8 {
	shifted := p.asl(val)
	p.A |= shifted
	p.setZN(p.A)
	return shifted
}

func rlaOp(p *Chip, val uint8) uint8 {
	shifted := p.rol(val)
	p.A &= shifted
	p.setZN(p.A)
	return shifted
}

func sreOp(p *Chip, val uint8) uint8 {
	shifted := p.lsr(val)
	p.A ^= shifted
	p.setZN(p.A)
	return shifted
}

func rraOp(p *Chip, val uint8) uint8 {
	shifted := p.ror(val)
	p.adc(shifted)
	return shifted
}

func dcpOp(p *Chip, val uint8) uint8 {
	dec := p.dec(val)
	p.compare(p.A, dec)
	return dec
}

func iscOp(p *Chip, val uint8) uint8 {
	inc := p.inc(val)
	p.sbc(inc)
	return inc
}

// laxLoad fuses LDA and LDX: both A and X take the loaded value.
func laxLoad(p *Chip, val uint8) {
	p.A = val
	p.X = val
	p.setZN(val)
}

// saxStore writes A&X with no flag effect.
func saxStore(p *Chip) uint8 { return p.A & p.X }

func ancOp(p *Chip, val uint8) {
	p.and(val)
	p.setCarry(p.A&0x80 != 0)
}

func alrOp(p *Chip, val uint8) {
	p.and(val)
	p.A = p.lsr(p.A)
}

// arrOp is AND followed by a rotate-right of A whose flag effects differ
// from a plain ROR: C takes the result's bit 6, V is bit6 XOR bit5.
func arrOp(p *Chip, val uint8) {
	p.A &= val
	c := p.carry()
	p.A = (p.A >> 1) | (c << 7)
	p.setZN(p.A)
	bit6 := p.A&0x40 != 0
	bit5 := p.A&0x20 != 0
	p.setCarry(bit6)
	p.setOverflow(bit6 != bit5)
}

// axsOp (also known as SBX) computes (A&X)-val into X, setting C as an
// unsigned subtraction borrow flag and N/Z, with no decimal or V effect.
func axsOp(p *Chip, val uint8) {
	t := p.A & p.X
	result := t - val
	p.setCarry(t >= val)
	p.X = result
	p.setZN(result)
}

// xaaOp (AXA's sibling, opcode 0x8B) is one of the least stable
// undocumented opcodes on real silicon, whose result depends on analog
// bus capacitance effects that differ between individual chips. This
// models the commonly cited stable approximation: A = X & val.
func xaaOp(p *Chip, val uint8) {
	p.A = p.X & val
	p.setZN(p.A)
}

// oalOp (opcode 0xAB, also called LAX# or ATX) is similarly unstable;
// this models it as an immediate LAX, the behavior most commonly
// observed when the chip's undocumented "magic" constant is 0xFF.
func oalOp(p *Chip, val uint8) {
	laxLoad(p, val)
}

// lasOp (LAS/LAR) ANDs the operand with S and loads the result into A, X,
// and S all at once.
func lasOp(p *Chip, val uint8) {
	r := val & p.S
	p.A = r
	p.X = r
	p.S = r
	p.setZN(r)
}

// tasStoreTasks implements TAS (SHS), Absolute,Y only: S = A&X, then
// M = S & (high byte of the effective address + 1). Both effects touch
// the high-byte-dependent "unstable" family of store opcodes together.
func tasStoreTasks() []cycleTask {
	return []cycleTask{
		func(p *Chip) (cycleResult, error) { p.opVal = p.fetchByte(); return cycleFull, nil },
		func(p *Chip) (cycleResult, error) {
			hi := p.fetchByte()
			guess, effective, _ := absIndexedGuess(p.opVal, hi, p.Y)
			p.schedule(
				func(p *Chip) (cycleResult, error) { _ = p.ram.Read(guess); return cycleFull, nil },
				func(p *Chip) (cycleResult, error) {
					p.S = p.A & p.X
					p.ram.Write(effective, p.S&(uint8(effective>>8)+1))
					return cycleFull, nil
				},
			)
			return cycleFull, nil
		},
	}
}

// shxStoreTasks implements SHX, Absolute,Y only: M = X & (addr-hi + 1).
func shxStoreTasks() []cycleTask {
	return unstableIndexedStoreTasks(regY, func(p *Chip, addrHi uint8) uint8 {
		return p.X & (addrHi + 1)
	})
}

// shyStoreTasks implements SHY, Absolute,X only: M = Y & (addr-hi + 1).
func shyStoreTasks() []cycleTask {
	return unstableIndexedStoreTasks(regX, func(p *Chip, addrHi uint8) uint8 {
		return p.Y & (addrHi + 1)
	})
}

// ahxAbsStoreTasks implements AHX, Absolute,Y: M = A & X & (addr-hi + 1).
func ahxAbsStoreTasks() []cycleTask {
	return unstableIndexedStoreTasks(regY, func(p *Chip, addrHi uint8) uint8 {
		return p.A & p.X & (addrHi + 1)
	})
}

// unstableIndexedStoreTasks factors the shared shape of SHX/SHY/AHX's
// Absolute,reg form: fetch lo/hi, dummy-read the guess address, then
// write a value that itself depends on the effective address's high byte.
func unstableIndexedStoreTasks(reg func(p *Chip) uint8, val func(p *Chip, addrHi uint8) uint8) []cycleTask {
	return []cycleTask{
		func(p *Chip) (cycleResult, error) { p.opVal = p.fetchByte(); return cycleFull, nil },
		func(p *Chip) (cycleResult, error) {
			hi := p.fetchByte()
			guess, effective, _ := absIndexedGuess(p.opVal, hi, reg(p))
			p.schedule(
				func(p *Chip) (cycleResult, error) { _ = p.ram.Read(guess); return cycleFull, nil },
				func(p *Chip) (cycleResult, error) {
					p.ram.Write(effective, val(p, uint8(effective>>8)))
					return cycleFull, nil
				},
			)
			return cycleFull, nil
		},
	}
}

// ahxIndirectYStoreTasks implements AHX's (zp),Y form: same A&X&(hi+1)
// value, over the Indirect,Y address computation.
func ahxIndirectYStoreTasks() []cycleTask {
	return []cycleTask{
		func(p *Chip) (cycleResult, error) { p.opVal = p.fetchByte(); return cycleFull, nil },
		func(p *Chip) (cycleResult, error) { p.ctxLo = p.ram.Read(uint16(p.opVal)); return cycleFull, nil },
		func(p *Chip) (cycleResult, error) {
			hi := p.ram.Read(uint16(uint8(p.opVal + 1)))
			guess, effective, _ := absIndexedGuess(p.ctxLo, hi, p.Y)
			p.schedule(
				func(p *Chip) (cycleResult, error) { _ = p.ram.Read(guess); return cycleFull, nil },
				func(p *Chip) (cycleResult, error) {
					p.ram.Write(effective, p.A&p.X&(uint8(effective>>8)+1))
					return cycleFull, nil
				},
			)
			return cycleFull, nil
		},
	}
}
