package cpu

// branchCond tests the processor status for a conditional branch.
type branchCond func(p *Chip) bool

// branchTasks implements the shared shape of every conditional branch:
// fetch the signed displacement, and if the condition fails stop there
// (2 cycles total). If it holds, unconditionally pre-schedule both the
// PCL-adjust cycle and the PCH-fixup cycle that only a page crossing
// needs; the fixup task aborts itself (no charge) when the crossing
// never happened, rather than deciding in advance whether to schedule
// it at all.
func branchTasks(cond branchCond) []cycleTask {
	return []cycleTask{
		func(p *Chip) (cycleResult, error) {
			offset := int8(p.fetchByte())
			if !cond(p) {
				return cycleFull, nil
			}
			base := p.PC
			target := uint16(int32(base) + int32(offset))
			p.ctxLo = uint8(target)
			crossed := target&0xFF00 != base&0xFF00
			// A taken branch delays interrupt recognition by one
			// instruction - real hardware's interrupt check happens a
			// cycle too early relative to the branch's own extra cycles
			// to catch a line raised during them.
			p.skipInterrupt = true

			p.schedule(
				func(p *Chip) (cycleResult, error) {
					p.PC = (p.PC & 0xFF00) | uint16(p.ctxLo)
					return cycleFull, nil
				},
				func(p *Chip) (cycleResult, error) {
					if !crossed {
						return cycleAborted, nil
					}
					p.PC = target
					return cycleFull, nil
				},
			)
			return cycleFull, nil
		},
	}
}

func bccCond(p *Chip) bool { return p.P&P_CARRY == 0 }
func bcsCond(p *Chip) bool { return p.P&P_CARRY != 0 }
func beqCond(p *Chip) bool { return p.P&P_ZERO != 0 }
func bneCond(p *Chip) bool { return p.P&P_ZERO == 0 }
func bmiCond(p *Chip) bool { return p.P&P_NEGATIVE != 0 }
func bplCond(p *Chip) bool { return p.P&P_NEGATIVE == 0 }
func bvcCond(p *Chip) bool { return p.P&P_OVERFLOW == 0 }
func bvsCond(p *Chip) bool { return p.P&P_OVERFLOW != 0 }

// braCond is the CMOS-only unconditional branch BRA - a conditional
// branch in shape, always taken.
func braCond(p *Chip) bool { return true }
