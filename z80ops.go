package main

// Base t-states for the unprefixed opcode map. Conditional extras
// (taken branches, index displacements) accrue via extraT.
var opCycles = [256]int{
	4, 10, 7, 6, 4, 4, 7, 4, 4, 11, 7, 6, 4, 4, 7, 4,
	8, 10, 7, 6, 4, 4, 7, 4, 12, 11, 7, 6, 4, 4, 7, 4,
	7, 10, 16, 6, 4, 4, 7, 4, 7, 11, 16, 6, 4, 4, 7, 4,
	7, 10, 13, 6, 11, 11, 10, 4, 7, 11, 13, 6, 4, 4, 7, 4,
	4, 4, 4, 4, 4, 4, 7, 4, 4, 4, 4, 4, 4, 4, 7, 4,
	4, 4, 4, 4, 4, 4, 7, 4, 4, 4, 4, 4, 4, 4, 7, 4,
	4, 4, 4, 4, 4, 4, 7, 4, 4, 4, 4, 4, 4, 4, 7, 4,
	7, 7, 7, 7, 7, 7, 4, 7, 4, 4, 4, 4, 4, 4, 7, 4,
	4, 4, 4, 4, 4, 4, 7, 4, 4, 4, 4, 4, 4, 4, 7, 4,
	4, 4, 4, 4, 4, 4, 7, 4, 4, 4, 4, 4, 4, 4, 7, 4,
	4, 4, 4, 4, 4, 4, 7, 4, 4, 4, 4, 4, 4, 4, 7, 4,
	4, 4, 4, 4, 4, 4, 7, 4, 4, 4, 4, 4, 4, 4, 7, 4,
	5, 10, 10, 10, 10, 11, 7, 11, 5, 10, 10, 0, 10, 17, 7, 11,
	5, 10, 10, 11, 10, 11, 7, 11, 5, 4, 10, 11, 10, 0, 7, 11,
	5, 10, 10, 19, 10, 11, 7, 11, 5, 4, 10, 4, 10, 0, 7, 11,
	5, 10, 10, 4, 10, 11, 7, 11, 5, 6, 10, 4, 10, 0, 7, 11,
}

func (c *Z180) take() int {
	t := c.extraT
	c.extraT = 0
	return t
}

// carryIn returns 0 or 1 from the carry flag when wanted.
func (c *Z180) carryIn(use bool) byte {
	if use && c.F&flagC != 0 {
		return 1
	}
	return 0
}

func (c *Z180) add8(v byte, useCarry bool) {
	cf := c.carryIn(useCarry)
	a := c.A
	r := a + v + cf
	f := szpTable[r] & (flagS | flagZ | flagY | flagX)
	if a&0x0F+v&0x0F+cf > 0x0F {
		f |= flagH
	}
	if int(a)+int(v)+int(cf) > 0xFF {
		f |= flagC
	}
	if (a^v)&0x80 == 0 && (a^r)&0x80 != 0 {
		f |= flagP
	}
	c.A, c.F = r, f
}

// sub8 computes A-v and returns the result so CP can discard it.
func (c *Z180) sub8(v byte, useCarry bool) byte {
	cf := c.carryIn(useCarry)
	a := c.A
	r := a - v - cf
	f := szpTable[r]&(flagS|flagZ|flagY|flagX) | flagN
	if a&0x0F < v&0x0F+cf {
		f |= flagH
	}
	if int(a) < int(v)+int(cf) {
		f |= flagC
	}
	if (a^v)&0x80 != 0 && (a^r)&0x80 != 0 {
		f |= flagP
	}
	c.F = f
	return r
}

func (c *Z180) and8(v byte) {
	c.A &= v
	c.F = szpTable[c.A] | flagH
}

func (c *Z180) xor8(v byte) {
	c.A ^= v
	c.F = szpTable[c.A]
}

func (c *Z180) or8(v byte) {
	c.A |= v
	c.F = szpTable[c.A]
}

func (c *Z180) inc8(v byte) byte {
	r := v + 1
	f := c.F&flagC | szpTable[r]&(flagS|flagZ|flagY|flagX)
	if r&0x0F == 0 {
		f |= flagH
	}
	if r == 0x80 {
		f |= flagP
	}
	c.F = f
	return r
}

func (c *Z180) dec8(v byte) byte {
	r := v - 1
	f := c.F&flagC | szpTable[r]&(flagS|flagZ|flagY|flagX) | flagN
	if r&0x0F == 0x0F {
		f |= flagH
	}
	if r == 0x7F {
		f |= flagP
	}
	c.F = f
	return r
}

// alu applies the 8 bit operation field from the 0x80-0xBF block.
func (c *Z180) alu(opIdx int, v byte) {
	switch opIdx {
	case 0:
		c.add8(v, false)
	case 1:
		c.add8(v, true)
	case 2:
		c.A = c.sub8(v, false)
	case 3:
		c.A = c.sub8(v, true)
	case 4:
		c.and8(v)
	case 5:
		c.xor8(v)
	case 6:
		c.or8(v)
	case 7:
		c.sub8(v, false) // CP: flags only
	}
}

func (c *Z180) add16(a, b uint16) uint16 {
	r := uint32(a) + uint32(b)
	f := c.F & (flagS | flagZ | flagP)
	if a&0x0FFF+b&0x0FFF > 0x0FFF {
		f |= flagH
	}
	if r > 0xFFFF {
		f |= flagC
	}
	f |= byte(r>>8) & (flagY | flagX)
	c.F = f
	return uint16(r)
}

func (c *Z180) adc16(b uint16) {
	a := c.HL()
	cf := uint32(c.carryIn(true))
	r := uint32(a) + uint32(b) + cf
	var f byte
	if a&0x0FFF+b&0x0FFF+uint16(cf) > 0x0FFF {
		f |= flagH
	}
	if r > 0xFFFF {
		f |= flagC
	}
	if uint16(r) == 0 {
		f |= flagZ
	}
	f |= byte(r>>8) & (flagS | flagY | flagX)
	if (a^b)&0x8000 == 0 && (a^uint16(r))&0x8000 != 0 {
		f |= flagP
	}
	c.F = f
	c.setHL(uint16(r))
}

func (c *Z180) sbc16(b uint16) {
	a := c.HL()
	cf := uint32(c.carryIn(true))
	r := uint32(a) - uint32(b) - cf
	f := byte(flagN)
	if a&0x0FFF < b&0x0FFF+uint16(cf) {
		f |= flagH
	}
	if uint32(a) < uint32(b)+cf {
		f |= flagC
	}
	if uint16(r) == 0 {
		f |= flagZ
	}
	f |= byte(r>>8) & (flagS | flagY | flagX)
	if (a^b)&0x8000 != 0 && (a^uint16(r))&0x8000 != 0 {
		f |= flagP
	}
	c.F = f
	c.setHL(uint16(r))
}

func (c *Z180) daa() {
	a := c.A
	var adjust byte
	carry := c.F&flagC != 0
	if c.F&flagH != 0 || a&0x0F > 9 {
		adjust = 0x06
	}
	if carry || a > 0x99 {
		adjust |= 0x60
		carry = true
	}
	var r byte
	if c.F&flagN != 0 {
		r = a - adjust
	} else {
		r = a + adjust
	}
	f := szpTable[r] | c.F&flagN
	if carry {
		f |= flagC
	}
	if (a^r)&0x10 != 0 {
		f |= flagH
	}
	c.A, c.F = r, f
}

func (c *Z180) jr(taken bool) {
	d := int8(c.fetch())
	if taken {
		c.PC += uint16(int16(d))
		c.extraT += 5
	}
}

func (c *Z180) exec(op byte) int {
	t := opCycles[op]

	switch op {
	case 0xCB:
		return c.execCB()
	case 0xED:
		p := c.prefix
		c.prefix = 0 // ED ignores a preceding index prefix
		t := c.execED()
		c.prefix = p
		return t
	case 0xDD, 0xFD:
		return c.execIndex(op)
	}

	switch op >> 6 {
	case 1: // LD r,r' and HALT
		if op == 0x76 {
			c.Halted = true
			return t
		}
		dst := int(op>>3) & 7
		src := int(op) & 7
		if dst == rM || src == rM {
			addr := c.memAddr()
			// with an indexed memory operand the companion
			// register is plain H or L, not IXH/IXL
			p := c.prefix
			c.prefix = 0
			c.setR(dst, addr, c.getR(src, addr))
			c.prefix = p
			return t
		}
		c.setR(dst, 0, c.getR(src, 0))
		return t
	case 2: // ALU A,r
		src := int(op) & 7
		var addr uint16
		if src == rM {
			addr = c.memAddr()
		}
		c.alu(int(op>>3)&7, c.getR(src, addr))
		return t
	}

	if op < 0x40 {
		switch op & 0x0F {
		case 0x01: // LD rr,nn
			c.setRR(int(op>>4), c.fetch16())
			return t
		case 0x09: // ADD HL,rr
			c.setHLIdx(c.add16(c.hl(), c.getRR(int(op>>4))))
			return t
		case 0x03: // INC rr
			c.setRR(int(op>>4), c.getRR(int(op>>4))+1)
			return t
		case 0x0B: // DEC rr
			c.setRR(int(op>>4), c.getRR(int(op>>4))-1)
			return t
		}
	}

	switch op & 0xC7 {
	case 0x04: // INC r
		i := int(op>>3) & 7
		var addr uint16
		if i == rM {
			addr = c.memAddr()
		}
		c.setR(i, addr, c.inc8(c.getR(i, addr)))
		return t
	case 0x05: // DEC r
		i := int(op>>3) & 7
		var addr uint16
		if i == rM {
			addr = c.memAddr()
		}
		c.setR(i, addr, c.dec8(c.getR(i, addr)))
		return t
	case 0x06: // LD r,n
		i := int(op>>3) & 7
		var addr uint16
		if i == rM {
			addr = c.memAddr()
		}
		c.setR(i, addr, c.fetch())
		return t
	case 0xC0: // RET cc
		if c.cond(int(op>>3) & 7) {
			c.PC = c.pop()
			c.extraT += 6
		}
		return t
	case 0xC2: // JP cc,nn
		nn := c.fetch16()
		if c.cond(int(op>>3) & 7) {
			c.PC = nn
		}
		return t
	case 0xC4: // CALL cc,nn
		nn := c.fetch16()
		if c.cond(int(op>>3) & 7) {
			c.push(c.PC)
			c.PC = nn
			c.extraT += 7
		}
		return t
	case 0xC7: // RST
		c.push(c.PC)
		c.PC = uint16(op & 0x38)
		return t
	}

	switch op & 0xCF {
	case 0xC1: // POP rr
		if op == 0xF1 {
			c.setAF(c.pop())
		} else {
			c.setRR(int(op>>4)&3, c.pop())
		}
		return t
	case 0xC5: // PUSH rr
		if op == 0xF5 {
			c.push(c.AF())
		} else {
			c.push(c.getRR(int(op>>4) & 3))
		}
		return t
	}

	switch op {
	case 0x00: // NOP
	case 0x08: // EX AF,AF'
		c.A, c.A2 = c.A2, c.A
		c.F, c.F2 = c.F2, c.F
	case 0x10: // DJNZ
		c.B--
		c.jr(c.B != 0)
	case 0x18: // JR
		c.jr(true)
		c.extraT -= 5 // unconditional cost is in the base table
	case 0x20:
		c.jr(c.F&flagZ == 0)
	case 0x28:
		c.jr(c.F&flagZ != 0)
	case 0x30:
		c.jr(c.F&flagC == 0)
	case 0x38:
		c.jr(c.F&flagC != 0)
	case 0x02: // LD (BC),A
		c.Mem.Write(c.BC(), c.A)
	case 0x12: // LD (DE),A
		c.Mem.Write(c.DE(), c.A)
	case 0x0A: // LD A,(BC)
		c.A = c.Mem.Read(c.BC())
	case 0x1A: // LD A,(DE)
		c.A = c.Mem.Read(c.DE())
	case 0x22: // LD (nn),HL
		c.write16(c.fetch16(), c.hl())
	case 0x2A: // LD HL,(nn)
		c.setHLIdx(c.read16(c.fetch16()))
	case 0x32: // LD (nn),A
		c.Mem.Write(c.fetch16(), c.A)
	case 0x3A: // LD A,(nn)
		c.A = c.Mem.Read(c.fetch16())
	case 0x07: // RLCA
		c.A = c.A<<1 | c.A>>7
		c.F = c.F&(flagS|flagZ|flagP) | c.A&(flagY|flagX|flagC)
	case 0x0F: // RRCA
		cf := c.A & 1
		c.A = c.A>>1 | c.A<<7
		c.F = c.F&(flagS|flagZ|flagP) | c.A&(flagY|flagX) | cf
	case 0x17: // RLA
		cf := c.A >> 7
		c.A = c.A<<1 | c.carryIn(true)
		c.F = c.F&(flagS|flagZ|flagP) | c.A&(flagY|flagX) | cf
	case 0x1F: // RRA
		cf := c.A & 1
		c.A = c.A>>1 | c.carryIn(true)<<7
		c.F = c.F&(flagS|flagZ|flagP) | c.A&(flagY|flagX) | cf
	case 0x27:
		c.daa()
	case 0x2F: // CPL
		c.A = ^c.A
		c.F = c.F&(flagS|flagZ|flagP|flagC) | flagH | flagN | c.A&(flagY|flagX)
	case 0x37: // SCF
		c.F = c.F&(flagS|flagZ|flagP) | flagC | c.A&(flagY|flagX)
	case 0x3F: // CCF
		f := c.F & (flagS | flagZ | flagP)
		if c.F&flagC != 0 {
			f |= flagH
		} else {
			f |= flagC
		}
		c.F = f | c.A&(flagY|flagX)
	case 0xC3: // JP nn
		c.PC = c.fetch16()
	case 0xC9: // RET
		c.PC = c.pop()
	case 0xCD: // CALL nn
		nn := c.fetch16()
		c.push(c.PC)
		c.PC = nn
	case 0xC6, 0xCE, 0xD6, 0xDE, 0xE6, 0xEE, 0xF6, 0xFE: // ALU A,n
		c.alu(int(op>>3)&7, c.fetch())
	case 0xD3: // OUT (n),A
		c.IO.Out(uint16(c.A)<<8|uint16(c.fetch()), c.A)
	case 0xDB: // IN A,(n)
		c.A = c.IO.In(uint16(c.A)<<8 | uint16(c.fetch()))
	case 0xD9: // EXX
		c.B, c.B2 = c.B2, c.B
		c.C, c.C2 = c.C2, c.C
		c.D, c.D2 = c.D2, c.D
		c.E, c.E2 = c.E2, c.E
		c.H, c.H2 = c.H2, c.H
		c.L, c.L2 = c.L2, c.L
	case 0xE3: // EX (SP),HL
		v := c.read16(c.SP)
		c.write16(c.SP, c.hl())
		c.setHLIdx(v)
	case 0xE9: // JP (HL)
		c.PC = c.hl()
	case 0xEB: // EX DE,HL
		d, e := c.D, c.E
		c.D, c.E = c.H, c.L
		c.H, c.L = d, e
	case 0xF3: // DI
		c.IFF1, c.IFF2 = false, false
	case 0xFB: // EI
		c.IFF1, c.IFF2 = true, true
		c.ei = true
	case 0xF9: // LD SP,HL
		c.SP = c.hl()
	}
	return t
}
