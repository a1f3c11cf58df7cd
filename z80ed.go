package main

// The ED page: Z80 extended instructions plus the Z180 additions
// (IN0/OUT0, TST, TSTIO, MLT, SLP, OTIM/OTDM). Unknown ED opcodes
// execute as two-cycle NOPs; the Z180's undefined-opcode trap is not
// modeled.
func (c *Z180) execED() int {
	op := c.fetchM1()

	// Z180 column decodes first.
	switch op & 0xC7 {
	case 0x00: // IN0 r,(n)
		v := c.IO.In(uint16(c.fetch()))
		if op>>3&7 != rM { // IN0 (n) tests without storing
			c.setR(int(op>>3)&7, 0, v)
		}
		c.F = c.F&flagC | szpTable[v]
		return 12
	case 0x01: // OUT0 (n),r
		if op>>3&7 != rM {
			c.IO.Out(uint16(c.fetch()), c.getR(int(op>>3)&7, 0))
			return 13
		}
	}

	switch op & 0xC7 {
	case 0x40: // IN r,(C)
		v := c.IO.In(c.BC())
		if op>>3&7 != rM { // IN (C) sets flags only
			c.setR(int(op>>3)&7, 0, v)
		}
		c.F = c.F&flagC | szpTable[v]
		return 12
	case 0x41: // OUT (C),r
		var v byte
		if op>>3&7 != rM {
			v = c.getR(int(op>>3)&7, 0)
		}
		c.IO.Out(c.BC(), v)
		return 12
	}

	switch op & 0xCF {
	case 0x42: // SBC HL,rr
		c.sbc16(c.getRR(int(op >> 4 & 3)))
		return 15
	case 0x4A: // ADC HL,rr
		c.adc16(c.getRR(int(op >> 4 & 3)))
		return 15
	case 0x43: // LD (nn),rr
		c.write16(c.fetch16(), c.getRR(int(op>>4&3)))
		return 20
	case 0x4B: // LD rr,(nn)
		c.setRR(int(op>>4&3), c.read16(c.fetch16()))
		return 20
	case 0x4C: // MLT rr (Z180)
		rr := int(op >> 4 & 3)
		v := c.getRR(rr)
		c.setRR(rr, uint16(v>>8)*uint16(v&0xFF))
		return 17
	}

	switch op {
	case 0x44, 0x54: // NEG
		v := c.A
		c.A = 0
		c.A = c.sub8(v, false)
		return 8
	case 0x64: // TST n (Z180)
		c.tst(c.fetch())
		return 9
	case 0x74: // TSTIO n (Z180)
		v := c.IO.In(uint16(c.C))
		c.F = szpTable[v&c.fetch()] | flagH
		return 12
	case 0x45, 0x55, 0x65, 0x75: // RETN
		c.IFF1 = c.IFF2
		c.PC = c.pop()
		return 14
	case 0x4D, 0x5D, 0x6D, 0x7D: // RETI
		c.IFF1 = c.IFF2
		c.PC = c.pop()
		return 14
	case 0x46, 0x66: // IM 0
		c.IM = 0
		return 8
	case 0x56: // IM 1
		c.IM = 1
		return 8
	case 0x5E, 0x7E: // IM 2
		c.IM = 2
		return 8
	case 0x47: // LD I,A
		c.I = c.A
		return 9
	case 0x4F: // LD R,A
		c.R = c.A
		return 9
	case 0x57: // LD A,I
		c.A = c.I
		c.F = c.F&flagC | szpTable[c.A]&^flagP | c.iffP()
		return 9
	case 0x5F: // LD A,R
		c.A = c.R
		c.F = c.F&flagC | szpTable[c.A]&^flagP | c.iffP()
		return 9
	case 0x67: // RRD
		v := c.Mem.Read(c.HL())
		c.Mem.Write(c.HL(), v>>4|c.A<<4)
		c.A = c.A&0xF0 | v&0x0F
		c.F = c.F&flagC | szpTable[c.A]
		return 18
	case 0x6F: // RLD
		v := c.Mem.Read(c.HL())
		c.Mem.Write(c.HL(), v<<4|c.A&0x0F)
		c.A = c.A&0xF0 | v>>4
		c.F = c.F&flagC | szpTable[c.A]
		return 18

	case 0x34: // TST (HL) (Z180)
		c.tst(c.Mem.Read(c.HL()))
		return 10
	case 0x76: // SLP (Z180)
		c.Halted = true
		return 8
	case 0x83: // OTIM
		return c.otim(1, false)
	case 0x8B: // OTDM
		return c.otim(-1, false)
	case 0x93: // OTIMR
		return c.otim(1, true)
	case 0x9B: // OTDMR
		return c.otim(-1, true)

	case 0xA0: // LDI
		return c.ldi(1, false)
	case 0xA8: // LDD
		return c.ldi(-1, false)
	case 0xB0: // LDIR
		return c.ldi(1, true)
	case 0xB8: // LDDR
		return c.ldi(-1, true)
	case 0xA1: // CPI
		return c.cpi(1, false)
	case 0xA9: // CPD
		return c.cpi(-1, false)
	case 0xB1: // CPIR
		return c.cpi(1, true)
	case 0xB9: // CPDR
		return c.cpi(-1, true)
	case 0xA2: // INI
		return c.ini(1, false)
	case 0xAA: // IND
		return c.ini(-1, false)
	case 0xB2: // INIR
		return c.ini(1, true)
	case 0xBA: // INDR
		return c.ini(-1, true)
	case 0xA3: // OUTI
		return c.outi(1, false)
	case 0xAB: // OUTD
		return c.outi(-1, false)
	case 0xB3: // OTIR
		return c.outi(1, true)
	case 0xBB: // OTDR
		return c.outi(-1, true)
	}

	// TST n and TSTIO n sit alone in their columns.
	switch op {
	case 0x04, 0x0C, 0x14, 0x1C, 0x24, 0x2C, 0x3C: // TST r (Z180)
		c.tst(c.getR(int(op>>3)&7, 0))
		return 7
	}
	return 8
}

func (c *Z180) iffP() byte {
	if c.IFF2 {
		return flagP
	}
	return 0
}

// tst is AND flags without touching A.
func (c *Z180) tst(v byte) {
	c.F = szpTable[c.A&v] | flagH
}

func (c *Z180) ldi(dir int, repeat bool) int {
	v := c.Mem.Read(c.HL())
	c.Mem.Write(c.DE(), v)
	c.setHL(c.HL() + uint16(dir))
	c.setDE(c.DE() + uint16(dir))
	c.setBC(c.BC() - 1)
	f := c.F & (flagS | flagZ | flagC)
	if c.BC() != 0 {
		f |= flagP
	}
	n := c.A + v
	f |= n&flagX | n<<4&flagY
	c.F = f
	if repeat && c.BC() != 0 {
		c.PC -= 2
		return 21
	}
	return 16
}

func (c *Z180) cpi(dir int, repeat bool) int {
	v := c.Mem.Read(c.HL())
	r := c.A - v
	c.setHL(c.HL() + uint16(dir))
	c.setBC(c.BC() - 1)
	f := c.F&flagC | flagN | szpTable[r]&(flagS|flagZ)
	if c.A&0x0F < v&0x0F {
		f |= flagH
	}
	if c.BC() != 0 {
		f |= flagP
	}
	c.F = f
	if repeat && c.BC() != 0 && r != 0 {
		c.PC -= 2
		return 21
	}
	return 16
}

func (c *Z180) ini(dir int, repeat bool) int {
	v := c.IO.In(c.BC())
	c.Mem.Write(c.HL(), v)
	c.setHL(c.HL() + uint16(dir))
	c.B--
	c.F = flagN | szpTable[c.B]&flagZ
	if repeat && c.B != 0 {
		c.PC -= 2
		return 21
	}
	return 16
}

func (c *Z180) outi(dir int, repeat bool) int {
	v := c.Mem.Read(c.HL())
	c.B--
	c.IO.Out(c.BC(), v)
	c.setHL(c.HL() + uint16(dir))
	c.F = flagN | szpTable[c.B]&flagZ
	if repeat && c.B != 0 {
		c.PC -= 2
		return 21
	}
	return 16
}

// otim: block output with port increment, Z180 only. Out (C),(HL);
// then HL and C step, B counts down.
func (c *Z180) otim(dir int, repeat bool) int {
	v := c.Mem.Read(c.HL())
	c.IO.Out(uint16(c.C), v)
	c.setHL(c.HL() + uint16(dir))
	c.C += byte(dir)
	c.B--
	c.F = flagN | szpTable[c.B]&flagZ
	if repeat && c.B != 0 {
		c.PC -= 2
		return 16
	}
	return 14
}
