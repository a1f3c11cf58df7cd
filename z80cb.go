package main

// rot applies the CB rotate/shift group to one byte.
func (c *Z180) rot(kind int, v byte) byte {
	var r, cf byte
	switch kind {
	case 0: // RLC
		r = v<<1 | v>>7
		cf = v >> 7
	case 1: // RRC
		r = v>>1 | v<<7
		cf = v & 1
	case 2: // RL
		r = v<<1 | c.carryIn(true)
		cf = v >> 7
	case 3: // RR
		r = v>>1 | c.carryIn(true)<<7
		cf = v & 1
	case 4: // SLA
		r = v << 1
		cf = v >> 7
	case 5: // SRA
		r = v&0x80 | v>>1
		cf = v & 1
	case 6: // SLL, undocumented
		r = v<<1 | 1
		cf = v >> 7
	case 7: // SRL
		r = v >> 1
		cf = v & 1
	}
	c.F = szpTable[r] | cf
	return r
}

func (c *Z180) execCB() int {
	if c.prefix != 0 {
		// DD CB d op: the displacement comes before the final
		// opcode byte, which is not an M1 cycle.
		addr := c.memAddr()
		op := c.fetch()
		return c.cbOp(op, rM, addr, 15)
	}
	op := c.fetchM1()
	i := int(op) & 7
	var addr uint16
	t := 8
	if i == rM {
		addr = c.HL()
		t = 15
	}
	return c.cbOp(op, i, addr, t)
}

func (c *Z180) cbOp(op byte, i int, addr uint16, t int) int {
	bit := op >> 3 & 7
	switch op >> 6 {
	case 0:
		c.setR(i, addr, c.rot(int(bit), c.getR(i, addr)))
	case 1: // BIT
		v := c.getR(i, addr) & (1 << bit)
		c.F = c.F&flagC | flagH |
			szpTable[v]&(flagS|flagZ|flagP) | v&(flagY|flagX)
	case 2: // RES
		c.setR(i, addr, c.getR(i, addr)&^(1<<bit))
	case 3: // SET
		c.setR(i, addr, c.getR(i, addr)|1<<bit)
	}
	return t
}
