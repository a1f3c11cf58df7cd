package main

// Memory and IOBus are the CPU's only view of the board. The glue
// implements both; tests substitute flat arrays.
type Memory interface {
	Read(addr uint16) byte
	Write(addr uint16, v byte)
}

type IOBus interface {
	In(port uint16) byte
	Out(port uint16, v byte)
}

// Flag bits.
const (
	flagC = 1 << 0
	flagN = 1 << 1
	flagP = 1 << 2 // parity / overflow
	flagX = 1 << 3
	flagH = 1 << 4
	flagY = 1 << 5
	flagZ = 1 << 6
	flagS = 1 << 7
)

// Z180 is the CPU execution core: the full documented Z80 set plus the
// Z180 additions the mini-ITX ROM uses. Timing comes from the standard
// Z80 tables; the board only needs credible t-state totals, not
// cycle-exact fidelity.
type Z180 struct {
	Mem Memory
	IO  IOBus

	A, F       byte
	B, C, D, E byte
	H, L       byte
	A2, F2     byte // alternate set
	B2, C2     byte
	D2, E2     byte
	H2, L2     byte
	IX, IY     uint16
	SP, PC     uint16
	I, R       byte

	IFF1, IFF2 bool
	IM         byte
	Halted     bool

	// M1 is true while an opcode byte is on the bus; the board's
	// RETI sniffer keys off it. M1PC is the address of the first
	// byte of the instruction being executed.
	M1   bool
	M1PC uint16

	// IntLine is the level-sensitive INT input. IntAck supplies the
	// vector at acceptance; vectored (internal) sources bypass the
	// interrupt mode.
	IntLine bool
	IntAck  func() (byte, bool)

	trace func() // instruction boundary hook

	prefix byte // 0, 0xDD or 0xFD while decoding
	ei     bool // EI executed; hold interrupts one instruction
	extraT int  // t-states accrued while decoding (displacements, taken branches)
}

// 8 bit register codes as used across the opcode map.
const (
	rB = iota
	rC
	rD
	rE
	rH
	rL
	rM // (HL) or (IX/IY+d)
	rA
)

func (c *Z180) BC() uint16 { return uint16(c.B)<<8 | uint16(c.C) }
func (c *Z180) DE() uint16 { return uint16(c.D)<<8 | uint16(c.E) }
func (c *Z180) HL() uint16 { return uint16(c.H)<<8 | uint16(c.L) }
func (c *Z180) AF() uint16 { return uint16(c.A)<<8 | uint16(c.F) }

func (c *Z180) setBC(v uint16) { c.B, c.C = byte(v>>8), byte(v) }
func (c *Z180) setDE(v uint16) { c.D, c.E = byte(v>>8), byte(v) }
func (c *Z180) setHL(v uint16) { c.H, c.L = byte(v>>8), byte(v) }
func (c *Z180) setAF(v uint16) { c.A, c.F = byte(v>>8), byte(v) }

// szpTable carries S, Z and parity for every byte value.
var szpTable [256]byte

func init() {
	for i := range szpTable {
		v := byte(i)
		f := v & (flagS | flagY | flagX)
		if v == 0 {
			f |= flagZ
		}
		p := v
		p ^= p >> 4
		p ^= p >> 2
		p ^= p >> 1
		if p&1 == 0 {
			f |= flagP
		}
		szpTable[i] = f
	}
}

func (c *Z180) Reset() {
	c.PC, c.SP = 0, 0xFFFF
	c.A, c.F = 0xFF, 0xFF
	c.I, c.R = 0, 0
	c.IFF1, c.IFF2 = false, false
	c.IM = 0
	c.Halted = false
	c.prefix = 0
}

// fetchM1 reads an opcode byte. Prefix bytes are M1 cycles too; only
// the trailing byte of a DDCB/FDCB sequence is not.
func (c *Z180) fetchM1() byte {
	c.M1 = true
	v := c.Mem.Read(c.PC)
	c.M1 = false
	c.PC++
	c.R = c.R&0x80 | (c.R+1)&0x7F
	return v
}

func (c *Z180) fetch() byte {
	v := c.Mem.Read(c.PC)
	c.PC++
	return v
}

func (c *Z180) fetch16() uint16 {
	lo := c.fetch()
	hi := c.fetch()
	return uint16(hi)<<8 | uint16(lo)
}

func (c *Z180) read16(addr uint16) uint16 {
	lo := c.Mem.Read(addr)
	hi := c.Mem.Read(addr + 1)
	return uint16(hi)<<8 | uint16(lo)
}

func (c *Z180) write16(addr uint16, v uint16) {
	c.Mem.Write(addr, byte(v))
	c.Mem.Write(addr+1, byte(v>>8))
}

func (c *Z180) push(v uint16) {
	c.SP -= 2
	c.write16(c.SP, v)
}

func (c *Z180) pop() uint16 {
	v := c.read16(c.SP)
	c.SP += 2
	return v
}

// Execute runs one instruction (or accepts one interrupt) and returns
// the t-states consumed.
func (c *Z180) Execute() int {
	if c.IntLine && c.IFF1 && !c.ei {
		return c.interrupt()
	}
	c.ei = false
	if c.Halted {
		// burn a cycle's worth waiting for an interrupt
		c.R = c.R&0x80 | (c.R+1)&0x7F
		return 4
	}
	c.M1PC = c.PC
	if c.trace != nil {
		c.trace()
	}
	op := c.fetchM1()
	return c.exec(op) + c.take()
}

// interrupt accepts the pending INT. Z180 on-chip sources are always
// vectored through I and IL whatever the programmed mode.
func (c *Z180) interrupt() int {
	c.Halted = false
	c.IFF1, c.IFF2 = false, false
	var vec byte
	var vectored bool
	if c.IntAck != nil {
		vec, vectored = c.IntAck()
	}
	c.push(c.PC)
	if vectored || c.IM == 2 {
		c.PC = c.read16(uint16(c.I)<<8 | uint16(vec))
		return 19
	}
	// IM 0 devices on this board jam RST 38, same as IM 1
	c.PC = 0x0038
	return 13
}

// hl returns HL, or the active index register under a DD/FD prefix.
func (c *Z180) hl() uint16 {
	switch c.prefix {
	case 0xDD:
		return c.IX
	case 0xFD:
		return c.IY
	}
	return c.HL()
}

func (c *Z180) setHLIdx(v uint16) {
	switch c.prefix {
	case 0xDD:
		c.IX = v
	case 0xFD:
		c.IY = v
	default:
		c.setHL(v)
	}
}

// memAddr resolves an (HL) operand, consuming the displacement byte
// when an index prefix is active.
func (c *Z180) memAddr() uint16 {
	if c.prefix != 0 {
		d := int8(c.fetch())
		c.extraT += 8
		return c.hl() + uint16(int16(d))
	}
	return c.HL()
}

// getR/setR access an 8 bit register by opcode field. H and L follow
// the index prefix; (HL) costs a bus access.
func (c *Z180) getR(i int, addr uint16) byte {
	switch i {
	case rB:
		return c.B
	case rC:
		return c.C
	case rD:
		return c.D
	case rE:
		return c.E
	case rH:
		switch c.prefix {
		case 0xDD:
			return byte(c.IX >> 8)
		case 0xFD:
			return byte(c.IY >> 8)
		}
		return c.H
	case rL:
		switch c.prefix {
		case 0xDD:
			return byte(c.IX)
		case 0xFD:
			return byte(c.IY)
		}
		return c.L
	case rM:
		return c.Mem.Read(addr)
	default:
		return c.A
	}
}

func (c *Z180) setR(i int, addr uint16, v byte) {
	switch i {
	case rB:
		c.B = v
	case rC:
		c.C = v
	case rD:
		c.D = v
	case rE:
		c.E = v
	case rH:
		switch c.prefix {
		case 0xDD:
			c.IX = c.IX&0x00FF | uint16(v)<<8
		case 0xFD:
			c.IY = c.IY&0x00FF | uint16(v)<<8
		default:
			c.H = v
		}
	case rL:
		switch c.prefix {
		case 0xDD:
			c.IX = c.IX&0xFF00 | uint16(v)
		case 0xFD:
			c.IY = c.IY&0xFF00 | uint16(v)
		default:
			c.L = v
		}
	case rM:
		c.Mem.Write(addr, v)
	default:
		c.A = v
	}
}

// getRR/setRR access a 16 bit register pair by opcode field
// (0=BC 1=DE 2=HL/IX/IY 3=SP).
func (c *Z180) getRR(i int) uint16 {
	switch i {
	case 0:
		return c.BC()
	case 1:
		return c.DE()
	case 2:
		return c.hl()
	default:
		return c.SP
	}
}

func (c *Z180) setRR(i int, v uint16) {
	switch i {
	case 0:
		c.setBC(v)
	case 1:
		c.setDE(v)
	case 2:
		c.setHLIdx(v)
	default:
		c.SP = v
	}
}

// cond tests a branch condition field.
func (c *Z180) cond(i int) bool {
	switch i {
	case 0:
		return c.F&flagZ == 0
	case 1:
		return c.F&flagZ != 0
	case 2:
		return c.F&flagC == 0
	case 3:
		return c.F&flagC != 0
	case 4:
		return c.F&flagP == 0
	case 5:
		return c.F&flagP != 0
	case 6:
		return c.F&flagS == 0
	default:
		return c.F&flagS != 0
	}
}
