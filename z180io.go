package main

// The Z180's on-chip peripheral block: a 64 byte I/O window
// (relocatable via ICR) holding the ASCI serial channels, the CSIO
// clocked serial port, the PRT timers, the DMA controller, the MMU and
// the interrupt control registers. Port decode happens before any
// board peripheral sees the access.

// Internal register offsets within the window.
const (
	regCNTLA0 = 0x00
	regCNTLA1 = 0x01
	regCNTLB0 = 0x02
	regCNTLB1 = 0x03
	regSTAT0  = 0x04
	regSTAT1  = 0x05
	regTDR0   = 0x06
	regTDR1   = 0x07
	regRDR0   = 0x08
	regRDR1   = 0x09
	regCNTR   = 0x0A
	regTRDR   = 0x0B
	regTMDR0L = 0x0C
	regTMDR0H = 0x0D
	regRLDR0L = 0x0E
	regRLDR0H = 0x0F
	regTCR    = 0x10
	regTMDR1L = 0x14
	regTMDR1H = 0x15
	regRLDR1L = 0x16
	regRLDR1H = 0x17
	regFRC    = 0x18
	regSAR0L  = 0x20
	regSAR0H  = 0x21
	regSAR0B  = 0x22
	regDAR0L  = 0x23
	regDAR0H  = 0x24
	regDAR0B  = 0x25
	regBCR0L  = 0x26
	regBCR0H  = 0x27
	regMAR1L  = 0x28
	regMAR1H  = 0x29
	regMAR1B  = 0x2A
	regIAR1L  = 0x2B
	regIAR1H  = 0x2C
	regBCR1L  = 0x2E
	regBCR1H  = 0x2F
	regDSTAT  = 0x30
	regDMODE  = 0x31
	regDCNTL  = 0x32
	regIL     = 0x33
	regITC    = 0x34
	regRCR    = 0x36
	regCBR    = 0x38
	regBBR    = 0x39
	regCBAR   = 0x3A
	regOMCR   = 0x3E
	regICR    = 0x3F
)

// ASCI status bits.
const (
	asciRDRF = 1 << 7
	asciOVRN = 1 << 6
	asciRIE  = 1 << 3
	asciTDRE = 1 << 1
	asciTIE  = 1 << 0
)

// CSIO control bits.
const (
	csioEF  = 1 << 7
	csioEIE = 1 << 6
	csioRE  = 1 << 5
	csioTE  = 1 << 4
)

// PRT control bits.
const (
	tcrTDE0 = 1 << 0
	tcrTDE1 = 1 << 1
	tcrTIE0 = 1 << 4
	tcrTIE1 = 1 << 5
	tcrTIF0 = 1 << 6
	tcrTIF1 = 1 << 7
)

// DMA status bits.
const (
	dstatDE1  = 1 << 7
	dstatDE0  = 1 << 6
	dstatDWE1 = 1 << 5
	dstatDWE0 = 1 << 4
	dstatDIE1 = 1 << 3
	dstatDIE0 = 1 << 2
	dstatDME  = 1 << 0
)

// Internal interrupt source indexes, priority order. The assembled
// vector is IL[7:5] | index<<1, looked up through the I register.
const (
	srcPRT0  = 2
	srcPRT1  = 3
	srcDMA0  = 4
	srcDMA1  = 5
	srcCSIO  = 6
	srcASCI0 = 7
	srcASCI1 = 8
)

type Z180IO struct {
	cpu *Z180
	bus *Bus
	con *Console
	tr  *Tracer

	// csio exchanges one byte with whatever the chip selects have
	// routed onto the SPI bus. recalc tells the board a device
	// changed interrupt state.
	csio   func(byte) byte
	recalc func()

	// ASCI channels. Channel 0 is the console.
	cntla [2]byte
	cntlb [2]byte
	stat  [2]byte
	tdr   [2]byte
	rdr   [2]byte

	// CSIO
	cntr byte
	trdr byte

	// PRT
	tmdr    [2]uint16
	rldr    [2]uint16
	tcr     byte
	tcrSeen [2]bool // TCR read; next TMDR read clears TIF
	prtRem  int     // clock remainder, PRT counts at phi/20

	// FRC
	frc    byte
	frcRem int

	// DMA channel 0 (memory to memory) and channel 1 registers.
	sar0, dar0 uint32
	bcr0       uint16
	mar1, iar1 uint32
	bcr1       uint16
	dstat      byte
	dmode      byte
	dcntl      byte
	dmaIF      [2]bool
	dmaSteal   bool // cycle-steal alternator

	// Interrupts and MMU.
	il, itc  byte
	rcr      byte
	cbr, bbr byte
	cbar     byte
	omcr     byte
	icr      byte
}

func NewZ180IO(cpu *Z180, bus *Bus, con *Console, tr *Tracer) *Z180IO {
	p := &Z180IO{cpu: cpu, bus: bus, con: con, tr: tr}
	p.Reset()
	return p
}

func (p *Z180IO) Reset() {
	p.stat[0] = asciTDRE
	p.stat[1] = asciTDRE
	p.cntr = 0x07
	p.tmdr[0], p.tmdr[1] = 0xFFFF, 0xFFFF
	p.rldr[0], p.rldr[1] = 0xFFFF, 0xFFFF
	p.tcr = 0
	p.dstat = dstatDWE1 | dstatDWE0
	p.itc = 0x01
	p.cbar = 0xF0
	p.cbr, p.bbr = 0, 0
	p.icr = 0
}

// InternalPort reports whether the access belongs to the on-chip
// window. The window sits at ICR[7:6]<<6 in the bottom page.
func (p *Z180IO) InternalPort(addr uint16) bool {
	return addr&0xFFC0 == uint16(p.icr&0xC0)
}

// Translate maps a logical address through the MMU. Common area 1 is
// decoded first, then the bank area, then common area 0 falls through
// untranslated.
func (p *Z180IO) Translate(va uint16) addr20 {
	area := byte(va >> 12)
	if area >= p.cbar>>4 {
		return addr20(uint32(va)+uint32(p.cbr)<<12) & 0xFFFFF
	}
	if area >= p.cbar&0x0F {
		return addr20(uint32(va)+uint32(p.bbr)<<12) & 0xFFFFF
	}
	return addr20(va)
}

func (p *Z180IO) Read(addr uint16) byte {
	r := p.readReg(byte(addr & 0x3F))
	p.tr.logf(TraceCPUIO, "z180: read %02X -> %02X", addr&0x3F, r)
	p.poll()
	return r
}

func (p *Z180IO) Write(addr uint16, v byte) {
	p.tr.logf(TraceCPUIO, "z180: write %02X <- %02X", addr&0x3F, v)
	p.writeReg(byte(addr&0x3F), v)
	p.poll()
}

func (p *Z180IO) readReg(r byte) byte {
	switch r {
	case regCNTLA0, regCNTLA1:
		return p.cntla[r&1]
	case regCNTLB0, regCNTLB1:
		return p.cntlb[r&1]
	case regSTAT0, regSTAT1:
		return p.stat[r&1]
	case regTDR0, regTDR1:
		return p.tdr[r&1]
	case regRDR0, regRDR1:
		ch := r & 1
		p.stat[ch] &^= asciRDRF
		return p.rdr[ch]
	case regCNTR:
		return p.cntr
	case regTRDR:
		p.cntr &^= csioEF
		return p.trdr
	case regTMDR0L:
		p.clearTIF(0)
		return byte(p.tmdr[0])
	case regTMDR0H:
		return byte(p.tmdr[0] >> 8)
	case regRLDR0L:
		return byte(p.rldr[0])
	case regRLDR0H:
		return byte(p.rldr[0] >> 8)
	case regTCR:
		p.tcrSeen[0], p.tcrSeen[1] = true, true
		return p.tcr
	case regTMDR1L:
		p.clearTIF(1)
		return byte(p.tmdr[1])
	case regTMDR1H:
		return byte(p.tmdr[1] >> 8)
	case regRLDR1L:
		return byte(p.rldr[1])
	case regRLDR1H:
		return byte(p.rldr[1] >> 8)
	case regFRC:
		return p.frc
	case regSAR0L:
		return byte(p.sar0)
	case regSAR0H:
		return byte(p.sar0 >> 8)
	case regSAR0B:
		return byte(p.sar0>>16) & 0x0F
	case regDAR0L:
		return byte(p.dar0)
	case regDAR0H:
		return byte(p.dar0 >> 8)
	case regDAR0B:
		return byte(p.dar0>>16) & 0x0F
	case regBCR0L:
		return byte(p.bcr0)
	case regBCR0H:
		return byte(p.bcr0 >> 8)
	case regDSTAT:
		p.dmaIF[0], p.dmaIF[1] = false, false
		return p.dstat
	case regDMODE:
		return p.dmode
	case regDCNTL:
		return p.dcntl
	case regIL:
		return p.il
	case regITC:
		return p.itc
	case regRCR:
		return p.rcr
	case regCBR:
		return p.cbr
	case regBBR:
		return p.bbr
	case regCBAR:
		return p.cbar
	case regOMCR:
		return p.omcr
	case regICR:
		return p.icr
	}
	p.tr.logf(TraceCPUIO, "z180: read of unhandled register %02X", r)
	return 0xFF
}

func (p *Z180IO) writeReg(r byte, v byte) {
	switch r {
	case regCNTLA0, regCNTLA1:
		p.cntla[r&1] = v
	case regCNTLB0, regCNTLB1:
		p.cntlb[r&1] = v
	case regSTAT0, regSTAT1:
		// Only the interrupt enables are writable.
		ch := r & 1
		p.stat[ch] = p.stat[ch]&^(asciRIE|asciTIE) | v&(asciRIE|asciTIE)
	case regTDR0:
		p.tdr[0] = v
		p.con.WriteByte(v)
	case regTDR1:
		p.tdr[1] = v // channel 1 has nothing attached
	case regRDR0, regRDR1:
		// read only
	case regCNTR:
		p.cntr = p.cntr&csioEF | v&^csioEF
	case regTRDR:
		p.trdr = v
	case regTMDR0L:
		p.tmdr[0] = p.tmdr[0]&0xFF00 | uint16(v)
	case regTMDR0H:
		p.tmdr[0] = p.tmdr[0]&0x00FF | uint16(v)<<8
	case regRLDR0L:
		p.rldr[0] = p.rldr[0]&0xFF00 | uint16(v)
	case regRLDR0H:
		p.rldr[0] = p.rldr[0]&0x00FF | uint16(v)<<8
	case regTCR:
		p.tcr = p.tcr&(tcrTIF0|tcrTIF1) | v&^(tcrTIF0|tcrTIF1)
	case regTMDR1L:
		p.tmdr[1] = p.tmdr[1]&0xFF00 | uint16(v)
	case regTMDR1H:
		p.tmdr[1] = p.tmdr[1]&0x00FF | uint16(v)<<8
	case regRLDR1L:
		p.rldr[1] = p.rldr[1]&0xFF00 | uint16(v)
	case regRLDR1H:
		p.rldr[1] = p.rldr[1]&0x00FF | uint16(v)<<8
	case regFRC:
		// read only
	case regSAR0L:
		p.sar0 = p.sar0&0xFFF00 | uint32(v)
	case regSAR0H:
		p.sar0 = p.sar0&0xF00FF | uint32(v)<<8
	case regSAR0B:
		p.sar0 = p.sar0&0x0FFFF | uint32(v&0x0F)<<16
	case regDAR0L:
		p.dar0 = p.dar0&0xFFF00 | uint32(v)
	case regDAR0H:
		p.dar0 = p.dar0&0xF00FF | uint32(v)<<8
	case regDAR0B:
		p.dar0 = p.dar0&0x0FFFF | uint32(v&0x0F)<<16
	case regBCR0L:
		p.bcr0 = p.bcr0&0xFF00 | uint16(v)
	case regBCR0H:
		p.bcr0 = p.bcr0&0x00FF | uint16(v)<<8
	case regMAR1L:
		p.mar1 = p.mar1&0xFFF00 | uint32(v)
	case regMAR1H:
		p.mar1 = p.mar1&0xF00FF | uint32(v)<<8
	case regMAR1B:
		p.mar1 = p.mar1&0x0FFFF | uint32(v&0x0F)<<16
	case regIAR1L:
		p.iar1 = p.iar1&0xFFF00 | uint32(v)
	case regIAR1H:
		p.iar1 = p.iar1&0xF00FF | uint32(v)<<8
	case regBCR1L:
		p.bcr1 = p.bcr1&0xFF00 | uint16(v)
	case regBCR1H:
		p.bcr1 = p.bcr1&0x00FF | uint16(v)<<8
	case regDSTAT:
		// DE bits only latch when the matching write-enable bit
		// is driven low.
		if v&dstatDWE0 == 0 {
			p.dstat = p.dstat&^dstatDE0 | v&dstatDE0
		}
		if v&dstatDWE1 == 0 {
			p.dstat = p.dstat&^dstatDE1 | v&dstatDE1
		}
		p.dstat = p.dstat&^(dstatDIE1|dstatDIE0) | v&(dstatDIE1|dstatDIE0)
		if p.dstat&(dstatDE0|dstatDE1) != 0 {
			p.dstat |= dstatDME
		} else {
			p.dstat &^= dstatDME
		}
	case regDMODE:
		p.dmode = v
	case regDCNTL:
		p.dcntl = v
	case regIL:
		p.il = v & 0xE0
	case regITC:
		p.itc = p.itc&0x80 | v&0x7F
	case regRCR:
		p.rcr = v
	case regCBR:
		p.cbr = v
	case regBBR:
		p.bbr = v
	case regCBAR:
		p.cbar = v
	case regOMCR:
		p.omcr = v
	case regICR:
		p.icr = v
	default:
		p.tr.logf(TraceCPUIO, "z180: write to unhandled register %02X of %02X", r, v)
	}
}

func (p *Z180IO) clearTIF(ch int) {
	if p.tcrSeen[ch] {
		p.tcrSeen[ch] = false
		if ch == 0 {
			p.tcr &^= tcrTIF0
		} else {
			p.tcr &^= tcrTIF1
		}
	}
}

// DMA gives the controller first claim on the bus for this step.
// Channel 0 moves one byte per call on the physical bus; in burst mode
// the scheduler keeps calling us so the CPU stalls until the count
// runs out, in cycle-steal mode every other call yields to the CPU.
// Returns the t-states consumed, 0 if the engine is idle.
func (p *Z180IO) DMA() int {
	if p.dstat&dstatDME == 0 || p.dstat&dstatDE0 == 0 {
		return 0
	}
	if p.dmode&0x02 == 0 { // cycle steal
		p.dmaSteal = !p.dmaSteal
		if !p.dmaSteal {
			return 0
		}
	}
	v := p.bus.physRead(addr20(p.sar0))
	p.bus.physWrite(addr20(p.dar0), v)
	switch p.dmode >> 2 & 3 { // SM
	case 0:
		p.sar0 = (p.sar0 + 1) & 0xFFFFF
	case 1:
		p.sar0 = (p.sar0 - 1) & 0xFFFFF
	}
	switch p.dmode >> 4 & 3 { // DM
	case 0:
		p.dar0 = (p.dar0 + 1) & 0xFFFFF
	case 1:
		p.dar0 = (p.dar0 - 1) & 0xFFFFF
	}
	p.bcr0--
	if p.bcr0 == 0 {
		p.dstat &^= dstatDE0
		if p.dstat&dstatDE1 == 0 {
			p.dstat &^= dstatDME
		}
		if p.dstat&dstatDIE0 != 0 {
			p.dmaIF[0] = true
			if p.recalc != nil {
				p.recalc()
			}
		}
		p.poll()
	}
	return 6
}

// Event is the per-step timing callback: advance the PRT prescaler,
// the FRC and the serial engines by the elapsed t-states.
func (p *Z180IO) Event(states int) {
	// PRT counts at phi/20; keep the remainder.
	p.prtRem += states
	ticks := p.prtRem / 20
	p.prtRem %= 20
	p.runTimer(0, ticks, tcrTDE0, tcrTIF0)
	p.runTimer(1, ticks, tcrTDE1, tcrTIF1)

	p.frcRem += states
	p.frc -= byte(p.frcRem / 10)
	p.frcRem %= 10

	// CSIO: a pending transfer completes within any step.
	if p.cntr&(csioTE|csioRE) != 0 {
		out := byte(0xFF)
		if p.cntr&csioTE != 0 {
			out = p.trdr
		}
		if p.csio != nil {
			p.trdr = p.csio(out)
		} else {
			p.trdr = 0xFF
		}
		p.cntr &^= csioTE | csioRE
		p.cntr |= csioEF
	}

	// Console into ASCI channel 0.
	if p.stat[0]&asciRDRF == 0 && p.con.InReady() {
		p.rdr[0] = p.con.ReadByte()
		p.stat[0] |= asciRDRF
	}

	p.poll()
}

func (p *Z180IO) runTimer(ch int, ticks int, tde, tif byte) {
	if p.tcr&tde == 0 || ticks == 0 {
		return
	}
	for ; ticks > 0; ticks-- {
		p.tmdr[ch]--
		if p.tmdr[ch] == 0 {
			p.tmdr[ch] = p.rldr[ch]
			p.tcr |= tif
			if p.recalc != nil {
				p.recalc()
			}
		}
	}
}

// pendingSource returns the highest priority internal source that is
// both raised and enabled, or -1.
func (p *Z180IO) pendingSource() int {
	switch {
	case p.tcr&tcrTIF0 != 0 && p.tcr&tcrTIE0 != 0:
		return srcPRT0
	case p.tcr&tcrTIF1 != 0 && p.tcr&tcrTIE1 != 0:
		return srcPRT1
	case p.dmaIF[0]:
		return srcDMA0
	case p.dmaIF[1]:
		return srcDMA1
	case p.cntr&csioEF != 0 && p.cntr&csioEIE != 0:
		return srcCSIO
	case p.asciInt(0):
		return srcASCI0
	case p.asciInt(1):
		return srcASCI1
	}
	return -1
}

func (p *Z180IO) asciInt(ch int) bool {
	s := p.stat[ch]
	return s&asciRDRF != 0 && s&asciRIE != 0 ||
		s&asciTDRE != 0 && s&asciTIE != 0
}

// poll drives the CPU INT line from the current source state. The
// line is level sensitive; sources drop it by clearing their flags
// through the register file.
func (p *Z180IO) poll() {
	p.cpu.IntLine = p.pendingSource() >= 0
}

// PollInterrupts is the board's deferred re-poll entry point, used at
// epoch end and on RETI retirement.
func (p *Z180IO) PollInterrupts() {
	p.poll()
}

// IntAck supplies the vector when the CPU accepts the interrupt.
// Internal sources are always vectored through I and IL regardless of
// the programmed interrupt mode.
func (p *Z180IO) IntAck() (byte, bool) {
	src := p.pendingSource()
	if src < 0 {
		return 0, false
	}
	vec := p.il&0xE0 | byte(src)<<1
	p.tr.logf(TraceIRQ, "z180: int source %d vector %02X", src, vec)
	return vec, true
}
