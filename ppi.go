package main

// SPIDevice is the peripheral hung off the multiplexed SPI bus. The
// 82C55 drives its select line; the CSIO moves the bytes.
type SPIDevice interface {
	LowerCS()
	RaiseCS()
}

// PPI is an 82C55 in mode 0. Port A carries the bank select outputs,
// port B reads board inputs (none modeled), port C multiplexes the
// keyboard/mouse lines and the SPI chip selects on its low 3 bits.
// Direction matters on read only; the output latches are always
// writable, as on the real register file.
type PPI struct {
	portA, portB, portC byte
	ctl                 byte

	oldCS byte // last chip select seen by recalc
	spi   SPIDevice
	tr    *Tracer
}

// Control word direction bits (mode 0).
const (
	ppiDirA     = 1 << 4
	ppiDirB     = 1 << 1
	ppiDirCLow  = 1 << 0
	ppiDirCHigh = 1 << 3
	ppiModeSet  = 1 << 7
)

// The outputs from the 82C55 start high.
func NewPPI(tr *Tracer) *PPI {
	return &PPI{
		portA: 0xFF,
		portB: 0xFF,
		portC: 0xFF,
		ctl:   0x9B,
		oldCS: 7,
		tr:    tr,
	}
}

func (p *PPI) read(addr byte) byte {
	switch addr {
	case 0:
		if p.ctl&ppiDirA != 0 { // port A is input
			return 0xFF // for now
		}
		return p.portA
	case 1:
		if p.ctl&ppiDirB != 0 { // port B is input
			return 0xFF // TODO: model SDA/SCL
		}
		return p.portB
	case 2:
		// Nybble sized direction control.
		var r byte
		if p.ctl&ppiDirCLow != 0 {
			r = 0x0F
		} else {
			r = p.portC & 0x0F
		}
		if p.ctl&ppiDirCHigh != 0 {
			r |= 0xF0 // no keyboard model yet
		} else {
			r |= p.portC & 0xF0
		}
		return r
	case 3:
		return p.ctl
	}
	p.tr.logf(TraceUnk, "ppi: invalid offset %d", addr)
	return 0xFF
}

func (p *PPI) write(addr byte, v byte) {
	switch addr {
	case 0:
		p.portA = v
	case 1:
		p.portB = v
	case 2:
		p.portC = v
	case 3:
		// Bit 7 selects mode set or single bit control of port C.
		if v&ppiModeSet != 0 {
			p.ctl = v
		} else {
			bit := v & 1
			pos := (v >> 1) & 0x07
			p.portC &^= 1 << pos
			if bit != 0 {
				p.portC |= 1 << pos
			}
		}
	default:
		p.tr.logf(TraceUnk, "ppi: invalid offset %d", addr)
	}
	p.recalc()
}

// recalc runs after every register write. Chip select 0 is the SD
// card; only transitions into or out of select 0 are edges the card
// sees. Moving between two non-zero selects touches nothing.
func (p *PPI) recalc() {
	newCS := p.portC & 7
	if p.spi != nil && newCS != p.oldCS {
		if p.oldCS == 0 {
			p.spi.RaiseCS()
		} else if newCS == 0 {
			p.spi.LowerCS()
		}
	}
	p.oldCS = newCS
}
