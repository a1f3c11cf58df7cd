package main

import (
	"testing"

	"github.com/matryer/is"
)

func TestMMUTranslate(t *testing.T) {
	is := is.New(t)
	m := testMachine()
	p := m.io
	p.writeReg(regCBAR, 0xA7)
	p.writeReg(regBBR, 0x40)
	p.writeReg(regCBR, 0x80)

	is.Equal(p.Translate(0x3000), addr20(0x03000)) // common 0: untranslated
	is.Equal(p.Translate(0x8000), addr20(0x48000)) // bank area + BBR
	is.Equal(p.Translate(0xB000), addr20(0x8B000)) // common 1 + CBR
	is.Equal(p.Translate(0xFFFF), addr20(0x8FFFF))
}

func TestMMUReset(t *testing.T) {
	is := is.New(t)
	m := testMachine()
	// Out of reset BBR and CBR are zero, so the MMU is transparent
	// and the ROM vectors work.
	is.Equal(m.io.Translate(0x0000), addr20(0))
	is.Equal(m.io.Translate(0x8000), addr20(0x8000))
}

func TestFRC(t *testing.T) {
	is := is.New(t)
	m := testMachine()
	p := m.io
	is.Equal(p.readReg(regFRC), byte(0))

	p.Event(100) // FRC counts down at phi/10
	is.Equal(p.readReg(regFRC), byte(0xF6))

	p.Event(5) // remainder below a divisor tick carries
	is.Equal(p.readReg(regFRC), byte(0xF6))
	p.Event(5)
	is.Equal(p.readReg(regFRC), byte(0xF5))
}

func TestPRTCountdown(t *testing.T) {
	is := is.New(t)
	m := testMachine()
	p := m.io
	p.writeReg(regRLDR0L, 10)
	p.writeReg(regRLDR0H, 0)
	p.writeReg(regTMDR0L, 2)
	p.writeReg(regTMDR0H, 0)
	p.writeReg(regTCR, tcrTDE0|tcrTIE0)

	p.Event(40) // two prescaler ticks: 2 -> 1 -> 0, reload
	is.Equal(p.tmdr[0], uint16(10))
	is.True(p.tcr&tcrTIF0 != 0)
	is.True(m.cpu.IntLine)
	is.Equal(m.intRecalc, true)

	// TIF clears on TCR read followed by a TMDR read.
	p.readReg(regTCR)
	p.readReg(regTMDR0L)
	is.True(p.tcr&tcrTIF0 == 0)
	p.poll()
	is.Equal(m.cpu.IntLine, false)
}

func TestPRTDisabledHolds(t *testing.T) {
	is := is.New(t)
	m := testMachine()
	p := m.io
	p.writeReg(regTMDR0L, 5)
	p.writeReg(regTMDR0H, 0)
	p.Event(1000)
	is.Equal(p.tmdr[0], uint16(5)) // TDE0 clear: no counting
}

func TestCSIOExchange(t *testing.T) {
	is := is.New(t)
	m := testMachine()
	p := m.io
	var sent byte
	p.csio = func(b byte) byte {
		sent = b
		return 0x5A
	}

	p.writeReg(regTRDR, 0xA3)
	p.writeReg(regCNTR, csioTE|csioRE)
	p.Event(1)
	is.Equal(sent, byte(0xA3))
	is.Equal(p.trdr, byte(0x5A))
	is.True(p.cntr&csioEF != 0)
	is.True(p.cntr&(csioTE|csioRE) == 0)

	// Reading TRDR hands over the byte and drops the end flag.
	is.Equal(p.readReg(regTRDR), byte(0x5A))
	is.True(p.cntr&csioEF == 0)
}

func TestCSIOBitOrder(t *testing.T) {
	is := is.New(t)
	// The CSIO shifts LSB first; the glue reverses each byte so the SD
	// card sees MSB first.
	is.Equal(bitrev[0x80], byte(0x01))
	is.Equal(bitrev[0x01], byte(0x80))
	is.Equal(bitrev[0xA0], byte(0x05))
	is.Equal(bitrev[bitrev[0x37]], byte(0x37))

	// Without a card the SPI bus floats.
	m := testMachine()
	is.Equal(m.csioWrite(0x80), byte(0xFF))
}

func TestDMABurst(t *testing.T) {
	is := is.New(t)
	m := testMachine()
	p := m.io
	m.ppi.portA = bankExtMem // RAM mode for the physical bus
	copy(m.bus.ram[0x1000:], []byte{1, 2, 3, 4})

	p.writeReg(regSAR0L, 0x00)
	p.writeReg(regSAR0H, 0x10)
	p.writeReg(regSAR0B, 0x00)
	p.writeReg(regDAR0L, 0x00)
	p.writeReg(regDAR0H, 0x20)
	p.writeReg(regDAR0B, 0x00)
	p.writeReg(regBCR0L, 4)
	p.writeReg(regBCR0H, 0)
	p.writeReg(regDMODE, 0x02) // mem+ mem+, burst
	p.writeReg(regDSTAT, dstatDE0|dstatDIE0)
	is.True(p.dstat&dstatDME != 0)

	total := 0
	for i := 0; i < 4; i++ {
		total += p.DMA()
	}
	is.Equal(total, 24) // 6 t-states a byte
	is.Equal(m.bus.ram[0x2000], byte(1))
	is.Equal(m.bus.ram[0x2003], byte(4))
	is.Equal(p.bcr0, uint16(0))
	is.True(p.dstat&dstatDE0 == 0) // engine stopped
	is.Equal(p.DMA(), 0)

	// Completion raised the DMA0 interrupt.
	is.Equal(m.intRecalc, true)
	vec, vectored := p.IntAck()
	is.True(vectored)
	is.Equal(vec, byte(srcDMA0<<1))
}

func TestDMACycleSteal(t *testing.T) {
	is := is.New(t)
	m := testMachine()
	p := m.io
	m.ppi.portA = bankExtMem

	p.writeReg(regBCR0L, 8)
	p.writeReg(regDMODE, 0x00) // cycle steal
	p.writeReg(regDSTAT, dstatDE0)

	// Every other bus grant goes back to the CPU.
	is.Equal(p.DMA(), 6)
	is.Equal(p.DMA(), 0)
	is.Equal(p.DMA(), 6)
}

func TestASCIConsoleInput(t *testing.T) {
	is := is.New(t)
	m := testMachine()
	p := m.io
	m.con.in <- 'x'

	p.Event(1)
	is.True(p.stat[0]&asciRDRF != 0)
	is.Equal(p.readReg(regRDR0), byte('x'))
	is.True(p.stat[0]&asciRDRF == 0) // RDR read clears the flag
}

func TestInterruptPriority(t *testing.T) {
	is := is.New(t)
	m := testMachine()
	p := m.io
	p.writeReg(regIL, 0x40)

	// PRT0 outranks a completed DMA.
	p.tcr = tcrTIF0 | tcrTIE0
	p.dmaIF[0] = true
	vec, vectored := p.IntAck()
	is.True(vectored)
	is.Equal(vec, byte(0x40|srcPRT0<<1))

	p.tcr = 0
	vec, _ = p.IntAck()
	is.Equal(vec, byte(0x40|srcDMA0<<1))
}

func TestASCITransmitToConsole(t *testing.T) {
	is := is.New(t)
	m := testMachine()
	var out captureWriter
	m.con.out = &out

	m.io.writeReg(regTDR0, 'H')
	m.io.writeReg(regTDR0, 'i')
	is.Equal(string(out), "Hi")
	is.True(m.io.readReg(regSTAT0)&asciTDRE != 0) // always ready
}

type captureWriter []byte

func (w *captureWriter) Write(p []byte) (int, error) {
	*w = append(*w, p...)
	return len(p), nil
}
