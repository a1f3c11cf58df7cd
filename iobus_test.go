package main

import (
	"testing"

	"github.com/matryer/is"
	"github.com/spf13/afero"
)

func testMachine() *Machine {
	return NewMachine(&Tracer{})
}

func TestTracePorts(t *testing.T) {
	is := is.New(t)
	m := testMachine()
	m.Out(0xFD, 0x34)
	m.Out(0xFE, 0x01)
	is.Equal(m.tr.mask, uint16(0x0134))
}

func TestPPIWindow(t *testing.T) {
	is := is.New(t)
	m := testMachine()
	// 0x78-0x7F decodes on the low two bits, so the control register
	// appears at 0x7B and again at 0x7F.
	is.Equal(m.In(0x7B), byte(0x9B))
	is.Equal(m.In(0x7F), byte(0x9B))

	m.Out(0x7B, 0x80)
	is.Equal(m.In(0x7F), byte(0x80))
}

func TestFDCWindow(t *testing.T) {
	is := is.New(t)
	m := testMachine()
	is.Equal(m.In(0x70), byte(fdcRQM)) // main status register

	// Reads stop at 0x76 but writes run to 0x77.
	is.Equal(m.In(0x76), byte(0x78)) // floating FDC data
	is.Equal(m.In(0x77), byte(0xFF)) // off the decode entirely
	m.Out(0x77, 0x00)                // reaches the FDC glue, harmless
}

func TestIDEWindow(t *testing.T) {
	is := is.New(t)
	m := testMachine()
	// Until the ROM relocates the on-chip window to 0xC0, ports
	// 0x10-0x17 belong to the Z180 itself.
	m.io.writeReg(regICR, 0xC0)

	// Nothing attached: the CF socket floats.
	is.Equal(m.In(0x17), byte(0xFF))

	fs := afero.NewMemMapFs()
	is.NoErr(afero.WriteFile(fs, "cf.img", make([]byte, 512*128), 0644))
	is.NoErr(m.AttachIDE(fs, "cf.img"))
	is.Equal(m.In(0x17), byte(ideDRDY))
}

func TestInternalWindowRelocation(t *testing.T) {
	is := is.New(t)
	m := testMachine()
	is.True(m.io.InternalPort(0x3A)) // reset: window at 0x00
	is.True(!m.io.InternalPort(0xFA))

	m.io.writeReg(regICR, 0xC0)
	is.True(!m.io.InternalPort(0x3A))
	is.True(m.io.InternalPort(0xFA))
}

func TestMMUMemoryPath(t *testing.T) {
	is := is.New(t)
	m := testMachine()
	m.ppi.portA = bankExtMem // RAM everywhere

	m.Write(0x4000, 0xA5)
	is.Equal(m.Read(0x4000), byte(0xA5))

	// Point the bank area somewhere else and the same logical address
	// lands in a different physical page.
	m.io.writeReg(regBBR, 0x10)
	m.Write(0x4000, 0x5A)
	is.Equal(m.bus.ram[0x14000], byte(0x5A))
	is.Equal(m.bus.ram[0x04000], byte(0xA5))
}

func TestUnknownPortFloats(t *testing.T) {
	is := is.New(t)
	m := testMachine()
	is.Equal(m.In(0x55), byte(0xFF))
	m.Out(0x55, 0x99) // vanishes
}
