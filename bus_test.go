package main

import (
	"testing"

	"github.com/matryer/is"
	"github.com/spf13/afero"
)

func testBus() (*Bus, *PPI) {
	tr := &Tracer{}
	ppi := NewPPI(tr)
	return NewBus(ppi, tr), ppi
}

func TestROMOverlay(t *testing.T) {
	is := is.New(t)
	b, ppi := testBus()
	b.rom[0x1234] = 0xA5
	b.ram[0x1234] = 0x5A

	// ROMEN asserted out of reset: the low 512K reads ROM.
	is.Equal(ppi.portA&bankROMEn != 0, true)
	is.Equal(b.physRead(0x1234), byte(0xA5))
	is.Equal(b.physRead(0x41234), byte(0xA5)) // 256K window mirrors

	// Drop ROMEN and RAM shows through at the same address.
	ppi.portA = bankExtMem
	is.Equal(b.physRead(0x1234), byte(0x5A))
}

func TestROMWriteDiscarded(t *testing.T) {
	is := is.New(t)
	b, _ := testBus()
	b.rom[0] = 0xA5
	was := b.ram[0]

	b.physWrite(0, 0x99)
	is.Equal(b.rom[0], byte(0xA5)) // ROM is immutable
	is.Equal(b.ram[0], was)        // and the write reaches nothing
}

func TestUpperBankGating(t *testing.T) {
	is := is.New(t)
	b, ppi := testBus()

	ppi.portA = bankExtMem | bankROMEn
	b.physWrite(0x90000, 0x42)
	is.Equal(b.physRead(0x90000), byte(0x42))

	// With EXTMEM low the upper 512K floats; reads are 0xFF and
	// writes land nowhere.
	ppi.portA = bankROMEn
	is.Equal(b.physRead(0x90000), byte(0xFF))
	b.physWrite(0x90000, 0x13)
	is.Equal(b.ram[0x90000], byte(0x42))
}

func TestAddressWrap(t *testing.T) {
	is := is.New(t)
	b, ppi := testBus()
	ppi.portA = bankExtMem
	b.ram[0] = 0x77
	is.Equal(b.physRead(1<<20), byte(0x77)) // 20 bit bus wraps
}

func TestLoadROM(t *testing.T) {
	is := is.New(t)
	fs := afero.NewMemMapFs()

	img := make([]byte, romSize)
	img[0] = 0xC3
	is.NoErr(afero.WriteFile(fs, "board.rom", img, 0644))

	b, _ := testBus()
	is.NoErr(b.LoadROM(fs, "board.rom"))
	is.Equal(b.rom[0], byte(0xC3))
}

func TestLoadROMWrongSize(t *testing.T) {
	is := is.New(t)
	fs := afero.NewMemMapFs()
	is.NoErr(afero.WriteFile(fs, "short.rom", make([]byte, 32768), 0644))

	b, _ := testBus()
	is.Equal(b.LoadROM(fs, "short.rom"), errROMSize)
	is.True(b.LoadROM(fs, "missing.rom") != nil)
}
