package main

import (
	"errors"
	"math/rand"

	"github.com/spf13/afero"
)

var errROMSize = errors.New("ROM image should be 512K")

// addr20 is a 20 bit Z180 physical address.
type addr20 uint32

const (
	ramSize = 1024 * 1024
	romSize = 512 * 1024
)

// Bank select lines driven by 82C55 port A. EXTMEM gates the upper
// 512K of RAM, ROMEN swaps ROM over the lower 512K. Both are sampled
// on every bus cycle; software flips them mid-stream.
const (
	bankExtMem = 1 << 2
	bankROMEn  = 1 << 3
)

// Bus models the physical memory bus including bank gating and
// wrapping. The DMA engines use it directly, bypassing the MMU.
type Bus struct {
	ram [ramSize]byte
	rom [romSize]byte

	ppi *PPI // port A carries the bank select bits
	tr  *Tracer
}

func NewBus(ppi *PPI, tr *Tracer) *Bus {
	b := &Bus{ppi: ppi, tr: tr}
	for i := range b.ram {
		b.ram[i] = byte(rand.Intn(256))
	}
	return b
}

// LoadROM reads the ROM image. The image must be exactly 512K; the
// board has no way to run with a partial ROM.
func (b *Bus) LoadROM(fs afero.Fs, path string) error {
	buf, err := afero.ReadFile(fs, path)
	if err != nil {
		return err
	}
	if len(buf) != romSize {
		return errROMSize
	}
	copy(b.rom[:], buf)
	return nil
}

func (b *Bus) physRead(addr addr20) byte {
	if addr&0x80000 != 0 {
		if b.ppi.portA&bankExtMem != 0 {
			return b.ram[addr&0xFFFFF]
		}
		return 0xFF // floating bus
	}
	if b.ppi.portA&bankROMEn != 0 {
		// The glue only decodes 18 address lines to the ROM, so the
		// low 512K sees the first 256K of the image mirrored.
		return b.rom[addr&0x3FFFF]
	}
	return b.ram[addr&0xFFFFF]
}

func (b *Bus) physWrite(addr addr20, v byte) {
	addr &= 0xFFFFF
	if addr&0x80000 != 0 {
		if b.ppi.portA&bankExtMem != 0 {
			b.ram[addr] = v
		}
		return
	}
	if b.ppi.portA&bankROMEn != 0 {
		b.tr.logf(TraceMem, "[%06X: write to ROM.]", uint32(addr))
		return
	}
	b.ram[addr] = v
}
