package main

import (
	"testing"

	"github.com/matryer/is"
	"github.com/spf13/afero"
)

// testIDE builds a 64 sector image where every byte of sector n is n.
func testIDE(t *testing.T) (*IDE, afero.Fs) {
	t.Helper()
	is := is.New(t)
	fs := afero.NewMemMapFs()
	img := make([]byte, 64*512)
	for i := range img {
		img[i] = byte(i / 512)
	}
	is.NoErr(afero.WriteFile(fs, "cf.img", img, 0644))
	d, err := NewIDE(fs, "cf.img", &Tracer{})
	is.NoErr(err)
	return d, fs
}

func TestIDEReset(t *testing.T) {
	is := is.New(t)
	d, _ := testIDE(t)
	is.Equal(d.sectors, int64(64))
	is.Equal(d.Read8(7), byte(ideDRDY))
	is.Equal(d.Read8(1), byte(0x01)) // diagnostic code
}

func TestIDEReadLBA(t *testing.T) {
	is := is.New(t)
	d, _ := testIDE(t)
	d.Write8(6, 0xE0) // LBA mode, drive 0
	d.Write8(2, 1)
	d.Write8(3, 5)
	d.Write8(4, 0)
	d.Write8(5, 0)
	d.Write8(7, 0x20) // READ SECTORS
	is.Equal(d.Read8(7), byte(ideDRDY|ideDRQ))

	for i := 0; i < 512; i++ {
		is.Equal(d.Read8(0), byte(5))
	}
	is.Equal(d.Read8(7), byte(ideDRDY)) // DRQ drops with the buffer
}

func TestIDEReadMultiple(t *testing.T) {
	is := is.New(t)
	d, _ := testIDE(t)
	d.Write8(6, 0xE0)
	d.Write8(2, 2)
	d.Write8(3, 3)
	d.Write8(7, 0x20)

	for i := 0; i < 512; i++ {
		is.Equal(d.Read8(0), byte(3))
	}
	is.Equal(d.Read8(3), byte(4)) // task file tracks the transfer
	for i := 0; i < 512; i++ {
		is.Equal(d.Read8(0), byte(4))
	}
	is.Equal(d.Read8(7), byte(ideDRDY))
}

func TestIDEReadCHS(t *testing.T) {
	is := is.New(t)
	d, _ := testIDE(t)
	// CHS cylinder 0, head 0, sector 8 is LBA 7.
	d.Write8(6, 0x00)
	d.Write8(2, 1)
	d.Write8(3, 8)
	d.Write8(4, 0)
	d.Write8(5, 0)
	d.Write8(7, 0x20)
	is.Equal(d.Read8(0), byte(7))
}

func TestIDEWrite(t *testing.T) {
	is := is.New(t)
	d, fs := testIDE(t)
	d.Write8(6, 0xE0)
	d.Write8(2, 1)
	d.Write8(3, 7)
	d.Write8(7, 0x30) // WRITE SECTORS
	is.Equal(d.Read8(7), byte(ideDRDY|ideDRQ))

	for i := 0; i < 512; i++ {
		d.Write8(0, 0xAB)
	}
	is.Equal(d.Read8(7), byte(ideDRDY))

	img, err := afero.ReadFile(fs, "cf.img")
	is.NoErr(err)
	is.Equal(img[7*512], byte(0xAB))
	is.Equal(img[7*512+511], byte(0xAB))
	is.Equal(img[8*512], byte(8)) // neighbour untouched
}

func TestIDEIdentify(t *testing.T) {
	is := is.New(t)
	d, _ := testIDE(t)
	d.Write8(7, 0xEC)
	is.Equal(d.Read8(7), byte(ideDRDY|ideDRQ))

	var buf [512]byte
	for i := range buf {
		buf[i] = d.Read8(0)
	}
	is.Equal(buf[98], byte(0x00)) // word 49: LBA supported
	is.Equal(buf[99], byte(0x02))
	is.Equal(buf[120], byte(64)) // word 60: sector count
	// The model string is byte swapped within each word.
	is.Equal(buf[54], byte('C'))
	is.Equal(buf[55], byte('R'))
}

func TestIDEBadLBA(t *testing.T) {
	is := is.New(t)
	d, _ := testIDE(t)
	d.Write8(6, 0xE0)
	d.Write8(2, 1)
	d.Write8(3, 200) // past the end
	d.Write8(7, 0x20)
	is.Equal(d.Read8(7), byte(ideDRDY|ideERR))
	is.Equal(d.Read8(1), byte(ideIDNF))
}

func TestIDEUnsupportedCommand(t *testing.T) {
	is := is.New(t)
	d, _ := testIDE(t)
	d.Write8(7, 0x55)
	is.Equal(d.Read8(7), byte(ideDRDY|ideERR))
	is.Equal(d.Read8(1), byte(ideABRT))
}

func TestIDEDataFloatsWhenIdle(t *testing.T) {
	is := is.New(t)
	d, _ := testIDE(t)
	is.Equal(d.Read8(0), byte(0xFF))
}
