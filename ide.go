package main

import (
	"os"

	"github.com/spf13/afero"
)

// IDE status bits.
const (
	ideBSY  = 1 << 7
	ideDRDY = 1 << 6
	ideDRQ  = 1 << 3
	ideERR  = 1 << 0
)

// IDE error bits.
const (
	ideABRT = 1 << 2
	ideIDNF = 1 << 4
	ideUNC  = 1 << 6
)

// IDE is an 8 bit CF adapter: a single-drive ATA task file with the
// data register on port 0 and status/command on port 7. Transfers are
// PIO through a one sector buffer, CHS or LBA.
type IDE struct {
	img     afero.File
	sectors int64
	tr      *Tracer

	feature byte
	errr    byte
	count   byte
	lba0    byte // sector number
	lba1    byte // cylinder low
	lba2    byte // cylinder high
	dev     byte
	status  byte

	buf     [512]byte
	bufPos  int
	reading bool
	writing bool
	pending int64 // sector the buffer maps to
}

// Fixed translation geometry reported by IDENTIFY.
const (
	ideHeads = 16
	ideSPT   = 63
)

func NewIDE(fs afero.Fs, path string, tr *Tracer) (*IDE, error) {
	img, err := fs.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, err
	}
	fi, err := img.Stat()
	if err != nil {
		img.Close()
		return nil, err
	}
	d := &IDE{
		img:     img,
		sectors: fi.Size() / 512,
		tr:      tr,
	}
	d.Reset()
	return d, nil
}

func (d *IDE) Reset() {
	d.status = ideDRDY
	d.errr = 0x01 // diagnostic passed
	d.count = 1
	d.lba0 = 1
	d.reading, d.writing = false, false
}

func (d *IDE) Read8(addr byte) byte {
	switch addr {
	case 0:
		return d.dataRead()
	case 1:
		return d.errr
	case 2:
		return d.count
	case 3:
		return d.lba0
	case 4:
		return d.lba1
	case 5:
		return d.lba2
	case 6:
		return d.dev
	case 7:
		return d.status
	}
	return 0xFF
}

func (d *IDE) Write8(addr byte, v byte) {
	switch addr {
	case 0:
		d.dataWrite(v)
	case 1:
		d.feature = v
	case 2:
		d.count = v
	case 3:
		d.lba0 = v
	case 4:
		d.lba1 = v
	case 5:
		d.lba2 = v
	case 6:
		d.dev = v
	case 7:
		d.command(v)
	}
}

func (d *IDE) lba() int64 {
	if d.dev&0x40 != 0 {
		return int64(d.dev&0x0F)<<24 | int64(d.lba2)<<16 |
			int64(d.lba1)<<8 | int64(d.lba0)
	}
	cyl := int64(d.lba2)<<8 | int64(d.lba1)
	head := int64(d.dev & 0x0F)
	sec := int64(d.lba0)
	return (cyl*ideHeads+head)*ideSPT + sec - 1
}

func (d *IDE) fail(bits byte) {
	d.errr = bits
	d.status = ideDRDY | ideERR
	d.reading, d.writing = false, false
}

func (d *IDE) command(cmd byte) {
	d.status &^= ideERR
	d.errr = 0
	switch cmd {
	case 0x20, 0x21: // READ SECTORS
		d.pending = d.lba()
		if !d.loadSector() {
			return
		}
		d.reading = true
		d.bufPos = 0
		d.status = ideDRDY | ideDRQ
	case 0x30: // WRITE SECTORS
		d.pending = d.lba()
		if d.pending < 0 || d.pending >= d.sectors {
			d.fail(ideIDNF)
			return
		}
		d.writing = true
		d.bufPos = 0
		d.status = ideDRDY | ideDRQ
	case 0xEC: // IDENTIFY DEVICE
		d.identify()
		d.reading = true
		d.bufPos = 0
		d.status = ideDRDY | ideDRQ
	case 0x91, 0xEF, 0xE0, 0xE1: // init params, set features, idle
		d.status = ideDRDY
	default:
		d.tr.logf(TraceIDE, "ide: unsupported command %02X", cmd)
		d.fail(ideABRT)
	}
}

func (d *IDE) loadSector() bool {
	if d.pending < 0 || d.pending >= d.sectors {
		d.fail(ideIDNF)
		return false
	}
	if _, err := d.img.ReadAt(d.buf[:], d.pending*512); err != nil {
		d.fail(ideUNC)
		return false
	}
	return true
}

func (d *IDE) dataRead() byte {
	if !d.reading {
		return 0xFF
	}
	v := d.buf[d.bufPos]
	d.bufPos++
	if d.bufPos == 512 {
		d.bufPos = 0
		d.count--
		if d.count == 0 {
			d.reading = false
			d.status = ideDRDY
			return v
		}
		d.pending++
		d.advanceLBA()
		if !d.loadSector() {
			return v
		}
	}
	return v
}

func (d *IDE) dataWrite(v byte) {
	if !d.writing {
		return
	}
	d.buf[d.bufPos] = v
	d.bufPos++
	if d.bufPos == 512 {
		d.bufPos = 0
		if _, err := d.img.WriteAt(d.buf[:], d.pending*512); err != nil {
			d.fail(ideUNC)
			return
		}
		d.count--
		if d.count == 0 {
			d.writing = false
			d.status = ideDRDY
			return
		}
		d.pending++
		d.advanceLBA()
		if d.pending >= d.sectors {
			d.fail(ideIDNF)
		}
	}
}

// advanceLBA keeps the task file registers tracking a multi sector
// transfer the way a real drive does.
func (d *IDE) advanceLBA() {
	if d.dev&0x40 == 0 {
		return // CHS registers are left alone
	}
	l := d.pending
	d.lba0 = byte(l)
	d.lba1 = byte(l >> 8)
	d.lba2 = byte(l >> 16)
	d.dev = d.dev&0xF0 | byte(l>>24)&0x0F
}

func (d *IDE) identify() {
	for i := range d.buf {
		d.buf[i] = 0
	}
	put := func(word int, v uint16) {
		d.buf[word*2] = byte(v)
		d.buf[word*2+1] = byte(v >> 8)
	}
	cyls := d.sectors / (ideHeads * ideSPT)
	if cyls > 0xFFFF {
		cyls = 0xFFFF
	}
	put(0, 0x0040) // fixed drive
	put(1, uint16(cyls))
	put(3, ideHeads)
	put(6, ideSPT)
	put(47, 0x0001) // one sector per interrupt
	put(49, 0x0200) // LBA supported
	put(60, uint16(d.sectors))
	put(61, uint16(d.sectors>>16))
	model := "RC2014 CF CARD"
	for i := 0; i < 40; i += 2 {
		a, b := byte(' '), byte(' ')
		if i < len(model) {
			a = model[i]
		}
		if i+1 < len(model) {
			b = model[i+1]
		}
		// ATA strings are byte swapped within each word
		d.buf[54+i] = b
		d.buf[54+i+1] = a
	}
}
