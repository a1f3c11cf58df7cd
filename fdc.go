package main

import (
	"os"

	"github.com/spf13/afero"
)

// Main status register bits.
const (
	fdcRQM = 1 << 7 // ready to move a byte
	fdcDIO = 1 << 6 // 1: controller to CPU
	fdcEXM = 1 << 5 // execution phase (non-DMA)
	fdcCB  = 1 << 4 // command in progress
)

// 3.5" double sided raw images.
const (
	fdCyls    = 80
	fdHeads   = 2
	fdSectors = 9
	fdSecSize = 512
)

// Motor spin-up time in controller ticks (one tick per scheduler row,
// 0.4ms each).
const fdSpinUp = 500

type fdDrive struct {
	img     afero.File
	cyl     int
	motorOn bool
	spin    int // ticks with the motor running
	seekEnd bool
	present bool
}

func (d *fdDrive) ready() bool {
	return d.present && d.motorOn && d.spin >= fdSpinUp
}

// FDC is a uPD765A behind the board's six register front end: main
// status and data from the chip itself, plus the DOR, DCR, TC and
// reset lines the glue decodes around it. Polled PIO only; the ISR
// line is not wired on this board.
type FDC struct {
	tr *Tracer

	drives [2]fdDrive
	dor    byte
	dcr    byte

	msr    byte
	cmd    [9]byte
	cmdLen int
	cmdPos int

	exec    []byte // execution phase bytes, in or out
	execPos int
	execWr  bool
	execC   int // current chs during transfers
	execH   int
	execR   int
	execEOT int

	result    []byte
	resultPos int
}

func NewFDC(tr *Tracer) *FDC {
	f := &FDC{tr: tr}
	f.Reset()
	return f
}

func (f *FDC) Reset() {
	f.msr = fdcRQM
	f.cmdPos, f.cmdLen = 0, 0
	f.exec, f.result = nil, nil
}

// Attach mounts a raw 720K image in drive 0 or 1.
func (f *FDC) Attach(fs afero.Fs, unit int, path string) error {
	img, err := fs.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return err
	}
	f.drives[unit].img = img
	f.drives[unit].present = true
	return nil
}

// Tick runs once per scheduler row and advances the drive mechanics.
func (f *FDC) Tick() {
	for i := range f.drives {
		d := &f.drives[i]
		motor := f.dor&(0x10<<i) != 0
		if motor != d.motorOn {
			d.motorOn = motor
			d.spin = 0
		}
		if d.motorOn && d.spin < fdSpinUp {
			d.spin++
		}
	}
}

func (f *FDC) Read(addr byte) byte {
	var v byte = 0x78
	switch addr {
	case 0:
		v = f.msr
	case 1:
		v = f.dataRead()
	case 4, 5:
		// TC and reset read back as floating data
	default:
		f.tr.logf(TraceFDC, "fdc: bogus read %02X", addr)
	}
	f.tr.logf(TraceFDC, "fdc: read %d -> %02X", addr, v)
	return v
}

func (f *FDC) Write(addr byte, v byte) {
	switch addr {
	case 1:
		f.tr.logf(TraceFDC, "fdc: data %02X", v)
		f.dataWrite(v)
	case 2:
		f.tr.logf(TraceFDC, "fdc: dor %02X", v)
		old := f.dor
		f.dor = v
		if old&0x04 != 0 && v&0x04 == 0 {
			f.Reset() // SRST is active low
		}
	case 3:
		f.tr.logf(TraceFDC, "fdc: dcr %02X", v)
		f.dcr = v
	case 4:
		f.tr.logf(TraceFDC, "fdc: tc")
		f.terminalCount()
	case 5:
		f.tr.logf(TraceFDC, "fdc: reset")
		f.Reset()
	default:
		f.tr.logf(TraceFDC, "fdc: bogus write %02X->%02X", addr, v)
	}
}

// Command lengths indexed by the low five opcode bits.
var fdcCmdLen = [32]int{
	0x03: 3, // SPECIFY
	0x04: 2, // SENSE DRIVE STATUS
	0x05: 9, // WRITE DATA
	0x06: 9, // READ DATA
	0x07: 2, // RECALIBRATE
	0x08: 1, // SENSE INTERRUPT STATUS
	0x0A: 2, // READ ID
	0x0F: 3, // SEEK
}

func (f *FDC) dataWrite(v byte) {
	if f.execWr && f.msr&fdcEXM != 0 {
		f.execByteIn(v)
		return
	}
	if f.cmdPos == 0 {
		n := fdcCmdLen[v&0x1F]
		if n == 0 {
			f.tr.logf(TraceFDC, "fdc: invalid command %02X", v)
			f.result = []byte{0x80} // ST0 invalid
			f.resultPos = 0
			f.msr = fdcRQM | fdcDIO | fdcCB
			return
		}
		f.cmdLen = n
		f.msr |= fdcCB
	}
	f.cmd[f.cmdPos] = v
	f.cmdPos++
	if f.cmdPos == f.cmdLen {
		f.cmdPos = 0
		f.execute()
	}
}

func (f *FDC) dataRead() byte {
	if !f.execWr && f.msr&fdcEXM != 0 {
		return f.execByteOut()
	}
	if f.resultPos < len(f.result) {
		v := f.result[f.resultPos]
		f.resultPos++
		if f.resultPos == len(f.result) {
			f.result = nil
			f.msr = fdcRQM
		}
		return v
	}
	return 0xFF
}

func (f *FDC) unit() *fdDrive { return &f.drives[f.cmd[1]&1] }

func (f *FDC) st0(extra byte) byte {
	return extra | f.cmd[1]&0x07
}

func (f *FDC) finish(res ...byte) {
	f.result = res
	f.resultPos = 0
	if len(res) > 0 {
		f.msr = fdcRQM | fdcDIO | fdcCB
	} else {
		f.msr = fdcRQM
	}
}

func (f *FDC) execute() {
	switch f.cmd[0] & 0x1F {
	case 0x03: // SPECIFY: timings and DMA mode, nothing to model
		f.finish()
	case 0x04: // SENSE DRIVE STATUS
		d := f.unit()
		st3 := f.cmd[1] & 0x07
		st3 |= 0x08 // two sided
		if d.cyl == 0 {
			st3 |= 0x10
		}
		if d.ready() {
			st3 |= 0x20
		}
		f.finish(st3)
	case 0x07: // RECALIBRATE
		d := f.unit()
		d.cyl = 0
		d.seekEnd = true
		f.finish()
	case 0x0F: // SEEK
		d := f.unit()
		d.cyl = int(f.cmd[2])
		d.seekEnd = true
		f.finish()
	case 0x08: // SENSE INTERRUPT STATUS
		for i := range f.drives {
			if f.drives[i].seekEnd {
				f.drives[i].seekEnd = false
				f.finish(0x20|byte(i), byte(f.drives[i].cyl))
				return
			}
		}
		f.finish(0x80) // nothing pending: invalid
	case 0x0A: // READ ID
		d := f.unit()
		if !d.ready() {
			f.finish(f.st0(0x40), 0x00, 0x00, 0, 0, 0, 0)
			return
		}
		head := f.cmd[1] >> 2 & 1
		f.finish(f.st0(0), 0, 0, byte(d.cyl), head, 1, 2)
	case 0x06: // READ DATA
		f.startTransfer(false)
	case 0x05: // WRITE DATA
		f.startTransfer(true)
	}
}

func (f *FDC) chsValid(c, h, r int) bool {
	return c < fdCyls && h < fdHeads && r >= 1 && r <= fdSectors
}

func (f *FDC) offset(c, h, r int) int64 {
	return int64(((c*fdHeads)+h)*fdSectors+(r-1)) * fdSecSize
}

func (f *FDC) startTransfer(write bool) {
	d := f.unit()
	c := int(f.cmd[2])
	h := int(f.cmd[3])
	r := int(f.cmd[4])
	f.execEOT = int(f.cmd[6])
	if !d.ready() || !f.chsValid(c, h, r) {
		f.finish(f.st0(0x40), 0x05, 0x00, f.cmd[2], f.cmd[3], f.cmd[4], f.cmd[5])
		return
	}
	f.execC, f.execH, f.execR = c, h, r
	f.execWr = write
	f.execPos = 0
	if write {
		f.exec = make([]byte, fdSecSize)
	} else {
		f.exec = make([]byte, fdSecSize)
		if _, err := d.img.ReadAt(f.exec, f.offset(c, h, r)); err != nil {
			f.finish(f.st0(0x40), 0x20, 0x20, f.cmd[2], f.cmd[3], f.cmd[4], f.cmd[5])
			return
		}
	}
	f.msr = fdcRQM | fdcEXM | fdcCB
	if !write {
		f.msr |= fdcDIO
	}
}

func (f *FDC) execByteOut() byte {
	v := f.exec[f.execPos]
	f.execPos++
	if f.execPos == len(f.exec) {
		f.nextSector()
	}
	return v
}

func (f *FDC) execByteIn(v byte) {
	f.exec[f.execPos] = v
	f.execPos++
	if f.execPos == len(f.exec) {
		d := f.unit()
		if _, err := d.img.WriteAt(f.exec, f.offset(f.execC, f.execH, f.execR)); err != nil {
			f.endTransfer(0x40, 0x20)
			return
		}
		f.nextSector()
	}
}

// nextSector advances the multi sector transfer until EOT.
func (f *FDC) nextSector() {
	if f.execR >= f.execEOT {
		// End of cylinder terminates the command; the 765 flags
		// it even on a clean stop at EOT.
		f.endTransfer(0x40, 0x80)
		return
	}
	f.execR++
	f.execPos = 0
	if !f.execWr {
		d := f.unit()
		if _, err := d.img.ReadAt(f.exec, f.offset(f.execC, f.execH, f.execR)); err != nil {
			f.endTransfer(0x40, 0x20)
			return
		}
	}
}

func (f *FDC) terminalCount() {
	if f.msr&fdcEXM != 0 {
		f.endTransfer(0, 0)
	}
}

func (f *FDC) endTransfer(st0Extra, st1 byte) {
	f.exec = nil
	f.msr &^= fdcEXM
	f.finish(f.st0(st0Extra), st1, 0x00,
		byte(f.execC), byte(f.execH), byte(f.execR), 0x02)
}
