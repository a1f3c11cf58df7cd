package main

import (
	"os"

	"github.com/spf13/afero"
)

// The CSIO shifts LSB first; SPI devices expect MSB first. The glue
// reverses every byte in both directions.
var bitrev [256]byte

func init() {
	for i := range bitrev {
		b := byte(i)
		b = b>>4 | b<<4
		b = b&0xCC>>2 | b&0x33<<2
		b = b&0xAA>>1 | b&0x55<<1
		bitrev[i] = b
	}
}

// SDCard is a byte-addressed (SDSC) card in SPI mode, attached to
// chip select 0. Only the command subset the ROM uses is modeled:
// reset, voltage check, init, OCR, block length and single block
// read/write.
type SDCard struct {
	img afero.File
	tr  *Tracer

	selected bool
	idle     bool // in idle state since CMD0

	cmd    [6]byte
	cmdLen int
	acmd   bool

	resp    []byte
	wbuf    []byte
	waddr   int64
	writing bool
}

func NewSDCard(fs afero.Fs, path string, tr *Tracer) (*SDCard, error) {
	img, err := fs.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, err
	}
	return &SDCard{img: img, tr: tr}, nil
}

func (sd *SDCard) LowerCS() {
	sd.selected = true
	sd.cmdLen = 0
	sd.tr.logf(TraceSD, "sd: cs low")
}

func (sd *SDCard) RaiseCS() {
	sd.selected = false
	sd.resp = nil
	sd.writing = false
	sd.cmdLen = 0
	sd.tr.logf(TraceSD, "sd: cs high")
}

// Exchange clocks one byte each way across the SPI bus.
func (sd *SDCard) Exchange(in byte) byte {
	if !sd.selected {
		return 0xFF
	}
	if sd.writing {
		sd.absorb(in)
		return 0xFF
	}
	if len(sd.resp) > 0 {
		out := sd.resp[0]
		sd.resp = sd.resp[1:]
		return out
	}
	// Command frames start with 01xxxxxx.
	if sd.cmdLen == 0 && in&0xC0 != 0x40 {
		return 0xFF
	}
	sd.cmd[sd.cmdLen] = in
	sd.cmdLen++
	if sd.cmdLen == 6 {
		sd.cmdLen = 0
		sd.command()
	}
	return 0xFF
}

func (sd *SDCard) arg() int64 {
	return int64(sd.cmd[1])<<24 | int64(sd.cmd[2])<<16 |
		int64(sd.cmd[3])<<8 | int64(sd.cmd[4])
}

func (sd *SDCard) command() {
	op := sd.cmd[0] & 0x3F
	acmd := sd.acmd
	sd.acmd = false
	sd.tr.logf(TraceSD, "sd: cmd%d arg %08X", op, uint32(sd.arg()))

	if acmd && op == 41 { // SD_SEND_OP_COND
		sd.idle = false
		sd.r1(0x00)
		return
	}
	switch op {
	case 0: // GO_IDLE_STATE
		sd.idle = true
		sd.r1(0x01)
	case 8: // SEND_IF_COND
		sd.resp = []byte{0xFF, 0x01, sd.cmd[1], sd.cmd[2], sd.cmd[3], sd.cmd[4]}
	case 55: // APP_CMD
		sd.acmd = true
		sd.r1(sd.r1status())
	case 58: // READ_OCR: byte addressed card, 3.3V window
		sd.resp = []byte{0xFF, sd.r1status(), 0x00, 0xFF, 0x80, 0x00}
	case 16: // SET_BLOCKLEN: only 512 is ever asked for
		sd.r1(sd.r1status())
	case 17: // READ_SINGLE_BLOCK
		var blk [512]byte
		if _, err := sd.img.ReadAt(blk[:], sd.arg()); err != nil {
			sd.r1(0x40) // parameter error
			return
		}
		sd.resp = append([]byte{0xFF, sd.r1status(), 0xFE}, blk[:]...)
		sd.resp = append(sd.resp, 0xFF, 0xFF) // CRC
	case 24: // WRITE_BLOCK
		sd.waddr = sd.arg()
		sd.wbuf = sd.wbuf[:0]
		sd.writing = true
		sd.r1(sd.r1status())
	default:
		sd.tr.logf(TraceSD, "sd: unsupported cmd%d", op)
		sd.r1(sd.r1status() | 0x04) // illegal command
	}
}

func (sd *SDCard) r1status() byte {
	if sd.idle {
		return 0x01
	}
	return 0x00
}

func (sd *SDCard) r1(v byte) {
	sd.resp = []byte{0xFF, v}
}

// absorb collects the write data token, the block and the CRC, then
// commits the block and queues the data response.
func (sd *SDCard) absorb(in byte) {
	if len(sd.wbuf) == 0 && in != 0xFE {
		return // still waiting for the start token
	}
	sd.wbuf = append(sd.wbuf, in)
	if len(sd.wbuf) < 1+512+2 {
		return
	}
	sd.writing = false
	if _, err := sd.img.WriteAt(sd.wbuf[1:513], sd.waddr); err != nil {
		sd.resp = []byte{0x0D, 0x00, 0xFF} // write error
		return
	}
	// data accepted, short busy, then idle
	sd.resp = []byte{0x05, 0x00, 0xFF}
}
