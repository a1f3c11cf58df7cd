package main

import (
	"fmt"
	"os"
)

// Diagnostic categories. The low byte is set via port 0xFD, the high
// byte via port 0xFE, so the mask is writable from running Z180 code.
const (
	TraceMem   = 0x0001
	TraceIO    = 0x0002
	TraceUnk   = 0x0004
	TraceCPU   = 0x0008
	TraceCPUIO = 0x0010
	TraceIRQ   = 0x0020
	TraceSD    = 0x0040
	TraceFDC   = 0x0080
	TraceSPI   = 0x0100
	TraceIDE   = 0x0200
)

// Tracer is the board-wide diagnostic mask. One instance is shared by
// the bus glue and every device model.
type Tracer struct {
	mask uint16
}

func (t *Tracer) enabled(bits uint16) bool {
	return t.mask&bits != 0
}

func (t *Tracer) logf(bits uint16, format string, args ...interface{}) {
	if t.mask&bits != 0 {
		fmt.Fprintf(os.Stderr, format+"\n", args...)
	}
}

func (t *Tracer) setLow(v byte) {
	t.mask = t.mask&0xFF00 | uint16(v)
	fmt.Printf("trace set to %04X\n", t.mask)
}

func (t *Tracer) setHigh(v byte) {
	t.mask = t.mask&0x00FF | uint16(v)<<8
	fmt.Printf("trace set to %04X\n", t.mask)
}
