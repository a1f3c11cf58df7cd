package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/afero"
)

// Machine is the mini-ITX board: CPU, on-chip I/O block, memory bus,
// 82C55 and whatever storage is attached. All hardware state hangs off
// this one value; nothing in the emulation is package level.
type Machine struct {
	cpu *Z180
	io  *Z180IO
	bus *Bus
	ppi *PPI
	tr  *Tracer

	fdc    *FDC
	ide    *IDE
	sd     *SDCard
	con    *Console
	reti   retiTracker
	disasm *disasm

	leds bool
	fast bool

	// liveIRQ is set while an IM2 vectored interrupt is being
	// serviced and cleared by the RETI sniffer.
	liveIRQ bool
	// intRecalc notes that device state changed and the interrupt
	// lines need re-polling at the next safe point.
	intRecalc bool

	lastPC uint32 // for squashing repeated block ops in the trace

	sleep func() // epoch pacing, injectable for tests
	done  chan os.Signal
}

func NewMachine(tr *Tracer) *Machine {
	m := &Machine{tr: tr, lastPC: 0xFFFFFFFF}
	m.ppi = NewPPI(tr)
	m.bus = NewBus(m.ppi, tr)
	m.con = NewConsole(os.Stdin, os.Stdout)
	m.cpu = &Z180{Mem: m, IO: m}
	m.io = NewZ180IO(m.cpu, m.bus, m.con, tr)
	m.io.csio = m.csioWrite
	m.io.recalc = m.recalcInterrupts
	m.cpu.IntAck = m.io.IntAck
	m.fdc = NewFDC(tr)
	m.reti.retired = m.retiEvent
	m.disasm = newDisasm(m)
	m.cpu.trace = m.instrTrace
	m.sleep = func() { time.Sleep(epochLen) }
	m.done = make(chan os.Signal, 1)
	return m
}

// AttachSD wires an SD card image onto SPI chip select 0.
func (m *Machine) AttachSD(fs afero.Fs, path string) error {
	sd, err := NewSDCard(fs, path, m.tr)
	if err != nil {
		return err
	}
	m.sd = sd
	m.ppi.spi = sd
	return nil
}

// AttachIDE plugs a CF adapter into the 0x10-0x17 window.
func (m *Machine) AttachIDE(fs afero.Fs, path string) error {
	ide, err := NewIDE(fs, path, m.tr)
	if err != nil {
		return err
	}
	m.ide = ide
	return nil
}

// Memory access as the CPU sees it: through the MMU, then the physical
// bus, with the RETI sniffer watching every returned byte.
func (m *Machine) Read(addr uint16) byte {
	pa := m.io.Translate(addr)
	v := m.bus.physRead(pa)
	m.tr.logf(TraceMem, "R %04X[%06X] -> %02X", addr, uint32(pa), v)
	m.reti.observe(v, m.cpu.M1)
	return v
}

func (m *Machine) Write(addr uint16, v byte) {
	pa := m.io.Translate(addr)
	m.tr.logf(TraceMem, "W: %04X[%06X] <- %02X", addr, uint32(pa), v)
	m.bus.physWrite(pa, v)
}

// readQuiet is the disassembler's view: translated, no trace, and no
// RETI sniffing, so tracing cannot perturb the chain detector.
func (m *Machine) readQuiet(addr uint16) byte {
	return m.bus.physRead(m.io.Translate(addr))
}

func (m *Machine) csioWrite(bits byte) byte {
	if m.sd == nil {
		return 0xFF
	}
	// The CSIO shifts LSB first, the SD card wants MSB first.
	r := bitrev[m.sd.Exchange(bitrev[bits])]
	m.tr.logf(TraceSPI, "[SPI %02X:%02X]", bitrev[bits], bitrev[r])
	return r
}

func (m *Machine) recalcInterrupts() {
	m.intRecalc = true
}

func (m *Machine) pollIRQEvent() {
	m.io.PollInterrupts()
}

func (m *Machine) retiEvent() {
	if m.liveIRQ {
		m.tr.logf(TraceIRQ, "RETI")
	}
	m.liveIRQ = false
	m.pollIRQEvent()
}

func (m *Machine) diagWrite(v byte) {
	if !m.leds {
		return
	}
	x := []byte("\n[--------]\n")
	for i := 0; i < 8; i++ {
		if v&(1<<i) != 0 {
			x[i+2] = '@'
		}
	}
	os.Stdout.Write(x)
}

// trace hook called by the CPU at each instruction boundary.
func (m *Machine) instrTrace() {
	if !m.tr.enabled(TraceCPU) {
		return
	}
	pc := m.cpu.M1PC
	// Spot ED Bx repeating instructions and squash the trace.
	if uint32(pc) == m.lastPC && m.readQuiet(pc) == 0xED &&
		m.readQuiet(pc+1)&0xF4 == 0xB0 {
		return
	}
	m.lastPC = uint32(pc)
	text, raw := m.disasm.at(pc)
	fmt.Fprintf(os.Stderr, "%04X: %-12s %-16s ", pc, raw, text)
	c := m.cpu
	fmt.Fprintf(os.Stderr, "[ %02X:%02X %04X %04X %04X %04X %04X %04X ]\n",
		c.A, c.F, c.BC(), c.DE(), c.HL(), c.IX, c.IY, c.SP)
}
