package main

// I/O dispatch. The Z180's own peripheral window is decoded first and
// never reaches board logic; everything else is an 8 bit port decode.
// Unmapped ports float: reads give 0xFF, writes vanish.
//
// The FDC read window stops at 0x76 while the write window runs to
// 0x77. That is how the board glue decodes it; reads of 0x77 fall
// through to the unknown-port path.

func (m *Machine) In(addr uint16) byte {
	m.tr.logf(TraceIO, "read %02x", addr)
	if m.io.InternalPort(addr) {
		return m.io.Read(addr)
	}
	addr &= 0xFF
	switch {
	case addr >= 0x10 && addr <= 0x17 && m.ide != nil:
		return m.ideRead(byte(addr & 7))
	case addr >= 0x70 && addr < 0x77:
		return m.fdc.Read(byte(addr & 7))
	case addr >= 0x78 && addr <= 0x7F:
		return m.ppi.read(byte(addr & 3))
	}
	m.tr.logf(TraceUnk, "Unknown read from port %04X", addr)
	return 0xFF
}

func (m *Machine) Out(addr uint16, v byte) {
	m.tr.logf(TraceIO, "write %02x <- %02x", addr, v)
	if m.io.InternalPort(addr) {
		m.io.Write(addr, v)
		return
	}
	addr &= 0xFF
	switch {
	case addr >= 0x10 && addr <= 0x17 && m.ide != nil:
		m.ideWrite(byte(addr&7), v)
	case addr >= 0x70 && addr < 0x78:
		m.fdc.Write(byte(addr&7), v)
	case addr >= 0x78 && addr <= 0x7F:
		m.ppi.write(byte(addr&3), v)
	case addr == 0x0D:
		m.diagWrite(v)
	case addr == 0xFD:
		m.tr.setLow(v)
	case addr == 0xFE:
		m.tr.setHigh(v)
	default:
		m.tr.logf(TraceUnk, "Unknown write to port %04X of %02X", addr, v)
	}
}

func (m *Machine) ideRead(addr byte) byte {
	r := m.ide.Read8(addr)
	m.tr.logf(TraceIDE, "ide read %d = %02X", addr, r)
	return r
}

func (m *Machine) ideWrite(addr byte, v byte) {
	m.tr.logf(TraceIDE, "ide write %d = %02X", addr, v)
	m.ide.Write8(addr, v)
}
