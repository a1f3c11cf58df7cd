package main

import (
	"fmt"
	"strings"
)

// Mnemonics for the unprefixed page. Lowercase placeholders: n is an
// immediate byte, nn an immediate word, d a relative target; mnemonics
// and register names are uppercase so substitution cannot collide.
var disMain = [256]string{
	"NOP", "LD BC,nn", "LD (BC),A", "INC BC", "INC B", "DEC B", "LD B,n", "RLCA",
	"EX AF,AF'", "ADD HL,BC", "LD A,(BC)", "DEC BC", "INC C", "DEC C", "LD C,n", "RRCA",
	"DJNZ d", "LD DE,nn", "LD (DE),A", "INC DE", "INC D", "DEC D", "LD D,n", "RLA",
	"JR d", "ADD HL,DE", "LD A,(DE)", "DEC DE", "INC E", "DEC E", "LD E,n", "RRA",
	"JR NZ,d", "LD HL,nn", "LD (nn),HL", "INC HL", "INC H", "DEC H", "LD H,n", "DAA",
	"JR Z,d", "ADD HL,HL", "LD HL,(nn)", "DEC HL", "INC L", "DEC L", "LD L,n", "CPL",
	"JR NC,d", "LD SP,nn", "LD (nn),A", "INC SP", "INC (HL)", "DEC (HL)", "LD (HL),n", "SCF",
	"JR C,d", "ADD HL,SP", "LD A,(nn)", "DEC SP", "INC A", "DEC A", "LD A,n", "CCF",
	"", "", "", "", "", "", "", "", "", "", "", "", "", "", "", "",
	"", "", "", "", "", "", "", "", "", "", "", "", "", "", "", "",
	"", "", "", "", "", "", "", "", "", "", "", "", "", "", "", "",
	"", "", "", "", "", "", "", "", "", "", "", "", "", "", "", "",
	"", "", "", "", "", "", "", "", "", "", "", "", "", "", "", "",
	"", "", "", "", "", "", "", "", "", "", "", "", "", "", "", "",
	"", "", "", "", "", "", "", "", "", "", "", "", "", "", "", "",
	"", "", "", "", "", "", "", "", "", "", "", "", "", "", "", "",
	"RET NZ", "POP BC", "JP NZ,nn", "JP nn", "CALL NZ,nn", "PUSH BC", "ADD A,n", "RST 00H",
	"RET Z", "RET", "JP Z,nn", "", "CALL Z,nn", "CALL nn", "ADC A,n", "RST 08H",
	"RET NC", "POP DE", "JP NC,nn", "OUT (n),A", "CALL NC,nn", "PUSH DE", "SUB n", "RST 10H",
	"RET C", "EXX", "JP C,nn", "IN A,(n)", "CALL C,nn", "", "SBC A,n", "RST 18H",
	"RET PO", "POP HL", "JP PO,nn", "EX (SP),HL", "CALL PO,nn", "PUSH HL", "AND n", "RST 20H",
	"RET PE", "JP (HL)", "JP PE,nn", "EX DE,HL", "CALL PE,nn", "", "XOR n", "RST 28H",
	"RET P", "POP AF", "JP P,nn", "DI", "CALL P,nn", "PUSH AF", "OR n", "RST 30H",
	"RET M", "LD SP,HL", "JP M,nn", "EI", "CALL M,nn", "", "CP n", "RST 38H",
}

var disReg = [8]string{"B", "C", "D", "E", "H", "L", "(HL)", "A"}
var disALU = [8]string{"ADD A,", "ADC A,", "SUB ", "SBC A,", "AND ", "XOR ", "OR ", "CP "}
var disRot = [8]string{"RLC", "RRC", "RL", "RR", "SLA", "SRA", "SLL", "SRL"}

var disED = map[byte]string{
	0x42: "SBC HL,BC", 0x52: "SBC HL,DE", 0x62: "SBC HL,HL", 0x72: "SBC HL,SP",
	0x4A: "ADC HL,BC", 0x5A: "ADC HL,DE", 0x6A: "ADC HL,HL", 0x7A: "ADC HL,SP",
	0x43: "LD (nn),BC", 0x53: "LD (nn),DE", 0x63: "LD (nn),HL", 0x73: "LD (nn),SP",
	0x4B: "LD BC,(nn)", 0x5B: "LD DE,(nn)", 0x6B: "LD HL,(nn)", 0x7B: "LD SP,(nn)",
	0x4C: "MLT BC", 0x5C: "MLT DE", 0x6C: "MLT HL", 0x7C: "MLT SP",
	0x44: "NEG", 0x54: "NEG", 0x64: "TST n", 0x74: "TSTIO n",
	0x45: "RETN", 0x4D: "RETI",
	0x46: "IM 0", 0x56: "IM 1", 0x5E: "IM 2",
	0x47: "LD I,A", 0x4F: "LD R,A", 0x57: "LD A,I", 0x5F: "LD A,R",
	0x67: "RRD", 0x6F: "RLD", 0x34: "TST (HL)", 0x76: "SLP",
	0x83: "OTIM", 0x8B: "OTDM", 0x93: "OTIMR", 0x9B: "OTDMR",
	0xA0: "LDI", 0xA8: "LDD", 0xB0: "LDIR", 0xB8: "LDDR",
	0xA1: "CPI", 0xA9: "CPD", 0xB1: "CPIR", 0xB9: "CPDR",
	0xA2: "INI", 0xAA: "IND", 0xB2: "INIR", 0xBA: "INDR",
	0xA3: "OUTI", 0xAB: "OUTD", 0xB3: "OTIR", 0xBB: "OTDR",
}

type disasm struct {
	m   *Machine
	pc  uint16
	raw []byte
}

func newDisasm(m *Machine) *disasm {
	return &disasm{m: m}
}

func (d *disasm) next() byte {
	v := d.m.readQuiet(d.pc)
	d.pc++
	d.raw = append(d.raw, v)
	return v
}

// at renders the instruction at pc and its raw bytes.
func (d *disasm) at(pc uint16) (string, string) {
	d.pc = pc
	d.raw = d.raw[:0]
	text := d.instr()
	var hex strings.Builder
	for _, b := range d.raw {
		fmt.Fprintf(&hex, "%02X ", b)
	}
	return text, strings.TrimSpace(hex.String())
}

func (d *disasm) instr() string {
	op := d.next()
	switch op {
	case 0xCB:
		return d.cb(d.next(), "")
	case 0xED:
		return d.ed()
	case 0xDD:
		return d.indexed("IX")
	case 0xFD:
		return d.indexed("IY")
	}
	return d.operands(d.base(op))
}

func (d *disasm) base(op byte) string {
	switch op >> 6 {
	case 1:
		if op == 0x76 {
			return "HALT"
		}
		return "LD " + disReg[op>>3&7] + "," + disReg[op&7]
	case 2:
		return disALU[op>>3&7] + disReg[op&7]
	}
	return disMain[op]
}

func (d *disasm) cb(op byte, idx string) string {
	target := disReg[op&7]
	if idx != "" {
		target = idx
	}
	switch op >> 6 {
	case 0:
		return disRot[op>>3&7] + " " + target
	case 1:
		return fmt.Sprintf("BIT %d,%s", op>>3&7, target)
	case 2:
		return fmt.Sprintf("RES %d,%s", op>>3&7, target)
	default:
		return fmt.Sprintf("SET %d,%s", op>>3&7, target)
	}
}

func (d *disasm) ed() string {
	op := d.next()
	if s, ok := disED[op]; ok {
		return d.operands(s)
	}
	switch op & 0xC7 {
	case 0x00:
		return d.operands("IN0 " + disReg[op>>3&7] + ",(n)")
	case 0x01:
		return d.operands("OUT0 (n)," + disReg[op>>3&7])
	case 0x04:
		return "TST " + disReg[op>>3&7]
	case 0x40:
		return "IN " + disReg[op>>3&7] + ",(C)"
	case 0x41:
		return "OUT (C)," + disReg[op>>3&7]
	}
	return fmt.Sprintf("?ED %02X", op)
}

func (d *disasm) indexed(idx string) string {
	op := d.next()
	switch op {
	case 0xDD:
		return d.indexed("IX")
	case 0xFD:
		return d.indexed("IY")
	case 0xCB:
		disp := int8(d.next())
		return d.cb(d.next(), fmt.Sprintf("(%s%+d)", idx, disp))
	case 0xED:
		return d.ed()
	}
	s := d.base(op)
	if s == "EX DE,HL" { // prefix-immune
		return s
	}
	if strings.Contains(s, "(HL)") {
		disp := int8(d.next())
		s = strings.Replace(s, "(HL)", fmt.Sprintf("(%s%+d)", idx, disp), 1)
	} else {
		s = strings.Replace(s, "HL", idx, 1)
	}
	return d.operands(s)
}

// operands substitutes the immediate placeholders, reading their bytes
// in encoding order. An indexed displacement has already been consumed
// by the time this runs, matching the DD 36 d n byte order.
func (d *disasm) operands(s string) string {
	if strings.Contains(s, "nn") {
		lo := d.next()
		hi := d.next()
		return strings.Replace(s, "nn", fmt.Sprintf("%04XH", uint16(hi)<<8|uint16(lo)), 1)
	}
	if strings.Contains(s, "n") {
		return strings.Replace(s, "n", fmt.Sprintf("%02XH", d.next()), 1)
	}
	if strings.Contains(s, "d") {
		disp := int8(d.next())
		return strings.Replace(s, "d", fmt.Sprintf("%04XH", d.pc+uint16(int16(disp))), 1)
	}
	return s
}
