package main

import "io"

// Console bridges the controlling tty onto ASCI channel 0. A reader
// goroutine feeds a small channel so the emulation loop can poll for
// input without blocking; output goes straight through.
type Console struct {
	in  chan byte
	out io.Writer
}

func NewConsole(in io.Reader, out io.Writer) *Console {
	c := &Console{
		in:  make(chan byte, 64),
		out: out,
	}
	go func() {
		var buf [1]byte
		for {
			n, err := in.Read(buf[:])
			if n == 1 {
				c.in <- buf[0]
			}
			if err != nil {
				return
			}
		}
	}()
	return c
}

func (c *Console) InReady() bool {
	return len(c.in) > 0
}

func (c *Console) ReadByte() byte {
	select {
	case b := <-c.in:
		if b == 0x0A {
			b = '\r'
		}
		return b
	default:
		return 0xFF
	}
}

func (c *Console) WriteByte(b byte) {
	c.out.Write([]byte{b})
}
