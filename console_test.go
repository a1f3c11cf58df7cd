package main

import (
	"strings"
	"testing"
	"time"

	"github.com/matryer/is"
)

func TestConsoleInput(t *testing.T) {
	is := is.New(t)
	con := NewConsole(strings.NewReader("a\n"), &captureWriter{})

	deadline := time.After(time.Second)
	for len(con.in) < 2 {
		select {
		case <-deadline:
			t.Fatal("reader goroutine never delivered")
		default:
			time.Sleep(time.Millisecond)
		}
	}

	is.True(con.InReady())
	is.Equal(con.ReadByte(), byte('a'))
	is.Equal(con.ReadByte(), byte('\r')) // LF arrives as CR
	is.Equal(con.InReady(), false)
	is.Equal(con.ReadByte(), byte(0xFF)) // empty reads float
}

func TestConsoleOutput(t *testing.T) {
	is := is.New(t)
	var out captureWriter
	con := NewConsole(strings.NewReader(""), &out)
	con.WriteByte('o')
	con.WriteByte('k')
	is.Equal(string(out), "ok")
}
