// z180 mini-itx board emulator.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/spf13/afero"
)

func main() {
	var cli struct {
		Run runCmd `cmd:"" default:"1" help:"run the board"`
	}

	ctx := kong.Parse(&cli)
	err := ctx.Run(&kong.Context{})
	ctx.FatalIfErrorf(err)
}

type runCmd struct {
	ROM    string   `name:"rom" default:"z180-mini-itx.rom" help:"path to 512K ROM image"`
	SD     string   `name:"sd" type:"existingfile" help:"path to SD card image"`
	IDE    string   `name:"ide" type:"existingfile" help:"path to CF card image"`
	Floppy []string `name:"floppy" type:"existingfile" help:"path to floppy image (may repeat)"`
	Trace  uint16   `name:"trace" help:"trace mask"`
	LEDs   bool     `name:"leds" help:"show the diagnostic LED bar"`
	Fast   bool     `name:"fast" help:"run flat out instead of pacing to real time"`
}

func (r *runCmd) Run(ctx *kong.Context) error {
	fs := afero.NewOsFs()
	tr := &Tracer{mask: r.Trace}
	m := NewMachine(tr)
	m.leds = r.LEDs
	m.fast = r.Fast

	if err := m.bus.LoadROM(fs, r.ROM); err != nil {
		return err
	}
	if r.SD != "" {
		if err := m.AttachSD(fs, r.SD); err != nil {
			fmt.Fprintf(os.Stderr, "sd: %v\n", err)
		}
	}
	if r.IDE != "" {
		if err := m.AttachIDE(fs, r.IDE); err != nil {
			fmt.Fprintf(os.Stderr, "ide: %v\n", err)
		}
	}
	if len(r.Floppy) > 2 {
		return fmt.Errorf("at most two floppy images, got %d", len(r.Floppy))
	}
	for i, path := range r.Floppy {
		if err := m.fdc.Attach(fs, i, path); err != nil {
			fmt.Fprintf(os.Stderr, "fdc%d: %v\n", i, err)
		}
	}

	signal.Notify(m.done, syscall.SIGINT, syscall.SIGQUIT, syscall.SIGPIPE)
	restore, err := rawTerminal(os.Stdin.Fd())
	if err == nil {
		defer restore()
	}

	m.cpu.Reset()
	m.io.Reset()
	return m.Run()
}
