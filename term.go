package main

import (
	"golang.org/x/sys/unix"
)

const (
	getTermios = unix.TCGETS
	setTermios = unix.TCSETS
)

func tcget(fd uintptr) (*unix.Termios, error) {
	p, err := unix.IoctlGetTermios(int(fd), getTermios)
	if err != nil {
		return nil, err
	}
	return p, nil
}

func tcset(fd uintptr, p *unix.Termios) error {
	return unix.IoctlSetTermios(int(fd), setTermios, p)
}

// rawTerminal puts the controlling tty into the byte-at-a-time mode
// the board console expects and returns a restore function. Keyboard
// signal characters are disabled so ^C and ^Z reach the emulated
// machine; shutdown comes from SIGINT sent by other means or SIGQUIT
// from a detached tty.
func rawTerminal(fd uintptr) (func(), error) {
	saved, err := tcget(fd)
	if err != nil {
		return nil, err
	}
	term := *saved
	term.Lflag &^= unix.ICANON | unix.ECHO
	term.Cc[unix.VMIN] = 0
	term.Cc[unix.VTIME] = 1
	term.Cc[unix.VINTR] = 0
	term.Cc[unix.VSUSP] = 0
	term.Cc[unix.VSTOP] = 0
	if err := tcset(fd, &term); err != nil {
		return nil, err
	}
	return func() { tcset(fd, saved) }, nil
}
