package main

// The CPU core does not decode instructions for us, so detecting a
// retired RETI (ED 4D) means watching the fetch stream. The wrinkle is
// that DD, FD and CB prefixes fetch their following byte under M1 too,
// and that byte may legitimately be 0xED without starting a RETI. See
// the Z80 interrupt manual. One state machine per CPU.
type retiState int

const (
	retiIdle retiState = iota
	retiSkipNext           // prefix seen; next fetch is protected
	retiEDSeen             // ED fetched under M1; waiting for 4D
)

type retiTracker struct {
	state retiState

	// retired fires once per genuine ED 4D sequence.
	retired func()
}

// observe is fed every byte returned on the memory bus along with the
// core's M1 flag, and decides whether a RETI just completed.
func (t *retiTracker) observe(v byte, m1 bool) {
	switch t.state {
	case retiSkipNext:
		// The one access after a prefix can never be the lead byte
		// of ED 4D, whatever its value.
		t.state = retiIdle
		return
	case retiEDSeen:
		if v == 0x4D {
			t.state = retiIdle
			if t.retired != nil {
				t.retired()
			}
			return
		}
	}
	if m1 {
		switch v {
		case 0xDD, 0xFD, 0xCB:
			t.state = retiSkipNext
			return
		case 0xED:
			t.state = retiEDSeen
			return
		}
	}
	t.state = retiIdle
}
