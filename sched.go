package main

import "time"

// One emulated epoch is 20ms of board time: 368640 clocks at
// 18.432MHz, walked as 50 rows of 10 steps of 737 t-states. It's a
// balance between nice host behaviour and simulation smoothness.
const (
	tstateSteps = 737
	epochRows   = 50
	epochSteps  = 10
	epochLen    = 20 * time.Millisecond
)

// Run drives the board until a termination signal arrives. Shutdown is
// observed at epoch boundaries only; an in-flight epoch always
// completes.
func (m *Machine) Run() error {
	for {
		select {
		case <-m.done:
			return nil
		default:
		}
		m.runEpoch()
		if !m.fast {
			m.sleep()
		}
		m.epochEnd()
	}
}

// runEpoch interleaves the DMA engine and the CPU per clock-credit
// step. DMA gets first claim each iteration; the CPU only executes an
// instruction when DMA claimed nothing, otherwise a stalling transfer
// would let the CPU run cycles it does not own.
func (m *Machine) runEpoch() {
	states := 0
	for i := 0; i < epochRows; i++ {
		for j := 0; j < epochSteps; j++ {
			for states < tstateSteps {
				used := m.io.DMA()
				if used == 0 {
					used = m.cpu.Execute()
				}
				states += used
			}
			m.io.Event(states)
			// Carry the overshoot into the next step rather
			// than losing it.
			states -= tstateSteps
		}
		m.fdc.Tick()
	}
}

// epochEnd re-polls the interrupt lines if a device asked for it
// during the epoch. If an IM2 vector is live the poll waits for the
// RETI sniffer instead. The flag only clears once both flip-flops are
// down; interrupts may re-enable mid-epoch and a pending device
// condition must still be delivered, so the next epoch retries.
func (m *Machine) epochEnd() {
	if !m.intRecalc {
		return
	}
	if !m.liveIRQ {
		m.pollIRQEvent()
	}
	if !m.cpu.IFF1 && !m.cpu.IFF2 {
		m.intRecalc = false
	}
}
