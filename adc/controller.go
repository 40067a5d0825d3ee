// Copyright 2024 The EE119C Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package adc

import (
	"fmt"
)

// State enumerates the acquisition sequencer states.
type State uint8

const (
	Sample State = iota
	Convert
	ClockHigh
	ClockLow
	DataReady
)

var stateNames = [...]string{
	Sample:    "SAMPLE",
	Convert:   "CONVERT",
	ClockHigh: "CLOCK_HIGH",
	ClockLow:  "CLOCK_LOW",
	DataReady: "DATA_READY",
}

func (st State) String() string {
	if int(st) < len(stateNames) {
		return stateNames[st]
	}
	return fmt.Sprintf("State(%d)", uint8(st))
}

// Status reports how a conversion cycle left DATA_READY.
type Status uint8

const (
	// StatusOK means the deserializer's transfer-complete flag was
	// observed before the timeout.
	StatusOK Status = iota

	// StatusTimeout means the timeout counter fired first: the capture
	// never finished and the raw values of that cycle are indeterminate.
	StatusTimeout
)

func (st Status) String() string {
	switch st {
	case StatusOK:
		return "ok"
	case StatusTimeout:
		return "timeout"
	}
	return fmt.Sprintf("Status(%d)", uint8(st))
}

// Controller is the five-state acquisition sequencer. It pulses the
// conversion trigger, waits the fixed sample and conversion delays,
// emits sixteen outgoing serial clock pulses with a two-tick half
// period, and then waits for the deserializer's transfer-complete flag,
// bounded by the timeout counter so a stalled capture clock can never
// hang the cycle.
type Controller struct {
	state State

	smp counter // sample delay
	cnv counter // conversion delay
	tmo counter // data-ready timeout

	tog    bool  // marks the second tick of the current clock phase
	pulses uint8 // serial clock pulses emitted, 5 bits

	trig   bool // conversion trigger output
	sclk   bool // outgoing serial clock level
	desRst bool // deserializer reset line

	stat   Status // exit status of the last completed cycle
	cycles uint32 // completed conversion cycles
}

// NewController returns a Controller in its post-reset state: SAMPLE,
// counters cleared, deserializer reset asserted.
func NewController() *Controller {
	ctl := &Controller{
		smp: counter{mask: 0x0f, mark: 11},
		cnv: counter{mask: 0x7f, mark: 67},
		tmo: counter{mask: 0x7f, mark: 64, ge: true},
	}
	ctl.reset()
	return ctl
}

func (ctl *Controller) reset() {
	ctl.state = Sample
	ctl.smp.tick(true, false)
	ctl.cnv.tick(true, false)
	ctl.tmo.tick(true, false)
	ctl.tog = false
	ctl.pulses = 0
	ctl.trig = false
	ctl.sclk = false
	ctl.desRst = true
}

// Tick advances the sequencer by one system-clock tick. rstn is the
// active-low reset line, checked before the normal transition logic:
// when deasserted (false) the sequencer abandons all in-progress state
// and returns to SAMPLE. ready is the synchronized transfer-complete
// flag from the deserializer's domain.
func (ctl *Controller) Tick(rstn, ready bool) {
	if !rstn {
		ctl.reset()
		return
	}

	switch ctl.state {
	case Sample:
		if ctl.smp.done() {
			ctl.smp.tick(true, false)
			ctl.trig = false
			ctl.state = Convert
			break
		}
		ctl.smp.tick(false, true)
		ctl.trig = true

	case Convert:
		if ctl.cnv.done() {
			ctl.cnv.tick(true, false)
			ctl.tog = false
			ctl.desRst = false // permit capture
			ctl.state = ClockHigh
			break
		}
		ctl.cnv.tick(false, true)

	case ClockHigh:
		ctl.sclk = true
		if ctl.tog {
			ctl.tog = false
			ctl.state = ClockLow
			break
		}
		ctl.tog = true

	case ClockLow:
		ctl.sclk = false
		if ctl.tog {
			ctl.tog = false
			ctl.pulses++
			if ctl.pulses == 16 {
				ctl.pulses = 0
				ctl.state = DataReady
				break
			}
			ctl.state = ClockHigh
			break
		}
		ctl.tog = true

	case DataReady:
		if ready || ctl.tmo.done() {
			ctl.stat = StatusOK
			if !ready {
				ctl.stat = StatusTimeout
			}
			ctl.tmo.tick(true, false)
			ctl.desRst = true
			ctl.cycles++
			ctl.state = Sample
			break
		}
		ctl.tmo.tick(false, true)
	}
}

// State returns the current sequencer state.
func (ctl *Controller) State() State { return ctl.state }

// Trigger returns the conversion trigger output.
func (ctl *Controller) Trigger() bool { return ctl.trig }

// SerialClock returns the outgoing serial clock level.
func (ctl *Controller) SerialClock() bool { return ctl.sclk }

// DeserializerReset returns the level of the deserializer reset line,
// asserted from the end of each cycle until the next clock-out phase.
func (ctl *Controller) DeserializerReset() bool { return ctl.desRst }

// Cycles returns the number of completed conversion cycles.
func (ctl *Controller) Cycles() uint32 { return ctl.cycles }

// Status returns the exit status of the last completed cycle.
func (ctl *Controller) Status() Status { return ctl.stat }

// Counts returns the current values of the three delay counters.
func (ctl *Controller) Counts() (sample, convert, timeout uint32) {
	return ctl.smp.count(), ctl.cnv.count(), ctl.tmo.count()
}
