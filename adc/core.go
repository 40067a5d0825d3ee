// Copyright 2024 The EE119C Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package adc

import (
	"github.com/tpailevanian/EE119C/fir"
)

// Inputs are the pin-level inputs sampled at one system-clock tick.
type Inputs struct {
	RstN      bool              // active-low asynchronous reset
	SerialClk bool              // externally supplied capture clock level
	Data      [NumChannels]bool // serial data line levels
}

// Outputs are the pin-level outputs after a tick.
type Outputs struct {
	Trigger   bool                // conversion trigger
	SerialClk bool                // outgoing serial clock
	Ready     bool                // deserializer transfer-complete
	Raw       [NumChannels]uint16 // deserializer registers, live
	Filtered  [NumChannels]int32  // filter outputs, 18-bit signed
}

// Core is the complete acquisition side wired together: sequencer,
// counters, deserializer and filter bank, with the deserializer's
// transfer-complete flag imported into the sequencer domain through a
// two-stage synchronizer and each filter channel importing its inputs
// through its own.
//
// The capture clock is sampled once per system tick. The phase-matched
// protocol holds each clock phase for two system ticks, so no edge can
// be missed.
type Core struct {
	ctl  *Controller
	des  Deserializer
	bank fir.Bank
	rdy  fir.SyncBit

	lastRaw [NumChannels]uint16 // raw words latched at cycle end
	lastFlt [NumChannels]int32  // filter outputs latched at cycle end
}

// NewCore returns a Core in its post-reset state.
func NewCore() *Core {
	c := &Core{ctl: NewController()}
	c.des.SetReset(true)
	return c
}

// Tick advances the system-clock domain by one tick and the capture
// domain by the edge, if any, carried by the sampled external clock
// level. The deserializer reset computed by the sequencer this tick is
// applied to the deserializer within the same tick: the line is
// asynchronous by design. Every other cross-domain value is consumed
// through a synchronizer.
func (c *Core) Tick(in Inputs) Outputs {
	if !in.RstN {
		c.rdy.Reset()
	}

	ready := c.rdy.Tick(c.des.Complete())

	cycles := c.ctl.Cycles()
	c.ctl.Tick(in.RstN, ready)
	if c.ctl.Cycles() != cycles {
		// cycle completed this tick: latch its results before the
		// deserializer reset clears the registers
		c.lastRaw = c.des.Words()
		c.lastFlt = c.bank.Outputs()
	}

	c.des.SetReset(c.ctl.DeserializerReset())
	c.des.Step(in.SerialClk, in.Data)

	flt := c.bank.Tick(in.RstN, c.des.Words(), c.des.Complete())

	return Outputs{
		Trigger:   c.ctl.Trigger(),
		SerialClk: c.ctl.SerialClock(),
		Ready:     c.des.Complete(),
		Raw:       c.des.Words(),
		Filtered:  flt,
	}
}

// State returns the sequencer state.
func (c *Core) State() State { return c.ctl.State() }

// Status returns the exit status of the last completed cycle.
func (c *Core) Status() Status { return c.ctl.Status() }

// Cycles returns the number of completed conversion cycles.
func (c *Core) Cycles() uint32 { return c.ctl.Cycles() }

// Counts returns the current values of the three delay counters.
func (c *Core) Counts() (sample, convert, timeout uint32) {
	return c.ctl.Counts()
}

// Bits returns the deserializer's captured-bit counter.
func (c *Core) Bits() uint8 { return c.des.Bits() }

// LastRaw returns the four raw words captured by the last completed
// cycle. After a timeout cycle the values are indeterminate.
func (c *Core) LastRaw() [NumChannels]uint16 { return c.lastRaw }

// LastFiltered returns the four filter outputs as of the last
// completed cycle.
func (c *Core) LastFiltered() [NumChannels]int32 { return c.lastFlt }
