// Copyright 2024 The EE119C Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package adc

// Model mimics the external four-channel converter chip for the
// closed-loop simulator and the tests. It watches the sequencer's
// outputs: a rising conversion trigger latches the next sample from
// the source, and each outgoing serial clock pulse shifts one bit per
// channel onto the data lines, most significant bit first, with the
// clock echoed back as the phase-matched capture clock.
type Model struct {
	src func(cycle uint32) [NumChannels]uint16

	word  [NumChannels]uint16 // pattern being shifted out
	bit   int                 // next bit index, 15 down to 0
	trig  bool                // last seen trigger level
	sclk  bool                // last seen outgoing clock level
	echo  bool                // capture clock level
	data  [NumChannels]bool   // data line levels
	quiet bool                // echo suppressed for the current cycle

	cycle uint32
	stall uint32 // cycles left with the echo clock suppressed
}

// NewModel returns a model whose per-cycle samples come from src.
// A nil src yields all-zero samples.
func NewModel(src func(cycle uint32) [NumChannels]uint16) *Model {
	if src == nil {
		src = func(uint32) [NumChannels]uint16 { return [NumChannels]uint16{} }
	}
	return &Model{src: src, bit: 15}
}

// Constant returns a sample source yielding the same four words on
// every cycle.
func Constant(words [NumChannels]uint16) func(uint32) [NumChannels]uint16 {
	return func(uint32) [NumChannels]uint16 { return words }
}

// Stall suppresses the echo clock for the next n conversion cycles,
// so the capture never completes and the sequencer falls back to its
// timeout.
func (m *Model) Stall(n uint32) { m.stall += n }

// Cycle returns the number of conversions triggered so far.
func (m *Model) Cycle() uint32 { return m.cycle }

// Step reacts to the sequencer outputs of one system tick and returns
// the capture clock and data line levels to present at the next tick.
func (m *Model) Step(trigger, sclk bool) (clk bool, data [NumChannels]bool) {
	if trigger && !m.trig {
		m.word = m.src(m.cycle)
		m.cycle++
		m.bit = 15
		m.quiet = m.stall > 0
		if m.quiet {
			m.stall--
		}
	}
	m.trig = trigger

	switch {
	case sclk && !m.sclk:
		// rising edge: present the current bit, raise the echo
		for i := range m.data {
			m.data[i] = (m.word[i]>>uint(m.bit))&1 == 1
		}
		m.echo = true
	case !sclk && m.sclk:
		// falling edge: lower the echo, advance to the next bit
		m.echo = false
		if m.bit > 0 {
			m.bit--
		}
	}
	m.sclk = sclk

	if m.quiet {
		return false, m.data
	}
	return m.echo, m.data
}
