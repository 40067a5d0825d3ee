// Copyright 2024 The EE119C Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package adc

// Deserializer captures the four serial data lines into four 16-bit
// shift registers, clocked by the externally supplied phase-matched
// serial clock. That clock is a foreign domain: the deserializer's
// outputs must pass through two-stage synchronizers before the
// sequencer or the filters may consume them.
type Deserializer struct {
	words [NumChannels]uint16
	bits  uint8 // captured-bit counter, 5 bits
	done  bool  // transfer-complete latch
	rst   bool  // asynchronous reset line, driven by the sequencer
	clk   bool  // last observed capture clock level
}

// SetReset drives the asynchronous reset line. Asserting it clears the
// bit counter, the transfer-complete latch and the four registers
// immediately, independent of the capture clock. Deasserting it
// re-enables accumulation.
func (des *Deserializer) SetReset(v bool) {
	des.rst = v
	if v {
		des.words = [NumChannels]uint16{}
		des.bits = 0
		des.done = false
	}
}

// Step samples the capture clock and data line levels. On a rising
// clock transition with reset deasserted, every register shifts left
// one bit and inserts its line's level at bit 0, so the first bit
// received ends up in the most significant position after the 15
// following shifts. Transfer-complete latches once the bit counter
// reaches 16 and holds until the next reset.
func (des *Deserializer) Step(clk bool, data [NumChannels]bool) {
	rising := clk && !des.clk
	des.clk = clk
	if !rising || des.rst {
		return
	}

	for i := range des.words {
		des.words[i] <<= 1
		if data[i] {
			des.words[i] |= 1
		}
	}
	des.bits = (des.bits + 1) & 0x1f
	if des.bits >= 16 {
		des.done = true
	}
}

// Words returns the four shift registers. The values are only
// meaningful once Complete reports true.
func (des *Deserializer) Words() [NumChannels]uint16 { return des.words }

// Bits returns the captured-bit counter.
func (des *Deserializer) Bits() uint8 { return des.bits }

// Complete reports whether 16 bits have been captured since the last
// reset.
func (des *Deserializer) Complete() bool { return des.done }
