// Copyright 2024 The EE119C Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package fir

// Channel filters one ADC channel. It imports the raw word and the
// data-ready flag from the deserializer's clock domain through its own
// two-stage synchronizers, keeps the 128 most recent samples
// (most recent first) and recomputes the full tap cascade on every
// tick of the filter clock.
type Channel struct {
	word SyncWord
	rdy  SyncBit
	last bool // synchronized ready level on the previous tick

	hist [historyDepth]int16
	out  int32
}

// Tick advances the channel by one filter-clock tick and returns the
// filter output.
//
// rstn is the shared active-low reset: when false, history,
// synchronizers and output are cleared and the normal update logic is
// skipped. word and ready are the deserializer's raw outputs; a rising
// edge of the synchronized ready inserts the synchronized word at the
// head of the history.
func (ch *Channel) Tick(rstn bool, word uint16, ready bool) int32 {
	if !rstn {
		ch.reset()
		return 0
	}

	w := ch.word.Tick(word)
	rdy := ch.rdy.Tick(ready)

	if rdy && !ch.last {
		copy(ch.hist[1:], ch.hist[:len(ch.hist)-1])
		ch.hist[0] = int16(w)
	}
	ch.last = rdy

	ch.out = ch.mac()
	return ch.out
}

// Output returns the filter output computed at the last tick, an
// 18-bit signed value sign-extended into the int32.
func (ch *Channel) Output() int32 { return ch.out }

func (ch *Channel) reset() {
	ch.word.Reset()
	ch.rdy.Reset()
	ch.last = false
	ch.hist = [historyDepth]int16{}
	ch.out = 0
}

// mac evaluates the 127-stage multiply-accumulate cascade over the
// current history. Each stage forms a signed 32-bit product of one
// history sample and its Q15 coefficient and adds it to the running
// accumulator; the coefficient table bounds the accumulator to 34
// bits. The final sum is arithmetically shifted right by 15 to undo
// the Q15 scale and truncated to 18 bits.
func (ch *Channel) mac() int32 {
	var acc int64
	for i, c := range &coeffs {
		p := int32(ch.hist[i]) * int32(c)
		acc += int64(p)
	}
	return trunc18(acc >> 15)
}

// trunc18 keeps the low 18 bits of v, sign-extended into an int32.
func trunc18(v int64) int32 {
	return int32(v) << 14 >> 14
}
