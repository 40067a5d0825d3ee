// Copyright 2024 The EE119C Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package adc

// counter is a clearable up-counter of fixed bit width. The count
// advances only while enabled, clear wins over enable, and done is a
// pure function of the count.
//
// The sequencer uses three instances: the sample delay (4 bits, done at
// exactly 11), the conversion delay (7 bits, done at exactly 67) and
// the data-ready timeout (7 bits, done while bit 6 is set).
type counter struct {
	v    uint32
	mask uint32 // register width
	mark uint32 // count at which done asserts
	ge   bool   // done while v >= mark instead of v == mark
}

func (c *counter) tick(clear, enable bool) {
	switch {
	case clear:
		c.v = 0
	case enable:
		c.v = (c.v + 1) & c.mask
	}
}

func (c *counter) done() bool {
	if c.ge {
		return c.v >= c.mark
	}
	return c.v == c.mark
}

func (c *counter) count() uint32 { return c.v }
