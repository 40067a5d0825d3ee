// Copyright 2024 The EE119C Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package afe

import (
	"io"

	"github.com/tpailevanian/EE119C/afe/internal/regs"
)

type rwer interface {
	io.ReaderAt
	io.WriterAt
}

// reg32 models a 32b register.
type reg32 struct {
	r func() uint32
	w func(v uint32)
}

func newReg32(brd *board, rw rwer, offset int64) reg32 {
	return reg32{
		r: func() uint32 { return brd.readU32(rw, offset) },
		w: func(v uint32) { brd.writeU32(rw, offset, v) },
	}
}

// daqFIFO models the CSR file of the Avalon FIFO the acquisition core
// pushes completed conversion cycles into.
type daqFIFO struct {
	pins [6]reg32
}

func newDAQFIFO(brd *board, rw rwer, offset int64) daqFIFO {
	return daqFIFO{
		pins: [6]reg32{
			newReg32(brd, rw, offset+4*regs.ALTERA_AVALON_FIFO_LEVEL_REG),
			newReg32(brd, rw, offset+4*regs.ALTERA_AVALON_FIFO_STATUS_REG),
			newReg32(brd, rw, offset+4*regs.ALTERA_AVALON_FIFO_EVENT_REG),
			newReg32(brd, rw, offset+4*regs.ALTERA_AVALON_FIFO_IENABLE_REG),
			newReg32(brd, rw, offset+4*regs.ALTERA_AVALON_FIFO_ALMOSTFULL_REG),
			newReg32(brd, rw, offset+4*regs.ALTERA_AVALON_FIFO_ALMOSTEMPTY_REG),
		},
	}
}

func (fifo *daqFIFO) r(i int) uint32 {
	return fifo.pins[i].r()
}

func (fifo *daqFIFO) w(i int, v uint32) {
	fifo.pins[i].w(v)
}
