// Copyright 2024 The EE119C Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package afe

import (
	"encoding/binary"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/tpailevanian/EE119C/afe/internal/regs"
)

type pins struct {
	pio struct {
		ctl    reg32
		state  reg32
		status reg32
		cycles reg32

		raw [numChannels]reg32
		flt [numChannels]reg32

		cntSample  reg32
		cntConvert reg32
		cntTimeout reg32

		version reg32
	}

	fifo struct {
		daq    reg32
		daqCSR daqFIFO
	}
}

// board gives access to the registers of the AFE readout firmware.
//
// Errors from the underlying memory-mapped bridges are sticky: the
// first one latches into err and all subsequent accesses are no-ops
// until it is inspected.
type board struct {
	regs pins
	msg  *log.Logger
	err  error

	xbuf [4]byte
}

func newBoard(msg *log.Logger) board {
	return board{msg: msg}
}

func (brd *board) readU32(r io.ReaderAt, offset int64) uint32 {
	if brd.err != nil {
		return 0
	}
	_, brd.err = r.ReadAt(brd.xbuf[:4], offset)
	if brd.err != nil {
		brd.err = fmt.Errorf("afe: could not read register 0x%x: %w", offset, brd.err)
		return 0
	}
	return binary.LittleEndian.Uint32(brd.xbuf[:4])
}

func (brd *board) writeU32(w io.WriterAt, offset int64, v uint32) {
	if brd.err != nil {
		return
	}
	binary.LittleEndian.PutUint32(brd.xbuf[:4], v)
	_, brd.err = w.WriteAt(brd.xbuf[:4], offset)
	if brd.err != nil {
		brd.err = fmt.Errorf("afe: could not write register 0x%x: %w", offset, brd.err)
	}
}

func (brd *board) bindLwH2F(rw rwer) {
	brd.regs.pio.ctl = newReg32(brd, rw, regs.LW_H2F_PIO_CTL_OUT)
	brd.regs.pio.state = newReg32(brd, rw, regs.LW_H2F_PIO_STATE_IN)
	brd.regs.pio.status = newReg32(brd, rw, regs.LW_H2F_PIO_STATUS_IN)
	brd.regs.pio.cycles = newReg32(brd, rw, regs.LW_H2F_PIO_CYCLES_IN)

	for i := 0; i < numChannels; i++ {
		brd.regs.pio.raw[i] = newReg32(brd, rw, regs.LW_H2F_PIO_RAW_0+4*int64(i))
		brd.regs.pio.flt[i] = newReg32(brd, rw, regs.LW_H2F_PIO_FLT_0+4*int64(i))
	}

	brd.regs.pio.cntSample = newReg32(brd, rw, regs.LW_H2F_PIO_CNT_SAMPLE)
	brd.regs.pio.cntConvert = newReg32(brd, rw, regs.LW_H2F_PIO_CNT_CONVERT)
	brd.regs.pio.cntTimeout = newReg32(brd, rw, regs.LW_H2F_PIO_CNT_TIMEOUT)
	brd.regs.pio.version = newReg32(brd, rw, regs.LW_H2F_PIO_VERSION)
}

func (brd *board) bindH2F(rw rwer) {
	brd.regs.fifo.daq = newReg32(brd, rw, regs.H2F_FIFO_DAQ)
	brd.regs.fifo.daqCSR = newDAQFIFO(brd, rw, regs.H2F_FIFO_DAQ_CSR)
}

// coreReset pulses the acquisition core reset.
//
// The control register is written whole, so the channel mask must be
// programmed again afterwards.
func (brd *board) coreReset() error {
	brd.regs.pio.ctl.w(regs.O_CORE_RESET)
	brd.msg.Printf("reset acquisition core")
	time.Sleep(1 * time.Microsecond)
	brd.regs.pio.ctl.w(0x00000000)
	time.Sleep(1 * time.Microsecond)
	if brd.err != nil {
		return fmt.Errorf("afe: could not reset acquisition core: %w", brd.err)
	}
	return nil
}

func (brd *board) runStart() error {
	ctl := brd.regs.pio.ctl.r()
	ctl |= regs.O_RUN
	brd.regs.pio.ctl.w(ctl)
	if brd.err != nil {
		return fmt.Errorf("afe: could not start acquisition: %w", brd.err)
	}
	return nil
}

func (brd *board) runStop() error {
	ctl := brd.regs.pio.ctl.r()
	ctl &= ^uint32(regs.O_RUN)
	brd.regs.pio.ctl.w(ctl)
	if brd.err != nil {
		return fmt.Errorf("afe: could not stop acquisition: %w", brd.err)
	}
	return nil
}

func (brd *board) fifoEnable() error {
	ctl := brd.regs.pio.ctl.r()
	ctl |= regs.O_FIFO_ENA
	brd.regs.pio.ctl.w(ctl)
	if brd.err != nil {
		return fmt.Errorf("afe: could not enable DAQ FIFO capture: %w", brd.err)
	}
	return nil
}

func (brd *board) fifoDisable() error {
	ctl := brd.regs.pio.ctl.r()
	ctl &= ^uint32(regs.O_FIFO_ENA)
	brd.regs.pio.ctl.w(ctl)
	if brd.err != nil {
		return fmt.Errorf("afe: could not disable DAQ FIFO capture: %w", brd.err)
	}
	return nil
}

func (brd *board) cntReset() error {
	ctl := brd.regs.pio.ctl.r()
	ctl |= regs.O_CNT_RESET
	brd.regs.pio.ctl.w(ctl)
	if brd.err != nil {
		return fmt.Errorf("afe: could not reset counters: %w", brd.err)
	}
	time.Sleep(1 * time.Microsecond)

	ctl &= ^uint32(regs.O_CNT_RESET)
	brd.regs.pio.ctl.w(ctl)
	if brd.err != nil {
		return fmt.Errorf("afe: could not release counter reset: %w", brd.err)
	}
	return nil
}

func (brd *board) chanMask(mask uint32) error {
	ctl := brd.regs.pio.ctl.r()
	ctl &= ^uint32(chanAll << regs.SHIFT_CH_ENA)
	ctl |= (mask & chanAll) << regs.SHIFT_CH_ENA
	brd.regs.pio.ctl.w(ctl)
	if brd.err != nil {
		return fmt.Errorf("afe: could not set channel mask 0x%x: %w", mask, brd.err)
	}
	return nil
}

func (brd *board) fsmState() uint32 {
	return (brd.regs.pio.state.r() >> regs.SHIFT_FSM_STATE) & 0x7
}

func (brd *board) ready() bool {
	return brd.regs.pio.state.r()&regs.O_READY == regs.O_READY
}

func (brd *board) pllLocked() bool {
	return brd.regs.pio.state.r()&regs.O_PLL_LCK == regs.O_PLL_LCK
}

func (brd *board) cycles() uint32 {
	return brd.regs.pio.cycles.r()
}

func (brd *board) status() uint32 {
	return brd.regs.pio.status.r()
}

func (brd *board) cntSample() uint32 {
	return brd.regs.pio.cntSample.r()
}

func (brd *board) cntConvert() uint32 {
	return brd.regs.pio.cntConvert.r()
}

func (brd *board) cntTimeout() uint32 {
	return brd.regs.pio.cntTimeout.r()
}

func (brd *board) version() uint32 {
	return brd.regs.pio.version.r()
}

func (brd *board) daqFIFOInit() error {
	fifo := &brd.regs.fifo.daqCSR

	// clear event register.
	fifo.w(regs.ALTERA_AVALON_FIFO_EVENT_REG, regs.ALTERA_AVALON_FIFO_EVENT_ALL)
	// disable interrupts.
	fifo.w(regs.ALTERA_AVALON_FIFO_IENABLE_REG, 0)
	fifo.w(regs.ALTERA_AVALON_FIFO_ALMOSTFULL_REG, daqFIFODepth-daqFrameWords)
	fifo.w(regs.ALTERA_AVALON_FIFO_ALMOSTEMPTY_REG, daqFrameWords)

	if brd.err != nil {
		return fmt.Errorf("afe: could not initialize DAQ FIFO: %w", brd.err)
	}
	return nil
}

func (brd *board) daqFIFOFillLevel() uint32 {
	return brd.regs.fifo.daqCSR.r(regs.ALTERA_AVALON_FIFO_LEVEL_REG)
}

// daqFIFODrain pops and discards whatever the FIFO holds, returning
// the number of words dropped.
func (brd *board) daqFIFODrain() uint32 {
	var n uint32
	for brd.daqFIFOFillLevel() > 0 {
		_ = brd.regs.fifo.daq.r()
		if brd.err != nil {
			break
		}
		n++
	}
	return n
}

func bit32(word, digit uint32) uint32 {
	return (word >> digit) & 0x1
}
