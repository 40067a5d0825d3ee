// Copyright 2024 The EE119C Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package regs holds the register map of the AFE readout firmware as
// exposed to the HPS on the two HPS-to-FPGA bridges of the Cyclone-V
// SoC. Offsets are bytes from the base of the owning bridge window.
package regs

// Lightweight HPS-to-FPGA bridge: PIO registers.
const (
	LW_H2F_BASE = 0xff200000
	LW_H2F_SPAN = 0x00200000
)

const (
	LW_H2F_PIO_CTL_OUT     = 0x00
	LW_H2F_PIO_STATE_IN    = 0x04
	LW_H2F_PIO_STATUS_IN   = 0x08
	LW_H2F_PIO_CYCLES_IN   = 0x0c
	LW_H2F_PIO_RAW_0       = 0x10
	LW_H2F_PIO_RAW_1       = 0x14
	LW_H2F_PIO_RAW_2       = 0x18
	LW_H2F_PIO_RAW_3       = 0x1c
	LW_H2F_PIO_FLT_0       = 0x20
	LW_H2F_PIO_FLT_1       = 0x24
	LW_H2F_PIO_FLT_2       = 0x28
	LW_H2F_PIO_FLT_3       = 0x2c
	LW_H2F_PIO_CNT_SAMPLE  = 0x30
	LW_H2F_PIO_CNT_CONVERT = 0x34
	LW_H2F_PIO_CNT_TIMEOUT = 0x38
	LW_H2F_PIO_VERSION     = 0x3c
)

// Control register bits (LW_H2F_PIO_CTL_OUT).
const (
	O_CORE_RESET = 0x00000001 // hold the acquisition core in reset
	O_RUN        = 0x00000002 // enable conversion cycles
	O_FIFO_ENA   = 0x00000004 // capture completed cycles into the DAQ FIFO
	O_CNT_RESET  = 0x00000008 // clear the counter spy registers

	SHIFT_CH_ENA = 8 // bits 11:8, per-channel capture enables
)

// State register fields (LW_H2F_PIO_STATE_IN).
const (
	SHIFT_FSM_STATE = 0 // bits 2:0, acquisition FSM state

	O_READY   = 0x00000008 // deserializer transfer-complete
	O_SCLK    = 0x00000010 // outgoing serial clock level
	O_TRIGGER = 0x00000020 // conversion trigger level
	O_PLL_LCK = 0x00000040 // readout PLL locked
)

// Acquisition FSM states (STATE_IN bits 2:0).
const (
	S_SAMPLE     = 0
	S_CONVERT    = 1
	S_CLOCK_HIGH = 2
	S_CLOCK_LOW  = 3
	S_DATA_READY = 4
)

// Status register fields (LW_H2F_PIO_STATUS_IN).
const (
	O_STATUS_TIMEOUT = 0x00000001 // last cycle ended on the readout watchdog
	O_STATUS_OVERRUN = 0x00000002 // DAQ FIFO overflowed since the last drain
)

// HPS-to-FPGA bridge: DAQ FIFO.
const (
	H2F_BASE = 0xc0000000
	H2F_SPAN = 0x00100000
)

const (
	H2F_FIFO_DAQ     = 0x000000 // FIFO data output register
	H2F_FIFO_DAQ_CSR = 0x000020 // FIFO control/status register file
)

// Avalon FIFO CSR registers, as 32-bit word indices from the CSR base.
const (
	ALTERA_AVALON_FIFO_LEVEL_REG       = 0
	ALTERA_AVALON_FIFO_STATUS_REG      = 1
	ALTERA_AVALON_FIFO_EVENT_REG       = 2
	ALTERA_AVALON_FIFO_IENABLE_REG     = 3
	ALTERA_AVALON_FIFO_ALMOSTFULL_REG  = 4
	ALTERA_AVALON_FIFO_ALMOSTEMPTY_REG = 5

	ALTERA_AVALON_FIFO_EVENT_ALL = 0x3f
)
