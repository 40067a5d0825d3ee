// Copyright 2024 The EE119C Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package afe

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/tpailevanian/EE119C/afe/internal/regs"
)

const dbg = false

// fakeReg32 replaces the read function of a register with a scripted
// sequence of values. Writes pass through to the underlying window.
// Once the script is exhausted the register keeps returning its last
// value and fires the exhaust hook, once, from its own goroutine.
type fakeReg32 struct {
	dev  *Device
	name string

	mu sync.Mutex
	cr int // reads served
	cw int // writes seen
	rs []uint32

	exhaust func()
}

func wrap(dev *Device, reg *reg32, name string, rs []uint32) *fakeReg32 {
	fake := &fakeReg32{
		dev:  dev,
		name: name,
		rs:   rs,
	}

	rfn := reg.r
	wfn := reg.w

	reg.r = func() uint32 {
		fake.mu.Lock()
		defer fake.mu.Unlock()

		_ = rfn() // exercise the underlying mmap window.

		i := fake.cr
		fake.cr++
		if dbg {
			fake.dev.msg.Printf("%s: read %d", fake.name, i)
		}
		if i >= len(fake.rs) {
			if fake.exhaust != nil {
				f := fake.exhaust
				fake.exhaust = nil
				go f()
			}
			if len(fake.rs) == 0 {
				return 0
			}
			return fake.rs[len(fake.rs)-1]
		}
		return fake.rs[i]
	}

	reg.w = func(v uint32) {
		fake.mu.Lock()
		defer fake.mu.Unlock()

		fake.cw++
		if dbg {
			fake.dev.msg.Printf("%s: write 0x%08x", fake.name, v)
		}
		wfn(v)
	}

	return fake
}

func (fake *fakeReg32) nreads() int {
	fake.mu.Lock()
	defer fake.mu.Unlock()
	return fake.cr
}

// fakeDev provides a sparse file standing in for /dev/mem, large
// enough to map both HPS-to-FPGA bridge windows.
type fakeDev struct {
	dir string
	mem string
}

func newFakeDev() (*fakeDev, error) {
	dir, err := os.MkdirTemp("", "afe-")
	if err != nil {
		return nil, fmt.Errorf("could not create tmp dir: %w", err)
	}

	mem := filepath.Join(dir, "dev.mem")
	f, err := os.Create(mem)
	if err != nil {
		os.RemoveAll(dir)
		return nil, fmt.Errorf("could not create fake memory device: %w", err)
	}

	// grow the file so both bridge windows can be mapped.
	_, err = f.WriteAt([]byte{1}, regs.LW_H2F_BASE+regs.LW_H2F_SPAN)
	if err != nil {
		f.Close()
		os.RemoveAll(dir)
		return nil, fmt.Errorf("could not grow fake memory device: %w", err)
	}

	err = f.Close()
	if err != nil {
		os.RemoveAll(dir)
		return nil, fmt.Errorf("could not close fake memory device: %w", err)
	}

	return &fakeDev{dir: dir, mem: mem}, nil
}

func (fdev *fakeDev) close() {
	os.RemoveAll(fdev.dir)
}

// fpga scripts the firmware registers for one nominal acquisition:
// two frames land in the DAQ FIFO, the first from a regular cycle and
// the second from a timed-out one, then the FIFO reads back empty
// until the run is stopped. It returns the fake fill-level register,
// whose exhaust hook fires once the run-loop has drained both frames.
func (fdev *fakeDev) fpga(dev *Device, exhaust func()) *fakeReg32 {
	wrap(dev, &dev.regs.pio.version, "pio.version", []uint32{
		0: 0x00010200, // firmware v1.2.0
	})
	wrap(dev, &dev.regs.pio.state, "pio.state", []uint32{
		0: regs.O_PLL_LCK, // PLL locked
	})
	wrap(dev, &dev.regs.pio.ctl, "pio.ctl", []uint32{
		0: 0x00000000, // chanMask
		1: 0x00000f00, // cntReset
		2: 0x00000f00, // fifoEnable
		3: 0x00000f04, // runStart
		4: 0x00000f06, // runStop
		5: 0x00000f04, // fifoDisable
	})
	wrap(dev, &dev.regs.pio.cycles, "pio.cycles", []uint32{
		0: 2, // conversion cycles at end of run
	})

	lvl := wrap(dev, &dev.regs.fifo.daqCSR.pins[regs.ALTERA_AVALON_FIFO_LEVEL_REG], "fifo.level", []uint32{
		0: 0,  // pre-run drain
		1: 16, // two frames pending
		2: 8,  // one frame pending
		3: 0,  // FIFO empty
	})
	lvl.exhaust = exhaust

	wrap(dev, &dev.regs.fifo.daq, "fifo.daq", []uint32{
		// frame: cycle 0, nominal.
		0: 0xafe00000, // marker, no flags
		1: 0x00000000, // cycle
		2: 0x80001234, // raw[1]<<16 | raw[0]
		3: 0xfc000400, // raw[3]<<16 | raw[2]
		4: 0x00001234, // flt[0]
		5: 0xffff8000, // flt[1]
		6: 0x00000400, // flt[2]
		7: 0xfffffc00, // flt[3]
		// frame: cycle 1, readout timeout.
		8:  0xafe00001, // marker, timeout flag
		9:  0x00000001, // cycle
		10: 0x00000000,
		11: 0x00000000,
		12: 0x00000000,
		13: 0x00000000,
		14: 0x00000000,
		15: 0x00000000,
	})

	return lvl
}
