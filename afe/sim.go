// Copyright 2024 The EE119C Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package afe

import (
	"fmt"
	"io"
	"log"
	"net"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/tpailevanian/EE119C/adc"
	"github.com/tpailevanian/EE119C/internal/aformat"
)

// maxTicksPerCycle bounds one simulated conversion cycle. A nominal
// cycle is 145 ticks, a timed-out one a few tens more.
const maxTicksPerCycle = 1024

// Sim drives a software model of the AFE readout board: the
// acquisition core and a behavioural model of the converter chip,
// ticked in lock-step. It produces the same run files and speaks to
// the same data sinks as the real Device.
type Sim struct {
	msg *log.Logger
	dir string // output directory for run files
	cfg config
	err error

	mu    sync.Mutex // guards core and model during acquisition
	core  *adc.Core
	model *adc.Model

	clk  bool                  // capture clock presented at the next tick
	data [adc.NumChannels]bool // data lines presented at the next tick

	daq struct {
		w   *wbuf
		enc *aformat.Encoder
		sck net.Conn
		f   *os.File

		done chan int

		frames uint64
	}
}

// NewSim creates a simulated AFE readout board writing run files
// under odir. Samples are drawn from src, one four-channel word per
// conversion cycle; a nil src yields all-zero samples.
func NewSim(odir string, src func(cycle uint32) [adc.NumChannels]uint16, opts ...Option) (*Sim, error) {
	sim := &Sim{
		msg:   log.New(os.Stdout, "afe: ", 0),
		dir:   odir,
		cfg:   newConfig(),
		core:  adc.NewCore(),
		model: adc.NewModel(src),
	}

	// defaults.
	WithChannelMask(chanAll)(&sim.cfg)
	WithStopTimeout(10 * time.Second)(&sim.cfg)

	for _, opt := range opts {
		opt(&sim.cfg)
	}

	return sim, nil
}

// Stall suppresses the converter echo clock for the next n conversion
// cycles, forcing readout timeouts.
func (sim *Sim) Stall(n uint32) {
	sim.mu.Lock()
	defer sim.mu.Unlock()
	sim.model.Stall(n)
}

// Initialize resets the simulated acquisition core.
func (sim *Sim) Initialize() error {
	sim.mu.Lock()
	defer sim.mu.Unlock()

	for i := 0; i < 4; i++ {
		sim.core.Tick(adc.Inputs{})
	}
	sim.clk = false
	sim.data = [adc.NumChannels]bool{}
	return nil
}

func (sim *Sim) initRun(run uint32) error {
	if sim.cfg.daq.addr != "" {
		sck, err := net.Dial("tcp", sim.cfg.daq.addr)
		if err != nil {
			return fmt.Errorf("afe: could not dial data sink %q: %w", sim.cfg.daq.addr, err)
		}
		sim.daq.sck = sck
	}

	fname := filepath.Join(sim.dir, fmt.Sprintf("afe_%06d.raw", run))
	f, err := os.Create(fname)
	if err != nil {
		return fmt.Errorf("afe: could not create run file %q: %w", fname, err)
	}
	sim.daq.f = f

	sim.daq.w = &wbuf{p: make([]byte, daqBufferSize)}
	sim.daq.enc = aformat.NewEncoder(sim.daq.w)
	sim.daq.frames = 0

	err = sim.daq.enc.EncodeHeader(&aformat.RunHeader{
		Version: aformat.Version,
		Run:     run,
		UTC:     uint32(time.Now().UTC().Unix()),
		Serial:  sim.cfg.daq.serial,
	})
	if err != nil {
		return fmt.Errorf("afe: could not encode run header: %w", err)
	}

	err = daqFlush(sim.daq.w, sim.daq.f, sim.daq.sck)
	if err != nil {
		return fmt.Errorf("afe: could not write run header: %w", err)
	}

	sim.msg.Printf("-----------------RUN NB %d (sim)-----------------\n", run)
	return nil
}

// Start starts a simulated acquisition of the provided run, with a
// dedicated run-loop producing frames until Stop is called.
func (sim *Sim) Start(run uint32) error {
	err := sim.initRun(run)
	if err != nil {
		return fmt.Errorf("afe: could not init run %d: %w", run, err)
	}

	sim.daq.done = make(chan int)
	go sim.loop()

	return nil
}

// Run performs n conversion cycles synchronously and closes the run
// file. The offline simulator front-end uses it; interactive
// acquisitions go through Start and Stop.
func (sim *Sim) Run(run uint32, n uint32) error {
	err := sim.initRun(run)
	if err != nil {
		return fmt.Errorf("afe: could not init run %d: %w", run, err)
	}

	for i := uint32(0); i < n; i++ {
		err = sim.acquire()
		if err != nil {
			_ = sim.closeRun()
			return fmt.Errorf("afe: could not acquire cycle: %w", err)
		}
	}

	return sim.closeRun()
}

func (sim *Sim) loop() {
	var (
		errorf = func(format string, args ...interface{}) {
			sim.err = fmt.Errorf(format, args...)
			sim.msg.Printf("%+v", sim.err)
		}
	)

	defer func() { _ = sim.closeRun() }()

	for {
		err := sim.acquire()
		if err != nil {
			errorf("afe: could not acquire cycle: %+v", err)
			return
		}

		select {
		case <-sim.daq.done:
			sim.daq.done <- 1
			return
		default:
		}
	}
}

// acquire runs one conversion cycle and writes out its frame.
func (sim *Sim) acquire() error {
	fr, err := sim.step()
	if err != nil {
		return err
	}

	err = sim.daq.enc.Encode(&fr)
	if err != nil {
		return fmt.Errorf("afe: could not encode frame (cycle=%d): %w", fr.Cycle, err)
	}

	err = daqFlush(sim.daq.w, sim.daq.f, sim.daq.sck)
	if err != nil {
		return err
	}

	if d := sim.cfg.daq.period; d > 0 {
		time.Sleep(d)
	}
	return nil
}

// step ticks the core and the converter model in lock-step until the
// conversion cycle under way completes, and assembles its frame.
func (sim *Sim) step() (aformat.Frame, error) {
	sim.mu.Lock()
	defer sim.mu.Unlock()

	var (
		fr    aformat.Frame
		start = sim.core.Cycles()
	)
	for ticks := 0; sim.core.Cycles() == start; ticks++ {
		if ticks > maxTicksPerCycle {
			return fr, fmt.Errorf("afe: simulated core stuck (cycle=%d)", start)
		}
		out := sim.core.Tick(adc.Inputs{RstN: true, SerialClk: sim.clk, Data: sim.data})
		sim.clk, sim.data = sim.model.Step(out.Trigger, out.SerialClk)
	}

	fr.Cycle = start
	if sim.core.Status() == adc.StatusTimeout {
		fr.Flags |= aformat.FlagTimeout
	}
	fr.Raw = sim.core.LastRaw()
	fr.Flt = sim.core.LastFiltered()

	for i := 0; i < numChannels; i++ {
		if sim.cfg.daq.mask&(1<<uint(i)) == 0 {
			fr.Raw[i] = 0
			fr.Flt[i] = 0
		}
	}

	sim.daq.frames++
	return fr, nil
}

// Stop stops the on-going simulated acquisition.
func (sim *Sim) Stop() error {
	tck := time.NewTimer(sim.cfg.daq.timeout)
	defer tck.Stop()

	select {
	case sim.daq.done <- 1:
		<-sim.daq.done
	case <-tck.C:
		return fmt.Errorf("afe: could not stop DAQ run-loop (timeout=%v)", sim.cfg.daq.timeout)
	}

	if sim.err != nil {
		return fmt.Errorf("afe: could not stop run: %w", sim.err)
	}

	sim.msg.Printf("run stopped: cycles=%d frames=%d", sim.Cycles(), sim.Frames())
	return nil
}

// Frames returns the number of frames written out so far.
func (sim *Sim) Frames() uint64 {
	sim.mu.Lock()
	defer sim.mu.Unlock()
	return sim.daq.frames
}

// Cycles returns the number of conversion cycles completed so far.
func (sim *Sim) Cycles() uint32 {
	sim.mu.Lock()
	defer sim.mu.Unlock()
	return sim.core.Cycles()
}

func (sim *Sim) closeRun() error {
	var (
		errSck error
		errF   error
	)

	if sim.daq.sck != nil {
		errSck = sim.daq.sck.Close()
		sim.daq.sck = nil
	}
	if sim.daq.f != nil {
		errF = sim.daq.f.Close()
		sim.daq.f = nil
	}

	switch {
	case errF != nil:
		return fmt.Errorf("afe: could not close run file: %w", errF)
	case errSck != nil:
		return fmt.Errorf("afe: could not close data sink: %w", errSck)
	}
	return nil
}

// Close terminates the simulated board.
func (sim *Sim) Close() error {
	return sim.closeRun()
}

// DumpRegisters dumps the state of the simulated acquisition core
// to w.
func (sim *Sim) DumpRegisters(w io.Writer) error {
	sim.mu.Lock()
	defer sim.mu.Unlock()

	var (
		raw = sim.core.LastRaw()
		flt = sim.core.LastFiltered()
	)

	fmt.Fprintf(w, "core.state=      %v\n", sim.core.State())
	fmt.Fprintf(w, "core.status=     %v\n", sim.core.Status())
	fmt.Fprintf(w, "core.cycles=     %d\n", sim.core.Cycles())
	for i, v := range raw {
		fmt.Fprintf(w, "core.raw[%d]=     0x%04x\n", i, v)
	}
	for i, v := range flt {
		fmt.Fprintf(w, "core.flt[%d]=     %d\n", i, v)
	}
	return nil
}
