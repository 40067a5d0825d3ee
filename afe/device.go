// Copyright 2024 The EE119C Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package afe

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"log"
	"net"
	"os"
	"path/filepath"
	"time"

	"github.com/tpailevanian/EE119C/afe/internal/regs"
	"github.com/tpailevanian/EE119C/internal/aformat"
	"github.com/tpailevanian/EE119C/internal/mmap"
)

const (
	numChannels = 4   // ADC channels read out in parallel
	chanAll     = 0xf // all four channels enabled

	fwMajor = 1 // compatible firmware major version

	daqFrameWords = 8          // 32b FIFO words per conversion cycle
	daqFIFODepth  = 1024       // DAQ FIFO capacity, in words
	daqMarker     = 0xafe00000 // FIFO frame marker word
	daqMarkerMask = 0xffffff00 // marker bits; low byte carries frame flags

	maxFramesPerDrain = 256

	szRunHeader = 14 // encoded run header size
	szFrame     = 33 // encoded frame size

	daqBufferSize = szRunHeader + maxFramesPerDrain*szFrame

	nMsgHdr = 8 // data sink message header size
)

// Device controls an AFE readout board: the acquisition core
// synthesized in the FPGA fabric, reached from the HPS through the
// memory-mapped HPS-to-FPGA bridges of /dev/mem.
type Device struct {
	board

	msg *log.Logger
	dir string // output directory for run files
	cfg config

	mem struct {
		name string
		fd   *os.File
		lw   *mmap.Handle
		h2f  *mmap.Handle
	}

	daq struct {
		w   *wbuf
		enc *aformat.Encoder
		sck net.Conn
		f   *os.File

		done chan int

		cycles uint32 // conversion cycles counted by the firmware
		frames uint64 // frames written out
	}
}

// NewDevice creates a new device to control an AFE readout board,
// mapping its registers from the provided memory device file (usually
// /dev/mem) and writing run files under odir.
func NewDevice(fname string, odir string, opts ...Option) (*Device, error) {
	fd, err := os.OpenFile(fname, os.O_RDWR|os.O_SYNC, 0666)
	if err != nil {
		return nil, fmt.Errorf("afe: could not open %q: %w", fname, err)
	}

	dev := &Device{
		msg: log.New(os.Stdout, "afe: ", 0),
		dir: odir,
		cfg: newConfig(),
	}
	dev.board = newBoard(dev.msg)
	dev.mem.name = fname
	dev.mem.fd = fd

	defer func() {
		if err != nil {
			_ = dev.Close()
		}
	}()

	// defaults.
	WithChannelMask(chanAll)(&dev.cfg)
	WithStopTimeout(10 * time.Second)(&dev.cfg)

	for _, opt := range opts {
		opt(&dev.cfg)
	}

	err = dev.mmapLwH2F()
	if err != nil {
		return nil, fmt.Errorf("afe: could not mmap LW-H2F bridge: %w", err)
	}

	err = dev.mmapH2F()
	if err != nil {
		return nil, fmt.Errorf("afe: could not mmap H2F bridge: %w", err)
	}

	return dev, nil
}

func (dev *Device) mmapLwH2F() error {
	h, err := mmap.Map(dev.mem.fd, regs.LW_H2F_BASE, regs.LW_H2F_SPAN)
	if err != nil {
		return fmt.Errorf("afe: could not mmap LW-H2F window: %w", err)
	}
	dev.mem.lw = h
	dev.bindLwH2F(h)
	return nil
}

func (dev *Device) mmapH2F() error {
	h, err := mmap.Map(dev.mem.fd, regs.H2F_BASE, regs.H2F_SPAN)
	if err != nil {
		return fmt.Errorf("afe: could not mmap H2F window: %w", err)
	}
	dev.mem.h2f = h
	dev.bindH2F(h)
	return nil
}

// Initialize resets the acquisition core and brings the board to a
// state where a run can be started.
func (dev *Device) Initialize() error {
	v := dev.version()
	if dev.err != nil {
		return fmt.Errorf("afe: could not read firmware version: %w", dev.err)
	}
	if v>>16 != fwMajor {
		return fmt.Errorf(
			"afe: incompatible firmware version %d.%d.%d (want major=%d)",
			v>>16, (v>>8)&0xff, v&0xff, fwMajor,
		)
	}
	dev.msg.Printf("firmware version: %d.%d.%d", v>>16, (v>>8)&0xff, v&0xff)

	err := dev.coreReset()
	if err != nil {
		return fmt.Errorf("afe: could not initialize board: %w", err)
	}

	// wait for the readout PLL to lock.
	cnt := 0
	max := 100
	for !dev.pllLocked() && cnt < max {
		time.Sleep(10 * time.Millisecond)
		cnt++
	}
	if cnt >= max {
		return fmt.Errorf("afe: readout PLL did not lock (dt=%v)",
			time.Duration(max)*10*time.Millisecond,
		)
	}
	if dev.err != nil {
		return fmt.Errorf("afe: could not initialize board: %w", dev.err)
	}

	err = dev.chanMask(dev.cfg.daq.mask)
	if err != nil {
		return fmt.Errorf("afe: could not initialize board: %w", err)
	}

	return nil
}

func (dev *Device) initRun(run uint32) error {
	if dev.cfg.daq.addr != "" {
		sck, err := net.Dial("tcp", dev.cfg.daq.addr)
		if err != nil {
			return fmt.Errorf("afe: could not dial data sink %q: %w", dev.cfg.daq.addr, err)
		}
		dev.daq.sck = sck
	}

	fname := filepath.Join(dev.dir, fmt.Sprintf("afe_%06d.raw", run))
	f, err := os.Create(fname)
	if err != nil {
		return fmt.Errorf("afe: could not create run file %q: %w", fname, err)
	}
	dev.daq.f = f

	dev.daq.w = &wbuf{p: make([]byte, daqBufferSize)}
	dev.daq.enc = aformat.NewEncoder(dev.daq.w)
	dev.daq.cycles = 0
	dev.daq.frames = 0

	err = dev.daq.enc.EncodeHeader(&aformat.RunHeader{
		Version: aformat.Version,
		Run:     run,
		UTC:     uint32(time.Now().UTC().Unix()),
		Serial:  dev.cfg.daq.serial,
	})
	if err != nil {
		return fmt.Errorf("afe: could not encode run header: %w", err)
	}

	err = daqFlush(dev.daq.w, dev.daq.f, dev.daq.sck)
	if err != nil {
		return fmt.Errorf("afe: could not write run header: %w", err)
	}

	dev.msg.Printf("-----------------RUN NB %d-----------------\n", run)
	return nil
}

// Start starts the acquisition of the provided run: conversion cycles
// are enabled, captured into the DAQ FIFO and drained to the run file
// (and the data sink, if any) by a dedicated run-loop.
func (dev *Device) Start(run uint32) error {
	err := dev.initRun(run)
	if err != nil {
		return fmt.Errorf("afe: could not init run %d: %w", run, err)
	}

	err = dev.cntReset()
	if err != nil {
		return fmt.Errorf("afe: could not start run %d: %w", run, err)
	}

	err = dev.daqFIFOInit()
	if err != nil {
		return fmt.Errorf("afe: could not start run %d: %w", run, err)
	}

	if n := dev.daqFIFODrain(); n != 0 {
		dev.msg.Printf("dropped %d stale FIFO words", n)
	}

	err = dev.fifoEnable()
	if err != nil {
		return fmt.Errorf("afe: could not start run %d: %w", run, err)
	}

	err = dev.runStart()
	if err != nil {
		return fmt.Errorf("afe: could not start run %d: %w", run, err)
	}

	dev.daq.done = make(chan int)
	go dev.loop()

	return nil
}

func (dev *Device) loop() {
	var (
		errorf = func(format string, args ...interface{}) {
			dev.err = fmt.Errorf(format, args...)
			dev.msg.Printf("%+v", dev.err)
		}
	)

	defer func() {
		if dev.daq.sck != nil {
			_ = dev.daq.sck.Close()
		}
		_ = dev.daq.f.Close()
	}()

	for {
		var fr aformat.Frame
		for n := 0; dev.daqFIFOFillLevel() >= daqFrameWords && n < maxFramesPerDrain; n++ {
			err := dev.daqReadFrame(&fr)
			if err != nil {
				errorf("afe: could not read DAQ frame: %+v", err)
				return
			}
			err = dev.daq.enc.Encode(&fr)
			if err != nil {
				errorf("afe: could not encode frame (cycle=%d): %+v", fr.Cycle, err)
				return
			}
			dev.daq.frames++
		}

		err := daqFlush(dev.daq.w, dev.daq.f, dev.daq.sck)
		if err != nil {
			errorf("afe: could not flush readout data: %+v", err)
			return
		}

		select {
		case <-dev.daq.done:
			dev.daq.done <- 1
			return
		default:
		}
	}
}

// daqReadFrame pops one conversion cycle from the DAQ FIFO.
//
// A frame is 8 words: the marker (with the cycle flags in its low
// byte), the cycle counter, the four raw ADC words packed in pairs and
// the four filtered samples, sign-extended to 32b.
func (dev *Device) daqReadFrame(fr *aformat.Frame) error {
	var ws [daqFrameWords]uint32
	for i := range ws {
		ws[i] = dev.regs.fifo.daq.r()
	}
	if dev.err != nil {
		return fmt.Errorf("afe: could not read DAQ FIFO: %w", dev.err)
	}
	if ws[0]&daqMarkerMask != daqMarker {
		return fmt.Errorf("afe: DAQ FIFO desynchronized (marker=0x%08x)", ws[0])
	}

	fr.Cycle = ws[1]
	fr.Flags = uint8(ws[0] & 0xff)
	for i := 0; i < numChannels; i++ {
		fr.Raw[i] = uint16(ws[2+i/2] >> (16 * uint(i%2)))
		fr.Flt[i] = int32(ws[4+i])
	}
	return nil
}

func daqFlush(w *wbuf, f *os.File, sck net.Conn) error {
	defer func() { w.c = 0 }()

	if w.c == 0 {
		return nil
	}

	p := w.p[:w.c]
	_, err := f.Write(p)
	if err != nil {
		return fmt.Errorf("afe: could not write run file: %w", err)
	}

	if sck == nil {
		return nil
	}
	return daqSend(sck, p)
}

// daqSend ships one block of readout data to the data sink: an 8-byte
// header ("HDR\0" followed by the little-endian payload size), the
// payload, and waits for the 4-byte "ACK\0" acknowledgement.
func daqSend(sck net.Conn, p []byte) error {
	var hdr [nMsgHdr]byte
	copy(hdr[:4], "HDR\x00")
	binary.LittleEndian.PutUint32(hdr[4:], uint32(len(p)))

	_, err := sck.Write(hdr[:])
	if err != nil {
		return fmt.Errorf("afe: could not send header to data sink: %w", err)
	}

	_, err = sck.Write(p)
	if err != nil {
		return fmt.Errorf("afe: could not send readout data to data sink: %w", err)
	}

	_, err = io.ReadFull(sck, hdr[:4])
	if err != nil {
		return fmt.Errorf("afe: could not receive data sink ACK: %w", err)
	}
	if string(hdr[:4]) != "ACK\x00" {
		return fmt.Errorf("afe: invalid data sink ACK: %q", hdr[:4])
	}
	return nil
}

// Stop stops the on-going acquisition: the run-loop is drained and
// terminated, the acquisition core disabled and reset.
func (dev *Device) Stop() error {
	tck := time.NewTimer(dev.cfg.daq.timeout)
	defer tck.Stop()

	select {
	case dev.daq.done <- 1:
		<-dev.daq.done
	case <-tck.C:
		return fmt.Errorf("afe: could not stop DAQ run-loop (timeout=%v)", dev.cfg.daq.timeout)
	}

	if dev.err != nil {
		return fmt.Errorf("afe: could not stop run: %w", dev.err)
	}

	dev.daq.cycles = dev.cycles()

	err := dev.runStop()
	if err != nil {
		return err
	}

	err = dev.fifoDisable()
	if err != nil {
		return err
	}

	err = dev.coreReset()
	if err != nil {
		return err
	}

	dev.msg.Printf("run stopped: cycles=%d frames=%d", dev.daq.cycles, dev.daq.frames)
	return nil
}

// Frames returns the number of frames acquired during the last run.
func (dev *Device) Frames() uint64 { return dev.daq.frames }

// Cycles returns the number of conversion cycles counted by the
// firmware during the last run.
func (dev *Device) Cycles() uint32 { return dev.daq.cycles }

// Close closes access to the memory-mapped bridges of the AFE board.
func (dev *Device) Close() error {
	if dev.mem.fd == nil {
		return nil
	}

	var (
		errLw  error
		errH2F error
	)

	if dev.mem.lw != nil {
		errLw = dev.mem.lw.Close()
		dev.mem.lw = nil
	}
	if dev.mem.h2f != nil {
		errH2F = dev.mem.h2f.Close()
		dev.mem.h2f = nil
	}

	errMem := dev.mem.fd.Close()
	dev.mem.fd = nil

	switch {
	case errMem != nil:
		return fmt.Errorf("afe: could not close %q: %w", dev.mem.name, errMem)
	case errLw != nil:
		return fmt.Errorf("afe: could not close LW-H2F bridge: %w", errLw)
	case errH2F != nil:
		return fmt.Errorf("afe: could not close H2F bridge: %w", errH2F)
	}
	return nil
}

// DumpRegisters dumps the registers of the AFE firmware to w.
func (dev *Device) DumpRegisters(w io.Writer) error {
	regs := &dev.regs

	fmt.Fprintf(w, "pio.ctl=         0x%08x\n", regs.pio.ctl.r())
	fmt.Fprintf(w, "pio.state=       0x%08x\n", regs.pio.state.r())
	fmt.Fprintf(w, "pio.status=      0x%08x\n", regs.pio.status.r())
	fmt.Fprintf(w, "pio.cycles=      0x%08x\n", regs.pio.cycles.r())
	for i, reg := range regs.pio.raw {
		fmt.Fprintf(w, "pio.raw[%d]=      0x%08x\n", i, reg.r())
	}
	for i, reg := range regs.pio.flt {
		fmt.Fprintf(w, "pio.flt[%d]=      0x%08x\n", i, reg.r())
	}
	fmt.Fprintf(w, "pio.cnt.sample=  0x%08x\n", regs.pio.cntSample.r())
	fmt.Fprintf(w, "pio.cnt.convert= 0x%08x\n", regs.pio.cntConvert.r())
	fmt.Fprintf(w, "pio.cnt.timeout= 0x%08x\n", regs.pio.cntTimeout.r())
	fmt.Fprintf(w, "pio.version=     0x%08x\n", regs.pio.version.r())
	fmt.Fprintf(w, "fifo.level=      0x%08x\n", dev.daqFIFOFillLevel())

	state := dev.fsmState()
	names := [...]string{
		"sample",
		"convert",
		"clock high",
		"clock low",
		"data ready",
	}
	name := "???"
	if state < uint32(len(names)) {
		name = names[state]
	}
	fmt.Fprintf(w, "acquisition FSM state= %d (%s)\n", state, name)

	return dev.err
}

// DumpCounters dumps the counter spy registers of the AFE firmware
// to w.
func (dev *Device) DumpCounters(w io.Writer) error {
	var (
		buf = bufio.NewWriter(w)
		err error

		printf = func(format string, args ...interface{}) {
			if err != nil {
				return
			}
			_, err = fmt.Fprintf(buf, format, args...)
		}
	)

	printf("<counters>\n")
	printf("#cycles;cnt_sample;cnt_convert;cnt_timeout\n")
	printf("%d;%d;%d;%d\n", dev.cycles(), dev.cntSample(), dev.cntConvert(), dev.cntTimeout())

	if err != nil {
		return fmt.Errorf("afe: could not dump counters: %w", err)
	}

	err = buf.Flush()
	if err != nil {
		return fmt.Errorf("afe: could not flush counters: %w", err)
	}

	if dev.err != nil {
		return fmt.Errorf("afe: could not read counters: %w", dev.err)
	}
	return nil
}

// DumpFIFOStatus dumps the CSR registers of the DAQ FIFO to w.
func (dev *Device) DumpFIFOStatus(w io.Writer) error {
	var (
		buf = bufio.NewWriter(w)
		err error

		printf = func(format string, args ...interface{}) {
			if err != nil {
				return
			}
			_, err = fmt.Fprintf(buf, format, args...)
		}
	)

	fifo := &dev.regs.fifo.daqCSR
	printf("---- DAQ FIFO status ---\n")
	printf("fill level:\t\t%d\n", fifo.r(regs.ALTERA_AVALON_FIFO_LEVEL_REG))
	for _, v := range []struct {
		name string
		reg  int
	}{
		{"istatus", regs.ALTERA_AVALON_FIFO_STATUS_REG},
		{"event  ", regs.ALTERA_AVALON_FIFO_EVENT_REG},
		{"ienable", regs.ALTERA_AVALON_FIFO_IENABLE_REG},
	} {
		reg := fifo.r(v.reg)
		printf("%s:\t full:\t %d\t empty:\t %d\t almost full:\t %d\t almost empty:\t %d\t overflow:\t %d\t underflow:\t %d\n",
			v.name,
			bit32(reg, 0),
			bit32(reg, 1),
			bit32(reg, 2),
			bit32(reg, 3),
			bit32(reg, 4),
			bit32(reg, 5),
		)
	}
	printf("almostfull:\t\t%d\n", fifo.r(regs.ALTERA_AVALON_FIFO_ALMOSTFULL_REG))
	printf("almostempty:\t\t%d\n", fifo.r(regs.ALTERA_AVALON_FIFO_ALMOSTEMPTY_REG))

	if err != nil {
		return fmt.Errorf("afe: could not dump DAQ FIFO status: %w", err)
	}

	err = buf.Flush()
	if err != nil {
		return fmt.Errorf("afe: could not flush DAQ FIFO status: %w", err)
	}
	return nil
}
