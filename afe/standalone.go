// Copyright 2024 The EE119C Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package afe

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

// standalone runs a complete acquisition without a control server:
// the run starts right away and stops on SIGINT or SIGTERM.
type standalone struct {
	dev *Device
	run uint32

	stop chan os.Signal
}

// RunStandalone acquires the provided run on the board mapped from
// devmem, writing its run file under odir, until the process catches
// an interrupt or termination signal.
func RunStandalone(odir, devmem string, run int, opts ...Option) error {
	srv, err := newStandalone(odir, devmem, run, opts...)
	if err != nil {
		return fmt.Errorf("afe: could not create standalone server: %w", err)
	}
	return srv.runDAQ()
}

func newStandalone(odir, devmem string, run int, opts ...Option) (*standalone, error) {
	dev, err := NewDevice(devmem, odir, opts...)
	if err != nil {
		return nil, fmt.Errorf("afe: could not create AFE device: %w", err)
	}

	srv := &standalone{
		dev:  dev,
		run:  uint32(run),
		stop: make(chan os.Signal, 1),
	}
	return srv, nil
}

func (srv *standalone) runDAQ() error {
	dev := srv.dev
	defer dev.Close()

	signal.Notify(srv.stop, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(srv.stop)

	err := dev.Initialize()
	if err != nil {
		return fmt.Errorf("afe: could not initialize AFE board: %w", err)
	}

	err = dev.Start(srv.run)
	if err != nil {
		return fmt.Errorf("afe: could not start run %d: %w", srv.run, err)
	}

	<-srv.stop
	dev.msg.Printf("stopping acquisition...")

	err = dev.Stop()
	if err != nil {
		return fmt.Errorf("afe: could not stop run %d: %w", srv.run, err)
	}

	err = dev.Close()
	if err != nil {
		return fmt.Errorf("afe: could not close AFE device: %w", err)
	}
	return nil
}
