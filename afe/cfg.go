// Copyright 2024 The EE119C Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package afe

import (
	"time"
)

type config struct {
	daq struct {
		addr    string        // TCP address of the data sink, if any
		mask    uint32        // enabled-channel bits (0xf: all four)
		serial  uint32        // board serial number, recorded in run headers
		period  time.Duration // pacing of simulated conversion cycles
		timeout time.Duration // grace delay to stop the run-loop
	}
}

func newConfig() config {
	return config{}
}

// Option allows to customize the device or simulator being created.
type Option func(*config)

// WithDataSink streams acquired frames to the data sink listening on
// the provided TCP address, besides writing them to the run file.
func WithDataSink(addr string) Option {
	return func(cfg *config) {
		cfg.daq.addr = addr
	}
}

// WithChannelMask enables the capture of the ADC channels whose bit is
// set in mask.
func WithChannelMask(mask uint32) Option {
	return func(cfg *config) {
		cfg.daq.mask = mask & chanAll
	}
}

// WithSerial records the provided board serial number in run headers.
func WithSerial(serial uint32) Option {
	return func(cfg *config) {
		cfg.daq.serial = serial
	}
}

// WithCyclePeriod paces simulated conversion cycles, one every d.
// The zero duration lets the simulator free-run.
func WithCyclePeriod(d time.Duration) Option {
	return func(cfg *config) {
		cfg.daq.period = d
	}
}

// WithStopTimeout sets the grace delay to wait for the run-loop to
// acknowledge a stop request.
func WithStopTimeout(d time.Duration) Option {
	return func(cfg *config) {
		cfg.daq.timeout = d
	}
}
