// Copyright 2024 The EE119C Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command adc-sim is a stand-alone program that runs the cycle-accurate
// simulation of the AFE readout (controller, deserializer and filter
// bank) against a synthetic converter, and writes the resulting run
// file to disk.
package main // import "github.com/tpailevanian/EE119C/cmd/adc-sim"

import (
	"flag"
	"fmt"
	"log"
	"math"
	"math/rand"
	"time"

	"github.com/tpailevanian/EE119C/adc"
	"github.com/tpailevanian/EE119C/afe"
)

func main() {
	var (
		run    = flag.Int("run", 0, "run number to use for data acquisition")
		n      = flag.Int("n", 1000, "number of conversion cycles to simulate")
		odir   = flag.String("o", ".", "output dir")
		src    = flag.String("src", "ramp", "sample source (const, ramp, sine, noise)")
		stall  = flag.Int("stall", 0, "number of conversions the converter skips at start-up")
		seed   = flag.Int64("seed", 1234, "seed for the noise sample source")
		period = flag.Duration("period", 0, "pacing of conversion cycles (0 runs flat out)")
	)

	flag.Parse()

	log.SetPrefix("adc-sim: ")
	log.SetFlags(0)

	err := xmain(*odir, *src, *run, *n, *stall, *seed, *period)
	if err != nil {
		log.Fatalf("%+v", err)
	}
}

func xmain(odir, src string, run, n, stall int, seed int64, period time.Duration) error {
	fct, err := source(src, seed)
	if err != nil {
		return err
	}

	var opts []afe.Option
	if period > 0 {
		opts = append(opts, afe.WithCyclePeriod(period))
	}

	sim, err := afe.NewSim(odir, fct, opts...)
	if err != nil {
		return fmt.Errorf("could not create simulator: %w", err)
	}
	defer sim.Close()

	err = sim.Initialize()
	if err != nil {
		return fmt.Errorf("could not initialize simulator: %w", err)
	}

	if stall > 0 {
		sim.Stall(uint32(stall))
	}

	err = sim.Run(uint32(run), uint32(n))
	if err != nil {
		return fmt.Errorf("could not run acquisition: %w", err)
	}

	log.Printf("run %06d: cycles=%d frames=%d", run, sim.Cycles(), sim.Frames())
	return nil
}

func source(name string, seed int64) (func(cycle uint32) [adc.NumChannels]uint16, error) {
	switch name {
	case "const":
		return adc.Constant([adc.NumChannels]uint16{
			0x1234, 0x8000, 0x0400, 0xfc00,
		}), nil
	case "ramp":
		return func(cycle uint32) [adc.NumChannels]uint16 {
			var vs [adc.NumChannels]uint16
			for i := range vs {
				vs[i] = uint16(cycle + uint32(i)<<12)
			}
			return vs
		}, nil
	case "sine":
		return func(cycle uint32) [adc.NumChannels]uint16 {
			var vs [adc.NumChannels]uint16
			for i := range vs {
				ph := 2 * math.Pi * (float64(cycle)/100 + float64(i)/adc.NumChannels)
				vs[i] = uint16(32768 + 30000*math.Sin(ph))
			}
			return vs
		}, nil
	case "noise":
		rnd := rand.New(rand.NewSource(seed))
		return func(cycle uint32) [adc.NumChannels]uint16 {
			var vs [adc.NumChannels]uint16
			for i := range vs {
				vs[i] = uint16(rnd.Intn(1 << 16))
			}
			return vs
		}, nil
	}
	return nil, fmt.Errorf("unknown sample source %q", name)
}
