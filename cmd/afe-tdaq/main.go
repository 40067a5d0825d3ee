// Copyright 2024 The EE119C Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command afe-tdaq starts a TDAQ server streaming AFE readout frames:
// the cycle-accurate simulation of the acquisition core runs behind
// the usual tdaq state machine and its frames are published on the
// /adc output stream.
package main // import "github.com/tpailevanian/EE119C/cmd/afe-tdaq"

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"log"
	"math"
	"math/rand"
	"os"
	"time"

	"github.com/go-daq/tdaq"
	"github.com/go-daq/tdaq/flags"

	"github.com/tpailevanian/EE119C/adc"
	"github.com/tpailevanian/EE119C/internal/aformat"
)

const maxTicksPerCycle = 1024

func main() {
	var (
		src  = flag.String("src", "sine", "sample source (const, sine, noise)")
		seed = flag.Int64("seed", 1234, "seed for the noise sample source")
	)

	cmd := flags.New()

	dev := server{
		src:  *src,
		seed: *seed,
	}

	srv := tdaq.New(cmd, os.Stdout)
	srv.CmdHandle("/config", dev.OnConfig)
	srv.CmdHandle("/init", dev.OnInit)
	srv.CmdHandle("/reset", dev.OnReset)
	srv.CmdHandle("/start", dev.OnStart)
	srv.CmdHandle("/stop", dev.OnStop)
	srv.CmdHandle("/quit", dev.OnQuit)

	srv.OutputHandle("/adc", dev.adc)

	srv.RunHandle(dev.run)

	err := srv.Run(context.Background())
	if err != nil {
		log.Panicf("error: %+v", err)
	}
}

type server struct {
	src  string
	seed int64

	core  *adc.Core
	model *adc.Model
	clk   bool
	din   [adc.NumChannels]bool

	n    int
	data chan []byte
}

func (dev *server) OnConfig(ctx tdaq.Context, resp *tdaq.Frame, req tdaq.Frame) error {
	ctx.Msg.Debugf("received /config command...")
	return nil
}

func (dev *server) OnInit(ctx tdaq.Context, resp *tdaq.Frame, req tdaq.Frame) error {
	ctx.Msg.Debugf("received /init command...")
	return dev.reset()
}

func (dev *server) OnReset(ctx tdaq.Context, resp *tdaq.Frame, req tdaq.Frame) error {
	ctx.Msg.Debugf("received /reset command...")
	return dev.reset()
}

func (dev *server) reset() error {
	src, err := source(dev.src, dev.seed)
	if err != nil {
		return err
	}

	dev.core = adc.NewCore()
	dev.model = adc.NewModel(src)
	dev.clk = false
	dev.din = [adc.NumChannels]bool{}
	dev.data = make(chan []byte, 1024)
	dev.n = 0

	// flush the power-on reset.
	for i := 0; i < 4; i++ {
		dev.core.Tick(adc.Inputs{})
	}
	return nil
}

func (dev *server) OnStart(ctx tdaq.Context, resp *tdaq.Frame, req tdaq.Frame) error {
	ctx.Msg.Debugf("received /start command...")
	return nil
}

func (dev *server) OnStop(ctx tdaq.Context, resp *tdaq.Frame, req tdaq.Frame) error {
	n := dev.n
	ctx.Msg.Debugf("received /stop command... -> cycles=%d", n)
	return nil
}

func (dev *server) OnQuit(ctx tdaq.Context, resp *tdaq.Frame, req tdaq.Frame) error {
	ctx.Msg.Debugf("received /quit command...")
	return nil
}

func (dev *server) adc(ctx tdaq.Context, dst *tdaq.Frame) error {
	select {
	case <-ctx.Ctx.Done():
		dst.Body = nil
		return nil
	case data := <-dev.data:
		dst.Body = data
	}
	return nil
}

func (dev *server) run(ctx tdaq.Context) error {
	for {
		select {
		case <-ctx.Ctx.Done():
			return nil
		default:
			fr, err := dev.step()
			if err != nil {
				return err
			}
			buf := new(bytes.Buffer)
			err = aformat.NewEncoder(buf).Encode(&fr)
			if err != nil {
				return fmt.Errorf("could not encode frame (cycle=%d): %w", fr.Cycle, err)
			}
			select {
			case dev.data <- buf.Bytes():
				dev.n++
			default:
			}
		}
		time.Sleep(10 * time.Millisecond)
	}
}

// step runs the simulated core and the converter model in lock-step
// for one conversion cycle and assembles its frame.
func (dev *server) step() (aformat.Frame, error) {
	var (
		fr    aformat.Frame
		start = dev.core.Cycles()
	)
	for ticks := 0; dev.core.Cycles() == start; ticks++ {
		if ticks > maxTicksPerCycle {
			return fr, fmt.Errorf("simulated core stuck (cycle=%d)", start)
		}
		out := dev.core.Tick(adc.Inputs{RstN: true, SerialClk: dev.clk, Data: dev.din})
		dev.clk, dev.din = dev.model.Step(out.Trigger, out.SerialClk)
	}

	fr.Cycle = start
	if dev.core.Status() == adc.StatusTimeout {
		fr.Flags |= aformat.FlagTimeout
	}
	fr.Raw = dev.core.LastRaw()
	fr.Flt = dev.core.LastFiltered()
	return fr, nil
}

func source(name string, seed int64) (func(cycle uint32) [adc.NumChannels]uint16, error) {
	switch name {
	case "const":
		return adc.Constant([adc.NumChannels]uint16{
			0x1234, 0x8000, 0x0400, 0xfc00,
		}), nil
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
