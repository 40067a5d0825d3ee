// Copyright 2024 The EE119C Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command afe-env monitors the environment of an AFE board during long
// runs: the LM75 temperature sensor and the INA219 supply monitor on
// the board's SMBus, appended to a CSV file on a fixed period.
package main // import "github.com/tpailevanian/EE119C/cmd/afe-env"

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/go-daq/smbus"
	"go-hep.org/x/hep/csvutil"
)

// LM75 (9-bit) and INA219 registers. Both devices transfer registers
// MSB first while SMBus words are LSB first, hence the swaps.
const (
	lm75RegTemp = 0x00
	lm75RegConf = 0x01

	ina219RegConf = 0x00
	ina219RegBus  = 0x02

	ina219Conf = 0x399f // power-on default: 32V range, 12-bit, continuous
)

func main() {
	var (
		bus  = flag.Int("bus", 1, "SMBus bus id")
		tmp  = flag.Int("addr-temp", 0x48, "SMBus address of the LM75 sensor")
		mon  = flag.Int("addr-mon", 0x40, "SMBus address of the INA219 monitor")
		freq = flag.Duration("freq", 30*time.Second, "monitoring period")
		n    = flag.Int("n", 0, "number of readings (0: no limit)")
		out  = flag.String("o", "afe-env.csv", "path to output CSV file")
	)

	flag.Parse()

	log.SetPrefix("afe-env: ")
	log.SetFlags(0)

	err := xmain(*bus, uint8(*tmp), uint8(*mon), *freq, *n, *out)
	if err != nil {
		log.Fatalf("%+v", err)
	}
}

func xmain(bus int, tmp, mon uint8, freq time.Duration, n int, oname string) error {
	conn, err := smbus.Open(bus, tmp)
	if err != nil {
		return fmt.Errorf("could not open SMBus %d: %w", bus, err)
	}
	defer conn.Close()

	env := &sensors{bus: conn, tmp: tmp, mon: mon}
	err = env.init()
	if err != nil {
		return fmt.Errorf("could not configure sensors: %w", err)
	}

	return monitor(env, freq, n, oname)
}

// wbus is the subset of the SMBus connection the sensors need.
type wbus interface {
	ReadWord(addr, reg uint8) (uint16, error)
	WriteReg(addr, reg uint8, v uint8) error
	WriteWord(addr, reg uint8, v uint16) error
}

type sensors struct {
	bus wbus
	tmp uint8 // LM75 address
	mon uint8 // INA219 address
}

func (env *sensors) init() error {
	err := env.bus.WriteReg(env.tmp, lm75RegConf, 0x00)
	if err != nil {
		return fmt.Errorf("could not wake up LM75: %w", err)
	}

	err = env.bus.WriteWord(env.mon, ina219RegConf, swap(ina219Conf))
	if err != nil {
		return fmt.Errorf("could not configure INA219: %w", err)
	}
	return nil
}

// temp returns the board temperature, in Celsius.
func (env *sensors) temp() (float64, error) {
	v, err := env.bus.ReadWord(env.tmp, lm75RegTemp)
	if err != nil {
		return 0, fmt.Errorf("could not read LM75 temperature: %w", err)
	}
	return float64(int16(swap(v))>>7) * 0.5, nil
}

// volt returns the analog supply voltage, in Volts.
func (env *sensors) volt() (float64, error) {
	v, err := env.bus.ReadWord(env.mon, ina219RegBus)
	if err != nil {
		return 0, fmt.Errorf("could not read INA219 bus voltage: %w", err)
	}
	return float64(swap(v)>>3) * 4e-3, nil
}

func swap(v uint16) uint16 { return v<<8 | v>>8 }

func monitor(env *sensors, freq time.Duration, n int, oname string) error {
	tbl, err := table(oname)
	if err != nil {
		return err
	}
	defer tbl.Close()

	tick := time.NewTicker(freq)
	defer tick.Stop()

	for i := 0; n == 0 || i < n; i++ {
		t, err := env.temp()
		if err != nil {
			return err
		}
		v, err := env.volt()
		if err != nil {
			return err
		}

		log.Printf("temp=%5.1f C vdd=%5.3f V", t, v)
		err = tbl.WriteRow(time.Now().Unix(), t, v)
		if err != nil {
			return fmt.Errorf("could not write reading to %q: %w", oname, err)
		}
		tbl.Writer.Flush()

		if n == 0 || i < n-1 {
			<-tick.C
		}
	}

	return tbl.Close()
}

// table opens the output CSV file, creating it with its header when it
// does not exist yet and appending to it otherwise.
func table(oname string) (*csvutil.Table, error) {
	_, err := os.Stat(oname)
	if os.IsNotExist(err) {
		tbl, err := csvutil.Create(oname)
		if err != nil {
			return nil, fmt.Errorf("could not create %q: %w", oname, err)
		}
		tbl.Writer.Comma = ';'
		err = tbl.WriteHeader("## utc;temp (C);vdd (V)\n")
		if err != nil {
			return nil, fmt.Errorf("could not write header to %q: %w", oname, err)
		}
		return tbl, nil
	}

	tbl, err := csvutil.Append(oname)
	if err != nil {
		return nil, fmt.Errorf("could not append to %q: %w", oname, err)
	}
	tbl.Writer.Comma = ';'
	return tbl, nil
}
