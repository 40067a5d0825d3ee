// Copyright 2024 The EE119C Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command afe-daq drives the AFE data acquisition in stand-alone mode,
// with optional bookkeeping in the run database.
package main // import "github.com/tpailevanian/EE119C/cmd/afe-daq"

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tpailevanian/EE119C/afe"
	"github.com/tpailevanian/EE119C/rundb"
)

func main() {
	var (
		runnbr = flag.Int("run", -1, "run number (-1: allocate from the run database)")
		serial = flag.Int("serial", 0, "board serial number")
		mask   = flag.Int("mask", 0xf, "channel enable mask")
		sink   = flag.String("sink-addr", "", "data sink [address]:port to dial")
		dbname = flag.String("db", "", "name of the run database (empty: no bookkeeping)")
		odir   = flag.String("o", "/home/root/run", "output dir")
		devmem = flag.String("dev-mem", "/dev/mem", "")
	)

	log.SetPrefix("afe-daq: ")
	log.SetFlags(0)

	flag.Parse()

	log.Printf("run=%d serial=%d mask=0x%x", *runnbr, *serial, *mask)

	switch {
	case *serial < 0:
		log.Fatalf("invalid board serial number")
	case *mask <= 0:
		log.Fatalf("invalid channel enable mask")
	}

	err := run(
		*runnbr, uint32(*serial), uint32(*mask),
		*sink, *dbname, *odir, *devmem,
	)
	if err != nil {
		log.Fatalf("could not run afe-daq: %+v", err)
	}
}

func run(runnbr int, serial, mask uint32, sinkAddr, dbname, odir, devmem string) error {
	ctx := context.Background()

	var (
		db  *rundb.DB
		err error
	)
	if dbname != "" {
		db, err = rundb.Open(dbname)
		if err != nil {
			return fmt.Errorf("could not open run database: %w", err)
		}
		defer db.Close()
	}

	if runnbr < 0 {
		if db == nil {
			return fmt.Errorf("invalid run number value")
		}
		last, err := db.LastRun(ctx)
		if err != nil {
			return fmt.Errorf("could not fetch last run number: %w", err)
		}
		runnbr = int(last + 1)
		log.Printf("allocated run number %d", runnbr)
	}

	opts := []afe.Option{
		afe.WithChannelMask(mask),
		afe.WithSerial(serial),
	}
	if sinkAddr != "" {
		opts = append(opts, afe.WithDataSink(sinkAddr))
	}

	dev, err := afe.NewDevice(devmem, odir, opts...)
	if err != nil {
		return fmt.Errorf("could not open AFE device: %w", err)
	}
	defer dev.Close()

	err = dev.Initialize()
	if err != nil {
		return fmt.Errorf("could not initialize AFE device: %w", err)
	}

	rec := rundb.Run{
		ID:      uint32(runnbr),
		Board:   serial,
		Started: time.Now().Unix(),
		File:    fmt.Sprintf("afe_%06d.raw", runnbr),
	}
	if db != nil {
		err = db.NewRun(ctx, &rec)
		if err != nil {
			return fmt.Errorf("could not record run %d: %w", runnbr, err)
		}
	}

	err = dev.Start(uint32(runnbr))
	if err != nil {
		return fmt.Errorf("could not start run %d: %w", runnbr, err)
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit
	log.Printf("stopping acquisition...")

	err = dev.Stop()
	if err != nil {
		return fmt.Errorf("could not stop run %d: %w", runnbr, err)
	}

	if db != nil {
		rec.Stopped = time.Now().Unix()
		rec.Cycles = uint64(dev.Cycles())
		rec.Frames = dev.Frames()
		err = db.CloseRun(ctx, &rec)
		if err != nil {
			return fmt.Errorf("could not close run %d record: %w", runnbr, err)
		}
	}

	return nil
}
