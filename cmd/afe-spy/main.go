// Copyright 2024 The EE119C Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command afe-spy spies the content of the AFE readout registers.
package main // import "github.com/tpailevanian/EE119C/cmd/afe-spy"

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/tpailevanian/EE119C/afe"
)

func main() {
	var (
		devmem = flag.String("dev-mem", "/dev/mem", "")
		fifo   = flag.Bool("fifo", false, "dump the DAQ FIFO status registers")
	)

	log.SetPrefix("afe-spy: ")
	log.SetFlags(0)

	flag.Parse()

	dev, err := afe.NewDevice(*devmem, "")
	if err != nil {
		log.Fatalf("could open device: %+v", err)
	}
	defer dev.Close()

	fmt.Printf("------------------------------------------------\n")
	const layout = "2006-01-02 15:04:05 MST"
	fmt.Printf("%v\n", time.Now().Format(layout))

	err = dev.DumpRegisters(os.Stdout)
	if err != nil {
		log.Fatalf("could not dump registers: %+v", err)
	}

	err = dev.DumpCounters(os.Stdout)
	if err != nil {
		log.Fatalf("could not dump counters: %+v", err)
	}

	if *fifo {
		err = dev.DumpFIFOStatus(os.Stdout)
		if err != nil {
			log.Fatalf("could not dump FIFO status: %+v", err)
		}
	}
}
