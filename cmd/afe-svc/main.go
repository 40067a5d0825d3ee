// Copyright 2024 The EE119C Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command afe-svc runs the AFE readout control service on the SoC.
package main // import "github.com/tpailevanian/EE119C/cmd/afe-svc"

import (
	"flag"
	"log"

	"github.com/tpailevanian/EE119C/afe"
)

func main() {
	var (
		addr = flag.String("addr", ":9999", "afe-svc [addr]:port")
		odir = flag.String("o", "/home/root/run", "output dir")

		devmem = flag.String("dev-mem", "/dev/mem", "")
	)

	log.SetPrefix("afe-svc: ")
	log.SetFlags(0)

	flag.Parse()

	err := afe.Serve(*addr, *odir, *devmem)
	if err != nil {
		log.Fatalf("could not create afe-svc service: %+v", err)
	}
}
