// Copyright 2024 The EE119C Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command afe-hist histograms the raw and filtered samples of AFE run
// files, prints per-channel statistics and saves the histograms to a
// YODA file.
package main // import "github.com/tpailevanian/EE119C/cmd/afe-hist"

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"go-hep.org/x/hep/hbook"
	"go-hep.org/x/hep/hbook/yodacnv"

	"github.com/tpailevanian/EE119C/internal/aformat"
)

const numChannels = 4

func main() {
	log.SetPrefix("afe-hist: ")
	log.SetFlags(0)

	oname := flag.String("o", "afe-hist.yoda", "path to output YODA file")

	flag.Parse()

	if flag.NArg() == 0 {
		flag.Usage()
		log.Fatalf("missing path to input AFE run file")
	}

	err := xmain(*oname, flag.Args())
	if err != nil {
		log.Fatalf("%+v", err)
	}
}

func xmain(oname string, fnames []string) error {
	hs := newHistos()
	for _, fname := range fnames {
		err := hs.fill(fname)
		if err != nil {
			return fmt.Errorf("could not histogram %q: %w", fname, err)
		}
	}

	hs.summary()

	err := hs.write(oname)
	if err != nil {
		return fmt.Errorf("could not write %q: %w", oname, err)
	}
	return nil
}

// histos holds one histogram of the raw words and one of the filter
// outputs per channel. Frames with a status flag set are counted and
// left out: their samples are indeterminate.
type histos struct {
	raw [numChannels]*hbook.H1D
	flt [numChannels]*hbook.H1D
	bad int
}

func newHistos() *histos {
	hs := &histos{}
	for i := range hs.raw {
		hs.raw[i] = hbook.NewH1D(128, -32768, 32768)
		hs.raw[i].Annotation()["name"] = fmt.Sprintf("/afe/raw%d", i)

		hs.flt[i] = hbook.NewH1D(128, -131072, 131072)
		hs.flt[i].Annotation()["name"] = fmt.Sprintf("/afe/flt%d", i)
	}
	return hs
}

func (hs *histos) fill(fname string) error {
	f, err := os.Open(fname)
	if err != nil {
		return fmt.Errorf("could not open %q: %w", fname, err)
	}
	defer f.Close()

	dec := aformat.NewDecoder(f)

	var hdr aformat.RunHeader
	err = dec.DecodeHeader(&hdr)
	if err != nil {
		return fmt.Errorf("could not decode run header: %w", err)
	}
	log.Printf("run %06d (serial=0x%08x)", hdr.Run, hdr.Serial)

loop:
	for {
		var fr aformat.Frame
		err := dec.Decode(&fr)
		if err != nil {
			if errors.Is(err, io.EOF) {
				break loop
			}
			return fmt.Errorf("could not decode frame: %w", err)
		}
		if fr.Flags != 0 {
			hs.bad++
			continue
		}
		for i := 0; i < numChannels; i++ {
			hs.raw[i].Fill(float64(int16(fr.Raw[i])), 1)
			hs.flt[i].Fill(float64(fr.Flt[i]), 1)
		}
	}

	return nil
}

func (hs *histos) summary() {
	for i := 0; i < numChannels; i++ {
		log.Printf("chan %d: raw: entries=%d mean=%+8.3f rms=%8.3f",
			i, hs.raw[i].Entries(), hs.raw[i].XMean(), hs.raw[i].XRMS(),
		)
		log.Printf("chan %d: flt: entries=%d mean=%+8.3f rms=%8.3f",
			i, hs.flt[i].Entries(), hs.flt[i].XMean(), hs.flt[i].XRMS(),
		)
	}
	if hs.bad != 0 {
		log.Printf("frames with status flags: %d (not histogrammed)", hs.bad)
	}
}

func (hs *histos) write(oname string) error {
	f, err := os.Create(oname)
	if err != nil {
		return fmt.Errorf("could not create output file: %w", err)
	}
	defer f.Close()

	grids := make([]yodacnv.Marshaler, 0, 2*numChannels)
	for i := 0; i < numChannels; i++ {
		grids = append(grids, hs.raw[i])
	}
	for i := 0; i < numChannels; i++ {
		grids = append(grids, hs.flt[i])
	}

	err = yodacnv.Write(f, grids...)
	if err != nil {
		return fmt.Errorf("could not marshal histograms: %w", err)
	}

	return f.Close()
}
