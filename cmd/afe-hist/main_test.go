// Copyright 2024 The EE119C Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"go-hep.org/x/hep/hbook/yodacnv"

	"github.com/tpailevanian/EE119C/internal/aformat"
)

func TestHistos(t *testing.T) {
	tmp, err := os.MkdirTemp("", "afe-hist-")
	if err != nil {
		t.Fatalf("could not create tmp dir: %+v", err)
	}
	defer os.RemoveAll(tmp)

	fname := filepath.Join(tmp, "afe_000042.raw")
	f, err := os.Create(fname)
	if err != nil {
		t.Fatalf("could not create run file: %+v", err)
	}
	defer f.Close()

	enc := aformat.NewEncoder(f)
	err = enc.EncodeHeader(&aformat.RunHeader{
		Version: aformat.Version,
		Run:     42,
		UTC:     1718971200,
		Serial:  7,
	})
	if err != nil {
		t.Fatalf("could not encode run header: %+v", err)
	}

	const nframes = 10
	for i := 0; i < nframes; i++ {
		err = enc.Encode(&aformat.Frame{
			Cycle: uint32(i),
			Raw:   [4]uint16{0x1234, 0x8000, 0x0400, 0xfc00},
			Flt:   [4]int32{4660, -32768, 1024, -1024},
		})
		if err != nil {
			t.Fatalf("could not encode frame %d: %+v", i, err)
		}
	}
	// a timeout frame: not histogrammed.
	err = enc.Encode(&aformat.Frame{
		Cycle: nframes,
		Flags: aformat.FlagTimeout,
	})
	if err != nil {
		t.Fatalf("could not encode timeout frame: %+v", err)
	}
	err = f.Close()
	if err != nil {
		t.Fatalf("could not close run file: %+v", err)
	}

	hs := newHistos()
	err = hs.fill(fname)
	if err != nil {
		t.Fatalf("could not fill histograms: %+v", err)
	}

	if got, want := hs.bad, 1; got != want {
		t.Fatalf("invalid number of flagged frames: got=%d, want=%d", got, want)
	}

	for i, want := range []float64{4660, -32768, 1024, -1024} {
		if got, want := hs.raw[i].Entries(), int64(nframes); got != want {
			t.Fatalf("chan %d: invalid raw entries: got=%d, want=%d", i, got, want)
		}
		if got := hs.raw[i].XMean(); math.Abs(got-want) > 1e-9 {
			t.Fatalf("chan %d: invalid raw mean: got=%v, want=%v", i, got, want)
		}
		if got := hs.flt[i].XMean(); math.Abs(got-want) > 1e-9 {
			t.Fatalf("chan %d: invalid flt mean: got=%v, want=%v", i, got, want)
		}
	}

	oname := filepath.Join(tmp, "afe-hist.yoda")
	err = hs.write(oname)
	if err != nil {
		t.Fatalf("could not write histograms: %+v", err)
	}

	o, err := os.Open(oname)
	if err != nil {
		t.Fatalf("could not open YODA file: %+v", err)
	}
	defer o.Close()

	grids, err := yodacnv.Read(o)
	if err != nil {
		t.Fatalf("could not read back YODA file: %+v", err)
	}
	if got, want := len(grids), 8; got != want {
		t.Fatalf("invalid number of histograms: got=%d, want=%d", got, want)
	}
}
