// Copyright 2024 The EE119C Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command adc-filter runs the AFE filter pipeline offline: it reads a
// CSV file of raw 16-bit samples (one column per channel), pushes each
// channel through its own filter and writes the filtered samples out
// as CSV.
package main // import "github.com/tpailevanian/EE119C/cmd/adc-filter"

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log"

	"go-hep.org/x/hep/csvutil"
	"golang.org/x/sync/errgroup"

	"github.com/tpailevanian/EE119C/fir"
)

func main() {
	var (
		iname = flag.String("i", "input.csv", "path to input CSV file of raw samples")
		oname = flag.String("o", "output.csv", "path to output CSV file of filtered samples")
	)

	flag.Parse()

	log.SetPrefix("adc-filter: ")
	log.SetFlags(0)

	err := xmain(*iname, *oname)
	if err != nil {
		log.Fatalf("%+v", err)
	}
}

func xmain(iname, oname string) error {
	cols, err := readCSV(iname)
	if err != nil {
		return fmt.Errorf("could not read raw samples: %w", err)
	}

	flts, err := filterAll(cols)
	if err != nil {
		return err
	}

	err = writeCSV(oname, flts)
	if err != nil {
		return fmt.Errorf("could not write filtered samples: %w", err)
	}

	log.Printf("filtered %d samples x %d channels", len(cols[0]), len(cols))
	return nil
}

func readCSV(fname string) ([fir.NumChannels][]uint16, error) {
	var cols [fir.NumChannels][]uint16

	tbl, err := csvutil.Open(fname)
	if err != nil {
		return cols, fmt.Errorf("could not open %q: %w", fname, err)
	}
	defer tbl.Close()
	tbl.Reader.Comma = ';'
	tbl.Reader.Comment = '#'

	rows, err := tbl.ReadRows(0, -1)
	if err != nil {
		return cols, fmt.Errorf("could not read rows from %q: %w", fname, err)
	}
	defer rows.Close()

	irow := 0
	for rows.Next() {
		var data struct {
			Ch0, Ch1, Ch2, Ch3 uint16
		}
		err = rows.Scan(&data)
		if err != nil {
			return cols, fmt.Errorf("could not scan row %d of %q: %w", irow, fname, err)
		}
		cols[0] = append(cols[0], data.Ch0)
		cols[1] = append(cols[1], data.Ch1)
		cols[2] = append(cols[2], data.Ch2)
		cols[3] = append(cols[3], data.Ch3)
		irow++
	}
	err = rows.Err()
	if err != nil && !errors.Is(err, io.EOF) {
		return cols, fmt.Errorf("could not iterate over %q: %w", fname, err)
	}

	return cols, nil
}

// filterAll runs the four channels in parallel, one filter pipeline
// per goroutine. Channels never share data, only the reset line, so
// the offline pipelines are fully independent.
func filterAll(cols [fir.NumChannels][]uint16) ([fir.NumChannels][]int32, error) {
	var (
		out [fir.NumChannels][]int32
		grp errgroup.Group
	)
	for i := range cols {
		i := i
		grp.Go(func() error {
			out[i] = filter(cols[i])
			return nil
		})
	}
	if err := grp.Wait(); err != nil {
		return out, fmt.Errorf("could not filter samples: %w", err)
	}
	return out, nil
}

// filter pushes raws through one filter channel and returns the
// filter output after each sample.
//
// Each sample is presented for two filter ticks with the data-ready
// flag raised and two with it lowered: the two-stage synchronizers
// then observe exactly one rising edge, inserting the sample once,
// and the trailing ticks restore the edge detector for the next
// sample.
func filter(raws []uint16) []int32 {
	var (
		ch  fir.Channel
		out = make([]int32, len(raws))
	)
	for i, raw := range raws {
		ch.Tick(true, raw, true)
		ch.Tick(true, raw, true)
		ch.Tick(true, raw, false)
		out[i] = ch.Tick(true, raw, false)
	}
	return out
}

func writeCSV(fname string, cols [fir.NumChannels][]int32) error {
	tbl, err := csvutil.Create(fname)
	if err != nil {
		return fmt.Errorf("could not create %q: %w", fname, err)
	}
	defer tbl.Close()
	tbl.Writer.Comma = ';'

	err = tbl.WriteHeader("## filtered samples, one column per channel\n")
	if err != nil {
		return fmt.Errorf("could not write header to %q: %w", fname, err)
	}

	for i := range cols[0] {
		err = tbl.WriteRow(cols[0][i], cols[1][i], cols[2][i], cols[3][i])
		if err != nil {
			return fmt.Errorf("could not write row %d to %q: %w", i, fname, err)
		}
	}

	return tbl.Close()
}
