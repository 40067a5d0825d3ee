// Copyright 2024 The EE119C Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// afe-dump decodes and displays AFE run files.
//
// Usage: afe-dump [OPTIONS] FILE1 [FILE2 [FILE3 ...]]
//
// Example:
//
//	$> afe-dump ./afe_000042.raw
//	=== AFE run 000042 ===
//	version:          1
//	serial:    0x0000000b
//	date:    2024-06-21 12:00:00 UTC
//	  cycle=        0 flags=0x00 raw=1234 8000 0400 fc00 flt=       4660     -32768       1024      -1024
//	  cycle=        1 flags=0x01 raw=0000 0000 0000 0000 flt=          0          0          0          0
//	[...]
package main

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/tpailevanian/EE119C/internal/aformat"
)

func main() {
	log.SetPrefix("afe-dump: ")
	log.SetFlags(0)

	xmain(os.Stdout, os.Args[1:])
}

func xmain(w io.Writer, args []string) {
	fset := flag.NewFlagSet("afe-dump", flag.ExitOnError)
	bad := fset.Bool("bad", false, "only display frames with a status flag set")

	fset.Usage = func() {
		fmt.Printf(`afe-dump decodes and displays AFE run files.

Usage: afe-dump [OPTIONS] FILE1 [FILE2 [FILE3 ...]]

Example:

 $> afe-dump ./afe_000042.raw
 === AFE run 000042 ===
 version:          1
 serial:    0x0000000b
 date:    2024-06-21 12:00:00 UTC
   cycle=        0 flags=0x00 raw=1234 8000 0400 fc00 flt=       4660     -32768       1024      -1024
   cycle=        1 flags=0x01 raw=0000 0000 0000 0000 flt=          0          0          0          0
 [...]

`)
		fset.PrintDefaults()
	}

	err := fset.Parse(args)
	if err != nil {
		log.Fatalf("could not parse args %q: %+v", args, err)
	}

	if fset.NArg() == 0 {
		fset.Usage()
		log.Fatalf("missing path to input AFE run file")
	}

	for _, fname := range fset.Args() {
		err := process(w, fname, *bad)
		if err != nil {
			log.Fatalf("could not dump file %q: %+v", fname, err)
		}
	}
}

func process(w io.Writer, fname string, bad bool) error {
	wbuf := bufio.NewWriter(w)
	defer wbuf.Flush()

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

	const layout = "2006-01-02 15:04:05 MST"
	fmt.Fprintf(wbuf, "=== AFE run %06d ===\n", hdr.Run)
	fmt.Fprintf(wbuf, "version: % 10d\n", hdr.Version)
	fmt.Fprintf(wbuf, "serial:    0x%08x\n", hdr.Serial)
	fmt.Fprintf(wbuf, "date:    %s\n", time.Unix(int64(hdr.UTC), 0).UTC().Format(layout))

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
		if bad && fr.Flags == 0 {
			continue
		}
		fmt.Fprintf(wbuf, "  cycle=% 9d flags=0x%02x raw=%04x %04x %04x %04x flt=% 11d% 11d% 11d% 11d\n",
			fr.Cycle, fr.Flags,
			fr.Raw[0], fr.Raw[1], fr.Raw[2], fr.Raw[3],
			fr.Flt[0], fr.Flt[1], fr.Flt[2], fr.Flt[3],
		)
	}

	return nil
}
