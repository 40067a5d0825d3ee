// Copyright 2024 The EE119C Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/tpailevanian/EE119C/rundb"
)

const (
	dbname = "afedaq"
)

func main() {
	log.SetPrefix("afe-sql: ")
	log.SetFlags(0)

	var (
		serial = flag.Int("serial", 7, "board serial number to inspect")
		nruns  = flag.Int("n", 10, "number of runs to list")
	)

	flag.Parse()

	log.Printf("serial: %03d", *serial)

	db, err := rundb.Open(dbname)
	if err != nil {
		log.Fatalf("could not open AFE run db: %+v", err)
	}
	defer db.Close()

	err = doQuery(db, uint32(*serial), *nruns)
	if err != nil {
		log.Fatalf("could not do query: %+v", err)
	}
}

func doQuery(db *rundb.DB, serial uint32, nruns int) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	last, err := db.LastRun(ctx)
	if err != nil {
		return fmt.Errorf("could not get last run number: %w", err)
	}
	log.Printf("last run: %d", last)

	brd, err := db.BoardInfo(ctx, serial)
	if err != nil {
		return fmt.Errorf("could not get board info (serial=%d): %w", serial, err)
	}
	log.Printf("board: serial=%d mac=%q location=%q firmware=%q",
		brd.Serial, brd.MAC, brd.Location, brd.Firmware,
	)

	runs, err := db.Runs(ctx, nruns)
	if err != nil {
		return fmt.Errorf("could not list last %d runs: %w", nruns, err)
	}
	log.Printf("runs: %d", len(runs))
	for i, run := range runs {
		log.Printf("row[%d]: %#v", i, run)
	}

	{
		rows, err := db.QueryContext(ctx, "SELECT id, cycles, frames FROM runs WHERE board=? AND stopped=0 ORDER BY id", serial)
		if err != nil {
			return fmt.Errorf("could not get open runs: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			var (
				id     uint32
				cycles uint64
				frames uint64
			)
			err = rows.Scan(&id, &cycles, &frames)
			if err != nil {
				return fmt.Errorf("could not scan open run: %w", err)
			}
			log.Printf(">>> run=%06d, cycles=%d, frames=%d", id, cycles, frames)
		}
		if err := rows.Err(); err != nil {
			return fmt.Errorf("could not scan open runs: %w", err)
		}
	}

	return nil
}
