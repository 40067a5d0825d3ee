// Copyright 2024 The EE119C Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package rundb holds types to describe the run bookkeeping database
// for AFE data acquisition.
package rundb // import "github.com/tpailevanian/EE119C/rundb"

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
)

const (
	host = "localhost"
)

var (
	usr = "username"
	pwd = "s3cr3t"

	drvName = "mysql"
)

// Run describes a single data-taking run of an AFE board.
type Run struct {
	ID      uint32 // run number
	Board   uint32 // board serial number
	Started int64  // start time (seconds since Unix epoch)
	Stopped int64  // stop time (seconds since Unix epoch), 0 while running
	Cycles  uint64 // conversion cycles acquired
	Frames  uint64 // frames written out
	File    string // raw output file
	Comment string
}

// Board describes an AFE board known to the run database.
type Board struct {
	Serial   uint32 // board serial number
	MAC      string // MAC address of the SoC
	Location string // installation location
	Firmware string // firmware version string
}

// DB exposes convenience methods to record and retrieve runs of the
// AFE data acquisition.
type DB struct {
	db   *sql.DB
	name string // name of the run database
}

// Open opens a connection to the run database dbname.
func Open(dbname string) (*DB, error) {
	db, err := sql.Open(drvName, dsn(dbname))
	if err != nil {
		return nil, fmt.Errorf("rundb: could not open %q db: %w", dbname, err)
	}

	err = ping(db, dbname)
	if err != nil {
		return nil, fmt.Errorf("rundb: could not ping %q db: %w", dbname, err)
	}

	return &DB{db: db, name: dbname}, nil
}

func dsn(db string) string {
	return fmt.Sprintf("%s:%s@tcp(%s)/%s", usr, pwd, host, db)
}

func ping(db *sql.DB, dbname string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := db.PingContext(ctx)
	if err != nil {
		return fmt.Errorf("rundb: could not ping %q db: %w", dbname, err)
	}

	return nil
}

func (db *DB) Close() error {
	return db.db.Close()
}

func (db *DB) QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error) {
	return db.db.QueryContext(ctx, query, args...)
}

// LastRun returns the number of the most recent run on record.
func (db *DB) LastRun(ctx context.Context) (uint32, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var run uint32
	rows, err := db.db.QueryContext(
		ctx,
		"SELECT id FROM runs ORDER BY id DESC LIMIT 1",
	)
	if err != nil {
		return run, fmt.Errorf("rundb: could not query last run: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		err = rows.Scan(&run)
		if err != nil {
			return run, fmt.Errorf("rundb: could not get last run value: %w", err)
		}
	}

	if err := rows.Err(); err != nil {
		return run, fmt.Errorf("rundb: could not scan db for last run: %w", err)
	}

	if err := ctx.Err(); err != nil {
		return run, fmt.Errorf("rundb: context error while retrieving last run: %w", err)
	}

	return run, nil
}

// NewRun records the start of run r.
func (db *DB) NewRun(ctx context.Context, r *Run) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	_, err := db.db.ExecContext(
		ctx,
		"INSERT INTO runs (id, board, started, file, comment) VALUES (?, ?, ?, ?, ?)",
		r.ID, r.Board, r.Started, r.File, r.Comment,
	)
	if err != nil {
		return fmt.Errorf("rundb: could not insert run %d: %w", r.ID, err)
	}

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("rundb: context error while recording run %d: %w", r.ID, err)
	}

	return nil
}

// CloseRun records the end of run r, together with its final cycle
// and frame counts.
func (db *DB) CloseRun(ctx context.Context, r *Run) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	_, err := db.db.ExecContext(
		ctx,
		"UPDATE runs SET stopped=?, cycles=?, frames=? WHERE id=?",
		r.Stopped, r.Cycles, r.Frames, r.ID,
	)
	if err != nil {
		return fmt.Errorf("rundb: could not close run %d: %w", r.ID, err)
	}

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("rundb: context error while closing run %d: %w", r.ID, err)
	}

	return nil
}

// Runs returns the n most recent runs on record, newest first.
func (db *DB) Runs(ctx context.Context, n int) ([]Run, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var runs []Run
	rows, err := db.db.QueryContext(
		ctx,
		"SELECT id, board, started, stopped, cycles, frames, file, comment FROM runs ORDER BY id DESC LIMIT ?",
		n,
	)
	if err != nil {
		return runs, fmt.Errorf("rundb: could not query runs: %w", err)
	}
	defer rows.Close()

	i := 0
	for rows.Next() {
		var run Run
		err = rows.Scan(
			&run.ID, &run.Board,
			&run.Started, &run.Stopped,
			&run.Cycles, &run.Frames,
			&run.File, &run.Comment,
		)
		if err != nil {
			return runs, fmt.Errorf("rundb: could not scan row %d for runs: %w", i, err)
		}
		i++

		runs = append(runs, run)
	}

	if err := rows.Err(); err != nil {
		return runs, fmt.Errorf("rundb: could not scan db for runs: %w", err)
	}

	if err := ctx.Err(); err != nil {
		return runs, fmt.Errorf("rundb: context error while retrieving runs: %w", err)
	}

	return runs, nil
}

// BoardInfo returns the board with the given serial number.
func (db *DB) BoardInfo(ctx context.Context, serial uint32) (Board, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var brd Board
	rows, err := db.db.QueryContext(
		ctx,
		"SELECT serial, mac, location, firmware FROM boards WHERE serial=? LIMIT 1",
		serial,
	)
	if err != nil {
		return brd, fmt.Errorf("rundb: could not query board %d: %w", serial, err)
	}
	defer rows.Close()

	for rows.Next() {
		err = rows.Scan(&brd.Serial, &brd.MAC, &brd.Location, &brd.Firmware)
		if err != nil {
			return brd, fmt.Errorf("rundb: could not get board %d value: %w", serial, err)
		}
	}

	if err := rows.Err(); err != nil {
		return brd, fmt.Errorf("rundb: could not scan db for board %d: %w", serial, err)
	}

	if err := ctx.Err(); err != nil {
		return brd, fmt.Errorf("rundb: context error while retrieving board %d: %w", serial, err)
	}

	return brd, nil
}
