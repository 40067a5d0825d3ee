// Copyright 2024 The EE119C Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package afe

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"os"
	"strconv"
	"strings"
)

// server implements the AFE data acquisition control protocol: JSON
// commands over TCP, one reply per command.
type server struct {
	ctl net.Listener
	msg *log.Logger

	odir   string // output directory for run files
	devmem string // memory device file to map the board from

	newDevice func(devmem, odir string, opts ...Option) (device, error)
	opts      []Option

	dev device
}

// Serve runs an AFE data acquisition server, listening for control
// commands on addr, driving the board mapped from devmem and writing
// run files under odir.
func Serve(addr, odir, devmem string, opts ...Option) error {
	srv, err := newServer(addr, odir, devmem, opts...)
	if err != nil {
		return fmt.Errorf("afe: could not create AFE server: %w", err)
	}
	return srv.serve()
}

func newServer(addr, odir, devmem string, opts ...Option) (*server, error) {
	ctl, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("afe: could not listen on %q: %w", addr, err)
	}

	srv := &server{
		ctl:    ctl,
		msg:    log.New(os.Stdout, "afe-srv: ", 0),
		odir:   odir,
		devmem: devmem,
		newDevice: func(devmem, odir string, opts ...Option) (device, error) {
			return NewDevice(devmem, odir, opts...)
		},
		opts: opts,
	}
	return srv, nil
}

func (srv *server) serve() error {
	defer srv.close()

	for {
		conn, err := srv.ctl.Accept()
		if err != nil {
			return fmt.Errorf("afe: could not accept connection: %w", err)
		}
		srv.handle(conn)
	}
}

func (srv *server) handle(conn net.Conn) {
	defer conn.Close()

	dec := json.NewDecoder(conn)

loop:
	for {
		var req struct {
			Name string           `json:"name"`
			Args *json.RawMessage `json:"args"`
		}

		err := dec.Decode(&req)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return
			}
			srv.msg.Printf("could not decode command: %+v", err)
			srv.reply(conn, fmt.Errorf("could not decode command: %w", err))
			return
		}

		srv.msg.Printf("received command %q", req.Name)
		switch strings.ToLower(req.Name) {
		case "initialize":
			err = srv.cmdInitialize()
			srv.reply(conn, err)

		case "start":
			err = srv.cmdStart(req.Args)
			srv.reply(conn, err)

		case "stop":
			err = srv.cmdStop()
			srv.reply(conn, err)
			break loop

		case "dump-registers":
			o := new(strings.Builder)
			err = srv.cmdDumpRegisters(o)
			switch {
			case err != nil:
				srv.reply(conn, err)
			default:
				srv.replyMsg(conn, o.String())
			}

		default:
			err = fmt.Errorf("unknown command %q", req.Name)
			srv.msg.Printf("%+v", err)
			srv.reply(conn, err)
		}
	}
}

func (srv *server) cmdInitialize() error {
	if srv.dev != nil {
		_ = srv.dev.Close()
		srv.dev = nil
	}

	dev, err := srv.newDevice(srv.devmem, srv.odir, srv.opts...)
	if err != nil {
		return fmt.Errorf("could not create AFE device: %w", err)
	}

	err = dev.Initialize()
	if err != nil {
		_ = dev.Close()
		return fmt.Errorf("could not initialize AFE device: %w", err)
	}

	srv.dev = dev
	return nil
}

func (srv *server) cmdStart(args *json.RawMessage) error {
	if srv.dev == nil {
		return fmt.Errorf("device not initialized")
	}

	var vs []string
	if args != nil {
		err := json.Unmarshal(*args, &vs)
		if err != nil {
			return fmt.Errorf("could not decode start args: %w", err)
		}
	}
	if len(vs) != 1 {
		return fmt.Errorf("invalid number of start args (got=%d, want=1)", len(vs))
	}

	run, err := strconv.Atoi(vs[0])
	if err != nil {
		return fmt.Errorf("could not parse run number %q: %w", vs[0], err)
	}

	err = srv.dev.Start(uint32(run))
	if err != nil {
		return fmt.Errorf("could not start run %d: %w", run, err)
	}
	return nil
}

func (srv *server) cmdStop() error {
	if srv.dev == nil {
		return fmt.Errorf("device not initialized")
	}

	err := srv.dev.Stop()
	if err != nil {
		return fmt.Errorf("could not stop run: %w", err)
	}
	return nil
}

func (srv *server) cmdDumpRegisters(w io.Writer) error {
	if srv.dev == nil {
		return fmt.Errorf("device not initialized")
	}
	return srv.dev.DumpRegisters(w)
}

func (srv *server) reply(conn net.Conn, err error) {
	msg := "ok"
	if err != nil {
		msg = fmt.Sprintf("%+v", err)
	}
	srv.replyMsg(conn, msg)
}

func (srv *server) replyMsg(conn net.Conn, msg string) {
	rep := struct {
		Msg string `json:"msg"`
	}{Msg: msg}

	err := json.NewEncoder(conn).Encode(rep)
	if err != nil {
		srv.msg.Printf("could not send reply: %+v", err)
	}
}

func (srv *server) close() {
	if srv.dev != nil {
		_ = srv.dev.Close()
		srv.dev = nil
	}
	_ = srv.ctl.Close()
}
