// Copyright 2024 The EE119C Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package afe

import (
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/tpailevanian/EE119C/adc"
)

func isErrClosed(err error) bool {
	return errors.Is(err, net.ErrClosed)
}

func TestServerFail(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("could not listen: %+v", err)
	}
	defer l.Close()

	_, err = newServer(l.Addr().String(), ".", "/dev/mem")
	if err == nil {
		t.Fatalf("expected an error listening on a busy address")
	}
}

func TestServer(t *testing.T) {
	dir, err := os.MkdirTemp("", "afe-srv-")
	if err != nil {
		t.Fatalf("could not create tmp dir: %+v", err)
	}
	defer os.RemoveAll(dir)

	srv, err := newServer("127.0.0.1:0", dir, "/dev/mem",
		WithCyclePeriod(100*time.Microsecond),
	)
	if err != nil {
		t.Fatalf("could not create server: %+v", err)
	}
	srv.newDevice = func(devmem, odir string, opts ...Option) (device, error) {
		return NewSim(odir, adc.Constant([4]uint16{1, 2, 3, 4}), opts...)
	}

	done := make(chan error)
	go func() {
		done <- srv.serve()
	}()

	addr := srv.ctl.Addr().String()

	send := func(name string, args []string) (string, error) {
		conn, err := net.Dial("tcp", addr)
		if err != nil {
			return "", fmt.Errorf("could not dial control server: %w", err)
		}
		defer conn.Close()

		req := struct {
			Name string   `json:"name"`
			Args []string `json:"args,omitempty"`
		}{Name: name, Args: args}

		err = json.NewEncoder(conn).Encode(req)
		if err != nil {
			return "", fmt.Errorf("could not send command: %w", err)
		}

		var rep struct {
			Msg string `json:"msg"`
		}
		err = json.NewDecoder(conn).Decode(&rep)
		if err != nil {
			return "", fmt.Errorf("could not decode reply: %w", err)
		}
		return rep.Msg, nil
	}

	// malformed request.
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		t.Fatalf("could not dial control server: %+v", err)
	}
	_, err = conn.Write([]byte("{]"))
	if err != nil {
		t.Fatalf("could not send malformed request: %+v", err)
	}
	var rep struct {
		Msg string `json:"msg"`
	}
	err = json.NewDecoder(conn).Decode(&rep)
	if err != nil {
		t.Fatalf("could not decode reply: %+v", err)
	}
	if !strings.HasPrefix(rep.Msg, "could not decode command") {
		t.Fatalf("invalid reply to malformed request: %q", rep.Msg)
	}
	conn.Close()

	// unknown command.
	msg, err := send("turbo", nil)
	if err != nil {
		t.Fatalf("could not send command: %+v", err)
	}
	if got, want := msg, `unknown command "turbo"`; got != want {
		t.Fatalf("invalid reply: got=%q, want=%q", got, want)
	}

	// start before initialize.
	msg, err = send("start", []string{"10"})
	if err != nil {
		t.Fatalf("could not send command: %+v", err)
	}
	if got, want := msg, "device not initialized"; got != want {
		t.Fatalf("invalid reply: got=%q, want=%q", got, want)
	}

	msg, err = send("initialize", nil)
	if err != nil {
		t.Fatalf("could not send command: %+v", err)
	}
	if got, want := msg, "ok"; got != want {
		t.Fatalf("invalid reply: got=%q, want=%q", got, want)
	}

	msg, err = send("dump-registers", nil)
	if err != nil {
		t.Fatalf("could not send command: %+v", err)
	}
	if !strings.HasPrefix(msg, "core.state=") {
		t.Fatalf("invalid register dump: %q", msg)
	}

	// start with a bad run number.
	msg, err = send("start", []string{"xx"})
	if err != nil {
		t.Fatalf("could not send command: %+v", err)
	}
	if !strings.HasPrefix(msg, `could not parse run number "xx"`) {
		t.Fatalf("invalid reply: %q", msg)
	}

	msg, err = send("start", []string{"10"})
	if err != nil {
		t.Fatalf("could not send command: %+v", err)
	}
	if got, want := msg, "ok"; got != want {
		t.Fatalf("invalid reply: got=%q, want=%q", got, want)
	}

	time.Sleep(20 * time.Millisecond)

	// dumping registers is legal while a run is on-going.
	msg, err = send("dump-registers", nil)
	if err != nil {
		t.Fatalf("could not send command: %+v", err)
	}
	if !strings.HasPrefix(msg, "core.state=") {
		t.Fatalf("invalid register dump: %q", msg)
	}

	msg, err = send("stop", nil)
	if err != nil {
		t.Fatalf("could not send command: %+v", err)
	}
	if got, want := msg, "ok"; got != want {
		t.Fatalf("invalid reply: got=%q, want=%q", got, want)
	}

	fi, err := os.Stat(filepath.Join(dir, "afe_000010.raw"))
	if err != nil {
		t.Fatalf("could not stat run file: %+v", err)
	}
	if fi.Size() <= szRunHeader {
		t.Fatalf("empty run file (size=%d)", fi.Size())
	}

	_ = srv.ctl.Close()
	err = <-done
	if err != nil && !isErrClosed(err) {
		t.Fatalf("server failed: %+v", err)
	}
}
