// Copyright 2024 The EE119C Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"encoding/json"
	"net"
	"testing"
)

func TestSend(t *testing.T) {
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("could not create fake afe-svc: %+v", err)
	}
	defer lis.Close()

	type request struct {
		Name string   `json:"name"`
		Args []string `json:"args"`
	}

	done := make(chan request)
	go func() {
		conn, err := lis.Accept()
		if err != nil {
			t.Errorf("could not accept conn: %+v", err)
			close(done)
			return
		}
		defer conn.Close()

		var req request
		err = json.NewDecoder(conn).Decode(&req)
		if err != nil {
			t.Errorf("could not decode command: %+v", err)
			close(done)
			return
		}
		err = json.NewEncoder(conn).Encode(struct {
			Msg string `json:"msg"`
		}{Msg: "ok"})
		if err != nil {
			t.Errorf("could not encode reply: %+v", err)
		}
		done <- req
	}()

	msg, err := send(lis.Addr().String(), "start", []string{"42"})
	if err != nil {
		t.Fatalf("could not send command: %+v", err)
	}
	if got, want := msg, "ok"; got != want {
		t.Fatalf("invalid reply: got=%q, want=%q", got, want)
	}

	req := <-done
	if got, want := req.Name, "start"; got != want {
		t.Fatalf("invalid command name: got=%q, want=%q", got, want)
	}
	if got, want := len(req.Args), 1; got != want {
		t.Fatalf("invalid number of args: got=%d, want=%d", got, want)
	}
	if got, want := req.Args[0], "42"; got != want {
		t.Fatalf("invalid run arg: got=%q, want=%q", got, want)
	}
}

func TestAliases(t *testing.T) {
	for _, tc := range []struct {
		name string
		want string
	}{
		{name: "init", want: "initialize"},
		{name: "dump", want: "dump-registers"},
		{name: "status", want: "dump-registers"},
	} {
		if got, want := aliases[tc.name], tc.want; got != want {
			t.Errorf("invalid alias for %q: got=%q, want=%q", tc.name, got, want)
		}
	}
}
