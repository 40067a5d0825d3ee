// Copyright 2024 The EE119C Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"testing"

	"github.com/tpailevanian/EE119C/adc"
)

func TestStep(t *testing.T) {
	dev := &server{src: "const"}
	err := dev.reset()
	if err != nil {
		t.Fatalf("could not reset server: %+v", err)
	}

	fr, err := dev.step()
	if err != nil {
		t.Fatalf("could not step one conversion cycle: %+v", err)
	}

	if got, want := fr.Cycle, uint32(0); got != want {
		t.Fatalf("invalid cycle: got=%d, want=%d", got, want)
	}
	if got, want := fr.Flags, uint8(0); got != want {
		t.Fatalf("invalid flags: got=0x%x, want=0x%x", got, want)
	}
	if got, want := fr.Raw, ([4]uint16{0x1234, 0x8000, 0x0400, 0xfc00}); got != want {
		t.Fatalf("invalid raw words:\ngot= %v\nwant=%v\n", got, want)
	}

	// a second cycle: the counter advances.
	fr, err = dev.step()
	if err != nil {
		t.Fatalf("could not step one conversion cycle: %+v", err)
	}
	if got, want := fr.Cycle, uint32(1); got != want {
		t.Fatalf("invalid cycle: got=%d, want=%d", got, want)
	}
}

func TestSource(t *testing.T) {
	_, err := source("turbo", 0)
	if err == nil {
		t.Fatalf("expected an error for an unknown sample source")
	}
	if got, want := err.Error(), `unknown sample source "turbo"`; got != want {
		t.Fatalf("invalid error:\ngot= %v\nwant=%v\n", got, want)
	}

	src, err := source("const", 0)
	if err != nil {
		t.Fatalf("could not build sample source: %+v", err)
	}
	if got, want := src(0), ([adc.NumChannels]uint16{0x1234, 0x8000, 0x0400, 0xfc00}); got != want {
		t.Fatalf("invalid samples:\ngot= %v\nwant=%v\n", got, want)
	}
}
