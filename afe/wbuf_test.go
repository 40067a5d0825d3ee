// Copyright 2024 The EE119C Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package afe

import (
	"bytes"
	"errors"
	"io"
	"testing"
)

func TestWbuf(t *testing.T) {
	w := &wbuf{p: make([]byte, 4)}

	n, err := w.Write([]byte{1, 2})
	if err != nil {
		t.Fatalf("could not write: %+v", err)
	}
	if got, want := n, 2; got != want {
		t.Fatalf("invalid write length: got=%d, want=%d", got, want)
	}

	n, err = w.Write([]byte{3, 4})
	if err != nil {
		t.Fatalf("could not write: %+v", err)
	}
	if got, want := n, 2; got != want {
		t.Fatalf("invalid write length: got=%d, want=%d", got, want)
	}

	_, err = w.Write([]byte{5})
	if !errors.Is(err, io.EOF) {
		t.Fatalf("expected io.EOF on a full buffer, got: %+v", err)
	}

	if got, want := w.p[:w.c], []byte{1, 2, 3, 4}; !bytes.Equal(got, want) {
		t.Fatalf("invalid buffer content:\ngot= %v\nwant=%v", got, want)
	}

	// resetting the cursor makes room again.
	w.c = 0
	n, err = w.Write([]byte{9, 8, 7})
	if err != nil {
		t.Fatalf("could not write after reset: %+v", err)
	}
	if got, want := n, 3; got != want {
		t.Fatalf("invalid write length: got=%d, want=%d", got, want)
	}
	if got, want := w.p[:w.c], []byte{9, 8, 7}; !bytes.Equal(got, want) {
		t.Fatalf("invalid buffer content:\ngot= %v\nwant=%v", got, want)
	}
}
