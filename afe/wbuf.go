// Copyright 2024 The EE119C Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package afe

import (
	"io"
)

// wbuf is a fixed-size write buffer for the DAQ run-loop.
// Writes past the end of the underlying buffer fail with io.EOF
// instead of growing the buffer.
type wbuf struct {
	p []byte
	c int
}

func (w *wbuf) Write(p []byte) (int, error) {
	n := len(p)
	if w.c+n > len(w.p) {
		return 0, io.EOF
	}
	copy(w.p[w.c:w.c+n], p)
	w.c += n
	return n, nil
}

var (
	_ io.Writer = (*wbuf)(nil)
)
