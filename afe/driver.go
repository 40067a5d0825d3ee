// Copyright 2024 The EE119C Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package afe

import (
	"io"
)

// device models the control surface of an AFE readout board, whether
// the real hardware or its software simulation.
type device interface {
	Initialize() error
	Start(run uint32) error
	Stop() error
	DumpRegisters(w io.Writer) error
	Close() error
}

var (
	_ device = (*Device)(nil)
	_ device = (*Sim)(nil)
)
