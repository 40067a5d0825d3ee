// Copyright 2024 The EE119C Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package afe controls the four-channel AFE readout board: the
// HPS-side driver of the acquisition core synthesized in the FPGA
// fabric (memory-mapped register access, DAQ FIFO drain, run files in
// the AFE readout format), a software simulation of the same board
// built on the adc core model, and the TCP control server the
// acquisition services speak to.
package afe // import "github.com/tpailevanian/EE119C/afe"
