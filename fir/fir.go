// Copyright 2024 The EE119C Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package fir implements the per-channel low-pass filter pipeline of
// the EE119C front end: a fixed 127-tap linear-phase FIR in Q15
// arithmetic, fed by a 128-sample history window and producing an
// 18-bit signed output once per conversion cycle.
//
// The package mirrors the synthesized datapath bit for bit: raw words
// and the data-ready flag cross from the deserializer's clock domain
// through two-stage synchronizers, the history shifts on the rising
// edge of the synchronized ready flag, and the full multiply-accumulate
// cascade is recomputed from scratch on every filter-clock tick.
package fir // import "github.com/tpailevanian/EE119C/fir"

const (
	// NumTaps is the number of multiply-accumulate stages per channel.
	NumTaps = 127

	// NumChannels is the number of independent filter channels.
	NumChannels = 4

	// historyDepth is the size of the per-channel sample window.
	// The cascade consumes NumTaps samples; the extra slot matches the
	// power-of-two shift register depth of the synthesized design.
	historyDepth = 128
)
