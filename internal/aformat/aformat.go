// Copyright 2024 The EE119C Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package aformat describes and handles data in the AFE readout format.
//
// A readout stream starts with a run header and is followed by frames,
// one per conversion cycle. Multi-byte payload fields are stored
// little-endian; the per-frame CRC-16 checksum is stored big-endian.
package aformat // import "github.com/tpailevanian/EE119C/internal/aformat"

const (
	runHeader = 0xb5 // run header marker
	frHeader  = 0xb2 // frame header marker
	frTrailer = 0xa2 // frame trailer marker

	numChannels = 4
)

// Version is the current version of the AFE readout format.
const Version = 1

// Flags qualifying a readout frame.
const (
	FlagTimeout uint8 = 1 << iota // conversion cycle ended on the watchdog timeout
	FlagOverrun                   // readout FIFO overflowed upstream of this frame
)

// RunHeader identifies the run a stream of frames belongs to.
type RunHeader struct {
	Version uint8  // readout format version
	Run     uint32 // run number
	UTC     uint32 // run start time (seconds since Unix epoch)
	Serial  uint32 // board serial number
}

// Frame holds the results of one conversion cycle.
type Frame struct {
	Cycle uint32              // conversion cycle counter
	Flags uint8               // status qualifiers
	Raw   [numChannels]uint16 // raw ADC words
	Flt   [numChannels]int32  // filtered samples
}
