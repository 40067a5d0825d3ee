// Copyright 2024 The EE119C Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package fir

// Bank is the four-channel filter block: four independent Channels
// sharing the reset line and the data-ready wiring but never each
// other's data.
type Bank struct {
	chans [NumChannels]Channel
}

// Tick advances all four channels by one filter-clock tick and returns
// the four filter outputs. words holds the deserializer's four raw
// registers and ready its transfer-complete flag; each channel imports
// them through its own synchronizers.
func (b *Bank) Tick(rstn bool, words [NumChannels]uint16, ready bool) [NumChannels]int32 {
	var out [NumChannels]int32
	for i := range b.chans {
		out[i] = b.chans[i].Tick(rstn, words[i], ready)
	}
	return out
}

// Outputs returns the four filter outputs computed at the last tick.
func (b *Bank) Outputs() [NumChannels]int32 {
	var out [NumChannels]int32
	for i := range b.chans {
		out[i] = b.chans[i].Output()
	}
	return out
}
