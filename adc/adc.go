// Copyright 2024 The EE119C Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package adc models the acquisition side of the EE119C front end: the
// five-state conversion sequencer with its three delay counters, the
// four-lane serial deserializer clocked by the externally supplied
// phase-matched clock, and the wiring that carries their outputs into
// the filter bank through two-stage synchronizers.
//
// Execution is synchronous and tick-driven. Core.Tick advances the
// system-clock domain by one tick; the capture-clock domain advances on
// the observed edges of the external serial clock. There are no
// goroutines and no locks: every register has a single writer and all
// cross-domain values pass through synchronizers.
package adc // import "github.com/tpailevanian/EE119C/adc"

import (
	"github.com/tpailevanian/EE119C/fir"
)

// NumChannels is the number of acquisition channels.
const NumChannels = fir.NumChannels
