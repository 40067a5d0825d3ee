// Copyright 2024 The EE119C Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package fir

// SyncBit imports a single-bit signal from a foreign clock domain
// through two chained registers. A change on the input is returned by
// Tick on the second call after it appears, never on the first: the
// consuming domain observes the source with a two-tick lag.
type SyncBit struct {
	q0, q1 bool
}

// Tick advances the synchronizer by one tick of the consuming clock
// and returns the synchronized value.
func (s *SyncBit) Tick(v bool) bool {
	s.q1 = s.q0
	s.q0 = v
	return s.q1
}

// Reset clears both stages.
func (s *SyncBit) Reset() {
	s.q0 = false
	s.q1 = false
}

// SyncWord imports a 16-bit value from a foreign clock domain through
// two chained registers, with the same two-tick lag as SyncBit.
type SyncWord struct {
	q0, q1 uint16
}

// Tick advances the synchronizer by one tick of the consuming clock
// and returns the synchronized value.
func (s *SyncWord) Tick(v uint16) uint16 {
	s.q1 = s.q0
	s.q0 = v
	return s.q1
}

// Reset clears both stages.
func (s *SyncWord) Reset() {
	s.q0 = 0
	s.q1 = 0
}
