// Copyright 2024 The EE119C Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package adc

import (
	"testing"
)

func TestCounterMarks(t *testing.T) {
	for _, tc := range []struct {
		name string
		c    counter
		fire func(v uint32) bool
	}{
		{
			name: "sample-delay",
			c:    counter{mask: 0x0f, mark: 11},
			fire: func(v uint32) bool { return v == 11 },
		},
		{
			name: "conversion-delay",
			c:    counter{mask: 0x7f, mark: 67},
			fire: func(v uint32) bool { return v == 67 },
		},
		{
			name: "data-ready-timeout",
			c:    counter{mask: 0x7f, mark: 64, ge: true},
			fire: func(v uint32) bool { return v&0x40 != 0 },
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			// walk the whole register range: done must assert at the
			// documented counts and nowhere else
			for i := 0; i <= int(tc.c.mask); i++ {
				if got, want := tc.c.done(), tc.fire(tc.c.count()); got != want {
					t.Fatalf("count=%d: done=%v, want=%v", tc.c.count(), got, want)
				}
				tc.c.tick(false, true)
			}
		})
	}
}

func TestCounterClearAndEnable(t *testing.T) {
	c := counter{mask: 0x7f, mark: 67}

	for i := 0; i < 10; i++ {
		c.tick(false, true)
	}
	if got, want := c.count(), uint32(10); got != want {
		t.Fatalf("invalid count: got=%d, want=%d", got, want)
	}

	c.tick(false, false) // disabled: the count holds
	if got, want := c.count(), uint32(10); got != want {
		t.Fatalf("count advanced while disabled: got=%d, want=%d", got, want)
	}

	c.tick(true, true) // clear wins over enable
	if got, want := c.count(), uint32(0); got != want {
		t.Fatalf("clear did not zero the count: got=%d, want=%d", got, want)
	}

	c.tick(false, true) // counting restarts from the next enabled tick
	if got, want := c.count(), uint32(1); got != want {
		t.Fatalf("invalid count after clear: got=%d, want=%d", got, want)
	}
}

func TestCounterWraps(t *testing.T) {
	c := counter{mask: 0x0f, mark: 11}
	for i := 0; i < 16; i++ {
		c.tick(false, true)
	}
	if got, want := c.count(), uint32(0); got != want {
		t.Fatalf("4-bit register did not wrap: got=%d, want=%d", got, want)
	}
}
