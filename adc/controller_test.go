// Copyright 2024 The EE119C Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package adc_test

import (
	"testing"

	"github.com/tpailevanian/EE119C/adc"
)

// stateRun is one visited state and the number of ticks spent in it.
type stateRun struct {
	st adc.State
	n  int
}

func TestControllerSequence(t *testing.T) {
	ctl := adc.NewController()

	var (
		runs  []stateRun
		highs int // ticks with the serial clock high
	)
	for tick := 0; tick < 200 && ctl.Cycles() == 0; tick++ {
		st := ctl.State()
		if n := len(runs); n > 0 && runs[n-1].st == st {
			runs[n-1].n++
		} else {
			runs = append(runs, stateRun{st: st, n: 1})
		}
		ctl.Tick(true, true)
		if ctl.SerialClock() {
			highs++
		}
	}

	if got, want := ctl.Cycles(), uint32(1); got != want {
		t.Fatalf("cycle did not complete: cycles=%d", got)
	}

	want := []stateRun{
		{adc.Sample, 12},
		{adc.Convert, 68},
	}
	for i := 0; i < 16; i++ {
		want = append(want, stateRun{adc.ClockHigh, 2}, stateRun{adc.ClockLow, 2})
	}
	want = append(want, stateRun{adc.DataReady, 1})

	if len(runs) != len(want) {
		t.Fatalf("invalid state sequence: got %d runs, want %d\ngot=%v", len(runs), len(want), runs)
	}
	for i := range runs {
		if runs[i] != want[i] {
			t.Fatalf("run %d: got=%v/%d, want=%v/%d", i, runs[i].st, runs[i].n, want[i].st, want[i].n)
		}
	}

	// sixteen pulses, each held high for two ticks
	if got, want := highs, 32; got != want {
		t.Fatalf("invalid serial clock duty: got=%d high ticks, want=%d", got, want)
	}

	if got, want := ctl.Status(), adc.StatusOK; got != want {
		t.Fatalf("invalid cycle status: got=%v, want=%v", got, want)
	}
	if got, want := ctl.State(), adc.Sample; got != want {
		t.Fatalf("controller did not return to SAMPLE: %v", got)
	}
}

func TestControllerTriggerPulse(t *testing.T) {
	ctl := adc.NewController()

	var trigs int
	for tick := 0; tick < 200 && ctl.Cycles() == 0; tick++ {
		ctl.Tick(true, true)
		if ctl.Trigger() {
			if ctl.State() != adc.Sample {
				t.Fatalf("trigger asserted outside SAMPLE (state=%v)", ctl.State())
			}
			trigs++
		}
	}
	if got, want := trigs, 11; got != want {
		t.Fatalf("invalid trigger pulse width: got=%d ticks, want=%d", got, want)
	}
}

func TestControllerTimeoutBound(t *testing.T) {
	ctl := adc.NewController()

	// run to DATA_READY with the ready flag never asserted
	for ctl.State() != adc.DataReady {
		ctl.Tick(true, false)
	}

	// the timeout counter fires at 64 counts; the sequencer observes it
	// one tick later, so DATA_READY holds for exactly 65 ticks
	for i := 0; i < 64; i++ {
		if got, want := ctl.State(), adc.DataReady; got != want {
			t.Fatalf("tick %d: left DATA_READY before the timeout: %v", i, got)
		}
		ctl.Tick(true, false)
	}
	if got, want := ctl.State(), adc.DataReady; got != want {
		t.Fatalf("left DATA_READY before the timeout: %v", got)
	}
	ctl.Tick(true, false)

	if got, want := ctl.State(), adc.Sample; got != want {
		t.Fatalf("timeout did not force SAMPLE: %v", got)
	}
	if got, want := ctl.Status(), adc.StatusTimeout; got != want {
		t.Fatalf("invalid cycle status: got=%v, want=%v", got, want)
	}
	if got, want := ctl.Cycles(), uint32(1); got != want {
		t.Fatalf("timeout cycle not counted: cycles=%d", got)
	}
	if !ctl.DeserializerReset() {
		t.Fatalf("deserializer reset not re-asserted after timeout")
	}
}

func TestControllerResetFromEveryState(t *testing.T) {
	for _, tc := range []struct {
		name  string
		ticks int
		in    adc.State
	}{
		{name: "sample", ticks: 5, in: adc.Sample},
		{name: "convert", ticks: 20, in: adc.Convert},
		{name: "clock-high", ticks: 81, in: adc.ClockHigh},
		{name: "clock-low", ticks: 83, in: adc.ClockLow},
		{name: "data-ready", ticks: 146, in: adc.DataReady},
	} {
		t.Run(tc.name, func(t *testing.T) {
			ctl := adc.NewController()
			for i := 0; i < tc.ticks; i++ {
				ctl.Tick(true, false)
			}
			if got, want := ctl.State(), tc.in; got != want {
				t.Fatalf("invalid state after %d ticks: got=%v, want=%v", tc.ticks, got, want)
			}

			ctl.Tick(false, false)

			if got, want := ctl.State(), adc.Sample; got != want {
				t.Fatalf("reset did not force SAMPLE: %v", got)
			}
			if ctl.Trigger() || ctl.SerialClock() {
				t.Fatalf("reset did not deassert the outputs")
			}
			if !ctl.DeserializerReset() {
				t.Fatalf("reset did not assert the deserializer reset")
			}
			smp, cnv, tmo := ctl.Counts()
			if smp != 0 || cnv != 0 || tmo != 0 {
				t.Fatalf("reset did not clear the counters: %d %d %d", smp, cnv, tmo)
			}
		})
	}
}
