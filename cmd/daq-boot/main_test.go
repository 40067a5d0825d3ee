// Copyright 2024 The EE119C Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"
)

func TestRun(t *testing.T) {
	dir, err := os.MkdirTemp("", "daq-boot-")
	if err != nil {
		t.Fatalf("could not create tmp dir: %+v", err)
	}
	defer os.RemoveAll(dir)

	sleep, err := exec.LookPath("sleep")
	if err != nil {
		t.Skipf("could not find sleep executable: %+v", err)
	}
	src, err := os.ReadFile(sleep)
	if err != nil {
		t.Fatalf("could not read %q: %+v", sleep, err)
	}

	// copies with unique names so the killall pass only ever
	// targets our own children.
	bins := make([]string, 2)
	for i := range bins {
		bins[i] = filepath.Join(dir, fmt.Sprintf("afe-proc-%d", i))
		err = os.WriteFile(bins[i], src, 0755)
		if err != nil {
			t.Fatalf("could not create %q: %+v", bins[i], err)
		}
	}

	for _, tc := range []struct {
		name string
		mon  bool
		stop bool
	}{
		{name: "simple"},
		{name: "pmon", mon: true},
		{name: "stop", stop: true},
		{name: "stop-pmon", mon: true, stop: true},
	} {
		t.Run(tc.name, func(t *testing.T) {
			arg := "1"
			if tc.stop {
				arg = "30"
			}
			cmds := []*exec.Cmd{
				exec.Command(bins[0], arg),
				exec.Command(bins[1], arg),
			}

			stop := make(chan os.Signal, 1)
			if tc.stop {
				go func() {
					time.Sleep(500 * time.Millisecond)
					stop <- os.Interrupt
				}()
			}

			err := run(tc.mon, 100*time.Millisecond, cmds, dir, stop)
			if err != nil {
				t.Fatalf("could not run daq-boot: %+v", err)
			}

			for _, bin := range bins {
				name := filepath.Base(bin) + ".log"
				_, err := os.Stat(filepath.Join(dir, name))
				if err != nil {
					t.Fatalf("could not stat log file %q: %+v", name, err)
				}
			}
		})
	}
}
