// Copyright 2024 The EE119C Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package aformat

import (
	"bytes"
	"io"
	"reflect"
	"testing"

	"golang.org/x/xerrors"
)

func TestCodec(t *testing.T) {
	hdr := RunHeader{
		Version: Version,
		Run:     42,
		UTC:     0x66aabbcc,
		Serial:  7,
	}
	frames := []Frame{
		{
			Cycle: 1,
			Raw:   [4]uint16{0x1234, 0x8000, 0x0400, 0xfc00},
			Flt:   [4]int32{4660, -32768, 1024, -1024},
		},
		{
			Cycle: 2,
			Flags: FlagTimeout,
		},
		{
			Cycle: 3,
			Flags: FlagOverrun,
			Raw:   [4]uint16{0xffff, 0x0001, 0x7fff, 0x8001},
			Flt:   [4]int32{-131072, 131071, 0, -1},
		},
	}

	buf := new(bytes.Buffer)
	enc := NewEncoder(buf)
	if err := enc.EncodeHeader(&hdr); err != nil {
		t.Fatalf("could not encode run header: %+v", err)
	}
	for i := range frames {
		if err := enc.Encode(&frames[i]); err != nil {
			t.Fatalf("could not encode frame %d: %+v", i, err)
		}
	}

	dec := NewDecoder(buf)
	var ghdr RunHeader
	if err := dec.DecodeHeader(&ghdr); err != nil {
		t.Fatalf("could not decode run header: %+v", err)
	}
	if got, want := ghdr, hdr; got != want {
		t.Fatalf("invalid run header round-trip:\ngot= %#v\nwant=%#v", got, want)
	}

	for i := range frames {
		var got Frame
		if err := dec.Decode(&got); err != nil {
			t.Fatalf("could not decode frame %d: %+v", i, err)
		}
		if got, want := got, frames[i]; !reflect.DeepEqual(got, want) {
			t.Fatalf("invalid r/w round-trip (frame %d):\ngot= %#v\nwant=%#v", i, got, want)
		}
	}

	var frame Frame
	err := dec.Decode(&frame)
	if err == nil || !xerrors.Is(err, io.EOF) {
		t.Fatalf("invalid end-of-stream error: %+v", err)
	}
}

func TestEncoder(t *testing.T) {
	{
		buf := new(bytes.Buffer)
		enc := NewEncoder(buf)

		if got, want := enc.Encode(nil), error(nil); got != want {
			t.Fatalf("invalid nil-frame encoding: got=%v, want=%v", got, want)
		}
		if got, want := enc.EncodeHeader(nil), error(nil); got != want {
			t.Fatalf("invalid nil-header encoding: got=%v, want=%v", got, want)
		}
	}
	{
		buf := failingWriter{n: 0}
		enc := NewEncoder(&buf)
		if got, want := enc.Encode(&Frame{}), xerrors.Errorf("aformat: could not write frame header marker: %w", io.ErrUnexpectedEOF); got.Error() != want.Error() {
			t.Fatalf("invalid error:\ngot= %+v\nwant=%+v", got, want)
		}
	}
	{
		buf := failingWriter{n: 0}
		enc := NewEncoder(&buf)
		if got, want := enc.EncodeHeader(&RunHeader{}), xerrors.Errorf("aformat: could not write run header marker: %w", io.ErrUnexpectedEOF); got.Error() != want.Error() {
			t.Fatalf("invalid error:\ngot= %+v\nwant=%+v", got, want)
		}
	}
}

type failingWriter struct {
	n   int
	cur int
}

func (w *failingWriter) Write(p []byte) (int, error) {
	w.cur += len(p)
	if w.cur >= w.n {
		return 0, io.ErrUnexpectedEOF
	}
	return len(p), nil
}

func TestDecoder(t *testing.T) {
	frameC := []byte{
		frHeader,
		0x04, 0x03, 0x02, 0x01, // cycle
		0x02, // flags
		0x22, 0x11, 0x44, 0x33, 0x66, 0x55, 0x88, 0x77, // raw
		0x01, 0x00, 0x00, 0x00, // filtered-0
		0xff, 0xff, 0xff, 0xff, // filtered-1
		0x02, 0x00, 0x00, 0x00, // filtered-2
		0xfe, 0xff, 0xff, 0xff, // filtered-3
		0xc0, 0xef, // CRC-16
		frTrailer,
	}

	for _, tc := range []struct {
		name string
		n    int
		raw  []byte
		want error
	}{
		{
			name: "no data",
			n:    1,
			raw:  nil,
			want: xerrors.Errorf("aformat: could not read frame header marker: %w", io.EOF),
		},
		{
			name: "normal-frame",
			n:    1,
			raw:  frameC,
		},
		{
			name: "multiple-frames",
			n:    2,
			raw:  append(append([]byte{}, frameC...), frameC...),
		},
		{
			name: "invalid-header",
			n:    1,
			raw: []byte{
				frHeader + 1,
			},
			want: xerrors.Errorf("aformat: could not read frame header marker (got=0x%x)", frHeader+1),
		},
		{
			name: "missing-body",
			n:    1,
			raw: []byte{
				frHeader,
			},
			want: xerrors.Errorf("aformat: could not read frame body: %w", io.EOF),
		},
		{
			name: "short-body",
			n:    1,
			raw:  frameC[:7],
			want: xerrors.Errorf("aformat: could not read frame body: %w", io.ErrUnexpectedEOF),
		},
		{
			name: "missing-crc-16",
			n:    1,
			raw:  frameC[:30],
			want: xerrors.Errorf("aformat: could not receive CRC-16: %w", io.EOF),
		},
		{
			name: "short-crc-16",
			n:    1,
			raw:  frameC[:31],
			want: xerrors.Errorf("aformat: could not receive CRC-16: %w", io.ErrUnexpectedEOF),
		},
		{
			name: "invalid-crc-16",
			n:    1,
			raw: append(append([]byte{}, frameC[:30]...),
				0xb5, 0xff, // CRC-16
				frTrailer,
			),
			want: xerrors.Errorf("aformat: inconsistent CRC: recv=0xb5ff comp=0xc0ef"),
		},
		{
			name: "missing-trailer",
			n:    1,
			raw:  frameC[:32],
			want: xerrors.Errorf("aformat: could not read frame trailer marker: %w", io.EOF),
		},
		{
			name: "invalid-trailer",
			n:    1,
			raw: append(append([]byte{}, frameC[:32]...),
				frTrailer+1,
			),
			want: xerrors.Errorf("aformat: could not read frame trailer marker (got=0x%x)", frTrailer+1),
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			dec := NewDecoder(bytes.NewReader(tc.raw))
			for i := 0; i < tc.n; i++ {
				if i > 0 {
					dec.buf = dec.buf[:0:0] // test cap-load
				}
				var frame Frame
				err := dec.Decode(&frame)
				switch {
				case err != nil && tc.want == nil:
					t.Fatalf("i=%d: got=%v, want=%v", i, err, tc.want)
				case err == nil && tc.want == nil:
					// ok.
				case err != nil && tc.want != nil:
					if got, want := err.Error(), tc.want.Error(); got != want {
						t.Fatalf("i=%d: invalid error:\ngot: %+v\nwant:%+v\n", i, got, want)
					}
				case err == nil && tc.want != nil:
					t.Fatalf("i=%d: expected an error: %+v", i, tc.want)
				}
			}
		})
	}
}

func TestDecodeHeader(t *testing.T) {
	for _, tc := range []struct {
		name string
		raw  []byte
		hdr  RunHeader
		want error
	}{
		{
			name: "no data",
			raw:  nil,
			want: xerrors.Errorf("aformat: could not read run header marker: %w", io.EOF),
		},
		{
			name: "normal-header",
			raw: []byte{
				runHeader,
				0x01,                   // version
				0x2a, 0x00, 0x00, 0x00, // run
				0xcc, 0xbb, 0xaa, 0x66, // start time
				0x07, 0x00, 0x00, 0x00, // serial
			},
			hdr: RunHeader{Version: 1, Run: 42, UTC: 0x66aabbcc, Serial: 7},
		},
		{
			name: "invalid-marker",
			raw: []byte{
				runHeader + 1,
			},
			want: xerrors.Errorf("aformat: could not read run header marker (got=0x%x)", runHeader+1),
		},
		{
			name: "missing-body",
			raw: []byte{
				runHeader,
			},
			want: xerrors.Errorf("aformat: could not read run header: %w", io.EOF),
		},
		{
			name: "short-body",
			raw: []byte{
				runHeader,
				0x01, 0x2a, 0x00,
			},
			want: xerrors.Errorf("aformat: could not read run header: %w", io.ErrUnexpectedEOF),
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			dec := NewDecoder(bytes.NewReader(tc.raw))
			var hdr RunHeader
			err := dec.DecodeHeader(&hdr)
			switch {
			case err != nil && tc.want == nil:
				t.Fatalf("got=%v, want=%v", err, tc.want)
			case err == nil && tc.want == nil:
				if got, want := hdr, tc.hdr; got != want {
					t.Fatalf("invalid run header:\ngot= %#v\nwant=%#v", got, want)
				}
			case err != nil && tc.want != nil:
				if got, want := err.Error(), tc.want.Error(); got != want {
					t.Fatalf("invalid error:\ngot: %+v\nwant:%+v\n", got, want)
				}
			case err == nil && tc.want != nil:
				t.Fatalf("expected an error: %+v", tc.want)
			}
		})
	}
}
