// Copyright 2024 The EE119C Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package aformat

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/tpailevanian/EE119C/internal/crc16"
)

// Encoder writes AFE readout data to an output stream.
// Encoder computes the CRC-16 checksum of each frame on the fly and
// appends it to the frame, before the trailer marker.
type Encoder struct {
	w   io.Writer
	buf []byte
	err error
	crc crc16.Hash16
}

// NewEncoder returns a new Encoder that writes to w.
func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{
		w:   w,
		buf: make([]byte, 8),
		crc: crc16.New(nil),
	}
}

func (enc *Encoder) crcw(p []byte) {
	_, _ = enc.crc.Write(p) // can not fail.
}

func (enc *Encoder) reset() {
	enc.crc.Reset()
}

// EncodeHeader writes the run header to the stream.
func (enc *Encoder) EncodeHeader(hdr *RunHeader) error {
	if hdr == nil {
		return nil
	}

	enc.writeU8(runHeader)
	if enc.err != nil {
		return fmt.Errorf("aformat: could not write run header marker: %w", enc.err)
	}

	enc.writeU8(hdr.Version)
	enc.writeU32(hdr.Run)
	enc.writeU32(hdr.UTC)
	enc.writeU32(hdr.Serial)

	return enc.err
}

// Encode writes the frame to the stream, computes the corresponding
// CRC-16 checksum on the fly and appends it, followed by the frame
// trailer marker.
func (enc *Encoder) Encode(frame *Frame) error {
	if frame == nil {
		return nil
	}

	enc.reset()

	enc.writeU8(frHeader)
	if enc.err != nil {
		return fmt.Errorf("aformat: could not write frame header marker: %w", enc.err)
	}

	enc.writeU32(frame.Cycle)
	enc.writeU8(frame.Flags)
	for _, raw := range frame.Raw {
		enc.writeU16(raw)
	}
	for _, flt := range frame.Flt {
		enc.writeU32(uint32(flt))
	}

	crc := enc.crc.Sum16()
	enc.writeU16BE(crc)
	enc.writeU8(frTrailer)

	return enc.err
}

func (enc *Encoder) write(p []byte) {
	if enc.err != nil {
		return
	}
	_, enc.err = enc.w.Write(p)
	enc.crcw(p)
}

func (enc *Encoder) writeU8(v uint8) {
	const n = 1
	enc.reserve(n)
	enc.buf[0] = v
	enc.write(enc.buf[:n])
}

func (enc *Encoder) writeU16(v uint16) {
	const n = 2
	enc.reserve(n)
	binary.LittleEndian.PutUint16(enc.buf[:n], v)
	enc.write(enc.buf[:n])
}

// writeU16BE writes the CRC-16, stored big-endian on the wire.
func (enc *Encoder) writeU16BE(v uint16) {
	const n = 2
	enc.reserve(n)
	binary.BigEndian.PutUint16(enc.buf[:n], v)
	enc.write(enc.buf[:n])
}

func (enc *Encoder) writeU32(v uint32) {
	const n = 4
	enc.reserve(n)
	binary.LittleEndian.PutUint32(enc.buf[:n], v)
	enc.write(enc.buf[:n])
}

func (enc *Encoder) reserve(n int) {
	if cap(enc.buf) < n {
		enc.buf = append(enc.buf[:len(enc.buf)], make([]byte, n-cap(enc.buf))...)
	}
}
