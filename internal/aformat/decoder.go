// Copyright 2024 The EE119C Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package aformat

import (
	"encoding/binary"
	"io"

	"github.com/tpailevanian/EE119C/internal/crc16"
	"golang.org/x/xerrors"
)

// Decoder reads (and validates) AFE readout data from an underlying
// data source. Decoder computes CRC-16 checksums on the fly, during
// the acquisition of frames.
type Decoder struct {
	r io.Reader

	buf []byte
	err error
	crc crc16.Hash16
}

// NewDecoder creates a decoder that reads and validates data from r.
func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{
		r:   r,
		buf: make([]byte, 8),
		crc: crc16.New(nil),
	}
}

func (dec *Decoder) crcw(p []byte) {
	_, _ = dec.crc.Write(p) // can not fail.
}

func (dec *Decoder) reset() {
	dec.crc.Reset()
}

// DecodeHeader reads the run header from the stream.
func (dec *Decoder) DecodeHeader(hdr *RunHeader) error {
	v := dec.readU8()
	if dec.err != nil {
		return xerrors.Errorf("aformat: could not read run header marker: %w", dec.err)
	}
	if v != runHeader {
		return xerrors.Errorf("aformat: could not read run header marker (got=0x%x)", v)
	}

	body := make([]byte, 13) // version (1) + run (4) + start (4) + serial (4)
	dec.read(body)
	if dec.err != nil {
		return xerrors.Errorf("aformat: could not read run header: %w", dec.err)
	}

	hdr.Version = body[0]
	hdr.Run = binary.LittleEndian.Uint32(body[1 : 1+4])
	hdr.UTC = binary.LittleEndian.Uint32(body[5 : 5+4])
	hdr.Serial = binary.LittleEndian.Uint32(body[9 : 9+4])

	return dec.err
}

// Decode reads the next frame from the stream and validates its
// CRC-16 checksum and trailer marker.
func (dec *Decoder) Decode(frame *Frame) error {
	dec.reset()

	v := dec.readU8()
	if dec.err != nil {
		return xerrors.Errorf("aformat: could not read frame header marker: %w", dec.err)
	}
	if v != frHeader {
		return xerrors.Errorf("aformat: could not read frame header marker (got=0x%x)", v)
	}
	dec.crcU8(v)

	body := make([]byte, 29) // cycle (4) + flags (1) + raw (8) + filtered (16)
	dec.read(body)
	if dec.err != nil {
		return xerrors.Errorf("aformat: could not read frame body: %w", dec.err)
	}
	dec.crcw(body)

	frame.Cycle = binary.LittleEndian.Uint32(body[0 : 0+4])
	frame.Flags = body[4]
	for i := range frame.Raw {
		beg := 5 + i*2
		frame.Raw[i] = binary.LittleEndian.Uint16(body[beg : beg+2])
	}
	for i := range frame.Flt {
		beg := 13 + i*4
		frame.Flt[i] = int32(binary.LittleEndian.Uint32(body[beg : beg+4]))
	}

	var (
		compCRC = dec.crc.Sum16()
		recvCRC = dec.readU16BE()
	)
	if dec.err != nil {
		return xerrors.Errorf("aformat: could not receive CRC-16: %w", dec.err)
	}
	if compCRC != recvCRC {
		return xerrors.Errorf(
			"aformat: inconsistent CRC: recv=0x%04x comp=0x%04x",
			recvCRC, compCRC,
		)
	}

	v = dec.readU8()
	if dec.err != nil {
		return xerrors.Errorf("aformat: could not read frame trailer marker: %w", dec.err)
	}
	if v != frTrailer {
		return xerrors.Errorf("aformat: could not read frame trailer marker (got=0x%x)", v)
	}

	return dec.err
}

func (dec *Decoder) read(p []byte) {
	if dec.err != nil {
		return
	}
	_, dec.err = io.ReadFull(dec.r, p)
}

func (dec *Decoder) readU8() uint8 {
	dec.load(1)
	return dec.buf[0]
}

// readU16BE reads the CRC-16, stored big-endian on the wire.
func (dec *Decoder) readU16BE() uint16 {
	const n = 2
	dec.load(n)
	return binary.BigEndian.Uint16(dec.buf[:n])
}

func (dec *Decoder) load(n int) {
	if dec.err != nil {
		return
	}
	if cap(dec.buf) < n {
		dec.buf = append(dec.buf[:len(dec.buf)], make([]byte, n-cap(dec.buf))...)
	}
	dec.buf = dec.buf[:n]
	_, dec.err = io.ReadFull(dec.r, dec.buf[:n])
}

func (dec *Decoder) crcU8(v uint8) {
	dec.buf[0] = v
	dec.crcw(dec.buf[:1])
}
