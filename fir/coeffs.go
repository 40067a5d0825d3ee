// Copyright 2024 The EE119C Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package fir

// coeffs is the fixed coefficient table of the filter: a 127-tap
// Hamming-windowed sinc low-pass prototype quantized to Q15, symmetric
// about tap 63 (linear phase), with unity DC gain (the taps sum to
// exactly 1<<15).
//
// The absolute sum of the taps is 59172, so the worst-case accumulator
// magnitude is 32768*59172 < 1<<31 per product chain and well inside
// the 34-bit accumulator; the shifted output magnitude stays below
// 1<<17 and always fits the 18-bit output.
//
// The table is frozen at build time. Changing it requires re-deriving
// the accumulator and output width guarantees above.
var coeffs = [NumTaps]int16{
	3, -3, -10, -14, -15, -13, -7, 3,
	13, 22, 27, 25, 16, 0, -19, -37,
	-49, -48, -35, -8, 26, 59, 83, 87,
	68, 27, -29, -87, -131, -146, -123, -64,
	23, 118, 195, 231, 210, 129, 0, -148,
	-280, -355, -347, -242, -56, 177, 400, 552,
	581, 456, 181, -199, -606, -938, -1088, -970,
	-534, 214, 1210, 2341, 3457, 4399, 5029, 5246,
	5029, 4399, 3457, 2341, 1210, 214, -534, -970,
	-1088, -938, -606, -199, 181, 456, 581, 552,
	400, 177, -56, -242, -347, -355, -280, -148,
	0, 129, 210, 231, 195, 118, 23, -64,
	-123, -146, -131, -87, -29, 27, 68, 87,
	83, 59, 26, -8, -35, -48, -49, -37,
	-19, 0, 16, 25, 27, 22, 13, 3,
	-7, -13, -15, -14, -10, -3, 3,
}

// Coeffs returns a copy of the fixed Q15 coefficient table.
func Coeffs() []int16 {
	cs := make([]int16, NumTaps)
	copy(cs, coeffs[:])
	return cs
}
