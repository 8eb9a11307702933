// SPDX-License-Identifier: MIT
/*
Package bitint provides the power-of-two helpers used to size FFT
workspaces for correlation.

All functions are allocation free and constant time, so they can be
called while (re)building workspaces without touching the heap.

	// Padded transform length for a linear autocorrelation of 1024 samples.
	n := bitint.PaddedLength(1024) // 2048

NextPowerOfTwo subtracts one before taking the bit length so that an
exact power of two maps onto itself:

	size 8:  bits.Len(7) = 3, 1<<3 = 8
	size 9:  bits.Len(8) = 4, 1<<4 = 16
*/
package bitint

import "math/bits"

// NextPowerOfTwo returns the smallest power of 2 >= size.
// Zero and negative sizes return 1.
func NextPowerOfTwo(size int) int {
	if size <= 1 {
		return 1
	}
	return 1 << bits.Len(uint(size-1))
}

// IsPowerOfTwo reports whether n is a positive power of 2.
func IsPowerOfTwo(n int) bool {
	return n > 0 && (n&(n-1)) == 0
}

// PaddedLength returns the transform length needed to compute every lag of
// a linear (non-circular) autocorrelation of n samples with a real FFT.
// Padding to at least 2n-1 keeps the circular wrap-around out of lags 0..n-1.
func PaddedLength(n int) int {
	if n <= 0 {
		return 1
	}
	return NextPowerOfTwo(2*n - 1)
}
