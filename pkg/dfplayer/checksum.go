// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package dfplayer

// CalculateChecksum computes the DFPlayer checksum for the given data:
// the 16-bit sum of all bytes, negated in two's complement.
func CalculateChecksum(data []byte) uint16 {
	var sum uint16
	for _, b := range data {
		sum += uint16(b)
	}
	return ^sum + 1
}
