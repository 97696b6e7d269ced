// Package seed maps string keys to stable pseudo-random values.
//
// The starfield uses it wherever something should look random but must not
// move between refreshes: initial node positions and the decorative
// background stars.
package seed

import "unicode/utf16"

const (
	fnvOffset = 2166136261
	fnvPrime  = 16777619

	// foldRange is the resolution of Unit: results are multiples of 1/foldRange.
	foldRange = 10000
)

// Hash returns the 32-bit FNV-1a hash of key's UTF-16 code units.
// Hashing code units rather than bytes keeps the value identical to what a
// browser computes with charCodeAt for the same key.
func Hash(key string) uint32 {
	h := uint32(fnvOffset)
	for _, c := range utf16.Encode([]rune(key)) {
		h ^= uint32(c)
		h *= fnvPrime
	}
	return h
}

// Unit returns a value in [0,1) derived from key. Same key, same value.
func Unit(key string) float64 {
	return float64(Hash(key)%foldRange) / foldRange
}

// Point returns two independent-looking unit values for key, one per axis.
func Point(key string) (x, y float64) {
	return Unit(key + ":x"), Unit(key + ":y")
}
