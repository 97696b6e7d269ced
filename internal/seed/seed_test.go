package seed

import (
	"fmt"
	"testing"
)

func TestHashKnownValues(t *testing.T) {
	// Reference FNV-1a 32-bit values.
	tests := []struct {
		key  string
		want uint32
	}{
		{"", 2166136261},
		{"a", 0xe40c292c},
		{"foobar", 0xbf9cf968},
	}
	for _, tt := range tests {
		if got := Hash(tt.key); got != tt.want {
			t.Errorf("Hash(%q) = %#x, want %#x", tt.key, got, tt.want)
		}
	}
}

func TestUnitRangeAndDeterminism(t *testing.T) {
	keys := []string{"", "A", "B", "asyncio", "concept:x", "概念", "😀 emoji", "a very long key with spaces"}
	for i := 0; i < 500; i++ {
		keys = append(keys, fmt.Sprintf("node-%d", i))
	}

	for _, k := range keys {
		v := Unit(k)
		if v < 0 || v >= 1 {
			t.Errorf("Unit(%q) = %f, outside [0,1)", k, v)
		}
		if again := Unit(k); again != v {
			t.Errorf("Unit(%q) not deterministic: %f then %f", k, v, again)
		}
	}
}

func TestPointAxesDiffer(t *testing.T) {
	same := 0
	for i := 0; i < 100; i++ {
		x, y := Point(fmt.Sprintf("n%d", i))
		if x == y {
			same++
		}
	}
	if same > 5 {
		t.Errorf("x == y for %d of 100 keys; axes should look independent", same)
	}
}

func TestUnitSurrogatePairs(t *testing.T) {
	// A rune outside the BMP hashes as two UTF-16 code units.
	got := Hash("😀")
	h := uint32(fnvOffset)
	for _, c := range []uint16{0xD83D, 0xDE00} {
		h ^= uint32(c)
		h *= fnvPrime
	}
	if got != h {
		t.Errorf("Hash(emoji) = %#x, want %#x", got, h)
	}
}
