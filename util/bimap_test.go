package util

import "testing"

func TestBiMapForwardReverse(t *testing.T) {
	bm := NewBiMap(map[string]int{
		"one": 1,
		"two": 2,
	})

	if v, ok := bm.Map("one"); !ok || v != 1 {
		t.Errorf("Map(one) = %d, %v; want 1, true", v, ok)
	}

	if k, ok := bm.RMap(2); !ok || k != "two" {
		t.Errorf("RMap(2) = %s, %v; want two, true", k, ok)
	}

	if _, ok := bm.Map("three"); ok {
		t.Error("Map(three) should not succeed")
	}
}

// Several keys may share a value; the reverse direction must be stable and
// owned by the key inserted first.
func TestBiMapManyToOne(t *testing.T) {
	bm := NewBiMap(map[string]int{}).
		Add("first", 7).
		Add("second", 7)

	if k := bm.MustRMap(7); k != "first" {
		t.Errorf("MustRMap(7) = %s; want first", k)
	}

	if v := bm.MustMap("second"); v != 7 {
		t.Errorf("MustMap(second) = %d; want 7", v)
	}
}

func TestBitMaskRemap(t *testing.T) {
	bm := NewBiMap(map[uint32]uint32{
		0x100: 1,
		0x200: 2,
		0x800: 4,
	})

	if out := MapBitMask(bm, 0x300); out != 3 {
		t.Errorf("MapBitMask(0x300) = %d; want 3", out)
	}

	if out := RMapBitMask(bm, 5); out != 0x900 {
		t.Errorf("RMapBitMask(5) = %#x; want 0x900", out)
	}

	if out := MapBitMask(bm, 0); out != 0 {
		t.Errorf("MapBitMask(0) = %d; want 0", out)
	}
}
