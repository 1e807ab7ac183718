//go:build linux && !(rp2040 || rp2350)

package platform

import (
	"errors"
	"testing"
)

func TestSMBusRejectsMultiByteFrames(t *testing.T) {
	s := NewSMBus(99)
	cases := []struct{ w, r []byte }{
		{nil, nil},
		{[]byte{0x00}, nil},
		{[]byte{0x00, 1, 2}, nil},
		{[]byte{0x00}, make([]byte, 2)},
	}
	for i, c := range cases {
		if err := s.Tx(0x4D, c.w, c.r); !errors.Is(err, ErrFrame) {
			t.Fatalf("case %d: err=%v", i, err)
		}
	}
	if s.open {
		t.Fatal("adapter opened for a rejected frame")
	}
}

func TestBusIndex(t *testing.T) {
	for id, want := range map[string]int{"i2c0": 0, "i2c12": 12, "3": 3} {
		if n, ok := BusIndex(id); !ok || n != want {
			t.Fatalf("%q -> %d,%v", id, n, ok)
		}
	}
	for _, id := range []string{"", "i2c", "spi0", "i2c-1"} {
		if _, ok := BusIndex(id); ok {
			t.Fatalf("%q accepted", id)
		}
	}
}

func TestLinuxFactoryReusesAdapters(t *testing.T) {
	f := DefaultI2CFactory()
	a, ok := f.ByID("i2c1")
	if !ok {
		t.Fatal("i2c1 missing")
	}
	b, _ := f.ByID("1")
	if a != b {
		t.Fatal("same index gave different adapters")
	}
	if _, ok := f.ByID("uart0"); ok {
		t.Fatal("bad id accepted")
	}
}
