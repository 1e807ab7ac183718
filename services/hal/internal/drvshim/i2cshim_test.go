package drvshim

import (
	"sync"
	"testing"

	"sc16is752-go/drivers/sc16is752/sim"
)

func TestFactoryWrapsOnce(t *testing.T) {
	chip := sim.New(0x4D)
	f := NewFactory(MapFactory{"i2c0": chip})

	a, ok := f.ByID("i2c0")
	if !ok {
		t.Fatal("bus not found")
	}
	b, _ := f.ByID("i2c0")
	if a != b {
		t.Fatal("same id must return the same shim")
	}
	if _, ok := f.ByID("i2c9"); ok {
		t.Fatal("unknown bus resolved")
	}
	if _, ok := NewFactory(nil).ByID("i2c0"); ok {
		t.Fatal("nil inner factory resolved a bus")
	}
}

func TestConcurrentTx(t *testing.T) {
	chip := sim.New(0x4D)
	s := NewI2C(chip)
	var wg sync.WaitGroup
	for g := 0; g < 4; g++ {
		wg.Add(1)
		go func(ch byte) {
			defer wg.Done()
			r := make([]byte, 1)
			for i := 0; i < 50; i++ {
				if err := s.Tx(0x4D, []byte{0x07<<3 | ch<<1, byte(i)}, nil); err != nil {
					t.Error(err)
					return
				}
				if err := s.Tx(0x4D, []byte{0x07<<3 | ch<<1}, r); err != nil {
					t.Error(err)
					return
				}
			}
		}(byte(g % 2))
	}
	wg.Wait()
	if s.Transfers() != 400 {
		t.Fatalf("transfers %d", s.Transfers())
	}
}
