package platform

import "testing"

func TestDefaultFactoryProvidesI2C0(t *testing.T) {
	if len(plan().I2C) > 0 {
		t.Skip("board plan selected")
	}
	if _, ok := DefaultI2CFactory().ByID("i2c0"); !ok {
		t.Fatal("i2c0 missing")
	}
}

func TestInitialConfigWithoutBoardIsEmpty(t *testing.T) {
	if len(plan().I2C) > 0 {
		t.Skip("board plan selected")
	}
	if n := len(InitialConfig().Devices); n != 0 {
		t.Fatalf("devices = %d", n)
	}
}
