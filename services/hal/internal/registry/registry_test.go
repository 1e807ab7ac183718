package registry

import (
	"testing"
	"time"
)

type recordingBuilder struct{ got *BuildInput }

func (b recordingBuilder) Build(in BuildInput) (BuildOutput, error) {
	*b.got = in
	return BuildOutput{BusID: in.BusRefID, SampleEvery: time.Second, UARTs: []UARTRequest{{DevID: in.DeviceID, Unit: 1, Mode: "lines"}}}, nil
}

func TestLookupReturnsRegisteredBuilder(t *testing.T) {
	const typ = "test_recording"
	var got BuildInput
	if _, ok := Lookup(typ); !ok {
		RegisterBuilder(typ, recordingBuilder{got: &got})
	}
	b, ok := Lookup(typ)
	if !ok {
		t.Fatalf("lookup failed for %q", typ)
	}
	out, err := b.Build(BuildInput{DeviceID: "exp0", Type: typ, BusRefType: "i2c", BusRefID: "i2c1"})
	if err != nil {
		t.Fatal(err)
	}
	if got.DeviceID != "exp0" || out.BusID != "i2c1" || len(out.UARTs) != 1 || out.UARTs[0].DevID != "exp0" {
		t.Fatalf("input %+v output %+v", got, out)
	}
	if _, ok := Lookup("no_such_type"); ok {
		t.Fatal("unknown type found")
	}
}

func TestRegisterDuplicatePanics(t *testing.T) {
	const typ = "test_duplicate"
	var got BuildInput
	if _, ok := Lookup(typ); !ok {
		RegisterBuilder(typ, recordingBuilder{got: &got})
	}
	defer func() {
		if r := recover(); r == nil {
			t.Fatal("expected panic on duplicate registration")
		}
	}()
	RegisterBuilder(typ, recordingBuilder{got: &got})
}
