package util

import (
	"testing"
	"time"
)

func TestDecodeJSON(t *testing.T) {
	type P struct {
		A int    `json:"a"`
		B string `json:"b"`
	}

	for name, in := range map[string]any{
		"bytes":  []byte(`{"a":1,"b":"x"}`),
		"string": `{"a":1,"b":"x"}`,
		"map":    map[string]any{"a": 1, "b": "x"},
		"typed":  P{A: 1, B: "x"},
		"ptr":    &P{A: 1, B: "x"},
	} {
		var p P
		if err := DecodeJSON(in, &p); err != nil {
			t.Fatalf("%s: decode failed: %v", name, err)
		}
		if p.A != 1 || p.B != "x" {
			t.Fatalf("%s: unexpected result: %+v", name, p)
		}
	}

	p := P{A: 7}
	if err := DecodeJSON(nil, &p); err != nil || p.A != 7 {
		t.Fatalf("nil source must leave dst alone: %+v %v", p, err)
	}
	if err := DecodeJSON("{", &p); err == nil {
		t.Fatal("expected syntax error")
	}
}

func TestClampDurationAndBoolToInt(t *testing.T) {
	if ClampDuration(time.Millisecond, 200*time.Millisecond, time.Hour) != 200*time.Millisecond {
		t.Fatal("clamp low failed")
	}
	if ClampDuration(2*time.Hour, 0, time.Hour) != time.Hour {
		t.Fatal("clamp high failed")
	}
	if ClampDuration(time.Second, 0, time.Hour) != time.Second {
		t.Fatal("clamp mid failed")
	}
	if BoolToInt(true) != 1 || BoolToInt(false) != 0 {
		t.Fatal("BoolToInt failed")
	}
}

func TestResetAndDrainTimer(t *testing.T) {
	tm := time.NewTimer(time.Hour)
	if !tm.Stop() {
		DrainTimer(tm)
	}
	ResetTimer(tm, 1*time.Millisecond)
	select {
	case <-tm.C:
	case <-time.After(50 * time.Millisecond):
		t.Fatal("timer did not fire after ResetTimer")
	}
	// Negative reset clamps to zero and should fire immediately.
	ResetTimer(tm, -1)
	select {
	case <-tm.C:
	case <-time.After(50 * time.Millisecond):
		t.Fatal("timer did not fire after negative ResetTimer")
	}
}
