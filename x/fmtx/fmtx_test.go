package fmtx

import (
	"errors"
	"testing"
)

func TestSprintfSubset(t *testing.T) {
	for _, c := range []struct {
		format string
		args   []any
		want   string
	}{
		{"unknown transport type: %q", []any{"can"}, `unknown transport type: "can"`},
		{"frame too large: %d", []any{70000}, "frame too large: 70000"},
		{"%v (retry in %v)", []any{errors.New("eof"), "1s"}, "eof (retry in 1s)"},
		{"addr %x", []any{uint8(0x4d)}, "addr 4d"},
		{"100%%", nil, "100%"},
	} {
		if got := Sprintf(c.format, c.args...); got != c.want {
			t.Errorf("Sprintf(%q) = %q, want %q", c.format, got, c.want)
		}
	}
}

func TestErrorfWraps(t *testing.T) {
	base := errors.New("nack")
	err := Errorf("sc16is752 exp0: %w", base)
	if !errors.Is(err, base) {
		t.Fatalf("%v does not wrap base", err)
	}
	if err.Error() != "sc16is752 exp0: nack" {
		t.Fatalf("message %q", err.Error())
	}
}
