package main

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"sc16is752-go/drivers/sc16is752"
	"sc16is752-go/drivers/sc16is752/sim"
)

func newTestSession(t *testing.T) (*session, *sim.Chip, *bytes.Buffer) {
	t.Helper()
	chip := sim.New(sc16is752.AddressDefault)
	dev, err := sc16is752.New(chip, sc16is752.Config{PollLimit: 10})
	if err != nil {
		t.Fatal(err)
	}
	out := &bytes.Buffer{}
	return newSession(dev, chip, out), chip, out
}

func TestScriptDrivesChip(t *testing.T) {
	s, chip, out := newTestSession(t)
	chip.SetInputs(0x30)

	script := `
# bring up channel B at 9600 7E2
ping
init b 9600 7E2
write a "hello there"
writehex a 0d0a
gpio dir 0x0f
gpio port 0x05
gpio get 0
gpio port
trigger a rx 4
feature b tx_disable off
`
	if err := s.runScript(context.Background(), strings.NewReader(script)); err != nil {
		t.Fatalf("runScript: %v", err)
	}
	if got := chip.Divisor(1); got != 12 {
		t.Fatalf("divisor = %d, want 12", got)
	}
	if lcr := chip.Reg(1, 0x03); lcr&0x3F != 0x02|0x04|0x18 {
		t.Fatalf("lcr = %#02x", lcr)
	}
	if got := string(chip.Transmitted(0)); got != "hello there\r\n" {
		t.Fatalf("transmitted %q", got)
	}
	if got := chip.Reg(0, 0x0A); got != 0x0F {
		t.Fatalf("iodir = %#02x", got)
	}
	if got := chip.Reg(0, 0x07); got&0x0F != 0x04 {
		t.Fatalf("tlr = %#02x", got)
	}
	// EFCR[2] set means transmitter disabled.
	if got := chip.Reg(1, 0x0F); got&0x04 == 0 {
		t.Fatalf("efcr = %#02x", got)
	}
	want := "ok 0x4d\nhigh\n0x35\n"
	if out.String() != want {
		t.Fatalf("output %q, want %q", out.String(), want)
	}
}

func TestScriptReadsReceiveFIFO(t *testing.T) {
	s, chip, out := newTestSession(t)
	chip.InjectRX(0, 'a', 'b', 'c', 'd')
	ctx := context.Background()

	for _, line := range []string{"levels a", "peek a", "read a 2", "readall a", "peek a"} {
		args := strings.Fields(line)
		if err := s.exec(ctx, args); err != nil {
			t.Fatalf("%s: %v", line, err)
		}
	}
	want := "rx=4 tx_space=64\n0x61\n\"ab\"\n\"cd\"\nempty\n"
	if out.String() != want {
		t.Fatalf("output %q, want %q", out.String(), want)
	}
}

func TestScriptReportsLineOfFailure(t *testing.T) {
	s, _, _ := newTestSession(t)
	err := s.runScript(context.Background(), strings.NewReader("ping\n\nbaud a 0\n"))
	if err == nil || !strings.HasPrefix(err.Error(), "line 3:") {
		t.Fatalf("err = %v", err)
	}
	if !errors.Is(err, sc16is752.ErrInvalidBaud) {
		t.Fatalf("err = %v, want ErrInvalidBaud", err)
	}
}

func TestExecRejectsBadInput(t *testing.T) {
	s, _, _ := newTestSession(t)
	ctx := context.Background()
	cases := [][]string{
		{"nosuch"},
		{"init", "a"},
		{"init", "c", "9600"},
		{"format", "a", "8X1"},
		{"feature", "a", "warp", "on"},
		{"gpio", "fly"},
		{"reset-fifo", "a", "sideways"},
	}
	for _, args := range cases {
		if err := s.exec(ctx, args); err == nil {
			t.Errorf("%v: want error", args)
		}
	}
	if err := s.exec(ctx, []string{"init", "a"}); !errors.Is(err, errUsage) {
		t.Errorf("short args: %v, want errUsage", err)
	}
}

func TestParseFormat(t *testing.T) {
	w, p, st, err := parseFormat("5O2")
	if err != nil || w != 5 || p != sc16is752.Odd || st != 2 {
		t.Fatalf("parseFormat = %d %v %d %v", w, p, st, err)
	}
	if _, _, _, err := parseFormat("8N"); err == nil {
		t.Fatal("short format accepted")
	}
}
