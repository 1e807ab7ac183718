package errcode

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"sc16is752-go/drivers/sc16is752"
)

func TestMapDriverErr(t *testing.T) {
	cases := []struct {
		err  error
		want Code
	}{
		{nil, OK},
		{sc16is752.ErrInvalidBaud, BadLineConfig},
		{sc16is752.ErrInvalidParity, BadLineConfig},
		{sc16is752.ErrInvalidPin, UnknownPin},
		{sc16is752.ErrUnresponsive, Unresponsive},
		{fmt.Errorf("write: %w", sc16is752.ErrInvalidChannel), BadChannel},
		{context.DeadlineExceeded, Timeout},
		{context.Canceled, Cancelled},
		{errors.New("i2c nack"), Error},
		{Busy, Busy},
	}
	for _, c := range cases {
		if got := MapDriverErr(c.err); got != c.want {
			t.Fatalf("%v: got %q want %q", c.err, got, c.want)
		}
	}
}

func TestWrapAndOf(t *testing.T) {
	if Wrap("op", nil) != nil {
		t.Fatal("Wrap(nil) must be nil")
	}
	err := Wrap("set_baud", sc16is752.ErrInvalidBaud)
	if Of(err) != BadLineConfig {
		t.Fatalf("Of=%q", Of(err))
	}
	if !errors.Is(err, sc16is752.ErrInvalidBaud) {
		t.Fatal("cause lost")
	}
	if err.Error() != "set_baud: bad_line_config" {
		t.Fatalf("Error()=%q", err.Error())
	}
	if Of(fmt.Errorf("ctx: %w", InvalidPayload)) != InvalidPayload {
		t.Fatal("wrapped Code not found")
	}
}
