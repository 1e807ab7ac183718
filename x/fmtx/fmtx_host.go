//go:build !(rp2040 || rp2350)

// Package fmtx is the formatting subset the services use. Host builds use
// fmt; MCU builds get a small formatter without reflection.
package fmtx

import "fmt"

func Sprintf(format string, a ...any) string { return fmt.Sprintf(format, a...) }
func Errorf(format string, a ...any) error   { return fmt.Errorf(format, a...) }
