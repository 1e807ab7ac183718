//go:build !(rp2040 || rp2350)

// Package strconvx is the strconv subset the services use, with a small
// MCU implementation.
package strconvx

import "strconv"

func Atoi(s string) (int, error)           { return strconv.Atoi(s) }
func FormatInt(i int64, base int) string   { return strconv.FormatInt(i, base) }
func FormatUint(u uint64, base int) string { return strconv.FormatUint(u, base) }
