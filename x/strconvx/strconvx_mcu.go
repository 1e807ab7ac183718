//go:build rp2040 || rp2350

package strconvx

import "errors"

var (
	ErrSyntax = errors.New("invalid syntax")
	ErrRange  = errors.New("value out of range")
)

const digits = "0123456789abcdefghijklmnopqrstuvwxyz"

// Atoi parses a base-10 int with an optional sign.
func Atoi(s string) (int, error) {
	if s == "" {
		return 0, ErrSyntax
	}
	neg := false
	switch s[0] {
	case '+', '-':
		neg = s[0] == '-'
		s = s[1:]
		if s == "" {
			return 0, ErrSyntax
		}
	}
	const limit = uint64(1<<(intSize-1) - 1)
	var n uint64
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c < '0' || c > '9' {
			return 0, ErrSyntax
		}
		n = n*10 + uint64(c-'0')
		if n > limit+1 || (n == limit+1 && !neg) {
			return 0, ErrRange
		}
	}
	if neg {
		return -int(n), nil
	}
	return int(n), nil
}

const intSize = 32 << (^uint(0) >> 63)

// FormatInt formats i in base 2..36; other bases fall back to 10.
func FormatInt(i int64, base int) string {
	if i < 0 {
		return "-" + FormatUint(uint64(-i), base)
	}
	return FormatUint(uint64(i), base)
}

func FormatUint(u uint64, base int) string {
	if base < 2 || base > 36 {
		base = 10
	}
	if u == 0 {
		return "0"
	}
	var buf [64]byte
	i := len(buf)
	b := uint64(base)
	for u > 0 {
		i--
		buf[i] = digits[u%b]
		u /= b
	}
	return string(buf[i:])
}
