//go:build rp2040 || rp2350

package fmtx

import "sc16is752-go/x/strconvx"

// Verbs: %s %q %d %x %X %v %t %w %%. Flags, width and precision are skipped.

func Sprintf(format string, a ...any) string {
	var p printer
	p.format(format, a)
	return string(p.buf)
}

// Errorf wraps the first %w operand so errors.Is and errors.As still work.
func Errorf(format string, a ...any) error {
	var p printer
	p.format(format, a)
	if p.wrapped != nil {
		return &wrapError{msg: string(p.buf), err: p.wrapped}
	}
	return &stringError{string(p.buf)}
}

type stringError struct{ s string }

func (e *stringError) Error() string { return e.s }

type wrapError struct {
	msg string
	err error
}

func (e *wrapError) Error() string { return e.msg }
func (e *wrapError) Unwrap() error { return e.err }

type stringer interface{ String() string }

type printer struct {
	buf     []byte
	wrapped error
}

func (p *printer) str(s string) { p.buf = append(p.buf, s...) }

func (p *printer) format(format string, args []any) {
	ai := 0
	for i := 0; i < len(format); i++ {
		c := format[i]
		if c != '%' {
			p.buf = append(p.buf, c)
			continue
		}
		// skip flags, width and precision
		for i++; i < len(format) && isFlag(format[i]); i++ {
		}
		if i >= len(format) {
			p.str("%!(NOVERB)")
			return
		}
		verb := format[i]
		if verb == '%' {
			p.buf = append(p.buf, '%')
			continue
		}
		if ai >= len(args) {
			p.str("%!")
			p.buf = append(p.buf, verb)
			p.str("(MISSING)")
			continue
		}
		arg := args[ai]
		ai++
		switch verb {
		case 'w':
			if err, ok := arg.(error); ok && p.wrapped == nil {
				p.wrapped = err
			}
			p.value(arg)
		case 'q':
			p.quote(arg)
		case 'd':
			p.integer(arg, 10, false)
		case 'x', 'X':
			p.integer(arg, 16, verb == 'X')
		default:
			p.value(arg)
		}
	}
}

func isFlag(c byte) bool {
	return c == '+' || c == '-' || c == '#' || c == ' ' || c == '.' || ('0' <= c && c <= '9')
}

func (p *printer) value(v any) {
	switch x := v.(type) {
	case nil:
		p.str("<nil>")
	case string:
		p.str(x)
	case []byte:
		p.buf = append(p.buf, x...)
	case error:
		p.str(x.Error())
	case stringer:
		p.str(x.String())
	case bool:
		if x {
			p.str("true")
		} else {
			p.str("false")
		}
	case float64:
		p.str(strconvx.FormatInt(int64(x), 10))
	case float32:
		p.str(strconvx.FormatInt(int64(x), 10))
	default:
		p.integer(v, 10, false)
	}
}

func (p *printer) integer(v any, base int, upper bool) {
	var s string
	switch x := v.(type) {
	case int:
		s = strconvx.FormatInt(int64(x), base)
	case int8:
		s = strconvx.FormatInt(int64(x), base)
	case int16:
		s = strconvx.FormatInt(int64(x), base)
	case int32:
		s = strconvx.FormatInt(int64(x), base)
	case int64:
		s = strconvx.FormatInt(x, base)
	case uint:
		s = strconvx.FormatUint(uint64(x), base)
	case uint8:
		s = strconvx.FormatUint(uint64(x), base)
	case uint16:
		s = strconvx.FormatUint(uint64(x), base)
	case uint32:
		s = strconvx.FormatUint(uint64(x), base)
	case uint64:
		s = strconvx.FormatUint(x, base)
	case uintptr:
		s = strconvx.FormatUint(uint64(x), base)
	default:
		p.str("%!(BADTYPE)")
		return
	}
	if upper {
		b := []byte(s)
		for i, c := range b {
			if 'a' <= c && c <= 'z' {
				b[i] = c - 'a' + 'A'
			}
		}
		s = string(b)
	}
	p.str(s)
}

func (p *printer) quote(v any) {
	var s string
	switch x := v.(type) {
	case string:
		s = x
	case []byte:
		s = string(x)
	default:
		p.value(v)
		return
	}
	const hexd = "0123456789abcdef"
	p.buf = append(p.buf, '"')
	for i := 0; i < len(s); i++ {
		switch c := s[i]; {
		case c == '"' || c == '\\':
			p.buf = append(p.buf, '\\', c)
		case c == '\n':
			p.str(`\n`)
		case c == '\r':
			p.str(`\r`)
		case c == '\t':
			p.str(`\t`)
		case c < 0x20 || c >= 0x7f:
			p.buf = append(p.buf, '\\', 'x', hexd[c>>4], hexd[c&0xF])
		default:
			p.buf = append(p.buf, c)
		}
	}
	p.buf = append(p.buf, '"')
}
