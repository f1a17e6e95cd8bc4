package latex

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"
)

// NumberFormat formats table cells that hold numbers. Two notations are
// accepted: str.format style replacement fields ("{0:.2f}", "{:,.1f} euro",
// "{0:.1%}") and plain fmt verbs ("%.2f"). A format with neither is emitted literally.
type NumberFormat struct {
	src    string
	verb   bool // fmt verb notation
	pieces []fmtPiece
}

type fmtPiece struct {
	literal string
	field   *fieldSpec
}

type fieldSpec struct {
	fill      rune
	align     byte // one of '<', '>', '^', '=' or 0 for default
	sign      byte // '+', '-', ' '
	zero      bool
	width     int
	grouping  byte // ',' or '_'
	precision int  // -1 when absent
	typ       byte // f F e E g G n % or 0
}

// ErrInvalidNumberFormat is wrapped by every number format parse error.
var ErrInvalidNumberFormat = errors.New("invalid number format")

// ParseNumberFormat compiles a number format.
func ParseNumberFormat(s string) (*NumberFormat, error) {
	nf := &NumberFormat{src: s}
	if !strings.Contains(s, "{") && !strings.Contains(s, "}") {
		if strings.Contains(s, "%") {
			nf.verb = true
		} else {
			nf.pieces = []fmtPiece{{literal: s}}
		}
		return nf, nil
	}

	lit := strings.Builder{}
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '{' && i+1 < len(s) && s[i+1] == '{':
			lit.WriteByte('{')
			i++
		case c == '}' && i+1 < len(s) && s[i+1] == '}':
			lit.WriteByte('}')
			i++
		case c == '}':
			return nil, fmt.Errorf("%w %q: single '}'", ErrInvalidNumberFormat, s)
		case c == '{':
			end := strings.IndexByte(s[i:], '}')
			if end < 0 {
				return nil, fmt.Errorf("%w %q: unterminated field", ErrInvalidNumberFormat, s)
			}
			f, err := parseField(s[i+1 : i+end])
			if err != nil {
				return nil, fmt.Errorf("%w %q: %v", ErrInvalidNumberFormat, s, err)
			}
			if lit.Len() > 0 {
				nf.pieces = append(nf.pieces, fmtPiece{literal: lit.String()})
				lit.Reset()
			}
			nf.pieces = append(nf.pieces, fmtPiece{field: f})
			i += end
		default:
			lit.WriteByte(c)
		}
	}
	if lit.Len() > 0 {
		nf.pieces = append(nf.pieces, fmtPiece{literal: lit.String()})
	}
	return nf, nil
}

func (nf *NumberFormat) String() string {
	return nf.src
}

// Format renders v.
func (nf *NumberFormat) Format(v float64) string {
	if nf.verb {
		return fmt.Sprintf(nf.src, v)
	}
	b := strings.Builder{}
	for _, p := range nf.pieces {
		if p.field == nil {
			b.WriteString(p.literal)
		} else {
			b.WriteString(p.field.format(v))
		}
	}
	return b.String()
}

func parseField(s string) (*fieldSpec, error) {
	name, spec, _ := strings.Cut(s, ":")
	if conv := strings.IndexByte(name, '!'); conv >= 0 {
		name = name[:conv]
	}
	if name != "" && name != "0" {
		return nil, fmt.Errorf("only field 0 is available, got %q", name)
	}

	f := &fieldSpec{fill: ' ', precision: -1}
	if spec == "" {
		return f, nil
	}

	i := 0
	isAlign := func(c byte) bool { return c == '<' || c == '>' || c == '^' || c == '=' }
	if r, size := utf8.DecodeRuneInString(spec); size < len(spec) && isAlign(spec[size]) {
		f.fill, f.align = r, spec[size]
		i = size + 1
	} else if isAlign(spec[0]) {
		f.align = spec[0]
		i = 1
	}
	if i < len(spec) && (spec[i] == '+' || spec[i] == '-' || spec[i] == ' ') {
		f.sign = spec[i]
		i++
	}
	if i < len(spec) && spec[i] == '#' {
		i++
	}
	if i < len(spec) && spec[i] == '0' {
		f.zero = true
		i++
	}
	start := i
	for i < len(spec) && spec[i] >= '0' && spec[i] <= '9' {
		i++
	}
	if i > start {
		f.width, _ = strconv.Atoi(spec[start:i])
	}
	if i < len(spec) && (spec[i] == ',' || spec[i] == '_') {
		f.grouping = spec[i]
		i++
	}
	if i < len(spec) && spec[i] == '.' {
		i++
		start = i
		for i < len(spec) && spec[i] >= '0' && spec[i] <= '9' {
			i++
		}
		if i == start {
			return nil, errors.New("format specifier missing precision")
		}
		f.precision, _ = strconv.Atoi(spec[start:i])
	}
	if i < len(spec) {
		switch spec[i] {
		case 'f', 'F', 'e', 'E', 'g', 'G', 'n', '%':
			f.typ = spec[i]
			i++
		default:
			return nil, fmt.Errorf("unknown format code %q for a number", spec[i])
		}
	}
	if i != len(spec) {
		return nil, fmt.Errorf("invalid format specifier %q", spec)
	}
	return f, nil
}

func (f *fieldSpec) format(v float64) string {
	neg := math.Signbit(v) && !math.IsNaN(v)
	if neg {
		v = -v
	}

	var digits string
	switch {
	case math.IsNaN(v):
		digits = "nan"
	case math.IsInf(v, 0):
		digits = "inf"
	default:
		digits = f.digits(v)
	}
	if f.typ == 'F' || f.typ == 'E' || f.typ == 'G' {
		digits = strings.ToUpper(digits)
	}
	if f.grouping != 0 {
		digits = group(digits, f.grouping)
	}

	sign := ""
	switch {
	case neg:
		sign = "-"
	case f.sign == '+':
		sign = "+"
	case f.sign == ' ':
		sign = " "
	}
	return f.pad(sign, digits)
}

func (f *fieldSpec) digits(v float64) string {
	prec := f.precision
	switch f.typ {
	case 'f', 'F':
		if prec < 0 {
			prec = 6
		}
		return strconv.FormatFloat(v, 'f', prec, 64)
	case 'e', 'E':
		if prec < 0 {
			prec = 6
		}
		return strconv.FormatFloat(v, 'e', prec, 64)
	case '%':
		if prec < 0 {
			prec = 6
		}
		return strconv.FormatFloat(v*100, 'f', prec, 64) + "%"
	case 'g', 'G', 'n':
		if prec < 0 {
			prec = 6
		}
		if prec == 0 {
			prec = 1
		}
		return strconv.FormatFloat(v, 'g', prec, 64)
	}

	// no presentation type
	if prec >= 0 {
		if prec == 0 {
			prec = 1
		}
		s := strconv.FormatFloat(v, 'g', prec, 64)
		if !strings.ContainsAny(s, ".e") {
			s += ".0"
		}
		return s
	}
	if v != 0 && (v < 1e-4 || v >= 1e16) {
		return strconv.FormatFloat(v, 'e', -1, 64)
	}
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

func (f *fieldSpec) pad(sign, digits string) string {
	n := utf8.RuneCountInString(sign) + utf8.RuneCountInString(digits)
	if n >= f.width {
		return sign + digits
	}
	fill, align := f.fill, f.align
	if f.zero && align == 0 {
		fill, align = '0', '='
	}
	if align == 0 {
		align = '>'
	}
	padding := f.width - n
	rep := func(k int) string { return strings.Repeat(string(fill), k) }
	switch align {
	case '<':
		return sign + digits + rep(padding)
	case '^':
		left := padding / 2
		return rep(left) + sign + digits + rep(padding-left)
	case '=':
		return sign + rep(padding) + digits
	default:
		return rep(padding) + sign + digits
	}
}

// group inserts sep every three digits of the integer part.
func group(digits string, sep byte) string {
	end := strings.IndexFunc(digits, func(r rune) bool { return r < '0' || r > '9' })
	if end < 0 {
		end = len(digits)
	}
	intPart, rest := digits[:end], digits[end:]
	if len(intPart) <= 3 {
		return digits
	}
	b := strings.Builder{}
	lead := len(intPart) % 3
	if lead > 0 {
		b.WriteString(intPart[:lead])
	}
	for i := lead; i < len(intPart); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(sep)
		}
		b.WriteString(intPart[i : i+3])
	}
	return b.String() + rest
}
