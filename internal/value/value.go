// Package value implements the system's tagged scalar type and its normalized
// map-key form, OrderKey. Every record cell, query literal, and group key
// passes through these two types.
package value

import (
	"fmt"
	"math"
	"strconv"
)

// Kind tags which variant a Value holds.
type Kind uint8

const (
	KindNull Kind = iota
	KindUInt
	KindInt
	KindFloat
	KindString
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindUInt:
		return "uint"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	default:
		return "unknown"
	}
}

// Value is a small, cheap-to-copy tagged scalar. Only the field matching Kind
// is meaningful.
type Value struct {
	Kind Kind
	U    uint64
	I    int64
	F    float64
	S    string
}

func Null() Value              { return Value{Kind: KindNull} }
func UInt(v uint64) Value      { return Value{Kind: KindUInt, U: v} }
func Int(v int64) Value        { return Value{Kind: KindInt, I: v} }
func Float(v float64) Value    { return Value{Kind: KindFloat, F: v} }
func String(v string) Value    { return Value{Kind: KindString, S: v} }
func (v Value) IsNull() bool   { return v.Kind == KindNull }
func (v Value) IsNumber() bool { return v.Kind == KindUInt || v.Kind == KindInt || v.Kind == KindFloat }

// Render formats a value for CSV-style output: natural decimal form for
// numbers, the raw bytes for strings, empty for Null.
func (v Value) Render() string {
	switch v.Kind {
	case KindNull:
		return ""
	case KindUInt:
		return strconv.FormatUint(v.U, 10)
	case KindInt:
		return strconv.FormatInt(v.I, 10)
	case KindFloat:
		return strconv.FormatFloat(v.F, 'g', -1, 64)
	case KindString:
		return v.S
	default:
		return ""
	}
}

func (v Value) String() string {
	return fmt.Sprintf("%s(%s)", v.Kind, v.Render())
}

// OrderKey is the normalized, comparable form of a Value used as a map key
// and for total ordering. It is a plain comparable struct on purpose: Go's
// built-in map hashing over comparable structs gives us a hash consistent
// with equality for free, as long as normalization collapses every
// mathematically-equal number (regardless of UInt/Int/Float origin) onto
// identical field values.
type OrderKey struct {
	kind okKind
	num  numKey
	str  string
}

type okKind uint8

const (
	okNull okKind = iota
	okNumber
	okString
)

// numKey is a normalized decimal (sign, mantissa, exponent) triple:
// value == (-1)^neg * mantissa * 10^exponent, with mantissa carrying no
// trailing decimal zeros once exponent is applied (so 1.50 and 1.5 and the
// integer 15 scaled by 10^-1 all collapse to the same triple). nan is a
// distinct sentinel that always equals itself and sorts after every finite
// number, per the spec's "NaN equals NaN" rule.
type numKey struct {
	nan      bool
	neg      bool
	mantissa uint64
	exponent int32
}

func NullKey() OrderKey { return OrderKey{kind: okNull} }

func StringKey(s string) OrderKey { return OrderKey{kind: okString, str: s} }

func UIntKey(v uint64) OrderKey {
	return OrderKey{kind: okNumber, num: normalizeUint(v)}
}

func IntKey(v int64) OrderKey {
	if v >= 0 {
		return UIntKey(uint64(v))
	}
	k := normalizeUint(uint64(-v))
	k.neg = true
	return OrderKey{kind: okNumber, num: k}
}

func FloatKey(v float64) OrderKey {
	if math.IsNaN(v) {
		return OrderKey{kind: okNumber, num: numKey{nan: true}}
	}
	return OrderKey{kind: okNumber, num: normalizeFloat(v)}
}

// OrderKey derives a Value's normalized map-key form.
func (v Value) OrderKey() OrderKey {
	switch v.Kind {
	case KindNull:
		return NullKey()
	case KindUInt:
		return UIntKey(v.U)
	case KindInt:
		return IntKey(v.I)
	case KindFloat:
		return FloatKey(v.F)
	case KindString:
		return StringKey(v.S)
	default:
		return NullKey()
	}
}

// AsValue reconstructs a rendering-ready Value from a group key (used by the
// group-by aggregator to project the key column back out).
func (k OrderKey) AsValue() Value {
	switch k.kind {
	case okNull:
		return Null()
	case okString:
		return String(k.str)
	case okNumber:
		n := k.num
		if n.nan {
			return Float(math.NaN())
		}
		if n.exponent == 0 {
			if n.neg {
				return Int(-int64(n.mantissa))
			}
			return UInt(n.mantissa)
		}
		if n.exponent > 0 {
			m := n.mantissa
			overflow := false
			for i := int32(0); i < n.exponent; i++ {
				next := m * 10
				if m != 0 && next/10 != m {
					overflow = true
					break
				}
				m = next
			}
			if !overflow {
				if n.neg {
					return Int(-int64(m))
				}
				return UInt(m)
			}
		}
		f := float64(n.mantissa) * math.Pow10(int(n.exponent))
		if n.neg {
			f = -f
		}
		return Float(f)
	default:
		return Null()
	}
}

// ParseCell implements the system's one shared cell-typing cascade, used
// both for CSV import and for WHERE-clause literal tokens: empty → Null;
// parses as an unsigned integer → UInt; else parses as a signed integer →
// Int; else parses as a float → Float; else String.
func ParseCell(s string) Value {
	if s == "" {
		return Null()
	}
	if u, err := strconv.ParseUint(s, 10, 64); err == nil {
		return UInt(u)
	}
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return Int(i)
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return Float(f)
	}
	return String(s)
}

func normalizeUint(v uint64) numKey {
	if v == 0 {
		return numKey{}
	}
	exp := int32(0)
	for v%10 == 0 {
		v /= 10
		exp++
	}
	return numKey{mantissa: v, exponent: exp}
}

// normalizeFloat decomposes a finite float into a (sign, mantissa, exponent)
// triple using its shortest exact round-trip decimal representation, so a
// float literal and an integer literal of the same mathematical value
// normalize identically.
func normalizeFloat(f float64) numKey {
	neg := math.Signbit(f)
	if f == 0 {
		return numKey{} // +0 and -0 both collapse to the zero triple
	}
	if neg {
		f = -f
	}
	s := strconv.FormatFloat(f, 'f', -1, 64)
	dot := -1
	for i, c := range s {
		if c == '.' {
			dot = i
			break
		}
	}
	var digits string
	var exponent int32
	if dot < 0 {
		digits = s
		exponent = 0
	} else {
		intPart, fracPart := s[:dot], s[dot+1:]
		digits = intPart + fracPart
		exponent = -int32(len(fracPart))
	}
	// strip leading zeros (keep at least one digit)
	i := 0
	for i < len(digits)-1 && digits[i] == '0' {
		i++
	}
	digits = digits[i:]
	// strip trailing zeros, bumping the exponent to compensate
	for len(digits) > 1 && digits[len(digits)-1] == '0' {
		digits = digits[:len(digits)-1]
		exponent++
	}
	mantissa, err := strconv.ParseUint(digits, 10, 64)
	if err != nil {
		// mantissa too wide for uint64 (extreme magnitude); fall back to a
		// lossy but still self-consistent rounding via the float itself.
		mantissa = uint64(f)
	}
	if mantissa == 0 {
		return numKey{}
	}
	return numKey{mantissa: mantissa, exponent: exponent, neg: neg}
}

// Equal implements the spec's equality rule: numbers compare equal iff they
// represent the same mathematical value (normalization already guarantees
// that), strings compare bytewise, Null equals only Null.
func (k OrderKey) Equal(o OrderKey) bool {
	return k == o
}

// Less implements the spec's total order: Null < Number < String is not the
// rule — Null is strictly less than any non-null, Number vs Number and String
// vs String compare naturally, and any Number vs any String orders the String
// greater.
func (k OrderKey) Less(o OrderKey) bool {
	if k.kind != o.kind {
		if k.kind == okNull {
			return true
		}
		if o.kind == okNull {
			return false
		}
		// one is okNumber, the other okString: string always orders greater
		return k.kind == okNumber
	}
	switch k.kind {
	case okNull:
		return false
	case okString:
		return k.str < o.str
	case okNumber:
		return k.num.less(o.num)
	default:
		return false
	}
}

func (a numKey) less(b numKey) bool {
	if a.nan && b.nan {
		return false
	}
	if a.nan {
		return false // NaN sorts after every finite number
	}
	if b.nan {
		return true
	}
	if a.neg != b.neg {
		return a.neg // negative < non-negative (covers the zero case identically on both sides)
	}
	// same sign: compare magnitude, flipping the result if both are negative
	magLess := magnitudeLess(a, b)
	if a.neg {
		return !magLess && a != b
	}
	return magLess
}

func magnitudeLess(a, b numKey) bool {
	if a.mantissa == 0 && b.mantissa == 0 {
		return false
	}
	if a.mantissa == 0 {
		return true
	}
	if b.mantissa == 0 {
		return false
	}
	da, db := digitCount(a.mantissa), digitCount(b.mantissa)
	ea, eb := int32(da)+a.exponent, int32(db)+b.exponent // decimal magnitude (power of ten of the leading digit + 1)
	if ea != eb {
		return ea < eb
	}
	// same order of magnitude: align exponents and compare mantissas
	diff := a.exponent - b.exponent
	am, bm := a.mantissa, b.mantissa
	switch {
	case diff > 0:
		am, diff = scaleUp(am, diff)
	case diff < 0:
		bm, _ = scaleUp(bm, -diff)
	}
	if diff != 0 {
		// diff stays non-zero when bm was the side scaled up; am and bm are
		// aligned either way, so the comparison below is the same.
		return am < bm
	}
	return am < bm
}

func digitCount(v uint64) int {
	n := 0
	for v > 0 {
		n++
		v /= 10
	}
	if n == 0 {
		n = 1
	}
	return n
}

func scaleUp(v uint64, by int32) (uint64, int32) {
	for by > 0 {
		next := v * 10
		if v != 0 && next/10 != v {
			return v, by // overflow, stop scaling
		}
		v = next
		by--
	}
	return v, by
}
