//go:build !tarnish_nanbox

package vm

// Value is the default, tagged-union representation of a Tarnish value.
// The alternative NaN-boxed representation lives in value_nanbox.go behind
// the `tarnish_nanbox` build tag; both expose the same API.
type Value struct {
	kind valueKind
	num  uint64
	obj  *Obj
}

type valueKind uint8

const (
	valBool valueKind = iota
	valNone
	valInt
	valFloat
	valObj
)

// ---------------------------------------------------------------------------
// Constructors
// ---------------------------------------------------------------------------

// NoneVal returns the unit value.
func NoneVal() Value {
	return Value{kind: valNone}
}

// BoolVal wraps a Go bool.
func BoolVal(b bool) Value {
	var n uint64
	if b {
		n = 1
	}
	return Value{kind: valBool, num: n}
}

// IntVal wraps a 32-bit integer.
func IntVal(i int32) Value {
	return Value{kind: valInt, num: uint64(uint32(i))}
}

// FloatVal wraps a float64.
func FloatVal(f float64) Value {
	return Value{kind: valFloat, num: floatBits(f)}
}

// ObjVal wraps a heap object.
func ObjVal(o *Obj) Value {
	return Value{kind: valObj, obj: o}
}

// ---------------------------------------------------------------------------
// Type checks
// ---------------------------------------------------------------------------

func (v Value) IsBool() bool  { return v.kind == valBool }
func (v Value) IsNone() bool  { return v.kind == valNone }
func (v Value) IsInt() bool   { return v.kind == valInt }
func (v Value) IsFloat() bool { return v.kind == valFloat }
func (v Value) IsObj() bool   { return v.kind == valObj }

// IsNumber reports whether v is an int or a float.
func (v Value) IsNumber() bool {
	return v.kind == valInt || v.kind == valFloat
}

// ---------------------------------------------------------------------------
// Accessors
// ---------------------------------------------------------------------------

func (v Value) AsBool() bool { return v.num != 0 }

func (v Value) AsInt() int32 { return int32(uint32(v.num)) }

func (v Value) AsFloat() float64 { return floatFromBits(v.num) }

func (v Value) AsObj() *Obj { return v.obj }

// ValuesEqual compares kind first, then payload. An int and a float of equal
// mathematical value are not equal.
func ValuesEqual(a, b Value) bool {
	if a.kind != b.kind {
		return false
	}
	switch a.kind {
	case valBool:
		return a.AsBool() == b.AsBool()
	case valNone:
		return true
	case valInt:
		return a.AsInt() == b.AsInt()
	case valFloat:
		return a.AsFloat() == b.AsFloat()
	case valObj:
		return a.obj == b.obj
	default:
		return false
	}
}
