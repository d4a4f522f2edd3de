package vm

import (
	"math"
	"strconv"
	"strings"
	"unsafe"
)

// valueSize is the in-memory size of one Value in the active representation.
var valueSize = int(unsafe.Sizeof(NoneVal()))

// Helpers shared by both value representations. The representation itself is
// chosen at build time: value_union.go by default, value_nanbox.go when
// building with -tags tarnish_nanbox.

func floatBits(f float64) uint64 { return math.Float64bits(f) }

func floatFromBits(b uint64) float64 { return math.Float64frombits(b) }

// AsNumber reads an int or float value as a float64, promoting ints.
func (v Value) AsNumber() float64 {
	if v.IsInt() {
		return float64(v.AsInt())
	}
	return v.AsFloat()
}

// IsFalsey reports whether v is none or false. Everything else is truthy.
func (v Value) IsFalsey() bool {
	return v.IsNone() || (v.IsBool() && !v.AsBool())
}

// FormatValue renders v the way `print` writes it: ints as %d, floats as %f,
// strings raw, heap objects by kind.
func FormatValue(v Value) string {
	switch {
	case v.IsBool():
		if v.AsBool() {
			return "true"
		}
		return "false"
	case v.IsNone():
		return "none"
	case v.IsInt():
		return strconv.FormatInt(int64(v.AsInt()), 10)
	case v.IsFloat():
		return strconv.FormatFloat(v.AsFloat(), 'f', 6, 64)
	case v.IsObj():
		return formatObject(v.AsObj())
	default:
		return "<?>"
	}
}

func formatObject(o *Obj) string {
	switch o.Kind {
	case KindString:
		return o.AsString().Chars
	case KindFunction:
		return formatFunction(o.AsFunction())
	case KindNative:
		return "<native fn>"
	case KindClosure:
		return formatFunction(o.AsClosure().Function)
	case KindUpvalue:
		return "upvalue"
	case KindClass:
		return o.AsClass().Name.Chars
	case KindInstance:
		return o.AsInstance().Class.Name.Chars + " instance"
	case KindBoundMethod:
		return formatFunction(o.AsBoundMethod().Method.Function)
	case KindList:
		list := o.AsList()
		var sb strings.Builder
		sb.WriteByte('[')
		for i, item := range list.Items {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(FormatValue(item))
		}
		sb.WriteByte(']')
		return sb.String()
	default:
		return "<?>"
	}
}

func formatFunction(fn *ObjFunction) string {
	if fn.Name == nil {
		return "<script>"
	}
	return "<func " + fn.Name.Chars + ">"
}
