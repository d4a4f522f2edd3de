package vm

import (
	"math"
	"testing"
)

// These tests avoid representation internals so they run identically against
// the tagged-union build and the NaN-boxed build (-tags tarnish_nanbox).

func TestIntRoundTrip(t *testing.T) {
	tests := []int32{0, 1, -1, 42, -42, math.MaxInt32, math.MinInt32}
	for _, n := range tests {
		v := IntVal(n)
		if !v.IsInt() {
			t.Errorf("IntVal(%d).IsInt() = false, want true", n)
			continue
		}
		if !v.IsNumber() {
			t.Errorf("IntVal(%d).IsNumber() = false, want true", n)
		}
		if v.IsFloat() || v.IsBool() || v.IsNone() || v.IsObj() {
			t.Errorf("IntVal(%d) claims a foreign kind", n)
		}
		if got := v.AsInt(); got != n {
			t.Errorf("IntVal(%d).AsInt() = %d", n, got)
		}
	}
}

func TestFloatRoundTrip(t *testing.T) {
	tests := []float64{
		0.0,
		-0.0,
		1.0,
		3.14159265358979,
		-3.14159265358979,
		math.MaxFloat64,
		math.SmallestNonzeroFloat64,
		math.Inf(1),
		math.Inf(-1),
	}
	for _, f := range tests {
		v := FloatVal(f)
		if !v.IsFloat() {
			t.Errorf("FloatVal(%v).IsFloat() = false, want true", f)
			continue
		}
		if v.IsInt() {
			t.Errorf("FloatVal(%v).IsInt() = true, want false", f)
		}
		if got := v.AsFloat(); got != f {
			t.Errorf("FloatVal(%v).AsFloat() = %v", f, got)
		}
	}
}

func TestSpecialValues(t *testing.T) {
	if !NoneVal().IsNone() {
		t.Error("NoneVal().IsNone() = false")
	}
	if !BoolVal(true).IsBool() || !BoolVal(true).AsBool() {
		t.Error("BoolVal(true) does not read back as true")
	}
	if !BoolVal(false).IsBool() || BoolVal(false).AsBool() {
		t.Error("BoolVal(false) does not read back as false")
	}
	if NoneVal().IsBool() || BoolVal(true).IsNone() {
		t.Error("none and bool kinds overlap")
	}
}

func TestFalsiness(t *testing.T) {
	falsey := []Value{NoneVal(), BoolVal(false)}
	for _, v := range falsey {
		if !v.IsFalsey() {
			t.Errorf("%s should be falsey", FormatValue(v))
		}
	}

	truthy := []Value{BoolVal(true), IntVal(0), FloatVal(0), IntVal(7)}
	for _, v := range truthy {
		if v.IsFalsey() {
			t.Errorf("%s should be truthy", FormatValue(v))
		}
	}
}

func TestEqualityIsKindSensitive(t *testing.T) {
	tests := []struct {
		a, b Value
		want bool
	}{
		{IntVal(1), IntVal(1), true},
		{IntVal(1), IntVal(2), false},
		{FloatVal(1.5), FloatVal(1.5), true},
		{FloatVal(math.NaN()), FloatVal(math.NaN()), false},
		{IntVal(1), FloatVal(1.0), false},
		{FloatVal(1.0), IntVal(1), false},
		{BoolVal(true), BoolVal(true), true},
		{BoolVal(true), BoolVal(false), false},
		{NoneVal(), NoneVal(), true},
		{NoneVal(), BoolVal(false), false},
		{IntVal(0), BoolVal(false), false},
	}
	for _, tt := range tests {
		if got := ValuesEqual(tt.a, tt.b); got != tt.want {
			t.Errorf("ValuesEqual(%s, %s) = %v, want %v",
				FormatValue(tt.a), FormatValue(tt.b), got, tt.want)
		}
	}
}

func TestObjectValues(t *testing.T) {
	m := NewVM()
	defer m.Free()

	s := m.CopyString("hello")
	v := ObjVal(&s.Obj)
	if !v.IsObj() || !v.IsString() {
		t.Fatal("string value does not read back as a string object")
	}
	if v.AsString() != s {
		t.Error("AsString did not return the boxed object")
	}
	if !ValuesEqual(v, ObjVal(&m.CopyString("hello").Obj)) {
		t.Error("interned strings with equal content should compare equal")
	}
}

func TestFormatValue(t *testing.T) {
	m := NewVM()
	defer m.Free()

	list := m.NewList()
	m.Push(ObjVal(&list.Obj))
	m.ListAppend(list, IntVal(1))
	m.ListAppend(list, ObjVal(&m.CopyString("two").Obj))
	m.Pop()

	tests := []struct {
		value Value
		want  string
	}{
		{IntVal(14), "14"},
		{FloatVal(3.5), "3.500000"},
		{BoolVal(true), "true"},
		{BoolVal(false), "false"},
		{NoneVal(), "none"},
		{ObjVal(&m.CopyString("abc").Obj), "abc"},
		{ObjVal(&list.Obj), "[1, two]"},
	}
	for _, tt := range tests {
		if got := FormatValue(tt.value); got != tt.want {
			t.Errorf("FormatValue = %q, want %q", got, tt.want)
		}
	}
}
