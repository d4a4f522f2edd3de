package vm

import (
	"fmt"
	"strconv"
	"time"
)

// DefineNative registers a builtin under name. Both the name string and the
// native object ride the stack while the globals entry is written, keeping
// them rooted if registration triggers a collection.
func (m *VM) DefineNative(name string, fn NativeFn, arity int) {
	m.Push(ObjVal(&m.CopyString(name).Obj))
	m.Push(ObjVal(&m.NewNative(fn, arity).Obj))
	m.globals.Set(m.peek(1).AsString(), m.peek(0))
	m.Pop()
	m.Pop()
}

// time() -> float seconds since the VM started.
func (m *VM) timeNative(argCount int, args []Value) NativeResult {
	return NativeResult{Result: FloatVal(time.Since(m.started).Seconds())}
}

// str(x) -> string form of an int, float, or bool. Anything else errors.
func (m *VM) strNative(argCount int, args []Value) NativeResult {
	switch {
	case args[0].IsInt():
		s := strconv.FormatInt(int64(args[0].AsInt()), 10)
		return NativeResult{Result: ObjVal(&m.CopyString(s).Obj)}
	case args[0].IsNumber():
		s := fmt.Sprintf("%.8f", args[0].AsNumber())
		return NativeResult{Result: ObjVal(&m.CopyString(s).Obj)}
	case args[0].IsBool():
		s := "false"
		if args[0].AsBool() {
			s = "true"
		}
		return NativeResult{Result: ObjVal(&m.CopyString(s).Obj)}
	}
	return NativeResult{Error: true}
}

// int(x) -> x truncated to an int. Anything non-numeric errors.
func (m *VM) intNative(argCount int, args []Value) NativeResult {
	if args[0].IsNumber() {
		return NativeResult{Result: IntVal(int32(args[0].AsNumber()))}
	}
	return NativeResult{Error: true}
}
