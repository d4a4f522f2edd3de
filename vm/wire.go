package vm

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// CBOR wire format for compiled functions, used by the compile cache. The
// encoder runs in canonical mode so identical functions serialize to
// identical bytes.

var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("vm: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

// Constant kinds on the wire.
const (
	wireKindNone uint8 = iota
	wireKindBool
	wireKindInt
	wireKindFloat
	wireKindString
	wireKindFunction
)

type wireConstant struct {
	Kind  uint8         `cbor:"k"`
	Bool  bool          `cbor:"b,omitempty"`
	Int   int32         `cbor:"i,omitempty"`
	Float float64       `cbor:"f,omitempty"`
	Str   string        `cbor:"s,omitempty"`
	Fn    *wireFunction `cbor:"fn,omitempty"`
}

type wireFunction struct {
	Arity        int            `cbor:"arity"`
	UpvalueCount int            `cbor:"upvalues"`
	Name         string         `cbor:"name,omitempty"`
	Code         []byte         `cbor:"code"`
	Lines        []int          `cbor:"lines"`
	Constants    []wireConstant `cbor:"consts"`
}

// MarshalFunction serializes a compiled function graph to CBOR bytes.
func MarshalFunction(fn *ObjFunction) ([]byte, error) {
	wf, err := functionToWire(fn)
	if err != nil {
		return nil, err
	}
	return cborEncMode.Marshal(wf)
}

// UnmarshalFunction rebuilds a function graph from CBOR bytes, interning its
// strings in the given VM.
func UnmarshalFunction(m *VM, data []byte) (*ObjFunction, error) {
	var wf wireFunction
	if err := cbor.Unmarshal(data, &wf); err != nil {
		return nil, fmt.Errorf("vm: unmarshal function: %w", err)
	}
	return wireToFunction(m, &wf)
}

func functionToWire(fn *ObjFunction) (*wireFunction, error) {
	wf := &wireFunction{
		Arity:        fn.Arity,
		UpvalueCount: fn.UpvalueCount,
		Code:         fn.Chunk.Code,
		Lines:        fn.Chunk.Lines,
	}
	if fn.Name != nil {
		wf.Name = fn.Name.Chars
	}

	wf.Constants = make([]wireConstant, 0, len(fn.Chunk.Constants))
	for _, c := range fn.Chunk.Constants {
		wc, err := constantToWire(c)
		if err != nil {
			return nil, err
		}
		wf.Constants = append(wf.Constants, wc)
	}
	return wf, nil
}

func constantToWire(v Value) (wireConstant, error) {
	switch {
	case v.IsNone():
		return wireConstant{Kind: wireKindNone}, nil
	case v.IsBool():
		return wireConstant{Kind: wireKindBool, Bool: v.AsBool()}, nil
	case v.IsInt():
		return wireConstant{Kind: wireKindInt, Int: v.AsInt()}, nil
	case v.IsFloat():
		return wireConstant{Kind: wireKindFloat, Float: v.AsFloat()}, nil
	case v.IsString():
		return wireConstant{Kind: wireKindString, Str: v.AsString().Chars}, nil
	case v.IsFunction():
		wf, err := functionToWire(v.AsFunction())
		if err != nil {
			return wireConstant{}, err
		}
		return wireConstant{Kind: wireKindFunction, Fn: wf}, nil
	default:
		return wireConstant{}, fmt.Errorf("vm: constant kind not serializable")
	}
}

func wireToFunction(m *VM, wf *wireFunction) (*ObjFunction, error) {
	fn := m.NewFunction()
	fn.Arity = wf.Arity
	fn.UpvalueCount = wf.UpvalueCount

	// Root the function while its constants allocate.
	m.pushTempRoot(&fn.Obj)
	defer m.popTempRoot()

	if wf.Name != "" {
		fn.Name = m.CopyString(wf.Name)
	}
	fn.Chunk.Code = append([]byte(nil), wf.Code...)
	fn.Chunk.Lines = append([]int(nil), wf.Lines...)

	for _, wc := range wf.Constants {
		v, err := wireToConstant(m, wc)
		if err != nil {
			return nil, err
		}
		fn.Chunk.AddConstant(v)
	}

	m.FinalizeFunction(fn)
	return fn, nil
}

func wireToConstant(m *VM, wc wireConstant) (Value, error) {
	switch wc.Kind {
	case wireKindNone:
		return NoneVal(), nil
	case wireKindBool:
		return BoolVal(wc.Bool), nil
	case wireKindInt:
		return IntVal(wc.Int), nil
	case wireKindFloat:
		return FloatVal(wc.Float), nil
	case wireKindString:
		return ObjVal(&m.CopyString(wc.Str).Obj), nil
	case wireKindFunction:
		fn, err := wireToFunction(m, wc.Fn)
		if err != nil {
			return NoneVal(), err
		}
		return ObjVal(&fn.Obj), nil
	default:
		return NoneVal(), fmt.Errorf("vm: unknown wire constant kind %d", wc.Kind)
	}
}
