package vm

import "unsafe"

// ObjKind identifies the concrete type behind an Obj header.
type ObjKind uint8

const (
	KindString ObjKind = iota
	KindFunction
	KindNative
	KindClosure
	KindUpvalue
	KindClass
	KindInstance
	KindBoundMethod
	KindList
)

// Obj is the common header embedded as the first field of every heap object.
// Next threads all live allocations into the VM's intrusive object list; the
// collector walks it during the sweep phase. bytes is the size the object is
// accounted for in the VM's allocation tally.
type Obj struct {
	Kind   ObjKind
	Marked bool
	Next   *Obj
	bytes  int
}

// The concrete object types all embed Obj first, so a *Obj can be converted
// back to its concrete type with a pointer cast, the same trick the NaN-boxed
// Value uses to carry objects as raw words.

// ObjString is an interned, immutable string. Hash is precomputed FNV-1a.
type ObjString struct {
	Obj
	Chars string
	Hash  uint32
}

// ObjFunction is a compiled function: its arity, how many upvalues its
// closures carry, an optional name, and the owned bytecode chunk.
type ObjFunction struct {
	Obj
	Arity        int
	UpvalueCount int
	Name         *ObjString
	Chunk        Chunk
}

// NativeResult is what a native returns: Error true means the call failed
// and the VM surfaces a runtime error without pushing Result.
type NativeResult struct {
	Error  bool
	Result Value
}

// NativeFn is the native-function ABI. Arguments are contiguous on the value
// stack; the native reads but does not own them.
type NativeFn func(argCount int, args []Value) NativeResult

// ObjNative wraps a Go function as a callable value.
type ObjNative struct {
	Obj
	Arity    int
	Function NativeFn
}

// ObjClosure pairs a function with its captured upvalues.
type ObjClosure struct {
	Obj
	Function *ObjFunction
	Upvalues []*ObjUpvalue
}

// ObjUpvalue aliases a stack slot while open (Slot >= 0) and owns the
// promoted value once closed (Slot == -1). NextOpen links the VM's list of
// open upvalues, sorted by descending stack slot.
type ObjUpvalue struct {
	Obj
	Slot     int
	Closed   Value
	NextOpen *ObjUpvalue
}

// ObjClass holds a class's name and method table.
type ObjClass struct {
	Obj
	Name    *ObjString
	Methods Table
}

// ObjInstance holds a reference to its class and the instance field table.
type ObjInstance struct {
	Obj
	Class  *ObjClass
	Fields Table
}

// ObjBoundMethod pairs a receiver with a method closure.
type ObjBoundMethod struct {
	Obj
	Receiver Value
	Method   *ObjClosure
}

// ObjList is a dynamically sized array of values.
type ObjList struct {
	Obj
	Items []Value
}

// ---------------------------------------------------------------------------
// Header casts
// ---------------------------------------------------------------------------

func (o *Obj) AsString() *ObjString   { return (*ObjString)(unsafe.Pointer(o)) }
func (o *Obj) AsFunction() *ObjFunction {
	return (*ObjFunction)(unsafe.Pointer(o))
}
func (o *Obj) AsNative() *ObjNative   { return (*ObjNative)(unsafe.Pointer(o)) }
func (o *Obj) AsClosure() *ObjClosure { return (*ObjClosure)(unsafe.Pointer(o)) }
func (o *Obj) AsUpvalue() *ObjUpvalue { return (*ObjUpvalue)(unsafe.Pointer(o)) }
func (o *Obj) AsClass() *ObjClass     { return (*ObjClass)(unsafe.Pointer(o)) }
func (o *Obj) AsInstance() *ObjInstance {
	return (*ObjInstance)(unsafe.Pointer(o))
}
func (o *Obj) AsBoundMethod() *ObjBoundMethod {
	return (*ObjBoundMethod)(unsafe.Pointer(o))
}
func (o *Obj) AsList() *ObjList { return (*ObjList)(unsafe.Pointer(o)) }

// Value-level object predicates.

func (v Value) isObjKind(k ObjKind) bool { return v.IsObj() && v.AsObj().Kind == k }

func (v Value) IsString() bool      { return v.isObjKind(KindString) }
func (v Value) IsFunction() bool    { return v.isObjKind(KindFunction) }
func (v Value) IsNative() bool      { return v.isObjKind(KindNative) }
func (v Value) IsClosure() bool     { return v.isObjKind(KindClosure) }
func (v Value) IsClass() bool       { return v.isObjKind(KindClass) }
func (v Value) IsInstance() bool    { return v.isObjKind(KindInstance) }
func (v Value) IsBoundMethod() bool { return v.isObjKind(KindBoundMethod) }
func (v Value) IsList() bool        { return v.isObjKind(KindList) }

func (v Value) AsString() *ObjString           { return v.AsObj().AsString() }
func (v Value) AsFunction() *ObjFunction       { return v.AsObj().AsFunction() }
func (v Value) AsNative() *ObjNative           { return v.AsObj().AsNative() }
func (v Value) AsClosure() *ObjClosure         { return v.AsObj().AsClosure() }
func (v Value) AsClass() *ObjClass             { return v.AsObj().AsClass() }
func (v Value) AsInstance() *ObjInstance       { return v.AsObj().AsInstance() }
func (v Value) AsBoundMethod() *ObjBoundMethod { return v.AsObj().AsBoundMethod() }
func (v Value) AsList() *ObjList               { return v.AsObj().AsList() }

// ---------------------------------------------------------------------------
// Constructors
// ---------------------------------------------------------------------------

// Constructors allocate through the VM so every object is linked into the
// object list and counted against the collection threshold. Callers must
// keep allocation inputs rooted (on the value stack or in a temp root):
// allocation may run a full collection.

// NewFunction allocates an empty function; the compiler fills it in.
func (m *VM) NewFunction() *ObjFunction {
	fn := &ObjFunction{}
	m.track(&fn.Obj, KindFunction, int(unsafe.Sizeof(*fn)))
	return fn
}

// NewNative wraps a Go function as a callable object.
func (m *VM) NewNative(fn NativeFn, arity int) *ObjNative {
	n := &ObjNative{Arity: arity, Function: fn}
	m.track(&n.Obj, KindNative, int(unsafe.Sizeof(*n)))
	return n
}

// NewClosure allocates a closure with an upvalue slot per captured variable.
func (m *VM) NewClosure(fn *ObjFunction) *ObjClosure {
	c := &ObjClosure{
		Function: fn,
		Upvalues: make([]*ObjUpvalue, fn.UpvalueCount),
	}
	size := int(unsafe.Sizeof(*c)) + fn.UpvalueCount*int(unsafe.Sizeof(uintptr(0)))
	m.track(&c.Obj, KindClosure, size)
	return c
}

// NewUpvalue allocates an open upvalue aliasing the given stack slot.
func (m *VM) NewUpvalue(slot int) *ObjUpvalue {
	u := &ObjUpvalue{Slot: slot, Closed: NoneVal()}
	m.track(&u.Obj, KindUpvalue, int(unsafe.Sizeof(*u)))
	return u
}

// NewClass allocates a class with an empty method table.
func (m *VM) NewClass(name *ObjString) *ObjClass {
	c := &ObjClass{Name: name}
	m.track(&c.Obj, KindClass, int(unsafe.Sizeof(*c)))
	return c
}

// NewInstance allocates an instance with an empty field table.
func (m *VM) NewInstance(class *ObjClass) *ObjInstance {
	i := &ObjInstance{Class: class}
	m.track(&i.Obj, KindInstance, int(unsafe.Sizeof(*i)))
	return i
}

// NewBoundMethod pairs a receiver with a method closure.
func (m *VM) NewBoundMethod(receiver Value, method *ObjClosure) *ObjBoundMethod {
	b := &ObjBoundMethod{Receiver: receiver, Method: method}
	m.track(&b.Obj, KindBoundMethod, int(unsafe.Sizeof(*b)))
	return b
}

// NewList allocates an empty list with the initial capacity.
func (m *VM) NewList() *ObjList {
	l := &ObjList{Items: make([]Value, 0, listInitialCapacity)}
	size := int(unsafe.Sizeof(*l)) + listInitialCapacity*valueSize
	m.track(&l.Obj, KindList, size)
	return l
}

// CopyString interns source text, returning the canonical string object.
func (m *VM) CopyString(chars string) *ObjString {
	return m.internString(chars)
}

// TakeString interns an already-built string, e.g. a concatenation result.
func (m *VM) TakeString(chars string) *ObjString {
	return m.internString(chars)
}

func (m *VM) internString(chars string) *ObjString {
	hash := hashString(chars)
	if interned := m.strings.FindString(chars, hash); interned != nil {
		return interned
	}

	s := &ObjString{Chars: chars, Hash: hash}
	m.track(&s.Obj, KindString, int(unsafe.Sizeof(*s))+len(chars))

	// The intern-table insert below can grow the table and trigger a
	// collection while s is referenced by nothing but this frame.
	m.pushTempRoot(&s.Obj)
	m.strings.Set(s, NoneVal())
	m.popTempRoot()
	return s
}
