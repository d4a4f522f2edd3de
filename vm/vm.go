package vm

import (
	"fmt"
	"io"
	"math"
	"os"
	"strings"
	"time"

	"github.com/tliron/commonlog"
)

const (
	// FramesMax bounds call depth. With at most 256 slots per frame the
	// value stack can never outgrow StackMax, so pushes go unchecked.
	FramesMax = 64
	StackMax  = FramesMax * 256
)

// InterpretResult is the outcome of one Interpret call.
type InterpretResult int

const (
	InterpretOK InterpretResult = iota
	InterpretCompileError
	InterpretRuntimeError
)

func (r InterpretResult) String() string {
	switch r {
	case InterpretOK:
		return "ok"
	case InterpretCompileError:
		return "compile error"
	case InterpretRuntimeError:
		return "runtime error"
	default:
		return fmt.Sprintf("InterpretResult(%d)", int(r))
	}
}

// CompileFn turns source text into a top-level function. The VM takes the
// compiler as a function value so the compiler package can depend on the
// object model without a cycle; cmd and tests wire it in with UseCompiler.
type CompileFn func(source string, m *VM) (*ObjFunction, error)

// CallFrame is one in-progress call: the closure, an instruction pointer
// into its chunk, and the base slot of its stack window. Slot zero holds the
// receiver for methods and the callee for plain functions.
type CallFrame struct {
	closure *ObjClosure
	ip      int
	slots   int
}

// VM executes bytecode. Keep at most one alive at a time: the interned
// strings, globals, and object list it owns are the whole heap.
type VM struct {
	stack      [StackMax]Value
	stackTop   int
	frames     [FramesMax]CallFrame
	frameCount int

	globals      Table
	strings      Table
	initString   *ObjString
	openUpvalues *ObjUpvalue

	objects        *Obj
	bytesAllocated int
	nextGC         int
	grayStack      []*Obj
	tempRoots      []*Obj

	// CompilerRoots, when set, marks the in-progress compiler chain during
	// collection. The compiler installs it for the duration of a compile.
	CompilerRoots func(mark func(*Obj))

	Stdout io.Writer
	Stderr io.Writer

	TraceExecution bool
	DumpCode       bool
	StressGC       bool
	LogGC          bool

	compile CompileFn
	started time.Time
	log     commonlog.Logger
}

// NewVM creates a VM with the builtin natives registered.
func NewVM() *VM {
	m := &VM{
		Stdout:  os.Stdout,
		Stderr:  os.Stderr,
		nextGC:  gcInitialThreshold,
		started: time.Now(),
		log:     commonlog.GetLogger("tarnish.vm"),
	}
	m.resetStack()
	m.initString = m.CopyString("__init__")

	m.DefineNative("time", m.timeNative, 0)
	m.DefineNative("str", m.strNative, 1)
	m.DefineNative("int", m.intNative, 1)
	return m
}

// Free releases the VM's heap. The VM must not be used afterwards.
func (m *VM) Free() {
	m.globals = Table{}
	m.strings = Table{}
	m.initString = nil
	m.objects = nil
	m.bytesAllocated = 0
}

// UseCompiler installs the compile entry point used by Interpret.
func (m *VM) UseCompiler(fn CompileFn) { m.compile = fn }

// SetInitialGCThreshold overrides the first collection trigger point.
func (m *VM) SetInitialGCThreshold(bytes int) {
	if bytes > 0 {
		m.nextGC = bytes
	}
}

func (m *VM) resetStack() {
	m.stackTop = 0
	m.frameCount = 0
	m.openUpvalues = nil
}

// Push puts a value on the stack.
func (m *VM) Push(value Value) {
	m.stack[m.stackTop] = value
	m.stackTop++
}

// Pop removes and returns the top of the stack.
func (m *VM) Pop() Value {
	m.stackTop--
	return m.stack[m.stackTop]
}

func (m *VM) peek(distance int) Value {
	return m.stack[m.stackTop-1-distance]
}

func (m *VM) runtimeError(format string, args ...any) {
	fmt.Fprintf(m.Stderr, format, args...)
	fmt.Fprintln(m.Stderr)

	for i := m.frameCount - 1; i >= 0; i-- {
		frame := &m.frames[i]
		fn := frame.closure.Function
		instruction := frame.ip - 1
		fmt.Fprintf(m.Stderr, "[line %d] in ", fn.Chunk.Lines[instruction])
		if fn.Name == nil {
			fmt.Fprintln(m.Stderr, "script")
		} else {
			fmt.Fprintf(m.Stderr, "<func %s>\n", fn.Name.Chars)
		}
	}

	m.resetStack()
}

// ---------------------------------------------------------------------------
// Calls
// ---------------------------------------------------------------------------

func (m *VM) call(closure *ObjClosure, argCount int) bool {
	if argCount != closure.Function.Arity {
		m.runtimeError("Expected %d arguments but got %d.", closure.Function.Arity, argCount)
		return false
	}

	if m.frameCount == FramesMax {
		m.runtimeError("Stack overflow.")
		return false
	}

	frame := &m.frames[m.frameCount]
	m.frameCount++
	frame.closure = closure
	frame.ip = 0
	frame.slots = m.stackTop - argCount - 1
	return true
}

func (m *VM) nativeCall(native *ObjNative, argCount int) bool {
	if argCount != native.Arity {
		m.runtimeError("Expected %d arguments but got %d.", native.Arity, argCount)
		return false
	}

	result := native.Function(argCount, m.stack[m.stackTop-argCount:m.stackTop])
	m.stackTop -= argCount + 1

	if result.Error {
		m.runtimeError("Native call failed.")
		return false
	}
	m.Push(result.Result)
	return true
}

func (m *VM) callValue(callee Value, argCount int) bool {
	if callee.IsObj() {
		switch callee.AsObj().Kind {
		case KindBoundMethod:
			bound := callee.AsBoundMethod()
			m.stack[m.stackTop-argCount-1] = bound.Receiver
			return m.call(bound.Method, argCount)

		case KindClass:
			class := callee.AsClass()
			m.stack[m.stackTop-argCount-1] = ObjVal(&m.NewInstance(class).Obj)

			if initializer, ok := class.Methods.Get(m.initString); ok {
				return m.call(initializer.AsClosure(), argCount)
			} else if argCount != 0 {
				m.runtimeError("Expected 0 arguments but got %d.", argCount)
				return false
			}
			return true

		case KindClosure:
			return m.call(callee.AsClosure(), argCount)

		case KindNative:
			return m.nativeCall(callee.AsNative(), argCount)
		}
	}
	m.runtimeError("Can only call functions and classes.")
	return false
}

func (m *VM) invokeFromClass(class *ObjClass, name *ObjString, argCount int) bool {
	method, ok := class.Methods.Get(name)
	if !ok {
		m.runtimeError("Undefined property '%s'.", name.Chars)
		return false
	}
	return m.call(method.AsClosure(), argCount)
}

func (m *VM) invoke(name *ObjString, argCount int) bool {
	receiver := m.peek(argCount)

	if !receiver.IsInstance() {
		m.runtimeError("Only instances have methods.")
		return false
	}
	instance := receiver.AsInstance()

	if value, ok := instance.Fields.Get(name); ok {
		m.stack[m.stackTop-argCount-1] = value
		return m.callValue(value, argCount)
	}

	return m.invokeFromClass(instance.Class, name, argCount)
}

func (m *VM) bindMethod(class *ObjClass, name *ObjString) bool {
	method, ok := class.Methods.Get(name)
	if !ok {
		m.runtimeError("Undefined property '%s'.", name.Chars)
		return false
	}

	bound := m.NewBoundMethod(m.peek(0), method.AsClosure())
	m.Pop()
	m.Push(ObjVal(&bound.Obj))
	return true
}

// ---------------------------------------------------------------------------
// Upvalues
// ---------------------------------------------------------------------------

// captureUpvalue returns the open upvalue for a stack slot, creating and
// inserting one if none exists. The list stays sorted by descending slot.
func (m *VM) captureUpvalue(slot int) *ObjUpvalue {
	var prev *ObjUpvalue
	upvalue := m.openUpvalues
	for upvalue != nil && upvalue.Slot > slot {
		prev = upvalue
		upvalue = upvalue.NextOpen
	}

	if upvalue != nil && upvalue.Slot == slot {
		return upvalue
	}

	created := m.NewUpvalue(slot)
	created.NextOpen = upvalue
	if prev == nil {
		m.openUpvalues = created
	} else {
		prev.NextOpen = created
	}
	return created
}

// closeUpvalues closes every open upvalue at or above the given slot: the
// stack value moves into the upvalue, which leaves the open list.
func (m *VM) closeUpvalues(last int) {
	for m.openUpvalues != nil && m.openUpvalues.Slot >= last {
		upvalue := m.openUpvalues
		upvalue.Closed = m.stack[upvalue.Slot]
		upvalue.Slot = -1
		m.openUpvalues = upvalue.NextOpen
		upvalue.NextOpen = nil
	}
}

func (m *VM) upvalueGet(u *ObjUpvalue) Value {
	if u.Slot >= 0 {
		return m.stack[u.Slot]
	}
	return u.Closed
}

func (m *VM) upvalueSet(u *ObjUpvalue, v Value) {
	if u.Slot >= 0 {
		m.stack[u.Slot] = v
	} else {
		u.Closed = v
	}
}

func (m *VM) defineMethod(name *ObjString) {
	method := m.peek(0)
	class := m.peek(1).AsClass()
	class.Methods.Set(name, method)
	m.Pop()
}

// ---------------------------------------------------------------------------
// Strings
// ---------------------------------------------------------------------------

// concatenate joins the two strings on top of the stack. Both stay on the
// stack until the result is interned so a collection cannot free them.
func (m *VM) concatenate() {
	b := m.peek(0).AsString()
	a := m.peek(1).AsString()

	result := m.TakeString(a.Chars + b.Chars)
	m.Pop()
	m.Pop()
	m.Push(ObjVal(&result.Obj))
}

// strMul repeats a string by an int; either operand order works.
func (m *VM) strMul() {
	var str *ObjString
	var count int
	if m.peek(0).IsInt() {
		count = int(m.peek(0).AsInt())
		str = m.peek(1).AsString()
	} else {
		str = m.peek(0).AsString()
		count = int(m.peek(1).AsInt())
	}

	if count < 0 {
		count = 0
	}
	result := m.TakeString(strings.Repeat(str.Chars, count))
	m.Pop()
	m.Pop()
	m.Push(ObjVal(&result.Obj))
}

func (m *VM) stringIndex(str *ObjString, index int) {
	if index < 0 {
		index = len(str.Chars) + index
	}
	result := m.CopyString(str.Chars[index : index+1])
	m.Push(ObjVal(&result.Obj))
}

// ---------------------------------------------------------------------------
// Dispatch
// ---------------------------------------------------------------------------

func (m *VM) readByte(frame *CallFrame) byte {
	b := frame.closure.Function.Chunk.Code[frame.ip]
	frame.ip++
	return b
}

func (m *VM) readShort(frame *CallFrame) uint16 {
	code := frame.closure.Function.Chunk.Code
	frame.ip += 2
	return uint16(code[frame.ip-2])<<8 | uint16(code[frame.ip-1])
}

func (m *VM) readConstant(frame *CallFrame) Value {
	return frame.closure.Function.Chunk.Constants[m.readByte(frame)]
}

func (m *VM) readLongConstant(frame *CallFrame) Value {
	index := int(m.readByte(frame))<<16 | int(m.readByte(frame))<<8 | int(m.readByte(frame))
	return frame.closure.Function.Chunk.Constants[index]
}

func (m *VM) readString(frame *CallFrame) *ObjString {
	return m.readConstant(frame).AsString()
}

func (m *VM) run() InterpretResult {
	frame := &m.frames[m.frameCount-1]

	for {
		if m.TraceExecution {
			fmt.Fprintf(m.Stderr, "        ")
			for i := 0; i < m.stackTop; i++ {
				fmt.Fprintf(m.Stderr, "[%s]", FormatValue(m.stack[i]))
			}
			fmt.Fprintln(m.Stderr)
			DisassembleInstruction(m.Stderr, &frame.closure.Function.Chunk, frame.ip)
		}

		switch instruction := Opcode(m.readByte(frame)); instruction {
		case OpConstant:
			m.Push(m.readConstant(frame))

		case OpConstantLong:
			m.Push(m.readLongConstant(frame))

		case OpNone:
			m.Push(NoneVal())

		case OpTrue:
			m.Push(BoolVal(true))

		case OpFalse:
			m.Push(BoolVal(false))

		case OpPop:
			m.Pop()

		case OpGetLocal:
			slot := m.readByte(frame)
			m.Push(m.stack[frame.slots+int(slot)])

		case OpSetLocal:
			slot := m.readByte(frame)
			m.stack[frame.slots+int(slot)] = m.peek(0)

		case OpDefineGlobal:
			name := m.readString(frame)
			m.globals.Set(name, m.peek(0))
			m.Pop()

		case OpGetGlobal:
			name := m.readString(frame)
			value, ok := m.globals.Get(name)
			if !ok {
				m.runtimeError("Undefined variable '%s'.", name.Chars)
				return InterpretRuntimeError
			}
			m.Push(value)

		case OpSetGlobal:
			name := m.readString(frame)
			if m.globals.Set(name, m.peek(0)) {
				m.globals.Delete(name)
				m.runtimeError("Undefined variable '%s'.", name.Chars)
				return InterpretRuntimeError
			}

		case OpGetUpvalue:
			slot := m.readByte(frame)
			m.Push(m.upvalueGet(frame.closure.Upvalues[slot]))

		case OpSetUpvalue:
			slot := m.readByte(frame)
			m.upvalueSet(frame.closure.Upvalues[slot], m.peek(0))

		case OpGetProperty:
			if !m.peek(0).IsInstance() {
				m.runtimeError("Only instances have properties.")
				return InterpretRuntimeError
			}
			instance := m.peek(0).AsInstance()
			name := m.readString(frame)

			if value, ok := instance.Fields.Get(name); ok {
				m.Pop()
				m.Push(value)
				break
			}

			if !m.bindMethod(instance.Class, name) {
				return InterpretRuntimeError
			}

		case OpSetProperty:
			if !m.peek(1).IsInstance() {
				m.runtimeError("Only instances have fields.")
				return InterpretRuntimeError
			}
			instance := m.peek(1).AsInstance()
			instance.Fields.Set(m.readString(frame), m.peek(0))
			value := m.Pop()
			m.Pop()
			m.Push(value)

		case OpGetSuper:
			name := m.readString(frame)
			superclass := m.Pop().AsClass()
			if !m.bindMethod(superclass, name) {
				return InterpretRuntimeError
			}

		case OpEqual:
			b := m.Pop()
			a := m.Pop()
			m.Push(BoolVal(ValuesEqual(a, b)))

		case OpGreater:
			if !m.peek(0).IsNumber() || !m.peek(1).IsNumber() {
				m.runtimeError("Operands must be numbers.")
				return InterpretRuntimeError
			}
			b := m.Pop().AsNumber()
			a := m.Pop().AsNumber()
			m.Push(BoolVal(a > b))

		case OpLess:
			if !m.peek(0).IsNumber() || !m.peek(1).IsNumber() {
				m.runtimeError("Operands must be numbers.")
				return InterpretRuntimeError
			}
			b := m.Pop().AsNumber()
			a := m.Pop().AsNumber()
			m.Push(BoolVal(a < b))

		case OpAdd:
			switch {
			case m.peek(0).IsString() && m.peek(1).IsString():
				m.concatenate()
			case m.peek(0).IsInt() && m.peek(1).IsInt():
				b := m.Pop().AsInt()
				a := m.Pop().AsInt()
				m.Push(IntVal(a + b))
			case m.peek(0).IsNumber() && m.peek(1).IsNumber():
				b := m.Pop().AsNumber()
				a := m.Pop().AsNumber()
				m.Push(FloatVal(a + b))
			default:
				m.runtimeError("Operands must be two numbers or two strings.")
				return InterpretRuntimeError
			}

		case OpSubtract:
			switch {
			case m.peek(0).IsInt() && m.peek(1).IsInt():
				b := m.Pop().AsInt()
				a := m.Pop().AsInt()
				m.Push(IntVal(a - b))
			case m.peek(0).IsNumber() && m.peek(1).IsNumber():
				b := m.Pop().AsNumber()
				a := m.Pop().AsNumber()
				m.Push(FloatVal(a - b))
			default:
				m.runtimeError("Operands must be two numbers.")
				return InterpretRuntimeError
			}

		case OpMultiply:
			switch {
			case m.peek(0).IsInt() && m.peek(1).IsString(),
				m.peek(0).IsString() && m.peek(1).IsInt():
				m.strMul()
			case m.peek(0).IsInt() && m.peek(1).IsInt():
				b := m.Pop().AsInt()
				a := m.Pop().AsInt()
				m.Push(IntVal(a * b))
			case m.peek(0).IsNumber() && m.peek(1).IsNumber():
				b := m.Pop().AsNumber()
				a := m.Pop().AsNumber()
				m.Push(FloatVal(a * b))
			default:
				m.runtimeError("Operands must be two numbers.")
				return InterpretRuntimeError
			}

		case OpDivide:
			if !m.peek(0).IsNumber() || !m.peek(1).IsNumber() {
				m.runtimeError("Operands must be two numbers.")
				return InterpretRuntimeError
			}
			b := m.Pop().AsNumber()
			if b == 0 {
				m.runtimeError("Cannot divide by zero.")
				return InterpretRuntimeError
			}
			a := m.Pop().AsNumber()
			m.Push(FloatVal(a / b))

		case OpModulus:
			switch {
			case m.peek(0).IsInt() && m.peek(1).IsInt():
				b := m.Pop().AsInt()
				if b == 0 {
					m.runtimeError("Cannot divide by zero.")
					return InterpretRuntimeError
				}
				a := m.Pop().AsInt()
				m.Push(IntVal(a % b))
			case m.peek(0).IsNumber() && m.peek(1).IsNumber():
				b := m.Pop().AsNumber()
				if b == 0 {
					m.runtimeError("Cannot divide by zero.")
					return InterpretRuntimeError
				}
				a := m.Pop().AsNumber()
				m.Push(FloatVal(math.Mod(a, b)))
			default:
				m.runtimeError("Operands must be two numbers.")
				return InterpretRuntimeError
			}

		case OpFloorDivide:
			if !m.peek(0).IsNumber() || !m.peek(1).IsNumber() {
				m.runtimeError("Operands must be two numbers.")
				return InterpretRuntimeError
			}
			b := m.Pop().AsNumber()
			if b == 0 {
				m.runtimeError("Cannot divide by zero.")
				return InterpretRuntimeError
			}
			a := m.Pop().AsNumber()
			m.Push(IntVal(int32(a / b)))

		case OpExponent:
			switch {
			case m.peek(0).IsInt() && m.peek(1).IsInt():
				b := m.Pop().AsInt()
				a := m.Pop().AsInt()
				m.Push(IntVal(int32(math.Round(math.Pow(float64(a), float64(b))))))
			case m.peek(0).IsNumber() && m.peek(1).IsNumber():
				b := m.Pop().AsNumber()
				a := m.Pop().AsNumber()
				m.Push(FloatVal(math.Pow(a, b)))
			default:
				m.runtimeError("Operands must be two numbers.")
				return InterpretRuntimeError
			}

		case OpAnd, OpOr, OpXor, OpLshift, OpRshift:
			if !m.peek(0).IsInt() || !m.peek(1).IsInt() {
				m.runtimeError("Operands must be two integers.")
				return InterpretRuntimeError
			}
			b := m.Pop().AsInt()
			a := m.Pop().AsInt()
			switch instruction {
			case OpAnd:
				m.Push(IntVal(a & b))
			case OpOr:
				m.Push(IntVal(a | b))
			case OpXor:
				m.Push(IntVal(a ^ b))
			case OpLshift, OpRshift:
				if b < 0 {
					m.runtimeError("Negative shift count.")
					return InterpretRuntimeError
				}
				if instruction == OpLshift {
					m.Push(IntVal(a << uint(b)))
				} else {
					m.Push(IntVal(a >> uint(b)))
				}
			}

		case OpNot:
			m.Push(BoolVal(m.Pop().IsFalsey()))

		case OpNegate:
			if m.peek(0).IsInt() {
				m.Push(IntVal(-m.Pop().AsInt()))
			} else if m.peek(0).IsNumber() {
				m.Push(FloatVal(-m.Pop().AsNumber()))
			} else {
				m.runtimeError("Operand must be a number.")
				return InterpretRuntimeError
			}

		case OpInvert:
			if !m.peek(0).IsInt() {
				m.runtimeError("Operand must be a number.")
				return InterpretRuntimeError
			}
			m.Push(IntVal(^m.Pop().AsInt()))

		case OpPrint:
			fmt.Fprintf(m.Stdout, "%s\n", FormatValue(m.Pop()))

		case OpJump:
			offset := m.readShort(frame)
			frame.ip += int(offset)

		case OpJumpIfFalse:
			offset := m.readShort(frame)
			if m.peek(0).IsFalsey() {
				frame.ip += int(offset)
			}

		case OpLoop:
			offset := m.readShort(frame)
			frame.ip -= int(offset)

		case OpCall:
			argCount := int(m.readByte(frame))
			if !m.callValue(m.peek(argCount), argCount) {
				return InterpretRuntimeError
			}
			frame = &m.frames[m.frameCount-1]

		case OpInvoke:
			method := m.readString(frame)
			argCount := int(m.readByte(frame))
			if !m.invoke(method, argCount) {
				return InterpretRuntimeError
			}
			frame = &m.frames[m.frameCount-1]

		case OpSuperInvoke:
			method := m.readString(frame)
			argCount := int(m.readByte(frame))
			superclass := m.Pop().AsClass()
			if !m.invokeFromClass(superclass, method, argCount) {
				return InterpretRuntimeError
			}
			frame = &m.frames[m.frameCount-1]

		case OpClosure:
			fn := m.readConstant(frame).AsFunction()
			closure := m.NewClosure(fn)
			m.Push(ObjVal(&closure.Obj))
			for i := 0; i < len(closure.Upvalues); i++ {
				isLocal := m.readByte(frame)
				index := int(m.readByte(frame))
				if isLocal != 0 {
					closure.Upvalues[i] = m.captureUpvalue(frame.slots + index)
				} else {
					closure.Upvalues[i] = frame.closure.Upvalues[index]
				}
			}

		case OpCloseUpvalue:
			m.closeUpvalues(m.stackTop - 1)
			m.Pop()

		case OpClass:
			m.Push(ObjVal(&m.NewClass(m.readString(frame)).Obj))

		case OpInherit:
			superclass := m.peek(1)
			if !superclass.IsClass() {
				m.runtimeError("Superclass must be a class.")
				return InterpretRuntimeError
			}
			subclass := m.peek(0).AsClass()
			subclass.Methods.AddAll(&superclass.AsClass().Methods)
			m.Pop()

		case OpMethod:
			m.defineMethod(m.readString(frame))

		case OpListBuild:
			list := m.NewList()
			itemCount := int(m.readByte(frame))

			// Root the list while appending; the elements stay rooted on
			// the stack until after the pops.
			m.Push(ObjVal(&list.Obj))
			for i := itemCount; i > 0; i-- {
				m.ListAppend(list, m.peek(i))
			}
			m.Pop()

			for i := 0; i < itemCount; i++ {
				m.Pop()
			}
			m.Push(ObjVal(&list.Obj))

		case OpListIndex:
			indexVal := m.Pop()
			target := m.Pop()

			if !indexVal.IsInt() {
				m.runtimeError("Invalid index type.")
				return InterpretRuntimeError
			}
			index := int(indexVal.AsInt())

			if !target.IsList() && !target.IsString() {
				m.runtimeError("Invalid type to index into.")
				return InterpretRuntimeError
			}

			if target.IsString() {
				str := target.AsString()
				if index < -len(str.Chars) || index > len(str.Chars)-1 {
					m.runtimeError("String index out of range.")
					return InterpretRuntimeError
				}
				m.stringIndex(str, index)
				break
			}

			list := target.AsList()
			if !IsValidListIndex(list, index) {
				m.runtimeError("List index out of range.")
				return InterpretRuntimeError
			}
			m.Push(ListGet(list, index))

		case OpListStore:
			item := m.Pop()
			indexVal := m.Pop()
			target := m.Pop()

			if !target.IsList() {
				m.runtimeError("Cannot store value in a non-list.")
				return InterpretRuntimeError
			}
			list := target.AsList()

			if !indexVal.IsInt() {
				m.runtimeError("List index is not an integer.")
				return InterpretRuntimeError
			}
			index := int(indexVal.AsInt())

			if !IsValidListIndex(list, index) {
				m.runtimeError("Invalid list index.")
				return InterpretRuntimeError
			}

			ListSet(list, index, item)
			m.Push(item)

		case OpReturn:
			result := m.Pop()
			m.closeUpvalues(frame.slots)
			m.frameCount--
			if m.frameCount == 0 {
				m.Pop()
				return InterpretOK
			}

			m.stackTop = frame.slots
			m.Push(result)
			frame = &m.frames[m.frameCount-1]

		default:
			m.runtimeError("Unknown opcode %d.", byte(instruction))
			return InterpretRuntimeError
		}
	}
}

// Interpret compiles and runs a complete source unit. The VM stays usable
// for further calls after any result.
func (m *VM) Interpret(source string) InterpretResult {
	if m.compile == nil {
		panic("vm: no compiler installed; call UseCompiler first")
	}

	fn, err := m.compile(source, m)
	if err != nil {
		return InterpretCompileError
	}

	m.Push(ObjVal(&fn.Obj))
	closure := m.NewClosure(fn)
	m.Pop()
	m.Push(ObjVal(&closure.Obj))
	m.call(closure, 0)

	return m.run()
}

// RunFunction executes an already-compiled top-level function, e.g. one
// loaded from the bytecode cache.
func (m *VM) RunFunction(fn *ObjFunction) InterpretResult {
	m.Push(ObjVal(&fn.Obj))
	closure := m.NewClosure(fn)
	m.Pop()
	m.Push(ObjVal(&closure.Obj))
	m.call(closure, 0)

	return m.run()
}
