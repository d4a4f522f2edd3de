package compiler

import (
	"bytes"
	"errors"
	"strconv"
	"strings"
	"testing"

	"github.com/tarnish-lang/tarnish/vm"
)

func compileSource(t *testing.T, source string) (*vm.ObjFunction, string, error) {
	t.Helper()
	m := vm.NewVM()
	var errOut bytes.Buffer
	m.Stderr = &errOut
	fn, err := Compile(source, m)
	return fn, errOut.String(), err
}

func mustCompile(t *testing.T, source string) *vm.ObjFunction {
	t.Helper()
	fn, stderr, err := compileSource(t, source)
	if err != nil {
		t.Fatalf("compile failed:\n%s", stderr)
	}
	return fn
}

func TestCompileExpressionStatement(t *testing.T) {
	fn := mustCompile(t, "print 1 + 2;")

	want := []byte{
		byte(vm.OpConstant), 0,
		byte(vm.OpConstant), 1,
		byte(vm.OpAdd),
		byte(vm.OpPrint),
		byte(vm.OpNone),
		byte(vm.OpReturn),
	}
	if !bytes.Equal(fn.Chunk.Code, want) {
		t.Errorf("code = %v, want %v", fn.Chunk.Code, want)
	}
	if fn.Chunk.Constants[0].AsInt() != 1 || fn.Chunk.Constants[1].AsInt() != 2 {
		t.Error("constant pool does not hold the literals")
	}
}

func TestCompileComparisonSynthesis(t *testing.T) {
	// >= and <= and != are synthesized from their complements plus OP_NOT.
	tests := []struct {
		source string
		want   []byte
	}{
		{"1 >= 2;", []byte{byte(vm.OpLess), byte(vm.OpNot)}},
		{"1 <= 2;", []byte{byte(vm.OpGreater), byte(vm.OpNot)}},
		{"1 != 2;", []byte{byte(vm.OpEqual), byte(vm.OpNot)}},
	}
	for _, tt := range tests {
		fn := mustCompile(t, tt.source)
		if !bytes.Contains(fn.Chunk.Code, tt.want) {
			t.Errorf("compile(%q) code %v lacks %v", tt.source, fn.Chunk.Code, tt.want)
		}
	}
}

func TestCompileScriptHasNoName(t *testing.T) {
	fn := mustCompile(t, "1;")
	if fn.Name != nil {
		t.Errorf("script function name = %q, want none", fn.Name.Chars)
	}
	if fn.Arity != 0 {
		t.Errorf("script arity = %d", fn.Arity)
	}
}

func TestCompileNestedFunctionUpvalues(t *testing.T) {
	fn := mustCompile(t, `
func outer() {
  var x = 1;
  func inner() { return x; }
  return inner;
}
`)

	var outer *vm.ObjFunction
	for _, c := range fn.Chunk.Constants {
		if c.IsFunction() && c.AsFunction().Name != nil && c.AsFunction().Name.Chars == "outer" {
			outer = c.AsFunction()
		}
	}
	if outer == nil {
		t.Fatal("outer function not in script constants")
	}

	var inner *vm.ObjFunction
	for _, c := range outer.Chunk.Constants {
		if c.IsFunction() && c.AsFunction().Name != nil && c.AsFunction().Name.Chars == "inner" {
			inner = c.AsFunction()
		}
	}
	if inner == nil {
		t.Fatal("inner function not in outer's constants")
	}
	if inner.UpvalueCount != 1 {
		t.Errorf("inner upvalue count = %d, want 1", inner.UpvalueCount)
	}

	// OP_CLOSURE for inner must be followed by exactly one (isLocal, index)
	// pair capturing outer's local slot 1.
	idx := bytes.IndexByte(outer.Chunk.Code, byte(vm.OpClosure))
	if idx == -1 {
		t.Fatal("outer has no OP_CLOSURE")
	}
	if outer.Chunk.Code[idx+2] != 1 || outer.Chunk.Code[idx+3] != 1 {
		t.Errorf("closure operands = %v, want isLocal=1 index=1", outer.Chunk.Code[idx+2:idx+4])
	}
}

func TestCompileJumpPatching(t *testing.T) {
	fn := mustCompile(t, "if (true) print 1; else print 2;")

	code := fn.Chunk.Code
	idx := bytes.IndexByte(code, byte(vm.OpJumpIfFalse))
	if idx == -1 {
		t.Fatal("no OP_JUMP_IF_FALSE emitted")
	}
	offset := int(code[idx+1])<<8 | int(code[idx+2])
	target := idx + 3 + offset
	// The false branch must land on the pop of the condition value.
	if target >= len(code) || vm.Opcode(code[target]) != vm.OpPop {
		t.Errorf("jump lands on %v at %d, want OP_POP", vm.Opcode(code[target]), target)
	}
}

func TestCompileLoopOffsets(t *testing.T) {
	fn := mustCompile(t, "while (true) print 1;")

	code := fn.Chunk.Code
	idx := bytes.IndexByte(code, byte(vm.OpLoop))
	if idx == -1 {
		t.Fatal("no OP_LOOP emitted")
	}
	offset := int(code[idx+1])<<8 | int(code[idx+2])
	target := idx + 3 - offset
	if target != 0 {
		t.Errorf("loop target = %d, want 0 (the condition)", target)
	}
}

func TestCompileMethodsAndInitializer(t *testing.T) {
	fn := mustCompile(t, `
class A {
  func __init__(x) { this.x = x; }
  func m() { return this.x; }
}
`)
	code := fn.Chunk.Code
	if !bytes.Contains(code, []byte{byte(vm.OpClass)}) {
		t.Error("no OP_CLASS emitted")
	}
	count := bytes.Count(code, []byte{byte(vm.OpMethod)})
	if count != 2 {
		t.Errorf("OP_METHOD count = %d, want 2", count)
	}
}

func TestCompileErrors(t *testing.T) {
	tests := []struct {
		source  string
		message string
	}{
		{"1 = 2;", "Invalid assignment target."},
		{"var x = ;", "Expect expression."},
		{"return 1;", "Can't return from top-level code."},
		{"print this;", "Can't use 'this' outside of a class."},
		{"func f() { super.m(); }", "Can't use 'super' outside of a class."},
		{"class A { func m() { super.m(); } }", "Can't use 'super' in a class with no superclass."},
		{"class A(A) {}", "A class can't inherit from itself."},
		{"{ var a = 1; var a = 2; }", "Already a variable with this name in this scope."},
		{"{ var a = a; }", "Can't read local variable in its own initializer."},
		{"class A { func __init__() { return 1; } }", "Can't return a value from an initializer."},
		{"print 1", "Expect ';' after value."},
		{"(1;", "Expect ')' after expression."},
		{"var 1 = 2;", "Expect variable name."},
	}
	for _, tt := range tests {
		_, stderr, err := compileSource(t, tt.source)
		if !errors.Is(err, ErrCompile) {
			t.Errorf("compile(%q) err = %v, want ErrCompile", tt.source, err)
			continue
		}
		if !strings.Contains(stderr, tt.message) {
			t.Errorf("compile(%q) stderr %q lacks %q", tt.source, stderr, tt.message)
		}
	}
}

func TestCompileErrorReportsLine(t *testing.T) {
	_, stderr, err := compileSource(t, "var x = 1;\nvar y = ;\n")
	if err == nil {
		t.Fatal("expected a compile error")
	}
	if !strings.Contains(stderr, "[line 2] Error") {
		t.Errorf("stderr %q lacks line 2 position", stderr)
	}
}

func TestPanicModeSuppressesCascades(t *testing.T) {
	// One bad statement, then a clean one: a single report, thanks to
	// synchronization at the semicolon.
	_, stderr, err := compileSource(t, "var x = ;\nvar y = 2;\n")
	if err == nil {
		t.Fatal("expected a compile error")
	}
	if got := strings.Count(stderr, "Error"); got != 1 {
		t.Errorf("reported %d errors, want 1:\n%s", got, stderr)
	}
}

func TestCompileKeepsGoingAfterSync(t *testing.T) {
	// Two independent bad declarations produce two reports.
	_, stderr, _ := compileSource(t, "var x = ;\nvar y = ;\n")
	if got := strings.Count(stderr, "Error"); got != 2 {
		t.Errorf("reported %d errors, want 2:\n%s", got, stderr)
	}
}

func TestCompileLongConstantPool(t *testing.T) {
	// Push past 256 constants in one chunk to force OP_CONSTANT_LONG.
	var src strings.Builder
	for i := 0; i < 300; i++ {
		src.WriteString("print ")
		src.WriteString(strconv.Itoa(i * 1000))
		src.WriteString(";")
	}
	fn := mustCompile(t, src.String())
	if len(fn.Chunk.Constants) < 300 {
		t.Fatalf("constant pool = %d entries", len(fn.Chunk.Constants))
	}
	if !bytes.Contains(fn.Chunk.Code, []byte{byte(vm.OpConstantLong)}) {
		t.Error("no OP_CONSTANT_LONG for a pool past 256 entries")
	}
}
