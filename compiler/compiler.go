package compiler

import (
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/tarnish-lang/tarnish/vm"
)

// Single-pass compiler: tokens go straight to bytecode through an
// operator-precedence parser. There is no AST.

// ErrCompile is returned by Compile when any parse or compile error was
// reported. Details have already been written to the VM's error stream.
var ErrCompile = errors.New("compile error")

const uint8Count = 256

// Precedence is the parsing precedence ladder, low to high.
type Precedence int

const (
	PrecNone       Precedence = iota
	PrecAssignment            // =
	PrecTernary               // ?:
	PrecLogicalOr             // or ||
	PrecLogicalAnd            // and &&
	PrecEquality              // == !=
	PrecComparison            // < > <= >=
	PrecBitwiseOr             // |
	PrecBitwiseXor            // ^
	PrecBitwiseAnd            // &
	PrecShift                 // << >>
	PrecTerm                  // + -
	PrecFactor                // * / % %%
	PrecExponent              // **
	PrecUnary                 // ~ ! - +
	PrecPrefix                // no operator parses at this level
	PrecCall                  // . () []
	PrecPostfix               // no operator parses at this level
	PrecPrimary
)

type parseFn func(p *Parser, canAssign bool)

type parseRule struct {
	prefix     parseFn
	infix      parseFn
	precedence Precedence
}

// rules is filled in init to avoid an initialization cycle with the parse
// methods.
var rules [tokenTypeCount]parseRule

func init() {
	rules[TokenAmp] = parseRule{nil, (*Parser).binary, PrecBitwiseAnd}
	rules[TokenBangEqual] = parseRule{nil, (*Parser).binary, PrecEquality}
	rules[TokenBang] = parseRule{(*Parser).unary, nil, PrecUnary}
	rules[TokenDot] = parseRule{nil, (*Parser).dot, PrecCall}
	rules[TokenEqualEqual] = parseRule{nil, (*Parser).binary, PrecEquality}
	rules[TokenFloat] = parseRule{(*Parser).floatLiteral, nil, PrecNone}
	rules[TokenGreaterEqual] = parseRule{nil, (*Parser).binary, PrecComparison}
	rules[TokenGreaterGreater] = parseRule{nil, (*Parser).binary, PrecShift}
	rules[TokenGreater] = parseRule{nil, (*Parser).binary, PrecComparison}
	rules[TokenIdentifier] = parseRule{(*Parser).variable, nil, PrecNone}
	rules[TokenInt] = parseRule{(*Parser).intLiteral, nil, PrecNone}
	rules[TokenKeywordAnd] = parseRule{nil, (*Parser).logicalAnd, PrecLogicalAnd}
	rules[TokenKeywordFalse] = parseRule{(*Parser).literal, nil, PrecNone}
	rules[TokenKeywordNone] = parseRule{(*Parser).literal, nil, PrecNone}
	rules[TokenKeywordOr] = parseRule{nil, (*Parser).logicalOr, PrecLogicalOr}
	rules[TokenKeywordSuper] = parseRule{(*Parser).super, nil, PrecNone}
	rules[TokenKeywordThis] = parseRule{(*Parser).this, nil, PrecNone}
	rules[TokenKeywordTrue] = parseRule{(*Parser).literal, nil, PrecNone}
	rules[TokenLeftBracket] = parseRule{(*Parser).list, (*Parser).subscript, PrecCall}
	rules[TokenLeftParen] = parseRule{(*Parser).grouping, (*Parser).call, PrecCall}
	rules[TokenLessEqual] = parseRule{nil, (*Parser).binary, PrecComparison}
	rules[TokenLessLess] = parseRule{nil, (*Parser).binary, PrecShift}
	rules[TokenLess] = parseRule{nil, (*Parser).binary, PrecComparison}
	rules[TokenMinus] = parseRule{(*Parser).unary, (*Parser).binary, PrecTerm}
	rules[TokenPipe] = parseRule{nil, (*Parser).binary, PrecBitwiseOr}
	rules[TokenPercent] = parseRule{nil, (*Parser).binary, PrecFactor}
	rules[TokenPercentPercent] = parseRule{nil, (*Parser).binary, PrecFactor}
	rules[TokenPlus] = parseRule{(*Parser).unary, (*Parser).binary, PrecTerm}
	rules[TokenQuestion] = parseRule{nil, (*Parser).ternary, PrecTernary}
	rules[TokenSlash] = parseRule{nil, (*Parser).binary, PrecFactor}
	rules[TokenStar] = parseRule{nil, (*Parser).binary, PrecFactor}
	rules[TokenStarStar] = parseRule{nil, (*Parser).binary, PrecExponent}
	rules[TokenString] = parseRule{(*Parser).stringLiteral, nil, PrecNone}
	rules[TokenTilde] = parseRule{(*Parser).unary, nil, PrecUnary}
	rules[TokenCaret] = parseRule{nil, (*Parser).binary, PrecBitwiseXor}
}

func getRule(t TokenType) *parseRule { return &rules[t] }

// FunctionType tags what kind of function body is being compiled.
type FunctionType int

const (
	TypeFunction FunctionType = iota
	TypeInitializer
	TypeMethod
	TypeScript
)

// Local is a declared local variable. Depth -1 marks "declared but not yet
// initialized", which blocks self-reference in the initializer.
type Local struct {
	name       Token
	depth      int
	isCaptured bool
}

// Upvalue records one captured variable in the enclosing compiler.
type Upvalue struct {
	index   uint8
	isLocal bool
}

// Compiler is per-function compilation state. Nested function declarations
// stack through enclosing.
type Compiler struct {
	enclosing  *Compiler
	function   *vm.ObjFunction
	fnType     FunctionType
	locals     [uint8Count]Local
	localCount int
	upvalues   [uint8Count]Upvalue
	scopeDepth int
}

// ClassCompiler threads through nested class declarations.
type ClassCompiler struct {
	enclosing     *ClassCompiler
	hasSuperclass bool
}

// Parser owns scanning and compilation state for one Compile call.
type Parser struct {
	scanner   *Scanner
	m         *vm.VM
	stderr    io.Writer
	current   Token
	previous  Token
	hadError  bool
	panicMode bool

	compiler     *Compiler
	currentClass *ClassCompiler
}

// Compile translates a source unit into a top-level function, or returns
// ErrCompile after reporting diagnostics to the VM's error stream.
func Compile(source string, m *vm.VM) (*vm.ObjFunction, error) {
	p := &Parser{
		scanner: NewScanner(source),
		m:       m,
		stderr:  m.Stderr,
	}

	// The in-progress function chain is a GC root for the duration of the
	// compile: constants land in chunks before anything on the VM stack
	// references them.
	m.CompilerRoots = p.markRoots
	defer func() { m.CompilerRoots = nil }()

	var compiler Compiler
	p.initCompiler(&compiler, TypeScript)

	p.advance()
	for !p.match(TokenEOF) {
		p.declaration()
	}

	fn := p.endCompiler()
	if p.hadError {
		return nil, ErrCompile
	}
	return fn, nil
}

func (p *Parser) markRoots(mark func(*vm.Obj)) {
	for c := p.compiler; c != nil; c = c.enclosing {
		if c.function != nil {
			mark(&c.function.Obj)
		}
	}
}

// ---------------------------------------------------------------------------
// Error reporting
// ---------------------------------------------------------------------------

func (p *Parser) errorAt(token *Token, message string) {
	if p.panicMode {
		return
	}
	p.panicMode = true

	fmt.Fprintf(p.stderr, "[line %d] Error", token.Line)
	if token.Type == TokenEOF {
		fmt.Fprintf(p.stderr, " at end")
	} else if token.Type != TokenError {
		fmt.Fprintf(p.stderr, " at '%s'", token.Lexeme)
	}
	fmt.Fprintf(p.stderr, ": %s\n", message)
	p.hadError = true
}

func (p *Parser) error(message string) { p.errorAt(&p.previous, message) }

func (p *Parser) errorAtCurrent(message string) { p.errorAt(&p.current, message) }

func (p *Parser) synchronize() {
	p.panicMode = false

	for p.current.Type != TokenEOF {
		if p.previous.Type == TokenSemicolon {
			return
		}
		switch p.current.Type {
		case TokenKeywordClass, TokenKeywordFunc, TokenKeywordVar,
			TokenKeywordFor, TokenKeywordIf, TokenKeywordWhile,
			TokenKeywordPrint, TokenKeywordReturn:
			return
		}
		p.advance()
	}
}

// ---------------------------------------------------------------------------
// Token plumbing
// ---------------------------------------------------------------------------

func (p *Parser) advance() {
	p.previous = p.current

	for {
		p.current = p.scanner.NextToken()
		if p.current.Type != TokenError {
			break
		}
		p.errorAtCurrent(p.current.Lexeme)
	}
}

func (p *Parser) consume(t TokenType, message string) {
	if p.current.Type == t {
		p.advance()
		return
	}
	p.errorAtCurrent(message)
}

func (p *Parser) check(t TokenType) bool { return p.current.Type == t }

func (p *Parser) match(t TokenType) bool {
	if !p.check(t) {
		return false
	}
	p.advance()
	return true
}

// ---------------------------------------------------------------------------
// Bytecode emission
// ---------------------------------------------------------------------------

func (p *Parser) currentChunk() *vm.Chunk { return &p.compiler.function.Chunk }

func (p *Parser) emitByte(b byte) {
	p.currentChunk().Write(b, p.previous.Line)
}

func (p *Parser) emitOp(op vm.Opcode) { p.emitByte(byte(op)) }

func (p *Parser) emitBytes(b1, b2 byte) {
	p.emitByte(b1)
	p.emitByte(b2)
}

func (p *Parser) emitOps(op1, op2 vm.Opcode) {
	p.emitOp(op1)
	p.emitOp(op2)
}

func (p *Parser) emitLoop(loopStart int) {
	p.emitOp(vm.OpLoop)
	offset := p.currentChunk().Count() - loopStart + 2
	if offset > 0xffff {
		p.error("Loop body too large.")
	}
	p.emitByte(byte(offset >> 8))
	p.emitByte(byte(offset))
}

func (p *Parser) emitJump(op vm.Opcode) int {
	p.emitOp(op)
	p.emitBytes(0xff, 0xff)
	return p.currentChunk().Count() - 2
}

func (p *Parser) patchJump(offset int) {
	// -2 adjusts for the operand bytes themselves.
	jump := p.currentChunk().Count() - offset - 2
	if jump > 0xffff {
		p.error("Too much code to jump over.")
	}

	p.currentChunk().Code[offset] = byte(jump >> 8)
	p.currentChunk().Code[offset+1] = byte(jump)
}

func (p *Parser) emitReturn() {
	if p.compiler.fnType == TypeInitializer {
		p.emitBytes(byte(vm.OpGetLocal), 0)
	} else {
		p.emitOp(vm.OpNone)
	}
	p.emitOp(vm.OpReturn)
}

func (p *Parser) makeConstant(value vm.Value) uint8 {
	constant := p.currentChunk().AddConstant(value)
	if constant > 0xff {
		p.error("Too many constants in one chunk.")
		return 0
	}
	return uint8(constant)
}

func (p *Parser) emitConstant(value vm.Value) {
	constant := p.currentChunk().AddConstant(value)
	switch {
	case constant <= 0xff:
		p.emitBytes(byte(vm.OpConstant), byte(constant))
	case constant <= 0xffffff:
		p.emitOp(vm.OpConstantLong)
		p.emitByte(byte(constant >> 16))
		p.emitByte(byte(constant >> 8))
		p.emitByte(byte(constant))
	default:
		p.error("Too many constants in one chunk.")
	}
}

// ---------------------------------------------------------------------------
// Compiler lifecycle and scopes
// ---------------------------------------------------------------------------

func (p *Parser) initCompiler(compiler *Compiler, fnType FunctionType) {
	compiler.enclosing = p.compiler
	compiler.fnType = fnType
	compiler.function = p.m.NewFunction()
	p.compiler = compiler
	if fnType != TypeScript {
		compiler.function.Name = p.m.CopyString(p.previous.Lexeme)
	}

	// Slot zero is reserved: it holds `this` for methods and initializers
	// and an unnameable empty local for everything else.
	local := &compiler.locals[compiler.localCount]
	compiler.localCount++
	local.depth = 0
	local.isCaptured = false
	if fnType != TypeFunction && fnType != TypeScript {
		local.name = Token{Type: TokenKeywordThis, Lexeme: "this"}
	} else {
		local.name = Token{Type: TokenIdentifier, Lexeme: ""}
	}
}

func (p *Parser) endCompiler() *vm.ObjFunction {
	p.emitReturn()
	fn := p.compiler.function
	p.m.FinalizeFunction(fn)

	if p.m.DumpCode && !p.hadError {
		name := "<script>"
		if fn.Name != nil {
			name = fn.Name.Chars
		}
		vm.DisassembleChunk(p.stderr, &fn.Chunk, name)
	}

	p.compiler = p.compiler.enclosing
	return fn
}

func (p *Parser) beginScope() { p.compiler.scopeDepth++ }

func (p *Parser) endScope() {
	c := p.compiler
	c.scopeDepth--

	for c.localCount > 0 && c.locals[c.localCount-1].depth > c.scopeDepth {
		if c.locals[c.localCount-1].isCaptured {
			p.emitOp(vm.OpCloseUpvalue)
		} else {
			p.emitOp(vm.OpPop)
		}
		c.localCount--
	}
}

// ---------------------------------------------------------------------------
// Variable resolution
// ---------------------------------------------------------------------------

func (p *Parser) identifierConstant(name *Token) uint8 {
	return p.makeConstant(vm.ObjVal(&p.m.CopyString(name.Lexeme).Obj))
}

func identifiersEqual(a, b *Token) bool { return a.Lexeme == b.Lexeme }

func (p *Parser) resolveLocal(compiler *Compiler, name *Token) int {
	for i := compiler.localCount - 1; i >= 0; i-- {
		local := &compiler.locals[i]
		if identifiersEqual(name, &local.name) {
			if local.depth == -1 {
				p.error("Can't read local variable in its own initializer.")
			}
			return i
		}
	}
	return -1
}

func (p *Parser) addUpvalue(compiler *Compiler, index uint8, isLocal bool) int {
	upvalueCount := compiler.function.UpvalueCount

	for i := 0; i < upvalueCount; i++ {
		upvalue := &compiler.upvalues[i]
		if upvalue.index == index && upvalue.isLocal == isLocal {
			return i
		}
	}

	if upvalueCount == uint8Count {
		p.error("Too many closure variables in function.")
		return 0
	}

	compiler.upvalues[upvalueCount] = Upvalue{index: index, isLocal: isLocal}
	compiler.function.UpvalueCount++
	return upvalueCount
}

func (p *Parser) resolveUpvalue(compiler *Compiler, name *Token) int {
	if compiler.enclosing == nil {
		return -1
	}

	if local := p.resolveLocal(compiler.enclosing, name); local != -1 {
		compiler.enclosing.locals[local].isCaptured = true
		return p.addUpvalue(compiler, uint8(local), true)
	}

	if upvalue := p.resolveUpvalue(compiler.enclosing, name); upvalue != -1 {
		return p.addUpvalue(compiler, uint8(upvalue), false)
	}

	return -1
}

func (p *Parser) addLocal(name Token) {
	if p.compiler.localCount == uint8Count {
		p.error("Too many local variables in function.")
		return
	}

	local := &p.compiler.locals[p.compiler.localCount]
	p.compiler.localCount++
	local.name = name
	local.depth = -1
	local.isCaptured = false
}

func (p *Parser) declareVariable() {
	if p.compiler.scopeDepth == 0 {
		return
	}

	name := &p.previous
	for i := p.compiler.localCount - 1; i >= 0; i-- {
		local := &p.compiler.locals[i]
		if local.depth != -1 && local.depth < p.compiler.scopeDepth {
			break
		}
		if identifiersEqual(name, &local.name) {
			p.error("Already a variable with this name in this scope.")
		}
	}
	p.addLocal(*name)
}

func (p *Parser) parseVariable(errorMessage string) uint8 {
	p.consume(TokenIdentifier, errorMessage)

	p.declareVariable()
	if p.compiler.scopeDepth > 0 {
		return 0
	}
	return p.identifierConstant(&p.previous)
}

func (p *Parser) markInitialized() {
	if p.compiler.scopeDepth == 0 {
		return
	}
	p.compiler.locals[p.compiler.localCount-1].depth = p.compiler.scopeDepth
}

func (p *Parser) defineVariable(global uint8) {
	if p.compiler.scopeDepth > 0 {
		p.markInitialized()
		return
	}
	p.emitBytes(byte(vm.OpDefineGlobal), global)
}

// ---------------------------------------------------------------------------
// Expressions
// ---------------------------------------------------------------------------

func (p *Parser) parsePrecedence(precedence Precedence) {
	p.advance()
	prefixRule := getRule(p.previous.Type).prefix
	if prefixRule == nil {
		p.error("Expect expression.")
		return
	}

	canAssign := precedence <= PrecAssignment
	prefixRule(p, canAssign)

	for precedence <= getRule(p.current.Type).precedence {
		p.advance()
		infixRule := getRule(p.previous.Type).infix
		infixRule(p, canAssign)
	}

	if canAssign && p.match(TokenEqual) {
		p.error("Invalid assignment target.")
	}
}

func (p *Parser) expression() { p.parsePrecedence(PrecAssignment) }

func (p *Parser) argumentList() uint8 {
	argCount := 0
	if !p.check(TokenRightParen) {
		for {
			p.expression()
			if argCount == 255 {
				p.error("Can't have more than 255 arguments.")
			}
			argCount++
			if !p.match(TokenComma) {
				break
			}
		}
	}
	p.consume(TokenRightParen, "Expect ')' after arguments.")
	return uint8(argCount)
}

func (p *Parser) logicalAnd(canAssign bool) {
	endJump := p.emitJump(vm.OpJumpIfFalse)
	p.emitOp(vm.OpPop)
	p.parsePrecedence(PrecLogicalAnd)
	p.patchJump(endJump)
}

func (p *Parser) logicalOr(canAssign bool) {
	elseJump := p.emitJump(vm.OpJumpIfFalse)
	endJump := p.emitJump(vm.OpJump)

	p.patchJump(elseJump)
	p.emitOp(vm.OpPop)

	p.parsePrecedence(PrecLogicalOr)
	p.patchJump(endJump)
}

func (p *Parser) ternary(canAssign bool) {
	thenJump := p.emitJump(vm.OpJumpIfFalse)
	p.emitOp(vm.OpPop)
	p.expression()
	endJump := p.emitJump(vm.OpJump)
	p.consume(TokenColon, "Expect ':' in ternary.")
	p.patchJump(thenJump)
	p.emitOp(vm.OpPop)
	p.parsePrecedence(PrecTernary)
	p.patchJump(endJump)
}

func (p *Parser) binary(canAssign bool) {
	operatorType := p.previous.Type
	rule := getRule(operatorType)
	p.parsePrecedence(rule.precedence + 1)

	switch operatorType {
	case TokenBangEqual:
		p.emitOps(vm.OpEqual, vm.OpNot)
	case TokenEqualEqual:
		p.emitOp(vm.OpEqual)
	case TokenGreater:
		p.emitOp(vm.OpGreater)
	case TokenGreaterEqual:
		p.emitOps(vm.OpLess, vm.OpNot)
	case TokenLess:
		p.emitOp(vm.OpLess)
	case TokenLessEqual:
		p.emitOps(vm.OpGreater, vm.OpNot)
	case TokenPipe:
		p.emitOp(vm.OpOr)
	case TokenCaret:
		p.emitOp(vm.OpXor)
	case TokenAmp:
		p.emitOp(vm.OpAnd)
	case TokenLessLess:
		p.emitOp(vm.OpLshift)
	case TokenGreaterGreater:
		p.emitOp(vm.OpRshift)
	case TokenMinus:
		p.emitOp(vm.OpSubtract)
	case TokenPlus:
		p.emitOp(vm.OpAdd)
	case TokenSlash:
		p.emitOp(vm.OpDivide)
	case TokenStar:
		p.emitOp(vm.OpMultiply)
	case TokenPercent:
		p.emitOp(vm.OpModulus)
	case TokenPercentPercent:
		p.emitOp(vm.OpFloorDivide)
	case TokenStarStar:
		p.emitOp(vm.OpExponent)
	}
}

func (p *Parser) call(canAssign bool) {
	argCount := p.argumentList()
	p.emitBytes(byte(vm.OpCall), argCount)
}

func (p *Parser) dot(canAssign bool) {
	p.consume(TokenIdentifier, "Expect property name after '.'")
	name := p.identifierConstant(&p.previous)

	if canAssign && p.match(TokenEqual) {
		p.expression()
		p.emitBytes(byte(vm.OpSetProperty), name)
	} else if p.match(TokenLeftParen) {
		argCount := p.argumentList()
		p.emitBytes(byte(vm.OpInvoke), name)
		p.emitByte(argCount)
	} else {
		p.emitBytes(byte(vm.OpGetProperty), name)
	}
}

func (p *Parser) literal(canAssign bool) {
	switch p.previous.Type {
	case TokenKeywordFalse:
		p.emitOp(vm.OpFalse)
	case TokenKeywordNone:
		p.emitOp(vm.OpNone)
	case TokenKeywordTrue:
		p.emitOp(vm.OpTrue)
	}
}

func (p *Parser) grouping(canAssign bool) {
	p.expression()
	p.consume(TokenRightParen, "Expect ')' after expression.")
}

func (p *Parser) floatLiteral(canAssign bool) {
	value, err := strconv.ParseFloat(p.previous.Lexeme, 64)
	if err != nil {
		p.error("Invalid float literal.")
		return
	}
	p.emitConstant(vm.FloatVal(value))
}

func (p *Parser) intLiteral(canAssign bool) {
	value, err := strconv.ParseInt(p.previous.Lexeme, 10, 64)
	if err != nil {
		p.error("Invalid integer literal.")
		return
	}
	p.emitConstant(vm.IntVal(int32(value)))
}

func (p *Parser) stringLiteral(canAssign bool) {
	lexeme := p.previous.Lexeme
	quote := lexeme[0]
	var chars string
	if len(lexeme) >= 6 && lexeme[1] == quote && lexeme[2] == quote {
		chars = lexeme[3 : len(lexeme)-3]
	} else {
		chars = lexeme[1 : len(lexeme)-1]
	}
	p.emitConstant(vm.ObjVal(&p.m.CopyString(chars).Obj))
}

func (p *Parser) namedVariable(name Token, canAssign bool) {
	var getOp, setOp vm.Opcode
	arg := p.resolveLocal(p.compiler, &name)
	if arg != -1 {
		getOp = vm.OpGetLocal
		setOp = vm.OpSetLocal
	} else if arg = p.resolveUpvalue(p.compiler, &name); arg != -1 {
		getOp = vm.OpGetUpvalue
		setOp = vm.OpSetUpvalue
	} else {
		arg = int(p.identifierConstant(&name))
		getOp = vm.OpGetGlobal
		setOp = vm.OpSetGlobal
	}

	if canAssign && p.match(TokenEqual) {
		p.expression()
		p.emitBytes(byte(setOp), uint8(arg))
	} else {
		p.emitBytes(byte(getOp), uint8(arg))
	}
}

func (p *Parser) variable(canAssign bool) {
	p.namedVariable(p.previous, canAssign)
}

func syntheticToken(text string) Token {
	return Token{Type: TokenIdentifier, Lexeme: text}
}

func (p *Parser) super(canAssign bool) {
	if p.currentClass == nil {
		p.error("Can't use 'super' outside of a class.")
	} else if !p.currentClass.hasSuperclass {
		p.error("Can't use 'super' in a class with no superclass.")
	}

	p.consume(TokenDot, "Expect '.' after super.")
	p.consume(TokenIdentifier, "Expect superclass method name.")
	name := p.identifierConstant(&p.previous)

	p.namedVariable(syntheticToken("this"), false)
	if p.match(TokenLeftParen) {
		argCount := p.argumentList()
		p.namedVariable(syntheticToken("super"), false)
		p.emitBytes(byte(vm.OpSuperInvoke), name)
		p.emitByte(argCount)
	} else {
		p.namedVariable(syntheticToken("super"), false)
		p.emitBytes(byte(vm.OpGetSuper), name)
	}
}

func (p *Parser) this(canAssign bool) {
	if p.currentClass == nil {
		p.error("Can't use 'this' outside of a class.")
		return
	}
	p.variable(false)
}

func (p *Parser) list(canAssign bool) {
	itemCount := 0
	if !p.check(TokenRightBracket) {
		for {
			if p.check(TokenRightBracket) {
				break
			}

			p.parsePrecedence(PrecTernary)

			if itemCount == 255 {
				p.error("Cannot have more than 255 items in a list literal.")
			}
			itemCount++
			if !p.match(TokenComma) {
				break
			}
		}
	}

	p.consume(TokenRightBracket, "Expect ']' after list literal.")

	p.emitOp(vm.OpListBuild)
	p.emitByte(uint8(itemCount))
}

func (p *Parser) subscript(canAssign bool) {
	p.parsePrecedence(PrecTernary)
	p.consume(TokenRightBracket, "Expect ']' after index.")

	if canAssign && p.match(TokenEqual) {
		p.expression()
		p.emitOp(vm.OpListStore)
	} else {
		p.emitOp(vm.OpListIndex)
	}
}

func (p *Parser) unary(canAssign bool) {
	operatorType := p.previous.Type

	p.parsePrecedence(PrecUnary)

	switch operatorType {
	case TokenBang:
		p.emitOp(vm.OpNot)
	case TokenMinus:
		p.emitOp(vm.OpNegate)
	case TokenTilde:
		p.emitOp(vm.OpInvert)
	}
}

// ---------------------------------------------------------------------------
// Declarations and statements
// ---------------------------------------------------------------------------

func (p *Parser) block() {
	for !p.check(TokenRightBrace) && !p.check(TokenEOF) {
		p.declaration()
	}
	p.consume(TokenRightBrace, "Expect '}' after block.")
}

func (p *Parser) function(fnType FunctionType) {
	var compiler Compiler
	p.initCompiler(&compiler, fnType)
	p.beginScope()

	p.consume(TokenLeftParen, "Expect '(' after function name.")
	if !p.check(TokenRightParen) {
		for {
			p.compiler.function.Arity++
			if p.compiler.function.Arity > 255 {
				p.errorAtCurrent("Can't have more than 255 parameters.")
			}
			constant := p.parseVariable("Expect parameter name.")
			p.defineVariable(constant)
			if !p.match(TokenComma) {
				break
			}
		}
	}
	p.consume(TokenRightParen, "Expect ')' after parameters.")
	p.consume(TokenLeftBrace, "Expect '{' before function body.")
	p.block()

	fn := p.endCompiler()
	p.emitBytes(byte(vm.OpClosure), p.makeConstant(vm.ObjVal(&fn.Obj)))

	for i := 0; i < fn.UpvalueCount; i++ {
		if compiler.upvalues[i].isLocal {
			p.emitByte(1)
		} else {
			p.emitByte(0)
		}
		p.emitByte(compiler.upvalues[i].index)
	}
}

func (p *Parser) method() {
	p.consume(TokenKeywordFunc, "Expect only methods in class body.")
	p.consume(TokenIdentifier, "Expect method name.")
	constant := p.identifierConstant(&p.previous)

	fnType := TypeMethod
	if p.previous.Lexeme == "__init__" {
		fnType = TypeInitializer
	}

	p.function(fnType)
	p.emitBytes(byte(vm.OpMethod), constant)
}

func (p *Parser) classDeclaration() {
	p.consume(TokenIdentifier, "Expect class name.")
	className := p.previous
	nameConstant := p.identifierConstant(&p.previous)
	p.declareVariable()

	p.emitBytes(byte(vm.OpClass), nameConstant)
	p.defineVariable(nameConstant)

	classCompiler := ClassCompiler{enclosing: p.currentClass}
	p.currentClass = &classCompiler

	if p.match(TokenLeftParen) {
		if p.match(TokenIdentifier) {
			p.variable(false)

			if identifiersEqual(&className, &p.previous) {
				p.error("A class can't inherit from itself.")
			}

			p.beginScope()
			p.addLocal(syntheticToken("super"))
			p.defineVariable(0)

			p.namedVariable(className, false)
			p.emitOp(vm.OpInherit)
			classCompiler.hasSuperclass = true
		}
		p.consume(TokenRightParen, "Expect ')' after superclass.")
	}

	p.namedVariable(className, false)
	p.consume(TokenLeftBrace, "Expect '{' before class body.")
	for !p.check(TokenRightBrace) && !p.check(TokenEOF) {
		p.method()
	}
	p.consume(TokenRightBrace, "Expect '}' after class body.")
	p.emitOp(vm.OpPop)

	if classCompiler.hasSuperclass {
		p.endScope()
	}

	p.currentClass = p.currentClass.enclosing
}

func (p *Parser) funcDeclaration() {
	global := p.parseVariable("Expect function name.")
	p.markInitialized()
	p.function(TypeFunction)
	p.defineVariable(global)
}

func (p *Parser) varDeclaration() {
	global := p.parseVariable("Expect variable name.")

	if p.match(TokenEqual) {
		p.expression()
	} else {
		p.emitOp(vm.OpNone)
	}

	p.consume(TokenSemicolon, "Expect ';' after variable declaration.")
	p.defineVariable(global)
}

func (p *Parser) printStatement() {
	p.expression()
	p.consume(TokenSemicolon, "Expect ';' after value.")
	p.emitOp(vm.OpPrint)
}

func (p *Parser) returnStatement() {
	if p.compiler.fnType == TypeScript {
		p.error("Can't return from top-level code.")
	}

	if p.match(TokenSemicolon) {
		p.emitReturn()
	} else {
		if p.compiler.fnType == TypeInitializer {
			p.error("Can't return a value from an initializer.")
		}

		p.expression()
		p.consume(TokenSemicolon, "Expect ';' after return value.")
		p.emitOp(vm.OpReturn)
	}
}

func (p *Parser) expressionStatement() {
	p.expression()
	p.consume(TokenSemicolon, "Expect ';' after value.")
	p.emitOp(vm.OpPop)
}

func (p *Parser) ifStatement() {
	p.consume(TokenLeftParen, "Expect '(' after 'if'.")
	p.expression()
	p.consume(TokenRightParen, "Expect ')' after condition.")

	thenJump := p.emitJump(vm.OpJumpIfFalse)
	p.emitOp(vm.OpPop)
	p.statement()
	elseJump := p.emitJump(vm.OpJump)
	p.patchJump(thenJump)
	p.emitOp(vm.OpPop)

	if p.match(TokenKeywordElse) {
		p.statement()
	}
	p.patchJump(elseJump)
}

func (p *Parser) whileStatement() {
	loopStart := p.currentChunk().Count()
	p.consume(TokenLeftParen, "Expect '(' after 'while'.")
	p.expression()
	p.consume(TokenRightParen, "Expect ')' after condition.")

	exitJump := p.emitJump(vm.OpJumpIfFalse)
	p.emitOp(vm.OpPop)
	p.statement()
	p.emitLoop(loopStart)

	p.patchJump(exitJump)
	p.emitOp(vm.OpPop)
}

func (p *Parser) forStatement() {
	p.beginScope()
	p.consume(TokenLeftParen, "Expect '(' after 'for'.")
	if p.match(TokenSemicolon) {
		// No initializer.
	} else if p.match(TokenKeywordVar) {
		p.varDeclaration()
	} else {
		p.expressionStatement()
	}

	loopStart := p.currentChunk().Count()
	exitJump := -1
	if !p.match(TokenSemicolon) {
		p.expression()
		p.consume(TokenSemicolon, "Expect ';' after loop condition.")

		exitJump = p.emitJump(vm.OpJumpIfFalse)
		p.emitOp(vm.OpPop)
	}

	if !p.match(TokenRightParen) {
		bodyJump := p.emitJump(vm.OpJump)
		incrementStart := p.currentChunk().Count()
		p.expression()
		p.emitOp(vm.OpPop)
		p.consume(TokenRightParen, "Expect ')' after for clauses.")

		p.emitLoop(loopStart)
		loopStart = incrementStart
		p.patchJump(bodyJump)
	}

	p.statement()
	p.emitLoop(loopStart)

	if exitJump != -1 {
		p.patchJump(exitJump)
		p.emitOp(vm.OpPop)
	}

	p.endScope()
}

func (p *Parser) statement() {
	switch {
	case p.match(TokenKeywordPrint):
		p.printStatement()
	case p.match(TokenLeftBrace):
		p.beginScope()
		p.block()
		p.endScope()
	case p.match(TokenKeywordIf):
		p.ifStatement()
	case p.match(TokenKeywordReturn):
		p.returnStatement()
	case p.match(TokenKeywordWhile):
		p.whileStatement()
	case p.match(TokenKeywordFor):
		p.forStatement()
	default:
		p.expressionStatement()
	}
}

func (p *Parser) declaration() {
	switch {
	case p.match(TokenKeywordClass):
		p.classDeclaration()
	case p.match(TokenKeywordFunc):
		p.funcDeclaration()
	case p.match(TokenKeywordVar):
		p.varDeclaration()
	default:
		p.statement()
	}

	if p.panicMode {
		p.synchronize()
	}
}
