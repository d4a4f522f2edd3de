package vm

import "fmt"

// Opcode is a single bytecode instruction. Opcodes are grouped into ranges
// by category; multi-byte operands follow the opcode big-endian.
type Opcode byte

const (
	// ========================================================================
	// Constants and literals (0x00-0x0F)
	// ========================================================================

	OpConstant     Opcode = 0x00 // Push constant: OpConstant <index:u8>
	OpConstantLong Opcode = 0x01 // Push constant: OpConstantLong <index:u24>
	OpNone         Opcode = 0x02 // Push none
	OpTrue         Opcode = 0x03 // Push true
	OpFalse        Opcode = 0x04 // Push false

	// ========================================================================
	// Arithmetic and unary (0x10-0x1F)
	// ========================================================================

	OpAdd         Opcode = 0x10 // ints, floats, or string concatenation
	OpSubtract    Opcode = 0x11
	OpMultiply    Opcode = 0x12 // also string repetition: str * int or int * str
	OpDivide      Opcode = 0x13 // always float
	OpModulus     Opcode = 0x14
	OpFloorDivide Opcode = 0x15 // %% - divide then truncate to int
	OpExponent    Opcode = 0x16
	OpNegate      Opcode = 0x17
	OpInvert      Opcode = 0x18 // bitwise not, ints only
	OpNot         Opcode = 0x19 // logical not

	// ========================================================================
	// Comparison and bitwise (0x20-0x2F)
	// ========================================================================

	OpEqual   Opcode = 0x20
	OpGreater Opcode = 0x21
	OpLess    Opcode = 0x22
	OpAnd     Opcode = 0x23 // bitwise
	OpOr      Opcode = 0x24 // bitwise
	OpXor     Opcode = 0x25 // bitwise
	OpLshift  Opcode = 0x26
	OpRshift  Opcode = 0x27

	// ========================================================================
	// Variables (0x30-0x3F)
	// ========================================================================

	OpDefineGlobal Opcode = 0x30 // OpDefineGlobal <name:u8>
	OpGetGlobal    Opcode = 0x31 // OpGetGlobal <name:u8>
	OpSetGlobal    Opcode = 0x32 // OpSetGlobal <name:u8>
	OpGetLocal     Opcode = 0x33 // OpGetLocal <slot:u8>
	OpSetLocal     Opcode = 0x34 // OpSetLocal <slot:u8>
	OpGetUpvalue   Opcode = 0x35 // OpGetUpvalue <slot:u8>
	OpSetUpvalue   Opcode = 0x36 // OpSetUpvalue <slot:u8>

	// ========================================================================
	// Control flow (0x40-0x4F)
	// ========================================================================

	OpJump        Opcode = 0x40 // OpJump <offset:u16>, forward
	OpJumpIfFalse Opcode = 0x41 // OpJumpIfFalse <offset:u16>, peeks, no pop
	OpLoop        Opcode = 0x42 // OpLoop <offset:u16>, backward
	OpPop         Opcode = 0x43

	// ========================================================================
	// Functions and closures (0x50-0x5F)
	// ========================================================================

	OpCall         Opcode = 0x50 // OpCall <argc:u8>
	OpClosure      Opcode = 0x51 // OpClosure <fn:u8> then (isLocal, index) pairs
	OpCloseUpvalue Opcode = 0x52
	OpReturn       Opcode = 0x53

	// ========================================================================
	// Classes (0x60-0x6F)
	// ========================================================================

	OpClass       Opcode = 0x60 // OpClass <name:u8>
	OpInherit     Opcode = 0x61
	OpMethod      Opcode = 0x62 // OpMethod <name:u8>
	OpGetProperty Opcode = 0x63 // OpGetProperty <name:u8>
	OpSetProperty Opcode = 0x64 // OpSetProperty <name:u8>
	OpInvoke      Opcode = 0x65 // OpInvoke <name:u8> <argc:u8>
	OpGetSuper    Opcode = 0x66 // OpGetSuper <name:u8>
	OpSuperInvoke Opcode = 0x67 // OpSuperInvoke <name:u8> <argc:u8>

	// ========================================================================
	// Lists (0x70-0x77)
	// ========================================================================

	OpListBuild Opcode = 0x70 // OpListBuild <count:u8>
	OpListIndex Opcode = 0x71
	OpListStore Opcode = 0x72

	// ========================================================================
	// I/O (0x78)
	// ========================================================================

	OpPrint Opcode = 0x78
)

// OpcodeInfo carries per-opcode metadata for the disassembler.
type OpcodeInfo struct {
	Name     string
	Operands int // operand bytes following the opcode; -1 = variable (OpClosure)
}

var opcodeInfoTable = map[Opcode]OpcodeInfo{
	OpConstant:     {"OP_CONSTANT", 1},
	OpConstantLong: {"OP_CONSTANT_LONG", 3},
	OpNone:         {"OP_NONE", 0},
	OpTrue:         {"OP_TRUE", 0},
	OpFalse:        {"OP_FALSE", 0},

	OpAdd:         {"OP_ADD", 0},
	OpSubtract:    {"OP_SUBTRACT", 0},
	OpMultiply:    {"OP_MULTIPLY", 0},
	OpDivide:      {"OP_DIVIDE", 0},
	OpModulus:     {"OP_MODULUS", 0},
	OpFloorDivide: {"OP_FLOOR_DIVIDE", 0},
	OpExponent:    {"OP_EXPONENT", 0},
	OpNegate:      {"OP_NEGATE", 0},
	OpInvert:      {"OP_INVERT", 0},
	OpNot:         {"OP_NOT", 0},

	OpEqual:   {"OP_EQUAL", 0},
	OpGreater: {"OP_GREATER", 0},
	OpLess:    {"OP_LESS", 0},
	OpAnd:     {"OP_AND", 0},
	OpOr:      {"OP_OR", 0},
	OpXor:     {"OP_XOR", 0},
	OpLshift:  {"OP_LSHIFT", 0},
	OpRshift:  {"OP_RSHIFT", 0},

	OpDefineGlobal: {"OP_DEFINE_GLOBAL", 1},
	OpGetGlobal:    {"OP_GET_GLOBAL", 1},
	OpSetGlobal:    {"OP_SET_GLOBAL", 1},
	OpGetLocal:     {"OP_GET_LOCAL", 1},
	OpSetLocal:     {"OP_SET_LOCAL", 1},
	OpGetUpvalue:   {"OP_GET_UPVALUE", 1},
	OpSetUpvalue:   {"OP_SET_UPVALUE", 1},

	OpJump:        {"OP_JUMP", 2},
	OpJumpIfFalse: {"OP_JUMP_IF_FALSE", 2},
	OpLoop:        {"OP_LOOP", 2},
	OpPop:         {"OP_POP", 0},

	OpCall:         {"OP_CALL", 1},
	OpClosure:      {"OP_CLOSURE", -1},
	OpCloseUpvalue: {"OP_CLOSE_UPVALUE", 0},
	OpReturn:       {"OP_RETURN", 0},

	OpClass:       {"OP_CLASS", 1},
	OpInherit:     {"OP_INHERIT", 0},
	OpMethod:      {"OP_METHOD", 1},
	OpGetProperty: {"OP_GET_PROPERTY", 1},
	OpSetProperty: {"OP_SET_PROPERTY", 1},
	OpInvoke:      {"OP_INVOKE", 2},
	OpGetSuper:    {"OP_GET_SUPER", 1},
	OpSuperInvoke: {"OP_SUPER_INVOKE", 2},

	OpListBuild: {"OP_LIST_BUILD", 1},
	OpListIndex: {"OP_LIST_INDEX", 0},
	OpListStore: {"OP_LIST_STORE", 0},

	OpPrint: {"OP_PRINT", 0},
}

// Info returns metadata for the opcode, with a synthetic entry for unknowns.
func (op Opcode) Info() OpcodeInfo {
	if info, ok := opcodeInfoTable[op]; ok {
		return info
	}
	return OpcodeInfo{Name: fmt.Sprintf("UNKNOWN(0x%02X)", byte(op))}
}

func (op Opcode) String() string { return op.Info().Name }
