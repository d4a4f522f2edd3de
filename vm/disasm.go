package vm

import (
	"fmt"
	"io"
)

// DisassembleChunk writes a human-readable listing of every instruction in
// the chunk to w.
func DisassembleChunk(w io.Writer, c *Chunk, name string) {
	fmt.Fprintf(w, "== %s ==\n", name)
	for offset := 0; offset < len(c.Code); {
		offset = DisassembleInstruction(w, c, offset)
	}
}

// DisassembleInstruction writes one instruction and returns the offset of
// the next one.
func DisassembleInstruction(w io.Writer, c *Chunk, offset int) int {
	fmt.Fprintf(w, "%04d ", offset)
	if offset > 0 && c.Lines[offset] == c.Lines[offset-1] {
		fmt.Fprintf(w, "   | ")
	} else {
		fmt.Fprintf(w, "%4d ", c.Lines[offset])
	}

	op := Opcode(c.Code[offset])
	info := op.Info()

	switch op {
	case OpConstant, OpDefineGlobal, OpGetGlobal, OpSetGlobal,
		OpClass, OpMethod, OpGetProperty, OpSetProperty, OpGetSuper:
		return constantInstruction(w, info.Name, c, offset)

	case OpConstantLong:
		index := int(c.Code[offset+1])<<16 | int(c.Code[offset+2])<<8 | int(c.Code[offset+3])
		fmt.Fprintf(w, "%-16s %7d '%s'\n", info.Name, index, FormatValue(c.Constants[index]))
		return offset + 4

	case OpGetLocal, OpSetLocal, OpGetUpvalue, OpSetUpvalue, OpCall, OpListBuild:
		return byteInstruction(w, info.Name, c, offset)

	case OpJump, OpJumpIfFalse:
		return jumpInstruction(w, info.Name, 1, c, offset)

	case OpLoop:
		return jumpInstruction(w, info.Name, -1, c, offset)

	case OpInvoke, OpSuperInvoke:
		return invokeInstruction(w, info.Name, c, offset)

	case OpClosure:
		offset++
		constant := int(c.Code[offset])
		offset++
		fn := c.Constants[constant].AsFunction()
		fmt.Fprintf(w, "%-16s %7d %s\n", info.Name, constant, FormatValue(c.Constants[constant]))
		for i := 0; i < fn.UpvalueCount; i++ {
			isLocal := c.Code[offset]
			index := c.Code[offset+1]
			kind := "upvalue"
			if isLocal != 0 {
				kind = "local"
			}
			fmt.Fprintf(w, "%04d      |                     %s %d\n", offset, kind, index)
			offset += 2
		}
		return offset

	default:
		fmt.Fprintf(w, "%s\n", info.Name)
		return offset + 1 + info.Operands
	}
}

func constantInstruction(w io.Writer, name string, c *Chunk, offset int) int {
	constant := int(c.Code[offset+1])
	fmt.Fprintf(w, "%-16s %7d '%s'\n", name, constant, FormatValue(c.Constants[constant]))
	return offset + 2
}

func byteInstruction(w io.Writer, name string, c *Chunk, offset int) int {
	slot := c.Code[offset+1]
	fmt.Fprintf(w, "%-16s %7d\n", name, slot)
	return offset + 2
}

func jumpInstruction(w io.Writer, name string, sign int, c *Chunk, offset int) int {
	jump := int(c.Code[offset+1])<<8 | int(c.Code[offset+2])
	fmt.Fprintf(w, "%-16s %7d -> %d\n", name, offset, offset+3+sign*jump)
	return offset + 3
}

func invokeInstruction(w io.Writer, name string, c *Chunk, offset int) int {
	constant := int(c.Code[offset+1])
	argc := c.Code[offset+2]
	fmt.Fprintf(w, "%-16s (%d args) %5d '%s'\n", name, argc, constant, FormatValue(c.Constants[constant]))
	return offset + 3
}
