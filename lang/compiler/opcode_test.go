package compiler

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOpcodeString(t *testing.T) {
	for op := OpConstant; op < opcodeMax; op++ {
		s := op.String()
		assert.NotEmpty(t, s)
		assert.False(t, strings.Contains(s, "illegal"), "opcode %d stringified as %q", op, s)
	}
	assert.Contains(t, Opcode(opcodeMax).String(), "illegal")
}

func TestEncodedSize(t *testing.T) {
	cases := []struct {
		op   Opcode
		size int
	}{
		{OpConstant, 2},
		{OpGetVar, 2},
		{OpSetVar, 2},
		{OpSetGlobal, 2},
		{OpRaPush, 2},
		{OpAssignLocal, 3},
		{OpJump, 3},
		{OpJumpIfFalse, 3},
		{OpJumpIfFalseDiscard, 3},
		{OpJumpIfTrue, 3},
		{OpPrint, 1},
		{OpPrintln, 1},
		{OpPop, 1},
		{OpAdd, 1},
		{OpReturn, 1},
		{OpRvPop, 1},
		{OpUpScope, 1},
		{OpDownScope, 1},
	}
	for _, c := range cases {
		assert.Equal(t, c.size, encodedSize(c.op), "opcode %s", c.op)
	}
}

func TestIsJump(t *testing.T) {
	for _, op := range []Opcode{OpJump, OpJumpIfFalse, OpJumpIfFalseDiscard, OpJumpIfTrue} {
		assert.True(t, isJump(op), "%s should be a jump", op)
	}
	for _, op := range []Opcode{OpConstant, OpAdd, OpReturn} {
		assert.False(t, isJump(op), "%s should not be a jump", op)
	}
}
