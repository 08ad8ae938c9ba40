package compiler

import (
	"testing"

	"github.com/mna/wisp/lang/value"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppendByteAndOp(t *testing.T) {
	c := NewChunk()
	off := c.AppendByte(0x42)
	assert.Equal(t, 0, off)
	assert.Equal(t, 1, c.Size())

	off = c.AppendOp(OpPrint)
	assert.Equal(t, 1, off)
	assert.Equal(t, byte(OpPrint), c.Code[1])
}

func TestAddConstantAndEmitConstant(t *testing.T) {
	c := NewChunk()
	idx := c.AddConstant(value.Number(42))
	assert.Equal(t, byte(0), idx)
	assert.Equal(t, value.Number(42), c.Constants[0])

	c.EmitConstant(OpConstant, value.Number(7))
	require.Len(t, c.Code, 2)
	assert.Equal(t, byte(OpConstant), c.Code[0])
	assert.Equal(t, byte(1), c.Code[1])
	assert.Equal(t, value.Number(7), c.Constants[1])
}

func TestForwardJumpPatch(t *testing.T) {
	c := NewChunk()
	at := c.EmitForwardJump(OpJump)
	c.AppendOp(OpPop)
	c.AppendOp(OpPop)
	before := c.Size()
	c.PatchForwardJump(at)
	assert.Equal(t, before, c.ReadU16(at))
}

func TestBackJump(t *testing.T) {
	c := NewChunk()
	target := c.Size()
	c.AppendOp(OpPop)
	c.EmitBackJump(OpJump, target)
	assert.Equal(t, target, c.ReadU16(1+1))
}
