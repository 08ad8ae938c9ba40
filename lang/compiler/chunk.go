package compiler

import (
	"encoding/binary"

	"github.com/mna/wisp/lang/value"
)

// A Chunk is the compiled output: a flat, append-only byte sequence of
// instructions plus an append-only constant pool, exactly the shape
// original_source/chunk.c's Chunk struct describes. There is no
// AST or basic-block graph underneath it — the compiler emits directly
// into a Chunk as it parses (spec.md §4.1).
//
// Growth is plain Go slice append rather than the original's manual
// GROW_CAPACITY doubling, and rather than a third-party growable-buffer
// library: no library in the example pack offers a byte-buffer-plus-
// parallel-typed-pool abstraction, and Go's append already provides the
// amortized-doubling growth the original hand-rolled in C, so recreating
// it by hand here would just be reimplementing what the runtime already
// does for free.
type Chunk struct {
	Code      []byte
	Constants []value.Value
}

// NewChunk returns an empty Chunk.
func NewChunk() *Chunk {
	return &Chunk{}
}

// Size returns the current length of the instruction stream, used as
// the "current chunk index" spec.md's jump-patching and function-address
// bookkeeping refers to.
func (c *Chunk) Size() int { return len(c.Code) }

// AppendByte appends a single raw byte and returns its offset.
func (c *Chunk) AppendByte(b byte) int {
	off := len(c.Code)
	c.Code = append(c.Code, b)
	return off
}

// AppendOp appends an opcode byte and returns its offset.
func (c *Chunk) AppendOp(op Opcode) int {
	return c.AppendByte(byte(op))
}

// AddConstant appends v to the constant pool and returns its index. The
// pool is addressed by a single byte (spec.md §9: "8-bit constant pool
// indices"), so the caller must not exceed 256 constants; that ceiling
// is a faithfully preserved original limitation, not a new one.
func (c *Chunk) AddConstant(v value.Value) byte {
	idx := len(c.Constants)
	c.Constants = append(c.Constants, v)
	return byte(idx)
}

// EmitConstant appends op followed by a constant-index byte for v, the
// "emitter convention" used by OP_CONSTANT, OP_GET_VAR, OP_SET_VAR,
// OP_SET_GLOBAL and OP_RA_PUSH (spec.md §6: 2-byte instructions whose
// second byte indexes the constant pool).
func (c *Chunk) EmitConstant(op Opcode, v value.Value) {
	c.AppendOp(op)
	c.AppendByte(c.AddConstant(v))
}

// EmitForwardJump appends op followed by a 2-byte placeholder and
// returns the offset of the first placeholder byte, to be patched later
// by PatchForwardJump (spec.md §4.4).
func (c *Chunk) EmitForwardJump(op Opcode) int {
	c.AppendOp(op)
	at := len(c.Code)
	c.AppendByte(0xFF)
	c.AppendByte(0xFF)
	return at
}

// PatchForwardJump writes the current chunk size as a big-endian u16 at
// [at, at+1], completing a jump previously emitted by EmitForwardJump.
func (c *Chunk) PatchForwardJump(at int) {
	binary.BigEndian.PutUint16(c.Code[at:at+2], uint16(len(c.Code)))
}

// EmitBackJump appends op followed by the big-endian u16 encoding of
// absAddr, an already-known absolute target (spec.md §4.4).
func (c *Chunk) EmitBackJump(op Opcode, absAddr int) {
	c.AppendOp(op)
	var buf [2]byte
	binary.BigEndian.PutUint16(buf[:], uint16(absAddr))
	c.AppendByte(buf[0])
	c.AppendByte(buf[1])
}

// ReadU16 decodes the big-endian u16 jump target at [at, at+1].
func (c *Chunk) ReadU16(at int) int {
	return int(binary.BigEndian.Uint16(c.Code[at : at+2]))
}
