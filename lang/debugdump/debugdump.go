// Package debugdump formats tokens, compiled chunks and live VM stacks
// for human inspection. It restores, as real wired Go code, the
// debugging facilities original_source/debugTools.c provides (printToken,
// printChunk, printStack) and which spec.md §1 calls out as a thin
// collaborator excluded from the core of the spec — SPEC_FULL.md §9
// brings it back as a supplemented feature, gated behind an explicit
// trace flag rather than the original's always-on debug build.
package debugdump

import (
	"fmt"
	"io"

	"github.com/mna/wisp/lang/compiler"
	"github.com/mna/wisp/lang/scanner"
	"github.com/mna/wisp/lang/token"
	"github.com/mna/wisp/lang/value"
)

// Tokens scans all of src and writes one line per token to w, stopping
// after the EOF token. It never returns a scan error: an ILLEGAL token
// is itself printed like any other (original_source/debugTools.c
// printToken has no error path either, it just prints the token kind).
func Tokens(w io.Writer, src []byte) {
	var sc scanner.Scanner
	sc.Init(src)
	for {
		tok := sc.Next()
		fmt.Fprintf(w, "[%s] %q\n", tok.Kind, tok.Lit)
		if tok.Kind == token.EOF {
			return
		}
	}
}

// Chunk writes a disassembly of chunk to w: one numbered line per
// instruction, with decoded operands for constant-pool indices and jump
// targets (original_source/debugTools.c printChunk).
func Chunk(w io.Writer, chunk *compiler.Chunk) {
	fmt.Fprintln(w, "--<CHUNK>--")
	if chunk.Size() == 0 {
		fmt.Fprintln(w, "[empty chunk]")
		return
	}

	for i := 0; i < chunk.Size(); {
		op := compiler.Opcode(chunk.Code[i])
		fmt.Fprintf(w, "# [%5d] %s\n", i, op)

		switch {
		case op == compiler.OpConstant || op == compiler.OpGetVar || op == compiler.OpSetVar ||
			op == compiler.OpSetGlobal || op == compiler.OpRaPush:
			idx := chunk.Code[i+1]
			fmt.Fprintf(w, "  ^operand| constant[%d] = %s\n", idx, describeConstant(chunk, idx))

		case op == compiler.OpAssignLocal:
			stackOffset := chunk.Code[i+1]
			idx := chunk.Code[i+2]
			fmt.Fprintf(w, "  ^operand| stack[-%d]\n", stackOffset)
			fmt.Fprintf(w, "  ^operand| constant[%d] = %s\n", idx, describeConstant(chunk, idx))

		case compiler.IsJump(op):
			target := chunk.ReadU16(i + 1)
			fmt.Fprintf(w, "  ^operand| -> [%d]\n", target)
		}

		i += compiler.EncodedSize(op)
	}
}

func describeConstant(chunk *compiler.Chunk, idx byte) string {
	if int(idx) >= len(chunk.Constants) {
		return "<out of range>"
	}
	return chunk.Constants[idx].String()
}

// Stack writes a one-line rendering of a VM value-stack snapshot to w,
// in `machine.VM.Snapshot` order (bottom to top).
// (original_source/debugTools.c printStack).
func Stack(w io.Writer, stack []value.Value) {
	if len(stack) == 0 {
		fmt.Fprintln(w, "[stack empty]")
		return
	}
	fmt.Fprint(w, "[")
	for i, v := range stack {
		if i > 0 {
			fmt.Fprint(w, ", ")
		}
		fmt.Fprintf(w, "#%d: %s", i, v.String())
	}
	fmt.Fprintln(w, "]")
}
