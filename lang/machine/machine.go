// Package machine implements wisp's stack-based bytecode interpreter:
// a value stack, a return-address stack, and a flat locals side-array
// for lexical scoping, dispatching over a *compiler.Chunk one
// instruction at a time. It is grounded directly on
// original_source/vm.c rather than the teacher's (mna/nenuphar) frame-
// and-cell based closure machine, which has no equivalent here (wisp
// has no closures, per spec.md's Non-goals).
package machine

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/dolthub/swiss"

	"github.com/mna/wisp/lang/compiler"
	"github.com/mna/wisp/lang/value"
)

// stackLimit bounds the value stack, the return-address stack and the
// locals array (spec.md §5: "fixed capacity (STACK_LIMIT = 256)").
const stackLimit = 256

var (
	ErrStackOverflow  = errors.New("stack limit reached")
	ErrStackUnderflow = errors.New("stack underflow")
	ErrJumpOutOfBound = errors.New("jump address out of bound")
	ErrUnknownOpcode  = errors.New("unknown opcode")
	ErrVarNotFound    = errors.New("variable not found")
)

type local struct {
	key   *value.Str
	index int
	scope int
}

// A VM executes one compiled Chunk. Unlike the original's process-wide
// globals/intern tables, every VM owns its own globals map and receives
// its own *value.Interner, so multiple VMs can run in the same process
// (spec.md §9 REDESIGN FLAG).
type VM struct {
	chunk    *compiler.Chunk
	interner *value.Interner
	out      io.Writer
	trace    io.Writer

	ip int

	stack [stackLimit]value.Value
	sp    int

	raStack [stackLimit]int
	raSP    int

	locals   [stackLimit]local
	localIdx int

	scope       int
	returnValue value.Value

	globals *swiss.Map[string, value.Value]

	hasError bool
	err      error
}

// New returns a VM ready to execute chunk, writing OP_PRINT/OP_PRINTLN
// output to out.
func New(chunk *compiler.Chunk, in *value.Interner, out io.Writer) *VM {
	return &VM{
		chunk:       chunk,
		interner:    in,
		out:         out,
		returnValue: value.Nil{},
		globals:     swiss.NewMap[string, value.Value](8),
	}
}

// Trace enables instruction-level debug output to w, or disables it
// when w is nil. This is the supplemental, non-core tracing feature
// (SPEC_FULL.md §9), gated explicitly rather than always-on.
func (vm *VM) Trace(w io.Writer) { vm.trace = w }

// Snapshot returns a copy of the live portion of the value stack, for
// lang/debugdump to format (original_source/debugTools.c printStack).
func (vm *VM) Snapshot() []value.Value {
	out := make([]value.Value, vm.sp)
	copy(out, vm.stack[:vm.sp])
	return out
}

func (vm *VM) fail(err error) {
	if !vm.hasError {
		vm.hasError = true
		vm.err = err
	}
}

func (vm *VM) push(v value.Value) {
	if vm.sp >= stackLimit {
		vm.fail(ErrStackOverflow)
		return
	}
	vm.stack[vm.sp] = v
	vm.sp++
}

func (vm *VM) pop() value.Value {
	if vm.sp <= 0 {
		vm.fail(ErrStackUnderflow)
		return value.Nil{}
	}
	vm.sp--
	return vm.stack[vm.sp]
}

func (vm *VM) peek() value.Value {
	if vm.sp <= 0 {
		vm.fail(ErrStackUnderflow)
		return value.Nil{}
	}
	return vm.stack[vm.sp-1]
}

func (vm *VM) pushRA(addr int) {
	if vm.raSP >= stackLimit {
		vm.fail(fmt.Errorf("%w: call stack", ErrStackOverflow))
		return
	}
	vm.raStack[vm.raSP] = addr
	vm.raSP++
}

func (vm *VM) popRA() int {
	if vm.raSP <= 0 {
		vm.fail(fmt.Errorf("%w: call stack", ErrStackUnderflow))
		return 0
	}
	vm.raSP--
	return vm.raStack[vm.raSP]
}

// getLocal searches locals in reverse order, stopping as soon as it
// crosses into an outer scope (original_source/vm.c getLocal).
func (vm *VM) getLocal(key *value.Str) (value.Value, bool) {
	for i := vm.localIdx - 1; i >= 0; i-- {
		l := vm.locals[i]
		if l.scope < vm.scope {
			return nil, false
		}
		if l.key == key {
			return vm.stack[l.index], true
		}
	}
	return nil, false
}

// setLocal pushes v onto the value stack and records its slot as a new
// local bound to key at the current scope.
func (vm *VM) setLocal(key *value.Str, v value.Value) {
	l := local{key: key, index: vm.sp, scope: vm.scope}
	vm.push(v)
	if vm.localIdx >= stackLimit {
		vm.fail(fmt.Errorf("%w: locals", ErrStackOverflow))
		return
	}
	vm.locals[vm.localIdx] = l
	vm.localIdx++
}

// assignLocal records a local at stack offset sp-offset WITHOUT
// pushing; used only by a function prologue to name pre-pushed argument
// slots (spec.md §4.6).
func (vm *VM) assignLocal(key *value.Str, offset byte) {
	l := local{key: key, index: vm.sp - int(offset), scope: vm.scope}
	if vm.localIdx >= stackLimit {
		vm.fail(fmt.Errorf("%w: locals", ErrStackOverflow))
		return
	}
	vm.locals[vm.localIdx] = l
	vm.localIdx++
}

// cleanLocalsAtScope pops every local (and its backing stack slot)
// recorded at or above the current scope.
func (vm *VM) cleanLocalsAtScope() {
	if vm.scope == 0 || vm.localIdx == 0 {
		return
	}
	count := 0
	for i := vm.localIdx - 1; i >= 0; i-- {
		if vm.locals[i].scope < vm.scope {
			break
		}
		count++
		vm.pop()
	}
	vm.localIdx -= count
}

func (vm *VM) readByte() byte {
	b := vm.chunk.Code[vm.ip]
	vm.ip++
	return b
}

func (vm *VM) readConstant() value.Value {
	return vm.chunk.Constants[vm.readByte()]
}

func (vm *VM) readU16() int {
	off := vm.chunk.ReadU16(vm.ip)
	vm.ip += 2
	return off
}

// jumpTo moves the instruction pointer to offset, rejecting any target
// at or past the end of the chunk (original_source/vm.c jump()).
func (vm *VM) jumpTo(offset int) bool {
	if offset >= len(vm.chunk.Code) {
		return false
	}
	vm.ip = offset
	return true
}

// Run executes the chunk from byte 0 until a top-level OP_RETURN (scope
// == 0) succeeds, or a runtime error occurs.
func (vm *VM) Run() error {
	for {
		if vm.hasError {
			return vm.err
		}
		if vm.ip >= len(vm.chunk.Code) {
			return fmt.Errorf("%w: instruction pointer ran off the end of the chunk", ErrJumpOutOfBound)
		}

		op := compiler.Opcode(vm.readByte())
		if vm.trace != nil {
			fmt.Fprintf(vm.trace, "[scope %d sp %d] %s\n", vm.scope, vm.sp, op)
		}

		switch op {
		case compiler.OpConstant:
			vm.push(vm.readConstant())

		case compiler.OpPop:
			vm.pop()

		case compiler.OpPrint:
			v := vm.pop()
			fmt.Fprint(vm.out, v.String())

		case compiler.OpPrintln:
			v := vm.pop()
			fmt.Fprintln(vm.out, v.String())

		case compiler.OpGetVar:
			vm.execGetVar()

		case compiler.OpSetVar:
			vm.execSetVar()

		case compiler.OpSetGlobal:
			key, ok := vm.readConstant().(*value.Str)
			if !ok {
				vm.fail(fmt.Errorf("%w: variable name must be a string", value.ErrTypeMismatch))
				break
			}
			vm.globals.Put(key.Go(), vm.pop())

		case compiler.OpAssignLocal:
			offset := vm.readByte()
			key, ok := vm.readConstant().(*value.Str)
			if !ok {
				vm.fail(fmt.Errorf("%w: variable name must be a string", value.ErrTypeMismatch))
				break
			}
			vm.assignLocal(key, offset)

		case compiler.OpUpScope:
			vm.scope++

		case compiler.OpDownScope:
			vm.cleanLocalsAtScope()
			vm.scope--

		case compiler.OpAdd:
			vm.execAdd()
		case compiler.OpSubtract:
			vm.execBinary("-")
		case compiler.OpMultiply:
			vm.execBinary("*")
		case compiler.OpDivide:
			vm.execBinary("/")
		case compiler.OpExponent:
			vm.execBinary("^")
		case compiler.OpMod:
			vm.execBinary("%")

		case compiler.OpEqual:
			b, a := vm.pop(), vm.pop()
			vm.push(value.Equal(a, b))

		case compiler.OpGreater:
			vm.execCompare(">")
		case compiler.OpLess:
			vm.execCompare("<")

		case compiler.OpNot:
			v, err := value.Not(vm.pop())
			if err != nil {
				vm.fail(err)
				break
			}
			vm.push(v)

		case compiler.OpNegate:
			v, err := value.Negate(vm.pop())
			if err != nil {
				vm.fail(err)
				break
			}
			vm.push(v)

		case compiler.OpGetType:
			v := vm.pop()
			vm.push(vm.interner.Intern(v.TypeTag()))

		case compiler.OpGetLen:
			v, err := value.Len(vm.pop())
			if err != nil {
				vm.fail(err)
				break
			}
			vm.push(v)

		case compiler.OpGetTime:
			vm.push(value.Number(time.Now().Unix()))

		case compiler.OpJump:
			offset := vm.readU16()
			if !vm.jumpTo(offset) {
				vm.fail(ErrJumpOutOfBound)
			}

		case compiler.OpJumpIfFalse:
			vm.execCondJump(vm.peek, false)
		case compiler.OpJumpIfFalseDiscard:
			vm.execCondJump(vm.pop, false)
		case compiler.OpJumpIfTrue:
			vm.execCondJump(vm.peek, true)

		case compiler.OpRaPush:
			n, ok := vm.readConstant().(value.Number)
			if !ok {
				vm.fail(fmt.Errorf("%w: return address must be a Number", value.ErrTypeMismatch))
				break
			}
			vm.pushRA(int(n))

		case compiler.OpRvPop:
			vm.push(vm.returnValue)

		case compiler.OpReturn:
			if vm.scope == 0 {
				return nil
			}
			vm.returnValue = vm.pop()
			vm.cleanLocalsAtScope()
			vm.scope--
			addr := vm.popRA()
			if !vm.jumpTo(addr) {
				vm.fail(ErrJumpOutOfBound)
			}

		default:
			vm.fail(fmt.Errorf("%w: %d", ErrUnknownOpcode, op))
		}
	}
}

func (vm *VM) execGetVar() {
	key, ok := vm.readConstant().(*value.Str)
	if !ok {
		vm.fail(fmt.Errorf("%w: variable name must be a string", value.ErrTypeMismatch))
		return
	}
	if vm.scope > 0 {
		if v, found := vm.getLocal(key); found {
			vm.push(v)
			return
		}
	}
	if v, found := vm.globals.Get(key.Go()); found {
		vm.push(v)
		return
	}
	vm.fail(fmt.Errorf("%w: %q", ErrVarNotFound, key.Go()))
}

func (vm *VM) execSetVar() {
	key, ok := vm.readConstant().(*value.Str)
	if !ok {
		vm.fail(fmt.Errorf("%w: variable name must be a string", value.ErrTypeMismatch))
		return
	}
	v := vm.pop()
	if vm.scope > 0 {
		vm.setLocal(key, v)
	} else {
		vm.globals.Put(key.Go(), v)
	}
}

// execAdd special-cases two *Str operands (interned concatenation)
// before falling back to value.Binary for Numbers.
func (vm *VM) execAdd() {
	b, a := vm.pop(), vm.pop()
	as, aStr := a.(*value.Str)
	bs, bStr := b.(*value.Str)
	if aStr && bStr {
		vm.push(vm.interner.Concat(as, bs))
		return
	}
	if aStr != bStr {
		vm.fail(fmt.Errorf("%w: '+' requires two Numbers or two Strings, got %s and %s", value.ErrTypeMismatch, a.TypeTag(), b.TypeTag()))
		return
	}
	v, err := value.Binary("+", a, b)
	if err != nil {
		vm.fail(err)
		return
	}
	vm.push(v)
}

func (vm *VM) execBinary(op string) {
	b, a := vm.pop(), vm.pop()
	v, err := value.Binary(op, a, b)
	if err != nil {
		vm.fail(err)
		return
	}
	vm.push(v)
}

func (vm *VM) execCompare(op string) {
	b, a := vm.pop(), vm.pop()
	v, err := value.Compare(op, a, b)
	if err != nil {
		vm.fail(err)
		return
	}
	vm.push(v)
}

// execCondJump implements the three peek/pop-and-maybe-jump opcodes:
// read takes either vm.peek or vm.pop, and jumpWhen is the boolean
// value of the condition that triggers the jump.
func (vm *VM) execCondJump(read func() value.Value, jumpWhen bool) {
	v := read()
	b, ok := value.Truthy(v)
	if !ok {
		vm.fail(fmt.Errorf("%w: jump condition must be a Bool", value.ErrTypeMismatch))
		return
	}
	if b == jumpWhen {
		offset := vm.readU16()
		if !vm.jumpTo(offset) {
			vm.fail(ErrJumpOutOfBound)
		}
		return
	}
	vm.ip += 2
}
