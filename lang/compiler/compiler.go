// Package compiler implements wisp's single-pass compiler: a Pratt
// precedence-climbing parser that emits bytecode directly into a Chunk
// as it parses, with no intermediate AST. It is grounded on
// original_source/compiler.c rather than the Starlark-derived
// AST-building parser and CFG-linearizing compiler this package's
// teacher (mna/nenuphar) used for a much larger language.
package compiler

import (
	"fmt"
	goscanner "go/scanner"
	gotoken "go/token"
	"strconv"

	wscanner "github.com/mna/wisp/lang/scanner"
	"github.com/mna/wisp/lang/token"
	"github.com/mna/wisp/lang/value"
)

// operandStackLimit bounds the compiler's auxiliary stack of
// not-yet-assigned parameter names, capping function arity at 8
// (original_source/compiler.c OPERAND_STACK_LIMIT; preserved as an
// observed, not guessed, limitation — see spec.md §9).
const operandStackLimit = 8

// A Compiler turns source bytes into a *Chunk. One Compiler compiles
// exactly one program; create a new one (via Compile) per source file.
type Compiler struct {
	sc   wscanner.Scanner
	cur  wscanner.Tok
	prev wscanner.Tok

	chunk    *Chunk
	interner *value.Interner

	panicMode bool
	errs      goscanner.ErrorList

	funcAddrs map[string]int
	funcArity map[string]int
	aux       []string
}

// Compile compiles src into a Chunk using in to intern string literals
// and identifier names. On a compile error it still returns the
// (partial) chunk, matching original_source/compiler.c's "compilation
// is attempted to completion" behavior (spec.md §7), plus a non-nil
// error describing every diagnostic collected.
func Compile(src []byte, in *value.Interner) (*Chunk, error) {
	c := &Compiler{
		chunk:     NewChunk(),
		interner:  in,
		funcAddrs: map[string]int{},
		funcArity: map[string]int{},
	}
	c.sc.Init(src)

	c.advance()
	for c.cur.Kind != token.EOF {
		statement(c)
	}
	c.consume(token.EOF, "expect end of input")
	c.chunk.AppendOp(OpReturn)

	if len(c.errs) > 0 {
		return c.chunk, c.errs.Err()
	}
	return c.chunk, nil
}

func (c *Compiler) advance() {
	c.prev = c.cur
	for {
		c.cur = c.sc.Next()
		if c.cur.Kind != token.ILLEGAL {
			break
		}
		c.errorAtCurrent(c.cur.Lit)
	}
}

func (c *Compiler) consume(kind token.Token, msg string) {
	if c.cur.Kind == kind {
		c.advance()
		return
	}
	c.errorAtCurrent(msg)
}

// errorAt records a diagnostic at tok's position. Once panicMode is set
// it is never cleared (original_source/compiler.c's errorAt: "if
// (parser.panicMode) return;" with no corresponding reset anywhere),
// so at most one diagnostic is ever recorded per compile — a faithfully
// preserved quirk, not a bug we introduced (spec.md §9).
func (c *Compiler) errorAt(tok wscanner.Tok, msg string) {
	if c.panicMode {
		return
	}
	c.panicMode = true
	pos := gotoken.Position{Line: tok.Pos.Line, Column: 1}
	c.errs.Add(pos, msg)
}

func (c *Compiler) errorAtCurrent(msg string) { c.errorAt(c.cur, msg) }
func (c *Compiler) error(msg string)          { c.errorAt(c.prev, msg) }

func (c *Compiler) emitNamed(op Opcode, name string) {
	c.chunk.EmitConstant(op, c.interner.Intern(name))
}

func (c *Compiler) pushAux(name string) {
	if len(c.aux) >= operandStackLimit {
		c.errorAtCurrent("operand stack limit reached")
		return
	}
	c.aux = append(c.aux, name)
}

func (c *Compiler) popAux() string {
	if len(c.aux) == 0 {
		c.errorAtCurrent("operand stack bottom reached")
		return ""
	}
	name := c.aux[len(c.aux)-1]
	c.aux = c.aux[:len(c.aux)-1]
	return name
}

// precedence mirrors original_source/compiler.c's Precedence enum.
type precedence int

const (
	precNone precedence = iota
	precAssignment
	precOr
	precAnd
	precEquality
	precComparison
	precTerm
	precFactor
	precUnary
	precCall
	precPrimary
)

type parseFn func(c *Compiler)

type parseRule struct {
	prefix parseFn
	infix  parseFn
	prec   precedence
}

// rules is the Pratt table (original_source/compiler.c's `rules[]`).
// Tokens absent from the map behave as {nil, nil, precNone}, matching
// the zero-valued rule entries of the original's array (e.g. `var`,
// `fun`, punctuation with no expression role).
var rules = map[token.Token]parseRule{
	token.LPAREN:        {grouping, nil, precCall},
	token.MINUS:         {unary, binary, precTerm},
	token.MINUS_EQ:      {nil, nil, precTerm},
	token.PLUS:          {nil, binary, precTerm},
	token.PLUS_EQ:       {nil, nil, precTerm},
	token.SLASH:         {nil, binary, precFactor},
	token.SLASH_EQ:      {nil, nil, precFactor},
	token.STAR:          {nil, binary, precFactor},
	token.STAR_EQ:       {nil, nil, precFactor},
	token.CIRCUMFLEX:    {nil, binary, precFactor},
	token.CIRCUMFLEX_EQ: {nil, nil, precFactor},
	token.PERCENT:       {nil, binary, precFactor},
	token.PERCENT_EQ:    {nil, nil, precFactor},
	token.BANG_EQ:       {nil, binary, precEquality},
	token.EQ_EQ:         {nil, binary, precEquality},
	token.GT:            {nil, binary, precComparison},
	token.GE:            {nil, binary, precComparison},
	token.LT:            {nil, binary, precComparison},
	token.LE:            {nil, binary, precComparison},
	token.IDENT:         {identifierExpr, nil, precNone},
	token.STRING:        {stringLit, nil, precNone},
	token.NUMBER:        {numberLit, nil, precNone},
	token.AND:           {nil, andOp, precAnd},
	token.OR:            {nil, orOp, precOr},
	token.FALSE:         {boolFalse, nil, precNone},
	token.TRUE:          {boolTrue, nil, precNone},
	token.NONE:          {noneLit, nil, precNone},
	token.LEN:           {lenFun, nil, precNone},
	token.TYPE:          {typeFun, nil, precNone},
	token.TIME:          {timeFun, nil, precNone},
}

func getRule(tok token.Token) parseRule {
	if r, ok := rules[tok]; ok {
		return r
	}
	return parseRule{}
}

func parsePrecedence(c *Compiler, prec precedence) {
	c.advance()
	prefix := getRule(c.prev.Kind).prefix
	if prefix == nil {
		c.error("expect expression")
		return
	}
	prefix(c)

	for prec <= getRule(c.cur.Kind).prec {
		c.advance()
		infix := getRule(c.prev.Kind).infix
		if infix == nil {
			break
		}
		infix(c)
	}
}

func expression(c *Compiler) { parsePrecedence(c, precAssignment) }

func grouping(c *Compiler) {
	expression(c)
	c.consume(token.RPAREN, "expect ')' after expression")
}

func numberLit(c *Compiler) {
	n, _ := strconv.ParseFloat(c.prev.Lit, 64)
	c.chunk.EmitConstant(OpConstant, value.Number(n))
}

func stringLit(c *Compiler) {
	c.chunk.EmitConstant(OpConstant, c.interner.Intern(c.prev.Lit))
}

func boolTrue(c *Compiler)  { c.chunk.EmitConstant(OpConstant, value.Bool(true)) }
func boolFalse(c *Compiler) { c.chunk.EmitConstant(OpConstant, value.Bool(false)) }
func noneLit(c *Compiler)   { c.chunk.EmitConstant(OpConstant, value.Nil{}) }

func andOp(c *Compiler) {
	patch := c.chunk.EmitForwardJump(OpJumpIfFalse)
	c.chunk.AppendOp(OpPop)
	parsePrecedence(c, precAnd)
	c.chunk.PatchForwardJump(patch)
}

func orOp(c *Compiler) {
	patch := c.chunk.EmitForwardJump(OpJumpIfTrue)
	c.chunk.AppendOp(OpPop)
	parsePrecedence(c, precOr)
	c.chunk.PatchForwardJump(patch)
}

func unary(c *Compiler) {
	parsePrecedence(c, precUnary)
	c.chunk.AppendOp(OpNegate)
}

// binary handles both a plain binary operator and its `OP=` compound
// form identically — assignIdentifier calls it directly after consuming
// a compound-assign token, matching original_source/compiler.c's
// binary(), whose switch lists both forms for each operator.
func binary(c *Compiler) {
	op := c.prev.Kind
	rule := getRule(op)
	parsePrecedence(c, rule.prec+1)

	switch op {
	case token.PLUS, token.PLUS_EQ:
		c.chunk.AppendOp(OpAdd)
	case token.MINUS, token.MINUS_EQ:
		c.chunk.AppendOp(OpSubtract)
	case token.STAR, token.STAR_EQ:
		c.chunk.AppendOp(OpMultiply)
	case token.SLASH, token.SLASH_EQ:
		c.chunk.AppendOp(OpDivide)
	case token.CIRCUMFLEX, token.CIRCUMFLEX_EQ:
		c.chunk.AppendOp(OpExponent)
	case token.PERCENT, token.PERCENT_EQ:
		c.chunk.AppendOp(OpMod)
	case token.BANG_EQ:
		c.chunk.AppendOp(OpEqual)
		c.chunk.AppendOp(OpNot)
	case token.EQ_EQ:
		c.chunk.AppendOp(OpEqual)
	case token.GT:
		c.chunk.AppendOp(OpGreater)
	case token.GE:
		c.chunk.AppendOp(OpLess)
		c.chunk.AppendOp(OpNot)
	case token.LT:
		c.chunk.AppendOp(OpLess)
	case token.LE:
		c.chunk.AppendOp(OpGreater)
		c.chunk.AppendOp(OpNot)
	}
}

// identifierExpr is the IDENT prefix rule: a known function name in
// expression position compiles as a call followed by OP_RV_POP (spec.md
// §4.3); otherwise it's a variable read.
func identifierExpr(c *Compiler) {
	name := c.prev.Lit
	if _, ok := c.funcAddrs[name]; ok {
		c.functionCall()
		c.chunk.AppendOp(OpRvPop)
		return
	}
	c.emitNamed(OpGetVar, name)
}

func typeFun(c *Compiler) {
	c.consume(token.LPAREN, "expect '(' after type")
	parsePrecedence(c, precCall)
	c.consume(token.RPAREN, "expect ')' after expression")
	c.chunk.AppendOp(OpGetType)
}

func lenFun(c *Compiler) {
	c.consume(token.LPAREN, "expect '(' after len")
	parsePrecedence(c, precCall)
	c.consume(token.RPAREN, "expect ')' after expression")
	c.chunk.AppendOp(OpGetLen)
}

func timeFun(c *Compiler) {
	c.consume(token.LPAREN, "expect '(' after time")
	c.consume(token.RPAREN, "expect ')'")
	c.chunk.AppendOp(OpGetTime)
}

// functionCall compiles a call `name(args...)`, where c.prev.Lit is
// already the function's name (spec.md §4.5).
func (c *Compiler) functionCall() {
	name := c.prev.Lit
	c.consume(token.LPAREN, "expect '(' after function name")

	arity, known := c.funcArity[name]
	if !known {
		c.errorAtCurrent(fmt.Sprintf("call to undefined function %q", name))
	}

	given := 0
	for c.cur.Kind != token.RPAREN && c.cur.Kind != token.EOF {
		expression(c)
		if c.cur.Kind != token.RPAREN {
			c.consume(token.COMMA, "expect ',' between arguments")
		}
		given++
	}
	if known && given != arity {
		c.errorAtCurrent(fmt.Sprintf("function %q expects %d argument(s), got %d", name, arity, given))
	}
	c.consume(token.RPAREN, "expect ')' after arguments")

	c.chunk.AppendOp(OpRaPush)
	// The return address points past this RA_PUSH's constant-index byte
	// (1) and the trailing OP_JUMP instruction (3), matching
	// original_source/compiler.c's `current_chunk->current_index+4`.
	retAddr := c.chunk.Size() + 4
	idx := c.chunk.AddConstant(value.Number(retAddr))
	c.chunk.AppendByte(idx)
	c.chunk.EmitBackJump(OpJump, c.funcAddrs[name])
}

func printStatement(c *Compiler) {
	c.advance()
	expression(c)
	c.consume(token.SEMI, "expect ';' after statement")
	c.chunk.AppendOp(OpPrint)
}

func printlnStatement(c *Compiler) {
	c.advance()
	expression(c)
	c.consume(token.SEMI, "expect ';' after statement")
	c.chunk.AppendOp(OpPrintln)
}

// assignIdentifier compiles `IDENT = EXPR ;` and the compound-assign
// forms `IDENT OP= EXPR ;`, emitting OP_SET_GLOBAL when global is true
// (i.e. the statement started with the `Global` keyword) and
// OP_SET_VAR otherwise (spec.md §4.3, §4.6).
func assignIdentifier(c *Compiler, global bool) {
	c.advance()
	name := c.prev.Lit

	setOp := OpSetVar
	if global {
		setOp = OpSetGlobal
	}

	switch {
	case c.cur.Kind == token.EQ:
		c.advance()
		expression(c)
		c.consume(token.SEMI, "expect ';' after statement")
		c.emitNamed(setOp, name)
	default:
		if _, ok := token.IsCompoundAssign(c.cur.Kind); ok {
			c.advance()
			c.emitNamed(OpGetVar, name)
			binary(c)
			c.consume(token.SEMI, "expect ';' after statement")
			c.emitNamed(setOp, name)
			return
		}
		c.errorAtCurrent("expect assignment to identifier")
	}
}

func group(c *Compiler) {
	c.advance()
	for c.cur.Kind != token.RBRACE && c.cur.Kind != token.EOF {
		statement(c)
	}
	c.consume(token.RBRACE, "expect '}' after group")
}

func ifStatement(c *Compiler) {
	c.advance()
	c.consume(token.LPAREN, "expect '(' after if")
	expression(c)
	c.consume(token.RPAREN, "expect ')' after condition")

	patch := c.chunk.EmitForwardJump(OpJumpIfFalseDiscard)
	statement(c)
	if c.cur.Kind == token.ELSE {
		c.advance()
		elsePatch := c.chunk.EmitForwardJump(OpJump)
		c.chunk.PatchForwardJump(patch)
		statement(c)
		c.chunk.PatchForwardJump(elsePatch)
	} else {
		c.chunk.PatchForwardJump(patch)
	}
}

func whileStatement(c *Compiler) {
	c.advance()
	c.consume(token.LPAREN, "expect '(' after while")
	condAddr := c.chunk.Size()
	expression(c)
	c.consume(token.RPAREN, "expect ')' after condition")

	patch := c.chunk.EmitForwardJump(OpJumpIfFalseDiscard)
	statement(c)
	c.chunk.EmitBackJump(OpJump, condAddr)
	c.chunk.PatchForwardJump(patch)
}

func forStatement(c *Compiler) {
	c.advance()
	c.consume(token.LPAREN, "expect '(' after for")

	condAddr := c.chunk.Size()
	expression(c)
	c.consume(token.SEMI, "expect ';' after condition")

	exitPatch := c.chunk.EmitForwardJump(OpJumpIfFalseDiscard)
	bodyPatch := c.chunk.EmitForwardJump(OpJump)

	incAddr := c.chunk.Size()
	statement(c) // increment statement
	c.chunk.EmitBackJump(OpJump, condAddr)
	c.consume(token.RPAREN, "expect ')' after for clauses")

	c.chunk.PatchForwardJump(bodyPatch)
	statement(c) // body
	c.chunk.EmitBackJump(OpJump, incAddr)
	c.chunk.PatchForwardJump(exitPatch)
}

func defineStatement(c *Compiler) {
	if len(c.aux) != 0 {
		c.errorAtCurrent("internal failure, operand stack not empty")
	}
	c.advance()
	if c.cur.Kind != token.IDENT {
		c.errorAtCurrent("expect function name")
	}
	endPatch := c.chunk.EmitForwardJump(OpJump)

	c.advance()
	name := c.prev.Lit
	if _, exists := c.funcAddrs[name]; exists {
		c.errorAtCurrent(fmt.Sprintf("function %q already defined", name))
	}
	c.funcAddrs[name] = c.chunk.Size()

	c.consume(token.LPAREN, "expect '(' after function name")
	for c.cur.Kind != token.RPAREN {
		if c.cur.Kind != token.IDENT {
			c.errorAtCurrent("expect parameter name")
			break
		}
		c.advance()
		c.pushAux(c.prev.Lit)
		if c.cur.Kind != token.RPAREN {
			c.consume(token.COMMA, "expect ',' between parameters")
		}
	}
	c.consume(token.RPAREN, "expect ')' after parameters")

	c.chunk.AppendOp(OpUpScope)
	arity := len(c.aux)
	c.funcArity[name] = arity
	for i := 0; i < arity; i++ {
		c.chunk.AppendOp(OpAssignLocal)
		c.chunk.AppendByte(byte(i + 1))
		pname := c.popAux()
		c.chunk.AppendByte(c.chunk.AddConstant(c.interner.Intern(pname)))
	}

	c.consume(token.LBRACE, "expect '{' before function body")
	for c.cur.Kind != token.RBRACE {
		if c.cur.Kind == token.EOF {
			c.errorAtCurrent("unterminated function body")
			break
		}
		statement(c)
	}
	c.consume(token.RBRACE, "expect '}' after function body")

	c.chunk.EmitConstant(OpConstant, value.Nil{})
	c.chunk.AppendOp(OpReturn)
	c.chunk.PatchForwardJump(endPatch)
}

func returnStatement(c *Compiler) {
	c.advance()
	if c.cur.Kind == token.SEMI {
		c.chunk.EmitConstant(OpConstant, value.Nil{})
	} else {
		expression(c)
	}
	c.consume(token.SEMI, "expect ';' after return")
	c.chunk.AppendOp(OpReturn)
}

func statement(c *Compiler) {
	if c.cur.Kind == token.IDENT {
		if _, ok := c.funcAddrs[c.cur.Lit]; ok {
			c.advance()
			c.functionCall()
			c.consume(token.SEMI, "expect ';' after statement")
			return
		}
	}

	switch c.cur.Kind {
	case token.PRINT:
		printStatement(c)
	case token.LPRINT:
		printlnStatement(c)
	case token.IDENT:
		assignIdentifier(c, false)
	case token.GLOBAL:
		c.advance()
		assignIdentifier(c, true)
	case token.LBRACE:
		group(c)
	case token.IF:
		ifStatement(c)
	case token.WHILE:
		whileStatement(c)
	case token.FOR:
		forStatement(c)
	case token.DEF:
		defineStatement(c)
	case token.RETURN:
		returnStatement(c)
	default:
		c.errorAtCurrent("invalid statement")
		// Advance unconditionally so a malformed statement can never hang
		// the compile loop; original_source/compiler.c's equivalent default
		// branch relies on the caller's token stream eventually reaching
		// EOF_T, which a caller driven purely by statement() cannot
		// guarantee once panicMode has latched.
		c.advance()
	}
}
