package value

import "github.com/dolthub/swiss"

// An Interner owns the content-keyed string table described in
// spec.md §3/§4.1 (original_source/makeString.c, hashTable.c). It is
// the one source of *Str values, guaranteeing that equal content always
// shares a pointer. One Interner belongs to exactly one VM/Compiler
// pair, rather than the process-wide table the original keeps, so
// multiple interpreters can coexist (spec.md §9 REDESIGN FLAG).
//
// spec.md §1 lists the hash table itself as a thin collaborator
// specified only by its semantic contract, not by its probing
// algorithm; here that contract is satisfied by swiss.Map, the
// teacher's own hash-table dependency, rather than a hand-rolled
// open-addressed table.
type Interner struct {
	table *swiss.Map[string, *Str]
}

// NewInterner returns an empty Interner.
func NewInterner() *Interner {
	return &Interner{table: swiss.NewMap[string, *Str](64)}
}

// Intern returns the canonical *Str for s, allocating and storing one on
// first use and returning the existing pointer on every subsequent call
// with equal content.
func (in *Interner) Intern(s string) *Str {
	if existing, ok := in.table.Get(s); ok {
		return existing
	}
	str := &Str{s: s}
	in.table.Put(s, str)
	return str
}

// Concat interns the concatenation of a and b without forcing the
// caller to build the intermediate string twice; it is the entry point
// OP_ADD uses for two *Str operands (spec.md §4.7: "on two String
// concatenates into a freshly interned result").
func (in *Interner) Concat(a, b *Str) *Str {
	return in.Intern(a.s + b.s)
}
