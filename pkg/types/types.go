// Package types is the compiler's types catalog: it interns type
// descriptors behind opaque ids and answers the structural predicates the
// check and codegen passes need (numeric, copyable, comparable, and the
// shape accessors for arrays and functions).
//
// Interning is grounded on the teacher's hash-consing approach for string
// interning, adapted here to type shapes: each type is reduced to a
// canonical key string and hashed with xxhash so that repeated lookups of
// the same shape (e.g. array[3] of int appearing in two declarations) are
// O(1) and structurally equal types share one id.
package types

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// Kind tags the shape of a Type.
type Kind int

const (
	KindError Kind = iota
	KindVoid
	KindInteger
	KindFloat
	KindBoolean
	KindCharacter
	KindArray
	KindFunction
)

// ID is an opaque handle into the catalog.
type ID uint32

// shape is the structural payload behind an ID; Kind plus the fields that
// apply to it.
type shape struct {
	kind   Kind
	size   int   // Array
	elem   ID    // Array
	params []ID  // Function
	ret    ID    // Function
}

type bucketEntry struct {
	key string
	id  ID
}

// Catalog interns Types. The zero value is not usable; use NewCatalog.
type Catalog struct {
	shapes  []shape
	byHash  map[uint64][]bucketEntry
	errorID ID
	voidID  ID
	intID   ID
	floatID ID
	boolID  ID
	charID  ID
}

func NewCatalog() *Catalog {
	c := &Catalog{byHash: make(map[uint64][]bucketEntry)}
	c.errorID = c.intern(shape{kind: KindError}, "Error")
	c.voidID = c.intern(shape{kind: KindVoid}, "Void")
	c.intID = c.intern(shape{kind: KindInteger}, "Integer")
	c.floatID = c.intern(shape{kind: KindFloat}, "Float")
	c.boolID = c.intern(shape{kind: KindBoolean}, "Boolean")
	c.charID = c.intern(shape{kind: KindCharacter}, "Character")
	return c
}

func (c *Catalog) intern(s shape, key string) ID {
	h := xxhash.Sum64String(key)
	for _, e := range c.byHash[h] {
		if e.key == key {
			return e.id
		}
	}
	id := ID(len(c.shapes))
	c.shapes = append(c.shapes, s)
	c.byHash[h] = append(c.byHash[h], bucketEntry{key: key, id: id})
	return id
}

func (c *Catalog) Error() ID     { return c.errorID }
func (c *Catalog) Void() ID      { return c.voidID }
func (c *Catalog) Integer() ID   { return c.intID }
func (c *Catalog) Float() ID     { return c.floatID }
func (c *Catalog) Boolean() ID   { return c.boolID }
func (c *Catalog) Character() ID { return c.charID }

func (c *Catalog) Array(size int, elem ID) ID {
	key := fmt.Sprintf("Array[%d]%s", size, c.canonicalKey(elem))
	return c.intern(shape{kind: KindArray, size: size, elem: elem}, key)
}

func (c *Catalog) Function(params []ID, ret ID) ID {
	var b strings.Builder
	b.WriteString("Function(")
	for i, p := range params {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(c.canonicalKey(p))
	}
	b.WriteString(")->")
	b.WriteString(c.canonicalKey(ret))
	ps := append([]ID(nil), params...)
	return c.intern(shape{kind: KindFunction, params: ps, ret: ret}, b.String())
}

// canonicalKey renders a type's interning key from its existing id, used
// to build composite keys for Array/Function without re-deriving shapes.
func (c *Catalog) canonicalKey(id ID) string {
	s := c.shapes[id]
	switch s.kind {
	case KindError:
		return "Error"
	case KindVoid:
		return "Void"
	case KindInteger:
		return "Integer"
	case KindFloat:
		return "Float"
	case KindBoolean:
		return "Boolean"
	case KindCharacter:
		return "Character"
	case KindArray:
		return "Array[" + strconv.Itoa(s.size) + "]" + c.canonicalKey(s.elem)
	case KindFunction:
		var b strings.Builder
		b.WriteString("Function(")
		for i, p := range s.params {
			if i > 0 {
				b.WriteByte(',')
			}
			b.WriteString(c.canonicalKey(p))
		}
		b.WriteString(")->")
		b.WriteString(c.canonicalKey(s.ret))
		return b.String()
	}
	return "?"
}

func (c *Catalog) KindOf(id ID) Kind { return c.shapes[id].kind }

func (c *Catalog) IsError(id ID) bool  { return c.shapes[id].kind == KindError }
func (c *Catalog) IsVoid(id ID) bool   { return c.shapes[id].kind == KindVoid }
func (c *Catalog) IsArray(id ID) bool  { return c.shapes[id].kind == KindArray }
func (c *Catalog) IsFunc(id ID) bool   { return c.shapes[id].kind == KindFunction }

// Primitive reports Integer | Float | Boolean | Character.
func (c *Catalog) Primitive(id ID) bool {
	switch c.shapes[id].kind {
	case KindInteger, KindFloat, KindBoolean, KindCharacter:
		return true
	}
	return false
}

// Numeric reports Integer | Float.
func (c *Catalog) Numeric(id ID) bool {
	k := c.shapes[id].kind
	return k == KindInteger || k == KindFloat
}

// Copyable reports whether a value of type src may be stored into a
// location of type dst without a diagnostic.
func (c *Catalog) Copyable(dst, src ID) bool {
	ds, ss := c.shapes[dst], c.shapes[src]
	if ds.kind == KindVoid || ss.kind == KindVoid {
		return false
	}
	if ds.kind == KindFunction || ss.kind == KindFunction {
		return false
	}
	if dst == src {
		return true
	}
	if ds.kind == KindFloat && ss.kind == KindInteger {
		return true
	}
	if ds.kind == KindArray && ss.kind == KindArray {
		return ds.size == ss.size && ds.elem == ss.elem
	}
	return false
}

// RelOpKind distinguishes equality-class operators from ordered ones, since
// Boolean is only comparable with the former.
type RelOpKind int

const (
	RelOpEquality RelOpKind = iota
	RelOpOrdered
)

// Comparable reports whether a and b may be compared with an operator of
// the given class.
func (c *Catalog) Comparable(a, b ID, op RelOpKind) bool {
	ka, kb := c.shapes[a].kind, c.shapes[b].kind
	if ka == KindError || kb == KindError {
		return false
	}
	numPair := (ka == KindInteger || ka == KindFloat) && (kb == KindInteger || kb == KindFloat)
	switch op {
	case RelOpEquality:
		if ka == kb {
			return ka == KindInteger || ka == KindFloat || ka == KindBoolean || ka == KindCharacter
		}
		return numPair
	case RelOpOrdered:
		if numPair {
			return true
		}
		return ka == KindCharacter && kb == KindCharacter
	}
	return false
}

func (c *Catalog) ArrayElem(id ID) ID {
	s := c.shapes[id]
	if s.kind != KindArray {
		panic("types: ArrayElem on non-array type")
	}
	return s.elem
}

func (c *Catalog) ArraySize(id ID) int {
	s := c.shapes[id]
	if s.kind != KindArray {
		panic("types: ArraySize on non-array type")
	}
	return s.size
}

func (c *Catalog) FuncParams(id ID) []ID {
	s := c.shapes[id]
	if s.kind != KindFunction {
		panic("types: FuncParams on non-function type")
	}
	return s.params
}

func (c *Catalog) FuncParam(id ID, i int) ID {
	ps := c.FuncParams(id)
	if i < 0 || i >= len(ps) {
		panic("types: FuncParam index out of range")
	}
	return ps[i]
}

func (c *Catalog) FuncRet(id ID) ID {
	s := c.shapes[id]
	if s.kind != KindFunction {
		panic("types: FuncRet on non-function type")
	}
	return s.ret
}

func (c *Catalog) FuncArity(id ID) int {
	return len(c.FuncParams(id))
}

// SizeOf follows §4.1: primitives are 1, arrays are size*size_of(elem),
// functions are 0.
func (c *Catalog) SizeOf(id ID) int {
	s := c.shapes[id]
	switch s.kind {
	case KindInteger, KindFloat, KindBoolean, KindCharacter:
		return 1
	case KindArray:
		return s.size * c.SizeOf(s.elem)
	case KindFunction:
		return 0
	}
	panic("types: SizeOf undefined on this shape")
}

// Repr is the VM's textual type spelling used in subroutine headers and
// the by-reference element representation for arrays.
func (c *Catalog) Repr(id ID) string {
	s := c.shapes[id]
	switch s.kind {
	case KindInteger:
		return "int"
	case KindFloat:
		return "float"
	case KindBoolean:
		return "bool"
	case KindCharacter:
		return "char"
	case KindArray:
		return c.Repr(s.elem)
	case KindVoid:
		return "void"
	}
	panic("types: Repr undefined on this shape")
}

// String renders a type for diagnostics.
func (c *Catalog) String(id ID) string {
	s := c.shapes[id]
	switch s.kind {
	case KindError:
		return "error"
	case KindVoid:
		return "void"
	case KindInteger:
		return "int"
	case KindFloat:
		return "float"
	case KindBoolean:
		return "bool"
	case KindCharacter:
		return "char"
	case KindArray:
		return fmt.Sprintf("array[%d] of %s", s.size, c.String(s.elem))
	case KindFunction:
		parts := make([]string, len(s.params))
		for i, p := range s.params {
			parts[i] = c.String(p)
		}
		return fmt.Sprintf("function(%s): %s", strings.Join(parts, ", "), c.String(s.ret))
	}
	return "?"
}
