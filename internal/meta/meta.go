// Package meta implements the free-form metadata tree carried by a
// container: a recursive mapping from string keys to scalars, strings,
// numeric sequences, or nested mappings.
//
// The set of value kinds is closed. Anything outside it (heterogeneous
// lists in particular) is rejected when the value is constructed, so a
// tree can always be encoded.
package meta

import (
	"fmt"
	"sort"
	"strings"

	"github.com/xtxerr/minidas/internal/errors"
)

// Kind identifies the variant held by a Value.
type Kind uint8

const (
	KindInvalid Kind = iota
	KindFloat
	KindInt
	KindString
	KindFloats
	KindInts
	KindTree
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindFloat:
		return "float"
	case KindInt:
		return "int"
	case KindString:
		return "string"
	case KindFloats:
		return "float sequence"
	case KindInts:
		return "int sequence"
	case KindTree:
		return "tree"
	}
	return "invalid"
}

// Value is a tagged variant: one leaf kind or a nested tree.
type Value struct {
	kind Kind
	f    float64
	i    int64
	s    string
	fs   []float64
	is   []int64
	tree *Tree
}

// Float builds a scalar float value.
func Float(v float64) Value { return Value{kind: KindFloat, f: v} }

// Int builds a scalar integer value.
func Int(v int64) Value { return Value{kind: KindInt, i: v} }

// String builds a string value.
func String(v string) Value { return Value{kind: KindString, s: v} }

// Floats builds a float sequence value.
func Floats(v []float64) Value { return Value{kind: KindFloats, fs: v} }

// Ints builds an integer sequence value.
func Ints(v []int64) Value { return Value{kind: KindInts, is: v} }

// SubTree builds a nested mapping value.
func SubTree(t *Tree) Value { return Value{kind: KindTree, tree: t} }

// FromAny converts a dynamically typed value into a Value. Values that
// have no representation in the closed kind set - heterogeneous lists
// above all - are rejected here, at construction, rather than when the
// tree is serialized.
func FromAny(v interface{}) (Value, error) {
	switch x := v.(type) {
	case Value:
		if x.kind == KindInvalid {
			return Value{}, errors.NewUnsupportedValueKind("", v)
		}
		return x, nil
	case float64:
		return Float(x), nil
	case float32:
		return Float(float64(x)), nil
	case int:
		return Int(int64(x)), nil
	case int32:
		return Int(int64(x)), nil
	case int64:
		return Int(x), nil
	case uint64:
		return Int(int64(x)), nil
	case string:
		return String(x), nil
	case []float64:
		return Floats(x), nil
	case []float32:
		fs := make([]float64, len(x))
		for i, f := range x {
			fs[i] = float64(f)
		}
		return Floats(fs), nil
	case []int64:
		return Ints(x), nil
	case []int:
		is := make([]int64, len(x))
		for i, n := range x {
			is[i] = int64(n)
		}
		return Ints(is), nil
	case *Tree:
		return SubTree(x), nil
	case map[string]interface{}:
		t := NewTree()
		for k, child := range x {
			cv, err := FromAny(child)
			if err != nil {
				return Value{}, err
			}
			if err := t.Set(k, cv); err != nil {
				return Value{}, err
			}
		}
		return SubTree(t), nil
	default:
		return Value{}, errors.NewUnsupportedValueKind("", v)
	}
}

// Kind returns the variant tag.
func (v Value) Kind() Kind { return v.kind }

// Float returns the scalar float payload.
func (v Value) Float() float64 { return v.f }

// Int returns the scalar integer payload.
func (v Value) Int() int64 { return v.i }

// Text returns the string payload.
func (v Value) Text() string { return v.s }

// FloatSeq returns the float sequence payload.
func (v Value) FloatSeq() []float64 { return v.fs }

// IntSeq returns the integer sequence payload.
func (v Value) IntSeq() []int64 { return v.is }

// Tree returns the nested mapping payload, nil for leaf values.
func (v Value) Tree() *Tree { return v.tree }

// Equal reports deep semantic equality. Used by tests via go-cmp.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindFloat:
		return v.f == o.f
	case KindInt:
		return v.i == o.i
	case KindString:
		return v.s == o.s
	case KindFloats:
		if len(v.fs) != len(o.fs) {
			return false
		}
		for i := range v.fs {
			if v.fs[i] != o.fs[i] {
				return false
			}
		}
		return true
	case KindInts:
		if len(v.is) != len(o.is) {
			return false
		}
		for i := range v.is {
			if v.is[i] != o.is[i] {
				return false
			}
		}
		return true
	case KindTree:
		return v.tree.Equal(o.tree)
	}
	return false
}

// String renders the value for diagnostics.
func (v Value) String() string {
	switch v.kind {
	case KindFloat:
		return fmt.Sprintf("%g", v.f)
	case KindInt:
		return fmt.Sprintf("%d", v.i)
	case KindString:
		return fmt.Sprintf("%q", v.s)
	case KindFloats:
		return fmt.Sprintf("float[%d]", len(v.fs))
	case KindInts:
		return fmt.Sprintf("int[%d]", len(v.is))
	case KindTree:
		return fmt.Sprintf("tree{%d}", v.tree.Len())
	}
	return "<invalid>"
}

// Tree is a mapping from keys to values. Sibling iteration order is
// the sorted key order; insertion order is not preserved across a
// round trip through storage.
type Tree struct {
	children map[string]Value
}

// NewTree creates an empty tree.
func NewTree() *Tree {
	return &Tree{children: make(map[string]Value)}
}

// ValidateKey checks that a key can serve as one path segment: no
// separators, no control characters, not empty, no '.' prefix.
func ValidateKey(key string) error {
	if key == "" {
		return errors.Wrap(errors.ErrInvalidKey, "empty key")
	}
	if key == "." || key == ".." || strings.HasPrefix(key, ".") {
		return errors.Wrapf(errors.ErrInvalidKey, "key %q", key)
	}
	for _, r := range key {
		if r < 32 || r == 127 {
			return errors.Wrapf(errors.ErrInvalidKey, "key %q contains control characters", key)
		}
		if r == '/' || r == '\\' {
			return errors.Wrapf(errors.ErrInvalidKey, "key %q contains a path separator", key)
		}
	}
	return nil
}

// Set stores a value under key, replacing any previous value.
func (t *Tree) Set(key string, v Value) error {
	if err := ValidateKey(key); err != nil {
		return err
	}
	if v.kind == KindInvalid {
		return errors.NewUnsupportedValueKind(key, nil)
	}
	t.children[key] = v
	return nil
}

// SetAny converts v with FromAny and stores it under key.
func (t *Tree) SetAny(key string, v interface{}) error {
	val, err := FromAny(v)
	if err != nil {
		return errors.Wrapf(err, "key %q", key)
	}
	return t.Set(key, val)
}

// Get returns the value stored under key.
func (t *Tree) Get(key string) (Value, bool) {
	v, ok := t.children[key]
	return v, ok
}

// Len returns the number of direct children.
func (t *Tree) Len() int { return len(t.children) }

// Keys returns the direct child keys in sorted order.
func (t *Tree) Keys() []string {
	keys := make([]string, 0, len(t.children))
	for k := range t.children {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Equal reports deep semantic equality with another tree.
func (t *Tree) Equal(o *Tree) bool {
	if t == nil || o == nil {
		return t == o
	}
	if len(t.children) != len(o.children) {
		return false
	}
	for k, v := range t.children {
		ov, ok := o.children[k]
		if !ok || !v.Equal(ov) {
			return false
		}
	}
	return true
}

// Walk visits every node depth-first in sorted key order. The path
// passed to fn is the /-joined key sequence from the root (no root
// prefix). Subtrees are visited after their own callback.
func (t *Tree) Walk(fn func(path string, v Value) error) error {
	return t.walk("", fn)
}

func (t *Tree) walk(prefix string, fn func(path string, v Value) error) error {
	for _, k := range t.Keys() {
		v := t.children[k]
		path := k
		if prefix != "" {
			path = prefix + "/" + k
		}
		if err := fn(path, v); err != nil {
			return err
		}
		if v.kind == KindTree {
			if err := v.tree.walk(path, fn); err != nil {
				return err
			}
		}
	}
	return nil
}
