package datalog

import "fmt"

// Value represents any value that can appear in a tuple.
// As in the storage layer, we use interface{} with direct Go types.
type Value = interface{}

// Valid value types:
// - int64  (number columns)
// - string (string and symbol columns; the two differ only in surface syntax)

// Helper functions for creating typed values
func Number(i int64) Value  { return i }
func String(s string) Value { return s }

// Tuple is a fixed-arity ordered list of concrete values belonging to
// one relation. Tuples are compared and hashed by value.
type Tuple []Value

// Type is the declared primitive type of a relation column.
type Type uint8

const (
	TypeNumber Type = iota
	TypeString
	TypeSymbol
)

// String returns the surface-syntax name of the type.
func (t Type) String() string {
	switch t {
	case TypeNumber:
		return "number"
	case TypeString:
		return "string"
	case TypeSymbol:
		return "symbol"
	default:
		return fmt.Sprintf("type(%d)", uint8(t))
	}
}

// Compatible reports whether a value of type other may occupy a column
// declared as t. Symbol and string share a runtime representation, so
// either may fill the other's columns.
func (t Type) Compatible(other Type) bool {
	if t == other {
		return true
	}
	return t != TypeNumber && other != TypeNumber
}

// TypeOf returns the primitive type of a runtime value.
func TypeOf(v Value) Type {
	switch v.(type) {
	case int64, int:
		return TypeNumber
	default:
		return TypeString
	}
}
