package query

import (
	"fmt"

	"github.com/vddb/vddb/internal/types"
)

// Condition is a predicate tree evaluated against one row's materialized
// column values.
type Condition interface {
	condNode()
}

type CmpOp uint8

const (
	OpEq CmpOp = iota
	OpNe
	OpLt
	OpLe
	OpGt
	OpGe
)

func (op CmpOp) String() string {
	switch op {
	case OpEq:
		return "="
	case OpNe:
		return "!="
	case OpLt:
		return "<"
	case OpLe:
		return "<="
	case OpGt:
		return ">"
	case OpGe:
		return ">="
	default:
		return fmt.Sprintf("CmpOp(%d)", uint8(op))
	}
}

// Compare tests a column against a literal.
type Compare struct {
	Column string
	Op     CmpOp
	Value  types.Value
}

type And struct{ Left, Right Condition }
type Or struct{ Left, Right Condition }
type Not struct{ Inner Condition }

func (*Compare) condNode() {}
func (*And) condNode()     {}
func (*Or) condNode()      {}
func (*Not) condNode()     {}

// ConditionColumns enumerates every column the condition touches, in
// first-reference order without duplicates. Used to resolve columns before
// any I/O.
func ConditionColumns(c Condition) []string {
	var out []string
	seen := make(map[string]struct{})
	var walk func(Condition)
	walk = func(c Condition) {
		switch n := c.(type) {
		case *Compare:
			if _, ok := seen[n.Column]; !ok {
				seen[n.Column] = struct{}{}
				out = append(out, n.Column)
			}
		case *And:
			walk(n.Left)
			walk(n.Right)
		case *Or:
			walk(n.Left)
			walk(n.Right)
		case *Not:
			walk(n.Inner)
		}
	}
	if c != nil {
		walk(c)
	}
	return out
}
