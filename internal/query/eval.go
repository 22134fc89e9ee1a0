package query

import (
	"fmt"

	"github.com/vddb/vddb/internal/types"
)

// EvalRow applies the condition to row i of the materialized column vectors.
// The map must already contain every column the condition references; a
// missing column or an out-of-range row is invalid data, and comparing values
// of different kinds is a type mismatch.
func EvalRow(c Condition, cols map[string][]types.Value, i int) (bool, error) {
	switch n := c.(type) {
	case *Compare:
		vals, ok := cols[n.Column]
		if !ok {
			return false, fmt.Errorf("column %q not materialized for condition: %w", n.Column, types.ErrInvalidData)
		}
		if i < 0 || i >= len(vals) {
			return false, fmt.Errorf("row %d out of range for column %q (len %d): %w",
				i, n.Column, len(vals), types.ErrInvalidData)
		}
		cmp, comparable := vals[i].Compare(n.Value)
		if !comparable {
			return false, fmt.Errorf("cannot compare %s column %q with %s literal: %w",
				vals[i].Kind(), n.Column, n.Value.Kind(), types.ErrTypeMismatch)
		}
		switch n.Op {
		case OpEq:
			return cmp == 0, nil
		case OpNe:
			return cmp != 0, nil
		case OpLt:
			return cmp < 0, nil
		case OpLe:
			return cmp <= 0, nil
		case OpGt:
			return cmp > 0, nil
		case OpGe:
			return cmp >= 0, nil
		default:
			return false, fmt.Errorf("unknown comparison operator %d: %w", uint8(n.Op), types.ErrQuery)
		}

	case *And:
		l, err := EvalRow(n.Left, cols, i)
		if err != nil {
			return false, err
		}
		if !l {
			return false, nil
		}
		return EvalRow(n.Right, cols, i)

	case *Or:
		l, err := EvalRow(n.Left, cols, i)
		if err != nil {
			return false, err
		}
		if l {
			return true, nil
		}
		return EvalRow(n.Right, cols, i)

	case *Not:
		v, err := EvalRow(n.Inner, cols, i)
		if err != nil {
			return false, err
		}
		return !v, nil

	default:
		return false, fmt.Errorf("unknown condition node %T: %w", c, types.ErrQuery)
	}
}
