package query

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vddb/vddb/internal/types"
)

func sampleCols() map[string][]types.Value {
	return map[string][]types.Value{
		"id": {types.NewInt32(1), types.NewInt32(2), types.NewInt32(3)},
		"name": {
			types.NewText("a"), types.NewText("b"), types.NewText("c"),
		},
		"score": {
			types.NewFloat32(0.5), types.NewFloat32(1.5), types.NewFloat32(2.5),
		},
	}
}

func TestEvalCompareOps(t *testing.T) {
	cols := sampleCols()

	gt := &Compare{Column: "id", Op: OpGt, Value: types.NewInt32(1)}
	for i, want := range []bool{false, true, true} {
		got, err := EvalRow(gt, cols, i)
		require.NoError(t, err)
		require.Equal(t, want, got, "row %d", i)
	}

	eq := &Compare{Column: "name", Op: OpEq, Value: types.NewText("b")}
	got, err := EvalRow(eq, cols, 1)
	require.NoError(t, err)
	require.True(t, got)

	le := &Compare{Column: "score", Op: OpLe, Value: types.NewFloat32(1.5)}
	got, err = EvalRow(le, cols, 2)
	require.NoError(t, err)
	require.False(t, got)
}

func TestEvalBooleanComposition(t *testing.T) {
	cols := sampleCols()

	cond := &And{
		Left: &Compare{Column: "id", Op: OpGt, Value: types.NewInt32(1)},
		Right: &Or{
			Left:  &Compare{Column: "name", Op: OpEq, Value: types.NewText("b")},
			Right: &Not{Inner: &Compare{Column: "score", Op: OpLt, Value: types.NewFloat32(2.0)}},
		},
	}

	// row 0: id > 1 fails
	got, err := EvalRow(cond, cols, 0)
	require.NoError(t, err)
	require.False(t, got)

	// row 1: id > 1, name == "b"
	got, err = EvalRow(cond, cols, 1)
	require.NoError(t, err)
	require.True(t, got)

	// row 2: id > 1, name != "b", NOT(score < 2.0) holds
	got, err = EvalRow(cond, cols, 2)
	require.NoError(t, err)
	require.True(t, got)
}

func TestEvalMissingColumn(t *testing.T) {
	cond := &Compare{Column: "absent", Op: OpEq, Value: types.NewInt32(1)}
	_, err := EvalRow(cond, sampleCols(), 0)
	require.ErrorIs(t, err, types.ErrInvalidData)
}

func TestEvalRowOutOfRange(t *testing.T) {
	cond := &Compare{Column: "id", Op: OpEq, Value: types.NewInt32(1)}
	_, err := EvalRow(cond, sampleCols(), 99)
	require.ErrorIs(t, err, types.ErrInvalidData)
}

func TestEvalTypeMismatch(t *testing.T) {
	cond := &Compare{Column: "id", Op: OpLt, Value: types.NewText("2")}
	_, err := EvalRow(cond, sampleCols(), 0)
	require.ErrorIs(t, err, types.ErrTypeMismatch)
}

func TestConditionColumns(t *testing.T) {
	cond := &Or{
		Left: &And{
			Left:  &Compare{Column: "a", Op: OpEq, Value: types.NewInt32(1)},
			Right: &Compare{Column: "b", Op: OpNe, Value: types.NewInt32(2)},
		},
		Right: &Not{Inner: &Compare{Column: "a", Op: OpGt, Value: types.NewInt32(3)}},
	}
	require.Equal(t, []string{"a", "b"}, ConditionColumns(cond))
	require.Empty(t, ConditionColumns(nil))
}
