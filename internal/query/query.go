// Package query defines the structured query forms the engine consumes and
// the predicate trees evaluated against materialized rows. The SQL front end
// (or any embedding caller) produces these values; no parsing happens here.
package query

import (
	"github.com/vddb/vddb/internal/schema"
	"github.com/vddb/vddb/internal/types"
)

// Query is the closed set of executable query shapes.
type Query interface {
	queryNode()
}

// Select projects columns from one table. An empty Columns list means all of
// the table's columns in declared order.
type Select struct {
	Table   string
	Columns []string
	Where   Condition
}

type AggFn uint8

const (
	AggCount AggFn = iota
	AggSum
	AggAvg
	AggMin
	AggMax
)

func (f AggFn) String() string {
	switch f {
	case AggCount:
		return "COUNT"
	case AggSum:
		return "SUM"
	case AggAvg:
		return "AVG"
	case AggMin:
		return "MIN"
	case AggMax:
		return "MAX"
	default:
		return "AGG?"
	}
}

// Aggregate is one scalar computation. Column may be empty for COUNT, which
// then counts rows of the table's first declared column.
type Aggregate struct {
	Fn     AggFn
	Column string
}

// SelectAggregate computes one scalar per aggregate; all scalars form a
// single output row.
type SelectAggregate struct {
	Table      string
	Aggregates []Aggregate
	Where      Condition
}

// Join is an equality join between two tables. Output columns may be
// "table.column" qualified; unqualified names resolve to the left table.
type Join struct {
	LeftTable   string
	RightTable  string
	LeftColumn  string
	RightColumn string
	Columns     []string
	Where       Condition
}

type Insert struct {
	Table  string
	Values []types.Value
}

type CreateTable struct {
	Table   string
	Columns []schema.Column
}

type Delete struct {
	Table string
	Where Condition
}

type DropTable struct {
	Table string
}

// Transaction markers, delegated to the transaction manager's boundary hooks.
type (
	Begin    struct{}
	Commit   struct{}
	Rollback struct{}
)

func (*Select) queryNode()          {}
func (*SelectAggregate) queryNode() {}
func (*Join) queryNode()            {}
func (*Insert) queryNode()          {}
func (*CreateTable) queryNode()     {}
func (*Delete) queryNode()          {}
func (*DropTable) queryNode()       {}
func (*Begin) queryNode()           {}
func (*Commit) queryNode()          {}
func (*Rollback) queryNode()        {}
