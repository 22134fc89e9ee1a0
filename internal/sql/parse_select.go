package sql

import (
	"strings"

	"github.com/vddb/vddb/internal/query"
)

var aggFns = map[string]query.AggFn{
	"COUNT": query.AggCount,
	"SUM":   query.AggSum,
	"AVG":   query.AggAvg,
	"MIN":   query.AggMin,
	"MAX":   query.AggMax,
}

// selectItem is either a column reference or one aggregate call.
type selectItem struct {
	column string
	agg    *query.Aggregate
}

func (p *parser) parseSelect() (query.Query, error) {
	var items []selectItem
	star := p.acceptSymbol("*")
	if !star {
		for {
			item, err := p.parseSelectItem()
			if err != nil {
				return nil, err
			}
			items = append(items, item)
			if p.acceptSymbol(",") {
				continue
			}
			break
		}
	}

	if err := p.expectKeyword("FROM"); err != nil {
		return nil, err
	}
	table, err := p.ident()
	if err != nil {
		return nil, err
	}

	if p.acceptKeyword("JOIN") {
		return p.parseJoinTail(table, items, star)
	}

	where, err := p.parseOptionalWhere()
	if err != nil {
		return nil, err
	}

	var aggs []query.Aggregate
	var cols []string
	for _, item := range items {
		if item.agg != nil {
			aggs = append(aggs, *item.agg)
		} else {
			cols = append(cols, item.column)
		}
	}
	if len(aggs) > 0 {
		if len(cols) > 0 {
			return nil, p.errf("cannot mix aggregates and plain columns")
		}
		return &query.SelectAggregate{Table: table, Aggregates: aggs, Where: where}, nil
	}
	return &query.Select{Table: table, Columns: cols, Where: where}, nil
}

func (p *parser) parseSelectItem() (selectItem, error) {
	name, err := p.ident()
	if err != nil {
		return selectItem{}, err
	}

	if fn, ok := aggFns[strings.ToUpper(name)]; ok && p.acceptSymbol("(") {
		agg := query.Aggregate{Fn: fn}
		if p.acceptSymbol("*") {
			if fn != query.AggCount {
				return selectItem{}, p.errf("%s requires a column", strings.ToUpper(name))
			}
		} else {
			col, err := p.columnRef()
			if err != nil {
				return selectItem{}, err
			}
			agg.Column = col
		}
		if err := p.expectSymbol(")"); err != nil {
			return selectItem{}, err
		}
		return selectItem{agg: &agg}, nil
	}

	// Possibly qualified: table.column.
	if p.acceptSymbol(".") {
		col, err := p.ident()
		if err != nil {
			return selectItem{}, err
		}
		return selectItem{column: name + "." + col}, nil
	}
	return selectItem{column: name}, nil
}

// columnRef parses ident or ident.ident into its flat form.
func (p *parser) columnRef() (string, error) {
	name, err := p.ident()
	if err != nil {
		return "", err
	}
	if p.acceptSymbol(".") {
		col, err := p.ident()
		if err != nil {
			return "", err
		}
		return name + "." + col, nil
	}
	return name, nil
}

// parseJoinTail finishes SELECT ... FROM left JOIN right ON a.x = b.y.
func (p *parser) parseJoinTail(left string, items []selectItem, star bool) (query.Query, error) {
	right, err := p.ident()
	if err != nil {
		return nil, err
	}
	if err := p.expectKeyword("ON"); err != nil {
		return nil, err
	}
	lref, err := p.columnRef()
	if err != nil {
		return nil, err
	}
	if err := p.expectSymbol("="); err != nil {
		return nil, err
	}
	rref, err := p.columnRef()
	if err != nil {
		return nil, err
	}

	lcol, err := p.joinSideColumn(lref, left, right, true)
	if err != nil {
		return nil, err
	}
	rcol, err := p.joinSideColumn(rref, left, right, false)
	if err != nil {
		return nil, err
	}

	where, err := p.parseOptionalWhere()
	if err != nil {
		return nil, err
	}

	if star {
		return nil, p.errf("JOIN requires an explicit column list")
	}
	cols := make([]string, 0, len(items))
	for _, item := range items {
		if item.agg != nil {
			return nil, p.errf("aggregates are not supported with JOIN")
		}
		cols = append(cols, item.column)
	}
	return &query.Join{
		LeftTable:   left,
		RightTable:  right,
		LeftColumn:  lcol,
		RightColumn: rcol,
		Columns:     cols,
		Where:       where,
	}, nil
}

// joinSideColumn resolves one side of the ON clause to a bare column name,
// defaulting unqualified references to the expected side.
func (p *parser) joinSideColumn(ref, left, right string, wantLeft bool) (string, error) {
	table, col, ok := strings.Cut(ref, ".")
	if !ok {
		return ref, nil
	}
	want := left
	if !wantLeft {
		want = right
	}
	if table != want {
		return "", p.errf("ON clause side must reference %s, got %s", want, table)
	}
	return col, nil
}

// ---- WHERE ----

func (p *parser) parseOptionalWhere() (query.Condition, error) {
	if !p.acceptKeyword("WHERE") {
		return nil, nil
	}
	return p.parseOr()
}

func (p *parser) parseOr() (query.Condition, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.acceptKeyword("OR") {
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = &query.Or{Left: left, Right: right}
	}
	return left, nil
}

func (p *parser) parseAnd() (query.Condition, error) {
	left, err := p.parseNot()
	if err != nil {
		return nil, err
	}
	for p.acceptKeyword("AND") {
		right, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		left = &query.And{Left: left, Right: right}
	}
	return left, nil
}

func (p *parser) parseNot() (query.Condition, error) {
	if p.acceptKeyword("NOT") {
		inner, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		return &query.Not{Inner: inner}, nil
	}
	return p.parseComparison()
}

var cmpOps = map[string]query.CmpOp{
	"=":  query.OpEq,
	"!=": query.OpNe,
	"<>": query.OpNe,
	"<":  query.OpLt,
	"<=": query.OpLe,
	">":  query.OpGt,
	">=": query.OpGe,
}

func (p *parser) parseComparison() (query.Condition, error) {
	if p.acceptSymbol("(") {
		cond, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if err := p.expectSymbol(")"); err != nil {
			return nil, err
		}
		return cond, nil
	}

	col, err := p.ident()
	if err != nil {
		return nil, err
	}
	t := p.next()
	op, ok := cmpOps[t.text]
	if !ok || t.kind != tokSymbol {
		return nil, p.errf("expected comparison operator, got %q", t.text)
	}
	lit, err := p.literal()
	if err != nil {
		return nil, err
	}
	return &query.Compare{Column: col, Op: op, Value: lit}, nil
}
