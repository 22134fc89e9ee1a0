// Package engine executes structured queries against the storage manager.
//
// Concurrency model: one mutex serializes whole query pipelines — the lock
// is held through both the I/O phase and the in-memory compute phase, so a
// single query runs at a time while its row-level work fans out over a
// bounded worker pool. Narrowing the lock to the I/O phase would require
// copying materialized columns out before releasing it.
package engine

import (
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/panjf2000/ants/v2"

	"github.com/vddb/vddb/internal/metrics"
	"github.com/vddb/vddb/internal/query"
	"github.com/vddb/vddb/internal/schema"
	"github.com/vddb/vddb/internal/storage"
	"github.com/vddb/vddb/internal/tx"
	"github.com/vddb/vddb/internal/types"
)

type Engine struct {
	mu      sync.Mutex
	store   *storage.Manager
	pool    *ants.Pool
	workers int
	txm     *tx.Manager
	met     *metrics.Metrics
	log     *slog.Logger
}

type Option func(*options)

type options struct {
	workers int
	log     *slog.Logger
	met     *metrics.Metrics
	txm     *tx.Manager
}

// WithWorkers bounds the row-level worker pool; n <= 0 means one per CPU.
func WithWorkers(n int) Option {
	return func(o *options) { o.workers = n }
}

func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.log = l }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(o *options) { o.met = m }
}

func WithTxManager(m *tx.Manager) Option {
	return func(o *options) { o.txm = m }
}

// New builds an engine over the given storage manager. The manager must not
// be used through any other path while the engine owns it.
func New(store *storage.Manager, opts ...Option) (*Engine, error) {
	o := options{log: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}
	if o.workers <= 0 {
		o.workers = runtime.GOMAXPROCS(0)
	}
	if o.txm == nil {
		o.txm = tx.NewManager(o.log)
	}
	pool, err := ants.NewPool(o.workers)
	if err != nil {
		return nil, fmt.Errorf("worker pool: %w", err)
	}
	return &Engine{
		store:   store,
		pool:    pool,
		workers: o.workers,
		txm:     o.txm,
		met:     o.met,
		log:     o.log,
	}, nil
}

// Close releases the worker pool.
func (e *Engine) Close() {
	e.pool.Release()
}

// Execute runs one query to completion and returns its rows (none for DDL,
// DML and transaction markers). Row order of SELECT and JOIN results is not
// guaranteed: rows are collected in worker completion order.
func (e *Engine) Execute(q query.Query) ([][]types.Value, error) {
	op := opName(q)
	start := time.Now()

	e.mu.Lock()
	rows, err := e.execute(q)
	e.mu.Unlock()

	elapsed := time.Since(start)
	e.met.ObserveQuery(op, err, elapsed)
	if err != nil {
		e.log.Debug("query failed", "op", op, "duration", elapsed, "err", err)
	} else {
		e.log.Debug("query done", "op", op, "rows", len(rows), "duration", elapsed)
	}
	return rows, err
}

func (e *Engine) execute(q query.Query) ([][]types.Value, error) {
	switch n := q.(type) {
	case *query.Select:
		return e.execSelect(n)
	case *query.SelectAggregate:
		return e.execAggregate(n)
	case *query.Join:
		return e.execJoin(n)
	case *query.Insert:
		return nil, e.store.InsertRow(n.Table, n.Values)
	case *query.CreateTable:
		return nil, e.execCreateTable(n)
	case *query.Delete:
		_, err := e.store.DeleteRows(n.Table, n.Where)
		return nil, err
	case *query.DropTable:
		return nil, e.store.DropTable(n.Table)
	case *query.Begin:
		return nil, e.txm.Begin()
	case *query.Commit:
		return nil, e.txm.Commit()
	case *query.Rollback:
		return nil, e.txm.Rollback()
	default:
		return nil, fmt.Errorf("unsupported query %T: %w", q, types.ErrQuery)
	}
}

func opName(q query.Query) string {
	switch q.(type) {
	case *query.Select:
		return "select"
	case *query.SelectAggregate:
		return "select_aggregate"
	case *query.Join:
		return "join"
	case *query.Insert:
		return "insert"
	case *query.CreateTable:
		return "create_table"
	case *query.Delete:
		return "delete"
	case *query.DropTable:
		return "drop_table"
	case *query.Begin:
		return "begin"
	case *query.Commit:
		return "commit"
	case *query.Rollback:
		return "rollback"
	default:
		return "unknown"
	}
}

func (e *Engine) execCreateTable(ct *query.CreateTable) error {
	t := &schema.Table{Name: ct.Table, Columns: ct.Columns}
	for i := range ct.Columns {
		if ct.Columns[i].PrimaryKey && t.PrimaryKey == "" {
			t.PrimaryKey = ct.Columns[i].Name
		}
	}
	return e.store.CreateTable(t)
}

func (e *Engine) execSelect(sel *query.Select) ([][]types.Value, error) {
	tbl, ok := e.store.Catalog().Get(sel.Table)
	if !ok {
		return nil, fmt.Errorf("table %q not found: %w", sel.Table, types.ErrInvalidData)
	}

	projected := sel.Columns
	if len(projected) == 0 {
		projected = tbl.ColumnNames()
	}
	for _, name := range projected {
		if tbl.Column(name) == nil {
			return nil, fmt.Errorf("column %s.%s not found: %w", sel.Table, name, types.ErrInvalidData)
		}
	}

	// Projection plus everything the condition touches, read once each.
	required := make([]string, 0, len(projected))
	seen := make(map[string]struct{}, len(projected))
	for _, name := range projected {
		if _, ok := seen[name]; !ok {
			seen[name] = struct{}{}
			required = append(required, name)
		}
	}
	for _, name := range query.ConditionColumns(sel.Where) {
		if tbl.Column(name) == nil {
			return nil, fmt.Errorf("column %s.%s not found in condition: %w", sel.Table, name, types.ErrInvalidData)
		}
		if _, ok := seen[name]; !ok {
			seen[name] = struct{}{}
			required = append(required, name)
		}
	}

	cols := make(map[string][]types.Value, len(required))
	rowCount := -1
	for _, name := range required {
		vals, err := e.store.ReadColumn(sel.Table, name, nil)
		if err != nil {
			return nil, err
		}
		cols[name] = vals
		if rowCount < 0 || len(vals) < rowCount {
			rowCount = len(vals)
		}
	}
	if rowCount < 0 {
		rowCount = 0
	}

	return e.fanOut(rowCount, func(i int) ([][]types.Value, error) {
		if sel.Where != nil {
			ok, err := query.EvalRow(sel.Where, cols, i)
			if err != nil {
				return nil, err
			}
			if !ok {
				return nil, nil
			}
		}
		row := make([]types.Value, len(projected))
		for j, name := range projected {
			row[j] = cols[name][i]
		}
		return [][]types.Value{row}, nil
	})
}

func (e *Engine) execAggregate(sa *query.SelectAggregate) ([][]types.Value, error) {
	tbl, ok := e.store.Catalog().Get(sa.Table)
	if !ok {
		return nil, fmt.Errorf("table %q not found: %w", sa.Table, types.ErrInvalidData)
	}

	scalars := make([]types.Value, 0, len(sa.Aggregates))
	for _, agg := range sa.Aggregates {
		column := agg.Column
		if column == "" {
			if agg.Fn != query.AggCount {
				return nil, fmt.Errorf("%s requires a column: %w", agg.Fn, types.ErrInvalidData)
			}
			// COUNT defaults to the first declared column as row identity.
			column = tbl.Columns[0].Name
		}
		col := tbl.Column(column)
		if col == nil {
			return nil, fmt.Errorf("column %s.%s not found: %w", sa.Table, column, types.ErrInvalidData)
		}

		vals, err := e.store.ReadColumn(sa.Table, column, sa.Where)
		if err != nil {
			return nil, err
		}

		scalar, err := computeAggregate(agg.Fn, col, vals)
		if err != nil {
			return nil, err
		}
		scalars = append(scalars, scalar)
	}
	return [][]types.Value{scalars}, nil
}

// computeAggregate folds one column. SUM and AVG accumulate through float32
// (int32 cast up), matching the stored float semantics; MIN and MAX use the
// forced total order and default to Float32(0) on an empty column.
func computeAggregate(fn query.AggFn, col *schema.Column, vals []types.Value) (types.Value, error) {
	switch fn {
	case query.AggCount:
		return types.NewInt32(int32(len(vals))), nil

	case query.AggSum, query.AggAvg:
		if !col.Type.Numeric() {
			return types.Value{}, fmt.Errorf("%s not supported for %s column %q: %w",
				fn, col.Type, col.Name, types.ErrInvalidData)
		}
		var sum float32
		for _, v := range vals {
			if v.Kind() == types.Int32 {
				sum += float32(v.Int32())
			} else {
				sum += v.Float32()
			}
		}
		if fn == query.AggSum {
			return types.NewFloat32(sum), nil
		}
		if len(vals) == 0 {
			return types.NewFloat32(0), nil
		}
		return types.NewFloat32(sum / float32(len(vals))), nil

	case query.AggMin, query.AggMax:
		if len(vals) == 0 {
			return types.NewFloat32(0), nil
		}
		best := vals[0]
		for _, v := range vals[1:] {
			c := v.Cmp(best)
			if (fn == query.AggMin && c < 0) || (fn == query.AggMax && c > 0) {
				best = v
			}
		}
		return best, nil

	default:
		return types.Value{}, fmt.Errorf("unknown aggregation %d: %w", uint8(fn), types.ErrQuery)
	}
}

func (e *Engine) execJoin(jn *query.Join) ([][]types.Value, error) {
	leftTbl, ok := e.store.Catalog().Get(jn.LeftTable)
	if !ok {
		return nil, fmt.Errorf("table %q not found: %w", jn.LeftTable, types.ErrInvalidData)
	}
	rightTbl, ok := e.store.Catalog().Get(jn.RightTable)
	if !ok {
		return nil, fmt.Errorf("table %q not found: %w", jn.RightTable, types.ErrInvalidData)
	}
	if leftTbl.Column(jn.LeftColumn) == nil {
		return nil, fmt.Errorf("column %s.%s not found: %w", jn.LeftTable, jn.LeftColumn, types.ErrInvalidData)
	}
	if rightTbl.Column(jn.RightColumn) == nil {
		return nil, fmt.Errorf("column %s.%s not found: %w", jn.RightTable, jn.RightColumn, types.ErrInvalidData)
	}

	// The optional condition is applied on the storage read path of each
	// side, so both sides stay positionally consistent per side.
	leftVals, err := e.store.ReadColumn(jn.LeftTable, jn.LeftColumn, jn.Where)
	if err != nil {
		return nil, err
	}
	rightVals, err := e.store.ReadColumn(jn.RightTable, jn.RightColumn, jn.Where)
	if err != nil {
		return nil, err
	}
	minLeft, minRight := len(leftVals), len(rightVals)

	type outCol struct {
		name  string
		right bool
		vals  []types.Value
	}
	outCols := make([]outCol, 0, len(jn.Columns))
	for _, name := range jn.Columns {
		table, colName := jn.LeftTable, name
		if t, c, ok := splitQualified(name); ok {
			table, colName = t, c
		}
		var right bool
		switch table {
		case jn.LeftTable:
		case jn.RightTable:
			right = true
		default:
			return nil, fmt.Errorf("column %q references neither join table: %w", name, types.ErrInvalidData)
		}
		src := leftTbl
		if right {
			src = rightTbl
		}
		if src.Column(colName) == nil {
			return nil, fmt.Errorf("column %s.%s not found: %w", table, colName, types.ErrInvalidData)
		}
		vals, err := e.store.ReadColumn(table, colName, jn.Where)
		if err != nil {
			return nil, err
		}
		if right {
			if len(vals) < minRight {
				minRight = len(vals)
			}
		} else if len(vals) < minLeft {
			minLeft = len(vals)
		}
		outCols = append(outCols, outCol{name: name, right: right, vals: vals})
	}

	// Nested loop, parallel over left rows. O(|left| x |right|) by design;
	// declared indexes are not consulted.
	return e.fanOut(minLeft, func(i int) ([][]types.Value, error) {
		var rows [][]types.Value
		for j := 0; j < minRight; j++ {
			if !leftVals[i].Equal(rightVals[j]) {
				continue
			}
			row := make([]types.Value, len(outCols))
			for k := range outCols {
				idx := i
				if outCols[k].right {
					idx = j
				}
				if idx >= len(outCols[k].vals) {
					return nil, fmt.Errorf("row %d out of bounds for column %q (len %d): %w",
						idx, outCols[k].name, len(outCols[k].vals), types.ErrInvalidData)
				}
				row[k] = outCols[k].vals[idx]
			}
			rows = append(rows, row)
		}
		return rows, nil
	})
}

func splitQualified(name string) (table, column string, ok bool) {
	for i := 0; i < len(name); i++ {
		if name[i] == '.' {
			return name[:i], name[i+1:], true
		}
	}
	return "", "", false
}

// fanOut spreads n row indices over the worker pool in contiguous chunks and
// merges emitted rows without ordering guarantees. The first row error wins
// and the remaining work is skipped.
func (e *Engine) fanOut(n int, emit func(i int) ([][]types.Value, error)) ([][]types.Value, error) {
	if n <= 0 {
		return nil, nil
	}

	workers := e.workers
	if workers > n {
		workers = n
	}
	chunk := (n + workers - 1) / workers

	var (
		mu       sync.Mutex
		out      [][]types.Value
		wg       sync.WaitGroup
		failed   atomic.Bool
		once     sync.Once
		firstErr error
	)

	for start := 0; start < n; start += chunk {
		end := start + chunk
		if end > n {
			end = n
		}
		lo, hi := start, end

		wg.Add(1)
		task := func() {
			defer wg.Done()
			for i := lo; i < hi; i++ {
				if failed.Load() {
					return
				}
				rows, err := emit(i)
				if err != nil {
					once.Do(func() { firstErr = err })
					failed.Store(true)
					return
				}
				if len(rows) > 0 {
					mu.Lock()
					out = append(out, rows...)
					mu.Unlock()
				}
			}
		}
		if err := e.pool.Submit(task); err != nil {
			// Pool unavailable (e.g. released); run the chunk inline.
			task()
		}
	}
	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}
	return out, nil
}
