// Package storage owns the on-disk columnar representation: one metadata
// file and one column store per (table, column) pair, with per-column
// compression applied transparently on the read and write paths.
//
// The Manager is a single shared resource. It performs no locking of its
// own; callers (the query engine) serialize all entry points behind one
// mutex, per the engine's concurrency model.
package storage

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/vddb/vddb/internal/query"
	"github.com/vddb/vddb/internal/schema"
	"github.com/vddb/vddb/internal/types"
)

const defaultCacheSize = 128

type Manager struct {
	dir     string
	catalog *schema.Catalog
	metas   map[string]*TableMetadata

	// cache holds fully decoded, unfiltered column vectors keyed by
	// table\x00column; purged on any mutation of the table.
	cache *lru.Cache[string, []types.Value]

	nextTableID uint64
	log         *slog.Logger
}

type Option func(*options)

type options struct {
	cacheSize int
	log       *slog.Logger
}

// WithCacheSize bounds the decoded-column cache entry count.
func WithCacheSize(n int) Option {
	return func(o *options) { o.cacheSize = n }
}

func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.log = l }
}

// NewManager opens (or creates) the data directory and rebuilds the catalog
// from the persisted table metadata.
func NewManager(dir string, opts ...Option) (*Manager, error) {
	o := options{cacheSize: defaultCacheSize, log: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	cache, err := lru.New[string, []types.Value](o.cacheSize)
	if err != nil {
		return nil, fmt.Errorf("column cache: %w", err)
	}

	m := &Manager{
		dir:     dir,
		catalog: schema.NewCatalog(),
		metas:   make(map[string]*TableMetadata),
		cache:   cache,
		log:     o.log,
	}
	if err := m.loadMetadata(); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Manager) loadMetadata() error {
	paths, err := filepath.Glob(filepath.Join(m.dir, "*"+metaSuffix))
	if err != nil {
		return err
	}
	for _, path := range paths {
		meta, err := m.readMetadata(path)
		if err != nil {
			return err
		}
		tbl, err := meta.table()
		if err != nil {
			return fmt.Errorf("table %q: %w", meta.Name, err)
		}
		if err := m.catalog.Add(tbl); err != nil {
			return err
		}
		m.metas[meta.Name] = meta
		if meta.TableID >= m.nextTableID {
			m.nextTableID = meta.TableID + 1
		}
	}
	m.log.Debug("storage: catalog loaded", "dir", m.dir, "tables", len(m.metas))
	return nil
}

// Catalog exposes the in-memory registry for validation before I/O. Callers
// must hold the same lock that guards the manager's operations.
func (m *Manager) Catalog() *schema.Catalog { return m.catalog }

// RowCount returns the persisted row count of a table.
func (m *Manager) RowCount(table string) (uint64, error) {
	meta, ok := m.metas[table]
	if !ok {
		return 0, fmt.Errorf("table %q not found: %w", table, types.ErrSchema)
	}
	return meta.RowCount, nil
}

func (m *Manager) colPath(table, column string) string {
	return filepath.Join(m.dir, table+"__"+column+".col")
}

// CreateTable registers the catalog entry, persists metadata and allocates
// one empty column store per column. The table must not already exist and
// needs at least one column.
func (m *Manager) CreateTable(t *schema.Table) error {
	if err := schema.ValidateName(t.Name); err != nil {
		return err
	}
	if len(t.Columns) == 0 {
		return fmt.Errorf("table %q must have at least one column: %w", t.Name, types.ErrInvalidData)
	}
	for i := range t.Columns {
		if err := schema.ValidateName(t.Columns[i].Name); err != nil {
			return err
		}
	}
	if _, ok := m.catalog.Get(t.Name); ok {
		return fmt.Errorf("table %q already exists: %w", t.Name, types.ErrSchema)
	}

	var created []string
	for i := range t.Columns {
		buf, err := encodeStore(nil, t.Columns[i].Compression)
		if err != nil {
			return err
		}
		path := m.colPath(t.Name, t.Columns[i].Name)
		if err := atomicWrite(path, buf); err != nil {
			for _, p := range created {
				_ = os.Remove(p)
			}
			return fmt.Errorf("allocate column store %s.%s: %w", t.Name, t.Columns[i].Name, err)
		}
		created = append(created, path)
	}

	meta := newMetadata(t, m.nextTableID)
	if err := m.writeMetadata(meta); err != nil {
		for _, p := range created {
			_ = os.Remove(p)
		}
		return fmt.Errorf("persist metadata for %q: %w", t.Name, err)
	}
	m.nextTableID++
	m.metas[t.Name] = meta
	if err := m.catalog.Add(t); err != nil {
		return err
	}
	m.log.Info("storage: table created", "table", t.Name, "columns", len(t.Columns))
	return nil
}

// DropTable removes the catalog entry, the metadata file and every column
// store of the table.
func (m *Manager) DropTable(name string) error {
	tbl, ok := m.catalog.Get(name)
	if !ok {
		return fmt.Errorf("table %q not found: %w", name, types.ErrSchema)
	}
	m.catalog.Remove(name)
	delete(m.metas, name)
	m.purgeTable(name)

	if err := os.Remove(m.metaPath(name)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove metadata for %q: %w", name, err)
	}
	for i := range tbl.Columns {
		path := m.colPath(name, tbl.Columns[i].Name)
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("remove column store %s.%s: %w", name, tbl.Columns[i].Name, err)
		}
	}
	m.log.Info("storage: table dropped", "table", name)
	return nil
}

// InsertRow appends one logical row across all column stores. Arity and type
// tags are checked before any I/O; the appends are staged in memory and the
// stores rewritten as a single logical unit, so a failure never leaves a
// half-written row.
func (m *Manager) InsertRow(table string, values []types.Value) error {
	tbl, ok := m.catalog.Get(table)
	if !ok {
		return fmt.Errorf("table %q not found: %w", table, types.ErrSchema)
	}
	if len(values) != len(tbl.Columns) {
		return fmt.Errorf("table %q expects %d values, got %d: %w",
			table, len(tbl.Columns), len(values), types.ErrInvalidData)
	}
	for i := range values {
		if values[i].Kind() != tbl.Columns[i].Type {
			return fmt.Errorf("column %s.%s expects %s, got %s: %w",
				table, tbl.Columns[i].Name, tbl.Columns[i].Type, values[i].Kind(), types.ErrTypeMismatch)
		}
	}

	extended := make([][]types.Value, len(tbl.Columns))
	staged := make([][]byte, len(tbl.Columns))
	for i := range tbl.Columns {
		cur, err := m.readColumnAll(table, &tbl.Columns[i])
		if err != nil {
			return err
		}
		next := make([]types.Value, 0, len(cur)+1)
		next = append(next, cur...)
		next = append(next, values[i])
		buf, err := encodeStore(next, tbl.Columns[i].Compression)
		if err != nil {
			return err
		}
		extended[i] = next
		staged[i] = buf
	}

	if err := m.commitStores(table, tbl, staged); err != nil {
		return err
	}
	for i := range tbl.Columns {
		m.cache.Add(cacheKey(table, tbl.Columns[i].Name), extended[i])
	}

	meta := m.metas[table]
	meta.RowCount++
	meta.UpdatedAt = nowUnix()
	if err := m.writeMetadata(meta); err != nil {
		return fmt.Errorf("persist row count for %q: %w", table, err)
	}
	return nil
}

// ReadColumn materializes one column. With a condition, only values at row
// positions satisfying it are returned; the condition's columns are read
// internally and must belong to the same table.
func (m *Manager) ReadColumn(table, column string, cond query.Condition) ([]types.Value, error) {
	tbl, ok := m.catalog.Get(table)
	if !ok {
		return nil, fmt.Errorf("table %q not found: %w", table, types.ErrSchema)
	}
	col := tbl.Column(column)
	if col == nil {
		return nil, fmt.Errorf("column %s.%s not found: %w", table, column, types.ErrSchema)
	}

	vals, err := m.readColumnAll(table, col)
	if err != nil {
		return nil, err
	}
	if cond == nil {
		// Callers may retain the slice; do not alias the cache entry.
		return slices.Clone(vals), nil
	}

	condCols := map[string][]types.Value{column: vals}
	n := len(vals)
	for _, name := range query.ConditionColumns(cond) {
		if _, ok := condCols[name]; ok {
			continue
		}
		c := tbl.Column(name)
		if c == nil {
			return nil, fmt.Errorf("column %s.%s not found: %w", table, name, types.ErrSchema)
		}
		cv, err := m.readColumnAll(table, c)
		if err != nil {
			return nil, err
		}
		condCols[name] = cv
		if len(cv) < n {
			n = len(cv)
		}
	}

	out := make([]types.Value, 0, n)
	for i := 0; i < n; i++ {
		ok, err := query.EvalRow(cond, condCols, i)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, vals[i])
		}
	}
	return out, nil
}

// DeleteRows rewrites every column store without the row positions matching
// the condition (all rows when cond is nil) and returns the number removed.
func (m *Manager) DeleteRows(table string, cond query.Condition) (int, error) {
	tbl, ok := m.catalog.Get(table)
	if !ok {
		return 0, fmt.Errorf("table %q not found: %w", table, types.ErrSchema)
	}

	cols := make(map[string][]types.Value, len(tbl.Columns))
	n := -1
	for i := range tbl.Columns {
		cv, err := m.readColumnAll(table, &tbl.Columns[i])
		if err != nil {
			return 0, err
		}
		cols[tbl.Columns[i].Name] = cv
		if n < 0 || len(cv) < n {
			n = len(cv)
		}
	}
	if cond != nil {
		for _, name := range query.ConditionColumns(cond) {
			if tbl.Column(name) == nil {
				return 0, fmt.Errorf("column %s.%s not found: %w", table, name, types.ErrSchema)
			}
		}
	}

	keep := make([]bool, n)
	removed := 0
	for i := 0; i < n; i++ {
		if cond == nil {
			removed++
			continue
		}
		match, err := query.EvalRow(cond, cols, i)
		if err != nil {
			return 0, err
		}
		if match {
			removed++
		} else {
			keep[i] = true
		}
	}
	if removed == 0 {
		return 0, nil
	}

	kept := make([][]types.Value, len(tbl.Columns))
	staged := make([][]byte, len(tbl.Columns))
	for i := range tbl.Columns {
		src := cols[tbl.Columns[i].Name]
		dst := make([]types.Value, 0, n-removed)
		for j := 0; j < n; j++ {
			if keep[j] {
				dst = append(dst, src[j])
			}
		}
		buf, err := encodeStore(dst, tbl.Columns[i].Compression)
		if err != nil {
			return 0, err
		}
		kept[i] = dst
		staged[i] = buf
	}

	if err := m.commitStores(table, tbl, staged); err != nil {
		return 0, err
	}
	for i := range tbl.Columns {
		m.cache.Add(cacheKey(table, tbl.Columns[i].Name), kept[i])
	}

	meta := m.metas[table]
	if uint64(removed) > meta.RowCount {
		meta.RowCount = 0
	} else {
		meta.RowCount -= uint64(removed)
	}
	meta.UpdatedAt = nowUnix()
	if err := m.writeMetadata(meta); err != nil {
		return 0, fmt.Errorf("persist row count for %q: %w", table, err)
	}
	m.log.Debug("storage: rows deleted", "table", table, "removed", removed)
	return removed, nil
}

// commitStores writes one staged buffer per column: every buffer goes to a
// temp file first, then all temps are renamed into place. An error during
// staging leaves the stores untouched.
func (m *Manager) commitStores(table string, tbl *schema.Table, staged [][]byte) error {
	tmps := make([]string, len(staged))
	for i := range staged {
		tmp, err := os.CreateTemp(m.dir, "stage*")
		if err != nil {
			removeAll(tmps[:i])
			return err
		}
		tmps[i] = tmp.Name()
		if _, err := tmp.Write(staged[i]); err != nil {
			_ = tmp.Close()
			removeAll(tmps[:i+1])
			return fmt.Errorf("stage column store %s.%s: %w", table, tbl.Columns[i].Name, err)
		}
		if err := tmp.Close(); err != nil {
			removeAll(tmps[:i+1])
			return fmt.Errorf("stage column store %s.%s: %w", table, tbl.Columns[i].Name, err)
		}
	}
	for i := range tmps {
		if err := os.Rename(tmps[i], m.colPath(table, tbl.Columns[i].Name)); err != nil {
			removeAll(tmps[i:])
			return fmt.Errorf("commit column store %s.%s: %w", table, tbl.Columns[i].Name, err)
		}
	}
	return nil
}

func removeAll(paths []string) {
	for _, p := range paths {
		if p != "" {
			_ = os.Remove(p)
		}
	}
}

func (m *Manager) readColumnAll(table string, col *schema.Column) ([]types.Value, error) {
	key := cacheKey(table, col.Name)
	if vals, ok := m.cache.Get(key); ok {
		return vals, nil
	}
	data, err := os.ReadFile(m.colPath(table, col.Name))
	if err != nil {
		return nil, fmt.Errorf("read column store %s.%s: %w", table, col.Name, err)
	}
	vals, err := decodeStore(col.Type, data)
	if err != nil {
		return nil, fmt.Errorf("column store %s.%s: %w", table, col.Name, err)
	}
	m.cache.Add(key, vals)
	return vals, nil
}

func cacheKey(table, column string) string {
	return table + "\x00" + column
}

func (m *Manager) purgeTable(table string) {
	prefix := table + "\x00"
	for _, k := range m.cache.Keys() {
		if strings.HasPrefix(k, prefix) {
			m.cache.Remove(k)
		}
	}
}
