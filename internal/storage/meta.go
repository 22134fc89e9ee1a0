package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/vddb/vddb/internal/schema"
	"github.com/vddb/vddb/internal/types"
)

// TableMetadata is the persisted counterpart of a catalog entry: the durable
// source of truth loaded at startup and rewritten on every structural change.
type TableMetadata struct {
	TableID     uint64               `json:"table_id"`
	Name        string               `json:"name"`
	RowCount    uint64               `json:"row_count"`
	CreatedAt   int64                `json:"created_at"`
	UpdatedAt   int64                `json:"updated_at"`
	PrimaryKey  string               `json:"primary_key,omitempty"`
	Columns     []ColumnMetadata     `json:"columns"`
	Indexes     []IndexMetadata      `json:"indexes,omitempty"`
	Constraints []ConstraintMetadata `json:"constraints,omitempty"`
}

type ColumnMetadata struct {
	ColumnID    uint64     `json:"column_id"`
	Name        string     `json:"name"`
	DataType    string     `json:"data_type"`
	Nullable    bool       `json:"nullable"`
	PrimaryKey  bool       `json:"primary_key"`
	Unique      bool       `json:"unique"`
	Default     *MetaValue `json:"default,omitempty"`
	Compression string     `json:"compression"`
}

type IndexMetadata struct {
	Name    string   `json:"name"`
	Columns []string `json:"columns"`
	Unique  bool     `json:"unique"`
	Kind    string   `json:"kind"`
}

type ConstraintMetadata struct {
	Name       string   `json:"name"`
	Kind       string   `json:"kind"`
	Columns    []string `json:"columns"`
	Check      string   `json:"check,omitempty"`
	RefTable   string   `json:"ref_table,omitempty"`
	RefColumns []string `json:"ref_columns,omitempty"`
}

// MetaValue is the JSON form of a default value.
type MetaValue struct {
	Type  string   `json:"type"`
	Int   *int32   `json:"int32,omitempty"`
	Float *float32 `json:"float32,omitempty"`
	Text  *string  `json:"text,omitempty"`
}

func metaFromValue(v types.Value) *MetaValue {
	mv := &MetaValue{Type: v.Kind().String()}
	switch v.Kind() {
	case types.Int32:
		i := v.Int32()
		mv.Int = &i
	case types.Float32:
		f := v.Float32()
		mv.Float = &f
	case types.Text:
		s := v.Text()
		mv.Text = &s
	}
	return mv
}

func (mv *MetaValue) value() (types.Value, error) {
	dt, err := parseDataType(mv.Type)
	if err != nil {
		return types.Value{}, err
	}
	switch dt {
	case types.Int32:
		if mv.Int == nil {
			return types.Value{}, fmt.Errorf("default value missing int32 payload: %w", types.ErrSerialization)
		}
		return types.NewInt32(*mv.Int), nil
	case types.Float32:
		if mv.Float == nil {
			return types.Value{}, fmt.Errorf("default value missing float32 payload: %w", types.ErrSerialization)
		}
		return types.NewFloat32(*mv.Float), nil
	default:
		if mv.Text == nil {
			return types.Value{}, fmt.Errorf("default value missing text payload: %w", types.ErrSerialization)
		}
		return types.NewText(*mv.Text), nil
	}
}

func parseDataType(s string) (types.DataType, error) {
	switch s {
	case "INT32":
		return types.Int32, nil
	case "FLOAT32":
		return types.Float32, nil
	case "TEXT":
		return types.Text, nil
	default:
		return 0, fmt.Errorf("unknown data type %q in metadata: %w", s, types.ErrSerialization)
	}
}

func nowUnix() int64 { return time.Now().Unix() }

func newMetadata(t *schema.Table, tableID uint64) *TableMetadata {
	now := nowUnix()
	meta := &TableMetadata{
		TableID:    tableID,
		Name:       t.Name,
		CreatedAt:  now,
		UpdatedAt:  now,
		PrimaryKey: t.PrimaryKey,
	}
	for i, c := range t.Columns {
		cm := ColumnMetadata{
			ColumnID:    uint64(i),
			Name:        c.Name,
			DataType:    c.Type.String(),
			Nullable:    c.Nullable,
			PrimaryKey:  c.PrimaryKey,
			Unique:      c.Unique,
			Compression: c.Compression.String(),
		}
		if c.Default != nil {
			cm.Default = metaFromValue(*c.Default)
		}
		meta.Columns = append(meta.Columns, cm)
	}
	for _, ix := range t.Indexes {
		meta.Indexes = append(meta.Indexes, IndexMetadata{
			Name: ix.Name, Columns: ix.Columns, Unique: ix.Unique, Kind: string(ix.Kind),
		})
	}
	for _, cn := range t.Constraints {
		meta.Constraints = append(meta.Constraints, ConstraintMetadata{
			Name: cn.Name, Kind: string(cn.Kind), Columns: cn.Columns,
			Check: cn.Check, RefTable: cn.RefTable, RefColumns: cn.RefColumns,
		})
	}
	return meta
}

// table rebuilds the catalog entry from persisted metadata.
func (meta *TableMetadata) table() (*schema.Table, error) {
	t := &schema.Table{Name: meta.Name, PrimaryKey: meta.PrimaryKey}
	for _, cm := range meta.Columns {
		dt, err := parseDataType(cm.DataType)
		if err != nil {
			return nil, err
		}
		comp, err := schema.ParseCompression(cm.Compression)
		if err != nil {
			return nil, err
		}
		col := schema.Column{
			Name:        cm.Name,
			Type:        dt,
			Nullable:    cm.Nullable,
			PrimaryKey:  cm.PrimaryKey,
			Unique:      cm.Unique,
			Compression: comp,
		}
		if cm.Default != nil {
			v, err := cm.Default.value()
			if err != nil {
				return nil, err
			}
			col.Default = &v
		}
		t.Columns = append(t.Columns, col)
	}
	for _, im := range meta.Indexes {
		t.Indexes = append(t.Indexes, schema.Index{
			Name: im.Name, Columns: im.Columns, Unique: im.Unique, Kind: schema.IndexKind(im.Kind),
		})
	}
	for _, cm := range meta.Constraints {
		t.Constraints = append(t.Constraints, schema.Constraint{
			Name: cm.Name, Kind: schema.ConstraintKind(cm.Kind), Columns: cm.Columns,
			Check: cm.Check, RefTable: cm.RefTable, RefColumns: cm.RefColumns,
		})
	}
	return t, nil
}

const metaSuffix = ".meta.json"

func (m *Manager) metaPath(table string) string {
	return filepath.Join(m.dir, table+metaSuffix)
}

func (m *Manager) writeMetadata(meta *TableMetadata) error {
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal metadata for %q: %w", meta.Name, err)
	}
	return atomicWrite(m.metaPath(meta.Name), data)
}

func (m *Manager) readMetadata(path string) (*TableMetadata, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read table metadata: %w", err)
	}
	var meta TableMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("decode table metadata %s: %v: %w", path, err, types.ErrSerialization)
	}
	return &meta, nil
}

// atomicWrite stages into a temp file in the same directory and renames it
// over the target, so readers never observe a half-written file.
func atomicWrite(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		_ = os.Remove(tmp.Name())
		return err
	}
	return nil
}
