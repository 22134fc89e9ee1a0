// Package schema holds the in-memory catalog: table and column definitions,
// declared indexes and constraints. It is the single source of truth for
// column existence and type, consulted before any storage I/O.
package schema

import (
	"fmt"
	"unicode"

	"github.com/vddb/vddb/internal/types"
)

// FieldType is the descriptive type set accepted in table definitions. Only
// the kinds with a storage mapping can be materialized; the rest exist for
// schema description and are rejected at CREATE TABLE time.
type FieldType uint8

const (
	FieldInteger FieldType = iota
	FieldFloat
	FieldText
	FieldBoolean
	FieldTimestamp
	FieldJSON
	FieldBinary
	FieldArray
	FieldMap
)

func (t FieldType) String() string {
	switch t {
	case FieldInteger:
		return "INTEGER"
	case FieldFloat:
		return "FLOAT"
	case FieldText:
		return "TEXT"
	case FieldBoolean:
		return "BOOLEAN"
	case FieldTimestamp:
		return "TIMESTAMP"
	case FieldJSON:
		return "JSON"
	case FieldBinary:
		return "BINARY"
	case FieldArray:
		return "ARRAY"
	case FieldMap:
		return "MAP"
	default:
		return fmt.Sprintf("FieldType(%d)", uint8(t))
	}
}

// StorageType maps a descriptive type onto the storable kind, or fails with
// ErrSchema for types the column stores cannot materialize.
func (t FieldType) StorageType() (types.DataType, error) {
	switch t {
	case FieldInteger:
		return types.Int32, nil
	case FieldFloat:
		return types.Float32, nil
	case FieldText:
		return types.Text, nil
	default:
		return 0, fmt.Errorf("field type %s is not storable: %w", t, types.ErrSchema)
	}
}

// Compression is the per-column encoding recorded in metadata. It affects
// only the on-disk byte layout, never the logical value contract.
type Compression uint8

const (
	CompressionNone Compression = iota
	CompressionRLE
	CompressionDictionary
)

func (c Compression) String() string {
	switch c {
	case CompressionNone:
		return "none"
	case CompressionRLE:
		return "rle"
	case CompressionDictionary:
		return "dictionary"
	default:
		return fmt.Sprintf("Compression(%d)", uint8(c))
	}
}

// ParseCompression maps a config/metadata string onto a Compression tag.
func ParseCompression(s string) (Compression, error) {
	switch s {
	case "", "none":
		return CompressionNone, nil
	case "rle":
		return CompressionRLE, nil
	case "dictionary", "dict":
		return CompressionDictionary, nil
	default:
		return 0, fmt.Errorf("unknown compression %q: %w", s, types.ErrInvalidData)
	}
}

type Column struct {
	Name        string
	Type        types.DataType
	Nullable    bool
	PrimaryKey  bool
	Unique      bool
	Default     *types.Value
	Compression Compression
}

type IndexKind string

const (
	IndexBTree    IndexKind = "BTREE"
	IndexHash     IndexKind = "HASH"
	IndexFullText IndexKind = "FULLTEXT"
)

// Index is a structural declaration only; the scan path does not consult it.
type Index struct {
	Name    string
	Columns []string
	Unique  bool
	Kind    IndexKind
}

type ConstraintKind string

const (
	ConstraintPrimaryKey ConstraintKind = "PRIMARY KEY"
	ConstraintForeignKey ConstraintKind = "FOREIGN KEY"
	ConstraintUnique     ConstraintKind = "UNIQUE"
	ConstraintCheck      ConstraintKind = "CHECK"
	ConstraintNotNull    ConstraintKind = "NOT NULL"
)

type Constraint struct {
	Name       string
	Kind       ConstraintKind
	Columns    []string
	Check      string
	RefTable   string
	RefColumns []string
}

type Table struct {
	Name        string
	Columns     []Column
	PrimaryKey  string
	Indexes     []Index
	Constraints []Constraint
}

// Column returns the named column definition, or nil.
func (t *Table) Column(name string) *Column {
	for i := range t.Columns {
		if t.Columns[i].Name == name {
			return &t.Columns[i]
		}
	}
	return nil
}

// ColumnNames returns the column names in declared order.
func (t *Table) ColumnNames() []string {
	names := make([]string, len(t.Columns))
	for i := range t.Columns {
		names[i] = t.Columns[i].Name
	}
	return names
}

// ValidateName enforces the identifier rules for table and column names:
// non-empty, letters/digits/underscore, first rune a letter or underscore.
func ValidateName(name string) error {
	if name == "" {
		return fmt.Errorf("empty identifier: %w", types.ErrInvalidData)
	}
	for i, r := range name {
		if i == 0 {
			if !unicode.IsLetter(r) && r != '_' {
				return fmt.Errorf("invalid identifier %q: %w", name, types.ErrInvalidData)
			}
			continue
		}
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_' {
			return fmt.Errorf("invalid identifier %q: %w", name, types.ErrInvalidData)
		}
	}
	return nil
}
