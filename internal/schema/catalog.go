package schema

import (
	"fmt"

	"github.com/vddb/vddb/internal/types"
)

// Catalog maps table names to definitions. It is not safe for concurrent use
// on its own; the storage manager's lock discipline serializes access.
type Catalog struct {
	tables map[string]*Table
}

func NewCatalog() *Catalog {
	return &Catalog{tables: make(map[string]*Table)}
}

func (c *Catalog) Get(name string) (*Table, bool) {
	t, ok := c.tables[name]
	return t, ok
}

// Add registers a table definition; a duplicate name is a schema error.
func (c *Catalog) Add(t *Table) error {
	if _, ok := c.tables[t.Name]; ok {
		return fmt.Errorf("table %q already exists: %w", t.Name, types.ErrSchema)
	}
	c.tables[t.Name] = t
	return nil
}

// Remove drops the named table and reports whether it was present.
func (c *Catalog) Remove(name string) bool {
	if _, ok := c.tables[name]; !ok {
		return false
	}
	delete(c.tables, name)
	return true
}

// Names returns all registered table names (unordered).
func (c *Catalog) Names() []string {
	names := make([]string, 0, len(c.tables))
	for name := range c.tables {
		names = append(names, name)
	}
	return names
}
