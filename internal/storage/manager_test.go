package storage

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vddb/vddb/internal/query"
	"github.com/vddb/vddb/internal/schema"
	"github.com/vddb/vddb/internal/types"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	m, err := NewManager(t.TempDir())
	require.NoError(t, err)
	return m
}

func usersTable(comp schema.Compression) *schema.Table {
	return &schema.Table{
		Name: "users",
		Columns: []schema.Column{
			{Name: "id", Type: types.Int32, PrimaryKey: true, Compression: comp},
			{Name: "name", Type: types.Text, Compression: comp},
			{Name: "score", Type: types.Float32, Compression: comp},
		},
		PrimaryKey: "id",
	}
}

func seedUsers(t *testing.T, m *Manager) {
	t.Helper()
	require.NoError(t, m.CreateTable(usersTable(schema.CompressionNone)))
	rows := [][]types.Value{
		{types.NewInt32(1), types.NewText("a"), types.NewFloat32(0.5)},
		{types.NewInt32(2), types.NewText("b"), types.NewFloat32(1.5)},
		{types.NewInt32(3), types.NewText("c"), types.NewFloat32(2.5)},
	}
	for _, row := range rows {
		require.NoError(t, m.InsertRow("users", row))
	}
}

func TestCreateTableDuplicate(t *testing.T) {
	m := newTestManager(t)
	require.NoError(t, m.CreateTable(usersTable(schema.CompressionNone)))

	err := m.CreateTable(usersTable(schema.CompressionNone))
	require.ErrorIs(t, err, types.ErrSchema)
}

func TestCreateTableValidatesNames(t *testing.T) {
	m := newTestManager(t)

	bad := usersTable(schema.CompressionNone)
	bad.Name = "users;drop"
	require.ErrorIs(t, m.CreateTable(bad), types.ErrInvalidData)

	empty := &schema.Table{Name: "empty"}
	require.ErrorIs(t, m.CreateTable(empty), types.ErrInvalidData)
}

func TestInsertRowCountInvariant(t *testing.T) {
	m := newTestManager(t)
	seedUsers(t, m)

	n, err := m.RowCount("users")
	require.NoError(t, err)
	require.Equal(t, uint64(3), n)

	for _, col := range []string{"id", "name", "score"} {
		vals, err := m.ReadColumn("users", col, nil)
		require.NoError(t, err)
		require.Len(t, vals, 3)
	}
}

func TestInsertRejectsBeforeIO(t *testing.T) {
	m := newTestManager(t)
	seedUsers(t, m)

	// Wrong arity.
	err := m.InsertRow("users", []types.Value{types.NewInt32(4)})
	require.ErrorIs(t, err, types.ErrInvalidData)

	// Wrong tag.
	err = m.InsertRow("users", []types.Value{
		types.NewText("4"), types.NewText("d"), types.NewFloat32(3.5),
	})
	require.ErrorIs(t, err, types.ErrTypeMismatch)

	// Neither failure wrote a partial row anywhere.
	for _, col := range []string{"id", "name", "score"} {
		vals, err := m.ReadColumn("users", col, nil)
		require.NoError(t, err)
		require.Len(t, vals, 3)
	}
	n, err := m.RowCount("users")
	require.NoError(t, err)
	require.Equal(t, uint64(3), n)
}

func TestReadColumnWithCondition(t *testing.T) {
	m := newTestManager(t)
	seedUsers(t, m)

	cond := &query.Compare{Column: "id", Op: query.OpGt, Value: types.NewInt32(1)}
	vals, err := m.ReadColumn("users", "name", cond)
	require.NoError(t, err)
	require.Equal(t, []types.Value{types.NewText("b"), types.NewText("c")}, vals)
}

func TestReadColumnUnknown(t *testing.T) {
	m := newTestManager(t)
	seedUsers(t, m)

	_, err := m.ReadColumn("orders", "id", nil)
	require.ErrorIs(t, err, types.ErrSchema)

	_, err = m.ReadColumn("users", "missing", nil)
	require.ErrorIs(t, err, types.ErrSchema)

	cond := &query.Compare{Column: "missing", Op: query.OpEq, Value: types.NewInt32(1)}
	_, err = m.ReadColumn("users", "id", cond)
	require.ErrorIs(t, err, types.ErrSchema)
}

func TestDeleteRowsInvariant(t *testing.T) {
	m := newTestManager(t)
	seedUsers(t, m)

	cond := &query.Compare{Column: "id", Op: query.OpGe, Value: types.NewInt32(2)}
	removed, err := m.DeleteRows("users", cond)
	require.NoError(t, err)
	require.Equal(t, 2, removed)

	n, err := m.RowCount("users")
	require.NoError(t, err)
	require.Equal(t, uint64(1), n)

	ids, err := m.ReadColumn("users", "id", nil)
	require.NoError(t, err)
	require.Equal(t, []types.Value{types.NewInt32(1)}, ids)

	// No surviving row matches the delete condition.
	left, err := m.ReadColumn("users", "id", cond)
	require.NoError(t, err)
	require.Empty(t, left)
}

func TestDeleteAllRows(t *testing.T) {
	m := newTestManager(t)
	seedUsers(t, m)

	removed, err := m.DeleteRows("users", nil)
	require.NoError(t, err)
	require.Equal(t, 3, removed)

	for _, col := range []string{"id", "name", "score"} {
		vals, err := m.ReadColumn("users", col, nil)
		require.NoError(t, err)
		require.Empty(t, vals)
	}
}

func TestDropTable(t *testing.T) {
	m := newTestManager(t)
	seedUsers(t, m)

	require.NoError(t, m.DropTable("users"))
	_, err := m.ReadColumn("users", "id", nil)
	require.ErrorIs(t, err, types.ErrSchema)

	require.ErrorIs(t, m.DropTable("users"), types.ErrSchema)
}

func TestMetadataReload(t *testing.T) {
	dir := t.TempDir()
	m, err := NewManager(dir)
	require.NoError(t, err)

	require.NoError(t, m.CreateTable(usersTable(schema.CompressionNone)))
	require.NoError(t, m.InsertRow("users", []types.Value{
		types.NewInt32(1), types.NewText("a"), types.NewFloat32(0.5),
	}))

	// Reopen over the same directory: catalog and data come back.
	m2, err := NewManager(dir)
	require.NoError(t, err)

	tbl, ok := m2.Catalog().Get("users")
	require.True(t, ok)
	require.Equal(t, []string{"id", "name", "score"}, tbl.ColumnNames())

	n, err := m2.RowCount("users")
	require.NoError(t, err)
	require.Equal(t, uint64(1), n)

	names, err := m2.ReadColumn("users", "name", nil)
	require.NoError(t, err)
	require.Equal(t, []types.Value{types.NewText("a")}, names)
}

func TestCompressionRoundTrip(t *testing.T) {
	for _, comp := range []schema.Compression{
		schema.CompressionNone, schema.CompressionRLE, schema.CompressionDictionary,
	} {
		t.Run(comp.String(), func(t *testing.T) {
			m := newTestManager(t)
			require.NoError(t, m.CreateTable(usersTable(comp)))

			rows := [][]types.Value{
				{types.NewInt32(1), types.NewText("aa"), types.NewFloat32(0.5)},
				{types.NewInt32(1), types.NewText("aa"), types.NewFloat32(0.5)},
				{types.NewInt32(1), types.NewText("bb"), types.NewFloat32(1.5)},
				{types.NewInt32(2), types.NewText("aa"), types.NewFloat32(1.5)},
				{types.NewInt32(2), types.NewText("cc"), types.NewFloat32(2.5)},
			}
			for _, row := range rows {
				require.NoError(t, m.InsertRow("users", row))
			}

			// Drop the cache so the values genuinely come off disk.
			m.purgeTable("users")

			ids, err := m.ReadColumn("users", "id", nil)
			require.NoError(t, err)
			names, err := m.ReadColumn("users", "name", nil)
			require.NoError(t, err)
			scores, err := m.ReadColumn("users", "score", nil)
			require.NoError(t, err)

			for i, row := range rows {
				require.True(t, row[0].Equal(ids[i]), "id row %d", i)
				require.True(t, row[1].Equal(names[i]), "name row %d", i)
				require.True(t, row[2].Equal(scores[i]), "score row %d", i)
			}
		})
	}
}
