package schema

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vddb/vddb/internal/types"
)

func usersTable() *Table {
	return &Table{
		Name: "users",
		Columns: []Column{
			{Name: "id", Type: types.Int32, PrimaryKey: true},
			{Name: "name", Type: types.Text},
		},
		PrimaryKey: "id",
	}
}

func TestCatalogAddGetRemove(t *testing.T) {
	c := NewCatalog()

	_, ok := c.Get("users")
	require.False(t, ok)

	require.NoError(t, c.Add(usersTable()))

	tbl, ok := c.Get("users")
	require.True(t, ok)
	require.Equal(t, "users", tbl.Name)
	require.NotNil(t, tbl.Column("id"))
	require.Nil(t, tbl.Column("missing"))

	require.True(t, c.Remove("users"))
	require.False(t, c.Remove("users"))
}

func TestCatalogRejectsDuplicate(t *testing.T) {
	c := NewCatalog()
	require.NoError(t, c.Add(usersTable()))

	err := c.Add(usersTable())
	require.ErrorIs(t, err, types.ErrSchema)
}

func TestStorageType(t *testing.T) {
	dt, err := FieldInteger.StorageType()
	require.NoError(t, err)
	require.Equal(t, types.Int32, dt)

	dt, err = FieldText.StorageType()
	require.NoError(t, err)
	require.Equal(t, types.Text, dt)

	_, err = FieldJSON.StorageType()
	require.ErrorIs(t, err, types.ErrSchema)
	_, err = FieldBoolean.StorageType()
	require.ErrorIs(t, err, types.ErrSchema)
}

func TestValidateName(t *testing.T) {
	require.NoError(t, ValidateName("users_2"))
	require.NoError(t, ValidateName("_tmp"))

	require.ErrorIs(t, ValidateName(""), types.ErrInvalidData)
	require.ErrorIs(t, ValidateName("1users"), types.ErrInvalidData)
	require.ErrorIs(t, ValidateName("users;drop"), types.ErrInvalidData)
}

func TestParseCompression(t *testing.T) {
	c, err := ParseCompression("")
	require.NoError(t, err)
	require.Equal(t, CompressionNone, c)

	c, err = ParseCompression("rle")
	require.NoError(t, err)
	require.Equal(t, CompressionRLE, c)

	c, err = ParseCompression("dictionary")
	require.NoError(t, err)
	require.Equal(t, CompressionDictionary, c)

	_, err = ParseCompression("zstd")
	require.ErrorIs(t, err, types.ErrInvalidData)
}
