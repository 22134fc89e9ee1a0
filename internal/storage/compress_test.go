package storage

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vddb/vddb/internal/schema"
	"github.com/vddb/vddb/internal/types"
)

func TestEncodeStoreRoundTrip(t *testing.T) {
	vals := []types.Value{
		types.NewText("x"), types.NewText("x"), types.NewText("x"),
		types.NewText("y"), types.NewText("x"),
	}
	for _, comp := range []schema.Compression{
		schema.CompressionNone, schema.CompressionRLE, schema.CompressionDictionary,
	} {
		buf, err := encodeStore(vals, comp)
		require.NoError(t, err)
		require.Equal(t, byte(comp), buf[0])

		got, err := decodeStore(types.Text, buf)
		require.NoError(t, err)
		require.Equal(t, vals, got)
	}
}

func TestEncodeStoreEmpty(t *testing.T) {
	for _, comp := range []schema.Compression{
		schema.CompressionNone, schema.CompressionRLE, schema.CompressionDictionary,
	} {
		buf, err := encodeStore(nil, comp)
		require.NoError(t, err)

		got, err := decodeStore(types.Int32, buf)
		require.NoError(t, err)
		require.Empty(t, got)
	}
}

func TestRLECollapsesRuns(t *testing.T) {
	vals := []types.Value{
		types.NewInt32(7), types.NewInt32(7), types.NewInt32(7), types.NewInt32(7),
	}
	rle, err := encodeStore(vals, schema.CompressionRLE)
	require.NoError(t, err)
	plain, err := encodeStore(vals, schema.CompressionNone)
	require.NoError(t, err)

	// One (run, value) pair vs four raw values.
	require.Less(t, len(rle), len(plain))
}

func TestDictionaryReusesCodes(t *testing.T) {
	long := types.NewText("a rather long repeated value")
	vals := []types.Value{long, long, long, long, long, long}

	dict, err := encodeStore(vals, schema.CompressionDictionary)
	require.NoError(t, err)
	plain, err := encodeStore(vals, schema.CompressionNone)
	require.NoError(t, err)
	require.Less(t, len(dict), len(plain))

	got, err := decodeStore(types.Text, dict)
	require.NoError(t, err)
	require.Equal(t, vals, got)
}

func TestDecodeStoreCorrupt(t *testing.T) {
	// Truncated rle run header.
	_, err := decodeStore(types.Int32, []byte{byte(schema.CompressionRLE), 0x01})
	require.ErrorIs(t, err, types.ErrSerialization)

	// Dictionary code past the dictionary.
	buf, err := encodeStore([]types.Value{types.NewInt32(1)}, schema.CompressionDictionary)
	require.NoError(t, err)
	buf[len(buf)-4] = 0xFF
	_, err = decodeStore(types.Int32, buf)
	require.ErrorIs(t, err, types.ErrSerialization)

	// Unknown tag.
	_, err = decodeStore(types.Int32, []byte{0x9})
	require.ErrorIs(t, err, types.ErrSerialization)

	// Truncated raw value.
	_, err = decodeStore(types.Int32, []byte{byte(schema.CompressionNone), 1, 2})
	require.ErrorIs(t, err, types.ErrSerialization)
}
