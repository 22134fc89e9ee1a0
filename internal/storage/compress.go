package storage

import (
	"encoding/binary"
	"fmt"

	"github.com/vddb/vddb/internal/schema"
	"github.com/vddb/vddb/internal/types"
)

// A column store is a 1-byte compression tag followed by the encoded value
// stream. Layouts (all integers little-endian):
//
//	none:       value*
//	rle:        (u32 run length, value)*
//	dictionary: u32 dict size, dict value*, u32 code count, u32 code*
//
// Every layout round-trips exactly: decodeStore(encodeStore(vals)) == vals.

func encodeStore(vals []types.Value, comp schema.Compression) ([]byte, error) {
	buf := []byte{byte(comp)}
	switch comp {
	case schema.CompressionNone:
		for _, v := range vals {
			buf = v.AppendTo(buf)
		}
		return buf, nil

	case schema.CompressionRLE:
		for i := 0; i < len(vals); {
			j := i + 1
			for j < len(vals) && vals[j].Equal(vals[i]) {
				j++
			}
			buf = binary.LittleEndian.AppendUint32(buf, uint32(j-i))
			buf = vals[i].AppendTo(buf)
			i = j
		}
		return buf, nil

	case schema.CompressionDictionary:
		codes := make([]uint32, len(vals))
		index := make(map[types.Value]uint32, len(vals))
		var dict []types.Value
		for i, v := range vals {
			code, ok := index[v]
			if !ok {
				code = uint32(len(dict))
				index[v] = code
				dict = append(dict, v)
			}
			codes[i] = code
		}
		buf = binary.LittleEndian.AppendUint32(buf, uint32(len(dict)))
		for _, v := range dict {
			buf = v.AppendTo(buf)
		}
		buf = binary.LittleEndian.AppendUint32(buf, uint32(len(codes)))
		for _, c := range codes {
			buf = binary.LittleEndian.AppendUint32(buf, c)
		}
		return buf, nil

	default:
		return nil, fmt.Errorf("unknown compression tag %d: %w", comp, types.ErrSerialization)
	}
}

func decodeStore(dt types.DataType, data []byte) ([]types.Value, error) {
	if len(data) == 0 {
		return nil, nil
	}
	comp, payload := schema.Compression(data[0]), data[1:]

	switch comp {
	case schema.CompressionNone:
		var out []types.Value
		for off := 0; off < len(payload); {
			v, n, err := types.Decode(dt, payload[off:])
			if err != nil {
				return nil, err
			}
			out = append(out, v)
			off += n
		}
		return out, nil

	case schema.CompressionRLE:
		var out []types.Value
		for off := 0; off < len(payload); {
			if len(payload)-off < 4 {
				return nil, fmt.Errorf("truncated rle run length: %w", types.ErrSerialization)
			}
			run := binary.LittleEndian.Uint32(payload[off:])
			off += 4
			v, n, err := types.Decode(dt, payload[off:])
			if err != nil {
				return nil, err
			}
			off += n
			for k := uint32(0); k < run; k++ {
				out = append(out, v)
			}
		}
		return out, nil

	case schema.CompressionDictionary:
		if len(payload) < 4 {
			return nil, fmt.Errorf("truncated dictionary size: %w", types.ErrSerialization)
		}
		dictLen := binary.LittleEndian.Uint32(payload)
		off := 4
		dict := make([]types.Value, 0, dictLen)
		for k := uint32(0); k < dictLen; k++ {
			v, n, err := types.Decode(dt, payload[off:])
			if err != nil {
				return nil, err
			}
			dict = append(dict, v)
			off += n
		}
		if len(payload)-off < 4 {
			return nil, fmt.Errorf("truncated dictionary code count: %w", types.ErrSerialization)
		}
		count := binary.LittleEndian.Uint32(payload[off:])
		off += 4
		if uint64(len(payload)-off) < uint64(count)*4 {
			return nil, fmt.Errorf("truncated dictionary codes: %w", types.ErrSerialization)
		}
		out := make([]types.Value, 0, count)
		for k := uint32(0); k < count; k++ {
			code := binary.LittleEndian.Uint32(payload[off:])
			off += 4
			if code >= uint32(len(dict)) {
				return nil, fmt.Errorf("dictionary code %d out of range (dict %d): %w",
					code, len(dict), types.ErrSerialization)
			}
			out = append(out, dict[code])
		}
		return out, nil

	default:
		return nil, fmt.Errorf("unknown compression tag %d: %w", comp, types.ErrSerialization)
	}
}
