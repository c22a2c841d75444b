package core

import (
	"testing"

	"github.com/huangsam/miklabel/core/dataset"
	"github.com/huangsam/miklabel/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodePayloadKeepsInvalidUTF8(t *testing.T) {
	in := cachedReshape{
		Table: &dataset.Table{
			Header: []string{"ID", "Label", "Title"},
			Rows: [][]string{
				{"1", "area-mvc", "caf\xe9"},
				{"2", "area-blazor", ""},
			},
		},
		Stats: schema.ReshapeStats{Read: 3, Written: 2},
	}

	data, err := encodePayload(in)
	require.NoError(t, err)
	out, err := decodePayload(data)
	require.NoError(t, err)

	assert.Equal(t, in.Stats, out.Stats)
	assert.Equal(t, in.Table.Header, out.Table.Header)
	assert.Equal(t, in.Table.Rows, out.Table.Rows)
}

func TestDecodePayloadRejectsGarbage(t *testing.T) {
	_, err := decodePayload([]byte("not zstd"))
	assert.Error(t, err)
}
