package snapshot

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"salesprobe/adapters/excel"
	"salesprobe/domain/core"
	"salesprobe/domain/sales"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var frame = sales.Frame{
	Header: []string{"customerid", "total_spending", "segment"},
	Rows: [][]string{
		{"12346", "77183.6", "Very High"},
		{"12347", "4310", "High, returning"},
	},
}

func TestWriteCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "customers.csv")
	require.NoError(t, Write(context.Background(), path, frame))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "customerid,total_spending,segment\n12346,77183.6,Very High\n12347,4310,\"High, returning\"\n", string(data))
}

func TestWriteXLSXRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "customers.xlsx")
	require.NoError(t, Write(context.Background(), path, frame))

	raw, err := excel.NewDataReader(path).Read()
	require.NoError(t, err)
	assert.Equal(t, frame.Header, raw.Header)
	assert.Equal(t, frame.Rows, raw.Rows)
}

func TestWriteRejectsUnknownFormat(t *testing.T) {
	err := Write(context.Background(), filepath.Join(t.TempDir(), "out.parquet"), frame)
	assert.ErrorIs(t, err, core.ErrInvalidArgument)
}

func TestWriteHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := Write(ctx, filepath.Join(t.TempDir(), "out.csv"), frame)
	assert.ErrorIs(t, err, context.Canceled)
}
