package ledger

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/room4-2/staybot/booking"
)

func TestAppendRowKeepsOrder(t *testing.T) {
	g := NewGateway(filepath.Join(t.TempDir(), "data", "bookings.db"), nil)
	t.Cleanup(func() { _ = g.Close() })

	ref, err := g.AppendRow(context.Background(), []any{"Asha Rao", "9876543210", "2024-05-01", "2024-05-04", 2})
	require.NoError(t, err)
	assert.Equal(t, booking.RowReference("bookings#1"), ref)

	ref, err = g.AppendRow(context.Background(), []any{"Ravi", "12345", "tomorrow", "friday", 1})
	require.NoError(t, err)
	assert.Equal(t, booking.RowReference("bookings#2"), ref)

	rows, err := g.Rows()
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, uint64(1), rows[0].Seq)
	assert.Equal(t, "Asha Rao", rows[0].Columns[0])
	assert.Equal(t, "2024-05-04", rows[0].Columns[3])
	assert.EqualValues(t, 2, rows[0].Columns[4])
	assert.Equal(t, "Ravi", rows[1].Columns[0])
	assert.False(t, rows[1].AppendedAt.IsZero())
}

func TestAppendRowSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bookings.db")

	g := NewGateway(path, nil)
	_, err := g.AppendRow(context.Background(), []any{"A", "1", "x", "y", 1})
	require.NoError(t, err)
	require.NoError(t, g.Close())

	g = NewGateway(path, nil)
	t.Cleanup(func() { _ = g.Close() })
	ref, err := g.AppendRow(context.Background(), []any{"B", "2", "x", "y", 2})
	require.NoError(t, err)
	assert.Equal(t, booking.RowReference("bookings#2"), ref)
}

func TestAppendRowConcurrent(t *testing.T) {
	g := NewGateway(filepath.Join(t.TempDir(), "bookings.db"), nil)
	t.Cleanup(func() { _ = g.Close() })

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := g.AppendRow(context.Background(), []any{fmt.Sprintf("guest-%d", i), "1", "x", "y", 1})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	rows, err := g.Rows()
	require.NoError(t, err)
	assert.Len(t, rows, 10)
}

func TestAppendRowUnopenableIsTargetNotFound(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o600))

	g := NewGateway(filepath.Join(blocker, "bookings.db"), nil)
	_, err := g.AppendRow(context.Background(), []any{"A", "1", "x", "y", 1})

	var perr *booking.PersistenceError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, booking.TargetNotFound, perr.Kind)
	assert.Equal(t, booking.MsgSystemOffline, booking.SpokenMessage(err))
}

func TestRowsOnEmptyLedger(t *testing.T) {
	g := NewGateway(filepath.Join(t.TempDir(), "bookings.db"), nil)
	t.Cleanup(func() { _ = g.Close() })

	rows, err := g.Rows()
	require.NoError(t, err)
	assert.Empty(t, rows)
}
