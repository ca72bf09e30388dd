// Package ledger is a local append-only booking store backed by bbolt. It
// stands in for the spreadsheet when running offline.
package ledger

import (
	"context"
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	bolt "go.etcd.io/bbolt"
	"go.uber.org/zap"

	"github.com/room4-2/staybot/booking"
)

var bookingsBucket = []byte("bookings")

// Row is one stored booking row.
type Row struct {
	Seq        uint64    `json:"-"`
	Columns    []any     `json:"columns"`
	AppendedAt time.Time `json:"appended_at"`
}

// Gateway implements booking.Gateway. The database is opened on first use
// and kept open until Close; a failed open is retried on the next call.
type Gateway struct {
	path   string
	logger *zap.Logger

	mu sync.Mutex
	db *bolt.DB
}

var _ booking.Gateway = (*Gateway)(nil)

// NewGateway creates a ledger at path.
func NewGateway(path string, logger *zap.Logger) *Gateway {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Gateway{path: path, logger: logger.With(zap.String("ledger", path))}
}

func (g *Gateway) open() (*bolt.DB, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.db != nil {
		return g.db, nil
	}
	if err := os.MkdirAll(filepath.Dir(g.path), 0o755); err != nil {
		return nil, err
	}
	db, err := bolt.Open(g.path, 0o600, &bolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return nil, err
	}
	g.db = db
	g.logger.Info("✅ ledger opened")
	return db, nil
}

// AppendRow stores columns under the next sequence number and returns
// "bookings#<seq>".
func (g *Gateway) AppendRow(ctx context.Context, columns []any) (booking.RowReference, error) {
	if err := ctx.Err(); err != nil {
		return "", booking.NewPersistenceError(booking.TransientFailure, "append row", err)
	}
	db, err := g.open()
	if err != nil {
		return "", booking.NewPersistenceError(booking.TargetNotFound, "open ledger", err)
	}

	enc, err := sonic.Marshal(Row{Columns: columns, AppendedAt: time.Now().UTC()})
	if err != nil {
		return "", booking.NewPersistenceError(booking.Unknown, "encode row", err)
	}

	var seq uint64
	err = db.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists(bookingsBucket)
		if err != nil {
			return err
		}
		seq, err = b.NextSequence()
		if err != nil {
			return err
		}
		return b.Put(seqKey(seq), enc)
	})
	if err != nil {
		return "", booking.NewPersistenceError(booking.TransientFailure, "append row", err)
	}

	return booking.RowReference(fmt.Sprintf("%s#%d", bookingsBucket, seq)), nil
}

// Rows returns every stored row in append order.
func (g *Gateway) Rows() ([]Row, error) {
	db, err := g.open()
	if err != nil {
		return nil, fmt.Errorf("open ledger: %w", err)
	}
	var rows []Row
	err = db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bookingsBucket)
		if b == nil {
			return nil
		}
		return b.ForEach(func(k, v []byte) error {
			var r Row
			if err := sonic.Unmarshal(v, &r); err != nil {
				return fmt.Errorf("decode row %d: %w", binary.BigEndian.Uint64(k), err)
			}
			r.Seq = binary.BigEndian.Uint64(k)
			rows = append(rows, r)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// Close releases the database file.
func (g *Gateway) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.db == nil {
		return nil
	}
	err := g.db.Close()
	g.db = nil
	return err
}

func seqKey(seq uint64) []byte {
	k := make([]byte, 8)
	binary.BigEndian.PutUint64(k, seq)
	return k
}
