package repository

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"

	"enclosure_gateway/internal/models"

	"github.com/dgraph-io/badger/v4"
)

var (
	logKeyPrefix = []byte("log/")
	logSeqKey    = []byte("seq/log")
)

// sequence leases are persisted in blocks of this size.
const logSeqBandwidth = 64

// LogBadger keeps the audit log in badger under big-endian sequence keys, so key
// order is append order.
type LogBadger struct {
	db  *badger.DB
	seq *badger.Sequence
}

var _ LogStore = (*LogBadger)(nil)

// OpenLogBadger opens (or creates) the store at path. An empty path opens an
// in-memory store.
func OpenLogBadger(path string) (*LogBadger, error) {
	opts := badger.DefaultOptions(path)
	if path == "" {
		opts = badger.DefaultOptions("").WithInMemory(true)
	}
	opts = opts.WithLogger(nil)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger at %q: %w", path, err)
	}
	seq, err := db.GetSequence(logSeqKey, logSeqBandwidth)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("lease log sequence: %w", err)
	}
	return &LogBadger{db: db, seq: seq}, nil
}

func logKey(n uint64) []byte {
	k := make([]byte, len(logKeyPrefix)+8)
	copy(k, logKeyPrefix)
	binary.BigEndian.PutUint64(k[len(logKeyPrefix):], n)
	return k
}

func (r *LogBadger) Append(ctx context.Context, e models.LogEntry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	n, err := r.seq.Next()
	if err != nil {
		return fmt.Errorf("next log sequence: %w", err)
	}
	val, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal log entry: %w", err)
	}
	return r.db.Update(func(txn *badger.Txn) error {
		return txn.Set(logKey(n), val)
	})
}

func (r *LogBadger) ReadAll(ctx context.Context) ([]models.LogEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := make([]models.LogEntry, 0, 64)
	err := r.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = logKeyPrefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			e, err := decodeLogItem(it.Item())
			if err != nil {
				return err
			}
			out = append(out, e)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *LogBadger) Last(ctx context.Context) (*models.LogEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var last *models.LogEntry
	err := r.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		opts.Prefix = logKeyPrefix
		it := txn.NewIterator(opts)
		defer it.Close()

		it.Seek(logKey(^uint64(0)))
		if !it.ValidForPrefix(logKeyPrefix) {
			return nil
		}
		e, err := decodeLogItem(it.Item())
		if err != nil {
			return err
		}
		last = &e
		return nil
	})
	if err != nil {
		return nil, err
	}
	return last, nil
}

// Close releases the sequence lease and closes the database.
func (r *LogBadger) Close() error {
	if err := r.seq.Release(); err != nil {
		_ = r.db.Close()
		return fmt.Errorf("release log sequence: %w", err)
	}
	return r.db.Close()
}

func decodeLogItem(item *badger.Item) (models.LogEntry, error) {
	var e models.LogEntry
	err := item.Value(func(val []byte) error {
		return json.Unmarshal(val, &e)
	})
	if err != nil {
		return models.LogEntry{}, fmt.Errorf("decode log key %x: %w", item.Key(), err)
	}
	return e, nil
}
