// Package store persists the read/unread ID sets for notifications and
// announcements in an embedded Pebble database, keyed by identity so the sets
// survive reloads and identity switches independently.
package store

import (
	"errors"
	"fmt"

	"github.com/cockroachdb/pebble"
	"go.uber.org/zap"
)

// Kinds namespace the read sets.
const (
	KindNotification = "notification"
	KindAnnouncement = "announcement"
)

type ReadState struct {
	db  *pebble.DB
	log *zap.Logger
}

// Open opens (or creates) the read-state database at path.
func Open(path string, log *zap.Logger) (*ReadState, error) {
	db, err := pebble.Open(path, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("open read-state db: %w", err)
	}
	log.Info("read-state store opened", zap.String("path", path))
	return &ReadState{db: db, log: log.Named("readstate")}, nil
}

func (s *ReadState) Close() error {
	return s.db.Close()
}

// MarkRead records the given IDs as read for an identity.
func (s *ReadState) MarkRead(identity, kind string, ids ...string) error {
	batch := s.db.NewBatch()
	defer batch.Close()
	for _, id := range ids {
		if err := batch.Set(key(identity, kind, id), nil, nil); err != nil {
			return fmt.Errorf("set read marker: %w", err)
		}
	}
	if err := batch.Commit(pebble.Sync); err != nil {
		return fmt.Errorf("commit read markers: %w", err)
	}
	return nil
}

// IsRead reports whether the ID has been marked read for the identity.
func (s *ReadState) IsRead(identity, kind, id string) (bool, error) {
	_, closer, err := s.db.Get(key(identity, kind, id))
	if errors.Is(err, pebble.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("get read marker: %w", err)
	}
	closer.Close()
	return true, nil
}

// ReadIDs lists every ID marked read for an identity and kind.
func (s *ReadState) ReadIDs(identity, kind string) ([]string, error) {
	prefix := key(identity, kind, "")
	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: prefix,
		UpperBound: upperBound(prefix),
	})
	if err != nil {
		return nil, fmt.Errorf("iterate read markers: %w", err)
	}
	defer iter.Close()

	var ids []string
	for iter.First(); iter.Valid(); iter.Next() {
		ids = append(ids, string(iter.Key()[len(prefix):]))
	}
	if err := iter.Error(); err != nil {
		return nil, fmt.Errorf("iterate read markers: %w", err)
	}
	return ids, nil
}

func key(identity, kind, id string) []byte {
	return []byte(fmt.Sprintf("read:%s:%s:%s", identity, kind, id))
}

// upperBound returns the smallest key greater than every key with the prefix.
func upperBound(prefix []byte) []byte {
	end := append([]byte(nil), prefix...)
	for i := len(end) - 1; i >= 0; i-- {
		if end[i] < 0xff {
			end[i]++
			return end[:i+1]
		}
	}
	return nil
}
