package database

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	bolt "go.etcd.io/bbolt"

	"github.com/go-sod/bandsense/internal/database"
	"github.com/go-sod/bandsense/internal/example/model"
)

const (
	sessionKeys = "session:keys:"
	prefix      = "example:"
)

type FilterFn func(example model.Example) bool

func New(db *database.DB) *DB {
	return &DB{sDB: db}
}

type DB struct {
	sDB *database.DB
}

// Sessions returns the ids of every session that stored examples.
func (db *DB) Sessions() ([]string, error) {
	var keys []string
	err := db.sDB.DB.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(sessionKeys))
		if b == nil {
			return nil
		}
		c := b.Cursor()
		for k, _ := c.First(); k != nil; k, _ = c.Next() {
			keys = append(keys, string(k))
		}
		return nil
	})

	return keys, err
}

func (db *DB) AppendMany(_ context.Context, examples []model.Example) error {
	if len(examples) == 0 {
		return nil
	}
	if err := db.sDB.DB.Batch(func(tx *bolt.Tx) error {
		keys, err := tx.CreateBucketIfNotExists([]byte(sessionKeys))
		if err != nil {
			return fmt.Errorf("unable create sessions bucket: %w", err)
		}
		for _, example := range examples {
			b, err := tx.CreateBucketIfNotExists([]byte(prefix + example.SessionID))
			if err != nil {
				return fmt.Errorf("create bucket: %w", err)
			}
			bytes, err := json.Marshal(example)
			if err != nil {
				return err
			}
			if err := b.Put([]byte(example.ID.String()), bytes); err != nil {
				return fmt.Errorf("put to bucket error: %w", err)
			}
			if err := keys.Put([]byte(example.SessionID), []byte{0x0}); err != nil {
				return fmt.Errorf("unable put to sessions bucket: %w", err)
			}
		}
		return nil
	}); err != nil {
		return fmt.Errorf("update transaction error: %w", err)
	}

	return nil
}

func (db *DB) DeleteMany(_ context.Context, examples []model.Example) error {
	if err := db.sDB.DB.Batch(func(tx *bolt.Tx) error {
		for _, example := range examples {
			b := tx.Bucket([]byte(prefix + example.SessionID))
			if b == nil {
				continue
			}
			if err := b.Delete([]byte(example.ID.String())); err != nil {
				return fmt.Errorf("unable delete: %w", err)
			}
		}
		return nil
	}); err != nil {
		return fmt.Errorf("update transaction error: %w", err)
	}

	return nil
}

// DeleteSession drops every example of the session.
func (db *DB) DeleteSession(_ context.Context, sessionID string) error {
	if err := db.sDB.DB.Update(func(tx *bolt.Tx) error {
		if tx.Bucket([]byte(prefix+sessionID)) != nil {
			if err := tx.DeleteBucket([]byte(prefix + sessionID)); err != nil {
				return fmt.Errorf("unable delete bucket: %w", err)
			}
		}
		if keys := tx.Bucket([]byte(sessionKeys)); keys != nil {
			return keys.Delete([]byte(sessionID))
		}
		return nil
	}); err != nil {
		return fmt.Errorf("update transaction error: %w", err)
	}

	return nil
}

// FindBySession returns the examples of a session ordered by creation time.
func (db *DB) FindBySession(_ context.Context, sessionID string, filter FilterFn) ([]model.Example, error) {
	var list []model.Example
	if err := db.sDB.DB.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(prefix + sessionID))
		if b == nil {
			return nil
		}
		c := b.Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			var example model.Example
			if err := json.Unmarshal(v, &example); err != nil {
				return fmt.Errorf("json unmarshal error, %q", err)
			}
			if filter == nil || filter(example) {
				list = append(list, example)
			}
		}
		return nil
	}); err != nil {
		return nil, fmt.Errorf("view transaction error: %w", err)
	}

	sort.SliceStable(list, func(i, j int) bool {
		return list[i].CreatedAt.Before(list[j].CreatedAt)
	})

	return list, nil
}

func (db *DB) CountBySession(sessionID string) (int, error) {
	var length int
	if err := db.sDB.DB.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(prefix + sessionID))
		if b == nil {
			return nil
		}
		length = b.Stats().KeyN
		return nil
	}); err != nil {
		return 0, fmt.Errorf("view transaction error: %w", err)
	}

	return length, nil
}
