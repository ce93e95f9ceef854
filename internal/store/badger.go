// Today Watch - Local Video Recommendation and Queue Planning
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/todaywatch

package store

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/tomtom215/todaywatch/internal/models"
	"github.com/tomtom215/todaywatch/internal/todaywatch"
)

// Key layout in BadgerDB
const (
	creatorKeyPrefix = "profile:creator:"
	feedbackKey      = "feedback:snapshot"
	settingsKey      = "settings:today_watch"
)

// BadgerStore implements Store on BadgerDB. Values are JSON encoded.
type BadgerStore struct {
	db    *badger.DB
	owned bool
}

// OpenBadgerStore opens (or creates) a BadgerDB at path. An empty path
// opens an in-memory database.
func OpenBadgerStore(path string) (*BadgerStore, error) {
	opts := badger.DefaultOptions(path)
	if path == "" {
		opts = opts.WithInMemory(true)
	}
	opts.Logger = nil // Suppress BadgerDB logs

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger db for signals: %w", err)
	}
	return &BadgerStore{db: db, owned: true}, nil
}

// NewBadgerStoreFromDB wraps an existing connection. Close leaves it open.
func NewBadgerStoreFromDB(db *badger.DB) *BadgerStore {
	return &BadgerStore{db: db}
}

func (s *BadgerStore) Profiles() ProfileStore  { return badgerProfiles{s.db} }
func (s *BadgerStore) Feedback() FeedbackStore { return badgerFeedback{s.db} }
func (s *BadgerStore) Settings() SettingsStore { return badgerSettings{s.db} }

// Close closes the database if OpenBadgerStore opened it.
func (s *BadgerStore) Close() error {
	if s.owned && s.db != nil {
		return s.db.Close()
	}
	return nil
}

type badgerProfiles struct{ db *badger.DB }

func creatorKey(creatorID int64) []byte {
	return []byte(creatorKeyPrefix + strconv.FormatInt(creatorID, 10))
}

func (p badgerProfiles) RecordWatchProgress(ctx context.Context, creatorID int64, name string, deltaSec int64) error {
	if creatorID <= 0 || deltaSec <= 0 {
		return nil
	}
	return p.db.Update(func(txn *badger.Txn) error {
		key := creatorKey(creatorID)
		sig := todaywatch.CreatorSignal{CreatorID: creatorID}

		item, err := txn.Get(key)
		switch {
		case errors.Is(err, badger.ErrKeyNotFound):
		case err != nil:
			return fmt.Errorf("get creator signal: %w", err)
		default:
			err = item.Value(func(val []byte) error {
				return json.Unmarshal(val, &sig)
			})
			if err != nil {
				return fmt.Errorf("unmarshal creator signal: %w", err)
			}
		}

		data, err := json.Marshal(applyProgress(sig, name, deltaSec))
		if err != nil {
			return fmt.Errorf("marshal creator signal: %w", err)
		}
		return txn.Set(key, data)
	})
}

func (p badgerProfiles) CreatorSignals(ctx context.Context, limit int) ([]todaywatch.CreatorSignal, error) {
	var signals []todaywatch.CreatorSignal

	err := p.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = true
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(creatorKeyPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var sig todaywatch.CreatorSignal
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &sig)
			})
			if err != nil {
				continue // Skip corrupt entries
			}
			signals = append(signals, sig)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list creator signals: %w", err)
	}

	return sortSignals(signals, limit), nil
}

func (p badgerProfiles) Clear(ctx context.Context) error {
	if err := p.db.DropPrefix([]byte(creatorKeyPrefix)); err != nil {
		return fmt.Errorf("clear creator signals: %w", err)
	}
	return nil
}

type badgerFeedback struct{ db *badger.DB }

func (f badgerFeedback) Snapshot(ctx context.Context) (models.FeedbackSnapshot, error) {
	var snapshot models.FeedbackSnapshot
	err := f.db.View(func(txn *badger.Txn) error {
		return getJSON(txn, []byte(feedbackKey), &snapshot)
	})
	if err != nil {
		return models.FeedbackSnapshot{}, fmt.Errorf("load feedback: %w", err)
	}
	return snapshot, nil
}

func (f badgerFeedback) RecordDislike(ctx context.Context, contentID string, creatorID int64, keywords []string) error {
	return f.db.Update(func(txn *badger.Txn) error {
		var snapshot models.FeedbackSnapshot
		if err := getJSON(txn, []byte(feedbackKey), &snapshot); err != nil {
			return fmt.Errorf("load feedback: %w", err)
		}
		snapshot.AddDislike(contentID, creatorID, keywords)
		snapshot.UpdatedAt = time.Now()

		data, err := json.Marshal(&snapshot)
		if err != nil {
			return fmt.Errorf("marshal feedback: %w", err)
		}
		return txn.Set([]byte(feedbackKey), data)
	})
}

func (f badgerFeedback) Clear(ctx context.Context) error {
	return f.db.Update(func(txn *badger.Txn) error {
		if err := txn.Delete([]byte(feedbackKey)); err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("delete feedback: %w", err)
		}
		return nil
	})
}

type badgerSettings struct{ db *badger.DB }

func (s badgerSettings) Load(ctx context.Context) (models.Settings, error) {
	settings := models.DefaultSettings()
	err := s.db.View(func(txn *badger.Txn) error {
		return getJSON(txn, []byte(settingsKey), &settings)
	})
	if err != nil {
		return models.DefaultSettings(), fmt.Errorf("load settings: %w", err)
	}
	return settings.Normalize(), nil
}

func (s badgerSettings) Save(ctx context.Context, settings models.Settings) error {
	data, err := json.Marshal(settings.Normalize())
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(settingsKey), data)
	})
}

// getJSON decodes the value at key into dst. A missing key leaves dst untouched.
func getJSON(txn *badger.Txn, key []byte, dst interface{}) error {
	item, err := txn.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	return item.Value(func(val []byte) error {
		return json.Unmarshal(val, dst)
	})
}
