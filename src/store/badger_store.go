package store

import (
	"fmt"
	"strings"

	"github.com/dgraph-io/badger"
	"github.com/sirupsen/logrus"

	cm "github.com/mosaicnetworks/scenegraph/src/common"
	"github.com/mosaicnetworks/scenegraph/src/snapshot"
)

const snapshotPrefix = "snapshot"

// BadgerStore keeps encoded snapshots in a Badger database.
type BadgerStore struct {
	db     *badger.DB
	path   string
	codec  snapshot.Codec
	logger *logrus.Entry
}

// NewBadgerStore opens an existing database or creates a new one if nothing is
// found in path.
func NewBadgerStore(path string, codec snapshot.Codec, logger *logrus.Entry) (*BadgerStore, error) {
	opts := badger.DefaultOptions(path).
		WithSyncWrites(false).
		WithTruncate(true)

	if logger != nil {
		sub := logger.WithFields(logrus.Fields{"ns": "badger"})
		opts = opts.WithLogger(sub)
	} else {
		logger = logrus.NewEntry(logrus.New())
	}

	handle, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}

	return &BadgerStore{
		db:     handle,
		path:   path,
		codec:  codec,
		logger: logger,
	}, nil
}

/*******************************************************************************
Keys
*******************************************************************************/

func snapshotKey(key string) []byte {
	return []byte(fmt.Sprintf("%s_%s", snapshotPrefix, key))
}

/*******************************************************************************
Store
*******************************************************************************/

// SaveSnapshot implements Store.
func (s *BadgerStore) SaveSnapshot(key string, snap snapshot.Snapshot) error {
	val, err := s.codec.Marshal(snap)
	if err != nil {
		return err
	}

	tx := s.db.NewTransaction(true)
	defer tx.Discard()

	if err := tx.Set(snapshotKey(key), val); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	s.logger.WithFields(logrus.Fields{
		"key":   key,
		"bytes": len(val),
	}).Debug("Snapshot saved")

	return nil
}

// LoadSnapshot implements Store.
func (s *BadgerStore) LoadSnapshot(key string) (snapshot.Snapshot, error) {
	var data []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(snapshotKey(key))
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})

	if err != nil {
		if err == badger.ErrKeyNotFound {
			return nil, cm.NewStoreErr("Snapshot", cm.KeyNotFound, key)
		}
		return nil, err
	}

	res := make(snapshot.Snapshot)
	if err := s.codec.Unmarshal(data, &res); err != nil {
		return nil, err
	}
	return res, nil
}

// Keys implements Store.
func (s *BadgerStore) Keys() ([]string, error) {
	var res []string
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(snapshotPrefix + "_")
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			k := string(it.Item().Key())
			res = append(res, strings.TrimPrefix(k, string(prefix)))
		}
		return nil
	})
	return res, err
}

// StorePath returns the full path of the underlying Badger database directory.
func (s *BadgerStore) StorePath() string {
	return s.path
}

// Close implements Store.
func (s *BadgerStore) Close() error {
	return s.db.Close()
}
