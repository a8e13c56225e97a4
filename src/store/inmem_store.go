package store

import (
	"sort"
	"sync"

	cm "github.com/mosaicnetworks/scenegraph/src/common"
	"github.com/mosaicnetworks/scenegraph/src/snapshot"
)

// InmemStore keeps encoded snapshots in memory. Loading returns a fresh copy.
type InmemStore struct {
	sync.RWMutex
	codec     snapshot.Codec
	snapshots map[string][]byte
	closed    bool
}

// NewInmemStore ...
func NewInmemStore(codec snapshot.Codec) *InmemStore {
	return &InmemStore{
		codec:     codec,
		snapshots: make(map[string][]byte),
	}
}

// SaveSnapshot implements Store.
func (s *InmemStore) SaveSnapshot(key string, snap snapshot.Snapshot) error {
	data, err := s.codec.Marshal(snap)
	if err != nil {
		return err
	}

	s.Lock()
	defer s.Unlock()

	if s.closed {
		return cm.NewStoreErr("Snapshot", cm.StoreClosed, key)
	}
	s.snapshots[key] = data
	return nil
}

// LoadSnapshot implements Store.
func (s *InmemStore) LoadSnapshot(key string) (snapshot.Snapshot, error) {
	s.RLock()
	data, ok := s.snapshots[key]
	closed := s.closed
	s.RUnlock()

	if closed {
		return nil, cm.NewStoreErr("Snapshot", cm.StoreClosed, key)
	}
	if !ok {
		return nil, cm.NewStoreErr("Snapshot", cm.KeyNotFound, key)
	}

	res := make(snapshot.Snapshot)
	if err := s.codec.Unmarshal(data, &res); err != nil {
		return nil, err
	}
	return res, nil
}

// Keys implements Store.
func (s *InmemStore) Keys() ([]string, error) {
	s.RLock()
	defer s.RUnlock()

	res := make([]string, 0, len(s.snapshots))
	for k := range s.snapshots {
		res = append(res, k)
	}
	sort.Strings(res)
	return res, nil
}

// StorePath implements Store.
func (s *InmemStore) StorePath() string {
	return ""
}

// Close implements Store.
func (s *InmemStore) Close() error {
	s.Lock()
	defer s.Unlock()
	s.closed = true
	return nil
}
