// Package store persists scene snapshots.
package store

import (
	"github.com/mosaicnetworks/scenegraph/src/snapshot"
)

// SceneKey is the key the engine saves the scene under.
const SceneKey = "scene"

// Store holds snapshots by key.
type Store interface {
	SaveSnapshot(key string, s snapshot.Snapshot) error
	LoadSnapshot(key string) (snapshot.Snapshot, error)
	Keys() ([]string, error)
	StorePath() string
	Close() error
}
