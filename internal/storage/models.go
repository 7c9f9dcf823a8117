package storage

import "errors"

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// ErrStorageUnavailable is returned when the local database cannot be opened
// or provisioned. Nothing sits beneath the local store, so callers surface it.
var ErrStorageUnavailable = errors.New("storage unavailable")

// ErrUnknownCollection is returned for a collection that was never provisioned.
var ErrUnknownCollection = errors.New("unknown collection")

// Collection names a provisioned table.
type Collection string

const (
	Services  Collection = "services"
	Resources Collection = "resources"
	Auth      Collection = "auth"
)

// Collections lists every collection created by the migrations.
var Collections = []Collection{Services, Resources, Auth}

func (c Collection) valid() bool {
	for _, known := range Collections {
		if c == known {
			return true
		}
	}
	return false
}
