package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/houhousishu/houhou/internal/failover"
	"github.com/houhousishu/houhou/internal/remote"
	"github.com/houhousishu/houhou/internal/storage"
)

// LocalStore defines the storage operations the facade needs.
// Implemented by storage.Store.
type LocalStore interface {
	GetAll(ctx context.Context, c storage.Collection) ([]json.RawMessage, error)
	Get(ctx context.Context, c storage.Collection, id string) (json.RawMessage, error)
	Put(ctx context.Context, c storage.Collection, id string, record any) error
	Remove(ctx context.Context, c storage.Collection, id string) error
}

// RemoteCaller performs one request against the remote API.
// Implemented by remote.Client.
type RemoteCaller interface {
	Call(ctx context.Context, method, endpoint string, body any) remote.Outcome
}

// Collection routes list/create/seed for one kind of record between the
// remote API and the local store. Remote successes are not copied locally.
type Collection[T Record] struct {
	name     storage.Collection
	endpoint string
	store    LocalStore
	remote   RemoteCaller
	router   *failover.Router
	logger   *slog.Logger

	// normalize is applied to each default before seeding.
	normalize func(T) T
}

// List returns every record from whichever backend is active.
func (c *Collection[T]) List(ctx context.Context) ([]T, error) {
	return failover.Do(ctx, c.router,
		func(ctx context.Context) remote.Outcome {
			return c.remote.Call(ctx, http.MethodGet, c.endpoint, nil)
		},
		func(out remote.Outcome) ([]T, error) {
			var items []T
			if err := out.Decode(&items); err != nil {
				return nil, fmt.Errorf("listing %s: %w", c.name, err)
			}
			if items == nil {
				items = []T{}
			}
			return items, nil
		},
		c.listLocal,
	)
}

func (c *Collection[T]) listLocal(ctx context.Context) ([]T, error) {
	raws, err := c.store.GetAll(ctx, c.name)
	if err != nil {
		return nil, err
	}
	items := make([]T, 0, len(raws))
	for _, raw := range raws {
		var item T
		if err := json.Unmarshal(raw, &item); err != nil {
			return nil, fmt.Errorf("decoding stored %s record: %w", c.name, err)
		}
		items = append(items, item)
	}
	return items, nil
}

// Create stores item on the active backend and returns the stored record.
// The remote may assign the id; the local store requires one.
func (c *Collection[T]) Create(ctx context.Context, item T) (T, error) {
	return failover.Do(ctx, c.router,
		func(ctx context.Context) remote.Outcome {
			return c.remote.Call(ctx, http.MethodPost, c.endpoint, item)
		},
		func(out remote.Outcome) (T, error) {
			var created T
			if err := out.Decode(&created); err != nil {
				return created, fmt.Errorf("creating %s record: %w", c.name, err)
			}
			return created, nil
		},
		func(ctx context.Context) (T, error) {
			if item.RecordID() == "" {
				var zero T
				return zero, ErrMissingID
			}
			if err := c.store.Put(ctx, c.name, item.RecordID(), item); err != nil {
				var zero T
				return zero, err
			}
			return item, nil
		},
	)
}

// Seed creates defaults, in order, only if the active backend's collection
// is empty. It returns how many records were created; a failure stops
// seeding and leaves the records created so far in place.
//
// The check and the writes are separate calls, so two concurrent first-run
// seeds can both see an empty collection.
func (c *Collection[T]) Seed(ctx context.Context, defaults []T) (int, error) {
	existing, err := c.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("checking %s before seeding: %w", c.name, err)
	}
	if len(existing) > 0 {
		return 0, nil
	}

	c.logger.Info("seeding default content", "collection", string(c.name), "count", len(defaults), "backend", backendName(c.router.State()))
	for i, item := range defaults {
		if c.normalize != nil {
			item = c.normalize(item)
		}
		if _, err := c.Create(ctx, item); err != nil {
			return i, fmt.Errorf("seeding %s record %q: %w", c.name, item.RecordID(), err)
		}
	}
	return len(defaults), nil
}

func backendName(s failover.State) string {
	if s == failover.Demoted {
		return "local"
	}
	return "remote"
}
