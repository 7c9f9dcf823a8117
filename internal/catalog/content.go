package catalog

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// DefaultAuthor is credited on resources submitted without an author.
const DefaultAuthor = "厚厚小編"

// Clock abstracts time for testability.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// Content keeps the last listed services and resources for rendering and
// refreshes them on demand. It seeds defaults before every refresh, which
// is a no-op once a backend holds content.
type Content struct {
	facade *Facade
	clock  Clock
	newID  func() string

	mu          sync.RWMutex
	services    []Service
	resources   []Resource
	refreshedAt time.Time
}

// NewContent creates an empty cache over f.
func NewContent(f *Facade) *Content {
	return &Content{
		facade: f,
		clock:  realClock{},
		newID:  func() string { return uuid.New().String() },
	}
}

// NewContentWithClock creates a cache with a custom clock and id source (for testing).
func NewContentWithClock(f *Facade, clock Clock, newID func() string) *Content {
	return &Content{facade: f, clock: clock, newID: newID}
}

// Refresh seeds both collections if empty, then lists them concurrently.
// On failure the previous snapshot is kept.
func (c *Content) Refresh(ctx context.Context) error {
	if _, err := c.facade.Services.Seed(ctx, DefaultServices()); err != nil {
		return err
	}
	if _, err := c.facade.Resources.Seed(ctx, DefaultResources()); err != nil {
		return err
	}

	var services []Service
	var resources []Resource
	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		services, err = c.facade.Services.List(gCtx)
		return err
	})
	g.Go(func() error {
		var err error
		resources, err = c.facade.Resources.List(gCtx)
		return err
	})
	if err := g.Wait(); err != nil {
		return fmt.Errorf("refreshing content: %w", err)
	}

	c.mu.Lock()
	c.services = services
	c.resources = resources
	c.refreshedAt = c.clock.Now()
	c.mu.Unlock()
	return nil
}

// Services returns a copy of the cached services.
func (c *Content) Services() []Service {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Service, len(c.services))
	copy(out, c.services)
	return out
}

// Resources returns a copy of the cached resources.
func (c *Content) Resources() []Resource {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Resource, len(c.resources))
	copy(out, c.resources)
	return out
}

// LastRefreshed returns when the cache was last filled; zero if never.
func (c *Content) LastRefreshed() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.refreshedAt
}

// AddService creates a service submitted from the admin form and refreshes.
func (c *Content) AddService(ctx context.Context, s Service) (Service, error) {
	if strings.TrimSpace(s.Title) == "" {
		return Service{}, fmt.Errorf("%w: service title is required", ErrInvalidInput)
	}
	if s.ID == "" {
		s.ID = c.newID()
	}
	s = normalizeService(s)
	s.Details = nonBlank(s.Details)

	created, err := c.facade.Services.Create(ctx, s)
	if err != nil {
		return Service{}, err
	}
	return created, c.Refresh(ctx)
}

// AddResource creates an article submitted from the admin form, stamping
// id, date and a default author, and refreshes.
func (c *Content) AddResource(ctx context.Context, r Resource) (Resource, error) {
	if strings.TrimSpace(r.Title) == "" {
		return Resource{}, fmt.Errorf("%w: resource title is required", ErrInvalidInput)
	}
	if _, err := ParseCategory(string(r.Category)); err != nil {
		return Resource{}, err
	}
	if r.ID == "" {
		r.ID = c.newID()
	}
	if r.Date == "" {
		r.Date = c.clock.Now().Format("2006.01.02")
	}
	if strings.TrimSpace(r.Author) == "" {
		r.Author = DefaultAuthor
	}
	r.Content = nonBlank(r.Content)
	r.Tags = nonBlank(r.Tags)

	created, err := c.facade.Resources.Create(ctx, r)
	if err != nil {
		return Resource{}, err
	}
	return created, c.Refresh(ctx)
}

func nonBlank(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// SplitLines splits form text into one entry per non-blank line.
func SplitLines(text string) []string {
	return nonBlank(strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n"))
}

// SplitTags splits a comma separated tag list.
func SplitTags(text string) []string {
	return nonBlank(strings.Split(text, ","))
}
