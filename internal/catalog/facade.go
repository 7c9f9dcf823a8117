// Package catalog is the content access layer of the site: services,
// resources and the login session, served by the remote API while it is
// reachable and by the local store after it is not.
package catalog

import (
	"log/slog"

	"github.com/houhousishu/houhou/internal/failover"
	"github.com/houhousishu/houhou/internal/storage"
)

// DefaultIconType is used for services that do not name an icon.
const DefaultIconType = "Palette"

// Deps holds the collaborators of a Facade.
type Deps struct {
	Store  LocalStore
	Remote RemoteCaller
	Router *failover.Router // optional; a fresh Normal router when nil

	// LocalAuth verifies credentials while demoted. NoLocalAuth when nil.
	LocalAuth LocalAuthenticator
	Logger    *slog.Logger
}

// Facade is the only surface the rest of the site calls.
type Facade struct {
	Services  *Collection[Service]
	Resources *Collection[Resource]
	Auth      *Auth

	router *failover.Router
}

// New wires a Facade. Every collection and Auth share one router, so a
// demotion seen by any of them applies to all.
func New(d Deps) *Facade {
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}
	router := d.Router
	if router == nil {
		router = failover.NewRouter(failover.WithLogger(logger))
	}
	local := d.LocalAuth
	if local == nil {
		local = NoLocalAuth{}
	}

	return &Facade{
		Services: &Collection[Service]{
			name:      storage.Services,
			endpoint:  "/services",
			store:     d.Store,
			remote:    d.Remote,
			router:    router,
			logger:    logger,
			normalize: normalizeService,
		},
		Resources: &Collection[Resource]{
			name:     storage.Resources,
			endpoint: "/resources",
			store:    d.Store,
			remote:   d.Remote,
			router:   router,
			logger:   logger,
		},
		Auth: &Auth{
			store:  d.Store,
			remote: d.Remote,
			router: router,
			local:  local,
			logger: logger,
		},
		router: router,
	}
}

// Router returns the shared routing state.
func (f *Facade) Router() *failover.Router {
	return f.router
}

// Backend names the backend that will answer the next call: "remote" or "local".
func (f *Facade) Backend() string {
	return backendName(f.router.State())
}

func normalizeService(s Service) Service {
	if s.IconType == "" {
		s.IconType = DefaultIconType
	}
	return s
}
