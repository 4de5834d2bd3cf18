// Package store holds the client-side data layer: three caches over the
// portal's remote entities (session, tenders, applications). Views read
// snapshots through accessors and mutate exclusively through store
// operations; each store guards its state with one mutex so a transition
// is never partially visible.
//
// Fetches that can overlap are protected by per-view generation counters:
// a counter is bumped when a fetch starts and the captured value is
// compared when the response lands. A response whose generation is no
// longer current was superseded by a newer fetch for the same view and is
// discarded whole, success or failure.
package store

import (
	"context"

	"github.com/procurehub/portal-client/internal/domain/account"
	"github.com/procurehub/portal-client/internal/domain/application"
	"github.com/procurehub/portal-client/internal/domain/tender"
)

// AuthAPI is the slice of the transport the session store consumes.
type AuthAPI interface {
	Login(ctx context.Context, creds account.Credentials) (account.AuthResponse, error)
	Register(ctx context.Context, reg account.Registration) (account.AuthResponse, error)
	Me(ctx context.Context) (account.User, error)
	UpdateMe(ctx context.Context, patch account.ProfileUpdate) (account.User, error)
}

// TenderAPI is the slice of the transport the tender cache consumes.
type TenderAPI interface {
	ListTenders(ctx context.Context, filter tender.Filter) ([]tender.Tender, error)
	GetTender(ctx context.Context, id string) (tender.Tender, error)
	CreateTender(ctx context.Context, payload tender.Payload, uploads []tender.Upload) (tender.Tender, error)
	UpdateTender(ctx context.Context, id string, patch tender.Payload) (tender.Tender, error)
	DeleteTender(ctx context.Context, id string) error
}

// ApplicationAPI is the slice of the transport the application cache
// consumes.
type ApplicationAPI interface {
	MyApplications(ctx context.Context, params application.ListParams) ([]application.Application, error)
	ApplicationsByTender(ctx context.Context, tenderID string, params application.ListParams) ([]application.Application, error)
	GetApplication(ctx context.Context, id string) (application.Application, error)
	Apply(ctx context.Context, tenderID string, payload application.Payload) (application.Application, error)
	UpdateApplicationStatus(ctx context.Context, id string, status application.Status) (application.Application, error)
	WithdrawApplication(ctx context.Context, id string) (application.Application, error)
}

// generations is the per-view monotonic counter behind the freshness
// guard. Not safe on its own; callers access it under their store's mutex.
type generations map[string]uint64

// next bumps the counter for key and returns the new generation. The
// returned value identifies the fetch that is now authoritative for key.
func (g generations) next(key string) uint64 {
	g[key]++
	return g[key]
}

// current reports whether gen is still the latest generation for key.
func (g generations) current(key string, gen uint64) bool {
	return g[key] == gen
}
