package store

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/procurehub/portal-client/internal/domain/application"
	"github.com/procurehub/portal-client/internal/domain/errors"
	"github.com/procurehub/portal-client/internal/metrics"
)

const (
	mineView    = "applications_mine"
	currentView = "applications_current"
)

func tenderView(tenderID string) string {
	return "applications_tender:" + tenderID
}

// ApplicationCache owns every cached view over the application entity.
// Rows live once in an entity table keyed by normalized id; the views
// (mine, per-tender, current) are id references into that table, so a
// confirmed status mutation touches one row and every view holding the
// application observes it without a refetch.
//
// Each view fetch runs under its own generation guard; per-tender views
// are guarded per tender id, so loading applications for one tender never
// interferes with a concurrent load for another.
type ApplicationCache struct {
	api     ApplicationAPI
	logger  *zap.Logger
	metrics *metrics.Registry

	mu       sync.RWMutex
	gens     generations
	entities map[string]application.Application
	mine     []string
	byTender map[string][]string
	current  string

	loadingMine     bool
	loadingByTender map[string]bool
	loadingCurrent  bool
	updating        bool
	lastErr         error
}

// NewApplicationCache creates an empty application cache. The metrics
// registry may be nil.
func NewApplicationCache(api ApplicationAPI, logger *zap.Logger, reg *metrics.Registry) *ApplicationCache {
	return &ApplicationCache{
		api:             api,
		logger:          logger,
		metrics:         reg,
		gens:            generations{},
		entities:        map[string]application.Application{},
		byTender:        map[string][]string{},
		loadingByTender: map[string]bool{},
	}
}

// FetchMine loads the current bidder's own applications, replacing the
// mine view. Superseded responses are discarded whole.
func (c *ApplicationCache) FetchMine(ctx context.Context, params application.ListParams) error {
	c.mu.Lock()
	gen := c.gens.next(mineView)
	c.loadingMine = true
	c.mu.Unlock()

	start := time.Now()
	list, err := c.api.MyApplications(ctx, params)
	elapsed := float64(time.Since(start)) / float64(time.Millisecond)

	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.gens.current(mineView, gen) {
		c.metrics.RecordStaleDrop(ctx, mineView)
		c.logger.Debug("discarding superseded fetch", zap.String("view", mineView), zap.Uint64("generation", gen))
		return nil
	}
	c.loadingMine = false
	c.metrics.RecordFetch(ctx, mineView, elapsed, err)

	if err != nil {
		c.lastErr = err
		return err
	}

	c.mine = c.storeAll(list)
	c.lastErr = nil
	c.publishSizes()
	return nil
}

// FetchByTender loads the applications received for one tender,
// replacing only that tender's view and leaving every other tender's
// cached view untouched.
func (c *ApplicationCache) FetchByTender(ctx context.Context, tenderID string, params application.ListParams) error {
	view := tenderView(tenderID)

	c.mu.Lock()
	gen := c.gens.next(view)
	c.loadingByTender[tenderID] = true
	c.mu.Unlock()

	start := time.Now()
	list, err := c.api.ApplicationsByTender(ctx, tenderID, params)
	elapsed := float64(time.Since(start)) / float64(time.Millisecond)

	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.gens.current(view, gen) {
		c.metrics.RecordStaleDrop(ctx, view)
		c.logger.Debug("discarding superseded fetch", zap.String("view", view), zap.Uint64("generation", gen))
		return nil
	}
	delete(c.loadingByTender, tenderID)
	c.metrics.RecordFetch(ctx, view, elapsed, err)

	if err != nil {
		c.lastErr = err
		return err
	}

	c.byTender[tenderID] = c.storeAll(list)
	c.lastErr = nil
	c.publishSizes()
	return nil
}

// FetchByID loads a single application into the current slot.
func (c *ApplicationCache) FetchByID(ctx context.Context, id string) error {
	c.mu.Lock()
	gen := c.gens.next(currentView)
	c.loadingCurrent = true
	c.mu.Unlock()

	start := time.Now()
	app, err := c.api.GetApplication(ctx, id)
	elapsed := float64(time.Since(start)) / float64(time.Millisecond)

	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.gens.current(currentView, gen) {
		c.metrics.RecordStaleDrop(ctx, currentView)
		return nil
	}
	c.loadingCurrent = false
	c.metrics.RecordFetch(ctx, currentView, elapsed, err)

	if err != nil {
		c.lastErr = err
		return err
	}

	c.current = c.store(app)
	c.lastErr = nil
	c.publishSizes()
	return nil
}

// Apply submits a bid against a tender. The confirmed application is
// stored and prepended to the mine view, and appended to the tender's
// view when that view is already cached.
func (c *ApplicationCache) Apply(ctx context.Context, tenderID string, draft application.Draft) (application.Application, error) {
	if err := draft.Validate(); err != nil {
		c.setError(err)
		return application.Application{}, err
	}
	payload, err := draft.Normalize()
	if err != nil {
		c.setError(err)
		return application.Application{}, err
	}

	created, err := c.api.Apply(ctx, tenderID, payload)
	c.metrics.RecordMutation(ctx, "apply", err)
	if err != nil {
		c.setError(err)
		return application.Application{}, err
	}

	c.mu.Lock()
	id := c.store(created)
	c.mine = append([]string{id}, removeID(c.mine, id)...)
	if refs, ok := c.byTender[tenderID]; ok {
		c.byTender[tenderID] = append(removeID(refs, id), id)
	}
	stored := c.entities[id]
	c.lastErr = nil
	c.publishSizes()
	c.mu.Unlock()

	c.logger.Info("application submitted",
		zap.String("application_id", id),
		zap.String("tender_id", tenderID))
	return stored, nil
}

// UpdateStatus sends the status mutation and, on confirmation, patches
// the one authoritative row, which every view referencing the
// application observes at once. The coarse updating flag covers all
// views for the duration of the call.
func (c *ApplicationCache) UpdateStatus(ctx context.Context, id string, status application.Status) (application.Application, error) {
	return c.mutate(ctx, id, "status_update", func() (application.Application, error) {
		return c.api.UpdateApplicationStatus(ctx, id, status)
	})
}

// Withdraw is the bidder-side status mutation; it shares UpdateStatus's
// fan-out semantics.
func (c *ApplicationCache) Withdraw(ctx context.Context, id string) (application.Application, error) {
	return c.mutate(ctx, id, "withdraw", func() (application.Application, error) {
		return c.api.WithdrawApplication(ctx, id)
	})
}

func (c *ApplicationCache) mutate(ctx context.Context, id, operation string, call func() (application.Application, error)) (application.Application, error) {
	c.mu.Lock()
	c.updating = true
	c.mu.Unlock()

	updated, err := call()
	c.metrics.RecordMutation(ctx, operation, err)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.updating = false

	if err != nil {
		c.lastErr = err
		return application.Application{}, err
	}

	stored := c.patch(ctx, id, updated)
	c.lastErr = nil

	c.logger.Info("application mutated",
		zap.String("operation", operation),
		zap.String("application_id", stored.ID),
		zap.String("status", stored.Status.String()))
	return stored, nil
}

// patch merges the server's confirmed response onto the authoritative
// row. Called with the mutex held. A server that answers with a partial
// body keeps the fields the cache already knows.
func (c *ApplicationCache) patch(ctx context.Context, requestedID string, updated application.Application) application.Application {
	updated = updated.Normalize()
	id := updated.ID
	if id == "" {
		id = requestedID
	}

	row, known := c.entities[id]
	if !known && requestedID != "" && requestedID != id {
		// the server may answer under the other identity field
		if existing, ok := c.entities[requestedID]; ok {
			row, known, id = existing, true, requestedID
		}
	}

	if known {
		row = mergeApplication(row, updated)
	} else {
		row = updated
		row.ID = id
	}
	c.entities[id] = row

	c.metrics.RecordFanout(ctx, c.referenceCount(id))
	return row
}

// referenceCount counts the view rows observing id. Called with the
// mutex held.
func (c *ApplicationCache) referenceCount(id string) int {
	n := 0
	for _, ref := range c.mine {
		if ref == id {
			n++
		}
	}
	for _, refs := range c.byTender {
		for _, ref := range refs {
			if ref == id {
				n++
			}
		}
	}
	if c.current == id {
		n++
	}
	return n
}

// mergeApplication overlays the populated fields of the server response
// onto the cached row. Status always wins; empty response fields keep
// the cached values.
func mergeApplication(row, updated application.Application) application.Application {
	if updated.Status != "" {
		row.Status = updated.Status
	}
	if updated.Tender != nil {
		row.Tender = updated.Tender
	}
	if updated.Bidder.ID != "" || updated.Bidder.Name != "" {
		row.Bidder = updated.Bidder
	}
	if !updated.Amount.IsZero() {
		row.Amount = updated.Amount
	}
	if !updated.SubmittedAt.IsZero() {
		row.SubmittedAt = updated.SubmittedAt
	}
	if updated.Message != "" {
		row.Message = updated.Message
	}
	if updated.Feedback != "" {
		row.Feedback = updated.Feedback
	}
	if len(updated.Files) > 0 {
		row.Files = updated.Files
	}
	if updated.AltID != "" {
		row.AltID = updated.AltID
	}
	return row
}

// store normalizes one application into the entity table and returns its
// id. Called with the mutex held.
func (c *ApplicationCache) store(app application.Application) string {
	app = app.Normalize()
	c.entities[app.ID] = app
	return app.ID
}

// storeAll stores a fetched list and returns the view's id references in
// response order. Called with the mutex held.
func (c *ApplicationCache) storeAll(list []application.Application) []string {
	refs := make([]string, 0, len(list))
	for _, app := range list {
		refs = append(refs, c.store(app))
	}
	return refs
}

func removeID(refs []string, id string) []string {
	out := refs[:0]
	for _, ref := range refs {
		if ref != id {
			out = append(out, ref)
		}
	}
	return out
}

// Mine returns the bidder's own applications in fetch order.
func (c *ApplicationCache) Mine() []application.Application {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.resolve(c.mine)
}

// ByTender returns the cached applications received for one tender. The
// second result reports whether that view has been loaded.
func (c *ApplicationCache) ByTender(tenderID string) ([]application.Application, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	refs, ok := c.byTender[tenderID]
	if !ok {
		return nil, false
	}
	return c.resolve(refs), true
}

// Current returns the application in the current slot, if any.
func (c *ApplicationCache) Current() (application.Application, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.current == "" {
		return application.Application{}, false
	}
	app, ok := c.entities[c.current]
	return app, ok
}

// ClearCurrent empties the current slot.
func (c *ApplicationCache) ClearCurrent() {
	c.mu.Lock()
	c.current = ""
	c.mu.Unlock()
}

// resolve materializes a view from the entity table. Called with the
// mutex held.
func (c *ApplicationCache) resolve(refs []string) []application.Application {
	out := make([]application.Application, 0, len(refs))
	for _, id := range refs {
		if app, ok := c.entities[id]; ok {
			out = append(out, app)
		}
	}
	return out
}

// LoadingMine reports whether a mine fetch is in flight.
func (c *ApplicationCache) LoadingMine() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.loadingMine
}

// LoadingByTender reports whether a fetch for one tender's view is in
// flight.
func (c *ApplicationCache) LoadingByTender(tenderID string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.loadingByTender[tenderID]
}

// LoadingCurrent reports whether a single-application fetch is in flight.
func (c *ApplicationCache) LoadingCurrent() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.loadingCurrent
}

// Updating reports whether a status mutation is in flight. One flag
// covers all views.
func (c *ApplicationCache) Updating() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.updating
}

// ErrorMessage returns the human-readable message for the last failure,
// or "" when the last operation succeeded.
func (c *ApplicationCache) ErrorMessage() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.lastErr == nil {
		return ""
	}
	return errors.UserMessage(c.lastErr)
}

// ClearError dismisses the last recorded failure.
func (c *ApplicationCache) ClearError() {
	c.mu.Lock()
	c.lastErr = nil
	c.mu.Unlock()
}

func (c *ApplicationCache) setError(err error) {
	c.mu.Lock()
	c.lastErr = err
	c.mu.Unlock()
}

// publishSizes is called with the mutex held.
func (c *ApplicationCache) publishSizes() {
	c.metrics.SetApplicationCounts(len(c.entities), len(c.byTender))
}
