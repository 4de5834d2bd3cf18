package store

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/procurehub/portal-client/internal/domain/errors"
	"github.com/procurehub/portal-client/internal/domain/tender"
	"github.com/procurehub/portal-client/internal/metrics"
)

const (
	tenderListView     = "tenders"
	tenderSelectedView = "tender_selected"
)

// TenderCache owns the tender list visible under the current filter and
// one selected tender. List fetches replace the cache wholesale and are
// freshness-guarded; mutations apply the server's confirmed response in
// place, never speculatively.
type TenderCache struct {
	api     TenderAPI
	logger  *zap.Logger
	metrics *metrics.Registry

	mu              sync.RWMutex
	gens            generations
	list            []tender.Tender
	filter          tender.Filter
	selected        tender.Tender
	hasSelected     bool
	loading         bool
	loadingSelected bool
	lastErr         error
}

// NewTenderCache creates an empty tender cache. The metrics registry may
// be nil.
func NewTenderCache(api TenderAPI, logger *zap.Logger, reg *metrics.Registry) *TenderCache {
	return &TenderCache{
		api:     api,
		logger:  logger,
		metrics: reg,
		gens:    generations{},
	}
}

// FetchTenders loads the list under the current filter, replacing the
// cached list wholesale. A fetch superseded by a newer one is discarded
// on arrival, state and error both.
func (c *TenderCache) FetchTenders(ctx context.Context) error {
	c.mu.Lock()
	gen := c.gens.next(tenderListView)
	filter := c.filter
	c.loading = true
	c.mu.Unlock()

	start := time.Now()
	list, err := c.api.ListTenders(ctx, filter)
	elapsed := float64(time.Since(start)) / float64(time.Millisecond)

	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.gens.current(tenderListView, gen) {
		c.metrics.RecordStaleDrop(ctx, tenderListView)
		c.logger.Debug("discarding superseded tender list", zap.Uint64("generation", gen))
		return nil
	}
	c.loading = false
	c.metrics.RecordFetch(ctx, tenderListView, elapsed, err)

	if err != nil {
		c.lastErr = err
		return err
	}

	normalized := make([]tender.Tender, len(list))
	for i, t := range list {
		normalized[i] = t.Normalize()
	}
	c.list = normalized
	c.lastErr = nil
	c.publishSizes()
	return nil
}

// FetchTender loads one tender into the selected slot, under its own
// freshness guard so list fetches cannot supersede it.
func (c *TenderCache) FetchTender(ctx context.Context, id string) error {
	c.mu.Lock()
	gen := c.gens.next(tenderSelectedView)
	c.loadingSelected = true
	c.mu.Unlock()

	start := time.Now()
	t, err := c.api.GetTender(ctx, id)
	elapsed := float64(time.Since(start)) / float64(time.Millisecond)

	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.gens.current(tenderSelectedView, gen) {
		c.metrics.RecordStaleDrop(ctx, tenderSelectedView)
		return nil
	}
	c.loadingSelected = false
	c.metrics.RecordFetch(ctx, tenderSelectedView, elapsed, err)

	if err != nil {
		c.lastErr = err
		return err
	}

	c.selected = t.Normalize()
	c.hasSelected = true
	c.lastErr = nil
	return nil
}

// CreateTender validates and submits a draft, multipart when uploads are
// attached. The confirmed tender is prepended to the cached list.
func (c *TenderCache) CreateTender(ctx context.Context, draft tender.Draft, uploads []tender.Upload) (tender.Tender, error) {
	if err := draft.Validate(); err != nil {
		c.setError(err)
		return tender.Tender{}, err
	}
	payload, err := draft.Normalize()
	if err != nil {
		c.setError(err)
		return tender.Tender{}, err
	}

	created, err := c.api.CreateTender(ctx, payload, uploads)
	c.metrics.RecordMutation(ctx, "tender_create", err)
	if err != nil {
		c.setError(err)
		return tender.Tender{}, err
	}
	created = created.Normalize()

	c.mu.Lock()
	c.list = append([]tender.Tender{created}, c.list...)
	c.lastErr = nil
	c.publishSizes()
	c.mu.Unlock()

	c.logger.Info("tender created", zap.String("tender_id", created.ID))
	return created, nil
}

// UpdateTender applies the server-confirmed update to the cached list and
// the selected slot in place.
func (c *TenderCache) UpdateTender(ctx context.Context, id string, patch tender.Payload) (tender.Tender, error) {
	updated, err := c.api.UpdateTender(ctx, id, patch)
	c.metrics.RecordMutation(ctx, "tender_update", err)
	if err != nil {
		c.setError(err)
		return tender.Tender{}, err
	}
	updated = updated.Normalize()

	c.mu.Lock()
	for i := range c.list {
		if c.list[i].Matches(id) || c.list[i].Matches(updated.ID) {
			c.list[i] = updated
		}
	}
	if c.hasSelected && (c.selected.Matches(id) || c.selected.Matches(updated.ID)) {
		c.selected = updated
	}
	c.lastErr = nil
	c.mu.Unlock()
	return updated, nil
}

// DeleteTender removes the tender from the cache once the server confirms
// the delete.
func (c *TenderCache) DeleteTender(ctx context.Context, id string) error {
	err := c.api.DeleteTender(ctx, id)
	c.metrics.RecordMutation(ctx, "tender_delete", err)
	if err != nil {
		c.setError(err)
		return err
	}

	c.mu.Lock()
	kept := c.list[:0]
	for _, t := range c.list {
		if !t.Matches(id) {
			kept = append(kept, t)
		}
	}
	c.list = kept
	if c.hasSelected && c.selected.Matches(id) {
		c.selected = tender.Tender{}
		c.hasSelected = false
	}
	c.lastErr = nil
	c.publishSizes()
	c.mu.Unlock()
	return nil
}

// SetFilters overlays non-empty criteria onto the current filter. The
// next FetchTenders uses the merged filter.
func (c *TenderCache) SetFilters(partial tender.Filter) {
	c.mu.Lock()
	c.filter = c.filter.Merge(partial)
	c.mu.Unlock()
}

// ResetFilters clears all filter criteria.
func (c *TenderCache) ResetFilters() {
	c.mu.Lock()
	c.filter = tender.Filter{}
	c.mu.Unlock()
}

// Filter returns the current filter criteria.
func (c *TenderCache) Filter() tender.Filter {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.filter
}

// SelectTender places an already-loaded tender in the selected slot.
func (c *TenderCache) SelectTender(t tender.Tender) {
	c.mu.Lock()
	c.selected = t.Normalize()
	c.hasSelected = true
	c.mu.Unlock()
}

// ClearSelection empties the selected slot.
func (c *TenderCache) ClearSelection() {
	c.mu.Lock()
	c.selected = tender.Tender{}
	c.hasSelected = false
	c.mu.Unlock()
}

// Selected returns the selected tender, if any.
func (c *TenderCache) Selected() (tender.Tender, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.selected, c.hasSelected
}

// Tenders returns a snapshot of the cached list.
func (c *TenderCache) Tenders() []tender.Tender {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]tender.Tender, len(c.list))
	copy(out, c.list)
	return out
}

// Loading reports whether a list fetch is in flight.
func (c *TenderCache) Loading() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.loading
}

// LoadingSelected reports whether a single-tender fetch is in flight.
func (c *TenderCache) LoadingSelected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.loadingSelected
}

// ErrorMessage returns the human-readable message for the last failure,
// or "" when the last operation succeeded.
func (c *TenderCache) ErrorMessage() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.lastErr == nil {
		return ""
	}
	return errors.UserMessage(c.lastErr)
}

// ClearError dismisses the last recorded failure.
func (c *TenderCache) ClearError() {
	c.mu.Lock()
	c.lastErr = nil
	c.mu.Unlock()
}

func (c *TenderCache) setError(err error) {
	c.mu.Lock()
	c.lastErr = err
	c.mu.Unlock()
}

// publishSizes is called with the mutex held.
func (c *TenderCache) publishSizes() {
	c.metrics.SetTenderCount(len(c.list))
}
