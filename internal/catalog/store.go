// Package catalog owns the locally materialized product collection: the
// current page window, search predicate, sort order, and the dual-mode
// pagination strategy (server-paginated listings vs. locally sliced search
// results).
package catalog

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/go-faster/errors"
	"go.uber.org/zap"

	"github.com/xenking/shopsync/internal/api"
	"github.com/xenking/shopsync/internal/domain/product"
)

// DefaultPageSize matches the backend's default listing window.
const DefaultPageSize = 5

// Store is the catalog store. Every operation settles into a committed
// Snapshot; remote failures surface in Snapshot.LastError and previously
// displayed items stay visible. Retries are the transport's concern, not
// the store's.
//
// Responses commit only when they correspond to the most recently issued
// listing operation; superseded responses are discarded silently, so a
// slow search("a") can never overwrite a faster search("ab").
type Store struct {
	api      api.Catalog
	log      *zap.Logger
	pageSize int

	mu        sync.Mutex
	snap      Snapshot
	listGen   uint64
	detailGen uint64
	onChange  func(Snapshot)
}

// New creates a Store. pageSize <= 0 selects DefaultPageSize; lg may be nil.
func New(catalogAPI api.Catalog, pageSize int, lg *zap.Logger) *Store {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if lg == nil {
		lg = zap.NewNop()
	}
	return &Store{
		api:      catalogAPI,
		log:      lg.Named("catalog"),
		pageSize: pageSize,
		snap: Snapshot{
			Page:       1,
			TotalPages: 1,
		},
	}
}

// OnChange registers a callback invoked after every committed snapshot.
// The callback receives a defensive copy and runs outside the store lock.
// Intended for the UI layer; set it before issuing operations.
func (s *Store) OnChange(fn func(Snapshot)) {
	s.mu.Lock()
	s.onChange = fn
	s.mu.Unlock()
}

// Snapshot returns a copy of the current state.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snap.clone()
}

// LoadFirstPage clears any active search and requests page 1 from the
// backend with the current sort order. The query clears only when the
// fetch succeeds; until then an active search stays authoritative. On
// failure previously displayed items stay visible (stale-but-visible); on
// a first load they remain empty.
func (s *Store) LoadFirstPage(ctx context.Context) error {
	return s.loadListing(ctx, func(sn *Snapshot) {
		sn.Query = ""
	})
}

// Refresh replays the currently active mode for page 1 without altering
// the query or sort order: an active search is re-executed in full, a
// plain listing re-fetches its first page.
func (s *Store) Refresh(ctx context.Context) error {
	s.mu.Lock()
	query := s.snap.Query
	s.mu.Unlock()

	if query != "" {
		return s.runSearch(ctx, query)
	}
	return s.loadListing(ctx, nil)
}

// Search filters the catalog. The input is trimmed; an empty query clears
// filtering and restores server pagination. A non-empty query fetches the
// complete match set, switches to local-slice mode, and resets to page 1.
// Zero matches is success: the page shows empty with TotalPages = 1.
func (s *Store) Search(ctx context.Context, text string) error {
	query := strings.TrimSpace(text)
	if query == "" {
		return s.LoadFirstPage(ctx)
	}
	return s.runSearch(ctx, query)
}

// NextPage advances one page. It is a no-op while a load is outstanding or
// at the last page. In local-slice mode the window is recomputed without a
// network call.
func (s *Store) NextPage(ctx context.Context) error {
	return s.turnPage(ctx, +1)
}

// PrevPage goes back one page, with the same no-op rules as NextPage.
func (s *Store) PrevPage(ctx context.Context) error {
	return s.turnPage(ctx, -1)
}

// Sort orders the listing by price. With an active search the materialized
// match set is sorted in place and re-sliced from page 1 without a network
// call; otherwise page 1 is requested with the sort parameter attached.
// The sort is stable: equal prices keep their original relative order, so
// applying the same order twice is idempotent.
func (s *Store) Sort(ctx context.Context, order product.SortOrder) error {
	s.mu.Lock()
	if s.snap.Mode == ModeSliced {
		// Local re-sort supersedes any in-flight listing fetch.
		s.listGen++
		s.snap.Sort = order
		sortByPrice(s.snap.AllMatches, order)
		s.applySliceLocked(1)
		snap := s.snap.clone()
		s.mu.Unlock()
		s.notify(snap)
		return nil
	}
	s.mu.Unlock()

	gen, _ := s.begin()
	page, err := s.api.FetchProducts(ctx, 1, s.pageSize, order)
	if err != nil {
		s.fail(gen, err)
		return errors.Wrap(err, "load products")
	}
	s.commit(gen, func(sn *Snapshot) {
		sn.Sort = order
		applyPage(sn, page)
	})
	return nil
}

// GetByID fetches the full product detail independently of the listing: it
// stores the result in the Selected slot and never touches pagination
// state or the listing status.
func (s *Store) GetByID(ctx context.Context, id string) (*product.Detail, error) {
	s.mu.Lock()
	s.detailGen++
	gen := s.detailGen
	s.mu.Unlock()

	det, err := s.api.FetchProductByID(ctx, id)
	if err != nil {
		s.log.Warn("product detail fetch failed",
			zap.String("id", id),
			zap.Error(err))
		return nil, errors.Wrap(err, "get product")
	}

	s.mu.Lock()
	if gen != s.detailGen {
		s.mu.Unlock()
		return det, nil
	}
	s.snap.Selected = det
	snap := s.snap.clone()
	s.mu.Unlock()
	s.notify(snap)
	return det, nil
}

// --- internals ---

// loadListing begins a server-mode fetch of page 1 with the current sort.
// mut (e.g. clearing the query) applies at commit, together with the page:
// a failed fetch leaves the previous mode and query authoritative.
func (s *Store) loadListing(ctx context.Context, mut func(*Snapshot)) error {
	gen, sortOrder := s.begin()

	page, err := s.api.FetchProducts(ctx, 1, s.pageSize, sortOrder)
	if err != nil {
		s.fail(gen, err)
		return errors.Wrap(err, "load products")
	}
	s.commit(gen, func(sn *Snapshot) {
		if mut != nil {
			mut(sn)
		}
		applyPage(sn, page)
	})
	return nil
}

// runSearch fetches the complete match set for query and commits a
// local-slice snapshot at page 1. The active sort order is applied to the
// materialized set so the snapshot never claims an order it does not have.
func (s *Store) runSearch(ctx context.Context, query string) error {
	gen, sortOrder := s.begin()

	matches, err := s.api.SearchProducts(ctx, query)
	if err != nil {
		s.fail(gen, err)
		return errors.Wrap(err, "search products")
	}

	s.commit(gen, func(sn *Snapshot) {
		sortByPrice(matches, sortOrder)
		sn.Query = query
		sn.Mode = ModeSliced
		sn.AllMatches = matches
		sn.TotalItems = len(matches)
		sn.Page = 1
		sn.TotalPages = pagesFor(len(matches), s.pageSize)
		sn.Items = sliceFor(matches, 1, s.pageSize)
		sn.Status = StatusIdle
		sn.LastError = ""
	})
	return nil
}

func (s *Store) turnPage(ctx context.Context, delta int) error {
	s.mu.Lock()
	if s.snap.Status == StatusLoading {
		s.mu.Unlock()
		return nil
	}
	target := s.snap.Page + delta
	if target < 1 || target > s.snap.TotalPages {
		s.mu.Unlock()
		return nil
	}

	if s.snap.Mode == ModeSliced {
		s.listGen++
		s.applySliceLocked(target)
		snap := s.snap.clone()
		s.mu.Unlock()
		s.notify(snap)
		return nil
	}

	sortOrder := s.snap.Sort
	s.listGen++
	gen := s.listGen
	s.snap.Status = StatusLoading
	snap := s.snap.clone()
	s.mu.Unlock()
	s.notify(snap)

	page, err := s.api.FetchProducts(ctx, target, s.pageSize, sortOrder)
	if err != nil {
		s.fail(gen, err)
		return errors.Wrap(err, "load page")
	}
	s.commit(gen, func(sn *Snapshot) {
		applyPage(sn, page)
	})
	return nil
}

// begin opens a new listing generation: later responses for earlier
// generations are discarded at commit. It marks the store loading and
// returns the generation token plus the sort order to fetch with. Nothing
// else changes until commit, so the last committed mode, query, and items
// stay authoritative while a fetch is outstanding or after it fails.
func (s *Store) begin() (uint64, product.SortOrder) {
	s.mu.Lock()
	s.listGen++
	gen := s.listGen
	s.snap.Status = StatusLoading
	sortOrder := s.snap.Sort
	snap := s.snap.clone()
	s.mu.Unlock()
	s.notify(snap)
	return gen, sortOrder
}

// commit applies mut only when gen is still the newest listing generation.
// It reports whether the response was committed or discarded as stale.
func (s *Store) commit(gen uint64, mut func(*Snapshot)) bool {
	s.mu.Lock()
	if gen != s.listGen {
		s.mu.Unlock()
		s.log.Debug("discarding superseded response")
		return false
	}
	mut(&s.snap)
	snap := s.snap.clone()
	s.mu.Unlock()
	s.notify(snap)
	return true
}

// fail settles a generation into the error state, keeping previously
// displayed items visible.
func (s *Store) fail(gen uint64, err error) {
	s.commit(gen, func(sn *Snapshot) {
		sn.Status = StatusError
		sn.LastError = err.Error()
	})
}

// applySliceLocked recomputes the visible window from AllMatches. Caller
// holds s.mu.
func (s *Store) applySliceLocked(page int) {
	sn := &s.snap
	sn.TotalPages = pagesFor(len(sn.AllMatches), s.pageSize)
	if page > sn.TotalPages {
		page = sn.TotalPages
	}
	if page < 1 {
		page = 1
	}
	sn.Page = page
	sn.Items = sliceFor(sn.AllMatches, page, s.pageSize)
	sn.Status = StatusIdle
	sn.LastError = ""
}

func (s *Store) notify(snap Snapshot) {
	s.mu.Lock()
	fn := s.onChange
	s.mu.Unlock()
	if fn != nil {
		fn(snap)
	}
}

// applyPage commits a server-paginated response verbatim.
func applyPage(sn *Snapshot, page *product.Page) {
	sn.Mode = ModePaginated
	sn.AllMatches = nil
	sn.Items = page.Items
	sn.Page = page.Page
	sn.TotalPages = page.TotalPages
	sn.TotalItems = page.TotalItems
	if sn.TotalPages < 1 {
		sn.TotalPages = 1
	}
	if sn.Page < 1 {
		sn.Page = 1
	}
	sn.Status = StatusIdle
	sn.LastError = ""
}

// sortByPrice sorts in place, stably: products with equal prices keep
// their original relative order. SortUnset leaves the order untouched.
func sortByPrice(items []product.Product, order product.SortOrder) {
	switch order {
	case product.SortAscending:
		sort.SliceStable(items, func(i, j int) bool {
			return items[i].Price.LessThan(items[j].Price)
		})
	case product.SortDescending:
		sort.SliceStable(items, func(i, j int) bool {
			return items[i].Price.GreaterThan(items[j].Price)
		})
	}
}

// pagesFor returns the page count for n items. An empty result set still
// has one (empty) page.
func pagesFor(n, size int) int {
	if n == 0 {
		return 1
	}
	return (n + size - 1) / size
}

// sliceFor returns the deterministic window of items for a 1-indexed page.
func sliceFor(items []product.Product, page, size int) []product.Product {
	lo := (page - 1) * size
	if lo >= len(items) {
		return nil
	}
	hi := lo + size
	if hi > len(items) {
		hi = len(items)
	}
	return append([]product.Product(nil), items[lo:hi]...)
}
