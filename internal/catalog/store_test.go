package catalog

import (
	"context"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/shopsync/internal/api"
	"github.com/xenking/shopsync/internal/domain/product"
)

// --- Mock implementations ---

type mockCatalog struct {
	fetch  func(ctx context.Context, page, limit int, sort product.SortOrder) (*product.Page, error)
	search func(ctx context.Context, query string) ([]product.Product, error)
	detail func(ctx context.Context, id string) (*product.Detail, error)

	fetchCalls  atomic.Int32
	searchCalls atomic.Int32
}

func (m *mockCatalog) FetchProducts(ctx context.Context, page, limit int, sort product.SortOrder) (*product.Page, error) {
	m.fetchCalls.Add(1)
	if m.fetch == nil {
		return nil, errors.New("unexpected FetchProducts")
	}
	return m.fetch(ctx, page, limit, sort)
}

func (m *mockCatalog) SearchProducts(ctx context.Context, query string) ([]product.Product, error) {
	m.searchCalls.Add(1)
	if m.search == nil {
		return nil, errors.New("unexpected SearchProducts")
	}
	return m.search(ctx, query)
}

func (m *mockCatalog) FetchProductByID(ctx context.Context, id string) (*product.Detail, error) {
	if m.detail == nil {
		return nil, errors.New("unexpected FetchProductByID")
	}
	return m.detail(ctx, id)
}

func (m *mockCatalog) CreateProduct(context.Context, api.ProductForm) (*product.Product, error) {
	return nil, errors.New("unexpected CreateProduct")
}

func (m *mockCatalog) UpdateProduct(context.Context, string, api.ProductForm) (*product.Product, error) {
	return nil, errors.New("unexpected UpdateProduct")
}

func (m *mockCatalog) DeleteProduct(context.Context, string) error {
	return errors.New("unexpected DeleteProduct")
}

// --- Helpers ---

func newTestProduct(id, price string) product.Product {
	return product.Product{
		ID:    id,
		Title: "Product " + id,
		Price: decimal.RequireFromString(price),
	}
}

// fixedBackend serves items server-paginated at the given page size.
func fixedBackend(items []product.Product, size int) func(context.Context, int, int, product.SortOrder) (*product.Page, error) {
	return func(_ context.Context, page, limit int, _ product.SortOrder) (*product.Page, error) {
		total := pagesFor(len(items), size)
		window := sliceFor(items, page, size)
		return &product.Page{
			Items:      window,
			Page:       page,
			TotalPages: total,
			TotalItems: len(items),
			Limit:      limit,
			HasNext:    page < total,
			HasPrev:    page > 1,
		}, nil
	}
}

func twelveItems() []product.Product {
	items := make([]product.Product, 12)
	for i := range items {
		items[i] = newTestProduct("p"+strconv.Itoa(i+1), strconv.Itoa((i+1)*10))
	}
	return items
}

// --- Tests ---

func TestLoadFirstPage_ServerMode(t *testing.T) {
	mock := &mockCatalog{fetch: fixedBackend(twelveItems(), 5)}
	s := New(mock, 5, nil)

	require.NoError(t, s.LoadFirstPage(context.Background()))

	snap := s.Snapshot()
	assert.Equal(t, ModePaginated, snap.Mode)
	assert.Equal(t, StatusIdle, snap.Status)
	assert.Equal(t, 1, snap.Page)
	assert.Equal(t, 3, snap.TotalPages)
	assert.Len(t, snap.Items, 5)
	assert.Empty(t, snap.AllMatches)
	assert.Empty(t, snap.Query)
}

func TestPagination_TwelveItemsThreePages(t *testing.T) {
	mock := &mockCatalog{fetch: fixedBackend(twelveItems(), 5)}
	s := New(mock, 5, nil)
	ctx := context.Background()

	require.NoError(t, s.LoadFirstPage(ctx))
	assert.Equal(t, 3, s.Snapshot().TotalPages)

	require.NoError(t, s.NextPage(ctx))
	require.NoError(t, s.NextPage(ctx))
	assert.Equal(t, 3, s.Snapshot().Page)

	require.NoError(t, s.PrevPage(ctx))
	assert.Equal(t, 2, s.Snapshot().Page)
}

func TestPagination_RoundTripRestoresItems(t *testing.T) {
	mock := &mockCatalog{fetch: fixedBackend(twelveItems(), 5)}
	s := New(mock, 5, nil)
	ctx := context.Background()

	require.NoError(t, s.LoadFirstPage(ctx))
	before := s.Snapshot().Items

	require.NoError(t, s.NextPage(ctx))
	require.NoError(t, s.PrevPage(ctx))

	assert.Equal(t, before, s.Snapshot().Items)
}

func TestNextPage_BoundaryNoOp(t *testing.T) {
	mock := &mockCatalog{fetch: fixedBackend(twelveItems()[:3], 5)}
	s := New(mock, 5, nil)
	ctx := context.Background()

	require.NoError(t, s.LoadFirstPage(ctx))
	calls := mock.fetchCalls.Load()

	require.NoError(t, s.NextPage(ctx)) // already at the only page
	require.NoError(t, s.PrevPage(ctx))

	assert.Equal(t, calls, mock.fetchCalls.Load())
	assert.Equal(t, 1, s.Snapshot().Page)
}

func TestNextPage_NoOpWhileLoading(t *testing.T) {
	items := twelveItems()
	started := make(chan struct{})
	release := make(chan struct{})
	var startedOnce sync.Once

	mock := &mockCatalog{}
	mock.fetch = func(ctx context.Context, page, limit int, sort product.SortOrder) (*product.Page, error) {
		// The first call is the initial load; the second blocks to hold the
		// store in the loading state.
		if mock.fetchCalls.Load() > 1 {
			startedOnce.Do(func() { close(started) })
			<-release
		}
		return fixedBackend(items, 5)(ctx, page, limit, sort)
	}
	s := New(mock, 5, nil)
	ctx := context.Background()

	require.NoError(t, s.LoadFirstPage(ctx))

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = s.Refresh(ctx) // blocks in the mock
	}()
	<-started

	calls := mock.fetchCalls.Load()
	require.NoError(t, s.NextPage(ctx)) // loading: must not fetch
	assert.Equal(t, calls, mock.fetchCalls.Load())

	close(release)
	wg.Wait()
}

func TestSearch_SwitchesToSlicedMode(t *testing.T) {
	matches := twelveItems()[:7]
	mock := &mockCatalog{
		search: func(_ context.Context, query string) ([]product.Product, error) {
			return matches, nil
		},
	}
	s := New(mock, 5, nil)

	require.NoError(t, s.Search(context.Background(), "  widget "))

	snap := s.Snapshot()
	assert.Equal(t, ModeSliced, snap.Mode)
	assert.Equal(t, "widget", snap.Query)
	assert.Equal(t, 1, snap.Page)
	assert.Equal(t, 2, snap.TotalPages)
	assert.Len(t, snap.Items, 5)
	assert.Len(t, snap.AllMatches, 7)
}

func TestSearch_ZeroMatchesIsSuccess(t *testing.T) {
	mock := &mockCatalog{
		search: func(context.Context, string) ([]product.Product, error) {
			return nil, nil
		},
	}
	s := New(mock, 5, nil)

	require.NoError(t, s.Search(context.Background(), "nothing"))

	snap := s.Snapshot()
	assert.Equal(t, StatusIdle, snap.Status)
	assert.Equal(t, ModeSliced, snap.Mode)
	assert.Empty(t, snap.Items)
	assert.Equal(t, 1, snap.TotalPages)
	assert.Empty(t, snap.LastError)
}

func TestSearch_EmptyQueryRestoresServerMode(t *testing.T) {
	mock := &mockCatalog{
		fetch: fixedBackend(twelveItems(), 5),
		search: func(context.Context, string) ([]product.Product, error) {
			return twelveItems()[:2], nil
		},
	}
	s := New(mock, 5, nil)
	ctx := context.Background()

	require.NoError(t, s.Search(ctx, "widget"))
	require.Equal(t, ModeSliced, s.Snapshot().Mode)

	require.NoError(t, s.Search(ctx, "   "))

	snap := s.Snapshot()
	assert.Equal(t, ModePaginated, snap.Mode)
	assert.Empty(t, snap.Query)
	assert.Empty(t, snap.AllMatches)
}

func TestSearch_SlicedPageTurnWithoutNetwork(t *testing.T) {
	matches := twelveItems()[:8]
	mock := &mockCatalog{
		search: func(context.Context, string) ([]product.Product, error) {
			return matches, nil
		},
	}
	s := New(mock, 5, nil)
	ctx := context.Background()

	require.NoError(t, s.Search(ctx, "widget"))
	require.NoError(t, s.NextPage(ctx))

	snap := s.Snapshot()
	assert.Equal(t, 2, snap.Page)
	assert.Len(t, snap.Items, 3)
	assert.Equal(t, matches[5:], snap.Items)
	assert.Zero(t, mock.fetchCalls.Load(), "page turn in sliced mode must not fetch")

	require.NoError(t, s.PrevPage(ctx))
	assert.Equal(t, matches[:5], s.Snapshot().Items)
}

func TestSearch_StaleResponseDiscarded(t *testing.T) {
	slowStarted := make(chan struct{})
	release := make(chan struct{})
	resultA := []product.Product{newTestProduct("a1", "10")}
	resultAB := []product.Product{newTestProduct("ab1", "20")}

	mock := &mockCatalog{}
	mock.search = func(_ context.Context, query string) ([]product.Product, error) {
		if query == "a" {
			close(slowStarted)
			<-release
			return resultA, nil
		}
		return resultAB, nil
	}
	s := New(mock, 5, nil)
	ctx := context.Background()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = s.Search(ctx, "a")
	}()
	<-slowStarted

	require.NoError(t, s.Search(ctx, "ab"))
	close(release)
	wg.Wait()

	snap := s.Snapshot()
	assert.Equal(t, "ab", snap.Query)
	assert.Equal(t, resultAB, snap.Items, "slow response for \"a\" must not overwrite \"ab\"")
}

func TestClearSearchError_KeepsSearchAuthoritative(t *testing.T) {
	matches := twelveItems()[:8]
	mock := &mockCatalog{
		search: func(context.Context, string) ([]product.Product, error) {
			return matches, nil
		},
		fetch: func(context.Context, int, int, product.SortOrder) (*product.Page, error) {
			return nil, errors.New("backend unavailable")
		},
	}
	s := New(mock, 5, nil)
	ctx := context.Background()

	require.NoError(t, s.Search(ctx, "widget"))
	require.Error(t, s.Search(ctx, ""), "clearing the search needs a listing fetch")

	snap := s.Snapshot()
	assert.Equal(t, "widget", snap.Query, "query clears only when the listing fetch succeeds")
	assert.Equal(t, ModeSliced, snap.Mode)
	assert.Equal(t, StatusError, snap.Status)
	assert.Equal(t, matches[:5], snap.Items)

	// The materialized match set is still the one the query describes, so
	// page turns keep serving it locally.
	require.NoError(t, s.NextPage(ctx))
	snap = s.Snapshot()
	assert.Equal(t, 2, snap.Page)
	assert.Equal(t, "widget", snap.Query)
	assert.Equal(t, matches[5:], snap.Items)
}

func TestSearchError_KeepsServerListing(t *testing.T) {
	mock := &mockCatalog{
		fetch: fixedBackend(twelveItems(), 5),
		search: func(context.Context, string) ([]product.Product, error) {
			return nil, errors.New("backend unavailable")
		},
	}
	s := New(mock, 5, nil)
	ctx := context.Background()

	require.NoError(t, s.LoadFirstPage(ctx))
	before := s.Snapshot().Items
	require.Error(t, s.Search(ctx, "widget"))

	snap := s.Snapshot()
	assert.Empty(t, snap.Query, "failed search must not adopt its query")
	assert.Equal(t, ModePaginated, snap.Mode)
	assert.Equal(t, StatusError, snap.Status)
	assert.Equal(t, before, snap.Items)

	// With the query still empty, page turns stay server fetches.
	calls := mock.fetchCalls.Load()
	require.NoError(t, s.NextPage(ctx))
	assert.Equal(t, calls+1, mock.fetchCalls.Load())
	assert.Equal(t, 2, s.Snapshot().Page)
}

func TestSort_StableForEqualPrices(t *testing.T) {
	matches := []product.Product{
		newTestProduct("a", "5"),
		newTestProduct("b", "5"),
		newTestProduct("c", "3"),
	}
	mock := &mockCatalog{
		search: func(context.Context, string) ([]product.Product, error) {
			return append([]product.Product(nil), matches...), nil
		},
	}
	s := New(mock, 5, nil)
	ctx := context.Background()

	require.NoError(t, s.Search(ctx, "x"))
	require.NoError(t, s.Sort(ctx, product.SortAscending))

	ids := itemIDs(s.Snapshot().Items)
	assert.Equal(t, []string{"c", "a", "b"}, ids, "equal prices keep original relative order")

	// Idempotent: sorting again changes nothing.
	require.NoError(t, s.Sort(ctx, product.SortAscending))
	assert.Equal(t, ids, itemIDs(s.Snapshot().Items))
	assert.Zero(t, mock.fetchCalls.Load(), "sliced-mode sort must not fetch")
}

func TestSort_ServerModeFetchesWithOrder(t *testing.T) {
	var gotSort product.SortOrder
	items := twelveItems()
	mock := &mockCatalog{}
	mock.fetch = func(ctx context.Context, page, limit int, sort product.SortOrder) (*product.Page, error) {
		gotSort = sort
		return fixedBackend(items, 5)(ctx, page, limit, sort)
	}
	s := New(mock, 5, nil)
	ctx := context.Background()

	require.NoError(t, s.LoadFirstPage(ctx))
	require.NoError(t, s.Sort(ctx, product.SortDescending))

	assert.Equal(t, product.SortDescending, gotSort)
	assert.Equal(t, 1, s.Snapshot().Page)
	assert.Equal(t, product.SortDescending, s.Snapshot().Sort)
}

func TestRefresh_ReplaysActiveSearch(t *testing.T) {
	mock := &mockCatalog{
		search: func(_ context.Context, query string) ([]product.Product, error) {
			return []product.Product{newTestProduct("m1", "10")}, nil
		},
	}
	s := New(mock, 5, nil)
	ctx := context.Background()

	require.NoError(t, s.Search(ctx, "widget"))
	require.NoError(t, s.Refresh(ctx))

	assert.Equal(t, int32(2), mock.searchCalls.Load())
	assert.Equal(t, "widget", s.Snapshot().Query)
	assert.Zero(t, mock.fetchCalls.Load())
}

func TestLoadError_KeepsStaleItems(t *testing.T) {
	items := twelveItems()
	failing := false
	mock := &mockCatalog{}
	mock.fetch = func(ctx context.Context, page, limit int, sort product.SortOrder) (*product.Page, error) {
		if failing {
			return nil, errors.New("backend unavailable")
		}
		return fixedBackend(items, 5)(ctx, page, limit, sort)
	}
	s := New(mock, 5, nil)
	ctx := context.Background()

	require.NoError(t, s.LoadFirstPage(ctx))
	before := s.Snapshot().Items
	require.NotEmpty(t, before)

	failing = true
	require.Error(t, s.Refresh(ctx))

	snap := s.Snapshot()
	assert.Equal(t, StatusError, snap.Status)
	assert.NotEmpty(t, snap.LastError)
	assert.Equal(t, before, snap.Items, "stale items stay visible on failure")
}

func TestFirstLoadError_ItemsStayEmpty(t *testing.T) {
	mock := &mockCatalog{
		fetch: func(context.Context, int, int, product.SortOrder) (*product.Page, error) {
			return nil, errors.New("backend unavailable")
		},
	}
	s := New(mock, 5, nil)

	require.Error(t, s.LoadFirstPage(context.Background()))

	snap := s.Snapshot()
	assert.Equal(t, StatusError, snap.Status)
	assert.Empty(t, snap.Items)
}

func TestGetByID_DoesNotTouchListing(t *testing.T) {
	det := &product.Detail{
		Product: newTestProduct("p1", "10"),
		Owner:   product.Owner{ID: "u1", Email: "seller@example.com"},
	}
	mock := &mockCatalog{
		fetch: fixedBackend(twelveItems(), 5),
		detail: func(_ context.Context, id string) (*product.Detail, error) {
			return det, nil
		},
	}
	s := New(mock, 5, nil)
	ctx := context.Background()

	require.NoError(t, s.LoadFirstPage(ctx))
	before := s.Snapshot()

	got, err := s.GetByID(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, "seller@example.com", got.Owner.Email)

	snap := s.Snapshot()
	assert.Equal(t, before.Page, snap.Page)
	assert.Equal(t, before.Items, snap.Items)
	assert.Equal(t, before.Status, snap.Status)
	require.NotNil(t, snap.Selected)
	assert.Equal(t, "p1", snap.Selected.ID)
}

func TestOnChange_ReceivesCommittedSnapshots(t *testing.T) {
	mock := &mockCatalog{fetch: fixedBackend(twelveItems(), 5)}
	s := New(mock, 5, nil)

	var mu sync.Mutex
	var statuses []Status
	s.OnChange(func(snap Snapshot) {
		mu.Lock()
		statuses = append(statuses, snap.Status)
		mu.Unlock()
	})

	require.NoError(t, s.LoadFirstPage(context.Background()))

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, statuses, 2)
	assert.Equal(t, StatusLoading, statuses[0])
	assert.Equal(t, StatusIdle, statuses[1])
}

func itemIDs(items []product.Product) []string {
	ids := make([]string, len(items))
	for i, p := range items {
		ids[i] = p.ID
	}
	return ids
}
