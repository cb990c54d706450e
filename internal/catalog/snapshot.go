package catalog

import "github.com/xenking/shopsync/internal/domain/product"

// Status is the settled/loading/error indicator of the store.
type Status int

const (
	StatusIdle Status = iota
	StatusLoading
	StatusError
)

// String returns a stable lowercase name for logging.
func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusLoading:
		return "loading"
	case StatusError:
		return "error"
	default:
		return "unknown"
	}
}

// Mode tags which pagination strategy is authoritative. Exactly one is
// active at any time: server-paginated listings come verbatim from the
// backend, while search results are materialized in full and sliced
// locally because the search endpoint does not paginate.
type Mode int

const (
	// ModePaginated: Items and the page metadata mirror the last successful
	// remote page fetch; AllMatches is empty.
	ModePaginated Mode = iota
	// ModeSliced: Items is the deterministic slice of AllMatches for the
	// current page; page turns and sorting need no network call.
	ModeSliced
)

// String returns a stable lowercase name for logging.
func (m Mode) String() string {
	if m == ModeSliced {
		return "sliced"
	}
	return "paginated"
}

// Snapshot is the store's single state unit. Pages are 1-indexed; after any
// settled fetch 1 <= Page <= TotalPages holds. Query is the active search
// text; empty means no filter. Selected is the independently fetched detail
// record and is unaffected by listing operations.
type Snapshot struct {
	Mode       Mode
	Items      []product.Product
	AllMatches []product.Product
	Page       int
	TotalPages int
	TotalItems int
	Query      string
	Sort       product.SortOrder
	Status     Status
	LastError  string
	Selected   *product.Detail
}

// clone returns a copy safe to hand out: slices are copied so a later
// commit cannot mutate a snapshot already observed by the UI.
func (s Snapshot) clone() Snapshot {
	out := s
	out.Items = append([]product.Product(nil), s.Items...)
	out.AllMatches = append([]product.Product(nil), s.AllMatches...)
	if s.Selected != nil {
		sel := *s.Selected
		out.Selected = &sel
	}
	return out
}
