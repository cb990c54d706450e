package product

import (
	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a requested product does not exist upstream.
var ErrNotFound = errors.New("product not found")

// Product represents a catalog item as served by the remote backend.
// Products are created, edited, and deleted only by the backend; the client
// never fabricates identity.
type Product struct {
	ID          string
	Title       string
	Description string
	Price       decimal.Decimal
	Images      []Image
	Location    Location
	UserID      string
}

// Image is a single product image reference.
type Image struct {
	ID  string
	URL string
}

// Location is the geographic point a product is listed at.
type Location struct {
	Name      string
	Latitude  float64
	Longitude float64
}

// Owner identifies the user a product belongs to.
type Owner struct {
	ID    string
	Email string
}

// Detail is the full product record returned by the detail endpoint,
// including owner contact information.
type Detail struct {
	Product
	Owner Owner
}

// Page is one server-paginated window of the catalog together with the
// pagination envelope the backend reports for it.
type Page struct {
	Items      []Product
	Page       int
	TotalPages int
	TotalItems int
	Limit      int
	HasNext    bool
	HasPrev    bool
}

// SortOrder selects the price ordering applied to a listing.
type SortOrder string

const (
	// SortUnset leaves ordering to the backend default.
	SortUnset SortOrder = ""
	// SortAscending orders by price, lowest first.
	SortAscending SortOrder = "asc"
	// SortDescending orders by price, highest first.
	SortDescending SortOrder = "desc"
)
