// Package api defines the remote catalog and auth contracts the stores
// depend on, plus the HTTP implementation of both. The concrete wire
// protocol lives entirely in this package; stores only see domain types.
package api

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/xenking/shopsync/internal/domain/auth"
	"github.com/xenking/shopsync/internal/domain/product"
)

// Catalog is the remote product API consumed by the catalog store.
type Catalog interface {
	FetchProducts(ctx context.Context, page, limit int, sort product.SortOrder) (*product.Page, error)
	SearchProducts(ctx context.Context, query string) ([]product.Product, error)
	FetchProductByID(ctx context.Context, id string) (*product.Detail, error)
	CreateProduct(ctx context.Context, form ProductForm) (*product.Product, error)
	UpdateProduct(ctx context.Context, id string, form ProductForm) (*product.Product, error)
	DeleteProduct(ctx context.Context, id string) error
}

// Auth is the remote authentication API consumed by the session manager.
type Auth interface {
	SignUp(ctx context.Context, form SignUpForm) error
	VerifyOTP(ctx context.Context, email, otp string) error
	ResendOTP(ctx context.Context, email string) error
	ForgotPassword(ctx context.Context, email string) error
	Login(ctx context.Context, email, password string) (*auth.TokenPair, error)
	RefreshToken(ctx context.Context, refreshToken string) (*auth.TokenPair, error)
	GetProfile(ctx context.Context) (*auth.Profile, error)
	UpdateProfile(ctx context.Context, form ProfileForm) (*auth.Profile, error)
}

// FileUpload is an in-memory file attached to a multipart form.
type FileUpload struct {
	Name string
	Data []byte
}

// SignUpForm holds the sign-up fields. The backend expects multipart
// encoding because an avatar may be attached.
type SignUpForm struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
	Avatar    *FileUpload
}

// ProfileForm holds a partial profile update. Empty fields are omitted from
// the form; the server's response is the authoritative resulting profile.
type ProfileForm struct {
	FirstName string
	LastName  string
	Avatar    *FileUpload
}

// ProductForm holds the fields for creating or editing a product listing.
type ProductForm struct {
	Title        string
	Description  string
	Price        decimal.Decimal
	LocationName string
	Latitude     float64
	Longitude    float64
	Images       []FileUpload
}
