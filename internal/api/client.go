package api

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"go.uber.org/zap"

	"github.com/xenking/shopsync/internal/domain/auth"
	"github.com/xenking/shopsync/internal/domain/product"
	"github.com/xenking/shopsync/internal/transport"
)

const (
	contentTypeJSON = "application/json"

	// tokenExpiry is the refresh credential lifetime requested on login and
	// refresh, matching the backend's token_expires_in parameter.
	tokenExpiry = "1y"

	// maxResponseSize bounds how much of a response body is read.
	maxResponseSize = 8 << 20
)

// Client is the HTTP implementation of both the Catalog and Auth contracts.
// All resilience behaviour (credential attachment, refresh-and-replay,
// transient retries) lives in the round tripper chain of the injected
// http.Client; this type only speaks the wire format.
type Client struct {
	base *url.URL
	http *http.Client
	log  *zap.Logger
}

// Compile-time checks that Client satisfies both remote contracts.
var (
	_ Catalog = (*Client)(nil)
	_ Auth    = (*Client)(nil)
)

// NewClient creates a Client for the given backend base URL. hc should carry
// the transport chain; nil falls back to http.DefaultClient.
func NewClient(baseURL string, hc *http.Client, lg *zap.Logger) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, errors.Wrap(err, "parse base url")
	}
	if hc == nil {
		hc = http.DefaultClient
	}
	if lg == nil {
		lg = zap.NewNop()
	}
	return &Client{base: u, http: hc, log: lg}, nil
}

// --- Catalog ---

// FetchProducts requests one server-paginated page of the catalog.
func (c *Client) FetchProducts(ctx context.Context, page, limit int, sort product.SortOrder) (*product.Page, error) {
	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	q.Set("limit", strconv.Itoa(limit))
	if sort != product.SortUnset {
		q.Set("sort", string(sort))
	}
	data, err := c.send(ctx, http.MethodGet, q, nil, "", "products")
	if err != nil {
		return nil, errors.Wrap(err, "fetch products")
	}
	return decodeProductsPage(data)
}

// SearchProducts returns the complete match set for a query. The backend
// does not paginate search results; the catalog store slices them locally.
func (c *Client) SearchProducts(ctx context.Context, query string) ([]product.Product, error) {
	q := url.Values{}
	q.Set("query", query)
	data, err := c.send(ctx, http.MethodGet, q, nil, "", "products", "search")
	if err != nil {
		return nil, errors.Wrap(err, "search products")
	}
	return decodeProductList(data)
}

// FetchProductByID returns the full product record including owner contact
// and location. A missing product maps to product.ErrNotFound.
func (c *Client) FetchProductByID(ctx context.Context, id string) (*product.Detail, error) {
	data, err := c.send(ctx, http.MethodGet, nil, nil, "", "products", id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, product.ErrNotFound
		}
		return nil, errors.Wrap(err, "fetch product")
	}
	return decodeProductDetail(data)
}

// CreateProduct submits a new listing as a multipart form.
func (c *Client) CreateProduct(ctx context.Context, form ProductForm) (*product.Product, error) {
	body, contentType, err := form.encode()
	if err != nil {
		return nil, err
	}
	data, err := c.send(ctx, http.MethodPost, nil, body, contentType, "products")
	if err != nil {
		return nil, errors.Wrap(err, "create product")
	}
	return decodeProductEnvelope(data)
}

// UpdateProduct replaces an existing listing's fields.
func (c *Client) UpdateProduct(ctx context.Context, id string, form ProductForm) (*product.Product, error) {
	body, contentType, err := form.encode()
	if err != nil {
		return nil, err
	}
	data, err := c.send(ctx, http.MethodPut, nil, body, contentType, "products", id)
	if err != nil {
		return nil, errors.Wrap(err, "update product")
	}
	return decodeProductEnvelope(data)
}

// DeleteProduct removes a listing.
func (c *Client) DeleteProduct(ctx context.Context, id string) error {
	if _, err := c.send(ctx, http.MethodDelete, nil, nil, "", "products", id); err != nil {
		return errors.Wrap(err, "delete product")
	}
	return nil
}

// --- Auth ---

// SignUp registers a new account. The backend responds with a verification
// OTP sent to the given email; no credentials are issued yet.
func (c *Client) SignUp(ctx context.Context, form SignUpForm) error {
	body, contentType, err := form.encode()
	if err != nil {
		return err
	}
	if _, err := c.send(ctx, http.MethodPost, nil, body, contentType, "auth", "signup"); err != nil {
		return errors.Wrap(err, "sign up")
	}
	return nil
}

// VerifyOTP confirms the email verification code.
func (c *Client) VerifyOTP(ctx context.Context, email, otp string) error {
	body := encodeObj(field{"email", email}, field{"otp", otp})
	if _, err := c.send(ctx, http.MethodPost, nil, body, contentTypeJSON, "auth", "verify-otp"); err != nil {
		return errors.Wrap(err, "verify otp")
	}
	return nil
}

// ResendOTP re-issues the verification code for an unverified account.
func (c *Client) ResendOTP(ctx context.Context, email string) error {
	body := encodeObj(field{"email", email})
	if _, err := c.send(ctx, http.MethodPost, nil, body, contentTypeJSON, "auth", "resend-verification-otp"); err != nil {
		return errors.Wrap(err, "resend otp")
	}
	return nil
}

// ForgotPassword starts the password reset flow for the given email.
func (c *Client) ForgotPassword(ctx context.Context, email string) error {
	body := encodeObj(field{"email", email})
	if _, err := c.send(ctx, http.MethodPost, nil, body, contentTypeJSON, "auth", "forgot-password"); err != nil {
		return errors.Wrap(err, "forgot password")
	}
	return nil
}

// Login exchanges credentials for an access/refresh token pair.
func (c *Client) Login(ctx context.Context, email, password string) (*auth.TokenPair, error) {
	body := encodeObj(
		field{"email", email},
		field{"password", password},
		field{"token_expires_in", tokenExpiry},
	)
	data, err := c.send(ctx, http.MethodPost, nil, body, contentTypeJSON, "auth", "login")
	if err != nil {
		return nil, errors.Wrap(err, "login")
	}
	return decodeTokenPair(data)
}

// RefreshToken exchanges the refresh credential for a new token pair. The
// call bypasses the authorization layer: a rejected refresh must surface
// directly instead of recursing into another refresh.
func (c *Client) RefreshToken(ctx context.Context, refreshToken string) (*auth.TokenPair, error) {
	ctx = transport.WithoutAuth(ctx)
	body := encodeObj(
		field{"refreshToken", refreshToken},
		field{"token_expires_in", tokenExpiry},
	)
	data, err := c.send(ctx, http.MethodPost, nil, body, contentTypeJSON, "auth", "refresh-token")
	if err != nil {
		return nil, errors.Wrap(err, "refresh token")
	}
	return decodeTokenPair(data)
}

// GetProfile fetches the signed-in user's profile.
func (c *Client) GetProfile(ctx context.Context) (*auth.Profile, error) {
	data, err := c.send(ctx, http.MethodGet, nil, nil, "", "user", "profile")
	if err != nil {
		return nil, errors.Wrap(err, "get profile")
	}
	return decodeProfile(data)
}

// UpdateProfile persists a partial profile update and returns the server's
// authoritative copy of the resulting profile.
func (c *Client) UpdateProfile(ctx context.Context, form ProfileForm) (*auth.Profile, error) {
	body, contentType, err := form.encode()
	if err != nil {
		return nil, err
	}
	data, err := c.send(ctx, http.MethodPut, nil, body, contentType, "user", "profile")
	if err != nil {
		return nil, errors.Wrap(err, "update profile")
	}
	return decodeProfile(data)
}

// --- plumbing ---

// send issues one HTTP exchange and returns the raw body of a 2xx response.
// Non-2xx responses become a *StatusError carrying the envelope message.
// Bodies are passed as *bytes.Reader so the request is replayable by the
// retry and authorization layers.
func (c *Client) send(ctx context.Context, method string, query url.Values, body *bytes.Reader, contentType string, path ...string) ([]byte, error) {
	u := c.base.JoinPath(path...)
	if query != nil {
		u.RawQuery = query.Encode()
	}

	var rd io.Reader
	if body != nil {
		rd = body
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), rd)
	if err != nil {
		return nil, errors.Wrap(err, "build request")
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", contentTypeJSON)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "do request")
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, errors.Wrap(err, "read response")
	}
	if resp.StatusCode >= http.StatusBadRequest {
		c.log.Debug("request rejected",
			zap.String("method", method),
			zap.String("url", u.Path),
			zap.Int("status", resp.StatusCode))
		return nil, &StatusError{Code: resp.StatusCode, Message: errorMessage(data)}
	}
	return data, nil
}

// field is one string member of an encoded JSON object.
type field struct {
	key   string
	value string
}

// encodeObj builds a flat JSON object body with jx.
func encodeObj(fields ...field) *bytes.Reader {
	var e jx.Encoder
	e.ObjStart()
	for _, f := range fields {
		e.FieldStart(f.key)
		e.Str(f.value)
	}
	e.ObjEnd()
	return bytes.NewReader(e.Bytes())
}
