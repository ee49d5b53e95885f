package widget

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/surya9490/wishlist/internal/domain"
	apperrors "github.com/surya9490/wishlist/pkg/errors"
	"github.com/surya9490/wishlist/pkg/httpclient"
)

// Remote is the wishlist API surface the engine talks to. Implementations
// classify every failure as one of the wishlist error kinds so the engine can
// route it to the toaster without inspecting transport details.
type Remote interface {
	// FetchAll returns the customer's full wishlist with enrichment.
	FetchAll(ctx context.Context, customerID, shop string) (*domain.SyncPayload, error)

	// Mutate performs a single add, remove or fetch action for one entry.
	Mutate(ctx context.Context, kind ActionKind, entry domain.WishlistEntry) (*domain.SyncPayload, error)

	// BulkAdd merges guest entries into the customer's server-side wishlist.
	// Already-present identities are skipped server-side.
	BulkAdd(ctx context.Context, customerID, shop string, productVariantIDs []string) (*domain.SyncPayload, error)

	// Search returns enrichment for wishlisted items whose product title
	// matches the query. It never mutates membership.
	Search(ctx context.Context, customerID, shop, query string) (*domain.SyncPayload, error)

	// Enrich returns display enrichment for the given variants without
	// creating any entries. Used to hydrate a restored guest wishlist.
	Enrich(ctx context.Context, shop string, productVariantIDs []string) (*domain.SyncPayload, error)
}

// Doer abstracts the underlying HTTP client so the API client can run behind
// either the plain retrying client or the circuit breaker wrapper.
type Doer interface {
	Do(ctx context.Context, req *http.Request) (*http.Response, error)
}

// APIClient talks to the wishlist API using its form-encoded action protocol:
// reads are GET with query parameters, writes are POST forms dispatched on the
// "_action" field.
type APIClient struct {
	http   Doer
	appURL string
}

// NewAPIClient creates a wishlist API client rooted at appURL.
func NewAPIClient(appURL string, doer Doer) *APIClient {
	return &APIClient{
		http:   doer,
		appURL: strings.TrimRight(appURL, "/"),
	}
}

func (c *APIClient) endpoint() string {
	return c.appURL + "/api/wishlist"
}

// FetchAll implements Remote.
func (c *APIClient) FetchAll(ctx context.Context, customerID, shop string) (*domain.SyncPayload, error) {
	q := url.Values{}
	q.Set("customer", customerID)
	q.Set("shop", shop)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint()+"?"+q.Encode(), http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create fetch request: %w", err)
	}
	return c.send(ctx, req)
}

// Mutate implements Remote.
func (c *APIClient) Mutate(ctx context.Context, kind ActionKind, entry domain.WishlistEntry) (*domain.SyncPayload, error) {
	form := url.Values{}
	form.Set("_action", string(kind))
	form.Set("shop", entry.Shop)
	form.Set("productVariantId", entry.ProductVariantID)
	if entry.CustomerID != "" {
		form.Set("customer", entry.CustomerID)
	}
	if entry.ProductHandle != "" {
		form.Set("productHandle", entry.ProductHandle)
	}
	return c.postForm(ctx, form)
}

// BulkAdd implements Remote.
func (c *APIClient) BulkAdd(ctx context.Context, customerID, shop string, productVariantIDs []string) (*domain.SyncPayload, error) {
	data, err := json.Marshal(productVariantIDs)
	if err != nil {
		return nil, fmt.Errorf("marshal variant ids: %w", err)
	}

	form := url.Values{}
	form.Set("_action", "bulkCreate")
	form.Set("customer", customerID)
	form.Set("shop", shop)
	form.Set("data", string(data))
	return c.postForm(ctx, form)
}

// Search implements Remote.
func (c *APIClient) Search(ctx context.Context, customerID, shop, query string) (*domain.SyncPayload, error) {
	form := url.Values{}
	form.Set("_action", string(ActionSearch))
	form.Set("customer", customerID)
	form.Set("shop", shop)
	form.Set("query", query)
	return c.postForm(ctx, form)
}

// Enrich implements Remote.
func (c *APIClient) Enrich(ctx context.Context, shop string, productVariantIDs []string) (*domain.SyncPayload, error) {
	data, err := json.Marshal(productVariantIDs)
	if err != nil {
		return nil, fmt.Errorf("marshal variant ids: %w", err)
	}

	form := url.Values{}
	form.Set("_action", string(ActionFetch))
	form.Set("shop", shop)
	form.Set("data", string(data))
	return c.postForm(ctx, form)
}

func (c *APIClient) postForm(ctx context.Context, form url.Values) (*domain.SyncPayload, error) {
	req, err := http.NewRequest(http.MethodPost, c.endpoint(), strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("create action request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return c.send(ctx, req)
}

// send executes the request and classifies the outcome: transport failures map
// to ErrNetworkFailure, non-2xx statuses to ErrServerError, undecodable bodies
// to ErrMalformedResponse.
func (c *APIClient) send(ctx context.Context, req *http.Request) (*domain.SyncPayload, error) {
	resp, err := c.http.Do(ctx, req)
	if err != nil {
		if errors.Is(err, apperrors.ErrServerError) || errors.Is(err, httpclient.ErrCircuitOpen) {
			return nil, fmt.Errorf("%w: wishlist api: %w", apperrors.ErrServerError, err)
		}
		return nil, fmt.Errorf("%w: wishlist api: %w", apperrors.ErrNetworkFailure, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, httpclient.ParseResponseError(resp, "wishlist-api")
	}

	var payload domain.SyncPayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("%w: decode wishlist payload: %w", apperrors.ErrMalformedResponse, err)
	}
	return &payload, nil
}
