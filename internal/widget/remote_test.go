package widget

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/surya9490/wishlist/internal/domain"
	apperrors "github.com/surya9490/wishlist/pkg/errors"
	"github.com/surya9490/wishlist/pkg/httpclient"
)

func newTestAPIClient(t *testing.T, handler http.HandlerFunc) *APIClient {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	hc := httpclient.New(httpclient.Config{Timeout: 5 * time.Second, MaxRetries: 0})
	return NewAPIClient(srv.URL, hc)
}

func TestAPIClient_FetchAll(t *testing.T) {
	client := newTestAPIClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/wishlist", r.URL.Path)
		assert.Equal(t, "cust-1", r.URL.Query().Get("customer"))
		assert.Equal(t, "demo.myshopify.com", r.URL.Query().Get("shop"))

		_ = json.NewEncoder(w).Encode(domain.SyncPayload{
			Wishlisted: []domain.WishlistEntry{{ProductVariantID: "111", Shop: "demo.myshopify.com"}},
			Count:      1,
		})
	})

	payload, err := client.FetchAll(context.Background(), "cust-1", "demo.myshopify.com")
	require.NoError(t, err)
	require.Len(t, payload.Wishlisted, 1)
	assert.Equal(t, "111", payload.Wishlisted[0].ProductVariantID)
}

func TestAPIClient_MutateSendsFormAction(t *testing.T) {
	client := newTestAPIClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "add", r.PostForm.Get("_action"))
		assert.Equal(t, "cust-1", r.PostForm.Get("customer"))
		assert.Equal(t, "111", r.PostForm.Get("productVariantId"))
		assert.Equal(t, "hat", r.PostForm.Get("productHandle"))
		assert.Equal(t, "demo.myshopify.com", r.PostForm.Get("shop"))

		_ = json.NewEncoder(w).Encode(domain.SyncPayload{Message: "Added"})
	})

	payload, err := client.Mutate(context.Background(), ActionAdd, domain.WishlistEntry{
		ProductVariantID: "111",
		ProductHandle:    "hat",
		Shop:             "demo.myshopify.com",
		CustomerID:       "cust-1",
	})
	require.NoError(t, err)
	assert.Equal(t, "Added", payload.Message)
}

func TestAPIClient_BulkAddEncodesIDsAsJSON(t *testing.T) {
	client := newTestAPIClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "bulkCreate", r.PostForm.Get("_action"))

		var ids []string
		require.NoError(t, json.Unmarshal([]byte(r.PostForm.Get("data")), &ids))
		assert.Equal(t, []string{"111", "222"}, ids)

		_ = json.NewEncoder(w).Encode(domain.SyncPayload{Count: 2})
	})

	payload, err := client.BulkAdd(context.Background(), "cust-1", "demo.myshopify.com", []string{"111", "222"})
	require.NoError(t, err)
	assert.Equal(t, 2, payload.Count)
}

func TestAPIClient_SearchSendsQuery(t *testing.T) {
	client := newTestAPIClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "search", r.PostForm.Get("_action"))
		assert.Equal(t, "wool", r.PostForm.Get("query"))

		_ = json.NewEncoder(w).Encode(domain.SyncPayload{})
	})

	_, err := client.Search(context.Background(), "cust-1", "demo.myshopify.com", "wool")
	require.NoError(t, err)
}

func TestAPIClient_ServerErrorKind(t *testing.T) {
	client := newTestAPIClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	})

	_, err := client.FetchAll(context.Background(), "cust-1", "demo.myshopify.com")
	require.Error(t, err)
	assert.Equal(t, "server-error", apperrors.Kind(err))
}

func TestAPIClient_MalformedResponseKind(t *testing.T) {
	client := newTestAPIClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html>not json</html>"))
	})

	_, err := client.FetchAll(context.Background(), "cust-1", "demo.myshopify.com")
	require.Error(t, err)
	assert.Equal(t, "malformed-response", apperrors.Kind(err))
}

func TestAPIClient_NetworkFailureKind(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close() // nothing listens anymore

	hc := httpclient.New(httpclient.Config{Timeout: time.Second, MaxRetries: 0})
	client := NewAPIClient(srv.URL, hc)

	_, err := client.FetchAll(context.Background(), "cust-1", "demo.myshopify.com")
	require.Error(t, err)
	assert.Equal(t, "network-failure", apperrors.Kind(err))
}
