package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/surya9490/wishlist/internal/domain"
	apperrors "github.com/surya9490/wishlist/pkg/errors"
	"github.com/surya9490/wishlist/pkg/httputil"
	"github.com/surya9490/wishlist/pkg/validator"
)

// WishlistService is the service surface the handler dispatches to.
type WishlistService interface {
	Fetch(ctx context.Context, customerID, shop string) (*domain.SyncPayload, error)
	Add(ctx context.Context, entry domain.WishlistEntry) (*domain.SyncPayload, error)
	Remove(ctx context.Context, customerID, productVariantID, shop string) (*domain.SyncPayload, error)
	BulkCreate(ctx context.Context, customerID, shop string, productVariantIDs []string) (*domain.SyncPayload, error)
	FetchVariants(ctx context.Context, shop string, productVariantIDs []string) (*domain.SyncPayload, error)
	Search(ctx context.Context, customerID, shop, query string) (*domain.SyncPayload, error)
}

// WishlistHandler serves the widget-facing wishlist endpoint. Reads are GET
// with query parameters; writes are POST forms dispatched on the "_action"
// field, mirroring what the storefront widget sends.
type WishlistHandler struct {
	svc    WishlistService
	logger *slog.Logger
}

// NewWishlistHandler creates a new wishlist handler.
func NewWishlistHandler(svc WishlistService, logger *slog.Logger) *WishlistHandler {
	return &WishlistHandler{svc: svc, logger: logger}
}

type fetchQuery struct {
	Customer string `validate:"required"`
	Shop     string `validate:"required,hostname"`
}

// Fetch handles GET /api/wishlist?customer=...&shop=...
func (h *WishlistHandler) Fetch(w http.ResponseWriter, r *http.Request) {
	q := fetchQuery{
		Customer: r.URL.Query().Get("customer"),
		Shop:     r.URL.Query().Get("shop"),
	}
	if err := validator.Validate(q); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	payload, err := h.svc.Fetch(r.Context(), q.Customer, q.Shop)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, payload)
}

// Action handles POST /api/wishlist, dispatching on the "_action" form field.
func (h *WishlistHandler) Action(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		httputil.WriteError(w, r, apperrors.InvalidInput("malformed form body"), h.logger)
		return
	}

	action := r.PostForm.Get("_action")
	switch action {
	case "add":
		h.add(w, r)
	case "remove":
		h.remove(w, r)
	case "bulkCreate":
		h.bulkCreate(w, r)
	case "fetch":
		h.fetchVariants(w, r)
	case "search":
		h.search(w, r)
	default:
		httputil.WriteError(w, r, apperrors.InvalidInput("unknown action: "+action), h.logger)
	}
}

type addForm struct {
	Customer         string `validate:"required"`
	Shop             string `validate:"required,hostname"`
	ProductVariantID string `validate:"required"`
}

func (h *WishlistHandler) add(w http.ResponseWriter, r *http.Request) {
	form := addForm{
		Customer:         r.PostForm.Get("customer"),
		Shop:             r.PostForm.Get("shop"),
		ProductVariantID: r.PostForm.Get("productVariantId"),
	}
	if err := validator.Validate(form); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	payload, err := h.svc.Add(r.Context(), domain.WishlistEntry{
		CustomerID:       form.Customer,
		ProductVariantID: form.ProductVariantID,
		ProductHandle:    r.PostForm.Get("productHandle"),
		Shop:             form.Shop,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, payload)
}

func (h *WishlistHandler) remove(w http.ResponseWriter, r *http.Request) {
	form := addForm{
		Customer:         r.PostForm.Get("customer"),
		Shop:             r.PostForm.Get("shop"),
		ProductVariantID: r.PostForm.Get("productVariantId"),
	}
	if err := validator.Validate(form); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	payload, err := h.svc.Remove(r.Context(), form.Customer, form.ProductVariantID, form.Shop)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, payload)
}

type bulkForm struct {
	Customer string `validate:"required"`
	Shop     string `validate:"required,hostname"`
}

func (h *WishlistHandler) bulkCreate(w http.ResponseWriter, r *http.Request) {
	form := bulkForm{
		Customer: r.PostForm.Get("customer"),
		Shop:     r.PostForm.Get("shop"),
	}
	if err := validator.Validate(form); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	ids, err := parseIDList(r.PostForm.Get("data"))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	payload, err := h.svc.BulkCreate(r.Context(), form.Customer, form.Shop, ids)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, payload)
}

func (h *WishlistHandler) fetchVariants(w http.ResponseWriter, r *http.Request) {
	shop := r.PostForm.Get("shop")
	if shop == "" {
		httputil.WriteError(w, r, apperrors.InvalidInput("shop is required"), h.logger)
		return
	}

	// Either a JSON id list in "data" or a single "productVariantId".
	var ids []string
	if data := r.PostForm.Get("data"); data != "" {
		parsed, err := parseIDList(data)
		if err != nil {
			httputil.WriteError(w, r, err, h.logger)
			return
		}
		ids = parsed
	} else if id := r.PostForm.Get("productVariantId"); id != "" {
		ids = []string{id}
	} else {
		httputil.WriteError(w, r, apperrors.InvalidInput("data or productVariantId is required"), h.logger)
		return
	}

	payload, err := h.svc.FetchVariants(r.Context(), shop, ids)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, payload)
}

func (h *WishlistHandler) search(w http.ResponseWriter, r *http.Request) {
	form := bulkForm{
		Customer: r.PostForm.Get("customer"),
		Shop:     r.PostForm.Get("shop"),
	}
	if err := validator.Validate(form); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	payload, err := h.svc.Search(r.Context(), form.Customer, form.Shop, r.PostForm.Get("query"))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, payload)
}

func parseIDList(data string) ([]string, error) {
	if data == "" {
		return nil, apperrors.InvalidInput("data is required")
	}
	var ids []string
	if err := json.Unmarshal([]byte(data), &ids); err != nil {
		return nil, apperrors.InvalidInput("data must be a JSON array of variant ids")
	}
	return ids, nil
}
