package domain

import "strings"

// WishlistEntry is a single wishlisted product variant. Guest entries carry no
// CustomerID; the shop domain always scopes the entry because one storefront
// widget install serves exactly one shop.
//
// JSON tags follow the wire format shared by the widget and the API.
type WishlistEntry struct {
	ProductVariantID string `json:"productVariantId"`
	ProductHandle    string `json:"productHandle,omitempty"`
	ProductTitle     string `json:"productTitle,omitempty"`
	Shop             string `json:"shop"`
	CustomerID       string `json:"customerId,omitempty"`
}

// Identity is the membership key for a wishlist entry: variant scoped by shop.
// CustomerID intentionally does not participate; within one page session all
// entries belong to the same shopper.
type Identity struct {
	ProductVariantID string
	Shop             string
}

// Identity returns the entry's membership key.
func (e WishlistEntry) Identity() Identity {
	return Identity{ProductVariantID: e.ProductVariantID, Shop: e.Shop}
}

// VariantDetail is display-only enrichment for a variant, fetched from the
// product catalog. It is never authoritative: the engine replaces it wholesale
// per fetch and never mutates individual fields.
type VariantDetail struct {
	ID                string      `json:"id"`
	Title             string      `json:"title"`
	SKU               string      `json:"sku,omitempty"`
	Price             string      `json:"price"`
	CompareAtPrice    string      `json:"compareAtPrice,omitempty"`
	InventoryQuantity int         `json:"inventoryQuantity"`
	Image             *Image      `json:"image,omitempty"`
	Product           ProductInfo `json:"product"`
}

// Image is a catalog image reference.
type Image struct {
	URL string `json:"url"`
}

// ProductInfo is the parent-product slice of a variant's enrichment.
type ProductInfo struct {
	Title         string `json:"title"`
	Handle        string `json:"handle"`
	Description   string `json:"description,omitempty"`
	FeaturedMedia *Media `json:"featuredMedia,omitempty"`
}

// Media mirrors the catalog's featured-media preview nesting.
type Media struct {
	Preview MediaPreview `json:"preview"`
}

// MediaPreview holds the preview image of a media attachment.
type MediaPreview struct {
	Image *Image `json:"image,omitempty"`
}

// VariantID returns the bare numeric variant id for a detail whose ID may be a
// catalog GID ("gid://shopify/ProductVariant/123" -> "123").
func (v VariantDetail) VariantID() string {
	if i := strings.LastIndex(v.ID, "/"); i >= 0 {
		return v.ID[i+1:]
	}
	return v.ID
}

// ImageURL returns the best display image for the variant: its own image if
// present, otherwise the parent product's featured media preview. Empty string
// means the renderer should fall back to a placeholder.
func (v VariantDetail) ImageURL() string {
	if v.Image != nil && v.Image.URL != "" {
		return v.Image.URL
	}
	if m := v.Product.FeaturedMedia; m != nil && m.Preview.Image != nil {
		return m.Preview.Image.URL
	}
	return ""
}

// WishlistState is the canonical in-memory wishlist for one page session.
// Membership lives in Wishlisted; VariantData is a display cache keyed by
// variant identity with at most one item per entry (absence tolerated,
// duplicates never produced by this package's mutations).
type WishlistState struct {
	Wishlisted  []WishlistEntry `json:"wishlisted"`
	VariantData []VariantDetail `json:"variantData"`
}

// NewState returns an empty wishlist state.
func NewState() *WishlistState {
	return &WishlistState{
		Wishlisted:  []WishlistEntry{},
		VariantData: []VariantDetail{},
	}
}

// Contains reports whether the identity is currently wishlisted.
func (s *WishlistState) Contains(id Identity) bool {
	for i := range s.Wishlisted {
		if s.Wishlisted[i].Identity() == id {
			return true
		}
	}
	return false
}

// ContainsVariant reports membership by bare variant id, ignoring shop scope.
func (s *WishlistState) ContainsVariant(productVariantID string) bool {
	for i := range s.Wishlisted {
		if s.Wishlisted[i].ProductVariantID == productVariantID {
			return true
		}
	}
	return false
}

// ContainsHandle reports membership by product handle. Used when the identity
// policy tracks products rather than variants.
func (s *WishlistState) ContainsHandle(productHandle string) bool {
	for i := range s.Wishlisted {
		if s.Wishlisted[i].ProductHandle == productHandle {
			return true
		}
	}
	return false
}

// AddEntries appends entries whose identity is not already present and returns
// how many were added. This is the single de-duplication point for both the
// reconciliation merge and per-action merges.
func (s *WishlistState) AddEntries(entries ...WishlistEntry) int {
	added := 0
	for _, e := range entries {
		if s.Contains(e.Identity()) {
			continue
		}
		s.Wishlisted = append(s.Wishlisted, e)
		added++
	}
	return added
}

// AddVariantData appends enrichment records not already cached, keyed by bare
// variant id so a GID-keyed record and a numeric-keyed record of the same
// variant never coexist.
func (s *WishlistState) AddVariantData(details ...VariantDetail) {
	for _, d := range details {
		if d.ID == "" {
			continue
		}
		exists := false
		for i := range s.VariantData {
			if s.VariantData[i].VariantID() == d.VariantID() {
				exists = true
				break
			}
		}
		if !exists {
			s.VariantData = append(s.VariantData, d)
		}
	}
}

// Remove drops the entry matching the identity together with its cached
// enrichment. Returns true if an entry was removed.
func (s *WishlistState) Remove(id Identity) bool {
	removed := false
	for i := range s.Wishlisted {
		if s.Wishlisted[i].Identity() == id {
			s.Wishlisted = append(s.Wishlisted[:i], s.Wishlisted[i+1:]...)
			removed = true
			break
		}
	}
	if removed {
		for i := range s.VariantData {
			if s.VariantData[i].VariantID() == id.ProductVariantID {
				s.VariantData = append(s.VariantData[:i], s.VariantData[i+1:]...)
				break
			}
		}
	}
	return removed
}

// RemoveByHandle drops all entries for a product handle (one product may span
// several variants) and their cached enrichment. Returns true if any entry was
// removed.
func (s *WishlistState) RemoveByHandle(productHandle string) bool {
	removed := false
	kept := s.Wishlisted[:0]
	dropped := make(map[string]struct{})
	for _, e := range s.Wishlisted {
		if e.ProductHandle == productHandle {
			dropped[e.ProductVariantID] = struct{}{}
			removed = true
			continue
		}
		kept = append(kept, e)
	}
	s.Wishlisted = kept

	if removed {
		keptData := s.VariantData[:0]
		for _, d := range s.VariantData {
			if _, ok := dropped[d.VariantID()]; ok {
				continue
			}
			keptData = append(keptData, d)
		}
		s.VariantData = keptData
	}
	return removed
}

// FilterVariantData returns the enrichment records whose product title
// contains the query, case-insensitively. An empty query returns everything.
// The receiver is not modified.
func (s *WishlistState) FilterVariantData(query string) []VariantDetail {
	query = strings.ToLower(strings.TrimSpace(query))
	out := make([]VariantDetail, 0, len(s.VariantData))
	for _, d := range s.VariantData {
		if query == "" || strings.Contains(strings.ToLower(d.Product.Title), query) {
			out = append(out, d)
		}
	}
	return out
}

// Count returns the number of wishlisted entries.
func (s *WishlistState) Count() int {
	return len(s.Wishlisted)
}

// IsEmpty reports whether no entries are wishlisted.
func (s *WishlistState) IsEmpty() bool {
	return len(s.Wishlisted) == 0
}

// Clone returns a deep copy so callers can hand state to subscribers without
// exposing the canonical slices to mutation.
func (s *WishlistState) Clone() *WishlistState {
	cp := &WishlistState{
		Wishlisted:  make([]WishlistEntry, len(s.Wishlisted)),
		VariantData: make([]VariantDetail, len(s.VariantData)),
	}
	copy(cp.Wishlisted, s.Wishlisted)
	copy(cp.VariantData, s.VariantData)
	return cp
}

// SyncPayload is the wire envelope shared by the wishlist API and the widget:
// every successful response carries some subset of these fields.
type SyncPayload struct {
	Message     string          `json:"message,omitempty"`
	Wishlisted  []WishlistEntry `json:"wishlisted,omitempty"`
	VariantData []VariantDetail `json:"variantData,omitempty"`
	Count       int             `json:"count,omitempty"`
}
