package widget

// ActionKind names a wishlist operation. The same vocabulary tags published
// state updates and travels on the wire as the API's "_action" form field.
type ActionKind string

const (
	// ActionLoad tags the initial reconciliation publish.
	ActionLoad ActionKind = "load"

	// ActionAdd creates a server-side wishlist entry for a customer.
	ActionAdd ActionKind = "add"

	// ActionRemove deletes an entry (server-side for customers, local for guests).
	ActionRemove ActionKind = "remove"

	// ActionFetch is the guest add path: enrichment is retrieved in the same
	// round trip because guest sessions have no pre-populated display cache.
	ActionFetch ActionKind = "fetch"

	// ActionSearch filters the panel projection without touching membership.
	ActionSearch ActionKind = "search"

	// ActionView re-publishes the current projection, e.g. when the panel opens.
	ActionView ActionKind = "view"
)

// Action is a user intent handed to the engine.
type Action struct {
	Kind             ActionKind
	ProductVariantID string
	ProductHandle    string
	Query            string
}
