package widget

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/surya9490/wishlist/internal/domain"
	"github.com/surya9490/wishlist/pkg/bus"
	apperrors "github.com/surya9490/wishlist/pkg/errors"
)

var widgetActions = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "wishlist_widget_actions_total",
		Help: "Wishlist widget actions by kind and outcome",
	},
	[]string{"action", "outcome"},
)

// searchKey is the debounce key shared by all search triggers so keystrokes
// coalesce with each other but never with icon clicks.
const searchKey = "\x00search"

// Engine owns the canonical wishlist state for one page session. It
// reconciles guest and server state once at startup, applies user actions
// with a confirmed-then-applied discipline (state changes only after the
// backing store acknowledged, guest removals excepted since the local store
// is the backing store), and publishes every change on the bus. No method
// panics; every failure is logged and surfaced as a toast.
type Engine struct {
	opts   Options
	guest  GuestStore
	remote Remote
	bus    *bus.Bus
	logger *slog.Logger

	mu    sync.Mutex
	state *domain.WishlistState
	query string

	deb *debouncer

	locksMu sync.Mutex
	locks   map[string]*sync.Mutex

	once sync.Once
}

// New creates an engine. Nothing is loaded or published until Reconcile runs.
func New(opts Options, guest GuestStore, remote Remote, b *bus.Bus, logger *slog.Logger) *Engine {
	opts = opts.withDefaults()
	return &Engine{
		opts:   opts,
		guest:  guest,
		remote: remote,
		bus:    b,
		logger: logger.With(slog.String("component", "wishlist-engine"), slog.String("shop", opts.Shop)),
		state:  domain.NewState(),
		deb:    newDebouncer(opts.DebounceWindow),
		locks:  make(map[string]*sync.Mutex),
	}
}

// Close cancels pending debounced actions.
func (e *Engine) Close() {
	e.deb.close()
}

// State returns a deep copy of the current wishlist.
func (e *Engine) State() domain.WishlistState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return *e.state.Clone()
}

// Reconcile establishes the session's canonical state and publishes it with
// the "load" tag. For a customer it fetches the server wishlist, merges any
// guest leftovers via a bulk add, and clears the guest store only once that
// merge has succeeded (or was vacuous). For a guest it restores the stored
// entries and hydrates their enrichment. Reconcile runs its work once; later
// calls just republish.
func (e *Engine) Reconcile(ctx context.Context) domain.WishlistState {
	e.once.Do(func() {
		if e.opts.CustomerID != "" {
			e.reconcileCustomer(ctx)
		} else {
			e.reconcileGuest(ctx)
		}
	})
	e.publishUpdate(ActionLoad)
	return e.State()
}

func (e *Engine) reconcileCustomer(ctx context.Context) {
	st := domain.NewState()

	payload, err := e.remote.FetchAll(ctx, e.opts.CustomerID, e.opts.Shop)
	if err != nil {
		e.logger.ErrorContext(ctx, "wishlist fetch failed", slog.String("error", err.Error()))
		e.toastError(err)
		widgetActions.WithLabelValues(string(ActionLoad), "error").Inc()
		return
	}
	st.AddEntries(payload.Wishlisted...)
	st.AddVariantData(payload.VariantData...)

	guestEntries, err := e.guest.Load(ctx)
	if err != nil {
		// Unreadable guest slot: keep it for a later attempt, serve the
		// server wishlist as-is.
		e.logger.WarnContext(ctx, "guest store load failed", slog.String("error", err.Error()))
		guestEntries = nil
	}

	newItems := make([]domain.WishlistEntry, 0, len(guestEntries))
	for _, g := range guestEntries {
		if !st.Contains(g.Identity()) {
			g.CustomerID = e.opts.CustomerID
			newItems = append(newItems, g)
		}
	}

	switch {
	case len(guestEntries) == 0:
		// Nothing to merge.
	case len(newItems) == 0:
		// Every guest entry already exists server-side; the merge is
		// vacuously complete.
		e.clearGuest(ctx)
	default:
		ids := make([]string, len(newItems))
		for i, it := range newItems {
			ids[i] = it.ProductVariantID
		}
		merged, err := e.remote.BulkAdd(ctx, e.opts.CustomerID, e.opts.Shop, ids)
		if err != nil {
			// Guest store stays intact so the merge can retry next session.
			e.logger.ErrorContext(ctx, "guest wishlist merge failed",
				slog.Int("items", len(newItems)),
				slog.String("error", err.Error()),
			)
			e.toast(apperrors.Kind(apperrors.SyncFailed(err)), e.opts.Toaster.Messages.Error)
			widgetActions.WithLabelValues(string(ActionLoad), "sync_failed").Inc()
		} else {
			st.AddEntries(newItems...)
			st.AddEntries(merged.Wishlisted...)
			st.AddVariantData(merged.VariantData...)
			e.clearGuest(ctx)
		}
	}

	e.mu.Lock()
	e.state = st
	e.mu.Unlock()
	widgetActions.WithLabelValues(string(ActionLoad), "success").Inc()
}

func (e *Engine) reconcileGuest(ctx context.Context) {
	st := domain.NewState()

	entries, err := e.guest.Load(ctx)
	if err != nil {
		e.logger.WarnContext(ctx, "guest store load failed", slog.String("error", err.Error()))
		entries = nil
	}
	st.AddEntries(entries...)

	if len(entries) > 0 {
		ids := make([]string, len(entries))
		for i, it := range entries {
			ids[i] = it.ProductVariantID
		}
		payload, err := e.remote.Enrich(ctx, e.opts.Shop, ids)
		if err != nil {
			// Membership survives without enrichment; the panel shows what
			// it can.
			e.logger.WarnContext(ctx, "guest enrichment failed", slog.String("error", err.Error()))
			e.toastError(err)
		} else {
			st.AddVariantData(payload.VariantData...)
		}
	}

	e.mu.Lock()
	e.state = st
	e.mu.Unlock()
	widgetActions.WithLabelValues(string(ActionLoad), "success").Inc()
}

// Toggle handles a wishlist icon click. The concrete operation is derived at
// execution time, after the debounce window: remove when the item is a
// member, otherwise add (customers) or fetch (guests). Rapid clicks on the
// same item coalesce into the final state.
func (e *Engine) Toggle(ctx context.Context, productVariantID, productHandle string) {
	if e.opts.CustomerID == "" && !e.opts.GuestWishlist {
		e.toast("login-required", "Please log in to use the wishlist")
		return
	}
	key := e.identityKey(productVariantID, productHandle)
	e.deb.trigger(key, func() {
		e.runToggle(ctx, productVariantID, productHandle)
	})
}

// HandleAction dispatches an explicit action. Mutations funnel through the
// same debounce and per-identity serialization as Toggle.
func (e *Engine) HandleAction(ctx context.Context, a Action) {
	switch a.Kind {
	case ActionAdd, ActionRemove, ActionFetch:
		key := e.identityKey(a.ProductVariantID, a.ProductHandle)
		kind := a.Kind
		e.deb.trigger(key, func() {
			e.withIdentityLock(key, func() {
				e.execute(ctx, kind, a.ProductVariantID, a.ProductHandle)
			})
		})
	case ActionSearch:
		e.deb.trigger(searchKey, func() {
			e.runSearch(ctx, a.Query)
		})
	case ActionView:
		e.publishUpdate(ActionView)
	default:
		e.logger.Warn("unknown wishlist action", slog.String("action", string(a.Kind)))
	}
}

// Search filters the panel projection. Keystrokes debounce against each
// other; membership is never touched.
func (e *Engine) Search(ctx context.Context, query string) {
	e.HandleAction(ctx, Action{Kind: ActionSearch, Query: query})
}

// VariantChange announces that a product page now displays a different
// variant. Icon projections retarget and re-derive membership; no network
// call is made.
func (e *Engine) VariantChange(iconID, productVariantID string) {
	e.bus.Publish(TopicVariantChange, VariantChange{
		IconID:           iconID,
		ProductVariantID: productVariantID,
	})
}

// identityKey is the debounce and serialization key for one item under the
// active identity policy.
func (e *Engine) identityKey(productVariantID, productHandle string) string {
	if e.opts.VariantChange {
		return "v:" + productVariantID
	}
	return "h:" + productHandle
}

func (e *Engine) withIdentityLock(key string, fn func()) {
	e.locksMu.Lock()
	l, ok := e.locks[key]
	if !ok {
		l = &sync.Mutex{}
		e.locks[key] = l
	}
	e.locksMu.Unlock()

	l.Lock()
	defer l.Unlock()
	fn()
}

func (e *Engine) runToggle(ctx context.Context, productVariantID, productHandle string) {
	key := e.identityKey(productVariantID, productHandle)
	e.withIdentityLock(key, func() {
		// Derive against the state visible now, not at click time.
		e.mu.Lock()
		var member bool
		if e.opts.VariantChange {
			member = e.state.ContainsVariant(productVariantID)
		} else {
			member = e.state.ContainsHandle(productHandle)
		}
		e.mu.Unlock()

		var kind ActionKind
		switch {
		case member:
			kind = ActionRemove
		case e.opts.CustomerID != "":
			kind = ActionAdd
		default:
			kind = ActionFetch
		}
		e.execute(ctx, kind, productVariantID, productHandle)
	})
}

// execute performs one confirmed mutation. State is only touched after the
// backing store acknowledged; failures leave state untouched and surface as
// an action-failed toast.
func (e *Engine) execute(ctx context.Context, kind ActionKind, productVariantID, productHandle string) {
	entry := domain.WishlistEntry{
		ProductVariantID: productVariantID,
		ProductHandle:    productHandle,
		Shop:             e.opts.Shop,
		CustomerID:       e.opts.CustomerID,
	}

	switch kind {
	case ActionAdd:
		payload, err := e.remote.Mutate(ctx, ActionAdd, entry)
		if err != nil {
			e.fail(ctx, kind, entry, err)
			return
		}
		e.mu.Lock()
		e.state.AddEntries(entry)
		e.state.AddEntries(payload.Wishlisted...)
		e.state.AddVariantData(payload.VariantData...)
		e.mu.Unlock()
		e.settle(kind, e.opts.Toaster.Messages.Add)

	case ActionFetch:
		// Guest add: membership is local but enrichment comes from the same
		// round trip, so a dead backend still fails the action.
		payload, err := e.remote.Mutate(ctx, ActionFetch, entry)
		if err != nil {
			e.fail(ctx, kind, entry, err)
			return
		}
		e.mu.Lock()
		e.state.AddEntries(entry)
		e.state.AddVariantData(payload.VariantData...)
		e.mu.Unlock()
		e.persistGuest(ctx)
		e.settle(kind, e.opts.Toaster.Messages.Add)

	case ActionRemove:
		if e.opts.CustomerID == "" {
			// Guest removal is purely local: the guest store is the backing
			// store and it is updated below.
			e.mu.Lock()
			removed := e.removeLocked(productVariantID, productHandle)
			e.mu.Unlock()
			if !removed {
				widgetActions.WithLabelValues(string(kind), "noop").Inc()
				return
			}
			e.persistGuest(ctx)
			e.settle(kind, e.opts.Toaster.Messages.Remove)
			return
		}
		if _, err := e.remote.Mutate(ctx, ActionRemove, entry); err != nil {
			e.fail(ctx, kind, entry, err)
			return
		}
		e.mu.Lock()
		e.removeLocked(productVariantID, productHandle)
		e.mu.Unlock()
		e.settle(kind, e.opts.Toaster.Messages.Remove)
	}
}

// removeLocked removes under the active identity policy. Caller holds e.mu.
func (e *Engine) removeLocked(productVariantID, productHandle string) bool {
	if e.opts.VariantChange {
		return e.state.Remove(domain.Identity{ProductVariantID: productVariantID, Shop: e.opts.Shop})
	}
	return e.state.RemoveByHandle(productHandle)
}

func (e *Engine) runSearch(ctx context.Context, query string) {
	query = strings.TrimSpace(query)

	if query != "" && e.opts.CustomerID != "" {
		payload, err := e.remote.Search(ctx, e.opts.CustomerID, e.opts.Shop, query)
		if err != nil {
			// The panel keeps its previous projection.
			e.logger.WarnContext(ctx, "wishlist search failed",
				slog.String("query", query),
				slog.String("error", err.Error()),
			)
			e.toastError(apperrors.ActionFailed(string(ActionSearch), err))
			widgetActions.WithLabelValues(string(ActionSearch), "error").Inc()
			return
		}
		// Fill enrichment holes; the projection itself is recomputed from
		// canonical state so later mutations stay visible under the filter.
		e.mu.Lock()
		e.state.AddVariantData(payload.VariantData...)
		e.mu.Unlock()
	}

	e.mu.Lock()
	e.query = query
	e.mu.Unlock()
	e.publishUpdate(ActionSearch)
	widgetActions.WithLabelValues(string(ActionSearch), "success").Inc()
}

func (e *Engine) persistGuest(ctx context.Context) {
	e.mu.Lock()
	entries := make([]domain.WishlistEntry, len(e.state.Wishlisted))
	copy(entries, e.state.Wishlisted)
	e.mu.Unlock()

	if err := e.guest.Save(ctx, entries); err != nil {
		e.logger.ErrorContext(ctx, "guest store save failed", slog.String("error", err.Error()))
	}
}

func (e *Engine) clearGuest(ctx context.Context) {
	if err := e.guest.Clear(ctx); err != nil {
		e.logger.WarnContext(ctx, "guest store clear failed", slog.String("error", err.Error()))
	}
}

func (e *Engine) settle(kind ActionKind, message string) {
	e.publishUpdate(kind)
	e.toast(string(kind), message)
	widgetActions.WithLabelValues(string(kind), "success").Inc()
}

func (e *Engine) fail(ctx context.Context, kind ActionKind, entry domain.WishlistEntry, err error) {
	wrapped := apperrors.ActionFailed(string(kind), err)
	e.logger.ErrorContext(ctx, "wishlist action failed",
		slog.String("action", string(kind)),
		slog.String("product_variant_id", entry.ProductVariantID),
		slog.String("error", err.Error()),
	)
	e.toastError(wrapped)
	widgetActions.WithLabelValues(string(kind), "error").Inc()
}

// publishUpdate snapshots state under the lock and fans it out.
func (e *Engine) publishUpdate(kind ActionKind) {
	e.mu.Lock()
	u := Update{
		Action: kind,
		State:  *e.state.Clone(),
		Panel:  e.state.FilterVariantData(e.query),
		Query:  e.query,
		Count:  e.state.Count(),
	}
	e.mu.Unlock()

	e.bus.Publish(TopicUpdated, u)
}

func (e *Engine) toast(kind, message string) {
	if !e.opts.Toaster.Enabled {
		return
	}
	e.bus.Publish(TopicToast, Toast{Kind: kind, Message: message})
}

func (e *Engine) toastError(err error) {
	e.toast(apperrors.Kind(err), e.opts.Toaster.Messages.Error)
}
