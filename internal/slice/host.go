package slice

import (
	"context"
	"log"
	"sync"

	"github.com/kevicsalazar/appactions-kotlin/internal/deeplink"
	"github.com/kevicsalazar/appactions-kotlin/internal/observability"
)

// Host pins one live view per slice URI and renders binds on the shared
// render loop.
type Host struct {
	mu          sync.Mutex
	views       map[string]*View
	fetcher     Fetcher
	loop        *RenderLoop
	broadcaster *Broadcaster
	count       int
	logger      *log.Logger
}

// NewHost constructs a Host. count bounds how many recent records each
// slice fetches.
func NewHost(fetcher Fetcher, loop *RenderLoop, broadcaster *Broadcaster, count int, logger *log.Logger) *Host {
	if logger == nil {
		logger = log.New(log.Writer(), "[slicehost] ", log.LstdFlags)
	}
	return &Host{
		views:       make(map[string]*View),
		fetcher:     fetcher,
		loop:        loop,
		broadcaster: broadcaster,
		count:       count,
		logger:      logger,
	}
}

// Changes exposes the broadcaster so ingestion can notify pinned views.
func (h *Host) Changes() *Broadcaster {
	return h.broadcaster
}

// Bind resolves the target URI to a pinned view, creating it on first bind,
// and returns the view's current render.
func (h *Host) Bind(ctx context.Context, tenantID string, target deeplink.Target) Slice {
	view := h.pin(ctx, tenantID, target)

	var rendered Slice
	if !h.loop.Do(func() {
		rendered = view.Render()
	}) {
		// Loop already closed during shutdown; render inline as a fallback.
		rendered = view.Render()
	}

	observability.RecordSliceBind(string(rendered.State))
	return rendered
}

func (h *Host) pin(ctx context.Context, tenantID string, target deeplink.Target) *View {
	key := tenantID + "|" + target.Raw

	h.mu.Lock()
	defer h.mu.Unlock()

	if view, ok := h.views[key]; ok {
		return view
	}

	view := NewView(ctx, ViewConfig{
		URI:      target.Raw,
		Key:      key,
		TenantID: tenantID,
		UserID:   target.UserID,
		Filter:   target.Filter,
		Count:    h.count,
		Fetcher:  h.fetcher,
		Loop:     h.loop,
		Changes:  h.broadcaster,
		Logger:   h.logger,
	})
	h.views[key] = view
	observability.SetPinnedSlices(len(h.views))
	return view
}
