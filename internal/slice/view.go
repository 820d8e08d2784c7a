package slice

import (
	"context"
	"log"
	"sync/atomic"

	"github.com/kevicsalazar/appactions-kotlin/internal/domain"
)

// Fetcher is the repository capability a view consumes: a bounded read of
// the most recent records matching the filter.
type Fetcher interface {
	FetchRecent(ctx context.Context, tenantID, userID string, count int, filter domain.ActivityType) ([]domain.ActivityRecord, error)
}

// View builds the renderable description for one slice URI. It subscribes to
// the broadcaster once on construction and detaches exactly once, on the
// render loop, when its fetch first delivers.
type View struct {
	ctx         context.Context
	uri         string
	key         string
	tenantID    string
	userID      string
	filter      domain.ActivityType
	count       int
	fetcher     Fetcher
	loop        *RenderLoop
	broadcaster *Broadcaster
	result      *Result[[]domain.ActivityRecord]
	fetching    atomic.Bool
	logger      *log.Logger
}

// ViewConfig carries the construction parameters for a View. Key scopes the
// broadcaster subscription; it defaults to the URI.
type ViewConfig struct {
	URI      string
	Key      string
	TenantID string
	UserID   string
	Filter   domain.ActivityType
	Count    int
	Fetcher  Fetcher
	Loop     *RenderLoop
	Changes  *Broadcaster
	Logger   *log.Logger
}

// NewView registers the view with the broadcaster and starts its first
// fetch. The context bounds all fetches issued for this view.
func NewView(ctx context.Context, cfg ViewConfig) *View {
	v := &View{
		ctx:         ctx,
		uri:         cfg.URI,
		key:         cfg.Key,
		tenantID:    cfg.TenantID,
		userID:      cfg.UserID,
		filter:      cfg.Filter,
		count:       cfg.Count,
		fetcher:     cfg.Fetcher,
		loop:        cfg.Loop,
		broadcaster: cfg.Changes,
		result:      NewResult[[]domain.ActivityRecord](),
		logger:      cfg.Logger,
	}
	if v.logger == nil {
		v.logger = log.Default()
	}
	if v.key == "" {
		v.key = v.uri
	}

	v.broadcaster.Subscribe(v.key, v.refresh)
	v.refresh()
	return v
}

// refresh starts a background fetch unless data has already been delivered
// or a fetch is in flight. A fetch error leaves the view pending; the still
// active subscription retries it on the next data-change notification.
func (v *View) refresh() {
	if _, delivered := v.result.Get(); delivered {
		return
	}
	if !v.fetching.CompareAndSwap(false, true) {
		return
	}

	go func() {
		defer v.fetching.Store(false)

		records, err := v.fetcher.FetchRecent(v.ctx, v.tenantID, v.userID, v.count, v.filter)
		if err != nil {
			v.logger.Printf("slice fetch failed (uri=%s): %v", v.uri, err)
			return
		}

		// Delivery and observer teardown happen on the render loop; the
		// broadcaster is not reentrant-safe across unrelated call stacks.
		v.loop.Schedule(func() {
			if v.result.Complete(records) {
				v.broadcaster.Unsubscribe(v.key)
			}
		})
	}()
}

// Render produces the current UI description: a loading placeholder while
// the result is pending, the content summary once it is available.
func (v *View) Render() Slice {
	records, delivered := v.result.Get()
	if !delivered {
		return BuildLoading(v.uri, v.filter)
	}
	return BuildContent(v.uri, v.filter, records)
}

// Delivered is closed once the view's data has arrived.
func (v *View) Delivered() <-chan struct{} {
	return v.result.Done()
}
