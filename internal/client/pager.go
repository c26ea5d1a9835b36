package client

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/rs/zerolog"

	"kuttalk/internal/models"
)

// PageSize is the fixed message page size of the history endpoint.
const PageSize = 20

// Viewport is the scrollable surface presenting the active room's history.
// The pager measures it before inserting older content above the fold and
// repositions it after, so backfill never moves what the user is reading.
// Implemented by the TUI chat view; tests use a fake.
type Viewport interface {
	// Metrics reports scrollTop, scrollHeight and clientHeight in rows.
	Metrics() (top, height, client int)
	// SetScrollTop repositions the viewport after a redraw.
	SetScrollTop(top int)
	// ScrollToBottom pins the viewport to the newest message.
	ScrollToBottom()
}

// FetchFunc fetches one newest-first page of a room's history.
type FetchFunc func(ctx context.Context, roomID int64, page, limit int) ([]models.Message, error)

// Pager owns the ordered message sequence for the currently active room and
// the page window over it. History for non-active rooms is discarded, not
// cached. Every fetch completion re-checks the window generation, so a
// response that arrives after a room switch is dropped instead of applied
// to the wrong room.
type Pager struct {
	fetch    FetchFunc
	pageSize int
	log      zerolog.Logger
	notify   func()

	mu      sync.Mutex
	vp      Viewport
	roomID  int64
	gen     uint64
	page    int
	hasMore bool
	loading bool
	msgs    []models.Message
}

func NewPager(fetch FetchFunc, pageSize int, log zerolog.Logger) *Pager {
	if pageSize <= 0 {
		pageSize = PageSize
	}
	return &Pager{fetch: fetch, pageSize: pageSize, log: log}
}

// AttachViewport hooks the presentation surface in. May stay nil in
// headless use; scroll corrections are then skipped.
func (p *Pager) AttachViewport(vp Viewport) {
	p.mu.Lock()
	p.vp = vp
	p.mu.Unlock()
}

// SetNotify installs the redraw callback invoked after every mutation and
// before post-mutation viewport measurements.
func (p *Pager) SetNotify(fn func()) {
	p.mu.Lock()
	p.notify = fn
	p.mu.Unlock()
}

func (p *Pager) changed() {
	p.mu.Lock()
	fn := p.notify
	p.mu.Unlock()
	if fn != nil {
		fn()
	}
}

func (p *Pager) viewport() Viewport {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.vp
}

// Reset clears the window for a new active room: empty sequence, page 0,
// hasMore true. Bumps the generation so in-flight fetches for the previous
// room are discarded on arrival.
func (p *Pager) Reset(roomID int64) {
	p.mu.Lock()
	p.resetLocked(roomID)
	p.mu.Unlock()
	p.changed()
}

func (p *Pager) resetLocked(roomID int64) {
	p.roomID = roomID
	p.gen++
	p.page = 0
	p.hasMore = true
	p.loading = false
	p.msgs = nil
}

// LoadInitial resets the window to the given room and fetches page 0. The
// viewport is pinned to the bottom afterwards.
func (p *Pager) LoadInitial(ctx context.Context, roomID int64) error {
	p.mu.Lock()
	p.resetLocked(roomID)
	p.loading = true
	gen := p.gen
	p.mu.Unlock()
	p.changed()

	batch, err := p.fetch(ctx, roomID, 0, p.pageSize)

	p.mu.Lock()
	if p.gen != gen {
		p.mu.Unlock()
		// room switched while in flight; the stale response must not apply
		p.log.Debug().Int64("room", roomID).Msg("discarding stale initial page")
		return nil
	}
	p.loading = false
	if err != nil {
		p.mu.Unlock()
		p.changed()
		return fmt.Errorf("load page 0 of room %d: %w", roomID, err)
	}
	p.msgs = mergeMessages(nil, batch)
	p.page = 0
	p.hasMore = len(batch) == p.pageSize
	vp := p.vp
	p.mu.Unlock()

	p.changed()
	if vp != nil {
		vp.ScrollToBottom()
	}
	return nil
}

// LoadOlder backfills the next older page and restores the scroll anchor:
// the content visible before the prepend stays put. No-op unless
// hasMore && !loading.
func (p *Pager) LoadOlder(ctx context.Context) error {
	p.mu.Lock()
	if p.roomID == 0 || !p.hasMore || p.loading {
		p.mu.Unlock()
		return nil
	}
	p.loading = true
	gen := p.gen
	roomID := p.roomID
	next := p.page + 1
	p.mu.Unlock()
	p.changed()

	batch, err := p.fetch(ctx, roomID, next, p.pageSize)

	p.mu.Lock()
	if p.gen != gen {
		p.mu.Unlock()
		// stale: the window belongs to another room now
		p.log.Debug().Int64("room", roomID).Int("page", next).Msg("discarding stale backfill page")
		return nil
	}
	p.loading = false
	if err != nil {
		p.mu.Unlock()
		p.changed()
		return fmt.Errorf("load page %d of room %d: %w", next, roomID, err)
	}

	// measure before older content is inserted above the viewport
	var delta int
	vp := p.vp
	if vp != nil {
		_, height, client := vp.Metrics()
		delta = height - client
	}

	p.msgs = mergeMessages(p.msgs, batch)
	p.page = next
	p.hasMore = len(batch) == p.pageSize
	p.mu.Unlock()

	p.changed()
	if vp != nil {
		_, height, _ := vp.Metrics()
		vp.SetScrollTop(height - delta)
	}
	return nil
}

// AppendLive pushes one live message to the tail and pins the viewport to
// the bottom. Live messages always pull the view down; backfill never does.
func (p *Pager) AppendLive(msg models.Message) {
	p.mu.Lock()
	if p.roomID == 0 {
		p.mu.Unlock()
		return
	}
	for _, m := range p.msgs {
		if m.ID == msg.ID {
			p.mu.Unlock()
			return // duplicate delivery after a resubscription
		}
	}
	p.msgs = append(p.msgs, msg)
	vp := p.vp
	p.mu.Unlock()

	p.changed()
	if vp != nil {
		vp.ScrollToBottom()
	}
}

// PatchUnread revises the unread counter of a delivered message in place.
// Does not re-sort.
func (p *Pager) PatchUnread(id int64, count int) bool {
	p.mu.Lock()
	patched := false
	for i := range p.msgs {
		if p.msgs[i].ID == id {
			p.msgs[i].UnreadCount = count
			patched = true
			break
		}
	}
	p.mu.Unlock()
	if patched {
		p.changed()
	}
	return patched
}

// Messages returns the sequence in chronological order.
func (p *Pager) Messages() []models.Message {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]models.Message, len(p.msgs))
	copy(out, p.msgs)
	return out
}

func (p *Pager) Room() int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.roomID
}

func (p *Pager) HasMore() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.hasMore
}

func (p *Pager) Loading() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.loading
}

// mergeMessages folds a newest-first page into the existing sequence: full
// re-sort by (created_at, id) ascending and dedupe by id, keeping the copy
// already held (it may carry a patched unread counter).
func mergeMessages(existing, batch []models.Message) []models.Message {
	seen := make(map[int64]bool, len(existing)+len(batch))
	merged := make([]models.Message, 0, len(existing)+len(batch))
	for _, m := range existing {
		if !seen[m.ID] {
			seen[m.ID] = true
			merged = append(merged, m)
		}
	}
	for _, m := range batch {
		if !seen[m.ID] {
			seen[m.ID] = true
			merged = append(merged, m)
		}
	}
	sort.Slice(merged, func(i, j int) bool { return merged[i].Before(merged[j]) })
	return merged
}
