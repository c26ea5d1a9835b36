package client

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"kuttalk/internal/models"
)

// fakeViewport records scroll commands and plays back scripted geometry:
// each Metrics call pops the next height off the script, the last one
// repeating.
type fakeViewport struct {
	mu      sync.Mutex
	top     int
	client  int
	heights []int

	setTop   []int
	bottomed int
}

func (v *fakeViewport) Metrics() (int, int, int) {
	v.mu.Lock()
	defer v.mu.Unlock()
	height := 0
	if len(v.heights) > 0 {
		height = v.heights[0]
		if len(v.heights) > 1 {
			v.heights = v.heights[1:]
		}
	}
	return v.top, height, v.client
}

func (v *fakeViewport) SetScrollTop(top int) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.top = top
	v.setTop = append(v.setTop, top)
}

func (v *fakeViewport) ScrollToBottom() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.bottomed++
}

func msg(id, createdAt int64) models.Message {
	return models.Message{ID: id, SenderNick: "nick", Content: "hi", CreatedAt: createdAt}
}

// page returns n messages newest-first ending at (startID-n+1), the shape
// the history endpoint serves.
func page(startID int64, n int) []models.Message {
	out := make([]models.Message, 0, n)
	for i := 0; i < n; i++ {
		id := startID - int64(i)
		out = append(out, msg(id, 1000+id))
	}
	return out
}

func ids(msgs []models.Message) []int64 {
	out := make([]int64, len(msgs))
	for i, m := range msgs {
		out[i] = m.ID
	}
	return out
}

func TestLoadInitialOrdersChronologically(t *testing.T) {
	fetch := func(ctx context.Context, roomID int64, pg, limit int) ([]models.Message, error) {
		require.Equal(t, int64(7), roomID)
		require.Equal(t, 0, pg)
		return page(40, limit), nil
	}
	p := NewPager(fetch, PageSize, zerolog.Nop())
	vp := &fakeViewport{heights: []int{20}, client: 10}
	p.AttachViewport(vp)

	require.NoError(t, p.LoadInitial(context.Background(), 7))

	msgs := p.Messages()
	require.Len(t, msgs, PageSize)
	require.Equal(t, int64(21), msgs[0].ID)
	require.Equal(t, int64(40), msgs[len(msgs)-1].ID)
	require.True(t, p.HasMore())
	require.Equal(t, 1, vp.bottomed)
}

func TestLoadInitialShortPageExhaustsHistory(t *testing.T) {
	fetch := func(ctx context.Context, roomID int64, pg, limit int) ([]models.Message, error) {
		return page(5, 5), nil
	}
	p := NewPager(fetch, PageSize, zerolog.Nop())

	require.NoError(t, p.LoadInitial(context.Background(), 1))
	require.Len(t, p.Messages(), 5)
	require.False(t, p.HasMore())
}

func TestLoadInitialEmptyRoom(t *testing.T) {
	fetch := func(ctx context.Context, roomID int64, pg, limit int) ([]models.Message, error) {
		return nil, nil
	}
	p := NewPager(fetch, PageSize, zerolog.Nop())

	require.NoError(t, p.LoadInitial(context.Background(), 1))
	require.Empty(t, p.Messages())
	require.False(t, p.HasMore())
}

func TestLoadOlderPrependsAndKeepsAnchor(t *testing.T) {
	fetch := func(ctx context.Context, roomID int64, pg, limit int) ([]models.Message, error) {
		switch pg {
		case 0:
			return page(40, limit), nil
		case 1:
			return page(20, limit), nil
		}
		return nil, nil
	}
	p := NewPager(fetch, PageSize, zerolog.Nop())

	// height 20 before the prepend, 40 after
	vp := &fakeViewport{heights: []int{20, 40}, client: 10}
	p.AttachViewport(vp)

	require.NoError(t, p.LoadInitial(context.Background(), 7))
	require.NoError(t, p.LoadOlder(context.Background()))

	msgs := p.Messages()
	require.Len(t, msgs, 40)
	require.Equal(t, int64(1), msgs[0].ID)
	require.Equal(t, int64(40), msgs[39].ID)

	// before the prepend: height 20, client 10, delta 10; after: height 40,
	// so the viewport is put back at 40-10=30 and the visible rows stay put
	require.Equal(t, []int{30}, vp.setTop)
	require.Equal(t, 1, vp.bottomed) // only the initial load pins to bottom
}

func TestLoadOlderDedupesOverlap(t *testing.T) {
	fetch := func(ctx context.Context, roomID int64, pg, limit int) ([]models.Message, error) {
		switch pg {
		case 0:
			return page(40, limit), nil
		case 1:
			// a message landed between the two fetches, shifting the page
			// boundary: ids 25..6 overlap the window by five
			return page(25, limit), nil
		}
		return nil, nil
	}
	p := NewPager(fetch, PageSize, zerolog.Nop())

	require.NoError(t, p.LoadInitial(context.Background(), 7))
	require.NoError(t, p.LoadOlder(context.Background()))

	msgs := p.Messages()
	require.Len(t, msgs, 35) // 21..40 plus 6..20, overlap collapsed
	seen := map[int64]bool{}
	for _, m := range msgs {
		require.False(t, seen[m.ID], "duplicate id %d", m.ID)
		seen[m.ID] = true
	}
	for i := 1; i < len(msgs); i++ {
		require.True(t, msgs[i-1].Before(msgs[i]), "order broken at %d", i)
	}
}

func TestStaleFetchDiscardedAfterRoomSwitch(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	fetch := func(ctx context.Context, roomID int64, pg, limit int) ([]models.Message, error) {
		if roomID == 1 {
			close(started)
			<-release
			return page(99, limit), nil
		}
		return page(10, 10), nil
	}
	p := NewPager(fetch, PageSize, zerolog.Nop())

	done := make(chan error, 1)
	go func() { done <- p.LoadInitial(context.Background(), 1) }()
	<-started

	// switch rooms while room 1's page 0 is still in flight
	require.NoError(t, p.LoadInitial(context.Background(), 2))
	close(release)
	require.NoError(t, <-done)

	require.Equal(t, int64(2), p.Room())
	msgs := p.Messages()
	require.Len(t, msgs, 10)
	require.Equal(t, int64(1), msgs[0].ID) // room 2's window, untouched
}

func TestLoadOlderNoopWhenExhaustedOrLoading(t *testing.T) {
	calls := 0
	fetch := func(ctx context.Context, roomID int64, pg, limit int) ([]models.Message, error) {
		calls++
		return page(5, 5), nil
	}
	p := NewPager(fetch, PageSize, zerolog.Nop())

	require.NoError(t, p.LoadInitial(context.Background(), 1))
	require.False(t, p.HasMore())

	require.NoError(t, p.LoadOlder(context.Background()))
	require.Equal(t, 1, calls) // the exhausted window fetches nothing
}

func TestLoadOlderErrorKeepsWindow(t *testing.T) {
	boom := errors.New("boom")
	failNext := false
	fetch := func(ctx context.Context, roomID int64, pg, limit int) ([]models.Message, error) {
		if failNext {
			return nil, boom
		}
		return page(40, limit), nil
	}
	p := NewPager(fetch, PageSize, zerolog.Nop())

	require.NoError(t, p.LoadInitial(context.Background(), 1))
	failNext = true
	err := p.LoadOlder(context.Background())
	require.ErrorIs(t, err, boom)

	require.Len(t, p.Messages(), PageSize)
	require.True(t, p.HasMore()) // retryable
	require.False(t, p.Loading())
}

func TestAppendLiveDedupesAndScrolls(t *testing.T) {
	fetch := func(ctx context.Context, roomID int64, pg, limit int) ([]models.Message, error) {
		return page(3, 3), nil
	}
	p := NewPager(fetch, PageSize, zerolog.Nop())
	vp := &fakeViewport{heights: []int{3}, client: 10}
	p.AttachViewport(vp)

	require.NoError(t, p.LoadInitial(context.Background(), 1))
	bottomedAfterLoad := vp.bottomed

	p.AppendLive(msg(4, 2000))
	p.AppendLive(msg(4, 2000)) // duplicate delivery after a resubscription

	msgs := p.Messages()
	require.Len(t, msgs, 4)
	require.Equal(t, int64(4), msgs[3].ID)
	require.Equal(t, bottomedAfterLoad+1, vp.bottomed)
}

func TestAppendLiveIgnoredWithoutRoom(t *testing.T) {
	p := NewPager(nil, PageSize, zerolog.Nop())
	p.AppendLive(msg(1, 1))
	require.Empty(t, p.Messages())
}

func TestPatchUnread(t *testing.T) {
	fetch := func(ctx context.Context, roomID int64, pg, limit int) ([]models.Message, error) {
		msgs := page(3, 3)
		for i := range msgs {
			msgs[i].UnreadCount = 5
		}
		return msgs, nil
	}
	p := NewPager(fetch, PageSize, zerolog.Nop())
	require.NoError(t, p.LoadInitial(context.Background(), 1))

	require.True(t, p.PatchUnread(2, 1))
	require.False(t, p.PatchUnread(99, 1)) // not in window

	for _, m := range p.Messages() {
		if m.ID == 2 {
			require.Equal(t, 1, m.UnreadCount)
		} else {
			require.Equal(t, 5, m.UnreadCount)
		}
	}
}

func TestMergeKeepsPatchedCopy(t *testing.T) {
	existing := []models.Message{msg(10, 1010)}
	existing[0].UnreadCount = 1

	refetched := msg(10, 1010)
	refetched.UnreadCount = 5
	merged := mergeMessages(existing, []models.Message{refetched, msg(9, 1009)})

	require.Equal(t, []int64{9, 10}, ids(merged))
	require.Equal(t, 1, merged[1].UnreadCount)
}
