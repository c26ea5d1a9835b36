package client

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"kuttalk/internal/api"
	"kuttalk/internal/models"
)

// Directory caches the two room collections: rooms the user belongs to
// (with unread counters) and the public catalog. The HTTP-fetched lists are
// the single source of truth for membership; socket announcements are
// advisory routing hints only.
type Directory struct {
	api *api.Client
	log zerolog.Logger

	mu       sync.RWMutex
	myRooms  []models.Room
	pubRooms []models.PublicRoom
	err      error
}

func NewDirectory(apiClient *api.Client, log zerolog.Logger) *Directory {
	return &Directory{api: apiClient, log: log}
}

// Refresh re-fetches both collections from the service.
func (d *Directory) Refresh(ctx context.Context) error {
	mine, err := d.api.MyRooms(ctx)
	if err != nil {
		d.setErr(err)
		return err
	}
	pub, err := d.api.PublicRooms(ctx)
	if err != nil {
		d.setErr(err)
		return err
	}

	d.mu.Lock()
	d.myRooms = mine
	d.pubRooms = pub
	d.err = nil
	d.mu.Unlock()
	return nil
}

// RefreshPublic re-fetches only the public catalog, wholesale. Triggered by
// the updated-chat-room push event.
func (d *Directory) RefreshPublic(ctx context.Context) error {
	pub, err := d.api.PublicRooms(ctx)
	if err != nil {
		d.setErr(err)
		return err
	}
	d.mu.Lock()
	d.pubRooms = pub
	d.err = nil
	d.mu.Unlock()
	return nil
}

func (d *Directory) setErr(err error) {
	d.mu.Lock()
	d.err = err
	d.mu.Unlock()
	d.log.Warn().Err(err).Msg("room directory refresh failed")
}

// Err reports the last refresh failure, nil after a successful refresh.
func (d *Directory) Err() error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.err
}

func (d *Directory) MyRooms() []models.Room {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]models.Room, len(d.myRooms))
	copy(out, d.myRooms)
	return out
}

// PublicRooms returns the catalog minus rooms the user already belongs to.
// The split is computed here, never stored twice, so a room id shows up in
// at most one of the two lists.
func (d *Directory) PublicRooms() []models.PublicRoom {
	d.mu.RLock()
	defer d.mu.RUnlock()

	joined := make(map[int64]bool, len(d.myRooms))
	for _, r := range d.myRooms {
		joined[r.ID] = true
	}
	out := make([]models.PublicRoom, 0, len(d.pubRooms))
	for _, r := range d.pubRooms {
		if !joined[r.ID] {
			out = append(out, r)
		}
	}
	return out
}

// Has reports membership per the HTTP-fetched state.
func (d *Directory) Has(roomID int64) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	for _, r := range d.myRooms {
		if r.ID == roomID {
			return true
		}
	}
	return false
}

// Title resolves a room title from the membership list.
func (d *Directory) Title(roomID int64) (string, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	for _, r := range d.myRooms {
		if r.ID == roomID {
			return r.Title, true
		}
	}
	return "", false
}

// SetUnread applies an authoritative unread count: overwrite, never merge.
func (d *Directory) SetUnread(roomID int64, count int) {
	if count < 0 {
		count = 0
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	for i := range d.myRooms {
		if d.myRooms[i].ID == roomID {
			d.myRooms[i].Unread = count
			return
		}
	}
}

// ZeroUnread resets the counter when a room becomes active. Optimistic: a
// later authoritative unread event may overwrite it.
func (d *Directory) ZeroUnread(roomID int64) {
	d.SetUnread(roomID, 0)
}

// BumpUnread increments the counter for a message arriving in a non-active
// room. Also optimistic; the server usually follows with an unread event.
func (d *Directory) BumpUnread(roomID int64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for i := range d.myRooms {
		if d.myRooms[i].ID == roomID {
			d.myRooms[i].Unread++
			return
		}
	}
}

// Clear drops the cached lists on logout.
func (d *Directory) Clear() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.myRooms = nil
	d.pubRooms = nil
	d.err = nil
}
