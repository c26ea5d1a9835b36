// Package client is the synchronization core: it ties the room directory,
// the connection manager and the pagination controller together, routes
// inbound events and reconciles optimistic local actions against
// server-pushed state. Presentation reads core state and issues core
// commands; it never touches the transport or the message sequence
// directly.
package client

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"kuttalk/internal/api"
	"kuttalk/internal/models"
	"kuttalk/internal/socket"
	"kuttalk/internal/storage"
	"kuttalk/internal/utils"
)

var (
	ErrEmptyTitle   = utils.NewKuttalkError("room title cannot be empty")
	ErrNoActiveRoom = utils.NewKuttalkError("no room selected")
)

// Transport is the slice of the connection manager the core depends on.
// Satisfied by *socket.Conn; tests substitute a fake.
type Transport interface {
	Connect(ctx context.Context) error
	Send(ev models.ClientEvent)
	State() socket.State
	Events() <-chan models.ServerEvent
	Close()
}

// Core is the single source of truth consumed by presentation.
type Core struct {
	api   *api.Client
	conn  Transport
	sess  *Session
	dir   *Directory
	pager *Pager
	store *storage.Store
	log   zerolog.Logger

	reconnectWait time.Duration

	mu         sync.Mutex
	activeRoom int64
	onChange   func()
	onExpired  func()
	ctx        context.Context

	stop     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

func NewCore(apiClient *api.Client, conn Transport, sess *Session, dir *Directory,
	pager *Pager, store *storage.Store, reconnectWait time.Duration, log zerolog.Logger,
) *Core {
	c := &Core{
		api:           apiClient,
		conn:          conn,
		sess:          sess,
		dir:           dir,
		pager:         pager,
		store:         store,
		reconnectWait: reconnectWait,
		log:           log,
		stop:          make(chan struct{}),
	}
	pager.SetNotify(c.notify)
	return c
}

// SetOnChange installs the redraw callback; every observable state change
// fires it.
func (c *Core) SetOnChange(fn func()) {
	c.mu.Lock()
	c.onChange = fn
	c.mu.Unlock()
}

// SetOnSessionExpired installs the forced-logout escalation (401 observed
// mid-session).
func (c *Core) SetOnSessionExpired(fn func()) {
	c.mu.Lock()
	c.onExpired = fn
	c.mu.Unlock()
}

func (c *Core) notify() {
	c.mu.Lock()
	fn := c.onChange
	c.mu.Unlock()
	if fn != nil {
		fn()
	}
}

func (c *Core) expire() {
	c.mu.Lock()
	fn := c.onExpired
	c.mu.Unlock()
	if fn != nil {
		fn()
	}
}

func (c *Core) context() context.Context {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ctx != nil {
		return c.ctx
	}
	return context.Background()
}

// Start launches the dispatch loop consuming the socket's event stream in
// strict arrival order.
func (c *Core) Start(ctx context.Context) {
	c.mu.Lock()
	c.ctx = ctx
	c.mu.Unlock()

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		for {
			select {
			case <-c.stop:
				return
			case ev, ok := <-c.conn.Events():
				if !ok {
					return
				}
				c.HandleEvent(ev)
			}
		}
	}()
}

// Shutdown stops the dispatch loop and closes the connection.
func (c *Core) Shutdown() {
	c.stopOnce.Do(func() { close(c.stop) })
	c.conn.Close()
	c.wg.Wait()
}

// Bootstrap restores a persisted session and brings the client online. A
// missing or expired session returns api.ErrUnauthorized so the caller can
// show the login form.
func (c *Core) Bootstrap(ctx context.Context) error {
	saved, err := c.sess.Restore(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrNoRows) {
			return api.ErrUnauthorized
		}
		return err
	}
	c.api.SetSessionToken(saved.SID)

	user, err := c.api.Me(ctx)
	if err != nil {
		if errors.Is(err, api.ErrUnauthorized) {
			c.sess.Clear(ctx)
		}
		return err
	}
	c.sess.SetIdentity(ctx, user, saved.SID)

	if err := c.dir.Refresh(ctx); err != nil {
		return err
	}
	if err := c.conn.Connect(ctx); err != nil {
		c.log.Warn().Err(err).Msg("initial connect failed, retrying in background")
		go c.reconnect()
	}
	if saved.LastRoom != 0 && c.dir.Has(saved.LastRoom) {
		c.SelectRoom(saved.LastRoom)
	}
	c.notify()
	return nil
}

// Login authenticates, persists the session and brings the client online.
func (c *Core) Login(ctx context.Context, userid, password string) error {
	sid, err := c.api.Login(ctx, userid, password)
	if err != nil {
		return err
	}
	user, err := c.api.Me(ctx)
	if err != nil {
		return err
	}
	c.sess.SetIdentity(ctx, user, sid)

	if err := c.dir.Refresh(ctx); err != nil {
		return err
	}
	if err := c.conn.Connect(ctx); err != nil {
		c.log.Warn().Err(err).Msg("connect after login failed, retrying in background")
		go c.reconnect()
	}
	c.notify()
	return nil
}

// Signup registers a new account; the caller logs in afterwards.
func (c *Core) Signup(ctx context.Context, userid, nickname, password string) error {
	return c.api.Signup(ctx, userid, nickname, password)
}

// Logout tears the session down everywhere: socket, service, disk.
func (c *Core) Logout(ctx context.Context) {
	c.conn.Close()
	if err := c.api.Logout(ctx); err != nil {
		c.log.Warn().Err(err).Msg("logout request failed")
	}
	c.sess.Clear(ctx)

	c.mu.Lock()
	c.activeRoom = 0
	c.mu.Unlock()
	c.pager.Reset(0)
	c.dir.Clear()
	c.notify()
}

// ActiveRoom returns the currently selected room id, 0 when none.
func (c *Core) ActiveRoom() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.activeRoom
}

// ConnState exposes the connection lifecycle for the reconnecting
// indicator.
func (c *Core) ConnState() socket.State { return c.conn.State() }

// SelectRoom makes a room active. In order: leave the previous room's live
// subscription, reset the page window, load page 0, announce join, zero the
// unread counter optimistically. Blocks on the page fetch; presentation
// calls it off the draw goroutine.
func (c *Core) SelectRoom(roomID int64) {
	c.mu.Lock()
	if roomID == c.activeRoom {
		c.mu.Unlock()
		return
	}
	prev := c.activeRoom
	c.activeRoom = roomID
	c.mu.Unlock()

	if prev != 0 {
		c.conn.Send(models.NewLeaveEvent(prev))
	}
	c.pager.Reset(roomID)
	if roomID == 0 {
		c.notify()
		return
	}

	if err := c.pager.LoadInitial(c.context(), roomID); err != nil {
		c.log.Warn().Err(err).Int64("room", roomID).Msg("initial page load failed")
	}
	c.conn.Send(models.NewJoinEvent(roomID))
	c.dir.ZeroUnread(roomID)
	if c.store != nil {
		if err := c.store.SetLastRoom(c.context(), roomID); err != nil {
			c.log.Warn().Err(err).Msg("persist last room failed")
		}
	}
	c.notify()
}

// LoadOlder backfills the active room's history; wired to the viewport's
// top-edge scroll trigger.
func (c *Core) LoadOlder() {
	if err := c.pager.LoadOlder(c.context()); err != nil {
		c.log.Warn().Err(err).Msg("backfill failed")
	}
}

// SendMessage publishes to the active room. Dropped silently while the
// connection is not live (documented transport limitation).
func (c *Core) SendMessage(content string) error {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil
	}
	room := c.ActiveRoom()
	if room == 0 {
		return ErrNoActiveRoom
	}
	c.conn.Send(models.NewSendMessageEvent(room, content))
	return nil
}

// CreateRoom creates a public room, refreshes authoritative state and
// selects the new room. A duplicate title surfaces as api.ErrConflict with
// no local state to roll back.
func (c *Core) CreateRoom(ctx context.Context, title string) (int64, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return 0, ErrEmptyTitle
	}
	roomID, err := c.api.CreateRoom(ctx, title)
	if err != nil {
		return 0, err
	}
	if err := c.refreshDirectory(ctx); err != nil {
		return roomID, err
	}
	c.SelectRoom(roomID)
	return roomID, nil
}

// JoinRoom joins via HTTP (authoritative), refreshes, then selects the
// room, which announces the join on the socket.
func (c *Core) JoinRoom(ctx context.Context, roomID int64) error {
	if err := c.api.JoinRoom(ctx, roomID); err != nil {
		return err
	}
	if err := c.refreshDirectory(ctx); err != nil {
		return err
	}
	c.SelectRoom(roomID)
	return nil
}

// LeaveRoom leaves via HTTP and releases the live subscription. The caller
// must have confirmed the action with the user first: it is destructive.
func (c *Core) LeaveRoom(ctx context.Context, roomID int64) error {
	if err := c.api.LeaveRoom(ctx, roomID); err != nil {
		return err
	}

	c.mu.Lock()
	wasActive := c.activeRoom == roomID
	if wasActive {
		c.activeRoom = 0
	}
	c.mu.Unlock()

	c.conn.Send(models.NewLeaveEvent(roomID))
	if wasActive {
		c.pager.Reset(0)
	}
	if err := c.refreshDirectory(ctx); err != nil {
		return err
	}
	c.notify()
	return nil
}

func (c *Core) refreshDirectory(ctx context.Context) error {
	err := c.dir.Refresh(ctx)
	if errors.Is(err, api.ErrUnauthorized) {
		c.expire()
	}
	return err
}

// HandleEvent routes one inbound event. Called by the dispatch loop in
// arrival order; exported so tests can drive the routing table directly.
func (c *Core) HandleEvent(ev models.ServerEvent) {
	switch ev := ev.(type) {
	case models.AuthOKEvent:
		// the server holds no subscription state across sockets, so the
		// active room is re-announced on every completed handshake
		if room := c.ActiveRoom(); room != 0 {
			c.conn.Send(models.NewJoinEvent(room))
		}
		c.notify()

	case models.DownEvent:
		c.notify()
		go c.reconnect()

	case models.MessageEvent:
		if room := c.ActiveRoom(); room != 0 && ev.Room == room {
			c.pager.AppendLive(ev.Message)
			return
		}
		// history for non-active rooms is not fetched; only the unread
		// counter moves, pending the authoritative unread event
		c.dir.BumpUnread(ev.Room)
		c.notify()

	case models.UnreadEvent:
		c.dir.SetUnread(ev.Room, ev.Count)
		c.notify()

	case models.MessagePatchEvent:
		c.pager.PatchUnread(ev.ID, ev.UnreadCount)

	case models.CatalogChangedEvent:
		if err := c.dir.RefreshPublic(c.context()); err == nil {
			c.notify()
		} else if errors.Is(err, api.ErrUnauthorized) {
			c.expire()
		}

	default:
		c.log.Debug().Str("event", string(ev.EventType())).Msg("unhandled event")
	}
}

// reconnect retries Connect at a fixed interval until it succeeds or the
// core shuts down. Simple retry by design; the handshake re-announces the
// active room via auth_ok.
func (c *Core) reconnect() {
	for {
		select {
		case <-c.stop:
			return
		case <-time.After(c.reconnectWait):
		}
		if !c.sess.Authenticated() {
			return
		}
		if err := c.conn.Connect(c.context()); err != nil {
			c.log.Warn().Err(err).Msg("reconnect attempt failed")
			continue
		}
		c.notify()
		return
	}
}

// MyRooms, PublicRooms, Messages, HasMore and Loading are the read surface
// presentation renders from.

func (c *Core) MyRooms() []models.Room { return c.dir.MyRooms() }

func (c *Core) PublicRooms() []models.PublicRoom { return c.dir.PublicRooms() }

func (c *Core) Messages() []models.Message { return c.pager.Messages() }

func (c *Core) HasMore() bool { return c.pager.HasMore() }

func (c *Core) Loading() bool { return c.pager.Loading() }

func (c *Core) User() *models.User { return c.sess.User() }

func (c *Core) DirectoryErr() error { return c.dir.Err() }

// RoomTitle resolves the active room's title for the header line.
func (c *Core) RoomTitle(roomID int64) (string, bool) { return c.dir.Title(roomID) }
