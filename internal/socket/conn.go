// Package socket owns the single live connection to the chat service: the
// auth handshake, heartbeat liveness detection and teardown on failure. All
// consumers subscribe to its typed event stream; nothing else touches the
// transport.
package socket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"kuttalk/internal/models"
	"kuttalk/internal/utils"
)

// State is the connection lifecycle. Exactly one live connection exists per
// process; it is not scoped to a room.
type State int32

const (
	Disconnected State = iota
	Connecting
	AwaitingAuth
	Live
	Closing
)

func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case AwaitingAuth:
		return "awaiting-auth"
	case Live:
		return "live"
	case Closing:
		return "closing"
	}
	return "unknown"
}

var ErrNotConnected = utils.NewKuttalkError("not connected")

// Conn is the connection manager. It survives reconnects: Connect may be
// called again after the transport drops, and the event stream stays valid
// across connections.
type Conn struct {
	url     string
	token   func() string
	timeout time.Duration
	log     zerolog.Logger

	mu        sync.Mutex
	ws        *websocket.Conn
	state     State
	lastAlive time.Time
	stop      chan struct{}
	closeOnce *sync.Once
	closing   bool

	wg     sync.WaitGroup
	events chan models.ServerEvent
}

// New builds a connection manager. token is read at every send, so a
// session token rotated mid-session is stamped onto later frames. timeout
// is T of the liveness watchdog.
func New(url string, token func() string, timeout time.Duration, log zerolog.Logger) *Conn {
	return &Conn{
		url:     url,
		token:   token,
		timeout: timeout,
		log:     log,
		events:  make(chan models.ServerEvent, 32),
	}
}

// Events is the typed inbound stream. Heartbeat frames are consumed
// internally; everything else (plus synthetic Down events) is delivered in
// arrival order.
func (c *Conn) Events() <-chan models.ServerEvent { return c.events }

func (c *Conn) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Connect dials the endpoint and starts the auth handshake. It is a no-op
// when a connection is already being established or live. The caller is
// responsible for calling Connect again after a Down event: the manager
// does not retry on its own.
func (c *Conn) Connect(ctx context.Context) error {
	c.mu.Lock()
	if c.state != Disconnected {
		c.mu.Unlock()
		return nil
	}
	c.state = Connecting
	c.mu.Unlock()

	ws, _, err := websocket.DefaultDialer.DialContext(ctx, c.url, nil)
	if err != nil {
		c.mu.Lock()
		c.state = Disconnected
		c.mu.Unlock()
		return fmt.Errorf("dial %s: %w", c.url, err)
	}

	c.mu.Lock()
	c.ws = ws
	c.state = AwaitingAuth
	c.lastAlive = time.Now()
	c.stop = make(chan struct{})
	c.closeOnce = new(sync.Once)
	c.closing = false
	stop := c.stop
	c.mu.Unlock()

	if err := c.writeFrame(models.NewAuthEvent()); err != nil {
		c.teardown(err)
		return fmt.Errorf("send auth: %w", err)
	}

	c.wg.Add(2)
	go c.readLoop(ws, stop)
	go c.watchdog(ws, stop)
	return nil
}

// Send writes one application frame. Before the handshake completes it is a
// silent no-op: commands issued while reconnecting are dropped, not queued.
func (c *Conn) Send(ev models.ClientEvent) {
	c.mu.Lock()
	live := c.state == Live
	c.mu.Unlock()
	if !live {
		c.log.Debug().Str("event", string(ev.EventType())).Msg("dropping frame, connection not live")
		return
	}
	if err := c.writeFrame(ev); err != nil {
		c.log.Warn().Err(err).Str("event", string(ev.EventType())).Msg("send failed")
	}
}

// Close shuts the connection down without emitting a Down event.
func (c *Conn) Close() {
	c.mu.Lock()
	if c.state == Disconnected || c.state == Connecting {
		c.mu.Unlock()
		return
	}
	c.closing = true
	c.state = Closing
	c.mu.Unlock()

	c.teardown(nil)
	c.wg.Wait()
}

// writeFrame stamps the session token and writes the frame. Held under the
// connection mutex: gorilla allows only one concurrent writer.
func (c *Conn) writeFrame(ev models.ClientEvent) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ws == nil {
		return ErrNotConnected
	}
	ev.Stamp(c.token())
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode frame: %w", err)
	}
	return c.ws.WriteMessage(websocket.TextMessage, data)
}

func (c *Conn) touch() {
	c.mu.Lock()
	c.lastAlive = time.Now()
	c.mu.Unlock()
}

func (c *Conn) readLoop(ws *websocket.Conn, stop chan struct{}) {
	defer c.wg.Done()

	for {
		_, data, err := ws.ReadMessage()
		if err != nil {
			c.teardown(err)
			return
		}

		ev, err := models.ParseServerEvent(data)
		if err != nil {
			if errors.Is(err, models.ErrUnknownEvent) {
				c.log.Debug().Msg("ignoring unrecognized event")
			} else {
				c.log.Warn().Err(err).Msg("dropping malformed frame")
			}
			continue
		}

		switch ev.(type) {
		case models.PingEvent:
			c.touch()
			if err := c.writeFrame(models.NewPongReply()); err != nil {
				c.log.Warn().Err(err).Msg("pong reply failed")
			}
			continue
		case models.PongEvent:
			c.touch()
			continue
		case models.AuthOKEvent:
			c.mu.Lock()
			c.state = Live
			c.mu.Unlock()
			c.log.Info().Msg("socket live")
			// forwarded: the core re-announces the active room on auth_ok
		}

		select {
		case c.events <- ev:
		case <-stop:
			return
		}
	}
}

// watchdog force-closes a silently dead transport: no ping/pong observed
// for longer than the timeout while the connection should be alive. Checked
// at half the timeout interval.
func (c *Conn) watchdog(ws *websocket.Conn, stop chan struct{}) {
	defer c.wg.Done()

	ticker := time.NewTicker(c.timeout / 2)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			c.mu.Lock()
			silent := (c.state == Live || c.state == AwaitingAuth) &&
				time.Since(c.lastAlive) > c.timeout
			c.mu.Unlock()
			if silent {
				c.log.Warn().Dur("timeout", c.timeout).Msg("no heartbeat observed, closing connection")
				_ = ws.Close() // readLoop unblocks and tears down
			}
		}
	}
}

// teardown runs once per connection: closes the transport, resets state to
// Disconnected and, unless Close initiated it, emits a Down event so the
// core schedules a reconnect.
func (c *Conn) teardown(cause error) {
	c.mu.Lock()
	once := c.closeOnce
	stop := c.stop
	closing := c.closing
	c.mu.Unlock()
	if once == nil {
		return
	}

	once.Do(func() {
		c.mu.Lock()
		if c.ws != nil {
			_ = c.ws.Close()
			c.ws = nil
		}
		c.state = Disconnected
		close(stop)
		c.mu.Unlock()

		if !closing {
			c.log.Warn().Err(cause).Msg("connection down")
			select {
			case c.events <- models.DownEvent{Err: cause}:
			default:
				// core not draining; it will observe Disconnected state instead
			}
		}
	})
}
