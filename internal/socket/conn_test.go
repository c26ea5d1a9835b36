package socket

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"kuttalk/internal/models"
)

type rawFrame struct {
	Type    models.EventType `json:"type"`
	SID     string           `json:"sid"`
	Room    int64            `json:"room"`
	Content string           `json:"content"`
}

// chatServer is a scripted socket endpoint: it completes the auth handshake
// and hands the connection to the test.
type chatServer struct {
	srv      *httptest.Server
	upgrader websocket.Upgrader

	mu     sync.Mutex
	conns  []*websocket.Conn
	frames chan rawFrame
	ackOK  bool
}

func newChatServer(t *testing.T, ackAuth bool) *chatServer {
	cs := &chatServer{frames: make(chan rawFrame, 32), ackOK: ackAuth}
	cs.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := cs.upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		cs.mu.Lock()
		cs.conns = append(cs.conns, ws)
		cs.mu.Unlock()

		for {
			_, data, err := ws.ReadMessage()
			if err != nil {
				return
			}
			var f rawFrame
			if err := json.Unmarshal(data, &f); err != nil {
				continue
			}
			if f.Type == models.EventAuth && cs.ackOK {
				_ = ws.WriteMessage(websocket.TextMessage, []byte(`{"type":"auth_ok"}`))
			}
			cs.frames <- f
		}
	}))
	t.Cleanup(cs.srv.Close)
	return cs
}

func (cs *chatServer) url() string {
	return "ws" + strings.TrimPrefix(cs.srv.URL, "http")
}

func (cs *chatServer) send(t *testing.T, raw string) {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	require.NotEmpty(t, cs.conns)
	ws := cs.conns[len(cs.conns)-1]
	require.NoError(t, ws.WriteMessage(websocket.TextMessage, []byte(raw)))
}

func (cs *chatServer) nextFrame(t *testing.T) rawFrame {
	select {
	case f := <-cs.frames:
		return f
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a client frame")
		return rawFrame{}
	}
}

func newTestConn(cs *chatServer, timeout time.Duration) *Conn {
	return New(cs.url(), func() string { return "sid-1" }, timeout, zerolog.Nop())
}

func waitState(t *testing.T, c *Conn, want State) {
	require.Eventually(t, func() bool { return c.State() == want },
		2*time.Second, 5*time.Millisecond, "state never reached %s", want)
}

func TestHandshakeReachesLive(t *testing.T) {
	cs := newChatServer(t, true)
	c := newTestConn(cs, time.Second)
	defer c.Close()

	require.NoError(t, c.Connect(context.Background()))

	auth := cs.nextFrame(t)
	require.Equal(t, models.EventAuth, auth.Type)
	require.Equal(t, "sid-1", auth.SID)

	waitState(t, c, Live)

	// auth_ok is forwarded so the core can re-announce the active room
	select {
	case ev := <-c.Events():
		require.IsType(t, models.AuthOKEvent{}, ev)
	case <-time.After(2 * time.Second):
		t.Fatal("auth_ok never forwarded")
	}
}

func TestConnectIsIdempotentWhileUp(t *testing.T) {
	cs := newChatServer(t, true)
	c := newTestConn(cs, time.Second)
	defer c.Close()

	require.NoError(t, c.Connect(context.Background()))
	waitState(t, c, Live)

	require.NoError(t, c.Connect(context.Background()))
	cs.mu.Lock()
	dials := len(cs.conns)
	cs.mu.Unlock()
	require.Equal(t, 1, dials)
}

func TestSendBeforeLiveIsDropped(t *testing.T) {
	cs := newChatServer(t, false) // handshake never acknowledged
	c := newTestConn(cs, time.Second)
	defer c.Close()

	require.NoError(t, c.Connect(context.Background()))
	auth := cs.nextFrame(t)
	require.Equal(t, models.EventAuth, auth.Type)

	c.Send(models.NewSendMessageEvent(1, "too early"))

	select {
	case f := <-cs.frames:
		t.Fatalf("frame %q reached the wire before the handshake completed", f.Type)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestSendStampsSessionToken(t *testing.T) {
	cs := newChatServer(t, true)
	c := newTestConn(cs, time.Second)
	defer c.Close()

	require.NoError(t, c.Connect(context.Background()))
	cs.nextFrame(t) // auth
	waitState(t, c, Live)

	c.Send(models.NewSendMessageEvent(7, "hello"))

	f := cs.nextFrame(t)
	require.Equal(t, models.EventMessage, f.Type)
	require.Equal(t, "sid-1", f.SID)
	require.Equal(t, int64(7), f.Room)
	require.Equal(t, "hello", f.Content)
}

func TestServerPingAnsweredWithPong(t *testing.T) {
	cs := newChatServer(t, true)
	c := newTestConn(cs, time.Second)
	defer c.Close()

	require.NoError(t, c.Connect(context.Background()))
	cs.nextFrame(t) // auth
	waitState(t, c, Live)
	<-c.Events() // auth_ok

	cs.send(t, `{"type":"ping"}`)

	f := cs.nextFrame(t)
	require.Equal(t, models.EventPong, f.Type)

	// heartbeat frames are consumed internally, never forwarded
	select {
	case ev := <-c.Events():
		t.Fatalf("heartbeat leaked to the consumer: %T", ev)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestApplicationEventsForwardedInOrder(t *testing.T) {
	cs := newChatServer(t, true)
	c := newTestConn(cs, time.Second)
	defer c.Close()

	require.NoError(t, c.Connect(context.Background()))
	cs.nextFrame(t)
	waitState(t, c, Live)
	<-c.Events() // auth_ok

	cs.send(t, `{"type":"message","room":1,"message":{"id":10,"sender":3,"sender_nick":"bob","content":"hi","created_at":1700000000}}`)
	cs.send(t, `{"type":"unread","room":2,"count":4}`)
	cs.send(t, `{"type":"updated-message","room":1,"id":10,"unread_cnt":0}`)
	cs.send(t, `{"type":"updated-chat-room"}`)

	ev := <-c.Events()
	msgEv, ok := ev.(models.MessageEvent)
	require.True(t, ok)
	require.Equal(t, int64(1), msgEv.Room)
	require.Equal(t, int64(10), msgEv.Message.ID)
	require.Equal(t, "bob", msgEv.Message.SenderNick)

	ev = <-c.Events()
	unreadEv, ok := ev.(models.UnreadEvent)
	require.True(t, ok)
	require.Equal(t, 4, unreadEv.Count)

	ev = <-c.Events()
	patchEv, ok := ev.(models.MessagePatchEvent)
	require.True(t, ok)
	require.Equal(t, int64(10), patchEv.ID)

	ev = <-c.Events()
	require.IsType(t, models.CatalogChangedEvent{}, ev)
}

func TestMalformedAndUnknownFramesDropped(t *testing.T) {
	cs := newChatServer(t, true)
	c := newTestConn(cs, time.Second)
	defer c.Close()

	require.NoError(t, c.Connect(context.Background()))
	cs.nextFrame(t)
	waitState(t, c, Live)
	<-c.Events() // auth_ok

	cs.send(t, `not json at all`)
	cs.send(t, `{"type":"some-future-event"}`)
	cs.send(t, `{"type":"unread","room":3,"count":1}`)

	// the stream skips the garbage and keeps going
	ev := <-c.Events()
	unreadEv, ok := ev.(models.UnreadEvent)
	require.True(t, ok)
	require.Equal(t, int64(3), unreadEv.Room)
}

func TestWatchdogClosesSilentConnection(t *testing.T) {
	cs := newChatServer(t, true)
	c := newTestConn(cs, 80*time.Millisecond)
	defer c.Close()

	require.NoError(t, c.Connect(context.Background()))
	waitState(t, c, Live)
	<-c.Events() // auth_ok

	// no pings from the server: the watchdog must force the close and a
	// Down event must reach the consumer
	deadline := time.After(2 * time.Second)
	for {
		select {
		case ev := <-c.Events():
			if _, ok := ev.(models.DownEvent); ok {
				waitState(t, c, Disconnected)
				return
			}
		case <-deadline:
			t.Fatal("watchdog never closed the silent connection")
		}
	}
}

func TestHeartbeatKeepsConnectionAlive(t *testing.T) {
	cs := newChatServer(t, true)
	c := newTestConn(cs, 150*time.Millisecond)
	defer c.Close()

	require.NoError(t, c.Connect(context.Background()))
	waitState(t, c, Live)
	<-c.Events() // auth_ok

	stop := time.After(500 * time.Millisecond)
	tick := time.NewTicker(50 * time.Millisecond)
	defer tick.Stop()
	for {
		select {
		case <-tick.C:
			cs.send(t, `{"type":"ping"}`)
		case ev := <-c.Events():
			if _, ok := ev.(models.DownEvent); ok {
				t.Fatal("connection dropped despite steady heartbeats")
			}
		case <-stop:
			require.Equal(t, Live, c.State())
			return
		}
	}
}

func TestCloseDoesNotEmitDown(t *testing.T) {
	cs := newChatServer(t, true)
	c := newTestConn(cs, time.Second)

	require.NoError(t, c.Connect(context.Background()))
	waitState(t, c, Live)
	<-c.Events() // auth_ok

	c.Close()
	require.Equal(t, Disconnected, c.State())

	select {
	case ev := <-c.Events():
		require.NotEqual(t, reflect.TypeOf(models.DownEvent{}), reflect.TypeOf(ev))
	case <-time.After(100 * time.Millisecond):
	}
}

func TestReconnectAfterDown(t *testing.T) {
	cs := newChatServer(t, true)
	c := newTestConn(cs, time.Second)
	defer c.Close()

	require.NoError(t, c.Connect(context.Background()))
	waitState(t, c, Live)
	<-c.Events() // auth_ok

	// server drops the transport
	cs.mu.Lock()
	_ = cs.conns[0].Close()
	cs.mu.Unlock()

	ev := <-c.Events()
	require.IsType(t, models.DownEvent{}, ev)
	waitState(t, c, Disconnected)

	// the same manager dials again and the event stream stays valid
	require.NoError(t, c.Connect(context.Background()))
	waitState(t, c, Live)
	ev = <-c.Events()
	require.IsType(t, models.AuthOKEvent{}, ev)
}
