package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"kuttalk/internal/api"
	"kuttalk/internal/client"
	"kuttalk/internal/config"
	"kuttalk/internal/socket"
	"kuttalk/internal/storage"
	"kuttalk/internal/ui"
)

func main() {
	configPath := flag.String("config", config.DefaultPath(), "path to config file")
	logLevel := flag.String("log-level", "info", "log level (trace|debug|info|warn|error)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "load config:", err)
		os.Exit(1)
	}
	dataDir, err := cfg.ResolveDataDir()
	if err != nil {
		fmt.Fprintln(os.Stderr, "resolve data dir:", err)
		os.Exit(1)
	}

	log, logFile, err := newLogger(dataDir, *logLevel)
	if err != nil {
		fmt.Fprintln(os.Stderr, "open log:", err)
		os.Exit(1)
	}
	defer logFile.Close()

	app, err := newApp(cfg, dataDir, log)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer app.close()

	if err := app.run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// newLogger writes structured logs to a file in the data dir; stderr belongs
// to the terminal UI.
func newLogger(dataDir, level string) (zerolog.Logger, *os.File, error) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return zerolog.Logger{}, nil, fmt.Errorf("parse log level %q: %w", level, err)
	}
	f, err := os.OpenFile(filepath.Join(dataDir, "kuttalk.log"),
		os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return zerolog.Logger{}, nil, err
	}
	log := zerolog.New(f).Level(lvl).With().Timestamp().Logger()
	return log, f, nil
}

// app owns the wired-together client: storage, HTTP, socket, core and the
// terminal shell.
type app struct {
	cfg   config.Config
	log   zerolog.Logger
	store *storage.Store
	core  *client.Core
	ui    *ui.UI

	cancel context.CancelFunc
}

func newApp(cfg config.Config, dataDir string, log zerolog.Logger) (*app, error) {
	store, err := storage.Open(dataDir)
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}

	apiClient, err := api.NewClient(cfg.APIBase, log.With().Str("component", "api").Logger())
	if err != nil {
		store.Close()
		return nil, err
	}

	sess := client.NewSession(store, log.With().Str("component", "session").Logger())
	conn := socket.New(cfg.SocketURL, sess.Token, cfg.HeartbeatTimeout.Std(),
		log.With().Str("component", "socket").Logger())
	pager := client.NewPager(apiClient.Messages, cfg.PageSize,
		log.With().Str("component", "pager").Logger())
	dir := client.NewDirectory(apiClient, log.With().Str("component", "directory").Logger())

	core := client.NewCore(apiClient, conn, sess, dir, pager, store,
		cfg.ReconnectWait.Std(), log.With().Str("component", "core").Logger())

	theme, err := ui.LoadThemeFromDir(filepath.Join(dataDir, "themes"), cfg.Theme)
	if err != nil {
		log.Warn().Err(err).Msg("theme load failed, using defaults")
		theme = ui.DefaultTheme()
	}

	a := &app{cfg: cfg, log: log, store: store, core: core}
	a.ui = ui.NewUI(theme, a.handlers())
	pager.AttachViewport(a.ui.ChatScreen)

	core.SetOnChange(func() {
		a.ui.App.QueueUpdateDraw(func() {
			a.ui.Render(a.snapshot())
		})
	})
	core.SetOnSessionExpired(func() {
		a.ui.App.QueueUpdateDraw(func() {
			a.ui.ShowLogin()
			a.ui.ShowError("Session expired", "Please log in again.", nil)
		})
	})
	return a, nil
}

func (a *app) run() error {
	ctx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel
	a.core.Start(ctx)

	// restore a persisted session off the draw goroutine; the login page is
	// already showing if this fails
	go func() {
		err := a.core.Bootstrap(ctx)
		switch {
		case err == nil:
			a.ui.App.QueueUpdateDraw(func() {
				a.ui.ShowChat()
				a.ui.Render(a.snapshot())
			})
		case errors.Is(err, api.ErrUnauthorized):
			// no usable session; stay on the login page
		default:
			a.log.Error().Err(err).Msg("bootstrap failed")
			a.showError("Startup failed", err)
		}
	}()

	return a.ui.App.Run()
}

func (a *app) close() {
	if a.cancel != nil {
		a.cancel()
	}
	a.core.Shutdown()
	a.store.Close()
}

func (a *app) snapshot() ui.Snapshot {
	snap := ui.Snapshot{
		User:        a.core.User(),
		Conn:        a.core.ConnState(),
		ActiveRoom:  a.core.ActiveRoom(),
		MyRooms:     a.core.MyRooms(),
		PublicRooms: a.core.PublicRooms(),
		Messages:    a.core.Messages(),
		Loading:     a.core.Loading(),
		HasMore:     a.core.HasMore(),
	}
	if snap.ActiveRoom != 0 {
		if title, ok := a.core.RoomTitle(snap.ActiveRoom); ok {
			snap.ActiveTitle = title
		}
	}
	return snap
}

func (a *app) showError(title string, err error) {
	msg := err.Error()
	switch {
	case errors.Is(err, api.ErrConflict):
		msg = "A room with this title already exists."
	case errors.Is(err, api.ErrUnauthorized):
		msg = "Your session is no longer valid. Please log in again."
	}
	a.ui.App.QueueUpdateDraw(func() {
		a.ui.ShowError(title, msg, nil)
	})
}

// handlers adapts user intents to core commands. The shell invokes every
// handler off the draw goroutine, so blocking core calls are fine here.
func (a *app) handlers() ui.Handlers {
	ctx := func() context.Context { return context.Background() }

	return ui.Handlers{
		OnLogin: func(userid, password string) {
			if err := a.core.Login(ctx(), userid, password); err != nil {
				a.showError("Login failed", err)
				return
			}
			a.ui.App.QueueUpdateDraw(func() {
				a.ui.ShowChat()
				a.ui.Render(a.snapshot())
			})
		},
		OnSignup: func(userid, nickname, password string) {
			if err := a.core.Signup(ctx(), userid, nickname, password); err != nil {
				a.showError("Sign up failed", err)
				return
			}
			a.ui.App.QueueUpdateDraw(func() {
				a.ui.ShowInfo("Account created", "You can log in now.", func() {
					a.ui.ShowLogin()
				})
			})
		},
		OnLogout: func() {
			a.core.Logout(ctx())
			a.ui.App.QueueUpdateDraw(a.ui.ShowLogin)
		},
		OnSelectRoom: func(roomID int64) {
			a.core.SelectRoom(roomID)
		},
		OnCreateRoom: func(title string) {
			if _, err := a.core.CreateRoom(ctx(), title); err != nil {
				a.showError("Create room failed", err)
			}
		},
		OnJoinRoom: func(roomID int64) {
			if err := a.core.JoinRoom(ctx(), roomID); err != nil {
				a.showError("Join room failed", err)
			}
		},
		OnLeaveRoom: func(roomID int64) {
			if err := a.core.LeaveRoom(ctx(), roomID); err != nil {
				a.showError("Leave room failed", err)
			}
		},
		OnSendMessage: func(content string) {
			if err := a.core.SendMessage(content); err != nil {
				a.showError("Send failed", err)
			}
		},
		OnLoadOlder: func() {
			a.core.LoadOlder()
		},
		OnQuit: func() {
			a.ui.App.Stop()
		},
	}
}
