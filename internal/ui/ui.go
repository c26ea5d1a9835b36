// Package ui is the terminal presentation shell. It renders snapshots of
// client state and forwards user intents through handler callbacks; it holds
// no protocol or synchronization logic of its own.
package ui

import (
	"codeberg.org/tslocum/cview"

	"kuttalk/internal/models"
	"kuttalk/internal/socket"
)

// Handlers are the user intents the shell forwards to the client core. All
// of them are invoked off the draw goroutine by the shell.
type Handlers struct {
	OnLogin       func(userid, password string)
	OnSignup      func(userid, nickname, password string)
	OnLogout      func()
	OnSelectRoom  func(roomID int64)
	OnCreateRoom  func(title string)
	OnJoinRoom    func(roomID int64)
	OnLeaveRoom   func(roomID int64)
	OnSendMessage func(content string)
	OnLoadOlder   func()
	OnQuit        func()
}

// Snapshot is one consistent view of client state, rendered wholesale. The
// shell never mutates it.
type Snapshot struct {
	User        *models.User
	Conn        socket.State
	ActiveRoom  int64
	ActiveTitle string
	MyRooms     []models.Room
	PublicRooms []models.PublicRoom
	Messages    []models.Message
	Loading     bool
	HasMore     bool
}

type UI struct {
	App   *cview.Application
	Theme *Theme
	Pages *cview.Pages

	LoginScreen  *LoginScreen
	SignupScreen *SignupScreen
	ChatScreen   *ChatScreen

	handlers Handlers
}

func NewUI(theme *Theme, handlers Handlers) *UI {
	app := cview.NewApplication()
	app.EnableMouse(true)

	cview.Borders.HorizontalFocus = cview.Borders.Horizontal
	cview.Borders.VerticalFocus = cview.Borders.Vertical
	cview.Borders.TopLeftFocus = '╭'
	cview.Borders.TopRightFocus = '╮'
	cview.Borders.BottomLeftFocus = '╰'
	cview.Borders.BottomRightFocus = '╯'

	if theme == nil {
		theme = DefaultTheme()
	}

	cview.Styles.PrimitiveBackgroundColor = theme.GetColor("background")
	cview.Styles.TitleColor = theme.GetColor("primary")

	ui := &UI{
		App:      app,
		Theme:    theme,
		handlers: handlers,
	}

	ui.LoginScreen = &LoginScreen{UI: ui}
	ui.LoginScreen.build()
	ui.SignupScreen = &SignupScreen{UI: ui}
	ui.SignupScreen.build()
	ui.ChatScreen = &ChatScreen{UI: ui}
	ui.ChatScreen.build()

	ui.Pages = cview.NewPages()
	ui.Pages.AddPage("login", ui.LoginScreen.layout, true, true)
	ui.Pages.AddPage("signup", ui.SignupScreen.layout, true, false)
	ui.Pages.AddPage("chat", ui.ChatScreen.layout, true, false)

	ui.App.SetRoot(ui.Pages, true)
	ui.App.SetFocus(ui.LoginScreen.form)
	return ui
}

// ShowLogin switches to the login form, e.g. after the session expires.
func (ui *UI) ShowLogin() {
	ui.Pages.SwitchToPage("login")
	ui.App.SetFocus(ui.LoginScreen.form)
}

// ShowChat switches to the chat screen after a successful login.
func (ui *UI) ShowChat() {
	ui.Pages.SwitchToPage("chat")
	ui.App.SetFocus(ui.ChatScreen.msgInput)
}

// Render repaints the chat screen from a state snapshot. Must run on the
// draw goroutine; callers wrap it in App.QueueUpdateDraw.
func (ui *UI) Render(snap Snapshot) {
	ui.ChatScreen.render(snap)
}
