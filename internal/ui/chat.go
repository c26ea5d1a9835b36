package ui

import (
	"fmt"
	"strings"
	"sync"

	"codeberg.org/tslocum/cview"
	"github.com/gdamore/tcell/v2"

	"kuttalk/internal/models"
	"kuttalk/internal/socket"
	"kuttalk/internal/utils"
)

// ChatScreen is the main screen: joined rooms with unread badges on the
// left, the public catalog below them, the active room's history and the
// message input on the right.
//
// The history view renders one line per message with wrapping disabled, so
// scroll offsets map 1:1 onto message indexes. That makes the screen a valid
// pagination viewport: Metrics, SetScrollTop and ScrollToBottom are called
// from outside the draw goroutine (cview primitives are thread-safe).
type ChatScreen struct {
	*UI
	layout      *cview.Flex
	roomList    *cview.List
	publicList  *cview.List
	createInput *cview.InputField
	history     *cview.TextView
	status      *cview.TextView
	msgInput    *cview.InputField
	roomPane    *cview.Flex

	mu        sync.Mutex
	lineCount int
	myRooms   []models.Room
}

func (c *ChatScreen) build() {
	theme := c.Theme

	c.roomList = cview.NewList()
	c.roomList.SetBorder(true)
	c.roomList.SetTitle("[ Rooms ]")
	c.roomList.SetTitleColor(theme.GetColor("primary"))
	c.roomList.SetBorderColor(theme.GetColor("border"))
	c.roomList.SetSelectedBackgroundColor(theme.GetColor("background-light"))
	c.roomList.SetSelectedTextColor(theme.GetColor("primary"))
	c.roomList.SetHighlightFullLine(true)
	c.roomList.ShowSecondaryText(true)
	c.roomList.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		if event.Key() == tcell.KeyDelete || event.Rune() == 'd' {
			c.confirmLeaveSelected()
			return nil
		}
		return event
	})

	c.publicList = cview.NewList()
	c.publicList.SetBorder(true)
	c.publicList.SetTitle("[ Public Rooms ]")
	c.publicList.SetTitleColor(theme.GetColor("primary"))
	c.publicList.SetBorderColor(theme.GetColor("border"))
	c.publicList.SetSelectedBackgroundColor(theme.GetColor("background-light"))
	c.publicList.SetSelectedTextColor(theme.GetColor("accent"))
	c.publicList.SetHighlightFullLine(true)
	c.publicList.ShowSecondaryText(true)

	c.createInput = cview.NewInputField()
	c.createInput.SetLabel("+ ")
	c.createInput.SetPlaceholder("new room title")
	c.createInput.SetFieldBackgroundColor(theme.GetColor("input-field"))
	c.createInput.SetFieldTextColor(theme.GetColor("foreground"))
	c.createInput.SetLabelColor(theme.GetColor("primary"))
	c.createInput.SetDoneFunc(func(key tcell.Key) {
		if key != tcell.KeyEnter {
			return
		}
		title := strings.TrimSpace(c.createInput.GetText())
		if title == "" {
			return
		}
		c.createInput.SetText("")
		go c.handlers.OnCreateRoom(title)
	})

	c.roomPane = cview.NewFlex()
	c.roomPane.SetDirection(cview.FlexRow)
	c.roomPane.AddItem(c.roomList, 0, 2, false)
	c.roomPane.AddItem(c.publicList, 0, 1, false)
	c.roomPane.AddItem(c.createInput, 1, 0, false)

	c.history = cview.NewTextView()
	c.history.SetDynamicColors(true)
	c.history.SetScrollable(true)
	c.history.SetWrap(false)
	c.history.SetBorder(true)
	c.history.SetTitle("[ no room ]")
	c.history.SetTitleColor(theme.GetColor("primary"))
	c.history.SetBorderColor(theme.GetColor("border"))
	c.history.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		if event.Key() == tcell.KeyUp || event.Key() == tcell.KeyPgUp {
			if row, _ := c.history.GetScrollOffset(); row == 0 {
				go c.handlers.OnLoadOlder()
			}
		}
		if event.Key() == tcell.KeyTAB {
			c.App.SetFocus(c.msgInput)
			return nil
		}
		return event
	})
	c.history.SetMouseCapture(func(action cview.MouseAction, event *tcell.EventMouse) (cview.MouseAction, *tcell.EventMouse) {
		if action == cview.MouseScrollUp {
			if row, _ := c.history.GetScrollOffset(); row == 0 {
				go c.handlers.OnLoadOlder()
			}
		}
		return action, event
	})

	c.status = cview.NewTextView()
	c.status.SetDynamicColors(true)
	c.status.SetTextColor(theme.GetColor("foreground-dark"))

	c.msgInput = cview.NewInputField()
	c.msgInput.SetPlaceholder("Type your message here...")
	c.msgInput.SetFieldBackgroundColor(theme.GetColor("input-field"))
	c.msgInput.SetFieldTextColor(theme.GetColor("foreground"))
	c.msgInput.SetBorder(true)
	c.msgInput.SetBorderColor(theme.GetColor("border"))
	c.msgInput.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		switch event.Key() {
		case tcell.KeyEnter:
			message := strings.TrimSpace(c.msgInput.GetText())
			if message != "" {
				c.msgInput.SetText("")
				go c.handlers.OnSendMessage(message)
			}
			return nil
		case tcell.KeyTAB:
			c.App.SetFocus(c.roomList)
			return nil
		}
		return event
	})

	chatPane := cview.NewFlex()
	chatPane.SetDirection(cview.FlexRow)
	chatPane.AddItem(c.history, 0, 1, false)
	chatPane.AddItem(c.status, 1, 0, false)
	chatPane.AddItem(c.msgInput, 3, 0, true)

	c.layout = cview.NewFlex()
	c.layout.SetDirection(cview.FlexColumn)
	c.layout.AddItem(c.roomPane, 0, 1, false)
	c.layout.AddItem(chatPane, 0, 3, true)
	c.layout.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		switch event.Key() {
		case tcell.KeyCtrlQ:
			go c.handlers.OnQuit()
			return nil
		case tcell.KeyCtrlL:
			go c.handlers.OnLogout()
			return nil
		}
		return event
	})
}

// Metrics reports (scrollTop, scrollHeight, clientHeight) in rows.
func (c *ChatScreen) Metrics() (top, height, client int) {
	top, _ = c.history.GetScrollOffset()
	_, _, _, client = c.history.GetInnerRect()
	c.mu.Lock()
	height = c.lineCount
	c.mu.Unlock()
	return top, height, client
}

func (c *ChatScreen) SetScrollTop(top int) {
	if top < 0 {
		top = 0
	}
	c.history.ScrollTo(top, 0)
}

func (c *ChatScreen) ScrollToBottom() {
	c.history.ScrollToEnd()
}

// render repaints the whole screen from one snapshot. Draw goroutine only.
func (c *ChatScreen) render(snap Snapshot) {
	c.mu.Lock()
	c.myRooms = snap.MyRooms
	c.lineCount = len(snap.Messages)
	c.mu.Unlock()

	c.renderRooms(snap)
	c.renderHistory(snap)
	c.renderStatus(snap)
}

func (c *ChatScreen) renderRooms(snap Snapshot) {
	unreadHex := colorTag(c.Theme.GetColor("unread"))

	c.roomList.Clear()
	for _, room := range snap.MyRooms {
		line := cview.Escape(room.Title)
		if room.Unread > 0 {
			line = fmt.Sprintf("%s [%s](%d)[-]", line, unreadHex, room.Unread)
		}
		item := cview.NewListItem(line)
		item.SetSecondaryText(fmt.Sprintf("%d members", room.MemberCount))
		roomID := room.ID
		item.SetSelectedFunc(func() {
			go c.handlers.OnSelectRoom(roomID)
		})
		c.roomList.AddItem(item)
	}

	c.publicList.Clear()
	for _, room := range snap.PublicRooms {
		item := cview.NewListItem(cview.Escape(room.Title))
		item.SetSecondaryText(fmt.Sprintf("%d members", room.MemberCount))
		roomID := room.ID
		item.SetSelectedFunc(func() {
			go c.handlers.OnJoinRoom(roomID)
		})
		c.publicList.AddItem(item)
	}
}

func (c *ChatScreen) renderHistory(snap Snapshot) {
	if snap.ActiveRoom == 0 {
		c.history.SetTitle("[ no room ]")
		c.history.SetText("")
		return
	}
	c.history.SetTitle(fmt.Sprintf("[ %s ]", snap.ActiveTitle))

	timeTag := colorTag(c.Theme.GetColor("foreground-dark"))
	nickTag := colorTag(c.Theme.GetColor("primary"))
	unreadTag := colorTag(c.Theme.GetColor("unread"))

	var b strings.Builder
	for i, msg := range snap.Messages {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "[%s]%s[-] [%s]%s[-] %s",
			timeTag, utils.FormatPrettyTime(msg.CreatedAt),
			nickTag, cview.Escape(msg.SenderNick),
			cview.Escape(msg.Content))
		if msg.UnreadCount > 0 {
			fmt.Fprintf(&b, " [%s](%d)[-]", unreadTag, msg.UnreadCount)
		}
	}
	c.history.SetText(b.String())
}

func (c *ChatScreen) renderStatus(snap Snapshot) {
	parts := make([]string, 0, 4)
	if snap.User != nil {
		parts = append(parts, cview.Escape(snap.User.Nickname))
	}
	switch snap.Conn {
	case socket.Live:
		parts = append(parts, "online")
	case socket.Connecting, socket.AwaitingAuth:
		parts = append(parts, "connecting...")
	default:
		parts = append(parts, "reconnecting...")
	}
	if snap.Loading {
		parts = append(parts, "loading history...")
	} else if snap.ActiveRoom != 0 && snap.HasMore {
		parts = append(parts, "scroll up for older messages")
	}
	parts = append(parts, "^L logout  ^Q quit")
	c.status.SetText(" " + strings.Join(parts, "  |  "))
}

// confirmLeaveSelected asks before leaving the highlighted room. Leaving is
// destructive: history access is gone until a re-join.
func (c *ChatScreen) confirmLeaveSelected() {
	idx := c.roomList.GetCurrentItemIndex()
	c.mu.Lock()
	if idx < 0 || idx >= len(c.myRooms) {
		c.mu.Unlock()
		return
	}
	room := c.myRooms[idx]
	c.mu.Unlock()

	c.ShowConfirm("Leave room",
		fmt.Sprintf("Leave %q? You will lose access to its history.", room.Title),
		func() {
			go c.handlers.OnLeaveRoom(room.ID)
		})
}

func colorTag(color tcell.Color) string {
	return fmt.Sprintf("#%06x", color.Hex())
}
