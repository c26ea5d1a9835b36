package ui

import (
	"strings"

	"codeberg.org/tslocum/cview"
)

var banner = `
 ██ ▄█▀ █    ██ ▄▄▄█████▓▄▄▄█████▓▄▄▄       ██▓     ██ ▄█▀
 ██▄█▒  ██  ▓██▒▓  ██▒ ▓▒▓  ██▒ ▓▒████▄    ▓██▒     ██▄█▒
▓███▄░ ▓██  ▒██░▒ ▓██░ ▒░▒ ▓██░ ▒▒██  ▀█▄  ▒██░    ▓███▄░
▓██ █▄ ▓▓█  ░██░░ ▓██▓ ░ ░ ▓██▓ ░░██▄▄▄▄██ ▒██░    ▓██ █▄
▒██▒ █▄▒▒█████▓   ▒██▒ ░   ▒██▒ ░ ▓█   ▓██▒░██████▒▒██▒ █▄
▒ ▒▒ ▓▒░▒▓▒ ▒ ▒   ▒ ░░     ▒ ░░   ▒▒   ▓▒█░░ ▒░▓  ░▒ ▒▒ ▓▒
`

type LoginScreen struct {
	*UI
	layout   *cview.Flex
	form     *cview.Form
	userid   string
	password string
}

func (l *LoginScreen) build() {
	header := cview.NewTextView()
	header.SetText(banner)
	header.SetTextAlign(cview.AlignCenter)
	header.SetTextColor(l.Theme.GetColor("accent"))

	l.form = cview.NewForm()
	bgColor, fieldBg, buttonBg, buttonText, fieldText := l.Theme.FormColors()
	l.form.SetBackgroundColor(bgColor)
	l.form.SetButtonBackgroundColor(buttonBg)
	l.form.SetButtonTextColor(buttonText)
	l.form.SetFieldBackgroundColor(fieldBg)
	l.form.SetFieldTextColor(fieldText)
	l.form.SetLabelColor(l.Theme.GetColor("primary"))
	l.form.SetBorder(true)
	l.form.SetBorderColor(l.Theme.GetColor("border"))
	l.form.SetButtonsAlign(cview.AlignCenter)
	l.form.SetTitle("[ Login ]")

	l.form.AddInputField("User ID ", "", 0, nil, func(s string) { l.userid = s })
	l.form.AddPasswordField("Password", "", 0, '*', func(s string) { l.password = s })

	l.form.AddButton("Login", func() {
		userid := strings.TrimSpace(l.userid)
		if userid == "" || l.password == "" {
			l.ShowError("Login failed", "User ID and password are required", nil)
			return
		}
		go l.handlers.OnLogin(userid, l.password)
	})
	l.form.AddButton("Sign Up", func() {
		l.Pages.SwitchToPage("signup")
		l.App.SetFocus(l.SignupScreen.form)
	})

	formRow := cview.NewFlex()
	formRow.SetDirection(cview.FlexColumn)
	formRow.AddItem(nil, 0, 1, false)
	formRow.AddItem(l.form, 0, 2, true)
	formRow.AddItem(nil, 0, 1, false)

	l.layout = cview.NewFlex()
	l.layout.SetDirection(cview.FlexRow)
	l.layout.AddItem(nil, 0, 1, false)
	l.layout.AddItem(header, 9, 0, false)
	l.layout.AddItem(formRow, 0, 2, true)
	l.layout.AddItem(nil, 0, 1, false)
}

type SignupScreen struct {
	*UI
	layout   *cview.Flex
	form     *cview.Form
	userid   string
	nickname string
	password string
	confirm  string
}

func (s *SignupScreen) build() {
	s.form = cview.NewForm()
	bgColor, fieldBg, buttonBg, buttonText, fieldText := s.Theme.FormColors()
	s.form.SetBackgroundColor(bgColor)
	s.form.SetButtonBackgroundColor(buttonBg)
	s.form.SetButtonTextColor(buttonText)
	s.form.SetFieldBackgroundColor(fieldBg)
	s.form.SetFieldTextColor(fieldText)
	s.form.SetLabelColor(s.Theme.GetColor("primary"))
	s.form.SetBorder(true)
	s.form.SetBorderColor(s.Theme.GetColor("border"))
	s.form.SetButtonsAlign(cview.AlignCenter)
	s.form.SetTitle("[ Sign Up ]")

	s.form.AddInputField("User ID ", "", 0, nil, func(v string) { s.userid = v })
	s.form.AddInputField("Nickname", "", 0, nil, func(v string) { s.nickname = v })
	s.form.AddPasswordField("Password", "", 0, '*', func(v string) { s.password = v })
	s.form.AddPasswordField("Confirm ", "", 0, '*', func(v string) { s.confirm = v })

	s.form.AddButton("Create Account", func() {
		userid := strings.TrimSpace(s.userid)
		nickname := strings.TrimSpace(s.nickname)
		if userid == "" || nickname == "" || s.password == "" {
			s.ShowError("Sign up failed", "All fields are required", nil)
			return
		}
		if s.password != s.confirm {
			s.ShowError("Sign up failed", "Passwords do not match", nil)
			return
		}
		go s.handlers.OnSignup(userid, nickname, s.password)
	})
	s.form.AddButton("Back", func() {
		s.Pages.SwitchToPage("login")
		s.App.SetFocus(s.LoginScreen.form)
	})

	formRow := cview.NewFlex()
	formRow.SetDirection(cview.FlexColumn)
	formRow.AddItem(nil, 0, 1, false)
	formRow.AddItem(s.form, 0, 2, true)
	formRow.AddItem(nil, 0, 1, false)

	s.layout = cview.NewFlex()
	s.layout.SetDirection(cview.FlexRow)
	s.layout.AddItem(nil, 0, 1, false)
	s.layout.AddItem(formRow, 0, 2, true)
	s.layout.AddItem(nil, 0, 1, false)
}
