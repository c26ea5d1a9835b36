package ui

import (
	"codeberg.org/tslocum/cview"
)

// ShowError pops a dismissable error modal over the current page.
func (ui *UI) ShowError(title, message string, onDismiss func()) {
	modal := cview.NewModal()
	bg, text, _ := ui.Theme.ModalColors()
	modal.SetText(message)
	modal.AddButtons([]string{"OK"})
	modal.SetDoneFunc(func(buttonIndex int, buttonLabel string) {
		ui.Pages.RemovePage("error")
		if onDismiss != nil {
			onDismiss()
		}
	})
	modal.SetBackgroundColor(bg)
	modal.SetTextColor(text)
	modal.SetButtonBackgroundColor(ui.Theme.GetColor("red"))
	modal.SetButtonTextColor(ui.Theme.GetColor("background"))
	modal.SetBorder(true)
	modal.SetBorderColor(ui.Theme.GetColor("red"))
	modal.SetTitle(title)
	modal.SetTitleColor(ui.Theme.GetColor("red"))
	modal.SetTitleAlign(cview.AlignCenter)

	ui.Pages.AddPage("error", modal, true, true)
	ui.App.SetFocus(modal)
}

// ShowInfo pops a neutral notice modal.
func (ui *UI) ShowInfo(title, message string, onDismiss func()) {
	modal := cview.NewModal()
	bg, text, border := ui.Theme.ModalColors()
	modal.SetText(message)
	modal.AddButtons([]string{"OK"})
	modal.SetDoneFunc(func(buttonIndex int, buttonLabel string) {
		ui.Pages.RemovePage("info")
		if onDismiss != nil {
			onDismiss()
		}
	})
	modal.SetBackgroundColor(bg)
	modal.SetTextColor(text)
	modal.SetButtonBackgroundColor(ui.Theme.GetColor("button-active"))
	modal.SetButtonTextColor(ui.Theme.GetColor("button-text"))
	modal.SetBorder(true)
	modal.SetBorderColor(border)
	modal.SetTitle(title)
	modal.SetTitleColor(ui.Theme.GetColor("primary"))
	modal.SetTitleAlign(cview.AlignCenter)

	ui.Pages.AddPage("info", modal, true, true)
	ui.App.SetFocus(modal)
}

// ShowConfirm asks a yes/no question; onConfirm runs only on Yes.
func (ui *UI) ShowConfirm(title, message string, onConfirm func()) {
	modal := cview.NewModal()
	bg, text, border := ui.Theme.ModalColors()
	modal.SetText(message)
	modal.AddButtons([]string{"Yes", "No"})
	modal.SetDoneFunc(func(buttonIndex int, buttonLabel string) {
		ui.Pages.RemovePage("confirm")
		if buttonLabel == "Yes" && onConfirm != nil {
			onConfirm()
		}
	})
	modal.SetBackgroundColor(bg)
	modal.SetTextColor(text)
	modal.SetButtonBackgroundColor(ui.Theme.GetColor("button-active"))
	modal.SetButtonTextColor(ui.Theme.GetColor("button-text"))
	modal.SetBorder(true)
	modal.SetBorderColor(border)
	modal.SetTitle(title)
	modal.SetTitleColor(ui.Theme.GetColor("primary"))
	modal.SetTitleAlign(cview.AlignCenter)

	ui.Pages.AddPage("confirm", modal, true, true)
	ui.App.SetFocus(modal)
}
