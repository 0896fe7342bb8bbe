package views

import (
	"fmt"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/matheus3301/huddle/internal/tui/model"
	"github.com/matheus3301/huddle/internal/tui/ui"
)

const previewWidth = 32

// EmptyListText is shown in place of rows when nothing matches.
func EmptyListText(query string) string {
	if query != "" {
		return "No contacts found"
	}
	return "No contacts available"
}

// ContactList is the directory pane: a search-as-you-type input above a
// table of contacts with their chat previews.
type ContactList struct {
	*tview.Flex
	theme    *ui.Theme
	search   *tview.InputField
	table    *tview.Table
	rows     []model.ContactRow
	onSelect func(contactID string)
	onQuery  func(query string)
}

// NewContactList creates the contact pane.
func NewContactList(theme *ui.Theme) *ContactList {
	search := tview.NewInputField().
		SetLabel(" / ").
		SetFieldWidth(0).
		SetPlaceholder("Search contacts...")
	search.SetBackgroundColor(theme.BgColor)
	search.SetFieldBackgroundColor(theme.BgColor)
	search.SetFieldTextColor(theme.FgColor)
	search.SetPlaceholderTextColor(theme.DimColor)
	search.SetLabelColor(theme.MenuKeyColor)

	table := tview.NewTable().
		SetSelectable(true, false).
		SetBorders(false).
		SetFixed(1, 0)
	table.SetBackgroundColor(theme.BgColor)
	table.SetSelectedStyle(tcell.StyleDefault.
		Foreground(theme.TableCursorFg).
		Background(theme.TableCursorBg))

	flex := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(search, 1, 0, false).
		AddItem(table, 0, 1, true)
	flex.SetBorder(true)
	flex.SetBorderColor(theme.BorderColor)
	flex.SetBackgroundColor(theme.BgColor)
	flex.SetTitle(" Contacts ")
	flex.SetTitleColor(theme.TitleColor)

	cl := &ContactList{
		Flex:   flex,
		theme:  theme,
		search: search,
		table:  table,
	}

	search.SetChangedFunc(func(text string) {
		if cl.onQuery != nil {
			cl.onQuery(text)
		}
	})
	table.SetSelectedFunc(func(row, _ int) {
		if id := cl.idAt(row); id != "" && cl.onSelect != nil {
			cl.onSelect(id)
		}
	})

	return cl
}

// Name implements ui.Component.
func (cl *ContactList) Name() string { return "Contacts" }

// SetOnSelect sets the callback run when a contact is opened.
func (cl *ContactList) SetOnSelect(fn func(contactID string)) {
	cl.onSelect = fn
}

// SetOnQuery sets the callback run on every search keystroke.
func (cl *ContactList) SetOnQuery(fn func(query string)) {
	cl.onQuery = fn
}

// Search returns the search input (for focus management).
func (cl *ContactList) Search() *tview.InputField {
	return cl.search
}

// Table returns the contact table (for focus management).
func (cl *ContactList) Table() *tview.Table {
	return cl.table
}

// SetQuery replaces the search text.
func (cl *ContactList) SetQuery(q string) {
	if cl.search.GetText() != q {
		cl.search.SetText(q)
	}
}

// Update re-renders the table, keeping the cursor on the same contact.
func (cl *ContactList) Update(rows []model.ContactRow, userID, query string, now time.Time) {
	selected := cl.SelectedID()
	cl.rows = rows
	cl.table.Clear()

	headers := []struct {
		text string
		exp  int
	}{
		{" NAME", 2},
		{" CONTACT", 2},
		{" PRESENCE", 1},
		{" LAST MESSAGE", 3},
		{" TIME", 0},
	}
	for col, h := range headers {
		cl.table.SetCell(0, col, tview.NewTableCell(h.text).
			SetSelectable(false).
			SetTextColor(cl.theme.TableHeaderFg).
			SetBackgroundColor(cl.theme.TableHeaderBg).
			SetAttributes(tcell.AttrBold).
			SetExpansion(h.exp))
	}

	if len(rows) == 0 {
		cl.table.SetCell(1, 0, tview.NewTableCell(" "+EmptyListText(query)).
			SetSelectable(false).
			SetTextColor(cl.theme.DimColor))
	}

	for i, r := range rows {
		row := i + 1
		c := r.Contact

		name := display(c.Name)
		nameColor := cl.theme.FgColor
		if r.Chat != nil && r.Chat.UnreadCount > 0 {
			name = fmt.Sprintf("(%d) %s", r.Chat.UnreadCount, name)
			nameColor = cl.theme.UnreadColor
		}
		reach := c.Email
		if reach == "" {
			reach = c.Phone
		}
		presenceColor := cl.theme.DimColor
		if c.IsOnline {
			presenceColor = cl.theme.OnlineColor
		}

		var preview, at string
		if r.Chat != nil && r.Chat.LastMessage != nil {
			preview = Preview(r.Chat.LastMessage, userID, previewWidth)
			at = MessageTime(r.Chat.LastMessage.Timestamp, now)
		}

		cl.table.SetCell(row, 0, tview.NewTableCell(" "+name).SetExpansion(2).SetTextColor(nameColor))
		cl.table.SetCell(row, 1, tview.NewTableCell(" "+display(reach)).SetExpansion(2).SetTextColor(cl.theme.FgColor))
		cl.table.SetCell(row, 2, tview.NewTableCell(" "+LastSeen(c, now)).SetExpansion(1).SetTextColor(presenceColor))
		cl.table.SetCell(row, 3, tview.NewTableCell(" "+display(preview)).SetExpansion(3).SetTextColor(cl.theme.FgColor))
		cl.table.SetCell(row, 4, tview.NewTableCell(at+" ").SetAlign(tview.AlignRight).SetTextColor(cl.theme.DimColor))
	}

	if query != "" {
		cl.SetTitle(fmt.Sprintf(" Contacts (%d) search: %s ", len(rows), tview.Escape(query)))
	} else {
		cl.SetTitle(fmt.Sprintf(" Contacts (%d) ", len(rows)))
	}

	cl.reselect(selected)
}

// SelectedID returns the id of the highlighted contact.
func (cl *ContactList) SelectedID() string {
	row, _ := cl.table.GetSelection()
	return cl.idAt(row)
}

func (cl *ContactList) idAt(row int) string {
	idx := row - 1
	if idx < 0 || idx >= len(cl.rows) {
		return ""
	}
	return cl.rows[idx].Contact.ID
}

func (cl *ContactList) reselect(id string) {
	for i, r := range cl.rows {
		if r.Contact.ID == id {
			cl.table.Select(i+1, 0)
			return
		}
	}
	cl.table.Select(1, 0)
	cl.table.ScrollToBeginning()
}
