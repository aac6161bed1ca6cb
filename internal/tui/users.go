package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/sadopc/pomotree/internal/store"
)

type usersModel struct {
	store  *store.Store
	width  int
	height int

	users        []store.User
	cursor       int
	activeUserID string

	formActive bool
	form       *huh.Form

	// Form field pointers (survive value copies)
	formName  *string
	formEmail *string
}

func newUsersModel(s *store.Store) usersModel {
	name, email := "", ""
	return usersModel{
		store:     s,
		formName:  &name,
		formEmail: &email,
	}
}

func (u *usersModel) setSize(w, h int) {
	u.width = w
	u.height = h
}

type usersDataMsg struct {
	users []store.User
}

func (u usersModel) refresh() tea.Cmd {
	return func() tea.Msg {
		users, _ := u.store.ListUsers()
		return usersDataMsg{users: users}
	}
}

func (u usersModel) update(msg tea.Msg) (usersModel, tea.Cmd) {
	if u.formActive && u.form != nil {
		return u.updateForm(msg)
	}

	switch msg := msg.(type) {
	case usersDataMsg:
		u.users = msg.users
		if u.cursor >= len(u.users) {
			u.cursor = max(0, len(u.users)-1)
		}
		return u, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Up):
			if u.cursor > 0 {
				u.cursor--
			}
		case key.Matches(msg, keys.Down):
			if u.cursor < len(u.users)-1 {
				u.cursor++
			}
		case key.Matches(msg, keys.Enter):
			if len(u.users) > 0 {
				selected := u.users[u.cursor]
				u.activeUserID = selected.ID
				return u, func() tea.Msg {
					return userSelectedMsg{user: &selected}
				}
			}
		case key.Matches(msg, keys.New):
			return u.showNewUserForm()
		case key.Matches(msg, keys.Delete):
			if len(u.users) > 0 {
				return u.deleteSelected()
			}
		}
	}
	return u, nil
}

// deleteSelected removes the user and everything they own. Detached
// sessions are the only rows that survive.
func (u usersModel) deleteSelected() (usersModel, tea.Cmd) {
	user := u.users[u.cursor]
	if err := u.store.DeleteUser(user.ID); err != nil {
		return u, func() tea.Msg {
			return statusMsg{text: fmt.Sprintf("Delete error: %v", err), isError: true}
		}
	}
	cmds := []tea.Cmd{u.refresh()}
	if user.ID == u.activeUserID {
		u.activeUserID = ""
		cmds = append(cmds, func() tea.Msg { return userSelectedMsg{user: nil} })
	}
	return u, tea.Batch(cmds...)
}

func (u usersModel) showNewUserForm() (usersModel, tea.Cmd) {
	*u.formName = ""
	*u.formEmail = ""

	u.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().Title("Name").Value(u.formName),
			huh.NewInput().Title("Email").Value(u.formEmail),
		),
	).WithShowHelp(true).WithShowErrors(true)

	u.formActive = true
	return u, u.form.Init()
}

func (u usersModel) updateForm(msg tea.Msg) (usersModel, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		if msg.String() == "esc" {
			u.formActive = false
			u.form = nil
			return u, nil
		}
	}

	form, cmd := u.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		u.form = f
	}

	if u.form.State == huh.StateCompleted {
		u.formActive = false
		if *u.formName != "" && *u.formEmail != "" {
			created, err := u.store.CreateUser(*u.formEmail, *u.formName, nil)
			if err != nil {
				return u, func() tea.Msg {
					return statusMsg{text: fmt.Sprintf("Create error: %v", err), isError: true}
				}
			}
			return u, tea.Batch(u.refresh(), func() tea.Msg {
				return userCreatedMsg{user: created}
			})
		}
		return u, u.refresh()
	}
	return u, cmd
}

func (u usersModel) view() string {
	w := u.width - 4

	if u.formActive && u.form != nil {
		title := titleStyle.Render("New User")
		return panelStyle.Width(w).Render(
			lipgloss.JoinVertical(lipgloss.Left, title, "", u.form.View()),
		)
	}

	title := titleStyle.Render("Users")

	if len(u.users) == 0 {
		content := lipgloss.JoinVertical(lipgloss.Left,
			title,
			"",
			mutedStyle.Render("No users yet. Press n to create one."),
		)
		return panelStyle.Width(w).Render(content)
	}

	var rows []string
	rows = append(rows, title)
	rows = append(rows, "")

	for i, user := range u.users {
		cursor := "  "
		style := normalItemStyle
		if i == u.cursor {
			cursor = "> "
			style = selectedItemStyle
		}
		marker := " "
		if user.ID == u.activeUserID {
			marker = successStyle.Render("●")
		}
		rows = append(rows, style.Render(fmt.Sprintf("%s%s %-20s", cursor, marker, user.Name))+
			mutedStyle.Render(user.Email))
	}

	rows = append(rows, "")
	rows = append(rows, mutedStyle.Render("  enter: switch  n: new  d: delete"))

	return panelStyle.Width(w).Render(strings.Join(rows, "\n"))
}
