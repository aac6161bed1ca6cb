package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/sadopc/pomotree/internal/store"
)

var projectColors = []string{"#3B82F6", "#2EC4B6", "#FF6B6B", "#F39C12", "#2ECC71", "#9B59B6", "#E74C3C", "#34D399"}
var taskPriorities = []string{store.PriorityLow, store.PriorityMedium, store.PriorityHigh, store.PriorityUrgent}

// taskRow is a task flattened out of its tree, carrying its depth for
// indentation.
type taskRow struct {
	task  store.Task
	depth int
}

type projectsModel struct {
	store  *store.Store
	width  int
	height int

	userID string

	projects     []store.Project
	cursor       int
	viewingTasks bool
	rows         []taskRow
	taskCursor   int

	formActive bool
	form       *huh.Form
	formType   string // "project", "edit_project", "task", "subtask"

	// Form field pointers (survive value copies)
	formName     *string
	formDesc     *string
	formColor    *string
	formPriority *string

	editingID string
	parentID  *string
}

func newProjectsModel(s *store.Store) projectsModel {
	name, desc, color, prio := "", "", projectColors[0], store.PriorityMedium
	return projectsModel{
		store:        s,
		formName:     &name,
		formDesc:     &desc,
		formColor:    &color,
		formPriority: &prio,
	}
}

func (p *projectsModel) setSize(w, h int) {
	p.width = w
	p.height = h
}

func (p *projectsModel) setUser(u *store.User) {
	if u == nil {
		p.userID = ""
	} else {
		p.userID = u.ID
	}
	p.projects = nil
	p.rows = nil
	p.cursor = 0
	p.viewingTasks = false
}

type projectsDataMsg struct {
	projects []store.Project
}

type taskRowsMsg struct {
	rows []taskRow
}

func (p projectsModel) refresh() tea.Cmd {
	if p.userID == "" {
		return nil
	}
	userID := p.userID
	return func() tea.Msg {
		projects, _ := p.store.ListProjects(userID)
		return projectsDataMsg{projects: projects}
	}
}

// refreshTasks flattens the selected project's task forest into indented
// rows, children under their parents in creation order.
func (p projectsModel) refreshTasks() tea.Cmd {
	if p.cursor >= len(p.projects) {
		return nil
	}
	pid := p.projects[p.cursor].ID
	return func() tea.Msg {
		tasks, _ := p.store.ListTasks(pid)

		children := make(map[string][]store.Task)
		var roots []store.Task
		for _, t := range tasks {
			if t.ParentID == nil {
				roots = append(roots, t)
			} else {
				children[*t.ParentID] = append(children[*t.ParentID], t)
			}
		}

		var rows []taskRow
		var walk func(t store.Task, depth int)
		walk = func(t store.Task, depth int) {
			rows = append(rows, taskRow{task: t, depth: depth})
			for _, c := range children[t.ID] {
				walk(c, depth+1)
			}
		}
		for _, r := range roots {
			walk(r, 0)
		}
		return taskRowsMsg{rows: rows}
	}
}

func (p projectsModel) update(msg tea.Msg) (projectsModel, tea.Cmd) {
	if p.formActive && p.form != nil {
		return p.updateForm(msg)
	}

	switch msg := msg.(type) {
	case projectsDataMsg:
		p.projects = msg.projects
		if p.cursor >= len(p.projects) {
			p.cursor = max(0, len(p.projects)-1)
		}
		return p, nil

	case taskRowsMsg:
		p.rows = msg.rows
		if p.taskCursor >= len(p.rows) {
			p.taskCursor = max(0, len(p.rows)-1)
		}
		return p, nil

	case tea.KeyMsg:
		if p.userID == "" {
			return p, nil
		}
		if p.viewingTasks {
			return p.updateTaskView(msg)
		}
		return p.updateProjectList(msg)
	}
	return p, nil
}

func (p projectsModel) updateProjectList(msg tea.KeyMsg) (projectsModel, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Up):
		if p.cursor > 0 {
			p.cursor--
		}
	case key.Matches(msg, keys.Down):
		if p.cursor < len(p.projects)-1 {
			p.cursor++
		}
	case key.Matches(msg, keys.Enter):
		if len(p.projects) > 0 {
			p.viewingTasks = true
			p.taskCursor = 0
			return p, p.refreshTasks()
		}
	case key.Matches(msg, keys.New):
		return p.showProjectForm(false)
	case key.Matches(msg, keys.Export):
		if len(p.projects) > 0 {
			return p.showProjectForm(true)
		}
	case key.Matches(msg, keys.Delete):
		if len(p.projects) > 0 {
			proj := p.projects[p.cursor]
			if err := p.store.DeleteProject(proj.ID); err != nil {
				return p, func() tea.Msg {
					return statusMsg{text: fmt.Sprintf("Delete error: %v", err), isError: true}
				}
			}
			return p, p.refresh()
		}
	}
	return p, nil
}

func (p projectsModel) updateTaskView(msg tea.KeyMsg) (projectsModel, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Back):
		p.viewingTasks = false
		return p, nil
	case key.Matches(msg, keys.Up):
		if p.taskCursor > 0 {
			p.taskCursor--
		}
	case key.Matches(msg, keys.Down):
		if p.taskCursor < len(p.rows)-1 {
			p.taskCursor++
		}
	case key.Matches(msg, keys.New):
		return p.showTaskForm(nil)
	case key.Matches(msg, keys.Subtask):
		if len(p.rows) > 0 {
			parent := p.rows[p.taskCursor].task
			return p.showTaskForm(&parent.ID)
		}
	case key.Matches(msg, keys.Complete):
		if len(p.rows) > 0 {
			return p.completeSelected()
		}
	case key.Matches(msg, keys.Delete):
		if len(p.rows) > 0 {
			task := p.rows[p.taskCursor].task
			if err := p.store.DeleteTask(task.ID); err != nil {
				return p, func() tea.Msg {
					return statusMsg{text: fmt.Sprintf("Delete error: %v", err), isError: true}
				}
			}
			return p, p.refreshTasks()
		}
	}
	return p, nil
}

// completeSelected marks the task done and bumps today's completed counter.
func (p projectsModel) completeSelected() (projectsModel, tea.Cmd) {
	task := p.rows[p.taskCursor].task
	if task.Status == store.StatusDone {
		return p, nil
	}
	userID := p.userID
	refresh := p.refreshTasks()
	return p, func() tea.Msg {
		minutes := 0
		if task.ActualTime != nil {
			minutes = *task.ActualTime
		}
		if err := p.store.CompleteTask(task.ID, minutes); err != nil {
			return statusMsg{text: fmt.Sprintf("Complete error: %v", err), isError: true}
		}
		p.store.AccumulateAnalytics(userID, store.DateOf(time.Now()), 1, 0, 0)
		if refresh != nil {
			return refresh()
		}
		return nil
	}
}

func (p projectsModel) showProjectForm(editing bool) (projectsModel, tea.Cmd) {
	if editing {
		proj := p.projects[p.cursor]
		*p.formName = proj.Name
		*p.formDesc = proj.Description
		*p.formColor = proj.Color
		p.formType = "edit_project"
		p.editingID = proj.ID
	} else {
		*p.formName = ""
		*p.formDesc = ""
		*p.formColor = projectColors[0]
		p.formType = "project"
	}

	colorOptions := make([]huh.Option[string], len(projectColors))
	for i, c := range projectColors {
		colorOptions[i] = huh.NewOption(fmt.Sprintf("● %s", c), c)
	}

	p.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().Title("Project Name").Value(p.formName),
			huh.NewInput().Title("Description").Value(p.formDesc),
			huh.NewSelect[string]().Title("Color").Options(colorOptions...).Value(p.formColor),
		),
	).WithShowHelp(true).WithShowErrors(true)

	p.formActive = true
	return p, p.form.Init()
}

func (p projectsModel) showTaskForm(parentID *string) (projectsModel, tea.Cmd) {
	*p.formName = ""
	*p.formDesc = ""
	*p.formPriority = store.PriorityMedium
	p.parentID = parentID
	if parentID == nil {
		p.formType = "task"
	} else {
		p.formType = "subtask"
	}

	prioOptions := make([]huh.Option[string], len(taskPriorities))
	for i, pr := range taskPriorities {
		prioOptions[i] = huh.NewOption(pr, pr)
	}

	p.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().Title("Title").Value(p.formName),
			huh.NewInput().Title("Description").Value(p.formDesc),
			huh.NewSelect[string]().Title("Priority").Options(prioOptions...).Value(p.formPriority),
		),
	).WithShowHelp(true).WithShowErrors(true)

	p.formActive = true
	return p, p.form.Init()
}

func (p projectsModel) updateForm(msg tea.Msg) (projectsModel, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		if msg.String() == "esc" {
			p.formActive = false
			p.form = nil
			return p, nil
		}
	}

	form, cmd := p.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		p.form = f
	}

	if p.form.State == huh.StateCompleted {
		p.formActive = false
		switch p.formType {
		case "project":
			if *p.formName != "" {
				p.store.CreateProject(p.userID, *p.formName, *p.formDesc, *p.formColor)
			}
			return p, p.refresh()
		case "edit_project":
			if *p.formName != "" {
				p.store.UpdateProject(p.editingID, *p.formName, *p.formDesc, *p.formColor)
			}
			return p, p.refresh()
		case "task", "subtask":
			if *p.formName != "" && p.cursor < len(p.projects) {
				projectID := p.projects[p.cursor].ID
				nt := store.NewTask{
					Title:       *p.formName,
					Description: *p.formDesc,
					Priority:    *p.formPriority,
					ParentID:    p.parentID,
				}
				if p.parentID == nil {
					nt.ProjectID = &projectID
				}
				if _, err := p.store.CreateTask(nt); err != nil {
					return p, func() tea.Msg {
						return statusMsg{text: fmt.Sprintf("Task error: %v", err), isError: true}
					}
				}
			}
			return p, p.refreshTasks()
		}
	}
	return p, cmd
}

func (p projectsModel) view() string {
	w := p.width - 4

	if p.userID == "" {
		return panelStyle.Width(w).Render(
			lipgloss.JoinVertical(lipgloss.Left,
				titleStyle.Render("Projects"),
				"",
				mutedStyle.Render("Select a user first (press 2)."),
			),
		)
	}

	if p.formActive && p.form != nil {
		title := titleStyle.Render("New Project")
		switch p.formType {
		case "edit_project":
			title = titleStyle.Render("Edit Project")
		case "task":
			title = titleStyle.Render("New Task")
		case "subtask":
			title = titleStyle.Render("New Subtask")
		}
		content := lipgloss.JoinVertical(lipgloss.Left, title, "", p.form.View())
		return panelStyle.Width(w).Render(content)
	}

	if p.viewingTasks {
		return p.renderTaskTree()
	}
	return p.renderProjectList()
}

func (p projectsModel) renderProjectList() string {
	w := p.width - 4
	title := titleStyle.Render("Projects")

	if len(p.projects) == 0 {
		content := lipgloss.JoinVertical(lipgloss.Left,
			title,
			"",
			mutedStyle.Render("No projects yet. Press n to create one."),
		)
		return panelStyle.Width(w).Render(content)
	}

	var rows []string
	rows = append(rows, title)
	rows = append(rows, "")

	for i, proj := range p.projects {
		colorDot := lipgloss.NewStyle().Foreground(lipgloss.Color(proj.Color)).Render("●")
		cursor := "  "
		style := normalItemStyle
		if i == p.cursor {
			cursor = "> "
			style = selectedItemStyle
		}
		row := style.Render(fmt.Sprintf("%s%s %-24s", cursor, colorDot, proj.Name))
		if proj.Description != "" {
			row += mutedStyle.Render(proj.Description)
		}
		rows = append(rows, row)
	}

	rows = append(rows, "")
	rows = append(rows, mutedStyle.Render("  n: new  e: edit  d: delete  enter: tasks"))

	return panelStyle.Width(w).Render(strings.Join(rows, "\n"))
}

func (p projectsModel) renderTaskTree() string {
	w := p.width - 4
	proj := p.projects[p.cursor]
	colorDot := lipgloss.NewStyle().Foreground(lipgloss.Color(proj.Color)).Render("●")
	title := titleStyle.Render(fmt.Sprintf("%s %s — Tasks", colorDot, proj.Name))

	if len(p.rows) == 0 {
		content := lipgloss.JoinVertical(lipgloss.Left,
			title,
			"",
			mutedStyle.Render("No tasks. Press n to add one."),
		)
		return panelStyle.Width(w).Render(content)
	}

	var rows []string
	rows = append(rows, title)
	rows = append(rows, "")

	for i, r := range p.rows {
		cursor := "  "
		style := normalItemStyle
		if i == p.taskCursor {
			cursor = "> "
			style = selectedItemStyle
		}
		if r.task.Status == store.StatusDone && i != p.taskCursor {
			style = doneItemStyle
		}

		indent := strings.Repeat("  ", r.depth)
		marker := statusMarker(r.task.Status)
		line := style.Render(fmt.Sprintf("%s%s%s %s", cursor, indent, marker, r.task.Title))
		line += mutedStyle.Render(" " + priorityBadge(r.task.Priority))
		rows = append(rows, line)
	}

	rows = append(rows, "")
	rows = append(rows, mutedStyle.Render("  n: new  a: subtask  c: complete  d: delete  esc: back"))

	return panelStyle.Width(w).Render(strings.Join(rows, "\n"))
}

func statusMarker(status string) string {
	switch status {
	case store.StatusDone:
		return "✓"
	case store.StatusInProgress:
		return "◐"
	case store.StatusCancelled:
		return "✗"
	}
	return "○"
}

func priorityBadge(priority string) string {
	switch priority {
	case store.PriorityUrgent:
		return "[!!]"
	case store.PriorityHigh:
		return "[!]"
	case store.PriorityLow:
		return "[.]"
	}
	return ""
}
