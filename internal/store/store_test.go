package store

import (
	"errors"
	"testing"
	"time"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewMemory()
	if err != nil {
		t.Fatalf("new memory store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// newTestUser creates a user with a unique email derived from the name.
func newTestUser(t *testing.T, s *Store, name string) *User {
	t.Helper()
	u, err := s.CreateUser(name+"@example.com", name, nil)
	if err != nil {
		t.Fatalf("create user %s: %v", name, err)
	}
	return u
}

func newTestProject(t *testing.T, s *Store, userID, name string) *Project {
	t.Helper()
	p, err := s.CreateProject(userID, name, "", "")
	if err != nil {
		t.Fatalf("create project %s: %v", name, err)
	}
	return p
}

func newTestTask(t *testing.T, s *Store, projectID *string, parentID *string, title string) *Task {
	t.Helper()
	task, err := s.CreateTask(NewTask{Title: title, ProjectID: projectID, ParentID: parentID})
	if err != nil {
		t.Fatalf("create task %s: %v", title, err)
	}
	return task
}

func mustCount(t *testing.T, s *Store, kind EntityKind) int {
	t.Helper()
	n, err := s.Count(kind)
	if err != nil {
		t.Fatalf("count %s: %v", kind, err)
	}
	return n
}

// ============================================================
// Store initialization
// ============================================================

func TestNewMemory(t *testing.T) {
	s, err := NewMemory()
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	// Should have run migration v1
	var version int
	s.db.QueryRow("PRAGMA user_version").Scan(&version)
	if version != 1 {
		t.Fatalf("expected user_version 1, got %d", version)
	}
}

func TestNewWithPath(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/sub/pomotree.db"
	s, err := New(path)
	if err != nil {
		t.Fatal(err)
	}
	s.Close()

	// Reopen — should succeed and not re-migrate
	s2, err := New(path)
	if err != nil {
		t.Fatal(err)
	}
	s2.Close()
}

func TestDefaultDBPath(t *testing.T) {
	path, err := DefaultDBPath()
	if err != nil {
		t.Fatal(err)
	}
	if path == "" {
		t.Fatal("empty path")
	}
}

func TestForeignKeysEnabled(t *testing.T) {
	s := newTestStore(t)

	var fk int
	s.db.QueryRow("PRAGMA foreign_keys").Scan(&fk)
	if fk != 1 {
		t.Fatalf("expected foreign_keys=1, got %d", fk)
	}
}

func TestMigrationIdempotent(t *testing.T) {
	s := newTestStore(t)
	if err := s.migrate(); err != nil {
		t.Fatalf("second migration failed: %v", err)
	}
}

// ============================================================
// Users
// ============================================================

func TestCreateAndGetUser(t *testing.T) {
	s := newTestStore(t)
	u, err := s.CreateUser("ada@example.com", "Ada", map[string]string{"theme": "dark"})
	if err != nil {
		t.Fatal(err)
	}
	if u.ID == "" {
		t.Fatal("expected non-empty ID")
	}
	if u.Email != "ada@example.com" || u.Name != "Ada" {
		t.Fatalf("unexpected user: %+v", u)
	}
	if u.Preferences["theme"] != "dark" {
		t.Fatalf("preferences not round-tripped: %+v", u.Preferences)
	}
	if u.CreatedAt.IsZero() {
		t.Fatal("CreatedAt should be set")
	}

	fetched, err := s.GetUser(u.ID)
	if err != nil {
		t.Fatal(err)
	}
	if fetched.Email != u.Email {
		t.Fatalf("GetUser returned wrong email: %s", fetched.Email)
	}
}

func TestCreateUserNilPreferences(t *testing.T) {
	s := newTestStore(t)
	u, err := s.CreateUser("bob@example.com", "Bob", nil)
	if err != nil {
		t.Fatal(err)
	}
	if u.Preferences != nil {
		t.Fatalf("expected nil preferences, got %+v", u.Preferences)
	}
}

func TestCreateUserValidation(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.CreateUser("", "NoEmail", nil); !errors.Is(err, ErrConstraint) {
		t.Fatalf("expected ErrConstraint for empty email, got %v", err)
	}
	if _, err := s.CreateUser("x@example.com", "", nil); !errors.Is(err, ErrConstraint) {
		t.Fatalf("expected ErrConstraint for empty name, got %v", err)
	}
}

func TestCreateUserDuplicateEmail(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.CreateUser("dup@example.com", "First", nil); err != nil {
		t.Fatal(err)
	}
	_, err := s.CreateUser("dup@example.com", "Second", nil)
	if !errors.Is(err, ErrConstraint) {
		t.Fatalf("expected ErrConstraint for duplicate email, got %v", err)
	}
}

func TestGetUserNotFound(t *testing.T) {
	s := newTestStore(t)
	_, err := s.GetUser("missing")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestGetUserByEmail(t *testing.T) {
	s := newTestStore(t)
	u := newTestUser(t, s, "carol")

	found, err := s.GetUserByEmail("carol@example.com")
	if err != nil {
		t.Fatal(err)
	}
	if found.ID != u.ID {
		t.Fatal("GetUserByEmail returned wrong user")
	}

	if _, err := s.GetUserByEmail("nobody@example.com"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestListUsers(t *testing.T) {
	s := newTestStore(t)
	newTestUser(t, s, "zoe")
	newTestUser(t, s, "amy")

	users, err := s.ListUsers()
	if err != nil {
		t.Fatal(err)
	}
	if len(users) != 2 {
		t.Fatalf("expected 2 users, got %d", len(users))
	}
	// Should be sorted by name
	if users[0].Name != "amy" || users[1].Name != "zoe" {
		t.Fatalf("expected sorted by name: got %s, %s", users[0].Name, users[1].Name)
	}
}

func TestUpdateUserPreferences(t *testing.T) {
	s := newTestStore(t)
	u := newTestUser(t, s, "dana")

	if err := s.UpdateUserPreferences(u.ID, map[string]string{"theme": "light"}); err != nil {
		t.Fatal(err)
	}
	updated, _ := s.GetUser(u.ID)
	if updated.Preferences["theme"] != "light" {
		t.Fatalf("preferences not updated: %+v", updated.Preferences)
	}

	if err := s.UpdateUserPreferences("missing", nil); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

// ============================================================
// Projects
// ============================================================

func TestCreateAndGetProject(t *testing.T) {
	s := newTestStore(t)
	u := newTestUser(t, s, "erin")

	p, err := s.CreateProject(u.ID, "Work", "day job", "#FF0000")
	if err != nil {
		t.Fatal(err)
	}
	if p.Name != "Work" || p.Description != "day job" || p.Color != "#FF0000" {
		t.Fatalf("unexpected project: %+v", p)
	}
	if p.UserID != u.ID {
		t.Fatal("project should reference owner")
	}

	fetched, err := s.GetProject(p.ID)
	if err != nil {
		t.Fatal(err)
	}
	if fetched.Name != "Work" {
		t.Fatalf("GetProject returned wrong name: %s", fetched.Name)
	}
}

func TestCreateProjectDefaultColor(t *testing.T) {
	s := newTestStore(t)
	u := newTestUser(t, s, "finn")

	p, err := s.CreateProject(u.ID, "Plain", "", "")
	if err != nil {
		t.Fatal(err)
	}
	if p.Color != DefaultProjectColor {
		t.Fatalf("expected default color %s, got %s", DefaultProjectColor, p.Color)
	}
}

func TestCreateProjectMissingUser(t *testing.T) {
	s := newTestStore(t)
	_, err := s.CreateProject("missing", "Orphan", "", "")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for missing user, got %v", err)
	}
}

func TestListProjects(t *testing.T) {
	s := newTestStore(t)
	u := newTestUser(t, s, "gil")
	other := newTestUser(t, s, "hana")
	newTestProject(t, s, u.ID, "B")
	newTestProject(t, s, u.ID, "A")
	newTestProject(t, s, other.ID, "C")

	projects, err := s.ListProjects(u.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(projects) != 2 {
		t.Fatalf("expected 2 projects, got %d", len(projects))
	}
	// Sorted by name, scoped to the user
	if projects[0].Name != "A" || projects[1].Name != "B" {
		t.Fatalf("expected sorted by name: got %s, %s", projects[0].Name, projects[1].Name)
	}
}

func TestUpdateProject(t *testing.T) {
	s := newTestStore(t)
	u := newTestUser(t, s, "iris")
	p := newTestProject(t, s, u.ID, "Old")

	if err := s.UpdateProject(p.ID, "New", "renamed", "#444444"); err != nil {
		t.Fatal(err)
	}
	updated, _ := s.GetProject(p.ID)
	if updated.Name != "New" || updated.Description != "renamed" || updated.Color != "#444444" {
		t.Fatalf("update failed: %+v", updated)
	}

	if err := s.UpdateProject("missing", "X", "", ""); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDeleteProject(t *testing.T) {
	s := newTestStore(t)
	u := newTestUser(t, s, "jan")
	p := newTestProject(t, s, u.ID, "Doomed")
	newTestTask(t, s, &p.ID, nil, "goes with it")

	if err := s.DeleteProject(p.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := s.GetProject(p.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
	if n := mustCount(t, s, KindTasks); n != 0 {
		t.Fatalf("expected tasks to cascade, %d left", n)
	}

	if err := s.DeleteProject(p.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second delete, got %v", err)
	}
}

// ============================================================
// Tasks
// ============================================================

func TestCreateTaskDefaults(t *testing.T) {
	s := newTestStore(t)
	u := newTestUser(t, s, "kim")
	p := newTestProject(t, s, u.ID, "Dev")

	task, err := s.CreateTask(NewTask{Title: "Bug fix", ProjectID: &p.ID})
	if err != nil {
		t.Fatal(err)
	}
	if task.Status != StatusTodo {
		t.Fatalf("expected default status %s, got %s", StatusTodo, task.Status)
	}
	if task.Priority != PriorityMedium {
		t.Fatalf("expected default priority %s, got %s", PriorityMedium, task.Priority)
	}
	if task.ProjectID == nil || *task.ProjectID != p.ID {
		t.Fatal("task should reference project")
	}
	if task.ParentID != nil || task.DueDate != nil || task.ActualTime != nil {
		t.Fatalf("unexpected non-nil optionals: %+v", task)
	}
}

func TestCreateTaskExplicitFields(t *testing.T) {
	s := newTestStore(t)
	u := newTestUser(t, s, "lea")
	p := newTestProject(t, s, u.ID, "Dev")

	due := time.Now().UTC().Add(48 * time.Hour).Truncate(time.Second)
	est := 90
	task, err := s.CreateTask(NewTask{
		Title:         "Spike",
		Description:   "investigate",
		Status:        StatusInProgress,
		Priority:      PriorityUrgent,
		ProjectID:     &p.ID,
		DueDate:       &due,
		EstimatedTime: &est,
	})
	if err != nil {
		t.Fatal(err)
	}
	if task.Status != StatusInProgress || task.Priority != PriorityUrgent {
		t.Fatalf("unexpected task: %+v", task)
	}
	if task.DueDate == nil || !task.DueDate.Equal(due) {
		t.Fatalf("due date not round-tripped: %v", task.DueDate)
	}
	if task.EstimatedTime == nil || *task.EstimatedTime != 90 {
		t.Fatalf("estimated time not round-tripped: %v", task.EstimatedTime)
	}
}

func TestCreateTaskInvalidEnums(t *testing.T) {
	s := newTestStore(t)
	_, err := s.CreateTask(NewTask{Title: "X", Status: "WAITING"})
	if !errors.Is(err, ErrConstraint) {
		t.Fatalf("expected ErrConstraint for bad status, got %v", err)
	}
	_, err = s.CreateTask(NewTask{Title: "X", Priority: "EXTREME"})
	if !errors.Is(err, ErrConstraint) {
		t.Fatalf("expected ErrConstraint for bad priority, got %v", err)
	}
	_, err = s.CreateTask(NewTask{})
	if !errors.Is(err, ErrConstraint) {
		t.Fatalf("expected ErrConstraint for empty title, got %v", err)
	}
}

func TestCreateTaskMissingProject(t *testing.T) {
	s := newTestStore(t)
	missing := "missing"
	_, err := s.CreateTask(NewTask{Title: "Orphan", ProjectID: &missing})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestCreateTaskMissingParent(t *testing.T) {
	s := newTestStore(t)
	missing := "missing"
	_, err := s.CreateTask(NewTask{Title: "Orphan", ParentID: &missing})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSubtaskInheritsProject(t *testing.T) {
	s := newTestStore(t)
	u := newTestUser(t, s, "mia")
	p := newTestProject(t, s, u.ID, "Dev")
	parent := newTestTask(t, s, &p.ID, nil, "Parent")

	child, err := s.CreateTask(NewTask{Title: "Child", ParentID: &parent.ID})
	if err != nil {
		t.Fatal(err)
	}
	if child.ProjectID == nil || *child.ProjectID != p.ID {
		t.Fatalf("subtask should inherit parent's project, got %v", child.ProjectID)
	}
}

func TestSubtaskCrossProjectRejected(t *testing.T) {
	s := newTestStore(t)
	u := newTestUser(t, s, "nico")
	p1 := newTestProject(t, s, u.ID, "A")
	p2 := newTestProject(t, s, u.ID, "B")
	parent := newTestTask(t, s, &p1.ID, nil, "Parent")

	_, err := s.CreateTask(NewTask{Title: "Stray", ProjectID: &p2.ID, ParentID: &parent.ID})
	if !errors.Is(err, ErrConstraint) {
		t.Fatalf("expected ErrConstraint for cross-project subtask, got %v", err)
	}
}

func TestListRootTasksAndSubtasks(t *testing.T) {
	s := newTestStore(t)
	u := newTestUser(t, s, "omar")
	p := newTestProject(t, s, u.ID, "Dev")
	root := newTestTask(t, s, &p.ID, nil, "Root")
	newTestTask(t, s, nil, &root.ID, "Sub 1")
	newTestTask(t, s, nil, &root.ID, "Sub 2")

	roots, err := s.ListRootTasks(p.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(roots) != 1 || roots[0].ID != root.ID {
		t.Fatalf("expected 1 root task, got %d", len(roots))
	}

	subs, err := s.ListSubtasks(root.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(subs) != 2 {
		t.Fatalf("expected 2 subtasks, got %d", len(subs))
	}
	// Oldest first
	if subs[0].Title != "Sub 1" {
		t.Fatalf("expected creation order, got %s first", subs[0].Title)
	}

	all, _ := s.ListTasks(p.ID)
	if len(all) != 3 {
		t.Fatalf("ListTasks should include subtasks, got %d", len(all))
	}
}

func TestUpdateTaskStatus(t *testing.T) {
	s := newTestStore(t)
	u := newTestUser(t, s, "pia")
	p := newTestProject(t, s, u.ID, "Dev")
	task := newTestTask(t, s, &p.ID, nil, "Feature")

	if err := s.UpdateTaskStatus(task.ID, StatusInProgress); err != nil {
		t.Fatal(err)
	}
	updated, _ := s.GetTask(task.ID)
	if updated.Status != StatusInProgress {
		t.Fatalf("expected %s, got %s", StatusInProgress, updated.Status)
	}

	if err := s.UpdateTaskStatus(task.ID, "BOGUS"); !errors.Is(err, ErrConstraint) {
		t.Fatalf("expected ErrConstraint, got %v", err)
	}
	if err := s.UpdateTaskStatus("missing", StatusDone); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestCompleteTask(t *testing.T) {
	s := newTestStore(t)
	u := newTestUser(t, s, "quinn")
	p := newTestProject(t, s, u.ID, "Dev")
	task := newTestTask(t, s, &p.ID, nil, "Feature")

	if err := s.CompleteTask(task.ID, 45); err != nil {
		t.Fatal(err)
	}
	done, _ := s.GetTask(task.ID)
	if done.Status != StatusDone {
		t.Fatalf("expected %s, got %s", StatusDone, done.Status)
	}
	if done.ActualTime == nil || *done.ActualTime != 45 {
		t.Fatalf("expected actual time 45, got %v", done.ActualTime)
	}
}

func TestSetTaskParent(t *testing.T) {
	s := newTestStore(t)
	u := newTestUser(t, s, "rhea")
	p := newTestProject(t, s, u.ID, "Dev")
	a := newTestTask(t, s, &p.ID, nil, "A")
	b := newTestTask(t, s, &p.ID, nil, "B")

	if err := s.SetTaskParent(b.ID, &a.ID); err != nil {
		t.Fatal(err)
	}
	moved, _ := s.GetTask(b.ID)
	if moved.ParentID == nil || *moved.ParentID != a.ID {
		t.Fatal("reparent failed")
	}

	// Detach back to root
	if err := s.SetTaskParent(b.ID, nil); err != nil {
		t.Fatal(err)
	}
	detached, _ := s.GetTask(b.ID)
	if detached.ParentID != nil {
		t.Fatal("detach failed")
	}
}

func TestSetTaskParentCycle(t *testing.T) {
	s := newTestStore(t)
	u := newTestUser(t, s, "sam")
	p := newTestProject(t, s, u.ID, "Dev")
	a := newTestTask(t, s, &p.ID, nil, "A")
	b := newTestTask(t, s, nil, &a.ID, "B")
	c := newTestTask(t, s, nil, &b.ID, "C")

	// A under its own grandchild would close a loop
	if err := s.SetTaskParent(a.ID, &c.ID); !errors.Is(err, ErrCycle) {
		t.Fatalf("expected ErrCycle, got %v", err)
	}
	// Self-parenting is the degenerate loop
	if err := s.SetTaskParent(a.ID, &a.ID); !errors.Is(err, ErrCycle) {
		t.Fatalf("expected ErrCycle for self-parent, got %v", err)
	}

	// Chain must be intact after the rejected moves
	got, _ := s.GetTask(c.ID)
	if got.ParentID == nil || *got.ParentID != b.ID {
		t.Fatal("rejected reparent should not modify the tree")
	}
}

func TestSetTaskParentCrossProject(t *testing.T) {
	s := newTestStore(t)
	u := newTestUser(t, s, "tara")
	p1 := newTestProject(t, s, u.ID, "A")
	p2 := newTestProject(t, s, u.ID, "B")
	t1 := newTestTask(t, s, &p1.ID, nil, "In A")
	t2 := newTestTask(t, s, &p2.ID, nil, "In B")

	if err := s.SetTaskParent(t1.ID, &t2.ID); !errors.Is(err, ErrConstraint) {
		t.Fatalf("expected ErrConstraint, got %v", err)
	}
}

func TestDeleteTaskSubtree(t *testing.T) {
	s := newTestStore(t)
	u := newTestUser(t, s, "uma")
	p := newTestProject(t, s, u.ID, "Dev")
	a := newTestTask(t, s, &p.ID, nil, "A")
	b := newTestTask(t, s, nil, &a.ID, "B")
	c := newTestTask(t, s, nil, &b.ID, "C")

	if err := s.DeleteTask(a.ID); err != nil {
		t.Fatal(err)
	}
	for _, id := range []string{a.ID, b.ID, c.ID} {
		if _, err := s.GetTask(id); !errors.Is(err, ErrNotFound) {
			t.Fatalf("task %s should be gone, got %v", id, err)
		}
	}
}

func TestDeleteTaskClearsSessionLink(t *testing.T) {
	s := newTestStore(t)
	u := newTestUser(t, s, "vic")
	p := newTestProject(t, s, u.ID, "Dev")
	task := newTestTask(t, s, &p.ID, nil, "Focus target")

	sess, err := s.CreateSession(NewSession{TaskID: &task.ID, Duration: 25, StartTime: time.Now().UTC()})
	if err != nil {
		t.Fatal(err)
	}

	if err := s.DeleteTask(task.ID); err != nil {
		t.Fatal(err)
	}
	kept, err := s.GetSession(sess.ID)
	if err != nil {
		t.Fatalf("session should survive task deletion: %v", err)
	}
	if kept.TaskID != nil {
		t.Fatalf("expected cleared task link, got %v", *kept.TaskID)
	}
}

func TestGetTaskNotFound(t *testing.T) {
	s := newTestStore(t)
	_, err := s.GetTask("missing")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

// ============================================================
// Pomodoro sessions
// ============================================================

func TestCreateAndGetSession(t *testing.T) {
	s := newTestStore(t)
	u := newTestUser(t, s, "wes")
	p := newTestProject(t, s, u.ID, "Dev")
	task := newTestTask(t, s, &p.ID, nil, "Deep work")

	start := time.Now().UTC().Truncate(time.Second)
	sess, err := s.CreateSession(NewSession{TaskID: &task.ID, Duration: 25, StartTime: start, Notes: "first block"})
	if err != nil {
		t.Fatal(err)
	}
	if sess.TaskID == nil || *sess.TaskID != task.ID {
		t.Fatal("session should reference task")
	}
	if sess.Completed {
		t.Fatal("new session should not be completed")
	}
	if !sess.StartTime.Equal(start) {
		t.Fatalf("start time not round-tripped: %v", sess.StartTime)
	}
	if sess.Notes != "first block" {
		t.Fatalf("unexpected notes: %q", sess.Notes)
	}
}

func TestCreateSessionUnlinked(t *testing.T) {
	s := newTestStore(t)
	sess, err := s.CreateSession(NewSession{Duration: 25, StartTime: time.Now().UTC()})
	if err != nil {
		t.Fatal(err)
	}
	if sess.TaskID != nil {
		t.Fatal("task link should be nil")
	}
}

func TestCreateSessionValidation(t *testing.T) {
	s := newTestStore(t)
	_, err := s.CreateSession(NewSession{Duration: 0, StartTime: time.Now().UTC()})
	if !errors.Is(err, ErrConstraint) {
		t.Fatalf("expected ErrConstraint for zero duration, got %v", err)
	}
	_, err = s.CreateSession(NewSession{Duration: 25})
	if !errors.Is(err, ErrConstraint) {
		t.Fatalf("expected ErrConstraint for zero start, got %v", err)
	}
}

func TestCreateSessionMissingTask(t *testing.T) {
	s := newTestStore(t)
	missing := "missing"
	_, err := s.CreateSession(NewSession{TaskID: &missing, Duration: 25, StartTime: time.Now().UTC()})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestCompleteSession(t *testing.T) {
	s := newTestStore(t)
	start := time.Now().UTC().Truncate(time.Second)
	sess, _ := s.CreateSession(NewSession{Duration: 25, StartTime: start})

	end := start.Add(25 * time.Minute)
	if err := s.CompleteSession(sess.ID, end); err != nil {
		t.Fatal(err)
	}
	done, _ := s.GetSession(sess.ID)
	if !done.Completed || done.EndTime == nil || !done.EndTime.Equal(end) {
		t.Fatalf("complete failed: %+v", done)
	}

	if err := s.CompleteSession("missing", end); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestListSessionsForTask(t *testing.T) {
	s := newTestStore(t)
	u := newTestUser(t, s, "xena")
	p := newTestProject(t, s, u.ID, "Dev")
	task := newTestTask(t, s, &p.ID, nil, "Focus")

	now := time.Now().UTC()
	s.CreateSession(NewSession{TaskID: &task.ID, Duration: 25, StartTime: now.Add(-time.Hour)})
	s.CreateSession(NewSession{TaskID: &task.ID, Duration: 25, StartTime: now})
	s.CreateSession(NewSession{Duration: 25, StartTime: now}) // unlinked

	sessions, err := s.ListSessionsForTask(task.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(sessions) != 2 {
		t.Fatalf("expected 2 sessions, got %d", len(sessions))
	}
	// Oldest first
	if !sessions[0].StartTime.Before(sessions[1].StartTime) {
		t.Fatal("sessions should be ordered by start time")
	}
}

func TestListSessionsForUser(t *testing.T) {
	s := newTestStore(t)
	u1 := newTestUser(t, s, "yuri")
	u2 := newTestUser(t, s, "zara")
	p1 := newTestProject(t, s, u1.ID, "Mine")
	p2 := newTestProject(t, s, u2.ID, "Theirs")
	t1 := newTestTask(t, s, &p1.ID, nil, "Mine")
	t2 := newTestTask(t, s, &p2.ID, nil, "Theirs")

	now := time.Now().UTC()
	s.CreateSession(NewSession{TaskID: &t1.ID, Duration: 25, StartTime: now.Add(-time.Hour)})
	s.CreateSession(NewSession{TaskID: &t1.ID, Duration: 25, StartTime: now})
	s.CreateSession(NewSession{TaskID: &t2.ID, Duration: 25, StartTime: now})

	sessions, err := s.ListSessionsForUser(u1.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(sessions) != 2 {
		t.Fatalf("expected 2 sessions for user, got %d", len(sessions))
	}
	// Newest first
	if sessions[0].StartTime.Before(sessions[1].StartTime) {
		t.Fatal("sessions should be newest first")
	}
}

func TestGetFocusStats(t *testing.T) {
	s := newTestStore(t)
	now := time.Now().UTC()

	s1, _ := s.CreateSession(NewSession{Duration: 25, StartTime: now.Add(-30 * time.Minute)})
	s.CompleteSession(s1.ID, now.Add(-5*time.Minute))
	s2, _ := s.CreateSession(NewSession{Duration: 50, StartTime: now.Add(-2 * time.Hour)})
	s.CompleteSession(s2.ID, now.Add(-time.Hour))
	s.CreateSession(NewSession{Duration: 25, StartTime: now}) // not completed

	completed, minutes, err := s.GetFocusStats(now.Add(-24*time.Hour), now.Add(time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	if completed != 2 {
		t.Fatalf("expected 2 completed, got %d", completed)
	}
	if minutes != 75 {
		t.Fatalf("expected 75 minutes, got %d", minutes)
	}
}

func TestGetFocusStatsLocalTimeBounds(t *testing.T) {
	s := newTestStore(t)
	now := time.Now().UTC()

	s1, _ := s.CreateSession(NewSession{Duration: 25, StartTime: now.Add(-30 * time.Minute)})
	s.CompleteSession(s1.ID, now.Add(-5*time.Minute))

	// Bounds in a non-UTC zone must match the same instants as UTC bounds.
	zone := time.FixedZone("UTC+10", 10*3600)
	from := now.Add(-24 * time.Hour).In(zone)
	to := now.Add(time.Hour).In(zone)

	completed, minutes, err := s.GetFocusStats(from, to)
	if err != nil {
		t.Fatal(err)
	}
	if completed != 1 {
		t.Fatalf("expected 1 completed, got %d", completed)
	}
	if minutes != 25 {
		t.Fatalf("expected 25 minutes, got %d", minutes)
	}
}

// ============================================================
// Analytics
// ============================================================

func TestUpsertAnalytics(t *testing.T) {
	s := newTestStore(t)
	u := newTestUser(t, s, "ana")
	date := DateOf(time.Now())

	a, err := s.UpsertAnalytics(u.ID, date, 3, 5, 125)
	if err != nil {
		t.Fatal(err)
	}
	if a.TasksCompleted != 3 || a.PomodoroSessions != 5 || a.TotalFocusTime != 125 {
		t.Fatalf("unexpected analytics: %+v", a)
	}

	// Second write replaces, never duplicates
	a2, err := s.UpsertAnalytics(u.ID, date, 4, 6, 150)
	if err != nil {
		t.Fatal(err)
	}
	if a2.ID != a.ID {
		t.Fatal("upsert should keep the existing row")
	}
	if a2.TasksCompleted != 4 || a2.TotalFocusTime != 150 {
		t.Fatalf("upsert did not replace counters: %+v", a2)
	}
	if n := mustCount(t, s, KindAnalytics); n != 1 {
		t.Fatalf("expected 1 analytics row, got %d", n)
	}
}

func TestAccumulateAnalytics(t *testing.T) {
	s := newTestStore(t)
	u := newTestUser(t, s, "ben")
	date := DateOf(time.Now())

	if _, err := s.AccumulateAnalytics(u.ID, date, 1, 1, 25); err != nil {
		t.Fatal(err)
	}
	a, err := s.AccumulateAnalytics(u.ID, date, 0, 1, 25)
	if err != nil {
		t.Fatal(err)
	}
	if a.TasksCompleted != 1 || a.PomodoroSessions != 2 || a.TotalFocusTime != 50 {
		t.Fatalf("deltas not accumulated: %+v", a)
	}
	if n := mustCount(t, s, KindAnalytics); n != 1 {
		t.Fatalf("expected 1 analytics row, got %d", n)
	}
}

func TestAnalyticsPerUserPerDay(t *testing.T) {
	s := newTestStore(t)
	u1 := newTestUser(t, s, "cal")
	u2 := newTestUser(t, s, "dee")
	date := DateOf(time.Now())

	s.UpsertAnalytics(u1.ID, date, 1, 0, 0)
	s.UpsertAnalytics(u2.ID, date, 2, 0, 0)
	s.UpsertAnalytics(u1.ID, "2026-01-01", 3, 0, 0)

	if n := mustCount(t, s, KindAnalytics); n != 3 {
		t.Fatalf("distinct (user, date) pairs should coexist, got %d rows", n)
	}
}

func TestUpsertAnalyticsMissingUser(t *testing.T) {
	s := newTestStore(t)
	_, err := s.UpsertAnalytics("missing", DateOf(time.Now()), 1, 1, 25)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestGetAnalyticsNotFound(t *testing.T) {
	s := newTestStore(t)
	u := newTestUser(t, s, "eli")
	_, err := s.GetAnalytics(u.ID, "2026-01-01")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestListAnalyticsRange(t *testing.T) {
	s := newTestStore(t)
	u := newTestUser(t, s, "fay")
	for _, d := range []string{"2026-08-01", "2026-08-02", "2026-08-03"} {
		s.UpsertAnalytics(u.ID, d, 1, 1, 25)
	}

	all, err := s.ListAnalytics(u.ID, "", "")
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(all))
	}
	if all[0].Date != "2026-08-01" {
		t.Fatal("rows should be oldest first")
	}

	// [from, to) — the upper bound is exclusive
	ranged, _ := s.ListAnalytics(u.ID, "2026-08-02", "2026-08-03")
	if len(ranged) != 1 || ranged[0].Date != "2026-08-02" {
		t.Fatalf("unexpected ranged result: %+v", ranged)
	}
}

// ============================================================
// Graph materialization
// ============================================================

func TestGetUserGraph(t *testing.T) {
	s := newTestStore(t)
	u := newTestUser(t, s, "gus")
	p := newTestProject(t, s, u.ID, "Dev")
	root := newTestTask(t, s, &p.ID, nil, "Root")
	child := newTestTask(t, s, nil, &root.ID, "Child")
	newTestTask(t, s, nil, &child.ID, "Grandchild")
	s.CreateSession(NewSession{TaskID: &child.ID, Duration: 25, StartTime: time.Now().UTC()})
	s.UpsertAnalytics(u.ID, DateOf(time.Now()), 1, 1, 25)

	g, err := s.GetUserGraph(u.ID)
	if err != nil {
		t.Fatal(err)
	}
	if g.Email != u.Email {
		t.Fatal("graph should carry the user")
	}
	if len(g.Projects) != 1 || len(g.Projects[0].Tasks) != 1 {
		t.Fatalf("expected one project with one root task: %+v", g.Projects)
	}
	rootNode := g.Projects[0].Tasks[0]
	if rootNode.Title != "Root" || len(rootNode.Subtasks) != 1 {
		t.Fatalf("unexpected root node: %+v", rootNode)
	}
	childNode := rootNode.Subtasks[0]
	if childNode.Title != "Child" || len(childNode.Subtasks) != 1 || len(childNode.Sessions) != 1 {
		t.Fatalf("unexpected child node: %+v", childNode)
	}
	if len(g.Analytics) != 1 {
		t.Fatalf("expected 1 analytics row, got %d", len(g.Analytics))
	}
}

func TestGetUserGraphReparented(t *testing.T) {
	s := newTestStore(t)
	u := newTestUser(t, s, "hal")
	p := newTestProject(t, s, u.ID, "Dev")
	a := newTestTask(t, s, &p.ID, nil, "A")
	b := newTestTask(t, s, &p.ID, nil, "B")
	// B was created as a root and moved under A afterwards
	if err := s.SetTaskParent(b.ID, &a.ID); err != nil {
		t.Fatal(err)
	}

	g, err := s.GetUserGraph(u.ID)
	if err != nil {
		t.Fatal(err)
	}
	tasks := g.Projects[0].Tasks
	if len(tasks) != 1 || tasks[0].ID != a.ID {
		t.Fatalf("expected single root A, got %+v", tasks)
	}
	if len(tasks[0].Subtasks) != 1 || tasks[0].Subtasks[0].ID != b.ID {
		t.Fatal("B should appear under A")
	}
}

func TestGetUserGraphNotFound(t *testing.T) {
	s := newTestStore(t)
	_, err := s.GetUserGraph("missing")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestGetTaskHierarchy(t *testing.T) {
	s := newTestStore(t)
	u := newTestUser(t, s, "ivy")
	p := newTestProject(t, s, u.ID, "Dev")
	root := newTestTask(t, s, &p.ID, nil, "Root")
	child := newTestTask(t, s, nil, &root.ID, "Child")
	s.CreateSession(NewSession{TaskID: &root.ID, Duration: 25, StartTime: time.Now().UTC()})

	h, err := s.GetTaskHierarchy(root.ID)
	if err != nil {
		t.Fatal(err)
	}
	if h.Title != "Root" || len(h.Sessions) != 1 {
		t.Fatalf("unexpected hierarchy root: %+v", h.TaskNode)
	}
	if len(h.Subtasks) != 1 || h.Subtasks[0].ID != child.ID {
		t.Fatal("subtree missing")
	}
	if h.Project == nil || h.Project.ID != p.ID {
		t.Fatal("owning project missing")
	}
}

func TestCount(t *testing.T) {
	s := newTestStore(t)
	u := newTestUser(t, s, "joy")
	newTestProject(t, s, u.ID, "Dev")

	if n := mustCount(t, s, KindUsers); n != 1 {
		t.Fatalf("expected 1 user, got %d", n)
	}
	if n := mustCount(t, s, KindProjects); n != 1 {
		t.Fatalf("expected 1 project, got %d", n)
	}
	if _, err := s.Count("users; DROP TABLE users"); !errors.Is(err, ErrConstraint) {
		t.Fatalf("expected ErrConstraint for unknown kind, got %v", err)
	}
}

// ============================================================
// Deletion ripple
// ============================================================

func TestDeleteUserRipple(t *testing.T) {
	s := newTestStore(t)
	u := newTestUser(t, s, "kai")
	p := newTestProject(t, s, u.ID, "Dev")
	a := newTestTask(t, s, &p.ID, nil, "A")
	b := newTestTask(t, s, nil, &a.ID, "B")
	sess, err := s.CreateSession(NewSession{TaskID: &b.ID, Duration: 25, StartTime: time.Now().UTC()})
	if err != nil {
		t.Fatal(err)
	}
	s.UpsertAnalytics(u.ID, DateOf(time.Now()), 1, 1, 25)

	if err := s.DeleteUser(u.ID); err != nil {
		t.Fatal(err)
	}

	if n := mustCount(t, s, KindUsers); n != 0 {
		t.Fatalf("expected 0 users, got %d", n)
	}
	if n := mustCount(t, s, KindProjects); n != 0 {
		t.Fatalf("expected 0 projects, got %d", n)
	}
	if n := mustCount(t, s, KindTasks); n != 0 {
		t.Fatalf("expected 0 tasks, got %d", n)
	}
	if n := mustCount(t, s, KindAnalytics); n != 0 {
		t.Fatalf("expected 0 analytics, got %d", n)
	}

	// The session outlives the cascade, detached from its task.
	kept, err := s.GetSession(sess.ID)
	if err != nil {
		t.Fatalf("session should survive: %v", err)
	}
	if kept.TaskID != nil {
		t.Fatalf("expected cleared task link, got %v", *kept.TaskID)
	}

	if err := s.DeleteUser(u.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second delete, got %v", err)
	}
}

// ============================================================
// Settings
// ============================================================

func TestSettingsDefaults(t *testing.T) {
	s := newTestStore(t)

	defaults := map[string]string{
		SettingFocusDuration: "25",
		SettingShortBreak:    "5",
		SettingLongBreak:     "15",
		SettingSessionTarget: "4",
		SettingWeekStart:     "monday",
	}

	for k, expected := range defaults {
		val, err := s.GetSetting(k)
		if err != nil {
			t.Fatalf("GetSetting(%q): %v", k, err)
		}
		if val != expected {
			t.Fatalf("GetSetting(%q) = %q, want %q", k, val, expected)
		}
	}
}

func TestGetSettingInt(t *testing.T) {
	s := newTestStore(t)

	n, err := s.GetSettingInt(SettingFocusDuration)
	if err != nil {
		t.Fatal(err)
	}
	if n != 25 {
		t.Fatalf("expected 25, got %d", n)
	}

	s.SetSetting("bad", "not a number")
	if _, err := s.GetSettingInt("bad"); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestSetSettingOverwrite(t *testing.T) {
	s := newTestStore(t)

	s.SetSetting(SettingFocusDuration, "50")
	val, _ := s.GetSetting(SettingFocusDuration)
	if val != "50" {
		t.Fatalf("expected 50, got %s", val)
	}
}

func TestGetSettingNotFound(t *testing.T) {
	s := newTestStore(t)
	_, err := s.GetSetting("nonexistent")
	if err == nil {
		t.Fatal("expected error for missing setting")
	}
}

func TestGetAllSettings(t *testing.T) {
	s := newTestStore(t)
	all, err := s.GetAllSettings()
	if err != nil {
		t.Fatal(err)
	}
	if len(all) < 5 {
		t.Fatalf("expected at least 5 default settings, got %d", len(all))
	}
	for i := 1; i < len(all); i++ {
		if all[i-1].Key >= all[i].Key {
			t.Fatalf("settings not sorted: %s >= %s", all[i-1].Key, all[i].Key)
		}
	}
}
