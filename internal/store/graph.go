package store

import "fmt"

// EntityKind names a persisted entity for Count.
type EntityKind string

const (
	KindUsers     EntityKind = "users"
	KindProjects  EntityKind = "projects"
	KindTasks     EntityKind = "tasks"
	KindSessions  EntityKind = "pomodoro_sessions"
	KindAnalytics EntityKind = "analytics"
)

// Count returns the total row count for an entity kind. The kind is matched
// against a fixed table list; it never reaches the SQL text unchecked.
func (s *Store) Count(kind EntityKind) (int, error) {
	switch kind {
	case KindUsers, KindProjects, KindTasks, KindSessions, KindAnalytics:
	default:
		return 0, fmt.Errorf("%w: unknown entity kind %q", ErrConstraint, kind)
	}
	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM ` + string(kind)).Scan(&n); err != nil {
		return 0, fmt.Errorf("count %s: %w", kind, err)
	}
	return n, nil
}

// GetUserGraph materializes the user's full owned subgraph: projects, each
// project's task forest with sessions, and analytics rows.
func (s *Store) GetUserGraph(id string) (*UserGraph, error) {
	user, err := s.GetUser(id)
	if err != nil {
		return nil, err
	}

	g := &UserGraph{User: *user}

	projects, err := s.ListProjects(id)
	if err != nil {
		return nil, err
	}
	for _, p := range projects {
		forest, err := s.projectForest(p.ID)
		if err != nil {
			return nil, err
		}
		g.Projects = append(g.Projects, ProjectGraph{Project: p, Tasks: forest})
	}

	g.Analytics, err = s.ListAnalytics(id, "", "")
	if err != nil {
		return nil, err
	}
	return g, nil
}

// projectForest loads a project's tasks and sessions in two queries and
// assembles the parent/child trees in memory.
func (s *Store) projectForest(projectID string) ([]TaskNode, error) {
	tasks, err := s.ListTasks(projectID)
	if err != nil {
		return nil, err
	}
	if len(tasks) == 0 {
		return nil, nil
	}

	sessions, err := s.listSessions(`
		SELECT s.id, s.task_id, s.duration, s.start_time, s.end_time, s.completed, s.notes, s.created_at
		FROM pomodoro_sessions s
		JOIN tasks t ON t.id = s.task_id
		WHERE t.project_id = ?
		ORDER BY s.start_time`, projectID)
	if err != nil {
		return nil, err
	}
	byTask := make(map[string][]PomodoroSession)
	for _, sess := range sessions {
		byTask[*sess.TaskID] = append(byTask[*sess.TaskID], sess)
	}

	children := make(map[string][]Task)
	var rootTasks []Task
	for _, t := range tasks {
		if t.ParentID == nil {
			rootTasks = append(rootTasks, t)
		} else {
			children[*t.ParentID] = append(children[*t.ParentID], t)
		}
	}

	var build func(t Task) TaskNode
	build = func(t Task) TaskNode {
		n := TaskNode{Task: t, Sessions: byTask[t.ID]}
		for _, c := range children[t.ID] {
			n.Subtasks = append(n.Subtasks, build(c))
		}
		return n
	}

	roots := make([]TaskNode, 0, len(rootTasks))
	for _, t := range rootTasks {
		roots = append(roots, build(t))
	}
	return roots, nil
}

// GetTaskHierarchy materializes one task with its subtree, sessions and
// owning project.
func (s *Store) GetTaskHierarchy(id string) (*TaskHierarchy, error) {
	node, err := s.taskSubtree(id)
	if err != nil {
		return nil, err
	}

	h := &TaskHierarchy{TaskNode: *node}
	if node.ProjectID != nil {
		h.Project, err = s.GetProject(*node.ProjectID)
		if err != nil {
			return nil, err
		}
	}
	return h, nil
}

func (s *Store) taskSubtree(id string) (*TaskNode, error) {
	task, err := s.GetTask(id)
	if err != nil {
		return nil, err
	}
	node := &TaskNode{Task: *task}

	node.Sessions, err = s.ListSessionsForTask(id)
	if err != nil {
		return nil, err
	}

	children, err := s.ListSubtasks(id)
	if err != nil {
		return nil, err
	}
	for _, c := range children {
		child, err := s.taskSubtree(c.ID)
		if err != nil {
			return nil, err
		}
		node.Subtasks = append(node.Subtasks, *child)
	}
	return node, nil
}
