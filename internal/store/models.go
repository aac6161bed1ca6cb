package store

import "time"

// Task status values.
const (
	StatusTodo       = "TODO"
	StatusInProgress = "IN_PROGRESS"
	StatusDone       = "DONE"
	StatusCancelled  = "CANCELLED"
)

// Task priority values.
const (
	PriorityLow    = "LOW"
	PriorityMedium = "MEDIUM"
	PriorityHigh   = "HIGH"
	PriorityUrgent = "URGENT"
)

// DefaultProjectColor is applied when a project is created without a color.
const DefaultProjectColor = "#3B82F6"

type User struct {
	ID          string
	Email       string
	Name        string
	Preferences map[string]string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type Project struct {
	ID          string
	UserID      string
	Name        string
	Description string
	Color       string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type Task struct {
	ID            string
	ProjectID     *string
	ParentID      *string
	Title         string
	Description   string
	Status        string
	Priority      string
	DueDate       *time.Time
	EstimatedTime *int // minutes
	ActualTime    *int // minutes
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

type PomodoroSession struct {
	ID        string
	TaskID    *string
	Duration  int // minutes
	StartTime time.Time
	EndTime   *time.Time
	Completed bool
	Notes     string
	CreatedAt time.Time
}

// Analytics holds per-user aggregate counters for a single calendar day.
// At most one row exists per (UserID, Date).
type Analytics struct {
	ID               string
	UserID           string
	Date             string // YYYY-MM-DD
	TasksCompleted   int
	PomodoroSessions int
	TotalFocusTime   int // minutes
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// NewTask carries the caller-supplied fields for CreateTask. Empty Status and
// Priority mean "use the default".
type NewTask struct {
	Title         string
	Description   string
	Status        string
	Priority      string
	ProjectID     *string
	ParentID      *string
	DueDate       *time.Time
	EstimatedTime *int
}

// NewSession carries the caller-supplied fields for CreateSession.
type NewSession struct {
	TaskID    *string
	Duration  int // minutes
	StartTime time.Time
	EndTime   *time.Time
	Completed bool
	Notes     string
}

// TaskNode is a task with its subtree and sessions materialized.
type TaskNode struct {
	Task
	Subtasks []TaskNode
	Sessions []PomodoroSession
}

// ProjectGraph is a project with its root tasks materialized as trees.
type ProjectGraph struct {
	Project
	Tasks []TaskNode
}

// UserGraph is the full owned subgraph of one user.
type UserGraph struct {
	User
	Projects  []ProjectGraph
	Analytics []Analytics
}

// TaskHierarchy is a task with its subtree, sessions and owning project.
type TaskHierarchy struct {
	TaskNode
	Project *Project
}
