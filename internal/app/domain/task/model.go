// Package task defines tasks and their checklist subtasks.
package task

import "time"

// Task statuses.
const (
	StatusTodo       = "todo"
	StatusInProgress = "in_progress"
	StatusCompleted  = "completed"
)

// Task priorities.
const (
	PriorityLow    = "low"
	PriorityNormal = "normal"
	PriorityHigh   = "high"
)

// Task is a unit of work owned by one user. SubTasks is populated on
// reads and replaced wholesale on writes.
type Task struct {
	ID          string
	UserID      string
	Title       string
	Description string
	Priority    string
	Status      string
	TotalHours  int
	Hours       int
	SubTasks    []SubTask
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// SubTask is a checklist item belonging to a task. It is deleted with
// its parent.
type SubTask struct {
	ID        string
	TaskID    string
	Title     string
	Completed bool
}
