package domain

// Status names the column a task lives in.
type Status string

const (
	StatusTodo       Status = "Todo"
	StatusInProgress Status = "InProgress"
	StatusDone       Status = "Done"
)

// ColumnOrder is the fixed left-to-right column sequence of the board.
var ColumnOrder = []Status{StatusTodo, StatusInProgress, StatusDone}

// Valid reports whether s is one of the three board columns.
func (s Status) Valid() bool {
	switch s {
	case StatusTodo, StatusInProgress, StatusDone:
		return true
	}
	return false
}

// Title returns the display title of the column.
func (s Status) Title() string {
	switch s {
	case StatusTodo:
		return "To Do"
	case StatusInProgress:
		return "In Progress"
	case StatusDone:
		return "Done"
	}
	return string(s)
}

type Priority string

const (
	PriorityLow    Priority = "Low"
	PriorityMedium Priority = "Medium"
	PriorityHigh   Priority = "High"
)

func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

// Task represents a single board item.
type Task struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Status      Status   `json:"status"`
	Priority    Priority `json:"priority"`
	DueDate     string   `json:"dueDate"`
	CreatedAt   string   `json:"createdAt"`
	Order       int      `json:"order"`
	// Dependencies holds ids of tasks that must be Done before this one can be.
	Dependencies []string `json:"dependencies"`
}

// Clone returns a copy that shares no slices with t.
func (t Task) Clone() Task {
	if t.Dependencies != nil {
		t.Dependencies = append([]string{}, t.Dependencies...)
	}
	return t
}

// DependsOn reports whether id is listed in the task's dependencies.
func (t Task) DependsOn(id string) bool {
	for _, dep := range t.Dependencies {
		if dep == id {
			return true
		}
	}
	return false
}

// NewTask carries the caller-supplied fields of a task; the store assigns
// id, createdAt and order.
type NewTask struct {
	Title        string   `json:"title"`
	Description  string   `json:"description"`
	Status       Status   `json:"status"`
	Priority     Priority `json:"priority"`
	DueDate      string   `json:"dueDate"`
	Dependencies []string `json:"dependencies,omitempty"`
}

// Patch carries a partial update. nil means "no change".
type Patch struct {
	Title        *string   `json:"title,omitempty"`
	Description  *string   `json:"description,omitempty"`
	Status       *Status   `json:"status,omitempty"`
	Priority     *Priority `json:"priority,omitempty"`
	DueDate      *string   `json:"dueDate,omitempty"`
	Order        *int      `json:"order,omitempty"`
	Dependencies *[]string `json:"dependencies,omitempty"`
}

// Apply merges p onto t and returns the result. t is not modified.
func (p Patch) Apply(t Task) Task {
	out := t.Clone()
	if p.Title != nil {
		out.Title = *p.Title
	}
	if p.Description != nil {
		out.Description = *p.Description
	}
	if p.Status != nil {
		out.Status = *p.Status
	}
	if p.Priority != nil {
		out.Priority = *p.Priority
	}
	if p.DueDate != nil {
		out.DueDate = *p.DueDate
	}
	if p.Order != nil {
		out.Order = *p.Order
	}
	if p.Dependencies != nil {
		if *p.Dependencies == nil {
			out.Dependencies = []string{}
		} else {
			out.Dependencies = append([]string{}, (*p.Dependencies)...)
		}
	}
	return out
}
