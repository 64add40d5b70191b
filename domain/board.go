package domain

// Column is one status bucket holding an ordered list of tasks.
type Column struct {
	ID    Status `json:"id"`
	Title string `json:"title"`
	Tasks []Task `json:"tasks"`
}

// Columns keys the three board columns by status.
type Columns struct {
	Todo       Column `json:"Todo"`
	InProgress Column `json:"InProgress"`
	Done       Column `json:"Done"`
}

// Board is the full state of the task board.
type Board struct {
	Columns     Columns  `json:"columns"`
	ColumnOrder []Status `json:"columnOrder"`
}

// NewBoard returns an empty board with all three columns present.
func NewBoard() Board {
	return Board{
		Columns: Columns{
			Todo:       Column{ID: StatusTodo, Title: StatusTodo.Title(), Tasks: []Task{}},
			InProgress: Column{ID: StatusInProgress, Title: StatusInProgress.Title(), Tasks: []Task{}},
			Done:       Column{ID: StatusDone, Title: StatusDone.Title(), Tasks: []Task{}},
		},
		ColumnOrder: append([]Status{}, ColumnOrder...),
	}
}

// Column returns a pointer to the column for s, or nil for an unknown status.
func (b *Board) Column(s Status) *Column {
	switch s {
	case StatusTodo:
		return &b.Columns.Todo
	case StatusInProgress:
		return &b.Columns.InProgress
	case StatusDone:
		return &b.Columns.Done
	}
	return nil
}

// Tasks returns every task in column order.
func (b Board) Tasks() []Task {
	out := make([]Task, 0, len(b.Columns.Todo.Tasks)+len(b.Columns.InProgress.Tasks)+len(b.Columns.Done.Tasks))
	for _, s := range ColumnOrder {
		out = append(out, b.Column(s).Tasks...)
	}
	return out
}

// Clone deep-copies the board.
func (b Board) Clone() Board {
	out := NewBoard()
	for _, s := range ColumnOrder {
		src := b.Column(s)
		dst := out.Column(s)
		if src.Title != "" {
			dst.Title = src.Title
		}
		dst.Tasks = make([]Task, len(src.Tasks))
		for i, t := range src.Tasks {
			dst.Tasks[i] = t.Clone()
		}
	}
	return out
}

// Normalize fills in anything a decoded snapshot may be missing.
func (b *Board) Normalize() {
	for _, s := range ColumnOrder {
		col := b.Column(s)
		col.ID = s
		if col.Title == "" {
			col.Title = s.Title()
		}
		if col.Tasks == nil {
			col.Tasks = []Task{}
		}
		// the containing column is authoritative for status
		for i := range col.Tasks {
			col.Tasks[i].Status = s
			if col.Tasks[i].Dependencies == nil {
				col.Tasks[i].Dependencies = []string{}
			}
		}
	}
	b.ColumnOrder = append([]Status{}, ColumnOrder...)
}
