package domain

// Status is the lifecycle state of a lead.
type Status string

const (
	StatusNew        Status = "new"
	StatusContacted  Status = "contacted"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusInactive   Status = "inactive"
)

var statusRank = map[Status]int{
	StatusNew:        0,
	StatusContacted:  1,
	StatusInProgress: 2,
	StatusCompleted:  3,
	StatusInactive:   3,
}

// Statuses returns every status in lifecycle order.
func Statuses() []Status {
	return []Status{StatusNew, StatusContacted, StatusInProgress, StatusCompleted, StatusInactive}
}

// OpenStatuses are the statuses still awaiting resolution.
func OpenStatuses() []Status {
	return []Status{StatusNew, StatusContacted, StatusInProgress}
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	_, ok := statusRank[s]
	return ok
}

// Terminal reports whether no further transition is allowed out of s.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusInactive
}

// Open reports whether s is a known, non-terminal status.
func (s Status) Open() bool {
	return s.Valid() && !s.Terminal()
}

// CanTransition reports whether a lead may move from one status to another.
// Transitions only move forward and never leave a terminal status.
func CanTransition(from, to Status) bool {
	if !from.Valid() || !to.Valid() || from.Terminal() {
		return false
	}
	return statusRank[to] > statusRank[from]
}
