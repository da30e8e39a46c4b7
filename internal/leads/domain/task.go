package domain

import (
	"time"

	"github.com/google/uuid"
)

// TaskKind identifies a task within a lead's batch. At most one task per kind exists per lead.
type TaskKind string

const (
	TaskKindInitialCall         TaskKind = "initial_call"
	TaskKindAcknowledgmentEmail TaskKind = "acknowledgment_email"
	TaskKindFollowup24hEmail    TaskKind = "followup_24h_email"
	TaskKindFollowup72hEmail    TaskKind = "followup_72h_email"
)

// TaskType is the channel a task uses.
type TaskType string

const (
	TaskTypeCall     TaskType = "call"
	TaskTypeEmail    TaskType = "email"
	TaskTypeText     TaskType = "text"
	TaskTypeMeeting  TaskType = "meeting"
	TaskTypeDocument TaskType = "document"
)

// TaskStatus is the state of a nurture task.
type TaskStatus string

const (
	TaskPending   TaskStatus = "pending"
	TaskCompleted TaskStatus = "completed"
	TaskSkipped   TaskStatus = "skipped"
)

// Valid reports whether s is a known task status.
func (s TaskStatus) Valid() bool {
	switch s {
	case TaskPending, TaskCompleted, TaskSkipped:
		return true
	}
	return false
}

// Task is a scheduled follow-up action against a lead.
type Task struct {
	ID           uuid.UUID
	LeadID       uuid.UUID
	Kind         TaskKind
	Type         TaskType
	Priority     Tier
	Status       TaskStatus
	Title        string
	Description  string
	ScheduledFor time.Time
	CreatedAt    time.Time
	CompletedAt  *time.Time
}
