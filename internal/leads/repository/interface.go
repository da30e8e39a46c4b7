package repository

import (
	"context"
	"errors"
	"time"

	"leadflow_backend/internal/leads/domain"

	"github.com/google/uuid"
)

var (
	// ErrNotFound is returned when a lead or task does not exist.
	ErrNotFound = errors.New("not found")
	// ErrDuplicate is returned when an insert collides with a unique key.
	ErrDuplicate = errors.New("duplicate")
	// ErrConflict is returned when a conditional update finds a different current value.
	ErrConflict = errors.New("conditional update conflict")
)

// =====================================
// Segregated Interfaces (Interface Segregation Principle)
// =====================================

// LeadReader provides read-only access to leads.
type LeadReader interface {
	Get(ctx context.Context, id uuid.UUID) (domain.Lead, error)
	GetBySubmissionKey(ctx context.Context, key string) (domain.Lead, error)
	// ListByStatus returns leads in any of the given statuses ordered by creation
	// time then id. No statuses means every lead.
	ListByStatus(ctx context.Context, statuses ...domain.Status) ([]domain.Lead, error)
}

// LeadWriter provides write operations on leads. Every mutation is conditional.
type LeadWriter interface {
	Insert(ctx context.Context, lead domain.Lead) (domain.Lead, error)
	// UpdateStatus applies next iff the current status equals expected.
	UpdateStatus(ctx context.Context, id uuid.UUID, expected, next domain.Status, notes string, at time.Time) (domain.Lead, error)
	// AdvanceSequence moves the sequence pointer iff it currently equals expected.
	AdvanceSequence(ctx context.Context, id uuid.UUID, expected, next int, contactedAt time.Time) error
}

// TaskStore manages nurture tasks.
type TaskStore interface {
	// AppendTasks inserts the batch; a repeated (lead, kind) yields ErrDuplicate.
	AppendTasks(ctx context.Context, leadID uuid.UUID, tasks []domain.Task) error
	ListTasks(ctx context.Context, leadID uuid.UUID) ([]domain.Task, error)
	// UpdateTaskStatus applies next iff the current task status equals expected.
	UpdateTaskStatus(ctx context.Context, taskID uuid.UUID, expected, next domain.TaskStatus, at time.Time) (domain.Task, error)
}

// =====================================
// Composite Interface
// =====================================

// Store is the complete lead store contract.
type Store interface {
	LeadReader
	LeadWriter
	TaskStore
	// InTx runs fn so that every write it makes through tx lands, or none do.
	InTx(ctx context.Context, fn func(tx Store) error) error
	Ping(ctx context.Context) error
}

var (
	_ Store = (*MemoryStore)(nil)
	_ Store = (*PostgresStore)(nil)
)
