package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"leadflow_backend/internal/leads/domain"

	"github.com/google/uuid"
)

// MemoryStore is a process-local Store. It backs degraded mode when Postgres is
// unreachable and is used directly in tests.
type MemoryStore struct {
	mu sync.RWMutex
	st *memState
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{st: newMemState()}
}

// Reset drops every lead and task.
func (m *MemoryStore) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.st = newMemState()
}

func (m *MemoryStore) Ping(context.Context) error { return nil }

func (m *MemoryStore) Get(_ context.Context, id uuid.UUID) (domain.Lead, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.st.get(id)
}

func (m *MemoryStore) GetBySubmissionKey(_ context.Context, key string) (domain.Lead, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.st.getBySubmissionKey(key)
}

func (m *MemoryStore) ListByStatus(_ context.Context, statuses ...domain.Status) ([]domain.Lead, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.st.listByStatus(statuses), nil
}

func (m *MemoryStore) Insert(_ context.Context, lead domain.Lead) (domain.Lead, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.st.insert(lead)
}

func (m *MemoryStore) UpdateStatus(_ context.Context, id uuid.UUID, expected, next domain.Status, notes string, at time.Time) (domain.Lead, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.st.updateStatus(id, expected, next, notes, at)
}

func (m *MemoryStore) AdvanceSequence(_ context.Context, id uuid.UUID, expected, next int, contactedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.st.advanceSequence(id, expected, next, contactedAt)
}

func (m *MemoryStore) AppendTasks(_ context.Context, leadID uuid.UUID, tasks []domain.Task) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.st.appendTasks(leadID, tasks)
}

func (m *MemoryStore) ListTasks(_ context.Context, leadID uuid.UUID) ([]domain.Task, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.st.listTasks(leadID), nil
}

func (m *MemoryStore) UpdateTaskStatus(_ context.Context, taskID uuid.UUID, expected, next domain.TaskStatus, at time.Time) (domain.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.st.updateTaskStatus(taskID, expected, next, at)
}

// InTx holds the write lock for the duration of fn and applies its writes to a
// copy of the state, which replaces the live state only when fn succeeds. fn must
// use tx, not m, or it deadlocks.
func (m *MemoryStore) InTx(_ context.Context, fn func(tx Store) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	staged := m.st.clone()
	if err := fn(&memTx{st: staged}); err != nil {
		return err
	}
	m.st = staged
	return nil
}

// memTx is the Store handed to InTx callbacks. The caller already holds the lock.
type memTx struct {
	st *memState
}

func (t *memTx) Ping(context.Context) error { return nil }

func (t *memTx) Get(_ context.Context, id uuid.UUID) (domain.Lead, error) {
	return t.st.get(id)
}

func (t *memTx) GetBySubmissionKey(_ context.Context, key string) (domain.Lead, error) {
	return t.st.getBySubmissionKey(key)
}

func (t *memTx) ListByStatus(_ context.Context, statuses ...domain.Status) ([]domain.Lead, error) {
	return t.st.listByStatus(statuses), nil
}

func (t *memTx) Insert(_ context.Context, lead domain.Lead) (domain.Lead, error) {
	return t.st.insert(lead)
}

func (t *memTx) UpdateStatus(_ context.Context, id uuid.UUID, expected, next domain.Status, notes string, at time.Time) (domain.Lead, error) {
	return t.st.updateStatus(id, expected, next, notes, at)
}

func (t *memTx) AdvanceSequence(_ context.Context, id uuid.UUID, expected, next int, contactedAt time.Time) error {
	return t.st.advanceSequence(id, expected, next, contactedAt)
}

func (t *memTx) AppendTasks(_ context.Context, leadID uuid.UUID, tasks []domain.Task) error {
	return t.st.appendTasks(leadID, tasks)
}

func (t *memTx) ListTasks(_ context.Context, leadID uuid.UUID) ([]domain.Task, error) {
	return t.st.listTasks(leadID), nil
}

func (t *memTx) UpdateTaskStatus(_ context.Context, taskID uuid.UUID, expected, next domain.TaskStatus, at time.Time) (domain.Task, error) {
	return t.st.updateTaskStatus(taskID, expected, next, at)
}

func (t *memTx) InTx(_ context.Context, fn func(tx Store) error) error {
	return fn(t)
}

type taskKey struct {
	leadID uuid.UUID
	kind   domain.TaskKind
}

// memState is an arena of leads and tasks with keyed indexes into it.
type memState struct {
	leads    []domain.Lead
	byID     map[uuid.UUID]int
	byKey    map[string]int
	tasks    []domain.Task
	taskByID map[uuid.UUID]int
	taskKeys map[taskKey]int
	byLead   map[uuid.UUID][]int
}

func newMemState() *memState {
	return &memState{
		byID:     make(map[uuid.UUID]int),
		byKey:    make(map[string]int),
		taskByID: make(map[uuid.UUID]int),
		taskKeys: make(map[taskKey]int),
		byLead:   make(map[uuid.UUID][]int),
	}
}

func (s *memState) clone() *memState {
	c := &memState{
		leads:    append([]domain.Lead(nil), s.leads...),
		byID:     make(map[uuid.UUID]int, len(s.byID)),
		byKey:    make(map[string]int, len(s.byKey)),
		tasks:    append([]domain.Task(nil), s.tasks...),
		taskByID: make(map[uuid.UUID]int, len(s.taskByID)),
		taskKeys: make(map[taskKey]int, len(s.taskKeys)),
		byLead:   make(map[uuid.UUID][]int, len(s.byLead)),
	}
	for k, v := range s.byID {
		c.byID[k] = v
	}
	for k, v := range s.byKey {
		c.byKey[k] = v
	}
	for k, v := range s.taskByID {
		c.taskByID[k] = v
	}
	for k, v := range s.taskKeys {
		c.taskKeys[k] = v
	}
	for k, v := range s.byLead {
		c.byLead[k] = append([]int(nil), v...)
	}
	return c
}

func (s *memState) get(id uuid.UUID) (domain.Lead, error) {
	idx, ok := s.byID[id]
	if !ok {
		return domain.Lead{}, ErrNotFound
	}
	return s.leads[idx], nil
}

func (s *memState) getBySubmissionKey(key string) (domain.Lead, error) {
	idx, ok := s.byKey[key]
	if key == "" || !ok {
		return domain.Lead{}, ErrNotFound
	}
	return s.leads[idx], nil
}

func (s *memState) listByStatus(statuses []domain.Status) []domain.Lead {
	want := make(map[domain.Status]bool, len(statuses))
	for _, st := range statuses {
		want[st] = true
	}
	out := make([]domain.Lead, 0, len(s.leads))
	for _, l := range s.leads {
		if len(want) == 0 || want[l.Status] {
			out = append(out, l)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out
}

func (s *memState) insert(lead domain.Lead) (domain.Lead, error) {
	if _, exists := s.byID[lead.ID]; exists {
		return domain.Lead{}, ErrDuplicate
	}
	if lead.SubmissionKey != "" {
		if _, exists := s.byKey[lead.SubmissionKey]; exists {
			return domain.Lead{}, ErrDuplicate
		}
	}
	s.leads = append(s.leads, lead)
	idx := len(s.leads) - 1
	s.byID[lead.ID] = idx
	if lead.SubmissionKey != "" {
		s.byKey[lead.SubmissionKey] = idx
	}
	return lead, nil
}

func (s *memState) updateStatus(id uuid.UUID, expected, next domain.Status, notes string, at time.Time) (domain.Lead, error) {
	idx, ok := s.byID[id]
	if !ok {
		return domain.Lead{}, ErrNotFound
	}
	lead := &s.leads[idx]
	if lead.Status != expected {
		return domain.Lead{}, ErrConflict
	}
	lead.Status = next
	if notes != "" {
		lead.StatusNotes = notes
	}
	lead.UpdatedAt = at
	return *lead, nil
}

func (s *memState) advanceSequence(id uuid.UUID, expected, next int, contactedAt time.Time) error {
	idx, ok := s.byID[id]
	if !ok {
		return ErrNotFound
	}
	lead := &s.leads[idx]
	if lead.SequenceStep != expected || next < expected {
		return ErrConflict
	}
	lead.SequenceStep = next
	contacted := contactedAt
	lead.LastContactedAt = &contacted
	lead.UpdatedAt = contactedAt
	return nil
}

func (s *memState) appendTasks(leadID uuid.UUID, tasks []domain.Task) error {
	if _, ok := s.byID[leadID]; !ok {
		return ErrNotFound
	}
	seen := make(map[domain.TaskKind]bool, len(tasks))
	for _, t := range tasks {
		if _, exists := s.taskKeys[taskKey{leadID: leadID, kind: t.Kind}]; exists || seen[t.Kind] {
			return ErrDuplicate
		}
		if _, exists := s.taskByID[t.ID]; exists {
			return ErrDuplicate
		}
		seen[t.Kind] = true
	}
	for _, t := range tasks {
		t.LeadID = leadID
		s.tasks = append(s.tasks, t)
		idx := len(s.tasks) - 1
		s.taskByID[t.ID] = idx
		s.taskKeys[taskKey{leadID: leadID, kind: t.Kind}] = idx
		s.byLead[leadID] = append(s.byLead[leadID], idx)
	}
	return nil
}

func (s *memState) listTasks(leadID uuid.UUID) []domain.Task {
	idxs := s.byLead[leadID]
	out := make([]domain.Task, 0, len(idxs))
	for _, idx := range idxs {
		out = append(out, s.tasks[idx])
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].ScheduledFor.Before(out[j].ScheduledFor)
	})
	return out
}

func (s *memState) updateTaskStatus(taskID uuid.UUID, expected, next domain.TaskStatus, at time.Time) (domain.Task, error) {
	idx, ok := s.taskByID[taskID]
	if !ok {
		return domain.Task{}, ErrNotFound
	}
	task := &s.tasks[idx]
	if task.Status != expected {
		return domain.Task{}, ErrConflict
	}
	task.Status = next
	if next != domain.TaskPending {
		done := at
		task.CompletedAt = &done
	}
	return *task, nil
}
