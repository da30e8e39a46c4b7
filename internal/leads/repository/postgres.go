package repository

import (
	"context"
	"errors"
	"time"

	"leadflow_backend/internal/leads/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

const leadColumns = `id, submission_key, first_name, last_name, email, phone, program, message, source,
	is_veteran, risk_score, risk_tier, status, status_notes, sla_deadline, sequence_step,
	last_contacted_at, created_at, updated_at`

const taskColumns = `id, lead_id, kind, type, priority, status, title, description,
	scheduled_for, created_at, completed_at`

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore is the durable Store backed by the leads and nurture_tasks tables.
type PostgresStore struct {
	pool *pgxpool.Pool
	q    querier
	inTx bool
}

// NewPostgresStore wraps a connection pool.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool, q: pool}
}

func (r *PostgresStore) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

func (r *PostgresStore) InTx(ctx context.Context, fn func(tx Store) error) error {
	if r.inTx {
		return fn(r)
	}
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(&PostgresStore{pool: r.pool, q: tx, inTx: true})
	})
}

func (r *PostgresStore) Insert(ctx context.Context, lead domain.Lead) (domain.Lead, error) {
	row := r.q.QueryRow(ctx, `
		INSERT INTO leads (`+leadColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
		RETURNING `+leadColumns,
		lead.ID, nullableString(lead.SubmissionKey), lead.FirstName, lead.LastName, lead.Email, lead.Phone,
		string(lead.Program), lead.Message, lead.Source, lead.IsVeteran, lead.RiskScore, string(lead.RiskTier),
		string(lead.Status), lead.StatusNotes, lead.SLADeadline, lead.SequenceStep, lead.LastContactedAt,
		lead.CreatedAt, lead.UpdatedAt,
	)
	created, err := scanLead(row)
	if err != nil {
		return domain.Lead{}, mapPgError(err)
	}
	return created, nil
}

func (r *PostgresStore) Get(ctx context.Context, id uuid.UUID) (domain.Lead, error) {
	row := r.q.QueryRow(ctx, `SELECT `+leadColumns+` FROM leads WHERE id = $1`, id)
	lead, err := scanLead(row)
	if err != nil {
		return domain.Lead{}, mapPgError(err)
	}
	return lead, nil
}

func (r *PostgresStore) GetBySubmissionKey(ctx context.Context, key string) (domain.Lead, error) {
	if key == "" {
		return domain.Lead{}, ErrNotFound
	}
	row := r.q.QueryRow(ctx, `SELECT `+leadColumns+` FROM leads WHERE submission_key = $1`, key)
	lead, err := scanLead(row)
	if err != nil {
		return domain.Lead{}, mapPgError(err)
	}
	return lead, nil
}

func (r *PostgresStore) ListByStatus(ctx context.Context, statuses ...domain.Status) ([]domain.Lead, error) {
	var (
		rows pgx.Rows
		err  error
	)
	if len(statuses) == 0 {
		rows, err = r.q.Query(ctx, `SELECT `+leadColumns+` FROM leads ORDER BY created_at ASC, id ASC`)
	} else {
		names := make([]string, len(statuses))
		for i, s := range statuses {
			names[i] = string(s)
		}
		rows, err = r.q.Query(ctx, `
			SELECT `+leadColumns+` FROM leads
			WHERE status = ANY($1)
			ORDER BY created_at ASC, id ASC`, names)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]domain.Lead, 0)
	for rows.Next() {
		lead, err := scanLead(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, lead)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return items, nil
}

func (r *PostgresStore) UpdateStatus(ctx context.Context, id uuid.UUID, expected, next domain.Status, notes string, at time.Time) (domain.Lead, error) {
	row := r.q.QueryRow(ctx, `
		UPDATE leads
		SET status = $3,
			status_notes = CASE WHEN $4 = '' THEN status_notes ELSE $4 END,
			updated_at = $5
		WHERE id = $1 AND status = $2
		RETURNING `+leadColumns,
		id, string(expected), string(next), notes, at,
	)
	lead, err := scanLead(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Lead{}, r.missOrConflict(ctx, `SELECT 1 FROM leads WHERE id = $1`, id)
	}
	if err != nil {
		return domain.Lead{}, mapPgError(err)
	}
	return lead, nil
}

func (r *PostgresStore) AdvanceSequence(ctx context.Context, id uuid.UUID, expected, next int, contactedAt time.Time) error {
	if next < expected {
		return ErrConflict
	}
	tag, err := r.q.Exec(ctx, `
		UPDATE leads
		SET sequence_step = $3, last_contacted_at = $4, updated_at = $4
		WHERE id = $1 AND sequence_step = $2
	`, id, expected, next, contactedAt)
	if err != nil {
		return mapPgError(err)
	}
	if tag.RowsAffected() == 0 {
		return r.missOrConflict(ctx, `SELECT 1 FROM leads WHERE id = $1`, id)
	}
	return nil
}

func (r *PostgresStore) AppendTasks(ctx context.Context, leadID uuid.UUID, tasks []domain.Task) error {
	if len(tasks) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, t := range tasks {
		batch.Queue(`
			INSERT INTO nurture_tasks (`+taskColumns+`)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
			t.ID, leadID, string(t.Kind), string(t.Type), string(t.Priority), string(t.Status),
			t.Title, t.Description, t.ScheduledFor, t.CreatedAt, t.CompletedAt,
		)
	}

	// A failed statement inside the batch aborts the surrounding transaction.
	return r.InTx(ctx, func(tx Store) error {
		pg := tx.(*PostgresStore)
		results := pg.q.(pgx.Tx).SendBatch(ctx, batch)
		for range tasks {
			if _, err := results.Exec(); err != nil {
				_ = results.Close()
				return mapPgError(err)
			}
		}
		return results.Close()
	})
}

func (r *PostgresStore) ListTasks(ctx context.Context, leadID uuid.UUID) ([]domain.Task, error) {
	rows, err := r.q.Query(ctx, `
		SELECT `+taskColumns+` FROM nurture_tasks
		WHERE lead_id = $1
		ORDER BY scheduled_for ASC, created_at ASC`, leadID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]domain.Task, 0)
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, task)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return items, nil
}

func (r *PostgresStore) UpdateTaskStatus(ctx context.Context, taskID uuid.UUID, expected, next domain.TaskStatus, at time.Time) (domain.Task, error) {
	var completedAt *time.Time
	if next != domain.TaskPending {
		completedAt = &at
	}
	row := r.q.QueryRow(ctx, `
		UPDATE nurture_tasks
		SET status = $3, completed_at = $4
		WHERE id = $1 AND status = $2
		RETURNING `+taskColumns,
		taskID, string(expected), string(next), completedAt,
	)
	task, err := scanTask(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Task{}, r.missOrConflict(ctx, `SELECT 1 FROM nurture_tasks WHERE id = $1`, taskID)
	}
	if err != nil {
		return domain.Task{}, mapPgError(err)
	}
	return task, nil
}

// missOrConflict distinguishes a missing row from a failed condition after a
// conditional update touched nothing.
func (r *PostgresStore) missOrConflict(ctx context.Context, existsSQL string, id uuid.UUID) error {
	var one int
	err := r.q.QueryRow(ctx, existsSQL, id).Scan(&one)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	return ErrConflict
}

func scanLead(row pgx.Row) (domain.Lead, error) {
	var (
		lead          domain.Lead
		submissionKey *string
		program       string
		tier          string
		status        string
	)
	err := row.Scan(
		&lead.ID, &submissionKey, &lead.FirstName, &lead.LastName, &lead.Email, &lead.Phone,
		&program, &lead.Message, &lead.Source, &lead.IsVeteran, &lead.RiskScore, &tier,
		&status, &lead.StatusNotes, &lead.SLADeadline, &lead.SequenceStep,
		&lead.LastContactedAt, &lead.CreatedAt, &lead.UpdatedAt,
	)
	if err != nil {
		return domain.Lead{}, err
	}
	if submissionKey != nil {
		lead.SubmissionKey = *submissionKey
	}
	lead.Program = domain.Program(program)
	lead.RiskTier = domain.Tier(tier)
	lead.Status = domain.Status(status)
	return lead, nil
}

func scanTask(row pgx.Row) (domain.Task, error) {
	var (
		task                         domain.Task
		kind, taskType, prio, status string
	)
	err := row.Scan(
		&task.ID, &task.LeadID, &kind, &taskType, &prio, &status, &task.Title, &task.Description,
		&task.ScheduledFor, &task.CreatedAt, &task.CompletedAt,
	)
	if err != nil {
		return domain.Task{}, err
	}
	task.Kind = domain.TaskKind(kind)
	task.Type = domain.TaskType(taskType)
	task.Priority = domain.Tier(prio)
	task.Status = domain.TaskStatus(status)
	return task, nil
}

func mapPgError(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			return ErrDuplicate
		case pgForeignKeyViolation:
			return ErrNotFound
		}
	}
	return err
}

func nullableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
