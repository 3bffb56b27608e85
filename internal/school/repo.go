package school

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository persists users, classrooms and audit events in Postgres.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a repo.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Migrate creates the schema if it does not exist yet.
func (r *Repository) Migrate(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS users (
		id            TEXT PRIMARY KEY,
		name          TEXT NOT NULL,
		email         TEXT UNIQUE NOT NULL,
		password_hash TEXT NOT NULL,
		role          TEXT NOT NULL CHECK (role IN ('principal','teacher','student')),
		created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);

	CREATE TABLE IF NOT EXISTS classrooms (
		id         TEXT PRIMARY KEY,
		name       TEXT NOT NULL,
		start_time TEXT NOT NULL,
		end_time   TEXT NOT NULL,
		days       TEXT[] NOT NULL DEFAULT '{}',
		teacher_id TEXT,
		students   TEXT[] NOT NULL DEFAULT '{}',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);

	CREATE TABLE IF NOT EXISTS audit_events (
		id          TEXT PRIMARY KEY,
		actor_id    TEXT NOT NULL,
		action      TEXT NOT NULL,
		subject_id  TEXT NOT NULL DEFAULT '',
		detail      TEXT NOT NULL DEFAULT '',
		occurred_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);

	CREATE INDEX IF NOT EXISTS idx_classrooms_teacher ON classrooms(teacher_id);
	CREATE INDEX IF NOT EXISTS idx_audit_occurred     ON audit_events(occurred_at);
	`
	_, err := r.pool.Exec(ctx, schema)
	return err
}

// -------- Users --------

// CreateUser inserts a new account. A duplicate email maps to ErrEmailTaken.
func (r *Repository) CreateUser(ctx context.Context, u User) (User, error) {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	row := r.pool.QueryRow(ctx, `
		INSERT INTO users (id, name, email, password_hash, role)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at
	`, u.ID, u.Name, u.Email, u.PasswordHash, u.Role)
	if err := row.Scan(&u.CreatedAt); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return User{}, ErrEmailTaken
		}
		return User{}, err
	}
	return u, nil
}

// GetUserByEmail returns the account for an email, case-insensitive.
func (r *Repository) GetUserByEmail(ctx context.Context, email string) (User, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, name, email, password_hash, role, created_at
		FROM users WHERE lower(email) = lower($1)
	`, email)
	return scanUser(row)
}

// GetUserByID returns a single account.
func (r *Repository) GetUserByID(ctx context.Context, id string) (User, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, name, email, password_hash, role, created_at
		FROM users WHERE id = $1
	`, id)
	return scanUser(row)
}

// ListUsers returns all accounts.
func (r *Repository) ListUsers(ctx context.Context) ([]User, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, name, email, password_hash, role, created_at
		FROM users ORDER BY created_at
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// DeleteUser removes an account and cleans any classroom references to it
// in the same transaction: assigned-teacher slots are nulled, roster
// memberships are pulled.
func (r *Repository) DeleteUser(ctx context.Context, id string) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	if _, err := tx.Exec(ctx, `
		UPDATE classrooms SET teacher_id = NULL, updated_at = NOW() WHERE teacher_id = $1
	`, id); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `
		UPDATE classrooms SET students = array_remove(students, $1), updated_at = NOW()
		WHERE $1 = ANY(students)
	`, id); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// -------- Classrooms --------

const classroomCols = `id, name, start_time, end_time, days, teacher_id, students, created_at, updated_at`

// CreateClassroom inserts a classroom with an empty roster and no teacher.
func (r *Repository) CreateClassroom(ctx context.Context, c Classroom) (Classroom, error) {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	row := r.pool.QueryRow(ctx, `
		INSERT INTO classrooms (id, name, start_time, end_time, days)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at, updated_at
	`, c.ID, c.Name, c.StartTime, c.EndTime, c.Days)
	if err := row.Scan(&c.CreatedAt, &c.UpdatedAt); err != nil {
		return Classroom{}, err
	}
	c.Students = []string{}
	return c, nil
}

// GetClassroom returns a single classroom.
func (r *Repository) GetClassroom(ctx context.Context, id string) (Classroom, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+classroomCols+` FROM classrooms WHERE id = $1`, id)
	return scanClassroom(row)
}

// ListClassrooms returns all classrooms.
func (r *Repository) ListClassrooms(ctx context.Context) ([]Classroom, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+classroomCols+` FROM classrooms ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []Classroom
	for rows.Next() {
		c, err := scanClassroom(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, c)
	}
	return res, rows.Err()
}

// UpdateClassroom applies only the supplied fields; nil pointers and a nil
// days slice leave the stored value untouched.
func (r *Repository) UpdateClassroom(ctx context.Context, id string, name, startTime, endTime *string, days []string) (Classroom, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE classrooms SET
			name       = COALESCE($2, name),
			start_time = COALESCE($3, start_time),
			end_time   = COALESCE($4, end_time),
			days       = COALESCE($5, days),
			updated_at = NOW()
		WHERE id = $1
		RETURNING `+classroomCols, id, name, startTime, endTime, days)
	return scanClassroom(row)
}

// SetTeacher assigns a teacher, overwriting any prior assignment.
func (r *Repository) SetTeacher(ctx context.Context, classroomID, teacherID string) (Classroom, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE classrooms SET teacher_id = $2, updated_at = NOW()
		WHERE id = $1
		RETURNING `+classroomCols, classroomID, teacherID)
	return scanClassroom(row)
}

// AddStudents appends every id that resolves to a student account and is not
// already on the roster. The membership check runs inside a single UPDATE so
// concurrent calls serialize on the row instead of losing appends.
func (r *Repository) AddStudents(ctx context.Context, classroomID string, studentIDs []string) (Classroom, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE classrooms c SET
			students = c.students || COALESCE(
				(SELECT array_agg(DISTINCT u.id)
				 FROM users u
				 WHERE u.id = ANY($2::text[])
				   AND u.role = 'student'
				   AND NOT u.id = ANY(c.students)),
				'{}'),
			updated_at = NOW()
		WHERE c.id = $1
		RETURNING `+classroomCols, classroomID, studentIDs)
	return scanClassroom(row)
}

// RemoveStudents drops every listed id from the roster; ids not present are
// no-ops. Single UPDATE for the same reason as AddStudents.
func (r *Repository) RemoveStudents(ctx context.Context, classroomID string, studentIDs []string) (Classroom, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE classrooms SET
			students = COALESCE(
				(SELECT array_agg(s ORDER BY ord)
				 FROM unnest(students) WITH ORDINALITY AS t(s, ord)
				 WHERE NOT s = ANY($2::text[])),
				'{}'),
			updated_at = NOW()
		WHERE id = $1
		RETURNING `+classroomCols, classroomID, studentIDs)
	return scanClassroom(row)
}

// DeleteClassroom removes the record permanently.
func (r *Repository) DeleteClassroom(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM classrooms WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// -------- Audit --------

// InsertAudit writes one audit row.
func (r *Repository) InsertAudit(ctx context.Context, evt AuditEvent) error {
	if evt.ID == "" {
		evt.ID = uuid.NewString()
	}
	if evt.OccurredAt.IsZero() {
		evt.OccurredAt = time.Now().UTC()
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO audit_events (id, actor_id, action, subject_id, detail, occurred_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, evt.ID, evt.ActorID, evt.Action, evt.SubjectID, evt.Detail, evt.OccurredAt)
	return err
}

// -------- scan helpers --------

func scanUser(row pgx.Row) (User, error) {
	var u User
	if err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.Role, &u.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, ErrNotFound
		}
		return User{}, err
	}
	return u, nil
}

func scanClassroom(row pgx.Row) (Classroom, error) {
	var c Classroom
	if err := row.Scan(&c.ID, &c.Name, &c.StartTime, &c.EndTime, &c.Days, &c.TeacherID, &c.Students, &c.CreatedAt, &c.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Classroom{}, ErrNotFound
		}
		return Classroom{}, err
	}
	return c, nil
}
