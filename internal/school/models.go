package school

import "time"

// Roles a user account can hold.
const (
	RolePrincipal = "principal"
	RoleTeacher   = "teacher"
	RoleStudent   = "student"
)

// ValidRole reports whether role is one of the known account roles.
func ValidRole(role string) bool {
	return role == RolePrincipal || role == RoleTeacher || role == RoleStudent
}

// User represents a registered account.
type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         string    `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
}

// Classroom holds a schedule, an optional assigned teacher and the student roster.
type Classroom struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	StartTime string    `json:"start_time"`
	EndTime   string    `json:"end_time"`
	Days      []string  `json:"days"`
	TeacherID *string   `json:"teacher_id"`
	Students  []string  `json:"students"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Identity is the resolved {user id, role} pair from a verified token.
type Identity struct {
	UserID string
	Role   string
}

// AuditEvent records a mutation applied through the API.
type AuditEvent struct {
	ID         string    `json:"id"`
	ActorID    string    `json:"actor_id"`
	Action     string    `json:"action"`
	SubjectID  string    `json:"subject_id"`
	Detail     string    `json:"detail,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}
