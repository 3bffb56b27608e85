package school

import (
	"context"

	"golang.org/x/crypto/bcrypt"
)

// Store is the persistence surface the service mutates through. Implemented
// by Repository; faked in tests.
type Store interface {
	CreateUser(ctx context.Context, u User) (User, error)
	GetUserByEmail(ctx context.Context, email string) (User, error)
	GetUserByID(ctx context.Context, id string) (User, error)
	ListUsers(ctx context.Context) ([]User, error)
	DeleteUser(ctx context.Context, id string) error

	CreateClassroom(ctx context.Context, c Classroom) (Classroom, error)
	GetClassroom(ctx context.Context, id string) (Classroom, error)
	ListClassrooms(ctx context.Context) ([]Classroom, error)
	UpdateClassroom(ctx context.Context, id string, name, startTime, endTime *string, days []string) (Classroom, error)
	SetTeacher(ctx context.Context, classroomID, teacherID string) (Classroom, error)
	AddStudents(ctx context.Context, classroomID string, studentIDs []string) (Classroom, error)
	RemoveStudents(ctx context.Context, classroomID string, studentIDs []string) (Classroom, error)
	DeleteClassroom(ctx context.Context, id string) error
}

// Service applies account and classroom mutations with validation and
// authorization. Resource existence is always checked before authorization.
type Service struct {
	store Store
}

// NewService creates a service backed by a store.
func NewService(store Store) *Service {
	return &Service{store: store}
}

// NewUser is the registration payload.
type NewUser struct {
	Name     string
	Email    string
	Password string
	Role     string
}

// ClassroomSpec is the create payload; every field is required.
type ClassroomSpec struct {
	Name      string
	StartTime string
	EndTime   string
	Days      []string
}

// EditSpec carries a partial update; nil fields are left untouched.
type EditSpec struct {
	Name      *string
	StartTime *string
	EndTime   *string
	Days      []string
}

// Register creates an account with a bcrypt password hash.
func (s *Service) Register(ctx context.Context, nu NewUser) (User, error) {
	var fields []FieldError
	if nu.Name == "" {
		fields = append(fields, FieldError{Field: "name", Error: "name is required"})
	}
	if nu.Email == "" {
		fields = append(fields, FieldError{Field: "email", Error: "email is required"})
	}
	if nu.Password == "" {
		fields = append(fields, FieldError{Field: "password", Error: "password is required"})
	}
	if !ValidRole(nu.Role) {
		fields = append(fields, FieldError{Field: "role", Error: "role must be principal, teacher or student"})
	}
	if len(fields) > 0 {
		return User{}, &ValidationError{Fields: fields}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(nu.Password), bcrypt.DefaultCost)
	if err != nil {
		return User{}, err
	}
	return s.store.CreateUser(ctx, User{
		Name:         nu.Name,
		Email:        nu.Email,
		PasswordHash: string(hash),
		Role:         nu.Role,
	})
}

// Authenticate resolves email+password to an account. Unknown emails and bad
// passwords are indistinguishable to the caller.
func (s *Service) Authenticate(ctx context.Context, email, password string) (User, error) {
	u, err := s.store.GetUserByEmail(ctx, email)
	if err != nil {
		if err == ErrNotFound {
			return User{}, ErrInvalidCredentials
		}
		return User{}, err
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return User{}, ErrInvalidCredentials
	}
	return u, nil
}

// CreateClassroom validates every required field and reports all failures at once.
func (s *Service) CreateClassroom(ctx context.Context, identity Identity, spec ClassroomSpec) (Classroom, error) {
	if err := Authorize(identity, ActionCreateClassroom, nil); err != nil {
		return Classroom{}, err
	}
	var fields []FieldError
	if spec.Name == "" {
		fields = append(fields, FieldError{Field: "name", Error: "Classroom name is required"})
	}
	if spec.StartTime == "" {
		fields = append(fields, FieldError{Field: "startTime", Error: "Start time is required"})
	}
	if spec.EndTime == "" {
		fields = append(fields, FieldError{Field: "endTime", Error: "End time is required"})
	}
	if len(spec.Days) == 0 {
		fields = append(fields, FieldError{Field: "days", Error: "Days are required"})
	}
	if len(fields) > 0 {
		return Classroom{}, &ValidationError{Fields: fields}
	}
	return s.store.CreateClassroom(ctx, Classroom{
		Name:      spec.Name,
		StartTime: spec.StartTime,
		EndTime:   spec.EndTime,
		Days:      spec.Days,
	})
}

// AssignTeacher sets the classroom's teacher, replacing any prior assignment.
func (s *Service) AssignTeacher(ctx context.Context, identity Identity, classroomID, teacherID string) (Classroom, error) {
	classroom, err := s.store.GetClassroom(ctx, classroomID)
	if err != nil {
		return Classroom{}, err
	}
	if err := Authorize(identity, ActionAssignTeacher, &classroom); err != nil {
		return Classroom{}, err
	}
	teacher, err := s.store.GetUserByID(ctx, teacherID)
	if err != nil {
		return Classroom{}, err
	}
	if teacher.Role != RoleTeacher {
		return Classroom{}, ErrNotTeacher
	}
	return s.store.SetTeacher(ctx, classroomID, teacherID)
}

// EditClassroom applies a partial update; supplied fields must be non-empty.
func (s *Service) EditClassroom(ctx context.Context, identity Identity, classroomID string, spec EditSpec) (Classroom, error) {
	classroom, err := s.store.GetClassroom(ctx, classroomID)
	if err != nil {
		return Classroom{}, err
	}
	if err := Authorize(identity, ActionEditClassroom, &classroom); err != nil {
		return Classroom{}, err
	}
	var fields []FieldError
	if spec.Name != nil && *spec.Name == "" {
		fields = append(fields, FieldError{Field: "name", Error: "Classroom name is required"})
	}
	if spec.StartTime != nil && *spec.StartTime == "" {
		fields = append(fields, FieldError{Field: "startTime", Error: "Start time is required"})
	}
	if spec.EndTime != nil && *spec.EndTime == "" {
		fields = append(fields, FieldError{Field: "endTime", Error: "End time is required"})
	}
	if spec.Days != nil && len(spec.Days) == 0 {
		fields = append(fields, FieldError{Field: "days", Error: "Days are required"})
	}
	if len(fields) > 0 {
		return Classroom{}, &ValidationError{Fields: fields}
	}
	return s.store.UpdateClassroom(ctx, classroomID, spec.Name, spec.StartTime, spec.EndTime, spec.Days)
}

// AddStudents applies set-union roster semantics: ids that do not resolve to
// a student account, or are already on the roster, are skipped silently.
func (s *Service) AddStudents(ctx context.Context, identity Identity, classroomID string, studentIDs []string) (Classroom, error) {
	classroom, err := s.store.GetClassroom(ctx, classroomID)
	if err != nil {
		return Classroom{}, err
	}
	if err := Authorize(identity, ActionAddStudents, &classroom); err != nil {
		return Classroom{}, err
	}
	return s.store.AddStudents(ctx, classroomID, studentIDs)
}

// RemoveStudents applies set-difference roster semantics: absent ids are no-ops.
func (s *Service) RemoveStudents(ctx context.Context, identity Identity, classroomID string, studentIDs []string) (Classroom, error) {
	classroom, err := s.store.GetClassroom(ctx, classroomID)
	if err != nil {
		return Classroom{}, err
	}
	if err := Authorize(identity, ActionRemoveStudents, &classroom); err != nil {
		return Classroom{}, err
	}
	return s.store.RemoveStudents(ctx, classroomID, studentIDs)
}

// DeleteClassroom removes a classroom permanently.
func (s *Service) DeleteClassroom(ctx context.Context, identity Identity, classroomID string) error {
	classroom, err := s.store.GetClassroom(ctx, classroomID)
	if err != nil {
		return err
	}
	if err := Authorize(identity, ActionDeleteClassroom, &classroom); err != nil {
		return err
	}
	return s.store.DeleteClassroom(ctx, classroom.ID)
}

// DeleteUser removes an account; classroom references are cleaned by the store.
func (s *Service) DeleteUser(ctx context.Context, identity Identity, userID string) error {
	if _, err := s.store.GetUserByID(ctx, userID); err != nil {
		return err
	}
	if err := Authorize(identity, ActionDeleteUser, nil); err != nil {
		return err
	}
	return s.store.DeleteUser(ctx, userID)
}

// ListUsers returns every account.
func (s *Service) ListUsers(ctx context.Context) ([]User, error) {
	return s.store.ListUsers(ctx)
}

// ListClassrooms returns every classroom.
func (s *Service) ListClassrooms(ctx context.Context) ([]Classroom, error) {
	return s.store.ListClassrooms(ctx)
}
