package school

// Action names a mutation subject to authorization.
type Action string

const (
	ActionCreateClassroom Action = "classroom.create"
	ActionAssignTeacher   Action = "classroom.assign-teacher"
	ActionEditClassroom   Action = "classroom.edit"
	ActionDeleteClassroom Action = "classroom.delete"
	ActionAddStudents     Action = "classroom.add-students"
	ActionRemoveStudents  Action = "classroom.remove-students"
	ActionDeleteUser      Action = "user.delete"
)

// Authorize decides whether identity may perform action against the given
// classroom. Roster mutations are open to the principal or the teacher
// currently assigned to that specific classroom; everything else is
// principal-only. classroom may be nil for actions that do not target one.
func Authorize(identity Identity, action Action, classroom *Classroom) error {
	if identity.Role == RolePrincipal {
		return nil
	}
	switch action {
	case ActionAddStudents, ActionRemoveStudents:
		if identity.Role == RoleTeacher && classroom != nil &&
			classroom.TeacherID != nil && *classroom.TeacherID == identity.UserID {
			return nil
		}
	}
	return ErrForbidden
}
