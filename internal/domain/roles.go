package domain

// Platform roles. The engine picks prompt templates by role, and the
// communication pipeline routes generated content between them.
const (
	RoleParent          = "parent"
	RoleTeacher         = "teacher"
	RolePsychopedagogue = "psychopedagogue"
	RoleDirector        = "director"
	RoleCoordinator     = "coordinator"
	RoleStudent         = "student"
)

func ValidRole(role string) bool {
	switch role {
	case RoleParent, RoleTeacher, RolePsychopedagogue, RoleDirector, RoleCoordinator, RoleStudent:
		return true
	}
	return false
}
