package policy

import "projecthub/normalize"

type Operation string

const (
	OpRead          Operation = "read"
	OpCreate        Operation = "create"
	OpUpdate        Operation = "update"
	OpDelete        Operation = "delete"
	OpManageMembers Operation = "manage_members"
	OpManageUsers   Operation = "manage_users"
)

// TaskSubject is a task together with the project it belongs to (nil when
// the project could not be resolved).
type TaskSubject struct {
	Task    normalize.Task
	Project *normalize.Project
}

// CommentSubject is a comment together with its task (nil when unresolved).
type CommentSubject struct {
	Comment normalize.Comment
	Task    *normalize.Task
}

// UserSubject is the target of a user operation.
type UserSubject struct {
	User normalize.User
}

// Evaluate dispatches on the subject type. Unknown subjects and operations
// are denied.
func Evaluate(a Actor, op Operation, subject any) bool {
	if !a.Authenticated() {
		return false
	}
	switch s := subject.(type) {
	case normalize.Project:
		return evaluateProject(a, op, s)
	case *normalize.Project:
		if s == nil {
			return op == OpCreate && CanCreateProject(a)
		}
		return evaluateProject(a, op, *s)
	case TaskSubject:
		switch op {
		case OpRead:
			return CanRead(a)
		case OpCreate:
			return CanCreateTask(a, s.Project)
		case OpUpdate, OpDelete:
			return CanModifyTask(a, s.Task, s.Project)
		}
	case CommentSubject:
		switch op {
		case OpRead:
			return CanRead(a)
		case OpCreate:
			return CanCreateComment(a, s.Task)
		case OpUpdate, OpDelete:
			return CanModifyComment(a, s.Comment)
		}
	case UserSubject:
		switch op {
		case OpRead, OpUpdate:
			return CanUpdateProfile(a, s.User)
		case OpManageUsers, OpCreate, OpDelete:
			return CanManageUsers(a)
		}
	}
	return false
}

func evaluateProject(a Actor, op Operation, p normalize.Project) bool {
	switch op {
	case OpRead:
		return CanRead(a)
	case OpCreate:
		return CanCreateProject(a)
	case OpUpdate, OpDelete, OpManageMembers:
		return CanModifyProject(a, p)
	}
	return false
}
