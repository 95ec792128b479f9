// Package policy decides whether an actor may perform an operation on a
// project, task, comment or user. Every function is a pure predicate over its
// arguments; the server uses them to authorize requests and the client uses
// the same functions to decide which controls to show.
package policy

import (
	"strings"

	"projecthub/normalize"
)

// Actor is the authenticated user performing an operation.
type Actor struct {
	ID   string
	Name string
	Role string
}

// ActorFromUser builds an actor from a canonical user.
func ActorFromUser(u normalize.User) Actor {
	return Actor{ID: u.ID, Name: u.Name, Role: normalize.NormalizeRole(u.Role)}
}

func (a Actor) role() string { return strings.ToLower(a.Role) }

// Authenticated reports whether a identifies a user at all.
func (a Actor) Authenticated() bool { return a.ID != "" }

func (a Actor) IsAdmin() bool   { return a.Authenticated() && a.role() == normalize.RoleAdmin }
func (a Actor) IsManager() bool { return a.Authenticated() && a.role() == normalize.RoleManager }

// IsPrivileged reports admin or manager.
func (a Actor) IsPrivileged() bool { return a.IsAdmin() || a.IsManager() }

// IsProjectMember reports whether userID appears in the project's members.
func IsProjectMember(userID string, p normalize.Project) bool {
	if userID == "" {
		return false
	}
	for _, m := range p.Members {
		if m.ID == userID {
			return true
		}
	}
	return false
}

// IsAssignee reports whether userID is the task's assignee.
func IsAssignee(userID string, t normalize.Task) bool {
	return userID != "" && t.AssignedTo != nil && t.AssignedTo.ID == userID
}

// HasAssignment reports whether the task carries assignment data.
func HasAssignment(t *normalize.Task) bool {
	return t != nil && t.AssignedTo != nil && t.AssignedTo.ID != ""
}

// CanRead allows any authenticated actor to read projects, tasks and comments.
func CanRead(a Actor) bool { return a.Authenticated() }

func CanCreateProject(a Actor) bool { return a.IsPrivileged() }

// CanModifyProject covers update, delete and membership changes. There is no
// ownership check: any admin or manager qualifies, unlike tasks and comments.
func CanModifyProject(a Actor, _ normalize.Project) bool { return a.IsPrivileged() }

// CanCreateTask allows admins, and managers who are members of the project.
// A nil project (unresolved relation) denies managers.
func CanCreateTask(a Actor, project *normalize.Project) bool {
	if a.IsAdmin() {
		return true
	}
	return a.IsManager() && project != nil && IsProjectMember(a.ID, *project)
}

// CanModifyTask allows admins, and managers who are the assignee or a member
// of the task's project. The project must be the one the task belongs to.
func CanModifyTask(a Actor, t normalize.Task, project *normalize.Project) bool {
	if a.IsAdmin() {
		return true
	}
	if !a.IsManager() {
		return false
	}
	if IsAssignee(a.ID, t) {
		return true
	}
	return project != nil && project.ID != "" && project.ID == t.ProjectID && IsProjectMember(a.ID, *project)
}

// CanCreateComment allows admins, and managers who are the task's assignee.
// A manager may also comment when the task has no assignment data at all.
func CanCreateComment(a Actor, task *normalize.Task) bool {
	if a.IsAdmin() {
		return true
	}
	if !a.IsManager() {
		return false
	}
	if !HasAssignment(task) {
		return true
	}
	return IsAssignee(a.ID, *task)
}

// CanModifyComment allows the author, and any admin or manager.
func CanModifyComment(a Actor, c normalize.Comment) bool {
	if a.Authenticated() && c.Author.ID == a.ID {
		return true
	}
	return a.IsPrivileged()
}

// CanManageUsers gates listing users and changing roles.
func CanManageUsers(a Actor) bool { return a.IsAdmin() }

// CanUpdateProfile allows users to edit themselves, and admins to edit anyone.
func CanUpdateProfile(a Actor, u normalize.User) bool {
	return (a.Authenticated() && a.ID == u.ID) || a.IsAdmin()
}
