package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"projecthub/normalize"
)

var (
	admin    = Actor{ID: "admin1", Role: normalize.RoleAdmin}
	manager  = Actor{ID: "m1", Role: normalize.RoleManager}
	manager2 = Actor{ID: "m2", Role: normalize.RoleManager}
	member   = Actor{ID: "u1", Role: normalize.RoleUser}
	nobody   = Actor{}
)

func project(members ...string) normalize.Project {
	p := normalize.Project{ID: "p1", Title: "Site Revamp", Status: normalize.ProjectPending, Members: []normalize.UserRef{}}
	for _, id := range members {
		p.Members = append(p.Members, normalize.UserRef{ID: id, Name: id})
	}
	return p
}

func task(assignee string) normalize.Task {
	t := normalize.Task{ID: "t1", Title: "Design mockups", ProjectID: "p1", Project: normalize.ProjectRef{ID: "p1"}}
	if assignee != "" {
		t.AssignedTo = &normalize.UserRef{ID: assignee}
	}
	return t
}

func TestProjectRules(t *testing.T) {
	p := project()

	assert.True(t, CanCreateProject(admin))
	assert.True(t, CanCreateProject(manager))
	assert.False(t, CanCreateProject(member))
	assert.False(t, CanCreateProject(nobody))

	// No ownership check: a manager unrelated to the project may still modify it.
	assert.True(t, CanModifyProject(manager2, p))
	assert.True(t, CanModifyProject(admin, p))
	assert.False(t, CanModifyProject(member, project("u1")))
}

func TestTaskCreate(t *testing.T) {
	withManager := project("m1")

	assert.True(t, CanCreateTask(admin, nil))
	assert.True(t, CanCreateTask(manager, &withManager))
	assert.False(t, CanCreateTask(manager2, &withManager))
	assert.False(t, CanCreateTask(manager, nil))
	assert.False(t, CanCreateTask(member, &withManager))

	userMember := project("u1")
	assert.False(t, CanCreateTask(member, &userMember))
}

func TestTaskModify(t *testing.T) {
	t.Run("member manager not assignee may modify", func(t *testing.T) {
		p := project("m1", "m2")
		assert.True(t, CanModifyTask(manager2, task("m1"), &p))
		assert.True(t, CanModifyTask(manager2, task(""), &p))
	})

	t.Run("assignee manager outside project may modify", func(t *testing.T) {
		p := project()
		assert.True(t, CanModifyTask(manager, task("m1"), &p))
		assert.True(t, CanModifyTask(manager, task("m1"), nil))
	})

	t.Run("unrelated manager denied", func(t *testing.T) {
		p := project("x")
		assert.False(t, CanModifyTask(manager, task("m2"), &p))
		assert.False(t, CanModifyTask(manager, task(""), nil))
	})

	t.Run("project must match task", func(t *testing.T) {
		other := project("m1")
		other.ID = "p2"
		assert.False(t, CanModifyTask(manager, task(""), &other))
	})

	t.Run("plain user never", func(t *testing.T) {
		p := project("u1")
		assert.False(t, CanModifyTask(member, task("u1"), &p))
	})

	t.Run("admin always", func(t *testing.T) {
		assert.True(t, CanModifyTask(admin, task(""), nil))
	})
}

func TestCommentCreate(t *testing.T) {
	assigned := task("m2")
	unassigned := task("")
	mine := task("m1")

	// Assignment points elsewhere: denied.
	assert.False(t, CanCreateComment(manager, &assigned))
	// No assignment data at all: allowed.
	assert.True(t, CanCreateComment(manager, &unassigned))
	assert.True(t, CanCreateComment(manager, nil))
	assert.True(t, CanCreateComment(manager, &mine))

	assert.True(t, CanCreateComment(admin, &assigned))
	assert.False(t, CanCreateComment(member, &unassigned))
	assert.False(t, CanCreateComment(member, &normalize.Task{AssignedTo: &normalize.UserRef{ID: "u1"}}))
}

func TestCommentModify(t *testing.T) {
	c := normalize.Comment{ID: "c1", Author: normalize.UserRef{ID: "u1"}}

	assert.True(t, CanModifyComment(member, c))
	assert.True(t, CanModifyComment(manager, c))
	assert.True(t, CanModifyComment(admin, c))
	assert.False(t, CanModifyComment(Actor{ID: "u2", Role: normalize.RoleUser}, c))
	assert.False(t, CanModifyComment(nobody, normalize.Comment{}))
}

func TestUserRules(t *testing.T) {
	assert.True(t, CanManageUsers(admin))
	assert.False(t, CanManageUsers(manager))
	assert.True(t, CanUpdateProfile(member, normalize.User{ID: "u1"}))
	assert.False(t, CanUpdateProfile(member, normalize.User{ID: "u2"}))
	assert.True(t, CanUpdateProfile(admin, normalize.User{ID: "u2"}))
}

func TestRoleIsCaseInsensitive(t *testing.T) {
	assert.True(t, CanCreateProject(Actor{ID: "x", Role: "Manager"}))
	assert.True(t, ActorFromUser(normalize.User{ID: "x", Role: "ADMIN"}).IsAdmin())
}

func TestEvaluate_Dispatch(t *testing.T) {
	p := project("m1")
	tk := task("")
	c := normalize.Comment{ID: "c1", Author: normalize.UserRef{ID: "u1"}}

	assert.True(t, Evaluate(manager, OpCreate, (*normalize.Project)(nil)))
	assert.False(t, Evaluate(member, OpCreate, (*normalize.Project)(nil)))
	assert.True(t, Evaluate(manager2, OpDelete, p))
	assert.True(t, Evaluate(member, OpRead, &p))
	assert.True(t, Evaluate(manager, OpCreate, TaskSubject{Project: &p}))
	assert.True(t, Evaluate(manager, OpUpdate, TaskSubject{Task: tk, Project: &p}))
	assert.False(t, Evaluate(manager2, OpUpdate, TaskSubject{Task: tk, Project: &p}))
	assert.True(t, Evaluate(manager, OpCreate, CommentSubject{Task: &tk}))
	assert.True(t, Evaluate(member, OpDelete, CommentSubject{Comment: c}))
	assert.False(t, Evaluate(manager, OpManageUsers, UserSubject{}))
	assert.True(t, Evaluate(admin, OpManageUsers, UserSubject{}))

	assert.False(t, Evaluate(admin, OpUpdate, "not a subject"))
	assert.False(t, Evaluate(admin, Operation("archive"), p))
	assert.False(t, Evaluate(nobody, OpRead, p))
}

func TestEvaluate_DeterministicAndPure(t *testing.T) {
	actors := []Actor{admin, manager, manager2, member, nobody}
	ops := []Operation{OpRead, OpCreate, OpUpdate, OpDelete, OpManageMembers, OpManageUsers}

	p := project("m1", "u1")
	tk := task("m2")
	c := normalize.Comment{ID: "c1", Author: normalize.UserRef{ID: "u1"}, TaskID: "t1"}
	subjects := []any{
		p,
		TaskSubject{Task: tk, Project: &p},
		TaskSubject{Task: tk},
		CommentSubject{Comment: c, Task: &tk},
		CommentSubject{Comment: c},
		UserSubject{User: normalize.User{ID: "u1"}},
	}

	before := []any{project("m1", "u1"), task("m2"), c}
	for _, a := range actors {
		for _, op := range ops {
			for _, s := range subjects {
				first := Evaluate(a, op, s)
				second := Evaluate(a, op, s)
				assert.Equal(t, first, second, "actor=%s op=%s subject=%T", a.ID, op, s)
			}
		}
	}
	assert.Equal(t, before, []any{p, tk, c})
}

func TestAffordances(t *testing.T) {
	p := project("m1")
	assert.Equal(t, ProjectAffordances{CanEdit: true, CanDelete: true, CanManageMembers: true, CanAddTask: true}, ForProject(manager, p))
	assert.Equal(t, ProjectAffordances{CanEdit: true, CanDelete: true, CanManageMembers: true}, ForProject(manager2, p))
	assert.Equal(t, ProjectAffordances{}, ForProject(member, p))

	assert.Equal(t, TaskAffordances{CanEdit: true, CanDelete: true, CanComment: true}, ForTask(manager, task(""), &p))
	assert.Equal(t, TaskAffordances{CanEdit: false, CanDelete: false, CanComment: false}, ForTask(manager2, task("m1"), &p))

	c := normalize.Comment{Author: normalize.UserRef{ID: "u1"}}
	assert.Equal(t, CommentAffordances{CanEdit: true, CanDelete: true}, ForComment(member, c))
	assert.Equal(t, CommentAffordances{}, ForComment(Actor{ID: "u2", Role: normalize.RoleUser}, c))
}
