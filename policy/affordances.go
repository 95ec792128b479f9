package policy

import "projecthub/normalize"

// ProjectAffordances are the project controls a UI may show.
type ProjectAffordances struct {
	CanEdit          bool `json:"canEdit"`
	CanDelete        bool `json:"canDelete"`
	CanManageMembers bool `json:"canManageMembers"`
	CanAddTask       bool `json:"canAddTask"`
}

func ForProject(a Actor, p normalize.Project) ProjectAffordances {
	return ProjectAffordances{
		CanEdit:          Evaluate(a, OpUpdate, p),
		CanDelete:        Evaluate(a, OpDelete, p),
		CanManageMembers: Evaluate(a, OpManageMembers, p),
		CanAddTask:       Evaluate(a, OpCreate, TaskSubject{Project: &p}),
	}
}

// TaskAffordances are the task controls a UI may show.
type TaskAffordances struct {
	CanEdit    bool `json:"canEdit"`
	CanDelete  bool `json:"canDelete"`
	CanComment bool `json:"canComment"`
}

func ForTask(a Actor, t normalize.Task, project *normalize.Project) TaskAffordances {
	subject := TaskSubject{Task: t, Project: project}
	return TaskAffordances{
		CanEdit:    Evaluate(a, OpUpdate, subject),
		CanDelete:  Evaluate(a, OpDelete, subject),
		CanComment: Evaluate(a, OpCreate, CommentSubject{Task: &t}),
	}
}

// CommentAffordances are the comment controls a UI may show.
type CommentAffordances struct {
	CanEdit   bool `json:"canEdit"`
	CanDelete bool `json:"canDelete"`
}

func ForComment(a Actor, c normalize.Comment) CommentAffordances {
	subject := CommentSubject{Comment: c}
	return CommentAffordances{
		CanEdit:   Evaluate(a, OpUpdate, subject),
		CanDelete: Evaluate(a, OpDelete, subject),
	}
}
