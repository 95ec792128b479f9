package client

import (
	"context"

	"projecthub/normalize"
	"projecthub/policy"
)

const dashboardProjects = 5

// Dashboard is the landing view: recent projects and the user's tasks.
type Dashboard struct {
	User             normalize.User
	RecentProjects   []normalize.Project
	MyTasks          []normalize.Task
	CanCreateProject bool
	Warnings         []string
}

// ProjectSummary is one row of the project list.
type ProjectSummary struct {
	Project     normalize.Project
	TaskCount   int
	Affordances policy.ProjectAffordances
}

type ProjectListView struct {
	Projects  []ProjectSummary
	CanCreate bool
	Warnings  []string
}

// TaskItem is a task with the controls the user may see on it.
type TaskItem struct {
	Task        normalize.Task
	Affordances policy.TaskAffordances
}

type ProjectDetail struct {
	Project     normalize.Project
	Tasks       []TaskItem
	Members     []normalize.UserRef
	Affordances policy.ProjectAffordances
	Warnings    []string
}

// CommentItem is a comment with the controls the user may see on it.
type CommentItem struct {
	Comment     normalize.Comment
	Affordances policy.CommentAffordances
}

type TaskDetail struct {
	Task        normalize.Task
	Project     *normalize.Project
	Comments    []CommentItem
	Affordances policy.TaskAffordances
	Warnings    []string
}

func (c *Client) LoadDashboard(ctx context.Context) (*Dashboard, error) {
	s := c.Session()
	if s == nil {
		return nil, ErrNoSession
	}
	actor := c.Actor()

	projects, err := c.Projects(ctx, ProjectQuery{Limit: dashboardProjects})
	if err != nil {
		return nil, err
	}

	view := &Dashboard{
		User:             s.User,
		RecentProjects:   projects,
		MyTasks:          []normalize.Task{},
		CanCreateProject: policy.Evaluate(actor, policy.OpCreate, (*normalize.Project)(nil)),
	}
	if v, ok := c.secondary("my tasks", &view.Warnings, func() (any, error) {
		return c.Tasks(ctx, TaskQuery{AssignedTo: "me"})
	}); ok {
		view.MyTasks = v.([]normalize.Task)
	}
	return view, nil
}

func (c *Client) LoadProjectList(ctx context.Context) (*ProjectListView, error) {
	if err := c.requireSession(); err != nil {
		return nil, err
	}
	actor := c.Actor()

	projects, err := c.Projects(ctx, ProjectQuery{})
	if err != nil {
		return nil, err
	}

	view := &ProjectListView{
		Projects:  make([]ProjectSummary, 0, len(projects)),
		CanCreate: policy.Evaluate(actor, policy.OpCreate, (*normalize.Project)(nil)),
	}

	counts := map[string]int{}
	if v, ok := c.secondary("task counts", &view.Warnings, func() (any, error) {
		return c.Tasks(ctx, TaskQuery{})
	}); ok {
		for _, t := range v.([]normalize.Task) {
			counts[t.ProjectID]++
		}
	}

	for _, p := range projects {
		view.Projects = append(view.Projects, ProjectSummary{
			Project:     p,
			TaskCount:   counts[p.ID],
			Affordances: policy.ForProject(actor, p),
		})
	}
	return view, nil
}

// LoadProjectDetail fetches a project with its tasks and members. A missing
// project is a *NotFoundError; failures fetching tasks or members degrade to
// empty lists with a warning.
func (c *Client) LoadProjectDetail(ctx context.Context, id string) (*ProjectDetail, error) {
	if err := c.requireSession(); err != nil {
		return nil, err
	}
	actor := c.Actor()

	project, err := c.Project(ctx, id)
	if err != nil {
		return nil, err
	}

	view := &ProjectDetail{Project: project, Tasks: []TaskItem{}}

	view.Members = project.Members
	if v, ok := c.secondary("members", &view.Warnings, func() (any, error) {
		return c.ProjectMembers(ctx, id)
	}); ok {
		view.Members = v.([]normalize.UserRef)
		view.Project.Members = view.Members
	}
	if view.Members == nil {
		view.Members = []normalize.UserRef{}
	}

	if v, ok := c.secondary("tasks", &view.Warnings, func() (any, error) {
		return c.ProjectTasks(ctx, id)
	}); ok {
		for _, t := range v.([]normalize.Task) {
			view.Tasks = append(view.Tasks, TaskItem{
				Task:        t,
				Affordances: policy.ForTask(actor, t, &view.Project),
			})
		}
	}

	view.Affordances = policy.ForProject(actor, view.Project)
	return view, nil
}

// LoadTaskDetail fetches a task with its project and comments. A missing task
// is a *NotFoundError; the project and comments are best effort.
func (c *Client) LoadTaskDetail(ctx context.Context, id string) (*TaskDetail, error) {
	if err := c.requireSession(); err != nil {
		return nil, err
	}
	actor := c.Actor()

	task, err := c.Task(ctx, id)
	if err != nil {
		return nil, err
	}

	view := &TaskDetail{Task: task, Comments: []CommentItem{}}

	if task.ProjectID != "" {
		if v, ok := c.secondary("project", &view.Warnings, func() (any, error) {
			return c.Project(ctx, task.ProjectID)
		}); ok {
			p := v.(normalize.Project)
			view.Project = &p
		}
	}

	if v, ok := c.secondary("comments", &view.Warnings, func() (any, error) {
		return c.TaskComments(ctx, id)
	}); ok {
		for _, cm := range v.([]normalize.Comment) {
			view.Comments = append(view.Comments, CommentItem{
				Comment:     cm,
				Affordances: policy.ForComment(actor, cm),
			})
		}
	}

	view.Affordances = policy.ForTask(actor, task, view.Project)
	return view, nil
}
