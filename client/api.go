package client

import (
	"context"
	"net/url"
	"strconv"

	"github.com/valyala/fasthttp"

	"projecthub/normalize"
)

// ProjectQuery narrows a project listing. Zero values mean server defaults.
type ProjectQuery struct {
	Limit int
	// Ascending sorts oldest first; the default is newest first.
	Ascending bool
}

// TaskQuery filters a task listing. AssignedTo accepts a user id or "me".
type TaskQuery struct {
	AssignedTo string
	Status     string
	ProjectID  string
}

// ProjectInput is the body for project create and update. Nil fields are
// left out. A nil Members leaves membership unchanged on update, while a
// pointer to an empty slice clears it.
type ProjectInput struct {
	Title       *string   `json:"title,omitempty"`
	Description *string   `json:"description,omitempty"`
	Status      *string   `json:"status,omitempty"`
	Members     *[]string `json:"members,omitempty"`
}

// TaskInput is the body for task create and update.
type TaskInput struct {
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
	Status      *string `json:"status,omitempty"`
	Priority    *string `json:"priority,omitempty"`
	DueDate     *string `json:"dueDate,omitempty"`
	ProjectID   *string `json:"projectId,omitempty"`
	AssignedTo  *string `json:"assignedTo,omitempty"`
}

func (c *Client) requireSession() error {
	if c.Session() == nil {
		return ErrNoSession
	}
	return nil
}

func (c *Client) get(ctx context.Context, path string) (any, error) {
	if err := c.requireSession(); err != nil {
		return nil, err
	}
	return c.do(ctx, fasthttp.MethodGet, path, nil)
}

func (c *Client) send(ctx context.Context, method, path string, body any) (any, error) {
	if err := c.requireSession(); err != nil {
		return nil, err
	}
	return c.do(ctx, method, path, body)
}

func projectFrom(v any) normalize.Project {
	raw, _ := normalize.Object(v, "project")
	return normalize.NormalizeProject(raw)
}

func taskFrom(v any) normalize.Task {
	raw, _ := normalize.Object(v, "task")
	return normalize.NormalizeTask(raw)
}

func commentFrom(v any) normalize.Comment {
	raw, _ := normalize.Object(v, "comment")
	return normalize.NormalizeComment(raw)
}

// Users lists accounts for member and assignee pickers. Only admins may list
// users; servers that expose the list solely under /auth/users are tried second.
func (c *Client) Users(ctx context.Context) ([]normalize.User, error) {
	v, err := c.get(ctx, "/api/users")
	if IsStatus(err, fasthttp.StatusNotFound) {
		v, err = c.get(ctx, "/api/auth/users")
	}
	if err != nil {
		return nil, err
	}
	return normalize.UserList(v), nil
}

func (c *Client) Projects(ctx context.Context, q ProjectQuery) ([]normalize.Project, error) {
	params := url.Values{}
	if q.Limit > 0 {
		params.Set("limit", strconv.Itoa(q.Limit))
	}
	if q.Ascending {
		params.Set("sort", "createdAt:asc")
	} else {
		params.Set("sort", "createdAt:desc")
	}
	v, err := c.get(ctx, "/api/projects?"+params.Encode())
	if err != nil {
		return nil, err
	}
	return normalize.ProjectList(v), nil
}

func (c *Client) Project(ctx context.Context, id string) (normalize.Project, error) {
	v, err := c.get(ctx, "/api/projects/"+url.PathEscape(id))
	if err != nil {
		return normalize.Project{}, notFound(err, "project", id)
	}
	return projectFrom(v), nil
}

func (c *Client) ProjectTasks(ctx context.Context, projectID string) ([]normalize.Task, error) {
	v, err := c.get(ctx, "/api/projects/"+url.PathEscape(projectID)+"/tasks")
	if err != nil {
		return nil, notFound(err, "project", projectID)
	}
	return normalize.TaskList(v), nil
}

func (c *Client) ProjectMembers(ctx context.Context, projectID string) ([]normalize.UserRef, error) {
	v, err := c.get(ctx, "/api/projects/"+url.PathEscape(projectID)+"/members")
	if err != nil {
		return nil, notFound(err, "project", projectID)
	}
	return normalize.MemberList(v), nil
}

func (c *Client) CreateProject(ctx context.Context, in ProjectInput) (normalize.Project, error) {
	v, err := c.send(ctx, fasthttp.MethodPost, "/api/projects", in)
	if err != nil {
		return normalize.Project{}, err
	}
	return projectFrom(v), nil
}

func (c *Client) UpdateProject(ctx context.Context, id string, in ProjectInput) (normalize.Project, error) {
	v, err := c.send(ctx, fasthttp.MethodPut, "/api/projects/"+url.PathEscape(id), in)
	if err != nil {
		return normalize.Project{}, notFound(err, "project", id)
	}
	return projectFrom(v), nil
}

func (c *Client) DeleteProject(ctx context.Context, id string) error {
	_, err := c.send(ctx, fasthttp.MethodDelete, "/api/projects/"+url.PathEscape(id), nil)
	return notFound(err, "project", id)
}

// AddMember adds userID to the project; adding an existing member is a no-op.
func (c *Client) AddMember(ctx context.Context, projectID, userID string) (normalize.Project, error) {
	v, err := c.send(ctx, fasthttp.MethodPost, "/api/projects/"+url.PathEscape(projectID)+"/members",
		map[string]string{"userId": userID})
	if err != nil {
		return normalize.Project{}, err
	}
	return projectFrom(v), nil
}

func (c *Client) RemoveMember(ctx context.Context, projectID, userID string) (normalize.Project, error) {
	v, err := c.send(ctx, fasthttp.MethodDelete,
		"/api/projects/"+url.PathEscape(projectID)+"/members/"+url.PathEscape(userID), nil)
	if err != nil {
		return normalize.Project{}, notFound(err, "project", projectID)
	}
	return projectFrom(v), nil
}

func (c *Client) Tasks(ctx context.Context, q TaskQuery) ([]normalize.Task, error) {
	params := url.Values{}
	if q.AssignedTo != "" {
		params.Set("assignedTo", q.AssignedTo)
	}
	if q.Status != "" {
		params.Set("status", q.Status)
	}
	if q.ProjectID != "" {
		params.Set("projectId", q.ProjectID)
	}
	path := "/api/tasks"
	if len(params) > 0 {
		path += "?" + params.Encode()
	}
	v, err := c.get(ctx, path)
	if err != nil {
		return nil, err
	}
	return normalize.TaskList(v), nil
}

func (c *Client) Task(ctx context.Context, id string) (normalize.Task, error) {
	v, err := c.get(ctx, "/api/tasks/"+url.PathEscape(id))
	if err != nil {
		return normalize.Task{}, notFound(err, "task", id)
	}
	return taskFrom(v), nil
}

func (c *Client) CreateTask(ctx context.Context, in TaskInput) (normalize.Task, error) {
	v, err := c.send(ctx, fasthttp.MethodPost, "/api/tasks", in)
	if err != nil {
		return normalize.Task{}, err
	}
	return taskFrom(v), nil
}

func (c *Client) UpdateTask(ctx context.Context, id string, in TaskInput) (normalize.Task, error) {
	v, err := c.send(ctx, fasthttp.MethodPut, "/api/tasks/"+url.PathEscape(id), in)
	if err != nil {
		return normalize.Task{}, notFound(err, "task", id)
	}
	return taskFrom(v), nil
}

func (c *Client) DeleteTask(ctx context.Context, id string) error {
	_, err := c.send(ctx, fasthttp.MethodDelete, "/api/tasks/"+url.PathEscape(id), nil)
	return notFound(err, "task", id)
}

// TaskComments lists a task's comments newest first.
func (c *Client) TaskComments(ctx context.Context, taskID string) ([]normalize.Comment, error) {
	v, err := c.get(ctx, "/api/comments/task/"+url.PathEscape(taskID))
	if err != nil {
		return nil, notFound(err, "task", taskID)
	}
	return normalize.CommentList(v), nil
}

func (c *Client) CreateComment(ctx context.Context, taskID, text string) (normalize.Comment, error) {
	v, err := c.send(ctx, fasthttp.MethodPost, "/api/comments",
		map[string]string{"taskId": taskID, "text": text})
	if err != nil {
		return normalize.Comment{}, err
	}
	return commentFrom(v), nil
}

func (c *Client) UpdateComment(ctx context.Context, id, text string) (normalize.Comment, error) {
	v, err := c.send(ctx, fasthttp.MethodPut, "/api/comments/"+url.PathEscape(id), map[string]string{"text": text})
	if err != nil {
		return normalize.Comment{}, notFound(err, "comment", id)
	}
	return commentFrom(v), nil
}

func (c *Client) DeleteComment(ctx context.Context, id string) error {
	_, err := c.send(ctx, fasthttp.MethodDelete, "/api/comments/"+url.PathEscape(id), nil)
	return notFound(err, "comment", id)
}
