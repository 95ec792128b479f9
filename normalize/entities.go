package normalize

import (
	"strings"
	"time"
)

// Display fallbacks for relations that arrive without their display fields.
const (
	UnknownUser     = "Unknown User"
	UnknownProject  = "Unknown Project"
	UntitledProject = "Untitled Project"
	UntitledTask    = "Untitled Task"
)

const (
	RoleAdmin   = "admin"
	RoleManager = "manager"
	RoleUser    = "user"
)

const (
	ProjectPending    = "pending"
	ProjectInProgress = "in progress"
	ProjectCompleted  = "completed"

	TaskTodo       = "todo"
	TaskInProgress = "in-progress"
	TaskDone       = "done"

	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
)

// UserRef is a reference to a user with whatever display data was available.
type UserRef struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
	Role  string `json:"role,omitempty"`
}

// ProjectRef is a reference to a project.
type ProjectRef struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

type User struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

// Ref returns the reference form of u.
func (u User) Ref() UserRef {
	return UserRef{ID: u.ID, Name: u.Name, Email: u.Email, Role: u.Role}
}

type Project struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Status      string    `json:"status"`
	Members     []UserRef `json:"members"`
	CreatedBy   UserRef   `json:"createdBy"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Ref returns the reference form of p.
func (p Project) Ref() ProjectRef {
	return ProjectRef{ID: p.ID, Title: p.Title}
}

type Task struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Status      string     `json:"status"`
	Priority    string     `json:"priority"`
	DueDate     *time.Time `json:"dueDate"`
	ProjectID   string     `json:"projectId"`
	Project     ProjectRef `json:"project"`
	AssignedTo  *UserRef   `json:"assignedTo"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

type Comment struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	Author    UserRef   `json:"author"`
	TaskID    string    `json:"taskId"`
	Timestamp time.Time `json:"timestamp"`
}

// NormalizeRole lower-cases role and maps anything unrecognised to "user".
func NormalizeRole(role string) string {
	switch r := strings.ToLower(strings.TrimSpace(role)); r {
	case RoleAdmin, RoleManager, RoleUser:
		return r
	}
	return RoleUser
}

// ProjectStatus maps the accepted spellings onto pending, in progress and
// completed. Unknown values are kept lower-cased.
func ProjectStatus(status string) string {
	switch s := strings.ToLower(strings.TrimSpace(status)); s {
	case "":
		return ProjectPending
	case "in-progress", "in_progress", "inprogress":
		return ProjectInProgress
	case "done", "complete":
		return ProjectCompleted
	default:
		return s
	}
}

// TaskStatus accepts both the todo/in-progress/done vocabulary and the legacy
// pending/in progress/completed one, returning the former.
func TaskStatus(status string) string {
	switch s := strings.ToLower(strings.TrimSpace(status)); s {
	case "", "todo", "to do", "to-do", "pending":
		return TaskTodo
	case "in-progress", "in progress", "in_progress", "inprogress":
		return TaskInProgress
	case "done", "completed", "complete":
		return TaskDone
	default:
		return s
	}
}

// TaskPriority returns low, medium or high, defaulting to medium.
func TaskPriority(priority string) string {
	switch p := strings.ToLower(strings.TrimSpace(priority)); p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return p
	}
	return PriorityMedium
}

// NormalizeUser builds the canonical user from raw.
func NormalizeUser(raw Raw) User {
	name := raw.String("name", "username")
	if name == "" {
		name = UnknownUser
	}
	return User{
		ID:    raw.ID(),
		Name:  name,
		Email: strings.TrimSpace(raw.String("email")),
		Role:  NormalizeRole(raw.String("role")),
	}
}

// NormalizeProject builds the canonical project from raw.
func NormalizeProject(raw Raw) Project {
	title := raw.String("title", "name")
	if title == "" {
		title = UntitledProject
	}

	createdBy, ok := refFrom(raw, "createdBy", "createdById")
	if !ok {
		createdBy = UserRef{Name: UnknownUser}
	}

	return Project{
		ID:          raw.ID(),
		Title:       title,
		Description: raw.String("description"),
		Status:      ProjectStatus(raw.String("status")),
		Members:     members(raw["members"]),
		CreatedBy:   createdBy,
		CreatedAt:   timeOrNow(raw, "createdAt", "created_at"),
		UpdatedAt:   timeOrNow(raw, "updatedAt", "updated_at"),
	}
}

// NormalizeTask builds the canonical task from raw.
func NormalizeTask(raw Raw) Task {
	title := raw.String("title", "name")
	if title == "" {
		title = UntitledTask
	}

	project := projectRefFrom(raw)

	var assignee *UserRef
	if ref, ok := refFrom(raw, "assignedTo", "assignedToId"); ok {
		assignee = &ref
	}

	var due *time.Time
	if t, ok := raw.Time("dueDate", "due_date"); ok {
		due = &t
	}

	return Task{
		ID:          raw.ID(),
		Title:       title,
		Description: raw.String("description"),
		Status:      TaskStatus(raw.String("status")),
		Priority:    TaskPriority(raw.String("priority")),
		DueDate:     due,
		ProjectID:   project.ID,
		Project:     project,
		AssignedTo:  assignee,
		CreatedAt:   timeOrNow(raw, "createdAt", "created_at"),
		UpdatedAt:   timeOrNow(raw, "updatedAt", "updated_at"),
	}
}

// NormalizeComment builds the canonical comment from raw.
func NormalizeComment(raw Raw) Comment {
	author, ok := refFrom(raw, "author", "authorId")
	if !ok {
		author = UserRef{Name: UnknownUser}
	}

	taskID := ""
	if v, ok := raw.first("taskId", "task"); ok {
		taskID = idString(v)
	}

	return Comment{
		ID:        raw.ID(),
		Text:      raw.String("text", "content"),
		Author:    author,
		TaskID:    taskID,
		Timestamp: timeOrNow(raw, "timestamp", "createdAt", "created_at"),
	}
}

// userRef interprets v as a user reference. A bare string is an id with an
// unknown display name; an object must carry an id.
func userRef(v any) (UserRef, bool) {
	if s, ok := scalarString(v); ok {
		s = strings.TrimSpace(s)
		if s == "" {
			return UserRef{}, false
		}
		return UserRef{ID: s, Name: UnknownUser}, true
	}
	m, ok := asRaw(v)
	if !ok {
		return UserRef{}, false
	}
	id := m.ID()
	if id == "" {
		return UserRef{}, false
	}
	name := m.String("name", "username")
	if name == "" {
		name = UnknownUser
	}
	ref := UserRef{ID: id, Name: name, Email: strings.TrimSpace(m.String("email"))}
	if role := m.String("role"); role != "" {
		ref.Role = NormalizeRole(role)
	}
	return ref, true
}

// refFrom resolves a user reference from the first key holding one. Keys are
// tried in order so a nested object wins over a flat id field.
func refFrom(raw Raw, keys ...string) (UserRef, bool) {
	for _, k := range keys {
		if v, ok := raw[k]; ok && v != nil {
			if ref, ok := userRef(v); ok {
				return ref, true
			}
		}
	}
	return UserRef{}, false
}

func projectRefFrom(raw Raw) ProjectRef {
	for _, k := range []string{"project", "projectId", "project_id"} {
		v, ok := raw[k]
		if !ok || v == nil {
			continue
		}
		if s, ok := scalarString(v); ok {
			if s = strings.TrimSpace(s); s != "" {
				return ProjectRef{ID: s, Title: UnknownProject}
			}
			continue
		}
		if m, ok := asRaw(v); ok {
			id := m.ID()
			if id == "" {
				continue
			}
			title := m.String("title", "name")
			if title == "" {
				title = UnknownProject
			}
			return ProjectRef{ID: id, Title: title}
		}
	}
	return ProjectRef{Title: UnknownProject}
}

// members returns the de-duplicated member references in first-seen order.
func members(v any) []UserRef {
	out := []UserRef{}
	list, ok := asList(v)
	if !ok {
		return out
	}
	seen := make(map[string]struct{}, len(list))
	for _, item := range list {
		ref, ok := userRef(item)
		if !ok {
			continue
		}
		if _, dup := seen[ref.ID]; dup {
			continue
		}
		seen[ref.ID] = struct{}{}
		out = append(out, ref)
	}
	return out
}
