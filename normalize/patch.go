package normalize

import (
	"strings"
	"time"
)

// ProjectPatch holds the project fields present in a request body. Nil means absent.
type ProjectPatch struct {
	Title       *string
	Description *string
	Status      *string
}

// TaskPatch holds the task fields present in a request body.
type TaskPatch struct {
	Title       *string
	Description *string
	Status      *string
	Priority    *string
	ProjectID   *string

	// DueDateSet reports that dueDate was present; DueDate nil then clears it.
	DueDateSet bool
	DueDate    *time.Time
	// DueDateInvalid is set when dueDate was present but unparseable.
	DueDateInvalid bool

	// AssigneeSet reports that an assignee field was present; an empty
	// AssigneeID then unassigns the task.
	AssigneeSet bool
	AssigneeID  string
}

// CommentPatch holds the comment fields present in a request body.
type CommentPatch struct {
	Text     *string
	TaskID   *string
	AuthorID *string
}

// ProfilePatch holds the self-service profile fields.
type ProfilePatch struct {
	Name  *string
	Email *string
}

func optString(raw Raw, keys ...string) *string {
	for _, k := range keys {
		v, ok := raw[k]
		if !ok || v == nil {
			continue
		}
		if s, ok := scalarString(v); ok {
			s = strings.TrimSpace(s)
			return &s
		}
	}
	return nil
}

func optID(raw Raw, keys ...string) *string {
	for _, k := range keys {
		v, ok := raw[k]
		if !ok || v == nil {
			continue
		}
		id := idString(v)
		return &id
	}
	return nil
}

// ProjectChanges reads the project fields from a request body.
func ProjectChanges(raw Raw) ProjectPatch {
	p := ProjectPatch{
		Title:       optString(raw, "title", "name"),
		Description: optString(raw, "description"),
	}
	if s := optString(raw, "status"); s != nil {
		status := ProjectStatus(*s)
		p.Status = &status
	}
	return p
}

// TaskChanges reads the task fields from a request body. Priority is only
// lower-cased so that callers can reject values outside low/medium/high.
func TaskChanges(raw Raw) TaskPatch {
	p := TaskPatch{
		Title:       optString(raw, "title", "name"),
		Description: optString(raw, "description"),
		ProjectID:   optID(raw, "projectId", "project"),
	}
	if s := optString(raw, "status"); s != nil {
		status := TaskStatus(*s)
		p.Status = &status
	}
	if s := optString(raw, "priority"); s != nil {
		priority := strings.ToLower(*s)
		if priority == "" {
			priority = PriorityMedium
		}
		p.Priority = &priority
	}
	if raw.Has("dueDate") {
		p.DueDateSet = true
		if v := raw["dueDate"]; v != nil {
			if s, isStr := v.(string); !isStr || strings.TrimSpace(s) != "" {
				if t, ok := parseTime(v); ok {
					p.DueDate = &t
				} else {
					p.DueDateInvalid = true
				}
			}
		}
	}
	for _, k := range []string{"assignedTo", "assignedToId"} {
		if !raw.Has(k) {
			continue
		}
		p.AssigneeSet = true
		p.AssigneeID = idString(raw[k])
		break
	}
	return p
}

// CommentChanges reads the comment fields from a request body. Text is
// returned untrimmed so stored comments keep their formatting.
func CommentChanges(raw Raw) CommentPatch {
	p := CommentPatch{
		TaskID:   optID(raw, "taskId", "task"),
		AuthorID: optID(raw, "author", "authorId"),
	}
	for _, k := range []string{"text", "content"} {
		if s, ok := raw[k].(string); ok {
			p.Text = &s
			break
		}
	}
	return p
}

// ProfileChanges reads the profile fields from a request body.
func ProfileChanges(raw Raw) ProfilePatch {
	p := ProfilePatch{Name: optString(raw, "name", "username")}
	if e := optString(raw, "email"); e != nil {
		email := strings.ToLower(*e)
		p.Email = &email
	}
	return p
}
