package models

import "time"

// Comment is a note left on a task.
type Comment struct {
	Base
	Text      string    `gorm:"type:text;not null" json:"text"`
	AuthorID  string    `gorm:"type:varchar(36);not null;index" json:"authorId"`
	TaskID    string    `gorm:"type:varchar(36);not null;index:idx_comments_task_time,priority:1" json:"taskId"`
	Timestamp time.Time `gorm:"index:idx_comments_task_time,priority:2" json:"timestamp"`

	// Relations
	Author *User `gorm:"foreignKey:AuthorID" json:"author,omitempty"`
	Task   *Task `gorm:"foreignKey:TaskID" json:"-"`
}
