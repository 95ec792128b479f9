package models

import "time"

// Task belongs to exactly one project and may be assigned to one user.
type Task struct {
	Base
	Title       string     `gorm:"not null" json:"title"`
	Description string     `gorm:"type:text" json:"description"`
	Status      string     `gorm:"default:'todo'" json:"status"`     // todo, in-progress, done
	Priority    string     `gorm:"default:'medium'" json:"priority"` // low, medium, high
	DueDate     *time.Time `json:"dueDate"`

	ProjectID    string  `gorm:"type:varchar(36);not null;index" json:"projectId"`
	AssignedToID *string `gorm:"type:varchar(36);index" json:"assignedToId"`

	// Relations
	Project    *Project `gorm:"foreignKey:ProjectID" json:"project,omitempty"`
	AssignedTo *User    `gorm:"foreignKey:AssignedToID" json:"assignedTo,omitempty"`
}
