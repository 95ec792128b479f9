package models

import "time"

// Project groups tasks and owns the membership list.
type Project struct {
	Base
	Title       string `gorm:"not null" json:"title"`
	Description string `gorm:"type:text" json:"description"`
	Status      string `gorm:"default:'pending'" json:"status"` // pending, in progress, completed

	CreatedByID string `gorm:"type:varchar(36);index" json:"createdById"`

	// Relations
	CreatedBy *User  `gorm:"foreignKey:CreatedByID" json:"createdBy,omitempty"`
	Members   []User `gorm:"many2many:project_members;joinForeignKey:ProjectID;joinReferences:UserID" json:"members"`
}

// ProjectMember is the join row behind Project.Members. The composite key keeps a
// user from appearing twice in the same project.
type ProjectMember struct {
	ProjectID string    `gorm:"primaryKey;type:varchar(36)" json:"projectId"`
	UserID    string    `gorm:"primaryKey;type:varchar(36)" json:"userId"`
	CreatedAt time.Time `json:"createdAt"`
}
