package models

import (
	"strings"

	"gorm.io/gorm"
)

// PromoteAdmin grants the admin role to the account registered under email, if any.
// It runs at startup so an operator can bootstrap the first administrator.
func PromoteAdmin(db *gorm.DB, email string) (bool, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return false, nil
	}
	res := db.Model(&User{}).
		Where("email = ? AND role <> ?", email, RoleAdmin).
		Update("role", RoleAdmin)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
