package controller

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"projecthub/middleware"
	"projecthub/models"
	"projecthub/normalize"
	"projecthub/policy"
	"projecthub/utils"
)

type UpdateRoleRequest struct {
	Role string `json:"role" validate:"required,oneof=admin manager user"`
}

// UserController serves the admin user directory.
type UserController struct {
	DB     *gorm.DB
	Logger *logrus.Entry
}

func NewUserController(db *gorm.DB, logger *logrus.Entry) *UserController {
	return &UserController{DB: db, Logger: logger}
}

func (uc *UserController) ListUsers(c *fiber.Ctx) error {
	if !policy.CanManageUsers(middleware.CurrentActor(c)) {
		return utils.HandleError(c, utils.Forbidden("list users"))
	}

	var users []models.User
	if err := uc.DB.Order("name ASC").Find(&users).Error; err != nil {
		return utils.HandleError(c, err)
	}

	recs, err := userRecords(users)
	if err != nil {
		return utils.HandleError(c, err)
	}
	return c.JSON(recs)
}

func (uc *UserController) GetUser(c *fiber.Ctx) error {
	id := param(c, "id")
	user, err := findUser(uc.DB, id)
	if err != nil {
		return utils.HandleError(c, err)
	}

	rec, err := userRecord(user)
	if err != nil {
		return utils.HandleError(c, err)
	}
	actor := middleware.CurrentActor(c)
	if !policy.CanManageUsers(actor) && !policy.CanUpdateProfile(actor, rec) {
		return utils.HandleError(c, utils.Forbidden("view this user"))
	}
	return c.JSON(rec)
}

func (uc *UserController) UpdateRole(c *fiber.Ctx) error {
	var req UpdateRoleRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.HandleError(c, utils.Invalid("body", "Invalid request body"))
	}
	req.Role = strings.ToLower(strings.TrimSpace(req.Role))
	if err := utils.ValidateStruct(req); err != nil {
		return utils.HandleError(c, err)
	}

	id := param(c, "id")
	user, err := findUser(uc.DB, id)
	if err != nil {
		return utils.HandleError(c, err)
	}

	actor := middleware.CurrentActor(c)
	if !policy.Evaluate(actor, policy.OpManageUsers, policy.UserSubject{User: normalize.User{ID: user.ID}}) {
		return utils.HandleError(c, utils.Forbidden("change user roles"))
	}

	if err := uc.DB.Model(&models.User{}).Where("id = ?", user.ID).Update("role", req.Role).Error; err != nil {
		return utils.HandleError(c, err)
	}

	uc.Logger.WithFields(logrus.Fields{
		"user_id":  user.ID,
		"role":     req.Role,
		"admin_id": actor.ID,
	}).Info("User role updated")

	updated, err := findUser(uc.DB, user.ID)
	if err != nil {
		return utils.HandleError(c, err)
	}
	rec, err := userRecord(updated)
	if err != nil {
		return utils.HandleError(c, err)
	}
	return c.JSON(rec)
}
