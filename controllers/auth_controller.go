package controller

import (
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"projecthub/config"
	"projecthub/middleware"
	"projecthub/models"
	"projecthub/normalize"
	"projecthub/utils"
)

type RegisterRequest struct {
	Name     string `json:"name" validate:"required,notblank,max=100"`
	Email    string `json:"email" validate:"required,email_format"`
	Password string `json:"password" validate:"required,min=8"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type UpdatePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	NewPassword     string `json:"newPassword" validate:"required,min=8"`
}

type profileRequest struct {
	Name  *string `json:"name" validate:"omitempty,notblank,max=100"`
	Email *string `json:"email" validate:"omitempty,email_format"`
}

// AuthResponse is the canonical user with the issued token alongside.
type AuthResponse struct {
	normalize.User
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

type AuthController struct {
	DB     *gorm.DB
	Logger *logrus.Entry
}

func NewAuthController(db *gorm.DB, logger *logrus.Entry) *AuthController {
	return &AuthController{DB: db, Logger: logger}
}

func (ac *AuthController) Register(c *fiber.Ctx) error {
	var req RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.HandleError(c, utils.Invalid("body", "Invalid request body"))
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.Name = strings.TrimSpace(req.Name)

	if err := utils.ValidateStruct(req); err != nil {
		return utils.HandleError(c, err)
	}

	var existing models.User
	err := ac.DB.Where("email = ?", req.Email).First(&existing).Error
	if err == nil {
		return utils.HandleError(c, &utils.ConflictError{Message: "Email already registered"})
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return utils.HandleError(c, err)
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return utils.HandleError(c, err)
	}

	role := models.RoleUser
	if config.AppConfig.AdminEmail != "" && req.Email == config.AppConfig.AdminEmail {
		role = models.RoleAdmin
	}

	user := models.User{
		Name:         req.Name,
		Email:        req.Email,
		PasswordHash: string(hashedPassword),
		Role:         role,
	}
	if err := ac.DB.Create(&user).Error; err != nil {
		return utils.HandleError(c, err)
	}

	ac.Logger.WithFields(logrus.Fields{"user_id": user.ID, "role": user.Role}).Info("User registered")
	return ac.respondWithToken(c, fiber.StatusCreated, &user)
}

func (ac *AuthController) Login(c *fiber.Ctx) error {
	var req LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.HandleError(c, utils.Invalid("body", "Invalid request body"))
	}
	if err := utils.ValidateStruct(req); err != nil {
		return utils.HandleError(c, err)
	}

	invalid := &utils.AuthenticationError{Message: "Invalid email or password"}

	var user models.User
	if err := ac.DB.Where("email = ?", strings.ToLower(strings.TrimSpace(req.Email))).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.HandleError(c, invalid)
		}
		return utils.HandleError(c, err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return utils.HandleError(c, invalid)
	}

	return ac.respondWithToken(c, fiber.StatusOK, &user)
}

func (ac *AuthController) respondWithToken(c *fiber.Ctx, status int, user *models.User) error {
	token, expiresAt, err := utils.GenerateJWTToken(user)
	if err != nil {
		return utils.HandleError(c, err)
	}
	rec, err := userRecord(user)
	if err != nil {
		return utils.HandleError(c, err)
	}
	return c.Status(status).JSON(AuthResponse{User: rec, Token: token, ExpiresAt: expiresAt})
}

// Logout exists for symmetry with the client; tokens are stateless and the
// client discards its copy.
func (ac *AuthController) Logout(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"message": "Logged out"})
}

func (ac *AuthController) GetProfile(c *fiber.Ctx) error {
	rec, err := userRecord(middleware.CurrentUser(c))
	if err != nil {
		return utils.HandleError(c, err)
	}
	return c.JSON(rec)
}

func (ac *AuthController) UpdateProfile(c *fiber.Ctx) error {
	raw, err := parseBody(c)
	if err != nil {
		return utils.HandleError(c, err)
	}
	patch := normalize.ProfileChanges(raw)
	if err := utils.ValidateStruct(profileRequest{Name: patch.Name, Email: patch.Email}); err != nil {
		return utils.HandleError(c, err)
	}

	user := middleware.CurrentUser(c)
	updates := map[string]interface{}{}
	if patch.Name != nil {
		updates["name"] = *patch.Name
	}
	if patch.Email != nil && *patch.Email != user.Email {
		var count int64
		if err := ac.DB.Model(&models.User{}).
			Where("email = ? AND id <> ?", *patch.Email, user.ID).
			Count(&count).Error; err != nil {
			return utils.HandleError(c, err)
		}
		if count > 0 {
			return utils.HandleError(c, &utils.ConflictError{Message: "Email already registered"})
		}
		updates["email"] = *patch.Email
	}

	if len(updates) > 0 {
		if err := ac.DB.Model(&models.User{}).Where("id = ?", user.ID).Updates(updates).Error; err != nil {
			return utils.HandleError(c, err)
		}
	}

	updated, err := findUser(ac.DB, user.ID)
	if err != nil {
		return utils.HandleError(c, err)
	}
	rec, err := userRecord(updated)
	if err != nil {
		return utils.HandleError(c, err)
	}
	return c.JSON(rec)
}

func (ac *AuthController) UpdatePassword(c *fiber.Ctx) error {
	var req UpdatePasswordRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.HandleError(c, utils.Invalid("body", "Invalid request body"))
	}
	if err := utils.ValidateStruct(req); err != nil {
		return utils.HandleError(c, err)
	}

	user := middleware.CurrentUser(c)
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.CurrentPassword)); err != nil {
		return utils.HandleError(c, &utils.AuthenticationError{Message: "Invalid current password"})
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		return utils.HandleError(c, err)
	}
	if err := ac.DB.Model(user).Update("password_hash", string(hashedPassword)).Error; err != nil {
		return utils.HandleError(c, err)
	}

	return c.JSON(fiber.Map{"message": "Password updated successfully"})
}
