package middleware

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"projecthub/models"
	"projecthub/normalize"
	"projecthub/policy"
	"projecthub/utils"
)

const (
	localUser  = "user"
	localActor = "actor"
)

// Protected authenticates the request from a Bearer token (or the
// access_token cookie) and stores the user and actor in the context.
func Protected(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		// Try to get token from Authorization header first
		var token string
		authHeader := c.Get("Authorization")
		if authHeader != "" {
			tokenParts := strings.Split(authHeader, " ")
			if len(tokenParts) != 2 || tokenParts[0] != "Bearer" {
				return utils.HandleError(c, &utils.AuthenticationError{Message: "Invalid authorization format"})
			}
			token = tokenParts[1]
		} else {
			// Fall back to cookie if header not present
			token = c.Cookies("access_token")
			if token == "" {
				return utils.HandleError(c, &utils.AuthenticationError{Message: "Authorization required"})
			}
		}

		claims, err := utils.ParseJWTToken(token)
		if err != nil {
			return utils.HandleError(c, &utils.AuthenticationError{Message: "Invalid or expired token"})
		}

		// The role is read from the database, not the token, so role changes apply immediately.
		var user models.User
		if err := db.WithContext(c.UserContext()).First(&user, "id = ?", claims.UserID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return utils.HandleError(c, &utils.AuthenticationError{Message: "User not found"})
			}
			return utils.HandleError(c, err)
		}

		c.Locals(localUser, &user)
		c.Locals(localActor, policy.Actor{
			ID:   user.ID,
			Name: user.Name,
			Role: normalize.NormalizeRole(user.Role),
		})

		return c.Next()
	}
}

// CurrentUser returns the user stored by Protected.
func CurrentUser(c *fiber.Ctx) *models.User {
	user, _ := c.Locals(localUser).(*models.User)
	return user
}

// CurrentActor returns the actor stored by Protected, or the zero actor.
func CurrentActor(c *fiber.Ctx) policy.Actor {
	actor, _ := c.Locals(localActor).(policy.Actor)
	return actor
}

// RequireRole rejects actors whose role is not in roles.
func RequireRole(roles ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor := CurrentActor(c)
		for _, r := range roles {
			if actor.Authenticated() && strings.EqualFold(actor.Role, r) {
				return c.Next()
			}
		}
		return utils.HandleError(c, utils.Forbidden("access this resource"))
	}
}
