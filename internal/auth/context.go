package auth

import (
	"irrigation-backend/internal/apierr"
	"irrigation-backend/internal/database"
	"irrigation-backend/internal/models"

	"github.com/gofiber/fiber/v2"
)

// Actor is the authenticated user behind an admin request.
type Actor struct {
	ID   uint
	Name string
	Role models.UserRole
}

// CurrentActor loads the user referenced by the token claims.
func CurrentActor(c *fiber.Ctx) (Actor, error) {
	userID, ok := c.Locals(CtxUserIDKey).(uint)
	if !ok || userID == 0 {
		return Actor{}, apierr.ErrInvalidToken
	}

	var user models.User
	if err := database.DB.First(&user, "id = ?", userID).Error; err != nil {
		return Actor{}, apierr.ErrInvalidToken
	}
	return Actor{ID: user.ID, Name: user.Name, Role: user.Role}, nil
}
