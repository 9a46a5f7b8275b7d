package auth

import (
	"errors"
	"strings"
	"sync"

	"irrigation-backend/internal/apierr"
	"irrigation-backend/internal/config"
	"irrigation-backend/internal/database"
	"irrigation-backend/internal/models"
	"irrigation-backend/internal/validation"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type RegisterSuperAdminRequest struct {
	Name     string `json:"name" validate:"required,max=120"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type CreateUserRequest struct {
	Name     string          `json:"name" validate:"required,max=120"`
	Email    string          `json:"email" validate:"required,email"`
	Password string          `json:"password" validate:"required,min=8"`
	Role     models.UserRole `json:"role" validate:"required,oneof=user admin super_admin"`
}

type UserResponse struct {
	ID        uint            `json:"id"`
	Name      string          `json:"name"`
	Email     string          `json:"email"`
	Role      models.UserRole `json:"role"`
	CreatedAt string          `json:"created_at"`
}

func toUserResponse(u *models.User) UserResponse {
	return UserResponse{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		Role:      u.Role,
		CreatedAt: u.CreatedAt.Format("2006-01-02 15:04:05"),
	}
}

var (
	dummyHashOnce sync.Once
	dummyHash     []byte
)

// compareDummy burns the same bcrypt work as a real comparison so an unknown
// email cannot be told apart from a wrong password by response time.
func compareDummy(password string) {
	dummyHashOnce.Do(func() {
		dummyHash, _ = bcrypt.GenerateFromPassword([]byte("irrigation-dummy-password"), bcrypt.DefaultCost)
	})
	_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
}

func normalizeEmail(email string) string {
	return strings.TrimSpace(strings.ToLower(email))
}

// RegisterSuperAdminHandler bootstraps the first super admin. It refuses once
// one exists.
func RegisterSuperAdminHandler(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body RegisterSuperAdminRequest
		if err := validation.ParseBody(c, &body); err != nil {
			return err
		}
		body.Email = normalizeEmail(body.Email)
		body.Name = strings.TrimSpace(body.Name)

		var count int64
		if err := database.DB.Model(&models.User{}).
			Where("role = ?", models.RoleSuperAdmin).
			Count(&count).Error; err != nil {
			return apierr.Internal("Could not check existing administrators", err)
		}
		if count > 0 {
			return apierr.New(fiber.StatusForbidden, apierr.CodeForbidden, "A super admin already exists")
		}

		user, err := createUser(body.Name, body.Email, body.Password, models.RoleSuperAdmin)
		if err != nil {
			return err
		}

		token, expiresAt, err := GenerateToken(cfg.JWTSecret, cfg.JWTTTL, user)
		if err != nil {
			return apierr.Internal("Could not issue token", err)
		}

		return c.Status(fiber.StatusCreated).JSON(fiber.Map{
			"token":      token,
			"expires_at": expiresAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
			"user":       toUserResponse(user),
		})
	}
}

func LoginHandler(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body LoginRequest
		if err := validation.ParseBody(c, &body); err != nil {
			return err
		}
		body.Email = normalizeEmail(body.Email)

		var user models.User
		if err := database.DB.Where("email = ?", body.Email).First(&user).Error; err != nil {
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return apierr.Internal("Login failed", err)
			}
			compareDummy(body.Password)
			return apierr.ErrInvalidCredentials
		}

		if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(body.Password)); err != nil {
			return apierr.ErrInvalidCredentials
		}

		token, expiresAt, err := GenerateToken(cfg.JWTSecret, cfg.JWTTTL, &user)
		if err != nil {
			return apierr.Internal("Could not issue token", err)
		}

		return c.JSON(fiber.Map{
			"token":      token,
			"expires_at": expiresAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
			"user":       toUserResponse(&user),
		})
	}
}

func MeHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, ok := c.Locals(CtxUserIDKey).(uint)
		if !ok {
			return apierr.ErrInvalidToken
		}

		var user models.User
		if err := database.DB.First(&user, "id = ?", userID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apierr.ErrInvalidToken
			}
			return apierr.Internal("Could not load user", err)
		}
		return c.JSON(toUserResponse(&user))
	}
}

// GET /api/admin/users
func ListUsersHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var users []models.User
		if err := database.DB.Order("created_at ASC").Find(&users).Error; err != nil {
			return apierr.Internal("Could not list users", err)
		}

		resp := make([]UserResponse, 0, len(users))
		for i := range users {
			resp = append(resp, toUserResponse(&users[i]))
		}
		return c.JSON(resp)
	}
}

// POST /api/admin/users
func CreateUserHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body CreateUserRequest
		if err := validation.ParseBody(c, &body); err != nil {
			return err
		}

		user, err := createUser(strings.TrimSpace(body.Name), normalizeEmail(body.Email), body.Password, body.Role)
		if err != nil {
			return err
		}
		return c.Status(fiber.StatusCreated).JSON(toUserResponse(user))
	}
}

func createUser(name, email, password string, role models.UserRole) (*models.User, error) {
	var existing int64
	if err := database.DB.Model(&models.User{}).Where("email = ?", email).Count(&existing).Error; err != nil {
		return nil, apierr.Internal("Could not create user", err)
	}
	if existing > 0 {
		return nil, apierr.New(fiber.StatusConflict, apierr.CodeConflict, "A user with this email already exists")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, apierr.Internal("Could not hash password", err)
	}

	user := models.User{
		Name:         name,
		Email:        email,
		PasswordHash: string(hash),
		Role:         role,
	}
	if err := database.DB.Create(&user).Error; err != nil {
		return nil, apierr.Internal("Could not create user", err)
	}
	return &user, nil
}
