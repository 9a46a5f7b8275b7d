package content

import (
	"irrigation-backend/internal/apierr"
	"irrigation-backend/internal/audit"
	"irrigation-backend/internal/auth"
	"irrigation-backend/internal/database"
	"irrigation-backend/internal/models"
	"irrigation-backend/internal/validation"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type TeamMemberResponse struct {
	ID        uint   `json:"id"`
	Name      string `json:"name"`
	Position  string `json:"position"`
	Bio       string `json:"bio"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	ImageURL  string `json:"image_url"`
	SortOrder int    `json:"sort_order"`
	Active    bool   `json:"active"`
}

func toTeamMemberResponse(m *models.TeamMember) TeamMemberResponse {
	return TeamMemberResponse{
		ID:        m.ID,
		Name:      m.Name,
		Position:  m.Position,
		Bio:       m.Bio,
		Email:     m.Email,
		Phone:     m.Phone,
		ImageURL:  m.ImageURL,
		SortOrder: m.SortOrder,
		Active:    m.Active,
	}
}

type CreateTeamMemberRequest struct {
	Name      string `json:"name" validate:"required,max=120"`
	Position  string `json:"position" validate:"required,max=120"`
	Bio       string `json:"bio" validate:"max=5000"`
	Email     string `json:"email" validate:"omitempty,email,max=150"`
	Phone     string `json:"phone" validate:"max=30"`
	ImageURL  string `json:"image_url" validate:"max=500"`
	SortOrder int    `json:"sort_order"`
	Active    *bool  `json:"active"`
}

type UpdateTeamMemberRequest struct {
	Name      *string `json:"name" validate:"omitempty,min=1,max=120"`
	Position  *string `json:"position" validate:"omitempty,min=1,max=120"`
	Bio       *string `json:"bio" validate:"omitempty,max=5000"`
	Email     *string `json:"email" validate:"omitempty,email,max=150"`
	Phone     *string `json:"phone" validate:"omitempty,max=30"`
	ImageURL  *string `json:"image_url" validate:"omitempty,max=500"`
	SortOrder *int    `json:"sort_order"`
	Active    *bool   `json:"active"`
}

// GET /api/team
func ListTeamHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		return listTeam(c, true)
	}
}

// GET /api/admin/team
func AdminListTeamHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		return listTeam(c, false)
	}
}

func listTeam(c *fiber.Ctx, activeOnly bool) error {
	dbq := database.DB.Model(&models.TeamMember{})
	if activeOnly {
		dbq = dbq.Where("active = ?", true)
	}
	var members []models.TeamMember
	if err := dbq.Order("sort_order ASC, name ASC").Find(&members).Error; err != nil {
		return apierr.Internal("Could not list team members", err)
	}
	resp := make([]TeamMemberResponse, 0, len(members))
	for i := range members {
		resp = append(resp, toTeamMemberResponse(&members[i]))
	}
	return c.JSON(resp)
}

// POST /api/admin/team
func CreateTeamMemberHandler(log *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := auth.CurrentActor(c)
		if err != nil {
			return err
		}

		var body CreateTeamMemberRequest
		if err := validation.ParseBody(c, &body); err != nil {
			return err
		}
		if err := requireText("name", body.Name, "position", body.Position); err != nil {
			return err
		}

		active := true
		if body.Active != nil {
			active = *body.Active
		}
		m := models.TeamMember{
			Name:      trimPtr(&body.Name),
			Position:  trimPtr(&body.Position),
			Bio:       trimPtr(&body.Bio),
			Email:     trimPtr(&body.Email),
			Phone:     trimPtr(&body.Phone),
			ImageURL:  trimPtr(&body.ImageURL),
			SortOrder: body.SortOrder,
			Active:    active,
		}
		if err := database.DB.Create(&m).Error; err != nil {
			return apierr.Internal("Could not create team member", err)
		}

		resp := toTeamMemberResponse(&m)
		audit.Record(log, audit.LogOptions{
			UserID:      actor.ID,
			UserName:    actor.Name,
			EntityType:  "team_member",
			EntityID:    m.ID,
			Action:      models.AuditActionCreate,
			Description: "Team member " + m.Name + " created",
			After:       resp,
		})
		return c.Status(fiber.StatusCreated).JSON(resp)
	}
}

// PUT /api/admin/team/:id
func UpdateTeamMemberHandler(log *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := auth.CurrentActor(c)
		if err != nil {
			return err
		}

		var m models.TeamMember
		if err := loadByID(c, &m, "Team member"); err != nil {
			return err
		}
		before := toTeamMemberResponse(&m)

		var body UpdateTeamMemberRequest
		if err := validation.ParseBody(c, &body); err != nil {
			return err
		}

		if body.Name != nil {
			m.Name = trimPtr(body.Name)
		}
		if body.Position != nil {
			m.Position = trimPtr(body.Position)
		}
		if body.Bio != nil {
			m.Bio = trimPtr(body.Bio)
		}
		if body.Email != nil {
			m.Email = trimPtr(body.Email)
		}
		if body.Phone != nil {
			m.Phone = trimPtr(body.Phone)
		}
		if body.ImageURL != nil {
			m.ImageURL = trimPtr(body.ImageURL)
		}
		if body.SortOrder != nil {
			m.SortOrder = *body.SortOrder
		}
		if body.Active != nil {
			m.Active = *body.Active
		}
		if err := requireText("name", m.Name, "position", m.Position); err != nil {
			return err
		}

		if err := database.DB.Save(&m).Error; err != nil {
			return apierr.Internal("Could not update team member", err)
		}

		resp := toTeamMemberResponse(&m)
		audit.Record(log, audit.LogOptions{
			UserID:      actor.ID,
			UserName:    actor.Name,
			EntityType:  "team_member",
			EntityID:    m.ID,
			Action:      models.AuditActionUpdate,
			Description: "Team member " + m.Name + " updated",
			Before:      before,
			After:       resp,
		})
		return c.JSON(resp)
	}
}
