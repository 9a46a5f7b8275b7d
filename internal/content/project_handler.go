package content

import (
	"strings"

	"irrigation-backend/internal/apierr"
	"irrigation-backend/internal/audit"
	"irrigation-backend/internal/auth"
	"irrigation-backend/internal/database"
	"irrigation-backend/internal/models"
	"irrigation-backend/internal/validation"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type ProjectResponse struct {
	ID          uint    `json:"id"`
	Title       string  `json:"title"`
	ClientName  string  `json:"client_name"`
	Location    string  `json:"location"`
	ProjectType string  `json:"project_type"`
	AreaSize    float64 `json:"area_size"`
	CropType    string  `json:"crop_type"`
	Description string  `json:"description"`
	ImageURL    string  `json:"image_url"`
	CompletedOn *string `json:"completed_on"`
	Featured    bool    `json:"featured"`
	CreatedAt   string  `json:"created_at"`
}

func toProjectResponse(p *models.Project) ProjectResponse {
	return ProjectResponse{
		ID:          p.ID,
		Title:       p.Title,
		ClientName:  p.ClientName,
		Location:    p.Location,
		ProjectType: p.ProjectType,
		AreaSize:    p.AreaSize,
		CropType:    p.CropType,
		Description: p.Description,
		ImageURL:    p.ImageURL,
		CompletedOn: formatDate(p.CompletedOn),
		Featured:    p.Featured,
		CreatedAt:   p.CreatedAt.Format(timeLayout),
	}
}

type CreateProjectRequest struct {
	Title       string  `json:"title" validate:"required,max=150"`
	ClientName  string  `json:"client_name" validate:"max=120"`
	Location    string  `json:"location" validate:"required,max=150"`
	ProjectType string  `json:"project_type" validate:"required,max=80"`
	AreaSize    float64 `json:"area_size" validate:"gte=0"`
	CropType    string  `json:"crop_type" validate:"max=80"`
	Description string  `json:"description" validate:"max=20000"`
	ImageURL    string  `json:"image_url" validate:"max=500"`
	CompletedOn string  `json:"completed_on"`
	Featured    bool    `json:"featured"`
}

type UpdateProjectRequest struct {
	Title       *string  `json:"title" validate:"omitempty,min=1,max=150"`
	ClientName  *string  `json:"client_name" validate:"omitempty,max=120"`
	Location    *string  `json:"location" validate:"omitempty,min=1,max=150"`
	ProjectType *string  `json:"project_type" validate:"omitempty,min=1,max=80"`
	AreaSize    *float64 `json:"area_size" validate:"omitempty,gte=0"`
	CropType    *string  `json:"crop_type" validate:"omitempty,max=80"`
	Description *string  `json:"description" validate:"omitempty,max=20000"`
	ImageURL    *string  `json:"image_url" validate:"omitempty,max=500"`
	CompletedOn *string  `json:"completed_on"`
	Featured    *bool    `json:"featured"`
}

// GET /api/projects?featured=true
func ListProjectsHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		dbq := database.DB.Model(&models.Project{})
		if f := c.Query("featured"); f != "" {
			dbq = dbq.Where("featured = ?", f == "true" || f == "1")
		}
		return listProjects(c, dbq.Order("featured DESC, completed_on DESC, id DESC"))
	}
}

// GET /api/admin/projects
func AdminListProjectsHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		return listProjects(c, database.DB.Model(&models.Project{}).Order("created_at DESC, id DESC"))
	}
}

func listProjects(c *fiber.Ctx, dbq *gorm.DB) error {
	var projects []models.Project
	if err := dbq.Find(&projects).Error; err != nil {
		return apierr.Internal("Could not list projects", err)
	}
	resp := make([]ProjectResponse, 0, len(projects))
	for i := range projects {
		resp = append(resp, toProjectResponse(&projects[i]))
	}
	return c.JSON(resp)
}

// POST /api/admin/projects
func CreateProjectHandler(log *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := auth.CurrentActor(c)
		if err != nil {
			return err
		}

		var body CreateProjectRequest
		if err := validation.ParseBody(c, &body); err != nil {
			return err
		}
		if err := requireText("title", body.Title, "location", body.Location, "project_type", body.ProjectType); err != nil {
			return err
		}
		completedOn, err := parseDate("completed_on", body.CompletedOn)
		if err != nil {
			return err
		}

		p := models.Project{
			Title:       strings.TrimSpace(body.Title),
			ClientName:  strings.TrimSpace(body.ClientName),
			Location:    strings.TrimSpace(body.Location),
			ProjectType: strings.TrimSpace(body.ProjectType),
			AreaSize:    body.AreaSize,
			CropType:    strings.TrimSpace(body.CropType),
			Description: strings.TrimSpace(body.Description),
			ImageURL:    strings.TrimSpace(body.ImageURL),
			CompletedOn: completedOn,
			Featured:    body.Featured,
		}
		if err := database.DB.Create(&p).Error; err != nil {
			return apierr.Internal("Could not create project", err)
		}

		resp := toProjectResponse(&p)
		audit.Record(log, audit.LogOptions{
			UserID:      actor.ID,
			UserName:    actor.Name,
			EntityType:  "project",
			EntityID:    p.ID,
			Action:      models.AuditActionCreate,
			Description: "Project " + p.Title + " created",
			After:       resp,
		})
		return c.Status(fiber.StatusCreated).JSON(resp)
	}
}

// PUT /api/admin/projects/:id
func UpdateProjectHandler(log *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := auth.CurrentActor(c)
		if err != nil {
			return err
		}

		var p models.Project
		if err := loadByID(c, &p, "Project"); err != nil {
			return err
		}
		before := toProjectResponse(&p)

		var body UpdateProjectRequest
		if err := validation.ParseBody(c, &body); err != nil {
			return err
		}

		if body.Title != nil {
			p.Title = trimPtr(body.Title)
		}
		if body.ClientName != nil {
			p.ClientName = trimPtr(body.ClientName)
		}
		if body.Location != nil {
			p.Location = trimPtr(body.Location)
		}
		if body.ProjectType != nil {
			p.ProjectType = trimPtr(body.ProjectType)
		}
		if body.AreaSize != nil {
			p.AreaSize = *body.AreaSize
		}
		if body.CropType != nil {
			p.CropType = trimPtr(body.CropType)
		}
		if body.Description != nil {
			p.Description = trimPtr(body.Description)
		}
		if body.ImageURL != nil {
			p.ImageURL = trimPtr(body.ImageURL)
		}
		if body.CompletedOn != nil {
			completedOn, err := parseDate("completed_on", *body.CompletedOn)
			if err != nil {
				return err
			}
			p.CompletedOn = completedOn
		}
		if body.Featured != nil {
			p.Featured = *body.Featured
		}
		if err := requireText("title", p.Title, "location", p.Location, "project_type", p.ProjectType); err != nil {
			return err
		}

		if err := database.DB.Save(&p).Error; err != nil {
			return apierr.Internal("Could not update project", err)
		}

		resp := toProjectResponse(&p)
		audit.Record(log, audit.LogOptions{
			UserID:      actor.ID,
			UserName:    actor.Name,
			EntityType:  "project",
			EntityID:    p.ID,
			Action:      models.AuditActionUpdate,
			Description: "Project " + p.Title + " updated",
			Before:      before,
			After:       resp,
		})
		return c.JSON(resp)
	}
}
