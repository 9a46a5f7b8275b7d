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

type SuccessStoryResponse struct {
	ID            uint     `json:"id"`
	Title         string   `json:"title"`
	CustomerName  string   `json:"customer_name"`
	Location      string   `json:"location"`
	CropType      string   `json:"crop_type"`
	Summary       string   `json:"summary"`
	Story         string   `json:"story"`
	YieldIncrease *float64 `json:"yield_increase"`
	WaterSavings  *float64 `json:"water_savings"`
	ImageURL      string   `json:"image_url"`
	Active        bool     `json:"active"`
	CreatedAt     string   `json:"created_at"`
}

func toSuccessStoryResponse(s *models.SuccessStory) SuccessStoryResponse {
	return SuccessStoryResponse{
		ID:            s.ID,
		Title:         s.Title,
		CustomerName:  s.CustomerName,
		Location:      s.Location,
		CropType:      s.CropType,
		Summary:       s.Summary,
		Story:         s.Story,
		YieldIncrease: s.YieldIncrease,
		WaterSavings:  s.WaterSavings,
		ImageURL:      s.ImageURL,
		Active:        s.Active,
		CreatedAt:     s.CreatedAt.Format(timeLayout),
	}
}

type CreateSuccessStoryRequest struct {
	Title         string   `json:"title" validate:"required,max=150"`
	CustomerName  string   `json:"customer_name" validate:"required,max=120"`
	Location      string   `json:"location" validate:"max=150"`
	CropType      string   `json:"crop_type" validate:"max=80"`
	Summary       string   `json:"summary" validate:"required,max=500"`
	Story         string   `json:"story" validate:"max=20000"`
	YieldIncrease *float64 `json:"yield_increase" validate:"omitempty,gte=0"`
	WaterSavings  *float64 `json:"water_savings" validate:"omitempty,gte=0,lte=100"`
	ImageURL      string   `json:"image_url" validate:"max=500"`
	Active        *bool    `json:"active"`
}

type UpdateSuccessStoryRequest struct {
	Title         *string  `json:"title" validate:"omitempty,min=1,max=150"`
	CustomerName  *string  `json:"customer_name" validate:"omitempty,min=1,max=120"`
	Location      *string  `json:"location" validate:"omitempty,max=150"`
	CropType      *string  `json:"crop_type" validate:"omitempty,max=80"`
	Summary       *string  `json:"summary" validate:"omitempty,min=1,max=500"`
	Story         *string  `json:"story" validate:"omitempty,max=20000"`
	YieldIncrease *float64 `json:"yield_increase" validate:"omitempty,gte=0"`
	WaterSavings  *float64 `json:"water_savings" validate:"omitempty,gte=0,lte=100"`
	ImageURL      *string  `json:"image_url" validate:"omitempty,max=500"`
	Active        *bool    `json:"active"`
}

// GET /api/success-stories
func ListSuccessStoriesHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		return listStories(c, true)
	}
}

// GET /api/admin/success-stories
func AdminListSuccessStoriesHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		return listStories(c, false)
	}
}

func listStories(c *fiber.Ctx, activeOnly bool) error {
	dbq := database.DB.Model(&models.SuccessStory{})
	if activeOnly {
		dbq = dbq.Where("active = ?", true)
	}
	var stories []models.SuccessStory
	if err := dbq.Order("created_at DESC, id DESC").Find(&stories).Error; err != nil {
		return apierr.Internal("Could not list success stories", err)
	}
	resp := make([]SuccessStoryResponse, 0, len(stories))
	for i := range stories {
		resp = append(resp, toSuccessStoryResponse(&stories[i]))
	}
	return c.JSON(resp)
}

// POST /api/admin/success-stories
func CreateSuccessStoryHandler(log *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := auth.CurrentActor(c)
		if err != nil {
			return err
		}

		var body CreateSuccessStoryRequest
		if err := validation.ParseBody(c, &body); err != nil {
			return err
		}
		if err := requireText("title", body.Title, "customer_name", body.CustomerName, "summary", body.Summary); err != nil {
			return err
		}

		active := true
		if body.Active != nil {
			active = *body.Active
		}
		s := models.SuccessStory{
			Title:         trimPtr(&body.Title),
			CustomerName:  trimPtr(&body.CustomerName),
			Location:      trimPtr(&body.Location),
			CropType:      trimPtr(&body.CropType),
			Summary:       trimPtr(&body.Summary),
			Story:         trimPtr(&body.Story),
			YieldIncrease: body.YieldIncrease,
			WaterSavings:  body.WaterSavings,
			ImageURL:      trimPtr(&body.ImageURL),
			Active:        active,
		}
		if err := database.DB.Create(&s).Error; err != nil {
			return apierr.Internal("Could not create success story", err)
		}

		resp := toSuccessStoryResponse(&s)
		audit.Record(log, audit.LogOptions{
			UserID:      actor.ID,
			UserName:    actor.Name,
			EntityType:  "success_story",
			EntityID:    s.ID,
			Action:      models.AuditActionCreate,
			Description: "Success story " + s.Title + " created",
			After:       resp,
		})
		return c.Status(fiber.StatusCreated).JSON(resp)
	}
}

// PUT /api/admin/success-stories/:id
func UpdateSuccessStoryHandler(log *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := auth.CurrentActor(c)
		if err != nil {
			return err
		}

		var s models.SuccessStory
		if err := loadByID(c, &s, "Success story"); err != nil {
			return err
		}
		before := toSuccessStoryResponse(&s)

		var body UpdateSuccessStoryRequest
		if err := validation.ParseBody(c, &body); err != nil {
			return err
		}

		if body.Title != nil {
			s.Title = trimPtr(body.Title)
		}
		if body.CustomerName != nil {
			s.CustomerName = trimPtr(body.CustomerName)
		}
		if body.Location != nil {
			s.Location = trimPtr(body.Location)
		}
		if body.CropType != nil {
			s.CropType = trimPtr(body.CropType)
		}
		if body.Summary != nil {
			s.Summary = trimPtr(body.Summary)
		}
		if body.Story != nil {
			s.Story = trimPtr(body.Story)
		}
		if body.YieldIncrease != nil {
			s.YieldIncrease = body.YieldIncrease
		}
		if body.WaterSavings != nil {
			s.WaterSavings = body.WaterSavings
		}
		if body.ImageURL != nil {
			s.ImageURL = trimPtr(body.ImageURL)
		}
		if body.Active != nil {
			s.Active = *body.Active
		}
		if err := requireText("title", s.Title, "customer_name", s.CustomerName, "summary", s.Summary); err != nil {
			return err
		}

		if err := database.DB.Save(&s).Error; err != nil {
			return apierr.Internal("Could not update success story", err)
		}

		resp := toSuccessStoryResponse(&s)
		audit.Record(log, audit.LogOptions{
			UserID:      actor.ID,
			UserName:    actor.Name,
			EntityType:  "success_story",
			EntityID:    s.ID,
			Action:      models.AuditActionUpdate,
			Description: "Success story " + s.Title + " updated",
			Before:      before,
			After:       resp,
		})
		return c.JSON(resp)
	}
}
