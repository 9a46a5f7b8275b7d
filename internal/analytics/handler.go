package analytics

import (
	"strings"
	"time"

	"irrigation-backend/internal/apierr"
	"irrigation-backend/internal/database"
	"irrigation-backend/internal/models"
	"irrigation-backend/internal/validation"

	"github.com/gofiber/fiber/v2"
	"gorm.io/datatypes"
)

const (
	defaultSummaryDays = 30
	maxSummaryDays     = 365
	topPathsLimit      = 10
)

type TrackEventRequest struct {
	EventType models.EventType `json:"event_type" validate:"required"`
	Path      string           `json:"path" validate:"max=300"`
	Referrer  string           `json:"referrer" validate:"max=300"`
	SessionID string           `json:"session_id" validate:"max=64"`
	Metadata  models.Specs     `json:"metadata"`
}

// POST /api/analytics/events
func TrackEventHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body TrackEventRequest
		if err := validation.ParseBody(c, &body); err != nil {
			return err
		}
		if !body.EventType.Valid() {
			return apierr.Fields("event_type", "is not a known event type")
		}
		if body.Metadata == nil {
			body.Metadata = models.Specs{}
		}

		evt := models.AnalyticsEvent{
			EventType: body.EventType,
			Path:      strings.TrimSpace(body.Path),
			Referrer:  strings.TrimSpace(body.Referrer),
			SessionID: strings.TrimSpace(body.SessionID),
			Metadata:  datatypes.NewJSONType(body.Metadata),
		}
		if err := database.DB.Create(&evt).Error; err != nil {
			return apierr.Internal("Could not record event", err)
		}
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{"id": evt.ID})
	}
}

type countRow struct {
	Label string
	Total int64
}

type PathViews struct {
	Path  string `json:"path"`
	Views int64  `json:"views"`
}

type StatusBreakdown struct {
	Total    int64            `json:"total"`
	ByStatus map[string]int64 `json:"by_status"`
}

type SummaryResponse struct {
	Days                int              `json:"days"`
	Since               string           `json:"since"`
	Events              map[string]int64 `json:"events"`
	Quotes              StatusBreakdown  `json:"quotes"`
	Contacts            StatusBreakdown  `json:"contacts"`
	QuoteConversionRate float64          `json:"quote_conversion_rate"`
	TopPaths            []PathViews      `json:"top_paths"`
}

// GET /api/admin/analytics/summary?days=30
func SummaryHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		days := c.QueryInt("days", defaultSummaryDays)
		if days <= 0 || days > maxSummaryDays {
			days = defaultSummaryDays
		}
		since := time.Now().AddDate(0, 0, -days)

		resp := SummaryResponse{
			Days:   days,
			Since:  since.Format("2006-01-02 15:04:05"),
			Events: map[string]int64{},
		}
		for _, t := range []models.EventType{
			models.EventPageView, models.EventQuoteStarted, models.EventQuoteSubmitted,
			models.EventContactSubmitted, models.EventProductView, models.EventWhatsAppClick,
			models.EventCallClick,
		} {
			resp.Events[string(t)] = 0
		}

		var events []countRow
		if err := database.DB.Model(&models.AnalyticsEvent{}).
			Select("event_type AS label, COUNT(*) AS total").
			Where("created_at >= ?", since).
			Group("event_type").
			Scan(&events).Error; err != nil {
			return apierr.Internal("Could not load analytics", err)
		}
		for _, r := range events {
			resp.Events[r.Label] = r.Total
		}

		var err error
		if resp.Quotes, err = breakdown(&models.Quote{}, since); err != nil {
			return apierr.Internal("Could not load quote statistics", err)
		}
		if resp.Contacts, err = breakdown(&models.Contact{}, since); err != nil {
			return apierr.Internal("Could not load contact statistics", err)
		}

		if started := resp.Events[string(models.EventQuoteStarted)]; started > 0 {
			resp.QuoteConversionRate = float64(resp.Events[string(models.EventQuoteSubmitted)]) / float64(started)
		}

		resp.TopPaths = []PathViews{}
		if err := database.DB.Model(&models.AnalyticsEvent{}).
			Select("path, COUNT(*) AS views").
			Where("event_type = ? AND created_at >= ? AND path <> ''", models.EventPageView, since).
			Group("path").
			Order("views DESC, path ASC").
			Limit(topPathsLimit).
			Scan(&resp.TopPaths).Error; err != nil {
			return apierr.Internal("Could not load analytics", err)
		}

		return c.JSON(resp)
	}
}

func breakdown(model interface{}, since time.Time) (StatusBreakdown, error) {
	var rows []countRow
	err := database.DB.Model(model).
		Select("status AS label, COUNT(*) AS total").
		Where("created_at >= ?", since).
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return StatusBreakdown{}, err
	}

	out := StatusBreakdown{ByStatus: map[string]int64{}}
	for _, r := range rows {
		out.ByStatus[r.Label] = r.Total
		out.Total += r.Total
	}
	return out, nil
}

type AchievementResponse struct {
	ID          uint   `json:"id"`
	UserID      uint   `json:"user_id"`
	Code        string `json:"code"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Points      int    `json:"points"`
	CreatedAt   string `json:"created_at"`
}

// GET /api/admin/achievements?user_id=
func ListAchievementsHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		dbq := database.DB.Model(&models.Achievement{})
		if uid := c.QueryInt("user_id", 0); uid > 0 {
			dbq = dbq.Where("user_id = ?", uid)
		}

		var list []models.Achievement
		if err := dbq.Order("created_at DESC, id DESC").Find(&list).Error; err != nil {
			return apierr.Internal("Could not list achievements", err)
		}

		resp := make([]AchievementResponse, 0, len(list))
		for _, a := range list {
			resp = append(resp, AchievementResponse{
				ID:          a.ID,
				UserID:      a.UserID,
				Code:        a.Code,
				Title:       a.Title,
				Description: a.Description,
				Points:      a.Points,
				CreatedAt:   a.CreatedAt.Format("2006-01-02 15:04:05"),
			})
		}
		return c.JSON(resp)
	}
}

type LeaderboardEntry struct {
	Rank         int    `json:"rank"`
	UserID       uint   `json:"user_id"`
	Name         string `json:"name"`
	Points       int64  `json:"points"`
	Achievements int64  `json:"achievements"`
}

// GET /api/admin/leaderboard
func LeaderboardHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var rows []LeaderboardEntry
		err := database.DB.Table("users").
			Select("users.id AS user_id, users.name AS name, COALESCE(SUM(achievements.points), 0) AS points, COUNT(achievements.id) AS achievements").
			Joins("LEFT JOIN achievements ON achievements.user_id = users.id").
			Where("users.role IN ?", []models.UserRole{models.RoleAdmin, models.RoleSuperAdmin}).
			Group("users.id, users.name").
			Order("points DESC, users.name ASC").
			Scan(&rows).Error
		if err != nil {
			return apierr.Internal("Could not load leaderboard", err)
		}

		for i := range rows {
			rows[i].Rank = i + 1
		}
		if rows == nil {
			rows = []LeaderboardEntry{}
		}
		return c.JSON(rows)
	}
}
