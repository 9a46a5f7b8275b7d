// Package content serves the marketing pages: completed projects, blog
// posts, the team page and customer success stories. Records are never
// deleted; team members and stories are hidden with an active flag and blog
// posts with the published flag.
package content

import (
	"errors"
	"strings"
	"time"

	"irrigation-backend/internal/apierr"
	"irrigation-backend/internal/database"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

const (
	timeLayout = "2006-01-02 15:04:05"
	dateLayout = "2006-01-02"
)

// loadByID fetches the record addressed by the :id route param into dst.
func loadByID(c *fiber.Ctx, dst interface{}, what string) error {
	if err := database.DB.First(dst, "id = ?", c.Params("id")).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apierr.NotFound(what + " not found")
		}
		return apierr.Internal("Could not load "+strings.ToLower(what), err)
	}
	return nil
}

func parseDate(field, v string) (*time.Time, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil, nil
	}
	t, err := time.Parse(dateLayout, v)
	if err != nil {
		return nil, apierr.Fields(field, "must be a date in YYYY-MM-DD format")
	}
	return &t, nil
}

func formatDate(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(dateLayout)
	return &s
}

func formatTime(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(timeLayout)
	return &s
}

func trimPtr(p *string) string {
	if p == nil {
		return ""
	}
	return strings.TrimSpace(*p)
}

func cleanTags(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, t := range in {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}

// requireText takes field/value pairs and reports every blank value.
func requireText(pairs ...string) error {
	ve := &apierr.ValidationError{}
	for i := 0; i+1 < len(pairs); i += 2 {
		if strings.TrimSpace(pairs[i+1]) == "" {
			ve.Fields = append(ve.Fields, apierr.FieldError{Field: pairs[i], Message: "must not be empty"})
		}
	}
	if len(ve.Fields) == 0 {
		return nil
	}
	return ve
}
