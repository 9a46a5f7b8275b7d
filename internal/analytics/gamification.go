package analytics

import (
	"fmt"

	"irrigation-backend/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	PointsPerCompletedQuote = 10

	completedQuotePrefix = "quote_completed_"
)

type milestone struct {
	threshold   int64
	code        string
	title       string
	description string
	points      int
}

var quoteMilestones = []milestone{
	{1, "milestone_first_quote", "First quote closed", "Completed a first customer quote", 25},
	{10, "milestone_ten_quotes", "Ten quotes closed", "Completed ten customer quotes", 100},
	{50, "milestone_fifty_quotes", "Fifty quotes closed", "Completed fifty customer quotes", 500},
}

// AwardQuoteCompletion credits userID for completing quoteID and grants any
// milestone now reached. Awards are keyed by (user, code), so completing the
// same quote twice earns nothing the second time. It returns only what was
// newly granted.
func AwardQuoteCompletion(tx *gorm.DB, userID, quoteID uint) ([]models.Achievement, error) {
	var granted []models.Achievement

	credit := models.Achievement{
		UserID:      userID,
		Code:        fmt.Sprintf("%s%d", completedQuotePrefix, quoteID),
		Title:       "Quote completed",
		Description: fmt.Sprintf("Completed quote #%d", quoteID),
		Points:      PointsPerCompletedQuote,
	}
	created, err := grant(tx, &credit)
	if err != nil {
		return nil, err
	}
	if !created {
		return nil, nil
	}
	granted = append(granted, credit)

	var completed int64
	if err := tx.Model(&models.Achievement{}).
		Where("user_id = ? AND code LIKE ?", userID, completedQuotePrefix+"%").
		Count(&completed).Error; err != nil {
		return nil, fmt.Errorf("count completed quotes: %w", err)
	}

	for _, m := range quoteMilestones {
		if completed < m.threshold {
			continue
		}
		a := models.Achievement{
			UserID:      userID,
			Code:        m.code,
			Title:       m.title,
			Description: m.description,
			Points:      m.points,
		}
		ok, err := grant(tx, &a)
		if err != nil {
			return nil, err
		}
		if ok {
			granted = append(granted, a)
		}
	}
	return granted, nil
}

func grant(tx *gorm.DB, a *models.Achievement) (bool, error) {
	res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(a)
	if res.Error != nil {
		return false, fmt.Errorf("grant achievement %s: %w", a.Code, res.Error)
	}
	return res.RowsAffected == 1, nil
}
