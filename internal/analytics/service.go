package analytics

import (
	"fmt"

	"irrigation-backend/internal/models"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Record stores a server-side event, e.g. a quote or contact submission.
func Record(db *gorm.DB, eventType models.EventType, path string, metadata models.Specs) error {
	if !eventType.Valid() {
		return fmt.Errorf("unknown event type %q", eventType)
	}
	if metadata == nil {
		metadata = models.Specs{}
	}
	evt := models.AnalyticsEvent{
		EventType: eventType,
		Path:      path,
		Metadata:  datatypes.NewJSONType(metadata),
	}
	if err := db.Create(&evt).Error; err != nil {
		return fmt.Errorf("record %s event: %w", eventType, err)
	}
	return nil
}
