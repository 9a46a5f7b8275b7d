package models

import (
	"time"

	"gorm.io/datatypes"
)

type EventType string

const (
	EventPageView         EventType = "page_view"
	EventQuoteStarted     EventType = "quote_started"
	EventQuoteSubmitted   EventType = "quote_submitted"
	EventContactSubmitted EventType = "contact_submitted"
	EventProductView      EventType = "product_view"
	EventWhatsAppClick    EventType = "whatsapp_click"
	EventCallClick        EventType = "call_click"
)

func (e EventType) Valid() bool {
	switch e {
	case EventPageView, EventQuoteStarted, EventQuoteSubmitted, EventContactSubmitted,
		EventProductView, EventWhatsAppClick, EventCallClick:
		return true
	}
	return false
}

type AnalyticsEvent struct {
	ID        uint                      `gorm:"primaryKey" json:"id"`
	EventType EventType                 `gorm:"size:40;not null;index" json:"event_type"`
	Path      string                    `gorm:"size:300" json:"path"`
	Referrer  string                    `gorm:"size:300" json:"referrer"`
	SessionID string                    `gorm:"size:64;index" json:"session_id"`
	Metadata  datatypes.JSONType[Specs] `json:"metadata"`
	CreatedAt time.Time                 `gorm:"index" json:"created_at"`
	UpdatedAt time.Time                 `json:"updated_at"`
}

// Achievement is a gamification badge earned by an admin user.
type Achievement struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	UserID      uint      `gorm:"not null;uniqueIndex:idx_achievement_user_code" json:"user_id"`
	Code        string    `gorm:"size:60;not null;uniqueIndex:idx_achievement_user_code" json:"code"`
	Title       string    `gorm:"size:120;not null" json:"title"`
	Description string    `gorm:"size:300" json:"description"`
	Points      int       `gorm:"not null" json:"points"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
