package models

import (
	"time"

	"gorm.io/datatypes"
)

type QuoteStatus string

const (
	QuoteStatusPending    QuoteStatus = "pending"
	QuoteStatusInProgress QuoteStatus = "in_progress"
	QuoteStatusCompleted  QuoteStatus = "completed"
	QuoteStatusCancelled  QuoteStatus = "cancelled"
	QuoteStatusSent       QuoteStatus = "sent"
)

// Valid only checks membership. Any status may follow any other.
func (s QuoteStatus) Valid() bool {
	switch s {
	case QuoteStatusPending, QuoteStatusInProgress, QuoteStatusCompleted,
		QuoteStatusCancelled, QuoteStatusSent:
		return true
	}
	return false
}

type DeliveryMethod string

const (
	DeliveryEmail    DeliveryMethod = "email"
	DeliveryWhatsApp DeliveryMethod = "whatsapp"
	DeliveryDownload DeliveryMethod = "download"
)

const (
	AreaUnitAcres    = "acres"
	AreaUnitHectares = "hectares"

	DefaultCurrency = "KES"
)

// QuoteItem is one line of a quote / bill of quantities.
type QuoteItem struct {
	ProductID   *uint   `json:"product_id,omitempty"`
	Description string  `json:"description"`
	Quantity    float64 `json:"quantity"`
	Unit        string  `json:"unit"`
	UnitPrice   float64 `json:"unit_price"`
}

// LineTotal is quantity × unit price.
func (i QuoteItem) LineTotal() float64 {
	return i.Quantity * i.UnitPrice
}

type Quote struct {
	ID          uint   `gorm:"primaryKey" json:"id"`
	QuoteNumber string `gorm:"size:40;uniqueIndex;not null" json:"quote_number"`

	CustomerName  string `gorm:"size:120;not null" json:"customer_name"`
	CustomerEmail string `gorm:"size:150;not null;index" json:"customer_email"`
	CustomerPhone string `gorm:"size:30;not null" json:"customer_phone"`
	CompanyName   string `gorm:"size:150" json:"company_name"`

	ProjectType     string  `gorm:"size:80;not null" json:"project_type"`
	AreaSize        float64 `gorm:"not null" json:"area_size"`
	AreaUnit        string  `gorm:"size:10;not null;default:acres" json:"area_unit"`
	CropType        string  `gorm:"size:80" json:"crop_type"`
	Location        string  `gorm:"size:150;not null" json:"location"`
	WaterSource     string  `gorm:"size:80;not null" json:"water_source"`
	DistanceToFarm  float64 `gorm:"not null" json:"distance_to_farm"`
	SoilType        string  `gorm:"size:80" json:"soil_type"`
	AdditionalNotes string  `gorm:"type:text" json:"additional_notes"`

	Subtotal    *float64 `json:"subtotal"`
	VATAmount   *float64 `json:"vat_amount"`
	TotalAmount *float64 `json:"total_amount"`
	Currency    string   `gorm:"size:3;not null;default:KES" json:"currency"`

	Status         QuoteStatus                     `gorm:"size:20;not null;default:pending;index" json:"status"`
	Items          datatypes.JSONType[[]QuoteItem] `json:"items"`
	AssignedTo     *uint                           `gorm:"index" json:"assigned_to"`
	Assignee       *User                           `gorm:"foreignKey:AssignedTo" json:"assignee,omitempty"`
	DeliveryMethod DeliveryMethod                  `gorm:"size:20;not null;default:email" json:"delivery_method"`
	AdminNotes     string                          `gorm:"type:text" json:"admin_notes"`
	DocumentURL    string                          `gorm:"size:500" json:"document_url"`
	SentAt         *time.Time                      `json:"sent_at"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
