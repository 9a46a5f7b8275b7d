package quote

import (
	"fmt"
	"math"
	"strings"

	"irrigation-backend/internal/apierr"
	"irrigation-backend/internal/models"

	"gorm.io/datatypes"
)

// SubmitRequest is the public quote form.
type SubmitRequest struct {
	CustomerName    string   `json:"customer_name" validate:"required,max=120"`
	CustomerEmail   string   `json:"customer_email" validate:"required,email,max=150"`
	CustomerPhone   string   `json:"customer_phone" validate:"required,min=10,max=30"`
	CompanyName     string   `json:"company_name" validate:"max=150"`
	ProjectType     string   `json:"project_type" validate:"required,max=80"`
	AreaSize        float64  `json:"area_size" validate:"required,gt=0"`
	AreaUnit        string   `json:"area_unit" validate:"omitempty,oneof=acres hectares"`
	CropType        string   `json:"crop_type" validate:"max=80"`
	Location        string   `json:"location" validate:"required,max=150"`
	WaterSource     string   `json:"water_source" validate:"required,max=80"`
	DistanceToFarm  *float64 `json:"distance_to_farm" validate:"required,gte=0"`
	SoilType        string   `json:"soil_type" validate:"max=80"`
	AdditionalNotes string   `json:"additional_notes" validate:"max=5000"`
}

// Normalize trims free text and lowercases the email before validation.
func (r *SubmitRequest) Normalize() {
	r.CustomerName = strings.TrimSpace(r.CustomerName)
	r.CustomerEmail = strings.ToLower(strings.TrimSpace(r.CustomerEmail))
	r.CustomerPhone = strings.TrimSpace(r.CustomerPhone)
	r.CompanyName = strings.TrimSpace(r.CompanyName)
	r.ProjectType = strings.TrimSpace(r.ProjectType)
	r.AreaUnit = strings.ToLower(strings.TrimSpace(r.AreaUnit))
	r.CropType = strings.TrimSpace(r.CropType)
	r.Location = strings.TrimSpace(r.Location)
	r.WaterSource = strings.TrimSpace(r.WaterSource)
	r.SoilType = strings.TrimSpace(r.SoilType)
	r.AdditionalNotes = strings.TrimSpace(r.AdditionalNotes)
}

func (r SubmitRequest) toModel() *models.Quote {
	unit := r.AreaUnit
	if unit == "" {
		unit = models.AreaUnitAcres
	}
	var distance float64
	if r.DistanceToFarm != nil {
		distance = *r.DistanceToFarm
	}
	return &models.Quote{
		CustomerName:    r.CustomerName,
		CustomerEmail:   r.CustomerEmail,
		CustomerPhone:   r.CustomerPhone,
		CompanyName:     r.CompanyName,
		ProjectType:     r.ProjectType,
		AreaSize:        r.AreaSize,
		AreaUnit:        unit,
		CropType:        r.CropType,
		Location:        r.Location,
		WaterSource:     r.WaterSource,
		DistanceToFarm:  distance,
		SoilType:        r.SoilType,
		AdditionalNotes: r.AdditionalNotes,
		Currency:        models.DefaultCurrency,
		Status:          models.QuoteStatusPending,
		DeliveryMethod:  models.DeliveryEmail,
		Items:           datatypes.NewJSONType([]models.QuoteItem{}),
	}
}

// UpdateRequest is a partial admin change; nil fields are left alone.
// assigned_to 0 clears the assignment.
type UpdateRequest struct {
	Status         *models.QuoteStatus    `json:"status"`
	Items          *[]models.QuoteItem    `json:"items"`
	Subtotal       *float64               `json:"subtotal" validate:"omitempty,gte=0"`
	AssignedTo     *uint                  `json:"assigned_to"`
	DeliveryMethod *models.DeliveryMethod `json:"delivery_method"`
	AdminNotes     *string                `json:"admin_notes" validate:"omitempty,max=5000"`
	Currency       *string                `json:"currency" validate:"omitempty,len=3"`
}

func (r UpdateRequest) check() error {
	if r.Status != nil && !r.Status.Valid() {
		return apierr.Fields("status", "must be one of: pending, in_progress, completed, cancelled, sent")
	}
	if r.DeliveryMethod != nil {
		switch *r.DeliveryMethod {
		case models.DeliveryEmail, models.DeliveryWhatsApp, models.DeliveryDownload:
		default:
			return apierr.Fields("delivery_method", "must be one of: email, whatsapp, download")
		}
	}
	if r.Items != nil {
		ve := &apierr.ValidationError{}
		for i, it := range *r.Items {
			prefix := fmt.Sprintf("items[%d].", i)
			if strings.TrimSpace(it.Description) == "" {
				ve.Fields = append(ve.Fields, apierr.FieldError{Field: prefix + "description", Message: "is required"})
			}
			if !(it.Quantity > 0) || math.IsInf(it.Quantity, 0) {
				ve.Fields = append(ve.Fields, apierr.FieldError{Field: prefix + "quantity", Message: "must be greater than 0"})
			}
			if it.UnitPrice < 0 || math.IsNaN(it.UnitPrice) || math.IsInf(it.UnitPrice, 0) {
				ve.Fields = append(ve.Fields, apierr.FieldError{Field: prefix + "unit_price", Message: "must be 0 or more"})
			}
		}
		if len(ve.Fields) > 0 {
			return ve
		}
	}
	return nil
}

func normalizeItems(items []models.QuoteItem) []models.QuoteItem {
	out := make([]models.QuoteItem, 0, len(items))
	for _, it := range items {
		it.Description = strings.TrimSpace(it.Description)
		it.Unit = strings.TrimSpace(it.Unit)
		if it.Unit == "" {
			it.Unit = "pcs"
		}
		out = append(out, it)
	}
	return out
}
