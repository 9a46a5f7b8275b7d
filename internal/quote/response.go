package quote

import (
	"irrigation-backend/internal/models"
)

type AssigneeResponse struct {
	ID    uint   `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

type QuoteResponse struct {
	ID              uint                  `json:"id"`
	QuoteNumber     string                `json:"quote_number"`
	CustomerName    string                `json:"customer_name"`
	CustomerEmail   string                `json:"customer_email"`
	CustomerPhone   string                `json:"customer_phone"`
	CompanyName     string                `json:"company_name"`
	ProjectType     string                `json:"project_type"`
	AreaSize        float64               `json:"area_size"`
	AreaUnit        string                `json:"area_unit"`
	CropType        string                `json:"crop_type"`
	Location        string                `json:"location"`
	WaterSource     string                `json:"water_source"`
	DistanceToFarm  float64               `json:"distance_to_farm"`
	SoilType        string                `json:"soil_type"`
	AdditionalNotes string                `json:"additional_notes"`
	Subtotal        *float64              `json:"subtotal"`
	VATAmount       *float64              `json:"vat_amount"`
	TotalAmount     *float64              `json:"total_amount"`
	Currency        string                `json:"currency"`
	Status          models.QuoteStatus    `json:"status"`
	Items           []models.QuoteItem    `json:"items"`
	AssignedTo      *uint                 `json:"assigned_to"`
	Assignee        *AssigneeResponse     `json:"assignee"`
	DeliveryMethod  models.DeliveryMethod `json:"delivery_method"`
	AdminNotes      string                `json:"admin_notes"`
	DocumentURL     string                `json:"document_url"`
	SentAt          *string               `json:"sent_at"`
	CreatedAt       string                `json:"created_at"`
	UpdatedAt       string                `json:"updated_at"`
}

// UpdateResponse is the updated quote plus achievements its assignee just
// earned, if any.
type UpdateResponse struct {
	QuoteResponse
	Achievements []models.Achievement `json:"achievements,omitempty"`
}

func toResponse(q *models.Quote) QuoteResponse {
	items := q.Items.Data()
	if items == nil {
		items = []models.QuoteItem{}
	}

	resp := QuoteResponse{
		ID:              q.ID,
		QuoteNumber:     q.QuoteNumber,
		CustomerName:    q.CustomerName,
		CustomerEmail:   q.CustomerEmail,
		CustomerPhone:   q.CustomerPhone,
		CompanyName:     q.CompanyName,
		ProjectType:     q.ProjectType,
		AreaSize:        q.AreaSize,
		AreaUnit:        q.AreaUnit,
		CropType:        q.CropType,
		Location:        q.Location,
		WaterSource:     q.WaterSource,
		DistanceToFarm:  q.DistanceToFarm,
		SoilType:        q.SoilType,
		AdditionalNotes: q.AdditionalNotes,
		Subtotal:        q.Subtotal,
		VATAmount:       q.VATAmount,
		TotalAmount:     q.TotalAmount,
		Currency:        q.Currency,
		Status:          q.Status,
		Items:           items,
		AssignedTo:      q.AssignedTo,
		DeliveryMethod:  q.DeliveryMethod,
		AdminNotes:      q.AdminNotes,
		DocumentURL:     q.DocumentURL,
		CreatedAt:       q.CreatedAt.Format("2006-01-02 15:04:05"),
		UpdatedAt:       q.UpdatedAt.Format("2006-01-02 15:04:05"),
	}
	if q.Assignee != nil {
		resp.Assignee = &AssigneeResponse{ID: q.Assignee.ID, Name: q.Assignee.Name, Email: q.Assignee.Email}
	}
	if q.SentAt != nil {
		s := q.SentAt.Format("2006-01-02 15:04:05")
		resp.SentAt = &s
	}
	return resp
}

// auditSnapshot is the subset of a quote worth diffing in the audit log.
func auditSnapshot(q *models.Quote) map[string]interface{} {
	return map[string]interface{}{
		"status":          q.Status,
		"subtotal":        q.Subtotal,
		"vat_amount":      q.VATAmount,
		"total_amount":    q.TotalAmount,
		"currency":        q.Currency,
		"items":           q.Items.Data(),
		"assigned_to":     q.AssignedTo,
		"delivery_method": q.DeliveryMethod,
		"admin_notes":     q.AdminNotes,
		"document_url":    q.DocumentURL,
	}
}
