// Package contact handles the public contact form and the admin inbox.
package contact

import (
	"context"
	"errors"
	"strings"

	"irrigation-backend/internal/analytics"
	"irrigation-backend/internal/apierr"
	"irrigation-backend/internal/audit"
	"irrigation-backend/internal/auth"
	"irrigation-backend/internal/config"
	"irrigation-backend/internal/database"
	"irrigation-backend/internal/document"
	"irrigation-backend/internal/mailer"
	"irrigation-backend/internal/models"
	"irrigation-backend/internal/validation"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type ContactResponse struct {
	ID        uint                 `json:"id"`
	FirstName string               `json:"first_name"`
	LastName  string               `json:"last_name"`
	Email     string               `json:"email"`
	Phone     string               `json:"phone"`
	Subject   string               `json:"subject"`
	Message   string               `json:"message"`
	Status    models.ContactStatus `json:"status"`
	CreatedAt string               `json:"created_at"`
	UpdatedAt string               `json:"updated_at"`
}

func toResponse(ct *models.Contact) ContactResponse {
	return ContactResponse{
		ID:        ct.ID,
		FirstName: ct.FirstName,
		LastName:  ct.LastName,
		Email:     ct.Email,
		Phone:     ct.Phone,
		Subject:   ct.Subject,
		Message:   ct.Message,
		Status:    ct.Status,
		CreatedAt: ct.CreatedAt.Format("2006-01-02 15:04:05"),
		UpdatedAt: ct.UpdatedAt.Format("2006-01-02 15:04:05"),
	}
}

type SubmitContactRequest struct {
	FirstName string `json:"first_name" validate:"required,max=80"`
	LastName  string `json:"last_name" validate:"required,max=80"`
	Email     string `json:"email" validate:"required,email,max=150"`
	Phone     string `json:"phone" validate:"omitempty,max=30"`
	Subject   string `json:"subject" validate:"required,max=200"`
	Message   string `json:"message" validate:"required,max=5000"`
}

type UpdateContactRequest struct {
	Status models.ContactStatus `json:"status" validate:"required,oneof=new read replied archived"`
}

// Notifier forwards new contact messages to the sales inbox.
type Notifier struct {
	mail    *mailer.Dispatcher
	company document.Company
	to      string
	log     *zap.Logger
}

func NewNotifier(mail *mailer.Dispatcher, cfg *config.Config, log *zap.Logger) *Notifier {
	return &Notifier{
		mail: mail,
		company: document.Company{
			Name:    cfg.Company.Name,
			Email:   cfg.Company.Email,
			Phone:   cfg.Company.Phone,
			Address: cfg.Company.Address,
			Website: cfg.Company.Website,
		},
		to:  strings.TrimSpace(cfg.Mail.AdminAddress),
		log: log.Named("contact"),
	}
}

// Notify reports whether the sales inbox was told. Without an admin
// address nothing is sent.
func (n *Notifier) Notify(ctx context.Context, ct *models.Contact) bool {
	if n.to == "" {
		return false
	}
	email, err := document.ContactNotification(ct, n.company)
	if err != nil {
		n.log.Error("contact email not rendered", zap.Uint("contact_id", ct.ID), zap.Error(err))
		return false
	}
	return n.mail.Send(ctx, mailer.Message{
		To:      []string{n.to},
		ReplyTo: ct.Email,
		Subject: email.Subject,
		HTML:    email.HTML,
		Text:    email.Text,
	})
}

// POST /api/contacts
func SubmitContactHandler(n *Notifier) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body SubmitContactRequest
		if err := validation.ParseBody(c, &body); err != nil {
			return err
		}

		ct := models.Contact{
			FirstName: strings.TrimSpace(body.FirstName),
			LastName:  strings.TrimSpace(body.LastName),
			Email:     strings.ToLower(strings.TrimSpace(body.Email)),
			Phone:     strings.TrimSpace(body.Phone),
			Subject:   strings.TrimSpace(body.Subject),
			Message:   strings.TrimSpace(body.Message),
			Status:    models.ContactStatusNew,
		}
		if err := requireText("first_name", ct.FirstName, "last_name", ct.LastName,
			"subject", ct.Subject, "message", ct.Message); err != nil {
			return err
		}
		if err := database.DB.Create(&ct).Error; err != nil {
			return apierr.Internal("Could not save your message", err)
		}

		if err := analytics.Record(database.DB, models.EventContactSubmitted, "/api/contacts", models.Specs{
			"subject": models.StringSpec(ct.Subject),
		}); err != nil {
			n.log.Warn("contact analytics not recorded", zap.Error(err))
		}
		n.Notify(c.UserContext(), &ct)

		return c.Status(fiber.StatusCreated).JSON(toResponse(&ct))
	}
}

// GET /api/admin/contacts?status=new
func ListContactsHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		dbq := database.DB.Model(&models.Contact{})
		if s := c.Query("status"); s != "" {
			if !models.ContactStatus(s).Valid() {
				return apierr.Fields("status", "must be one of: new read replied archived")
			}
			dbq = dbq.Where("status = ?", s)
		}

		var contacts []models.Contact
		if err := dbq.Order("created_at DESC, id DESC").Find(&contacts).Error; err != nil {
			return apierr.Internal("Could not list contacts", err)
		}
		resp := make([]ContactResponse, 0, len(contacts))
		for i := range contacts {
			resp = append(resp, toResponse(&contacts[i]))
		}
		return c.JSON(resp)
	}
}

// PUT /api/admin/contacts/:id
func UpdateContactHandler(log *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := auth.CurrentActor(c)
		if err != nil {
			return err
		}

		id, err := c.ParamsInt("id")
		if err != nil || id <= 0 {
			return apierr.BadRequest("Invalid contact id")
		}
		var ct models.Contact
		if err := database.DB.First(&ct, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apierr.NotFound("Contact not found")
			}
			return apierr.Internal("Could not load contact", err)
		}

		var body UpdateContactRequest
		if err := validation.ParseBody(c, &body); err != nil {
			return err
		}

		before := toResponse(&ct)
		ct.Status = body.Status
		if err := database.DB.Model(&ct).Update("status", ct.Status).Error; err != nil {
			return apierr.Internal("Could not update contact", err)
		}

		resp := toResponse(&ct)
		audit.Record(log, audit.LogOptions{
			UserID:      actor.ID,
			UserName:    actor.Name,
			EntityType:  "contact",
			EntityID:    ct.ID,
			Action:      models.AuditActionUpdate,
			Description: "Contact from " + ct.Email + " marked " + string(ct.Status),
			Before:      before,
			After:       resp,
		})
		return c.JSON(resp)
	}
}

func requireText(pairs ...string) error {
	ve := &apierr.ValidationError{}
	for i := 0; i+1 < len(pairs); i += 2 {
		if pairs[i+1] == "" {
			ve.Fields = append(ve.Fields, apierr.FieldError{Field: pairs[i], Message: "must not be empty"})
		}
	}
	if len(ve.Fields) == 0 {
		return nil
	}
	return ve
}
