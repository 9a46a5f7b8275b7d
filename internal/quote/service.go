// Package quote implements the quote request lifecycle: public intake with
// customer notification, admin pricing and assignment, and delivery of the
// finished quote document.
package quote

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"irrigation-backend/internal/analytics"
	"irrigation-backend/internal/apierr"
	"irrigation-backend/internal/config"
	"irrigation-backend/internal/database"
	"irrigation-backend/internal/document"
	"irrigation-backend/internal/mailer"
	"irrigation-backend/internal/models"
	"irrigation-backend/internal/storage"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Service struct {
	mail         *mailer.Dispatcher
	archive      storage.Store
	publicURL    string
	company      document.Company
	adminAddress string
	log          *zap.Logger
}

// NewService wires the quote workflow. archive must be a private store;
// archived documents are only served through the admin API.
func NewService(mail *mailer.Dispatcher, archive storage.Store, cfg *config.Config, log *zap.Logger) *Service {
	return &Service{
		mail:         mail,
		archive:      archive,
		publicURL:    strings.TrimRight(cfg.PublicURL, "/"),
		company:      CompanyFromConfig(cfg.Company),
		adminAddress: strings.TrimSpace(cfg.Mail.AdminAddress),
		log:          log.Named("quote"),
	}
}

func CompanyFromConfig(c config.CompanyConfig) document.Company {
	return document.Company{
		Name:    c.Name,
		Email:   c.Email,
		Phone:   c.Phone,
		Address: c.Address,
		Website: c.Website,
	}
}

// SubmitResult reports what happened after the quote was stored.
type SubmitResult struct {
	Quote         *models.Quote
	EmailSent     bool
	AdminNotified bool
}

// NewQuoteNumber returns QT-YYYYMMDD-XXXXXXXX for the given day.
func NewQuoteNumber(now time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.New().String(), "-", "")[:8])
	return fmt.Sprintf("QT-%s-%s", now.UTC().Format("20060102"), suffix)
}

// Submit stores a validated request as a pending quote and then notifies
// the customer and the sales inbox. The quote is committed before any email
// is attempted; a failed notification is reported, never rolled back.
func (s *Service) Submit(ctx context.Context, req SubmitRequest) (*SubmitResult, error) {
	q := req.toModel()
	q.QuoteNumber = NewQuoteNumber(time.Now())

	if err := database.DB.Create(q).Error; err != nil {
		return nil, apierr.Internal("Could not save quote request", err)
	}
	s.log.Info("quote submitted",
		zap.Uint("quote_id", q.ID),
		zap.String("quote_number", q.QuoteNumber),
		zap.String("project_type", q.ProjectType),
	)

	if err := analytics.Record(database.DB, models.EventQuoteSubmitted, "/api/quotes", models.Specs{
		"quote_number": models.StringSpec(q.QuoteNumber),
		"project_type": models.StringSpec(q.ProjectType),
	}); err != nil {
		s.log.Warn("quote analytics not recorded", zap.Error(err))
	}

	res := &SubmitResult{Quote: q}
	res.EmailSent = s.sendRendered(ctx, q, document.ConfirmationEmail, []string{q.CustomerEmail}, s.company.Email)
	if s.adminAddress != "" {
		res.AdminNotified = s.sendRendered(ctx, q, document.AdminNotification, []string{s.adminAddress}, q.CustomerEmail)
	}
	return res, nil
}

type renderFunc func(*models.Quote, document.Company) (document.Email, error)

func (s *Service) sendRendered(ctx context.Context, q *models.Quote, render renderFunc, to []string, replyTo string) bool {
	email, err := render(q, s.company)
	if err != nil {
		s.log.Error("email not rendered", zap.String("quote_number", q.QuoteNumber), zap.Error(err))
		return false
	}
	return s.mail.Send(ctx, mailer.Message{
		To:      to,
		ReplyTo: replyTo,
		Subject: email.Subject,
		HTML:    email.HTML,
		Text:    email.Text,
	})
}

// Find loads a quote with its assignee.
func Find(id uint) (*models.Quote, error) {
	var q models.Quote
	if err := database.DB.Preload("Assignee").First(&q, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apierr.NotFound("Quote not found")
		}
		return nil, apierr.Internal("Could not load quote", err)
	}
	return &q, nil
}

// UpdateResult carries the updated quote and any achievements the change
// earned its assignee.
type UpdateResult struct {
	Quote        *models.Quote
	Before       models.Quote
	Achievements []models.Achievement
}

// Update applies an admin change. Status is only checked for membership;
// any status may follow any other. A new subtotal (given, or derived from new
// items) recomputes VAT and total; clearing the items without a subtotal
// clears the totals. Moving to completed credits the assignee.
func (s *Service) Update(id uint, req UpdateRequest) (*UpdateResult, error) {
	q, err := Find(id)
	if err != nil {
		return nil, err
	}
	before := *q

	if err := req.check(); err != nil {
		return nil, err
	}

	if req.Status != nil {
		q.Status = *req.Status
	}
	if req.DeliveryMethod != nil {
		q.DeliveryMethod = *req.DeliveryMethod
	}
	if req.AdminNotes != nil {
		q.AdminNotes = strings.TrimSpace(*req.AdminNotes)
	}
	if req.Currency != nil {
		q.Currency = strings.ToUpper(strings.TrimSpace(*req.Currency))
	}
	if req.AssignedTo != nil {
		if *req.AssignedTo == 0 {
			q.AssignedTo = nil
		} else {
			var count int64
			if err := database.DB.Model(&models.User{}).Where("id = ?", *req.AssignedTo).Count(&count).Error; err != nil {
				return nil, apierr.Internal("Could not update quote", err)
			}
			if count == 0 {
				return nil, apierr.Fields("assigned_to", "must reference an existing user")
			}
			uid := *req.AssignedTo
			q.AssignedTo = &uid
		}
		q.Assignee = nil
	}
	if req.Items != nil {
		if err := checkProductRefs(*req.Items); err != nil {
			return nil, err
		}
		q.Items = datatypes.NewJSONType(normalizeItems(*req.Items))
	}

	switch {
	case req.Subtotal != nil:
		sub := *req.Subtotal
		applyTotals(q, &sub)
	case req.Items != nil && len(*req.Items) > 0:
		sum := itemsSubtotal(q.Items.Data())
		applyTotals(q, &sum)
	case req.Items != nil:
		// no priced lines left: back to "TBD"
		applyTotals(q, nil)
	}

	res := &UpdateResult{Before: before}
	err = database.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Assignee").Save(q).Error; err != nil {
			return err
		}
		if q.Status == models.QuoteStatusCompleted && before.Status != models.QuoteStatusCompleted && q.AssignedTo != nil {
			granted, err := analytics.AwardQuoteCompletion(tx, *q.AssignedTo, q.ID)
			if err != nil {
				return err
			}
			res.Achievements = granted
		}
		return nil
	})
	if err != nil {
		return nil, apierr.Internal("Could not update quote", err)
	}

	if res.Quote, err = Find(id); err != nil {
		return nil, err
	}
	return res, nil
}

// SendResult is the outcome of delivering a quote to its customer.
type SendResult struct {
	Quote       *models.Quote
	DocumentURL string
}

// Send renders the quote document, archives it, emails the quote to the
// customer and marks the quote sent. Nothing is marked when delivery fails.
func (s *Service) Send(ctx context.Context, id uint) (*SendResult, error) {
	q, err := Find(id)
	if err != nil {
		return nil, err
	}

	html, err := document.QuoteHTML(q, s.company)
	if err != nil {
		return nil, apierr.Internal("Could not render quote document", err)
	}

	if _, err := s.archive.Put(ctx, archiveObjectName(q), "text/html; charset=utf-8", bytes.NewReader([]byte(html)), int64(len(html))); err != nil {
		return nil, apierr.Internal("Could not archive quote document", err)
	}
	url := fmt.Sprintf("%s/api/admin/quotes/%d/archive", s.publicURL, q.ID)

	if !s.sendRendered(ctx, q, document.QuoteEmail, []string{q.CustomerEmail}, s.company.Email) {
		return nil, apierr.New(fiber.StatusBadGateway, "email_failed", "The quote email could not be delivered")
	}

	now := time.Now()
	if err := database.DB.Model(&models.Quote{}).Where("id = ?", q.ID).Updates(map[string]interface{}{
		"status":       models.QuoteStatusSent,
		"sent_at":      now,
		"document_url": url,
	}).Error; err != nil {
		return nil, apierr.Internal("Could not mark quote as sent", err)
	}
	s.log.Info("quote sent", zap.String("quote_number", q.QuoteNumber), zap.String("document_url", url))

	if q, err = Find(id); err != nil {
		return nil, err
	}
	return &SendResult{Quote: q, DocumentURL: url}, nil
}

// ArchivedDocument returns the quote document exactly as it was sent.
func (s *Service) ArchivedDocument(ctx context.Context, q *models.Quote) ([]byte, error) {
	if q.SentAt == nil {
		return nil, apierr.NotFound("Quote has not been sent yet")
	}
	rc, err := s.archive.Get(ctx, archiveObjectName(q))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, apierr.NotFound("Archived quote document not found")
		}
		return nil, apierr.Internal("Could not read archived quote document", err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, apierr.Internal("Could not read archived quote document", err)
	}
	return data, nil
}

func archiveObjectName(q *models.Quote) string {
	return fmt.Sprintf("quotes/%s.html", q.QuoteNumber)
}

func applyTotals(q *models.Quote, subtotal *float64) {
	t := document.ComputeTotals(subtotal)
	q.Subtotal = t.Subtotal
	q.VATAmount = t.VAT
	q.TotalAmount = t.Total
}

func itemsSubtotal(items []models.QuoteItem) float64 {
	var sum float64
	for _, it := range items {
		sum += it.LineTotal()
	}
	return sum
}

func checkProductRefs(items []models.QuoteItem) error {
	var ids []uint
	for _, it := range items {
		if it.ProductID != nil {
			ids = append(ids, *it.ProductID)
		}
	}
	if len(ids) == 0 {
		return nil
	}

	var found []uint
	if err := database.DB.Model(&models.Product{}).Where("id IN ?", ids).Pluck("id", &found).Error; err != nil {
		return apierr.Internal("Could not check products", err)
	}
	known := make(map[uint]bool, len(found))
	for _, id := range found {
		known[id] = true
	}
	for i, it := range items {
		if it.ProductID != nil && !known[*it.ProductID] {
			return apierr.Fields(fmt.Sprintf("items[%d].product_id", i), "must reference an existing product")
		}
	}
	return nil
}

// ProductsFor loads the catalog products referenced by the quote's items.
func ProductsFor(q *models.Quote) ([]models.Product, error) {
	var ids []uint
	for _, it := range q.Items.Data() {
		if it.ProductID != nil {
			ids = append(ids, *it.ProductID)
		}
	}
	if len(ids) == 0 {
		return nil, nil
	}
	var products []models.Product
	if err := database.DB.Where("id IN ?", ids).Find(&products).Error; err != nil {
		return nil, err
	}
	return products, nil
}
