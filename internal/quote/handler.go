package quote

import (
	"fmt"
	"strconv"

	"irrigation-backend/internal/apierr"
	"irrigation-backend/internal/audit"
	"irrigation-backend/internal/auth"
	"irrigation-backend/internal/database"
	"irrigation-backend/internal/document"
	"irrigation-backend/internal/models"
	"irrigation-backend/internal/validation"

	"github.com/gofiber/fiber/v2"
)

// POST /api/quotes
func SubmitQuoteHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body SubmitRequest
		if err := validation.Decode(c, &body); err != nil {
			return err
		}
		body.Normalize()
		if err := validation.Struct(&body); err != nil {
			return err
		}

		res, err := svc.Submit(c.UserContext(), body)
		if err != nil {
			return err
		}

		return c.Status(fiber.StatusCreated).JSON(fiber.Map{
			"id":           res.Quote.ID,
			"quote_number": res.Quote.QuoteNumber,
			"status":       res.Quote.Status,
			"email_sent":   res.EmailSent,
			"message":      "Quote request received. We will get back to you shortly.",
		})
	}
}

// GET /api/admin/quotes?status=pending&assigned_to=3
func ListQuotesHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		dbq := database.DB.Model(&models.Quote{}).Preload("Assignee")

		if s := c.Query("status"); s != "" {
			status := models.QuoteStatus(s)
			if !status.Valid() {
				return apierr.Fields("status", "must be one of: pending, in_progress, completed, cancelled, sent")
			}
			dbq = dbq.Where("status = ?", status)
		}
		if a := c.Query("assigned_to"); a != "" {
			uid, err := strconv.ParseUint(a, 10, 64)
			if err != nil {
				return apierr.Fields("assigned_to", "must be a user id")
			}
			dbq = dbq.Where("assigned_to = ?", uid)
		}

		var quotes []models.Quote
		if err := dbq.Order("created_at DESC, id DESC").Find(&quotes).Error; err != nil {
			return apierr.Internal("Could not list quotes", err)
		}

		resp := make([]QuoteResponse, 0, len(quotes))
		for i := range quotes {
			resp = append(resp, toResponse(&quotes[i]))
		}
		return c.JSON(resp)
	}
}

// GET /api/admin/quotes/:id
func GetQuoteHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := paramID(c)
		if err != nil {
			return err
		}
		q, err := Find(id)
		if err != nil {
			return err
		}
		return c.JSON(toResponse(q))
	}
}

// PUT /api/admin/quotes/:id
func UpdateQuoteHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := paramID(c)
		if err != nil {
			return err
		}
		actor, err := auth.CurrentActor(c)
		if err != nil {
			return err
		}

		var body UpdateRequest
		if err := validation.ParseBody(c, &body); err != nil {
			return err
		}

		res, err := svc.Update(id, body)
		if err != nil {
			return err
		}

		audit.Record(svc.log, audit.LogOptions{
			UserID:      actor.ID,
			UserName:    actor.Name,
			EntityType:  "quote",
			EntityID:    res.Quote.ID,
			Action:      models.AuditActionUpdate,
			Description: fmt.Sprintf("Quote %s updated", res.Quote.QuoteNumber),
			Before:      auditSnapshot(&res.Before),
			After:       auditSnapshot(res.Quote),
		})

		return c.JSON(UpdateResponse{
			QuoteResponse: toResponse(res.Quote),
			Achievements:  res.Achievements,
		})
	}
}

// POST /api/admin/quotes/:id/send
func SendQuoteHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := paramID(c)
		if err != nil {
			return err
		}
		actor, err := auth.CurrentActor(c)
		if err != nil {
			return err
		}

		res, err := svc.Send(c.UserContext(), id)
		if err != nil {
			return err
		}

		audit.Record(svc.log, audit.LogOptions{
			UserID:      actor.ID,
			UserName:    actor.Name,
			EntityType:  "quote",
			EntityID:    res.Quote.ID,
			Action:      models.AuditActionSend,
			Description: fmt.Sprintf("Quote %s sent to %s", res.Quote.QuoteNumber, res.Quote.CustomerEmail),
			After:       auditSnapshot(res.Quote),
		})

		return c.JSON(fiber.Map{
			"quote":        toResponse(res.Quote),
			"document_url": res.DocumentURL,
		})
	}
}

// GET /api/admin/quotes/:id/document
func QuoteDocumentHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		q, err := quoteFromParam(c)
		if err != nil {
			return err
		}
		html, err := document.QuoteHTML(q, svc.company)
		if err != nil {
			return apierr.Internal("Could not render quote document", err)
		}
		c.Type("html", "utf-8")
		return c.SendString(html)
	}
}

// GET /api/admin/quotes/:id/archive
func ArchivedDocumentHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		q, err := quoteFromParam(c)
		if err != nil {
			return err
		}
		data, err := svc.ArchivedDocument(c.UserContext(), q)
		if err != nil {
			return err
		}
		c.Type("html", "utf-8")
		return c.Send(data)
	}
}

// GET /api/admin/quotes/:id/boq
func BOQDocumentHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		q, err := quoteFromParam(c)
		if err != nil {
			return err
		}
		products, err := ProductsFor(q)
		if err != nil {
			return apierr.Internal("Could not load products", err)
		}
		html, err := document.BOQHTML(q, products, svc.company)
		if err != nil {
			return apierr.Internal("Could not render bill of quantities", err)
		}
		c.Type("html", "utf-8")
		return c.SendString(html)
	}
}

// GET /api/admin/quotes/:id/boq.xlsx
func BOQWorkbookHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		q, err := quoteFromParam(c)
		if err != nil {
			return err
		}
		products, err := ProductsFor(q)
		if err != nil {
			return apierr.Internal("Could not load products", err)
		}
		data, filename, err := document.BOQWorkbook(q, products, svc.company)
		if err != nil {
			return apierr.Internal("Could not build spreadsheet", err)
		}
		c.Set(fiber.HeaderContentType, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", filename))
		return c.Send(data)
	}
}

func quoteFromParam(c *fiber.Ctx) (*models.Quote, error) {
	id, err := paramID(c)
	if err != nil {
		return nil, err
	}
	return Find(id)
}

func paramID(c *fiber.Ctx) (uint, error) {
	id, err := strconv.ParseUint(c.Params("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, apierr.BadRequest("Invalid quote id")
	}
	return uint(id), nil
}
