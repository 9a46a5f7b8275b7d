package quote

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"irrigation-backend/internal/auth"
	"irrigation-backend/internal/mailer"
	"irrigation-backend/internal/models"
	"irrigation-backend/internal/storage"
	"irrigation-backend/internal/testutil"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type fakeTransport struct {
	mu   sync.Mutex
	sent []mailer.Message
	err  error
}

func (f *fakeTransport) Send(_ context.Context, msg mailer.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, msg)
	return f.err
}

func (f *fakeTransport) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

type quoteEnv struct {
	db         *gorm.DB
	app        *fiber.App
	transport  *fakeTransport
	archiveDir string
	admin      *models.User
	token      string
}

// setupQuoteEnv builds the quote routes. apiKey "" puts the mailer in
// dry-run mode.
func setupQuoteEnv(t *testing.T, apiKey string, transportErr error) *quoteEnv {
	t.Helper()
	db := testutil.SetupTestDB(t)
	cfg := testutil.Config()
	cfg.Mail.APIKey = apiKey

	transport := &fakeTransport{err: transportErr}
	dispatcher := mailer.New(mailer.Config{APIKey: apiKey, From: cfg.Mail.From, Timeout: time.Second}, transport, zap.NewNop())
	archiveDir := t.TempDir()
	svc := NewService(dispatcher, storage.NewLocalStore(archiveDir, ""), cfg, zap.NewNop())

	app := testutil.NewApp()
	app.Post("/api/quotes", SubmitQuoteHandler(svc))
	admin := app.Group("/api/admin", auth.JWTMiddleware(cfg), auth.RequireRole(models.RoleAdmin, models.RoleSuperAdmin))
	admin.Get("/quotes", ListQuotesHandler())
	admin.Get("/quotes/:id", GetQuoteHandler())
	admin.Put("/quotes/:id", UpdateQuoteHandler(svc))
	admin.Post("/quotes/:id/send", SendQuoteHandler(svc))
	admin.Get("/quotes/:id/document", QuoteDocumentHandler(svc))
	admin.Get("/quotes/:id/archive", ArchivedDocumentHandler(svc))
	admin.Get("/quotes/:id/boq", BOQDocumentHandler(svc))
	admin.Get("/quotes/:id/boq.xlsx", BOQWorkbookHandler(svc))

	user := testutil.SeedUser(t, db, "Grace", "grace@example.com", models.RoleAdmin)
	return &quoteEnv{
		db:         db,
		app:        app,
		transport:  transport,
		archiveDir: archiveDir,
		admin:      user,
		token:      testutil.GenerateTestToken(user, time.Hour),
	}
}

func validSubmission() map[string]interface{} {
	return map[string]interface{}{
		"customer_name":    "Jane Wanjiku",
		"customer_email":   "jane@example.com",
		"customer_phone":   "+254712345678",
		"project_type":     "drip_irrigation",
		"area_size":        2.5,
		"crop_type":        "Tomatoes",
		"location":         "Nakuru",
		"water_source":     "borehole",
		"distance_to_farm": 0.5,
	}
}

func submit(t *testing.T, env *quoteEnv) map[string]interface{} {
	t.Helper()
	resp := testutil.DoRequest(t, env.app, http.MethodPost, "/api/quotes", validSubmission(), "")
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	return testutil.ParseResponse(t, resp)
}

func TestSubmitQuotePersistsPendingQuote(t *testing.T) {
	env := setupQuoteEnv(t, "", nil)

	body := submit(t, env)
	assert.Equal(t, "pending", body["status"])
	assert.Equal(t, true, body["email_sent"])
	number, _ := body["quote_number"].(string)
	assert.Regexp(t, `^QT-\d{8}-[0-9A-F]{8}$`, number)

	var q models.Quote
	require.NoError(t, env.db.First(&q, "quote_number = ?", number).Error)
	assert.Equal(t, models.QuoteStatusPending, q.Status)
	assert.Equal(t, "KES", q.Currency)
	assert.Equal(t, "Jane Wanjiku", q.CustomerName)
	assert.Equal(t, "jane@example.com", q.CustomerEmail)
	assert.Equal(t, "+254712345678", q.CustomerPhone)
	assert.Equal(t, 2.5, q.AreaSize)
	assert.Equal(t, "acres", q.AreaUnit)
	assert.Equal(t, 0.5, q.DistanceToFarm)
	assert.Nil(t, q.Subtotal)

	// dry run: nothing reaches the transport
	assert.Zero(t, env.transport.calls())

	var events int64
	env.db.Model(&models.AnalyticsEvent{}).Where("event_type = ?", models.EventQuoteSubmitted).Count(&events)
	assert.Equal(t, int64(1), events)
}

func TestSubmitQuoteValidation(t *testing.T) {
	env := setupQuoteEnv(t, "", nil)

	payload := validSubmission()
	delete(payload, "customer_name")
	payload["customer_phone"] = "123"
	payload["customer_email"] = "not-an-email"

	resp := testutil.DoRequest(t, env.app, http.MethodPost, "/api/quotes", payload, "")
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	body := testutil.ParseResponse(t, resp)
	assert.Equal(t, "validation_failed", body["code"])

	fields := map[string]bool{}
	for _, f := range body["fields"].([]interface{}) {
		fields[f.(map[string]interface{})["field"].(string)] = true
	}
	assert.True(t, fields["customer_name"])
	assert.True(t, fields["customer_phone"])
	assert.True(t, fields["customer_email"])

	var count int64
	env.db.Model(&models.Quote{}).Count(&count)
	assert.Zero(t, count)
	assert.Zero(t, env.transport.calls())
}

func TestSubmitQuoteWrongTypeIsFieldError(t *testing.T) {
	env := setupQuoteEnv(t, "", nil)
	payload := validSubmission()
	payload["area_size"] = "two"

	resp := testutil.DoRequest(t, env.app, http.MethodPost, "/api/quotes", payload, "")
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	body := testutil.ParseResponse(t, resp)
	assert.Equal(t, "validation_failed", body["code"])
	fields := body["fields"].([]interface{})
	require.Len(t, fields, 1)
	assert.Equal(t, "area_size", fields[0].(map[string]interface{})["field"])
	assert.Equal(t, "has the wrong type", fields[0].(map[string]interface{})["message"])

	var count int64
	env.db.Model(&models.Quote{}).Count(&count)
	assert.Zero(t, count)
}

func TestSubmitQuoteAcceptsCamelCaseKeys(t *testing.T) {
	env := setupQuoteEnv(t, "", nil)

	resp := testutil.DoRequest(t, env.app, http.MethodPost, "/api/quotes", map[string]interface{}{
		"customerName":   "Jane Wanjiku",
		"customerEmail":  "jane@example.com",
		"customerPhone":  "+254712345678",
		"projectType":    "drip_irrigation",
		"areaSize":       2.5,
		"location":       "Nakuru",
		"waterSource":    "borehole",
		"distanceToFarm": 3,
	}, "")
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var q models.Quote
	require.NoError(t, env.db.First(&q).Error)
	assert.Equal(t, "Jane Wanjiku", q.CustomerName)
	assert.Equal(t, float64(3), q.DistanceToFarm)
}

func TestSubmitQuoteEmptyCustomerName(t *testing.T) {
	env := setupQuoteEnv(t, "", nil)
	payload := validSubmission()
	payload["customer_name"] = "   "

	resp := testutil.DoRequest(t, env.app, http.MethodPost, "/api/quotes", payload, "")
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	fields := testutil.ParseResponse(t, resp)["fields"].([]interface{})
	assert.Equal(t, "customer_name", fields[0].(map[string]interface{})["field"])

	var count int64
	env.db.Model(&models.Quote{}).Count(&count)
	assert.Zero(t, count)
}

func TestSubmitQuoteAcceptsZeroDistance(t *testing.T) {
	env := setupQuoteEnv(t, "", nil)
	payload := validSubmission()
	payload["distance_to_farm"] = 0

	resp := testutil.DoRequest(t, env.app, http.MethodPost, "/api/quotes", payload, "")
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
}

func TestSubmitQuoteNotificationFailureKeepsQuote(t *testing.T) {
	env := setupQuoteEnv(t, "re_test_key", errors.New("provider down"))

	body := submit(t, env)
	assert.Equal(t, false, body["email_sent"])

	var count int64
	env.db.Model(&models.Quote{}).Count(&count)
	assert.Equal(t, int64(1), count)

	// customer confirmation plus the sales notification
	require.Equal(t, 2, env.transport.calls())
	assert.Equal(t, []string{"jane@example.com"}, env.transport.sent[0].To)
	assert.Contains(t, env.transport.sent[0].Subject, "We received your quote request")
	assert.Equal(t, []string{"sales@example.com"}, env.transport.sent[1].To)
	assert.Equal(t, "jane@example.com", env.transport.sent[1].ReplyTo)
}

func TestUpdateQuoteTotalsAssignmentAndAchievements(t *testing.T) {
	env := setupQuoteEnv(t, "", nil)
	id := int(submit(t, env)["id"].(float64))
	path := "/api/admin/quotes/" + strconv.Itoa(id)

	resp := testutil.DoRequest(t, env.app, http.MethodPut, path, map[string]interface{}{
		"subtotal":    100000,
		"assigned_to": env.admin.ID,
		"status":      "completed",
	}, env.token)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := testutil.ParseResponse(t, resp)
	assert.Equal(t, float64(100000), body["subtotal"])
	assert.Equal(t, float64(16000), body["vat_amount"])
	assert.Equal(t, float64(116000), body["total_amount"])
	assert.Equal(t, "completed", body["status"])
	assert.Equal(t, "Grace", body["assignee"].(map[string]interface{})["name"])
	assert.Len(t, body["achievements"], 2)

	var logs []models.AuditLog
	require.NoError(t, env.db.Find(&logs).Error)
	require.Len(t, logs, 1)
	assert.Equal(t, "quote", logs[0].EntityType)
	assert.Contains(t, logs[0].BeforeData, `"status":"pending"`)
	assert.Contains(t, logs[0].AfterData, `"status":"completed"`)

	// any status may follow any other
	resp = testutil.DoRequest(t, env.app, http.MethodPut, path, map[string]interface{}{"status": "pending"}, env.token)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "pending", testutil.ParseResponse(t, resp)["status"])
}

func TestUpdateQuoteItemsDeriveSubtotal(t *testing.T) {
	env := setupQuoteEnv(t, "", nil)
	id := int(submit(t, env)["id"].(float64))

	resp := testutil.DoRequest(t, env.app, http.MethodPut, "/api/admin/quotes/"+strconv.Itoa(id), map[string]interface{}{
		"items": []map[string]interface{}{
			{"description": "16mm drip line", "quantity": 1000, "unit": "m", "unit_price": 50},
			{"description": "Screen filter", "quantity": 2, "unit_price": 25000},
		},
	}, env.token)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := testutil.ParseResponse(t, resp)
	assert.Equal(t, float64(100000), body["subtotal"])
	assert.Equal(t, float64(116000), body["total_amount"])
	items := body["items"].([]interface{})
	require.Len(t, items, 2)
	assert.Equal(t, "pcs", items[1].(map[string]interface{})["unit"])
}

func TestUpdateQuoteClearingItemsClearsTotals(t *testing.T) {
	env := setupQuoteEnv(t, "", nil)
	path := "/api/admin/quotes/" + strconv.Itoa(int(submit(t, env)["id"].(float64)))

	resp := testutil.DoRequest(t, env.app, http.MethodPut, path, map[string]interface{}{
		"items": []map[string]interface{}{{"description": "Solar pump", "quantity": 1, "unit_price": 50000}},
	}, env.token)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(58000), testutil.ParseResponse(t, resp)["total_amount"])

	resp = testutil.DoRequest(t, env.app, http.MethodPut, path, map[string]interface{}{"items": []interface{}{}}, env.token)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := testutil.ParseResponse(t, resp)
	assert.Empty(t, body["items"])
	assert.Nil(t, body["subtotal"])
	assert.Nil(t, body["vat_amount"])
	assert.Nil(t, body["total_amount"])

	resp = testutil.DoRequest(t, env.app, http.MethodGet, path+"/document", nil, env.token)
	html, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(html), "TBD")
}

func TestUpdateQuoteRejectsBadInput(t *testing.T) {
	env := setupQuoteEnv(t, "", nil)
	id := int(submit(t, env)["id"].(float64))
	path := "/api/admin/quotes/" + strconv.Itoa(id)

	tests := []struct {
		name  string
		body  map[string]interface{}
		field string
	}{
		{"unknown status", map[string]interface{}{"status": "archived"}, "status"},
		{"missing assignee", map[string]interface{}{"assigned_to": 999}, "assigned_to"},
		{"negative subtotal", map[string]interface{}{"subtotal": -1}, "subtotal"},
		{"bad item", map[string]interface{}{"items": []map[string]interface{}{{"description": "", "quantity": 0}}}, "items[0].description"},
		{"unknown product", map[string]interface{}{"items": []map[string]interface{}{{"description": "x", "quantity": 1, "product_id": 77}}}, "items[0].product_id"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := testutil.DoRequest(t, env.app, http.MethodPut, path, tt.body, env.token)
			require.Equal(t, http.StatusBadRequest, resp.StatusCode)
			body := testutil.ParseResponse(t, resp)
			fields := body["fields"].([]interface{})
			assert.Equal(t, tt.field, fields[0].(map[string]interface{})["field"])
		})
	}

	var q models.Quote
	require.NoError(t, env.db.First(&q, id).Error)
	assert.Equal(t, models.QuoteStatusPending, q.Status)
	assert.Nil(t, q.AssignedTo)
}

func TestSendQuote(t *testing.T) {
	env := setupQuoteEnv(t, "re_test_key", nil)
	created := submit(t, env)
	id := int(created["id"].(float64))
	number := created["quote_number"].(string)

	resp := testutil.DoRequest(t, env.app, http.MethodPost, "/api/admin/quotes/"+strconv.Itoa(id)+"/send", nil, env.token)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := testutil.ParseResponse(t, resp)
	archivePath := "/api/admin/quotes/" + strconv.Itoa(id) + "/archive"
	assert.Equal(t, "http://localhost:8080"+archivePath, body["document_url"])

	quote := body["quote"].(map[string]interface{})
	assert.Equal(t, "sent", quote["status"])
	assert.NotNil(t, quote["sent_at"])

	archived, err := os.ReadFile(filepath.Join(env.archiveDir, "quotes", number+".html"))
	require.NoError(t, err)
	assert.Contains(t, string(archived), number)

	resp = testutil.DoRequest(t, env.app, http.MethodGet, archivePath, nil, env.token)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/html")
	served, _ := io.ReadAll(resp.Body)
	assert.Equal(t, string(archived), string(served))

	resp = testutil.DoRequest(t, env.app, http.MethodGet, archivePath, nil, "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	// confirmation + admin notice at submit time, then the quote itself
	require.Equal(t, 3, env.transport.calls())
	last := env.transport.sent[2]
	assert.Equal(t, []string{"jane@example.com"}, last.To)
	assert.True(t, strings.HasPrefix(last.Subject, "Your irrigation quote "+number))
}

func TestArchivedDocumentBeforeSend(t *testing.T) {
	env := setupQuoteEnv(t, "", nil)
	id := int(submit(t, env)["id"].(float64))

	resp := testutil.DoRequest(t, env.app, http.MethodGet, "/api/admin/quotes/"+strconv.Itoa(id)+"/archive", nil, env.token)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestSendQuoteDeliveryFailureLeavesStatus(t *testing.T) {
	env := setupQuoteEnv(t, "re_test_key", errors.New("provider down"))
	id := int(submit(t, env)["id"].(float64))

	resp := testutil.DoRequest(t, env.app, http.MethodPost, "/api/admin/quotes/"+strconv.Itoa(id)+"/send", nil, env.token)
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)

	var q models.Quote
	require.NoError(t, env.db.First(&q, id).Error)
	assert.Equal(t, models.QuoteStatusPending, q.Status)
	assert.Nil(t, q.SentAt)
}

func TestQuoteDocuments(t *testing.T) {
	env := setupQuoteEnv(t, "", nil)
	created := submit(t, env)
	id := strconv.Itoa(int(created["id"].(float64)))

	resp := testutil.DoRequest(t, env.app, http.MethodGet, "/api/admin/quotes/"+id+"/document", nil, env.token)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/html")
	html, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(html), created["quote_number"].(string))
	assert.Contains(t, string(html), "TBD")

	resp = testutil.DoRequest(t, env.app, http.MethodGet, "/api/admin/quotes/"+id+"/boq", nil, env.token)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = testutil.DoRequest(t, env.app, http.MethodGet, "/api/admin/quotes/"+id+"/boq.xlsx", nil, env.token)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "BOQ_")
	data, _ := io.ReadAll(resp.Body)
	assert.True(t, len(data) > 0)

	resp = testutil.DoRequest(t, env.app, http.MethodGet, "/api/admin/quotes/9999/document", nil, env.token)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestListQuotesFilters(t *testing.T) {
	env := setupQuoteEnv(t, "", nil)
	first := int(submit(t, env)["id"].(float64))
	submit(t, env)

	resp := testutil.DoRequest(t, env.app, http.MethodPut, "/api/admin/quotes/"+strconv.Itoa(first), map[string]interface{}{
		"status": "in_progress", "assigned_to": env.admin.ID,
	}, env.token)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = testutil.DoRequest(t, env.app, http.MethodGet, "/api/admin/quotes", nil, env.token)
	assert.Len(t, testutil.ParseList(t, resp), 2)

	resp = testutil.DoRequest(t, env.app, http.MethodGet, "/api/admin/quotes?status=in_progress", nil, env.token)
	list := testutil.ParseList(t, resp)
	require.Len(t, list, 1)
	assert.Equal(t, float64(first), list[0]["id"])

	resp = testutil.DoRequest(t, env.app, http.MethodGet, "/api/admin/quotes?assigned_to="+strconv.Itoa(int(env.admin.ID)), nil, env.token)
	assert.Len(t, testutil.ParseList(t, resp), 1)

	resp = testutil.DoRequest(t, env.app, http.MethodGet, "/api/admin/quotes?status=bogus", nil, env.token)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = testutil.DoRequest(t, env.app, http.MethodGet, "/api/admin/quotes", nil, "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestNewQuoteNumber(t *testing.T) {
	day := time.Date(2026, 3, 10, 23, 0, 0, 0, time.UTC)
	a, b := NewQuoteNumber(day), NewQuoteNumber(day)
	assert.True(t, strings.HasPrefix(a, "QT-20260310-"))
	assert.NotEqual(t, a, b)
}
