package catalog

import (
	"net/http"
	"strconv"
	"testing"
	"time"

	"irrigation-backend/internal/auth"
	"irrigation-backend/internal/cache"
	"irrigation-backend/internal/models"
	"irrigation-backend/internal/testutil"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func setupCatalogApp(t *testing.T) (*fiber.App, string) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	cfg := testutil.Config()
	rc := cache.Disabled()
	log := zap.NewNop()

	app := testutil.NewApp()
	app.Get("/api/products", ListProductsHandler(rc))
	app.Get("/api/products/categories", ListCategoriesHandler())
	app.Get("/api/products/:id", GetProductHandler(rc))

	admin := app.Group("/api/admin", auth.JWTMiddleware(cfg), auth.RequireRole(models.RoleAdmin, models.RoleSuperAdmin))
	admin.Get("/products", AdminListProductsHandler())
	admin.Post("/products", CreateProductHandler(rc, log))
	admin.Put("/products/:id", UpdateProductHandler(rc, log))

	user := testutil.SeedUser(t, db, "Grace", "grace@example.com", models.RoleAdmin)
	return app, testutil.GenerateTestToken(user, time.Hour)
}

func createProduct(t *testing.T, app *fiber.App, token string, body map[string]interface{}) map[string]interface{} {
	t.Helper()
	resp := testutil.DoRequest(t, app, http.MethodPost, "/api/admin/products", body, token)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	return testutil.ParseResponse(t, resp)
}

func TestCreateAndFetchProduct(t *testing.T) {
	app, token := setupCatalogApp(t)

	created := createProduct(t, app, token, map[string]interface{}{
		"name":     "Solar Pump 2HP",
		"category": "pumps",
		"price":    85000,
		"specifications": map[string]interface{}{
			"power_hp":    2,
			"voltage":     "48V DC",
			"submersible": true,
			"outlets":     []string{"1 inch", "1.5 inch"},
		},
		"features": []string{" Brushless motor ", ""},
		"featured": true,
	})
	assert.Equal(t, "solar-pump-2hp", created["slug"])
	assert.Equal(t, "KES", created["currency"])
	assert.Equal(t, true, created["in_stock"])
	assert.Equal(t, []interface{}{"Brushless motor"}, created["features"])

	resp := testutil.DoRequest(t, app, http.MethodGet, "/api/products/solar-pump-2hp", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	got := testutil.ParseResponse(t, resp)
	specs := got["specifications"].(map[string]interface{})
	assert.Equal(t, float64(2), specs["power_hp"])
	assert.Equal(t, true, specs["submersible"])
	assert.Equal(t, []interface{}{"1 inch", "1.5 inch"}, specs["outlets"])

	resp = testutil.DoRequest(t, app, http.MethodGet, "/api/products/999", nil, "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestCreateProductRejectsInvalidInput(t *testing.T) {
	app, token := setupCatalogApp(t)

	resp := testutil.DoRequest(t, app, http.MethodPost, "/api/admin/products", map[string]interface{}{
		"name": "Mystery", "category": "tractors", "price": -5,
	}, token)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	body := testutil.ParseResponse(t, resp)
	assert.Equal(t, "validation_failed", body["code"])

	resp = testutil.DoRequest(t, app, http.MethodPost, "/api/admin/products", map[string]interface{}{
		"name": "Mystery", "category": "tractors",
	}, token)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	fields := testutil.ParseResponse(t, resp)["fields"].([]interface{})
	assert.Equal(t, "category", fields[0].(map[string]interface{})["field"])

	resp = testutil.DoRequest(t, app, http.MethodPost, "/api/admin/products", map[string]interface{}{
		"name": "Nested", "category": "pumps", "specifications": map[string]interface{}{"dims": map[string]int{"w": 1}},
	}, token)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = testutil.DoRequest(t, app, http.MethodPost, "/api/admin/products", map[string]interface{}{
		"name": "No token", "category": "pumps",
	}, "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestListProductsFilters(t *testing.T) {
	app, token := setupCatalogApp(t)
	createProduct(t, app, token, map[string]interface{}{"name": "Drip Kit", "category": "drip_irrigation", "featured": true})
	createProduct(t, app, token, map[string]interface{}{"name": "Rain Gun", "category": "sprinklers", "in_stock": false})
	createProduct(t, app, token, map[string]interface{}{"name": "Mini Sprinkler", "category": "sprinklers"})

	resp := testutil.DoRequest(t, app, http.MethodGet, "/api/products", nil, "")
	all := testutil.ParseList(t, resp)
	require.Len(t, all, 3)
	assert.Equal(t, "Drip Kit", all[0]["name"])

	resp = testutil.DoRequest(t, app, http.MethodGet, "/api/products?category=sprinklers&in_stock=true", nil, "")
	list := testutil.ParseList(t, resp)
	require.Len(t, list, 1)
	assert.Equal(t, "Mini Sprinkler", list[0]["name"])

	resp = testutil.DoRequest(t, app, http.MethodGet, "/api/products?featured=true", nil, "")
	assert.Len(t, testutil.ParseList(t, resp), 1)

	resp = testutil.DoRequest(t, app, http.MethodGet, "/api/products?in_stock=maybe", nil, "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = testutil.DoRequest(t, app, http.MethodGet, "/api/products/categories", nil, "")
	cats := testutil.ParseList(t, resp)
	require.Len(t, cats, len(models.ProductCategories))
	assert.Equal(t, "sprinklers", cats[1]["category"])
	assert.Equal(t, float64(2), cats[1]["products"])
}

func TestUpdateProduct(t *testing.T) {
	app, token := setupCatalogApp(t)
	createProduct(t, app, token, map[string]interface{}{"name": "Drip Kit", "category": "drip_irrigation", "price": 1000})
	other := createProduct(t, app, token, map[string]interface{}{"name": "Drip Kit Pro", "category": "drip_irrigation"})
	path := "/api/admin/products/" + formatID(other["id"])

	resp := testutil.DoRequest(t, app, http.MethodPut, path, map[string]interface{}{
		"slug": "drip-kit", "stock_quantity": 12, "in_stock": false,
	}, token)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := testutil.ParseResponse(t, resp)
	assert.Equal(t, "drip-kit-2", body["slug"])
	assert.Equal(t, float64(12), body["stock_quantity"])
	assert.Equal(t, false, body["in_stock"])
	assert.Equal(t, "Drip Kit Pro", body["name"])

	resp = testutil.DoRequest(t, app, http.MethodPut, path, map[string]interface{}{"stock_quantity": -1}, token)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = testutil.DoRequest(t, app, http.MethodPut, "/api/admin/products/404", map[string]interface{}{"name": "x"}, token)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func formatID(v interface{}) string {
	return strconv.Itoa(int(v.(float64)))
}
