package catalog

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"irrigation-backend/internal/apierr"
	"irrigation-backend/internal/audit"
	"irrigation-backend/internal/auth"
	"irrigation-backend/internal/cache"
	"irrigation-backend/internal/database"
	"irrigation-backend/internal/models"
	"irrigation-backend/internal/slug"
	"irrigation-backend/internal/validation"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const cachePrefix = "products:"

type ProductResponse struct {
	ID             uint                   `json:"id"`
	Name           string                 `json:"name"`
	Slug           string                 `json:"slug"`
	Category       models.ProductCategory `json:"category"`
	Description    string                 `json:"description"`
	Price          *float64               `json:"price"`
	Currency       string                 `json:"currency"`
	Specifications models.Specs           `json:"specifications"`
	Features       []string               `json:"features"`
	Applications   []string               `json:"applications"`
	ImageURL       string                 `json:"image_url"`
	InStock        bool                   `json:"in_stock"`
	StockQuantity  int                    `json:"stock_quantity"`
	Featured       bool                   `json:"featured"`
	CreatedAt      string                 `json:"created_at"`
	UpdatedAt      string                 `json:"updated_at"`
}

func toProductResponse(p *models.Product) ProductResponse {
	specs := p.Specifications.Data()
	if specs == nil {
		specs = models.Specs{}
	}
	return ProductResponse{
		ID:             p.ID,
		Name:           p.Name,
		Slug:           p.Slug,
		Category:       p.Category,
		Description:    p.Description,
		Price:          p.Price,
		Currency:       p.Currency,
		Specifications: specs,
		Features:       nonNil(p.Features.Data()),
		Applications:   nonNil(p.Applications.Data()),
		ImageURL:       p.ImageURL,
		InStock:        p.InStock,
		StockQuantity:  p.StockQuantity,
		Featured:       p.Featured,
		CreatedAt:      p.CreatedAt.Format("2006-01-02 15:04:05"),
		UpdatedAt:      p.UpdatedAt.Format("2006-01-02 15:04:05"),
	}
}

type CreateProductRequest struct {
	Name           string                 `json:"name" validate:"required,max=150"`
	Slug           string                 `json:"slug" validate:"max=180"`
	Category       models.ProductCategory `json:"category" validate:"required"`
	Description    string                 `json:"description" validate:"max=20000"`
	Price          *float64               `json:"price" validate:"omitempty,gte=0"`
	Currency       string                 `json:"currency" validate:"omitempty,len=3"`
	Specifications models.Specs           `json:"specifications"`
	Features       []string               `json:"features" validate:"max=50"`
	Applications   []string               `json:"applications" validate:"max=50"`
	ImageURL       string                 `json:"image_url" validate:"max=500"`
	InStock        *bool                  `json:"in_stock"`
	StockQuantity  int                    `json:"stock_quantity" validate:"gte=0"`
	Featured       bool                   `json:"featured"`
}

type UpdateProductRequest struct {
	Name           *string                 `json:"name" validate:"omitempty,min=1,max=150"`
	Slug           *string                 `json:"slug" validate:"omitempty,max=180"`
	Category       *models.ProductCategory `json:"category"`
	Description    *string                 `json:"description" validate:"omitempty,max=20000"`
	Price          *float64                `json:"price" validate:"omitempty,gte=0"`
	ClearPrice     bool                    `json:"clear_price"`
	Currency       *string                 `json:"currency" validate:"omitempty,len=3"`
	Specifications *models.Specs           `json:"specifications"`
	Features       *[]string               `json:"features"`
	Applications   *[]string               `json:"applications"`
	ImageURL       *string                 `json:"image_url" validate:"omitempty,max=500"`
	InStock        *bool                   `json:"in_stock"`
	StockQuantity  *int                    `json:"stock_quantity" validate:"omitempty,gte=0"`
	Featured       *bool                   `json:"featured"`
}

func validCategory(c models.ProductCategory) bool {
	for _, known := range models.ProductCategories {
		if c == known {
			return true
		}
	}
	return false
}

func categoryError() error {
	names := make([]string, 0, len(models.ProductCategories))
	for _, c := range models.ProductCategories {
		names = append(names, string(c))
	}
	return apierr.Fields("category", "must be one of: "+strings.Join(names, ", "))
}

// GET /api/products?category=pumps&in_stock=true&featured=true
func ListProductsHandler(rc *cache.Cache) fiber.Handler {
	return func(c *fiber.Ctx) error {
		category := models.ProductCategory(c.Query("category"))
		if category != "" && !validCategory(category) {
			return categoryError()
		}
		inStock, err := optionalBool(c, "in_stock")
		if err != nil {
			return err
		}
		featured, err := optionalBool(c, "featured")
		if err != nil {
			return err
		}

		key := fmt.Sprintf("%slist:%s:%s:%s", cachePrefix, category, c.Query("in_stock"), c.Query("featured"))
		var resp []ProductResponse
		if rc.Get(c.UserContext(), key, &resp) {
			return c.JSON(resp)
		}

		dbq := database.DB.Model(&models.Product{})
		if category != "" {
			dbq = dbq.Where("category = ?", category)
		}
		if inStock != nil {
			dbq = dbq.Where("in_stock = ?", *inStock)
		}
		if featured != nil {
			dbq = dbq.Where("featured = ?", *featured)
		}

		var products []models.Product
		if err := dbq.Order("featured DESC, name ASC").Find(&products).Error; err != nil {
			return apierr.Internal("Could not list products", err)
		}

		resp = make([]ProductResponse, 0, len(products))
		for i := range products {
			resp = append(resp, toProductResponse(&products[i]))
		}
		rc.Set(c.UserContext(), key, resp)
		return c.JSON(resp)
	}
}

// GET /api/products/:id (numeric id or slug)
func GetProductHandler(rc *cache.Cache) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ref := c.Params("id")
		key := cachePrefix + "item:" + ref

		var resp ProductResponse
		if rc.Get(c.UserContext(), key, &resp) {
			return c.JSON(resp)
		}

		p, err := findProduct(ref)
		if err != nil {
			return err
		}
		resp = toProductResponse(p)
		rc.Set(c.UserContext(), key, resp)
		return c.JSON(resp)
	}
}

// GET /api/products/categories
func ListCategoriesHandler() fiber.Handler {
	type row struct {
		Category string
		Total    int64
	}
	return func(c *fiber.Ctx) error {
		var rows []row
		if err := database.DB.Model(&models.Product{}).
			Select("category, COUNT(*) AS total").
			Group("category").
			Scan(&rows).Error; err != nil {
			return apierr.Internal("Could not list categories", err)
		}
		counts := make(map[string]int64, len(rows))
		for _, r := range rows {
			counts[r.Category] = r.Total
		}

		out := make([]fiber.Map, 0, len(models.ProductCategories))
		for _, cat := range models.ProductCategories {
			out = append(out, fiber.Map{"category": cat, "products": counts[string(cat)]})
		}
		return c.JSON(out)
	}
}

// GET /api/admin/products
func AdminListProductsHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var products []models.Product
		if err := database.DB.Order("created_at DESC, id DESC").Find(&products).Error; err != nil {
			return apierr.Internal("Could not list products", err)
		}
		resp := make([]ProductResponse, 0, len(products))
		for i := range products {
			resp = append(resp, toProductResponse(&products[i]))
		}
		return c.JSON(resp)
	}
}

// POST /api/admin/products
func CreateProductHandler(rc *cache.Cache, log *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := auth.CurrentActor(c)
		if err != nil {
			return err
		}

		var body CreateProductRequest
		if err := validation.ParseBody(c, &body); err != nil {
			return err
		}
		body.Name = strings.TrimSpace(body.Name)
		if body.Name == "" {
			return apierr.Fields("name", "is required")
		}
		if !validCategory(body.Category) {
			return categoryError()
		}

		base := slug.Make(body.Slug)
		if base == "" {
			base = slug.Make(body.Name)
		}
		s, err := slug.Unique(database.DB, &models.Product{}, base, 0)
		if err != nil {
			return apierr.Internal("Could not create product", err)
		}

		currency := strings.ToUpper(strings.TrimSpace(body.Currency))
		if currency == "" {
			currency = models.DefaultCurrency
		}
		inStock := true
		if body.InStock != nil {
			inStock = *body.InStock
		}
		specs := body.Specifications
		if specs == nil {
			specs = models.Specs{}
		}

		p := models.Product{
			Name:           body.Name,
			Slug:           s,
			Category:       body.Category,
			Description:    strings.TrimSpace(body.Description),
			Price:          body.Price,
			Currency:       currency,
			Specifications: datatypes.NewJSONType(specs),
			Features:       datatypes.NewJSONType(cleanList(body.Features)),
			Applications:   datatypes.NewJSONType(cleanList(body.Applications)),
			ImageURL:       strings.TrimSpace(body.ImageURL),
			InStock:        inStock,
			StockQuantity:  body.StockQuantity,
			Featured:       body.Featured,
		}
		if err := database.DB.Create(&p).Error; err != nil {
			return apierr.Internal("Could not create product", err)
		}

		rc.Invalidate(c.UserContext(), cachePrefix)
		resp := toProductResponse(&p)
		audit.Record(log, audit.LogOptions{
			UserID:      actor.ID,
			UserName:    actor.Name,
			EntityType:  "product",
			EntityID:    p.ID,
			Action:      models.AuditActionCreate,
			Description: "Product " + p.Name + " created",
			After:       resp,
		})
		return c.Status(fiber.StatusCreated).JSON(resp)
	}
}

// PUT /api/admin/products/:id
func UpdateProductHandler(rc *cache.Cache, log *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := auth.CurrentActor(c)
		if err != nil {
			return err
		}

		var p models.Product
		if err := database.DB.First(&p, "id = ?", c.Params("id")).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apierr.NotFound("Product not found")
			}
			return apierr.Internal("Could not load product", err)
		}
		before := toProductResponse(&p)

		var body UpdateProductRequest
		if err := validation.ParseBody(c, &body); err != nil {
			return err
		}

		if body.Name != nil {
			name := strings.TrimSpace(*body.Name)
			if name == "" {
				return apierr.Fields("name", "must not be empty")
			}
			p.Name = name
		}
		if body.Slug != nil {
			base := slug.Make(*body.Slug)
			if base == "" {
				base = slug.Make(p.Name)
			}
			s, err := slug.Unique(database.DB, &models.Product{}, base, p.ID)
			if err != nil {
				return apierr.Internal("Could not update product", err)
			}
			p.Slug = s
		}
		if body.Category != nil {
			if !validCategory(*body.Category) {
				return categoryError()
			}
			p.Category = *body.Category
		}
		if body.Description != nil {
			p.Description = strings.TrimSpace(*body.Description)
		}
		if body.ClearPrice {
			p.Price = nil
		} else if body.Price != nil {
			price := *body.Price
			p.Price = &price
		}
		if body.Currency != nil {
			p.Currency = strings.ToUpper(strings.TrimSpace(*body.Currency))
		}
		if body.Specifications != nil {
			specs := *body.Specifications
			if specs == nil {
				specs = models.Specs{}
			}
			p.Specifications = datatypes.NewJSONType(specs)
		}
		if body.Features != nil {
			p.Features = datatypes.NewJSONType(cleanList(*body.Features))
		}
		if body.Applications != nil {
			p.Applications = datatypes.NewJSONType(cleanList(*body.Applications))
		}
		if body.ImageURL != nil {
			p.ImageURL = strings.TrimSpace(*body.ImageURL)
		}
		if body.InStock != nil {
			p.InStock = *body.InStock
		}
		if body.StockQuantity != nil {
			p.StockQuantity = *body.StockQuantity
		}
		if body.Featured != nil {
			p.Featured = *body.Featured
		}

		if err := database.DB.Save(&p).Error; err != nil {
			return apierr.Internal("Could not update product", err)
		}

		rc.Invalidate(c.UserContext(), cachePrefix)
		resp := toProductResponse(&p)
		audit.Record(log, audit.LogOptions{
			UserID:      actor.ID,
			UserName:    actor.Name,
			EntityType:  "product",
			EntityID:    p.ID,
			Action:      models.AuditActionUpdate,
			Description: "Product " + p.Name + " updated",
			Before:      before,
			After:       resp,
		})
		return c.JSON(resp)
	}
}

func findProduct(ref string) (*models.Product, error) {
	var p models.Product
	q := database.DB
	if id, err := strconv.ParseUint(ref, 10, 64); err == nil {
		q = q.Where("id = ?", id)
	} else {
		q = q.Where("slug = ?", ref)
	}
	if err := q.First(&p).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apierr.NotFound("Product not found")
		}
		return nil, apierr.Internal("Could not load product", err)
	}
	return &p, nil
}

func optionalBool(c *fiber.Ctx, key string) (*bool, error) {
	v := c.Query(key)
	if v == "" {
		return nil, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return nil, apierr.Fields(key, "must be true or false")
	}
	return &b, nil
}

func cleanList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func nonNil(in []string) []string {
	if in == nil {
		return []string{}
	}
	return in
}
