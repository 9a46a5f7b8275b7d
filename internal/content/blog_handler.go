package content

import (
	"errors"
	"time"

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

const blogCachePrefix = "blog:"

type BlogPostResponse struct {
	ID          uint     `json:"id"`
	Title       string   `json:"title"`
	Slug        string   `json:"slug"`
	Excerpt     string   `json:"excerpt"`
	Content     string   `json:"content"`
	Author      string   `json:"author"`
	Category    string   `json:"category"`
	Tags        []string `json:"tags"`
	ImageURL    string   `json:"image_url"`
	Published   bool     `json:"published"`
	PublishedAt *string  `json:"published_at"`
	CreatedAt   string   `json:"created_at"`
	UpdatedAt   string   `json:"updated_at"`
}

func toBlogPostResponse(p *models.BlogPost) BlogPostResponse {
	tags := p.Tags.Data()
	if tags == nil {
		tags = []string{}
	}
	return BlogPostResponse{
		ID:          p.ID,
		Title:       p.Title,
		Slug:        p.Slug,
		Excerpt:     p.Excerpt,
		Content:     p.Content,
		Author:      p.Author,
		Category:    p.Category,
		Tags:        tags,
		ImageURL:    p.ImageURL,
		Published:   p.Published,
		PublishedAt: formatTime(p.PublishedAt),
		CreatedAt:   p.CreatedAt.Format(timeLayout),
		UpdatedAt:   p.UpdatedAt.Format(timeLayout),
	}
}

type CreateBlogPostRequest struct {
	Title     string   `json:"title" validate:"required,max=200"`
	Slug      string   `json:"slug" validate:"max=220"`
	Excerpt   string   `json:"excerpt" validate:"max=500"`
	Content   string   `json:"content" validate:"required"`
	Author    string   `json:"author" validate:"max=120"`
	Category  string   `json:"category" validate:"max=80"`
	Tags      []string `json:"tags" validate:"max=20"`
	ImageURL  string   `json:"image_url" validate:"max=500"`
	Published bool     `json:"published"`
}

type UpdateBlogPostRequest struct {
	Title     *string   `json:"title" validate:"omitempty,min=1,max=200"`
	Slug      *string   `json:"slug" validate:"omitempty,max=220"`
	Excerpt   *string   `json:"excerpt" validate:"omitempty,max=500"`
	Content   *string   `json:"content" validate:"omitempty,min=1"`
	Author    *string   `json:"author" validate:"omitempty,max=120"`
	Category  *string   `json:"category" validate:"omitempty,max=80"`
	Tags      *[]string `json:"tags"`
	ImageURL  *string   `json:"image_url" validate:"omitempty,max=500"`
	Published *bool     `json:"published"`
}

// GET /api/blog?category=water-management
func ListBlogPostsHandler(rc *cache.Cache) fiber.Handler {
	return func(c *fiber.Ctx) error {
		category := c.Query("category")
		key := blogCachePrefix + "list:" + category

		var resp []BlogPostResponse
		if rc.Get(c.UserContext(), key, &resp) {
			return c.JSON(resp)
		}

		dbq := database.DB.Where("published = ?", true)
		if category != "" {
			dbq = dbq.Where("category = ?", category)
		}
		var posts []models.BlogPost
		if err := dbq.Order("published_at DESC, id DESC").Find(&posts).Error; err != nil {
			return apierr.Internal("Could not list blog posts", err)
		}

		resp = make([]BlogPostResponse, 0, len(posts))
		for i := range posts {
			resp = append(resp, toBlogPostResponse(&posts[i]))
		}
		rc.Set(c.UserContext(), key, resp)
		return c.JSON(resp)
	}
}

// GET /api/blog/:slug
func GetBlogPostHandler(rc *cache.Cache) fiber.Handler {
	return func(c *fiber.Ctx) error {
		key := blogCachePrefix + "post:" + c.Params("slug")

		var resp BlogPostResponse
		if rc.Get(c.UserContext(), key, &resp) {
			return c.JSON(resp)
		}

		var post models.BlogPost
		err := database.DB.Where("slug = ? AND published = ?", c.Params("slug"), true).First(&post).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apierr.NotFound("Blog post not found")
			}
			return apierr.Internal("Could not load blog post", err)
		}

		resp = toBlogPostResponse(&post)
		rc.Set(c.UserContext(), key, resp)
		return c.JSON(resp)
	}
}

// GET /api/admin/blog
func AdminListBlogPostsHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var posts []models.BlogPost
		if err := database.DB.Order("created_at DESC, id DESC").Find(&posts).Error; err != nil {
			return apierr.Internal("Could not list blog posts", err)
		}
		resp := make([]BlogPostResponse, 0, len(posts))
		for i := range posts {
			resp = append(resp, toBlogPostResponse(&posts[i]))
		}
		return c.JSON(resp)
	}
}

// POST /api/admin/blog
func CreateBlogPostHandler(rc *cache.Cache, log *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := auth.CurrentActor(c)
		if err != nil {
			return err
		}

		var body CreateBlogPostRequest
		if err := validation.ParseBody(c, &body); err != nil {
			return err
		}
		if err := requireText("title", body.Title, "content", body.Content); err != nil {
			return err
		}

		base := slug.Make(body.Slug)
		if base == "" {
			base = slug.Make(body.Title)
		}
		s, err := slug.Unique(database.DB, &models.BlogPost{}, base, 0)
		if err != nil {
			return apierr.Internal("Could not create blog post", err)
		}

		author := trimPtr(&body.Author)
		if author == "" {
			author = actor.Name
		}
		post := models.BlogPost{
			Title:     trimPtr(&body.Title),
			Slug:      s,
			Excerpt:   trimPtr(&body.Excerpt),
			Content:   body.Content,
			Author:    author,
			Category:  trimPtr(&body.Category),
			Tags:      datatypes.NewJSONType(cleanTags(body.Tags)),
			ImageURL:  trimPtr(&body.ImageURL),
			Published: body.Published,
		}
		if post.Published {
			now := time.Now()
			post.PublishedAt = &now
		}
		if err := database.DB.Create(&post).Error; err != nil {
			return apierr.Internal("Could not create blog post", err)
		}

		rc.Invalidate(c.UserContext(), blogCachePrefix)
		resp := toBlogPostResponse(&post)
		audit.Record(log, audit.LogOptions{
			UserID:      actor.ID,
			UserName:    actor.Name,
			EntityType:  "blog_post",
			EntityID:    post.ID,
			Action:      models.AuditActionCreate,
			Description: "Blog post " + post.Title + " created",
			After:       resp,
		})
		return c.Status(fiber.StatusCreated).JSON(resp)
	}
}

// PUT /api/admin/blog/:id
//
// published_at is stamped the first time a post is published and kept when
// it is later unpublished and republished.
func UpdateBlogPostHandler(rc *cache.Cache, log *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := auth.CurrentActor(c)
		if err != nil {
			return err
		}

		var post models.BlogPost
		if err := loadByID(c, &post, "Blog post"); err != nil {
			return err
		}
		before := toBlogPostResponse(&post)

		var body UpdateBlogPostRequest
		if err := validation.ParseBody(c, &body); err != nil {
			return err
		}

		if body.Title != nil {
			post.Title = trimPtr(body.Title)
		}
		if body.Slug != nil {
			base := slug.Make(*body.Slug)
			if base == "" {
				base = slug.Make(post.Title)
			}
			s, err := slug.Unique(database.DB, &models.BlogPost{}, base, post.ID)
			if err != nil {
				return apierr.Internal("Could not update blog post", err)
			}
			post.Slug = s
		}
		if body.Excerpt != nil {
			post.Excerpt = trimPtr(body.Excerpt)
		}
		if body.Content != nil {
			post.Content = *body.Content
		}
		if body.Author != nil {
			post.Author = trimPtr(body.Author)
		}
		if body.Category != nil {
			post.Category = trimPtr(body.Category)
		}
		if body.Tags != nil {
			post.Tags = datatypes.NewJSONType(cleanTags(*body.Tags))
		}
		if body.ImageURL != nil {
			post.ImageURL = trimPtr(body.ImageURL)
		}
		if body.Published != nil {
			post.Published = *body.Published
			if post.Published && post.PublishedAt == nil {
				now := time.Now()
				post.PublishedAt = &now
			}
		}
		if err := requireText("title", post.Title, "content", post.Content); err != nil {
			return err
		}

		if err := database.DB.Save(&post).Error; err != nil {
			return apierr.Internal("Could not update blog post", err)
		}

		rc.Invalidate(c.UserContext(), blogCachePrefix)
		resp := toBlogPostResponse(&post)
		audit.Record(log, audit.LogOptions{
			UserID:      actor.ID,
			UserName:    actor.Name,
			EntityType:  "blog_post",
			EntityID:    post.ID,
			Action:      models.AuditActionUpdate,
			Description: "Blog post " + post.Title + " updated",
			Before:      before,
			After:       resp,
		})
		return c.JSON(resp)
	}
}
