package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"irrigation-backend/internal/analytics"
	"irrigation-backend/internal/apierr"
	"irrigation-backend/internal/audit"
	"irrigation-backend/internal/auth"
	"irrigation-backend/internal/cache"
	"irrigation-backend/internal/catalog"
	"irrigation-backend/internal/config"
	"irrigation-backend/internal/contact"
	"irrigation-backend/internal/content"
	"irrigation-backend/internal/database"
	"irrigation-backend/internal/logger"
	"irrigation-backend/internal/mailer"
	"irrigation-backend/internal/middleware"
	"irrigation-backend/internal/models"
	"irrigation-backend/internal/quote"
	"irrigation-backend/internal/storage"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	log, err := logger.New(cfg.LogLevel, cfg.IsDevelopment())
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	for _, w := range cfg.Warnings() {
		log.Warn(w)
	}

	if err := database.Init(cfg, log); err != nil {
		log.Fatal("database init failed", zap.Error(err))
	}

	ctx := context.Background()
	rc := cache.New(ctx, cfg.Redis, log)
	store := storage.New(ctx, cfg, log)
	archive := storage.NewArchive(ctx, cfg, log)

	var transport mailer.Transport
	if cfg.Mail.APIKey != "" {
		transport = mailer.NewResendTransport(cfg.Mail.APIKey, &http.Client{Timeout: cfg.Mail.Timeout})
	}
	dispatcher := mailer.New(mailer.Config{
		APIKey:  cfg.Mail.APIKey,
		From:    cfg.Mail.From,
		Timeout: cfg.Mail.Timeout,
	}, transport, log)

	quotes := quote.NewService(dispatcher, archive, cfg, log)
	notifier := contact.NewNotifier(dispatcher, cfg, log)

	app := fiber.New(fiber.Config{
		AppName:      "irrigation-backend",
		ErrorHandler: apierr.Handler(log),
		BodyLimit:    12 * 1024 * 1024,
	})

	app.Use(recover.New())
	app.Use(middleware.RequestID())
	app.Use(middleware.Logger(log))
	app.Use(cors.New(cors.Config{
		AllowOrigins: strings.Join(cfg.CORSOriginList(), ","),
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, X-Request-ID",
		AllowMethods: "GET,POST,PUT,OPTIONS",
	}))
	app.Static("/uploads", cfg.UploadDir)

	// Public form submissions are throttled per client IP.
	formLimit := limiter.New(limiter.Config{
		Max:        10,
		Expiration: time.Minute,
		LimitReached: func(c *fiber.Ctx) error {
			return apierr.New(fiber.StatusTooManyRequests, "rate_limited", "Too many requests, please try again shortly")
		},
	})
	eventLimit := limiter.New(limiter.Config{Max: 120, Expiration: time.Minute})

	api := app.Group("/api")
	api.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	// Auth
	api.Post("/auth/register-super-admin", formLimit, auth.RegisterSuperAdminHandler(cfg))
	api.Post("/auth/login", formLimit, auth.LoginHandler(cfg))

	// Public site
	api.Get("/products", catalog.ListProductsHandler(rc))
	api.Get("/products/categories", catalog.ListCategoriesHandler())
	api.Get("/products/:id", catalog.GetProductHandler(rc))
	api.Get("/projects", content.ListProjectsHandler())
	api.Get("/blog", content.ListBlogPostsHandler(rc))
	api.Get("/blog/:slug", content.GetBlogPostHandler(rc))
	api.Get("/team", content.ListTeamHandler())
	api.Get("/success-stories", content.ListSuccessStoriesHandler())
	api.Post("/quotes", formLimit, quote.SubmitQuoteHandler(quotes))
	api.Post("/contacts", formLimit, contact.SubmitContactHandler(notifier))
	api.Post("/analytics/events", eventLimit, analytics.TrackEventHandler())

	protected := api.Group("", auth.JWTMiddleware(cfg))
	protected.Get("/auth/me", auth.MeHandler())

	admin := protected.Group("/admin", auth.RequireRole(models.RoleAdmin, models.RoleSuperAdmin))

	admin.Get("/quotes", quote.ListQuotesHandler())
	admin.Get("/quotes/:id", quote.GetQuoteHandler())
	admin.Put("/quotes/:id", quote.UpdateQuoteHandler(quotes))
	admin.Post("/quotes/:id/send", quote.SendQuoteHandler(quotes))
	admin.Get("/quotes/:id/document", quote.QuoteDocumentHandler(quotes))
	admin.Get("/quotes/:id/archive", quote.ArchivedDocumentHandler(quotes))
	admin.Get("/quotes/:id/boq", quote.BOQDocumentHandler(quotes))
	admin.Get("/quotes/:id/boq.xlsx", quote.BOQWorkbookHandler(quotes))

	admin.Get("/products", catalog.AdminListProductsHandler())
	admin.Post("/products", catalog.CreateProductHandler(rc, log))
	admin.Put("/products/:id", catalog.UpdateProductHandler(rc, log))

	admin.Get("/projects", content.AdminListProjectsHandler())
	admin.Post("/projects", content.CreateProjectHandler(log))
	admin.Put("/projects/:id", content.UpdateProjectHandler(log))

	admin.Get("/blog", content.AdminListBlogPostsHandler())
	admin.Post("/blog", content.CreateBlogPostHandler(rc, log))
	admin.Put("/blog/:id", content.UpdateBlogPostHandler(rc, log))

	admin.Get("/team", content.AdminListTeamHandler())
	admin.Post("/team", content.CreateTeamMemberHandler(log))
	admin.Put("/team/:id", content.UpdateTeamMemberHandler(log))

	admin.Get("/success-stories", content.AdminListSuccessStoriesHandler())
	admin.Post("/success-stories", content.CreateSuccessStoryHandler(log))
	admin.Put("/success-stories/:id", content.UpdateSuccessStoryHandler(log))

	admin.Get("/contacts", contact.ListContactsHandler())
	admin.Put("/contacts/:id", contact.UpdateContactHandler(log))

	admin.Get("/analytics/summary", analytics.SummaryHandler())
	admin.Get("/achievements", analytics.ListAchievementsHandler())
	admin.Get("/leaderboard", analytics.LeaderboardHandler())
	admin.Get("/audit-logs", audit.ListAuditLogsHandler())
	admin.Post("/uploads", storage.UploadHandler(store))

	// User management
	superAdmin := admin.Group("/users", auth.RequireRole(models.RoleSuperAdmin))
	superAdmin.Get("", auth.ListUsersHandler())
	superAdmin.Post("", auth.CreateUserHandler())

	go func() {
		log.Info("server listening", zap.String("port", cfg.HTTPPort), zap.String("env", cfg.AppEnv))
		if err := app.Listen(":" + cfg.HTTPPort); err != nil {
			log.Fatal("server stopped", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down")
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		log.Error("server shutdown failed", zap.Error(err))
	}
	if err := rc.Close(); err != nil {
		log.Warn("cache close failed", zap.Error(err))
	}
	if err := database.Close(); err != nil {
		log.Warn("database close failed", zap.Error(err))
	}
}
