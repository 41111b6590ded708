package main

import (
	"log"
	"time"

	"courier_track_go/config"
	"courier_track_go/db"
	"courier_track_go/handlers"
	"courier_track_go/middleware"
	"courier_track_go/models"
	"courier_track_go/services"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize database
	if err := db.Initialize(cfg.DBPath, cfg.Environment); err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	// Run migrations
	if err := db.AutoMigrate(
		&models.User{},
		&models.Session{},
		&models.PasswordResetToken{},
		&models.Department{},
		&models.Vendor{},
		&models.Branch{},
		&models.Courier{},
		&models.ReceivedCourier{},
		&models.AuthorityLetterTemplate{},
		&models.AuthorityLetterField{},
		&models.FieldDropdownOption{},
		&models.AuditLog{},
		&models.EmailSettings{},
		&models.SamlSettings{},
		&models.BulkUploadReport{},
	); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	// Set up file storage (local or R2)
	services.InitializeStorage(cfg)

	// Create Echo instance
	e := echo.New()

	// Middleware
	e.Use(echomiddleware.RequestLogger())
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.CORSWithConfig(echomiddleware.CORSConfig{
		AllowOrigins: cfg.AllowedOrigins,
	}))

	// Make config available to handlers
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			c.Set("config", cfg)
			return next(c)
		}
	})

	// Public routes (no authentication required)
	e.POST("/api/auth/login", handlers.LoginHandler, middleware.LoginRateLimiter.Middleware())
	e.POST("/api/auth/register", handlers.RegisterHandler, middleware.LoginRateLimiter.Middleware())
	e.POST("/api/auth/forgot-password", handlers.ForgotPasswordHandler, middleware.PasswordResetRateLimiter.Middleware())
	e.POST("/api/auth/reset-password", handlers.ResetPasswordHandler, middleware.PasswordResetRateLimiter.Middleware())
	e.GET("/api/received-couriers/confirm", handlers.ConfirmReceivedCourierHandler, middleware.ConfirmationRateLimiter.Middleware())
	e.GET("/api/saml-settings/public", handlers.GetPublicSamlSettingsHandler)

	// Authenticated routes
	api := e.Group("/api")
	api.Use(middleware.RequireAuth())
	{
		api.POST("/auth/logout", handlers.LogoutHandler)
		api.GET("/me", handlers.MeHandler)
		api.PUT("/me/password", handlers.ChangePasswordHandler)
		api.POST("/me/profile-image", handlers.UploadProfileImageHandler)

		api.GET("/stats", handlers.DashboardStatsHandler)
		api.GET("/date-formats", handlers.DateFormatsHandler)

		// Outbound couriers
		api.GET("/couriers", handlers.ListCouriersHandler)
		api.POST("/couriers", handlers.CreateCourierHandler)
		api.GET("/couriers/export", handlers.ExportCouriersHandler)
		api.GET("/couriers/:id", handlers.GetCourierHandler)
		api.PUT("/couriers/:id", handlers.UpdateCourierHandler)
		api.PATCH("/couriers/:id/status", handlers.UpdateCourierStatusHandler)
		api.POST("/couriers/:id/restore", handlers.RestoreCourierHandler)
		api.DELETE("/couriers/:id", handlers.DeleteCourierHandler)
		api.POST("/couriers/:id/pod-copy", handlers.UploadPODCopyHandler)
		api.GET("/couriers/:id/pod-copy", handlers.DownloadPODCopyHandler)

		// Inbound couriers
		api.GET("/received-couriers", handlers.ListReceivedCouriersHandler)
		api.POST("/received-couriers", handlers.CreateReceivedCourierHandler)
		api.GET("/received-couriers/:id", handlers.GetReceivedCourierHandler)
		api.PUT("/received-couriers/:id", handlers.UpdateReceivedCourierHandler)
		api.POST("/received-couriers/:id/dispatch", handlers.DispatchReceivedCourierHandler)
		api.DELETE("/received-couriers/:id", handlers.DeleteReceivedCourierHandler)

		// Branches
		api.GET("/branches", handlers.ListBranchesHandler)
		api.GET("/branches/export", handlers.ExportBranchesHandler)
		api.GET("/branches/sample-csv", handlers.SampleBranchCSVHandler)
		api.GET("/branches/:id", handlers.GetBranchHandler)

		// Departments (read for all roles)
		api.GET("/departments", handlers.ListDepartmentsHandler)
		api.GET("/departments/:id", handlers.GetDepartmentHandler)

		// Vendors (read for all roles)
		api.GET("/vendors", handlers.ListVendorsHandler)
		api.GET("/vendors/:id", handlers.GetVendorHandler)

		// Templates and generation
		api.GET("/templates", handlers.ListTemplatesHandler)
		api.GET("/templates/:id", handlers.GetTemplateHandler)
		api.GET("/templates/:id/placeholders", handlers.TemplatePlaceholdersHandler)
		api.GET("/templates/:id/fields", handlers.ListTemplateFieldsHandler)
		api.GET("/templates/:id/sample-csv", handlers.SampleTemplateCSVHandler)
		api.POST("/templates/:id/preview", handlers.PreviewLetterHandler, middleware.GenerationRateLimiter.Middleware())
		api.POST("/templates/:id/generate", handlers.GenerateLetterHandler, middleware.GenerationRateLimiter.Middleware())
		api.POST("/templates/:id/bulk-generate", handlers.BulkGenerateHandler, middleware.GenerationRateLimiter.Middleware())
		api.POST("/templates/extract-word-content", handlers.ExtractWordContentHandler)
	}

	// Manager-and-above routes (write access to operational data)
	managers := api.Group("")
	managers.Use(middleware.RequireRole(models.RoleAdmin, models.RoleSubAdmin, models.RoleManager))
	{
		managers.POST("/branches", handlers.CreateBranchHandler)
		managers.PUT("/branches/:id", handlers.UpdateBranchHandler)
		managers.PATCH("/branches/:id/status", handlers.UpdateBranchStatusHandler)
		managers.DELETE("/branches/:id", handlers.DeleteBranchHandler)
		managers.POST("/branches/bulk-delete", handlers.BulkDeleteBranchesHandler)
		managers.POST("/branches/bulk-upload/validate", handlers.ValidateBranchUploadHandler)
		managers.POST("/branches/bulk-upload/commit", handlers.CommitBranchUploadHandler)
		managers.POST("/branches/bulk-upload", handlers.BulkUploadBranchesHandler)

		managers.POST("/templates", handlers.CreateTemplateHandler)
		managers.PUT("/templates/:id", handlers.UpdateTemplateHandler)
		managers.DELETE("/templates/:id", handlers.DeleteTemplateHandler)
		managers.POST("/templates/:id/word", handlers.UploadWordTemplateHandler)
		managers.DELETE("/templates/:id/word", handlers.RemoveWordTemplateHandler)
		managers.POST("/templates/:id/fields", handlers.CreateTemplateFieldHandler)
		managers.PUT("/templates/:id/fields/:fieldId", handlers.UpdateTemplateFieldHandler)
		managers.DELETE("/templates/:id/fields/:fieldId", handlers.DeleteTemplateFieldHandler)
		managers.PUT("/templates/:id/fields/reorder", handlers.ReorderTemplateFieldsHandler)

		managers.POST("/vendors", handlers.CreateVendorHandler)
		managers.PUT("/vendors/:id", handlers.UpdateVendorHandler)
		managers.DELETE("/vendors/:id", handlers.DeleteVendorHandler)
	}

	// Admin-only routes
	admin := api.Group("/admin")
	admin.Use(middleware.RequireRole(models.RoleAdmin, models.RoleSubAdmin))
	{
		admin.GET("/users", handlers.ListUsersHandler)
		admin.POST("/users", handlers.CreateUserHandler)
		admin.GET("/users/:id", handlers.GetUserHandler)
		admin.PUT("/users/:id", handlers.UpdateUserHandler)
		admin.DELETE("/users/:id", handlers.DeleteUserHandler)

		admin.POST("/departments", handlers.CreateDepartmentHandler)
		admin.PUT("/departments/:id", handlers.UpdateDepartmentHandler)
		admin.DELETE("/departments/:id", handlers.DeleteDepartmentHandler)

		admin.GET("/email-settings", handlers.GetEmailSettingsHandler)
		admin.PUT("/email-settings", handlers.UpdateEmailSettingsHandler)
		admin.GET("/saml-settings", handlers.GetSamlSettingsHandler)
		admin.PUT("/saml-settings", handlers.UpdateSamlSettingsHandler)

		admin.GET("/audit-logs", handlers.ListAuditLogsHandler)
		admin.GET("/audit-logs/export", handlers.ExportAuditLogsHandler)
		admin.GET("/audit-logs/:resourceType/:resourceId", handlers.ResourceAuditHistoryHandler)
	}

	// Start background cleanup jobs (runs every hour)
	go func() {
		ticker := time.NewTicker(1 * time.Hour)
		defer ticker.Stop()

		for range ticker.C {
			if err := services.CleanupExpiredSessions(db.DB); err != nil {
				log.Printf("Error cleaning up expired sessions: %v", err)
			}
			if err := services.CleanupExpiredTokens(db.DB); err != nil {
				log.Printf("Error cleaning up expired tokens: %v", err)
			}
			if err := services.CleanupExpiredReports(db.DB); err != nil {
				log.Printf("Error cleaning up expired bulk upload reports: %v", err)
			}
		}
	}()

	// Start server
	log.Printf("Server starting on port %s", cfg.ServerPort)
	if err := e.Start(":" + cfg.ServerPort); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
