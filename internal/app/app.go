package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "signage/docs"
	"signage/internal/config"
	"signage/internal/handlers"
	"signage/internal/logs"
	"signage/internal/middleware"
	"signage/internal/pdf"
	"signage/internal/realtime"
	"signage/internal/repositories"
	"signage/internal/routes"
	"signage/internal/services"
	"signage/internal/utils"
)

const reportFont = "assets/fonts/DejaVuSans.ttf"

func Run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}
	if err := logs.Init(logs.Options{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		File:   cfg.Logging.File,
	}); err != nil {
		return err
	}
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx := context.Background()

	// === DB ===
	db, err := repositories.Open(ctx, cfg.Database.DSN, cfg.Database.MaxOpen)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			logs.Logger.WithError(err).Warn("[app] close database")
		}
	}()
	if cfg.Database.AutoMigrate {
		if err := repositories.Migrate(ctx, db); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
		logs.Logger.Info("[app] schema is up to date")
	}

	router := NewRouter(cfg, db)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logs.Logger.Infof("[app] %s %s listening on %s", cfg.App.Name, cfg.App.Version, srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return err
	case sig := <-stop:
		logs.Logger.Infof("[app] received %s, shutting down", sig)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// NewRouter wires repositories, services and handlers onto a gin engine.
func NewRouter(cfg *config.Config, db *sql.DB) *gin.Engine {
	// === Repos ===
	companyRepo := repositories.NewCompanyRepository(db)
	userRepo := repositories.NewUserRepository(db)
	deviceRepo := repositories.NewDeviceRepository(db)
	invitationRepo := repositories.NewInvitationRepository(db)
	auditRepo := repositories.NewAuditRepository(db)

	// === Services ===
	var sealer *utils.Sealer
	if cfg.Auth.EncryptionKey != "" {
		sealer = utils.NewSealer(cfg.Auth.EncryptionKey)
	}
	emailService := services.NewEmailService(cfg.Email, cfg.App.Name)
	auditService := services.NewAuditService(auditRepo)
	tokenService := services.NewTokenService(cfg.Auth.SecretKey, cfg.Auth.AccessTTL(), cfg.Auth.RefreshTTL())

	fontPath := ""
	if _, err := os.Stat(reportFont); err == nil {
		fontPath = reportFont
	}
	reports := pdf.NewReportGenerator(fontPath, cfg.App.Name)

	authService := services.NewAuthService(
		userRepo,
		invitationRepo,
		companyRepo,
		tokenService,
		services.NewGoogleProvider(cfg.Google),
		sealer,
		emailService,
		auditService,
	)
	companyService := services.NewCompanyService(companyRepo, userRepo, deviceRepo, reports, auditService, cfg.Limits)
	userService := services.NewUserService(userRepo, companyRepo, emailService, auditService)
	hub := realtime.NewHub(cfg.Server.CORSOrigins)
	deviceService := services.NewDeviceService(deviceRepo, companyRepo, emailService, auditService, hub, cfg.Limits)
	invitationService := services.NewInvitationService(
		invitationRepo,
		userRepo,
		companyRepo,
		emailService,
		auditService,
		cfg.Auth.InvitationTTL(),
		cfg.Frontend.URL,
	)

	// === Gin ===
	router := gin.New()
	router.Use(middleware.RequestID())
	router.Use(middleware.AccessLog())
	router.Use(middleware.Recovery())
	router.Use(middleware.CORS(cfg.Server.CORSOrigins))

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	routes.SetupRoutes(router, routes.Handlers{
		Auth:        handlers.NewAuthHandler(authService, cfg.Frontend.URL),
		Users:       handlers.NewUserHandler(userService),
		Companies:   handlers.NewCompanyHandler(companyService),
		Devices:     handlers.NewDeviceHandler(deviceService),
		Invitations: handlers.NewInvitationHandler(invitationService),
		Audit:       handlers.NewAuditHandler(auditService),
		Events:      handlers.NewEventsHandler(hub),
		Health:      handlers.NewHealthHandler(db, cfg.App.Name, cfg.App.Version, cfg.App.Env),
	}, authService)

	if dir := cfg.Frontend.StaticDir; dir != "" {
		serveFrontend(router, dir)
	}
	return router
}

// serveFrontend serves the built SPA: real files as-is, every other non-API
// path falls back to index.html.
func serveFrontend(r *gin.Engine, dir string) {
	index := filepath.Join(dir, "index.html")
	r.NoRoute(func(c *gin.Context) {
		if c.Request.Method != http.MethodGet {
			c.JSON(http.StatusNotFound, gin.H{"detail": "Not Found"})
			return
		}
		p := filepath.Join(dir, filepath.Clean("/"+c.Request.URL.Path))
		if st, err := os.Stat(p); err == nil && !st.IsDir() {
			c.File(p)
			return
		}
		c.File(index)
	})
}
