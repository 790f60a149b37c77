package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"repurposer/internal/config"
	"repurposer/internal/handlers"
	"repurposer/internal/middleware"
	"repurposer/internal/repositories"
	"repurposer/internal/routes"
	"repurposer/internal/services"
)

// App is the wired service graph behind the HTTP router.
type App struct {
	Config   *config.Config
	Router   *gin.Engine
	Accounts services.AccountService

	generator services.GenerationService
}

// Options replaces collaborators that talk to the outside world. Zero values
// mean "build from config".
type Options struct {
	Emails    services.EmailService
	Generator services.GenerationService
	Now       services.Clock
}

func Run() {
	cfg := config.LoadConfig()
	configureLogging(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := Build(ctx, cfg, Options{})
	if err != nil {
		logrus.WithError(err).Fatal("[app] startup failed")
	}
	defer a.Close()

	if err := a.Serve(ctx); err != nil {
		logrus.WithError(err).Fatal("[app] server stopped")
	}
}

// Build wires repositories, services, handlers and routes.
func Build(ctx context.Context, cfg *config.Config, opts Options) (*App, error) {
	// === Repos ===
	repo, err := repositories.NewFileAccountRepository(cfg.Storage.UsersFile, cfg.Storage.LegacyFile)
	if err != nil {
		return nil, fmt.Errorf("account store: %w", err)
	}

	// === Services ===
	emails := opts.Emails
	if emails == nil {
		emails = services.NewEmailService(cfg.Email)
	}
	generator := opts.Generator
	if generator == nil {
		generator, err = services.NewGenerationService(ctx, cfg.Generation)
		if err != nil {
			return nil, fmt.Errorf("generation client: %w", err)
		}
	}

	quota := services.NewQuotaService(cfg.Quota.FreeLimit, cfg.Quota.Window, opts.Now)
	gateway := services.NewAccessGateway(services.NewEmailTokenVerifier(repo), quota, cfg.Admin.UpgradeKey)
	if cfg.Admin.UpgradeKey == "" {
		logrus.Warn("[app] ADMIN_UPGRADE_KEY not set, admin operations are disabled")
	}

	accounts := services.NewAccountService(
		repo,
		services.NewAuthService(),
		services.OTPRegistries{
			Signup: services.NewOTPService("signup", cfg.OTP.TTL, opts.Now),
			Reset:  services.NewOTPService("reset", cfg.OTP.TTL, opts.Now),
		},
		services.NewOTPThrottle(cfg.OTP.ResendPerMinute, cfg.OTP.ResendBurst, opts.Now),
		emails,
		services.NewPlanPolicy(opts.Now),
		gateway,
	)
	repurpose := services.NewRepurposeService(gateway, generator)

	// === Handlers ===
	h := routes.Handlers{
		Auth:     handlers.NewAuthHandler(accounts),
		Password: handlers.NewPasswordHandler(accounts),
		Account:  handlers.NewAccountHandler(accounts),
		Admin:    handlers.NewAdminHandler(accounts),
		Generate: handlers.NewGenerateHandler(repurpose),
	}

	// === Gin ===
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger())
	router.Use(middleware.CORS(cfg.CORS.AllowedOrigins))
	routes.SetupRoutes(router, gateway, h)

	return &App{Config: cfg, Router: router, Accounts: accounts, generator: generator}, nil
}

// Serve listens on the configured port until ctx is cancelled, then drains
// in-flight requests for up to the shutdown timeout.
func (a *App) Serve(ctx context.Context) error {
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", a.Config.Server.Port),
		Handler: a.Router,
	}

	errCh := make(chan error, 1)
	go func() {
		logrus.WithField("addr", srv.Addr).Info("[app] server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logrus.Info("[app] shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.Config.Server.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func (a *App) Close() {
	if a.generator == nil {
		return
	}
	if err := a.generator.Close(); err != nil {
		logrus.WithError(err).Warn("[app] closing generation client")
	}
}

func configureLogging(cfg *config.Config) {
	level, err := logrus.ParseLevel(cfg.Log.Level)
	if err != nil {
		logrus.WithField("level", cfg.Log.Level).Warn("[app] unknown log level, using info")
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)

	if cfg.Log.Format == "json" {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	if level >= logrus.DebugLevel {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
}
