package http

import (
	"context"
	"log/slog"
	"time"

	"github.com/geocoder89/bookstore/internal/auth"
	"github.com/geocoder89/bookstore/internal/config"
	"github.com/geocoder89/bookstore/internal/domain/user"
	"github.com/geocoder89/bookstore/internal/http/handlers"
	"github.com/geocoder89/bookstore/internal/http/middlewares"
	"github.com/geocoder89/bookstore/internal/notifications"
	"github.com/geocoder89/bookstore/internal/observability"
	"github.com/geocoder89/bookstore/internal/redisclient"
	"github.com/geocoder89/bookstore/internal/repo/postgres"
	"github.com/geocoder89/bookstore/internal/session"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

func NewRouter(
	log *slog.Logger,
	pool *pgxpool.Pool,
	rdb *redisclient.Client,
	prom *observability.Prom,
	reg *prometheus.Registry,
	cfg config.Config,
) *gin.Engine {
	if cfg.Env != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// middleware
	r.Use(gin.Recovery())
	r.Use(middlewares.RequestID())
	r.Use(middlewares.RequestLogger(log))
	r.Use(otelgin.Middleware("bookstore"))
	r.Use(Metrics(prom))
	r.Use(middlewares.SecurityHeaders())
	r.Use(middlewares.CORSMiddleware(cfg.CORSOrigins))
	r.Use(middlewares.RequireJSON())
	r.Use(middlewares.MaxBodyBytes(1 << 20))

	// health
	ping := func() error {
		if pool == nil {
			return nil
		}

		ctx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
		defer cancel()

		return pool.Ping(ctx)
	}

	healthHandler := handlers.NewHealthHandler(ping)
	r.GET("/healthz", healthHandler.Healthz)
	r.GET("/readyz", healthHandler.Readyz)

	if reg != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))
	}

	// one session-options value for the whole process
	opts := session.Options{
		CookieName: cfg.CookieName,
		TTL:        cfg.SessionTTL(),
		Secure:     cfg.Env == "prod",
	}

	// wire up repositories
	usersRepo := postgres.NewUsersRepo(pool, prom)
	sessionsRepo := postgres.NewSessionsRepo(pool, prom)
	booksRepo := postgres.NewBooksRepo(pool, prom)

	// outbound mail: SMTP when configured, log output otherwise, and a
	// circuit breaker in front either way
	var notifier notifications.Notifier

	if cfg.SMTPHost != "" {
		notifier = notifications.NewSMTPNotifier(notifications.SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUser,
			Password: cfg.SMTPPass,
			From:     cfg.SMTPFrom,
			TokenTTL: cfg.ResetTokenTTL(),
		})
	} else {
		notifier = notifications.NewLogNotifier()
	}

	notifier = notifications.NewProtectedNotifier(notifier, notifications.ProtectedNotifierConfig{})

	authService := auth.NewService(usersRepo, sessionsRepo, notifier, log, cfg)

	// handlers and gates
	authHandler := handlers.NewAuthHandler(authService, opts, prom)
	booksHandler := handlers.NewBooksHandler(booksRepo)
	authMW := middlewares.NewAuthMiddleware(authService, opts.CookieName)
	limiter := middlewares.NewRateLimiter(rdb, 10, time.Minute)

	api := r.Group("/api/v1")

	users := api.Group("/users")
	users.POST("/signup", limiter.Limit("signup"), authHandler.SignUp)
	users.POST("/login", limiter.Limit("login"), authHandler.Login)
	users.GET("/logout", authHandler.Logout)
	users.GET("/me", authHandler.Me)
	users.POST("/forgotPassword", limiter.Limit("forgot"), authHandler.ForgotPassword)
	users.PATCH("/resetPassword/:token", authHandler.ResetPassword)
	users.PATCH("/updateMyPassword", authMW.RequireSession(), authHandler.UpdateMyPassword)

	books := api.Group("/books")
	books.GET("", booksHandler.ListBooks)
	books.GET("/:id", booksHandler.GetBookByID)
	books.POST("", authMW.RequireSession(), authMW.RequireRole(user.RoleAdmin), booksHandler.CreateBook)
	books.PATCH("/:id", authMW.RequireSession(), authMW.RequireRole(user.RoleAdmin), booksHandler.UpdateBook)
	books.DELETE("/:id", authMW.RequireSession(), authMW.RequireRole(user.RoleAdmin), booksHandler.DeleteBook)

	return r
}
