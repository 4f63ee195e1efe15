package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	httpSwagger "github.com/swaggo/http-swagger"

	_ "ticketline/internal/api/docs"
	"ticketline/internal/app"
	"ticketline/internal/config"
	"ticketline/internal/handlers"
	"ticketline/internal/metrics"
	"ticketline/internal/middleware"
)

// HealthFunc reports backend status for /health.
type HealthFunc func(ctx context.Context) (status map[string]interface{}, healthy bool)

// Server представляет HTTP сервер API
type Server struct {
	router *gin.Engine
	config *config.Config
	app    *app.App
	http   *http.Server
}

// NewServer создает новый экземпляр сервера поверх подключенного App
func NewServer(a *app.App) *Server {
	gin.SetMode(a.Config.GinMode)

	router := NewRouter(a.Config, handlers.FromServices(a.Services), a.Recorder, a.HealthCheck)
	return &Server{
		router: router,
		config: a.Config,
		app:    a,
		http: &http.Server{
			Addr:              fmt.Sprintf(":%s", a.Config.Port),
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}
}

// NewRouter настраивает middleware и все роуты
func NewRouter(cfg *config.Config, h *handlers.Handlers, recorder *metrics.Recorder, health HealthFunc) *gin.Engine {
	router := gin.New()
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger())
	router.Use(middleware.Recovery())
	router.Use(middleware.CORS())

	router.GET("/health", healthCheck(health))
	router.GET("/metrics", gin.WrapH(recorder.Handler()))
	router.GET("/swagger/*any", gin.WrapH(httpSwagger.WrapHandler))

	api := router.Group("/api")
	api.Use(middleware.Timeout(cfg.RequestTimeout))
	api.Use(middleware.JWTAuth(cfg.JWTSecret))
	{
		events := api.Group("/events")
		{
			events.GET("", h.ListEvents)
			events.GET("/:id", h.GetEvent)
			events.POST("", h.CreateEvent)
		}

		reservations := api.Group("/reservations")
		{
			reservations.POST("", h.CreateReservation)
			reservations.GET("", h.ListReservations)
			reservations.GET("/:id", h.GetReservation)
			reservations.PATCH("/:id/confirm", h.ConfirmReservation)
			reservations.PATCH("/:id/cancel", h.CancelReservation)
		}

		api.DELETE("/cache", h.FlushCache)
	}

	// Хуки auth-провайдера
	internal := router.Group("/internal")
	internal.Use(middleware.HookSecret(cfg.AuthHookSecret))
	{
		internal.POST("/auth/users", h.OnAuthUserCreated)
	}

	return router
}

func healthCheck(health HealthFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		status, healthy := health(c.Request.Context())
		code := http.StatusOK
		state := "ok"
		if !healthy {
			code = http.StatusServiceUnavailable
			state = "degraded"
		}
		c.JSON(code, gin.H{
			"status":   state,
			"service":  "ticketline-api",
			"backends": status,
		})
	}
}

// Run запускает HTTP сервер и блокируется до его остановки
func (s *Server) Run() error {
	slog.Info("Starting server", "port", s.config.Port)
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown останавливает прием запросов и закрывает соединения
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.http.Shutdown(ctx)
	s.app.Close()
	return err
}

// GetRouter возвращает роутер для тестирования
func (s *Server) GetRouter() *gin.Engine {
	return s.router
}
