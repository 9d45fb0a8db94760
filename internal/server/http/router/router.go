package router

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/polkiloo/snackbar/internal/domain/model"
	"github.com/polkiloo/snackbar/internal/server/http/handlers"
	"github.com/polkiloo/snackbar/internal/server/http/middleware"
)

// Params lists router dependencies.
type Params struct {
	fx.In

	Facade handlers.SnackBarFacade
	Health handlers.HealthChecker
	Logger *zap.Logger
}

// Setup configures gin router with handlers and middleware.
func Setup(p Params) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()

	engine.Use(gin.Recovery())
	engine.Use(middleware.RequestLogger(p.Logger.Named("http")))
	engine.Use(middleware.DecompressRequest())
	engine.Use(middleware.CompressResponse())

	authHandler := handlers.NewAuthHandler(p.Facade)
	customerHandler := handlers.NewCustomerHandler(p.Facade)
	pendingHandler := handlers.NewPendingHandler(p.Facade)
	orderHandler := handlers.NewOrderHandler(p.Facade)
	sessionHandler := handlers.NewSessionHandler(p.Facade)
	healthHandler := handlers.NewHealthHandler(p.Health)

	engine.GET("/healthz", healthHandler.Check)

	api := engine.Group("/api")
	api.Use(middleware.Idempotency())

	api.POST("/staff/login", authHandler.Login)
	api.GET("/shop/status", customerHandler.ShopStatus)
	api.POST("/pending/table", customerHandler.SubmitTable)
	api.POST("/pending/kiosk", customerHandler.SubmitKiosk)
	api.GET("/pending/:origin/:id/status", customerHandler.Status)

	staff := api.Group("")
	staff.Use(middleware.AuthRequired(p.Facade))

	staff.GET("/pending/:origin", pendingHandler.List)
	staff.GET("/pending/:origin/:id", pendingHandler.Get)
	staff.POST("/pending/:origin/:id/accept", pendingHandler.Accept)
	staff.POST("/pending/:origin/:id/reject", pendingHandler.Reject)

	staff.GET("/orders", orderHandler.List)
	staff.GET("/orders/:id", orderHandler.Get)
	staff.POST("/orders/:id/status", orderHandler.UpdateStatus)
	staff.POST("/orders/:id/settle", orderHandler.Settle)
	staff.POST("/orders/:id/tendered", orderHandler.CorrectTendered)

	staff.POST("/sessions", sessionHandler.Start)
	staff.GET("/sessions/current", sessionHandler.Current)
	staff.POST("/sessions/current/pause", sessionHandler.Pause)
	staff.POST("/sessions/current/resume", sessionHandler.Resume)
	staff.POST("/sessions/current/close", sessionHandler.Close)
	staff.POST("/sessions/current/withdrawals", sessionHandler.Withdraw)
	staff.POST("/sessions/current/deposits", sessionHandler.Deposit)
	staff.GET("/sessions/:id/reconciliation", sessionHandler.Reconciliation)
	staff.GET("/sessions/:id/movements", sessionHandler.Movements)

	manager := staff.Group("")
	manager.Use(middleware.RequireRole(string(model.RoleManager)))
	manager.POST("/staff", authHandler.Register)
	manager.GET("/dashboard/differences", sessionHandler.Dashboard)

	return engine
}
