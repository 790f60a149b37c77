package routes

import (
	"github.com/gin-gonic/gin"

	"repurposer/internal/handlers"
	"repurposer/internal/metrics"
	"repurposer/internal/middleware"
	"repurposer/internal/services"
)

type Handlers struct {
	Auth     *handlers.AuthHandler
	Password *handlers.PasswordHandler
	Account  *handlers.AccountHandler
	Admin    *handlers.AdminHandler
	Generate *handlers.GenerateHandler
}

func SetupRoutes(r *gin.Engine, gateway *services.AccessGateway, h Handlers) *gin.Engine {
	// ---- public
	r.GET("/", handlers.Root)
	r.GET("/health", handlers.Health)
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	r.POST("/signup", h.Auth.Signup)
	r.POST("/signup/request-otp", h.Auth.RequestSignupOTP)
	r.POST("/login", h.Auth.Login)
	r.GET("/user/exists", h.Auth.UserExists)

	pw := r.Group("/password")
	{
		pw.POST("/request", h.Password.RequestOTP)
		pw.POST("/verify", h.Password.VerifyOTP)
		pw.POST("/reset", h.Password.Reset)
	}

	// ---- admin key only
	admin := r.Group("/admin", middleware.RequireAdminKey(gateway))
	{
		admin.GET("/users", h.Admin.ListUsers)
		admin.POST("/users/plan", h.Admin.SetPlan)
	}

	// ---- token (see middleware.AuthMiddleware for the guarded prefixes)
	r.Use(middleware.AuthMiddleware(gateway))

	r.POST("/generate", h.Generate.Generate)
	r.GET("/plan", h.Account.GetPlan)
	r.POST("/upgrade", middleware.RequireAdminKey(gateway), h.Admin.Upgrade)
	r.POST("/logout", h.Auth.Logout)

	account := r.Group("/account")
	{
		account.GET("", h.Account.GetAccount)
		account.POST("/update", h.Account.Update)
		account.POST("/delete", h.Account.Delete)
	}

	return r
}
