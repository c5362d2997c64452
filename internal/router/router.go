package router

import (
	"time"

	"comparte/config"
	"comparte/internal/handler"
	"comparte/internal/middleware"
	"comparte/internal/repository"
	"comparte/internal/service"
	"comparte/internal/ws"
	"comparte/pkg/cloudinary"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

func Setup(cfg *config.Config, db *gorm.DB, cloud cloudinary.Client) *gin.Engine {
	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	// Skip gin.Logger() to reduce log noise; use gin.Default() if you need request logging
	r.Use(middleware.RateLimit(middleware.NewInMemoryRateLimiter(100, 60*time.Second)))

	// Repositories
	userRepo := repository.NewUserRepository(db)
	donationRepo := repository.NewDonationRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	chatRepo := repository.NewChatRepository(db)

	userHub := ws.NewHub()
	chatHub := ws.NewChatHub()

	// Services
	authSvc := service.NewAuthService(cfg, userRepo)
	notifSvc := service.NewNotificationService(notificationRepo, userHub)
	requestSvc := service.NewRequestService(donationRepo, userRepo, notifSvc)
	chatSvc := service.NewChatService(chatRepo, donationRepo, userRepo, notifSvc, chatHub, userHub)

	// Handlers
	authHandler := handler.NewAuthHandler(authSvc)
	googleOAuthHandler := handler.NewGoogleOAuthHandler(cfg, authSvc)
	userHandler := handler.NewUserHandler(userRepo)
	donationHandler := handler.NewDonationHandler(cfg, donationRepo)
	requestHandler := handler.NewRequestHandler(requestSvc)
	notificationHandler := handler.NewNotificationHandler(notifSvc, chatSvc)
	chatHandler := handler.NewChatHandler(cfg, chatSvc)
	uploadHandler := handler.NewUploadHandler(cloud)

	authMw := middleware.AuthRequired(&cfg.JWT)

	api := r.Group("/api/v1")
	{
		authGroup := api.Group("/auth")
		{
			authGroup.POST("/register", authHandler.Register)
			authGroup.POST("/login", authHandler.Login)
			authGroup.POST("/refresh", authHandler.Refresh)
			authGroup.GET("/google", googleOAuthHandler.Redirect)
			authGroup.GET("/google/callback", googleOAuthHandler.Callback)
			authGroup.POST("/google/token", googleOAuthHandler.Token)
		}

		api.GET("/users/:id", authMw, userHandler.GetProfile)

		me := api.Group("/me")
		me.Use(authMw)
		{
			me.GET("/profile", userHandler.GetMe)
			me.PATCH("/profile", userHandler.UpdateMe)
			me.GET("/donations", donationHandler.ListMine)
			me.GET("/notifications", notificationHandler.ListMine)
			me.GET("/chats", chatHandler.ListMine)
			me.POST("/upload/donation", uploadHandler.UploadDonationImage)
			me.POST("/upload/profile", uploadHandler.UploadProfilePhoto)
		}

		donations := api.Group("/donations")
		{
			donations.GET("", authMw, donationHandler.List)
			donations.GET("/nearby", authMw, donationHandler.Nearby)
			donations.GET("/:id", authMw, donationHandler.Get)
			donations.POST("", authMw, donationHandler.Create)
			donations.PUT("/:id", authMw, donationHandler.Update)
			donations.DELETE("/:id", authMw, donationHandler.Delete)
		}

		api.POST("/requests", authMw, requestHandler.Submit)

		api.GET("/notifications/:user_id", authMw, notificationHandler.ListForUser)
		api.PUT("/notifications/:id/read", authMw, notificationHandler.MarkRead)
		api.POST("/notifications/:id/accept", authMw, notificationHandler.Accept)
		api.POST("/notifications/:id/reject", authMw, notificationHandler.Reject)

		chats := api.Group("/chats")
		chats.Use(authMw)
		{
			chats.GET("/config", chatHandler.Config)
			chats.GET("/:chat_id/messages", chatHandler.GetMessages)
			chats.POST("/:chat_id/messages", chatHandler.Send)
			chats.PUT("/:chat_id/seen", chatHandler.Seen)
		}
	}

	r.GET("/ws/chat", handler.UpgradeChatWS(&cfg.JWT, chatHub, chatSvc))
	r.GET("/ws/notifications", handler.UpgradeNotifyWS(&cfg.JWT, userHub))

	return r
}
