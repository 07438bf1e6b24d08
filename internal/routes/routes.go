package routes

import (
	"time"

	"github.com/gcforum/portal/internal/cache"
	"github.com/gcforum/portal/internal/config"
	"github.com/gcforum/portal/internal/database"
	"github.com/gcforum/portal/internal/handlers"
	"github.com/gcforum/portal/internal/middleware"
	"github.com/gcforum/portal/internal/services"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// Services bundles everything the router wires into handlers.
type Services struct {
	Auth         *services.AuthService
	Sessions     *services.SessionResolver
	Profiles     *services.ProfileResolver
	Content      *services.ContentService
	Events       *services.EventService
	Partners     *services.PartnerService
	Home         *services.HomeService
	Directory    *services.DirectoryService
	Applications *services.ApplicationService
	Admin        *services.AdminService
}

// NewServices builds the service graph over one backend and cache.
func NewServices(cfg *config.Config, backend *database.Backend, store cache.Store, mailer services.Mailer) *Services {
	auth := services.NewAuthService(cfg, backend, mailer)
	content := services.NewContentService(backend, cfg)
	events := services.NewEventService(backend, cfg)
	partners := services.NewPartnerService(backend)

	return &Services{
		Auth:         auth,
		Sessions:     services.NewSessionResolver(auth, cfg),
		Profiles:     services.NewProfileResolver(backend),
		Content:      content,
		Events:       events,
		Partners:     partners,
		Home:         services.NewHomeService(content, events, partners),
		Directory:    services.NewDirectoryService(backend, cfg),
		Applications: services.NewApplicationService(backend, cfg, store, auth, mailer),
		Admin:        services.NewAdminService(backend, cfg, store, auth, mailer),
	}
}

func SetupRouter(cfg *config.Config, backend *database.Backend, store cache.Store, svc *Services) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), middleware.RequestLogger())

	// CORS configuration
	corsConfig := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept"},
		ExposeHeaders:    []string{"Content-Length", "X-Cache"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(cfg.CORSOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.CORSOrigins
	} else {
		corsConfig.AllowOrigins = []string{cfg.AppURL}
	}
	router.Use(cors.New(corsConfig))

	healthHandler := handlers.NewHealthHandler(backend, cfg)
	router.GET("/health", healthHandler.Health)

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(svc.Auth, svc.Admin, cfg)
	contentHandler := handlers.NewContentHandler(svc.Content, svc.Events, svc.Partners, svc.Home)
	memberHandler := handlers.NewMemberHandler(svc.Directory)
	applicationHandler := handlers.NewApplicationHandler(svc.Applications)
	adminHandler := handlers.NewAdminHandler(svc.Admin, svc.Content, svc.Events, svc.Partners)

	// API routes
	api := router.Group("/api")
	api.Use(middleware.Authenticate(svc.Sessions, svc.Profiles))
	{
		// Auth routes (public)
		auth := api.Group("/auth")
		{
			auth.POST("/signin", authHandler.SignIn)
			auth.POST("/logout", authHandler.Logout)
			auth.POST("/magic-link", authHandler.MagicLink)
			auth.GET("/callback", authHandler.Callback)
			auth.POST("/accept-invite", authHandler.AcceptInvite)
		}

		// Public content
		api.GET("/resources", middleware.PageCache(store, cache.TagResources), contentHandler.ListResources)
		api.GET("/resources/:slug", middleware.PageCache(store, cache.TagResources), contentHandler.GetResource)
		api.GET("/categories", middleware.PageCache(store, cache.TagResources), contentHandler.ListCategories)
		api.GET("/events", middleware.PageCache(store, cache.TagEvents), contentHandler.ListEvents)
		api.GET("/events/:slug", middleware.PageCache(store, cache.TagEvents), contentHandler.GetEvent)
		api.GET("/partners", middleware.PageCache(store, cache.TagPartners), contentHandler.ListPartners)
		api.GET("/home", middleware.PageCache(store, cache.TagHome, cache.TagResources, cache.TagEvents, cache.TagPartners), contentHandler.Home)
		api.POST("/applications", applicationHandler.Submit)

		// Signed-in routes; pending members can still see and edit themselves
		me := api.Group("/me")
		me.Use(middleware.RequireAuth())
		{
			me.GET("", authHandler.GetCurrentUser)
			me.PUT("/profile", authHandler.UpdateProfile)
			me.POST("/password", authHandler.ChangePassword)
		}

		// Member directory
		members := api.Group("/members")
		members.Use(middleware.RequireMember())
		{
			members.GET("", middleware.PageCache(store, cache.TagMembers), memberHandler.ListMembers)
			members.GET("/:id", middleware.PageCache(store, cache.TagMembers), memberHandler.GetMember)
		}

		// Editor routes
		editor := api.Group("/admin")
		editor.Use(middleware.RequireEditor())
		{
			editor.GET("/articles", adminHandler.ListArticles)
			editor.POST("/articles", adminHandler.CreateArticle)
			editor.PUT("/articles/:id", adminHandler.UpdateArticle)
			editor.DELETE("/articles/:id", adminHandler.DeleteArticle)

			editor.GET("/videos", adminHandler.ListVideos)
			editor.POST("/videos", adminHandler.CreateVideo)
			editor.PUT("/videos/:id", adminHandler.UpdateVideo)
			editor.DELETE("/videos/:id", adminHandler.DeleteVideo)

			editor.GET("/events", adminHandler.ListEvents)
			editor.POST("/events", adminHandler.CreateEvent)
			editor.PUT("/events/:id", adminHandler.UpdateEvent)
			editor.PATCH("/events/:id/status", adminHandler.UpdateEventStatus)
			editor.DELETE("/events/:id", adminHandler.DeleteEvent)
		}

		// Admin routes
		admin := api.Group("/admin")
		admin.Use(middleware.RequireAdmin())
		{
			admin.GET("/stats", adminHandler.GetDashboardStats)

			admin.GET("/partners", adminHandler.ListPartners)
			admin.POST("/partners", adminHandler.CreatePartner)
			admin.PUT("/partners/order", adminHandler.ReorderPartners)
			admin.PUT("/partners/:id", adminHandler.UpdatePartner)
			admin.DELETE("/partners/:id", adminHandler.DeletePartner)

			admin.GET("/members", memberHandler.AdminListMembers)
			admin.GET("/members/:id", memberHandler.AdminGetMember)
			admin.PUT("/members/:id", adminHandler.UpdateMember)
			admin.PATCH("/members/:id/status", adminHandler.UpdateMemberStatus)
			admin.PATCH("/members/:id/role", adminHandler.UpdateMemberRole)
			admin.POST("/members/:id/reset-password", adminHandler.SendPasswordReset)

			admin.GET("/applications", middleware.PageCache(store, cache.TagApplications), applicationHandler.List)
			admin.POST("/applications/:id/review", applicationHandler.Review)
		}
	}

	return router
}
