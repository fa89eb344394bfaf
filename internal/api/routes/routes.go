package routes

import (
	"time"

	"social-graph-service/internal/api/handlers"
	"social-graph-service/internal/api/middleware"
	"social-graph-service/internal/repository"
	"social-graph-service/internal/service"
	"social-graph-service/internal/session"
	"social-graph-service/internal/store"
	"social-graph-service/internal/websocket"

	"github.com/IBM/sarama"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

type Router struct {
	engine              *gin.Engine
	wsHandler           *handlers.WebSocketHandler
	authHandler         *handlers.AuthHandler
	userHandler         *handlers.UserHandler
	searchHandler       *handlers.SearchHandler
	relationshipHandler *handlers.RelationshipHandler
	conversationHandler *handlers.ConversationHandler
	mediaHandler        *handlers.MediaHandler
	rateLimitMW         *middleware.RateLimitMiddleware
	authMW              *middleware.AuthMiddleware
}

func NewRouter(
	hub *websocket.Hub,
	st store.Store,
	blobs service.BlobStore,
	redisClient *redis.Client,
	producer sarama.SyncProducer,
	kafkaTopic string,
	sessions *session.Manager,
	presence *service.PresenceService,
	jwtSecret string,
	jwtExpire time.Duration,
) *Router {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()

	// Add middlewares
	engine.Use(gin.Recovery())
	engine.Use(middleware.CORS())
	engine.Use(middleware.LogApi())

	// Initialize repositories
	userRepo := repository.NewUserRepository(st)
	conversationRepo := repository.NewConversationRepository(st)
	messageRepo := repository.NewMessageRepository(st)

	// Initialize services
	mediaService := service.NewMediaService(blobs)
	relationshipService := service.NewRelationshipService(userRepo)
	conversationService := service.NewConversationService(conversationRepo, userRepo)
	chatService := service.NewChatService(messageRepo, conversationService, userRepo, mediaService, producer, kafkaTopic)
	searchService := service.NewSearchService(userRepo)
	userService := service.NewUserService(userRepo, mediaService)
	authService := service.NewAuthService(userRepo, jwtSecret, jwtExpire)

	wsServices := websocket.Services{
		Chat:          chatService,
		Conversations: conversationService,
		Relationships: relationshipService,
		Search:        searchService,
	}

	return &Router{
		engine:              engine,
		wsHandler:           handlers.NewWebSocketHandler(hub, authService, sessions, wsServices),
		authHandler:         handlers.NewAuthHandler(authService),
		userHandler:         handlers.NewUserHandler(userService),
		searchHandler:       handlers.NewSearchHandler(searchService),
		relationshipHandler: handlers.NewRelationshipHandler(relationshipService, presence),
		conversationHandler: handlers.NewConversationHandler(conversationService, chatService),
		mediaHandler:        handlers.NewMediaHandler(chatService),
		rateLimitMW:         middleware.NewRateLimitMiddleware(redisClient),
		authMW:              middleware.NewAuthMiddleware(jwtSecret),
	}
}

func (r *Router) SetupRoutes() {
	r.engine.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	api := r.engine.Group("/api/v1")

	// WebSocket endpoint; the handshake carries its own token
	api.GET("/ws", r.wsHandler.HandleWebSocket)

	// Authenticated routes
	auth := api.Group("/")
	auth.Use(r.authMW.RequireAuth())
	{
		// User routes
		users := auth.Group("/users")
		users.Use(r.rateLimitMW.RateLimit(100, time.Minute)) // 100 requests per minute
		{
			users.GET("/profile", r.userHandler.Me)
			users.PUT("/profile", r.userHandler.UpdateProfile)
			users.POST("/profile/picture", r.userHandler.UploadProfilePicture)
			users.GET("/search", r.searchHandler.Search)
			users.GET("/:id", r.userHandler.GetUser)
		}

		// Friendship routes
		friends := auth.Group("/friends")
		friends.Use(r.rateLimitMW.RateLimit(100, time.Minute)) // 100 requests per minute
		{
			friends.GET("", r.relationshipHandler.ListFriends)
			friends.GET("/online", r.relationshipHandler.OnlineFriends)
			friends.DELETE("/:id", r.relationshipHandler.RemoveFriend)
			friends.GET("/requests", r.relationshipHandler.ListRequests)
			friends.POST("/requests", r.relationshipHandler.SendRequest)
			friends.DELETE("/requests/:id", r.relationshipHandler.CancelRequest)
			friends.PUT("/requests/:id/accept", r.relationshipHandler.AcceptRequest)
			friends.PUT("/requests/:id/reject", r.relationshipHandler.RejectRequest)
		}

		// Relationship state lookup
		auth.GET("/relationships/:id", r.rateLimitMW.RateLimit(200, time.Minute), r.relationshipHandler.GetState)

		// Conversation routes
		conversations := auth.Group("/conversations")
		conversations.Use(r.rateLimitMW.RateLimit(200, time.Minute)) // 200 requests per minute
		{
			conversations.GET("", r.conversationHandler.List)
			conversations.GET("/with/:id", r.conversationHandler.Key)
			conversations.GET("/:key/messages", r.conversationHandler.Messages)
			conversations.POST("/:key/messages", r.conversationHandler.Send)
			conversations.POST("/:key/attachments", r.mediaHandler.AttachToMessage)
		}
	}

	// Public routes (no authentication required)
	public := api.Group("/")
	{
		authRoutes := public.Group("/auth")
		authRoutes.Use(r.rateLimitMW.RateLimitIP(50, time.Minute)) // 50 requests per minute per IP
		{
			authRoutes.POST("/register", r.authHandler.Register)
			authRoutes.POST("/login", r.authHandler.Login)
		}
	}
}

func (r *Router) GetEngine() *gin.Engine {
	return r.engine
}
