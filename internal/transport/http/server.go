package http

import (
	stdhttp "net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/hashchat-engine/internal/attachment"
	"github.com/vovakirdan/hashchat-engine/internal/config"
	"github.com/vovakirdan/hashchat-engine/internal/engine"
	"github.com/vovakirdan/hashchat-engine/internal/metrics"
)

// Deps are the engine-side collaborators of the presentation API.
type Deps struct {
	Engine      *engine.Engine
	Attachments *attachment.Producer
	Metrics     *metrics.Metrics
}

// NewServer builds the HTTP server exposing the engine.
func NewServer(deps Deps, cfg *config.Config, logger *zerolog.Logger) *stdhttp.Server {
	return &stdhttp.Server{
		Addr:              cfg.Addr,
		Handler:           NewHandler(deps, cfg, logger),
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}
}

// NewHandler mounts the event stream next to the gin router. The websocket
// upgrade needs the raw ResponseWriter, so /ws stays outside gin.
func NewHandler(deps Deps, cfg *config.Config, logger *zerolog.Logger) stdhttp.Handler {
	mux := stdhttp.NewServeMux()
	mux.Handle("/ws", NewWSHandler(deps.Engine, logger))
	mux.Handle("/", NewRouter(deps, cfg, logger))
	return mux
}

// NewRouter registers the REST routes on a gin engine.
func NewRouter(deps Deps, cfg *config.Config, logger *zerolog.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), LoggerMiddleware(logger))

	router.GET("/health", func(c *gin.Context) {
		c.String(stdhttp.StatusOK, "ok")
	})
	if deps.Metrics != nil {
		router.GET("/metrics", gin.WrapH(deps.Metrics.Handler()))
	}

	if deps.Attachments == nil {
		deps.Attachments = attachment.NewProducer(0, logger)
	}
	session := deps.Engine.Session()
	apiHandlers := NewAPIHandlers(session, deps.Engine, deps.Attachments, deps.Metrics, logger)
	roomHandlers := NewRoomHandlers(deps.Engine, deps.Attachments, logger)
	limiter := newRateLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst)

	api := router.Group("/api")
	api.POST("/login", apiHandlers.Login)
	api.POST("/signup", apiHandlers.Signup)
	api.POST("/verify", apiHandlers.Verify)
	api.POST("/verify/resend", apiHandlers.ResendCode)
	api.DELETE("/signup", apiHandlers.AbandonSignup)
	api.GET("/theme", apiHandlers.Theme)
	api.POST("/theme/toggle", apiHandlers.ToggleTheme)

	protected := api.Group("", AuthMiddleware(session, logger))
	protected.POST("/logout", apiHandlers.Logout)
	protected.GET("/me", apiHandlers.Me)
	protected.PATCH("/me", apiHandlers.UpdateProfile)
	protected.POST("/me/avatar", RateLimitMiddleware(limiter, logger), apiHandlers.UploadAvatar)

	protected.GET("/rooms", roomHandlers.ListRooms)
	protected.POST("/rooms", roomHandlers.CreateRoom)
	protected.POST("/rooms/join", roomHandlers.JoinRoom)
	protected.POST("/rooms/leave", roomHandlers.LeaveRoom)
	protected.GET("/rooms/current", roomHandlers.CurrentRoom)

	protected.GET("/messages", roomHandlers.ListMessages)
	protected.POST("/messages", RateLimitMiddleware(limiter, logger), roomHandlers.SendMessage)
	protected.POST("/attachments", RateLimitMiddleware(limiter, logger), roomHandlers.SendAttachment)
	protected.GET("/presence", roomHandlers.Presence)
	protected.GET("/activity", roomHandlers.Activity)
	return router
}
