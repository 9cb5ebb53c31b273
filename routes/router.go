package routes

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"

	"github.com/cppla/forumfeed/config"
	"github.com/cppla/forumfeed/controllers"
	"github.com/cppla/forumfeed/media"
	"github.com/cppla/forumfeed/middleware"
	"github.com/cppla/forumfeed/repository"
	"github.com/cppla/forumfeed/utils"
)

// SetupRouter wires routes, middlewares, and controllers.
func SetupRouter(posts *repository.PostRepository, comments *repository.CommentRepository) *gin.Engine {
	cfg := config.Get()
	switch strings.ToLower(cfg.GinMode) {
	case "debug":
		gin.SetMode(gin.DebugMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	// access logs go to their own rolling file; fall back to the app logger
	gl, err := utils.NewRollingFileLogger(cfg.GinPath, cfg.LogLevel, cfg.LogMaxSizeMB, cfg.LogMaxBackups, cfg.LogMaxAgeDays, cfg.LogCompress)
	if err != nil {
		utils.Sugar.Warnw("gin access log unavailable, using app logger", "path", cfg.GinPath, "err", err)
		gl = utils.Logger
	}
	r.Use(ginzap.Ginzap(gl, time.RFC3339, true))
	r.Use(ginzap.RecoveryWithZap(gl, true))

	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(cfg.AllowedOrigins) == 1 && cfg.AllowedOrigins[0] == "*" {
		corsCfg.AllowAllOrigins = true
		// wildcard origins cannot carry credentials
		corsCfg.AllowCredentials = false
	} else {
		corsCfg.AllowOrigins = cfg.AllowedOrigins
	}
	r.Use(cors.New(corsCfg))

	r.GET("/health", func(ctx *gin.Context) {
		utils.Success(ctx, gin.H{"status": "ok"})
	})

	compressor := media.Compressor{MaxWidth: cfg.ImageMaxWidth, Quality: cfg.ImageQuality}
	postController := controllers.NewPostController(posts, compressor, cfg.AdminViewerIDs)
	commentController := controllers.NewCommentController(comments)
	authController := controllers.NewAuthController()
	limit := middleware.RateLimitMiddleware(cfg.RateLimitPerMinute)

	api := r.Group("/api/v1")

	authGroup := api.Group("/auth")
	authGroup.Use(middleware.AuthRequired())
	authGroup.GET("/me", authController.Me)
	authGroup.POST("/logout", authController.Logout)

	api.GET("/posts", middleware.OptionalAuth(), postController.ListPosts)
	api.GET("/posts/:id/comments", commentController.ListComments)

	protected := api.Group("")
	protected.Use(middleware.AuthRequired(), limit)
	protected.POST("/posts", postController.CreatePost)
	protected.POST("/posts/:id/like", postController.ToggleLike)
	protected.DELETE("/posts/:id", postController.DeletePost)
	protected.POST("/posts/:id/comments", commentController.AddComment)

	r.NoRoute(func(ctx *gin.Context) {
		utils.Error(ctx, http.StatusNotFound, 40400, "api route not found")
	})

	return r
}
