package router

import (
	"net/http"
	"strings"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/pubshare/internal/handler"
	"github.com/pubshare/internal/logging"
	"github.com/pubshare/internal/metrics"
	"go.uber.org/zap"
)

// Options 配置路由所需的依赖
type Options struct {
	SessionSecret string
	// UploadDir is served under /api/files when set (embedded backend).
	UploadDir string
	Logger    *zap.Logger
}

// SetupRouter 配置 Gin 引擎和路由
func SetupRouter(api *handler.API, opts Options) *gin.Engine {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	r := gin.New()
	r.Use(gin.Recovery(), logging.Middleware(logger))

	// 配置会话中间件
	secret := strings.TrimSpace(opts.SessionSecret)
	if secret == "" {
		secret = "pubshare-dev-secret"
	}
	store := cookie.NewStore([]byte(secret))
	store.Options(sessions.Options{Path: "/", HttpOnly: true, SameSite: http.SameSiteLaxMode, MaxAge: 14 * 24 * 60 * 60})
	r.Use(sessions.Sessions("pubshare_session", store))

	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})
	r.GET("/metrics", metrics.Handler())

	if dir := strings.TrimSpace(opts.UploadDir); dir != "" {
		r.Static("/api/files", dir)
	}

	apiGroup := r.Group("/api")
	apiGroup.Use(api.SessionAuth())
	{
		apiGroup.POST("/auth/login", api.Login)
		apiGroup.POST("/auth/signup", api.Signup)
		apiGroup.POST("/auth/logout", api.Logout)
		apiGroup.GET("/auth/me", api.Me)

		apiGroup.GET("/publication-types", api.PublicationTypes)
		apiGroup.GET("/publications", api.ListPublications)
		apiGroup.GET("/search", api.SearchPublications)
		apiGroup.GET("/publications/:id", api.GetPublication)
		apiGroup.GET("/publications/:id/files/:fileId/download", api.DownloadFile)

		apiGroup.GET("/users/:id", api.GetUser)
		apiGroup.GET("/users/:id/publications", api.ListUserPublications)

		// 需要登录的路由
		auth := apiGroup.Group("")
		auth.Use(api.AuthRequired())
		{
			auth.POST("/publications", api.CreatePublication)
			auth.GET("/publications/:id/edit", api.EditPublication)
			auth.PUT("/publications/:id", api.UpdatePublication)
			auth.DELETE("/publications/:id", api.DeletePublication)
			auth.POST("/publications/:id/comments", api.CreateComment)
			auth.PUT("/profile", api.UpdateProfile)
		}
	}

	return r
}
