package server

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"example.com/snapgram/internal/logger"
	"example.com/snapgram/internal/middleware"
	"example.com/snapgram/internal/service"
	"example.com/snapgram/internal/webhook"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

type Options struct {
	JWTSecret      []byte
	AllowedOrigins []string
	RequestTimeout time.Duration
}

type Server struct {
	svc     *service.Service
	webhook *webhook.Handler
	opts    Options
}

var logg = logger.New()

func New(svc *service.Service, hook *webhook.Handler, opts Options) *Server {
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 10 * time.Second
	}
	return &Server{svc: svc, webhook: hook, opts: opts}
}

// Handler builds the gin engine with every route registered.
func (s *Server) Handler() http.Handler {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(), s.corsMiddleware(), requestTimeout(s.opts.RequestTimeout))

	r.GET("/health", s.healthHandler)

	// Signed by the identity provider, not by a user token
	if s.webhook != nil {
		r.POST("/clerk-webhook", s.webhook.Handle)
	}

	api := r.Group("/api", middleware.JWTAuth(s.opts.JWTSecret))
	{
		api.GET("/me", s.getMeHandler)
		api.PATCH("/me", s.updateMeHandler)
		api.GET("/me/posts", s.getMyPostsHandler)

		api.GET("/users/by-identity/:identity", s.getUserByIdentityHandler)
		api.GET("/users/:id", s.getUserProfileHandler)
		api.GET("/users/:id/posts", s.getUserPostsHandler)
		api.GET("/users/:id/following", s.isFollowingHandler)
		api.POST("/users/:id/follow", s.toggleFollowHandler)

		api.POST("/uploads", s.createUploadHandler)

		api.POST("/posts", s.createPostHandler)
		api.GET("/posts", s.getPostsHandler)
		api.GET("/posts/:id", s.getPostHandler)
		api.PATCH("/posts/:id", s.patchPostHandler)
		api.DELETE("/posts/:id", s.deletePostHandler)
		api.POST("/posts/:id/like", s.toggleLikeHandler)
		api.POST("/posts/:id/save", s.toggleSaveHandler)
		api.POST("/posts/:id/comments", s.addCommentHandler)
		api.GET("/posts/:id/comments", s.getCommentsHandler)

		api.GET("/saves", s.getSavesHandler)
		api.GET("/notifications", s.getNotificationsHandler)
	}
	return r
}

func (s *Server) corsMiddleware() gin.HandlerFunc {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization", "Accept"},
		ExposeHeaders: []string{"Content-Length", "Content-Type"},
		MaxAge:        12 * time.Hour,
	}
	if len(s.opts.AllowedOrigins) == 0 {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = s.opts.AllowedOrigins
	}
	return cors.New(cfg)
}

func requestTimeout(d time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), d)
		defer cancel()
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logg.Debug("http", c.Request.Method+" "+c.FullPath()+" "+strconv.Itoa(c.Writer.Status())+" "+time.Since(start).String())
	}
}

// Run starts the HTTP server (HTTPS when a certificate is configured) and
// shuts it down gracefully when ctx is cancelled.
func Run(ctx context.Context, s *Server, addr, certFile, keyFile string) {
	gin.SetMode(gin.ReleaseMode)

	srv := &http.Server{
		Addr:         addr,
		Handler:      s.Handler(),
		ReadTimeout:  10 * time.Second, // prevent slowloris attacks
		WriteTimeout: s.opts.RequestTimeout + 5*time.Second,
	}

	go func() {
		var err error
		if certFile != "" && keyFile != "" {
			logg.Info("server", "Starting HTTPS server on "+addr)
			err = srv.ListenAndServeTLS(certFile, keyFile)
		} else {
			logg.Info("server", "Starting HTTP server on "+addr)
			err = srv.ListenAndServe()
		}
		if err != nil && err != http.ErrServerClosed {
			logg.Error("server", "Server stopped unexpectedly", err)
		}
	}()

	<-ctx.Done()
	logg.Info("server", "Shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logg.Error("server", "Error during server shutdown", err)
	} else {
		logg.Info("server", "Server stopped gracefully")
	}
}
