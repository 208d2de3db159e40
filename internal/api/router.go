package api

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jonesrussell/jobscout/internal/logger"
)

const corsMaxAgeHours = 12

// NewRouter assembles the HTTP routes.
func NewRouter(search *SearchHandler, companies *CompanyHandler, corsOrigins []string, log logger.Logger) *gin.Engine {
	router := gin.New()

	// CORS middleware - must be first
	router.Use(cors.New(cors.Config{
		AllowOrigins: corsOrigins,
		AllowMethods: []string{"GET", "POST", "PATCH", "OPTIONS"},
		AllowHeaders: []string{
			"Origin", "Content-Type", "Content-Length", "Accept-Encoding",
			"Authorization", "accept", "origin", "Cache-Control", "X-Requested-With",
		},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           corsMaxAgeHours * time.Hour,
	}))

	router.Use(ginLogger(log))
	router.Use(gin.Recovery())

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")

	searchGroup := v1.Group("/search")
	searchGroup.POST("", search.Start)
	searchGroup.GET("/progress", search.Progress)
	searchGroup.POST("/pause", search.Pause)

	companyGroup := v1.Group("/companies")
	companyGroup.GET("", companies.List)
	companyGroup.POST("/bulk", companies.BulkUpdate)
	companyGroup.GET("/:id", companies.GetByID)
	companyGroup.PATCH("/:id", companies.Update)
	companyGroup.POST("/:id/email", companies.GenerateEmail)

	return router
}

func ginLogger(log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		method := c.Request.Method

		c.Next()

		log.Info("HTTP request",
			logger.String("method", method),
			logger.String("path", path),
			logger.Int("status_code", c.Writer.Status()),
			logger.String("client_ip", c.ClientIP()),
			logger.Duration("duration", time.Since(start)),
		)
	}
}
