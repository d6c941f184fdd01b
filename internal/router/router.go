package router

import (
	"net/http"
	"strconv"
	"strings"

	"go-backend/internal/config"
	"go-backend/internal/handlers"
	"go-backend/internal/middleware"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

// corsMiddleware applies the configured origin whitelist. An empty
// whitelist allows every origin.
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")

		allowedOrigins := []string{}
		allowCredentials := true
		maxAge := 3600
		if config.AppConfig != nil {
			allowedOrigins = config.AppConfig.CORS.AllowedOrigins
			allowCredentials = config.AppConfig.CORS.AllowCredentials
			if config.AppConfig.CORS.MaxAge > 0 {
				maxAge = config.AppConfig.CORS.MaxAge
			}
		}

		if len(allowedOrigins) == 0 {
			c.Header("Access-Control-Allow-Origin", "*")
		} else if origin != "" {
			allowed := false
			for _, allowedOrigin := range allowedOrigins {
				if strings.EqualFold(origin, allowedOrigin) {
					allowed = true
					break
				}
			}
			if allowed {
				c.Header("Access-Control-Allow-Origin", origin)
				if allowCredentials {
					c.Header("Access-Control-Allow-Credentials", "true")
				}
			} else {
				logrus.WithField("origin", origin).Warn("🚫 CORS: Origin not in whitelist")
			}
		}

		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")
		c.Header("Access-Control-Max-Age", strconv.Itoa(maxAge))

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// Handlers bundles every handler the router mounts
type Handlers struct {
	Attest      *handlers.AttestHandler
	Claim       *handlers.ClaimHandler
	Nonce       *handlers.NonceHandler
	Revocation  *handlers.RevocationHandler
	WebSocket   *handlers.WebSocketHandler
	AdminAuth   *handlers.AdminAuthHandler
	AdminClaims *handlers.AdminClaimsHandler
}

// SetupRouter builds the gin engine with every route mounted
func SetupRouter(h *Handlers, logger *logrus.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(corsMiddleware())

	// wrong-method requests get a 405, not a 404
	r.HandleMethodNotAllowed = true
	r.NoMethod(func(c *gin.Context) {
		c.JSON(http.StatusMethodNotAllowed, gin.H{
			"ok":    false,
			"error": "Method not allowed",
		})
	})
	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{
			"ok":    false,
			"error": "Not found",
		})
	})

	r.GET("/ping", handlers.PingHandler)
	r.GET("/health", handlers.HealthHandler)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api")
	{
		api.POST("/attest", h.Attest.Attest)
		api.POST("/claim", h.Claim.Claim)
		api.POST("/get-nonce", h.Nonce.GetNonce)
		api.POST("/revocations", h.Revocation.Record)
		api.GET("/ws", h.WebSocket.Connect)
	}

	var allowedIPs []string
	if config.AppConfig != nil {
		allowedIPs = config.AppConfig.Admin.AllowedIPs
	}
	localhostOnly := middleware.NewLocalhostOnly(logger, allowedIPs)
	adminAuth := middleware.NewAdminAuthMiddleware(logger)

	admin := r.Group("/api/admin")
	admin.Use(localhostOnly.Restrict())
	{
		admin.POST("/login", h.AdminAuth.AdminLoginHandler)
		admin.POST("/totp/generate", h.AdminAuth.GenerateTOTPSecretHandler)

		protected := admin.Group("")
		protected.Use(adminAuth.RequireAdminAuth())
		{
			protected.GET("/claims", h.AdminClaims.ListClaims)
		}
	}

	return r
}
