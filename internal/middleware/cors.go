package middleware

import (
	"net/http"
	"slices"
	"strings"

	"github.com/gin-gonic/gin"
)

// Origins allowed by default in release mode and in every other mode.
var (
	ReleaseOrigins     = []string{"https://puntualmente.co", "https://www.puntualmente.co"}
	DevelopmentOrigins = []string{"http://localhost:5173", "https://puntualmente.innoval.tech"}
)

// CORSConfig holds the configuration for the CORS middleware.
type CORSConfig struct {
	// AllowOrigins lists the origins allowed to make cross-origin requests.
	// "*" allows any origin.
	AllowOrigins     []string
	AllowMethods     []string
	AllowHeaders     []string
	AllowCredentials bool
	// MaxAge is the preflight cache lifetime in seconds, as a header value.
	MaxAge string
}

// DefaultCORSConfig returns the allow-list for the given gin mode: the public
// sites in release mode, the local and staging front ends otherwise.
func DefaultCORSConfig(mode string) CORSConfig {
	origins := DevelopmentOrigins
	if mode == gin.ReleaseMode {
		origins = ReleaseOrigins
	}
	return CORSConfig{
		AllowOrigins: slices.Clone(origins),
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowHeaders: []string{"Content-Type", "Access-Control-Allow-Origin"},
		MaxAge:       "86400",
	}
}

// CORS returns a gin middleware that handles Cross-Origin Resource Sharing.
// Requests from origins outside the allow-list get no CORS headers and are
// otherwise served normally; allowed preflight requests end with 204.
func CORS(cfg CORSConfig) gin.HandlerFunc {
	wildcard := slices.Contains(cfg.AllowOrigins, "*")
	allowMethods := strings.Join(cfg.AllowMethods, ", ")
	allowHeaders := strings.Join(cfg.AllowHeaders, ", ")

	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if origin == "" {
			c.Next()
			return
		}

		c.Writer.Header().Add("Vary", "Origin")

		switch {
		case wildcard && !cfg.AllowCredentials:
			c.Header("Access-Control-Allow-Origin", "*")
		case wildcard || slices.Contains(cfg.AllowOrigins, origin):
			c.Header("Access-Control-Allow-Origin", origin)
		default:
			c.Next()
			return
		}

		c.Header("Access-Control-Allow-Methods", allowMethods)
		c.Header("Access-Control-Allow-Headers", allowHeaders)
		if cfg.MaxAge != "" {
			c.Header("Access-Control-Max-Age", cfg.MaxAge)
		}
		if cfg.AllowCredentials {
			c.Header("Access-Control-Allow-Credentials", "true")
		}

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
