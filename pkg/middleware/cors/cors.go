package cors

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// Config controls the CORS policy. Zero values fall back to the
// defaults this API serves with: the mutating verbs the routes expose,
// the auth and tracing request headers, and the report-token response
// header the export endpoints emit.
type Config struct {
	AllowedOrigins []string
	AllowedMethods []string
	AllowedHeaders []string
	ExposedHeaders []string
	MaxAge         string
}

func (cfg *Config) applyDefaults() {
	if len(cfg.AllowedMethods) == 0 {
		cfg.AllowedMethods = []string{
			http.MethodGet, http.MethodPost, http.MethodPut,
			http.MethodPatch, http.MethodDelete, http.MethodOptions,
		}
	}
	if len(cfg.AllowedHeaders) == 0 {
		cfg.AllowedHeaders = []string{"Authorization", "Content-Type", "X-Request-ID"}
	}
	if len(cfg.ExposedHeaders) == 0 {
		cfg.ExposedHeaders = []string{"X-Report-Token", "X-Request-ID"}
	}
	if cfg.MaxAge == "" {
		cfg.MaxAge = "600"
	}
}

type policy struct {
	origins        map[string]struct{}
	allowAll       bool
	allowedMethods string
	allowedHeaders string
	exposedHeaders string
	maxAge         string
}

// New returns a CORS middleware enforcing the given policy. An empty
// origin list allows every origin, which is the development default;
// production deployments set ALLOWED_ORIGINS.
func New(cfg Config) gin.HandlerFunc {
	cfg.applyDefaults()

	p := policy{
		origins:        make(map[string]struct{}, len(cfg.AllowedOrigins)),
		allowAll:       len(cfg.AllowedOrigins) == 0,
		allowedMethods: strings.Join(cfg.AllowedMethods, ", "),
		allowedHeaders: strings.Join(cfg.AllowedHeaders, ", "),
		exposedHeaders: strings.Join(cfg.ExposedHeaders, ", "),
		maxAge:         cfg.MaxAge,
	}
	for _, origin := range cfg.AllowedOrigins {
		p.origins[normalizeOrigin(origin)] = struct{}{}
	}

	return func(c *gin.Context) {
		header := c.Writer.Header()
		header.Add("Vary", "Origin")

		origin := c.GetHeader("Origin")
		if origin == "" {
			// Same-origin or non-browser request, nothing to negotiate.
			c.Next()
			return
		}

		if !p.allows(origin) {
			if c.Request.Method == http.MethodOptions {
				c.AbortWithStatus(http.StatusForbidden)
				return
			}
			c.Next()
			return
		}

		header.Set("Access-Control-Allow-Origin", origin)
		header.Set("Access-Control-Allow-Credentials", "true")
		header.Set("Access-Control-Expose-Headers", p.exposedHeaders)

		if c.Request.Method == http.MethodOptions {
			header.Set("Access-Control-Allow-Methods", p.allowedMethods)
			header.Set("Access-Control-Allow-Headers", p.allowedHeaders)
			header.Set("Access-Control-Max-Age", p.maxAge)
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

func (p policy) allows(origin string) bool {
	if p.allowAll {
		return true
	}
	_, ok := p.origins[normalizeOrigin(origin)]
	return ok
}

func normalizeOrigin(origin string) string {
	return strings.ToLower(strings.TrimRight(origin, "/"))
}
