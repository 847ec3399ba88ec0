package app

import (
	"net/http"
	"net/url"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"

	"github.com/xenking/kart-storefront/pkg/httpmiddleware"
)

// Catalog sources.
const (
	SourceFakeStore = "fakestore"
	SourceSeed      = "seed"
)

// Config holds the complete application configuration, loadable from
// environment variables (KART_ prefix), flags, or YAML config files.
type Config struct {
	Addr      string `default:"0.0.0.0:8080" usage:"API server listen address"`
	Catalog   CatalogConfig
	Session   SessionConfig
	RateLimit RateLimitConfig
	CORS      CORSConfig
	Graceful  GracefulConfig
}

// CatalogConfig selects and configures the product source.
type CatalogConfig struct {
	Source       string        `default:"fakestore" usage:"Product source: fakestore or seed"`
	BaseURL      string        `default:"https://fakestoreapi.com" usage:"Product API base URL" flag:"catalog-base-url"`
	PageSize     int           `default:"8" usage:"Products per catalog page" flag:"page-size"`
	ImageBaseURL string        `default:"" usage:"Base URL for relative product image paths (e.g. https://cdn.example.com/images)" flag:"image-base-url"`
	Timeout      time.Duration `default:"0s" usage:"Product API request timeout, 0 disables it"`
}

// SessionConfig controls visitor session lifetime.
type SessionConfig struct {
	IdleTTL       time.Duration `default:"30m" usage:"Idle time after which a session is dropped" flag:"session-ttl"`
	SweepInterval time.Duration `default:"1m" usage:"Interval between expired session sweeps"`
	CookieSecure  bool          `default:"false" usage:"Mark the session cookie Secure" flag:"cookie-secure"`
	// CookieSameSite is lax, strict or none. none requires CookieSecure.
	CookieSameSite string `default:"lax" usage:"Session cookie SameSite: lax, strict or none" flag:"cookie-same-site"`
}

func (c SessionConfig) sameSite() http.SameSite {
	switch strings.ToLower(c.CookieSameSite) {
	case "strict":
		return http.SameSiteStrictMode
	case "none":
		return http.SameSiteNoneMode
	default:
		return http.SameSiteLaxMode
	}
}

// RateLimitConfig controls the per-client token bucket rate limiter.
type RateLimitConfig struct {
	Max    int           `default:"100" usage:"Max requests per window"`
	Window time.Duration `default:"1m"  usage:"Rate limit window duration"`
}

// CORSConfig controls Cross-Origin Resource Sharing headers.
//
// Origins "*" serves any origin without credentials: browsers drop the
// session cookie, so a frontend on another origin starts a new cart on every
// call. A frontend served from another origin must be listed here; its
// origin is then echoed with credentials allowed. If it is also on another
// site, set Session.CookieSameSite to none together with Session.CookieSecure.
type CORSConfig struct {
	Origins []string `default:"*" usage:"Allowed CORS origins: * or a list of frontend origins that keep their session"`
}

// GracefulConfig controls graceful shutdown timing.
type GracefulConfig struct {
	ReadinessDelay  time.Duration `default:"3s"  usage:"Delay after readiness=false before shutdown" flag:"readiness-delay"`
	ShutdownTimeout time.Duration `default:"15s" usage:"Maximum shutdown duration" flag:"shutdown-timeout"`
}

// LoadConfig loads configuration from environment variables, YAML config files,
// and applies platform-specific defaults.
func LoadConfig() (*Config, error) {
	var cfg Config
	loader := aconfig.LoaderFor(&cfg, aconfig.Config{
		EnvPrefix: "KART",
		Files:     []string{"config.yaml", "/etc/kart/config.yaml"},
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
		},
	})
	if err := loader.Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	cfg.applyPlatformDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate reports settings the server cannot start with.
func (c *Config) Validate() error {
	switch c.Catalog.Source {
	case SourceFakeStore:
		if c.Catalog.BaseURL == "" {
			return errors.New("catalog base URL is required for the fakestore source")
		}
	case SourceSeed:
	default:
		return errors.Errorf("unknown catalog source %q", c.Catalog.Source)
	}
	if c.Catalog.PageSize < 1 {
		return errors.Errorf("page size must be positive, got %d", c.Catalog.PageSize)
	}
	if c.Session.IdleTTL <= 0 {
		return errors.Errorf("session ttl must be positive, got %s", c.Session.IdleTTL)
	}
	return c.validateCORS()
}

// validateCORS checks the CORS origin list against the session cookie
// settings.
func (c *Config) validateCORS() error {
	switch strings.ToLower(c.Session.CookieSameSite) {
	case "", "lax", "strict":
	case "none":
		if !c.Session.CookieSecure {
			return errors.New("cookie same-site none requires cookie-secure")
		}
	default:
		return errors.Errorf("unknown cookie same-site %q", c.Session.CookieSameSite)
	}

	origins := c.CORS.Origins
	if httpmiddleware.PublicOrigins(origins) {
		if c.Session.sameSite() == http.SameSiteNoneMode {
			return errors.New("cookie same-site none requires an explicit CORS origin list")
		}
		return nil
	}
	if slices.Contains(origins, "*") {
		return errors.New(`CORS origin "*" cannot be combined with other origins`)
	}
	for _, o := range origins {
		u, err := url.Parse(o)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" ||
			strings.TrimSuffix(u.Path, "/") != "" || u.RawQuery != "" || u.Fragment != "" {
			return errors.Errorf("CORS origin %q must look like scheme://host[:port]", o)
		}
	}
	return nil
}

// applyPlatformDefaults maps the PORT variable set by hosting platforms
// (Railway, Render, etc.) onto the listen address.
func (c *Config) applyPlatformDefaults() {
	if port := os.Getenv("PORT"); port != "" && c.Addr == "0.0.0.0:8080" {
		c.Addr = "0.0.0.0:" + port
	}
}
