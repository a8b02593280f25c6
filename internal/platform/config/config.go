package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Server captures process level configuration.
type Server struct {
	Addr      string `mapstructure:"addr"`
	LogLevel  string `mapstructure:"log_level"`
	LogFormat string `mapstructure:"log_format"`
	// WebhookSecret signs publish webhooks; empty disables the invalidation route.
	WebhookSecret string     `mapstructure:"webhook_secret"`
	Navigation    Navigation `mapstructure:"navigation"`
	Delivery      Delivery   `mapstructure:"delivery"`
	Redis         Redis      `mapstructure:"redis"`
}

// Navigation configures loading, caching and resolving the navigation tree.
type Navigation struct {
	RootCodename        string        `mapstructure:"root_codename"`
	MaxDepth            int           `mapstructure:"max_depth"`
	CacheExpiration     time.Duration `mapstructure:"cache_expiration"`
	RootToken           string        `mapstructure:"root_token"`
	HomepageToken       string        `mapstructure:"homepage_token"`
	RootLevel           int           `mapstructure:"root_level"`
	MenuCacheExpiration time.Duration `mapstructure:"menu_cache_expiration"`
	Archive             Archive       `mapstructure:"archive"`
}

// Archive configures the generated date archive menu.
type Archive struct {
	MountPoint   string `mapstructure:"mount_point"`
	ContentType  string `mapstructure:"content_type"`
	DateElement  string `mapstructure:"date_element"`
	Hierarchical bool   `mapstructure:"hierarchical"`
}

// Delivery configures the upstream content API.
type Delivery struct {
	BaseURL          string        `mapstructure:"base_url"`
	ProjectID        string        `mapstructure:"project_id"`
	PreviewAPIKey    string        `mapstructure:"preview_api_key"`
	Timeout          time.Duration `mapstructure:"timeout"`
	ResponseCacheTTL time.Duration `mapstructure:"response_cache_ttl"`
	BreakerFailures  int           `mapstructure:"breaker_failures"`
}

// Redis configures the shared response store. An empty URL selects the
// in-process store.
type Redis struct {
	URL          string        `mapstructure:"url"`
	PoolSize     int           `mapstructure:"pool_size"`
	MinIdleConns int           `mapstructure:"min_idle_conns"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// Defaults returns the configuration used when nothing is set.
func Defaults() Server {
	return Server{
		Addr:      ":8080",
		LogLevel:  "info",
		LogFormat: "json",
		Navigation: Navigation{
			RootCodename:        "navigation",
			MaxDepth:            6,
			CacheExpiration:     10 * time.Minute,
			RootToken:           "[root]",
			HomepageToken:       "[homepage]",
			MenuCacheExpiration: 10 * time.Minute,
			Archive: Archive{
				MountPoint:  "/blog",
				ContentType: "article",
				DateElement: "post_date",
			},
		},
		Delivery: Delivery{
			Timeout:          10 * time.Second,
			ResponseCacheTTL: time.Minute,
			BreakerFailures:  5,
		},
		Redis: Redis{
			PoolSize:     10,
			MinIdleConns: 2,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
		},
	}
}

// FromEnv overlays environment variables on Defaults so main stays lean.
func FromEnv() (Server, error) {
	cfg := Defaults()
	env := envReader{}

	env.str("NAVMENUS_ADDR", &cfg.Addr)
	env.str("LOG_LEVEL", &cfg.LogLevel)
	env.str("LOG_FORMAT", &cfg.LogFormat)
	env.str("NAVMENUS_WEBHOOK_SECRET", &cfg.WebhookSecret)

	nav := &cfg.Navigation
	env.str("NAV_ROOT_CODENAME", &nav.RootCodename)
	env.integer("NAV_MAX_DEPTH", &nav.MaxDepth)
	env.duration("NAV_CACHE_EXPIRATION", &nav.CacheExpiration)
	env.str("NAV_ROOT_TOKEN", &nav.RootToken)
	env.str("NAV_HOMEPAGE_TOKEN", &nav.HomepageToken)
	env.integer("NAV_ROOT_LEVEL", &nav.RootLevel)
	env.duration("NAV_MENU_CACHE_EXPIRATION", &nav.MenuCacheExpiration)
	env.str("NAV_ARCHIVE_MOUNT_POINT", &nav.Archive.MountPoint)
	env.str("NAV_ARCHIVE_CONTENT_TYPE", &nav.Archive.ContentType)
	env.str("NAV_ARCHIVE_DATE_ELEMENT", &nav.Archive.DateElement)
	env.boolean("NAV_ARCHIVE_HIERARCHICAL", &nav.Archive.Hierarchical)

	env.str("DELIVERY_BASE_URL", &cfg.Delivery.BaseURL)
	env.str("DELIVERY_PROJECT_ID", &cfg.Delivery.ProjectID)
	env.str("DELIVERY_PREVIEW_API_KEY", &cfg.Delivery.PreviewAPIKey)
	env.duration("DELIVERY_TIMEOUT", &cfg.Delivery.Timeout)
	env.duration("DELIVERY_RESPONSE_CACHE_TTL", &cfg.Delivery.ResponseCacheTTL)
	env.integer("DELIVERY_BREAKER_FAILURES", &cfg.Delivery.BreakerFailures)

	env.str("REDIS_URL", &cfg.Redis.URL)
	env.integer("REDIS_POOL_SIZE", &cfg.Redis.PoolSize)
	env.integer("REDIS_MIN_IDLE_CONNS", &cfg.Redis.MinIdleConns)
	env.duration("REDIS_DIAL_TIMEOUT", &cfg.Redis.DialTimeout)
	env.duration("REDIS_READ_TIMEOUT", &cfg.Redis.ReadTimeout)
	env.duration("REDIS_WRITE_TIMEOUT", &cfg.Redis.WriteTimeout)

	if err := errors.Join(env.errs...); err != nil {
		return Server{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Server{}, err
	}
	return cfg, nil
}

// Validate reports every invalid setting at once.
func (s Server) Validate() error {
	var errs []error
	if s.Addr == "" {
		errs = append(errs, errors.New("addr must not be empty"))
	}
	errs = append(errs, s.Navigation.Validate())
	if strings.TrimSpace(s.Delivery.ProjectID) == "" {
		errs = append(errs, errors.New("delivery project id must not be empty"))
	}
	if s.Delivery.Timeout <= 0 {
		errs = append(errs, errors.New("delivery timeout must be positive"))
	}
	if s.Delivery.ResponseCacheTTL < 0 {
		errs = append(errs, errors.New("delivery response cache ttl must not be negative"))
	}
	return errors.Join(errs...)
}

// Validate checks the navigation settings. Invalid values are fatal.
func (n Navigation) Validate() error {
	var errs []error
	if strings.TrimSpace(n.RootCodename) == "" {
		errs = append(errs, errors.New("navigation root codename must not be empty"))
	}
	if n.MaxDepth < 2 {
		errs = append(errs, fmt.Errorf("navigation max depth must be 2 or higher, got %d", n.MaxDepth))
	}
	if n.CacheExpiration <= 0 {
		errs = append(errs, errors.New("navigation cache expiration must be positive"))
	}
	if n.MenuCacheExpiration <= 0 {
		errs = append(errs, errors.New("menu cache expiration must be positive"))
	}
	if strings.TrimSpace(n.RootToken) == "" {
		errs = append(errs, errors.New("navigation root token must not be empty"))
	}
	if strings.TrimSpace(n.HomepageToken) == "" {
		errs = append(errs, errors.New("navigation homepage token must not be empty"))
	}
	if n.RootLevel < 0 {
		errs = append(errs, fmt.Errorf("navigation root level must be 0 or higher, got %d", n.RootLevel))
	}
	return errors.Join(errs...)
}

type envReader struct {
	errs []error
}

func (r *envReader) str(key string, dst *string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		*dst = v
	}
}

func (r *envReader) integer(key string, dst *int) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("%s: %w", key, err))
		return
	}
	*dst = n
}

func (r *envReader) duration(key string, dst *time.Duration) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("%s: %w", key, err))
		return
	}
	*dst = d
}

func (r *envReader) boolean(key string, dst *bool) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("%s: %w", key, err))
		return
	}
	*dst = b
}
