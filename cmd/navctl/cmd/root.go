package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"navmenus/internal/app"
	"navmenus/internal/platform/config"
	"navmenus/internal/platform/logger"
)

var cfgFile string
var appConfig config.Server

var rootCmd = &cobra.Command{
	Use:   "navctl",
	Short: "Inspect the navigation tree served by navmenus",
	Long: `navctl loads the navigation tree from the delivery API with the same
settings as the server and lets you resolve URLs, print the decorated tree
and list the sitemap without starting an HTTP listener.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return initializeConfig(cmd)
	},
}

func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./navmenus.yaml)")
	rootCmd.PersistentFlags().String("project-id", "", "delivery project id")
	rootCmd.PersistentFlags().String("log-level", "", "log level (debug, info, warn, error)")
	rootCmd.AddCommand(resolveCmd, treeCmd, sitemapCmd)
}

func initializeConfig(cmd *cobra.Command) error {
	v := viper.New()
	setDefaults(v, config.Defaults())

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName("navmenus")
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix("NAVMENUS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.BindPFlag("delivery.project_id", cmd.Flags().Lookup("project-id")); err != nil {
		return err
	}
	if err := v.BindPFlag("log_level", cmd.Flags().Lookup("log-level")); err != nil {
		return err
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) || cfgFile != "" {
			return fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg config.Server
	if err := v.Unmarshal(&cfg); err != nil {
		return fmt.Errorf("unable to decode config into struct: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	appConfig = cfg
	return nil
}

// setDefaults registers every key so AutomaticEnv can override it.
func setDefaults(v *viper.Viper, d config.Server) {
	v.SetDefault("addr", d.Addr)
	v.SetDefault("log_level", d.LogLevel)
	v.SetDefault("log_format", d.LogFormat)
	v.SetDefault("webhook_secret", d.WebhookSecret)

	v.SetDefault("navigation.root_codename", d.Navigation.RootCodename)
	v.SetDefault("navigation.max_depth", d.Navigation.MaxDepth)
	v.SetDefault("navigation.cache_expiration", d.Navigation.CacheExpiration)
	v.SetDefault("navigation.menu_cache_expiration", d.Navigation.MenuCacheExpiration)
	v.SetDefault("navigation.root_token", d.Navigation.RootToken)
	v.SetDefault("navigation.homepage_token", d.Navigation.HomepageToken)
	v.SetDefault("navigation.root_level", d.Navigation.RootLevel)
	v.SetDefault("navigation.archive.mount_point", d.Navigation.Archive.MountPoint)
	v.SetDefault("navigation.archive.content_type", d.Navigation.Archive.ContentType)
	v.SetDefault("navigation.archive.date_element", d.Navigation.Archive.DateElement)
	v.SetDefault("navigation.archive.hierarchical", d.Navigation.Archive.Hierarchical)

	v.SetDefault("delivery.base_url", d.Delivery.BaseURL)
	v.SetDefault("delivery.project_id", d.Delivery.ProjectID)
	v.SetDefault("delivery.preview_api_key", d.Delivery.PreviewAPIKey)
	v.SetDefault("delivery.timeout", d.Delivery.Timeout)
	v.SetDefault("delivery.response_cache_ttl", d.Delivery.ResponseCacheTTL)
	v.SetDefault("delivery.breaker_failures", d.Delivery.BreakerFailures)

	v.SetDefault("redis.url", d.Redis.URL)
	v.SetDefault("redis.pool_size", d.Redis.PoolSize)
	v.SetDefault("redis.min_idle_conns", d.Redis.MinIdleConns)
	v.SetDefault("redis.dial_timeout", d.Redis.DialTimeout)
	v.SetDefault("redis.read_timeout", d.Redis.ReadTimeout)
	v.SetDefault("redis.write_timeout", d.Redis.WriteTimeout)
}

// withApp wires the services, runs fn and releases connections.
func withApp(ctx context.Context, stderr io.Writer, fn func(*app.App) error) error {
	log, err := logger.New(stderr, appConfig.LogLevel, appConfig.LogFormat)
	if err != nil {
		return err
	}
	a, err := app.New(ctx, appConfig, log, app.WithRegistry(prometheus.NewRegistry()))
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(a)
}
