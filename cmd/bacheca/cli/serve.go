package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/bachecahq/bacheca/internal/config"
	"github.com/bachecahq/bacheca/internal/messages"
	"github.com/bachecahq/bacheca/internal/server"
	"github.com/bachecahq/bacheca/internal/service"
	"github.com/bachecahq/bacheca/internal/store"
)

const banner = `
 ___   _   ___ _  _ ___ ___   _
| _ ) /_\ / __| || | __/ __| /_\
| _ \/ _ \ (__| __ | _| (__ / _ \
|___/_/ \_\___|_||_|___\___/_/ \_\
`

func newServeCmd() *cobra.Command {
	var (
		port int
		host string
		dev  bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the Bacheca API server",
		Long:  "Start the HTTP server that exposes the posting board API.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(host, port, dev)
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 0, "HTTP listen port (overrides config)")
	cmd.Flags().StringVar(&host, "host", "", "HTTP listen host (overrides config)")
	cmd.Flags().BoolVar(&dev, "dev", false, "Enable development mode (verbose logging)")

	viper.BindPFlag("server.port", cmd.Flags().Lookup("port"))
	viper.BindPFlag("server.host", cmd.Flags().Lookup("host"))

	return cmd
}

func runServe(host string, port int, dev bool) error {
	fmt.Print(banner)
	fmt.Println()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if host != "" {
		cfg.Server.Host = host
	}
	if port != 0 {
		cfg.Server.Port = port
	}
	if dsn := viper.GetString("database.dsn"); dsn != "" {
		cfg.Database.DSN = dsn
	}
	if driver := viper.GetString("database.driver"); driver != "" {
		cfg.Database.Driver = driver
	}

	logger := newLogger(cfg.Logging, dev)

	st, err := store.Open(cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()
	logger.Info("store opened", "driver", cfg.Database.Driver)

	ttl, err := cfg.SessionTTL()
	if err != nil {
		return err
	}
	authSvc := service.NewAuthService(st, ttl)

	if cfg.Auth.SeedDefaultAdmin {
		created, err := authSvc.EnsureDefaultAdmin(context.Background())
		if err != nil {
			return fmt.Errorf("seed default admin: %w", err)
		}
		if created {
			logger.Warn("default admin account created (admin/admin) - change the password immediately")
		}
	}

	shutdownTimeout, err := cfg.ShutdownTimeout()
	if err != nil {
		return err
	}

	srvCfg := server.Config{
		Host:            cfg.Server.Host,
		Port:            cfg.Server.Port,
		ShutdownTimeout: shutdownTimeout,
		CORSOrigins:     cfg.Server.CORSOrigins,
		LoginRateLimit:  cfg.Server.LoginRateLimit,
		Version:         appVersion,
	}
	srv := server.New(srvCfg, st, authSvc, messages.Default(), logger)

	fmt.Printf("→ Bacheca %s\n", appVersion)
	fmt.Printf("→ Listening on http://%s:%d\n", cfg.Server.Host, cfg.Server.Port)
	fmt.Printf("→ OpenAPI:   http://%s:%d/openapi.json\n", cfg.Server.Host, cfg.Server.Port)
	fmt.Printf("→ Health:    http://%s:%d/healthz\n", cfg.Server.Host, cfg.Server.Port)
	fmt.Println()

	return srv.ListenAndServe()
}

// loadConfig reads the YAML config file viper located, falling back to the
// built-in defaults when there is none.
func loadConfig() (config.Config, error) {
	path := viper.ConfigFileUsed()
	if path == "" {
		return config.Default(), nil
	}
	return config.Load(path)
}

func newLogger(cfg config.LoggingConfig, dev bool) *slog.Logger {
	level := slog.LevelInfo
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	if dev {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}
