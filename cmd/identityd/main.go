package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-identity"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

// AppConfig is the daemon configuration, loaded from defaults, an optional
// YAML file, and IDENTITY_ prefixed environment variables, in that order.
type AppConfig struct {
	Address              string        `koanf:"address"`
	Debug                bool          `koanf:"debug"`
	DSN                  string        `koanf:"dsn"`
	BaseURL              string        `koanf:"base_url"`
	SigningKey           string        `koanf:"signing_key"`
	TokenExpiration      int           `koanf:"token_expiration"`
	Issuer               string        `koanf:"issuer"`
	Audience             []string      `koanf:"audience"`
	BcryptCost           int           `koanf:"bcrypt_cost"`
	ConfirmationTokenTTL time.Duration `koanf:"confirmation_token_ttl"`
	ResetTokenTTL        time.Duration `koanf:"reset_token_ttl"`
}

func loadConfig(path string) (*AppConfig, error) {
	k := koanf.New(".")

	defaults := map[string]any{
		"address":                ":8572",
		"dsn":                    "file::memory:?cache=shared",
		"base_url":               "http://localhost:8572",
		"signing_key":            "insecure-dev-signing-key",
		"token_expiration":       identity.DefaultTokenExpiration,
		"issuer":                 "identityd",
		"bcrypt_cost":            identity.DefaultBcryptCost,
		"confirmation_token_ttl": identity.DefaultConfirmationTokenTTL,
		"reset_token_ttl":        identity.DefaultResetTokenTTL,
	}

	if err := k.Load(confmap.Provider(defaults, "."), nil); err != nil {
		return nil, fmt.Errorf("config defaults: %w", err)
	}

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("config file %s: %w", path, err)
		}
	}

	err := k.Load(env.Provider("IDENTITY_", ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, "IDENTITY_"))
	}), nil)
	if err != nil {
		return nil, fmt.Errorf("config env: %w", err)
	}

	cfg := &AppConfig{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("config unmarshal: %w", err)
	}

	return cfg, nil
}

func (c *AppConfig) identityConfig() *identity.SimpleConfig {
	return &identity.SimpleConfig{
		SigningKey:           c.SigningKey,
		TokenExpiration:      c.TokenExpiration,
		Issuer:               c.Issuer,
		Audience:             c.Audience,
		BcryptCost:           c.BcryptCost,
		ConfirmationTokenTTL: c.ConfirmationTokenTTL,
		ResetTokenTTL:        c.ResetTokenTTL,
		BaseURL:              c.BaseURL,
	}
}

// slogAdapter bridges identity.Logger onto a structured slog.Logger.
type slogAdapter struct {
	logger *slog.Logger
}

func (l slogAdapter) Debug(format string, args ...any) { l.logger.Debug(fmt.Sprintf(format, args...)) }
func (l slogAdapter) Info(format string, args ...any)  { l.logger.Info(fmt.Sprintf(format, args...)) }
func (l slogAdapter) Warn(format string, args ...any)  { l.logger.Warn(fmt.Sprintf(format, args...)) }
func (l slogAdapter) Error(format string, args ...any) { l.logger.Error(fmt.Sprintf(format, args...)) }

func openDB(dsn string) (*bun.DB, error) {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		sqldb, err := sql.Open("pgx", dsn)
		if err != nil {
			return nil, err
		}
		return bun.NewDB(sqldb, pgdialect.New()), nil
	}

	sqldb, err := sql.Open(sqliteshim.ShimName, dsn)
	if err != nil {
		return nil, err
	}
	return bun.NewDB(sqldb, sqlitedialect.New()), nil
}

func run() error {
	cfg, err := loadConfig(os.Getenv("IDENTITY_CONFIG"))
	if err != nil {
		return err
	}

	logger := slogAdapter{logger: slog.Default()}

	db, err := openDB(cfg.DSN)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer db.Close()

	ctx := context.Background()

	// dev convenience; production schemas are managed by migrations
	if _, err := db.NewCreateTable().
		Model((*identity.Account)(nil)).
		IfNotExists().
		Exec(ctx); err != nil {
		return fmt.Errorf("create accounts table: %w", err)
	}

	repo := identity.NewRepositoryManager(db)
	repo.MustValidate()

	idCfg := cfg.identityConfig()
	links := identity.NewLinkBuilder(idCfg.GetBaseURL())
	notifier := identity.NewLogNotifier(logger)

	provider := identity.NewAccountProvider(repo.Accounts()).WithLogger(logger)
	auther := identity.NewAuthenticator(provider, idCfg).WithLogger(logger)

	controller := identity.NewAuthController(
		identity.WithControllerRepo(repo),
		identity.WithControllerAuther(auther),
		identity.WithControllerLogger(logger),
		identity.WithControllerDebug(cfg.Debug),
		identity.WithRegisterHandler(
			identity.NewRegisterAccountHandler(repo).
				WithNotifier(notifier).
				WithLinkBuilder(links).
				WithLogger(logger).
				WithBcryptCost(idCfg.GetBcryptCost()).
				WithConfirmationTTL(idCfg.GetConfirmationTokenTTL()),
		),
		identity.WithConfirmHandler(
			identity.NewConfirmEmailHandler(repo).WithLogger(logger),
		),
		identity.WithForgotHandler(
			identity.NewInitializePasswordResetHandler(repo).
				WithNotifier(notifier).
				WithLinkBuilder(links).
				WithLogger(logger).
				WithResetTTL(idCfg.GetResetTokenTTL()),
		),
		identity.WithResetHandler(
			identity.NewFinalizePasswordResetHandler(repo).
				WithLogger(logger).
				WithBcryptCost(idCfg.GetBcryptCost()),
		),
	)

	app := fiber.New(fiber.Config{
		AppName: "identityd",
	})

	identity.RegisterAuthRoutes(app, controller)

	errCh := make(chan error, 1)
	go func() {
		errCh <- app.Listen(cfg.Address)
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case s := <-sig:
		logger.Info("received signal %s, shutting down", s)
		return app.ShutdownWithTimeout(10 * time.Second)
	}
}

func main() {
	if err := run(); err != nil {
		slog.Error("identityd exited", "error", err)
		os.Exit(1)
	}
}
