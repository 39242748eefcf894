package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/nurpe/orderflow/internal/auth"
	"github.com/nurpe/orderflow/internal/cache"
	"github.com/nurpe/orderflow/internal/config"
	"github.com/nurpe/orderflow/internal/db"
	"github.com/nurpe/orderflow/internal/excel"
	httphandler "github.com/nurpe/orderflow/internal/http"
	"github.com/nurpe/orderflow/internal/http/middleware"
	"github.com/nurpe/orderflow/internal/lifecycle"
	"github.com/nurpe/orderflow/internal/logger"
	"github.com/nurpe/orderflow/internal/notify"
	"github.com/nurpe/orderflow/internal/pdf"
	"github.com/nurpe/orderflow/internal/repository"
	"github.com/nurpe/orderflow/internal/service"
	"github.com/nurpe/orderflow/internal/token"
)

func main() {
	root := &cobra.Command{
		Use:   "orderflow",
		Short: "Order fulfillment service",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve()
		},
		SilenceUsage: true,
	}
	root.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve()
		},
	})
	root.AddCommand(&cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			return migrate()
		},
	})

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func bootstrap() (*config.Config, zerolog.Logger, *gorm.DB, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, zerolog.Nop(), nil, fmt.Errorf("failed to load config: %w", err)
	}

	log := logger.New(cfg.Environment)

	database, err := db.New(cfg, log)
	if err != nil {
		return nil, log, nil, fmt.Errorf("failed to connect database: %w", err)
	}
	return cfg, log, database, nil
}

func migrate() error {
	_, log, database, err := bootstrap()
	if err != nil {
		return err
	}
	if err := db.Migrate(database); err != nil {
		return err
	}
	log.Info().Msg("schema up to date")
	return nil
}

func serve() error {
	cfg, log, database, err := bootstrap()
	if err != nil {
		return err
	}
	if err := db.Migrate(database); err != nil {
		return err
	}

	store := repository.NewStore(database)
	tokens := token.NewService(store, tokenCache(cfg, log), nil)
	deps := &service.Deps{
		Store:    store,
		Tokens:   tokens,
		Engine:   lifecycle.NewEngine(nil),
		Notifier: notify.NewLogNotifier(log.With().Str("component", "notify").Logger()),
		Links:    notify.NewLinks(cfg.Orders.PublicOrigin),
		Orders:   cfg.Orders,
		Log:      log,
	}

	handler := httphandler.NewHandler(httphandler.Services{
		PriceLists:  service.NewPriceListService(deps),
		OrderSheets: service.NewOrderSheetService(deps),
		Allocation:  service.NewAllocationService(deps, excel.NewGenerator()),
		Dispatch:    service.NewDispatchService(deps, pdf.NewGenerator()),
		Receipts:    service.NewReceiptService(deps),
		Catalog:     service.NewCatalogService(deps),
	}, log)

	tokenParser := auth.NewParser(cfg.Auth.AccessSecret)
	authMiddleware := middleware.Auth(tokenParser)
	router := httphandler.NewRouter(handler, authMiddleware, cfg.Environment, cfg.HTTP.AllowedOrigins, log)

	addr := fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port)
	log.Info().Str("addr", addr).Msg("starting orderflow")

	if err := router.Run(addr); err != nil {
		log.Error().Err(err).Msg("server stopped")
		return err
	}
	return nil
}

// tokenCache returns the redis cache when REDIS_ADDR is set. A redis that
// cannot be reached at startup is logged and skipped.
func tokenCache(cfg *config.Config, log zerolog.Logger) token.Cache {
	if cfg.Redis.Addr == "" {
		return nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		log.Warn().Err(err).Str("addr", cfg.Redis.Addr).Msg("redis unavailable, token cache disabled")
		_ = client.Close()
		return nil
	}
	return cache.NewRedisTokenCache(client, cfg.Orders.TokenCacheTTL, log.With().Str("component", "token_cache").Logger())
}
