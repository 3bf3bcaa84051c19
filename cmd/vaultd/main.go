package main

import (
	"context"
	"flag"
	"log/slog"
	"os"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"

	"github.com/memoryvault/vault/internal/config"
	"github.com/memoryvault/vault/internal/infrastructure/providers"
	"github.com/memoryvault/vault/internal/present/rest"
	"github.com/memoryvault/vault/internal/present/rest/middleware"
	"github.com/memoryvault/vault/internal/service"
	"github.com/memoryvault/vault/internal/telemetry"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the configuration file")
	flag.Parse()

	conf, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	ctx := context.Background()

	if conf.Server.EnableTrace {
		shutdown, err := telemetry.Setup(ctx, "vaultd", conf.Server.TraceEndpoint)
		if err != nil {
			slog.Error("failed to set up tracing", slog.String("error", err.Error()))
			os.Exit(1)
		}
		defer shutdown(ctx)
	}

	db, err := providers.NewDatabase(conf.Server)
	if err != nil {
		slog.Error("failed to connect database", slog.String("error", err.Error()))
		os.Exit(1)
	}
	if err := providers.MigrateDatabase(db); err != nil {
		slog.Error("failed to migrate database", slog.String("error", err.Error()))
		os.Exit(1)
	}

	rdb := providers.NewRedis(conf.Server)
	mc := providers.NewMemcache(conf.Server.MemcachedAddr)

	vaultUC := providers.NewVaultUsecase(db, rdb, conf.Storage)
	accessUC := providers.NewAccessUsecase(db, rdb, mc)
	signal := service.NewSignalService(rdb)

	handler := rest.NewHandler(vaultUC, accessUC, signal)
	auth := middleware.NewAuthMiddleware()

	e := echo.New()
	e.HideBanner = true
	e.Use(echomiddleware.Logger())
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.CORS())
	if conf.Server.EnableTrace {
		e.Use(otelecho.Middleware("vaultd"))
	}
	e.Use(auth.IdentifyWallet)

	handler.RegisterRoutes(e)

	e.Logger.Fatal(e.Start(conf.Server.Listen))
}
