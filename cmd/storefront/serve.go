package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/kittilsenstian-debug/online-store-engine/internal/app"
	"github.com/kittilsenstian-debug/online-store-engine/internal/config"
	shttp "github.com/kittilsenstian-debug/online-store-engine/internal/http"
	"github.com/kittilsenstian-debug/online-store-engine/internal/observability/logger"
	"github.com/spf13/cobra"
)

func newServeCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Levanta el servidor HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			// .env es opcional
			_ = godotenv.Load()

			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			logger.Init(logger.Config{
				Env:         cfg.App.Env,
				Level:       cfg.Log.Level,
				ServiceName: cfg.App.Name,
				Version:     cfg.App.Version,
			})
			defer func() { _ = logger.L().Sync() }()

			ctx, stop := signal.NotifyContext(cmdContext(cmd), os.Interrupt, syscall.SIGTERM)
			defer stop()
			ctx = logger.ToContext(ctx, logger.L())

			a, err := app.New(ctx, cfg, app.Overrides{})
			if err != nil {
				logger.L().Error("app wiring failed", logger.Err(err))
				return err
			}
			defer a.Close()

			return shttp.Start(ctx, shttp.ServerConfig{
				Addr:            cfg.Server.Addr,
				ReadTimeout:     cfg.Server.ReadTimeout,
				WriteTimeout:    cfg.Server.WriteTimeout,
				ShutdownTimeout: cfg.Server.ShutdownTimeout,
			}, a.Handler)
		},
	}
}
