package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/pageza/foodgram/backend/config"
	"github.com/pageza/foodgram/backend/internal/database"
	"github.com/pageza/foodgram/backend/internal/server"
	"github.com/pageza/foodgram/backend/internal/service"
)

var migrateOnStart bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		db, err := database.New(cfg)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer db.Close()

		if migrateOnStart {
			if err := database.RunMigrations(db); err != nil {
				return fmt.Errorf("failed to migrate database: %w", err)
			}
		}

		opts := server.Options{}
		if cfg.RedisURL != "" {
			client, err := database.NewRedisClient(cfg)
			if err != nil {
				return err
			}
			defer client.Close()
			opts.Redis = client
		} else {
			log.Warn("REDIS_URL not set, using in-process rate limiting and token revocation")
		}

		if cfg.StorageDriver == "s3" {
			s3Config, err := config.NewS3Config(ctx, cfg)
			if err != nil {
				return err
			}
			opts.ImageStore = service.NewS3Store(s3Config)
		}

		return run(ctx, server.New(cfg, db.DB, opts))
	},
}

func run(ctx context.Context, srv *server.Server) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(srv.Start)
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	log.Info("server stopped")
	return nil
}

func init() {
	serveCmd.Flags().BoolVar(&migrateOnStart, "migrate", false, "apply schema migrations before serving")
}
