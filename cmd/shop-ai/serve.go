package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/ashwinyue/shop-ai/internal/handler"
	"github.com/ashwinyue/shop-ai/internal/router"
	logx "github.com/ashwinyue/shop-ai/pkg/logger"
)

func serveCmd(configPath *string) *cobra.Command {
	var indexOnStart bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := bootstrap(ctx, *configPath)
			if err != nil {
				return err
			}
			defer a.close()

			if indexOnStart {
				count, err := a.svc.Search.IndexAll(ctx, a.cfg.Search.IndexBatchSize)
				if err != nil {
					return err
				}
				logx.Info().Int("count", count).Msg("products indexed")
			}

			// 设置 Gin 模式
			gin.SetMode(a.cfg.Server.Mode)
			r := router.SetupRouter(handler.NewHandlers(a.svc), a.svc.Auth)

			srv := &http.Server{
				Addr:         a.cfg.Server.GetAddr(),
				Handler:      r,
				ReadTimeout:  time.Duration(a.cfg.Server.ReadTimeout) * time.Second,
				WriteTimeout: time.Duration(a.cfg.Server.WriteTimeout) * time.Second,
			}

			errCh := make(chan error, 1)
			go func() {
				logx.Info().Str("addr", srv.Addr).Msg("server starting")
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
			}()

			// 等待中断信号
			quit := make(chan os.Signal, 1)
			signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
			select {
			case err := <-errCh:
				return err
			case <-quit:
			}

			logx.Info().Msg("shutting down server")

			// 优雅关闭
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				return err
			}
			logx.Info().Msg("server exited")
			return nil
		},
	}
	cmd.Flags().BoolVar(&indexOnStart, "index", false, "index all active products before serving")
	return cmd
}
