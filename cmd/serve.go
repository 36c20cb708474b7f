package cmd

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"go-battle/controller"
	"go-battle/repository"
	"go-battle/router"
	"go-battle/service"
	"go-battle/ws"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP and websocket server",
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := loadApp()
		if err != nil {
			return err
		}
		defer rt.logger.Sync()

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		rdb, err := repository.NewRedis(ctx, rt.cfg.Redis, rt.logger)
		if err != nil {
			return err
		}
		defer rdb.Close()

		manager := service.NewManager(repository.NewRedisStore(rdb), rt.catalog, rt.cfg.Battle, rt.logger)
		defer manager.Shutdown()

		hub := ws.NewHub(manager, rt.logger)
		go hub.Run(ctx)
		go manager.ScheduleReaper(ctx, rt.cfg.Battle.ReapInterval, rt.cfg.Battle.IdleTTL)

		r := gin.Default()
		r.Use(cors.New(cors.Config{
			AllowAllOrigins: true,
			AllowMethods:    []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowHeaders:    []string{"Origin", "Content-Type", "Authorization"},
			ExposeHeaders:   []string{"Content-Length"},
			MaxAge:          12 * time.Hour,
		}))
		router.InitRouter(r, controller.NewBattleController(manager, rt.logger), hub, rt.cfg.APIToken)

		srv := &http.Server{Addr: rt.cfg.HTTPAddr, Handler: r}
		errCh := make(chan error, 1)
		go func() {
			rt.logger.Info("http server listening", zap.String("addr", rt.cfg.HTTPAddr))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
			close(errCh)
		}()

		select {
		case err := <-errCh:
			return err
		case <-ctx.Done():
		}

		rt.logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
