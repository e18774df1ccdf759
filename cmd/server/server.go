package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"fcc-bootstrap/cmd/root"
	"fcc-bootstrap/controllers"
	"fcc-bootstrap/internal/config"
	"fcc-bootstrap/internal/env"
	"fcc-bootstrap/internal/logger"
	"fcc-bootstrap/internal/middleware"
	"fcc-bootstrap/internal/utils"
	"fcc-bootstrap/services"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
)

var listenAddr string

var serverCmd = &cobra.Command{
	Use:     "serve",
	Aliases: []string{"server"},
	Short:   "Start the local control API",
	Long: `Start a loopback-only HTTP API exposing install status, certificate
health, the root authority download and Prometheus metrics.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return startServer(ctx)
	},
}

func newRouter(svc *services.Server) *gin.Engine {
	gin.SetMode(config.Config.Server.Mode)
	router := gin.New()
	router.Use(gin.Recovery(), middleware.LoopbackOnly(), middleware.MetricsMiddleware())
	controllers.NewAPIController(svc).RegisterRoutes(router)
	return router
}

/**
 * Run the control API until ctx is cancelled
 * @description
 * - Install state is re-probed on every status request
 * - Periodic metric pushes run alongside when configured
 */
func startServer(ctx context.Context) error {
	cfg := &config.Config
	addr := cfg.Server.Address
	if listenAddr != "" {
		addr = listenAddr
	}
	probe := func() *env.BootstrapContext {
		c := &config.Config
		boot := env.NewBootstrapContext(c.InstallRoot, c.DataDir, env.GetDesktopDir(), c.Shortcut.Name)
		boot.Elevated = utils.IsElevated()
		return boot
	}
	boot := probe()
	certs := services.NewCertManagerFromConfig(cfg, boot.CertDir, utils.ExecRunner{})
	svc := services.NewServer(cfg, certs, probe)

	listeners, err := CreateListeners([]ListenAddr{{Network: "tcp", Address: addr}})
	if len(listeners) == 0 {
		return fmt.Errorf("启动服务失败: %v", err)
	}

	srv := &http.Server{
		Handler:           newRouter(svc),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go svc.StartReportMetrics(ctx)

	var wg sync.WaitGroup
	errCh := make(chan error, len(listeners))
	for _, l := range listeners {
		wg.Add(1)
		go func(l net.Listener) {
			defer wg.Done()
			logger.Infof("Control API listening on http://%s", l.Addr())
			if err := srv.Serve(l); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
		}(l)
	}

	var runErr error
	select {
	case <-ctx.Done():
		logger.Info("Shutting down control API")
	case runErr = <-errCh:
		logger.Errorf("Control API stopped: %v", runErr)
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if serr := srv.Shutdown(shutdownCtx); serr != nil {
		logger.Errorf("Shutdown failed: %v", serr)
	}
	wg.Wait()
	return runErr
}

func init() {
	root.RootCmd.AddCommand(serverCmd)
	serverCmd.Flags().StringVar(&listenAddr, "listen", "", "Listen address (default: server.address from config)")
	serverCmd.Example = `  fcc-bootstrap serve
  fcc-bootstrap serve --listen 127.0.0.1:9000`
}
