package server

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"mihomoctl/cmd/root"
	"mihomoctl/controllers"
	"mihomoctl/internal/logger"
	"mihomoctl/internal/proc"
	"mihomoctl/services"
)

var optAddress string

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "以daemon模式运行",
	Long: `以daemon模式运行。
拉起内核并常驻看护：崩溃后按策略自动重启，同时提供HTTP管理接口和/metrics。`,
	Run: func(cmd *cobra.Command, args []string) {
		if err := runServer(); err != nil {
			root.Exit(err)
		}
	},
}

func runServer() error {
	// daemon模式下子进程被watch协程收割，崩溃立即被发现
	app, err := root.GetDaemonApp(func(rec proc.PidRecord) {
		logger.Warnf("Kernel process %d exited unexpectedly", rec.Pid)
	})
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := app.Services.Start(ctx); err != nil {
		return err
	}

	monitor := services.NewMonitor(app.Services, app.Cfg.Monitor)
	go monitor.Run(ctx)

	gin.SetMode(app.Cfg.Server.Mode)
	router := gin.New()
	router.Use(gin.Recovery())

	apiController := controllers.NewAPIController(app.Services)
	apiController.RegisterRoutes(router)

	address := optAddress
	if address == "" {
		address = app.Cfg.Server.Address
	}
	logger.Infof("Daemon listening on %s", address)

	errCh := make(chan error, 1)
	go func() {
		errCh <- router.Run(address)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		logger.Infof("Daemon shutting down")
		// daemon退出时带走内核，避免失去看护的进程残留
		stopCtx := context.Background()
		if err := app.Services.Stop(stopCtx); err != nil {
			logger.Errorf("Failed to stop kernel during shutdown: %v", err)
		}
		return nil
	}
}

func init() {
	serverCmd.Flags().SortFlags = false
	serverCmd.Flags().StringVarP(&optAddress, "address", "a", "", "监听地址，默认取配置里的server.address")
	root.RootCmd.AddCommand(serverCmd)
}
