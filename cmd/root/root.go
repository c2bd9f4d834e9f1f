package root

import (
	"fmt"
	"os"
	"sync"

	"github.com/spf13/cobra"

	"mihomoctl/internal/config"
	"mihomoctl/internal/env"
	"mihomoctl/internal/errs"
	"mihomoctl/internal/logger"
	"mihomoctl/internal/proc"
	"mihomoctl/internal/profile"
	"mihomoctl/internal/version"
	"mihomoctl/services"
)

var RootCmd = &cobra.Command{
	Use:   "mihomoctl",
	Short: "mihomo内核生命周期管理器",
	Long:  `mihomoctl管理mihomo内核的版本安装、配置切换、进程启停和控制面交互`,
}

/**
 * App 命令共享的依赖集合
 * @description
 * - 在第一个用到它的命令Run里懒加载，帮助类命令(help/version)不触发磁盘初始化
 */
type App struct {
	Home     env.Home
	Cfg      *config.AppConfig
	Services *services.ServiceManager
	Kernel   *version.Manager
	Profiles *profile.Manager
}

var (
	app     *App
	appErr  error
	appOnce sync.Once
)

func bootstrap(daemon bool, onExit func(proc.PidRecord)) (*App, error) {
	appOnce.Do(func() {
		home, err := env.Resolve()
		if err != nil {
			appErr = err
			return
		}
		if err := home.EnsureLayout(); err != nil {
			appErr = err
			return
		}
		cfg, err := config.Load(home)
		if err != nil {
			appErr = errs.Wrap(err, "load %s", home.ConfigFile())
			return
		}
		logger.InitLogger(cfg.Log.Path, cfg.Log.Level, daemon, cfg.Log.MaxSize)

		sm := services.GetServiceManager(home, cfg, onExit)
		downloader := version.NewDownloader(cfg.Release.BaseURL, cfg.Release.RequestTimeout())
		app = &App{
			Home:     home,
			Cfg:      cfg,
			Services: sm,
			Kernel:   version.NewManager(home, downloader, sm),
			Profiles: sm.Profiles(),
		}
	})
	return app, appErr
}

// GetApp CLI模式的依赖集合，拉起的子进程脱离本进程独立运行
func GetApp() (*App, error) {
	return bootstrap(false, nil)
}

/**
 * GetDaemonApp daemon模式的依赖集合
 * @param {func} onExit - 子进程意外退出时的回调，非nil使监督器进入watch模式
 * @description server命令必须在任何GetApp调用前执行
 */
func GetDaemonApp(onExit func(proc.PidRecord)) (*App, error) {
	return bootstrap(true, onExit)
}

/**
 * Exit 打印错误并按类别退出
 * @description nil时正常返回，命令继续执行后续输出
 */
func Exit(err error) {
	if err == nil {
		return
	}
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(errs.ExitCode(err))
}
