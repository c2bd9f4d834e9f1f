package services

import (
	"context"
	"sync"
	"time"

	"mihomoctl/internal/config"
	"mihomoctl/internal/env"
	"mihomoctl/internal/errs"
	"mihomoctl/internal/logger"
	"mihomoctl/internal/mihomo"
	"mihomoctl/internal/proc"
	"mihomoctl/internal/profile"
	"mihomoctl/internal/version"
)

/**
 * ServiceStatus 服务状态汇总
 * @property {string} state - 进程状态机状态
 * @property {int} pid - 运行中的进程ID，未运行为0
 * @property {string} version - 默认内核版本，未设置为空
 * @property {string} profile - 当前配置名，未设置为空
 * @property {string} controller - 控制面地址，仅运行时有值
 * @property {string} startTime - 启动时间，RFC3339
 */
type ServiceStatus struct {
	State      string `json:"state"`
	Pid        int    `json:"pid"`
	Version    string `json:"version"`
	Profile    string `json:"profile"`
	Controller string `json:"controller"`
	StartTime  string `json:"startTime,omitempty"`
}

/**
 * ServiceManager 把版本库、配置库和进程监督器绑定为一个服务
 * @description
 * - 启动前解析"默认版本的二进制 + 当前配置文件"这对绑定
 * - 负责在启动前补全外部控制器地址和secret
 * - 作为version.RunningProbe向版本管理器提供运行中二进制
 */
type ServiceManager struct {
	home     env.Home
	cfg      *config.AppConfig
	store    *version.Store
	profiles *profile.Manager
	sup      *proc.Supervisor

	mu         sync.Mutex
	controller string
	secret     string
}

var (
	serviceManager *ServiceManager
	serviceOnce    sync.Once
)

/**
 * GetServiceManager 获取服务管理器单例
 * @param {env.Home} home - 存储根目录
 * @param {*config.AppConfig} cfg - 应用配置
 * @param {func} onExit - 非nil时进入daemon模式，子进程被watch并在崩溃时回调
 */
func GetServiceManager(home env.Home, cfg *config.AppConfig, onExit func(proc.PidRecord)) *ServiceManager {
	serviceOnce.Do(func() {
		sm := &ServiceManager{
			home:     home,
			cfg:      cfg,
			store:    version.NewStore(home),
			profiles: profile.NewManager(home),
		}
		sm.sup = proc.NewSupervisor(home, proc.Options{
			Probe:  sm.probe,
			OnExit: onExit,
		})
		serviceManager = sm
	})
	return serviceManager
}

// Supervisor 暴露底层监督器，Monitor用
func (sm *ServiceManager) Supervisor() *proc.Supervisor {
	return sm.sup
}

// Profiles 暴露配置管理器，CLI的profile子命令用
func (sm *ServiceManager) Profiles() *profile.Manager {
	return sm.profiles
}

/**
 * RunningBinary 实现version.RunningProbe
 * @returns {string} 运行中进程的二进制路径
 * @returns {bool} false表示没有运行中的进程
 */
func (sm *ServiceManager) RunningBinary() (string, bool) {
	st, rec, err := sm.sup.Status(context.Background())
	if err != nil || rec == nil || st != proc.StateRunning {
		return "", false
	}
	return rec.BinaryPath, true
}

/**
 * resolveBinding 解析启动绑定：默认版本二进制 + 当前配置
 * @returns {string} binaryPath
 * @returns {string} configPath
 * @description
 * - 无默认版本 → Validation错误，提示先执行kernel install
 * - 无当前配置 → 生成并指向内置默认配置
 */
func (sm *ServiceManager) resolveBinding() (string, string, error) {
	tag, err := sm.store.Default()
	if err != nil {
		return "", "", err
	}
	if tag == "" {
		return "", "", errs.Validation("no default kernel version set, run 'mihomoctl kernel install' first")
	}
	v, err := sm.store.Get(tag)
	if err != nil {
		return "", "", errs.Wrap(err, "default version '%s' is not installed", tag)
	}

	if _, err := sm.profiles.EnsureDefaultConfig(); err != nil {
		return "", "", err
	}
	configPath, err := sm.profiles.CurrentPath()
	if err != nil {
		return "", "", err
	}
	return v.BinaryPath, configPath, nil
}

/**
 * Start 启动服务
 * @description
 * - 启动前校验配置、补全external-controller/secret并记下控制面地址
 * - 已在运行时返回Conflict
 */
func (sm *ServiceManager) Start(ctx context.Context) error {
	binary, configPath, err := sm.resolveBinding()
	if err != nil {
		return err
	}
	if err := sm.profiles.Validate(configPath); err != nil {
		return errs.Wrap(err, "refusing to start with invalid config '%s'", configPath)
	}
	controller, secret, err := sm.profiles.EnsureExternalController()
	if err != nil {
		return err
	}
	// 就绪探测在监督器锁内执行，只能走这里缓存的地址，不能再查监督器状态
	sm.mu.Lock()
	sm.controller = controller
	sm.secret = secret
	sm.mu.Unlock()

	logger.Infof("Starting kernel: binary=%s config=%s controller=%s", binary, configPath, controller)
	return sm.sup.Start(ctx, binary, configPath)
}

// Stop 停止服务，未运行时是无操作的成功
func (sm *ServiceManager) Stop(ctx context.Context) error {
	return sm.sup.Stop(ctx)
}

/**
 * Restart 重启服务，绑定在停止后重新解析
 * @description
 * - 换默认版本或切配置后调用，保证新进程用的是最新绑定
 */
func (sm *ServiceManager) Restart(ctx context.Context) error {
	if err := sm.Stop(ctx); err != nil {
		return errs.Wrap(err, "restart: stop phase")
	}
	return sm.Start(ctx)
}

/**
 * Status 汇总状态：进程状态 + 默认版本 + 当前配置 + 控制面地址
 */
func (sm *ServiceManager) Status(ctx context.Context) (ServiceStatus, error) {
	st, rec, err := sm.sup.Status(ctx)
	if err != nil {
		return ServiceStatus{}, err
	}
	status := ServiceStatus{State: string(st)}
	if rec != nil {
		status.Pid = rec.Pid
		status.StartTime = rec.StartTime.Format(time.RFC3339)
	}

	if tag, err := sm.store.Default(); err == nil {
		status.Version = tag
	}
	if name, err := sm.profiles.Store().Current(); err == nil {
		status.Profile = name
	}
	if st == proc.StateRunning {
		if controller, _, err := sm.ControllerEndpoint(ctx); err == nil {
			status.Controller = controller
		}
	}
	return status, nil
}

/**
 * ControllerEndpoint 当前控制面地址与secret
 * @description
 * - 优先用本次Start记下的值；跨进程调用时从运行中进程的配置文件里发现
 */
func (sm *ServiceManager) ControllerEndpoint(ctx context.Context) (string, string, error) {
	sm.mu.Lock()
	controller, secret := sm.controller, sm.secret
	sm.mu.Unlock()
	if controller != "" {
		return controller, secret, nil
	}

	_, rec, err := sm.sup.Status(ctx)
	if err != nil {
		return "", "", err
	}
	if rec != nil {
		// 运行中进程用的配置以记录为准，可能不是当前指针指向的那份
		return sm.profiles.ControllerEndpointAt(rec.ConfigPath)
	}
	return sm.profiles.ControllerEndpoint()
}

/**
 * ControlClient 构造连到运行中内核的控制面客户端
 * @returns {*mihomo.Client} 客户端
 * @description 服务未运行时返回Process错误
 */
func (sm *ServiceManager) ControlClient(ctx context.Context) (*mihomo.Client, error) {
	st, _, err := sm.sup.Status(ctx)
	if err != nil {
		return nil, err
	}
	if st != proc.StateRunning {
		return nil, errs.Process("service is not running (state: %s)", st)
	}
	controller, secret, err := sm.ControllerEndpoint(ctx)
	if err != nil {
		return nil, err
	}
	if controller == "" {
		return nil, errs.Validation("running config has no external-controller address")
	}
	return mihomo.NewClient(controller, secret, mihomo.Options{
		Timeout:           sm.cfg.Control.RequestTimeout(),
		ReconnectAttempts: sm.cfg.Control.ReconnectAttempts,
		ReconnectMaxDelay: sm.cfg.Control.ReconnectCap(),
	}), nil
}

/**
 * Reload 让运行中的内核热加载当前配置
 * @description 校验先于加载，坏配置不会被推给内核
 */
func (sm *ServiceManager) Reload(ctx context.Context) error {
	configPath, err := sm.profiles.CurrentPath()
	if err != nil {
		return err
	}
	if err := sm.profiles.Validate(configPath); err != nil {
		return errs.Wrap(err, "refusing to reload invalid config '%s'", configPath)
	}
	client, err := sm.ControlClient(ctx)
	if err != nil {
		return err
	}
	return client.ReloadConfig(ctx, configPath)
}

// probe 启动就绪探测：控制面/version可达即就绪
func (sm *ServiceManager) probe(ctx context.Context) error {
	pctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	controller, secret, err := sm.ControllerEndpoint(pctx)
	if err != nil {
		return err
	}
	if controller == "" {
		// 配置未启用外部控制器，退化为进程存活判断
		return nil
	}
	client := mihomo.NewClient(controller, secret, mihomo.Options{Timeout: 2 * time.Second})
	return client.Healthy(pctx)
}
