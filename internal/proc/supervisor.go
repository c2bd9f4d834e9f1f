package proc

import (
	"context"
	"os/exec"
	"path/filepath"
	"sync"
	"time"

	"mihomoctl/internal/env"
	"mihomoctl/internal/errs"
	"mihomoctl/internal/logger"
)

// State 受管进程的状态机状态
type State string

const (
	StateStopped  State = "stopped"
	StateStarting State = "starting"
	StateRunning  State = "running"
	StateStopping State = "stopping"
	// 进程在没有调用stop()的情况下退出，需要reconcile确认后才能再次启动
	StateCrashed State = "crashed"
)

/**
 * Options 监督器参数
 * @property {time.Duration} startTimeout - 启动后等待存活探测通过的上限
 * @property {time.Duration} stopGrace - 优雅停止的宽限期，超过后升级为强杀
 * @property {func} probe - 可选的就绪探测(如控制面/version)，nil时只看进程存活
 * @property {func} onExit - 可选的退出回调；非nil时子进程被watch协程收割，
 *                           nil时子进程脱离进程组独立运行(CLI模式)
 */
type Options struct {
	StartTimeout time.Duration
	StopGrace    time.Duration
	Probe        func(ctx context.Context) error
	OnExit       func(rec PidRecord)
}

func (o *Options) correct() {
	if o.StartTimeout <= 0 {
		o.StartTimeout = 15 * time.Second
	}
	if o.StopGrace <= 0 {
		o.StopGrace = 5 * time.Second
	}
}

/**
 * Supervisor 单实例进程监督器
 * @description
 * - 唯一有权写PidRecord的组件
 * - 状态从磁盘记录+存活探测推导，任何读取前先Reconcile
 * - 启动/停止失败只上报不重试，重试策略属于Monitor
 */
type Supervisor struct {
	pidPath string
	opts    Options

	mu    sync.Mutex
	state State
	rec   *PidRecord
}

func NewSupervisor(home env.Home, opts Options) *Supervisor {
	opts.correct()
	return &Supervisor{
		pidPath: home.PidFile(),
		opts:    opts,
		state:   StateStopped,
	}
}

/**
 * reconcileLocked 对账：磁盘记录与真实进程状态的交叉验证
 * @returns {State} 对账后的状态
 * @description
 * - 记录存在且进程匹配 → Running(接管早先拉起的进程)
 * - 记录存在但进程已死 → 清除过期记录并进入Crashed，绝不伪装成Stopped
 * - 无记录 → 维持Crashed(等待确认)或回到Stopped
 */
func (s *Supervisor) reconcileLocked() (State, error) {
	rec, err := readPidRecord(s.pidPath)
	if err != nil {
		return s.state, err
	}
	switch {
	case rec == nil:
		s.rec = nil
		if s.state != StateCrashed {
			s.state = StateStopped
		}
	case processMatches(rec):
		s.rec = rec
		if s.state != StateStopping && s.state != StateStarting {
			s.state = StateRunning
		}
	default:
		logger.Warnf("Stale pid record (pid %d not alive), marking crashed", rec.Pid)
		if err := removePidRecord(s.pidPath); err != nil {
			return s.state, err
		}
		s.rec = nil
		s.state = StateCrashed
	}
	return s.state, nil
}

// Reconcile 显式对账一次
func (s *Supervisor) Reconcile() (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reconcileLocked()
}

/**
 * Status 返回对账后的状态和进程记录快照
 * @param {context.Context} ctx - 保留参数，与其他操作签名一致
 * @returns {State} 当前状态
 * @returns {*PidRecord} 记录快照，无记录时为nil
 */
func (s *Supervisor) Status(ctx context.Context) (State, *PidRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, err := s.reconcileLocked()
	if err != nil {
		return st, nil, err
	}
	if s.rec == nil {
		return st, nil, nil
	}
	snapshot := *s.rec
	return st, &snapshot, nil
}

/**
 * Start 拉起受管进程
 * @param {context.Context} ctx - 取消/超时控制
 * @param {string} binaryPath - 内核二进制路径
 * @param {string} configPath - 配置文件路径
 * @returns {error} Conflict if already running, Process error on spawn/probe failure
 * @description
 * - 先对账，Crashed状态在此被确认并允许继续启动
 * - 拉起后写PidRecord，再做有界的存活/就绪探测
 * - 探测失败时清理进程和记录，停留在Stopped
 */
func (s *Supervisor) Start(ctx context.Context, binaryPath, configPath string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, err := s.reconcileLocked()
	if err != nil {
		return err
	}
	if st == StateRunning || st == StateStarting || st == StateStopping {
		return errs.Conflict("service is already running (pid %d)", s.pid())
	}
	s.state = StateStarting

	cmd := exec.Command(binaryPath, "-d", filepath.Dir(configPath), "-f", configPath)
	if s.opts.OnExit == nil {
		// CLI模式：子进程独立于本进程存活
		detachProcess(cmd)
	}
	if err := cmd.Start(); err != nil {
		s.state = StateStopped
		return errs.WrapKind(err, errs.KindProcess, "spawn '%s'", binaryPath)
	}

	rec := &PidRecord{
		Pid:        cmd.Process.Pid,
		StartTime:  time.Now(),
		BinaryPath: binaryPath,
		ConfigPath: configPath,
	}
	if err := writePidRecord(s.pidPath, rec); err != nil {
		killProcess(rec.Pid)
		s.state = StateStopped
		return err
	}
	s.rec = rec
	logger.Infof("Process started (pid %d, binary %s)", rec.Pid, binaryPath)

	if s.opts.OnExit != nil {
		go s.watch(cmd, *rec)
	} else {
		// 防止探测窗口内的僵尸进程
		go cmd.Wait()
	}

	if err := s.probeUntilReady(ctx, rec.Pid); err != nil {
		logger.Errorf("Liveness probe failed after spawn: %v", err)
		terminateProcess(rec.Pid)
		removePidRecord(s.pidPath)
		s.rec = nil
		s.state = StateStopped
		return errs.WrapKind(err, errs.KindProcess, "process did not become ready")
	}

	s.state = StateRunning
	return nil
}

func (s *Supervisor) probeUntilReady(ctx context.Context, pid int) error {
	deadline := time.Now().Add(s.opts.StartTimeout)
	var lastErr error
	for time.Now().Before(deadline) {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if !processAlive(pid) {
			return errs.Process("process exited during startup")
		}
		if s.opts.Probe == nil {
			return nil
		}
		if lastErr = s.opts.Probe(ctx); lastErr == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(500 * time.Millisecond):
		}
	}
	if lastErr != nil {
		return lastErr
	}
	return errs.Process("startup probe timed out")
}

/**
 * Stop 停止受管进程
 * @param {context.Context} ctx - 取消/超时控制
 * @returns {error} Process error if the process survives the kill escalation
 * @description
 * - 已停止时是无操作的成功
 * - SIGTERM后在宽限期内轮询存活，超期升级SIGKILL
 * - 确认退出后删除PidRecord
 */
func (s *Supervisor) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, err := s.reconcileLocked()
	if err != nil {
		return err
	}
	switch st {
	case StateStopped:
		return nil
	case StateCrashed:
		// 崩溃已被对账确认，记录已清，降为Stopped
		s.state = StateStopped
		return nil
	}

	pid := s.pid()
	s.state = StateStopping
	logger.Infof("Stopping process (pid %d)", pid)

	if err := terminateProcess(pid); err != nil {
		logger.Warnf("SIGTERM failed for pid %d: %v", pid, err)
	}
	if !s.waitExit(ctx, pid, s.opts.StopGrace) {
		logger.Warnf("Process %d survived grace period, escalating to SIGKILL", pid)
		if err := killProcess(pid); err != nil {
			logger.Errorf("SIGKILL failed for pid %d: %v", pid, err)
		}
		if !s.waitExit(ctx, pid, 2*time.Second) {
			s.state = StateRunning
			return errs.Process("process %d did not exit after SIGKILL", pid)
		}
	}

	if err := removePidRecord(s.pidPath); err != nil {
		return err
	}
	s.rec = nil
	s.state = StateStopped
	logger.Infof("Process %d stopped", pid)
	return nil
}

func (s *Supervisor) waitExit(ctx context.Context, pid int, window time.Duration) bool {
	deadline := time.Now().Add(window)
	for time.Now().Before(deadline) {
		if !processAlive(pid) {
			return true
		}
		select {
		case <-ctx.Done():
			return !processAlive(pid)
		case <-time.After(100 * time.Millisecond):
		}
	}
	return !processAlive(pid)
}

/**
 * Restart 停止后重新启动，作为一个操作暴露
 * @description
 * - 调用方在切换版本/配置后用它完成无竞争的换版本重启
 */
func (s *Supervisor) Restart(ctx context.Context, binaryPath, configPath string) error {
	if err := s.Stop(ctx); err != nil {
		return errs.Wrap(err, "restart: stop phase")
	}
	if err := s.Start(ctx, binaryPath, configPath); err != nil {
		return errs.Wrap(err, "restart: start phase")
	}
	return nil
}

/**
 * watch 收割并观察daemon模式下的子进程
 * @description
 * - 进程在未调用stop()的情况下退出 → Crashed并通知回调
 * - 正常stop()路径下的退出不触发回调
 */
func (s *Supervisor) watch(cmd *exec.Cmd, rec PidRecord) {
	err := cmd.Wait()

	s.mu.Lock()
	if s.state == StateStopping || s.state == StateStopped {
		s.mu.Unlock()
		return
	}
	if err != nil {
		logger.Errorf("Process %d exited unexpectedly: %v", rec.Pid, err)
	} else {
		logger.Warnf("Process %d exited unexpectedly", rec.Pid)
	}
	s.state = StateCrashed
	onExit := s.opts.OnExit
	s.mu.Unlock()

	if onExit != nil {
		onExit(rec)
	}
}

// pid 当前记录的进程ID，无记录时为0。调用方需持锁。
func (s *Supervisor) pid() int {
	if s.rec == nil {
		return 0
	}
	return s.rec.Pid
}
