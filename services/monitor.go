package services

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"mihomoctl/internal/config"
	"mihomoctl/internal/errs"
	"mihomoctl/internal/logger"
	"mihomoctl/internal/proc"
)

var (
	crashTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "mihomoctl_kernel_crash_total",
		Help: "Total number of unexpected kernel exits observed",
	})
	restartTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "mihomoctl_kernel_restart_total",
		Help: "Total number of automatic kernel restarts",
	})
	kernelUp = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "mihomoctl_kernel_up",
		Help: "Whether the managed kernel process is running (1) or not (0)",
	})
)

func init() {
	prometheus.MustRegister(crashTotal)
	prometheus.MustRegister(restartTotal)
	prometheus.MustRegister(kernelUp)
}

/**
 * Monitor daemon模式下的看护循环
 * @description
 * - 周期性对账进程状态，发现Crashed后按策略处理
 * - policy=never只记录；policy=restart带指数退避重启
 * - 连续重启次数耗尽后停止尝试并落下终态错误
 * - 进程健康运行超过healthyReset后，重启计数清零
 */
type Monitor struct {
	sm  *ServiceManager
	cfg config.MonitorConfig

	attempts    int
	recovering  bool
	lastRestart time.Time
	termErr     error
}

func NewMonitor(sm *ServiceManager, cfg config.MonitorConfig) *Monitor {
	return &Monitor{sm: sm, cfg: cfg}
}

// Err 看护循环的终态错误，重启次数耗尽时非nil
func (m *Monitor) Err() error {
	return m.termErr
}

/**
 * Run 看护主循环，阻塞直到ctx取消
 */
func (m *Monitor) Run(ctx context.Context) {
	logger.Infof("Monitor started (interval %s, policy %s)", m.cfg.PollInterval(), m.cfg.Policy)
	ticker := time.NewTicker(m.cfg.PollInterval())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Infof("Monitor stopped")
			return
		case <-ticker.C:
			m.tick(ctx)
		}
	}
}

func (m *Monitor) tick(ctx context.Context) {
	st, err := m.sm.Supervisor().Reconcile()
	if err != nil {
		logger.Errorf("Monitor reconcile failed: %v", err)
		return
	}

	switch st {
	case proc.StateRunning:
		kernelUp.Set(1)
		m.recovering = false
		if m.attempts > 0 && time.Since(m.lastRestart) > m.cfg.HealthyResetWindow() {
			logger.Infof("Kernel healthy for %s, resetting restart counter", m.cfg.HealthyResetWindow())
			m.attempts = 0
		}
	case proc.StateCrashed:
		kernelUp.Set(0)
		crashTotal.Inc()
		m.handleCrash(ctx)
	default:
		kernelUp.Set(0)
		// 上一次自动重启没把进程带起来(拉起失败或就绪探测不过)，继续消耗重试配额
		if m.recovering {
			m.handleCrash(ctx)
		}
	}
}

/**
 * handleCrash 按策略处理一次崩溃
 * @description
 * - 退避时长 = baseDelay * 2^(attempts-1)，不做上限裁剪由配置约束
 */
func (m *Monitor) handleCrash(ctx context.Context) {
	if m.cfg.Policy != config.MonitorPolicyRestart {
		logger.Warnf("Kernel crashed, restart policy is '%s', leaving it down", m.cfg.Policy)
		// 确认崩溃，避免每个tick重复计数
		if err := m.sm.Stop(ctx); err != nil {
			logger.Errorf("Failed to acknowledge crash: %v", err)
		}
		return
	}
	if m.termErr != nil {
		return
	}
	if m.attempts >= m.cfg.MaxAttempts {
		m.recovering = false
		m.termErr = errs.Process("kernel crashed %d times in a row, giving up", m.attempts)
		logger.Errorf("Monitor terminal: %v", m.termErr)
		if err := m.sm.Stop(ctx); err != nil {
			logger.Errorf("Failed to acknowledge crash: %v", err)
		}
		return
	}

	delay := m.cfg.RestartBaseDelay() << m.attempts
	m.attempts++
	// 重启失败也算消耗了一次配额，下个tick在recovering状态下继续
	m.recovering = true
	logger.Warnf("Kernel crashed, restarting in %s (attempt %d/%d)", delay, m.attempts, m.cfg.MaxAttempts)

	select {
	case <-ctx.Done():
		return
	case <-time.After(delay):
	}

	m.lastRestart = time.Now()
	if err := m.sm.Start(ctx); err != nil {
		logger.Errorf("Automatic restart failed: %v", err)
		return
	}
	m.recovering = false
	restartTotal.Inc()
	logger.Infof("Kernel restarted after crash")
}
