package version

import (
	"context"
	"path/filepath"

	"mihomoctl/internal/env"
	"mihomoctl/internal/errs"
	"mihomoctl/internal/logger"
)

/**
 * RunningProbe 查询当前是否有受管进程以及它用的二进制
 * @description
 * - 由服务层实现，版本管理器用它拒绝卸载正在运行的版本
 */
type RunningProbe interface {
	RunningBinary() (string, bool)
}

/**
 * Manager 组合版本库与下载器，提供安装/切换/卸载/列表
 * @property {*Store} store - 磁盘版本库
 * @property {*Downloader} downloader - 制品下载器
 * @property {RunningProbe} probe - 运行中服务探测，可为nil
 */
type Manager struct {
	home       env.Home
	store      *Store
	downloader *Downloader
	probe      RunningProbe
}

func NewManager(home env.Home, downloader *Downloader, probe RunningProbe) *Manager {
	return &Manager{
		home:       home,
		store:      NewStore(home),
		downloader: downloader,
		probe:      probe,
	}
}

// Store 暴露底层版本库，服务层解析二进制路径时使用
func (m *Manager) Store() *Store {
	return m.store
}

/**
 * Install 安装一个版本或通道
 * @param {context.Context} ctx - 取消/超时控制
 * @param {string} spec - 版本号或通道名(stable/beta/nightly)
 * @returns {Version} 安装完成的版本
 * @returns {error} Network/Validation/IO errors per cause
 * @description
 * - 通道在此刻解析成具体版本，记录的是具体版本
 * - 已完整发布的版本直接返回，不再下载(幂等)
 * - 下载进同文件系统暂存目录，校验通过后整目录rename发布；
 *   中途崩溃只留下暂存目录，版本库不会出现半成品
 */
func (m *Manager) Install(ctx context.Context, spec string) (Version, error) {
	tag := spec
	if channel, ok := ParseChannel(spec); ok {
		resolved, err := m.downloader.ResolveChannel(ctx, channel)
		if err != nil {
			return Version{}, errs.Wrap(err, "resolve channel '%s'", channel)
		}
		logger.Infof("Channel '%s' resolved to version '%s'", channel, resolved)
		tag = resolved
	}

	if m.store.Installed(tag) {
		logger.Infof("Version '%s' is already installed", tag)
		return m.store.Get(tag)
	}

	staged, err := m.store.Stage(tag)
	if err != nil {
		return Version{}, err
	}
	dest := filepath.Join(staged, env.KernelBinaryName())
	if err := m.downloader.Fetch(ctx, tag, dest); err != nil {
		m.store.Discard(staged)
		return Version{}, errs.Wrap(err, "install version '%s'", tag)
	}
	if err := m.store.Publish(tag, staged); err != nil {
		return Version{}, errs.Wrap(err, "install version '%s'", tag)
	}

	logger.Infof("Version '%s' installed", tag)
	return m.store.Get(tag)
}

// SetDefault 切换默认版本指针
func (m *Manager) SetDefault(tag string) error {
	if err := m.store.SetDefault(tag); err != nil {
		return errs.Wrap(err, "set default version")
	}
	logger.Infof("Default version set to '%s'", tag)
	return nil
}

// Default 读取默认版本号，未设置时为空串
func (m *Manager) Default() (string, error) {
	return m.store.Default()
}

/**
 * Uninstall 卸载一个版本
 * @param {string} tag - 版本号
 * @returns {error} Conflict if the version backs the running service
 * @description
 * - 默认指针指向该版本时一并清除(与悬空指针不变量一致)
 * - 正在运行的进程继续使用已删除的二进制直到下次重启，由启动时
 *   绑定路径的语义保证
 */
func (m *Manager) Uninstall(tag string) error {
	if m.probe != nil {
		if binary, running := m.probe.RunningBinary(); running {
			if binary == m.home.VersionBinary(tag) {
				return errs.Conflict("version '%s' is backing the running service, stop it first", tag)
			}
		}
	}
	if err := m.store.Remove(tag); err != nil {
		return errs.Wrap(err, "uninstall version '%s'", tag)
	}
	logger.Infof("Version '%s' uninstalled", tag)
	return nil
}

// List 返回已安装版本快照
func (m *Manager) List() ([]Version, error) {
	return m.store.List()
}
