package env

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
)

// HomeEnvVar 覆盖基目录的环境变量
const HomeEnvVar = "MIHOMOCTL_HOME"

// KernelBinaryName mihomo内核的二进制文件名
func KernelBinaryName() string {
	if runtime.GOOS == "windows" {
		return "mihomo.exe"
	}
	return "mihomo"
}

/**
 * Home 基目录上下文
 * @description
 * - 进程启动时解析一次，之后以值的形式传给各个管理器
 * - 所有磁盘路径都从这里派生，组件不自己读环境变量
 */
type Home struct {
	base string
}

/**
 * Resolve home directory context
 * @returns {Home} Resolved home context
 * @returns {error} Error if no base directory can be determined
 * @description
 * - MIHOMOCTL_HOME环境变量优先
 * - 否则退回平台标准配置目录(如~/.config/mihomoctl)
 */
func Resolve() (Home, error) {
	if dir := os.Getenv(HomeEnvVar); dir != "" {
		return Home{base: dir}, nil
	}
	cfgDir, err := os.UserConfigDir()
	if err != nil {
		return Home{}, fmt.Errorf("resolve home directory: %v", err)
	}
	return Home{base: filepath.Join(cfgDir, "mihomoctl")}, nil
}

// New 用显式基目录构造Home，测试和库调用方使用
func New(base string) Home {
	return Home{base: base}
}

func (h Home) Base() string {
	return h.base
}

func (h Home) VersionsDir() string {
	return filepath.Join(h.base, "versions")
}

func (h Home) VersionDir(version string) string {
	return filepath.Join(h.VersionsDir(), version)
}

func (h Home) VersionBinary(version string) string {
	return filepath.Join(h.VersionDir(version), KernelBinaryName())
}

// DefaultPointer 默认版本指针文件
func (h Home) DefaultPointer() string {
	return filepath.Join(h.VersionsDir(), "default")
}

func (h Home) ConfigsDir() string {
	return filepath.Join(h.base, "configs")
}

func (h Home) ProfilePath(name string) string {
	return filepath.Join(h.ConfigsDir(), name+".yaml")
}

// CurrentPointer 当前配置指针文件
func (h Home) CurrentPointer() string {
	return filepath.Join(h.ConfigsDir(), "current")
}

// ConfigFile 管理器自身的设置文件
func (h Home) ConfigFile() string {
	return filepath.Join(h.base, "config.toml")
}

// PidFile 受管进程的PidRecord
func (h Home) PidFile() string {
	return filepath.Join(h.base, "mihomo.pid")
}

func (h Home) LogsDir() string {
	return filepath.Join(h.base, "logs")
}

func (h Home) LogFile() string {
	return filepath.Join(h.LogsDir(), "mihomoctl.log")
}

/**
 * EnsureLayout 创建存储布局需要的目录
 * @returns {error} Returns error if any directory cannot be created
 */
func (h Home) EnsureLayout() error {
	for _, dir := range []string{h.base, h.VersionsDir(), h.ConfigsDir(), h.LogsDir()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory '%s': %v", dir, err)
		}
	}
	return nil
}
