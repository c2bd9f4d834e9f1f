//go:build !windows

package proc

import (
	"os"
	"os/exec"
	"strconv"
	"strings"
	"syscall"
)

// processAlive 用信号0探测进程是否存在
func processAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	err = proc.Signal(syscall.Signal(0))
	if err == nil {
		return true
	}
	// EPERM说明进程存在但不属于当前用户，不是我们拉起的
	return false
}

/**
 * processMatches 判断PID对应的进程是否是记录里拉起的那个
 * @param {*PidRecord} rec - 持久化的进程记录
 * @returns {bool} true表示进程存在且命令行与记录一致
 * @description
 * - PID会被内核复用，只看存活不够
 * - Linux下比对/proc/<pid>/cmdline里的二进制路径，读不到时退化为存活判断
 */
func processMatches(rec *PidRecord) bool {
	if !processAlive(rec.Pid) {
		return false
	}
	data, err := os.ReadFile("/proc/" + strconv.Itoa(rec.Pid) + "/cmdline")
	if err != nil {
		// 非Linux或/proc不可用
		return true
	}
	cmdline := strings.ReplaceAll(string(data), "\x00", " ")
	return strings.Contains(cmdline, rec.BinaryPath)
}

// terminateProcess 发送SIGTERM请求优雅退出
func terminateProcess(pid int) error {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return err
	}
	return proc.Signal(syscall.SIGTERM)
}

// killProcess 发送SIGKILL强制终止
func killProcess(pid int) error {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return err
	}
	return proc.Signal(syscall.SIGKILL)
}

// detachProcess 让子进程脱离当前进程组，父进程退出后继续运行
func detachProcess(cmd *exec.Cmd) {
	if cmd.SysProcAttr == nil {
		cmd.SysProcAttr = &syscall.SysProcAttr{}
	}
	cmd.SysProcAttr.Setsid = true
}
