//go:build windows

package proc

import (
	"os"
	"os/exec"
	"strconv"
	"strings"
)

// processAlive Windows下通过tasklist确认进程存在
func processAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	out, err := exec.Command("tasklist", "/FI", "PID eq "+strconv.Itoa(pid), "/NH", "/FO", "CSV").Output()
	if err != nil {
		return false
	}
	return strings.Contains(string(out), strconv.Itoa(pid))
}

func processMatches(rec *PidRecord) bool {
	return processAlive(rec.Pid)
}

// terminateProcess Windows没有SIGTERM等价物，直接请求终止
func terminateProcess(pid int) error {
	return exec.Command("taskkill", "/PID", strconv.Itoa(pid)).Run()
}

func killProcess(pid int) error {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return err
	}
	return proc.Kill()
}

func detachProcess(cmd *exec.Cmd) {
	// Windows下子进程默认不随父进程退出
}
