package proc

import (
	"encoding/json"
	"os"
	"time"

	"github.com/google/renameio/v2"

	"mihomoctl/internal/errs"
)

/**
 * PidRecord 最近一次拉起的进程的持久化记录
 * @property {int} pid - 进程ID
 * @property {time.Time} startTime - 启动时间
 * @property {string} binaryPath - 启动时绑定的二进制路径
 * @property {string} configPath - 启动时绑定的配置路径
 * @description
 * - 成功拉起时写入，确认干净停止后删除
 * - 文件存在不代表进程活着，过期记录由Reconcile识别并清理
 */
type PidRecord struct {
	Pid        int       `json:"pid"`
	StartTime  time.Time `json:"startTime"`
	BinaryPath string    `json:"binaryPath"`
	ConfigPath string    `json:"configPath"`
}

// readPidRecord 读取PidRecord，文件不存在时返回nil
func readPidRecord(path string) (*PidRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errs.WrapKind(err, errs.KindIO, "read pid file")
	}
	var rec PidRecord
	if err := json.Unmarshal(data, &rec); err != nil || rec.Pid <= 0 {
		// 记录损坏按过期处理，调用方负责清理
		return nil, nil
	}
	return &rec, nil
}

// writePidRecord 原子地写入PidRecord
func writePidRecord(path string, rec *PidRecord) error {
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return errs.WrapKind(err, errs.KindIO, "encode pid record")
	}
	if err := renameio.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return errs.WrapKind(err, errs.KindIO, "write pid file")
	}
	return nil
}

// removePidRecord 删除PidRecord，不存在视为成功
func removePidRecord(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return errs.WrapKind(err, errs.KindIO, "remove pid file")
	}
	return nil
}
