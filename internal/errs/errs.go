package errs

import (
	"errors"
	"fmt"
)

// Kind 错误分类，调用方用它分支处理
type Kind string

const (
	// 下载或控制面不可达/超时
	KindNetwork Kind = "network"
	// 引用的版本/配置/连接不存在
	KindNotFound Kind = "not_found"
	// 操作会破坏不变量，比如卸载正在运行的版本
	KindConflict Kind = "conflict"
	// 制品或配置内容非法
	KindValidation Kind = "validation"
	// 密钥被拒绝
	KindAuth Kind = "auth"
	// 进程启动/停止/重启失败
	KindProcess Kind = "process"
	// 其余文件系统错误
	KindIO Kind = "io"
)

/**
 * Error 携带分类的错误
 * @property {Kind} kind - 错误分类
 * @property {error} err - 底层错误
 * @description
 * - 组合层的管理器用Wrap补充上下文，不改变分类
 * - errors.Is/As沿Unwrap链工作
 */
type Error struct {
	kind Kind
	err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %v", e.kind, e.err)
}

func (e *Error) Unwrap() error {
	return e.err
}

func (e *Error) Kind() Kind {
	return e.kind
}

// New 创建指定分类的错误
func New(kind Kind, format string, args ...interface{}) error {
	return &Error{kind: kind, err: fmt.Errorf(format, args...)}
}

func Network(format string, args ...interface{}) error {
	return New(KindNetwork, format, args...)
}

func NotFound(format string, args ...interface{}) error {
	return New(KindNotFound, format, args...)
}

func Conflict(format string, args ...interface{}) error {
	return New(KindConflict, format, args...)
}

func Validation(format string, args ...interface{}) error {
	return New(KindValidation, format, args...)
}

func Auth(format string, args ...interface{}) error {
	return New(KindAuth, format, args...)
}

func Process(format string, args ...interface{}) error {
	return New(KindProcess, format, args...)
}

func IO(format string, args ...interface{}) error {
	return New(KindIO, format, args...)
}

/**
 * Wrap 在保留分类的前提下补充上下文
 * @param {error} err - 被包装的错误
 * @param {string} format - 上下文描述
 * @returns {error} Wrapped error, nil if err is nil
 * @description
 * - err已携带分类时沿用原分类
 * - 否则按KindIO处理
 */
func Wrap(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	kind := KindIO
	var e *Error
	if errors.As(err, &e) {
		kind = e.kind
	}
	return &Error{kind: kind, err: fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)}
}

// WrapKind 包装并强制指定分类，叶子组件把底层错误归类时使用
func WrapKind(err error, kind Kind, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return &Error{kind: kind, err: fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)}
}

// KindOf 取出错误分类，未分类的错误返回KindIO
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.kind
	}
	return KindIO
}

// IsKind 判断错误是否属于指定分类
func IsKind(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.kind == kind
	}
	return false
}

/**
 * ExitCode CLI的退出码约定
 * @param {error} err - 错误
 * @returns {int} 0表示成功，其余按分类区分
 */
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	switch KindOf(err) {
	case KindNetwork:
		return 2
	case KindNotFound:
		return 3
	case KindConflict:
		return 4
	case KindValidation:
		return 5
	case KindAuth:
		return 6
	case KindProcess:
		return 7
	default:
		return 1
	}
}
