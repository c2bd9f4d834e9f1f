package utils

import (
	"fmt"
	"net"
	"time"
)

/**
 * FreePort 申请一个空闲的本地TCP端口
 * @returns {int} 可用端口号
 * @returns {error} Returns error if no port can be allocated
 * @description
 * - 监听:0让内核分配，随即关闭并返回端口号
 * - 端口在返回后理论上可能被抢占，调用方写入配置前应尽快使用
 */
func FreePort() (int, error) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return 0, fmt.Errorf("allocate free port: %v", err)
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port, nil
}

// CheckPortAvailable 检查端口是否未被占用
func CheckPortAvailable(port int) bool {
	timeout := time.Second
	conn, err := net.DialTimeout("tcp", net.JoinHostPort("localhost", fmt.Sprintf("%d", port)), timeout)
	if err != nil {
		// 连接失败，说明端口可用
		return true
	}
	if conn != nil {
		conn.Close()
		// 连接成功，说明端口已被占用
		return false
	}
	return true
}
