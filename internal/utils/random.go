package utils

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

/**
 * RandomSecret 生成外部控制器使用的随机密钥
 * @param {int} bytes - 随机字节数，输出为其2倍长度的hex串
 * @returns {string} Hex encoded secret
 * @returns {error} Returns error if the system entropy source fails
 */
func RandomSecret(bytes int) (string, error) {
	if bytes <= 0 {
		bytes = 16
	}
	buf := make([]byte, bytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate secret: %v", err)
	}
	return hex.EncodeToString(buf), nil
}
