package main

import (
	"os"

	_ "mihomoctl/cmd"
	"mihomoctl/cmd/root"
)

func main() {
	// 日志系统在各命令的依赖加载里初始化，help/version不触碰磁盘
	if err := root.RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
	os.Exit(0)
}
