package service

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"mihomoctl/cmd/root"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "启动内核",
	Long: `启动内核。
用默认版本的二进制和当前配置拉起进程，启动前自动补全外部控制器地址。
子进程脱离本进程独立运行，命令返回后进程继续存活。`,
	Run: func(cmd *cobra.Command, args []string) {
		app, err := root.GetApp()
		if err != nil {
			root.Exit(err)
		}
		if err := app.Services.Start(context.Background()); err != nil {
			root.Exit(err)
		}
		status, err := app.Services.Status(context.Background())
		if err != nil {
			root.Exit(err)
		}
		fmt.Printf("Kernel started (pid %d, version %s, profile %s)\n",
			status.Pid, status.Version, status.Profile)
	},
}

func init() {
	serviceCmd.AddCommand(startCmd)
}
