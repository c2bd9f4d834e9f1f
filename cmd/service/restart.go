package service

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"mihomoctl/cmd/root"
)

var restartCmd = &cobra.Command{
	Use:   "restart",
	Short: "重启内核",
	Long: `重启内核。
停止后按最新的默认版本和当前配置重新启动，换版本/换配置后用它生效。`,
	Run: func(cmd *cobra.Command, args []string) {
		app, err := root.GetApp()
		if err != nil {
			root.Exit(err)
		}
		if err := app.Services.Restart(context.Background()); err != nil {
			root.Exit(err)
		}
		status, err := app.Services.Status(context.Background())
		if err != nil {
			root.Exit(err)
		}
		fmt.Printf("Kernel restarted (pid %d, version %s, profile %s)\n",
			status.Pid, status.Version, status.Profile)
	},
}

func init() {
	serviceCmd.AddCommand(restartCmd)
}
