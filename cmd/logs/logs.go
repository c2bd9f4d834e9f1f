package logs

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"mihomoctl/cmd/root"
	"mihomoctl/internal/mihomo"
)

var optLevel string

var Cmd = &cobra.Command{
	Use:   "logs",
	Short: "实时输出内核日志",
	Long: `实时输出内核日志。
订阅控制面的日志流并逐条打印，Ctrl-C退出。断线后自动重连。`,
	Run: func(cmd *cobra.Command, args []string) {
		app, err := root.GetApp()
		if err != nil {
			root.Exit(err)
		}
		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer cancel()

		client, err := app.Services.ControlClient(ctx)
		if err != nil {
			root.Exit(err)
		}
		sub, err := client.SubscribeLogs(ctx, mihomo.LogLevel(optLevel))
		if err != nil {
			root.Exit(err)
		}
		defer sub.Close()

		for entry := range sub.C {
			fmt.Printf("[%s] %s\n", entry.Type, entry.Payload)
		}
		root.Exit(sub.Err())
	},
}

func init() {
	root.RootCmd.AddCommand(Cmd)
	Cmd.Flags().SortFlags = false
	Cmd.Flags().StringVarP(&optLevel, "level", "l", "info", "最低日志级别(debug/info/warning/error)")
}
