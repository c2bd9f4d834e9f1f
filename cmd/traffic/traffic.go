package traffic

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

var Cmd = &cobra.Command{
	Use:   "traffic",
	Short: "实时输出流量采样",
	Long: `实时输出流量采样。
每秒一条上下行速率，Ctrl-C退出。消费跟不上时丢弃过期采样。`,
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
		sub, err := client.SubscribeTraffic(ctx)
		if err != nil {
			root.Exit(err)
		}
		defer sub.Close()

		for t := range sub.C {
			fmt.Printf("up %s/s, down %s/s\n", mihomo.FormatBytes(t.Up), mihomo.FormatBytes(t.Down))
		}
		root.Exit(sub.Err())
	},
}

func init() {
	root.RootCmd.AddCommand(Cmd)
}
