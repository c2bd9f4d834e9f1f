package memory

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

var optWatch bool

var Cmd = &cobra.Command{
	Use:   "memory",
	Short: "查看内核内存占用",
	Long:  `查看内核内存占用。默认打印一次当前读数，--watch持续输出。`,
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

		if !optWatch {
			m, err := client.MemoryOnce(ctx)
			if err != nil {
				root.Exit(err)
			}
			fmt.Printf("inuse %s\n", mihomo.FormatBytes(m.InUse))
			return
		}

		sub, err := client.SubscribeMemory(ctx)
		if err != nil {
			root.Exit(err)
		}
		defer sub.Close()

		for m := range sub.C {
			fmt.Printf("inuse %s\n", mihomo.FormatBytes(m.InUse))
		}
		root.Exit(sub.Err())
	},
}

func init() {
	root.RootCmd.AddCommand(Cmd)
	Cmd.Flags().SortFlags = false
	Cmd.Flags().BoolVarP(&optWatch, "watch", "w", false, "持续输出每秒采样")
}
