package misc

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"mihomoctl/cmd/root"
)

var reloadCmd = &cobra.Command{
	Use:   "reload",
	Short: "让内核热加载当前配置",
	Long: `让内核热加载当前配置，不重启进程。
加载前做结构校验，坏配置不会被推给内核。`,
	Run: func(cmd *cobra.Command, args []string) {
		app, err := root.GetApp()
		if err != nil {
			root.Exit(err)
		}
		if err := app.Services.Reload(context.Background()); err != nil {
			root.Exit(err)
		}
		fmt.Println("Config reloaded")
	},
}

func init() {
	root.RootCmd.AddCommand(reloadCmd)
}
