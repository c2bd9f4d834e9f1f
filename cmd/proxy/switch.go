package proxy

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"mihomoctl/cmd/root"
)

var switchCmd = &cobra.Command{
	Use:   "switch <group> <proxy>",
	Short: "切换代理组的选中节点",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		group, proxy := args[0], args[1]

		app, err := root.GetApp()
		if err != nil {
			root.Exit(err)
		}
		ctx := context.Background()
		client, err := app.Services.ControlClient(ctx)
		if err != nil {
			root.Exit(err)
		}
		if err := client.SwitchProxy(ctx, group, proxy); err != nil {
			root.Exit(err)
		}
		fmt.Printf("Group %s switched to %s\n", group, proxy)
	},
}

func init() {
	proxyCmd.AddCommand(switchCmd)
}
