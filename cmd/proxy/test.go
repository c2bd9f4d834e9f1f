package proxy

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"mihomoctl/cmd/root"
)

var (
	optTestURL string
	optTimeout int
)

var testCmd = &cobra.Command{
	Use:   "test <proxy>",
	Short: "测试代理延迟",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		app, err := root.GetApp()
		if err != nil {
			root.Exit(err)
		}
		ctx := context.Background()
		client, err := app.Services.ControlClient(ctx)
		if err != nil {
			root.Exit(err)
		}
		result, err := client.TestDelay(ctx, args[0], optTestURL, optTimeout)
		if err != nil {
			root.Exit(err)
		}
		fmt.Printf("%s: %dms\n", args[0], result.Delay)
	},
}

func init() {
	testCmd.Flags().SortFlags = false
	testCmd.Flags().StringVarP(&optTestURL, "url", "u", "", "测速地址，默认使用generate_204")
	testCmd.Flags().IntVarP(&optTimeout, "timeout", "t", 5000, "测速超时毫秒数")
	proxyCmd.AddCommand(testCmd)
}
