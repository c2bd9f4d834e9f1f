package service

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"mihomoctl/cmd/root"
)

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "停止内核",
	Long:  `停止内核。未运行时是无操作的成功。`,
	Run: func(cmd *cobra.Command, args []string) {
		app, err := root.GetApp()
		if err != nil {
			root.Exit(err)
		}
		if err := app.Services.Stop(context.Background()); err != nil {
			root.Exit(err)
		}
		fmt.Println("Kernel stopped")
	},
}

func init() {
	serviceCmd.AddCommand(stopCmd)
}
