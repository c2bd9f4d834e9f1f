package conn

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"mihomoctl/cmd/root"
	"mihomoctl/internal/errs"
)

var optAll bool

var closeCmd = &cobra.Command{
	Use:   "close [id]",
	Short: "关闭连接",
	Long:  `关闭指定的连接，或用--all关闭全部连接。`,
	Args:  cobra.MaximumNArgs(1),
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

		if optAll {
			if err := client.CloseAllConnections(ctx); err != nil {
				root.Exit(err)
			}
			fmt.Println("All connections closed")
			return
		}
		if len(args) == 0 {
			root.Exit(errs.Validation("specify a connection id or use --all"))
		}
		if err := client.CloseConnection(ctx, args[0]); err != nil {
			root.Exit(err)
		}
		fmt.Printf("Connection %s closed\n", args[0])
	},
}

func init() {
	closeCmd.Flags().SortFlags = false
	closeCmd.Flags().BoolVarP(&optAll, "all", "a", false, "关闭全部连接")
	connCmd.AddCommand(closeCmd)
}
