package profile

import (
	"fmt"

	"github.com/spf13/cobra"

	"mihomoctl/cmd/root"
)

var deleteCmd = &cobra.Command{
	Use:   "delete <name>",
	Short: "删除一个配置",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		app, err := root.GetApp()
		if err != nil {
			root.Exit(err)
		}
		if err := app.Profiles.Store().Delete(args[0]); err != nil {
			root.Exit(err)
		}
		fmt.Printf("Deleted profile %s\n", args[0])
	},
}

func init() {
	profileCmd.AddCommand(deleteCmd)
}
