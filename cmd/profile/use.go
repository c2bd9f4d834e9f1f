package profile

import (
	"fmt"

	"github.com/spf13/cobra"

	"mihomoctl/cmd/root"
)

var useCmd = &cobra.Command{
	Use:   "use <name>",
	Short: "切换当前配置",
	Long: `切换当前配置。
切换只影响之后的启动，运行中的进程保持原配置直到重启或reload。`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		app, err := root.GetApp()
		if err != nil {
			root.Exit(err)
		}
		if err := app.Profiles.SetCurrent(args[0]); err != nil {
			root.Exit(err)
		}
		fmt.Printf("Current profile set to %s\n", args[0])
	},
}

func init() {
	profileCmd.AddCommand(useCmd)
}
