package kernel

import (
	"fmt"

	"github.com/spf13/cobra"

	"mihomoctl/cmd/root"
)

var uninstallCmd = &cobra.Command{
	Use:   "uninstall <version>",
	Short: "卸载一个内核版本",
	Long: `卸载一个内核版本。
正在支撑运行中服务的版本拒绝卸载；被默认指针指向的版本卸载后指针一并清除。`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		app, err := root.GetApp()
		if err != nil {
			root.Exit(err)
		}
		if err := app.Kernel.Uninstall(args[0]); err != nil {
			root.Exit(err)
		}
		fmt.Printf("Uninstalled version %s\n", args[0])
	},
}

func init() {
	kernelCmd.AddCommand(uninstallCmd)
}
