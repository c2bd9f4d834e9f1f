package kernel

import (
	"fmt"

	"github.com/spf13/cobra"

	"mihomoctl/cmd/root"
)

var defaultCmd = &cobra.Command{
	Use:   "default [version]",
	Short: "查看或设置默认内核版本",
	Long: `查看或设置默认内核版本。
不带参数时打印当前默认版本；带参数时把默认指针切到该版本。
切换只影响之后的启动，运行中的进程保持原版本直到重启。`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		app, err := root.GetApp()
		if err != nil {
			root.Exit(err)
		}

		if len(args) == 0 {
			def, err := app.Kernel.Default()
			if err != nil {
				root.Exit(err)
			}
			if def == "" {
				fmt.Println("No default version set")
				return
			}
			fmt.Println(def)
			return
		}

		if err := app.Kernel.SetDefault(args[0]); err != nil {
			root.Exit(err)
		}
		fmt.Printf("Default version set to %s\n", args[0])
	},
}

func init() {
	kernelCmd.AddCommand(defaultCmd)
}
