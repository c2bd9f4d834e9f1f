package kernel

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"mihomoctl/cmd/root"
)

var optNoDefault bool

var installCmd = &cobra.Command{
	Use:   "install [version|channel]",
	Short: "下载并安装一个内核版本",
	Long: `下载并安装一个内核版本。
参数可以是具体版本号(v1.18.8)，也可以是通道名(stable/beta/nightly)，
通道在安装时解析成具体版本。`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		spec := "stable"
		if len(args) > 0 && args[0] != "" {
			spec = args[0]
		}

		app, err := root.GetApp()
		if err != nil {
			root.Exit(err)
		}
		v, err := app.Kernel.Install(context.Background(), spec)
		if err != nil {
			root.Exit(err)
		}
		fmt.Printf("Installed version %s\n", v.Tag)

		if optNoDefault {
			return
		}
		// 首次安装或显式安装时顺手设为默认，单独的default命令可随时改
		if err := app.Kernel.SetDefault(v.Tag); err != nil {
			root.Exit(err)
		}
		fmt.Printf("Default version set to %s\n", v.Tag)
	},
}

func init() {
	installCmd.Flags().SortFlags = false
	installCmd.Flags().BoolVar(&optNoDefault, "no-default", false, "只安装，不更新默认版本指针")
	kernelCmd.AddCommand(installCmd)
}
