package cmd

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"mihomoctl/cmd/root"
)

// 构建期通过-ldflags注入
var (
	Version   = "dev"
	GitCommit = ""
	BuildTime = ""
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "显示mihomoctl自身的构建信息",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("mihomoctl %s\n", Version)
		if GitCommit != "" {
			fmt.Printf("commit: %s\n", GitCommit)
		}
		if BuildTime != "" {
			fmt.Printf("built:  %s\n", BuildTime)
		}
		fmt.Printf("go:     %s %s/%s\n", runtime.Version(), runtime.GOOS, runtime.GOARCH)
	},
}

func init() {
	root.RootCmd.AddCommand(versionCmd)
}
