package kernel

import (
	"github.com/spf13/cobra"

	"mihomoctl/cmd/root"
)

var kernelCmd = &cobra.Command{
	Use:   "kernel",
	Short: "Kernel version operations (install/list/uninstall/default)",
	Long:  `Kernel version operations (install/list/uninstall/default)`,
}

const kernelExample = `  # install a channel or a specific version
  mihomoctl kernel install stable
  mihomoctl kernel install v1.18.8
  mihomoctl kernel list
  mihomoctl kernel default v1.18.8
  mihomoctl kernel uninstall v1.18.1`

func init() {
	root.RootCmd.AddCommand(kernelCmd)

	kernelCmd.Example = kernelExample
}
