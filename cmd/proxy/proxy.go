package proxy

import (
	"github.com/spf13/cobra"

	"mihomoctl/cmd/root"
)

var proxyCmd = &cobra.Command{
	Use:   "proxy",
	Short: "Proxy operations (list/groups/switch/test)",
	Long:  `Proxy operations (list/groups/switch/test)`,
}

const proxyExample = `  # inspect and control proxies on the running kernel
  mihomoctl proxy list
  mihomoctl proxy groups
  mihomoctl proxy switch PROXY-GROUP HK-01
  mihomoctl proxy test HK-01`

func init() {
	root.RootCmd.AddCommand(proxyCmd)

	proxyCmd.Example = proxyExample
}
