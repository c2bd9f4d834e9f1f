package service

import (
	"github.com/spf13/cobra"

	"mihomoctl/cmd/root"
)

var serviceCmd = &cobra.Command{
	Use:   "service",
	Short: "Service operations (start/stop/restart/status)",
	Long:  `Service operations (start/stop/restart/status)`,
}

const serviceExample = `  # control the managed kernel process
  mihomoctl service start
  mihomoctl service status
  mihomoctl service restart
  mihomoctl service stop`

func init() {
	root.RootCmd.AddCommand(serviceCmd)

	serviceCmd.Example = serviceExample
}
